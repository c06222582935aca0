// Package async runs background tasks with a timeout, panic recovery and
// structured error logging.
//
//	err := async.Run(ctx, logger, time.Minute, "key expiry sweep", sweep)
//
//	async.SafeGo(r.Context(), logger, 2*time.Second, "reset login throttle", func(ctx context.Context) error {
//		throttle.Reset(ctx, email, ip)
//		return nil
//	})
//
// SafeGo detaches from the caller's cancellation so work started by a
// request can finish after the response is written.
package async
