package async

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"
)

// Run executes fn with a timeout and turns a panic into an error.
// The error, if any, is logged against taskName and returned.
func Run(parentCtx context.Context, logger logrus.FieldLogger, timeout time.Duration, taskName string, fn func(context.Context) error) (err error) {
	ctx, cancel := context.WithTimeout(parentCtx, timeout)
	defer cancel()

	log := logger.WithField("task", taskName)
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Errorf("task panicked\n%s", debug.Stack())
			err = fmt.Errorf("%s panicked: %v", taskName, r)
		}
	}()

	if err = fn(ctx); err != nil {
		log.WithError(err).Warn("task failed")
	}
	return err
}

// SafeGo runs fn in a goroutine through Run. The task keeps running after
// parentCtx is cancelled, bounded only by timeout.
//
// Example:
//
//	SafeGo(r.Context(), logger, 2*time.Second, "reset login throttle", func(ctx context.Context) error {
//	    throttle.Reset(ctx, email, ip)
//	    return nil
//	})
func SafeGo(parentCtx context.Context, logger logrus.FieldLogger, timeout time.Duration, taskName string, fn func(context.Context) error) {
	ctx := context.WithoutCancel(parentCtx)
	go func() {
		_ = Run(ctx, logger, timeout, taskName, fn)
	}()
}
