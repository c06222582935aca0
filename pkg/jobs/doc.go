// Package jobs schedules background maintenance with robfig/cron.
//
//	scheduler := jobs.NewScheduler(logger)
//	sweep := jobs.NewKeyExpirySweep(store, metrics, auditLog, logger)
//	if err := scheduler.Add("@every 5m", sweep); err != nil {
//		return err
//	}
//	go scheduler.Run(ctx)
//
// Each run goes through async.Run, so a failing or panicking job is logged
// and the scheduler keeps going.
package jobs
