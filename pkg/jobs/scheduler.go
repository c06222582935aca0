package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/baynext/baynext/pkg/async"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DefaultTimeout bounds a single job run
const DefaultTimeout = time.Minute

// Job is a unit of scheduled maintenance work
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler runs jobs on cron schedules. Overlapping runs of the same job
// are skipped.
type Scheduler struct {
	cron    *cron.Cron
	log     logrus.FieldLogger
	timeout time.Duration
}

// NewScheduler creates a scheduler. Schedules accept the standard five
// fields and descriptors such as "@every 5m".
func NewScheduler(logger logrus.FieldLogger) *Scheduler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithField("component", "jobs")
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DiscardLogger),
		)),
		log:     logger,
		timeout: DefaultTimeout,
	}
}

// SetTimeout changes the per-run timeout
func (s *Scheduler) SetTimeout(d time.Duration) {
	if d > 0 {
		s.timeout = d
	}
}

// Add schedules job. An empty schedule disables it.
func (s *Scheduler) Add(schedule string, job Job) error {
	if schedule == "" {
		s.log.WithField("job", job.Name()).Info("job disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(schedule, func() {
		_ = s.RunNow(context.Background(), job)
	}); err != nil {
		return fmt.Errorf("failed to schedule %s: %w", job.Name(), err)
	}
	s.log.WithFields(logrus.Fields{
		"job":      job.Name(),
		"schedule": schedule,
	}).Info("job scheduled")
	return nil
}

// RunNow executes job once, synchronously
func (s *Scheduler) RunNow(ctx context.Context, job Job) error {
	start := time.Now()
	err := async.Run(ctx, s.log, s.timeout, job.Name(), job.Run)
	if err == nil {
		s.log.WithFields(logrus.Fields{
			"job":         job.Name(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Debug("job completed")
	}
	return err
}

// Run starts the scheduler and blocks until ctx is done, then waits for
// running jobs to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}
