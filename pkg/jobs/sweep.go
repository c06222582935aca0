package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/baynext/baynext/pkg/audit"
	"github.com/sirupsen/logrus"
)

// ExpiredKeyStore deactivates keys past their expiry
type ExpiredKeyStore interface {
	DeactivateExpiredAPIKeys(ctx context.Context, now time.Time) (int64, error)
}

// SweepRecorder observes deactivated keys
type SweepRecorder interface {
	RecordKeysDeactivated(reason string, n int64)
}

// KeyExpirySweep marks expired API keys inactive. Expired keys are already
// rejected at authentication time; the sweep keeps stored state and key
// listings consistent with that.
type KeyExpirySweep struct {
	store    ExpiredKeyStore
	recorder SweepRecorder
	audit    audit.Logger
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewKeyExpirySweep creates the sweep job. recorder and auditLog may be nil.
func NewKeyExpirySweep(store ExpiredKeyStore, recorder SweepRecorder, auditLog audit.Logger, logger logrus.FieldLogger) *KeyExpirySweep {
	if auditLog == nil {
		auditLog = audit.NoOp()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &KeyExpirySweep{
		store:    store,
		recorder: recorder,
		audit:    auditLog,
		log:      logger,
		now:      time.Now,
	}
}

// Name identifies the job in logs
func (j *KeyExpirySweep) Name() string {
	return "key_expiry_sweep"
}

// Run deactivates every key whose expiry has passed
func (j *KeyExpirySweep) Run(ctx context.Context) error {
	n, err := j.store.DeactivateExpiredAPIKeys(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to deactivate expired keys: %w", err)
	}
	if n == 0 {
		return nil
	}

	if j.recorder != nil {
		j.recorder.RecordKeysDeactivated("expired", n)
	}
	j.log.WithField("count", n).Info("deactivated expired API keys")

	event := audit.NewEvent(ctx, nil, audit.EventTypeKeyExpirySweep, audit.EventStatusSuccess)
	event.ResourceType = audit.ResourceTypeAPIKey
	event.Message = fmt.Sprintf("deactivated %d expired API keys", n)
	event.Metadata["count"] = n
	if err := j.audit.Log(ctx, event); err != nil {
		j.log.WithError(err).Warn("failed to write audit event")
	}
	return nil
}
