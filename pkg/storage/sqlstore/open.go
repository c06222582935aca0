package sqlstore

import (
	"context"

	"github.com/baynext/baynext/pkg/storage"
	"github.com/sirupsen/logrus"
)

// NewFromConfig builds the store cfg.Type names. SQL stores are migrated when
// cfg.AutoMigrate is set, and postgres replicas are health checked until ctx
// is done.
func NewFromConfig(ctx context.Context, cfg storage.Config, logger logrus.FieldLogger) (storage.Store, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if cfg.Type == "memory" {
		logger.Warn("using in-memory storage, data is lost on restart")
		return storage.NewMemoryStore(), nil
	}

	cm, err := Open(cfg, logger)
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		applied, err := Migrate(ctx, cm.Primary(), cm.Dialect())
		if err != nil {
			cm.Close()
			return nil, err
		}
		logger.WithField("applied", applied).Info("database migrations complete")
	}
	if cm.Dialect() == DialectPostgres {
		cm.StartHealthCheckRoutine(ctx, cfg.Timeout*3)
	}
	return NewWithManager(cm), nil
}
