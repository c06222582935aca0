package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/baynext/baynext/pkg/config"
	"github.com/baynext/baynext/pkg/observability"
	"github.com/baynext/baynext/pkg/storage"
	"github.com/baynext/baynext/pkg/storage/sqlstore"
	"github.com/sirupsen/logrus"
)

// env is what a command needs from the deployment's configuration
type env struct {
	cfg    *config.Config
	store  storage.Store
	logger logrus.FieldLogger
}

// openEnv loads the same configuration the API server uses. Tests replace it.
var openEnv = func(ctx context.Context) (*env, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat, os.Stderr)

	store, err := sqlstore.NewFromConfig(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	return &env{cfg: cfg, store: store, logger: logger}, nil
}

func (e *env) Close() error {
	return e.store.Close()
}
