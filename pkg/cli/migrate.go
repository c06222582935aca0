package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/baynext/baynext/pkg/config"
	"github.com/baynext/baynext/pkg/observability"
	"github.com/baynext/baynext/pkg/storage/sqlstore"
)

func newMigrateCommand() *Command {
	return &Command{
		Name:        "migrate",
		Description: "Apply pending database migrations",
		Flags:       flag.NewFlagSet("migrate", flag.ContinueOnError),
		Run:         runMigrate,
	}
}

func runMigrate(args []string) error {
	cmd := newMigrateCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Storage.Type == "memory" {
		return fmt.Errorf("storage type is memory, nothing to migrate")
	}
	logger := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat, os.Stderr)

	cm, err := sqlstore.Open(cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer cm.Close()

	applied, err := sqlstore.Migrate(context.Background(), cm.Primary(), cm.Dialect())
	if err != nil {
		return err
	}
	fmt.Fprintf(output, "Applied %d migration(s)\n", applied)
	return nil
}
