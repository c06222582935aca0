package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/baynext/baynext/pkg/audit"
	"github.com/baynext/baynext/pkg/auth"
	"github.com/baynext/baynext/pkg/jobs"
)

func newCreateKeyCommand() *Command {
	cmd := &Command{
		Name:        "create-key",
		Description: "Create an API key for a project",
		Flags:       flag.NewFlagSet("create-key", flag.ContinueOnError),
		Run:         runCreateKey,
	}

	cmd.Flags.String("project", "", "Project ID")
	cmd.Flags.String("name", "", "Key name")
	cmd.Flags.String("description", "", "Key description")
	cmd.Flags.String("permissions", "", "Comma-separated resource:action grants")
	cmd.Flags.Duration("expires-in", 0, "Lifetime of the key, 0 for no expiry")

	return cmd
}

func runCreateKey(args []string) error {
	cmd := newCreateKeyCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	projectID := cmd.Flags.Lookup("project").Value.String()
	name := cmd.Flags.Lookup("name").Value.String()
	description := cmd.Flags.Lookup("description").Value.String()
	permissions := splitList(cmd.Flags.Lookup("permissions").Value.String())
	expiresIn := cmd.Flags.Lookup("expires-in").Value.(flag.Getter).Get().(time.Duration)
	if projectID == "" || name == "" {
		return fmt.Errorf("project and name are required")
	}
	if expiresIn < 0 {
		return fmt.Errorf("expires-in must not be negative")
	}

	ctx := context.Background()
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	if _, err := e.store.GetProjectByID(ctx, projectID); err != nil {
		return fmt.Errorf("failed to find project %s: %w", projectID, err)
	}

	req := auth.NewKeyRequest{
		ProjectID:   projectID,
		Name:        name,
		Description: description,
		Permissions: permissions,
	}
	if expiresIn > 0 {
		expires := time.Now().Add(expiresIn).UTC()
		req.ExpiresAt = &expires
	}

	key, value, err := auth.NewKeyGenerator().NewKey(req)
	if err != nil {
		return err
	}
	if err := e.store.CreateAPIKey(ctx, key); err != nil {
		return fmt.Errorf("failed to create key: %w", err)
	}

	fmt.Fprintf(output, "Created key %s (%s) on project %s\n", key.ID, key.Prefix, projectID)
	fmt.Fprintf(output, "Key: %s\n", value)
	fmt.Fprintln(output, "The key is shown only once.")
	return nil
}

func newSweepKeysCommand() *Command {
	return &Command{
		Name:        "sweep-keys",
		Description: "Deactivate expired API keys once",
		Flags:       flag.NewFlagSet("sweep-keys", flag.ContinueOnError),
		Run:         runSweepKeys,
	}
}

func runSweepKeys(args []string) error {
	cmd := newSweepKeysCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	sweep := jobs.NewKeyExpirySweep(e.store, nil, audit.NewLogrusLogger(e.logger), e.logger)
	if err := jobs.NewScheduler(e.logger).RunNow(ctx, sweep); err != nil {
		return err
	}
	fmt.Fprintln(output, "Expired keys deactivated")
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
