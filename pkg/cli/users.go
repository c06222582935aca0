package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/baynext/baynext/pkg/auth"
	"github.com/google/uuid"
)

func newCreateUserCommand() *Command {
	cmd := &Command{
		Name:        "create-user",
		Description: "Create an active user",
		Flags:       flag.NewFlagSet("create-user", flag.ContinueOnError),
		Run:         runCreateUser,
	}

	cmd.Flags.String("email", "", "Email address")
	cmd.Flags.String("name", "", "Display name")
	cmd.Flags.String("password", "", "Password (read from stdin when empty)")

	return cmd
}

func runCreateUser(args []string) error {
	cmd := newCreateUserCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	email := strings.TrimSpace(cmd.Flags.Lookup("email").Value.String())
	name := cmd.Flags.Lookup("name").Value.String()
	if email == "" {
		return fmt.Errorf("email is required")
	}
	password, err := passwordFlag(cmd.Flags)
	if err != nil {
		return err
	}

	ctx := context.Background()
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	hash, err := auth.NewPasswordHasher(e.cfg.Auth.BcryptCost).Hash(password)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	user := &auth.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Status:       auth.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.store.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(output, "Created user %s (%s)\n", user.ID, user.Email)
	return nil
}
