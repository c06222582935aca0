package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/baynext/baynext/pkg/auth"
)

func newTokenCommand() *Command {
	cmd := &Command{
		Name:        "token",
		Description: "Issue an access token for a user",
		Flags:       flag.NewFlagSet("token", flag.ContinueOnError),
		Run:         runToken,
	}

	cmd.Flags.String("user", "", "User ID or email")
	cmd.Flags.Bool("no-expiry", false, "Issue a service token without an expiry")

	return cmd
}

func runToken(args []string) error {
	cmd := newTokenCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	ref := strings.TrimSpace(cmd.Flags.Lookup("user").Value.String())
	noExpiry := cmd.Flags.Lookup("no-expiry").Value.String() == "true"
	if ref == "" {
		return fmt.Errorf("user is required")
	}

	ctx := context.Background()
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	var user *auth.User
	if strings.Contains(ref, "@") {
		user, err = e.store.GetUserByEmail(ctx, ref)
	} else {
		user, err = e.store.GetUserByID(ctx, ref)
	}
	if err != nil {
		return fmt.Errorf("failed to find user %s: %w", ref, err)
	}
	if !user.IsActive() {
		return fmt.Errorf("user %s is %s", ref, user.Status)
	}

	authn, err := auth.NewAuthenticator(e.cfg.AuthenticatorConfig(), e.store, e.logger)
	if err != nil {
		return err
	}

	var token string
	if noExpiry {
		token, err = authn.IssueServiceToken(user)
	} else {
		token, err = authn.IssueToken(user)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(output, token)
	return nil
}
