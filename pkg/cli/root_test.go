package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/baynext/baynext/pkg/config"
	"github.com/baynext/baynext/pkg/storage"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// captureOutput redirects command output for the test
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := output
	output = &buf
	t.Cleanup(func() { output = old })
	return &buf
}

// useStore points commands at store with a fixed configuration
func useStore(t *testing.T, store storage.Store) *config.Config {
	t.Helper()
	logger, _ := logrustest.NewNullLogger()

	cfg := config.Default()
	cfg.Auth.Secret = "cli-test-secret"
	cfg.Auth.BcryptCost = bcrypt.MinCost

	old := openEnv
	openEnv = func(ctx context.Context) (*env, error) {
		return &env{cfg: cfg, store: nopCloser{store}, logger: logger}, nil
	}
	t.Cleanup(func() { openEnv = old })
	return cfg
}

// nopCloser keeps the shared test store open across commands
type nopCloser struct {
	storage.Store
}

func (nopCloser) Close() error { return nil }

func TestNewRootCommand(t *testing.T) {
	root := NewRootCommand()

	assert.Equal(t, "baynext", root.Name)
	assert.NotNil(t, root.Flags)

	expectedCommands := []string{
		"migrate",
		"hash-password",
		"create-user",
		"token",
		"create-project",
		"list-projects",
		"create-key",
		"sweep-keys",
	}
	for _, cmdName := range expectedCommands {
		assert.Contains(t, root.Subcommands, cmdName, "Expected subcommand %s to be registered", cmdName)
	}
	assert.Equal(t, len(expectedCommands), len(root.Subcommands))
}

func TestCommandUsage(t *testing.T) {
	out := captureOutput(t)

	require.NoError(t, NewRootCommand().ExecuteArgs(nil))

	text := out.String()
	assert.Contains(t, text, "Usage: baynext <command> [args]")
	assert.Contains(t, text, "Commands:")
	// sorted, so create-key comes before token
	assert.Less(t, strings.Index(text, "create-key"), strings.Index(text, "token"))
}

func TestCommandExecute(t *testing.T) {
	root := NewRootCommand()

	t.Run("help", func(t *testing.T) {
		out := captureOutput(t)
		require.NoError(t, root.ExecuteArgs([]string{"--help"}))
		assert.Contains(t, out.String(), "Usage:")
	})

	t.Run("unknown command", func(t *testing.T) {
		err := root.ExecuteArgs([]string{"nope"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown command: nope")
	})

	t.Run("bad flag", func(t *testing.T) {
		captureOutput(t)
		assert.Error(t, root.ExecuteArgs([]string{"token", "-bogus"}))
	})
}
