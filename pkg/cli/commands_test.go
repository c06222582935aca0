package cli

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/baynext/baynext/pkg/auth"
	"github.com/baynext/baynext/pkg/storage"
	"github.com/baynext/baynext/pkg/storage/storagetest"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	t.Run("flag", func(t *testing.T) {
		out := captureOutput(t)
		require.NoError(t, runHashPassword([]string{"-password", "s3cret", "-cost", "4"}))

		hash := strings.TrimSpace(out.String())
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
	})

	t.Run("stdin", func(t *testing.T) {
		out := captureOutput(t)
		old := input
		input = strings.NewReader("from-stdin\n")
		t.Cleanup(func() { input = old })

		require.NoError(t, runHashPassword([]string{"-cost", "4"}))
		hash := strings.TrimSpace(out.String())
		assert.True(t, auth.NewPasswordHasher(4).Verify("from-stdin", hash))
	})

	t.Run("empty", func(t *testing.T) {
		old := input
		input = strings.NewReader("")
		t.Cleanup(func() { input = old })

		assert.Error(t, runHashPassword(nil))
	})
}

func TestCreateUser(t *testing.T) {
	store := storage.NewMemoryStore()
	useStore(t, store)
	out := captureOutput(t)

	require.NoError(t, runCreateUser([]string{"-email", "ada@example.com", "-name", "Ada", "-password", "s3cret"}))
	assert.Contains(t, out.String(), "ada@example.com")

	user, err := store.GetUserByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.Name)
	assert.Equal(t, auth.UserStatusActive, user.Status)
	assert.True(t, auth.NewPasswordHasher(bcrypt.MinCost).Verify("s3cret", user.PasswordHash))

	err = runCreateUser([]string{"-email", "ada@example.com", "-password", "again"})
	assert.ErrorIs(t, err, storage.ErrConflict)

	assert.Error(t, runCreateUser([]string{"-password", "x"}))
}

func TestToken(t *testing.T) {
	logger, _ := logrustest.NewNullLogger()
	store := storage.NewMemoryStore()
	storagetest.SeedUser(t, store, "u1")
	cfg := useStore(t, store)

	authn, err := auth.NewAuthenticator(cfg.AuthenticatorConfig(), store, logger)
	require.NoError(t, err)
	codec, err := auth.NewTokenCodec([]byte(cfg.Auth.Secret))
	require.NoError(t, err)

	t.Run("by id", func(t *testing.T) {
		out := captureOutput(t)
		require.NoError(t, runToken([]string{"-user", "u1"}))

		user, err := authn.ResolveFromToken(context.Background(), strings.TrimSpace(out.String()))
		require.NoError(t, err)
		assert.Equal(t, "u1", user.ID)
	})

	t.Run("by email without expiry", func(t *testing.T) {
		out := captureOutput(t)
		require.NoError(t, runToken([]string{"-user", "u1@example.com", "-no-expiry"}))

		claims, err := codec.Decode(strings.TrimSpace(out.String()))
		require.NoError(t, err)
		assert.Equal(t, "u1", claims.Subject)
		assert.Nil(t, claims.ExpiresAt)
	})

	t.Run("unknown user", func(t *testing.T) {
		err := runToken([]string{"-user", "ghost"})
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestCreateKey(t *testing.T) {
	store := storage.NewMemoryStore()
	storagetest.SeedUser(t, store, "owner")
	storagetest.SeedProject(t, store, "p1", "owner")
	useStore(t, store)
	out := captureOutput(t)

	require.NoError(t, runCreateKey([]string{"-project", "p1", "-name", "ci", "-permissions", "pipeline:run, dataset:read", "-expires-in", "1h"}))

	var value string
	for _, line := range strings.Split(out.String(), "\n") {
		if strings.HasPrefix(line, "Key: ") {
			value = strings.TrimPrefix(line, "Key: ")
		}
	}
	require.NotEmpty(t, value)

	key, err := store.GetAPIKeyByValue(context.Background(), value)
	require.NoError(t, err)
	assert.Equal(t, "p1", key.ProjectID)
	assert.Equal(t, []string{"pipeline:run", "dataset:read"}, key.Permissions)
	require.NotNil(t, key.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *key.ExpiresAt, time.Minute)

	assert.ErrorIs(t, runCreateKey([]string{"-project", "nope", "-name", "ci"}), auth.ErrNotFound)
	assert.Error(t, runCreateKey([]string{"-project", "p1"}))
}

func TestCreateProject(t *testing.T) {
	store := storage.NewMemoryStore()
	storagetest.SeedUser(t, store, "owner")
	useStore(t, store)
	out := captureOutput(t)

	require.NoError(t, runCreateProject([]string{"-owner", "owner@example.com", "-name", " Forecasts ", "-description", "media mix"}))
	assert.Contains(t, out.String(), "Created project proj_")

	projects, err := store.ListProjectsForUser(context.Background(), "owner")
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "Forecasts", projects[0].Name)
	assert.Equal(t, "media mix", projects[0].Description)

	// the new project can carry keys right away
	require.NoError(t, runCreateKey([]string{"-project", projects[0].ID, "-name", "ci"}))

	assert.ErrorIs(t, runCreateProject([]string{"-owner", "ghost@example.com", "-name", "x"}), auth.ErrNotFound)
	assert.ErrorContains(t, runCreateProject([]string{"-owner", "owner@example.com"}), "name is required")
	assert.Error(t, runCreateProject([]string{"-name", "x"}))
}

func TestListProjects(t *testing.T) {
	store := storage.NewMemoryStore()
	storagetest.SeedUser(t, store, "owner")
	storagetest.SeedUser(t, store, "guest")
	storagetest.SeedProject(t, store, "p1", "owner")
	storagetest.SeedProject(t, store, "p2", "guest")
	useStore(t, store)
	out := captureOutput(t)

	require.NoError(t, runListProjects([]string{"-user", "guest@example.com"}))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "p2")
	assert.Contains(t, lines[1], "owner")
	assert.NotContains(t, out.String(), "p1")

	assert.Error(t, runListProjects(nil))
	assert.ErrorIs(t, runListProjects([]string{"-user", "ghost@example.com"}), auth.ErrNotFound)
}

func TestSweepKeys(t *testing.T) {
	store := storage.NewMemoryStore()
	storagetest.SeedUser(t, store, "owner")
	storagetest.SeedProject(t, store, "p1", "owner")

	past := time.Now().Add(-time.Hour)
	key, _, err := auth.NewKeyGenerator().NewKey(auth.NewKeyRequest{ProjectID: "p1", Name: "old", ExpiresAt: &past})
	require.NoError(t, err)
	require.NoError(t, store.CreateAPIKey(context.Background(), key))

	useStore(t, store)
	captureOutput(t)

	require.NoError(t, runSweepKeys(nil))

	got, err := store.GetAPIKeyByID(context.Background(), key.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestMigrate(t *testing.T) {
	t.Setenv("BAYNEXT_AUTH_SECRET", "cli-test-secret")
	t.Setenv("BAYNEXT_STORAGE_TYPE", "sqlite3")
	t.Setenv("BAYNEXT_DATABASE_URL", filepath.Join(t.TempDir(), "baynext.db"))
	t.Setenv("BAYNEXT_LOG_LEVEL", "error")

	out := captureOutput(t)
	require.NoError(t, runMigrate(nil))
	assert.NotContains(t, out.String(), "Applied 0")

	out.Reset()
	require.NoError(t, runMigrate(nil))
	assert.Contains(t, out.String(), "Applied 0 migration(s)")
}

func TestMigrateMemory(t *testing.T) {
	t.Setenv("BAYNEXT_AUTH_SECRET", "cli-test-secret")
	t.Setenv("BAYNEXT_STORAGE_TYPE", "memory")
	assert.Error(t, runMigrate(nil))
}
