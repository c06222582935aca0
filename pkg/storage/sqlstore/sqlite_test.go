package sqlstore

import (
	"context"
	"testing"

	"github.com/baynext/baynext/pkg/auth"
	"github.com/baynext/baynext/pkg/storage"
	"github.com/baynext/baynext/pkg/storage/storagetest"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *Store {
	t.Helper()
	logger, _ := logrustest.NewNullLogger()

	cfg := storage.DefaultConfig()
	cfg.Type = "sqlite3"
	cfg.DatabaseURL = ":memory:"

	cm, err := Open(cfg, logger)
	require.NoError(t, err)

	_, err = Migrate(context.Background(), cm.Primary(), cm.Dialect())
	require.NoError(t, err)

	s := NewWithManager(cm)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		return newSQLiteStore(t)
	})
}

func TestSQLiteStore_ForeignKeys(t *testing.T) {
	s := newSQLiteStore(t)

	err := s.CreateProject(context.Background(), &auth.Project{ID: "p1", OwnerID: "ghost", Name: "x"})
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newSQLiteStore(t)

	applied, err := Migrate(context.Background(), s.db, DialectSQLite)
	require.NoError(t, err)
	assert.Equal(t, 0, applied)

	var version int
	require.NoError(t, s.db.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&version))
	assert.Equal(t, 1, version)
}

func TestMigrations_RenderPerDialect(t *testing.T) {
	pg, err := Migrations(DialectPostgres)
	require.NoError(t, err)
	require.NotEmpty(t, pg)
	assert.Contains(t, pg[0].SQL, "TIMESTAMPTZ")
	assert.Contains(t, pg[0].SQL, "JSONB")
	assert.NotContains(t, pg[0].SQL, "{{")

	lite, err := Migrations(DialectSQLite)
	require.NoError(t, err)
	assert.NotContains(t, lite[0].SQL, "TIMESTAMPTZ")
	assert.NotContains(t, lite[0].SQL, "{{")
	assert.Equal(t, 1, lite[0].Version)
}

func TestNewFromConfig(t *testing.T) {
	logger, _ := logrustest.NewNullLogger()
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		cfg := storage.DefaultConfig()
		s, err := NewFromConfig(ctx, cfg, logger)
		require.NoError(t, err)
		assert.IsType(t, &storage.MemoryStore{}, s)
	})

	t.Run("sqlite migrates", func(t *testing.T) {
		cfg := storage.DefaultConfig()
		cfg.Type = "sqlite3"
		cfg.DatabaseURL = ":memory:"

		s, err := NewFromConfig(ctx, cfg, logger)
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })

		storagetest.SeedUser(t, s, "u1")
		_, err = s.GetUserByEmail(ctx, "u1@example.com")
		assert.NoError(t, err)
	})

	t.Run("unknown type", func(t *testing.T) {
		cfg := storage.DefaultConfig()
		cfg.Type = "oracle"
		_, err := NewFromConfig(ctx, cfg, logger)
		assert.Error(t, err)
	})
}
