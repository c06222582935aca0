package storage_test

import (
	"context"
	"sync"
	"testing"

	"github.com/baynext/baynext/pkg/auth"
	"github.com/baynext/baynext/pkg/storage"
	"github.com/baynext/baynext/pkg/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		return storage.NewMemoryStore()
	})
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := storage.NewMemoryStore()
	storagetest.SeedUser(t, s, "owner")
	storagetest.SeedProject(t, s, "p1", "owner")
	key, _ := storagetest.SeedKey(t, s, "p1", "ci")

	got, err := s.GetAPIKeyByID(context.Background(), key.ID)
	require.NoError(t, err)
	got.IsActive = false
	got.Permissions = append(got.Permissions, "*")

	again, err := s.GetAPIKeyByID(context.Background(), key.ID)
	require.NoError(t, err)
	assert.True(t, again.IsActive)
	assert.Empty(t, again.Permissions)
}

func TestMemoryStore_RequiresParents(t *testing.T) {
	s := storage.NewMemoryStore()
	ctx := context.Background()

	err := s.CreateProject(ctx, &auth.Project{ID: "p1", OwnerID: "ghost", Name: "x"})
	assert.ErrorIs(t, err, auth.ErrNotFound)

	key, _, err := auth.NewKeyGenerator().NewKey(auth.NewKeyRequest{ProjectID: "p1", Name: "ci"})
	require.NoError(t, err)
	assert.ErrorIs(t, s.CreateAPIKey(ctx, key), auth.ErrNotFound)
}

func TestMemoryStore_ConcurrentTouches(t *testing.T) {
	s := storage.NewMemoryStore()
	storagetest.SeedUser(t, s, "owner")
	storagetest.SeedProject(t, s, "p1", "owner")
	key, value := storagetest.SeedKey(t, s, "p1", "ci")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.GetAPIKeyByValue(context.Background(), value)
			_ = s.TouchAPIKey(context.Background(), key.ID, key.CreatedAt)
		}()
	}
	wg.Wait()

	got, err := s.GetAPIKeyByID(context.Background(), key.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.LastUsedAt)
}
