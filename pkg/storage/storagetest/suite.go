// Package storagetest holds behavioural tests shared by every storage.Store
// implementation.
package storagetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/baynext/baynext/pkg/auth"
	"github.com/baynext/baynext/pkg/rbac"
	"github.com/baynext/baynext/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty store for one subtest
type Factory func(t *testing.T) storage.Store

// Run exercises the full Store contract against stores built by newStore
func Run(t *testing.T, newStore Factory) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("projects and memberships", func(t *testing.T) { testProjects(t, newStore(t)) })
	t.Run("api keys", func(t *testing.T) { testAPIKeys(t, newStore(t)) })
	t.Run("list api keys", func(t *testing.T) { testListAPIKeys(t, newStore(t)) })
	t.Run("expiry sweep", func(t *testing.T) { testExpirySweep(t, newStore(t)) })
	t.Run("delete project cascades", func(t *testing.T) { testDeleteProject(t, newStore(t)) })
	t.Run("list projects for user", func(t *testing.T) { testListProjectsForUser(t, newStore(t)) })
}

// SeedUser creates an active user with the given id
func SeedUser(t *testing.T, s storage.Store, id string) *auth.User {
	t.Helper()
	u := &auth.User{
		ID:           id,
		Email:        id + "@example.com",
		Name:         "User " + id,
		PasswordHash: "$2a$04$placeholderplaceholderplaceholderplaceholderplacehold",
		Status:       auth.UserStatusActive,
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

// SeedProject creates a project owned by ownerID
func SeedProject(t *testing.T, s storage.Store, id, ownerID string) *auth.Project {
	t.Helper()
	p := &auth.Project{ID: id, OwnerID: ownerID, Name: "Project " + id}
	require.NoError(t, s.CreateProject(context.Background(), p))
	return p
}

// SeedKey creates an active key on projectID and returns it with its secret value
func SeedKey(t *testing.T, s storage.Store, projectID, name string) (*auth.APIKey, string) {
	t.Helper()
	key, value, err := auth.NewKeyGenerator().NewKey(auth.NewKeyRequest{ProjectID: projectID, Name: name})
	require.NoError(t, err)
	require.NoError(t, s.CreateAPIKey(context.Background(), key))
	return key, value
}

func testUsers(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u := SeedUser(t, s, "u1")

	got, err := s.GetUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)
	assert.Equal(t, u.PasswordHash, got.PasswordHash)
	assert.Equal(t, auth.UserStatusActive, got.Status)
	assert.Nil(t, got.LastLoginAt)

	got, err = s.GetUserByEmail(ctx, "U1@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)

	_, err = s.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, auth.ErrNotFound)
	_, err = s.GetUserByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, auth.ErrNotFound)

	dup := &auth.User{ID: "u2", Email: "u1@example.com", Status: auth.UserStatusActive}
	assert.ErrorIs(t, s.CreateUser(ctx, dup), storage.ErrConflict)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.TouchUserLogin(ctx, "u1", at))
	got, err = s.GetUserByID(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)
	assert.True(t, at.Equal(*got.LastLoginAt))

	assert.ErrorIs(t, s.TouchUserLogin(ctx, "missing", at), auth.ErrNotFound)
}

func testProjects(t *testing.T, s storage.Store) {
	ctx := context.Background()
	SeedUser(t, s, "owner")
	SeedUser(t, s, "u2")
	SeedUser(t, s, "u3")
	p := SeedProject(t, s, "p1", "owner")

	got, err := s.GetProjectByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "owner", got.OwnerID)
	assert.Equal(t, p.Name, got.Name)

	_, err = s.GetProjectByID(ctx, "missing")
	assert.ErrorIs(t, err, auth.ErrNotFound)

	require.NoError(t, s.AddMembership(ctx, &rbac.Membership{ProjectID: "p1", UserID: "u2", Role: rbac.RoleViewer, InvitedBy: "owner"}))
	require.NoError(t, s.AddMembership(ctx, &rbac.Membership{ProjectID: "p1", UserID: "u3", Role: rbac.RoleAdmin, InvitedBy: "owner"}))

	err = s.AddMembership(ctx, &rbac.Membership{ProjectID: "p1", UserID: "u2", Role: rbac.RoleEditor})
	assert.ErrorIs(t, err, storage.ErrConflict, "one membership per (project, user)")

	m, err := s.GetMembership(ctx, "p1", "u2")
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleViewer, m.Role)
	assert.Equal(t, "owner", m.InvitedBy)
	assert.NotEmpty(t, m.ID)
	assert.False(t, m.JoinedAt.IsZero())

	_, err = s.GetMembership(ctx, "p1", "owner")
	assert.ErrorIs(t, err, auth.ErrNotFound, "owners have no membership row")

	members, err := s.ListMemberships(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, members, 2)

	require.NoError(t, s.RemoveMembership(ctx, "p1", "u2"))
	_, err = s.GetMembership(ctx, "p1", "u2")
	assert.ErrorIs(t, err, auth.ErrNotFound)
	assert.ErrorIs(t, s.RemoveMembership(ctx, "p1", "u2"), auth.ErrNotFound)
}

func testAPIKeys(t *testing.T, s storage.Store) {
	ctx := context.Background()
	SeedUser(t, s, "owner")
	SeedProject(t, s, "p1", "owner")

	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	key, value, err := auth.NewKeyGenerator().NewKey(auth.NewKeyRequest{
		ProjectID:   "p1",
		Name:        "ci",
		Description: "pipeline runner",
		Permissions: []string{"dataset:read", "pipeline:*"},
		ExpiresAt:   &exp,
	})
	require.NoError(t, err)
	require.NoError(t, s.CreateAPIKey(ctx, key))

	got, err := s.GetAPIKeyByValue(ctx, value)
	require.NoError(t, err)
	assert.Equal(t, key.ID, got.ID)
	assert.Equal(t, "p1", got.ProjectID)
	assert.Equal(t, []string{"dataset:read", "pipeline:*"}, got.Permissions)
	assert.True(t, got.IsActive)
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, exp.Equal(*got.ExpiresAt))
	assert.Equal(t, key.Prefix, got.Prefix)

	_, err = s.GetAPIKeyByValue(ctx, value+"x")
	assert.ErrorIs(t, err, auth.ErrNotFound)
	_, err = s.GetAPIKeyByValue(ctx, key.Hash)
	assert.ErrorIs(t, err, auth.ErrNotFound, "the stored hash is not a usable value")

	at := time.Date(2026, 5, 5, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.TouchAPIKey(ctx, key.ID, at))
	got, err = s.GetAPIKeyByID(ctx, key.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastUsedAt)
	assert.True(t, at.Equal(*got.LastUsedAt))

	require.NoError(t, s.DeactivateAPIKey(ctx, key.ID))
	require.NoError(t, s.DeactivateAPIKey(ctx, key.ID))
	got, err = s.GetAPIKeyByValue(ctx, value)
	require.NoError(t, err, "inactive keys are still found; the authenticator rejects them")
	assert.False(t, got.IsActive)

	require.NoError(t, s.DeleteAPIKey(ctx, key.ID))
	_, err = s.GetAPIKeyByID(ctx, key.ID)
	assert.ErrorIs(t, err, auth.ErrNotFound)
	assert.ErrorIs(t, s.DeleteAPIKey(ctx, key.ID), auth.ErrNotFound)
	assert.ErrorIs(t, s.DeactivateAPIKey(ctx, key.ID), auth.ErrNotFound)
	assert.ErrorIs(t, s.TouchAPIKey(ctx, key.ID, at), auth.ErrNotFound)
}

func testListAPIKeys(t *testing.T, s storage.Store) {
	ctx := context.Background()
	SeedUser(t, s, "owner")
	SeedProject(t, s, "p1", "owner")
	SeedProject(t, s, "p2", "owner")

	var ids []string
	for i := 0; i < 5; i++ {
		k, _ := SeedKey(t, s, "p1", fmt.Sprintf("key-%d", i))
		ids = append(ids, k.ID)
	}
	SeedKey(t, s, "p2", "elsewhere")
	require.NoError(t, s.DeactivateAPIKey(ctx, ids[0]))

	active, err := s.ListAPIKeys(ctx, "p1", storage.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, active, 4)
	for _, k := range active {
		assert.True(t, k.IsActive)
		assert.Equal(t, "p1", k.ProjectID)
	}

	all, err := s.ListAPIKeys(ctx, "p1", storage.ListOptions{ShowInactive: true})
	require.NoError(t, err)
	assert.Len(t, all, 5)

	page, err := s.ListAPIKeys(ctx, "p1", storage.ListOptions{Skip: 1, Limit: 2, ShowInactive: true})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, all[1].ID, page[0].ID)
	assert.Equal(t, all[2].ID, page[1].ID)

	empty, err := s.ListAPIKeys(ctx, "p1", storage.ListOptions{Skip: 50})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testExpirySweep(t *testing.T, s storage.Store) {
	ctx := context.Background()
	SeedUser(t, s, "owner")
	SeedProject(t, s, "p1", "owner")

	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	gen := auth.NewKeyGenerator()
	expired, _, err := gen.NewKey(auth.NewKeyRequest{ProjectID: "p1", Name: "old", ExpiresAt: &past})
	require.NoError(t, err)
	require.NoError(t, s.CreateAPIKey(ctx, expired))
	boundary, _, err := gen.NewKey(auth.NewKeyRequest{ProjectID: "p1", Name: "boundary", ExpiresAt: &now})
	require.NoError(t, err)
	require.NoError(t, s.CreateAPIKey(ctx, boundary))
	fresh, _, err := gen.NewKey(auth.NewKeyRequest{ProjectID: "p1", Name: "fresh", ExpiresAt: &future})
	require.NoError(t, err)
	require.NoError(t, s.CreateAPIKey(ctx, fresh))
	forever, _ := SeedKey(t, s, "p1", "forever")

	n, err := s.DeactivateExpiredAPIKeys(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	for id, wantActive := range map[string]bool{expired.ID: false, boundary.ID: false, fresh.ID: true, forever.ID: true} {
		k, err := s.GetAPIKeyByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, wantActive, k.IsActive, k.Name)
	}

	n, err = s.DeactivateExpiredAPIKeys(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func testDeleteProject(t *testing.T, s storage.Store) {
	ctx := context.Background()
	SeedUser(t, s, "owner")
	SeedUser(t, s, "u2")
	SeedProject(t, s, "p1", "owner")
	require.NoError(t, s.AddMembership(ctx, &rbac.Membership{ProjectID: "p1", UserID: "u2", Role: rbac.RoleEditor}))
	key, value := SeedKey(t, s, "p1", "ci")

	require.NoError(t, s.DeleteProject(ctx, "p1"))

	_, err := s.GetProjectByID(ctx, "p1")
	assert.ErrorIs(t, err, auth.ErrNotFound)
	_, err = s.GetMembership(ctx, "p1", "u2")
	assert.ErrorIs(t, err, auth.ErrNotFound)
	_, err = s.GetAPIKeyByID(ctx, key.ID)
	assert.ErrorIs(t, err, auth.ErrNotFound)
	_, err = s.GetAPIKeyByValue(ctx, value)
	assert.ErrorIs(t, err, auth.ErrNotFound)

	assert.ErrorIs(t, s.DeleteProject(ctx, "p1"), auth.ErrNotFound)
}

func testListProjectsForUser(t *testing.T, s storage.Store) {
	ctx := context.Background()
	SeedUser(t, s, "alice")
	SeedUser(t, s, "bob")
	SeedUser(t, s, "carol")

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, p := range []*auth.Project{
		{ID: "owned-old", OwnerID: "alice", Name: "Owned old"},
		{ID: "shared", OwnerID: "bob", Name: "Shared"},
		{ID: "owned-new", OwnerID: "alice", Name: "Owned new"},
		{ID: "foreign", OwnerID: "bob", Name: "Foreign"},
	} {
		p.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, s.CreateProject(ctx, p))
	}
	require.NoError(t, s.AddMembership(ctx, &rbac.Membership{ProjectID: "shared", UserID: "alice", Role: rbac.RoleEditor}))
	require.NoError(t, s.AddMembership(ctx, &rbac.Membership{ProjectID: "owned-new", UserID: "carol", Role: rbac.RoleViewer}))

	ids := func(userID string) []string {
		projects, err := s.ListProjectsForUser(ctx, userID)
		require.NoError(t, err)
		out := make([]string, 0, len(projects))
		for _, p := range projects {
			out = append(out, p.ID)
		}
		return out
	}

	assert.Equal(t, []string{"owned-new", "shared", "owned-old"}, ids("alice"), "owned and member projects, newest first")
	assert.Equal(t, []string{"foreign", "shared"}, ids("bob"))
	assert.Equal(t, []string{"owned-new"}, ids("carol"))
	assert.Empty(t, ids("nobody"))

	require.NoError(t, s.DeleteProject(ctx, "shared"))
	assert.Equal(t, []string{"owned-new", "owned-old"}, ids("alice"))
}
