package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/baynext/baynext/pkg/audit"
	"github.com/baynext/baynext/pkg/auth"
	"github.com/baynext/baynext/pkg/middleware"
	"github.com/baynext/baynext/pkg/rbac"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProject(t *testing.T) {
	env := setupTestServer(t)

	rec := env.asUser(t, http.MethodPost, "/v1/projects", "viewer", `{"name":"  Media mix  ","description":"weekly spend"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp ProjectResponse
	decode(t, rec, &resp)
	assert.True(t, strings.HasPrefix(resp.ID, "proj_"), resp.ID)
	assert.Equal(t, "viewer", resp.OwnerID)
	assert.Equal(t, "Media mix", resp.Name)
	assert.Equal(t, "weekly spend", resp.Description)
	assert.Equal(t, rbac.RoleOwner, resp.Role)
	assert.Contains(t, resp.Permissions, "project:*")
	assert.Contains(t, env.audit.types(), audit.EventTypeProjectCreate)

	// the creator owns it without a membership row
	_, err := env.store.GetMembership(context.Background(), resp.ID, "viewer")
	assert.ErrorIs(t, err, auth.ErrNotFound)

	rec = env.asUser(t, http.MethodGet, "/v1/projects/"+resp.ID, "viewer", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.asUser(t, http.MethodGet, "/v1/projects/"+resp.ID+"/keys", "viewer", "")
	assert.Equal(t, http.StatusOK, rec.Code, "owners manage keys")
}

func TestCreateProjectRejects(t *testing.T) {
	env := setupTestServer(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"blank name", `{"name":"   "}`, http.StatusBadRequest},
		{"name too long", `{"name":"` + strings.Repeat("x", 256) + `"}`, http.StatusBadRequest},
		{"description too long", `{"name":"ok","description":"` + strings.Repeat("x", 1001) + `"}`, http.StatusBadRequest},
		{"not json", `name=ok`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.asUser(t, http.MethodPost, "/v1/projects", "owner", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	t.Run("api keys cannot create projects", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/projects", strings.NewReader(`{"name":"from a key"}`))
		req.Header.Set(middleware.APIKeyHeader, env.keyValue)
		assert.Equal(t, http.StatusUnauthorized, env.do(req).Code)
	})

	t.Run("anonymous", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/projects", strings.NewReader(`{"name":"x"}`))
		assert.Equal(t, http.StatusUnauthorized, env.do(req).Code)
	})
}

func TestListProjects(t *testing.T) {
	env := setupTestServer(t)

	list := func(userID string) map[string]rbac.Role {
		rec := env.asUser(t, http.MethodGet, "/v1/projects", userID, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var projects []ProjectResponse
		decode(t, rec, &projects)
		out := make(map[string]rbac.Role, len(projects))
		for _, p := range projects {
			out[p.ID] = p.Role
		}
		return out
	}

	assert.Equal(t, map[string]rbac.Role{"p1": rbac.RoleOwner}, list("owner"))
	assert.Equal(t, map[string]rbac.Role{"p1": rbac.RoleViewer}, list("viewer"))
	assert.Equal(t, map[string]rbac.Role{"p2": rbac.RoleOwner}, list("outsider"))

	rec := env.asUser(t, http.MethodPost, "/v1/projects/p2/members", "outsider", `{"user_id":"viewer","role":"editor"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, map[string]rbac.Role{"p1": rbac.RoleViewer, "p2": rbac.RoleEditor}, list("viewer"))

	t.Run("empty list is an array", func(t *testing.T) {
		require.NoError(t, env.store.DeleteProject(context.Background(), "p2"))
		require.NoError(t, env.store.RemoveMembership(context.Background(), "p1", "viewer"))
		rec := env.asUser(t, http.MethodGet, "/v1/projects", "viewer", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("api keys are rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/projects?key="+env.keyValue, nil)
		assert.Equal(t, http.StatusUnauthorized, env.do(req).Code)
	})
}

func TestDeleteProject(t *testing.T) {
	env := setupTestServer(t)

	tests := []struct {
		name   string
		user   string
		path   string
		status int
	}{
		{"viewer cannot delete", "viewer", "/v1/projects/p1", http.StatusForbidden},
		{"non member cannot delete", "outsider", "/v1/projects/p1", http.StatusForbidden},
		{"missing project", "owner", "/v1/projects/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.asUser(t, http.MethodDelete, tt.path, tt.user, "")
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	t.Run("plain key cannot delete", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/v1/projects/p1", nil)
		req.Header.Set(middleware.APIKeyHeader, env.keyValue)
		assert.Equal(t, http.StatusForbidden, env.do(req).Code)
	})

	t.Run("admin member deletes with cascade", func(t *testing.T) {
		rec := env.asUser(t, http.MethodPost, "/v1/projects/p1/members", "owner", `{"user_id":"outsider","role":"admin"}`)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = env.asUser(t, http.MethodDelete, "/v1/projects/p1", "outsider", "")
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
		assert.Contains(t, env.audit.types(), audit.EventTypeProjectDelete)

		_, err := env.store.GetProjectByID(context.Background(), "p1")
		assert.ErrorIs(t, err, auth.ErrNotFound)
		_, err = env.store.GetMembership(context.Background(), "p1", "viewer")
		assert.ErrorIs(t, err, auth.ErrNotFound)

		// the project's key died with it
		req := httptest.NewRequest(http.MethodGet, "/v1/projects/p1", nil)
		req.Header.Set(middleware.APIKeyHeader, env.keyValue)
		assert.Equal(t, http.StatusUnauthorized, env.do(req).Code)

		rec = env.asUser(t, http.MethodGet, "/v1/projects/p1", "owner", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestGetProjectWithAPIKeyListsKeyGrants(t *testing.T) {
	env := setupTestServer(t)

	key, value, err := auth.NewKeyGenerator().NewKey(auth.NewKeyRequest{
		ProjectID:   "p1",
		Name:        "runner",
		Permissions: []string{"pipeline:run"},
	})
	require.NoError(t, err)
	require.NoError(t, env.store.CreateAPIKey(context.Background(), key))

	req := httptest.NewRequest(http.MethodGet, "/v1/projects/p1", nil)
	req.Header.Set(middleware.APIKeyHeader, value)
	rec := env.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ProjectResponse
	decode(t, rec, &resp)
	assert.Equal(t, rbac.RoleViewer, resp.Role)
	assert.Equal(t, []string{"dataset:read", "member:read", "pipeline:read", "pipeline:run", "project:read"}, resp.Permissions)
}
