package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/baynext/baynext/pkg/audit"
	"github.com/baynext/baynext/pkg/auth"
	"github.com/baynext/baynext/pkg/contextkeys"
	"github.com/baynext/baynext/pkg/httputil"
	"github.com/baynext/baynext/pkg/middleware"
	"github.com/baynext/baynext/pkg/rbac"
	"github.com/baynext/baynext/pkg/storage"
)

// createKey handles POST /v1/projects/{project_id}/keys
func (s *Server) createKey(w http.ResponseWriter, r *http.Request) {
	project, ok := contextkeys.GetProject(r.Context())
	if !ok {
		middleware.WriteError(w, r, rbac.ErrProjectNotFound)
		return
	}

	var req CreateKeyRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		httputil.WriteBadRequest(w, "name is required")
		return
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(time.Now()) {
		httputil.WriteBadRequest(w, "expires_at must be in the future")
		return
	}

	key, value, err := s.keys.NewKey(auth.NewKeyRequest{
		ProjectID:   project.ID,
		Name:        req.Name,
		Description: req.Description,
		Permissions: req.Permissions,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	if err := s.store.CreateAPIKey(r.Context(), key); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	if s.metrics != nil {
		s.metrics.RecordKeyCreated()
	}
	s.auditKey(r, audit.EventTypeKeyCreate, key.ID, "API key created")

	httputil.WriteCreated(w, CreateKeyResponse{APIKey: key, Key: value})
}

// listKeys handles GET /v1/projects/{project_id}/keys
func (s *Server) listKeys(w http.ResponseWriter, r *http.Request) {
	project, ok := contextkeys.GetProject(r.Context())
	if !ok {
		middleware.WriteError(w, r, rbac.ErrProjectNotFound)
		return
	}

	skip, err := httputil.ParseQueryInt(r, "skip", 0)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid skip")
		return
	}
	limit, err := httputil.ParseQueryInt(r, "limit", storage.DefaultListLimit)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid limit")
		return
	}
	showInactive, err := httputil.ParseQueryBool(r, "showInactive", false)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid showInactive")
		return
	}

	keys, err := s.store.ListAPIKeys(r.Context(), project.ID, storage.ListOptions{
		Skip:         skip,
		Limit:        limit,
		ShowInactive: showInactive,
	}.Normalize())
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	if keys == nil {
		keys = []*auth.APIKey{}
	}
	httputil.WriteJSON(w, http.StatusOK, keys)
}

// getKey handles GET /v1/projects/{project_id}/keys/{key_id}
func (s *Server) getKey(w http.ResponseWriter, r *http.Request) {
	key, ok := s.projectKey(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, key)
}

// deactivateKey handles POST /v1/projects/{project_id}/keys/{key_id}/deactivate
func (s *Server) deactivateKey(w http.ResponseWriter, r *http.Request) {
	key, ok := s.projectKey(w, r)
	if !ok {
		return
	}
	if err := s.store.DeactivateAPIKey(r.Context(), key.ID); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	s.auditKey(r, audit.EventTypeKeyDeactivate, key.ID, "API key deactivated")

	key.IsActive = false
	key.UpdatedAt = time.Now().UTC()
	httputil.WriteJSON(w, http.StatusOK, key)
}

// deleteKey handles DELETE /v1/projects/{project_id}/keys/{key_id}
func (s *Server) deleteKey(w http.ResponseWriter, r *http.Request) {
	key, ok := s.projectKey(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteAPIKey(r.Context(), key.ID); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	s.auditKey(r, audit.EventTypeKeyDelete, key.ID, "API key deleted")
	httputil.WriteNoContent(w)
}

// projectKey loads {key_id} and hides keys that belong to other projects
func (s *Server) projectKey(w http.ResponseWriter, r *http.Request) (*auth.APIKey, bool) {
	project, ok := contextkeys.GetProject(r.Context())
	if !ok {
		middleware.WriteError(w, r, rbac.ErrProjectNotFound)
		return nil, false
	}
	keyID, err := httputil.ParsePathString(r, "key_id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return nil, false
	}

	key, err := s.store.GetAPIKeyByID(r.Context(), keyID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return nil, false
	}
	if key.ProjectID != project.ID {
		middleware.WriteError(w, r, auth.ErrNotFound)
		return nil, false
	}
	return key, true
}

func (s *Server) auditKey(r *http.Request, eventType audit.EventType, keyID, message string) {
	if err := audit.LogSuccess(r.Context(), r, eventType, audit.ResourceTypeAPIKey, keyID, message); err != nil {
		s.log.WithError(err).Warn("failed to write audit event")
	}
}
