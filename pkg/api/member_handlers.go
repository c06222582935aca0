package api

import (
	"net/http"
	"time"

	"github.com/baynext/baynext/pkg/audit"
	"github.com/baynext/baynext/pkg/contextkeys"
	"github.com/baynext/baynext/pkg/httputil"
	"github.com/baynext/baynext/pkg/middleware"
	"github.com/baynext/baynext/pkg/rbac"
	"github.com/google/uuid"
)

// AddMemberRequest is the body of POST /v1/projects/{project_id}/members
type AddMemberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// addMember handles POST /v1/projects/{project_id}/members
func (s *Server) addMember(w http.ResponseWriter, r *http.Request) {
	project, ok := contextkeys.GetProject(r.Context())
	if !ok {
		middleware.WriteError(w, r, rbac.ErrProjectNotFound)
		return
	}

	var req AddMemberRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.UserID == "" {
		httputil.WriteBadRequest(w, "user_id is required")
		return
	}
	role, err := rbac.ParseRole(req.Role)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	// the owner's role is implied and cannot be granted twice
	if req.UserID == project.OwnerID {
		httputil.WriteConflict(w, "user already owns the project")
		return
	}

	membership := &rbac.Membership{
		ID:        uuid.NewString(),
		ProjectID: project.ID,
		UserID:    req.UserID,
		Role:      role,
		JoinedAt:  time.Now().UTC(),
	}
	// invited_by names a user; a key acting here shows up as the audit subject
	if principal := middleware.GetPrincipal(r); principal != nil && principal.IsUser() {
		membership.InvitedBy = principal.User.ID
	}

	if err := s.store.AddMembership(r.Context(), membership); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	s.auditMember(r, audit.EventTypeMemberAdd, req.UserID, "member added as "+string(role))

	httputil.WriteCreated(w, membership)
}

// removeMember handles DELETE /v1/projects/{project_id}/members/{user_id}
func (s *Server) removeMember(w http.ResponseWriter, r *http.Request) {
	project, ok := contextkeys.GetProject(r.Context())
	if !ok {
		middleware.WriteError(w, r, rbac.ErrProjectNotFound)
		return
	}
	userID, err := httputil.ParsePathString(r, "user_id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	if err := s.store.RemoveMembership(r.Context(), project.ID, userID); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	s.auditMember(r, audit.EventTypeMemberRemove, userID, "member removed")
	httputil.WriteNoContent(w)
}

func (s *Server) auditMember(r *http.Request, eventType audit.EventType, userID, message string) {
	if err := audit.LogSuccess(r.Context(), r, eventType, audit.ResourceTypeUser, userID, message); err != nil {
		s.log.WithError(err).Warn("failed to write audit event")
	}
}
