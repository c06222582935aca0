package api

import (
	"net/http"

	"github.com/baynext/baynext/pkg/audit"
	"github.com/baynext/baynext/pkg/auth"
	"github.com/baynext/baynext/pkg/contextkeys"
	"github.com/baynext/baynext/pkg/httputil"
	"github.com/baynext/baynext/pkg/middleware"
	"github.com/baynext/baynext/pkg/observability"
	"github.com/baynext/baynext/pkg/rbac"
)

// createProject handles POST /v1/projects. The caller becomes the owner.
func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r)
	if principal == nil || !principal.IsUser() {
		middleware.WriteError(w, r, auth.ErrUnauthorized)
		return
	}

	var req CreateProjectRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	project, err := auth.NewProject(principal.User.ID, req.Name, req.Description)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if err := s.store.CreateProject(r.Context(), project); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	if err := audit.LogSuccess(r.Context(), r, audit.EventTypeProjectCreate, audit.ResourceTypeProject, project.ID, "project created"); err != nil {
		s.log.WithError(err).Warn("failed to write audit event")
	}

	httputil.WriteCreated(w, ProjectResponse{
		Project:     project,
		Role:        rbac.RoleOwner,
		Permissions: s.permissions(r, principal, rbac.RoleOwner),
	})
}

// listProjects handles GET /v1/projects: projects the caller owns or belongs to
func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r)
	if principal == nil || !principal.IsUser() {
		middleware.WriteError(w, r, auth.ErrUnauthorized)
		return
	}

	projects, err := s.store.ListProjectsForUser(r.Context(), principal.User.ID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	out := make([]ProjectResponse, 0, len(projects))
	for _, p := range projects {
		role, err := s.evaluator.GetRole(r.Context(), principal, p)
		if err != nil {
			middleware.WriteError(w, r, err)
			return
		}
		out = append(out, ProjectResponse{Project: p, Role: role})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// getProject handles GET /v1/projects/{project_id}
func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	project, ok := contextkeys.GetProject(r.Context())
	if !ok {
		middleware.WriteError(w, r, rbac.ErrProjectNotFound)
		return
	}
	role := contextkeys.GetRole(r.Context())
	httputil.WriteJSON(w, http.StatusOK, ProjectResponse{
		Project:     project,
		Role:        role,
		Permissions: s.permissions(r, middleware.GetPrincipal(r), role),
	})
}

// deleteProject handles DELETE /v1/projects/{project_id}. Memberships and
// keys go with it.
func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	project, ok := contextkeys.GetProject(r.Context())
	if !ok {
		middleware.WriteError(w, r, rbac.ErrProjectNotFound)
		return
	}

	if err := s.store.DeleteProject(r.Context(), project.ID); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	if err := audit.LogSuccess(r.Context(), r, audit.EventTypeProjectDelete, audit.ResourceTypeProject, project.ID, "project deleted"); err != nil {
		s.log.WithError(err).Warn("failed to write audit event")
	}
	httputil.WriteNoContent(w)
}

// permissions is best effort: the role alone is enough to answer the request
func (s *Server) permissions(r *http.Request, principal *auth.Principal, role rbac.Role) []string {
	perms, err := s.evaluator.Permissions(principal, role)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Warn("failed to list permissions")
		return nil
	}
	return perms
}

// listMembers handles GET /v1/projects/{project_id}/members
func (s *Server) listMembers(w http.ResponseWriter, r *http.Request) {
	project, ok := contextkeys.GetProject(r.Context())
	if !ok {
		middleware.WriteError(w, r, rbac.ErrProjectNotFound)
		return
	}

	members, err := s.store.ListMemberships(r.Context(), project.ID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	if members == nil {
		members = []*rbac.Membership{}
	}
	httputil.WriteJSON(w, http.StatusOK, members)
}
