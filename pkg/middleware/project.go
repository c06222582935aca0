package middleware

import (
	"net/http"

	"github.com/baynext/baynext/pkg/audit"
	"github.com/baynext/baynext/pkg/auth"
	"github.com/baynext/baynext/pkg/contextkeys"
	"github.com/baynext/baynext/pkg/rbac"
	"github.com/gorilla/mux"
)

// RequireProjectRole admits callers holding at least min on the route's
// project and stores the project in the context.
func RequireProjectRole(evaluator *rbac.Evaluator, min rbac.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, projectID, ok := projectRequest(w, r)
			if !ok {
				return
			}

			project, err := evaluator.RequireMinRole(r.Context(), principal, projectID, min)
			if err != nil {
				deny(w, r, projectID, err)
				return
			}

			ctx := contextkeys.WithProject(r.Context(), project)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireProjectMember admits the project owner and any member. The project
// and the caller's effective role are stored in the context.
func RequireProjectMember(evaluator *rbac.Evaluator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, projectID, ok := projectRequest(w, r)
			if !ok {
				return
			}

			project, membership, err := evaluator.RequireMemberOrOwner(r.Context(), principal, projectID)
			if err != nil {
				deny(w, r, projectID, err)
				return
			}

			ctx := contextkeys.WithProject(r.Context(), project)
			ctx = contextkeys.WithRole(ctx, effectiveRole(principal, membership))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission admits callers whose role grants action on resource
// within the route's project.
func RequirePermission(evaluator *rbac.Evaluator, resource rbac.Resource, action rbac.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, projectID, ok := projectRequest(w, r)
			if !ok {
				return
			}

			project, err := evaluator.Authorize(r.Context(), principal, projectID, resource, action)
			if err != nil {
				deny(w, r, projectID, err)
				return
			}

			ctx := contextkeys.WithProject(r.Context(), project)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func projectRequest(w http.ResponseWriter, r *http.Request) (*auth.Principal, string, bool) {
	principal := GetPrincipal(r)
	if principal == nil {
		WriteError(w, r, auth.ErrMissingCredentials)
		return nil, "", false
	}
	return principal, mux.Vars(r)[ProjectIDVar], true
}

func deny(w http.ResponseWriter, r *http.Request, projectID string, err error) {
	if status, _ := StatusFor(err); status == http.StatusForbidden {
		// best effort
		_ = audit.LogDenied(r.Context(), r, audit.ResourceTypeProject, projectID, err)
	}
	WriteError(w, r, err)
}

// effectiveRole is owner for the owning user, viewer for a project key and
// the membership role otherwise.
func effectiveRole(principal *auth.Principal, membership *rbac.Membership) rbac.Role {
	switch {
	case membership != nil:
		return membership.Role
	case principal.IsUser():
		return rbac.RoleOwner
	}
	return rbac.RoleViewer
}
