// Package contextkeys provides centralized context key definitions
//
// All request-scoped values shared between middleware and handlers are
// defined here with typed accessors.
//
// USAGE PATTERN:
//
//	ctx = contextkeys.WithPrincipal(ctx, principal)
//	principal, ok := contextkeys.GetPrincipal(ctx)
package contextkeys

import (
	"context"

	"github.com/baynext/baynext/pkg/auth"
	"github.com/baynext/baynext/pkg/rbac"
)

// Key is the type for context keys to prevent collisions
type Key string

const (
	// PrincipalKey contains *auth.Principal
	// Set by: middleware.AuthMiddleware (pkg/middleware/auth.go)
	// Required by: All protected API endpoints, RequireProjectRole
	// Type: *auth.Principal
	PrincipalKey Key = "principal"

	// ProjectKey contains *auth.Project
	// Set by: middleware.RequireProjectRole, middleware.RequireProjectMember
	// Used by: Project-scoped handlers
	// Type: *auth.Project
	ProjectKey Key = "project"

	// RoleKey contains the caller's effective rbac.Role on ProjectKey
	// Set by: middleware.RequireProjectMember
	// Used by: Handlers that shape responses by role
	// Type: rbac.Role
	RoleKey Key = "project_role"
)

// WithPrincipal adds the authenticated principal to the context
func WithPrincipal(ctx context.Context, p *auth.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// GetPrincipal retrieves the authenticated principal from the context
func GetPrincipal(ctx context.Context) (*auth.Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(*auth.Principal)
	return p, ok && p != nil
}

// WithProject adds the resolved project to the context
func WithProject(ctx context.Context, project *auth.Project) context.Context {
	return context.WithValue(ctx, ProjectKey, project)
}

// GetProject retrieves the resolved project from the context
func GetProject(ctx context.Context) (*auth.Project, bool) {
	p, ok := ctx.Value(ProjectKey).(*auth.Project)
	return p, ok && p != nil
}

// WithRole adds the caller's effective project role to the context
func WithRole(ctx context.Context, role rbac.Role) context.Context {
	return context.WithValue(ctx, RoleKey, role)
}

// GetRole retrieves the caller's effective project role, RoleNone when unset
func GetRole(ctx context.Context) rbac.Role {
	if role, ok := ctx.Value(RoleKey).(rbac.Role); ok {
		return role
	}
	return rbac.RoleNone
}
