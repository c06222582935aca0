// Package middleware provides the HTTP authentication and authorization layer.
//
// # Middleware Components
//
// AuthMiddleware: runs every request through the auth gateway
//
//	authn := middleware.NewAuthMiddleware(gateway, logger)
//	router.Use(authn.Handler)
//	// Bearer token, then X-Baynext-Api-Key, then ?key=; the first one
//	// present decides the outcome
//
// Project guards: resolve {project_id} and check the caller's role
//
//	keys.Use(middleware.RequireProjectRole(evaluator, rbac.RoleAdmin))
//	project.Use(middleware.RequireProjectMember(evaluator))
//	pipelines.Use(middleware.RequirePermission(evaluator, rbac.ResourcePipeline, rbac.ActionRun))
//
// LoginThrottle: counts failed logins per email and client address in Redis,
// falling back to an in-memory count when Redis is unavailable.
//
// # Error Mapping
//
// StatusFor and WriteError translate typed errors from pkg/auth, pkg/rbac
// and pkg/storage into responses:
//
//	401  missing credentials, invalid token, inactive user, invalid key, bad login
//	403  key for another project, insufficient role, permission denied
//	404  project or record not found
//	409  uniqueness conflict
//	500  anything else, logged and never echoed
//
// # Related Packages
//
//   - pkg/auth: Credential resolution
//   - pkg/rbac: Role evaluation
//   - pkg/contextkeys: Request-scoped principal, project and role
package middleware
