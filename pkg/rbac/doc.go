// Package rbac provides project-scoped role-based access control for baynext.
//
// # Roles
//
// Access to a project is ordered as a lattice:
//
//	none < viewer < editor < admin == owner
//
// The project owner is derived from Project.OwnerID and is never stored as a
// Membership. Every other user gets a role through a Membership row, unique per
// (project, user). API keys act as viewers on their own project and have no role
// anywhere else.
//
// # Evaluator
//
//	eval := rbac.NewEvaluator(store, policy, logger)
//
//	role, err := eval.GetRole(ctx, principal, project)
//
//	// 404 vs 403 stays distinguishable: ErrProjectNotFound vs ErrInsufficientRole
//	project, err := eval.RequireMinRole(ctx, principal, projectID, rbac.RoleEditor)
//
//	// membership is nil for the owner
//	project, membership, err := eval.RequireMemberOrOwner(ctx, principal, projectID)
//
// # Policy
//
// Finer grained checks go through a casbin policy mapping roles to resource actions
// (model.conf and policy.csv are embedded):
//
//	project, err := eval.Authorize(ctx, principal, projectID, rbac.ResourceKey, rbac.ActionCreate)
//
// API keys additionally pass when their Permissions contain "resource:action",
// "resource:*" or "*".
//
// Denials match ErrForbidden; role denials also match ErrInsufficientRole.
package rbac
