package rbac

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/baynext/baynext/pkg/auth"
	"github.com/sirupsen/logrus"
)

// Store is the read side the Evaluator depends on.
// Missing records are reported with an error wrapping auth.ErrNotFound.
type Store interface {
	GetProjectByID(ctx context.Context, id string) (*auth.Project, error)
	GetMembership(ctx context.Context, projectID, userID string) (*Membership, error)
}

// DecisionRecorder observes authorization outcomes
type DecisionRecorder interface {
	RecordAuthorization(check, outcome string)
}

// Evaluator decides what a principal may do on a project. All checks are reads.
type Evaluator struct {
	store    Store
	policy   *Policy
	recorder DecisionRecorder
	log      logrus.FieldLogger
}

// NewEvaluator creates an evaluator. policy may be nil when Authorize is unused.
func NewEvaluator(store Store, policy *Policy, logger logrus.FieldLogger) *Evaluator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Evaluator{
		store:  store,
		policy: policy,
		log:    logger,
	}
}

// SetRecorder enables decision metrics
func (e *Evaluator) SetRecorder(r DecisionRecorder) {
	e.recorder = r
}

// GetRole resolves principal's role on project. The owner short-circuits before
// any membership lookup. API keys are viewers on their own project.
func (e *Evaluator) GetRole(ctx context.Context, principal *auth.Principal, project *auth.Project) (Role, error) {
	if principal == nil || project == nil {
		return RoleNone, nil
	}

	switch principal.Kind {
	case auth.PrincipalAPIKey:
		if principal.APIKey != nil && principal.APIKey.ProjectID == project.ID {
			return RoleViewer, nil
		}
		return RoleNone, nil
	case auth.PrincipalUser:
		if principal.User == nil {
			return RoleNone, nil
		}
	default:
		return RoleNone, nil
	}

	if project.OwnerID == principal.User.ID {
		return RoleOwner, nil
	}

	m, err := e.store.GetMembership(ctx, project.ID, principal.User.ID)
	if err != nil {
		if auth.IsNotFound(err) {
			return RoleNone, nil
		}
		return RoleNone, fmt.Errorf("failed to get membership: %w", err)
	}
	return m.Role, nil
}

// RequireMinRole loads projectID and checks principal holds at least min on it.
// A missing project is reported before any role evaluation.
func (e *Evaluator) RequireMinRole(ctx context.Context, principal *auth.Principal, projectID string, min Role) (*auth.Project, error) {
	project, role, _, err := e.resolve(ctx, principal, projectID)
	if err != nil {
		e.record("min_role", err)
		return nil, err
	}

	if role == RoleNone || !role.AtLeast(min) {
		err := &InsufficientRoleError{ProjectID: projectID, Required: min, Actual: role}
		e.record("min_role", err)
		return nil, err
	}

	e.record("min_role", nil)
	return project, nil
}

// RequireMemberOrOwner admits any role above none. The membership is nil for
// the owner and for API keys.
func (e *Evaluator) RequireMemberOrOwner(ctx context.Context, principal *auth.Principal, projectID string) (*auth.Project, *Membership, error) {
	project, role, membership, err := e.resolve(ctx, principal, projectID)
	if err != nil {
		e.record("member", err)
		return nil, nil, err
	}

	if role == RoleNone {
		err := &InsufficientRoleError{ProjectID: projectID, Required: RoleViewer, Actual: role}
		e.record("member", err)
		return nil, nil, err
	}

	e.record("member", nil)
	return project, membership, nil
}

// Authorize checks a resource action against the policy. API keys are also
// allowed by their own explicit permission grants.
func (e *Evaluator) Authorize(ctx context.Context, principal *auth.Principal, projectID string, resource Resource, action Action) (*auth.Project, error) {
	if e.policy == nil {
		return nil, errors.New("authorization policy is not configured")
	}

	project, role, _, err := e.resolve(ctx, principal, projectID)
	if err != nil {
		e.record("permission", err)
		return nil, err
	}

	perm := Permission{Resource: resource, Action: action}
	if role == RoleNone {
		err := &InsufficientRoleError{ProjectID: projectID, Required: RoleViewer, Actual: role}
		e.record("permission", err)
		return nil, err
	}

	if principal.Kind == auth.PrincipalAPIKey && principal.APIKey.HasPermission(string(resource), string(action)) {
		e.record("permission", nil)
		return project, nil
	}

	allowed, err := e.policy.Allowed(role, perm)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if !allowed {
		err := &PermissionDeniedError{ProjectID: projectID, Permission: perm, Role: role}
		e.log.WithFields(logrus.Fields{
			"project_id": projectID,
			"subject":    principal.SubjectID(),
			"permission": perm.String(),
			"role":       role.String(),
		}).Debug("permission denied")
		e.record("permission", err)
		return nil, err
	}

	e.record("permission", nil)
	return project, nil
}

// Permissions lists what principal holding role may do, as sorted
// "resource:action" strings. API keys add their own grants.
func (e *Evaluator) Permissions(principal *auth.Principal, role Role) ([]string, error) {
	seen := make(map[string]struct{})
	if e.policy != nil && role != RoleNone {
		perms, err := e.policy.Permissions(role)
		if err != nil {
			return nil, fmt.Errorf("failed to list permissions: %w", err)
		}
		for _, p := range perms {
			seen[p.String()] = struct{}{}
		}
	}
	if principal != nil && principal.Kind == auth.PrincipalAPIKey && principal.APIKey != nil {
		for _, p := range principal.APIKey.Permissions {
			seen[p] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

// resolve loads the project, then the principal's role and membership on it
func (e *Evaluator) resolve(ctx context.Context, principal *auth.Principal, projectID string) (*auth.Project, Role, *Membership, error) {
	project, err := e.store.GetProjectByID(ctx, projectID)
	if err != nil {
		if auth.IsNotFound(err) {
			return nil, RoleNone, nil, ErrProjectNotFound
		}
		return nil, RoleNone, nil, fmt.Errorf("failed to get project: %w", err)
	}

	if principal != nil && principal.IsUser() && project.OwnerID == principal.User.ID {
		return project, RoleOwner, nil, nil
	}
	if principal == nil || !principal.IsUser() {
		role, err := e.GetRole(ctx, principal, project)
		return project, role, nil, err
	}

	m, err := e.store.GetMembership(ctx, project.ID, principal.User.ID)
	if err != nil {
		if auth.IsNotFound(err) {
			return project, RoleNone, nil, nil
		}
		return nil, RoleNone, nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return project, m.Role, m, nil
}

func (e *Evaluator) record(check string, err error) {
	if e.recorder == nil {
		return
	}
	e.recorder.RecordAuthorization(check, Outcome(err))
}

// Outcome names the error kind for metrics and logs
func Outcome(err error) string {
	switch {
	case err == nil:
		return "allowed"
	case errors.Is(err, ErrProjectNotFound):
		return "project_not_found"
	case errors.Is(err, ErrInsufficientRole):
		return "insufficient_role"
	case errors.Is(err, ErrForbidden):
		return "permission_denied"
	}
	return "error"
}
