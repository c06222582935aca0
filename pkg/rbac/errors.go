package rbac

import (
	"errors"
	"fmt"
)

var (
	// ErrProjectNotFound is returned when the target project does not exist
	ErrProjectNotFound = errors.New("project not found")

	// ErrForbidden is the parent kind of every authorization denial
	ErrForbidden = errors.New("forbidden")

	// ErrInsufficientRole is returned when the caller's role is below the required one
	ErrInsufficientRole = errors.New("insufficient role")
)

// InsufficientRoleError carries the role comparison behind a denial
type InsufficientRoleError struct {
	ProjectID string
	Required  Role
	Actual    Role
}

func (e *InsufficientRoleError) Error() string {
	return fmt.Sprintf("insufficient role on project %s: requires %s, has %s", e.ProjectID, e.Required, e.Actual)
}

// Is matches ErrInsufficientRole and ErrForbidden
func (e *InsufficientRoleError) Is(target error) bool {
	return target == ErrInsufficientRole || target == ErrForbidden
}

// PermissionDeniedError is returned by Authorize when the policy does not allow the action
type PermissionDeniedError struct {
	ProjectID  string
	Permission Permission
	Role       Role
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("permission %s denied on project %s for role %s", e.Permission, e.ProjectID, e.Role)
}

// Is matches ErrForbidden
func (e *PermissionDeniedError) Is(target error) bool {
	return target == ErrForbidden
}
