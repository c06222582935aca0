package rbac

import (
	"fmt"
	"strings"
	"time"
)

// Role is a position in the project access lattice:
//
//	none < viewer < editor < admin == owner
type Role string

const (
	RoleNone   Role = ""
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
	// RoleOwner is never stored on a membership; it is derived from Project.OwnerID
	RoleOwner Role = "owner"
)

// Rank orders roles. Unknown roles rank with RoleNone.
func (r Role) Rank() int {
	switch r {
	case RoleViewer:
		return 1
	case RoleEditor:
		return 2
	case RoleAdmin, RoleOwner:
		return 3
	}
	return 0
}

// AtLeast reports whether r satisfies a minimum of min
func (r Role) AtLeast(min Role) bool {
	return r.Rank() >= min.Rank()
}

// String returns "none" for the empty role
func (r Role) String() string {
	if r == RoleNone {
		return "none"
	}
	return string(r)
}

// Assignable reports whether r can be stored on a membership
func (r Role) Assignable() bool {
	switch r {
	case RoleViewer, RoleEditor, RoleAdmin:
		return true
	}
	return false
}

// ParseRole parses a membership role name
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Assignable() {
		return RoleNone, fmt.Errorf("invalid role %q (must be viewer, editor or admin)", s)
	}
	return r, nil
}

// Membership grants a non-owner user a role on a project.
// (ProjectID, UserID) is unique.
type Membership struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	UserID    string    `json:"user_id"`
	Role      Role      `json:"role"`
	InvitedBy string    `json:"invited_by"`
	JoinedAt  time.Time `json:"joined_at"`
}

// Resource is a kind of project-scoped object
type Resource string

const (
	ResourceProject  Resource = "project"
	ResourceDataset  Resource = "dataset"
	ResourcePipeline Resource = "pipeline"
	ResourceKey      Resource = "key"
	ResourceMember   Resource = "member"
)

// Action is an operation on a resource
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionRun    Action = "run"
)

// Permission represents a specific permission (resource + action)
type Permission struct {
	Resource Resource `json:"resource"`
	Action   Action   `json:"action"`
}

// String returns a string representation of the permission
func (p Permission) String() string {
	return string(p.Resource) + ":" + string(p.Action)
}
