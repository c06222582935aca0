package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserStatus is the lifecycle state of a user account
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
	UserStatusPending  UserStatus = "pending"
)

// Valid reports whether s is a known status
func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusActive, UserStatusInactive, UserStatusPending:
		return true
	}
	return false
}

// User represents a human account
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // Never expose hash
	Name         string     `json:"name,omitempty"`
	Status       UserStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// IsActive reports whether the user may authenticate
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// Project is a tenant boundary. OwnerID never changes after creation.
type Project struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

const (
	// ProjectIDPrefix marks generated project IDs
	ProjectIDPrefix = "proj_"

	MaxProjectNameLength        = 255
	MaxProjectDescriptionLength = 1000
)

// NewProject builds a project owned by ownerID with a fresh ID. Name and
// description are trimmed before their lengths are checked.
func NewProject(ownerID, name, description string) (*Project, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	switch {
	case name == "":
		return nil, fmt.Errorf("name is required")
	case len(name) > MaxProjectNameLength:
		return nil, fmt.Errorf("name must be at most %d characters", MaxProjectNameLength)
	case len(description) > MaxProjectDescriptionLength:
		return nil, fmt.Errorf("description must be at most %d characters", MaxProjectDescriptionLength)
	}
	return &Project{
		ID:          ProjectIDPrefix + uuid.NewString(),
		OwnerID:     ownerID,
		Name:        name,
		Description: description,
	}, nil
}

// APIKey is a project-scoped secret credential.
// Only the SHA256 hash of the secret is kept; the value itself is shown once.
type APIKey struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	Hash        string     `json:"-"`
	Prefix      string     `json:"prefix"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Permissions []string   `json:"permissions"`
	IsActive    bool       `json:"is_active"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsExpired reports whether the key has an expiry at or before now
func (k *APIKey) IsExpired(now time.Time) bool {
	return k.ExpiresAt != nil && !now.Before(*k.ExpiresAt)
}

// Usable reports whether the key can authenticate at the given instant
func (k *APIKey) Usable(now time.Time) bool {
	return k.IsActive && !k.IsExpired(now)
}

// HasPermission checks the key's explicit grants for resource:action.
// "resource:*" and "*" act as wildcards.
func (k *APIKey) HasPermission(resource, action string) bool {
	for _, p := range k.Permissions {
		if p == "*" || p == resource+":*" || p == resource+":"+action {
			return true
		}
	}
	return false
}

// PrincipalKind distinguishes how a request was authenticated
type PrincipalKind string

const (
	PrincipalUser   PrincipalKind = "user"
	PrincipalAPIKey PrincipalKind = "api_key"
)

// Principal is the resolved identity of a single request
type Principal struct {
	Kind   PrincipalKind
	User   *User
	APIKey *APIKey
}

// UserPrincipal wraps a user identity
func UserPrincipal(u *User) *Principal {
	return &Principal{Kind: PrincipalUser, User: u}
}

// KeyPrincipal wraps an API key identity
func KeyPrincipal(k *APIKey) *Principal {
	return &Principal{Kind: PrincipalAPIKey, APIKey: k}
}

// SubjectID returns the user ID or the key ID
func (p *Principal) SubjectID() string {
	switch p.Kind {
	case PrincipalUser:
		if p.User != nil {
			return p.User.ID
		}
	case PrincipalAPIKey:
		if p.APIKey != nil {
			return p.APIKey.ID
		}
	}
	return ""
}

// IsUser reports whether the principal came from a user token
func (p *Principal) IsUser() bool {
	return p.Kind == PrincipalUser && p.User != nil
}
