package api

import (
	"time"

	"github.com/baynext/baynext/pkg/auth"
	"github.com/baynext/baynext/pkg/rbac"
)

// TokenResponse is the OAuth2 password-grant token body
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// ProjectResponse is a project as seen by one of its members
type ProjectResponse struct {
	*auth.Project
	Role        rbac.Role `json:"role"`
	Permissions []string  `json:"permissions,omitempty"`
}

// CreateProjectRequest is the body of POST /v1/projects
type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CreateKeyRequest is the body of POST /v1/projects/{project_id}/keys
type CreateKeyRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Permissions []string   `json:"permissions,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// CreateKeyResponse carries the secret. It is the only response that ever does.
type CreateKeyResponse struct {
	*auth.APIKey
	Key string `json:"key"`
}
