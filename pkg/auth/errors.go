package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is returned by Login for an unknown email or a wrong password.
	// Both cases share this error so callers cannot tell them apart.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken covers malformed, badly signed and expired tokens
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrUnauthorized is returned when a token does not resolve to a live user
	ErrUnauthorized = errors.New("user is not authenticated")

	// ErrInvalidKey covers unknown, inactive and expired API keys
	ErrInvalidKey = errors.New("invalid API key")

	// ErrProjectMismatch is the sentinel behind ProjectMismatchError
	ErrProjectMismatch = errors.New("API key does not match the project")

	// ErrMissingCredentials is returned when a request carries no credential at all
	ErrMissingCredentials = errors.New("no authentication credentials provided")

	// ErrMissingAuthSecret is a startup error: the signing secret is not configured
	ErrMissingAuthSecret = errors.New("auth secret is not configured")

	// ErrNotFound is returned by credential stores for missing records
	ErrNotFound = errors.New("not found")
)

// ProjectMismatchError reports a valid key presented against another project
type ProjectMismatchError struct {
	ProjectID string
}

func (e *ProjectMismatchError) Error() string {
	return fmt.Sprintf("API key does not match the project ID: %s", e.ProjectID)
}

// Is makes errors.Is(err, ErrProjectMismatch) hold
func (e *ProjectMismatchError) Is(target error) bool {
	return target == ErrProjectMismatch
}

// IsNotFound reports whether err signals a missing record
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
