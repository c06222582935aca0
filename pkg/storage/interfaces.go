package storage

import (
	"context"
	"errors"
	"time"

	"github.com/baynext/baynext/pkg/auth"
	"github.com/baynext/baynext/pkg/rbac"
)

// ErrConflict is returned when a write violates a uniqueness constraint
var ErrConflict = errors.New("already exists")

// UserStore persists user accounts
type UserStore interface {
	CreateUser(ctx context.Context, user *auth.User) error
	GetUserByID(ctx context.Context, id string) (*auth.User, error)
	GetUserByEmail(ctx context.Context, email string) (*auth.User, error)
	TouchUserLogin(ctx context.Context, userID string, at time.Time) error
}

// ProjectStore persists projects and their memberships
type ProjectStore interface {
	CreateProject(ctx context.Context, project *auth.Project) error
	GetProjectByID(ctx context.Context, id string) (*auth.Project, error)
	ListProjectsForUser(ctx context.Context, userID string) ([]*auth.Project, error)
	DeleteProject(ctx context.Context, id string) error

	AddMembership(ctx context.Context, m *rbac.Membership) error
	GetMembership(ctx context.Context, projectID, userID string) (*rbac.Membership, error)
	ListMemberships(ctx context.Context, projectID string) ([]*rbac.Membership, error)
	RemoveMembership(ctx context.Context, projectID, userID string) error
}

// APIKeyStore persists project API keys. Keys are looked up by the hash of
// their secret value, never by the value itself.
type APIKeyStore interface {
	CreateAPIKey(ctx context.Context, key *auth.APIKey) error
	GetAPIKeyByID(ctx context.Context, id string) (*auth.APIKey, error)
	GetAPIKeyByValue(ctx context.Context, value string) (*auth.APIKey, error)
	ListAPIKeys(ctx context.Context, projectID string, opts ListOptions) ([]*auth.APIKey, error)
	DeactivateAPIKey(ctx context.Context, id string) error
	DeleteAPIKey(ctx context.Context, id string) error
	TouchAPIKey(ctx context.Context, id string, at time.Time) error
	DeactivateExpiredAPIKeys(ctx context.Context, now time.Time) (int64, error)
}

// Store is the full persistence surface used by the service
type Store interface {
	UserStore
	ProjectStore
	APIKeyStore

	HealthCheck(ctx context.Context) error
	Close() error
}

// ListOptions pages through list results
type ListOptions struct {
	Skip         int
	Limit        int
	ShowInactive bool
}

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// Normalize clamps skip and limit into their valid ranges
func (o ListOptions) Normalize() ListOptions {
	if o.Skip < 0 {
		o.Skip = 0
	}
	if o.Limit <= 0 {
		o.Limit = DefaultListLimit
	}
	if o.Limit > MaxListLimit {
		o.Limit = MaxListLimit
	}
	return o
}

// Config for storage backend
type Config struct {
	Type string // "memory", "postgres", "sqlite3"

	// SQL config
	DatabaseURL string
	ReplicaURLs []string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
	AutoMigrate bool

	// Redis config
	RedisURL        string
	RedisPassword   string
	RedisDB         int
	RedisMaxRetries int
	RedisPoolSize   int

	// last_used_at debouncing
	TouchInterval  time.Duration
	TouchCacheSize int
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		Type:            "memory",
		MaxConns:        20,
		MinConns:        2,
		Timeout:         10 * time.Second,
		MaxLifetime:     30 * time.Minute,
		MaxIdleTime:     5 * time.Minute,
		AutoMigrate:     true,
		RedisDB:         0,
		RedisMaxRetries: 3,
		RedisPoolSize:   10,
		TouchInterval:   time.Minute,
		TouchCacheSize:  10000,
	}
}
