package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/baynext/baynext/pkg/auth"
	"github.com/baynext/baynext/pkg/rbac"
	"github.com/google/uuid"
)

type memberKey struct {
	projectID string
	userID    string
}

// MemoryStore is a map-backed Store for tests and local development.
// Records are copied on the way in and out.
type MemoryStore struct {
	mu          sync.RWMutex
	users       map[string]*auth.User
	emails      map[string]string // lowercased email -> user id
	projects    map[string]*auth.Project
	memberships map[memberKey]*rbac.Membership
	keys        map[string]*auth.APIKey
	keyHashes   map[string]string // hash -> key id
	now         func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[string]*auth.User),
		emails:      make(map[string]string),
		projects:    make(map[string]*auth.Project),
		memberships: make(map[memberKey]*rbac.Membership),
		keys:        make(map[string]*auth.APIKey),
		keyHashes:   make(map[string]string),
		now:         time.Now,
	}
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, auth.ErrNotFound)
}

func conflict(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrConflict)
}

// CreateUser stores a new user; emails are unique case-insensitively
func (s *MemoryStore) CreateUser(ctx context.Context, user *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	email := strings.ToLower(user.Email)
	if _, ok := s.emails[email]; ok {
		return conflict("user", user.Email)
	}
	if _, ok := s.users[user.ID]; ok {
		return conflict("user", user.ID)
	}
	if user.Status == "" {
		user.Status = auth.UserStatusActive
	}
	now := s.now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	u := *user
	s.users[u.ID] = &u
	s.emails[email] = u.ID
	return nil
}

// GetUserByID returns the user with id
func (s *MemoryStore) GetUserByID(ctx context.Context, id string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	out := *u
	return &out, nil
}

// GetUserByEmail returns the user registered with email
func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emails[strings.ToLower(email)]
	if !ok {
		return nil, notFound("user", email)
	}
	out := *s.users[id]
	return &out, nil
}

// TouchUserLogin records a successful login
func (s *MemoryStore) TouchUserLogin(ctx context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return notFound("user", userID)
	}
	at = at.UTC()
	u.LastLoginAt = &at
	return nil
}

// CreateProject stores a new project
func (s *MemoryStore) CreateProject(ctx context.Context, project *auth.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if project.ID == "" {
		project.ID = uuid.New().String()
	}
	if _, ok := s.projects[project.ID]; ok {
		return conflict("project", project.ID)
	}
	if _, ok := s.users[project.OwnerID]; !ok {
		return notFound("user", project.OwnerID)
	}
	now := s.now().UTC()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}
	project.UpdatedAt = now

	p := *project
	s.projects[p.ID] = &p
	return nil
}

// GetProjectByID returns the project with id
func (s *MemoryStore) GetProjectByID(ctx context.Context, id string) (*auth.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[id]
	if !ok {
		return nil, notFound("project", id)
	}
	out := *p
	return &out, nil
}

// ListProjectsForUser returns the projects userID owns or is a member of,
// newest first
func (s *MemoryStore) ListProjectsForUser(ctx context.Context, userID string) ([]*auth.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*auth.Project{}
	for id, p := range s.projects {
		if p.OwnerID != userID {
			if _, ok := s.memberships[memberKey{id, userID}]; !ok {
				continue
			}
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// DeleteProject removes a project with its memberships and keys
func (s *MemoryStore) DeleteProject(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[id]; !ok {
		return notFound("project", id)
	}
	delete(s.projects, id)
	for k := range s.memberships {
		if k.projectID == id {
			delete(s.memberships, k)
		}
	}
	for kid, k := range s.keys {
		if k.ProjectID == id {
			delete(s.keyHashes, k.Hash)
			delete(s.keys, kid)
		}
	}
	return nil
}

// AddMembership grants a user a role on a project, one row per (project, user)
func (s *MemoryStore) AddMembership(ctx context.Context, m *rbac.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[m.ProjectID]; !ok {
		return notFound("project", m.ProjectID)
	}
	if _, ok := s.users[m.UserID]; !ok {
		return notFound("user", m.UserID)
	}
	key := memberKey{m.ProjectID, m.UserID}
	if _, ok := s.memberships[key]; ok {
		return conflict("membership", m.ProjectID+"/"+m.UserID)
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = s.now().UTC()
	}

	out := *m
	s.memberships[key] = &out
	return nil
}

// GetMembership returns the membership of userID in projectID
func (s *MemoryStore) GetMembership(ctx context.Context, projectID, userID string) (*rbac.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.memberships[memberKey{projectID, userID}]
	if !ok {
		return nil, notFound("membership", projectID+"/"+userID)
	}
	out := *m
	return &out, nil
}

// ListMemberships returns the memberships of a project ordered by join time
func (s *MemoryStore) ListMemberships(ctx context.Context, projectID string) ([]*rbac.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*rbac.Membership
	for k, m := range s.memberships {
		if k.projectID == projectID {
			c := *m
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].UserID < out[j].UserID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out, nil
}

// RemoveMembership revokes a user's role on a project
func (s *MemoryStore) RemoveMembership(ctx context.Context, projectID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memberKey{projectID, userID}
	if _, ok := s.memberships[key]; !ok {
		return notFound("membership", projectID+"/"+userID)
	}
	delete(s.memberships, key)
	return nil
}

func copyKey(k *auth.APIKey) *auth.APIKey {
	out := *k
	out.Permissions = append([]string{}, k.Permissions...)
	return &out
}

// CreateAPIKey stores a new key. The key must carry its hash.
func (s *MemoryStore) CreateAPIKey(ctx context.Context, key *auth.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key.Hash == "" {
		return fmt.Errorf("api key has no hash")
	}
	if _, ok := s.projects[key.ProjectID]; !ok {
		return notFound("project", key.ProjectID)
	}
	if key.ID == "" {
		key.ID = uuid.New().String()
	}
	if _, ok := s.keys[key.ID]; ok {
		return conflict("api key", key.ID)
	}
	if _, ok := s.keyHashes[key.Hash]; ok {
		return conflict("api key", key.Prefix)
	}
	now := s.now().UTC()
	if key.CreatedAt.IsZero() {
		key.CreatedAt = now
	}
	key.UpdatedAt = now

	s.keys[key.ID] = copyKey(key)
	s.keyHashes[key.Hash] = key.ID
	return nil
}

// GetAPIKeyByID returns the key with id
func (s *MemoryStore) GetAPIKeyByID(ctx context.Context, id string) (*auth.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	k, ok := s.keys[id]
	if !ok {
		return nil, notFound("api key", id)
	}
	return copyKey(k), nil
}

// GetAPIKeyByValue hashes value and returns the matching key
func (s *MemoryStore) GetAPIKeyByValue(ctx context.Context, value string) (*auth.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.keyHashes[auth.HashAPIKey(value)]
	if !ok {
		return nil, notFound("api key", "<redacted>")
	}
	return copyKey(s.keys[id]), nil
}

// ListAPIKeys returns a project's keys, newest first
func (s *MemoryStore) ListAPIKeys(ctx context.Context, projectID string, opts ListOptions) ([]*auth.APIKey, error) {
	opts = opts.Normalize()

	s.mu.RLock()
	var all []*auth.APIKey
	for _, k := range s.keys {
		if k.ProjectID != projectID {
			continue
		}
		if !opts.ShowInactive && !k.IsActive {
			continue
		}
		all = append(all, copyKey(k))
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if opts.Skip >= len(all) {
		return []*auth.APIKey{}, nil
	}
	end := opts.Skip + opts.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[opts.Skip:end], nil
}

// DeactivateAPIKey marks a key inactive. Deactivating twice is not an error.
func (s *MemoryStore) DeactivateAPIKey(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, ok := s.keys[id]
	if !ok {
		return notFound("api key", id)
	}
	k.IsActive = false
	k.UpdatedAt = s.now().UTC()
	return nil
}

// DeleteAPIKey permanently removes a key
func (s *MemoryStore) DeleteAPIKey(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, ok := s.keys[id]
	if !ok {
		return notFound("api key", id)
	}
	delete(s.keyHashes, k.Hash)
	delete(s.keys, id)
	return nil
}

// TouchAPIKey sets last_used_at
func (s *MemoryStore) TouchAPIKey(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, ok := s.keys[id]
	if !ok {
		return notFound("api key", id)
	}
	at = at.UTC()
	k.LastUsedAt = &at
	return nil
}

// DeactivateExpiredAPIKeys deactivates active keys expired at now
func (s *MemoryStore) DeactivateExpiredAPIKeys(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, k := range s.keys {
		if k.IsActive && k.IsExpired(now) {
			k.IsActive = false
			k.UpdatedAt = now.UTC()
			n++
		}
	}
	return n, nil
}

// HealthCheck always succeeds
func (s *MemoryStore) HealthCheck(ctx context.Context) error {
	return nil
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
