package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/baynext/baynext/pkg/auth"
	"github.com/baynext/baynext/pkg/rbac"
	"github.com/baynext/baynext/pkg/storage"
	"github.com/google/uuid"
)

// Store implements storage.Store over database/sql.
// Credential lookups read the primary so deactivation is seen immediately;
// listings may be served by a replica.
type Store struct {
	db      *sql.DB
	reads   func() *sql.DB
	dialect Dialect
	health  func(ctx context.Context) error
	closer  func() error
	now     func() time.Time
}

// New wraps an open database handle
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{
		db:      db,
		reads:   func() *sql.DB { return db },
		dialect: dialect,
		health:  db.PingContext,
		closer:  db.Close,
		now:     time.Now,
	}
}

// NewWithManager builds a store on a connection manager, reading lists from replicas
func NewWithManager(cm *ConnectionManager) *Store {
	return &Store{
		db:      cm.Primary(),
		reads:   cm.Replica,
		dialect: cm.Dialect(),
		health:  cm.HealthCheck,
		closer:  cm.Close,
		now:     time.Now,
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.dialect.rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.dialect.rebind(query), args...)
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, auth.ErrNotFound)
}

// expectOne turns a zero-row update into a not-found error
func expectOne(res sql.Result, err error, kind, id string) error {
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", kind, err)
	}
	if n == 0 {
		return notFound(kind, id)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

const userColumns = `id, email, password_hash, name, status, created_at, updated_at, last_login_at`

func scanUser(row scanner) (*auth.User, error) {
	var (
		u         auth.User
		status    string
		lastLogin sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &status, &u.CreatedAt, &u.UpdatedAt, &lastLogin); err != nil {
		return nil, err
	}
	u.Status = auth.UserStatus(status)
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	u.LastLoginAt = timePtr(lastLogin)
	return &u, nil
}

// CreateUser inserts a user; emails are unique case-insensitively
func (s *Store) CreateUser(ctx context.Context, user *auth.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Status == "" {
		user.Status = auth.UserStatusActive
	}
	now := s.now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := s.exec(ctx, `
		INSERT INTO users (id, email, password_hash, name, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.Email, user.PasswordHash, user.Name, string(user.Status), user.CreatedAt, user.UpdatedAt,
	)
	return translate(err, "user", user.Email)
}

// GetUserByID returns the user with id
func (s *Store) GetUserByID(ctx context.Context, id string) (*auth.User, error) {
	u, err := scanUser(s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetUserByEmail returns the user registered with email
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	u, err := scanUser(s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("user", email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// TouchUserLogin records a successful login
func (s *Store) TouchUserLogin(ctx context.Context, userID string, at time.Time) error {
	res, err := s.exec(ctx, `UPDATE users SET last_login_at = $1 WHERE id = $2`, at.UTC(), userID)
	return expectOne(res, err, "user", userID)
}

// CreateProject inserts a project owned by an existing user
func (s *Store) CreateProject(ctx context.Context, project *auth.Project) error {
	if project.ID == "" {
		project.ID = uuid.New().String()
	}
	now := s.now().UTC()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}
	project.UpdatedAt = now

	_, err := s.exec(ctx, `
		INSERT INTO projects (id, owner_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		project.ID, project.OwnerID, project.Name, project.Description, project.CreatedAt, project.UpdatedAt,
	)
	return translate(err, "project", project.ID)
}

const projectColumns = `id, owner_id, name, description, created_at, updated_at`

func scanProject(row scanner) (*auth.Project, error) {
	var p auth.Project
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

// GetProjectByID returns the project with id
func (s *Store) GetProjectByID(ctx context.Context, id string) (*auth.Project, error) {
	p, err := scanProject(s.queryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("project", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

// ListProjectsForUser returns the projects userID owns or is a member of,
// newest first
func (s *Store) ListProjectsForUser(ctx context.Context, userID string) ([]*auth.Project, error) {
	rows, err := s.reads().QueryContext(ctx, s.dialect.rebind(`
		SELECT `+projectColumns+` FROM projects p
		WHERE p.owner_id = $1
		   OR EXISTS (SELECT 1 FROM memberships m WHERE m.project_id = p.id AND m.user_id = $1)
		ORDER BY p.created_at DESC, p.id ASC`),
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	out := []*auth.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteProject removes a project with its memberships and keys in one transaction
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM api_keys WHERE project_id = $1`,
		`DELETE FROM memberships WHERE project_id = $1`,
	} {
		if _, err := tx.ExecContext(ctx, s.dialect.rebind(q), id); err != nil {
			return fmt.Errorf("failed to delete project children: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, s.dialect.rebind(`DELETE FROM projects WHERE id = $1`), id)
	if err := expectOne(res, err, "project", id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit project delete: %w", err)
	}
	return nil
}

// AddMembership grants a user a role on a project, one row per (project, user)
func (s *Store) AddMembership(ctx context.Context, m *rbac.Membership) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = s.now().UTC()
	}

	_, err := s.exec(ctx, `
		INSERT INTO memberships (id, project_id, user_id, role, invited_by, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.ProjectID, m.UserID, string(m.Role), nullString(m.InvitedBy), m.JoinedAt.UTC(),
	)
	return translate(err, "membership", m.ProjectID+"/"+m.UserID)
}

const membershipColumns = `id, project_id, user_id, role, invited_by, joined_at`

func scanMembership(row scanner) (*rbac.Membership, error) {
	var (
		m         rbac.Membership
		role      string
		invitedBy sql.NullString
	)
	if err := row.Scan(&m.ID, &m.ProjectID, &m.UserID, &role, &invitedBy, &m.JoinedAt); err != nil {
		return nil, err
	}
	m.Role = rbac.Role(role)
	m.InvitedBy = invitedBy.String
	m.JoinedAt = m.JoinedAt.UTC()
	return &m, nil
}

// GetMembership returns the membership of userID in projectID
func (s *Store) GetMembership(ctx context.Context, projectID, userID string) (*rbac.Membership, error) {
	m, err := scanMembership(s.queryRow(ctx,
		`SELECT `+membershipColumns+` FROM memberships WHERE project_id = $1 AND user_id = $2`,
		projectID, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("membership", projectID+"/"+userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return m, nil
}

// ListMemberships returns the memberships of a project ordered by join time
func (s *Store) ListMemberships(ctx context.Context, projectID string) ([]*rbac.Membership, error) {
	rows, err := s.reads().QueryContext(ctx, s.dialect.rebind(
		`SELECT `+membershipColumns+` FROM memberships WHERE project_id = $1 ORDER BY joined_at ASC, user_id ASC`),
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	var out []*rbac.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// RemoveMembership revokes a user's role on a project
func (s *Store) RemoveMembership(ctx context.Context, projectID, userID string) error {
	res, err := s.exec(ctx, `DELETE FROM memberships WHERE project_id = $1 AND user_id = $2`, projectID, userID)
	return expectOne(res, err, "membership", projectID+"/"+userID)
}

const keyColumns = `id, project_id, key_hash, prefix, name, description, permissions, is_active, expires_at, last_used_at, created_at, updated_at`

func scanKey(row scanner) (*auth.APIKey, error) {
	var (
		k         auth.APIKey
		perms     []byte
		expiresAt sql.NullTime
		lastUsed  sql.NullTime
	)
	if err := row.Scan(&k.ID, &k.ProjectID, &k.Hash, &k.Prefix, &k.Name, &k.Description, &perms,
		&k.IsActive, &expiresAt, &lastUsed, &k.CreatedAt, &k.UpdatedAt); err != nil {
		return nil, err
	}
	k.Permissions = []string{}
	if len(perms) > 0 {
		if err := json.Unmarshal(perms, &k.Permissions); err != nil {
			return nil, fmt.Errorf("invalid permissions for key %s: %w", k.ID, err)
		}
	}
	k.ExpiresAt = timePtr(expiresAt)
	k.LastUsedAt = timePtr(lastUsed)
	k.CreatedAt = k.CreatedAt.UTC()
	k.UpdatedAt = k.UpdatedAt.UTC()
	return &k, nil
}

// CreateAPIKey inserts a key. The key must carry its hash.
func (s *Store) CreateAPIKey(ctx context.Context, key *auth.APIKey) error {
	if key.Hash == "" {
		return fmt.Errorf("api key has no hash")
	}
	if key.ID == "" {
		key.ID = uuid.New().String()
	}
	if key.Permissions == nil {
		key.Permissions = []string{}
	}
	perms, err := json.Marshal(key.Permissions)
	if err != nil {
		return fmt.Errorf("failed to encode permissions: %w", err)
	}
	now := s.now().UTC()
	if key.CreatedAt.IsZero() {
		key.CreatedAt = now
	}
	key.UpdatedAt = now

	_, err = s.exec(ctx, `
		INSERT INTO api_keys (`+keyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		key.ID, key.ProjectID, key.Hash, key.Prefix, key.Name, key.Description, string(perms),
		key.IsActive, nullTime(key.ExpiresAt), nullTime(key.LastUsedAt), key.CreatedAt.UTC(), key.UpdatedAt,
	)
	return translate(err, "api key", key.Prefix)
}

// GetAPIKeyByID returns the key with id
func (s *Store) GetAPIKeyByID(ctx context.Context, id string) (*auth.APIKey, error) {
	k, err := scanKey(s.queryRow(ctx, `SELECT `+keyColumns+` FROM api_keys WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("api key", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get api key: %w", err)
	}
	return k, nil
}

// GetAPIKeyByValue hashes value and returns the matching key
func (s *Store) GetAPIKeyByValue(ctx context.Context, value string) (*auth.APIKey, error) {
	k, err := scanKey(s.queryRow(ctx, `SELECT `+keyColumns+` FROM api_keys WHERE key_hash = $1`, auth.HashAPIKey(value)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("api key", "<redacted>")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get api key: %w", err)
	}
	return k, nil
}

// ListAPIKeys returns a project's keys, newest first
func (s *Store) ListAPIKeys(ctx context.Context, projectID string, opts storage.ListOptions) ([]*auth.APIKey, error) {
	opts = opts.Normalize()

	query := `SELECT ` + keyColumns + ` FROM api_keys WHERE project_id = $1`
	if !opts.ShowInactive {
		query += ` AND is_active = TRUE`
	}
	query += ` ORDER BY created_at DESC, id ASC LIMIT $2 OFFSET $3`

	rows, err := s.reads().QueryContext(ctx, s.dialect.rebind(query), projectID, opts.Limit, opts.Skip)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	defer rows.Close()

	out := []*auth.APIKey{}
	for rows.Next() {
		k, err := scanKey(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan api key: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// DeactivateAPIKey marks a key inactive. Deactivating twice is not an error.
func (s *Store) DeactivateAPIKey(ctx context.Context, id string) error {
	res, err := s.exec(ctx, `UPDATE api_keys SET is_active = FALSE, updated_at = $1 WHERE id = $2`, s.now().UTC(), id)
	return expectOne(res, err, "api key", id)
}

// DeleteAPIKey permanently removes a key
func (s *Store) DeleteAPIKey(ctx context.Context, id string) error {
	res, err := s.exec(ctx, `DELETE FROM api_keys WHERE id = $1`, id)
	return expectOne(res, err, "api key", id)
}

// TouchAPIKey sets last_used_at
func (s *Store) TouchAPIKey(ctx context.Context, id string, at time.Time) error {
	res, err := s.exec(ctx, `UPDATE api_keys SET last_used_at = $1 WHERE id = $2`, at.UTC(), id)
	return expectOne(res, err, "api key", id)
}

// DeactivateExpiredAPIKeys deactivates active keys expired at now
func (s *Store) DeactivateExpiredAPIKeys(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.exec(ctx, `
		UPDATE api_keys SET is_active = FALSE, updated_at = $1
		WHERE is_active = TRUE AND expires_at IS NOT NULL AND expires_at <= $1`,
		now.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate expired api keys: %w", err)
	}
	return res.RowsAffected()
}

// HealthCheck pings the database
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.health(ctx)
}

// Close releases the underlying connections
func (s *Store) Close() error {
	return s.closer()
}

var _ storage.Store = (*Store)(nil)
