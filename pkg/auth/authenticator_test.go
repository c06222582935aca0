package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// fakeStore is a minimal in-memory CredentialStore
type fakeStore struct {
	mu      sync.Mutex
	users   map[string]*User
	keys    map[string]*APIKey // by hash
	logins  map[string]time.Time
	failErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:  make(map[string]*User),
		keys:   make(map[string]*APIKey),
		logins: make(map[string]time.Time),
	}
}

func (s *fakeStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
}

func (s *fakeStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
}

func (s *fakeStore) GetAPIKeyByValue(ctx context.Context, value string) (*APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	if k, ok := s.keys[HashAPIKey(value)]; ok {
		return k, nil
	}
	return nil, fmt.Errorf("api key: %w", ErrNotFound)
}

func (s *fakeStore) TouchUserLogin(ctx context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logins[userID] = at
	return nil
}

func (s *fakeStore) addUser(t testing.TB, h *PasswordHasher, id, email, password string, status UserStatus) *User {
	t.Helper()
	hash, err := h.Hash(password)
	require.NoError(t, err)
	u := &User{ID: id, Email: email, PasswordHash: hash, Name: "User " + id, Status: status}
	s.users[id] = u
	return u
}

func (s *fakeStore) addKey(t testing.TB, projectID string) (*APIKey, string) {
	t.Helper()
	key, value, err := NewKeyGenerator().NewKey(NewKeyRequest{ProjectID: projectID, Name: "test"})
	require.NoError(t, err)
	s.keys[key.Hash] = key
	return key, value
}

type recordingToucher struct {
	mu      sync.Mutex
	touched []string
}

func (r *recordingToucher) Touch(keyID string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touched = append(r.touched, keyID)
}

func newTestAuthenticator(t testing.TB, store CredentialStore) *Authenticator {
	t.Helper()
	logger, _ := logrustest.NewNullLogger()
	a, err := NewAuthenticator(Config{Secret: testSecret, BcryptCost: bcrypt.MinCost}, store, logger)
	require.NoError(t, err)
	return a
}

func TestNewAuthenticator(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		a, err := NewAuthenticator(Config{}, newFakeStore(), nil)
		assert.Nil(t, a)
		assert.ErrorIs(t, err, ErrMissingAuthSecret)
	})

	t.Run("default ttl", func(t *testing.T) {
		a, err := NewAuthenticator(Config{Secret: testSecret, BcryptCost: bcrypt.MinCost}, newFakeStore(), logrus.New())
		require.NoError(t, err)
		assert.Equal(t, 3600*time.Second, a.TokenTTL())
	})
}

func TestAuthenticator_LoginIssueResolve(t *testing.T) {
	store := newFakeStore()
	a := newTestAuthenticator(t, store)
	u := store.addUser(t, a.Hasher(), "u1", "ada@example.com", "pw-ada", UserStatusActive)

	user, err := a.Login(context.Background(), "ada@example.com", "pw-ada")
	require.NoError(t, err)
	assert.Equal(t, u.ID, user.ID)
	assert.Contains(t, store.logins, "u1")

	token, err := a.IssueToken(user)
	require.NoError(t, err)

	claims, err := a.codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "User u1", claims.Name)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *claims.ExpiresAt, 2*time.Second)

	resolved, err := a.ResolveFromToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, resolved.ID)
}

func TestAuthenticator_LoginFailuresAreIndistinguishable(t *testing.T) {
	store := newFakeStore()
	a := newTestAuthenticator(t, store)
	store.addUser(t, a.Hasher(), "u1", "ada@example.com", "pw-ada", UserStatusActive)
	store.addUser(t, a.Hasher(), "u2", "bob@example.com", "pw-bob", UserStatusInactive)

	_, wrongPassword := a.Login(context.Background(), "ada@example.com", "nope")
	_, unknownEmail := a.Login(context.Background(), "nobody@example.com", "nope")
	_, inactive := a.Login(context.Background(), "bob@example.com", "pw-bob")

	for _, err := range []error{wrongPassword, unknownEmail, inactive} {
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		assert.Equal(t, ErrInvalidCredentials.Error(), err.Error())
	}
}

func TestAuthenticator_LoginStoreError(t *testing.T) {
	store := newFakeStore()
	store.failErr = errors.New("connection refused")
	a := newTestAuthenticator(t, store)

	_, err := a.Login(context.Background(), "ada@example.com", "pw")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticator_IssueServiceToken(t *testing.T) {
	store := newFakeStore()
	a := newTestAuthenticator(t, store)
	u := store.addUser(t, a.Hasher(), "svc", "svc@example.com", "x", UserStatusActive)

	token, err := a.IssueServiceToken(u)
	require.NoError(t, err)

	claims, err := a.codec.Decode(token)
	require.NoError(t, err)
	assert.Nil(t, claims.ExpiresAt)
}

func TestAuthenticator_ResolveFromToken(t *testing.T) {
	store := newFakeStore()
	a := newTestAuthenticator(t, store)
	active := store.addUser(t, a.Hasher(), "u1", "ada@example.com", "pw", UserStatusActive)
	pending := store.addUser(t, a.Hasher(), "u2", "bob@example.com", "pw", UserStatusPending)

	ghostToken, err := a.IssueToken(&User{ID: "deleted", Email: "ghost@example.com"})
	require.NoError(t, err)
	pendingToken, err := a.IssueToken(pending)
	require.NoError(t, err)
	expired, err := a.codec.Encode(claimsFor(active), durationPtr(0))
	require.NoError(t, err)

	t.Run("deleted user", func(t *testing.T) {
		_, err := a.ResolveFromToken(context.Background(), ghostToken)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("inactive user", func(t *testing.T) {
		_, err := a.ResolveFromToken(context.Background(), pendingToken)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("expired token", func(t *testing.T) {
		_, err := a.ResolveFromToken(context.Background(), expired)
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := a.ResolveFromToken(context.Background(), "abc.def.ghi")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("email claim is not trusted", func(t *testing.T) {
		forged, err := a.codec.Encode(Claims{Subject: "u1", Email: "bob@example.com"}, durationPtr(time.Hour))
		require.NoError(t, err)
		user, err := a.ResolveFromToken(context.Background(), forged)
		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", user.Email)
	})
}

func TestAuthenticator_ResolveFromAPIKey(t *testing.T) {
	store := newFakeStore()
	a := newTestAuthenticator(t, store)
	toucher := &recordingToucher{}
	a.SetKeyToucher(toucher)

	key, value := store.addKey(t, "p1")

	t.Run("valid key", func(t *testing.T) {
		got, err := a.ResolveFromAPIKey(context.Background(), value, "p1")
		require.NoError(t, err)
		assert.Equal(t, key.ID, got.ID)
		assert.Equal(t, []string{key.ID}, toucher.touched)
	})

	t.Run("other project", func(t *testing.T) {
		_, err := a.ResolveFromAPIKey(context.Background(), value, "p2")
		assert.ErrorIs(t, err, ErrProjectMismatch)
		var mismatch *ProjectMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, "p2", mismatch.ProjectID)
		assert.Equal(t, "API key does not match the project ID: p2", err.Error())
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := a.ResolveFromAPIKey(context.Background(), KeyPrefix+"dW5rbm93bg", "p1")
		assert.ErrorIs(t, err, ErrInvalidKey)
	})

	t.Run("malformed key", func(t *testing.T) {
		_, err := a.ResolveFromAPIKey(context.Background(), "hello", "p1")
		assert.ErrorIs(t, err, ErrInvalidKey)
	})

	t.Run("deactivated key", func(t *testing.T) {
		inactive, v := store.addKey(t, "p1")
		inactive.IsActive = false
		_, err := a.ResolveFromAPIKey(context.Background(), v, "p1")
		assert.ErrorIs(t, err, ErrInvalidKey)
		assert.ErrorContains(t, err, "key is inactive")
	})

	t.Run("expired key", func(t *testing.T) {
		old, v := store.addKey(t, "p1")
		past := time.Now().Add(-time.Second)
		old.ExpiresAt = &past
		_, err := a.ResolveFromAPIKey(context.Background(), v, "p1")
		assert.ErrorIs(t, err, ErrInvalidKey)
		assert.ErrorContains(t, err, "key has expired")
	})

	t.Run("inactive key for other project is still invalid", func(t *testing.T) {
		inactive, v := store.addKey(t, "p1")
		inactive.IsActive = false
		_, err := a.ResolveFromAPIKey(context.Background(), v, "p2")
		assert.ErrorIs(t, err, ErrInvalidKey)
		assert.NotErrorIs(t, err, ErrProjectMismatch)
	})
}
