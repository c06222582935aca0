package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultTokenTTL is the lifetime of tokens issued at login
const DefaultTokenTTL = 3600 * time.Second

// CredentialStore is the read side the Authenticator depends on.
// Missing records are reported with an error wrapping ErrNotFound.
type CredentialStore interface {
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	// GetAPIKeyByValue hashes value and returns the matching key record
	GetAPIKeyByValue(ctx context.Context, value string) (*APIKey, error)
}

// LoginRecorder is implemented by stores that track last_login_at
type LoginRecorder interface {
	TouchUserLogin(ctx context.Context, userID string, at time.Time) error
}

// KeyToucher records API key usage off the request path
type KeyToucher interface {
	Touch(keyID string, at time.Time)
}

// Config carries the settings the Authenticator is built from
type Config struct {
	Secret     []byte
	TokenTTL   time.Duration
	BcryptCost int
}

// Authenticator turns credentials into identities
type Authenticator struct {
	store   CredentialStore
	codec   *TokenCodec
	hasher  *PasswordHasher
	ttl     time.Duration
	toucher KeyToucher
	log     logrus.FieldLogger
	now     func() time.Time
}

// NewAuthenticator creates an Authenticator. It fails with ErrMissingAuthSecret
// when cfg has no secret.
func NewAuthenticator(cfg Config, store CredentialStore, logger logrus.FieldLogger) (*Authenticator, error) {
	codec, err := NewTokenCodec(cfg.Secret)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.New()
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Authenticator{
		store:  store,
		codec:  codec,
		hasher: NewPasswordHasher(cfg.BcryptCost),
		ttl:    ttl,
		log:    logger,
		now:    time.Now,
	}, nil
}

// SetKeyToucher enables last_used_at tracking for API keys
func (a *Authenticator) SetKeyToucher(t KeyToucher) {
	a.toucher = t
}

// Hasher returns the password hasher used for login
func (a *Authenticator) Hasher() *PasswordHasher {
	return a.hasher
}

// TokenTTL returns the lifetime of tokens from IssueToken
func (a *Authenticator) TokenTTL() time.Duration {
	return a.ttl
}

// Login checks an email/password pair
func (a *Authenticator) Login(ctx context.Context, email, password string) (*User, error) {
	email = strings.TrimSpace(email)
	user, err := a.store.GetUserByEmail(ctx, email)
	if err != nil {
		if !IsNotFound(err) {
			return nil, fmt.Errorf("failed to look up user: %w", err)
		}
		a.hasher.burn(password)
		return nil, ErrInvalidCredentials
	}

	if !a.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive() {
		return nil, ErrInvalidCredentials
	}

	if rec, ok := a.store.(LoginRecorder); ok {
		if err := rec.TouchUserLogin(ctx, user.ID, a.now().UTC()); err != nil {
			a.log.WithError(err).WithField("user_id", user.ID).Warn("failed to record last login")
		}
	}

	return user, nil
}

// IssueToken mints a login token for user with the configured TTL
func (a *Authenticator) IssueToken(user *User) (string, error) {
	ttl := a.ttl
	return a.codec.Encode(claimsFor(user), &ttl)
}

// IssueServiceToken mints a token without an expiry claim
func (a *Authenticator) IssueServiceToken(user *User) (string, error) {
	return a.codec.Encode(claimsFor(user), nil)
}

func claimsFor(user *User) Claims {
	return Claims{
		Subject: user.ID,
		Email:   user.Email,
		Name:    user.Name,
	}
}

// ResolveFromToken decodes tokenString and loads the user named by its subject.
// Decode failures match both ErrUnauthorized and ErrInvalidToken.
func (a *Authenticator) ResolveFromToken(ctx context.Context, tokenString string) (*User, error) {
	claims, err := a.codec.Decode(tokenString)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	user, err := a.store.GetUserByID(ctx, claims.Subject)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if !user.IsActive() {
		return nil, ErrUnauthorized
	}

	return user, nil
}

// ResolveFromAPIKey checks value against the key store and the requested project
func (a *Authenticator) ResolveFromAPIKey(ctx context.Context, value, projectID string) (*APIKey, error) {
	if err := ValidateKeyFormat(value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	key, err := a.store.GetAPIKeyByValue(ctx, value)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrInvalidKey
		}
		return nil, fmt.Errorf("failed to look up API key: %w", err)
	}

	now := a.now()
	if !key.Usable(now) {
		reason := "key has expired"
		if !key.IsActive {
			reason = "key is inactive"
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidKey, reason)
	}
	if key.ProjectID != projectID {
		return nil, &ProjectMismatchError{ProjectID: projectID}
	}

	if a.toucher != nil {
		a.toucher.Touch(key.ID, now.UTC())
	}

	return key, nil
}
