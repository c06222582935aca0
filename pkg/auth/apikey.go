package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// KeyPrefix identifies baynext API keys
	KeyPrefix = "bnx_"
	// KeyLength is the number of random bytes in a key (32 bytes = 256 bits)
	KeyLength = 32
	// displayChars is how much of the encoded secret is kept for display
	displayChars = 8
)

// KeyGenerator creates API key secrets
type KeyGenerator struct {
	now func() time.Time
}

// NewKeyGenerator creates a new key generator
func NewKeyGenerator() *KeyGenerator {
	return &KeyGenerator{now: time.Now}
}

// GenerateKey creates a new secret.
// Format: bnx_<base64url(32 random bytes)>
func (g *KeyGenerator) GenerateKey() (value string, hash string, prefix string, err error) {
	randomBytes := make([]byte, KeyLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	encoded := base64.RawURLEncoding.EncodeToString(randomBytes)
	value = KeyPrefix + encoded

	return value, HashAPIKey(value), KeyPrefix + encoded[:displayChars], nil
}

// NewKeyRequest describes a key to create
type NewKeyRequest struct {
	ProjectID   string
	Name        string
	Description string
	Permissions []string
	ExpiresAt   *time.Time
}

// NewKey builds an active key record for req and returns it with the secret value.
// The value is not recoverable from the record.
func (g *KeyGenerator) NewKey(req NewKeyRequest) (*APIKey, string, error) {
	if req.ProjectID == "" {
		return nil, "", fmt.Errorf("project id is required")
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, "", fmt.Errorf("key name is required")
	}

	value, hash, prefix, err := g.GenerateKey()
	if err != nil {
		return nil, "", err
	}

	now := g.now().UTC()
	perms := req.Permissions
	if perms == nil {
		perms = []string{}
	}
	return &APIKey{
		ID:          uuid.NewString(),
		ProjectID:   req.ProjectID,
		Hash:        hash,
		Prefix:      prefix,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Permissions: perms,
		IsActive:    true,
		ExpiresAt:   req.ExpiresAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, value, nil
}

// HashAPIKey computes the SHA256 hash used to look a key up
func HashAPIKey(value string) string {
	hash := sha256.Sum256([]byte(value))
	return hex.EncodeToString(hash[:])
}

// ValidateKeyFormat checks if a key has the correct format
func ValidateKeyFormat(value string) error {
	if !strings.HasPrefix(value, KeyPrefix) {
		return fmt.Errorf("key must start with %q", KeyPrefix)
	}

	encoded := strings.TrimPrefix(value, KeyPrefix)
	if len(encoded) == 0 {
		return fmt.Errorf("key is too short")
	}

	if _, err := base64.RawURLEncoding.DecodeString(encoded); err != nil {
		return fmt.Errorf("invalid key encoding: %w", err)
	}

	return nil
}
