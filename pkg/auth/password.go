package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor used for new password hashes
const DefaultBcryptCost = 12

// PasswordHasher hashes and verifies user passwords with bcrypt
type PasswordHasher struct {
	cost int
	// dummy is compared against when the account does not exist so that
	// unknown emails take as long as wrong passwords.
	dummy []byte
}

// NewPasswordHasher creates a hasher. A cost outside bcrypt's range falls back to DefaultBcryptCost.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("baynext-timing-guard"), cost)
	if err != nil {
		dummy = nil
	}
	return &PasswordHasher{cost: cost, dummy: dummy}
}

// Cost returns the configured work factor
func (h *PasswordHasher) Cost() int {
	return h.cost
}

// Hash returns a salted bcrypt hash of plain
func (h *PasswordHasher) Hash(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plain matches hash. It never returns an error:
// a malformed hash is simply a mismatch.
func (h *PasswordHasher) Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// burn runs a comparison whose result is discarded
func (h *PasswordHasher) burn(plain string) {
	if h.dummy == nil {
		return
	}
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plain))
}
