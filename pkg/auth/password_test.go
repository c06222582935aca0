package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	hash, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$2a$"))
	assert.NotContains(t, hash, "correct horse")

	assert.True(t, h.Verify("correct horse", hash))
	assert.False(t, h.Verify("battery staple", hash))
	assert.False(t, h.Verify("", hash))
}

func TestPasswordHasher_Salted(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, h.Verify("same", a))
	assert.True(t, h.Verify("same", b))
}

func TestPasswordHasher_MalformedHash(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)
	assert.False(t, h.Verify("anything", "not-a-bcrypt-hash"))
	assert.False(t, h.Verify("anything", ""))
}

func TestNewPasswordHasher_Cost(t *testing.T) {
	assert.Equal(t, bcrypt.MinCost, NewPasswordHasher(bcrypt.MinCost).Cost())
	assert.Equal(t, DefaultBcryptCost, NewPasswordHasher(0).Cost())
	assert.Equal(t, DefaultBcryptCost, NewPasswordHasher(bcrypt.MaxCost+1).Cost())
}
