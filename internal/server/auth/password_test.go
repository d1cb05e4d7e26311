package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_HashAndVerify(t *testing.T) {
	t.Parallel()

	h := NewBcryptHasher(bcrypt.MinCost)
	hash, err := h.Hash("longenough1")
	require.NoError(t, err)

	assert.NotEqual(t, "longenough1", hash)
	assert.True(t, h.Verify("longenough1", hash))
	assert.False(t, h.Verify("longenough2", hash))
	assert.False(t, h.Verify("", hash))
}

func TestBcryptHasher_SaltedHashesDiffer(t *testing.T) {
	t.Parallel()

	h := NewBcryptHasher(bcrypt.MinCost)
	a, err := h.Hash("same-password")
	require.NoError(t, err)
	b, err := h.Hash("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, h.Verify("same-password", a))
	assert.True(t, h.Verify("same-password", b))
}

func TestBcryptHasher_VerifyMalformedHash(t *testing.T) {
	t.Parallel()

	assert.False(t, NewBcryptHasher(bcrypt.MinCost).Verify("pw", "not-a-bcrypt-hash"))
}

func TestBcryptHasher_DefaultCostEmbeddedInHash(t *testing.T) {
	t.Parallel()

	h := NewBcryptHasher(0)
	require.Equal(t, DefaultBcryptCost, h.Cost())

	hash, err := h.Hash("longenough1")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, DefaultBcryptCost, cost)
}

func TestNewBcryptHasher_ClampsCost(t *testing.T) {
	t.Parallel()

	assert.Equal(t, bcrypt.MinCost, NewBcryptHasher(1).Cost())
	assert.Equal(t, bcrypt.MaxCost, NewBcryptHasher(99).Cost())
}
