package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor used for newly stored password hashes.
const DefaultBcryptCost = 12

// CredentialVerifier compares a plaintext password with a stored hash.
// A mismatch is reported as false, never as an error.
type CredentialVerifier interface {
	Verify(plaintext, storedHash string) bool
}

// PasswordHasher produces hashes that a CredentialVerifier can check.
type PasswordHasher interface {
	CredentialVerifier
	Hash(plaintext string) (string, error)
}

// BcryptHasher hashes and verifies passwords with bcrypt. The salt and the
// cost are encoded in the hash itself, so verification needs no extra state.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher using cost, clamped to bcrypt's allowed
// range. Zero selects DefaultBcryptCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	switch {
	case cost == 0:
		cost = DefaultBcryptCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Cost() int {
	return h.cost
}

func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (h *BcryptHasher) Verify(plaintext, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(plaintext)) == nil
}
