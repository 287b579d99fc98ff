package crypto

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// CodeCost is the bcrypt cost used for short-lived one-time codes
const CodeCost = 10

// SecretHasher hashes secrets one-way and verifies them without leaking timing.
type SecretHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// BcryptHasher is a SecretHasher backed by bcrypt
type BcryptHasher struct {
	Cost int
}

// NewCodeHasher returns the hasher used for verification and reset codes
func NewCodeHasher() *BcryptHasher {
	return &BcryptHasher{Cost: CodeCost}
}

// NewPasswordHasher returns the hasher used for account passwords
func NewPasswordHasher() *BcryptHasher {
	return &BcryptHasher{Cost: DefaultCost}
}

// Hash hashes plaintext with the configured cost
func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	bytes, err := bcryptGenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(bytes), nil
}

// Verify reports whether plaintext matches digest
func (h *BcryptHasher) Verify(plaintext, digest string) bool {
	if digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
