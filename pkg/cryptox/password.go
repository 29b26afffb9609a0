package cryptox

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Bcrypt cost bounds. Production configuration never goes below
// DefaultBcryptCost, tests may use bcrypt.MinCost to stay fast.
const (
	DefaultBcryptCost = 12
	MinBcryptCost     = bcrypt.MinCost
	MaxBcryptCost     = bcrypt.MaxCost
)

// ErrInvalidCost is returned for a bcrypt cost outside [MinBcryptCost, MaxBcryptCost].
var ErrInvalidCost = errors.New("cryptox: invalid bcrypt cost")

// PasswordHasher hashes and verifies user passwords with bcrypt.
//
// Passwords are pre-hashed with HMAC-SHA256 keyed by the pepper before
// bcrypt sees them. That keeps the pepper out of the database and lifts
// bcrypt's 72 byte input limit, so Hash accepts passwords of any length.
type PasswordHasher struct {
	cost   int
	pepper []byte
	dummy  []byte
}

// NewPasswordHasher builds a hasher. A zero cost selects DefaultBcryptCost.
// The pepper may be empty.
func NewPasswordHasher(cost int, pepper []byte) (*PasswordHasher, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	if cost < MinBcryptCost || cost > MaxBcryptCost {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCost, cost)
	}

	h := &PasswordHasher{cost: cost, pepper: append([]byte(nil), pepper...)}

	// Used by VerifyDummy so unknown accounts cost the same as known ones.
	dummy, err := bcrypt.GenerateFromPassword(h.prehash("inkwell-dummy-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("cryptox: generate dummy hash: %w", err)
	}
	h.dummy = dummy

	return h, nil
}

// Cost returns the bcrypt work factor used for new hashes.
func (h *PasswordHasher) Cost() int { return h.cost }

// Hash returns the bcrypt encoding of password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	out, err := bcrypt.GenerateFromPassword(h.prehash(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("cryptox: hash password: %w", err)
	}
	return string(out), nil
}

// Verify reports whether password matches hash. Malformed or empty hashes
// never match.
func (h *PasswordHasher) Verify(password, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), h.prehash(password)) == nil
}

// VerifyDummy performs one full bcrypt comparison against a fixed hash and
// discards the result.
func (h *PasswordHasher) VerifyDummy(password string) {
	_ = bcrypt.CompareHashAndPassword(h.dummy, h.prehash(password))
}

// NeedsRehash reports whether hash was produced with a lower cost than the
// hasher is configured for.
func (h *PasswordHasher) NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return true
	}
	return cost < h.cost
}

func (h *PasswordHasher) prehash(password string) []byte {
	mac := hmac.New(sha256.New, h.pepper)
	mac.Write([]byte(password))
	sum := mac.Sum(nil)

	out := make([]byte, base64.RawStdEncoding.EncodedLen(len(sum)))
	base64.RawStdEncoding.Encode(out, sum)
	return out
}
