// Package password hashes and verifies identity secrets with bcrypt.
//
// Every Hash call uses a fresh salt, so hashing the same plaintext twice
// yields different digests. Verification uses bcrypt's constant-time
// comparison and reports a plain bool; callers never learn why a
// comparison failed.
package password

import (
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/dalemusser/confhub/internal/app/system/apperr"
	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = 12

const (
	MinLength = 8
	MaxLength = 72 // bcrypt ignores anything past 72 bytes
)

// Hasher hashes and verifies passwords at a fixed bcrypt cost.
type Hasher struct {
	cost int

	dummyOnce sync.Once
	dummy     []byte
}

// New returns a Hasher. Costs outside bcrypt's supported range are clamped.
func New(cost int) *Hasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{cost: cost}
}

// Cost returns the configured work factor.
func (h *Hasher) Cost() int { return h.cost }

// Hash returns a salted bcrypt digest of plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest.
func (h *Hasher) Verify(plaintext, digest string) bool {
	if digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// VerifyOrDummy behaves like Verify, but when digest is empty (the identity
// was not found) it still spends a full comparison against a throwaway
// digest before returning false. Login paths use it so that "unknown
// identifier" and "wrong password" cost the same.
func (h *Hasher) VerifyOrDummy(plaintext, digest string) bool {
	if digest != "" {
		return h.Verify(plaintext, digest)
	}
	_ = bcrypt.CompareHashAndPassword(h.dummyDigest(), []byte(plaintext))
	return false
}

func (h *Hasher) dummyDigest() []byte {
	h.dummyOnce.Do(func() {
		buf := make([]byte, 18)
		_, _ = rand.Read(buf)
		// A 36-byte input is always accepted by bcrypt.
		h.dummy, _ = bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(buf)), h.cost)
	})
	return h.dummy
}

// CheckStrength validates length limits for a new password.
func CheckStrength(plaintext string) error {
	if len(plaintext) < MinLength {
		return apperr.Validation("password", "must be at least 8 characters")
	}
	if len(plaintext) > MaxLength {
		return apperr.Validation("password", "must be at most 72 bytes")
	}
	return nil
}
