package service

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/auth-api/internal/pkg/metrics"
)

// dummyPassword is hashed once per hasher so that logins for unknown
// usernames still pay for one bcrypt comparison.
const dummyPassword = "dummy-password-for-timing-equalization"

// PasswordHasher hashes and verifies passwords with bcrypt.
type PasswordHasher struct {
	cost  int
	dummy string
}

// NewPasswordHasher returns a PasswordHasher using cost, or bcrypt.DefaultCost
// when cost is outside bcrypt's accepted range.
func NewPasswordHasher(cost int) (*PasswordHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	h := &PasswordHasher{cost: cost}
	dummy, err := h.Hash(dummyPassword)
	if err != nil {
		return nil, err
	}
	h.dummy = dummy
	return h, nil
}

// Hash returns a salted bcrypt hash of password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	start := time.Now()
	defer func() {
		metrics.PasswordHashDuration.WithLabelValues("hash").Observe(time.Since(start).Seconds())
	}()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether password matches hash. A malformed hash is a mismatch.
func (h *PasswordHasher) Verify(password, hash string) bool {
	start := time.Now()
	defer func() {
		metrics.PasswordHashDuration.WithLabelValues("verify").Observe(time.Since(start).Seconds())
	}()

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// burn spends the same work as a real Verify; the outcome is discarded.
func (h *PasswordHasher) burn(password string) {
	_ = h.Verify(password, h.dummy)
}
