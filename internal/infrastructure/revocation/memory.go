// Package revocation holds the process-local revocation store.
package revocation

import (
	"context"
	"sync"
	"time"

	"github.com/99minutos/auth-api/internal/pkg/metrics"
)

// DefaultSweepInterval is how often Run evicts expired entries.
const DefaultSweepInterval = time.Minute

// MemoryStore is a concurrency-safe set of revoked jti values. Each entry
// remembers the expiry of its token and is evicted once that has passed.
// Contents are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Revoke adds jti to the set. A zero expiresAt keeps the entry until the
// process exits. Revoking an existing jti keeps the later expiry.
func (m *MemoryStore) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.entries[jti]; ok {
		if current.IsZero() || (!expiresAt.IsZero() && current.After(expiresAt)) {
			return nil
		}
	}
	m.entries[jti] = expiresAt
	metrics.RevocationEntries.Set(float64(len(m.entries)))
	return nil
}

// IsRevoked reports whether jti is in the set.
func (m *MemoryStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.RLock()
	_, ok := m.entries[jti]
	m.mu.RUnlock()
	return ok, nil
}

// Len returns the number of entries currently held.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Sweep evicts entries whose token expired before now and returns how many
// were removed.
func (m *MemoryStore) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for jti, exp := range m.entries {
		if !exp.IsZero() && exp.Before(now) {
			delete(m.entries, jti)
			removed++
		}
	}
	metrics.RevocationEntries.Set(float64(len(m.entries)))
	return removed
}

// Run sweeps every interval until ctx is cancelled.
func (m *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(m.now())
		}
	}
}
