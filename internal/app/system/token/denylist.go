package token

import (
	"context"
	"sync"
	"time"
)

// Denylist records revoked token ids (jti) until the token would have
// expired anyway.
type Denylist interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// MemoryDenylist is an in-process Denylist for single-instance deployments
// and tests. Expired entries are dropped lazily on lookup and on Revoke.
type MemoryDenylist struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryDenylist returns an empty MemoryDenylist. now may be nil.
func NewMemoryDenylist(now func() time.Time) *MemoryDenylist {
	if now == nil {
		now = time.Now
	}
	return &MemoryDenylist{entries: make(map[string]time.Time), now: now}
}

func (m *MemoryDenylist) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, until := range m.entries {
		if !now.Before(until) {
			delete(m.entries, k)
		}
	}
	m.entries[jti] = now.Add(ttl)
	return nil
}

func (m *MemoryDenylist) IsRevoked(_ context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	until, ok := m.entries[jti]
	if !ok {
		return false, nil
	}
	if !m.now().Before(until) {
		delete(m.entries, jti)
		return false, nil
	}
	return true, nil
}
