// Package cache records which webhook deliveries have already been handled
// so a redelivered event is acknowledged without being processed twice.
package cache

import (
	"context"
	"sync"
	"time"
)

// DefaultEventTTL covers Stripe's retry window for a failed delivery.
const DefaultEventTTL = 72 * time.Hour

// Deduper claims event ids.
type Deduper interface {
	// Claim returns true if key had not been claimed within the TTL and
	// marks it claimed.
	Claim(ctx context.Context, key string) (bool, error)

	// Release forgets key so a later redelivery is processed again.
	Release(ctx context.Context, key string) error
}

// MemoryDeduper is a process-local Deduper used when no Redis is configured.
// Claim sweeps expired entries at most once per sweepInterval; lookups
// check expiry themselves.
type MemoryDeduper struct {
	mu        sync.Mutex
	seen      map[string]time.Time
	ttl       time.Duration
	nextSweep time.Time
	now       func() time.Time
}

const sweepInterval = 10 * time.Minute

// NewMemoryDeduper creates an in-memory Deduper.
func NewMemoryDeduper(ttl time.Duration) *MemoryDeduper {
	if ttl <= 0 {
		ttl = DefaultEventTTL
	}
	return &MemoryDeduper{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (m *MemoryDeduper) Claim(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if exp, ok := m.seen[key]; ok && now.Before(exp) {
		return false, nil
	}

	if !now.Before(m.nextSweep) {
		m.sweep(now)
	}

	m.seen[key] = now.Add(m.ttl)
	return true, nil
}

// sweep drops expired claims. Callers hold mu.
func (m *MemoryDeduper) sweep(now time.Time) {
	for k, exp := range m.seen {
		if !now.Before(exp) {
			delete(m.seen, k)
		}
	}
	m.nextSweep = now.Add(sweepInterval)
}

func (m *MemoryDeduper) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, key)
	return nil
}
