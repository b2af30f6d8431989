package oauth

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// State store kinds accepted by NewStateCache.
const (
	StateStoreNone   = "none"
	StateStoreMemory = "memory"
	StateStoreRedis  = "redis"
)

// StateCache records that a user started a connect for a provider so that the
// callback can require a matching, single-use marker.
type StateCache interface {
	Issue(ctx context.Context, provider, userID string, ttl time.Duration) error
	// Consume removes the marker and reports whether it existed and was live.
	Consume(ctx context.Context, provider, userID string) (bool, error)
}

// NewStateCache returns the cache selected by kind.
func NewStateCache(ctx context.Context, kind, redisURL string) (StateCache, error) {
	switch kind {
	case "", StateStoreNone:
		return NopStateCache{}, nil
	case StateStoreMemory:
		return NewMemoryStateCache(), nil
	case StateStoreRedis:
		return NewRedisStateCache(ctx, redisURL)
	default:
		return nil, fmt.Errorf("unknown state store %q", kind)
	}
}

func stateKey(provider, userID string) string {
	return "fitlink:state:" + provider + ":" + userID
}

// NopStateCache tracks nothing; every Consume succeeds.
type NopStateCache struct{}

func (NopStateCache) Issue(context.Context, string, string, time.Duration) error { return nil }

func (NopStateCache) Consume(context.Context, string, string) (bool, error) { return true, nil }

// MemoryStateCache keeps markers in process memory. Suitable for a single instance.
type MemoryStateCache struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryStateCache returns an empty in-memory cache.
func NewMemoryStateCache() *MemoryStateCache {
	return &MemoryStateCache{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (m *MemoryStateCache) Issue(_ context.Context, provider, userID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, exp := range m.entries {
		if !now.Before(exp) {
			delete(m.entries, k)
		}
	}
	m.entries[stateKey(provider, userID)] = now.Add(ttl)
	return nil
}

func (m *MemoryStateCache) Consume(_ context.Context, provider, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := stateKey(provider, userID)
	exp, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	delete(m.entries, key)
	return m.now().Before(exp), nil
}
