package cachemem

import (
	"context"
	"sync"
	"time"

	"intentd/internal/domain"
	"intentd/internal/usecase"
)

// Cache is the in-process token cache store. Entries expire with their
// token, so a hit never returns a token past its validity window.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	token     domain.IntentToken
	expiresAt time.Time
	hasExpiry bool
}

func New() *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
	}
}

func (c *Cache) Get(ctx context.Context, key string) (*domain.IntentToken, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if entry.hasExpiry && time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	token := entry.token
	return &token, true, nil
}

func (c *Cache) Put(ctx context.Context, key string, token domain.IntentToken, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := cacheEntry{token: token}
	if ttl > 0 {
		entry.hasExpiry = true
		entry.expiresAt = time.Now().Add(ttl)
	}
	c.entries[key] = entry
	return nil
}

var _ usecase.TokenCacheStore = (*Cache)(nil)
