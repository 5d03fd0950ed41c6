package auth

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// KeySetCache stores the most recently fetched key set.
// Get returns (nil, nil) on a miss or after expiry.
type KeySetCache interface {
	Get(ctx context.Context) (*KeySet, error)
	Set(ctx context.Context, keySet *KeySet, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

// MemoryKeySetCache is a process-local KeySetCache
type MemoryKeySetCache struct {
	mu        sync.RWMutex
	keySet    *KeySet
	expiresAt time.Time
	now       func() time.Time
}

// NewMemoryKeySetCache creates an empty in-memory cache
func NewMemoryKeySetCache() *MemoryKeySetCache {
	return &MemoryKeySetCache{now: time.Now}
}

// Get returns the cached key set if it has not expired
func (c *MemoryKeySetCache) Get(_ context.Context) (*KeySet, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.keySet == nil || !c.now().Before(c.expiresAt) {
		return nil, nil
	}
	return c.keySet, nil
}

// Set stores the key set until ttl elapses
func (c *MemoryKeySetCache) Set(_ context.Context, keySet *KeySet, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keySet = keySet
	c.expiresAt = c.now().Add(ttl)
	return nil
}

// Invalidate drops the cached key set
func (c *MemoryKeySetCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keySet = nil
	c.expiresAt = time.Time{}
	return nil
}

// CachingKeySetFetcher serves key sets from a KeySetCache and falls back to
// the wrapped fetcher on a miss. Concurrent misses share a single fetch.
// Cache failures are logged and never fail a verification on their own.
type CachingKeySetFetcher struct {
	next   KeySetFetcher
	cache  KeySetCache
	ttl    time.Duration
	group  singleflight.Group
	logger *zap.Logger
}

// NewCachingKeySetFetcher wraps next with cache, keeping entries for ttl
func NewCachingKeySetFetcher(next KeySetFetcher, cache KeySetCache, ttl time.Duration, logger *zap.Logger) *CachingKeySetFetcher {
	return &CachingKeySetFetcher{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

// FetchKeySet returns the cached key set or fetches a fresh one
func (f *CachingKeySetFetcher) FetchKeySet(ctx context.Context) (*KeySet, error) {
	keySet, err := f.cache.Get(ctx)
	if err != nil {
		f.logger.Warn("jwks cache read failed", zap.Error(err))
	}
	if keySet != nil {
		return keySet, nil
	}
	return f.fetch(ctx)
}

// RefreshKeySet bypasses the cache and stores the freshly fetched key set
func (f *CachingKeySetFetcher) RefreshKeySet(ctx context.Context) (*KeySet, error) {
	f.logger.Debug("refreshing jwks")
	return f.fetch(ctx)
}

func (f *CachingKeySetFetcher) fetch(ctx context.Context) (*KeySet, error) {
	// The shared fetch must not be aborted because the request that started it went away.
	fetchCtx := context.WithoutCancel(ctx)

	result := f.group.DoChan("jwks", func() (interface{}, error) {
		keySet, err := f.next.FetchKeySet(fetchCtx)
		if err != nil {
			return nil, err
		}
		if err := f.cache.Set(fetchCtx, keySet, f.ttl); err != nil {
			f.logger.Warn("jwks cache write failed", zap.Error(err))
		}
		return keySet, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-result:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*KeySet), nil
	}
}
