package data

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"sentiment-backtest/internal/logger"
	"sentiment-backtest/internal/model"
)

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is an in-memory map whose entries expire after a fixed TTL.
// A nil *TTLCache never stores anything.
type TTLCache[V any] struct {
	mu    sync.RWMutex
	store map[string]cacheEntry[V]
	ttl   time.Duration
	now   func() time.Time
}

func NewTTLCache[V any](ttl time.Duration) *TTLCache[V] {
	return &TTLCache[V]{
		store: make(map[string]cacheEntry[V]),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Get retrieves a value if present and not expired.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.store[key]
	if !ok || c.now().After(e.expiresAt) {
		return zero, false
	}
	return e.value, true
}

func (c *TTLCache[V]) Set(key string, v V) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.store[key] = cacheEntry[V]{value: v, expiresAt: c.now().Add(c.ttl)}
}

// Clear removes all entries.
func (c *TTLCache[V]) Clear() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.store = make(map[string]cacheEntry[V])
}

func (c *TTLCache[V]) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Prune drops expired entries and returns how many were removed.
func (c *TTLCache[V]) Prune() int {
	if c == nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	for k, e := range c.store {
		if now.After(e.expiresAt) {
			delete(c.store, k)
			n++
		}
	}
	return n
}

// RunJanitor prunes the cache every interval until ctx is done.
func (c *TTLCache[V]) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Prune()
		}
	}
}

// CachedSource memoizes successful lookups of another Source.
// Failures are never cached.
type CachedSource struct {
	next  Source
	cache *TTLCache[[]model.PricePoint]
	log   *slog.Logger
}

func NewCachedSource(next Source, ttl time.Duration, l *slog.Logger) *CachedSource {
	return &CachedSource{
		next:  next,
		cache: NewTTLCache[[]model.PricePoint](ttl),
		log:   logger.Component(l, "price-cache"),
	}
}

func (s *CachedSource) Cache() *TTLCache[[]model.PricePoint] { return s.cache }

// Unwrap returns the wrapped source.
func (s *CachedSource) Unwrap() Source { return s.next }

func (s *CachedSource) PriceSeries(ctx context.Context, instrument string, start, end time.Time) ([]model.PricePoint, error) {
	key := CacheKey(instrument, start, end)
	if pts, ok := s.cache.Get(key); ok {
		s.log.Debug("cache hit", slog.String("instrument", instrument), slog.Int("points", len(pts)))
		return clonePoints(pts), nil
	}

	pts, err := s.next.PriceSeries(ctx, instrument, start, end)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, clonePoints(pts))
	return pts, nil
}

// CacheKey derives a fixed-size key from a series request.
func CacheKey(instrument string, start, end time.Time) string {
	keyStr := fmt.Sprintf("%s:%s:%s", normalizeSymbol(instrument), fmtDay(start), fmtDay(end))
	hash := sha256.Sum256([]byte(keyStr))
	return hex.EncodeToString(hash[:])
}

func clonePoints(pts []model.PricePoint) []model.PricePoint {
	return append([]model.PricePoint(nil), pts...)
}
