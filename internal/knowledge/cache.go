package knowledge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
)

const (
	cacheNumCounters = 1e5
	cacheMaxCost     = 1 << 24 // 16MB
	cacheBufferItems = 64
	defaultCacheTTL  = 5 * time.Minute
)

// CachedQuerier wraps a Querier with a ristretto result cache keyed on the
// filter. Knowledge records change rarely, so repeated questions about the
// same keywords skip the backing store.
type CachedQuerier struct {
	inner Querier
	cache *ristretto.Cache
	ttl   time.Duration
}

// NewCachedQuerier decorates inner with a result cache. ttl <= 0 uses the
// default of five minutes.
func NewCachedQuerier(inner Querier, ttl time.Duration) (*CachedQuerier, error) {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cacheNumCounters,
		MaxCost:     cacheMaxCost,
		BufferItems: cacheBufferItems,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create query cache: %w", err)
	}
	return &CachedQuerier{inner: inner, cache: cache, ttl: ttl}, nil
}

func (c *CachedQuerier) Courses(ctx context.Context, f Filter) ([]Course, error) {
	key := cacheKey("courses", f)
	if v, ok := c.cache.Get(key); ok {
		if records, ok := v.([]Course); ok {
			return records, nil
		}
	}
	records, err := c.inner.Courses(ctx, f)
	if err != nil {
		return nil, err
	}
	c.cache.SetWithTTL(key, records, int64(len(records)+1), c.ttl)
	return records, nil
}

func (c *CachedQuerier) QAs(ctx context.Context, f Filter) ([]QA, error) {
	key := cacheKey("qas", f)
	if v, ok := c.cache.Get(key); ok {
		if records, ok := v.([]QA); ok {
			return records, nil
		}
	}
	records, err := c.inner.QAs(ctx, f)
	if err != nil {
		return nil, err
	}
	c.cache.SetWithTTL(key, records, int64(len(records)+1), c.ttl)
	return records, nil
}

// Wait flushes pending cache writes. Used by tests; production callers never
// need it.
func (c *CachedQuerier) Wait() {
	c.cache.Wait()
}

func cacheKey(collection string, f Filter) string {
	return collection + "|" + f.Field + "|" + strings.Join(f.Terms, "\x1f")
}
