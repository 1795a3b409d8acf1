package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ArtVersex/art-verse-v1-sub000/pkg/logger"
	pkgredis "github.com/ArtVersex/art-verse-v1-sub000/pkg/redis"
)

const defaultCacheTTL = 30 * time.Second

type cacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CatalogKey(productID string) string
}

// Cached serves snapshots from Redis and falls back to next on a miss.
// Concurrent misses for one product share a single upstream read. Stock
// read through the cache may be stale by up to the TTL, so mutations that
// enforce stock must use the uncached catalog.
type Cached struct {
	next  Catalog
	cache cacheStore
	ttl   time.Duration
	logg  *logger.Logger
	sfg   singleflight.Group
}

func NewCached(next Catalog, cache *pkgredis.Client, ttl time.Duration, logg *logger.Logger) (*Cached, error) {
	if next == nil {
		return nil, fmt.Errorf("upstream catalog is required")
	}
	if cache == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return newCached(next, cache, ttl, logg), nil
}

func newCached(next Catalog, cache cacheStore, ttl time.Duration, logg *logger.Logger) *Cached {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Cached{next: next, cache: cache, ttl: ttl, logg: logg}
}

func (c *Cached) GetProductSnapshot(ctx context.Context, productID string) (*ProductSnapshot, error) {
	v, err, _ := c.sfg.Do(productID, func() (interface{}, error) {
		key := c.cache.CatalogKey(productID)
		raw, err := c.cache.Get(ctx, key)
		if err == nil {
			var snapshot ProductSnapshot
			if decodeErr := json.Unmarshal([]byte(raw), &snapshot); decodeErr == nil {
				return &snapshot, nil
			}
		} else if !pkgredis.IsMiss(err) {
			c.logg.WarnErr(c.logg.WithProductID(ctx, productID), "catalog cache read failed", err)
		}

		snapshot, err := c.next.GetProductSnapshot(ctx, productID)
		if err != nil || snapshot == nil {
			return snapshot, err
		}
		if payload, encodeErr := json.Marshal(snapshot); encodeErr == nil {
			if setErr := c.cache.Set(ctx, key, string(payload), c.jitteredTTL()); setErr != nil {
				c.logg.WarnErr(c.logg.WithProductID(ctx, productID), "catalog cache write failed", setErr)
			}
		}
		return snapshot, nil
	})
	if err != nil {
		return nil, err
	}
	snapshot, _ := v.(*ProductSnapshot)
	if snapshot == nil {
		return nil, nil
	}
	return snapshot.Clone(), nil
}

// Invalidate drops the cached snapshot for productID.
func (c *Cached) Invalidate(ctx context.Context, productID string) error {
	return c.cache.Del(ctx, c.cache.CatalogKey(productID))
}

func (c *Cached) jitteredTTL() time.Duration {
	jitter := time.Duration(rand.Int63n(int64(c.ttl)/10 + 1))
	return c.ttl + jitter
}
