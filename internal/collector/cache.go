package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"SmartPick/internal/model"
)

// CachingFetcher decorates a Fetcher with Redis caching of decoded candles.
// A nil client bypasses the cache; cache failures never fail a fetch.
type CachingFetcher struct {
	inner     Fetcher
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

// NewCachingFetcher wraps inner. If ttl is 0 it defaults to 30 minutes.
func NewCachingFetcher(rdb *redis.Client, ttl time.Duration, inner Fetcher) *CachingFetcher {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &CachingFetcher{inner: inner, rdb: rdb, ttl: ttl, namespace: "smartpick:candles"}
}

func (c *CachingFetcher) Name() string { return c.inner.Name() + "+redis" }

// FetchCandles checks the cache first then falls back to the inner fetcher.
func (c *CachingFetcher) FetchCandles(ctx context.Context, inst model.Instrument) ([]model.Candle, error) {
	if c.rdb == nil {
		return c.inner.FetchCandles(ctx, inst)
	}

	key := c.cacheKey(inst)
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out []model.Candle
		if err := json.Unmarshal(b, &out); err == nil {
			return out, nil
		}
		_ = c.rdb.Del(ctx, key).Err()
	}

	out, err := c.inner.FetchCandles(ctx, inst)
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(out); err == nil {
		_ = c.rdb.Set(ctx, key, b, c.ttl).Err()
	}
	return out, nil
}

func (c *CachingFetcher) cacheKey(inst model.Instrument) string {
	return fmt.Sprintf("%s:%s", c.namespace, inst.Symbol())
}
