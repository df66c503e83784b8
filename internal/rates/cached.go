package rates

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"jewelquote/internal/pricing"
)

const snapshotCacheKey = "rate_snapshot"

type cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// CachedProvider wraps a Provider with redis cache-aside. A cache miss or a
// broken cache entry falls through to the inner provider; a failed write-back
// is logged and ignored so a flaky redis never blocks quoting.
type CachedProvider struct {
	inner  Provider
	cache  cache
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedProvider(inner Provider, cache cache, ttl time.Duration, logger *zap.Logger) *CachedProvider {
	return &CachedProvider{
		inner:  inner,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

func (p *CachedProvider) Rates(ctx context.Context) (pricing.RateSnapshot, error) {
	if cached, err := p.cache.Get(ctx, snapshotCacheKey); err == nil {
		var snapshot pricing.RateSnapshot
		if err := json.Unmarshal(cached, &snapshot); err == nil {
			return snapshot, nil
		}
	}

	snapshot, err := p.inner.Rates(ctx)
	if err != nil {
		return pricing.RateSnapshot{}, err
	}

	if data, err := json.Marshal(snapshot); err == nil {
		if err := p.cache.Set(ctx, snapshotCacheKey, data, p.ttl); err != nil {
			p.logger.Warn("Failed to cache rate snapshot", zap.Error(err))
		}
	}

	return snapshot, nil
}

// Invalidate drops the cached snapshot; called after a rate upsert so the
// next quote prices against fresh rates.
func (p *CachedProvider) Invalidate(ctx context.Context) {
	if err := p.cache.Del(ctx, snapshotCacheKey); err != nil {
		p.logger.Warn("Failed to invalidate rate snapshot cache", zap.Error(err))
	}
}
