package catalog

import (
	"context"
	"time"

	"github.com/yichen/compass/backend/internal/contracts"
	"github.com/yichen/compass/backend/pkg/logger"
	"github.com/yichen/compass/backend/pkg/redis"
)

// CachedCatalog wraps an InstrumentCatalog with read-through Redis caching.
// 缓存未命中或 Redis 不可用时直接落到底层仓库, 缓存故障绝不阻断查询.
// ⭐ SSOT: 目录缓存策略只在这里
type CachedCatalog struct {
	inner  contracts.InstrumentCatalog
	cache  *redis.Cache
	logger *logger.Logger
}

// NewCachedCatalog creates a caching decorator over a catalog
func NewCachedCatalog(inner contracts.InstrumentCatalog, cache *redis.Cache, log *logger.Logger) *CachedCatalog {
	return &CachedCatalog{
		inner:  inner,
		cache:  cache,
		logger: log,
	}
}

// ListInstruments serves instrument lists from cache with a medium TTL
func (c *CachedCatalog) ListInstruments(ctx context.Context, assetClass, sector string, limit int) ([]contracts.InstrumentCandidate, error) {
	key := redis.InstrumentListKey(assetClass, sector, limit)

	var cached []contracts.InstrumentCandidate
	if hit, err := c.cache.Get(ctx, key, &cached); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Catalog cache read failed")
	} else if hit {
		return cached, nil
	}

	out, err := c.inner.ListInstruments(ctx, assetClass, sector, limit)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, out, redis.TTLMedium); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Catalog cache write failed")
	}
	return out, nil
}

// SearchInstruments is not cached. 关键词组合太多, 缓存命中率低
func (c *CachedCatalog) SearchInstruments(ctx context.Context, keyword string, limit int) ([]contracts.InstrumentCandidate, error) {
	return c.inner.SearchInstruments(ctx, keyword, limit)
}

// GetInstrument serves instrument detail from cache with a long TTL
func (c *CachedCatalog) GetInstrument(ctx context.Context, code string) (*contracts.InstrumentCandidate, error) {
	key := redis.InstrumentKey(code)

	var cached contracts.InstrumentCandidate
	if hit, err := c.cache.Get(ctx, key, &cached); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Catalog cache read failed")
	} else if hit {
		return &cached, nil
	}

	out, err := c.inner.GetInstrument(ctx, code)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, out, redis.TTLLong); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Catalog cache write failed")
	}
	return out, nil
}

// GetPriceSeries serves price history from cache with a daily TTL.
// 历史净值当日不变, 按自然日缓存
func (c *CachedCatalog) GetPriceSeries(ctx context.Context, code string, start, end time.Time) (*contracts.PriceSeries, error) {
	key := redis.PriceSeriesKey(code, start.Format("2006-01-02"), end.Format("2006-01-02"))

	var cached contracts.PriceSeries
	if hit, err := c.cache.Get(ctx, key, &cached); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Catalog cache read failed")
	} else if hit {
		return &cached, nil
	}

	out, err := c.inner.GetPriceSeries(ctx, code, start, end)
	if err != nil {
		return nil, err
	}

	if out.Len() > 0 {
		if err := c.cache.Set(ctx, key, out, redis.TTLDaily); err != nil {
			c.logger.WithError(err).WithField("key", key).Warn("Catalog cache write failed")
		}
	}
	return out, nil
}

// GetBenchmarkSeries serves benchmark history from cache with a daily TTL
func (c *CachedCatalog) GetBenchmarkSeries(ctx context.Context, indexCode string, start, end time.Time) (*contracts.PriceSeries, error) {
	key := redis.PriceSeriesKey(indexCode, start.Format("2006-01-02"), end.Format("2006-01-02"))

	var cached contracts.PriceSeries
	if hit, err := c.cache.Get(ctx, key, &cached); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Catalog cache read failed")
	} else if hit {
		return &cached, nil
	}

	out, err := c.inner.GetBenchmarkSeries(ctx, indexCode, start, end)
	if err != nil {
		return nil, err
	}

	if out.Len() > 0 {
		if err := c.cache.Set(ctx, key, out, redis.TTLDaily); err != nil {
			c.logger.WithError(err).WithField("key", key).Warn("Catalog cache write failed")
		}
	}
	return out, nil
}
