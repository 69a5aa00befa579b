package jobs

import (
	"context"
	"fmt"

	"github.com/yichen/compass/backend/internal/contracts"
	"github.com/yichen/compass/backend/pkg/logger"
)

// 开盘前预热的资产类别
var warmupClasses = []string{"股票", "债券", "商品", "REITS", "货币"}

// CacheWarmupJob pre-loads the instrument list caches before trading hours
// ⭐ SSOT: 缓存预热只在这个 Job
type CacheWarmupJob struct {
	catalog contracts.InstrumentCatalog
	logger  *logger.Logger
}

// NewCacheWarmupJob creates a new cache warmup job
func NewCacheWarmupJob(catalog contracts.InstrumentCatalog, log *logger.Logger) *CacheWarmupJob {
	return &CacheWarmupJob{
		catalog: catalog,
		logger:  log,
	}
}

// Name returns the job name
func (j *CacheWarmupJob) Name() string {
	return "cache_warmup"
}

// Schedule returns the cron schedule (8:30 AM daily, before market open)
func (j *CacheWarmupJob) Schedule() string {
	return "0 30 8 * * *"
}

// Run loads the instrument lists through the caching catalog
func (j *CacheWarmupJob) Run(ctx context.Context) error {
	j.logger.Info("Starting cache warmup")

	total := 0
	for _, assetClass := range warmupClasses {
		candidates, err := j.catalog.ListInstruments(ctx, assetClass, "", 50)
		if err != nil {
			return fmt.Errorf("warm up %s list: %w", assetClass, err)
		}
		total += len(candidates)
	}

	j.logger.WithField("instruments", total).Info("Cache warmup completed")
	return nil
}
