package commands

import (
	"fmt"

	"github.com/yichen/compass/backend/internal/allocation"
	"github.com/yichen/compass/backend/internal/backtest"
	"github.com/yichen/compass/backend/internal/catalog"
	"github.com/yichen/compass/backend/internal/contracts"
	"github.com/yichen/compass/backend/internal/external/sina"
	"github.com/yichen/compass/backend/internal/optimizer"
	"github.com/yichen/compass/backend/internal/strategy"
	"github.com/yichen/compass/backend/internal/universe"
	"github.com/yichen/compass/backend/pkg/config"
	"github.com/yichen/compass/backend/pkg/database"
	"github.com/yichen/compass/backend/pkg/httputil"
	"github.com/yichen/compass/backend/pkg/logger"
	"github.com/yichen/compass/backend/pkg/redis"
)

// deps bundles the shared wiring every command needs
// ⭐ SSOT: 依赖装配只在这个文件
type deps struct {
	cfg         *config.Config
	log         *logger.Logger
	db          *database.DB
	redisClient *redis.Client
	cache       *redis.Cache
	catalog     contracts.InstrumentCatalog
	repo        *strategy.Repository
	service     *strategy.Service
	news        *sina.Client
}

// initDeps loads config and wires the full strategy stack
func initDeps() (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	redisClient, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	// 缓存可选, Redis 关闭时目录层直连数据库
	var cache *redis.Cache
	var cat contracts.InstrumentCatalog = catalog.NewRepository(db.Pool)
	if redisClient.Enabled() {
		cache = redis.NewCache(redisClient, "compass")
		cat = catalog.NewCachedCatalog(cat, cache, log)
	}

	repo := strategy.NewRepository(db.Pool)
	service := strategy.NewService(
		universe.NewBuilder(cat, universe.DefaultConfig(), log),
		allocation.NewEngine(allocation.DefaultPolicy(), log),
		optimizer.NewOptimizer(optimizer.DefaultPolicy(), log),
		backtest.NewSimulator(cat, backtest.DefaultConfig(), log),
		repo,
		cfg.Backtest,
		log,
	)

	httpClient := httputil.NewWithTimeout(log, cfg.News.RequestTimeout)
	if redisClient.Enabled() {
		httpClient = httpClient.WithRateLimiter(redis.NewRateLimiter(redisClient, "compass"), redis.NewsRateLimit)
	}
	news := sina.NewClient(cfg.News, httpClient, cache, log)

	return &deps{
		cfg:         cfg,
		log:         log,
		db:          db,
		redisClient: redisClient,
		cache:       cache,
		catalog:     cat,
		repo:        repo,
		service:     service,
		news:        news,
	}, nil
}

// Close releases database and redis connections
func (d *deps) Close() {
	d.redisClient.Close()
	d.db.Close()
}
