package jobs

import (
	"context"
	"fmt"

	"github.com/yichen/compass/backend/internal/contracts"
	"github.com/yichen/compass/backend/pkg/logger"
)

// StrategyLister yields ids of strategies to refresh
type StrategyLister interface {
	ListRecentIDs(ctx context.Context, limit int) ([]int64, error)
}

// Backtester reruns a backtest and persists the result
type Backtester interface {
	Backtest(ctx context.Context, strategyID int64, days int) (*contracts.BacktestResult, error)
}

// RebacktestJob refreshes the stored backtest of recently updated strategies
// ⭐ SSOT: 夜间回测重跑只在这个 Job
type RebacktestJob struct {
	lister     StrategyLister
	backtester Backtester
	logger     *logger.Logger

	batchSize int
	days      int
}

// NewRebacktestJob creates a new nightly re-backtest job
func NewRebacktestJob(lister StrategyLister, backtester Backtester, log *logger.Logger) *RebacktestJob {
	return &RebacktestJob{
		lister:     lister,
		backtester: backtester,
		logger:     log,
		batchSize:  100,
		days:       365,
	}
}

// Name returns the job name
func (j *RebacktestJob) Name() string {
	return "strategy_rebacktest"
}

// Schedule returns the cron schedule (8 PM daily, after price data settles)
func (j *RebacktestJob) Schedule() string {
	return "0 0 20 * * *"
}

// Run reruns the backtest for each strategy in the batch.
// 单个策略失败只记日志, 不中断整批
func (j *RebacktestJob) Run(ctx context.Context) error {
	j.logger.Info("Starting nightly re-backtest")

	ids, err := j.lister.ListRecentIDs(ctx, j.batchSize)
	if err != nil {
		return fmt.Errorf("list strategies: %w", err)
	}

	var failed int
	for _, id := range ids {
		if _, err := j.backtester.Backtest(ctx, id, j.days); err != nil {
			failed++
			j.logger.WithError(err).WithStrategy(id).Warn("Re-backtest failed")
		}
	}

	j.logger.WithFields(map[string]interface{}{
		"total":  len(ids),
		"failed": failed,
	}).Info("Nightly re-backtest completed")

	if failed > 0 && failed == len(ids) {
		return fmt.Errorf("all %d re-backtests failed", failed)
	}
	return nil
}
