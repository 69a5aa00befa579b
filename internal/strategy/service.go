package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/yichen/compass/backend/internal/contracts"
	"github.com/yichen/compass/backend/pkg/config"
	"github.com/yichen/compass/backend/pkg/logger"
)

// Service orchestrates the strategy pipeline: universe → allocation →
// feedback optimization → backtest → persistence.
// ⭐ SSOT: 策略编排只在这里, 各组件本身保持纯函数
type Service struct {
	universe  contracts.UniverseBuilder
	allocator contracts.Allocator
	optimizer contracts.Optimizer
	simulator contracts.Simulator
	store     contracts.StrategyStore
	backtest  config.BacktestConfig
	logger    *logger.Logger
}

// NewService creates a new strategy service
func NewService(
	universe contracts.UniverseBuilder,
	allocator contracts.Allocator,
	optimizer contracts.Optimizer,
	simulator contracts.Simulator,
	store contracts.StrategyStore,
	backtest config.BacktestConfig,
	log *logger.Logger,
) *Service {
	return &Service{
		universe:  universe,
		allocator: allocator,
		optimizer: optimizer,
		simulator: simulator,
		store:     store,
		backtest:  backtest,
		logger:    log,
	}
}

// Generate builds a strategy from structured investment elements and saves it.
// 每次生成自成一体, 不读回历史策略作为状态
func (s *Service) Generate(ctx context.Context, userID int64, name string, elements *contracts.InvestmentElements) (*contracts.StrategyConfig, error) {
	candidates, err := s.universe.Build(ctx, elements)
	if err != nil {
		return nil, fmt.Errorf("build universe: %w", err)
	}

	config, err := s.allocator.Allocate(ctx, candidates, elements)
	if err != nil {
		return nil, fmt.Errorf("allocate: %w", err)
	}
	config.UserID = userID
	config.Name = name

	id, err := s.store.Save(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("save strategy: %w", err)
	}
	config.ID = id

	s.logger.WithUser(userID).WithStrategy(id).WithFields(map[string]interface{}{
		"risk_level":  config.RiskLevel,
		"allocations": len(config.Allocations),
	}).Info("Strategy generated")
	return config, nil
}

// Optimize classifies free feedback text and applies it to a stored strategy
func (s *Service) Optimize(ctx context.Context, strategyID int64, feedbackText string) (*contracts.StrategyConfig, []contracts.WeightChange, error) {
	config, err := s.store.Get(ctx, strategyID)
	if err != nil {
		return nil, nil, fmt.Errorf("load strategy: %w", err)
	}

	directive := s.optimizer.Classify(feedbackText)
	optimized, changes, err := s.optimizer.Optimize(config, directive)
	if err != nil {
		return nil, nil, fmt.Errorf("optimize strategy %d: %w", strategyID, err)
	}

	if directive.Category != contracts.FeedbackNone {
		if err := s.store.Update(ctx, optimized); err != nil {
			return nil, nil, fmt.Errorf("update strategy: %w", err)
		}
	}

	s.logger.WithStrategy(strategyID).WithFields(map[string]interface{}{
		"category": directive.Category,
		"changes":  len(changes),
	}).Info("Strategy feedback applied")
	return optimized, changes, nil
}

// Backtest simulates a stored strategy over the trailing window and persists
// the result. days <= 0 falls back to the configured default period.
func (s *Service) Backtest(ctx context.Context, strategyID int64, days int) (*contracts.BacktestResult, error) {
	config, err := s.store.Get(ctx, strategyID)
	if err != nil {
		return nil, fmt.Errorf("load strategy: %w", err)
	}

	if days <= 0 {
		days = s.backtest.DefaultPeriodDays
	}
	end := time.Now().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -days)

	result, err := s.simulator.Simulate(ctx, config, start, end, s.backtest.BenchmarkIndex)
	if err != nil {
		return nil, fmt.Errorf("simulate strategy %d: %w", strategyID, err)
	}

	if err := s.store.SaveBacktest(ctx, strategyID, result); err != nil {
		return nil, fmt.Errorf("save backtest: %w", err)
	}

	s.logger.WithStrategy(strategyID).WithFields(map[string]interface{}{
		"observations": result.Returns.Len(),
		"degraded":     result.Degraded(),
	}).Info("Strategy backtested")
	return result, nil
}

// Get retrieves a stored strategy
func (s *Service) Get(ctx context.Context, strategyID int64) (*contracts.StrategyConfig, error) {
	return s.store.Get(ctx, strategyID)
}

// List retrieves a user's stored strategies
func (s *Service) List(ctx context.Context, userID int64, limit int) ([]contracts.StrategyConfig, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.store.ListByUser(ctx, userID, limit)
}

// GetBacktest retrieves the stored backtest result for a strategy
func (s *Service) GetBacktest(ctx context.Context, strategyID int64) (*contracts.BacktestResult, error) {
	return s.store.GetBacktest(ctx, strategyID)
}
