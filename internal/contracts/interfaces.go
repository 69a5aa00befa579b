package contracts

import (
	"context"
	"time"
)

// InstrumentCatalog supplies candidate instruments and price history
// ⭐ SSOT: 目录数据访问接口, 核心层只读
type InstrumentCatalog interface {
	ListInstruments(ctx context.Context, assetClass, sector string, limit int) ([]InstrumentCandidate, error)
	SearchInstruments(ctx context.Context, keyword string, limit int) ([]InstrumentCandidate, error)
	GetInstrument(ctx context.Context, code string) (*InstrumentCandidate, error)
	GetPriceSeries(ctx context.Context, code string, start, end time.Time) (*PriceSeries, error)
	GetBenchmarkSeries(ctx context.Context, indexCode string, start, end time.Time) (*PriceSeries, error)
}

// UniverseBuilder filters and ranks the catalog into a bounded candidate set
// ⭐ SSOT: 策略流水线第一步接口
type UniverseBuilder interface {
	Build(ctx context.Context, elements *InvestmentElements) ([]InstrumentCandidate, error)
}

// Allocator assigns normalized weights per the risk policy
// ⭐ SSOT: 策略流水线第二步接口
type Allocator interface {
	Allocate(ctx context.Context, candidates []InstrumentCandidate, elements *InvestmentElements) (*StrategyConfig, error)
}

// Optimizer classifies feedback and applies directional weight adjustments
// ⭐ SSOT: 策略流水线第三步接口
type Optimizer interface {
	Classify(text string) FeedbackDirective
	Optimize(config *StrategyConfig, directive FeedbackDirective) (*StrategyConfig, []WeightChange, error)
}

// Simulator produces a historical portfolio return series with metrics
// ⭐ SSOT: 回测接口
type Simulator interface {
	Simulate(ctx context.Context, config *StrategyConfig, start, end time.Time, benchmarkIndex string) (*BacktestResult, error)
}

// StrategyStore persists finalized strategies for later retrieval
type StrategyStore interface {
	Save(ctx context.Context, config *StrategyConfig) (int64, error)
	Update(ctx context.Context, config *StrategyConfig) error
	Get(ctx context.Context, id int64) (*StrategyConfig, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]StrategyConfig, error)
	SaveBacktest(ctx context.Context, strategyID int64, result *BacktestResult) error
	GetBacktest(ctx context.Context, strategyID int64) (*BacktestResult, error)
}
