package backtest

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/yichen/compass/backend/internal/contracts"
	"github.com/yichen/compass/backend/pkg/logger"
)

// Config holds simulation parameters
type Config struct {
	// Synthetic fallback random walk. 固定种子保证重复调用字节级一致
	SyntheticSeed   int64
	SyntheticMean   float64 // 日均收益
	SyntheticStdDev float64 // 日波动
}

// DefaultConfig returns the standard simulation parameters
func DefaultConfig() Config {
	return Config{
		SyntheticSeed:   42,
		SyntheticMean:   0.0008,
		SyntheticStdDev: 0.015,
	}
}

// Simulator converts an allocation plus price history into a portfolio
// return series with performance metrics.
// 纯转换, 无内部状态, 相同输入产出相同结果.
// ⭐ SSOT: 组合回测只在这里
type Simulator struct {
	catalog contracts.InstrumentCatalog
	config  Config
	logger  *logger.Logger
}

// NewSimulator creates a new backtest simulator
func NewSimulator(catalog contracts.InstrumentCatalog, config Config, log *logger.Logger) *Simulator {
	return &Simulator{
		catalog: catalog,
		config:  config,
		logger:  log,
	}
}

// Simulate runs a historical backtest over [start, end].
// 单只基金取数失败时退化为合成序列, 局部数据故障只降精度不中断;
// 用了合成数据的标的记入 SyntheticCodes 透出给调用方.
func (s *Simulator) Simulate(ctx context.Context, config *contracts.StrategyConfig, start, end time.Time, benchmarkIndex string) (*contracts.BacktestResult, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}
	if len(config.Allocations) == 0 {
		return nil, fmt.Errorf("simulate: config has no allocations")
	}

	// 按日期累加各标的加权收益. 部分覆盖策略: 当日有数的标的都计入,
	// 无人报数的日期剔除.
	type daily struct {
		date time.Time
		sum  float64
	}
	byDate := make(map[string]*daily)
	var syntheticCodes []string

	for _, alloc := range config.Allocations {
		returns := s.instrumentReturns(ctx, alloc.Code, start, end, &syntheticCodes)
		weight := alloc.WeightPercent / 100.0
		for i, d := range returns.Dates {
			key := d.Format("2006-01-02")
			entry, ok := byDate[key]
			if !ok {
				entry = &daily{date: d}
				byDate[key] = entry
			}
			entry.sum += returns.Returns[i] * weight
		}
	}

	if len(byDate) == 0 {
		return nil, fmt.Errorf("simulate: %w", contracts.ErrInsufficientHistory)
	}

	// 日期升序排列, 保证重复调用结果一致
	keys := make([]string, 0, len(byDate))
	for k := range byDate {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	series := &contracts.ReturnSeries{
		Dates:   make([]time.Time, 0, len(keys)),
		Returns: make([]float64, 0, len(keys)),
	}
	for _, k := range keys {
		series.Dates = append(series.Dates, byDate[k].date)
		series.Returns = append(series.Returns, byDate[k].sum)
	}

	benchmark := s.benchmarkReturns(ctx, benchmarkIndex, start, end)
	sort.Strings(syntheticCodes)

	result := &contracts.BacktestResult{
		Returns:        series,
		Benchmark:      benchmark,
		Metrics:        ComputeMetrics(series, benchmark),
		StartDate:      start,
		EndDate:        end,
		SyntheticCodes: syntheticCodes,
	}

	s.logger.WithFields(map[string]interface{}{
		"observations": series.Len(),
		"synthetic":    len(syntheticCodes),
		"degraded":     result.Degraded(),
	}).Info("Backtest simulated")
	return result, nil
}

// instrumentReturns loads one instrument's daily returns, falling back to a
// deterministic synthetic series on failure.
func (s *Simulator) instrumentReturns(ctx context.Context, code string, start, end time.Time, syntheticCodes *[]string) *contracts.ReturnSeries {
	prices, err := s.catalog.GetPriceSeries(ctx, code, start, end)
	if err == nil && prices.Len() >= 2 {
		return prices.DailyReturns()
	}

	if err != nil {
		s.logger.WithError(err).WithInstrument(code).Warn("Price history unavailable, using synthetic series")
	} else {
		s.logger.WithInstrument(code).Warn("Price history too short, using synthetic series")
	}
	*syntheticCodes = append(*syntheticCodes, code)
	return s.syntheticReturns(start, end)
}

// syntheticReturns builds a fixed-seed Gaussian random walk over weekdays.
// 种子固定, 同一区间的合成序列完全可复现
func (s *Simulator) syntheticReturns(start, end time.Time) *contracts.ReturnSeries {
	rng := rand.New(rand.NewSource(s.config.SyntheticSeed))

	series := &contracts.ReturnSeries{}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		series.Dates = append(series.Dates, d)
		series.Returns = append(series.Returns, rng.NormFloat64()*s.config.SyntheticStdDev+s.config.SyntheticMean)
	}
	return series
}

// benchmarkReturns loads the benchmark series, or nil when unavailable.
// 基准缺失不致命, 只是没有相对指标
func (s *Simulator) benchmarkReturns(ctx context.Context, indexCode string, start, end time.Time) *contracts.ReturnSeries {
	if indexCode == "" {
		return nil
	}

	prices, err := s.catalog.GetBenchmarkSeries(ctx, indexCode, start, end)
	if err != nil || prices.Len() < 2 {
		s.logger.WithField("index", indexCode).Warn("Benchmark history unavailable")
		return nil
	}
	return prices.DailyReturns()
}
