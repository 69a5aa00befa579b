package backtest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yichen/compass/backend/internal/contracts"
	"github.com/yichen/compass/backend/pkg/config"
	"github.com/yichen/compass/backend/pkg/logger"
)

// fakeCatalog serves canned price series keyed by code
type fakeCatalog struct {
	prices    map[string]*contracts.PriceSeries
	benchmark *contracts.PriceSeries
}

func (f *fakeCatalog) ListInstruments(context.Context, string, string, int) ([]contracts.InstrumentCandidate, error) {
	return nil, nil
}

func (f *fakeCatalog) SearchInstruments(context.Context, string, int) ([]contracts.InstrumentCandidate, error) {
	return nil, nil
}

func (f *fakeCatalog) GetInstrument(context.Context, string) (*contracts.InstrumentCandidate, error) {
	return nil, contracts.ErrInstrumentNotFound
}

func (f *fakeCatalog) GetPriceSeries(_ context.Context, code string, _, _ time.Time) (*contracts.PriceSeries, error) {
	ps, ok := f.prices[code]
	if !ok {
		return nil, fmt.Errorf("no price data for %s", code)
	}
	return ps, nil
}

func (f *fakeCatalog) GetBenchmarkSeries(context.Context, string, time.Time, time.Time) (*contracts.PriceSeries, error) {
	if f.benchmark == nil {
		return nil, errors.New("no benchmark data")
	}
	return f.benchmark, nil
}

func testLogger() *logger.Logger {
	return logger.New(&config.Config{LogLevel: "error", LogFormat: "json"})
}

func prices(code string, closes ...float64) *contracts.PriceSeries {
	ps := &contracts.PriceSeries{Code: code, Closes: closes}
	for i := range closes {
		ps.Dates = append(ps.Dates, day(i))
	}
	return ps
}

func twoFundConfig() *contracts.StrategyConfig {
	return &contracts.StrategyConfig{
		RiskLevel: contracts.RiskBalanced,
		Allocations: []contracts.AllocationEntry{
			{Code: "510300.SH", Bucket: contracts.BucketEquity, WeightPercent: 60},
			{Code: "511010.SH", Bucket: contracts.BucketBond, WeightPercent: 40},
		},
	}
}

func TestSimulator_SimulateWeightedSum(t *testing.T) {
	catalog := &fakeCatalog{prices: map[string]*contracts.PriceSeries{
		"510300.SH": prices("510300.SH", 100, 101, 102.01),  // 两日各 +1%
		"511010.SH": prices("511010.SH", 100, 100.5, 101.0), // +0.5%, +0.4975%
	}}
	sim := NewSimulator(catalog, DefaultConfig(), testLogger())

	result, err := sim.Simulate(context.Background(), twoFundConfig(), day(0), day(2), "")
	require.NoError(t, err)

	require.Equal(t, 2, result.Returns.Len())
	// d1: 0.6×0.01 + 0.4×0.005 = 0.008
	assert.InDelta(t, 0.008, result.Returns.Returns[0], 1e-9)
	assert.Empty(t, result.SyntheticCodes)
	assert.False(t, result.Degraded())
}

func TestSimulator_SimulatePartialCoverage(t *testing.T) {
	// 债券基金缺 d2 数据: 当日只有股票基金贡献, 日期保留
	bondPrices := &contracts.PriceSeries{
		Code:   "511010.SH",
		Dates:  []time.Time{day(0), day(1)},
		Closes: []float64{100, 100.5},
	}
	catalog := &fakeCatalog{prices: map[string]*contracts.PriceSeries{
		"510300.SH": prices("510300.SH", 100, 101, 102.01),
		"511010.SH": bondPrices,
	}}
	sim := NewSimulator(catalog, DefaultConfig(), testLogger())

	result, err := sim.Simulate(context.Background(), twoFundConfig(), day(0), day(2), "")
	require.NoError(t, err)

	require.Equal(t, 2, result.Returns.Len())
	assert.InDelta(t, 0.6*0.01+0.4*0.005, result.Returns.Returns[0], 1e-9)
	assert.InDelta(t, 0.6*0.01, result.Returns.Returns[1], 1e-9)
}

func TestSimulator_SimulateSyntheticFallback(t *testing.T) {
	// 债券基金取不到数据: 用固定种子合成序列, 标记降级
	catalog := &fakeCatalog{prices: map[string]*contracts.PriceSeries{
		"510300.SH": prices("510300.SH", 100, 101, 102.01),
	}}
	sim := NewSimulator(catalog, DefaultConfig(), testLogger())

	result, err := sim.Simulate(context.Background(), twoFundConfig(), day(0), day(30), "")
	require.NoError(t, err)

	assert.Equal(t, []string{"511010.SH"}, result.SyntheticCodes)
	assert.True(t, result.Degraded())
	assert.Greater(t, result.Returns.Len(), 2)
}

func TestSimulator_SimulateDeterministic(t *testing.T) {
	catalog := &fakeCatalog{prices: map[string]*contracts.PriceSeries{
		"510300.SH": prices("510300.SH", 100, 101, 102.01),
	}}
	sim := NewSimulator(catalog, DefaultConfig(), testLogger())

	first, err := sim.Simulate(context.Background(), twoFundConfig(), day(0), day(30), "")
	require.NoError(t, err)
	second, err := sim.Simulate(context.Background(), twoFundConfig(), day(0), day(30), "")
	require.NoError(t, err)

	// 含合成退化路径在内, 相同输入必须产出完全相同的序列
	assert.Equal(t, first.Returns.Returns, second.Returns.Returns)
	assert.Equal(t, first.Returns.Dates, second.Returns.Dates)
	assert.Equal(t, first.SyntheticCodes, second.SyntheticCodes)
}

func TestSimulator_SimulateWithBenchmark(t *testing.T) {
	catalog := &fakeCatalog{
		prices: map[string]*contracts.PriceSeries{
			"510300.SH": prices("510300.SH", 100, 101, 102.01),
			"511010.SH": prices("511010.SH", 100, 100.5, 101.0),
		},
		benchmark: prices("000300.SH", 3000, 3030, 3015),
	}
	sim := NewSimulator(catalog, DefaultConfig(), testLogger())

	result, err := sim.Simulate(context.Background(), twoFundConfig(), day(0), day(2), "000300.SH")
	require.NoError(t, err)

	require.NotNil(t, result.Benchmark)
	assert.True(t, result.Metrics.HasBenchmark)
}

func TestSimulator_SimulateBenchmarkUnavailable(t *testing.T) {
	catalog := &fakeCatalog{prices: map[string]*contracts.PriceSeries{
		"510300.SH": prices("510300.SH", 100, 101, 102.01),
		"511010.SH": prices("511010.SH", 100, 100.5, 101.0),
	}}
	sim := NewSimulator(catalog, DefaultConfig(), testLogger())

	result, err := sim.Simulate(context.Background(), twoFundConfig(), day(0), day(2), "000300.SH")
	require.NoError(t, err)

	assert.Nil(t, result.Benchmark)
	assert.False(t, result.Metrics.HasBenchmark)
}

func TestSimulator_SimulateInvalidWeights(t *testing.T) {
	catalog := &fakeCatalog{}
	sim := NewSimulator(catalog, DefaultConfig(), testLogger())

	broken := &contracts.StrategyConfig{
		RiskLevel: contracts.RiskBalanced,
		Allocations: []contracts.AllocationEntry{
			{Code: "510300.SH", WeightPercent: 60},
			{Code: "511010.SH", WeightPercent: 30},
		},
	}

	_, err := sim.Simulate(context.Background(), broken, day(0), day(2), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrInvalidWeights))
}

func TestSimulator_SimulateEmptyAllocations(t *testing.T) {
	sim := NewSimulator(&fakeCatalog{}, DefaultConfig(), testLogger())

	_, err := sim.Simulate(context.Background(), &contracts.StrategyConfig{RiskLevel: contracts.RiskBalanced}, day(0), day(2), "")
	require.Error(t, err)
}
