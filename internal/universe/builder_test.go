package universe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yichen/compass/backend/internal/contracts"
	"github.com/yichen/compass/backend/pkg/config"
	"github.com/yichen/compass/backend/pkg/logger"
)

// fakeCatalog serves canned candidates keyed by asset class
type fakeCatalog struct {
	byClass map[string][]contracts.InstrumentCandidate
	calls   []string
}

func (f *fakeCatalog) ListInstruments(_ context.Context, assetClass, _ string, limit int) ([]contracts.InstrumentCandidate, error) {
	f.calls = append(f.calls, assetClass)
	out := f.byClass[assetClass]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeCatalog) SearchInstruments(context.Context, string, int) ([]contracts.InstrumentCandidate, error) {
	return nil, nil
}

func (f *fakeCatalog) GetInstrument(context.Context, string) (*contracts.InstrumentCandidate, error) {
	return nil, contracts.ErrInstrumentNotFound
}

func (f *fakeCatalog) GetPriceSeries(context.Context, string, time.Time, time.Time) (*contracts.PriceSeries, error) {
	return &contracts.PriceSeries{}, nil
}

func (f *fakeCatalog) GetBenchmarkSeries(context.Context, string, time.Time, time.Time) (*contracts.PriceSeries, error) {
	return &contracts.PriceSeries{}, nil
}

func testLogger() *logger.Logger {
	return logger.New(&config.Config{LogLevel: "error", LogFormat: "json"})
}

func equityETF(code, name string) contracts.InstrumentCandidate {
	return contracts.InstrumentCandidate{
		Code: code, Name: name, AssetClass: "股票", Sector: "宽基指数",
		MarketCap: 2e10, ExpenseRatio: 0.5, Scale: 1e10,
	}
}

func TestBuilder_BuildWithPreferredClasses(t *testing.T) {
	catalog := &fakeCatalog{byClass: map[string][]contracts.InstrumentCandidate{
		"股票": {
			equityETF("510300.SH", "沪深300ETF"),
			equityETF("510500.SH", "中证500ETF"),
		},
		"债券": {
			{Code: "511010.SH", Name: "国债ETF", AssetClass: "债券", Sector: "利率债", MarketCap: 8e9, ExpenseRatio: 0.3},
		},
	}}

	builder := NewBuilder(catalog, DefaultConfig(), testLogger())
	elements := &contracts.InvestmentElements{
		RiskLevel:             contracts.RiskBalanced,
		PreferredAssetClasses: []string{"股票", "债券"},
		Constraints:           contracts.DefaultUniverseConstraints(),
	}

	universe, err := builder.Build(context.Background(), elements)
	require.NoError(t, err)

	assert.Len(t, universe, 3)
	assert.Equal(t, []string{"股票", "债券"}, catalog.calls)
}

func TestBuilder_BuildDefaultBasket(t *testing.T) {
	catalog := &fakeCatalog{byClass: map[string][]contracts.InstrumentCandidate{
		"股票":    {equityETF("510300.SH", "沪深300ETF")},
		"债券":    {{Code: "511010.SH", Name: "国债ETF", AssetClass: "债券", MarketCap: 8e9, ExpenseRatio: 0.3}},
		"商品":    {{Code: "518880.SH", Name: "黄金ETF", AssetClass: "商品", MarketCap: 6e9, ExpenseRatio: 0.6}},
		"REITS": {{Code: "508000.SH", Name: "产业园REITs", AssetClass: "REITS", MarketCap: 2e9, ExpenseRatio: 0.8}},
	}}

	builder := NewBuilder(catalog, DefaultConfig(), testLogger())
	elements := &contracts.InvestmentElements{
		RiskLevel:   contracts.RiskBalanced,
		Constraints: contracts.DefaultUniverseConstraints(),
	}

	universe, err := builder.Build(context.Background(), elements)
	require.NoError(t, err)

	// 无偏好时默认篮子覆盖四大类, 池子不会为空
	assert.Len(t, universe, 4)
	assert.Equal(t, []string{"股票", "债券", "商品", "REITS"}, catalog.calls)
}

func TestBuilder_BuildFiltersForbiddenTerms(t *testing.T) {
	catalog := &fakeCatalog{byClass: map[string][]contracts.InstrumentCandidate{
		"股票": {
			equityETF("510300.SH", "沪深300ETF"),
			{Code: "512880.SH", Name: "证券ETF", AssetClass: "股票", Sector: "券商", MarketCap: 2e10, ExpenseRatio: 0.5},
		},
	}}

	builder := NewBuilder(catalog, DefaultConfig(), testLogger())
	elements := &contracts.InvestmentElements{
		RiskLevel:             contracts.RiskBalanced,
		PreferredAssetClasses: []string{"股票"},
		ForbiddenAssets:       []string{"券商"},
		Constraints:           contracts.DefaultUniverseConstraints(),
	}

	universe, err := builder.Build(context.Background(), elements)
	require.NoError(t, err)

	require.Len(t, universe, 1)
	assert.Equal(t, "510300.SH", universe[0].Code)
}

func TestBuilder_BuildAppliesHardConstraints(t *testing.T) {
	catalog := &fakeCatalog{byClass: map[string][]contracts.InstrumentCandidate{
		"股票": {
			equityETF("510300.SH", "沪深300ETF"),
			{Code: "516000.SH", Name: "小盘ETF", AssetClass: "股票", MarketCap: 5e8, ExpenseRatio: 0.5},
			{Code: "517000.SH", Name: "高费率ETF", AssetClass: "股票", MarketCap: 2e10, ExpenseRatio: 2.5},
		},
	}}

	builder := NewBuilder(catalog, DefaultConfig(), testLogger())
	elements := &contracts.InvestmentElements{
		RiskLevel:             contracts.RiskBalanced,
		PreferredAssetClasses: []string{"股票"},
		Constraints: contracts.UniverseConstraints{
			MinMarketCap:       1e9,
			MaxExpenseRatio:    1.0,
			MaxInstrumentCount: 12,
		},
	}

	universe, err := builder.Build(context.Background(), elements)
	require.NoError(t, err)

	require.Len(t, universe, 1)
	assert.Equal(t, "510300.SH", universe[0].Code)
}

func TestBuilder_BuildDeduplicatesKeepingFirst(t *testing.T) {
	shared := equityETF("510300.SH", "沪深300ETF")
	catalog := &fakeCatalog{byClass: map[string][]contracts.InstrumentCandidate{
		"股票": {shared},
		"指数": {shared},
	}}

	builder := NewBuilder(catalog, DefaultConfig(), testLogger())
	elements := &contracts.InvestmentElements{
		RiskLevel:             contracts.RiskBalanced,
		PreferredAssetClasses: []string{"股票", "指数"},
		Constraints:           contracts.DefaultUniverseConstraints(),
	}

	universe, err := builder.Build(context.Background(), elements)
	require.NoError(t, err)
	assert.Len(t, universe, 1)
}

func TestBuilder_BuildEmptyUniverse(t *testing.T) {
	catalog := &fakeCatalog{byClass: map[string][]contracts.InstrumentCandidate{
		"股票": {equityETF("510300.SH", "沪深300ETF")},
	}}

	builder := NewBuilder(catalog, DefaultConfig(), testLogger())
	elements := &contracts.InvestmentElements{
		RiskLevel:             contracts.RiskBalanced,
		PreferredAssetClasses: []string{"股票"},
		ForbiddenAssets:       []string{"股票"},
		Constraints:           contracts.DefaultUniverseConstraints(),
	}

	_, err := builder.Build(context.Background(), elements)
	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrEmptyUniverse))
}

func TestBuilder_BuildTruncatesToLimit(t *testing.T) {
	var many []contracts.InstrumentCandidate
	for i := 0; i < 20; i++ {
		many = append(many, contracts.InstrumentCandidate{
			Code:       string(rune('A'+i)) + "00000.SH",
			AssetClass: "股票",
			MarketCap:  2e10,
		})
	}
	catalog := &fakeCatalog{byClass: map[string][]contracts.InstrumentCandidate{"股票": many}}

	builder := NewBuilder(catalog, DefaultConfig(), testLogger())
	elements := &contracts.InvestmentElements{
		RiskLevel:             contracts.RiskBalanced,
		PreferredAssetClasses: []string{"股票"},
		Constraints:           contracts.UniverseConstraints{MaxInstrumentCount: 5},
	}

	universe, err := builder.Build(context.Background(), elements)
	require.NoError(t, err)
	assert.Len(t, universe, 5)
}

func TestRankScore(t *testing.T) {
	tests := []struct {
		name      string
		candidate contracts.InstrumentCandidate
		want      int
	}{
		{
			name: "top tier everything",
			candidate: contracts.InstrumentCandidate{
				MarketCap: 2e10, ExpenseRatio: 0.3, SharpeRatio: 1.5,
			},
			want: 7,
		},
		{
			name: "mid tiers",
			candidate: contracts.InstrumentCandidate{
				MarketCap: 6e9, ExpenseRatio: 0.8, SharpeRatio: 0.6,
			},
			want: 4,
		},
		{
			name: "small fund no hints",
			candidate: contracts.InstrumentCandidate{
				MarketCap: 5e8, ExpenseRatio: 1.5,
			},
			want: 0,
		},
		{
			name: "zero expense ratio not rewarded",
			candidate: contracts.InstrumentCandidate{
				MarketCap: 2e9, ExpenseRatio: 0,
			},
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rankScore(tt.candidate))
		})
	}
}

func TestRank_StableOnTies(t *testing.T) {
	a := contracts.InstrumentCandidate{Code: "A", MarketCap: 2e10, ExpenseRatio: 0.3}
	b := contracts.InstrumentCandidate{Code: "B", MarketCap: 2e10, ExpenseRatio: 0.3}

	ranked := rank([]contracts.InstrumentCandidate{a, b})
	require.Len(t, ranked, 2)
	// 同分时保持目录顺序
	assert.Equal(t, "A", ranked[0].Code)
	assert.Equal(t, "B", ranked[1].Code)
}
