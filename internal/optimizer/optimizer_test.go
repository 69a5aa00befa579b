package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yichen/compass/backend/internal/contracts"
	"github.com/yichen/compass/backend/pkg/config"
	"github.com/yichen/compass/backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{LogLevel: "error", LogFormat: "json"})
}

func testOptimizer() *Optimizer {
	return NewOptimizer(DefaultPolicy(), testLogger())
}

func equityBondConfig(equityPct, bondPct float64) *contracts.StrategyConfig {
	return &contracts.StrategyConfig{
		RiskLevel: contracts.RiskBalanced,
		Allocations: []contracts.AllocationEntry{
			{Code: "510300.SH", Name: "沪深300ETF", AssetClass: "股票", Bucket: contracts.BucketEquity, WeightPercent: equityPct},
			{Code: "511010.SH", Name: "国债ETF", AssetClass: "债券", Bucket: contracts.BucketBond, WeightPercent: bondPct},
		},
	}
}

func TestOptimizer_Classify(t *testing.T) {
	opt := testOptimizer()

	tests := []struct {
		name string
		text string
		want contracts.FeedbackCategory
	}{
		{"risk too high", "风险太高，能否降低回撤", contracts.FeedbackRiskReduction},
		{"drawdown too large", "这个组合回撤太大了", contracts.FeedbackRiskReduction},
		{"return too low", "收益太低，想要更高的回报", contracts.FeedbackReturnEnhancement},
		{"return not enough", "感觉收益不够", contracts.FeedbackReturnEnhancement},
		{"rebalance", "帮我调整一下各只基金的比例", contracts.FeedbackRebalance},
		{"modify ratio", "想修改债券的配比", contracts.FeedbackRebalance},
		{"topic without action", "现在的比例挺好", contracts.FeedbackNone},
		{"unrelated", "今天天气不错", contracts.FeedbackNone},
		{"empty", "", contracts.FeedbackNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			directive := opt.Classify(tt.text)
			assert.Equal(t, tt.want, directive.Category)
			assert.Equal(t, tt.text, directive.Notes)
		})
	}
}

func TestOptimizer_ClassifyPriority(t *testing.T) {
	opt := testOptimizer()

	// 同时命中降风险和提收益时, 降风险优先
	directive := opt.Classify("风险太高但收益太低")
	assert.Equal(t, contracts.FeedbackRiskReduction, directive.Category)

	// 提收益优先于再平衡
	directive = opt.Classify("收益不够，帮我调整比例")
	assert.Equal(t, contracts.FeedbackReturnEnhancement, directive.Category)
}

func TestOptimizer_OptimizeRiskReduction(t *testing.T) {
	// 股 60×0.8=48, 债 40×1.3=52, 合计恰好 100
	opt := testOptimizer()
	config := equityBondConfig(60, 40)

	out, changes, err := opt.Optimize(config, contracts.FeedbackDirective{
		Category: contracts.FeedbackRiskReduction,
	})
	require.NoError(t, err)

	equity, _ := out.GetAllocation("510300.SH")
	bond, _ := out.GetAllocation("511010.SH")
	assert.InDelta(t, 48.0, equity.WeightPercent, 0.01)
	assert.InDelta(t, 52.0, bond.WeightPercent, 0.01)
	assert.InDelta(t, 100.0, out.TotalWeight(), contracts.WeightSumTolerance)

	// 两只基金都动了超过 1 个百分点
	require.Len(t, changes, 2)

	// 原配置不被修改
	orig, _ := config.GetAllocation("510300.SH")
	assert.Equal(t, 60.0, orig.WeightPercent)
}

func TestOptimizer_OptimizeReturnEnhancement(t *testing.T) {
	// 股 60×1.2=72, 债 40×0.7=28, 合计恰好 100
	opt := testOptimizer()

	out, _, err := opt.Optimize(equityBondConfig(60, 40), contracts.FeedbackDirective{
		Category: contracts.FeedbackReturnEnhancement,
	})
	require.NoError(t, err)

	equity, _ := out.GetAllocation("510300.SH")
	bond, _ := out.GetAllocation("511010.SH")
	assert.InDelta(t, 72.0, equity.WeightPercent, 0.01)
	assert.InDelta(t, 28.0, bond.WeightPercent, 0.01)
}

func TestOptimizer_OptimizeAppliesClamps(t *testing.T) {
	opt := testOptimizer()

	// 股 70×1.2=84 触顶 70, 债 30×0.7=21 未触底 → 归一化 70/91, 21/91
	out, _, err := opt.Optimize(equityBondConfig(70, 30), contracts.FeedbackDirective{
		Category: contracts.FeedbackReturnEnhancement,
	})
	require.NoError(t, err)

	equity, _ := out.GetAllocation("510300.SH")
	bond, _ := out.GetAllocation("511010.SH")
	assert.InDelta(t, 70.0/91.0*100, equity.WeightPercent, 0.01)
	assert.InDelta(t, 21.0/91.0*100, bond.WeightPercent, 0.01)
}

func TestOptimizer_OptimizeRebalanceIdempotent(t *testing.T) {
	opt := testOptimizer()
	config := equityBondConfig(60, 40)

	once, _, err := opt.Optimize(config, contracts.FeedbackDirective{Category: contracts.FeedbackRebalance})
	require.NoError(t, err)

	twice, changes, err := opt.Optimize(once, contracts.FeedbackDirective{Category: contracts.FeedbackRebalance})
	require.NoError(t, err)

	assert.Empty(t, changes)
	for i := range once.Allocations {
		assert.InDelta(t, once.Allocations[i].WeightPercent, twice.Allocations[i].WeightPercent, contracts.WeightSumTolerance)
	}
}

func TestOptimizer_OptimizeRebalanceNormalizesDrift(t *testing.T) {
	opt := testOptimizer()

	// 权重和 98 的漂移配置, rebalance 只做归一化
	out, _, err := opt.Optimize(equityBondConfig(58.8, 39.2), contracts.FeedbackDirective{
		Category: contracts.FeedbackRebalance,
	})
	require.NoError(t, err)

	equity, _ := out.GetAllocation("510300.SH")
	bond, _ := out.GetAllocation("511010.SH")
	assert.InDelta(t, 60.0, equity.WeightPercent, 0.01)
	assert.InDelta(t, 40.0, bond.WeightPercent, 0.01)
}

func TestOptimizer_OptimizeNoneUnchanged(t *testing.T) {
	opt := testOptimizer()
	config := equityBondConfig(60, 40)

	out, changes, err := opt.Optimize(config, contracts.FeedbackDirective{Category: contracts.FeedbackNone})
	require.NoError(t, err)

	assert.Empty(t, changes)
	assert.Equal(t, config.Allocations, out.Allocations)
}

func TestOptimizer_OptimizeEmptyConfig(t *testing.T) {
	opt := testOptimizer()

	_, _, err := opt.Optimize(&contracts.StrategyConfig{RiskLevel: contracts.RiskBalanced}, contracts.FeedbackDirective{
		Category: contracts.FeedbackRebalance,
	})
	require.Error(t, err)
}

func TestOptimizer_ChangeVisibilityThreshold(t *testing.T) {
	opt := testOptimizer()

	// 微小漂移 (<1pt) 归一化后不进变化清单
	_, changes, err := opt.Optimize(equityBondConfig(59.8, 39.9), contracts.FeedbackDirective{
		Category: contracts.FeedbackRebalance,
	})
	require.NoError(t, err)
	assert.Empty(t, changes)
}
