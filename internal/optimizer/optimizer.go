package optimizer

import (
	"fmt"
	"math"
	"strings"

	"github.com/yichen/compass/backend/internal/contracts"
	"github.com/yichen/compass/backend/pkg/logger"
)

// TransformRule scales equity and bond entries with per-entry clamps
type TransformRule struct {
	EquityScale float64
	EquityFloor float64 // 0 = 不设下限
	EquityCap   float64 // 0 = 不设上限
	BondScale   float64
	BondFloor   float64
	BondCap     float64
}

// Policy holds the feedback classification keywords and transform constants.
// 启发式常数是行为契约的一部分, 可配置但不可随意改值
// ⭐ SSOT: 反馈优化策略常数只在这里
type Policy struct {
	// Classification keyword sets, first match in fixed priority order:
	// risk_reduction > return_enhancement > rebalance > none
	RiskReductionKeywords     []string
	ReturnEnhancementKeywords []string
	// Rebalance 需要同时命中主题词和动作词 (比例 + 调整/修改)
	RebalanceTopicKeywords  []string
	RebalanceActionKeywords []string

	RiskReduction     TransformRule
	ReturnEnhancement TransformRule

	// VisibilityThreshold filters the reported per-instrument changes (pt)
	VisibilityThreshold float64
}

// DefaultPolicy returns the standard feedback policy
func DefaultPolicy() Policy {
	return Policy{
		RiskReductionKeywords:     []string{"风险太高", "回撤太大", "风险高", "太激进", "亏太多"},
		ReturnEnhancementKeywords: []string{"收益太低", "收益不够", "收益低", "赚得太少", "太保守"},
		RebalanceTopicKeywords:    []string{"比例", "配比", "仓位"},
		RebalanceActionKeywords:   []string{"调整", "修改", "换一下"},

		RiskReduction: TransformRule{
			EquityScale: 0.8, EquityFloor: 5,
			BondScale: 1.3, BondCap: 60,
		},
		ReturnEnhancement: TransformRule{
			EquityScale: 1.2, EquityCap: 70,
			BondScale: 0.7, BondFloor: 10,
		},

		VisibilityThreshold: 1.0,
	}
}

// Optimizer revises allocations in response to classified user feedback
// ⭐ SSOT: 权重反馈调整只在这里
type Optimizer struct {
	policy Policy
	logger *logger.Logger
}

// NewOptimizer creates a new feedback optimizer
func NewOptimizer(policy Policy, log *logger.Logger) *Optimizer {
	return &Optimizer{
		policy: policy,
		logger: log,
	}
}

// Classify maps free feedback text to exactly one directive.
// 固定优先级: 降风险 > 提收益 > 再平衡 > 无
func (o *Optimizer) Classify(text string) contracts.FeedbackDirective {
	directive := contracts.FeedbackDirective{Category: contracts.FeedbackNone, Notes: text}

	if containsAny(text, o.policy.RiskReductionKeywords) {
		directive.Category = contracts.FeedbackRiskReduction
		return directive
	}
	if containsAny(text, o.policy.ReturnEnhancementKeywords) {
		directive.Category = contracts.FeedbackReturnEnhancement
		return directive
	}
	if containsAny(text, o.policy.RebalanceTopicKeywords) && containsAny(text, o.policy.RebalanceActionKeywords) {
		directive.Category = contracts.FeedbackRebalance
		return directive
	}
	return directive
}

// Optimize applies the directive to a copy of the config and reports the
// per-instrument moves above the visibility threshold.
// 单次幂等: 对已归一化的配置重复应用 rebalance 权重不变.
func (o *Optimizer) Optimize(config *contracts.StrategyConfig, directive contracts.FeedbackDirective) (*contracts.StrategyConfig, []contracts.WeightChange, error) {
	if len(config.Allocations) == 0 {
		return nil, nil, fmt.Errorf("optimize: config has no allocations")
	}

	out := config.Clone()

	switch directive.Category {
	case contracts.FeedbackRiskReduction:
		applyRule(out.Allocations, o.policy.RiskReduction)
		renormalize(out.Allocations)
	case contracts.FeedbackReturnEnhancement:
		applyRule(out.Allocations, o.policy.ReturnEnhancement)
		renormalize(out.Allocations)
	case contracts.FeedbackRebalance:
		renormalize(out.Allocations)
	case contracts.FeedbackNone:
		return out, nil, nil
	default:
		return nil, nil, fmt.Errorf("optimize: unknown feedback category %q", directive.Category)
	}

	if err := out.Validate(); err != nil {
		o.logger.WithError(err).WithField("category", directive.Category).Error("Optimization produced invalid weights")
		return nil, nil, fmt.Errorf("optimize: %w", err)
	}

	changes := o.summarizeChanges(config.Allocations, out.Allocations)
	o.logger.WithFields(map[string]interface{}{
		"category": directive.Category,
		"changes":  len(changes),
	}).Info("Strategy optimized")
	return out, changes, nil
}

// applyRule scales equity and bond entries, clamping per entry
func applyRule(allocations []contracts.AllocationEntry, rule TransformRule) {
	for i := range allocations {
		switch allocations[i].Bucket {
		case contracts.BucketEquity:
			allocations[i].WeightPercent = clamp(
				allocations[i].WeightPercent*rule.EquityScale, rule.EquityFloor, rule.EquityCap)
		case contracts.BucketBond:
			allocations[i].WeightPercent = clamp(
				allocations[i].WeightPercent*rule.BondScale, rule.BondFloor, rule.BondCap)
		}
	}
}

// renormalize scales weights back to a 100 total and rounds to 2dp.
// 舍入残差补到最大权重上
func renormalize(allocations []contracts.AllocationEntry) {
	total := 0.0
	for _, a := range allocations {
		total += a.WeightPercent
	}
	if total == 0 {
		return
	}

	for i := range allocations {
		allocations[i].WeightPercent = round2(allocations[i].WeightPercent * 100.0 / total)
	}

	rounded, largest := 0.0, 0
	for i, a := range allocations {
		rounded += a.WeightPercent
		if a.WeightPercent > allocations[largest].WeightPercent {
			largest = i
		}
	}
	allocations[largest].WeightPercent = round2(allocations[largest].WeightPercent + 100.0 - rounded)
}

// summarizeChanges reports moves larger than the visibility threshold
func (o *Optimizer) summarizeChanges(before, after []contracts.AllocationEntry) []contracts.WeightChange {
	old := make(map[string]contracts.AllocationEntry, len(before))
	for _, a := range before {
		old[a.Code] = a
	}

	var changes []contracts.WeightChange
	for _, a := range after {
		prev, ok := old[a.Code]
		if !ok {
			continue
		}
		delta := a.WeightPercent - prev.WeightPercent
		if math.Abs(delta) <= o.policy.VisibilityThreshold {
			continue
		}
		changes = append(changes, contracts.WeightChange{
			Code:      a.Code,
			Name:      a.Name,
			OldWeight: prev.WeightPercent,
			NewWeight: a.WeightPercent,
			Delta:     round2(delta),
		})
	}
	return changes
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func clamp(v, floor, ceiling float64) float64 {
	if floor > 0 && v < floor {
		return floor
	}
	if ceiling > 0 && v > ceiling {
		return ceiling
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
