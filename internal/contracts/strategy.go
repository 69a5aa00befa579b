package contracts

import (
	"fmt"
	"math"
	"time"
)

// RiskLevel is the investor risk tolerance enum
type RiskLevel string

const (
	RiskConservative RiskLevel = "conservative"
	RiskBalanced     RiskLevel = "balanced"
	RiskAggressive   RiskLevel = "aggressive"
	RiskSpeculative  RiskLevel = "speculative"
)

// IsValid checks the risk level against the fixed enum
func (r RiskLevel) IsValid() bool {
	switch r {
	case RiskConservative, RiskBalanced, RiskAggressive, RiskSpeculative:
		return true
	}
	return false
}

// AssetBucket classifies an instrument for the risk policy table
// ⭐ 约定: 每个标的恰好归入一个桶
type AssetBucket string

const (
	BucketEquity AssetBucket = "equity"
	BucketBond   AssetBucket = "bond"
	BucketOther  AssetBucket = "other"
)

// WeightSumTolerance is the accepted deviation of the weight sum from 100
const WeightSumTolerance = 0.01

// MaterialityThreshold drops allocations below this percent before normalization
const MaterialityThreshold = 1.0

// AllocationEntry is one instrument's share of the portfolio
type AllocationEntry struct {
	Code          string      `json:"code"`
	Name          string      `json:"name"`
	WeightPercent float64     `json:"weight_percent"` // 百分比, 保留两位小数
	AssetClass    string      `json:"asset_class"`
	Sector        string      `json:"sector"`
	Bucket        AssetBucket `json:"bucket"`
}

// StrategyConfig is the portfolio produced per conversation turn
// ⭐ SSOT: 配置引擎产出, 优化器可原地调整, 回测只读
type StrategyConfig struct {
	ID               int64               `json:"id,omitempty"`
	UserID           int64               `json:"user_id,omitempty"`
	Name             string              `json:"name,omitempty"`
	RiskLevel        RiskLevel           `json:"risk_level"`
	TargetReturn     float64             `json:"target_return,omitempty"` // 0 = 未提供
	MaxDrawdown      float64             `json:"max_drawdown_tolerance,omitempty"`
	InvestmentAmount float64             `json:"investment_amount,omitempty"`
	Constraints      UniverseConstraints `json:"constraints"`
	Allocations      []AllocationEntry   `json:"allocations"`
	CreatedAt        time.Time           `json:"created_at,omitempty"`
	UpdatedAt        time.Time           `json:"updated_at,omitempty"`
}

// TotalWeight returns the sum of allocation weights in percent
func (sc *StrategyConfig) TotalWeight() float64 {
	total := 0.0
	for _, a := range sc.Allocations {
		total += a.WeightPercent
	}
	return total
}

// Count returns the number of allocations
func (sc *StrategyConfig) Count() int {
	return len(sc.Allocations)
}

// GetAllocation finds an allocation by instrument code
func (sc *StrategyConfig) GetAllocation(code string) (*AllocationEntry, bool) {
	for i := range sc.Allocations {
		if sc.Allocations[i].Code == code {
			return &sc.Allocations[i], true
		}
	}
	return nil, false
}

// Validate enforces the allocation invariants.
// 非空时权重和必须在 100±0.01 内, 权重非负, 数量不超上限.
// InvalidWeights 属于程序缺陷, 调用方应当 fail loudly.
func (sc *StrategyConfig) Validate() error {
	if !sc.RiskLevel.IsValid() {
		return fmt.Errorf("strategy config: unknown risk level %q", sc.RiskLevel)
	}
	if len(sc.Allocations) == 0 {
		return nil
	}
	for _, a := range sc.Allocations {
		if a.WeightPercent < 0 {
			return fmt.Errorf("allocation %s: negative weight %.4f: %w", a.Code, a.WeightPercent, ErrInvalidWeights)
		}
	}
	if max := sc.Constraints.MaxInstrumentCount; max > 0 && len(sc.Allocations) > max {
		return fmt.Errorf("allocation count %d exceeds limit %d: %w", len(sc.Allocations), max, ErrInvalidWeights)
	}
	if total := sc.TotalWeight(); math.Abs(total-100.0) >= WeightSumTolerance {
		return fmt.Errorf("weight sum %.4f deviates from 100: %w", total, ErrInvalidWeights)
	}
	return nil
}

// Clone returns a deep copy so the optimizer can adjust without aliasing
func (sc *StrategyConfig) Clone() *StrategyConfig {
	out := *sc
	out.Allocations = make([]AllocationEntry, len(sc.Allocations))
	copy(out.Allocations, sc.Allocations)
	return &out
}
