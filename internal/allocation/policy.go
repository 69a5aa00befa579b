package allocation

import (
	"strings"

	"github.com/yichen/compass/backend/internal/contracts"
)

// BucketShares is the target percent split across asset buckets for one risk level
type BucketShares struct {
	Equity float64 `yaml:"equity"`
	Bond   float64 `yaml:"bond"`
	Other  float64 `yaml:"other"`
}

// Share returns the target percent for one bucket
func (bs BucketShares) Share(bucket contracts.AssetBucket) float64 {
	switch bucket {
	case contracts.BucketEquity:
		return bs.Equity
	case contracts.BucketBond:
		return bs.Bond
	default:
		return bs.Other
	}
}

// Policy holds the allocation policy constants.
// 启发式常数是行为契约的一部分, 可配置但不可随意改值
// ⭐ SSOT: 配置策略常数只在这里
type Policy struct {
	// RiskTable maps risk level to target bucket shares (percent, sums to 100)
	RiskTable map[contracts.RiskLevel]BucketShares

	// Classification terms, checked as substrings of the asset-class label.
	// 债类优先于股类判定
	BondTerms   []string
	EquityTerms []string

	// Target-return tilt thresholds and multipliers
	HighReturnThreshold float64 // 年化目标 (%) 高于此值 → 加股减债
	LowReturnThreshold  float64 // 低于此值 → 加债减股
	HighEquityScale     float64
	HighBondScale       float64
	LowBondScale        float64
	LowEquityScale      float64

	// MaterialityThreshold drops entries below this percent before normalization
	MaterialityThreshold float64
}

// DefaultPolicy returns the standard allocation policy
func DefaultPolicy() Policy {
	return Policy{
		RiskTable: map[contracts.RiskLevel]BucketShares{
			contracts.RiskConservative: {Equity: 25, Bond: 70, Other: 5},
			contracts.RiskBalanced:     {Equity: 60, Bond: 40, Other: 0},
			contracts.RiskAggressive:   {Equity: 80, Bond: 15, Other: 5},
			contracts.RiskSpeculative:  {Equity: 90, Bond: 0, Other: 10},
		},
		BondTerms:   []string{"债", "固收", "货币"},
		EquityTerms: []string{"股", "指数"},

		HighReturnThreshold: 10.0,
		LowReturnThreshold:  6.0,
		HighEquityScale:     1.2,
		HighBondScale:       0.8,
		LowBondScale:        1.3,
		LowEquityScale:      0.7,

		MaterialityThreshold: contracts.MaterialityThreshold,
	}
}

// Classify buckets an instrument by substring match on its asset-class label.
// 每个标的恰好归入一个桶: 债 → bond, 股/指数 → equity, 其余 → other
func (p *Policy) Classify(assetClass string) contracts.AssetBucket {
	for _, term := range p.BondTerms {
		if strings.Contains(assetClass, term) {
			return contracts.BucketBond
		}
	}
	for _, term := range p.EquityTerms {
		if strings.Contains(assetClass, term) {
			return contracts.BucketEquity
		}
	}
	return contracts.BucketOther
}
