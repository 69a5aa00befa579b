package allocation

import (
	"context"
	"fmt"
	"math"

	"github.com/yichen/compass/backend/internal/contracts"
	"github.com/yichen/compass/backend/pkg/logger"
)

// Engine assigns normalized weights per the risk policy table
// ⭐ SSOT: 初始权重分配只在这里
type Engine struct {
	policy Policy
	logger *logger.Logger
}

// NewEngine creates a new allocation engine
func NewEngine(policy Policy, log *logger.Logger) *Engine {
	return &Engine{
		policy: policy,
		logger: log,
	}
}

// Allocate produces a StrategyConfig over the candidate universe.
// 流程: 分桶 → 桶内均分 → 空桶份额按比例摊给非空桶 → 目标收益倾斜 →
// 归一化 → 剔除低于重要性阈值的条目 → 再归一化.
func (e *Engine) Allocate(_ context.Context, candidates []contracts.InstrumentCandidate, elements *contracts.InvestmentElements) (*contracts.StrategyConfig, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("allocate: %w", contracts.ErrEmptyUniverse)
	}
	if !elements.RiskLevel.IsValid() {
		return nil, fmt.Errorf("allocate: unknown risk level %q", elements.RiskLevel)
	}

	shares := e.policy.RiskTable[elements.RiskLevel]

	// 分桶并统计
	buckets := make([]contracts.AssetBucket, len(candidates))
	counts := make(map[contracts.AssetBucket]int)
	for i, c := range candidates {
		buckets[i] = e.policy.Classify(c.AssetClass)
		counts[buckets[i]]++
	}

	effective := redistributeEmpty(shares, counts)

	// 桶内均分
	weights := make([]float64, len(candidates))
	for i, bucket := range buckets {
		weights[i] = effective.Share(bucket) / float64(counts[bucket])
	}

	// 目标收益倾斜
	if elements.HasTargetReturn() {
		e.applyTargetReturnTilt(weights, buckets, elements.TargetReturn)
	}

	normalize(weights)

	config := &contracts.StrategyConfig{
		RiskLevel:        elements.RiskLevel,
		TargetReturn:     elements.TargetReturn,
		MaxDrawdown:      elements.MaxDrawdownTolerance,
		InvestmentAmount: elements.InvestmentAmount,
		Constraints:      elements.Constraints,
		Allocations:      e.buildEntries(candidates, buckets, weights),
	}

	if err := config.Validate(); err != nil {
		// 不变量破坏属于程序缺陷, 记录后原样抛出
		e.logger.WithError(err).Error("Allocation produced invalid weights")
		return nil, fmt.Errorf("allocate: %w", err)
	}

	e.logger.WithFields(map[string]interface{}{
		"risk_level":  elements.RiskLevel,
		"allocations": len(config.Allocations),
	}).Info("Allocation built")
	return config, nil
}

// redistributeEmpty reassigns shares of empty buckets proportionally across
// the non-empty ones so the total stays at 100.
func redistributeEmpty(shares BucketShares, counts map[contracts.AssetBucket]int) BucketShares {
	all := []contracts.AssetBucket{contracts.BucketEquity, contracts.BucketBond, contracts.BucketOther}

	nonEmptySum := 0.0
	for _, b := range all {
		if counts[b] > 0 {
			nonEmptySum += shares.Share(b)
		}
	}
	if nonEmptySum == 0 {
		// 所有非空桶目标份额都是 0 (例如 speculative 下只有债券基金): 均分
		nonEmpty := 0
		for _, b := range all {
			if counts[b] > 0 {
				nonEmpty++
			}
		}
		even := 100.0 / float64(nonEmpty)
		out := BucketShares{}
		if counts[contracts.BucketEquity] > 0 {
			out.Equity = even
		}
		if counts[contracts.BucketBond] > 0 {
			out.Bond = even
		}
		if counts[contracts.BucketOther] > 0 {
			out.Other = even
		}
		return out
	}

	scale := 100.0 / nonEmptySum
	out := BucketShares{}
	if counts[contracts.BucketEquity] > 0 {
		out.Equity = shares.Equity * scale
	}
	if counts[contracts.BucketBond] > 0 {
		out.Bond = shares.Bond * scale
	}
	if counts[contracts.BucketOther] > 0 {
		out.Other = shares.Other * scale
	}
	return out
}

// applyTargetReturnTilt scales equity and bond weights toward the target
func (e *Engine) applyTargetReturnTilt(weights []float64, buckets []contracts.AssetBucket, targetReturn float64) {
	var equityScale, bondScale float64
	switch {
	case targetReturn > e.policy.HighReturnThreshold:
		equityScale, bondScale = e.policy.HighEquityScale, e.policy.HighBondScale
	case targetReturn < e.policy.LowReturnThreshold:
		equityScale, bondScale = e.policy.LowEquityScale, e.policy.LowBondScale
	default:
		return
	}

	for i, bucket := range buckets {
		switch bucket {
		case contracts.BucketEquity:
			weights[i] *= equityScale
		case contracts.BucketBond:
			weights[i] *= bondScale
		}
	}
}

// buildEntries drops immaterial weights, renormalizes and rounds.
// 剔除 <1% 的条目后再归一化, 最后把舍入残差补到最大权重上保住合计 100
func (e *Engine) buildEntries(candidates []contracts.InstrumentCandidate, buckets []contracts.AssetBucket, weights []float64) []contracts.AllocationEntry {
	var entries []contracts.AllocationEntry
	kept := 0.0
	for i, c := range candidates {
		if weights[i] < e.policy.MaterialityThreshold {
			continue
		}
		entries = append(entries, contracts.AllocationEntry{
			Code:          c.Code,
			Name:          c.Name,
			WeightPercent: weights[i],
			AssetClass:    c.AssetClass,
			Sector:        c.Sector,
			Bucket:        buckets[i],
		})
		kept += weights[i]
	}
	if len(entries) == 0 || kept == 0 {
		return nil
	}

	for i := range entries {
		entries[i].WeightPercent = round2(entries[i].WeightPercent * 100.0 / kept)
	}
	absorbRoundingResidual(entries)
	return entries
}

// absorbRoundingResidual adds the rounding remainder to the largest entry
func absorbRoundingResidual(entries []contracts.AllocationEntry) {
	total, largest := 0.0, 0
	for i, a := range entries {
		total += a.WeightPercent
		if a.WeightPercent > entries[largest].WeightPercent {
			largest = i
		}
	}
	entries[largest].WeightPercent = round2(entries[largest].WeightPercent + 100.0 - total)
}

// normalize scales weights so they sum to 100 percent
func normalize(weights []float64) {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total == 0 {
		return
	}
	for i := range weights {
		weights[i] *= 100.0 / total
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
