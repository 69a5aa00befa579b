package universe

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/yichen/compass/backend/internal/contracts"
	"github.com/yichen/compass/backend/pkg/logger"
)

// Config holds universe construction parameters
type Config struct {
	PreferredPullLimit int      // 每个偏好类别的候选拉取上限
	DefaultPullLimit   int      // 默认篮子每类拉取上限
	DefaultBasket      []string // 无偏好时覆盖的主要资产类别
}

// DefaultConfig returns the standard universe construction parameters
func DefaultConfig() Config {
	return Config{
		PreferredPullLimit: 15,
		DefaultPullLimit:   8,
		DefaultBasket:      []string{"股票", "债券", "商品", "REITS"},
	}
}

// Builder filters and ranks the catalog into a bounded candidate universe
// ⭐ SSOT: 标的池构建只在这里
type Builder struct {
	catalog contracts.InstrumentCatalog
	config  Config
	logger  *logger.Logger
}

// NewBuilder creates a new universe builder
func NewBuilder(catalog contracts.InstrumentCatalog, config Config, log *logger.Logger) *Builder {
	return &Builder{
		catalog: catalog,
		config:  config,
		logger:  log,
	}
}

// Build constructs the candidate universe for one request.
// 流程: 拉取候选 → 违禁词过滤 → 硬约束过滤 → 去重 → 排序截断.
// 过滤后为空时返回 ErrEmptyUniverse, 不返回空成功结果.
func (b *Builder) Build(ctx context.Context, elements *contracts.InvestmentElements) ([]contracts.InstrumentCandidate, error) {
	pool, err := b.pull(ctx, elements.PreferredAssetClasses)
	if err != nil {
		return nil, fmt.Errorf("pull candidates: %w", err)
	}

	pulled := len(pool)
	pool = b.filterForbidden(pool, elements.ForbiddenAssets)
	pool = b.filterConstraints(pool, elements.Constraints)
	pool = dedupByCode(pool)

	if len(pool) == 0 {
		b.logger.WithFields(map[string]interface{}{
			"pulled":    pulled,
			"forbidden": elements.ForbiddenAssets,
		}).Warn("Universe empty after filtering")
		return nil, fmt.Errorf("universe build: %w", contracts.ErrEmptyUniverse)
	}

	ranked := rank(pool)

	limit := elements.Constraints.MaxInstrumentCount
	if limit <= 0 {
		limit = contracts.DefaultUniverseConstraints().MaxInstrumentCount
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	b.logger.WithFields(map[string]interface{}{
		"pulled":   pulled,
		"selected": len(ranked),
	}).Info("Universe built")
	return ranked, nil
}

// pull gathers raw candidates per preferred class, or a default basket
// spanning the major asset classes so the universe is never empty by
// construction.
func (b *Builder) pull(ctx context.Context, preferred []string) ([]contracts.InstrumentCandidate, error) {
	classes := preferred
	limit := b.config.PreferredPullLimit
	if len(classes) == 0 {
		classes = b.config.DefaultBasket
		limit = b.config.DefaultPullLimit
	}

	var pool []contracts.InstrumentCandidate
	for _, class := range classes {
		candidates, err := b.catalog.ListInstruments(ctx, class, "", limit)
		if err != nil {
			return nil, fmt.Errorf("list %s instruments: %w", class, err)
		}
		pool = append(pool, candidates...)
	}
	return pool, nil
}

// filterForbidden removes candidates whose class+sector text contains a
// forbidden term. 大小写不敏感的子串匹配
func (b *Builder) filterForbidden(pool []contracts.InstrumentCandidate, forbidden []string) []contracts.InstrumentCandidate {
	if len(forbidden) == 0 {
		return pool
	}

	out := pool[:0]
	for _, c := range pool {
		text := strings.ToLower(c.ClassText())
		banned := false
		for _, term := range forbidden {
			if term == "" {
				continue
			}
			if strings.Contains(text, strings.ToLower(term)) {
				banned = true
				break
			}
		}
		if !banned {
			out = append(out, c)
		}
	}
	return out
}

// filterConstraints applies the hard numeric constraints
func (b *Builder) filterConstraints(pool []contracts.InstrumentCandidate, cons contracts.UniverseConstraints) []contracts.InstrumentCandidate {
	out := pool[:0]
	for _, c := range pool {
		if cons.MinMarketCap > 0 && c.MarketCap < cons.MinMarketCap {
			continue
		}
		if cons.MaxExpenseRatio > 0 && c.ExpenseRatio > cons.MaxExpenseRatio {
			continue
		}
		out = append(out, c)
	}
	return out
}

// dedupByCode removes duplicate codes keeping the first occurrence
func dedupByCode(pool []contracts.InstrumentCandidate) []contracts.InstrumentCandidate {
	seen := make(map[string]bool, len(pool))
	out := pool[:0]
	for _, c := range pool {
		if seen[c.Code] {
			continue
		}
		seen[c.Code] = true
		out = append(out, c)
	}
	return out
}

// rank orders candidates by composite tier score, descending.
// 稳定排序: 同分保持目录顺序, 保证确定性
func rank(pool []contracts.InstrumentCandidate) []contracts.InstrumentCandidate {
	out := make([]contracts.InstrumentCandidate, len(pool))
	copy(out, pool)
	sort.SliceStable(out, func(i, j int) bool {
		return rankScore(out[i]) > rankScore(out[j])
	})
	return out
}

// rankScore computes the deterministic composite tier score.
// 市值分档 + 费率分档 + 夏普分档, 固定加分制
func rankScore(c contracts.InstrumentCandidate) int {
	score := 0

	// 市值: 100亿 / 50亿 / 10亿 分档
	switch {
	case c.MarketCap > 1e10:
		score += 3
	case c.MarketCap > 5e9:
		score += 2
	case c.MarketCap > 1e9:
		score += 1
	}

	// 费率: 低费率加分
	switch {
	case c.ExpenseRatio > 0 && c.ExpenseRatio < 0.5:
		score += 2
	case c.ExpenseRatio > 0 && c.ExpenseRatio < 1.0:
		score += 1
	}

	// 夏普比率提示
	switch {
	case c.SharpeRatio > 1.0:
		score += 2
	case c.SharpeRatio > 0.5:
		score += 1
	}

	return score
}
