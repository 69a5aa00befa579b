package contracts

// InstrumentCandidate represents one eligible fund supplied by the catalog
// ⭐ SSOT: 目录层 → 策略层的标的快照,核心层只读不改
type InstrumentCandidate struct {
	Code         string  `json:"code"`                   // 基金代码, 如 510300.SH
	Name         string  `json:"name"`                   // 基金名称
	AssetClass   string  `json:"asset_class"`            // 资产类别: 股票/债券/商品/REITS/货币
	Sector       string  `json:"sector"`                 // 行业/主题
	MarketCap    float64 `json:"market_cap"`             // 市值 (元)
	ExpenseRatio float64 `json:"expense_ratio"`          // 费率 (%)
	Scale        float64 `json:"scale"`                  // 基金规模 (元)
	SharpeRatio  float64 `json:"sharpe_ratio,omitempty"` // 排序提示, 可缺省
	Volatility   float64 `json:"volatility,omitempty"`   // 排序提示, 可缺省
}

// ClassText returns the combined class+sector text used for keyword matching
func (c *InstrumentCandidate) ClassText() string {
	return c.AssetClass + " " + c.Sector
}

// UniverseConstraints bounds the candidate universe for one request
type UniverseConstraints struct {
	MinMarketCap       float64 `json:"min_market_cap"`       // 0 = 不限
	MaxExpenseRatio    float64 `json:"max_expense_ratio"`    // 0 = 不限
	MaxInstrumentCount int     `json:"max_instrument_count"` // 最终标的数上限
}

// DefaultUniverseConstraints returns the standard universe bounds
func DefaultUniverseConstraints() UniverseConstraints {
	return UniverseConstraints{
		MaxInstrumentCount: 12,
	}
}

// InvestmentElements is the structured preference set elicited by the
// conversation layer. Free text never reaches the core; classification
// happens upstream.
// ⭐ SSOT: 会话层 → 策略层的要素传递
type InvestmentElements struct {
	RiskLevel             RiskLevel           `json:"risk_level"`
	TargetReturn          float64             `json:"target_return,omitempty"` // 年化目标收益 (%), 0 = 未提供
	MaxDrawdownTolerance  float64             `json:"max_drawdown_tolerance,omitempty"`
	InvestmentAmount      float64             `json:"investment_amount,omitempty"` // 元
	PreferredAssetClasses []string            `json:"preferred_asset_classes,omitempty"`
	ForbiddenAssets       []string            `json:"forbidden_assets,omitempty"`
	Constraints           UniverseConstraints `json:"constraints"`
}

// HasTargetReturn reports whether the user supplied a target return
func (e *InvestmentElements) HasTargetReturn() bool {
	return e.TargetReturn > 0
}
