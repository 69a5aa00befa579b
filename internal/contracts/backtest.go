package contracts

import "time"

// PriceSeries is a date-ordered sequence of closing prices for one instrument
// ⭐ SSOT: 目录层提供, 回测只读. Dates 与 Closes 等长且按日期升序
type PriceSeries struct {
	Code   string      `json:"code"`
	Dates  []time.Time `json:"dates"`
	Closes []float64   `json:"closes"`
}

// Len returns the number of observations
func (ps *PriceSeries) Len() int {
	return len(ps.Closes)
}

// DailyReturns derives the simple daily return series (pᵢ−pᵢ₋₁)/pᵢ₋₁.
// 首日无前收盘价, 结果比价格序列短一位. 前收盘为 0 的日子跳过.
func (ps *PriceSeries) DailyReturns() *ReturnSeries {
	rs := &ReturnSeries{
		Dates:   make([]time.Time, 0, max(0, len(ps.Closes)-1)),
		Returns: make([]float64, 0, max(0, len(ps.Closes)-1)),
	}
	for i := 1; i < len(ps.Closes); i++ {
		prev := ps.Closes[i-1]
		if prev == 0 {
			continue
		}
		rs.Dates = append(rs.Dates, ps.Dates[i])
		rs.Returns = append(rs.Returns, (ps.Closes[i]-prev)/prev)
	}
	return rs
}

// ReturnSeries is a date-indexed sequence of scalar daily returns.
// 组合收益与基准收益都用这个形态, 每次回测重新计算, 核心层不持久化.
type ReturnSeries struct {
	Dates   []time.Time `json:"dates"`
	Returns []float64   `json:"returns"`
}

// Len returns the number of observations
func (rs *ReturnSeries) Len() int {
	return len(rs.Returns)
}

// MinObservations is the smallest series length that yields trustworthy metrics
const MinObservations = 20

// RiskFreeRate is the fixed annual risk-free rate used for Sharpe
const RiskFreeRate = 0.03

// TradingDaysPerYear is the annualization factor for daily series
const TradingDaysPerYear = 252

// PerformanceMetrics is the fixed statistics record for one return series
type PerformanceMetrics struct {
	TotalReturn  float64 `json:"total_return"`
	AnnualReturn float64 `json:"annual_return"`
	Volatility   float64 `json:"volatility"`
	MaxDrawdown  float64 `json:"max_drawdown"` // 正数幅度
	SharpeRatio  float64 `json:"sharpe_ratio"`
	WinRate      float64 `json:"win_rate"`

	// Benchmark-relative fields, present only when a benchmark was supplied
	BenchmarkAnnualReturn float64 `json:"benchmark_annual_return,omitempty"`
	ExcessReturn          float64 `json:"excess_return,omitempty"`
	TrackingError         float64 `json:"tracking_error,omitempty"`
	InformationRatio      float64 `json:"information_ratio,omitempty"`
	HasBenchmark          bool    `json:"has_benchmark"`

	// InsufficientData marks metrics computed from fewer than MinObservations
	// 观测数不足时仍返回统计值, 但置信度低
	InsufficientData bool `json:"insufficient_data"`
	Observations     int  `json:"observations"`
}

// BacktestResult bundles the simulated series, metrics and data-quality flags
// ⭐ SSOT: 回测层 → 编排层的结果传递
type BacktestResult struct {
	Returns   *ReturnSeries      `json:"returns"`
	Benchmark *ReturnSeries      `json:"benchmark,omitempty"`
	Metrics   PerformanceMetrics `json:"metrics"`
	StartDate time.Time          `json:"start_date"`
	EndDate   time.Time          `json:"end_date"`

	// SyntheticCodes lists instruments that fell back to synthetic price data.
	// 非致命降级, 必须向调用方透出
	SyntheticCodes []string `json:"synthetic_codes,omitempty"`
}

// Degraded reports whether any instrument used synthetic fallback data
func (br *BacktestResult) Degraded() bool {
	return len(br.SyntheticCodes) > 0
}
