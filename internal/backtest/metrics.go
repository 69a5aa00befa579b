package backtest

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/yichen/compass/backend/internal/contracts"
)

// ComputeMetrics reduces a daily return series to the fixed statistics record.
// 观测数不足 MinObservations 时仍给出统计值, 但打上低置信标记.
// ⭐ SSOT: 绩效指标公式只在这里
func ComputeMetrics(series *contracts.ReturnSeries, benchmark *contracts.ReturnSeries) contracts.PerformanceMetrics {
	n := series.Len()
	metrics := contracts.PerformanceMetrics{
		Observations:     n,
		InsufficientData: n < contracts.MinObservations,
	}
	if n == 0 {
		return metrics
	}

	returns := series.Returns

	// 累计收益: Π(1+rᵢ) − 1
	cumulative := 1.0
	for _, r := range returns {
		cumulative *= 1 + r
	}
	metrics.TotalReturn = cumulative - 1

	// 年化: 按交易日观测数折算, 不按日历天数
	metrics.AnnualReturn = math.Pow(1+metrics.TotalReturn, float64(contracts.TradingDaysPerYear)/float64(n)) - 1

	metrics.Volatility = annualizedStdDev(returns)
	metrics.MaxDrawdown = maxDrawdown(returns)

	if metrics.Volatility != 0 {
		metrics.SharpeRatio = (metrics.AnnualReturn - contracts.RiskFreeRate) / metrics.Volatility
	}

	wins := 0
	for _, r := range returns {
		if r > 0 {
			wins++
		}
	}
	metrics.WinRate = float64(wins) / float64(n)

	if benchmark != nil && benchmark.Len() > 0 {
		applyBenchmark(&metrics, series, benchmark)
	}
	return metrics
}

// annualizedStdDev is the sample standard deviation scaled by √252
func annualizedStdDev(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	return stat.StdDev(returns, nil) * math.Sqrt(float64(contracts.TradingDaysPerYear))
}

// maxDrawdown tracks the running peak of the cumulative product and reports
// the deepest decline as a positive magnitude.
func maxDrawdown(returns []float64) float64 {
	value, peak, worst := 1.0, 1.0, 0.0
	for _, r := range returns {
		value *= 1 + r
		if value > peak {
			peak = value
		}
		if dd := (peak - value) / peak; dd > worst {
			worst = dd
		}
	}
	return worst
}

// applyBenchmark computes the benchmark-relative fields over the inner join
// of portfolio and benchmark dates.
func applyBenchmark(metrics *contracts.PerformanceMetrics, series, benchmark *contracts.ReturnSeries) {
	portAligned, benchAligned := alignByDate(series, benchmark)
	if len(portAligned) == 0 {
		return
	}
	metrics.HasBenchmark = true

	// 基准年化用对齐后的基准序列计算
	benchCumulative := 1.0
	for _, r := range benchAligned {
		benchCumulative *= 1 + r
	}
	metrics.BenchmarkAnnualReturn = math.Pow(benchCumulative, float64(contracts.TradingDaysPerYear)/float64(len(benchAligned))) - 1

	diff := make([]float64, len(portAligned))
	for i := range portAligned {
		diff[i] = portAligned[i] - benchAligned[i]
	}
	metrics.TrackingError = annualizedStdDev(diff)
	metrics.ExcessReturn = metrics.AnnualReturn - metrics.BenchmarkAnnualReturn
	if metrics.TrackingError != 0 {
		metrics.InformationRatio = metrics.ExcessReturn / metrics.TrackingError
	}
}

// alignByDate inner-joins two return series on their common dates
func alignByDate(a, b *contracts.ReturnSeries) ([]float64, []float64) {
	byDate := make(map[string]float64, b.Len())
	for i, d := range b.Dates {
		byDate[dateKey(d)] = b.Returns[i]
	}

	var aOut, bOut []float64
	for i, d := range a.Dates {
		if r, ok := byDate[dateKey(d)]; ok {
			aOut = append(aOut, a.Returns[i])
			bOut = append(bOut, r)
		}
	}
	return aOut, bOut
}

func dateKey(d time.Time) string {
	return d.Format("2006-01-02")
}
