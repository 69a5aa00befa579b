package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yichen/compass/backend/internal/contracts"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "历史回测",
	Long: `用历史行情模拟策略表现.

回测会给出:
- 总收益与年化收益
- 波动率 / 最大回撤 / 夏普比率
- 相对基准的超额收益与信息比率

Example:
  go run ./cmd/compass backtest run --strategy 7
  go run ./cmd/compass backtest run --strategy 7 --days 730`,
}

var (
	backtestRunCmd = &cobra.Command{
		Use:   "run",
		Short: "运行回测",
		Long: `对已保存的策略运行回测并持久化结果.

Flags:
  --strategy  策略 ID (必填)
  --days      回测窗口天数 (默认读配置, 一般 365)

Example:
  go run ./cmd/compass backtest run --strategy 7
  go run ./cmd/compass backtest run --strategy 7 --days 730`,
		RunE: runBacktest,
	}

	// Flags
	backtestStrategy int64
	backtestDays     int
)

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.AddCommand(backtestRunCmd)

	// Flags
	backtestRunCmd.Flags().Int64Var(&backtestStrategy, "strategy", 0, "策略 ID (必填)")
	backtestRunCmd.Flags().IntVar(&backtestDays, "days", 0, "回测窗口天数")
	backtestRunCmd.MarkFlagRequired("strategy")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Compass Backtest Engine ===")

	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	fmt.Printf("\n🚀 Running backtest for strategy #%d...\n", backtestStrategy)

	result, err := d.service.Backtest(cmd.Context(), backtestStrategy, backtestDays)
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	printBacktestResult(result)
	return nil
}

func printBacktestResult(result *contracts.BacktestResult) {
	m := result.Metrics

	fmt.Println("\n✅ Backtest Completed")
	fmt.Println("=" + strings.Repeat("=", 60))
	fmt.Println()

	// Summary
	fmt.Println("📊 Summary")
	fmt.Printf("Period: %s ~ %s (%d trading days)\n",
		result.StartDate.Format("2006-01-02"),
		result.EndDate.Format("2006-01-02"),
		m.Observations)
	if result.Degraded() {
		fmt.Printf("⚠️  Synthetic data used for: %s\n", strings.Join(result.SyntheticCodes, ", "))
	}
	if m.InsufficientData {
		fmt.Println("⚠️  Insufficient observations, metrics are indicative only")
	}
	fmt.Println()

	// Performance
	fmt.Println("💰 Performance")
	fmt.Printf("Total Return:    %+.2f%%\n", m.TotalReturn*100)
	fmt.Printf("Annual Return:   %+.2f%%\n", m.AnnualReturn*100)
	fmt.Printf("Volatility:      %.2f%%\n", m.Volatility*100)
	fmt.Printf("Win Rate:        %.1f%%\n", m.WinRate*100)
	fmt.Println()

	// Risk Metrics
	fmt.Println("📉 Risk Metrics")
	fmt.Printf("Sharpe Ratio:    %.2f", m.SharpeRatio)
	if m.SharpeRatio > 2.0 {
		fmt.Print(" 🌟 (Excellent)")
	} else if m.SharpeRatio > 1.0 {
		fmt.Print(" ✅ (Good)")
	} else if m.SharpeRatio > 0.5 {
		fmt.Print(" ⚠️  (Fair)")
	} else {
		fmt.Print(" ❌ (Poor)")
	}
	fmt.Println()

	fmt.Printf("Max Drawdown:    %.2f%%", m.MaxDrawdown*100)
	if m.MaxDrawdown < 0.10 {
		fmt.Print(" 🌟 (Excellent)")
	} else if m.MaxDrawdown < 0.20 {
		fmt.Print(" ✅ (Good)")
	} else if m.MaxDrawdown < 0.30 {
		fmt.Print(" ⚠️  (Fair)")
	} else {
		fmt.Print(" ❌ (High)")
	}
	fmt.Println()
	fmt.Println()

	// Benchmark comparison
	if m.HasBenchmark {
		fmt.Println("📈 Benchmark Comparison")
		fmt.Printf("Benchmark Annual: %+.2f%%\n", m.BenchmarkAnnualReturn*100)
		fmt.Printf("Excess Return:    %+.2f%%\n", m.ExcessReturn*100)
		fmt.Printf("Tracking Error:   %.2f%%\n", m.TrackingError*100)
		fmt.Printf("Info Ratio:       %.2f\n", m.InformationRatio)
		fmt.Println()
	}

	// Recommendation
	fmt.Println("💡 Recommendation")
	if m.SharpeRatio > 1.0 && m.MaxDrawdown < 0.15 {
		fmt.Println("✅ Strong strategy - good risk-adjusted returns")
	} else if m.SharpeRatio > 0.5 && m.MaxDrawdown < 0.25 {
		fmt.Println("⚠️  Acceptable strategy - consider optimization")
	} else {
		fmt.Println("❌ Weak strategy - needs improvement")
	}
	fmt.Println()
}
