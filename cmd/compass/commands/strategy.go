package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yichen/compass/backend/internal/contracts"
)

// strategyCmd represents the strategy command
var strategyCmd = &cobra.Command{
	Use:   "strategy",
	Short: "策略管理",
	Long: `生成或调优投资策略.

Subcommands:
  generate  - 按投资要素生成策略
  optimize  - 按自然语言反馈调优策略
  show      - 查看已保存的策略

Example:
  go run ./cmd/compass strategy generate --user 1 --risk balanced --target 8
  go run ./cmd/compass strategy optimize --strategy 7 --feedback "风险太高了"
  go run ./cmd/compass strategy show --strategy 7`,
}

var (
	strategyGenerateCmd = &cobra.Command{
		Use:   "generate",
		Short: "生成策略",
		Long: `按结构化投资要素构建标的池并生成配置方案.

Flags:
  --user      用户 ID (必填)
  --name      策略名称
  --risk      风险等级 (conservative|balanced|aggressive|speculative)
  --target    目标年化收益率 (%)
  --prefer    偏好资产类别, 逗号分隔 (如: 股票,债券)
  --forbid    排除资产, 逗号分隔

Example:
  go run ./cmd/compass strategy generate --user 1 --risk balanced --target 8
  go run ./cmd/compass strategy generate --user 1 --risk aggressive --prefer 股票,商品`,
		RunE: runStrategyGenerate,
	}

	strategyOptimizeCmd = &cobra.Command{
		Use:   "optimize",
		Short: "反馈调优",
		RunE:  runStrategyOptimize,
	}

	strategyShowCmd = &cobra.Command{
		Use:   "show",
		Short: "查看策略",
		RunE:  runStrategyShow,
	}

	// Flags
	strategyUser     int64
	strategyName     string
	strategyRisk     string
	strategyTarget   float64
	strategyPrefer   string
	strategyForbid   string
	strategyID       int64
	strategyFeedback string
)

func init() {
	rootCmd.AddCommand(strategyCmd)
	strategyCmd.AddCommand(strategyGenerateCmd)
	strategyCmd.AddCommand(strategyOptimizeCmd)
	strategyCmd.AddCommand(strategyShowCmd)

	// Flags
	strategyGenerateCmd.Flags().Int64Var(&strategyUser, "user", 0, "用户 ID (必填)")
	strategyGenerateCmd.Flags().StringVar(&strategyName, "name", "", "策略名称")
	strategyGenerateCmd.Flags().StringVar(&strategyRisk, "risk", "balanced", "风险等级")
	strategyGenerateCmd.Flags().Float64Var(&strategyTarget, "target", 0, "目标年化收益率 (%)")
	strategyGenerateCmd.Flags().StringVar(&strategyPrefer, "prefer", "", "偏好资产类别, 逗号分隔")
	strategyGenerateCmd.Flags().StringVar(&strategyForbid, "forbid", "", "排除资产, 逗号分隔")
	strategyGenerateCmd.MarkFlagRequired("user")

	strategyOptimizeCmd.Flags().Int64Var(&strategyID, "strategy", 0, "策略 ID (必填)")
	strategyOptimizeCmd.Flags().StringVar(&strategyFeedback, "feedback", "", "反馈文本 (必填)")
	strategyOptimizeCmd.MarkFlagRequired("strategy")
	strategyOptimizeCmd.MarkFlagRequired("feedback")

	strategyShowCmd.Flags().Int64Var(&strategyID, "strategy", 0, "策略 ID (必填)")
	strategyShowCmd.MarkFlagRequired("strategy")
}

func runStrategyGenerate(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Compass Strategy Generator ===")

	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	elements := &contracts.InvestmentElements{
		RiskLevel:    contracts.RiskLevel(strategyRisk),
		TargetReturn: strategyTarget,
	}
	if strategyPrefer != "" {
		elements.PreferredAssetClasses = splitList(strategyPrefer)
	}
	if strategyForbid != "" {
		elements.ForbiddenAssets = splitList(strategyForbid)
	}
	if !elements.RiskLevel.IsValid() {
		return fmt.Errorf("invalid risk level: %s", strategyRisk)
	}

	config, err := d.service.Generate(cmd.Context(), strategyUser, strategyName, elements)
	if err != nil {
		return fmt.Errorf("generate strategy: %w", err)
	}

	fmt.Printf("\n✅ Strategy #%d created\n", config.ID)
	printStrategy(config)
	return nil
}

func runStrategyOptimize(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Compass Strategy Optimizer ===")

	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	config, changes, err := d.service.Optimize(cmd.Context(), strategyID, strategyFeedback)
	if err != nil {
		return fmt.Errorf("optimize strategy: %w", err)
	}

	if len(changes) == 0 {
		fmt.Println("\nℹ️  No material changes")
		return nil
	}

	fmt.Printf("\n✅ Strategy #%d adjusted\n\n", config.ID)
	fmt.Println("📊 Changes")
	for _, change := range changes {
		fmt.Printf("  %-10s %-12s %6.2f%% → %6.2f%% (%+.2f)\n",
			change.Code, change.Name, change.OldWeight, change.NewWeight, change.Delta)
	}
	fmt.Println()
	printStrategy(config)
	return nil
}

func runStrategyShow(cmd *cobra.Command, args []string) error {
	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	config, err := d.service.Get(cmd.Context(), strategyID)
	if err != nil {
		return fmt.Errorf("get strategy: %w", err)
	}

	printStrategy(config)
	return nil
}

func printStrategy(config *contracts.StrategyConfig) {
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Printf("  %s (风险: %s)\n", displayName(config), config.RiskLevel)
	fmt.Println("───────────────────────────────────────────────────────────")
	for _, alloc := range config.Allocations {
		fmt.Printf("  %-10s %-16s %-6s %6.2f%%\n",
			alloc.Code, alloc.Name, alloc.AssetClass, alloc.WeightPercent)
	}
	fmt.Println("───────────────────────────────────────────────────────────")
	fmt.Printf("  合计: %.2f%%  (%d 只标的)\n", config.TotalWeight(), config.Count())
	fmt.Println("═══════════════════════════════════════════════════════════")
}

func displayName(config *contracts.StrategyConfig) string {
	if config.Name != "" {
		return config.Name
	}
	return fmt.Sprintf("Strategy #%d", config.ID)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
