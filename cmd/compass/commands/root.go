package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "compass",
	Short: "Compass - ETF 策略构建与回测引擎",
	Long: `Compass Unified CLI

ETF 投资策略后端: 标的池构建, 资产配置, 反馈调优, 历史回测.

Usage:
  go run ./cmd/compass [command]

Examples:
  go run ./cmd/compass api
  go run ./cmd/compass strategy generate --user 1 --risk balanced
  go run ./cmd/compass backtest run --strategy 7 --days 365
  go run ./cmd/compass scheduler start`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
