package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yichen/compass/backend/internal/api"
	"github.com/yichen/compass/backend/internal/api/handlers"
	"github.com/yichen/compass/backend/internal/conversation"
	"github.com/yichen/compass/backend/internal/safety"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "启动 API 服务",
	Long: `启动 REST API 与 WebSocket 会话服务.

这个命令会:
- 启动 HTTP API 服务
- 提供策略生成 / 调优 / 回测端点
- 提供 WebSocket 投顾会话端点

Endpoints:
  GET  /health                          - Health check
  POST /api/strategies                  - 生成策略
  POST /api/strategies/{id}/feedback    - 反馈调优
  POST /api/strategies/{id}/backtest    - 运行回测
  GET  /api/etf                         - ETF 列表
  GET  /api/news                        - 市场资讯
  WS   /ws/conversation                 - 投顾会话

Example:
  go run ./cmd/compass api
  go run ./cmd/compass api --port 8087`,
	RunE: runAPIServer,
}

var (
	apiPort       string
	apiKeywordDir string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 服务端口 (默认读配置)")
	apiCmd.Flags().StringVar(&apiKeywordDir, "keywords", "", "合规词表目录 (默认用内置词表)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Compass API Server ===")

	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	if apiPort != "" {
		d.cfg.Port = apiPort
	}

	d.log.WithFields(map[string]interface{}{
		"port": d.cfg.Port,
		"env":  d.cfg.Env,
	}).Info("Initializing API server")

	// Compliance filter
	filter := safety.NewFilter(d.log)
	if apiKeywordDir != "" {
		filter, err = safety.NewFilterFromDir(apiKeywordDir, d.log)
		if err != nil {
			return fmt.Errorf("load compliance keywords: %w", err)
		}
	}

	// Conversation hub
	hub := conversation.NewHub(conversation.NewFlow(), d.service, filter, d.log)

	// Handlers and router
	strategyHandler := handlers.NewStrategyHandler(d.service, d.log)
	etfHandler := handlers.NewETFHandler(d.catalog, d.log)
	newsHandler := handlers.NewNewsHandler(d.news, d.log)
	router := api.NewRouter(strategyHandler, etfHandler, newsHandler, hub, d.log)

	server := api.New(d.cfg, d.log, router)

	go func() {
		if err := server.Start(); err != nil {
			d.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", d.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	d.log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	d.log.Info("Server stopped")
	return nil
}
