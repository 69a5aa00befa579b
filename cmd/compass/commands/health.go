package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yichen/compass/backend/pkg/config"
	"github.com/yichen/compass/backend/pkg/database"
	"github.com/yichen/compass/backend/pkg/redis"
)

// healthCmd represents the health command
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "依赖健康检查",
	Long: `检查 PostgreSQL 与 Redis 连接并输出连接池统计.

这个命令会:
- 读取配置并连接数据库
- 执行 Ping 与 Health Check
- 输出连接池统计
- 检查 Redis 连通性

Example:
  go run ./cmd/compass health
  go run ./cmd/compass health --env production`,
	RunE: runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Compass Health Check ===")

	fmt.Println("Loading configuration...")
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("❌ Failed to load config: %w", err)
	}
	fmt.Printf("✅ Config loaded (ENV: %s)\n", cfg.Env)
	fmt.Printf("   Database URL: %s\n\n", maskPassword(cfg.Database.URL))

	fmt.Println("Connecting to database...")
	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("❌ Failed to connect to database: %w", err)
	}
	defer db.Close()
	fmt.Println("✅ Database connection established")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("❌ Failed to ping database: %w", err)
	}
	fmt.Println("✅ Ping successful")

	status, err := db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("❌ Health check failed: %w", err)
	}

	fmt.Println("✅ Health Check Results:")
	fmt.Printf("   Healthy: %v\n", status.Healthy)
	fmt.Printf("   Response Time: %v\n\n", status.ResponseTime)

	fmt.Println("📊 Connection Pool Statistics:")
	fmt.Printf("   Max Connections: %d\n", status.Stats.MaxConns)
	fmt.Printf("   Total Connections: %d\n", status.Stats.TotalConns)
	fmt.Printf("   Acquired Connections: %d\n", status.Stats.AcquiredConns)
	fmt.Printf("   Idle Connections: %d\n", status.Stats.IdleConns)

	// Redis
	fmt.Println("\nChecking Redis...")
	redisClient, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("❌ Failed to connect to redis: %w", err)
	}
	defer redisClient.Close()

	if redisClient.Enabled() {
		if err := redisClient.Ping(ctx); err != nil {
			return fmt.Errorf("❌ Redis ping failed: %w", err)
		}
		fmt.Println("✅ Redis connection established")
	} else {
		fmt.Println("ℹ️  Redis disabled, caching and rate limiting are off")
	}

	fmt.Println("\n✅ All checks passed!")
	return nil
}

// maskPassword masks the password in the database URL for display
func maskPassword(url string) string {
	if len(url) < 55 {
		if len(url) < 30 {
			return "***"
		}
		return url[:30] + "***"
	}
	return url[:30] + "***" + url[len(url)-25:]
}
