package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yichen/compass/backend/internal/scheduler"
	"github.com/yichen/compass/backend/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "调度器管理",
	Long: `启动调度器或管理定时任务.

Subcommands:
  start   - 启动调度器
  list    - 已注册任务列表
  run     - 立即执行指定任务
  status  - 任务执行状态

注册的任务:
- cache_warmup: 每天 8:30 (标的缓存预热)
- strategy_rebacktest: 每天 20:00 (策略回测重跑)
- news_refresh: 交易时段每 30 分钟 (资讯缓存刷新)

Example:
  go run ./cmd/compass scheduler start
  go run ./cmd/compass scheduler run cache_warmup`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "启动调度器",
		RunE:  runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "已注册任务列表",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "立即执行指定任务",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "任务执行状态",
		RunE:  showSchedulerStatus,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}

// initScheduler wires the scheduler with all registered jobs
func initScheduler(d *deps) (*scheduler.Scheduler, error) {
	sched := scheduler.New(d.log)

	if err := sched.AddJob(jobs.NewCacheWarmupJob(d.catalog, d.log)); err != nil {
		return nil, fmt.Errorf("add cache warmup job: %w", err)
	}
	if err := sched.AddJob(jobs.NewRebacktestJob(d.repo, d.service, d.log)); err != nil {
		return nil, fmt.Errorf("add rebacktest job: %w", err)
	}
	if err := sched.AddJob(jobs.NewNewsRefreshJob(d.news, d.log)); err != nil {
		return nil, fmt.Errorf("add news refresh job: %w", err)
	}

	return sched, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Compass Scheduler ===")

	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	sched, err := initScheduler(d)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sched.Stop()
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	sched, err := initScheduler(d)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	fmt.Println("Registered jobs:")
	for jobName, stats := range sched.GetJobStats() {
		fmt.Printf("  %-22s schedule: %s\n", jobName, stats.Schedule)
	}
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	sched, err := initScheduler(d)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	fmt.Printf("🚀 Running job: %s\n", jobName)
	if err := sched.RunJob(jobName); err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	// RunJob 是异步的, 给任务留出执行窗口
	time.Sleep(2 * time.Second)

	history, err := sched.GetJobHistory(jobName)
	if err != nil {
		return err
	}
	for _, result := range history.GetLatestResults(1) {
		if result.Success {
			fmt.Printf("✅ %s completed in %.2fs\n", result.JobName, result.Duration.Seconds())
		} else {
			fmt.Printf("❌ %s failed: %s\n", result.JobName, result.Error)
		}
	}
	return nil
}

func showSchedulerStatus(cmd *cobra.Command, args []string) error {
	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	sched, err := initScheduler(d)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	fmt.Println("Job status:")
	for jobName, stats := range sched.GetJobStats() {
		fmt.Printf("  %-22s runs: %d  success: %d  fail: %d  rate: %.0f%%\n",
			jobName, stats.TotalRuns, stats.SuccessCount, stats.FailureCount, stats.SuccessRate*100)
	}
	return nil
}
