package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yichen/compass/backend/internal/contracts"
)

// Repository persists strategies, allocations and backtest rows
// ⭐ SSOT: 策略持久化只在这里
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new strategy repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Save inserts a strategy with its allocations in one transaction
func (r *Repository) Save(ctx context.Context, config *contracts.StrategyConfig) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	constraintsJSON, err := json.Marshal(config.Constraints)
	if err != nil {
		return 0, fmt.Errorf("marshal constraints: %w", err)
	}

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO app.strategies (
			user_id, strategy_name, risk_level, target_return,
			max_drawdown_tolerance, investment_amount, constraints, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING id
	`, config.UserID, config.Name, config.RiskLevel, config.TargetReturn,
		config.MaxDrawdown, config.InvestmentAmount, constraintsJSON,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert strategy: %w", err)
	}

	if err := insertAllocations(ctx, tx, id, config.Allocations); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return id, nil
}

// Update replaces a strategy's fields and allocations in one transaction.
// 优化后的权重整体替换, 不做增量修改
func (r *Repository) Update(ctx context.Context, config *contracts.StrategyConfig) error {
	if config.ID == 0 {
		return fmt.Errorf("update strategy: missing id")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE app.strategies
		SET risk_level = $2, target_return = $3, max_drawdown_tolerance = $4,
		    investment_amount = $5, updated_at = NOW()
		WHERE id = $1
	`, config.ID, config.RiskLevel, config.TargetReturn, config.MaxDrawdown, config.InvestmentAmount)
	if err != nil {
		return fmt.Errorf("update strategy: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("strategy %d: %w", config.ID, contracts.ErrStrategyNotFound)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM app.strategy_etf_allocations WHERE strategy_id = $1", config.ID); err != nil {
		return fmt.Errorf("delete old allocations: %w", err)
	}
	if err := insertAllocations(ctx, tx, config.ID, config.Allocations); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func insertAllocations(ctx context.Context, tx pgx.Tx, strategyID int64, allocations []contracts.AllocationEntry) error {
	query := `
		INSERT INTO app.strategy_etf_allocations (
			strategy_id, etf_code, etf_name, allocation_percentage, asset_class, sector, bucket
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, a := range allocations {
		if _, err := tx.Exec(ctx, query,
			strategyID, a.Code, a.Name, a.WeightPercent, a.AssetClass, a.Sector, a.Bucket,
		); err != nil {
			return fmt.Errorf("insert allocation %s: %w", a.Code, err)
		}
	}
	return nil
}

// Get retrieves a strategy with its allocations
func (r *Repository) Get(ctx context.Context, id int64) (*contracts.StrategyConfig, error) {
	var config contracts.StrategyConfig
	var constraintsJSON []byte
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, strategy_name, risk_level, target_return,
		       max_drawdown_tolerance, investment_amount, constraints, created_at, updated_at
		FROM app.strategies
		WHERE id = $1
	`, id).Scan(
		&config.ID, &config.UserID, &config.Name, &config.RiskLevel, &config.TargetReturn,
		&config.MaxDrawdown, &config.InvestmentAmount, &constraintsJSON,
		&config.CreatedAt, &config.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("strategy %d: %w", id, contracts.ErrStrategyNotFound)
		}
		return nil, fmt.Errorf("get strategy %d: %w", id, err)
	}

	if len(constraintsJSON) > 0 {
		if err := json.Unmarshal(constraintsJSON, &config.Constraints); err != nil {
			return nil, fmt.Errorf("unmarshal constraints: %w", err)
		}
	}

	rows, err := r.pool.Query(ctx, `
		SELECT etf_code, etf_name, allocation_percentage, asset_class, sector, bucket
		FROM app.strategy_etf_allocations
		WHERE strategy_id = $1
		ORDER BY allocation_percentage DESC, etf_code ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("get allocations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a contracts.AllocationEntry
		if err := rows.Scan(&a.Code, &a.Name, &a.WeightPercent, &a.AssetClass, &a.Sector, &a.Bucket); err != nil {
			return nil, fmt.Errorf("scan allocation: %w", err)
		}
		config.Allocations = append(config.Allocations, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read allocations: %w", err)
	}
	return &config, nil
}

// ListByUser retrieves a user's strategies, newest first, without allocations
func (r *Repository) ListByUser(ctx context.Context, userID int64, limit int) ([]contracts.StrategyConfig, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, strategy_name, risk_level, target_return,
		       max_drawdown_tolerance, investment_amount, created_at, updated_at
		FROM app.strategies
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list strategies: %w", err)
	}
	defer rows.Close()

	var out []contracts.StrategyConfig
	for rows.Next() {
		var config contracts.StrategyConfig
		if err := rows.Scan(
			&config.ID, &config.UserID, &config.Name, &config.RiskLevel, &config.TargetReturn,
			&config.MaxDrawdown, &config.InvestmentAmount, &config.CreatedAt, &config.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan strategy: %w", err)
		}
		out = append(out, config)
	}
	return out, rows.Err()
}

// ListRecentIDs returns the ids of recently updated strategies.
// 夜间重跑回测用, 按更新时间取最近的一批
func (r *Repository) ListRecentIDs(ctx context.Context, limit int) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id
		FROM app.strategies
		ORDER BY updated_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list strategy ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan strategy id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SaveBacktest replaces the stored daily backtest rows for a strategy.
// 每次重跑整体覆盖, 汇总指标 JSON 挂在末行
func (r *Repository) SaveBacktest(ctx context.Context, strategyID int64, result *contracts.BacktestResult) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM app.strategy_backtest_data WHERE strategy_id = $1", strategyID); err != nil {
		return fmt.Errorf("delete old backtest rows: %w", err)
	}

	metricsJSON, err := json.Marshal(result.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}

	query := `
		INSERT INTO app.strategy_backtest_data (
			strategy_id, trade_date, daily_return, cumulative_return, portfolio_value, metrics
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	cumulative := 1.0
	for i, d := range result.Returns.Dates {
		cumulative *= 1 + result.Returns.Returns[i]

		// 指标 JSON 只挂在末行, 其余行为 NULL
		var rowMetrics []byte
		if i == result.Returns.Len()-1 {
			rowMetrics = metricsJSON
		}
		if _, err := tx.Exec(ctx, query,
			strategyID, d, result.Returns.Returns[i], cumulative-1, cumulative, rowMetrics,
		); err != nil {
			return fmt.Errorf("insert backtest row: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetBacktest reconstructs the stored backtest result for a strategy
func (r *Repository) GetBacktest(ctx context.Context, strategyID int64) (*contracts.BacktestResult, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT trade_date, daily_return, metrics
		FROM app.strategy_backtest_data
		WHERE strategy_id = $1
		ORDER BY trade_date ASC
	`, strategyID)
	if err != nil {
		return nil, fmt.Errorf("get backtest rows: %w", err)
	}
	defer rows.Close()

	result := &contracts.BacktestResult{Returns: &contracts.ReturnSeries{}}
	var metricsJSON []byte
	for rows.Next() {
		var date time.Time
		var dailyReturn float64
		var rowMetrics []byte
		if err := rows.Scan(&date, &dailyReturn, &rowMetrics); err != nil {
			return nil, fmt.Errorf("scan backtest row: %w", err)
		}
		result.Returns.Dates = append(result.Returns.Dates, date)
		result.Returns.Returns = append(result.Returns.Returns, dailyReturn)
		if len(rowMetrics) > 0 {
			metricsJSON = rowMetrics
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read backtest rows: %w", err)
	}

	if result.Returns.Len() == 0 {
		return nil, fmt.Errorf("backtest for strategy %d: %w", strategyID, contracts.ErrStrategyNotFound)
	}

	result.StartDate = result.Returns.Dates[0]
	result.EndDate = result.Returns.Dates[result.Returns.Len()-1]
	if len(metricsJSON) > 0 {
		if err := json.Unmarshal(metricsJSON, &result.Metrics); err != nil {
			return nil, fmt.Errorf("unmarshal metrics: %w", err)
		}
	}
	return result, nil
}
