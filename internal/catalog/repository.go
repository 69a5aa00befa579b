package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yichen/compass/backend/internal/contracts"
)

// Repository implements contracts.InstrumentCatalog over PostgreSQL
// ⭐ SSOT: ETF 基础数据访问只在这里
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new catalog repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListInstruments retrieves candidates filtered by asset class and sector.
// 按规模降序, 规模大的基金流动性更好
func (r *Repository) ListInstruments(ctx context.Context, assetClass, sector string, limit int) ([]contracts.InstrumentCandidate, error) {
	query := `
		SELECT etf_code, etf_name, asset_class, sector, market_cap, expense_ratio, fund_scale,
		       COALESCE(sharpe_ratio, 0), COALESCE(volatility, 0)
		FROM data.etf_info
		WHERE ($1 = '' OR asset_class LIKE '%' || $1 || '%')
		  AND ($2 = '' OR sector LIKE '%' || $2 || '%')
		  AND is_active = TRUE
		ORDER BY fund_scale DESC, etf_code ASC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, assetClass, sector, limit)
	if err != nil {
		return nil, fmt.Errorf("list instruments: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

// SearchInstruments retrieves candidates whose code or name matches the keyword
func (r *Repository) SearchInstruments(ctx context.Context, keyword string, limit int) ([]contracts.InstrumentCandidate, error) {
	query := `
		SELECT etf_code, etf_name, asset_class, sector, market_cap, expense_ratio, fund_scale,
		       COALESCE(sharpe_ratio, 0), COALESCE(volatility, 0)
		FROM data.etf_info
		WHERE (etf_code LIKE '%' || $1 || '%' OR etf_name LIKE '%' || $1 || '%')
		  AND is_active = TRUE
		ORDER BY fund_scale DESC, etf_code ASC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, keyword, limit)
	if err != nil {
		return nil, fmt.Errorf("search instruments: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

// GetInstrument retrieves a single instrument by code
func (r *Repository) GetInstrument(ctx context.Context, code string) (*contracts.InstrumentCandidate, error) {
	query := `
		SELECT etf_code, etf_name, asset_class, sector, market_cap, expense_ratio, fund_scale,
		       COALESCE(sharpe_ratio, 0), COALESCE(volatility, 0)
		FROM data.etf_info
		WHERE etf_code = $1
	`

	var c contracts.InstrumentCandidate
	err := r.pool.QueryRow(ctx, query, code).Scan(
		&c.Code, &c.Name, &c.AssetClass, &c.Sector,
		&c.MarketCap, &c.ExpenseRatio, &c.Scale, &c.SharpeRatio, &c.Volatility,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("instrument %s: %w", code, contracts.ErrInstrumentNotFound)
		}
		return nil, fmt.Errorf("get instrument %s: %w", code, err)
	}
	return &c, nil
}

// GetPriceSeries retrieves date-ordered closing prices for one instrument
func (r *Repository) GetPriceSeries(ctx context.Context, code string, start, end time.Time) (*contracts.PriceSeries, error) {
	query := `
		SELECT trade_date, close_price
		FROM data.etf_prices
		WHERE etf_code = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, code, start, end)
	if err != nil {
		return nil, fmt.Errorf("get price series %s: %w", code, err)
	}
	defer rows.Close()

	series := &contracts.PriceSeries{Code: code}
	for rows.Next() {
		var date time.Time
		var close float64
		if err := rows.Scan(&date, &close); err != nil {
			return nil, fmt.Errorf("scan price row: %w", err)
		}
		series.Dates = append(series.Dates, date)
		series.Closes = append(series.Closes, close)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read price rows: %w", err)
	}
	return series, nil
}

// GetBenchmarkSeries retrieves date-ordered closing values for a benchmark index
func (r *Repository) GetBenchmarkSeries(ctx context.Context, indexCode string, start, end time.Time) (*contracts.PriceSeries, error) {
	query := `
		SELECT trade_date, close_value
		FROM data.index_prices
		WHERE index_code = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, indexCode, start, end)
	if err != nil {
		return nil, fmt.Errorf("get benchmark series %s: %w", indexCode, err)
	}
	defer rows.Close()

	series := &contracts.PriceSeries{Code: indexCode}
	for rows.Next() {
		var date time.Time
		var close float64
		if err := rows.Scan(&date, &close); err != nil {
			return nil, fmt.Errorf("scan index row: %w", err)
		}
		series.Dates = append(series.Dates, date)
		series.Closes = append(series.Closes, close)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read index rows: %w", err)
	}
	return series, nil
}

func scanCandidates(rows pgx.Rows) ([]contracts.InstrumentCandidate, error) {
	var out []contracts.InstrumentCandidate
	for rows.Next() {
		var c contracts.InstrumentCandidate
		if err := rows.Scan(
			&c.Code, &c.Name, &c.AssetClass, &c.Sector,
			&c.MarketCap, &c.ExpenseRatio, &c.Scale, &c.SharpeRatio, &c.Volatility,
		); err != nil {
			return nil, fmt.Errorf("scan instrument row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
