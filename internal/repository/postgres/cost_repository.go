package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pratik-mahalle/cloudops/internal/domain/cost"
	"github.com/pratik-mahalle/cloudops/internal/pkg/errors"
)

// CostRetention is how long daily cost records are kept
const CostRetention = 365 * 24 * time.Hour

type CostRepository struct {
	db *DB
}

func NewCostRepository(db *DB) cost.Repository {
	return &CostRepository{db: db}
}

func (r *CostRepository) PutDaily(ctx context.Context, rec *cost.DailyRecord) error {
	defer observe("put", "cost_daily", time.Now())

	breakdown, err := json.Marshal(rec.Breakdown)
	if err != nil {
		return errors.Internal("Failed to encode cost breakdown", err)
	}

	now := time.Now().UTC()
	query := `INSERT INTO cost_daily (account_id, cost_date, total_cost, currency, breakdown, expires_at, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (account_id, cost_date) DO UPDATE SET
	total_cost = excluded.total_cost, currency = excluded.currency, breakdown = excluded.breakdown,
	expires_at = excluded.expires_at, created_at = excluded.created_at`

	_, err = r.db.ExecContext(ctx, r.db.Rebind(query),
		rec.AccountID, rec.Date, rec.TotalCost.String(), rec.Currency, string(breakdown),
		formatTime(now.Add(CostRetention)), formatTime(now))
	if err != nil {
		return errors.DatabaseError("Failed to store daily cost", err)
	}
	return nil
}

func (r *CostRepository) QueryDaily(ctx context.Context, accountID, startDate, endDate string) ([]*cost.DailyRecord, error) {
	defer observe("query", "cost_daily", time.Now())

	query := `SELECT account_id, cost_date, total_cost, currency, breakdown FROM cost_daily
WHERE account_id = ? AND cost_date >= ? AND cost_date <= ? ORDER BY cost_date ASC`

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), accountID, startDate, endDate)
	if err != nil {
		return nil, errors.DatabaseError("Failed to query daily costs", err)
	}
	defer rows.Close()

	records := make([]*cost.DailyRecord, 0)
	for rows.Next() {
		var rec cost.DailyRecord
		var total string
		var breakdown sql.NullString
		if err := rows.Scan(&rec.AccountID, &rec.Date, &total, &rec.Currency, &breakdown); err != nil {
			return nil, errors.DatabaseError("Failed to scan daily cost", err)
		}
		rec.TotalCost, err = decimal.NewFromString(total)
		if err != nil {
			return nil, errors.DatabaseError("Failed to parse stored cost", err)
		}
		rec.Breakdown = []cost.ServiceCost{}
		if breakdown.Valid && breakdown.String != "" {
			if err := json.Unmarshal([]byte(breakdown.String), &rec.Breakdown); err != nil {
				return nil, errors.DatabaseError("Failed to decode cost breakdown", err)
			}
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("Failed to iterate daily costs", err)
	}
	return records, nil
}

func (r *CostRepository) PutForecasts(ctx context.Context, forecasts []*cost.Forecast) error {
	if len(forecasts) == 0 {
		return nil
	}
	defer observe("put_batch", "cost_forecasts", time.Now())

	query := r.db.Rebind(`INSERT INTO cost_forecasts (account_id, forecast_date, predicted_cost, lower_bound, upper_bound, confidence_level, generated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (account_id, forecast_date) DO UPDATE SET
	predicted_cost = excluded.predicted_cost, lower_bound = excluded.lower_bound, upper_bound = excluded.upper_bound,
	confidence_level = excluded.confidence_level, generated_at = excluded.generated_at`)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("Failed to begin forecast batch", err)
	}
	for _, f := range forecasts {
		if _, err := tx.ExecContext(ctx, query, f.AccountID, f.ForecastDate, f.PredictedCost, f.LowerBound,
			f.UpperBound, f.ConfidenceLevel, formatTime(f.GeneratedAt)); err != nil {
			tx.Rollback()
			return errors.DatabaseError("Failed to store forecast", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("Failed to commit forecasts", err)
	}
	return nil
}

func (r *CostRepository) ListForecasts(ctx context.Context, accountID string, limit int) ([]*cost.Forecast, error) {
	if limit <= 0 {
		limit = 12
	}
	query := `SELECT account_id, forecast_date, predicted_cost, lower_bound, upper_bound, confidence_level, generated_at
FROM cost_forecasts WHERE account_id = ? ORDER BY forecast_date ASC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), accountID, limit)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list forecasts", err)
	}
	defer rows.Close()

	forecasts := make([]*cost.Forecast, 0)
	for rows.Next() {
		var f cost.Forecast
		var generatedAt string
		if err := rows.Scan(&f.AccountID, &f.ForecastDate, &f.PredictedCost, &f.LowerBound, &f.UpperBound,
			&f.ConfidenceLevel, &generatedAt); err != nil {
			return nil, errors.DatabaseError("Failed to scan forecast", err)
		}
		f.GeneratedAt = parseTime(generatedAt)
		forecasts = append(forecasts, &f)
	}
	return forecasts, rows.Err()
}

// DeleteExpired removes daily records whose retention has passed
func (r *CostRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM cost_daily WHERE expires_at < ?"), formatTime(now))
	if err != nil {
		return 0, errors.DatabaseError("Failed to delete expired costs", err)
	}
	return res.RowsAffected()
}
