package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pratik-mahalle/cloudops/internal/domain/metric"
	"github.com/pratik-mahalle/cloudops/internal/pkg/errors"
	"github.com/pratik-mahalle/cloudops/internal/pkg/metrics"
)

type MetricRepository struct {
	db *DB
}

func NewMetricRepository(db *DB) metric.Repository {
	return &MetricRepository{db: db}
}

const upsertMetric = `INSERT INTO metrics (account_id, metric_type, ts, value, unit, namespace, dimensions, expires_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (account_id, metric_type, ts) DO UPDATE SET
	value = excluded.value, unit = excluded.unit, namespace = excluded.namespace,
	dimensions = excluded.dimensions, expires_at = excluded.expires_at`

func (r *MetricRepository) Put(ctx context.Context, m *metric.Metric) error {
	defer observe("put", "metrics", time.Now())

	if err := r.exec(ctx, r.db.DB, m); err != nil {
		return errors.DatabaseError("Failed to store metric", err)
	}
	return nil
}

func (r *MetricRepository) PutBatch(ctx context.Context, ms []*metric.Metric) error {
	if len(ms) == 0 {
		return nil
	}
	defer observe("put_batch", "metrics", time.Now())

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("Failed to begin metric batch", err)
	}
	for _, m := range ms {
		if err := r.exec(ctx, tx, m); err != nil {
			tx.Rollback()
			return errors.DatabaseError("Failed to store metric batch", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("Failed to commit metric batch", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (r *MetricRepository) exec(ctx context.Context, ex execer, m *metric.Metric) error {
	var dims sql.NullString
	if len(m.Dimensions) > 0 {
		b, err := json.Marshal(m.Dimensions)
		if err != nil {
			return fmt.Errorf("encode dimensions: %w", err)
		}
		dims = sql.NullString{String: string(b), Valid: true}
	}

	_, err := ex.ExecContext(ctx, r.db.Rebind(upsertMetric),
		m.AccountID, m.MetricType, formatTime(m.Timestamp), m.Value, m.Unit, m.Namespace, dims, formatTime(m.ExpiresAt))
	return err
}

func (r *MetricRepository) Query(ctx context.Context, q metric.Query) ([]*metric.Metric, error) {
	defer observe("query", "metrics", time.Now())

	where := []string{"account_id = ?"}
	args := []interface{}{q.AccountID}

	if q.MetricType != "" {
		where = append(where, "metric_type = ?")
		args = append(args, q.MetricType)
	}
	if !q.Start.IsZero() {
		where = append(where, "ts >= ?")
		args = append(args, formatTime(q.Start))
	}
	if !q.End.IsZero() {
		where = append(where, "ts <= ?")
		args = append(args, formatTime(q.End))
	}

	order := "DESC"
	if q.Ascending {
		order = "ASC"
	}
	query := fmt.Sprintf(`SELECT account_id, metric_type, ts, value, unit, namespace, dimensions, expires_at
FROM metrics WHERE %s ORDER BY ts %s`, strings.Join(where, " AND "), order)
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, errors.DatabaseError("Failed to query metrics", err)
	}
	defer rows.Close()

	result := make([]*metric.Metric, 0)
	for rows.Next() {
		var m metric.Metric
		var ts, expiresAt string
		var dims sql.NullString
		if err := rows.Scan(&m.AccountID, &m.MetricType, &ts, &m.Value, &m.Unit, &m.Namespace, &dims, &expiresAt); err != nil {
			return nil, errors.DatabaseError("Failed to scan metric", err)
		}
		m.Timestamp = parseTime(ts)
		m.ExpiresAt = parseTime(expiresAt)
		if dims.Valid && dims.String != "" {
			_ = json.Unmarshal([]byte(dims.String), &m.Dimensions)
		}
		result = append(result, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("Failed to iterate metrics", err)
	}
	return result, nil
}

func (r *MetricRepository) ListTypes(ctx context.Context, accountID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		r.db.Rebind("SELECT DISTINCT metric_type FROM metrics WHERE account_id = ? ORDER BY metric_type"), accountID)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list metric types", err)
	}
	defer rows.Close()

	types := make([]string, 0)
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, errors.DatabaseError("Failed to scan metric type", err)
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

// DeleteExpired removes samples whose retention has passed
func (r *MetricRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM metrics WHERE expires_at < ?"), formatTime(now))
	if err != nil {
		return 0, errors.DatabaseError("Failed to delete expired metrics", err)
	}
	return res.RowsAffected()
}

func observe(operation, table string, start time.Time) {
	metrics.RecordStoreOp(operation, table, time.Since(start))
}
