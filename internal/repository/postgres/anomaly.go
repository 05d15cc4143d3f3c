package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pratik-mahalle/cloudops/internal/domain/anomaly"
	"github.com/pratik-mahalle/cloudops/internal/pkg/errors"
)

type AnomalyRepository struct {
	db *DB
}

func NewAnomalyRepository(db *DB) anomaly.Repository {
	return &AnomalyRepository{db: db}
}

const anomalyColumns = `id, account_id, metric_type, detected_at, severity, description, current_value, expected_value, deviation, status, resolved_at`

const upsertAnomaly = `INSERT INTO anomalies (id, account_id, metric_type, detected_at, severity, description, current_value, expected_value, deviation, status, resolved_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	severity = excluded.severity, description = excluded.description, current_value = excluded.current_value,
	expected_value = excluded.expected_value, deviation = excluded.deviation, status = excluded.status,
	resolved_at = excluded.resolved_at, updated_at = excluded.updated_at`

func (r *AnomalyRepository) Put(ctx context.Context, a *anomaly.Anomaly) error {
	defer observe("put", "anomalies", time.Now())

	if err := r.put(ctx, r.db.DB, a); err != nil {
		return errors.DatabaseError("Failed to store anomaly", err)
	}
	return nil
}

func (r *AnomalyRepository) PutBatch(ctx context.Context, anomalies []*anomaly.Anomaly) error {
	if len(anomalies) == 0 {
		return nil
	}
	defer observe("put_batch", "anomalies", time.Now())

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("Failed to begin anomaly batch", err)
	}
	for _, a := range anomalies {
		if err := r.put(ctx, tx, a); err != nil {
			tx.Rollback()
			return errors.DatabaseError("Failed to store anomaly batch", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("Failed to commit anomaly batch", err)
	}
	return nil
}

func (r *AnomalyRepository) put(ctx context.Context, ex execer, a *anomaly.Anomaly) error {
	_, err := ex.ExecContext(ctx, r.db.Rebind(upsertAnomaly),
		a.ID, a.AccountID, a.MetricType, formatTime(a.DetectedAt), a.Severity, a.Description,
		a.CurrentValue, a.ExpectedValue, a.Deviation, a.Status, formatNullTime(a.ResolvedAt), formatTime(time.Now()))
	return err
}

func (r *AnomalyRepository) Get(ctx context.Context, accountID, id string) (*anomaly.Anomaly, error) {
	query := `SELECT ` + anomalyColumns + ` FROM anomalies WHERE account_id = ? AND id = ?`

	a, err := scanAnomaly(r.db.QueryRowContext(ctx, r.db.Rebind(query), accountID, id))
	if err == sql.ErrNoRows {
		return nil, anomaly.ErrNotFound
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get anomaly", err)
	}
	return a, nil
}

func (r *AnomalyRepository) Update(ctx context.Context, a *anomaly.Anomaly) error {
	query := `UPDATE anomalies SET status = ?, resolved_at = ?, updated_at = ? WHERE account_id = ? AND id = ?`

	result, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		a.Status, formatNullTime(a.ResolvedAt), formatTime(time.Now()), a.AccountID, a.ID)
	if err != nil {
		return errors.DatabaseError("Failed to update anomaly", err)
	}

	rows, err := result.RowsAffected()
	if err != nil || rows == 0 {
		return anomaly.ErrNotFound
	}
	return nil
}

func (r *AnomalyRepository) List(ctx context.Context, accountID string, filter anomaly.Filter, limit, offset int) ([]*anomaly.Anomaly, int64, error) {
	defer observe("query", "anomalies", time.Now())

	where := []string{"account_id = ?"}
	args := []interface{}{accountID}

	if filter.MetricType != "" {
		where = append(where, "metric_type = ?")
		args = append(args, filter.MetricType)
	}
	if filter.Severity != "" {
		where = append(where, "severity = ?")
		args = append(args, filter.Severity)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	clause := strings.Join(where, " AND ")

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM anomalies WHERE %s", clause)
	if err := r.db.QueryRowContext(ctx, r.db.Rebind(countQuery), args...).Scan(&total); err != nil {
		return nil, 0, errors.DatabaseError("Failed to count anomalies", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM anomalies WHERE %s ORDER BY detected_at DESC, id ASC`, anomalyColumns, clause)
	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, 0, errors.DatabaseError("Failed to list anomalies", err)
	}
	defer rows.Close()

	anomalies := make([]*anomaly.Anomaly, 0)
	for rows.Next() {
		a, err := scanAnomaly(rows)
		if err != nil {
			return nil, 0, errors.DatabaseError("Failed to scan anomaly", err)
		}
		anomalies = append(anomalies, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.DatabaseError("Failed to iterate anomalies", err)
	}
	return anomalies, total, nil
}

func (r *AnomalyRepository) CountByStatusAndSeverity(ctx context.Context, accountID string) (map[string]map[string]int, error) {
	query := `SELECT status, severity, COUNT(*) FROM anomalies WHERE account_id = ? GROUP BY status, severity`

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), accountID)
	if err != nil {
		return nil, errors.DatabaseError("Failed to count anomalies", err)
	}
	defer rows.Close()

	counts := make(map[string]map[string]int)
	for rows.Next() {
		var status, severity string
		var n int
		if err := rows.Scan(&status, &severity, &n); err != nil {
			return nil, errors.DatabaseError("Failed to scan anomaly count", err)
		}
		if counts[status] == nil {
			counts[status] = make(map[string]int)
		}
		counts[status][severity] = n
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAnomaly(row rowScanner) (*anomaly.Anomaly, error) {
	var a anomaly.Anomaly
	var detectedAt string
	var resolvedAt sql.NullString
	if err := row.Scan(&a.ID, &a.AccountID, &a.MetricType, &detectedAt, &a.Severity, &a.Description,
		&a.CurrentValue, &a.ExpectedValue, &a.Deviation, &a.Status, &resolvedAt); err != nil {
		return nil, err
	}
	a.DetectedAt = parseTime(detectedAt)
	a.ResolvedAt = parseNullTime(resolvedAt)
	return &a, nil
}
