package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pratik-mahalle/cloudops/internal/domain/alert"
	"github.com/pratik-mahalle/cloudops/internal/pkg/errors"
)

type AlertRepository struct {
	db *DB
}

func NewAlertRepository(db *DB) alert.Repository {
	return &AlertRepository{db: db}
}

const alertColumns = `id, account_id, type, title, message, severity, status, created_at, acknowledged_at, resolved_at, metadata`

func (r *AlertRepository) Put(ctx context.Context, a *alert.Alert) error {
	var metadata sql.NullString
	if len(a.Metadata) > 0 {
		b, err := json.Marshal(a.Metadata)
		if err != nil {
			return errors.Internal("Failed to encode alert metadata", err)
		}
		metadata = sql.NullString{String: string(b), Valid: true}
	}

	query := `INSERT INTO alerts (` + alertColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		a.ID, a.AccountID, a.Type, a.Title, a.Message, a.Severity, a.Status, formatTime(a.CreatedAt),
		formatNullTime(a.AcknowledgedAt), formatNullTime(a.ResolvedAt), metadata)
	if err != nil {
		return errors.DatabaseError("Failed to store alert", err)
	}
	return nil
}

func (r *AlertRepository) Get(ctx context.Context, accountID, id string) (*alert.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE account_id = ? AND id = ?`

	a, err := scanAlert(r.db.QueryRowContext(ctx, r.db.Rebind(query), accountID, id))
	if err == sql.ErrNoRows {
		return nil, alert.ErrNotFound
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get alert", err)
	}
	return a, nil
}

func (r *AlertRepository) Update(ctx context.Context, a *alert.Alert) error {
	query := `UPDATE alerts SET status = ?, acknowledged_at = ?, resolved_at = ? WHERE account_id = ? AND id = ?`

	result, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		a.Status, formatNullTime(a.AcknowledgedAt), formatNullTime(a.ResolvedAt), a.AccountID, a.ID)
	if err != nil {
		return errors.DatabaseError("Failed to update alert", err)
	}
	rows, err := result.RowsAffected()
	if err != nil || rows == 0 {
		return alert.ErrNotFound
	}
	return nil
}

func (r *AlertRepository) List(ctx context.Context, accountID string, filter alert.Filter, limit int) ([]*alert.Alert, error) {
	where := []string{"account_id = ?"}
	args := []interface{}{accountID}

	if filter.Type != "" {
		where = append(where, "type = ?")
		args = append(args, filter.Type)
	}
	if filter.Severity != "" {
		where = append(where, "severity = ?")
		args = append(args, filter.Severity)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}

	query := fmt.Sprintf(`SELECT %s FROM alerts WHERE %s ORDER BY created_at DESC`, alertColumns, strings.Join(where, " AND "))
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list alerts", err)
	}
	defer rows.Close()

	alerts := make([]*alert.Alert, 0)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, errors.DatabaseError("Failed to scan alert", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func scanAlert(row rowScanner) (*alert.Alert, error) {
	var a alert.Alert
	var createdAt string
	var acknowledgedAt, resolvedAt, metadata sql.NullString
	if err := row.Scan(&a.ID, &a.AccountID, &a.Type, &a.Title, &a.Message, &a.Severity, &a.Status,
		&createdAt, &acknowledgedAt, &resolvedAt, &metadata); err != nil {
		return nil, err
	}
	a.CreatedAt = parseTime(createdAt)
	a.AcknowledgedAt = parseNullTime(acknowledgedAt)
	a.ResolvedAt = parseNullTime(resolvedAt)
	if metadata.Valid && metadata.String != "" {
		_ = json.Unmarshal([]byte(metadata.String), &a.Metadata)
	}
	return &a, nil
}
