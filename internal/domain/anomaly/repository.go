package anomaly

import (
	"context"
	"errors"
)

// ErrNotFound is returned when an anomaly does not exist for the account
var ErrNotFound = errors.New("anomaly not found")

// Repository defines the interface for anomaly data access
type Repository interface {
	// Put inserts or replaces an anomaly record
	Put(ctx context.Context, a *Anomaly) error

	// PutBatch stores all records or returns the first failure
	PutBatch(ctx context.Context, anomalies []*Anomaly) error

	// Get retrieves an anomaly by account and id
	Get(ctx context.Context, accountID, id string) (*Anomaly, error)

	// Update overwrites status and resolution fields
	Update(ctx context.Context, a *Anomaly) error

	// List returns anomalies, most recent first, and the unpaged total
	List(ctx context.Context, accountID string, filter Filter, limit, offset int) ([]*Anomaly, int64, error)

	// CountByStatusAndSeverity returns counts keyed by status then severity
	CountByStatusAndSeverity(ctx context.Context, accountID string) (map[string]map[string]int, error)
}
