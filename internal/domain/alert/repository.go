package alert

import (
	"context"
	"errors"
)

// ErrNotFound is returned when an alert does not exist for the account
var ErrNotFound = errors.New("alert not found")

// Repository defines the interface for alert data access
type Repository interface {
	// Put stores a new alert
	Put(ctx context.Context, a *Alert) error

	// Get retrieves an alert
	Get(ctx context.Context, accountID, id string) (*Alert, error)

	// Update overwrites status and timestamps
	Update(ctx context.Context, a *Alert) error

	// List returns alerts most recent first
	List(ctx context.Context, accountID string, filter Filter, limit int) ([]*Alert, error)
}

// Publisher fans an alert out to subscribers
type Publisher interface {
	Publish(ctx context.Context, a *Alert) error
}
