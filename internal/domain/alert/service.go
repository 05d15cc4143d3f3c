package alert

import "context"

// SendInput describes an alert to raise
type SendInput struct {
	AccountID string
	Type      string
	Title     string
	Message   string
	Severity  string
	Metadata  map[string]interface{}
}

// Service defines the interface for alert business logic
type Service interface {
	// Send stores the alert and publishes it. A publish failure does not fail
	// the call once the alert is stored.
	Send(ctx context.Context, in SendInput) (*Alert, error)

	// List retrieves alerts most recent first
	List(ctx context.Context, accountID string, filter Filter, limit int) ([]*Alert, error)

	// UpdateStatus moves an alert to acknowledged or resolved
	UpdateStatus(ctx context.Context, accountID, id, status string) (*Alert, error)
}
