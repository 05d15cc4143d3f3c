package metric

import "context"

// Service defines the interface for metric ingestion and queries
type Service interface {
	// Ingest validates and stores samples, stamping their expiry
	Ingest(ctx context.Context, metrics []*Metric) error

	// Query returns stored samples most recent first
	Query(ctx context.Context, q Query) ([]*Metric, error)

	// Collect pulls the latest samples from the cloud provider and stores them
	Collect(ctx context.Context, accountID string) ([]*Metric, error)

	// ListTypes returns the metric types with stored samples
	ListTypes(ctx context.Context, accountID string) ([]string, error)
}
