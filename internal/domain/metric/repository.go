package metric

import "context"

// Repository defines the interface for metric sample storage
type Repository interface {
	// Put stores a sample, replacing any sample with the same key
	Put(ctx context.Context, m *Metric) error

	// PutBatch stores several samples
	PutBatch(ctx context.Context, metrics []*Metric) error

	// Query returns samples in the range. Order follows q.Ascending.
	Query(ctx context.Context, q Query) ([]*Metric, error)

	// ListTypes returns the distinct metric types stored for an account
	ListTypes(ctx context.Context, accountID string) ([]string, error)
}

// Collector fetches the latest samples from the cloud provider
type Collector interface {
	FetchLatest(ctx context.Context, accountID string) ([]*Metric, error)
}
