package anomaly

import (
	"context"
	"time"
)

// Sample is one timestamped observation fed to the detector
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// DetectRequest carries a caller-supplied series
type DetectRequest struct {
	AccountID           string
	MetricType          string
	Samples             []Sample
	WindowSize          int
	ThresholdMultiplier float64
	MinDataPoints       int
}

// Service defines the interface for anomaly business logic
type Service interface {
	// Detect runs detection over the supplied series and stores any anomalies
	Detect(ctx context.Context, req DetectRequest) (*DetectionResult, error)

	// DetectForMetric loads the stored series for a metric and runs Detect
	DetectForMetric(ctx context.Context, accountID, metricType string, lookback time.Duration) (*DetectionResult, error)

	// Get retrieves one anomaly
	Get(ctx context.Context, accountID, id string) (*Anomaly, error)

	// List retrieves anomalies with filters and pagination
	List(ctx context.Context, accountID string, filter Filter, limit, offset int) ([]*Anomaly, int64, error)

	// UpdateStatus applies a lifecycle transition and returns the updated record
	UpdateStatus(ctx context.Context, accountID, id, status string) (*Anomaly, error)

	// GetSummary counts anomalies by severity
	GetSummary(ctx context.Context, accountID string) (*Summary, error)
}
