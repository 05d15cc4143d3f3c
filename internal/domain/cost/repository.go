package cost

import (
	"context"
	"time"
)

// Repository defines the cost repository interface. Dates are DateLayout
// strings and ranges are inclusive.
type Repository interface {
	// Daily records
	PutDaily(ctx context.Context, record *DailyRecord) error
	QueryDaily(ctx context.Context, accountID, startDate, endDate string) ([]*DailyRecord, error)

	// Forecasts
	PutForecasts(ctx context.Context, forecasts []*Forecast) error
	ListForecasts(ctx context.Context, accountID string, limit int) ([]*Forecast, error)
}

// Collector fetches one day of billing data from the cloud provider
type Collector interface {
	FetchDailyCosts(ctx context.Context, accountID string, day time.Time) (*DailyRecord, error)
}
