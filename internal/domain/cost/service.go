package cost

import (
	"context"
	"time"
)

// Service defines the cost analytics service interface
type Service interface {
	// Collection
	SyncCosts(ctx context.Context, accountID string, day time.Time) (*DailyRecord, error)
	RecordDaily(ctx context.Context, record *DailyRecord) error

	// Queries
	GetDailyCosts(ctx context.Context, accountID string, startDate, endDate time.Time) ([]*DailyRecord, error)
	GetTrend(ctx context.Context, accountID, period string) (*Trend, error)
	GetTopServices(ctx context.Context, accountID string, days, limit int) ([]ServiceSummary, error)
	Analyze(ctx context.Context, req AnalysisRequest) (*Analysis, error)

	// Forecasting
	ForecastFromHistory(ctx context.Context, accountID string, dailyCosts []float64) (*ForecastResult, error)
	ForecastFromStored(ctx context.Context, accountID string, days int) (*ForecastResult, error)
	ForecastSeries(ctx context.Context, req SeriesRequest) (*ForecastResult, error)
	ListForecasts(ctx context.Context, accountID string, limit int) ([]*Forecast, error)
}
