package client

import (
	"context"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"
)

// CostService handles cost-related API calls
type CostService struct {
	client *Client
}

// RecordDailyRequest stores one day of costs
type RecordDailyRequest struct {
	Date      string          `json:"date"` // YYYY-MM-DD
	TotalCost decimal.Decimal `json:"totalCost"`
	Currency  string          `json:"currency,omitempty"`
	Breakdown []ServiceCost   `json:"breakdown,omitempty"`
}

// AnalyzeRequest selects the window of a cost analysis
type AnalyzeRequest struct {
	StartDate       string `json:"startDate"`
	EndDate         string `json:"endDate"`
	IncludeForecast bool   `json:"includeForecast"`
}

// SeriesOptions parameterises a multi-month forecast. Nil fields take the
// server defaults.
type SeriesOptions struct {
	Months          *int
	BaseMonthlyCost *float64
	GrowthFactor    *float64
}

// Int returns a pointer to v
func Int(v int) *int { return &v }

// Float64 returns a pointer to v
func Float64(v float64) *float64 { return &v }

// List retrieves daily cost records in an inclusive date range. Empty dates
// default to the last 30 days.
func (s *CostService) List(ctx context.Context, accountID, startDate, endDate string) ([]DailyCost, error) {
	query := url.Values{}
	if startDate != "" {
		query.Set("startDate", startDate)
	}
	if endDate != "" {
		query.Set("endDate", endDate)
	}

	var records []DailyCost
	if err := s.client.doRequest(ctx, "GET", withQuery(accountPath("costs", accountID), query), nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Record stores one day of costs, replacing any record for the same date
func (s *CostService) Record(ctx context.Context, accountID string, req RecordDailyRequest) (*DailyCost, error) {
	var record DailyCost
	if err := s.client.doRequest(ctx, "POST", accountPath("costs", accountID), req, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Analyze summarises costs over a date range
func (s *CostService) Analyze(ctx context.Context, accountID string, req AnalyzeRequest) (*CostAnalysis, error) {
	var analysis CostAnalysis
	if err := s.client.doRequest(ctx, "POST", accountPath("costs", accountID, "analyze"), req, &analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

// Trend compares the last week or month with the one before it
func (s *CostService) Trend(ctx context.Context, accountID, period string) (*Trend, error) {
	query := url.Values{}
	if period != "" {
		query.Set("period", period)
	}

	var trend Trend
	if err := s.client.doRequest(ctx, "GET", withQuery(accountPath("costs", accountID, "trend"), query), nil, &trend); err != nil {
		return nil, err
	}
	return &trend, nil
}

// TopServices ranks services by cost over the last days days
func (s *CostService) TopServices(ctx context.Context, accountID string, days, limit int) ([]ServiceSummary, error) {
	query := url.Values{}
	if days > 0 {
		query.Set("days", strconv.Itoa(days))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var services []ServiceSummary
	if err := s.client.doRequest(ctx, "GET", withQuery(accountPath("costs", accountID, "top-services"), query), nil, &services); err != nil {
		return nil, err
	}
	return services, nil
}

// Forecast projects next month's cost from the supplied daily costs
func (s *CostService) Forecast(ctx context.Context, accountID string, dailyCosts []float64) (*ForecastResult, error) {
	return s.forecast(ctx, accountID, map[string]interface{}{"dailyCosts": dailyCosts})
}

// ForecastFromStored projects next month's cost from the stored costs of the
// last days days
func (s *CostService) ForecastFromStored(ctx context.Context, accountID string, days int) (*ForecastResult, error) {
	body := map[string]interface{}{}
	if days > 0 {
		body["days"] = days
	}
	return s.forecast(ctx, accountID, body)
}

func (s *CostService) forecast(ctx context.Context, accountID string, body interface{}) (*ForecastResult, error) {
	var result ForecastResult
	if err := s.client.doRequest(ctx, "POST", accountPath("costs", accountID, "forecast"), body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ForecastSeries extrapolates monthly costs at a fixed growth rate
func (s *CostService) ForecastSeries(ctx context.Context, accountID string, opts *SeriesOptions) (*ForecastResult, error) {
	query := url.Values{}
	if opts != nil {
		if opts.Months != nil {
			query.Set("months", strconv.Itoa(*opts.Months))
		}
		if opts.BaseMonthlyCost != nil {
			query.Set("baseMonthlyCost", strconv.FormatFloat(*opts.BaseMonthlyCost, 'f', -1, 64))
		}
		if opts.GrowthFactor != nil {
			query.Set("growthFactor", strconv.FormatFloat(*opts.GrowthFactor, 'f', -1, 64))
		}
	}

	var result ForecastResult
	if err := s.client.doRequest(ctx, "GET", withQuery(accountPath("costs", accountID, "forecast"), query), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListForecasts retrieves stored forecasts, earliest month first
func (s *CostService) ListForecasts(ctx context.Context, accountID string, limit int) ([]Forecast, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var forecasts []Forecast
	if err := s.client.doRequest(ctx, "GET", withQuery(accountPath("costs", accountID, "forecasts"), query), nil, &forecasts); err != nil {
		return nil, err
	}
	return forecasts, nil
}

// Sync collects one day of costs from the provider. An empty date collects
// yesterday.
func (s *CostService) Sync(ctx context.Context, accountID, date string) (*DailyCost, error) {
	var body interface{}
	if date != "" {
		body = map[string]string{"date": date}
	}

	var record DailyCost
	if err := s.client.doRequest(ctx, "POST", accountPath("costs", accountID, "sync"), body, &record); err != nil {
		return nil, err
	}
	return &record, nil
}
