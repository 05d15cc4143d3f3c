package dto

import "github.com/shopspring/decimal"

// ServiceCostInput is one service line of a daily cost record
type ServiceCostInput struct {
	Service string          `json:"service" validate:"required"`
	Cost    decimal.Decimal `json:"cost"`
	Usage   decimal.Decimal `json:"usage"`
	Unit    string          `json:"unit,omitempty"`
}

// RecordDailyCostRequest stores one day of costs
type RecordDailyCostRequest struct {
	Date      string             `json:"date" validate:"required,datetime=2006-01-02"`
	TotalCost decimal.Decimal    `json:"totalCost"`
	Currency  string             `json:"currency,omitempty" validate:"omitempty,len=3"`
	Breakdown []ServiceCostInput `json:"breakdown,omitempty" validate:"omitempty,dive"`
}

// AnalyzeCostsRequest selects the window of a cost analysis
type AnalyzeCostsRequest struct {
	StartDate       string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate         string `json:"endDate" validate:"required,datetime=2006-01-02"`
	IncludeForecast bool   `json:"includeForecast"`
}

// ForecastRequest forecasts next month from supplied daily costs, or from
// the last Days stored days when DailyCosts is empty
type ForecastRequest struct {
	DailyCosts []float64 `json:"dailyCosts,omitempty"`
	Days       int       `json:"days,omitempty" validate:"omitempty,gte=1,lte=365"`
}

// SyncCostsRequest picks the day to collect. Empty means yesterday.
type SyncCostsRequest struct {
	Date string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}
