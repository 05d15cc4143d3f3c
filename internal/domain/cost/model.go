package cost

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date format used for cost record keys
const DateLayout = "2006-01-02"

// DefaultCurrency is used when a provider does not report one
const DefaultCurrency = "USD"

// DailyRecord is the cost of one account for one calendar day. AccountID and
// Date form the natural key; a later write for the same key replaces the
// earlier record.
type DailyRecord struct {
	AccountID string          `json:"accountId"`
	Date      string          `json:"date"`
	TotalCost decimal.Decimal `json:"totalCost"`
	Currency  string          `json:"currency"`
	Breakdown []ServiceCost   `json:"breakdown"`
}

// Day parses Date as a UTC calendar day
func (r *DailyRecord) Day() (time.Time, error) {
	return time.Parse(DateLayout, r.Date)
}

// ServiceCost is the cost of one service within a daily record
type ServiceCost struct {
	Service string          `json:"service"`
	Cost    decimal.Decimal `json:"cost"`
	Usage   decimal.Decimal `json:"usage"`
	Unit    string          `json:"unit"`
}

// Trend directions
const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"
)

// Periods
const (
	PeriodWeek  = "week"
	PeriodMonth = "month"
)

// Trend compares two consecutive periods
type Trend struct {
	AccountID     string  `json:"accountId"`
	Period        string  `json:"period"`
	CurrentCost   float64 `json:"currentCost"`
	PreviousCost  float64 `json:"previousCost"`
	ChangePercent float64 `json:"changePercent"`
	Trend         string  `json:"trend"`
}

// Forecast is a projected monthly cost with its uncertainty band
type Forecast struct {
	AccountID       string    `json:"accountId"`
	ForecastDate    string    `json:"forecastDate"`
	PredictedCost   float64   `json:"predictedCost"`
	LowerBound      float64   `json:"lowerBound"`
	UpperBound      float64   `json:"upperBound"`
	ConfidenceLevel float64   `json:"confidenceLevel"`
	GeneratedAt     time.Time `json:"generatedAt"`
}

// ServiceSummary is a service's share of the analysed period
type ServiceSummary struct {
	Service            string  `json:"service"`
	TotalCost          float64 `json:"totalCost"`
	PercentOfTotal     float64 `json:"percentOfTotal"`
	ChangeFromPrevious float64 `json:"changeFromPrevious"`
}

// Analysis summarises an account's costs over a date range
type Analysis struct {
	AccountID        string           `json:"accountId"`
	StartDate        string           `json:"startDate"`
	EndDate          string           `json:"endDate"`
	TotalCost        float64          `json:"totalCost"`
	AverageDailyCost float64          `json:"averageDailyCost"`
	TopServices      []ServiceSummary `json:"topServices"`
	Trend            *Trend           `json:"trend,omitempty"`
	Forecast         *Forecast        `json:"forecast,omitempty"`
}

// AnalysisRequest selects the range for an Analysis
type AnalysisRequest struct {
	AccountID       string
	StartDate       time.Time
	EndDate         time.Time
	IncludeForecast bool
}

// SeriesRequest parameterises a multi-month forecast. Nil fields take the
// configured defaults.
type SeriesRequest struct {
	AccountID       string
	Months          *int
	BaseMonthlyCost *float64
	GrowthFactor    *float64
}

// ForecastResult carries forecasts plus their storage outcome
type ForecastResult struct {
	Forecasts        []*Forecast `json:"forecasts"`
	Persisted        bool        `json:"persisted"`
	PersistenceError string      `json:"persistenceError,omitempty"`
}
