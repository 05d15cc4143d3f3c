package client

import (
	"time"

	"github.com/shopspring/decimal"
)

// Anomaly represents an outlier sample flagged by the detector
type Anomaly struct {
	ID            string     `json:"id"`
	AccountID     string     `json:"accountId"`
	MetricType    string     `json:"metricType"`
	DetectedAt    time.Time  `json:"detectedAt"`
	Severity      string     `json:"severity"` // critical, high, medium, low
	Description   string     `json:"description"`
	CurrentValue  float64    `json:"currentValue"`
	ExpectedValue float64    `json:"expectedValue"`
	Deviation     float64    `json:"deviation"` // standard deviations from the mean
	Status        string     `json:"status"`    // open, acknowledged, resolved, ignored
	ResolvedAt    *time.Time `json:"resolvedAt,omitempty"`
}

// Statistics describes the sample distribution behind a detection run
type Statistics struct {
	Mean               float64 `json:"mean"`
	StandardDeviation  float64 `json:"standardDeviation"`
	UpperThreshold     float64 `json:"upperThreshold"`
	LowerThreshold     float64 `json:"lowerThreshold"`
	DataPointsAnalyzed int     `json:"dataPointsAnalyzed"`
}

// DetectionResult is the outcome of one detection run
type DetectionResult struct {
	AccountID        string     `json:"accountId"`
	MetricType       string     `json:"metricType"`
	AnomalyDetected  bool       `json:"anomalyDetected"`
	Anomalies        []Anomaly  `json:"anomalies"`
	Statistics       Statistics `json:"statistics"`
	AnalyzedAt       time.Time  `json:"analyzedAt"`
	Persisted        bool       `json:"persisted"`
	PersistenceError string     `json:"persistenceError,omitempty"`
}

// AnomalySummary aggregates anomaly counts for an account
type AnomalySummary struct {
	AccountID      string    `json:"accountId"`
	TotalAnomalies int       `json:"totalAnomalies"`
	OpenAnomalies  int       `json:"openAnomalies"`
	CriticalCount  int       `json:"criticalCount"`
	HighCount      int       `json:"highCount"`
	MediumCount    int       `json:"mediumCount"`
	LowCount       int       `json:"lowCount"`
	GeneratedAt    time.Time `json:"generatedAt"`
}

// AnomalyPage is one page of an anomaly listing
type AnomalyPage struct {
	Items       []Anomaly `json:"items"`
	Page        int       `json:"page"`
	PageSize    int       `json:"pageSize"`
	TotalItems  int64     `json:"totalItems"`
	TotalPages  int       `json:"totalPages"`
	HasNext     bool      `json:"hasNext"`
	HasPrevious bool      `json:"hasPrevious"`
}

// DailyCost is the cost of one account for one calendar day
type DailyCost struct {
	AccountID string          `json:"accountId"`
	Date      string          `json:"date"` // YYYY-MM-DD
	TotalCost decimal.Decimal `json:"totalCost"`
	Currency  string          `json:"currency"`
	Breakdown []ServiceCost   `json:"breakdown"`
}

// ServiceCost is the cost of one service within a day
type ServiceCost struct {
	Service string          `json:"service"`
	Cost    decimal.Decimal `json:"cost"`
	Usage   decimal.Decimal `json:"usage"`
	Unit    string          `json:"unit,omitempty"`
}

// Trend compares two consecutive periods
type Trend struct {
	AccountID     string  `json:"accountId"`
	Period        string  `json:"period"`
	CurrentCost   float64 `json:"currentCost"`
	PreviousCost  float64 `json:"previousCost"`
	ChangePercent float64 `json:"changePercent"`
	Trend         string  `json:"trend"` // up, down, stable
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

// ForecastResult carries forecasts plus their storage outcome
type ForecastResult struct {
	Forecasts        []Forecast `json:"forecasts"`
	Persisted        bool       `json:"persisted"`
	PersistenceError string     `json:"persistenceError,omitempty"`
}

// ServiceSummary is a service's share of a period
type ServiceSummary struct {
	Service            string  `json:"service"`
	TotalCost          float64 `json:"totalCost"`
	PercentOfTotal     float64 `json:"percentOfTotal"`
	ChangeFromPrevious float64 `json:"changeFromPrevious"`
}

// CostAnalysis summarises an account's costs over a date range
type CostAnalysis struct {
	AccountID        string           `json:"accountId"`
	StartDate        string           `json:"startDate"`
	EndDate          string           `json:"endDate"`
	TotalCost        float64          `json:"totalCost"`
	AverageDailyCost float64          `json:"averageDailyCost"`
	TopServices      []ServiceSummary `json:"topServices"`
	Trend            *Trend           `json:"trend,omitempty"`
	Forecast         *Forecast        `json:"forecast,omitempty"`
}

// Metric is one stored sample
type Metric struct {
	AccountID  string            `json:"accountId,omitempty"`
	MetricType string            `json:"metricType"`
	Timestamp  time.Time         `json:"timestamp"`
	Value      float64           `json:"value"`
	Unit       string            `json:"unit,omitempty"`
	Namespace  string            `json:"namespace,omitempty"`
	Dimensions map[string]string `json:"dimensions,omitempty"`
	ExpiresAt  *time.Time        `json:"expiresAt,omitempty"`
}

// Alert represents a notification raised for an account
type Alert struct {
	ID             string                 `json:"id"`
	AccountID      string                 `json:"accountId"`
	Type           string                 `json:"type"`     // anomaly, budget, threshold, recommendation
	Title          string                 `json:"title"`
	Message        string                 `json:"message"`
	Severity       string                 `json:"severity"` // info, warning, error, critical
	Status         string                 `json:"status"`   // active, acknowledged, resolved
	CreatedAt      time.Time              `json:"createdAt"`
	AcknowledgedAt *time.Time             `json:"acknowledgedAt,omitempty"`
	ResolvedAt     *time.Time             `json:"resolvedAt,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// Insight is a generated narrative over recent costs and metrics
type Insight struct {
	AccountID       string    `json:"accountId"`
	Insights        string    `json:"insights"`
	Recommendations []string  `json:"recommendations"`
	Concerns        []string  `json:"concerns"`
	Model           string    `json:"model"`
	Fallback        bool      `json:"fallback"`
	GeneratedAt     time.Time `json:"generatedAt"`
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store,omitempty"`
	Cache  string `json:"cache,omitempty"`
}

// ListOptions contains common options for paged list operations
type ListOptions struct {
	Page     int `json:"page,omitempty"`     // Page number (1-based)
	PageSize int `json:"pageSize,omitempty"` // Items per page (max 100)
}
