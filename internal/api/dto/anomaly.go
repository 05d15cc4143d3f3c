package dto

import "time"

// DataPoint is one sample of a series submitted for detection
type DataPoint struct {
	Timestamp time.Time `json:"timestamp" validate:"required"`
	Value     float64   `json:"value"`
}

// DetectAnomaliesRequest runs detection over a caller-supplied series.
// Custom metric types are allowed here.
type DetectAnomaliesRequest struct {
	AccountID           string      `json:"accountId" validate:"required,accountid"`
	MetricType          string      `json:"metricType" validate:"required,max=100"`
	DataPoints          []DataPoint `json:"dataPoints" validate:"required,dive"`
	WindowSize          int         `json:"windowSize,omitempty" validate:"omitempty,gt=0"`
	ThresholdMultiplier float64     `json:"thresholdMultiplier,omitempty" validate:"omitempty,gt=0"`
	MinDataPoints       int         `json:"minDataPoints,omitempty" validate:"omitempty,gte=1"`
}

// UpdateAnomalyStatusRequest moves an anomaly through its lifecycle
type UpdateAnomalyStatusRequest struct {
	Status string `json:"status" validate:"required"`
}
