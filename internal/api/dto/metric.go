package dto

import "time"

// MetricInput is one sample to ingest
type MetricInput struct {
	MetricType string            `json:"metricType" validate:"required,max=100"`
	Timestamp  time.Time         `json:"timestamp"`
	Value      float64           `json:"value"`
	Unit       string            `json:"unit,omitempty"`
	Namespace  string            `json:"namespace,omitempty"`
	Dimensions map[string]string `json:"dimensions,omitempty"`
}

// IngestMetricsRequest stores a batch of samples
type IngestMetricsRequest struct {
	Metrics []MetricInput `json:"metrics" validate:"required,min=1,max=1000,dive"`
}

// IngestMetricsResponse reports how many samples were stored
type IngestMetricsResponse struct {
	Stored int `json:"stored"`
}
