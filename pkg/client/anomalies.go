package client

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

// AnomalyService handles anomaly-related API calls
type AnomalyService struct {
	client *Client
}

// DataPoint is one sample submitted for detection
type DataPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// DetectRequest runs detection over a supplied series. Zero tuning fields
// take the server defaults.
type DetectRequest struct {
	AccountID           string      `json:"accountId"`
	MetricType          string      `json:"metricType"`
	DataPoints          []DataPoint `json:"dataPoints"`
	WindowSize          int         `json:"windowSize,omitempty"`
	ThresholdMultiplier float64     `json:"thresholdMultiplier,omitempty"`
	MinDataPoints       int         `json:"minDataPoints,omitempty"`
}

// AnomalyListOptions contains options for listing anomalies
type AnomalyListOptions struct {
	ListOptions
	MetricType string
	Severity   string
	Status     string
}

// Detect runs detection over the supplied data points
func (s *AnomalyService) Detect(ctx context.Context, req DetectRequest) (*DetectionResult, error) {
	var result DetectionResult
	if err := s.client.doRequest(ctx, "POST", "/api/v1/anomalies/detect", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DetectForMetric runs detection over the stored samples of one metric.
// A zero lookback uses the server default.
func (s *AnomalyService) DetectForMetric(ctx context.Context, accountID, metricType string, lookback time.Duration) (*DetectionResult, error) {
	query := url.Values{}
	if hours := int(lookback / time.Hour); hours > 0 {
		query.Set("lookbackHours", strconv.Itoa(hours))
	}
	path := withQuery(accountPath("anomalies", accountID, "detect", url.PathEscape(metricType)), query)

	var result DetectionResult
	if err := s.client.doRequest(ctx, "POST", path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// List retrieves a page of anomalies, most recent first
func (s *AnomalyService) List(ctx context.Context, accountID string, opts *AnomalyListOptions) (*AnomalyPage, error) {
	query := url.Values{}
	if opts != nil {
		if opts.Page > 0 {
			query.Set("page", strconv.Itoa(opts.Page))
		}
		if opts.PageSize > 0 {
			query.Set("pageSize", strconv.Itoa(opts.PageSize))
		}
		if opts.MetricType != "" {
			query.Set("metricType", opts.MetricType)
		}
		if opts.Severity != "" {
			query.Set("severity", opts.Severity)
		}
		if opts.Status != "" {
			query.Set("status", opts.Status)
		}
	}

	var page AnomalyPage
	if err := s.client.doRequest(ctx, "GET", withQuery(accountPath("anomalies", accountID), query), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Get retrieves a single anomaly
func (s *AnomalyService) Get(ctx context.Context, accountID, id string) (*Anomaly, error) {
	var a Anomaly
	if err := s.client.doRequest(ctx, "GET", accountPath("anomalies", accountID, url.PathEscape(id)), nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Summary counts anomalies by severity
func (s *AnomalyService) Summary(ctx context.Context, accountID string) (*AnomalySummary, error) {
	var summary AnomalySummary
	if err := s.client.doRequest(ctx, "GET", accountPath("anomalies", accountID, "summary"), nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// UpdateStatus moves an anomaly to open, acknowledged, resolved or ignored
func (s *AnomalyService) UpdateStatus(ctx context.Context, accountID, id, status string) (*Anomaly, error) {
	var a Anomaly
	body := map[string]string{"status": status}
	if err := s.client.doRequest(ctx, "PATCH", accountPath("anomalies", accountID, url.PathEscape(id), "status"), body, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Acknowledge acknowledges an anomaly
func (s *AnomalyService) Acknowledge(ctx context.Context, accountID, id string) (*Anomaly, error) {
	return s.UpdateStatus(ctx, accountID, id, "acknowledged")
}

// Resolve resolves an anomaly
func (s *AnomalyService) Resolve(ctx context.Context, accountID, id string) (*Anomaly, error) {
	return s.UpdateStatus(ctx, accountID, id, "resolved")
}
