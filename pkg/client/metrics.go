package client

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

// MetricService handles metric-related API calls
type MetricService struct {
	client *Client
}

// MetricQuery selects stored samples of one metric type
type MetricQuery struct {
	MetricType string
	Start      time.Time
	End        time.Time
	Limit      int
}

// Query retrieves stored samples, most recent first
func (s *MetricService) Query(ctx context.Context, accountID string, q MetricQuery) ([]Metric, error) {
	query := url.Values{}
	query.Set("metricType", q.MetricType)
	if !q.Start.IsZero() {
		query.Set("startTime", q.Start.UTC().Format(time.RFC3339))
	}
	if !q.End.IsZero() {
		query.Set("endTime", q.End.UTC().Format(time.RFC3339))
	}
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}

	var samples []Metric
	if err := s.client.doRequest(ctx, "GET", withQuery(accountPath("metrics", accountID), query), nil, &samples); err != nil {
		return nil, err
	}
	return samples, nil
}

// Ingest stores a batch of samples and returns how many were stored
func (s *MetricService) Ingest(ctx context.Context, accountID string, samples []Metric) (int, error) {
	var resp struct {
		Stored int `json:"stored"`
	}
	body := map[string]interface{}{"metrics": samples}
	if err := s.client.doRequest(ctx, "POST", accountPath("metrics", accountID), body, &resp); err != nil {
		return 0, err
	}
	return resp.Stored, nil
}

// Collect pulls the latest samples from CloudWatch on the server
func (s *MetricService) Collect(ctx context.Context, accountID string) ([]Metric, error) {
	var samples []Metric
	if err := s.client.doRequest(ctx, "POST", accountPath("metrics", accountID, "collect"), nil, &samples); err != nil {
		return nil, err
	}
	return samples, nil
}

// Types lists the metric types with stored samples
func (s *MetricService) Types(ctx context.Context, accountID string) ([]string, error) {
	var types []string
	if err := s.client.doRequest(ctx, "GET", accountPath("metrics", accountID, "types"), nil, &types); err != nil {
		return nil, err
	}
	return types, nil
}
