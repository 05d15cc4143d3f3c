package client

import (
	"context"
	"net/url"
	"strconv"
)

// AlertService handles alert-related API calls
type AlertService struct {
	client *Client
}

// SendAlertRequest represents a request to raise an alert
type SendAlertRequest struct {
	Type     string                 `json:"type,omitempty"`     // anomaly, budget, threshold, recommendation
	Title    string                 `json:"title"`
	Message  string                 `json:"message"`
	Severity string                 `json:"severity,omitempty"` // info, warning, error, critical
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// AlertListOptions contains options for listing alerts
type AlertListOptions struct {
	Type     string
	Severity string
	Status   string
	Limit    int
}

// List retrieves alerts, most recent first
func (s *AlertService) List(ctx context.Context, accountID string, opts *AlertListOptions) ([]Alert, error) {
	query := url.Values{}
	if opts != nil {
		if opts.Type != "" {
			query.Set("type", opts.Type)
		}
		if opts.Severity != "" {
			query.Set("severity", opts.Severity)
		}
		if opts.Status != "" {
			query.Set("status", opts.Status)
		}
		if opts.Limit > 0 {
			query.Set("limit", strconv.Itoa(opts.Limit))
		}
	}

	var alerts []Alert
	if err := s.client.doRequest(ctx, "GET", withQuery(accountPath("alerts", accountID), query), nil, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

// Send raises an alert
func (s *AlertService) Send(ctx context.Context, accountID string, req SendAlertRequest) (*Alert, error) {
	var alert Alert
	if err := s.client.doRequest(ctx, "POST", accountPath("alerts", accountID), req, &alert); err != nil {
		return nil, err
	}
	return &alert, nil
}

// UpdateStatus moves an alert to active, acknowledged or resolved
func (s *AlertService) UpdateStatus(ctx context.Context, accountID, id, status string) (*Alert, error) {
	var alert Alert
	body := map[string]string{"status": status}
	if err := s.client.doRequest(ctx, "PATCH", accountPath("alerts", accountID, url.PathEscape(id), "status"), body, &alert); err != nil {
		return nil, err
	}
	return &alert, nil
}

// Acknowledge acknowledges an alert
func (s *AlertService) Acknowledge(ctx context.Context, accountID, id string) (*Alert, error) {
	return s.UpdateStatus(ctx, accountID, id, "acknowledged")
}

// Resolve resolves an alert
func (s *AlertService) Resolve(ctx context.Context, accountID, id string) (*Alert, error) {
	return s.UpdateStatus(ctx, accountID, id, "resolved")
}
