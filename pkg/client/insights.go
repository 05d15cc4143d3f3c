package client

import "context"

// InsightService handles insight API calls
type InsightService struct {
	client *Client
}

// Get generates insights for an account. Fallback is set on the result when
// the server could not reach its language model.
func (s *InsightService) Get(ctx context.Context, accountID string) (*Insight, error) {
	var in Insight
	if err := s.client.doRequest(ctx, "GET", accountPath("insights", accountID), nil, &in); err != nil {
		return nil, err
	}
	return &in, nil
}
