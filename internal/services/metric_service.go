package services

import (
	"context"
	"fmt"
	"time"

	"github.com/pratik-mahalle/cloudops/internal/domain/metric"
	"github.com/pratik-mahalle/cloudops/internal/pkg/errors"
	"github.com/pratik-mahalle/cloudops/internal/pkg/logger"
	"github.com/pratik-mahalle/cloudops/internal/pkg/stats"
	"github.com/pratik-mahalle/cloudops/internal/pkg/validator"
)

// DefaultMetricQueryLimit caps unbounded metric queries
const DefaultMetricQueryLimit = 1000

// MetricService implements metric.Service
type MetricService struct {
	repo      metric.Repository
	collector metric.Collector
	logger    *logger.Logger
	now       func() time.Time
}

// NewMetricService creates a new metric service. collector may be nil when
// samples only arrive through Ingest.
func NewMetricService(repo metric.Repository, collector metric.Collector, log *logger.Logger) *MetricService {
	return &MetricService{
		repo:      repo,
		collector: collector,
		logger:    log.WithComponent("metric-service"),
		now:       time.Now,
	}
}

// Ingest validates and stores samples. Samples without a timestamp are
// stamped with the current time.
func (s *MetricService) Ingest(ctx context.Context, samples []*metric.Metric) error {
	if len(samples) == 0 {
		return errors.BadRequest("at least one metric sample is required")
	}

	now := s.now().UTC()
	for i, m := range samples {
		if !validator.IsAccountID(m.AccountID) {
			return errors.BadRequest(fmt.Sprintf("sample %d: invalid account id %q", i, m.AccountID))
		}
		if m.MetricType == "" {
			return errors.BadRequest(fmt.Sprintf("sample %d: metricType is required", i))
		}
		if !stats.IsFinite(m.Value) {
			return errors.BadRequest(fmt.Sprintf("sample %d: value must be a finite number", i))
		}
		if m.Timestamp.IsZero() {
			m.Timestamp = now
		}
		m.Timestamp = m.Timestamp.UTC()
		m.ExpiresAt = m.Timestamp.Add(metric.Retention)
	}

	if err := s.repo.PutBatch(ctx, samples); err != nil {
		s.logger.ErrorWithErr(err, "Failed to store metric samples")
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"account_id": samples[0].AccountID,
		"samples":    len(samples),
	}).Debug("Metric samples stored")
	return nil
}

// Query returns stored samples, most recent first unless q.Ascending is set
func (s *MetricService) Query(ctx context.Context, q metric.Query) ([]*metric.Metric, error) {
	if q.MetricType == "" {
		return nil, errors.BadRequest("metricType is required")
	}
	if !q.Start.IsZero() && !q.End.IsZero() && q.End.Before(q.Start) {
		return nil, errors.BadRequest("endTime must not be before startTime")
	}
	if q.Limit <= 0 {
		q.Limit = DefaultMetricQueryLimit
	}
	return s.repo.Query(ctx, q)
}

// Collect pulls the latest samples from the provider and stores them
func (s *MetricService) Collect(ctx context.Context, accountID string) ([]*metric.Metric, error) {
	if s.collector == nil {
		return nil, errors.ServiceUnavailable("metric collection is not configured")
	}

	samples, err := s.collector.FetchLatest(ctx, accountID)
	if err != nil {
		return nil, errors.ProviderAPIError("AWS CloudWatch", err)
	}
	if len(samples) == 0 {
		return samples, nil
	}
	if err := s.Ingest(ctx, samples); err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"account_id": accountID,
		"samples":    len(samples),
	}).Info("Metrics collection completed")
	return samples, nil
}

// ListTypes returns the metric types stored for the account
func (s *MetricService) ListTypes(ctx context.Context, accountID string) ([]string, error) {
	return s.repo.ListTypes(ctx, accountID)
}
