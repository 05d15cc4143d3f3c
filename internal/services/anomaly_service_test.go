package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/cloudops/internal/config"
	"github.com/pratik-mahalle/cloudops/internal/detector"
	"github.com/pratik-mahalle/cloudops/internal/domain/alert"
	"github.com/pratik-mahalle/cloudops/internal/domain/anomaly"
	"github.com/pratik-mahalle/cloudops/internal/domain/metric"
	"github.com/pratik-mahalle/cloudops/internal/pkg/logger"
	"github.com/pratik-mahalle/cloudops/internal/testutil"
)

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type anomalyFixture struct {
	service   *AnomalyService
	repo      *testutil.MockAnomalyRepository
	metrics   *testutil.MockMetricRepository
	alerts    *testutil.MockAlertRepository
	publisher *testutil.MockPublisher
}

func newAnomalyFixture(t *testing.T) *anomalyFixture {
	t.Helper()
	f := &anomalyFixture{
		repo:      testutil.NewMockAnomalyRepository(),
		metrics:   testutil.NewMockMetricRepository(),
		alerts:    testutil.NewMockAlertRepository(),
		publisher: &testutil.MockPublisher{},
	}
	log := logger.Nop()
	alertSvc := NewAlertService(f.alerts, f.publisher, log)

	n := 0
	det := detector.NewAnomalyDetector().
		WithClock(func() time.Time { return fixedNow }).
		WithIDGenerator(func() string { n++; return fmt.Sprintf("anomaly-%02d", n) })

	f.service = NewAnomalyService(f.repo, f.metrics, det, alertSvc, config.DetectionConfig{
		ThresholdMultiplier: 2.5,
		MinDataPoints:       10,
		Lookback:            24 * time.Hour,
		AlertMinSeverity:    anomaly.SeverityHigh,
	}, log)
	f.service.now = func() time.Time { return fixedNow }
	return f
}

// spikeSeries has one value 4.36 standard deviations above the mean
func spikeSeries(start time.Time) []anomaly.Sample {
	values := []float64{10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 100}
	out := make([]anomaly.Sample, len(values))
	for i, v := range values {
		out[i] = anomaly.Sample{Timestamp: start.Add(time.Duration(i) * time.Minute), Value: v}
	}
	return out
}

func TestAnomalyService_DetectPersistsAndAlerts(t *testing.T) {
	f := newAnomalyFixture(t)

	result, err := f.service.Detect(context.Background(), anomaly.DetectRequest{
		AccountID:  "acct-1",
		MetricType: metric.TypeCPUUtilization,
		Samples:    spikeSeries(fixedNow.Add(-time.Hour)),
	})
	require.NoError(t, err)

	require.True(t, result.AnomalyDetected)
	require.Len(t, result.Anomalies, 1)
	assert.True(t, result.Persisted)
	assert.Empty(t, result.PersistenceError)
	assert.Equal(t, anomaly.SeverityCritical, result.Anomalies[0].Severity)

	stored, err := f.repo.Get(context.Background(), "acct-1", result.Anomalies[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, stored.CurrentValue)

	require.Equal(t, 1, f.publisher.Count())
	published := f.publisher.Published[0]
	assert.Equal(t, alert.TypeAnomaly, published.Type)
	assert.Equal(t, alert.SeverityCritical, published.Severity)
	assert.Equal(t, "CPUUtilization anomaly detected", published.Title)
	assert.Len(t, f.alerts.Alerts, 1)
}

func TestAnomalyService_DetectKeepsResultWhenStoreFails(t *testing.T) {
	f := newAnomalyFixture(t)
	f.repo.PutError = errors.New("table unavailable")

	result, err := f.service.Detect(context.Background(), anomaly.DetectRequest{
		AccountID:  "acct-1",
		MetricType: metric.TypeCPUUtilization,
		Samples:    spikeSeries(fixedNow.Add(-time.Hour)),
	})
	require.NoError(t, err)

	assert.False(t, result.Persisted)
	assert.Contains(t, result.PersistenceError, "table unavailable")
	assert.Len(t, result.Anomalies, 1)
	assert.Empty(t, f.repo.Anomalies)
}

func TestAnomalyService_DetectBelowAlertMinimum(t *testing.T) {
	f := newAnomalyFixture(t)

	// 5 of 20 points at 20 against a base of 10 gives deviations of about 1.73,
	// so a 1.5 multiplier flags them as low severity only
	samples := spikeSeries(fixedNow.Add(-time.Hour))
	for i := 15; i < 20; i++ {
		samples[i].Value = 20
	}

	result, err := f.service.Detect(context.Background(), anomaly.DetectRequest{
		AccountID:           "acct-1",
		MetricType:          metric.TypeNetworkIn,
		Samples:             samples,
		ThresholdMultiplier: 1.5,
	})
	require.NoError(t, err)
	require.True(t, result.AnomalyDetected)
	for _, a := range result.Anomalies {
		assert.Equal(t, anomaly.SeverityLow, a.Severity)
	}
	assert.Equal(t, 0, f.publisher.Count())
}

func TestAnomalyService_DetectInvalidInput(t *testing.T) {
	f := newAnomalyFixture(t)

	_, err := f.service.Detect(context.Background(), anomaly.DetectRequest{
		AccountID:           "acct-1",
		MetricType:          metric.TypeCPUUtilization,
		Samples:             spikeSeries(fixedNow),
		ThresholdMultiplier: -1,
	})
	assert.ErrorIs(t, err, detector.ErrInvalidInput)
}

func TestAnomalyService_DetectInsufficientData(t *testing.T) {
	f := newAnomalyFixture(t)

	result, err := f.service.Detect(context.Background(), anomaly.DetectRequest{
		AccountID:  "acct-1",
		MetricType: metric.TypeCPUUtilization,
		Samples:    spikeSeries(fixedNow)[:5],
	})
	require.NoError(t, err)
	assert.False(t, result.AnomalyDetected)
	assert.True(t, result.Persisted)
	assert.Equal(t, 5, result.Statistics.DataPointsAnalyzed)
	assert.Empty(t, f.repo.Anomalies)
}

func TestAnomalyService_DetectForMetric(t *testing.T) {
	f := newAnomalyFixture(t)

	// stored out of order and with one sample outside the lookback window
	samples := spikeSeries(fixedNow.Add(-time.Hour))
	for i := len(samples) - 1; i >= 0; i-- {
		require.NoError(t, f.metrics.Put(context.Background(), &metric.Metric{
			AccountID:  "acct-1",
			MetricType: metric.TypeCPUUtilization,
			Timestamp:  samples[i].Timestamp,
			Value:      samples[i].Value,
		}))
	}
	require.NoError(t, f.metrics.Put(context.Background(), &metric.Metric{
		AccountID:  "acct-1",
		MetricType: metric.TypeCPUUtilization,
		Timestamp:  fixedNow.Add(-48 * time.Hour),
		Value:      100000,
	}))

	result, err := f.service.DetectForMetric(context.Background(), "acct-1", metric.TypeCPUUtilization, 0)
	require.NoError(t, err)
	assert.Equal(t, 20, result.Statistics.DataPointsAnalyzed)
	require.Len(t, result.Anomalies, 1)
	assert.Equal(t, samples[19].Timestamp, result.Anomalies[0].DetectedAt)
}

func TestAnomalyService_UpdateStatus(t *testing.T) {
	f := newAnomalyFixture(t)
	ctx := context.Background()
	require.NoError(t, f.repo.Put(ctx, &anomaly.Anomaly{
		ID:         "anomaly-x",
		AccountID:  "acct-1",
		MetricType: metric.TypeCPUUtilization,
		Severity:   anomaly.SeverityHigh,
		Status:     anomaly.StatusOpen,
		DetectedAt: fixedNow,
	}))

	a, err := f.service.UpdateStatus(ctx, "acct-1", "anomaly-x", anomaly.StatusResolved)
	require.NoError(t, err)
	assert.Equal(t, anomaly.StatusResolved, a.Status)
	require.NotNil(t, a.ResolvedAt)
	assert.Equal(t, fixedNow, *a.ResolvedAt)

	a, err = f.service.UpdateStatus(ctx, "acct-1", "anomaly-x", anomaly.StatusOpen)
	require.NoError(t, err)
	assert.Equal(t, anomaly.StatusOpen, a.Status)
	assert.NotNil(t, a.ResolvedAt)

	_, err = f.service.UpdateStatus(ctx, "acct-1", "anomaly-x", "closed")
	assert.ErrorIs(t, err, anomaly.ErrInvalidStatus)

	_, err = f.service.UpdateStatus(ctx, "acct-1", "missing", anomaly.StatusAcknowledged)
	assert.ErrorIs(t, err, anomaly.ErrNotFound)

	_, err = f.service.UpdateStatus(ctx, "acct-2", "anomaly-x", anomaly.StatusAcknowledged)
	assert.ErrorIs(t, err, anomaly.ErrNotFound)
}

func TestAnomalyService_GetSummary(t *testing.T) {
	f := newAnomalyFixture(t)
	ctx := context.Background()

	seed := []struct {
		severity, status string
	}{
		{anomaly.SeverityCritical, anomaly.StatusOpen},
		{anomaly.SeverityCritical, anomaly.StatusResolved},
		{anomaly.SeverityHigh, anomaly.StatusOpen},
		{anomaly.SeverityMedium, anomaly.StatusAcknowledged},
		{anomaly.SeverityLow, anomaly.StatusIgnored},
	}
	for i, s := range seed {
		require.NoError(t, f.repo.Put(ctx, &anomaly.Anomaly{
			ID:        fmt.Sprintf("a-%d", i),
			AccountID: "acct-1",
			Severity:  s.severity,
			Status:    s.status,
		}))
	}
	require.NoError(t, f.repo.Put(ctx, &anomaly.Anomaly{ID: "other", AccountID: "acct-2", Severity: anomaly.SeverityLow, Status: anomaly.StatusOpen}))

	summary, err := f.service.GetSummary(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, 5, summary.TotalAnomalies)
	assert.Equal(t, 2, summary.OpenAnomalies)
	assert.Equal(t, 2, summary.CriticalCount)
	assert.Equal(t, 1, summary.HighCount)
	assert.Equal(t, 1, summary.MediumCount)
	assert.Equal(t, 1, summary.LowCount)
	assert.Equal(t, fixedNow, summary.GeneratedAt)
}

func TestAnomalyService_ListMostRecentFirst(t *testing.T) {
	f := newAnomalyFixture(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, f.repo.Put(ctx, &anomaly.Anomaly{
			ID:         fmt.Sprintf("a-%d", i),
			AccountID:  "acct-1",
			DetectedAt: fixedNow.Add(time.Duration(i) * time.Minute),
			Status:     anomaly.StatusOpen,
		}))
	}

	items, total, err := f.service.List(ctx, "acct-1", anomaly.Filter{}, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, items, 2)
	assert.Equal(t, "a-3", items[0].ID)
	assert.Equal(t, "a-2", items[1].ID)
}
