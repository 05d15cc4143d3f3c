package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/cloudops/pkg/client"
)

func TestDetectionFlow_IngestDetectAndTriage(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	stored, err := s.client.Metrics().Ingest(ctx, testAccount, hourlySeries(20, 10, 100))
	require.NoError(t, err)
	assert.Equal(t, 20, stored)

	types, err := s.client.Metrics().Types(ctx, testAccount)
	require.NoError(t, err)
	assert.Equal(t, []string{"CPUUtilization"}, types)

	result, err := s.client.Anomalies().DetectForMetric(ctx, testAccount, "CPUUtilization", 0)
	require.NoError(t, err)
	require.True(t, result.AnomalyDetected)
	require.Len(t, result.Anomalies, 1)
	assert.True(t, result.Persisted)
	assert.Equal(t, 20, result.Statistics.DataPointsAnalyzed)

	spike := result.Anomalies[0]
	assert.Equal(t, "critical", spike.Severity)
	assert.Equal(t, 100.0, spike.CurrentValue)
	assert.Equal(t, "open", spike.Status)

	// a critical anomaly raises one alert and publishes it
	alerts, err := s.client.Alerts().List(ctx, testAccount, &client.AlertListOptions{Type: "anomaly"})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "critical", alerts[0].Severity)
	assert.Equal(t, "active", alerts[0].Status)
	assert.Equal(t, 1, s.publisher.Count())

	summary, err := s.client.Anomalies().Summary(ctx, testAccount)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalAnomalies)
	assert.Equal(t, 1, summary.OpenAnomalies)
	assert.Equal(t, 1, summary.CriticalCount)

	acked, err := s.client.Anomalies().Acknowledge(ctx, testAccount, spike.ID)
	require.NoError(t, err)
	assert.Equal(t, "acknowledged", acked.Status)

	resolved, err := s.client.Anomalies().Resolve(ctx, testAccount, spike.ID)
	require.NoError(t, err)
	assert.Equal(t, "resolved", resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)

	summary, err = s.client.Anomalies().Summary(ctx, testAccount)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalAnomalies)
	assert.Zero(t, summary.OpenAnomalies)

	page, err := s.client.Anomalies().List(ctx, testAccount, &client.AnomalyListOptions{Status: "resolved"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.TotalItems)
	assert.Equal(t, spike.ID, page.Items[0].ID)

	_, err = s.client.Alerts().Resolve(ctx, testAccount, alerts[0].ID)
	require.NoError(t, err)
}

func TestDetectionFlow_SuppliedSeries(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	samples := hourlySeries(20, 50, 50)
	points := make([]client.DataPoint, len(samples))
	for i, m := range samples {
		points[i] = client.DataPoint{Timestamp: m.Timestamp, Value: m.Value}
	}

	result, err := s.client.Anomalies().Detect(ctx, client.DetectRequest{
		AccountID:  testAccount,
		MetricType: "CustomQueueDepth",
		DataPoints: points,
	})
	require.NoError(t, err)
	assert.False(t, result.AnomalyDetected)
	assert.Empty(t, result.Anomalies)
	assert.Equal(t, 50.0, result.Statistics.Mean)
	assert.Zero(t, result.Statistics.StandardDeviation)
	assert.Zero(t, s.publisher.Count())
}

func TestDetectionFlow_Errors(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	_, err := s.client.Anomalies().Get(ctx, testAccount, "does-not-exist")
	require.Error(t, err)
	assert.True(t, client.IsNotFound(err))

	_, err = s.client.Anomalies().Detect(ctx, client.DetectRequest{AccountID: testAccount, MetricType: "CPUUtilization"})
	require.Error(t, err)
	assert.True(t, client.IsValidationError(err))

	unauthenticated := client.NewClient(client.Config{BaseURL: s.baseURL})
	_, err = unauthenticated.Anomalies().Summary(ctx, testAccount)
	require.Error(t, err)
	assert.True(t, client.IsUnauthorized(err))

	health, err := unauthenticated.Ready(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ready", health.Status)
	assert.Equal(t, "connected", health.Store)
}
