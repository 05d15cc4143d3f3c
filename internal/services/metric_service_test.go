package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/cloudops/internal/domain/metric"
	apperrors "github.com/pratik-mahalle/cloudops/internal/pkg/errors"
	"github.com/pratik-mahalle/cloudops/internal/pkg/logger"
	"github.com/pratik-mahalle/cloudops/internal/testutil"
)

func TestMetricService_Ingest(t *testing.T) {
	tests := []struct {
		name    string
		samples []*metric.Metric
		wantErr bool
	}{
		{name: "empty batch", samples: nil, wantErr: true},
		{name: "bad account", samples: []*metric.Metric{{AccountID: "acct 1", MetricType: metric.TypeCPUUtilization}}, wantErr: true},
		{name: "missing type", samples: []*metric.Metric{{AccountID: "acct-1"}}, wantErr: true},
		{name: "nan value", samples: []*metric.Metric{{AccountID: "acct-1", MetricType: "Custom", Value: math.NaN()}}, wantErr: true},
		{name: "custom type accepted", samples: []*metric.Metric{{AccountID: "acct-1", MetricType: "QueueDepth", Value: 3}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := testutil.NewMockMetricRepository()
			service := NewMetricService(repo, nil, logger.Nop())
			service.now = func() time.Time { return fixedNow }

			err := service.Ingest(context.Background(), tt.samples)
			if tt.wantErr {
				var appErr *apperrors.AppError
				require.True(t, errors.As(err, &appErr))
				assert.Equal(t, 400, appErr.StatusCode)
				assert.Empty(t, repo.Metrics)
				return
			}
			require.NoError(t, err)
			require.Len(t, repo.Metrics, 1)
			assert.Equal(t, fixedNow, repo.Metrics[0].Timestamp)
			assert.Equal(t, fixedNow.Add(metric.Retention), repo.Metrics[0].ExpiresAt)
		})
	}
}

func TestMetricService_QueryDefaults(t *testing.T) {
	repo := testutil.NewMockMetricRepository()
	service := NewMetricService(repo, nil, logger.Nop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, service.Ingest(ctx, []*metric.Metric{{
			AccountID:  "acct-1",
			MetricType: metric.TypeCPUUtilization,
			Timestamp:  fixedNow.Add(time.Duration(i) * time.Minute),
			Value:      float64(i),
		}}))
	}

	got, err := service.Query(ctx, metric.Query{AccountID: "acct-1", MetricType: metric.TypeCPUUtilization})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 2.0, got[0].Value)

	_, err = service.Query(ctx, metric.Query{AccountID: "acct-1"})
	assert.Error(t, err)

	_, err = service.Query(ctx, metric.Query{AccountID: "acct-1", MetricType: "x", Start: fixedNow, End: fixedNow.Add(-time.Hour)})
	assert.Error(t, err)
}

func TestMetricService_Collect(t *testing.T) {
	repo := testutil.NewMockMetricRepository()
	collector := &testutil.MockMetricCollector{Samples: []*metric.Metric{
		{MetricType: metric.TypeCPUUtilization, Timestamp: fixedNow, Value: 42, Unit: metric.UnitPercent},
		{MetricType: metric.TypeLambdaErrors, Timestamp: fixedNow, Value: 1, Unit: metric.UnitCount},
	}}
	service := NewMetricService(repo, collector, logger.Nop())

	got, err := service.Collect(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Len(t, repo.Metrics, 2)

	types, err := service.ListTypes(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.Equal(t, []string{metric.TypeCPUUtilization, metric.TypeLambdaErrors}, types)

	collector.Err = errors.New("throttled")
	_, err = service.Collect(context.Background(), "acct-1")
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrCodeProviderAPI, appErr.Code)
}
