package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/cloudops/internal/domain/alert"
	"github.com/pratik-mahalle/cloudops/internal/domain/anomaly"
	"github.com/pratik-mahalle/cloudops/internal/domain/cost"
	"github.com/pratik-mahalle/cloudops/internal/domain/metric"
	"github.com/pratik-mahalle/cloudops/internal/testutil"
	"github.com/pratik-mahalle/cloudops/migrations"
)

var base = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	return Wrap(testutil.NewTestDB(t), "sqlite")
}

func TestRebind(t *testing.T) {
	query := "SELECT * FROM metrics WHERE account_id = ? AND ts >= ?"

	assert.Equal(t, query, Wrap(nil, "sqlite").Rebind(query))
	assert.Equal(t, "SELECT * FROM metrics WHERE account_id = $1 AND ts >= $2", Wrap(nil, "postgres").Rebind(query))
}

func TestRunMigrations(t *testing.T) {
	raw, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	raw.SetMaxOpenConns(1)
	t.Cleanup(func() { raw.Close() })
	db := Wrap(raw, "sqlite")

	applied, err := RunMigrations(db, migrations.FS())
	require.NoError(t, err)
	assert.Equal(t, []string{"001_init.sql"}, applied)

	applied, err = RunMigrations(db, migrations.FS())
	require.NoError(t, err)
	assert.Empty(t, applied)

	versions, err := AppliedMigrations(db)
	require.NoError(t, err)
	assert.True(t, versions["001_init.sql"])
}

func TestMetricRepository_UpsertQueryAndExpire(t *testing.T) {
	db := newTestDB(t)
	repo := NewMetricRepository(db)
	ctx := context.Background()

	batch := make([]*metric.Metric, 0, 5)
	for i := 0; i < 5; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		batch = append(batch, &metric.Metric{
			AccountID:  "acct-1",
			MetricType: metric.TypeCPUUtilization,
			Timestamp:  ts,
			Value:      float64(i),
			Unit:       metric.UnitPercent,
			Dimensions: map[string]string{"namespace": "AWS/EC2"},
			ExpiresAt:  ts.Add(metric.Retention),
		})
	}
	require.NoError(t, repo.PutBatch(ctx, batch))

	// same key replaces the stored value
	replaced := *batch[4]
	replaced.Value = 42
	require.NoError(t, repo.Put(ctx, &replaced))

	latest, err := repo.Query(ctx, metric.Query{AccountID: "acct-1", MetricType: metric.TypeCPUUtilization, Limit: 2})
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, 42.0, latest[0].Value)
	assert.Equal(t, 3.0, latest[1].Value)
	assert.Equal(t, "AWS/EC2", latest[0].Dimensions["namespace"])

	window, err := repo.Query(ctx, metric.Query{
		AccountID:  "acct-1",
		MetricType: metric.TypeCPUUtilization,
		Start:      base.Add(time.Minute),
		End:        base.Add(2 * time.Minute),
		Ascending:  true,
	})
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, base.Add(time.Minute), window[0].Timestamp)

	types, err := repo.ListTypes(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, []string{metric.TypeCPUUtilization}, types)

	deleted, err := repo.(*MetricRepository).DeleteExpired(ctx, base.Add(metric.Retention).Add(90*time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
}

func TestCostRepository_DailyAndForecasts(t *testing.T) {
	db := newTestDB(t)
	repo := NewCostRepository(db)
	ctx := context.Background()

	rec := &cost.DailyRecord{
		AccountID: "acct-1",
		Date:      "2024-03-09",
		TotalCost: decimal.RequireFromString("67.85"),
		Currency:  cost.DefaultCurrency,
		Breakdown: []cost.ServiceCost{
			{Service: "Amazon EC2", Cost: decimal.RequireFromString("55.50"), Usage: decimal.NewFromInt(900), Unit: "Hrs"},
			{Service: "Amazon S3", Cost: decimal.RequireFromString("12.35")},
		},
	}
	require.NoError(t, repo.PutDaily(ctx, rec))
	require.NoError(t, repo.PutDaily(ctx, &cost.DailyRecord{AccountID: "acct-1", Date: "2024-03-11", TotalCost: decimal.NewFromInt(1), Currency: "USD"}))

	records, err := repo.QueryDaily(ctx, "acct-1", "2024-03-01", "2024-03-10")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, rec.TotalCost.Equal(records[0].TotalCost))
	require.Len(t, records[0].Breakdown, 2)
	assert.Equal(t, "Amazon EC2", records[0].Breakdown[0].Service)
	assert.True(t, decimal.NewFromInt(900).Equal(records[0].Breakdown[0].Usage))

	require.NoError(t, repo.PutForecasts(ctx, []*cost.Forecast{
		{AccountID: "acct-1", ForecastDate: "2024-05-01", PredictedCost: 3121.2, LowerBound: 2497, UpperBound: 3745.4, ConfidenceLevel: 0.8, GeneratedAt: base},
		{AccountID: "acct-1", ForecastDate: "2024-04-01", PredictedCost: 3060, LowerBound: 2448, UpperBound: 3672, ConfidenceLevel: 0.8, GeneratedAt: base},
	}))
	// regenerating a month replaces it
	require.NoError(t, repo.PutForecasts(ctx, []*cost.Forecast{
		{AccountID: "acct-1", ForecastDate: "2024-04-01", PredictedCost: 3100, GeneratedAt: base},
	}))

	forecasts, err := repo.ListForecasts(ctx, "acct-1", 0)
	require.NoError(t, err)
	require.Len(t, forecasts, 2)
	assert.Equal(t, "2024-04-01", forecasts[0].ForecastDate)
	assert.Equal(t, 3100.0, forecasts[0].PredictedCost)
	assert.Equal(t, base, forecasts[1].GeneratedAt)
}

func TestAnomalyRepository_ListFilterAndPage(t *testing.T) {
	db := newTestDB(t)
	repo := NewAnomalyRepository(db)
	ctx := context.Background()

	var batch []*anomaly.Anomaly
	for i := 0; i < 6; i++ {
		severity := anomaly.SeverityMedium
		if i%3 == 0 {
			severity = anomaly.SeverityCritical
		}
		batch = append(batch, &anomaly.Anomaly{
			ID:           fmt.Sprintf("anomaly-%d", i),
			AccountID:    "acct-1",
			MetricType:   metric.TypeNetworkOut,
			DetectedAt:   base.Add(time.Duration(i) * time.Minute),
			Severity:     severity,
			Description:  "NetworkOut value deviates from the mean",
			CurrentValue: float64(100 + i),
			Status:       anomaly.StatusOpen,
		})
	}
	require.NoError(t, repo.PutBatch(ctx, batch))

	items, total, err := repo.List(ctx, "acct-1", anomaly.Filter{}, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(6), total)
	require.Len(t, items, 2)
	assert.Equal(t, "anomaly-4", items[0].ID)
	assert.Equal(t, "anomaly-3", items[1].ID)

	critical, total, err := repo.List(ctx, "acct-1", anomaly.Filter{Severity: anomaly.SeverityCritical}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, critical, 2)

	other, total, err := repo.List(ctx, "acct-2", anomaly.Filter{}, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, other)
}

func TestAnomalyRepository_UpdateAndCount(t *testing.T) {
	db := newTestDB(t)
	repo := NewAnomalyRepository(db)
	ctx := context.Background()

	a := &anomaly.Anomaly{
		ID:         "anomaly-1",
		AccountID:  "acct-1",
		MetricType: metric.TypeCPUUtilization,
		DetectedAt: base,
		Severity:   anomaly.SeverityHigh,
		Status:     anomaly.StatusOpen,
	}
	require.NoError(t, repo.Put(ctx, a))

	require.NoError(t, a.Transition(anomaly.StatusResolved, base.Add(time.Hour)))
	require.NoError(t, repo.Update(ctx, a))

	got, err := repo.Get(ctx, "acct-1", "anomaly-1")
	require.NoError(t, err)
	assert.Equal(t, anomaly.StatusResolved, got.Status)
	require.NotNil(t, got.ResolvedAt)
	assert.Equal(t, base.Add(time.Hour), *got.ResolvedAt)

	_, err = repo.Get(ctx, "acct-2", "anomaly-1")
	assert.ErrorIs(t, err, anomaly.ErrNotFound)
	assert.ErrorIs(t, repo.Update(ctx, &anomaly.Anomaly{ID: "missing", AccountID: "acct-1"}), anomaly.ErrNotFound)

	counts, err := repo.CountByStatusAndSeverity(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]map[string]int{anomaly.StatusResolved: {anomaly.SeverityHigh: 1}}, counts)
}

func TestAlertRepository_Lifecycle(t *testing.T) {
	db := newTestDB(t)
	repo := NewAlertRepository(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Put(ctx, &alert.Alert{
			ID:        fmt.Sprintf("alert-%d", i),
			AccountID: "acct-1",
			Type:      alert.TypeAnomaly,
			Title:     "CPUUtilization anomaly detected",
			Message:   "1 anomalies detected",
			Severity:  alert.SeverityError,
			Status:    alert.StatusActive,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Metadata:  map[string]interface{}{"anomalyIds": []interface{}{"anomaly-1"}},
		}))
	}

	alerts, err := repo.List(ctx, "acct-1", alert.Filter{Type: alert.TypeAnomaly}, 2)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "alert-2", alerts[0].ID)
	assert.Equal(t, []interface{}{"anomaly-1"}, alerts[0].Metadata["anomalyIds"])

	a, err := repo.Get(ctx, "acct-1", "alert-1")
	require.NoError(t, err)
	resolved := base.Add(time.Hour)
	a.Status = alert.StatusResolved
	a.ResolvedAt = &resolved
	require.NoError(t, repo.Update(ctx, a))

	got, err := repo.Get(ctx, "acct-1", "alert-1")
	require.NoError(t, err)
	assert.Equal(t, alert.StatusResolved, got.Status)
	assert.Equal(t, resolved, *got.ResolvedAt)
	assert.Nil(t, got.AcknowledgedAt)

	_, err = repo.Get(ctx, "acct-1", "missing")
	assert.ErrorIs(t, err, alert.ErrNotFound)
	assert.ErrorIs(t, repo.Update(ctx, &alert.Alert{ID: "missing", AccountID: "acct-1"}), alert.ErrNotFound)
}
