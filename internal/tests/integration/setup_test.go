package integration

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pratik-mahalle/cloudops/internal/api/handlers"
	"github.com/pratik-mahalle/cloudops/internal/api/middleware"
	"github.com/pratik-mahalle/cloudops/internal/api/router"
	"github.com/pratik-mahalle/cloudops/internal/cache"
	"github.com/pratik-mahalle/cloudops/internal/config"
	"github.com/pratik-mahalle/cloudops/internal/detector"
	"github.com/pratik-mahalle/cloudops/internal/domain/anomaly"
	"github.com/pratik-mahalle/cloudops/internal/domain/cost"
	"github.com/pratik-mahalle/cloudops/internal/forecast"
	"github.com/pratik-mahalle/cloudops/internal/pkg/logger"
	"github.com/pratik-mahalle/cloudops/internal/pkg/validator"
	"github.com/pratik-mahalle/cloudops/internal/repository/postgres"
	"github.com/pratik-mahalle/cloudops/internal/services"
	"github.com/pratik-mahalle/cloudops/internal/testutil"
	"github.com/pratik-mahalle/cloudops/internal/worker"
	"github.com/pratik-mahalle/cloudops/pkg/client"
)

const (
	testAPIKey  = "integration-key"
	testAccount = "123456789012"
)

// stack is the full API over an in-memory SQLite store, reached through the
// Go client
type stack struct {
	client          *client.Client
	baseURL         string
	db              *postgres.DB
	costCollector   *testutil.MockCostCollector
	metricCollector *testutil.MockMetricCollector
	publisher       *testutil.MockPublisher
	scheduler       *worker.Scheduler
}

func newStack(t *testing.T) *stack {
	t.Helper()

	log := logger.New(logger.Config{Level: "error", Format: "json"})
	db := postgres.Wrap(testutil.NewTestDB(t), "sqlite")

	metricRepo := postgres.NewMetricRepository(db)
	costRepo := postgres.NewCostRepository(db)
	anomalyRepo := postgres.NewAnomalyRepository(db)
	alertRepo := postgres.NewAlertRepository(db)

	s := &stack{
		db: db,
		costCollector: &testutil.MockCostCollector{
			Record: func(accountID string, day time.Time) *cost.DailyRecord {
				return &cost.DailyRecord{
					AccountID: accountID,
					Date:      day.UTC().Format(cost.DateLayout),
					TotalCost: decimal.RequireFromString("42.50"),
					Currency:  cost.DefaultCurrency,
					Breakdown: []cost.ServiceCost{
						{Service: "Amazon EC2", Cost: decimal.RequireFromString("30.00")},
						{Service: "Amazon S3", Cost: decimal.RequireFromString("12.50")},
					},
				}
			},
		},
		metricCollector: &testutil.MockMetricCollector{},
		publisher:       &testutil.MockPublisher{},
	}

	alertService := services.NewAlertService(alertRepo, s.publisher, log)
	anomalyService := services.NewAnomalyService(anomalyRepo, metricRepo, detector.NewAnomalyDetector(), alertService, config.DetectionConfig{
		WindowSize:          24,
		ThresholdMultiplier: 2.5,
		MinDataPoints:       10,
		Lookback:            24 * time.Hour,
		AlertMinSeverity:    anomaly.SeverityHigh,
	}, log)
	costService := services.NewCostService(costRepo, s.costCollector, forecast.NewEngine(), cache.Noop{}, time.Minute, config.ForecastConfig{
		Months:          3,
		BaseMonthlyCost: 3000,
		GrowthFactor:    1.02,
		HistoryDays:     30,
	}, log)
	metricService := services.NewMetricService(metricRepo, s.metricCollector, log)
	insightService := services.NewInsightService(costRepo, metricRepo, nil, cache.Noop{}, time.Hour, log)

	collectorCfg := config.CollectorConfig{AccountID: testAccount, Concurrency: 2}
	expirers := []worker.Expirer{metricRepo.(worker.Expirer), costRepo.(worker.Expirer)}
	s.scheduler = worker.NewScheduler(costService, metricService, anomalyService, expirers, collectorCfg, 24*time.Hour, log)

	val := validator.New()
	h := &router.Handlers{
		Health:  handlers.NewHealthHandler(db.PingContext, nil, log),
		Anomaly: handlers.NewAnomalyHandler(anomalyService, log, val),
		Cost:    handlers.NewCostHandler(costService, log, val),
		Metric:  handlers.NewMetricHandler(metricService, log, val),
		Alert:   handlers.NewAlertHandler(alertService, log, val),
		Insight: handlers.NewInsightHandler(insightService, log),
	}
	cfg := &config.Config{Server: config.ServerConfig{
		APIKey:      testAPIKey,
		FrontendURL: "http://localhost:3000",
	}}

	srv := httptest.NewServer(router.New(cfg, log, h, middleware.NewRateLimiter(1000, 1000)))
	t.Cleanup(srv.Close)

	s.baseURL = srv.URL
	s.client = client.NewClient(client.Config{BaseURL: srv.URL, APIKey: testAPIKey})
	return s
}

// hourlySeries returns n hourly samples ending at the last full hour, all at
// base except the final one
func hourlySeries(n int, base, last float64) []client.Metric {
	end := time.Now().UTC().Truncate(time.Hour)
	samples := make([]client.Metric, n)
	for i := range samples {
		samples[i] = client.Metric{
			MetricType: "CPUUtilization",
			Timestamp:  end.Add(-time.Duration(n-1-i) * time.Hour),
			Value:      base,
			Unit:       "Percent",
			Namespace:  "AWS/EC2",
		}
	}
	samples[n-1].Value = last
	return samples
}
