// @title cloudops API
// @version 1.0
// @description Cloud cost and metrics observability: anomaly detection, cost analytics and forecasting, alerts and insights.
// @BasePath /api/v1
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/pratik-mahalle/cloudops/docs"
	"github.com/pratik-mahalle/cloudops/internal/api/handlers"
	"github.com/pratik-mahalle/cloudops/internal/api/middleware"
	"github.com/pratik-mahalle/cloudops/internal/api/router"
	"github.com/pratik-mahalle/cloudops/internal/cache"
	"github.com/pratik-mahalle/cloudops/internal/config"
	"github.com/pratik-mahalle/cloudops/internal/detector"
	"github.com/pratik-mahalle/cloudops/internal/domain/alert"
	"github.com/pratik-mahalle/cloudops/internal/domain/insight"
	"github.com/pratik-mahalle/cloudops/internal/forecast"
	"github.com/pratik-mahalle/cloudops/internal/pkg/logger"
	"github.com/pratik-mahalle/cloudops/internal/pkg/validator"
	"github.com/pratik-mahalle/cloudops/internal/providers"
	"github.com/pratik-mahalle/cloudops/internal/services"
	"github.com/pratik-mahalle/cloudops/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.OutputPath,
	})

	if err := run(cfg, log); err != nil {
		log.ErrorWithErr(err, "Server exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	awsCfg, err := providers.LoadAWSConfig(ctx, cfg.AWS)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	st, err := openStore(ctx, cfg, awsCfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	c, err := cache.New(cfg.Redis)
	if err != nil {
		log.WarnWithErr(err, "Redis unavailable, caching disabled")
		c = cache.Noop{}
	}
	defer c.Close()

	var publisher alert.Publisher
	if cfg.AWS.AlertsTopicARN != "" {
		publisher = providers.NewSNSPublisher(awsCfg, cfg.AWS.AlertsTopicARN)
	}

	var completer insight.Completer
	if oc := providers.NewOpenAICompleter(cfg.Insights); oc != nil {
		completer = oc
	} else {
		log.Info("OPENAI_API_KEY not set, insights use the static fallback")
	}

	costCollector := providers.NewCostExplorerCollector(awsCfg, cfg.Collector.UseMockData, log)
	metricCollector := providers.NewCloudWatchCollector(awsCfg, cfg.Collector.UseMockData, log)

	alertService := services.NewAlertService(st.alerts, publisher, log)
	anomalyService := services.NewAnomalyService(st.anomalies, st.metrics, detector.NewAnomalyDetector(), alertService, cfg.Detection, log)
	costService := services.NewCostService(st.costs, costCollector, forecast.NewEngine(), c, cfg.Redis.TTL, cfg.Forecast, log)
	metricService := services.NewMetricService(st.metrics, metricCollector, log)
	insightService := services.NewInsightService(st.costs, st.metrics, completer, c, time.Hour, log)

	val := validator.New()
	var cacheCheck handlers.Check
	if cfg.Redis.Enabled {
		cacheCheck = c.Ping
	}
	h := &router.Handlers{
		Health:  handlers.NewHealthHandler(st.ping, cacheCheck, log),
		Anomaly: handlers.NewAnomalyHandler(anomalyService, log, val),
		Cost:    handlers.NewCostHandler(costService, log, val),
		Metric:  handlers.NewMetricHandler(metricService, log, val),
		Alert:   handlers.NewAlertHandler(alertService, log, val),
		Insight: handlers.NewInsightHandler(insightService, log),
	}

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)
	go limiter.RunCleanup(ctx, time.Minute)

	if cfg.Collector.Enabled {
		scheduler := worker.NewScheduler(costService, metricService, anomalyService, st.expirers, cfg.Collector, cfg.Detection.Lookback, log)
		if err := scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer scheduler.Stop()
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.New(cfg, log, h, limiter),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(map[string]interface{}{
			"addr":        srv.Addr,
			"store":       cfg.Database.Driver,
			"environment": cfg.Server.Environment,
		}).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("Server stopped")
	return nil
}
