package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/pratik-mahalle/cloudops/internal/config"
	"github.com/pratik-mahalle/cloudops/internal/domain/anomaly"
	"github.com/pratik-mahalle/cloudops/internal/domain/cost"
	"github.com/pratik-mahalle/cloudops/internal/domain/metric"
	"github.com/pratik-mahalle/cloudops/internal/pkg/logger"
)

// jobTimeout bounds a single scheduled run
const jobTimeout = 5 * time.Minute

// Expirer is implemented by stores that purge rows past their retention
type Expirer interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Scheduler runs cost collection, metric collection, anomaly detection and
// retention on cron schedules for one account
type Scheduler struct {
	costs     cost.Service
	metrics   metric.Service
	anomalies anomaly.Service
	expirers  []Expirer
	cfg       config.CollectorConfig
	lookback  time.Duration
	logger    *logger.Logger
	now       func() time.Time

	mu        sync.Mutex
	cron      *cron.Cron
	isRunning bool
}

// NewScheduler creates a new scheduler. expirers may be empty.
func NewScheduler(
	costs cost.Service,
	metrics metric.Service,
	anomalies anomaly.Service,
	expirers []Expirer,
	cfg config.CollectorConfig,
	lookback time.Duration,
	log *logger.Logger,
) *Scheduler {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Scheduler{
		costs:     costs,
		metrics:   metrics,
		anomalies: anomalies,
		expirers:  expirers,
		cfg:       cfg,
		lookback:  lookback,
		logger:    log.WithComponent("scheduler"),
		now:       time.Now,
	}
}

// Start registers the jobs and starts the cron runner
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	c := cron.New()
	jobs := []struct {
		name     string
		schedule string
		run      func(ctx context.Context) error
	}{
		{"cost-sync", s.cfg.CostSchedule, s.RunCostSync},
		{"metric-collect", s.cfg.MetricSchedule, s.RunMetricCollection},
		{"anomaly-detect", s.cfg.DetectSchedule, s.RunDetection},
		{"retention", s.cfg.RetentionSchedule, s.RunRetention},
	}

	for _, j := range jobs {
		if j.schedule == "" {
			continue
		}
		j := j
		if _, err := c.AddFunc(j.schedule, func() { s.execute(j.name, j.run) }); err != nil {
			return fmt.Errorf("invalid %s schedule %q: %w", j.name, j.schedule, err)
		}
		s.logger.WithFields(map[string]interface{}{
			"job":      j.name,
			"schedule": j.schedule,
		}).Info("Job scheduled")
	}

	c.Start()
	s.cron = c
	s.isRunning = true

	s.logger.WithFields(map[string]interface{}{
		"account_id": s.cfg.AccountID,
	}).Info("Scheduler started")
	return nil
}

// Stop stops the cron runner and waits for running jobs to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}
	<-s.cron.Stop().Done()
	s.isRunning = false
	s.logger.Info("Scheduler stopped")
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

func (s *Scheduler) execute(name string, run func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	log := s.logger.WithFields(map[string]interface{}{"job": name})
	if err := run(ctx); err != nil {
		log.ErrorWithErr(err, "Scheduled job failed")
		return
	}
	log.Debugf("Scheduled job finished in %s", time.Since(start))
}

// RunCostSync collects yesterday's costs
func (s *Scheduler) RunCostSync(ctx context.Context) error {
	day := s.now().UTC().AddDate(0, 0, -1)
	rec, err := s.costs.SyncCosts(ctx, s.cfg.AccountID, day)
	if err != nil {
		return err
	}
	s.logger.WithFields(map[string]interface{}{
		"date":       rec.Date,
		"total_cost": rec.TotalCost.StringFixed(2),
	}).Info("Collected daily costs")
	return nil
}

// RunMetricCollection pulls the latest CloudWatch samples
func (s *Scheduler) RunMetricCollection(ctx context.Context) error {
	collected, err := s.metrics.Collect(ctx, s.cfg.AccountID)
	if err != nil {
		return err
	}
	s.logger.WithFields(map[string]interface{}{
		"samples": len(collected),
	}).Debug("Collected metrics")
	return nil
}

// RunDetection runs detection over every metric type with stored samples,
// at most cfg.Concurrency at a time. A failing metric does not stop the
// others; failures are joined. Once ctx is done no further metric starts.
func (s *Scheduler) RunDetection(ctx context.Context) error {
	types, err := s.metrics.ListTypes(ctx, s.cfg.AccountID)
	if err != nil {
		return err
	}

	var (
		mu       sync.Mutex
		errs     []error
		detected int
	)
	record := func(n int, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			errs = append(errs, err)
			return
		}
		detected += n
	}

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for _, metricType := range types {
		if err := ctx.Err(); err != nil {
			record(0, err)
			break
		}
		metricType := metricType
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				record(0, fmt.Errorf("%s: %w", metricType, err))
				return nil
			}
			result, err := s.anomalies.DetectForMetric(ctx, s.cfg.AccountID, metricType, s.lookback)
			if err != nil {
				record(0, fmt.Errorf("%s: %w", metricType, err))
				return nil
			}
			record(len(result.Anomalies), nil)
			return nil
		})
	}
	_ = g.Wait()

	s.logger.WithFields(map[string]interface{}{
		"metric_types": len(types),
		"anomalies":    detected,
		"failures":     len(errs),
	}).Info("Detection run finished")
	return errors.Join(errs...)
}

// RunRetention purges expired rows from stores that need it
func (s *Scheduler) RunRetention(ctx context.Context) error {
	now := s.now().UTC()
	var errs []error
	var total int64
	for _, e := range s.expirers {
		n, err := e.DeleteExpired(ctx, now)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		total += n
	}
	if total > 0 {
		s.logger.WithFields(map[string]interface{}{"deleted": total}).Info("Purged expired records")
	}
	return errors.Join(errs...)
}
