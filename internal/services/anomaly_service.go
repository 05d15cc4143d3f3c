package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pratik-mahalle/cloudops/internal/config"
	"github.com/pratik-mahalle/cloudops/internal/detector"
	"github.com/pratik-mahalle/cloudops/internal/domain/alert"
	"github.com/pratik-mahalle/cloudops/internal/domain/anomaly"
	"github.com/pratik-mahalle/cloudops/internal/domain/metric"
	"github.com/pratik-mahalle/cloudops/internal/pkg/logger"
	"github.com/pratik-mahalle/cloudops/internal/pkg/metrics"
)

// AnomalyService implements anomaly.Service
type AnomalyService struct {
	repo         anomaly.Repository
	metricRepo   metric.Repository
	detector     *detector.AnomalyDetector
	alerts       alert.Service
	defaults     detector.Options
	lookback     time.Duration
	alertMinimum string
	logger       *logger.Logger
	now          func() time.Time
}

// NewAnomalyService creates a new anomaly service. alerts may be nil to
// disable alerting on detections.
func NewAnomalyService(
	repo anomaly.Repository,
	metricRepo metric.Repository,
	det *detector.AnomalyDetector,
	alerts alert.Service,
	cfg config.DetectionConfig,
	log *logger.Logger,
) *AnomalyService {
	lookback := cfg.Lookback
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}
	minimum := cfg.AlertMinSeverity
	if anomaly.SeverityRank(minimum) == 0 {
		minimum = anomaly.SeverityHigh
	}
	return &AnomalyService{
		repo:       repo,
		metricRepo: metricRepo,
		detector:   det,
		alerts:     alerts,
		defaults: detector.Options{
			WindowSize:          cfg.WindowSize,
			ThresholdMultiplier: cfg.ThresholdMultiplier,
			MinDataPoints:       cfg.MinDataPoints,
		},
		lookback:     lookback,
		alertMinimum: minimum,
		logger:       log.WithComponent("anomaly-service"),
		now:          time.Now,
	}
}

// Detect runs the detector over req.Samples and stores the anomalies found.
// A storage failure is reported on the result instead of as an error.
func (s *AnomalyService) Detect(ctx context.Context, req anomaly.DetectRequest) (*anomaly.DetectionResult, error) {
	opts := s.defaults
	if req.WindowSize != 0 {
		opts.WindowSize = req.WindowSize
	}
	if req.ThresholdMultiplier != 0 {
		opts.ThresholdMultiplier = req.ThresholdMultiplier
	}
	if req.MinDataPoints != 0 {
		opts.MinDataPoints = req.MinDataPoints
	}

	start := time.Now()
	result, err := s.detector.Detect(req.AccountID, req.MetricType, req.Samples, opts)
	if err != nil {
		metrics.RecordDetection(req.MetricType, "invalid", nil, time.Since(start))
		return nil, err
	}
	metrics.RecordDetection(req.MetricType, detectionOutcome(result, opts), countBySeverity(result.Anomalies), time.Since(start))

	log := s.logger.WithFields(map[string]interface{}{
		"account_id":  req.AccountID,
		"metric_type": req.MetricType,
		"data_points": result.Statistics.DataPointsAnalyzed,
		"anomalies":   len(result.Anomalies),
	})

	result.Persisted = true
	if len(result.Anomalies) > 0 {
		if err := s.repo.PutBatch(ctx, result.Anomalies); err != nil {
			log.ErrorWithErr(err, "Failed to store detected anomalies")
			metrics.RecordPersistenceFailure("anomaly")
			result.Persisted = false
			result.PersistenceError = err.Error()
		}
		s.raiseAlert(ctx, result)
	}

	log.Info("Anomaly detection completed")
	return result, nil
}

// DetectForMetric loads the stored samples of one metric over lookback (or
// the configured default when lookback is not positive) and runs Detect.
func (s *AnomalyService) DetectForMetric(ctx context.Context, accountID, metricType string, lookback time.Duration) (*anomaly.DetectionResult, error) {
	if lookback <= 0 {
		lookback = s.lookback
	}
	end := s.now().UTC()

	stored, err := s.metricRepo.Query(ctx, metric.Query{
		AccountID:  accountID,
		MetricType: metricType,
		Start:      end.Add(-lookback),
		End:        end,
		Ascending:  true,
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(stored, func(i, j int) bool {
		return stored[i].Timestamp.Before(stored[j].Timestamp)
	})

	samples := make([]anomaly.Sample, len(stored))
	for i, m := range stored {
		samples[i] = anomaly.Sample{Timestamp: m.Timestamp, Value: m.Value}
	}

	return s.Detect(ctx, anomaly.DetectRequest{
		AccountID:  accountID,
		MetricType: metricType,
		Samples:    samples,
	})
}

// Get retrieves one anomaly
func (s *AnomalyService) Get(ctx context.Context, accountID, id string) (*anomaly.Anomaly, error) {
	return s.repo.Get(ctx, accountID, id)
}

// List retrieves anomalies most recent first
func (s *AnomalyService) List(ctx context.Context, accountID string, filter anomaly.Filter, limit, offset int) ([]*anomaly.Anomaly, int64, error) {
	return s.repo.List(ctx, accountID, filter, limit, offset)
}

// UpdateStatus applies a lifecycle transition
func (s *AnomalyService) UpdateStatus(ctx context.Context, accountID, id, status string) (*anomaly.Anomaly, error) {
	if !anomaly.IsValidStatus(status) {
		return nil, fmt.Errorf("%w: %q", anomaly.ErrInvalidStatus, status)
	}

	a, err := s.repo.Get(ctx, accountID, id)
	if err != nil {
		return nil, err
	}

	previous := a.Status
	if err := a.Transition(status, s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, a); err != nil {
		s.logger.ErrorWithErr(err, "Failed to update anomaly status")
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"anomaly_id": id,
		"account_id": accountID,
		"from":       previous,
		"to":         status,
	}).Info("Anomaly status updated")
	return a, nil
}

// GetSummary counts anomalies of every status by severity
func (s *AnomalyService) GetSummary(ctx context.Context, accountID string) (*anomaly.Summary, error) {
	counts, err := s.repo.CountByStatusAndSeverity(ctx, accountID)
	if err != nil {
		return nil, err
	}

	summary := &anomaly.Summary{
		AccountID:   accountID,
		GeneratedAt: s.now().UTC(),
	}
	for status, bySeverity := range counts {
		for severity, n := range bySeverity {
			summary.TotalAnomalies += n
			if status == anomaly.StatusOpen {
				summary.OpenAnomalies += n
			}
			switch severity {
			case anomaly.SeverityCritical:
				summary.CriticalCount += n
			case anomaly.SeverityHigh:
				summary.HighCount += n
			case anomaly.SeverityMedium:
				summary.MediumCount += n
			case anomaly.SeverityLow:
				summary.LowCount += n
			}
		}
	}
	return summary, nil
}

// raiseAlert sends one alert per detection run for the anomalies at or above
// the configured severity. Alert failures are logged only.
func (s *AnomalyService) raiseAlert(ctx context.Context, result *anomaly.DetectionResult) {
	if s.alerts == nil {
		return
	}

	minRank := anomaly.SeverityRank(s.alertMinimum)
	var worst *anomaly.Anomaly
	ids := []string{}
	for _, a := range result.Anomalies {
		if anomaly.SeverityRank(a.Severity) < minRank {
			continue
		}
		ids = append(ids, a.ID)
		if worst == nil || a.Deviation > worst.Deviation {
			worst = a
		}
	}
	if worst == nil {
		return
	}

	_, err := s.alerts.Send(ctx, alert.SendInput{
		AccountID: result.AccountID,
		Type:      alert.TypeAnomaly,
		Title:     fmt.Sprintf("%s anomaly detected", result.MetricType),
		Message:   worst.Description,
		Severity:  alertSeverity(worst.Severity),
		Metadata: map[string]interface{}{
			"metricType":   result.MetricType,
			"anomalyIds":   ids,
			"anomalyCount": len(ids),
			"maxDeviation": worst.Deviation,
		},
	})
	if err != nil {
		s.logger.WarnWithErr(err, "Failed to raise anomaly alert")
	}
}

func alertSeverity(severity string) string {
	switch severity {
	case anomaly.SeverityCritical:
		return alert.SeverityCritical
	case anomaly.SeverityHigh:
		return alert.SeverityError
	case anomaly.SeverityMedium:
		return alert.SeverityWarning
	default:
		return alert.SeverityInfo
	}
}

func detectionOutcome(r *anomaly.DetectionResult, opts detector.Options) string {
	minPoints := opts.MinDataPoints
	if minPoints == 0 {
		minPoints = detector.DefaultMinDataPoints
	}
	switch {
	case r.AnomalyDetected:
		return "anomalies"
	case r.Statistics.DataPointsAnalyzed < minPoints:
		return "insufficient_data"
	default:
		return "clean"
	}
}

func countBySeverity(anomalies []*anomaly.Anomaly) map[string]int {
	counts := map[string]int{}
	for _, a := range anomalies {
		counts[a.Severity]++
	}
	return counts
}
