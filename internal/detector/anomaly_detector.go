package detector

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pratik-mahalle/cloudops/internal/domain/anomaly"
	"github.com/pratik-mahalle/cloudops/internal/pkg/stats"
)

// Defaults for a detection run
const (
	DefaultWindowSize          = 24
	DefaultThresholdMultiplier = 2.5
	DefaultMinDataPoints       = 10
)

// Severity cut-offs in standard-deviation units
const (
	criticalDeviation = 4.0
	highDeviation     = 3.0
	mediumDeviation   = 2.5
)

// ErrInvalidInput is returned for series or options the detector cannot evaluate
var ErrInvalidInput = errors.New("invalid detection input")

// Options tunes a detection run. A zero field takes its default, so a
// multiplier or minimum of 0 cannot be requested. WindowSize is carried
// through but the statistics are always computed over the whole series.
type Options struct {
	WindowSize          int
	ThresholdMultiplier float64
	MinDataPoints       int
}

// DefaultOptions returns the standard detection options
func DefaultOptions() Options {
	return Options{
		WindowSize:          DefaultWindowSize,
		ThresholdMultiplier: DefaultThresholdMultiplier,
		MinDataPoints:       DefaultMinDataPoints,
	}
}

// withDefaults fills zero-valued fields
func (o Options) withDefaults() Options {
	if o.WindowSize == 0 {
		o.WindowSize = DefaultWindowSize
	}
	if o.ThresholdMultiplier == 0 {
		o.ThresholdMultiplier = DefaultThresholdMultiplier
	}
	if o.MinDataPoints == 0 {
		o.MinDataPoints = DefaultMinDataPoints
	}
	return o
}

func (o Options) validate() error {
	if o.WindowSize < 0 {
		return fmt.Errorf("%w: window size must not be negative, got %d", ErrInvalidInput, o.WindowSize)
	}
	if !stats.IsFinite(o.ThresholdMultiplier) || o.ThresholdMultiplier < 0 {
		return fmt.Errorf("%w: threshold multiplier must be a non-negative number", ErrInvalidInput)
	}
	if o.MinDataPoints < 0 {
		return fmt.Errorf("%w: min data points must not be negative, got %d", ErrInvalidInput, o.MinDataPoints)
	}
	return nil
}

// AnomalyDetector flags samples outside mean ∓ k·σ of their series
type AnomalyDetector struct {
	now   func() time.Time
	newID func() string
}

// NewAnomalyDetector creates a detector using the wall clock and random ids
func NewAnomalyDetector() *AnomalyDetector {
	return &AnomalyDetector{
		now:   time.Now,
		newID: NewAnomalyID,
	}
}

// WithClock replaces the clock used for AnalyzedAt
func (d *AnomalyDetector) WithClock(now func() time.Time) *AnomalyDetector {
	d.now = now
	return d
}

// WithIDGenerator replaces the anomaly id generator
func (d *AnomalyDetector) WithIDGenerator(newID func() string) *AnomalyDetector {
	d.newID = newID
	return d
}

// NewAnomalyID returns a fresh opaque anomaly id
func NewAnomalyID() string {
	return "anomaly-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Detect evaluates the series as one batch. Samples are expected in
// non-decreasing timestamp order and anomalies are returned in input order.
// Series shorter than MinDataPoints and zero-variance series produce a result
// with no anomalies rather than an error.
func (d *AnomalyDetector) Detect(accountID, metricType string, samples []anomaly.Sample, opts Options) (*anomaly.DetectionResult, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	values := make([]float64, len(samples))
	for i, s := range samples {
		if !stats.IsFinite(s.Value) {
			return nil, fmt.Errorf("%w: non-finite value at index %d", ErrInvalidInput, i)
		}
		values[i] = s.Value
	}

	result := &anomaly.DetectionResult{
		AccountID:  accountID,
		MetricType: metricType,
		Anomalies:  []*anomaly.Anomaly{},
		AnalyzedAt: d.now().UTC(),
	}

	if len(samples) < opts.MinDataPoints {
		result.Statistics = anomaly.Statistics{DataPointsAnalyzed: len(samples)}
		return result, nil
	}

	mean := stats.Mean(values)
	stdDev := stats.StandardDeviation(values)
	lower, upper := stats.Thresholds(mean, stdDev, opts.ThresholdMultiplier)

	result.Statistics = anomaly.Statistics{
		Mean:               mean,
		StandardDeviation:  stdDev,
		UpperThreshold:     upper,
		LowerThreshold:     lower,
		DataPointsAnalyzed: len(samples),
	}

	if stdDev == 0 {
		return result, nil
	}

	for _, s := range samples {
		if s.Value <= upper && s.Value >= lower {
			continue
		}
		deviation := math.Abs(s.Value-mean) / stdDev
		result.Anomalies = append(result.Anomalies, &anomaly.Anomaly{
			ID:            d.newID(),
			AccountID:     accountID,
			MetricType:    metricType,
			DetectedAt:    s.Timestamp.UTC(),
			Severity:      ClassifySeverity(deviation),
			Description:   describe(metricType, s.Value, mean, deviation),
			CurrentValue:  s.Value,
			ExpectedValue: mean,
			Deviation:     deviation,
			Status:        anomaly.StatusOpen,
		})
	}

	result.AnomalyDetected = len(result.Anomalies) > 0
	return result, nil
}

// ClassifySeverity buckets a deviation (σ units) into a severity level
func ClassifySeverity(deviation float64) string {
	switch {
	case deviation >= criticalDeviation:
		return anomaly.SeverityCritical
	case deviation >= highDeviation:
		return anomaly.SeverityHigh
	case deviation >= mediumDeviation:
		return anomaly.SeverityMedium
	default:
		return anomaly.SeverityLow
	}
}

func describe(metricType string, current, expected, deviation float64) string {
	direction := "below"
	if current > expected {
		direction = "above"
	}
	return fmt.Sprintf("%s is %.1f standard deviations %s normal. Current: %.1f, Expected: %.1f",
		metricType, deviation, direction, current, expected)
}
