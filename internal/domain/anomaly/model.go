package anomaly

import (
	"errors"
	"fmt"
	"time"
)

// Anomaly is a single outlier sample flagged by the detector
type Anomaly struct {
	ID            string     `json:"id"`
	AccountID     string     `json:"accountId"`
	MetricType    string     `json:"metricType"`
	DetectedAt    time.Time  `json:"detectedAt"`
	Severity      string     `json:"severity"`
	Description   string     `json:"description"`
	CurrentValue  float64    `json:"currentValue"`
	ExpectedValue float64    `json:"expectedValue"`
	Deviation     float64    `json:"deviation"`
	Status        string     `json:"status"`
	ResolvedAt    *time.Time `json:"resolvedAt,omitempty"`
}

// Severity levels
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
)

// Status
const (
	StatusOpen         = "open"
	StatusAcknowledged = "acknowledged"
	StatusResolved     = "resolved"
	StatusIgnored      = "ignored"
)

// ErrInvalidStatus is returned when a status outside the lifecycle is requested
var ErrInvalidStatus = errors.New("invalid anomaly status")

// ValidStatuses lists the accepted lifecycle states
var ValidStatuses = []string{StatusOpen, StatusAcknowledged, StatusResolved, StatusIgnored}

// IsValidStatus reports whether status is part of the lifecycle
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// SeverityRank orders severities low < medium < high < critical.
// Unknown values rank below low.
func SeverityRank(severity string) int {
	switch severity {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// Transition moves the anomaly to status. Any state may move to any other
// state. ResolvedAt is stamped on entry to resolved and left untouched
// otherwise.
func (a *Anomaly) Transition(status string, now time.Time) error {
	if !IsValidStatus(status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	a.Status = status
	if status == StatusResolved {
		resolved := now.UTC()
		a.ResolvedAt = &resolved
	}
	return nil
}

// Statistics describes the sample distribution behind a detection run
type Statistics struct {
	Mean               float64 `json:"mean"`
	StandardDeviation  float64 `json:"standardDeviation"`
	UpperThreshold     float64 `json:"upperThreshold"`
	LowerThreshold     float64 `json:"lowerThreshold"`
	DataPointsAnalyzed int     `json:"dataPointsAnalyzed"`
}

// DetectionResult is the outcome of one detection run. Persisted is false
// when the anomalies were computed but could not be stored.
type DetectionResult struct {
	AccountID        string     `json:"accountId"`
	MetricType       string     `json:"metricType"`
	AnomalyDetected  bool       `json:"anomalyDetected"`
	Anomalies        []*Anomaly `json:"anomalies"`
	Statistics       Statistics `json:"statistics"`
	AnalyzedAt       time.Time  `json:"analyzedAt"`
	Persisted        bool       `json:"persisted"`
	PersistenceError string     `json:"persistenceError,omitempty"`
}

// Summary aggregates anomaly counts for an account
type Summary struct {
	AccountID      string    `json:"accountId"`
	TotalAnomalies int       `json:"totalAnomalies"`
	OpenAnomalies  int       `json:"openAnomalies"`
	CriticalCount  int       `json:"criticalCount"`
	HighCount      int       `json:"highCount"`
	MediumCount    int       `json:"mediumCount"`
	LowCount       int       `json:"lowCount"`
	GeneratedAt    time.Time `json:"generatedAt"`
}

// Filter contains anomaly filtering options
type Filter struct {
	MetricType string
	Severity   string
	Status     string
}
