package alert

import "time"

// Alert is a notification raised for an account
type Alert struct {
	ID             string                 `json:"id"`
	AccountID      string                 `json:"accountId"`
	Type           string                 `json:"type"`
	Title          string                 `json:"title"`
	Message        string                 `json:"message"`
	Severity       string                 `json:"severity"`
	Status         string                 `json:"status"`
	CreatedAt      time.Time              `json:"createdAt"`
	AcknowledgedAt *time.Time             `json:"acknowledgedAt,omitempty"`
	ResolvedAt     *time.Time             `json:"resolvedAt,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// Alert types
const (
	TypeAnomaly        = "anomaly"
	TypeBudget         = "budget"
	TypeThreshold      = "threshold"
	TypeRecommendation = "recommendation"
)

// Alert severity levels
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Alert status
const (
	StatusActive       = "active"
	StatusAcknowledged = "acknowledged"
	StatusResolved     = "resolved"
)

// IsValidStatus reports whether status is an alert status
func IsValidStatus(status string) bool {
	switch status {
	case StatusActive, StatusAcknowledged, StatusResolved:
		return true
	}
	return false
}

// Filter contains alert filtering options
type Filter struct {
	Type     string
	Severity string
	Status   string
}
