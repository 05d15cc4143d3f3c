package metric

import "time"

// Metric is one stored sample of an account's metric series
type Metric struct {
	AccountID  string            `json:"accountId"`
	MetricType string            `json:"metricType"`
	Timestamp  time.Time         `json:"timestamp"`
	Value      float64           `json:"value"`
	Unit       string            `json:"unit"`
	Namespace  string            `json:"namespace,omitempty"`
	Dimensions map[string]string `json:"dimensions,omitempty"`
	ExpiresAt  time.Time         `json:"expiresAt"`
}

// Retention is how long stored samples are kept
const Retention = 90 * 24 * time.Hour

// Metric types
const (
	TypeCPUUtilization      = "CPUUtilization"
	TypeMemoryUtilization   = "MemoryUtilization"
	TypeNetworkIn           = "NetworkIn"
	TypeNetworkOut          = "NetworkOut"
	TypeDiskReadOps         = "DiskReadOps"
	TypeDiskWriteOps        = "DiskWriteOps"
	TypeDatabaseConnections = "DatabaseConnections"
	TypeLambdaInvocations   = "LambdaInvocations"
	TypeLambdaDuration      = "LambdaDuration"
	TypeLambdaErrors        = "LambdaErrors"
)

// Units
const (
	UnitPercent        = "Percent"
	UnitBytes          = "Bytes"
	UnitCount          = "Count"
	UnitMilliseconds   = "Milliseconds"
	UnitSeconds        = "Seconds"
	UnitBytesPerSecond = "BytesPerSecond"
)

// KnownTypes lists the collected metric types
var KnownTypes = []string{
	TypeCPUUtilization,
	TypeMemoryUtilization,
	TypeNetworkIn,
	TypeNetworkOut,
	TypeDiskReadOps,
	TypeDiskWriteOps,
	TypeDatabaseConnections,
	TypeLambdaInvocations,
	TypeLambdaDuration,
	TypeLambdaErrors,
}

// IsKnownType reports whether t is one of KnownTypes
func IsKnownType(t string) bool {
	for _, k := range KnownTypes {
		if k == t {
			return true
		}
	}
	return false
}

// Query selects a range of samples. Zero times leave that end open and a
// zero Limit means no limit.
type Query struct {
	AccountID  string
	MetricType string
	Start      time.Time
	End        time.Time
	Limit      int
	Ascending  bool
}
