package detector

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/cloudops/internal/domain/anomaly"
)

var baseTime = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func series(values ...float64) []anomaly.Sample {
	samples := make([]anomaly.Sample, len(values))
	for i, v := range values {
		samples[i] = anomaly.Sample{Timestamp: baseTime.Add(time.Duration(i) * time.Hour), Value: v}
	}
	return samples
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func newTestDetector() *AnomalyDetector {
	n := 0
	return NewAnomalyDetector().
		WithClock(func() time.Time { return baseTime.Add(48 * time.Hour) }).
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("anomaly-%d", n)
		})
}

func TestDetect_InsufficientData(t *testing.T) {
	d := newTestDetector()

	for n := 0; n < DefaultMinDataPoints; n++ {
		t.Run(fmt.Sprintf("%d samples", n), func(t *testing.T) {
			result, err := d.Detect("acct", "CPUUtilization", series(repeat(1000, n)...), DefaultOptions())
			require.NoError(t, err)
			assert.False(t, result.AnomalyDetected)
			assert.Empty(t, result.Anomalies)
			assert.Equal(t, n, result.Statistics.DataPointsAnalyzed)
			assert.Zero(t, result.Statistics.Mean)
			assert.Zero(t, result.Statistics.StandardDeviation)
			assert.Zero(t, result.Statistics.UpperThreshold)
			assert.Zero(t, result.Statistics.LowerThreshold)
		})
	}
}

func TestDetect_ConstantSeries(t *testing.T) {
	d := newTestDetector()

	for _, multiplier := range []float64{0.1, 1, 2.5, 10} {
		t.Run(fmt.Sprintf("multiplier %.1f", multiplier), func(t *testing.T) {
			opts := DefaultOptions()
			opts.ThresholdMultiplier = multiplier

			result, err := d.Detect("acct", "NetworkIn", series(repeat(42, 30)...), opts)
			require.NoError(t, err)
			assert.False(t, result.AnomalyDetected)
			assert.Empty(t, result.Anomalies)
			assert.Zero(t, result.Statistics.StandardDeviation)
			assert.Equal(t, 42.0, result.Statistics.Mean)
		})
	}
}

func TestDetect_ConstantSeriesWithInexactValues(t *testing.T) {
	d := newTestDetector()

	for _, v := range []float64{0.1, 0.3} {
		for n := 10; n <= 40; n++ {
			t.Run(fmt.Sprintf("%v x%d", v, n), func(t *testing.T) {
				opts := DefaultOptions()
				opts.ThresholdMultiplier = 0.5

				result, err := d.Detect("acct", "CPUUtilization", series(repeat(v, n)...), opts)
				require.NoError(t, err)
				assert.False(t, result.AnomalyDetected)
				assert.Empty(t, result.Anomalies)
				assert.Zero(t, result.Statistics.StandardDeviation)
				assert.Equal(t, v, result.Statistics.Mean)
				assert.Equal(t, n, result.Statistics.DataPointsAnalyzed)
			})
		}
	}
}

func TestDetect_BoundarySpikeNotFlagged(t *testing.T) {
	d := newTestDetector()
	opts := Options{ThresholdMultiplier: 2.5, MinDataPoints: 5}

	result, err := d.Detect("acct", "CPUUtilization", series(10, 12, 11, 13, 95, 12, 11), opts)
	require.NoError(t, err)

	assert.InDelta(t, 23.43, result.Statistics.Mean, 0.01)
	assert.InDelta(t, 29.23, result.Statistics.StandardDeviation, 0.01)
	assert.InDelta(t, 96.51, result.Statistics.UpperThreshold, 0.01)
	assert.Equal(t, 7, result.Statistics.DataPointsAnalyzed)
	assert.False(t, result.AnomalyDetected)
	assert.Empty(t, result.Anomalies)
}

func TestDetect_SpikeAbove(t *testing.T) {
	d := newTestDetector()
	values := append(repeat(10, 19), 100)

	result, err := d.Detect("acct-1", "CPUUtilization", series(values...), DefaultOptions())
	require.NoError(t, err)
	require.True(t, result.AnomalyDetected)
	require.Len(t, result.Anomalies, 1)

	a := result.Anomalies[0]
	assert.Equal(t, "anomaly-1", a.ID)
	assert.Equal(t, "acct-1", a.AccountID)
	assert.Equal(t, "CPUUtilization", a.MetricType)
	assert.Equal(t, baseTime.Add(19*time.Hour), a.DetectedAt)
	assert.Equal(t, anomaly.SeverityCritical, a.Severity)
	assert.Equal(t, anomaly.StatusOpen, a.Status)
	assert.Nil(t, a.ResolvedAt)
	assert.Equal(t, 100.0, a.CurrentValue)
	assert.InDelta(t, 14.5, a.ExpectedValue, 1e-9)
	assert.InDelta(t, 4.36, a.Deviation, 0.01)
	assert.Equal(t, "CPUUtilization is 4.4 standard deviations above normal. Current: 100.0, Expected: 14.5", a.Description)
	assert.Equal(t, baseTime.Add(48*time.Hour), result.AnalyzedAt)
}

func TestDetect_DropBelow(t *testing.T) {
	d := newTestDetector()
	values := append(repeat(100, 19), 0)

	result, err := d.Detect("acct-1", "LambdaInvocations", series(values...), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, result.Anomalies, 1)
	assert.Contains(t, result.Anomalies[0].Description, "below normal")
	assert.Less(t, result.Anomalies[0].CurrentValue, result.Statistics.LowerThreshold)
}

func TestDetect_PreservesInputOrder(t *testing.T) {
	d := newTestDetector()
	values := repeat(50, 40)
	values[5] = 500
	values[20] = -400
	values[33] = 480

	result, err := d.Detect("acct", "DiskReadOps", series(values...), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, result.Anomalies, 3)

	for i := 1; i < len(result.Anomalies); i++ {
		assert.True(t, result.Anomalies[i-1].DetectedAt.Before(result.Anomalies[i].DetectedAt))
	}
	assert.Equal(t, 500.0, result.Anomalies[0].CurrentValue)
	assert.Equal(t, -400.0, result.Anomalies[1].CurrentValue)
	assert.Equal(t, 480.0, result.Anomalies[2].CurrentValue)
}

func TestDetect_StatisticsInvariants(t *testing.T) {
	d := newTestDetector()
	inputs := [][]float64{
		{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		{-5, -3, 0, 2, 8, 13, -21, 34, 1, 1, 2},
		append(repeat(3, 15), 3000),
	}

	for i, values := range inputs {
		t.Run(fmt.Sprintf("input %d", i), func(t *testing.T) {
			result, err := d.Detect("acct", "NetworkOut", series(values...), DefaultOptions())
			require.NoError(t, err)

			s := result.Statistics
			assert.LessOrEqual(t, s.LowerThreshold, s.Mean)
			assert.LessOrEqual(t, s.Mean, s.UpperThreshold)
			for _, a := range result.Anomalies {
				assert.GreaterOrEqual(t, a.Deviation, 0.0)
				assert.True(t, a.CurrentValue > s.UpperThreshold || a.CurrentValue < s.LowerThreshold)
			}
		})
	}
}

func TestDetect_UniqueIDs(t *testing.T) {
	d := NewAnomalyDetector()
	values := repeat(1, 50)
	values[10] = 90
	values[30] = 95

	result, err := d.Detect("acct", "Custom", series(values...), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, result.Anomalies, 2)
	assert.NotEqual(t, result.Anomalies[0].ID, result.Anomalies[1].ID)
	assert.Regexp(t, `^anomaly-[0-9a-f]{32}$`, result.Anomalies[0].ID)
}

func TestDetect_InvalidInput(t *testing.T) {
	d := newTestDetector()

	tests := []struct {
		name   string
		values []float64
		opts   Options
	}{
		{name: "NaN value", values: append(repeat(1, 12), math.NaN()), opts: DefaultOptions()},
		{name: "infinite value", values: []float64{math.Inf(1)}, opts: DefaultOptions()},
		{name: "negative multiplier", values: repeat(1, 12), opts: Options{ThresholdMultiplier: -1}},
		{name: "NaN multiplier", values: repeat(1, 12), opts: Options{ThresholdMultiplier: math.NaN()}},
		{name: "negative window", values: repeat(1, 12), opts: Options{WindowSize: -3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := d.Detect("acct", "CPUUtilization", series(tt.values...), tt.opts)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Nil(t, result)
		})
	}
}

func TestDetect_NegativeWindowMessage(t *testing.T) {
	_, err := newTestDetector().Detect("acct", "CPUUtilization", series(repeat(1, 12)...), Options{WindowSize: -3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "window size must not be negative, got -3")
}

func TestOptions_ZeroFieldsTakeDefaults(t *testing.T) {
	assert.Equal(t, DefaultOptions(), Options{}.withDefaults())

	opts := Options{WindowSize: 6, ThresholdMultiplier: 1.5, MinDataPoints: 3}.withDefaults()
	assert.Equal(t, Options{WindowSize: 6, ThresholdMultiplier: 1.5, MinDataPoints: 3}, opts)
}

func TestClassifySeverity(t *testing.T) {
	tests := []struct {
		deviation float64
		want      string
	}{
		{0, anomaly.SeverityLow},
		{2.49, anomaly.SeverityLow},
		{2.5, anomaly.SeverityMedium},
		{2.99, anomaly.SeverityMedium},
		{3, anomaly.SeverityHigh},
		{3.99, anomaly.SeverityHigh},
		{4, anomaly.SeverityCritical},
		{12, anomaly.SeverityCritical},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%.2f", tt.deviation), func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifySeverity(tt.deviation))
		})
	}
}

func TestClassifySeverity_Monotonic(t *testing.T) {
	prev := anomaly.SeverityRank(ClassifySeverity(0))
	for d := 0.01; d <= 8; d += 0.01 {
		rank := anomaly.SeverityRank(ClassifySeverity(d))
		if rank < prev {
			t.Fatalf("severity decreased at deviation %.2f", d)
		}
		prev = rank
	}
}
