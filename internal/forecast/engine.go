package forecast

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pratik-mahalle/cloudops/internal/domain/cost"
	"github.com/pratik-mahalle/cloudops/internal/pkg/stats"
)

// Projection constants
const (
	DaysPerMonth        = 30
	MarginFraction      = 0.1
	BaseConfidence      = 0.85
	ConfidenceStep      = 0.05
	StableBandPercent   = 1.0
	DefaultMonths       = 3
	MaxMonths           = 24
	DefaultBaseMonthly  = 3000.0
	DefaultGrowthFactor = 1.02
)

// ErrInvalidInput is returned for non-finite amounts or impossible horizons
var ErrInvalidInput = errors.New("invalid forecast input")

// Engine computes trends and forecasts. It holds no state beyond its clock.
type Engine struct {
	now func() time.Time
}

// NewEngine creates an engine using the wall clock
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// WithClock replaces the clock used for forecast dates and GeneratedAt
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Trend compares current against previous. A previous value of zero yields 0%
// when current is also zero and 100% otherwise. Changes within ±1% are stable.
func (e *Engine) Trend(accountID, period string, current, previous float64) (*cost.Trend, error) {
	if !stats.IsFinite(current) || !stats.IsFinite(previous) {
		return nil, fmt.Errorf("%w: trend amounts must be finite", ErrInvalidInput)
	}

	var change float64
	switch {
	case previous != 0:
		change = (current - previous) / previous * 100
	case current != 0:
		change = 100
	}

	direction := cost.TrendStable
	switch {
	case math.Abs(change) < StableBandPercent:
	case change > 0:
		direction = cost.TrendUp
	default:
		direction = cost.TrendDown
	}

	return &cost.Trend{
		AccountID:     accountID,
		Period:        period,
		CurrentCost:   round2(current),
		PreviousCost:  round2(previous),
		ChangePercent: round2(change),
		Trend:         direction,
	}, nil
}

// ForecastOne projects the next 30 days from a history of daily totals.
// An empty history produces an all-zero forecast with zero confidence.
func (e *Engine) ForecastOne(accountID string, dailyCosts []float64) (*cost.Forecast, error) {
	if !stats.AllFinite(dailyCosts) {
		return nil, fmt.Errorf("%w: daily costs must be finite", ErrInvalidInput)
	}

	now := e.now().UTC()
	f := &cost.Forecast{
		AccountID:    accountID,
		ForecastDate: monthStart(now, 1),
		GeneratedAt:  now,
	}
	if len(dailyCosts) == 0 {
		return f, nil
	}

	predicted := stats.Mean(dailyCosts) * DaysPerMonth
	margin := stats.StandardDeviation(dailyCosts) * DaysPerMonth * MarginFraction

	f.PredictedCost = round2(predicted)
	f.LowerBound = round2(predicted - margin)
	f.UpperBound = round2(predicted + margin)
	f.ConfidenceLevel = BaseConfidence
	return f, nil
}

// ForecastSeries extrapolates baseMonthly at a fixed growth rate for the next
// months. Historical data is not consulted. Confidence drops by 0.05 per
// month and never goes below zero.
func (e *Engine) ForecastSeries(accountID string, months int, baseMonthly, growth float64) ([]*cost.Forecast, error) {
	if months < 1 || months > MaxMonths {
		return nil, fmt.Errorf("%w: months must be between 1 and %d, got %d", ErrInvalidInput, MaxMonths, months)
	}
	if !stats.IsFinite(baseMonthly) || baseMonthly < 0 {
		return nil, fmt.Errorf("%w: base monthly cost must be a non-negative number", ErrInvalidInput)
	}
	if !stats.IsFinite(growth) || growth <= 0 {
		return nil, fmt.Errorf("%w: growth factor must be a positive number", ErrInvalidInput)
	}

	now := e.now().UTC()
	forecasts := make([]*cost.Forecast, 0, months)
	for i := 1; i <= months; i++ {
		predicted := baseMonthly * math.Pow(growth, float64(i))
		margin := predicted * MarginFraction

		forecasts = append(forecasts, &cost.Forecast{
			AccountID:       accountID,
			ForecastDate:    monthStart(now, i),
			PredictedCost:   round2(predicted),
			LowerBound:      round2(predicted - margin),
			UpperBound:      round2(predicted + margin),
			ConfidenceLevel: confidenceAt(i),
			GeneratedAt:     now,
		})
	}
	return forecasts, nil
}

func confidenceAt(step int) float64 {
	c := decimal.NewFromFloat(BaseConfidence).
		Sub(decimal.NewFromFloat(ConfidenceStep).Mul(decimal.NewFromInt(int64(step))))
	if c.IsNegative() {
		return 0
	}
	return c.InexactFloat64()
}

// monthStart returns the first day of the month offset months after t
func monthStart(t time.Time, offset int) string {
	return time.Date(t.Year(), t.Month()+time.Month(offset), 1, 0, 0, 0, 0, time.UTC).Format(cost.DateLayout)
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
