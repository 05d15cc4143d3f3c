package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pratik-mahalle/cloudops/internal/cache"
	"github.com/pratik-mahalle/cloudops/internal/config"
	"github.com/pratik-mahalle/cloudops/internal/domain/cost"
	"github.com/pratik-mahalle/cloudops/internal/forecast"
	"github.com/pratik-mahalle/cloudops/internal/pkg/errors"
	"github.com/pratik-mahalle/cloudops/internal/pkg/logger"
	"github.com/pratik-mahalle/cloudops/internal/pkg/metrics"
)

const (
	oneDay             = 24 * time.Hour
	defaultTopServices = 5
	defaultTopDays     = 30
	periodCustom       = "custom"
	costSourceName     = "AWS Cost Explorer"
)

// CostServiceImpl implements cost.Service
type CostServiceImpl struct {
	repo      cost.Repository
	collector cost.Collector
	engine    *forecast.Engine
	cache     cache.Cache
	cacheTTL  time.Duration
	cfg       config.ForecastConfig
	logger    *logger.Logger
	now       func() time.Time
}

// NewCostService creates a new cost service. collector may be nil when
// costs are only recorded through the API.
func NewCostService(
	repo cost.Repository,
	collector cost.Collector,
	engine *forecast.Engine,
	c cache.Cache,
	cacheTTL time.Duration,
	cfg config.ForecastConfig,
	log *logger.Logger,
) *CostServiceImpl {
	if c == nil {
		c = cache.Noop{}
	}
	return &CostServiceImpl{
		repo:      repo,
		collector: collector,
		engine:    engine,
		cache:     c,
		cacheTTL:  cacheTTL,
		cfg:       cfg,
		logger:    log.WithComponent("cost-service"),
		now:       time.Now,
	}
}

// SyncCosts collects one day of costs from the provider and stores it
func (s *CostServiceImpl) SyncCosts(ctx context.Context, accountID string, date time.Time) (*cost.DailyRecord, error) {
	if s.collector == nil {
		return nil, errors.ServiceUnavailable("cost collection is not configured")
	}

	record, err := s.collector.FetchDailyCosts(ctx, accountID, date)
	if err != nil {
		return nil, errors.ProviderAPIError(costSourceName, err)
	}
	if err := s.RecordDaily(ctx, record); err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"account_id": accountID,
		"date":       record.Date,
		"total_cost": record.TotalCost.String(),
		"services":   len(record.Breakdown),
	}).Info("Cost collection completed")
	return record, nil
}

// RecordDaily stores a daily record, replacing any record for the same day
func (s *CostServiceImpl) RecordDaily(ctx context.Context, record *cost.DailyRecord) error {
	if record.AccountID == "" {
		return errors.BadRequest("accountId is required")
	}
	if _, err := record.Day(); err != nil {
		return errors.BadRequest(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", record.Date))
	}
	if record.TotalCost.IsNegative() {
		return errors.BadRequest("totalCost must not be negative")
	}
	if record.Currency == "" {
		record.Currency = cost.DefaultCurrency
	}
	if record.Breakdown == nil {
		record.Breakdown = []cost.ServiceCost{}
	}

	if err := s.repo.PutDaily(ctx, record); err != nil {
		s.logger.ErrorWithErr(err, "Failed to store daily cost record")
		return err
	}
	s.invalidate(ctx, record.AccountID)
	return nil
}

// GetDailyCosts returns the daily records in [startDate, endDate] in date order
func (s *CostServiceImpl) GetDailyCosts(ctx context.Context, accountID string, startDate, endDate time.Time) ([]*cost.DailyRecord, error) {
	if endDate.Before(startDate) {
		return nil, errors.BadRequest("endDate must not be before startDate")
	}
	records, err := s.repo.QueryDaily(ctx, accountID, startDate.UTC().Format(cost.DateLayout), endDate.UTC().Format(cost.DateLayout))
	if err != nil {
		return nil, err
	}
	sortByDate(records)
	return records, nil
}

// GetTrend compares the last week or month of costs, ending today, with the
// period before it
func (s *CostServiceImpl) GetTrend(ctx context.Context, accountID, period string) (*cost.Trend, error) {
	var days int
	switch period {
	case cost.PeriodWeek:
		days = 7
	case cost.PeriodMonth:
		days = 30
	default:
		return nil, errors.BadRequest(fmt.Sprintf("invalid period %q, expected week or month", period))
	}

	key := cache.Key("trend", accountID, period, s.today().Format(cost.DateLayout))
	var cached cost.Trend
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}

	current, previous, err := s.windowTotals(ctx, accountID, days)
	if err != nil {
		return nil, err
	}

	trend, err := s.engine.Trend(accountID, period, current, previous)
	if err != nil {
		return nil, errors.InvalidInput(err)
	}

	if err := s.cache.Set(ctx, key, trend, s.cacheTTL); err != nil {
		s.logger.WarnWithErr(err, "Failed to cache cost trend")
	}
	return trend, nil
}

// GetTopServices ranks services by their cost over the last days days
func (s *CostServiceImpl) GetTopServices(ctx context.Context, accountID string, days, limit int) ([]cost.ServiceSummary, error) {
	if days <= 0 {
		days = defaultTopDays
	}
	if limit <= 0 {
		limit = defaultTopServices
	}

	end := s.today()
	start := end.Add(-time.Duration(days-1) * oneDay)
	records, err := s.GetDailyCosts(ctx, accountID, start.Add(-time.Duration(days)*oneDay), end)
	if err != nil {
		return nil, err
	}

	current, previous := splitAt(records, start)
	return topServices(current, previous, limit), nil
}

// Analyze summarises the records in the requested range. Average daily cost
// is taken over the days that have a record.
func (s *CostServiceImpl) Analyze(ctx context.Context, req cost.AnalysisRequest) (*cost.Analysis, error) {
	start := req.StartDate.UTC().Truncate(oneDay)
	end := req.EndDate.UTC().Truncate(oneDay)
	if end.Before(start) {
		return nil, errors.BadRequest("endDate must not be before startDate")
	}
	span := int(end.Sub(start)/oneDay) + 1

	records, err := s.GetDailyCosts(ctx, req.AccountID, start.Add(-time.Duration(span)*oneDay), end)
	if err != nil {
		return nil, err
	}
	current, previous := splitAt(records, start)

	total := sumTotals(current)
	analysis := &cost.Analysis{
		AccountID:   req.AccountID,
		StartDate:   start.Format(cost.DateLayout),
		EndDate:     end.Format(cost.DateLayout),
		TotalCost:   total.Round(2).InexactFloat64(),
		TopServices: topServices(current, previous, defaultTopServices),
	}
	if len(current) > 0 {
		analysis.AverageDailyCost = total.Div(decimal.NewFromInt(int64(len(current)))).Round(2).InexactFloat64()
	}

	trend, err := s.engine.Trend(req.AccountID, periodCustom, total.InexactFloat64(), sumTotals(previous).InexactFloat64())
	if err != nil {
		return nil, errors.InvalidInput(err)
	}
	analysis.Trend = trend

	if req.IncludeForecast {
		f, err := s.engine.ForecastOne(req.AccountID, dailyTotals(current))
		if err != nil {
			return nil, errors.InvalidInput(err)
		}
		analysis.Forecast = f
	}
	return analysis, nil
}

// ForecastFromHistory projects the next month from caller-supplied daily
// totals and stores the forecast
func (s *CostServiceImpl) ForecastFromHistory(ctx context.Context, accountID string, dailyCosts []float64) (*cost.ForecastResult, error) {
	f, err := s.engine.ForecastOne(accountID, dailyCosts)
	if err != nil {
		return nil, err
	}
	metrics.RecordForecasts("single", 1)
	return s.persistForecasts(ctx, []*cost.Forecast{f}), nil
}

// ForecastFromStored projects the next month from the stored totals of the
// last days days
func (s *CostServiceImpl) ForecastFromStored(ctx context.Context, accountID string, days int) (*cost.ForecastResult, error) {
	if days <= 0 {
		days = s.cfg.HistoryDays
	}
	if days <= 0 {
		days = defaultTopDays
	}

	end := s.today()
	records, err := s.GetDailyCosts(ctx, accountID, end.Add(-time.Duration(days-1)*oneDay), end)
	if err != nil {
		return nil, err
	}
	return s.ForecastFromHistory(ctx, accountID, dailyTotals(records))
}

// ForecastSeries extrapolates monthly costs at a fixed growth rate. Nil
// fields of req take the configured defaults.
func (s *CostServiceImpl) ForecastSeries(ctx context.Context, req cost.SeriesRequest) (*cost.ForecastResult, error) {
	months, base, growth := s.cfg.Months, s.cfg.BaseMonthlyCost, s.cfg.GrowthFactor
	if req.Months != nil {
		months = *req.Months
	}
	if req.BaseMonthlyCost != nil {
		base = *req.BaseMonthlyCost
	}
	if req.GrowthFactor != nil {
		growth = *req.GrowthFactor
	}

	key := cache.Key("forecast", req.AccountID, s.today().Format("2006-01"),
		strconv.Itoa(months),
		strconv.FormatFloat(base, 'f', -1, 64),
		strconv.FormatFloat(growth, 'f', -1, 64))
	var cached cost.ForecastResult
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}

	forecasts, err := s.engine.ForecastSeries(req.AccountID, months, base, growth)
	if err != nil {
		return nil, err
	}
	metrics.RecordForecasts("series", len(forecasts))

	result := s.persistForecasts(ctx, forecasts)
	if result.Persisted {
		if err := s.cache.Set(ctx, key, result, s.cacheTTL); err != nil {
			s.logger.WarnWithErr(err, "Failed to cache forecast series")
		}
	}
	return result, nil
}

// ListForecasts returns stored forecasts in forecast date order
func (s *CostServiceImpl) ListForecasts(ctx context.Context, accountID string, limit int) ([]*cost.Forecast, error) {
	return s.repo.ListForecasts(ctx, accountID, limit)
}

func (s *CostServiceImpl) persistForecasts(ctx context.Context, forecasts []*cost.Forecast) *cost.ForecastResult {
	result := &cost.ForecastResult{Forecasts: forecasts, Persisted: true}
	if err := s.repo.PutForecasts(ctx, forecasts); err != nil {
		s.logger.ErrorWithErr(err, "Failed to store forecasts")
		metrics.RecordPersistenceFailure("forecast")
		result.Persisted = false
		result.PersistenceError = err.Error()
	}
	return result
}

// windowTotals sums the days-long window ending today and the one before it
func (s *CostServiceImpl) windowTotals(ctx context.Context, accountID string, days int) (float64, float64, error) {
	end := s.today()
	start := end.Add(-time.Duration(days-1) * oneDay)
	records, err := s.GetDailyCosts(ctx, accountID, start.Add(-time.Duration(days)*oneDay), end)
	if err != nil {
		return 0, 0, err
	}
	current, previous := splitAt(records, start)
	return sumTotals(current).InexactFloat64(), sumTotals(previous).InexactFloat64(), nil
}

func (s *CostServiceImpl) invalidate(ctx context.Context, accountID string) {
	today := s.today().Format(cost.DateLayout)
	err := s.cache.Delete(ctx,
		cache.Key("trend", accountID, cost.PeriodWeek, today),
		cache.Key("trend", accountID, cost.PeriodMonth, today),
	)
	if err != nil {
		s.logger.WarnWithErr(err, "Failed to invalidate cost cache")
	}
}

func (s *CostServiceImpl) today() time.Time {
	return s.now().UTC().Truncate(oneDay)
}

func sortByDate(records []*cost.DailyRecord) {
	sort.SliceStable(records, func(i, j int) bool { return records[i].Date < records[j].Date })
}

// splitAt partitions date-ordered records into those on or after boundary
// and those before it
func splitAt(records []*cost.DailyRecord, boundary time.Time) (current, previous []*cost.DailyRecord) {
	cut := boundary.Format(cost.DateLayout)
	for _, r := range records {
		if r.Date >= cut {
			current = append(current, r)
		} else {
			previous = append(previous, r)
		}
	}
	return current, previous
}

func sumTotals(records []*cost.DailyRecord) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.TotalCost)
	}
	return total
}

func dailyTotals(records []*cost.DailyRecord) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = r.TotalCost.InexactFloat64()
	}
	return out
}

func serviceTotals(records []*cost.DailyRecord) map[string]decimal.Decimal {
	totals := map[string]decimal.Decimal{}
	for _, r := range records {
		for _, sc := range r.Breakdown {
			totals[sc.Service] = totals[sc.Service].Add(sc.Cost)
		}
	}
	return totals
}

func topServices(current, previous []*cost.DailyRecord, limit int) []cost.ServiceSummary {
	now := serviceTotals(current)
	before := serviceTotals(previous)

	grand := decimal.Zero
	for _, v := range now {
		grand = grand.Add(v)
	}

	out := make([]cost.ServiceSummary, 0, len(now))
	for service, total := range now {
		summary := cost.ServiceSummary{
			Service:   service,
			TotalCost: total.Round(2).InexactFloat64(),
		}
		if grand.IsPositive() {
			summary.PercentOfTotal = total.Div(grand).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
		}
		if prev, ok := before[service]; ok && prev.IsPositive() {
			summary.ChangeFromPrevious = total.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
		}
		out = append(out, summary)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalCost != out[j].TotalCost {
			return out[i].TotalCost > out[j].TotalCost
		}
		return out[i].Service < out[j].Service
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
