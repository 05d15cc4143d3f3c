package handlers

import (
	"net/http"
	"time"

	"github.com/pratik-mahalle/cloudops/internal/api/dto"
	"github.com/pratik-mahalle/cloudops/internal/domain/cost"
	"github.com/pratik-mahalle/cloudops/internal/pkg/errors"
	"github.com/pratik-mahalle/cloudops/internal/pkg/logger"
	"github.com/pratik-mahalle/cloudops/internal/pkg/utils"
	"github.com/pratik-mahalle/cloudops/internal/pkg/validator"
)

// defaultCostRangeDays is the window listed when no dates are given
const defaultCostRangeDays = 30

type CostHandler struct {
	service   cost.Service
	logger    *logger.Logger
	validator *validator.Validator
	now       func() time.Time
}

func NewCostHandler(service cost.Service, log *logger.Logger, val *validator.Validator) *CostHandler {
	return &CostHandler{service: service, logger: log, validator: val, now: time.Now}
}

// List returns daily cost records
// @Summary List daily costs
// @Description Get the daily cost records in an inclusive date range (default: last 30 days)
// @Tags Costs
// @Produce json
// @Param accountId path string true "Account ID"
// @Param startDate query string false "Start date (YYYY-MM-DD)"
// @Param endDate query string false "End date (YYYY-MM-DD)"
// @Success 200 {array} cost.DailyRecord "Daily cost records"
// @Failure 400 {object} utils.ErrorResponse "Invalid date range"
// @Failure 500 {object} utils.ErrorResponse "Internal server error"
// @Security ApiKeyAuth
// @Router /costs/{accountId} [get]
func (h *CostHandler) List(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	end := h.now().UTC().Truncate(24 * time.Hour)
	if v := q.Get("endDate"); v != "" {
		parsed, err := time.Parse(cost.DateLayout, v)
		if err != nil {
			utils.WriteError(w, errors.BadRequest("endDate must be YYYY-MM-DD"))
			return
		}
		end = parsed
	}
	start := end.AddDate(0, 0, -(defaultCostRangeDays - 1))
	if v := q.Get("startDate"); v != "" {
		parsed, err := time.Parse(cost.DateLayout, v)
		if err != nil {
			utils.WriteError(w, errors.BadRequest("startDate must be YYYY-MM-DD"))
			return
		}
		start = parsed
	}

	records, err := h.service.GetDailyCosts(r.Context(), accountID, start, end)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to list daily costs")
		return
	}
	if records == nil {
		records = []*cost.DailyRecord{}
	}

	utils.WriteSuccess(w, http.StatusOK, records)
}

// Record stores one day of costs
// @Summary Record daily costs
// @Description Store the costs of one day. A later record for the same date replaces the earlier one.
// @Tags Costs
// @Accept json
// @Produce json
// @Param accountId path string true "Account ID"
// @Param request body dto.RecordDailyCostRequest true "Daily costs"
// @Success 201 {object} cost.DailyRecord "Stored record"
// @Failure 400 {object} utils.ErrorResponse "Invalid request or validation error"
// @Failure 500 {object} utils.ErrorResponse "Internal server error"
// @Security ApiKeyAuth
// @Router /costs/{accountId} [post]
func (h *CostHandler) Record(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r)
	if !ok {
		return
	}

	var req dto.RecordDailyCostRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	record := &cost.DailyRecord{
		AccountID: accountID,
		Date:      req.Date,
		TotalCost: req.TotalCost,
		Currency:  req.Currency,
		Breakdown: make([]cost.ServiceCost, len(req.Breakdown)),
	}
	for i, b := range req.Breakdown {
		record.Breakdown[i] = cost.ServiceCost{Service: b.Service, Cost: b.Cost, Usage: b.Usage, Unit: b.Unit}
	}

	if err := h.service.RecordDaily(r.Context(), record); err != nil {
		writeServiceError(w, h.logger, err, "Failed to record daily costs")
		return
	}

	utils.WriteSuccessWithMessage(w, http.StatusCreated, "Daily costs recorded", record)
}

// Analyze summarises costs over a date range
// @Summary Analyze costs
// @Description Total, average, top services and trend against the preceding period of equal length
// @Tags Costs
// @Accept json
// @Produce json
// @Param accountId path string true "Account ID"
// @Param request body dto.AnalyzeCostsRequest true "Analysis window"
// @Success 200 {object} cost.Analysis "Cost analysis"
// @Failure 400 {object} utils.ErrorResponse "Invalid request or validation error"
// @Failure 500 {object} utils.ErrorResponse "Internal server error"
// @Security ApiKeyAuth
// @Router /costs/{accountId}/analyze [post]
func (h *CostHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r)
	if !ok {
		return
	}

	var req dto.AnalyzeCostsRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}
	// formats were checked by validation
	start, _ := time.Parse(cost.DateLayout, req.StartDate)
	end, _ := time.Parse(cost.DateLayout, req.EndDate)

	analysis, err := h.service.Analyze(r.Context(), cost.AnalysisRequest{
		AccountID:       accountID,
		StartDate:       start,
		EndDate:         end,
		IncludeForecast: req.IncludeForecast,
	})
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to analyze costs")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, analysis)
}

// Trend compares the current period with the previous one
// @Summary Cost trend
// @Tags Costs
// @Produce json
// @Param accountId path string true "Account ID"
// @Param period query string false "week or month (default: month)"
// @Success 200 {object} cost.Trend "Cost trend"
// @Failure 400 {object} utils.ErrorResponse "Invalid period"
// @Failure 500 {object} utils.ErrorResponse "Internal server error"
// @Security ApiKeyAuth
// @Router /costs/{accountId}/trend [get]
func (h *CostHandler) Trend(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r)
	if !ok {
		return
	}

	period := r.URL.Query().Get("period")
	if period == "" {
		period = cost.PeriodMonth
	}

	trend, err := h.service.GetTrend(r.Context(), accountID, period)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to compute cost trend")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, trend)
}

// TopServices ranks services by cost
// @Summary Top services by cost
// @Tags Costs
// @Produce json
// @Param accountId path string true "Account ID"
// @Param days query int false "Days to rank over (default: 30)"
// @Param limit query int false "Number of services (default: 5)"
// @Success 200 {array} cost.ServiceSummary "Top services"
// @Failure 500 {object} utils.ErrorResponse "Internal server error"
// @Security ApiKeyAuth
// @Router /costs/{accountId}/top-services [get]
func (h *CostHandler) TopServices(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	days := utils.ParseIntQuery(q.Get("days"), 0)
	limit := utils.ParseIntQuery(q.Get("limit"), 0)

	services, err := h.service.GetTopServices(r.Context(), accountID, days, limit)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to rank services")
		return
	}
	if services == nil {
		services = []cost.ServiceSummary{}
	}

	utils.WriteSuccess(w, http.StatusOK, services)
}

// Forecast projects next month's cost
// @Summary Forecast next month
// @Description Forecast from the supplied daily costs, or from the stored costs of the last days when none are supplied
// @Tags Costs
// @Accept json
// @Produce json
// @Param accountId path string true "Account ID"
// @Param request body dto.ForecastRequest true "Forecast input"
// @Success 200 {object} cost.ForecastResult "Forecast"
// @Failure 400 {object} utils.ErrorResponse "Invalid input"
// @Failure 500 {object} utils.ErrorResponse "Internal server error"
// @Security ApiKeyAuth
// @Router /costs/{accountId}/forecast [post]
func (h *CostHandler) Forecast(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r)
	if !ok {
		return
	}

	var req dto.ForecastRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	var (
		result *cost.ForecastResult
		err    error
	)
	if len(req.DailyCosts) > 0 {
		result, err = h.service.ForecastFromHistory(r.Context(), accountID, req.DailyCosts)
	} else {
		result, err = h.service.ForecastFromStored(r.Context(), accountID, req.Days)
	}
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to forecast costs")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, result)
}

// ForecastSeries extrapolates monthly costs
// @Summary Multi-month forecast
// @Description Extrapolate monthly costs at a fixed growth rate. Omitted values take the configured defaults.
// @Tags Costs
// @Produce json
// @Param accountId path string true "Account ID"
// @Param months query int false "Months to forecast (1-24)"
// @Param baseMonthlyCost query number false "Base monthly cost"
// @Param growthFactor query number false "Monthly growth factor"
// @Success 200 {object} cost.ForecastResult "Forecast series"
// @Failure 400 {object} utils.ErrorResponse "Invalid input"
// @Failure 500 {object} utils.ErrorResponse "Internal server error"
// @Security ApiKeyAuth
// @Router /costs/{accountId}/forecast [get]
func (h *CostHandler) ForecastSeries(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r)
	if !ok {
		return
	}

	req := cost.SeriesRequest{AccountID: accountID}
	var perr *errors.AppError
	if req.Months, perr = optionalIntQuery(r, "months"); perr != nil {
		utils.WriteError(w, perr)
		return
	}
	if req.BaseMonthlyCost, perr = optionalFloatQuery(r, "baseMonthlyCost"); perr != nil {
		utils.WriteError(w, perr)
		return
	}
	if req.GrowthFactor, perr = optionalFloatQuery(r, "growthFactor"); perr != nil {
		utils.WriteError(w, perr)
		return
	}

	result, err := h.service.ForecastSeries(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to forecast costs")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, result)
}

// ListForecasts returns stored forecasts
// @Summary List stored forecasts
// @Tags Costs
// @Produce json
// @Param accountId path string true "Account ID"
// @Param limit query int false "Maximum forecasts (default: 12)"
// @Success 200 {array} cost.Forecast "Stored forecasts, earliest month first"
// @Failure 500 {object} utils.ErrorResponse "Internal server error"
// @Security ApiKeyAuth
// @Router /costs/{accountId}/forecasts [get]
func (h *CostHandler) ListForecasts(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r)
	if !ok {
		return
	}

	forecasts, err := h.service.ListForecasts(r.Context(), accountID, utils.ParseIntQuery(r.URL.Query().Get("limit"), 0))
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to list forecasts")
		return
	}
	if forecasts == nil {
		forecasts = []*cost.Forecast{}
	}

	utils.WriteSuccess(w, http.StatusOK, forecasts)
}

// Sync collects one day of costs from the provider
// @Summary Collect costs now
// @Description Fetch one day of costs from Cost Explorer and store it (default: yesterday)
// @Tags Costs
// @Accept json
// @Produce json
// @Param accountId path string true "Account ID"
// @Param request body dto.SyncCostsRequest false "Day to collect"
// @Success 200 {object} cost.DailyRecord "Collected record"
// @Failure 502 {object} utils.ErrorResponse "Provider API error"
// @Failure 503 {object} utils.ErrorResponse "Collection not configured"
// @Security ApiKeyAuth
// @Router /costs/{accountId}/sync [post]
func (h *CostHandler) Sync(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r)
	if !ok {
		return
	}

	var req dto.SyncCostsRequest
	if r.ContentLength != 0 && !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	day := h.now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -1)
	if req.Date != "" {
		day, _ = time.Parse(cost.DateLayout, req.Date)
	}

	record, err := h.service.SyncCosts(r.Context(), accountID, day)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to collect costs")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, record)
}
