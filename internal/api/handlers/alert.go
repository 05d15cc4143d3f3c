package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pratik-mahalle/cloudops/internal/api/dto"
	"github.com/pratik-mahalle/cloudops/internal/domain/alert"
	"github.com/pratik-mahalle/cloudops/internal/pkg/logger"
	"github.com/pratik-mahalle/cloudops/internal/pkg/utils"
	"github.com/pratik-mahalle/cloudops/internal/pkg/validator"
)

// defaultAlertLimit bounds an alert listing without a limit
const defaultAlertLimit = 50

type AlertHandler struct {
	service   alert.Service
	logger    *logger.Logger
	validator *validator.Validator
}

func NewAlertHandler(service alert.Service, log *logger.Logger, val *validator.Validator) *AlertHandler {
	return &AlertHandler{service: service, logger: log, validator: val}
}

// List returns alerts
// @Summary List alerts
// @Description Get alerts, most recent first
// @Tags Alerts
// @Produce json
// @Param accountId path string true "Account ID"
// @Param type query string false "Filter by type"
// @Param severity query string false "Filter by severity"
// @Param status query string false "Filter by status"
// @Param limit query int false "Maximum alerts (default: 50, max: 100)"
// @Success 200 {array} alert.Alert "Alerts"
// @Failure 500 {object} utils.ErrorResponse "Internal server error"
// @Security ApiKeyAuth
// @Router /alerts/{accountId} [get]
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	limit := utils.ParseIntQuery(q.Get("limit"), defaultAlertLimit)
	if limit < 1 || limit > utils.MaxPageSize {
		limit = defaultAlertLimit
	}

	alerts, err := h.service.List(r.Context(), accountID, alert.Filter{
		Type:     q.Get("type"),
		Severity: q.Get("severity"),
		Status:   q.Get("status"),
	}, limit)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to list alerts")
		return
	}
	if alerts == nil {
		alerts = []*alert.Alert{}
	}

	utils.WriteSuccess(w, http.StatusOK, alerts)
}

// Send raises a manual alert
// @Summary Send alert
// @Description Store an alert and publish it to the configured topic
// @Tags Alerts
// @Accept json
// @Produce json
// @Param accountId path string true "Account ID"
// @Param request body dto.SendAlertRequest true "Alert"
// @Success 201 {object} alert.Alert "Alert raised"
// @Failure 400 {object} utils.ErrorResponse "Invalid request or validation error"
// @Failure 500 {object} utils.ErrorResponse "Internal server error"
// @Security ApiKeyAuth
// @Router /alerts/{accountId} [post]
func (h *AlertHandler) Send(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r)
	if !ok {
		return
	}

	var req dto.SendAlertRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	a, err := h.service.Send(r.Context(), alert.SendInput{
		AccountID: accountID,
		Type:      req.Type,
		Title:     req.Title,
		Message:   req.Message,
		Severity:  req.Severity,
		Metadata:  req.Metadata,
	})
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to send alert")
		return
	}

	utils.WriteSuccessWithMessage(w, http.StatusCreated, "Alert sent", a)
}

// UpdateStatus acknowledges or resolves an alert
// @Summary Update alert status
// @Tags Alerts
// @Accept json
// @Produce json
// @Param accountId path string true "Account ID"
// @Param alertId path string true "Alert ID"
// @Param request body dto.UpdateAlertStatusRequest true "New status"
// @Success 200 {object} alert.Alert "Updated alert"
// @Failure 400 {object} utils.ErrorResponse "Invalid status"
// @Failure 404 {object} utils.ErrorResponse "Alert not found"
// @Security ApiKeyAuth
// @Router /alerts/{accountId}/{alertId}/status [patch]
func (h *AlertHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r)
	if !ok {
		return
	}

	var req dto.UpdateAlertStatusRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	a, err := h.service.UpdateStatus(r.Context(), accountID, chi.URLParam(r, "alertId"), req.Status)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to update alert status")
		return
	}

	utils.WriteSuccessWithMessage(w, http.StatusOK, "Alert status updated", a)
}
