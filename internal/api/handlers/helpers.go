package handlers

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pratik-mahalle/cloudops/internal/detector"
	"github.com/pratik-mahalle/cloudops/internal/domain/alert"
	"github.com/pratik-mahalle/cloudops/internal/domain/anomaly"
	"github.com/pratik-mahalle/cloudops/internal/forecast"
	"github.com/pratik-mahalle/cloudops/internal/pkg/errors"
	"github.com/pratik-mahalle/cloudops/internal/pkg/logger"
	"github.com/pratik-mahalle/cloudops/internal/pkg/utils"
	"github.com/pratik-mahalle/cloudops/internal/pkg/validator"
)

// accountIDParam reads and checks the accountId path parameter. It writes
// the error response and returns false when the id is malformed.
func accountIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	accountID := chi.URLParam(r, "accountId")
	if !validator.IsAccountID(accountID) {
		utils.WriteError(w, errors.BadRequest("Invalid account ID"))
		return "", false
	}
	return accountID, true
}

// decodeAndValidate decodes the JSON body into dst and runs struct validation
func decodeAndValidate(w http.ResponseWriter, r *http.Request, val *validator.Validator, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return false
	}
	if errs := val.Validate(dst); len(errs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", errs))
		return false
	}
	return true
}

// parseTimeQuery parses an RFC 3339 query value. Empty yields the zero time.
func parseTimeQuery(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, value)
}

// writeServiceError maps a service error onto the API error envelope
func writeServiceError(w http.ResponseWriter, log *logger.Logger, err error, message string) {
	var appErr *errors.AppError
	switch {
	case stderrors.As(err, &appErr):
		if appErr.StatusCode >= http.StatusInternalServerError {
			log.ErrorWithErr(err, message)
		}
		utils.WriteError(w, appErr)
	case stderrors.Is(err, detector.ErrInvalidInput),
		stderrors.Is(err, forecast.ErrInvalidInput),
		stderrors.Is(err, anomaly.ErrInvalidStatus):
		utils.WriteError(w, errors.InvalidInput(err))
	case stderrors.Is(err, anomaly.ErrNotFound):
		utils.WriteError(w, errors.NotFound("Anomaly"))
	case stderrors.Is(err, alert.ErrNotFound):
		utils.WriteError(w, errors.NotFound("Alert"))
	default:
		log.ErrorWithErr(err, message)
		utils.WriteError(w, errors.DatabaseError(message, err))
	}
}

// optionalIntQuery parses an optional integer query parameter. An absent
// parameter gives nil; a malformed one is an invalid input error.
func optionalIntQuery(r *http.Request, name string) (*int, *errors.AppError) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, errors.InvalidInput(fmt.Errorf("%s must be an integer, got %q", name, raw))
	}
	return &v, nil
}

// optionalFloatQuery is optionalIntQuery for numbers
func optionalFloatQuery(r *http.Request, name string) (*float64, *errors.AppError) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, errors.InvalidInput(fmt.Errorf("%s must be a number, got %q", name, raw))
	}
	return &v, nil
}
