package utils

import (
	"encoding/json"
	"net/http"

	"github.com/pratik-mahalle/cloudops/internal/pkg/errors"
)

// SuccessResponse is the envelope of every successful API response
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// ErrorResponse is the envelope of every failed API response
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail carries the machine-readable code of a failure
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func writeEnvelope(w http.ResponseWriter, status int, envelope interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(envelope)
}

// WriteSuccess wraps data in a success envelope
func WriteSuccess(w http.ResponseWriter, status int, data interface{}) error {
	return WriteSuccessWithMessage(w, status, "", data)
}

// WriteSuccessWithMessage is WriteSuccess with a human-readable message
func WriteSuccessWithMessage(w http.ResponseWriter, status int, message string, data interface{}) error {
	return writeEnvelope(w, status, SuccessResponse{Success: true, Message: message, Data: data})
}

// WriteError writes err as an error envelope using its status code
func WriteError(w http.ResponseWriter, err *errors.AppError) error {
	return writeEnvelope(w, err.StatusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    err.Code,
			Message: err.Message,
			Details: err.Details,
		},
	})
}
