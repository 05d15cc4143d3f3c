package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/cloudops/internal/detector"
	"github.com/pratik-mahalle/cloudops/internal/domain/alert"
	"github.com/pratik-mahalle/cloudops/internal/domain/anomaly"
	"github.com/pratik-mahalle/cloudops/internal/forecast"
	apperrors "github.com/pratik-mahalle/cloudops/internal/pkg/errors"
	"github.com/pratik-mahalle/cloudops/internal/pkg/logger"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "json"})
}

// newRequest builds a request with chi URL params attached
func newRequest(t *testing.T, method, target string, body interface{}, params map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")

	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	if data != nil {
		require.True(t, env.Success, rec.Body.String())
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "app error passes through",
			err:        apperrors.BadRequest("bad period"),
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.ErrCodeBadRequest,
		},
		{
			name:       "detector rejection",
			err:        fmt.Errorf("%w: non-finite value at index 3", detector.ErrInvalidInput),
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.ErrCodeInvalidInput,
		},
		{
			name:       "forecast rejection",
			err:        fmt.Errorf("%w: months must be at least 1", forecast.ErrInvalidInput),
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.ErrCodeInvalidInput,
		},
		{
			name:       "unknown anomaly status",
			err:        fmt.Errorf("%w: %q", anomaly.ErrInvalidStatus, "closed"),
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.ErrCodeInvalidInput,
		},
		{
			name:       "missing anomaly",
			err:        anomaly.ErrNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   apperrors.ErrCodeNotFound,
		},
		{
			name:       "missing alert",
			err:        fmt.Errorf("get: %w", alert.ErrNotFound),
			wantStatus: http.StatusNotFound,
			wantCode:   apperrors.ErrCodeNotFound,
		},
		{
			name:       "store failure",
			err:        errors.New("connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   apperrors.ErrCodeDatabase,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, testLogger(), tt.err, "Request failed")

			assert.Equal(t, tt.wantStatus, rec.Code)
			env := decodeEnvelope(t, rec, nil)
			assert.False(t, env.Success)
			assert.Equal(t, tt.wantCode, env.Error.Code)
		})
	}
}

func TestAccountIDParam(t *testing.T) {
	rec := httptest.NewRecorder()
	_, ok := accountIDParam(rec, newRequest(t, http.MethodGet, "/", nil, map[string]string{"accountId": "acct 1"}))
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	id, ok := accountIDParam(rec, newRequest(t, http.MethodGet, "/", nil, map[string]string{"accountId": "123456789012"}))
	assert.True(t, ok)
	assert.Equal(t, "123456789012", id)
}
