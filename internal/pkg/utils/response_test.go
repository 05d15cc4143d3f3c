package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/cloudops/internal/pkg/errors"
)

func TestWriteSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteSuccessWithMessage(rec, http.StatusCreated, "Alert sent", map[string]int{"count": 2}))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"success":true,"message":"Alert sent","data":{"count":2}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	require.NoError(t, WriteSuccess(rec, http.StatusOK, nil))
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	details := []string{"months"}
	require.NoError(t, WriteError(rec, errors.ValidationError("Validation failed", details)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, errors.ErrCodeValidation, body.Error.Code)
	assert.Equal(t, "Validation failed", body.Error.Message)
	assert.Equal(t, []interface{}{"months"}, body.Error.Details)
}
