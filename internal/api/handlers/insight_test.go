package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/cloudops/internal/domain/insight"
	"github.com/pratik-mahalle/cloudops/internal/services"
	"github.com/pratik-mahalle/cloudops/internal/testutil"
)

func TestInsightHandler_Get(t *testing.T) {
	tests := []struct {
		name         string
		completer    *testutil.MockCompleter
		wantFallback bool
		wantText     string
	}{
		{
			name:      "model reply",
			completer: &testutil.MockCompleter{Reply: `{"analysis":"EC2 dominates spend","recommendations":["Rightsize m5.large"],"concerns":[]}`},
			wantText:  "EC2 dominates spend",
		},
		{
			name:         "model failure falls back",
			completer:    &testutil.MockCompleter{Err: errors.New("rate limited")},
			wantFallback: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := testLogger()
			service := services.NewInsightService(testutil.NewMockCostRepository(), testutil.NewMockMetricRepository(),
				tt.completer, nil, time.Hour, log)
			handler := NewInsightHandler(service, log)

			rec := httptest.NewRecorder()
			handler.Get(rec, newRequest(t, http.MethodGet, "/", nil, account))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var got insight.Insight
			decodeEnvelope(t, rec, &got)
			assert.Equal(t, tt.wantFallback, got.Fallback)
			assert.Equal(t, "123456789012", got.AccountID)
			if tt.wantText != "" {
				assert.Equal(t, tt.wantText, got.Insights)
				assert.Equal(t, []string{"Rightsize m5.large"}, got.Recommendations)
			}
		})
	}
}
