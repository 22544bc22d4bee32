package healthprobe

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	hc := New()
	require.NotNil(t, hc)
	assert.Less(t, time.Since(hc.startTime), time.Second)
	assert.False(t, hc.ready.Load(), "not ready by default")
}

func TestHealth(t *testing.T) {
	hc := New()

	rec := httptest.NewRecorder()
	hc.Health()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.NotEmpty(t, resp.Uptime)
}

func TestReady(t *testing.T) {
	checkErr := errors.New("ledger closed")
	var failing bool

	hc := New()
	hc.AddCheck("ledger", func() error {
		if failing {
			return checkErr
		}
		return nil
	})

	tests := []struct {
		name       string
		ready      bool
		failing    bool
		wantStatus int
		wantBody   string
	}{
		{name: "not-ready", ready: false, wantStatus: http.StatusServiceUnavailable, wantBody: "not_ready"},
		{name: "ready", ready: true, wantStatus: http.StatusOK, wantBody: "ready"},
		{name: "check-failing", ready: true, failing: true, wantStatus: http.StatusServiceUnavailable, wantBody: "not_ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc.SetReady(tt.ready)
			failing = tt.failing

			rec := httptest.NewRecorder()
			hc.Ready()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantBody, resp.Status)

			if tt.failing {
				assert.Equal(t, "ledger closed", resp.Failing["ledger"])
			}
		})
	}
}
