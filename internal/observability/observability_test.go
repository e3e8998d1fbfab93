package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readiness(t *testing.T, h *HealthChecker) (int, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestReadiness(t *testing.T) {
	h := NewHealthChecker()

	code, body := readiness(t, h)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "not_ready", body["status"])

	h.SetReady(true)
	h.SetShutdown(true)
	h.AddCheck("postgres", func(context.Context) error { return nil })
	code, body = readiness(t, h)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["emergency_shutdown"])
	assert.Equal(t, map[string]interface{}{"postgres": "ok"}, body["checks"])

	h.AddCheck("nats", func(context.Context) error { return errors.New("disconnected") })
	code, body = readiness(t, h)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "disconnected", body["checks"].(map[string]interface{})["nats"])
}

func TestLiveness(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthChecker().LivenessHandler(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"alive"`)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, parseLogLevel(""))
	assert.Equal(t, zerolog.DebugLevel, parseLogLevel("DEBUG"))
	assert.Equal(t, zerolog.Disabled, parseLogLevel("disabled"))
	assert.Equal(t, zerolog.InfoLevel, parseLogLevel("loud"))
}

func TestNewMetricsWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegistry(reg)
	m.ProjectionDrops.Inc()

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["vault_projection_drops_total"])
}
