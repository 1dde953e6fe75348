package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetrics_Exposition(t *testing.T) {
	m := New()

	m.IncCollections()
	m.IncCollectionErrors()
	m.IncForecast("pattern")
	m.IncPredictorFallback("lgbm")
	m.IncRecommendation("scale-out")
	m.IncScalingEvent("scale-out")
	m.SetCurrentLoad(142.5)
	m.SetPredictedLoad(15, 180)
	m.SetServerCount(2, 3)
	m.SetHourlyCost(0.3)
	m.SetCircuitBreakerState("model", 1)
	m.SetWebSocketConnections(4)
	m.ObserveCollectionLatency(20 * time.Millisecond)
	m.ObserveCycleLatency(40 * time.Millisecond)
	m.ObserveHTTPRequest("GET", "/api/health", 200, time.Millisecond)

	body := scrape(t, m)

	for _, line := range []string{
		"autoscaler_collections_total 1",
		`autoscaler_forecasts_total{predictor="pattern"} 1`,
		`autoscaler_predictor_fallbacks_total{predictor="lgbm"} 1`,
		`autoscaler_recommendations_total{action="scale-out"} 1`,
		"autoscaler_current_load_requests 142.5",
		`autoscaler_predicted_load_requests{horizon="15"} 180`,
		"autoscaler_recommended_servers 3",
		`autoscaler_circuit_breaker_state{name="model"} 1`,
		"autoscaler_websocket_connections_active 4",
		`autoscaler_http_requests_total{method="GET",path="/api/health",status="200"} 1`,
		"autoscaler_cycle_duration_seconds_count 1",
	} {
		assert.Contains(t, body, line)
	}
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.IncCollections()

	assert.Contains(t, scrape(t, a), "autoscaler_collections_total 1")
	assert.Contains(t, scrape(t, b), "autoscaler_collections_total 0")
}

func TestGet_ReturnsSingleton(t *testing.T) {
	assert.Same(t, Get(), Get())
}
