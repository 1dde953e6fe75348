package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/traffic-autoscaler/internal/decision"
	"github.com/OldStager01/traffic-autoscaler/internal/forecast"
	"github.com/OldStager01/traffic-autoscaler/internal/history"
	"github.com/OldStager01/traffic-autoscaler/internal/orchestrator"
	"github.com/OldStager01/traffic-autoscaler/pkg/config"
	"github.com/OldStager01/traffic-autoscaler/pkg/database/queries"
	"github.com/OldStager01/traffic-autoscaler/pkg/models"
)

var fakeNow = time.Date(1995, 8, 23, 10, 30, 0, 0, time.UTC)

type fakeService struct {
	health       map[string]string
	sample       *models.LoadSample
	sampleErr    error
	lastQuery    history.Query
	historyErr   error
	forecastNow  time.Time
	horizons     []int
	lags         []float64
	forecastErr  error
	scalingInput models.ScalingInput
	recommendErr error
	config       decision.Config
	update       decision.ConfigUpdate
	updateErr    error
	costHours    float64
}

func newFakeService() *fakeService {
	return &fakeService{
		health: map[string]string{"forecaster": "ok", "history": "ok"},
		sample: &models.LoadSample{Timestamp: fakeNow, Requests: 123.456, Source: "pattern"},
		config: decision.DefaultConfig(),
	}
}

func (f *fakeService) HealthCheck(ctx context.Context) map[string]string { return f.health }

func (f *fakeService) Now() time.Time { return fakeNow }

func (f *fakeService) CurrentTraffic(ctx context.Context) (*models.LoadSample, error) {
	return f.sample, f.sampleErr
}

func (f *fakeService) Historical(ctx context.Context, q history.Query) (*models.HistoricalData, error) {
	f.lastQuery = q
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return models.NewHistoricalData(nil, q.Interval), nil
}

func (f *fakeService) MetricsSummary(ctx context.Context) (*orchestrator.MetricsSummary, error) {
	return &orchestrator.MetricsSummary{TotalRecords: 42, IntervalsAvailable: history.Intervals()}, nil
}

func (f *fakeService) Forecast(ctx context.Context, now time.Time, horizons []int, lags []float64) (*models.Forecast, error) {
	f.forecastNow, f.horizons, f.lags = now, horizons, lags
	if f.forecastErr != nil {
		return nil, f.forecastErr
	}
	return &models.Forecast{
		Timestamp:   now,
		Predictions: []models.PredictionResult{{HorizonMinutes: 5, PredictedRequests: 150, Confidence: 0.8}},
		Status:      "success",
	}, nil
}

func (f *fakeService) Recommend(ctx context.Context, in models.ScalingInput) (*models.ScalingRecommendation, error) {
	f.scalingInput = in
	if f.recommendErr != nil {
		return nil, f.recommendErr
	}
	return &models.ScalingRecommendation{
		CurrentServers:     in.CurrentServers,
		RecommendedServers: in.CurrentServers + 1,
		Action:             models.ActionScaleOut,
	}, nil
}

func (f *fakeService) ScalingConfig() decision.Config { return f.config }

func (f *fakeService) UpdateScalingConfig(ctx context.Context, update decision.ConfigUpdate) (decision.Config, error) {
	f.update = update
	if f.updateErr != nil {
		return decision.Config{}, f.updateErr
	}
	return update.Apply(f.config), nil
}

func (f *fakeService) CostSummary(hours float64) *orchestrator.CostReport {
	f.costHours = hours
	return &orchestrator.CostReport{
		Summary:              models.CostSummary{WindowHours: hours, CurrentServers: 2},
		ScalingHistory:       []models.CostPeriod{},
		CostPerServerPerHour: 0.1,
	}
}

type fakeEventHistory struct {
	recentLimit int
	from, to    time.Time
}

func (f *fakeEventHistory) GetRange(ctx context.Context, from, to time.Time, limit int) ([]models.ScalingEvent, error) {
	f.from, f.to = from, to
	return []models.ScalingEvent{{ID: 1, Action: models.ActionScaleOut}}, nil
}

func (f *fakeEventHistory) GetRecent(ctx context.Context, limit int) ([]models.ScalingEvent, error) {
	f.recentLimit = limit
	return []models.ScalingEvent{{ID: 2}, {ID: 1}}, nil
}

func (f *fakeEventHistory) GetStats(ctx context.Context, from, to time.Time) (*queries.ScalingStats, error) {
	return &queries.ScalingStats{From: from, To: to, ScaleOutCount: 3, ScaleInCount: 1}, nil
}

func setupRouter(svc *fakeService, events orchestrator.ScalingEventHistory) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	health := NewHealthHandler(svc)
	traffic := NewTrafficHandler(svc, &config.APIConfig{DefaultLimit: 100, MaxLimit: 500})
	fc := NewForecastHandler(svc)
	scaling := NewScalingHandler(svc)

	r.GET("/", health.Root)
	r.GET("/api/health", health.Health)
	r.GET("/health/ready", health.Ready)
	r.GET("/health/live", health.Live)
	r.GET("/api/current-traffic", traffic.CurrentTraffic)
	r.GET("/api/historical-data", traffic.HistoricalData)
	r.GET("/api/metrics/summary", traffic.MetricsSummary)
	r.POST("/api/forecast", fc.Forecast)
	r.POST("/api/recommend-scaling", scaling.Recommend)
	r.GET("/api/autoscaling/config", scaling.GetConfig)
	r.PUT("/api/autoscaling/config", scaling.UpdateConfig)
	r.GET("/api/cost/summary", scaling.CostSummary)

	if events != nil {
		h := NewScalingEventsHandler(events)
		r.GET("/api/scaling-events", h.List)
		r.GET("/api/scaling-events/stats", h.Stats)
	}
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthHandler(t *testing.T) {
	svc := newFakeService()
	r := setupRouter(svc, nil)

	w := do(r, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Predictive Server Autoscaling API", decode(t, w)["message"])

	w = do(r, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "ok", body["services"].(map[string]interface{})["history"])

	w = do(r, http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alive", decode(t, w)["status"])

	svc.health["history"] = "connection refused"

	w = do(r, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unhealthy", decode(t, w)["status"])

	w = do(r, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestTrafficHandler_CurrentTraffic(t *testing.T) {
	svc := newFakeService()
	r := setupRouter(svc, nil)

	w := do(r, http.MethodGet, "/api/current-traffic", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "1995-08-23T10:30:00", body["timestamp"])
	assert.Equal(t, 123.46, body["current_requests"])

	svc.sampleErr = newErr("collector down")
	w = do(r, http.MethodGet, "/api/current-traffic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestTrafficHandler_HistoricalData(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantCode  int
		wantStart time.Time
		wantEnd   time.Time
		wantLimit int
		wantIntv  string
	}{
		{
			name:      "defaults to last day",
			query:     "",
			wantCode:  http.StatusOK,
			wantStart: fakeNow.Add(-24 * time.Hour),
			wantEnd:   fakeNow,
			wantLimit: 100,
			wantIntv:  "5m",
		},
		{
			name:      "explicit window",
			query:     "?start_time=1995-08-01T00:00:00&end_time=1995-08-02T00:00:00&interval=15m&limit=10",
			wantCode:  http.StatusOK,
			wantStart: time.Date(1995, 8, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(1995, 8, 2, 0, 0, 0, 0, time.UTC),
			wantLimit: 10,
			wantIntv:  "15m",
		},
		{
			name:      "range in days and capped limit",
			query:     "?range=2d&limit=100000",
			wantCode:  http.StatusOK,
			wantStart: fakeNow.Add(-48 * time.Hour),
			wantEnd:   fakeNow,
			wantLimit: 500,
			wantIntv:  "5m",
		},
		{
			name:     "bad timestamp",
			query:    "?start_time=yesterday",
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "bad range",
			query:    "?range=-3h",
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			r := setupRouter(svc, nil)

			w := do(r, http.MethodGet, "/api/historical-data"+tt.query, "")
			require.Equal(t, tt.wantCode, w.Code, w.Body.String())
			if tt.wantCode != http.StatusOK {
				return
			}

			assert.True(t, tt.wantStart.Equal(svc.lastQuery.Start), "start %s", svc.lastQuery.Start)
			assert.True(t, tt.wantEnd.Equal(svc.lastQuery.End), "end %s", svc.lastQuery.End)
			assert.Equal(t, tt.wantLimit, svc.lastQuery.Limit)
			assert.Equal(t, tt.wantIntv, svc.lastQuery.Interval)
		})
	}
}

func TestTrafficHandler_HistoricalDataErrors(t *testing.T) {
	svc := newFakeService()
	svc.historyErr = fmt.Errorf("%w: %q", history.ErrInvalidInterval, "2m")
	r := setupRouter(svc, nil)

	w := do(r, http.MethodGet, "/api/historical-data?interval=2m", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "interval")
}

func TestTrafficHandler_MetricsSummary(t *testing.T) {
	r := setupRouter(newFakeService(), nil)

	w := do(r, http.MethodGet, "/api/metrics/summary", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(42), body["total_records"])
	assert.Len(t, body["intervals_available"], 3)
}

func TestForecastHandler(t *testing.T) {
	t.Run("explicit request", func(t *testing.T) {
		svc := newFakeService()
		r := setupRouter(svc, nil)

		w := do(r, http.MethodPost, "/api/forecast",
			`{"current_time": "1995-08-23T12:00:00", "intervals": [5, 15], "lag_data": [100, 90]}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		assert.Equal(t, time.Date(1995, 8, 23, 12, 0, 0, 0, time.UTC), svc.forecastNow)
		assert.Equal(t, []int{5, 15}, svc.horizons)
		assert.Equal(t, []float64{100, 90}, svc.lags)
		assert.Equal(t, "success", decode(t, w)["status"])
	})

	t.Run("current time defaults to the traffic clock", func(t *testing.T) {
		svc := newFakeService()
		r := setupRouter(svc, nil)

		w := do(r, http.MethodPost, "/api/forecast", `{}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, fakeNow, svc.forecastNow)
		assert.Empty(t, svc.horizons)
	})

	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
	}{
		{"malformed json", `{"intervals": "five"}`, nil, http.StatusBadRequest},
		{"bad timestamp", `{"current_time": "noon"}`, nil, http.StatusBadRequest},
		{"negative horizon", `{"intervals": [-1]}`, nil, http.StatusBadRequest},
		{"negative lag", `{"lag_data": [-5]}`, nil, http.StatusBadRequest},
		{"no predictor", `{}`, forecast.ErrPredictionUnavailable, http.StatusServiceUnavailable},
		{"invalid horizon from forecaster", `{}`, forecast.ErrInvalidHorizon, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			svc.forecastErr = tt.err
			r := setupRouter(svc, nil)

			w := do(r, http.MethodPost, "/api/forecast", tt.body)
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
		})
	}
}

func TestScalingHandler_Recommend(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
	}{
		{"valid", `{"current_servers": 2, "current_load": 300, "predicted_load": 500, "current_utilization": 75}`, nil, http.StatusOK},
		{"zero servers", `{"current_servers": 0, "current_load": 300, "predicted_load": 500}`, nil, http.StatusBadRequest},
		{"negative load", `{"current_servers": 2, "current_load": -1, "predicted_load": 500}`, nil, http.StatusBadRequest},
		{"utilization out of range", `{"current_servers": 2, "current_load": 1, "predicted_load": 1, "current_utilization": 140}`, nil, http.StatusBadRequest},
		{"malformed", `{"current_servers": "two"}`, nil, http.StatusBadRequest},
		{"engine rejects input", `{"current_servers": 2, "current_load": 1, "predicted_load": 1}`, decision.ErrInvalidInput, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			svc.recommendErr = tt.err
			r := setupRouter(svc, nil)

			w := do(r, http.MethodPost, "/api/recommend-scaling", tt.body)
			require.Equal(t, tt.wantCode, w.Code, w.Body.String())
		})
	}

	svc := newFakeService()
	r := setupRouter(svc, nil)
	w := do(r, http.MethodPost, "/api/recommend-scaling",
		`{"current_servers": 2, "current_load": 300, "predicted_load": 500, "current_utilization": 75}`)
	require.Equal(t, http.StatusOK, w.Code)

	require.NotNil(t, svc.scalingInput.CurrentUtilization)
	assert.Equal(t, 75.0, *svc.scalingInput.CurrentUtilization)
	assert.Equal(t, 500.0, svc.scalingInput.PredictedLoad)
	assert.Equal(t, "scale-out", decode(t, w)["action"])
}

func TestScalingHandler_Config(t *testing.T) {
	svc := newFakeService()
	r := setupRouter(svc, nil)

	w := do(r, http.MethodGet, "/api/autoscaling/config", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(2), body["cooldown_minutes"])
	assert.Equal(t, float64(30), body["startup_grace_seconds"])
	assert.Equal(t, float64(50), body["max_servers"])

	w = do(r, http.MethodPut, "/api/autoscaling/config", `{"max_servers": 20, "cooldown_minutes": 5, "startup_grace_seconds": 0}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.NotNil(t, svc.update.MaxServers)
	assert.Equal(t, 20, *svc.update.MaxServers)
	require.NotNil(t, svc.update.Cooldown)
	assert.Equal(t, 5*time.Minute, *svc.update.Cooldown)
	require.NotNil(t, svc.update.StartupGrace)
	assert.Equal(t, time.Duration(0), *svc.update.StartupGrace)

	cfg := decode(t, w)["config"].(map[string]interface{})
	assert.Equal(t, float64(5), cfg["cooldown_minutes"])
	assert.Equal(t, float64(20), cfg["max_servers"])
}

func TestScalingHandler_UpdateConfigErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
	}{
		{"empty update", `{}`, nil, http.StatusBadRequest},
		{"malformed", `{"max_servers": "many"}`, nil, http.StatusBadRequest},
		{"invalid combination", `{"min_servers": 10, "max_servers": 5}`, decision.ErrConfiguration, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			svc.updateErr = tt.err
			r := setupRouter(svc, nil)

			w := do(r, http.MethodPut, "/api/autoscaling/config", tt.body)
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
		})
	}
}

func TestScalingHandler_CostSummary(t *testing.T) {
	svc := newFakeService()
	r := setupRouter(svc, nil)

	w := do(r, http.MethodGet, "/api/cost/summary", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 24.0, svc.costHours)
	body := decode(t, w)
	assert.Contains(t, body, "scaling_history")
	assert.Equal(t, 0.1, body["cost_per_server_per_hour"])

	w = do(r, http.MethodGet, "/api/cost/summary?hours=1.5", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.5, svc.costHours)

	for _, q := range []string{"?hours=abc", "?hours=0", "?hours=-2"} {
		w = do(r, http.MethodGet, "/api/cost/summary"+q, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestScalingEventsHandler(t *testing.T) {
	events := &fakeEventHistory{}
	r := setupRouter(newFakeService(), events)

	w := do(r, http.MethodGet, "/api/scaling-events?limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, events.recentLimit)
	assert.Equal(t, float64(2), decode(t, w)["count"])

	w = do(r, http.MethodGet, "/api/scaling-events?from=1995-08-01T00:00:00&to=1995-08-02T00:00:00", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, time.Date(1995, 8, 1, 0, 0, 0, 0, time.UTC), events.from)
	assert.Equal(t, float64(1), decode(t, w)["count"])

	w = do(r, http.MethodGet, "/api/scaling-events?from=1995-08-02T00:00:00&to=1995-08-01T00:00:00", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/scaling-events/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), decode(t, w)["scale_out_count"])
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrap: %w", history.ErrInvalidRange), http.StatusBadRequest},
		{decision.ErrConfiguration, http.StatusUnprocessableEntity},
		{forecast.ErrPredictionUnavailable, http.StatusServiceUnavailable},
		{newErr("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func newErr(msg string) error {
	return fmt.Errorf("%s", msg)
}
