package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OldStager01/traffic-autoscaler/internal/logger"
)

const namespace = "autoscaler"

type Metrics struct {
	registry *prometheus.Registry

	// Counters
	collectionsTotal     prometheus.Counter
	collectionErrors     prometheus.Counter
	forecastsTotal       *prometheus.CounterVec
	predictorFallbacks   *prometheus.CounterVec
	recommendationsTotal *prometheus.CounterVec
	scalingEventsTotal   *prometheus.CounterVec
	httpRequestsTotal    *prometheus.CounterVec

	// Gauges
	currentLoad         prometheus.Gauge
	predictedLoad       *prometheus.GaugeVec
	currentServers      prometheus.Gauge
	recommendedServers  prometheus.Gauge
	hourlyCost          prometheus.Gauge
	circuitBreakerState *prometheus.GaugeVec
	wsConnections       prometheus.Gauge

	// Histograms
	collectionLatency prometheus.Histogram
	decisionLatency   prometheus.Histogram
	httpDuration      *prometheus.HistogramVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Get returns the process-wide metrics set.
func Get() *Metrics {
	once.Do(func() {
		instance = New()
	})
	return instance
}

// New builds a metrics set on its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		collectionsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collections_total",
			Help:      "Total number of traffic collections.",
		}),
		collectionErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collection_errors_total",
			Help:      "Total number of failed traffic collections.",
		}),
		forecastsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecasts_total",
			Help:      "Predictions produced, by predictor.",
		}, []string{"predictor"}),
		predictorFallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictor_fallbacks_total",
			Help:      "Times a predictor failed and the fallback was used.",
		}, []string{"predictor"}),
		recommendationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_total",
			Help:      "Scaling recommendations, by action.",
		}, []string{"action"}),
		scalingEventsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scaling_events_total",
			Help:      "Scale actions recorded in the cost ledger, by action.",
		}, []string{"action"}),
		httpRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by method, path, and status.",
		}, []string{"method", "path", "status"}),
		currentLoad: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_load_requests",
			Help:      "Most recently observed requests per minute.",
		}),
		predictedLoad: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "predicted_load_requests",
			Help:      "Latest predicted requests per minute, by horizon in minutes.",
		}, []string{"horizon"}),
		currentServers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_servers",
			Help:      "Server count in the cost ledger.",
		}),
		recommendedServers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "recommended_servers",
			Help:      "Server count of the latest recommendation.",
		}),
		hourlyCost: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hourly_cost",
			Help:      "Current fleet cost per hour.",
		}),
		circuitBreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open).",
		}, []string{"name"}),
		wsConnections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_connections_active",
			Help:      "Number of active WebSocket connections.",
		}),
		collectionLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "collection_duration_seconds",
			Help:      "Traffic collection latency in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2.5, 10),
		}),
		decisionLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Autopilot cycle latency in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2.5, 10),
		}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2.5, 10),
		}, []string{"method", "path"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) IncCollections() {
	m.collectionsTotal.Inc()
}

func (m *Metrics) IncCollectionErrors() {
	m.collectionErrors.Inc()
}

func (m *Metrics) IncForecast(predictor string) {
	m.forecastsTotal.WithLabelValues(predictor).Inc()
}

func (m *Metrics) IncPredictorFallback(predictor string) {
	m.predictorFallbacks.WithLabelValues(predictor).Inc()
}

func (m *Metrics) IncRecommendation(action string) {
	m.recommendationsTotal.WithLabelValues(action).Inc()
}

func (m *Metrics) IncScalingEvent(action string) {
	m.scalingEventsTotal.WithLabelValues(action).Inc()
}

func (m *Metrics) SetCurrentLoad(requests float64) {
	m.currentLoad.Set(requests)
}

func (m *Metrics) SetPredictedLoad(horizonMinutes int, requests float64) {
	m.predictedLoad.WithLabelValues(strconv.Itoa(horizonMinutes)).Set(requests)
}

func (m *Metrics) SetServerCount(current, recommended int) {
	m.currentServers.Set(float64(current))
	m.recommendedServers.Set(float64(recommended))
}

func (m *Metrics) SetHourlyCost(cost float64) {
	m.hourlyCost.Set(cost)
}

func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.circuitBreakerState.WithLabelValues(name).Set(float64(state))
}

func (m *Metrics) SetWebSocketConnections(n int) {
	m.wsConnections.Set(float64(n))
}

func (m *Metrics) ObserveCollectionLatency(d time.Duration) {
	m.collectionLatency.Observe(d.Seconds())
}

func (m *Metrics) ObserveCycleLatency(d time.Duration) {
	m.decisionLatency.Observe(d.Seconds())
}

func (m *Metrics) ObserveHTTPRequest(method, path string, status int, d time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func StartServer(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Get().Handler())

	addr := ":" + strconv.Itoa(port)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	logger.Infof("Prometheus metrics server listening on %s", addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("Prometheus server error: %v", err)
		}
	}()
	return srv
}
