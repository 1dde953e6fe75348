package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/OldStager01/traffic-autoscaler/internal/clock"
	"github.com/OldStager01/traffic-autoscaler/internal/collector"
	"github.com/OldStager01/traffic-autoscaler/internal/cost"
	"github.com/OldStager01/traffic-autoscaler/internal/decision"
	"github.com/OldStager01/traffic-autoscaler/internal/events"
	"github.com/OldStager01/traffic-autoscaler/internal/forecast"
	"github.com/OldStager01/traffic-autoscaler/internal/history"
	"github.com/OldStager01/traffic-autoscaler/internal/logger"
	"github.com/OldStager01/traffic-autoscaler/internal/metrics"
	"github.com/OldStager01/traffic-autoscaler/internal/scaler"
	"github.com/OldStager01/traffic-autoscaler/pkg/config"
	"github.com/OldStager01/traffic-autoscaler/pkg/database/queries"
	"github.com/OldStager01/traffic-autoscaler/pkg/models"
)

// RecentPeriods is how many closed ledger periods a cost report carries.
const RecentPeriods = 10

var ErrAutopilotDisabled = errors.New("autopilot is not configured")

// Components are the collaborators an Orchestrator coordinates. Forecaster,
// Engine and Tracker are required; everything else is optional.
type Components struct {
	Forecaster   *forecast.Forecaster
	Engine       *decision.Engine
	Tracker      *cost.Tracker
	History      history.Store
	Collector    collector.Collector
	Scaler       scaler.Scaler
	EventBus     *events.EventBus
	EventStore   events.ScalingEventStore
	Metrics      *metrics.Metrics
	TrafficClock clock.Clock
	Closers      []io.Closer
}

type Orchestrator struct {
	config      *config.Config
	components  Components
	eventBus    *events.EventBus
	eventLogger *events.EventLogger
	publisher   *events.Publisher
	metrics     *metrics.Metrics
	pipeline    *Pipeline
	mu          sync.RWMutex
}

func New(cfg *config.Config, c Components) *Orchestrator {
	if c.EventBus == nil {
		c.EventBus = events.NewEventBus(cfg.Events.BufferSize)
	}
	if c.Metrics == nil {
		c.Metrics = metrics.Get()
	}
	if c.TrafficClock == nil {
		c.TrafficClock = clock.Real()
	}
	if c.History == nil {
		c.History = history.NewMemoryStore(cfg.History.MaxPoints)
	}

	// Subscribe event logger to all events
	allEvents := c.EventBus.SubscribeAll()
	eventLogger := events.NewEventLogger(c.EventStore, allEvents)

	return &Orchestrator{
		config:      cfg,
		components:  c,
		eventBus:    c.EventBus,
		eventLogger: eventLogger,
		publisher:   events.NewPublisher(c.EventBus, nil),
		metrics:     c.Metrics,
	}
}

func (o *Orchestrator) Start() error {
	logger.Info("Orchestrator starting")
	o.eventLogger.Start()

	o.metrics.SetHourlyCost(o.components.Tracker.HourlyRate())
	o.metrics.SetServerCount(o.components.Tracker.CurrentServers(), o.components.Tracker.CurrentServers())

	if o.config.Autopilot.Enabled {
		return o.StartAutopilot()
	}
	return nil
}

func (o *Orchestrator) Stop() {
	logger.Info("Orchestrator stopping")

	o.StopAutopilot()

	// Stop event logger
	o.eventLogger.Stop()

	// Close event bus
	o.eventBus.Close()

	for _, c := range o.components.Closers {
		if err := c.Close(); err != nil {
			logger.Warnf("Failed to close component: %v", err)
		}
	}

	logger.Info("Orchestrator stopped")
}

// StartAutopilot runs the collect, forecast and recommend cycle on a ticker.
func (o *Orchestrator) StartAutopilot() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.components.Collector == nil || o.components.Scaler == nil {
		return ErrAutopilotDisabled
	}
	if o.pipeline != nil && o.pipeline.IsRunning() {
		return nil
	}

	o.pipeline = NewPipeline(PipelineConfig{
		Interval:   o.config.Autopilot.Interval,
		Horizon:    o.config.Autopilot.Horizon,
		Collector:  o.components.Collector,
		History:    o.components.History,
		Forecaster: o.components.Forecaster,
		Engine:     o.components.Engine,
		Tracker:    o.components.Tracker,
		Scaler:     o.components.Scaler,
		Publisher:  o.publisher,
		Metrics:    o.metrics,
		Clock:      o.components.TrafficClock,
	})

	if err := o.pipeline.Start(); err != nil {
		return fmt.Errorf("failed to start autopilot: %w", err)
	}
	return nil
}

func (o *Orchestrator) StopAutopilot() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pipeline != nil {
		o.pipeline.Stop()
		o.pipeline = nil
	}
}

func (o *Orchestrator) AutopilotRunning() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.pipeline != nil && o.pipeline.IsRunning()
}

// Forecast predicts traffic for each horizon after now.
func (o *Orchestrator) Forecast(ctx context.Context, now time.Time, horizons []int, lags []float64) (*models.Forecast, error) {
	predictions, err := o.components.Forecaster.Forecast(ctx, now, horizons, lags)
	if err != nil {
		return nil, err
	}

	result := &models.Forecast{
		Timestamp:   now,
		Predictions: predictions,
		Status:      "success",
	}
	for _, p := range predictions {
		o.metrics.IncForecast(p.Predictor)
		o.metrics.SetPredictedLoad(p.HorizonMinutes, p.PredictedRequests)
	}
	o.publisher.WithTraceID(logger.TraceIDFromContext(ctx)).ForecastGenerated(result)
	return result, nil
}

// Recommend evaluates one scaling input. Real scale actions are recorded
// in the cost ledger by the engine and published for the audit log.
func (o *Orchestrator) Recommend(ctx context.Context, in models.ScalingInput) (*models.ScalingRecommendation, error) {
	rec, err := o.components.Engine.Recommend(in)
	if err != nil {
		return nil, err
	}

	pub := o.publisher.WithTraceID(logger.TraceIDFromContext(ctx))
	observeRecommendation(o.metrics, o.components.Tracker, pub, rec, in.PredictedLoad)
	return rec, nil
}

func observeRecommendation(m *metrics.Metrics, tracker *cost.Tracker, pub *events.Publisher, rec *models.ScalingRecommendation, predictedLoad float64) {
	m.IncRecommendation(string(rec.Action))
	m.SetServerCount(rec.CurrentServers, rec.RecommendedServers)
	m.SetHourlyCost(tracker.HourlyRate())
	pub.RecommendationMade(rec)

	if rec.Applied() {
		m.IncScalingEvent(string(rec.Action))
		pub.ScalingRecorded(models.NewScalingEvent(rec, predictedLoad))
	}
}

// CostReport is the ledger view served by the cost summary endpoint.
type CostReport struct {
	Summary              models.CostSummary  `json:"summary"`
	ScalingHistory       []models.CostPeriod `json:"scaling_history"`
	CostPerServerPerHour float64             `json:"cost_per_server_per_hour"`
}

func (o *Orchestrator) CostSummary(hours float64) *CostReport {
	tracker := o.components.Tracker
	return &CostReport{
		Summary:              tracker.Summary(hours),
		ScalingHistory:       tracker.Recent(RecentPeriods),
		CostPerServerPerHour: tracker.Rate(),
	}
}

func (o *Orchestrator) ScalingConfig() decision.Config {
	return o.components.Engine.Config()
}

func (o *Orchestrator) UpdateScalingConfig(ctx context.Context, update decision.ConfigUpdate) (decision.Config, error) {
	cfg, err := o.components.Engine.UpdateConfig(update)
	if err != nil {
		return decision.Config{}, err
	}

	o.metrics.SetHourlyCost(o.components.Tracker.HourlyRate())
	o.publisher.WithTraceID(logger.TraceIDFromContext(ctx)).ConfigUpdated(cfg)
	logger.InfoCtx(ctx, "Autoscaling configuration updated")
	return cfg, nil
}

// Now is the traffic clock's current time, simulated when configured.
func (o *Orchestrator) Now() time.Time {
	return o.components.TrafficClock.Now()
}

// CurrentTraffic samples the collector at the traffic clock's current time.
func (o *Orchestrator) CurrentTraffic(ctx context.Context) (*models.LoadSample, error) {
	if o.components.Collector == nil {
		return nil, collector.ErrCollectionFailed
	}

	start := time.Now()
	sample, err := o.components.Collector.Collect(ctx, o.Now())
	o.metrics.ObserveCollectionLatency(time.Since(start))
	if err != nil {
		o.metrics.IncCollectionErrors()
		return nil, err
	}

	o.metrics.IncCollections()
	o.metrics.SetCurrentLoad(sample.Requests)
	return sample, nil
}

func (o *Orchestrator) Historical(ctx context.Context, q history.Query) (*models.HistoricalData, error) {
	return history.Load(ctx, o.components.History, q)
}

type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type MetricsSummary struct {
	TotalRecords       int                `json:"total_records"`
	DateRange          DateRange          `json:"date_range"`
	IntervalsAvailable []string           `json:"intervals_available"`
	ModelInfo          forecast.ModelInfo `json:"model_info"`
}

func (o *Orchestrator) MetricsSummary(ctx context.Context) (*MetricsSummary, error) {
	stats, err := o.components.History.Stats(ctx)
	if err != nil {
		return nil, err
	}

	summary := &MetricsSummary{
		TotalRecords:       stats.TotalRecords,
		IntervalsAvailable: history.Intervals(),
		ModelInfo:          o.components.Forecaster.ModelInfo(),
	}
	if stats.TotalRecords > 0 {
		summary.DateRange = DateRange{
			Start: stats.First.UTC().Format(models.TimestampLayout),
			End:   stats.Last.UTC().Format(models.TimestampLayout),
		}
	}
	return summary, nil
}

func (o *Orchestrator) FleetState(ctx context.Context) (scaler.FleetState, error) {
	if o.components.Scaler == nil {
		return scaler.FleetState{}, ErrAutopilotDisabled
	}
	return o.components.Scaler.State(ctx)
}

// ScalingEventHistory is the read side of the persisted scaling audit log.
type ScalingEventHistory interface {
	GetRange(ctx context.Context, from, to time.Time, limit int) ([]models.ScalingEvent, error)
	GetRecent(ctx context.Context, limit int) ([]models.ScalingEvent, error)
	GetStats(ctx context.Context, from, to time.Time) (*queries.ScalingStats, error)
}

// EventHistory returns the audit log reader when scaling events are persisted.
func (o *Orchestrator) EventHistory() (ScalingEventHistory, bool) {
	h, ok := o.components.EventStore.(ScalingEventHistory)
	return h, ok
}

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthCheck reports "ok" or the error text for each checkable component.
func (o *Orchestrator) HealthCheck(ctx context.Context) map[string]string {
	status := map[string]string{
		"forecaster": "ok",
		"decision":   "ok",
		"cost":       "ok",
	}

	check := func(name string, v interface{}) {
		hc, ok := v.(healthChecker)
		if !ok {
			return
		}
		if err := hc.HealthCheck(ctx); err != nil {
			status[name] = err.Error()
			return
		}
		status[name] = "ok"
	}

	if o.components.Collector != nil {
		check("collector", o.components.Collector)
	}
	check("history", o.components.History)
	if cached, ok := o.components.History.(*history.Cached); ok {
		check("history", cached.Store)
	}
	return status
}

func (o *Orchestrator) SubscribeEvents(eventType models.EventType) <-chan *models.Event {
	return o.eventBus.Subscribe(eventType)
}

func (o *Orchestrator) SubscribeAllEvents() <-chan *models.Event {
	return o.eventBus.SubscribeAll()
}

func (o *Orchestrator) Unsubscribe(ch <-chan *models.Event) {
	o.eventBus.Unsubscribe(ch)
}

func (o *Orchestrator) Publisher() *events.Publisher {
	return o.publisher
}
