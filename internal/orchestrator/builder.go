package orchestrator

import (
	"context"
	"fmt"
	"io"
	"math/rand"
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
	"github.com/OldStager01/traffic-autoscaler/internal/resilience"
	"github.com/OldStager01/traffic-autoscaler/internal/scaler"
	"github.com/OldStager01/traffic-autoscaler/internal/traffic"
	"github.com/OldStager01/traffic-autoscaler/pkg/config"
	"github.com/OldStager01/traffic-autoscaler/pkg/database"
	"github.com/OldStager01/traffic-autoscaler/pkg/database/queries"
	"github.com/OldStager01/traffic-autoscaler/pkg/models"
	"github.com/OldStager01/traffic-autoscaler/pkg/validation"
)

// Build wires every component named by cfg. A nil m uses the process-wide
// metrics set.
func Build(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*Orchestrator, error) {
	if m == nil {
		m = metrics.Get()
	}

	b := &builder{cfg: cfg, metrics: m}
	orch, err := b.build(ctx)
	if err != nil {
		b.closeAll()
		return nil, err
	}
	return orch, nil
}

type builder struct {
	cfg     *config.Config
	metrics *metrics.Metrics
	db      *database.DB
	closers []io.Closer
}

func (b *builder) build(ctx context.Context) (*Orchestrator, error) {
	cfg := b.cfg

	trafficClock, err := TrafficClock(cfg.Clock)
	if err != nil {
		return nil, err
	}

	if cfg.NeedsDatabase() {
		db, err := database.New(cfg.Database.ToDBConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		b.db = db
	}

	store, err := b.historyStore(ctx, trafficClock.Now())
	if err != nil {
		return nil, err
	}

	generator := newGenerator(cfg.Collector.Pattern, cfg.Collector.Seed)
	coll := b.collector(generator)

	if cfg.History.BackfillHours > 0 {
		if err := Backfill(ctx, store, generator, trafficClock.Now(), cfg.History.BackfillHours); err != nil {
			logger.Warnf("History backfill failed: %v", err)
		}
	}

	bus := events.NewEventBus(cfg.Events.BufferSize)
	publisher := events.NewPublisher(bus, nil)

	forecaster, err := b.forecaster(store, generator, publisher)
	if err != nil {
		return nil, err
	}

	tracker := cost.NewTracker(cfg.Scaling.CostPerServerPerHour, nil)
	if cfg.Autopilot.Enabled && cfg.Autopilot.InitialServers > 0 {
		if err := tracker.RecordEvent(cfg.Autopilot.InitialServers, time.Now()); err != nil {
			return nil, err
		}
	}

	engine, err := decision.NewEngine(cfg.Scaling.ToDecisionConfig(), tracker, nil)
	if err != nil {
		return nil, err
	}

	fleet := scaler.NewSimulatorScaler(scaler.SimulatorConfig{
		InitialServers: tracker.CurrentServers(),
		MaxServers:     cfg.Scaling.MaxServers,
	})

	var eventStore events.ScalingEventStore
	if cfg.Events.Persist && b.db != nil {
		eventStore = queries.NewScalingEventRepository(b.db.DB)
	}

	if b.db != nil {
		b.closers = append(b.closers, b.db)
	}

	return New(cfg, Components{
		Forecaster:   forecaster,
		Engine:       engine,
		Tracker:      tracker,
		History:      store,
		Collector:    coll,
		Scaler:       fleet,
		EventBus:     bus,
		EventStore:   eventStore,
		Metrics:      b.metrics,
		TrafficClock: trafficClock,
		Closers:      b.closers,
	}), nil
}

func (b *builder) closeAll() {
	for _, c := range b.closers {
		c.Close()
	}
	if b.db != nil {
		b.db.Close()
	}
}

// TrafficClock returns the simulated demo clock when enabled, else the real clock.
func TrafficClock(cfg config.ClockConfig) (clock.Clock, error) {
	if !cfg.Simulated {
		return clock.Real(), nil
	}
	start, err := validation.ParseTimestamp(cfg.Start)
	if err != nil {
		return nil, fmt.Errorf("invalid clock.start: %w", err)
	}
	return clock.NewSimulated(start, cfg.Speed, nil), nil
}

func (b *builder) historyStore(ctx context.Context, now time.Time) (history.Store, error) {
	cfg := b.cfg

	var store history.Store
	switch cfg.History.Type {
	case "", "memory":
		return history.NewMemoryStore(cfg.History.MaxPoints), nil
	case "postgres":
		pg := history.NewPostgresStore(b.db)
		if cfg.History.Retention > 0 {
			if n, err := pg.Prune(ctx, now, cfg.History.Retention); err != nil {
				logger.Warnf("Failed to prune traffic history: %v", err)
			} else if n > 0 {
				logger.Infof("Pruned %d traffic history rows", n)
			}
		}
		store = pg
	case "redis":
		rs := history.NewRedisStore(history.RedisConfig{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			Key:       cfg.Redis.Key,
			MaxPoints: cfg.History.MaxPoints,
		})
		if err := rs.HealthCheck(ctx); err != nil {
			rs.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		store = rs
	default:
		return nil, fmt.Errorf("unknown history type %q", cfg.History.Type)
	}

	b.closers = append(b.closers, store)
	return history.NewCached(store, cfg.History.CacheSize, cfg.History.CacheTTL), nil
}

func newGenerator(pattern string, seed int64) *traffic.Generator {
	var rng *rand.Rand
	if seed != 0 {
		rng = rand.New(rand.NewSource(seed))
	}
	return traffic.NewGenerator(traffic.ParsePattern(pattern), rng)
}

func (b *builder) collector(generator *traffic.Generator) collector.Collector {
	cfg := b.cfg.Collector

	var base collector.Collector
	switch cfg.Type {
	case "http":
		base = collector.NewHTTPCollector(collector.HTTPCollectorConfig{
			Endpoint: cfg.Endpoint,
			Timeout:  cfg.Timeout,
		})
	default:
		base = collector.NewPatternCollector(generator)
	}

	coll := collector.NewResilientCollector(collector.ResilientCollectorConfig{
		Collector:     base,
		MaxFailures:   cfg.CircuitBreaker.MaxFailures,
		Timeout:       cfg.CircuitBreaker.Timeout,
		RetryAttempts: cfg.RetryAttempts,
		RetryDelay:    cfg.RetryDelay,
		OnStateChange: b.breakerStateChanged,
	})
	b.closers = append(b.closers, coll)
	return coll
}

func (b *builder) breakerStateChanged(name string, from, to resilience.State) {
	b.metrics.SetCircuitBreakerState(name, int(to))
	logger.WithComponent(name).Warnf("Circuit breaker %s -> %s", from, to)
}

func (b *builder) forecaster(store history.Store, generator *traffic.Generator, publisher *events.Publisher) (*forecast.Forecaster, error) {
	cfg := b.cfg.Forecast

	opts := []forecast.Option{
		forecast.WithHistory(store),
		forecast.WithLoadEstimator(generator),
		forecast.WithDefaultHorizons(cfg.DefaultHorizons),
		forecast.WithFallbackHook(func(predictor string, err error) {
			b.metrics.IncPredictorFallback(predictor)
			publisher.PredictorFallback(predictor, err)
		}),
	}

	if cfg.ByteJitter {
		rng := rand.New(rand.NewSource(cfg.Seed))
		opts = append(opts, forecast.WithByteSizer(forecast.NewRandomByteSize(traffic.MinBytesPerRq, traffic.MaxBytesPerRq, rng)))
	} else if cfg.BytesPerRequest > 0 {
		opts = append(opts, forecast.WithByteSizer(forecast.FixedByteSize(cfg.BytesPerRequest)))
	}

	if !cfg.PatternFallback {
		opts = append(opts, forecast.WithFallback(nil))
	}

	name := cfg.Model.Name
	if name == "" {
		name = cfg.Model.Type
	}

	switch cfg.Model.Type {
	case "", "none":
	case "linear":
		model, err := forecast.LoadLinearModel(cfg.Model.Path)
		if err != nil {
			// The pattern fallback still serves when the model file is bad.
			logger.Warnf("Failed to load model %s: %v", cfg.Model.Path, err)
			opts = append(opts, forecast.WithPredictor(forecast.NewModelPredictor(name, nil)))
			break
		}
		opts = append(opts, forecast.WithPredictor(forecast.NewModelPredictor(name, model)))
	case "http":
		model := forecast.NewHTTPModel(forecast.HTTPModelConfig{
			Endpoint:      cfg.Model.Endpoint,
			Timeout:       cfg.Model.Timeout,
			MaxFailures:   cfg.Model.CircuitBreaker.MaxFailures,
			OpenTimeout:   cfg.Model.CircuitBreaker.Timeout,
			OnStateChange: b.breakerStateChanged,
		})
		b.closers = append(b.closers, model)
		opts = append(opts, forecast.WithPredictor(forecast.NewModelPredictor(name, model)))
	default:
		return nil, fmt.Errorf("unknown model type %q", cfg.Model.Type)
	}

	return forecast.New(opts...), nil
}

// Backfill seeds an empty store with hours of generated one-minute points
// ending just before end.
func Backfill(ctx context.Context, store history.Store, generator *traffic.Generator, end time.Time, hours int) error {
	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}
	if stats.TotalRecords > 0 {
		return nil
	}

	end = end.Truncate(time.Minute)
	start := end.Add(-time.Duration(hours) * time.Hour)
	series := generator.Series(start, end, time.Minute)

	points := make([]models.TrafficPoint, len(series))
	for i, requests := range series {
		points[i] = models.TrafficPoint{
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Requests:  models.Round(requests, 2),
			Bytes:     models.Round(generator.Bytes(requests), 0),
		}
	}

	logger.Infof("Backfilling %d traffic points from %s", len(points), start.Format(models.TimestampLayout))
	return store.Append(ctx, points...)
}
