package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

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
	"github.com/OldStager01/traffic-autoscaler/pkg/models"
)

const lagCount = 3

type PipelineConfig struct {
	Interval   time.Duration
	Horizon    int
	Collector  collector.Collector
	History    history.Store
	Forecaster *forecast.Forecaster
	Engine     *decision.Engine
	Tracker    *cost.Tracker
	Scaler     scaler.Scaler
	Publisher  *events.Publisher
	Metrics    *metrics.Metrics
	// Clock is the traffic clock samples and forecasts are taken at.
	Clock clock.Clock
}

// CycleResult is what one autopilot cycle observed and decided.
type CycleResult struct {
	Sample         *models.LoadSample
	Forecast       []models.PredictionResult
	Recommendation *models.ScalingRecommendation
	Scale          *scaler.ScaleResult
}

type Pipeline struct {
	config  PipelineConfig
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Interval == 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Horizon <= 0 {
		cfg.Horizon = forecast.NativeHorizon
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Get()
	}

	return &Pipeline{config: cfg}
}

func (p *Pipeline) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}

	// Each run gets its own context so a stopped pipeline can start again.
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.running = true
	p.wg.Add(1)
	go p.run(ctx)

	logger.WithComponent("autopilot").Infof("Autopilot started, interval %s", p.config.Interval)
	return nil
}

func (p *Pipeline) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cancel := p.cancel
	p.mu.Unlock()

	cancel()
	p.wg.Wait()

	logger.WithComponent("autopilot").Info("Autopilot stopped")
}

func (p *Pipeline) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Pipeline) run(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	// Run immediately on start
	p.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runCycle(ctx)
		}
	}
}

func (p *Pipeline) runCycle(parent context.Context) {
	timeout := p.config.Interval - time.Second
	if timeout <= 0 {
		timeout = p.config.Interval
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	start := time.Now()
	if _, err := p.RunOnce(ctx); err != nil {
		logger.WithComponent("autopilot").Errorf("Cycle failed: %v", err)
		p.config.Publisher.Error("Autopilot cycle failed", err)
	}
	p.config.Metrics.ObserveCycleLatency(time.Since(start))
}

// RunOnce executes a single collect, record, forecast, recommend and apply
// cycle at the traffic clock's current time.
func (p *Pipeline) RunOnce(ctx context.Context) (*CycleResult, error) {
	now := p.config.Clock.Now()
	log := logger.WithComponent("autopilot")

	// Step 1: Collect traffic and read lags in parallel
	sample, lags, err := p.collect(ctx, now)
	if err != nil {
		return nil, err
	}

	// Step 2: Record the observation
	if err := p.config.History.Append(ctx, sample.ToPoint()); err != nil {
		log.Warnf("Failed to record traffic point: %v", err)
	}

	// Step 3: Forecast
	predictions, err := p.forecast(ctx, now, lags)
	if err != nil {
		return nil, err
	}

	// Step 4: Recommend against the committed fleet size
	state, err := p.config.Scaler.State(ctx)
	if err != nil {
		return nil, err
	}

	predicted := predictionFor(predictions, p.config.Horizon)
	rec, err := p.config.Engine.Recommend(models.ScalingInput{
		CurrentServers:     state.Committed(),
		CurrentLoad:        sample.Requests,
		PredictedLoad:      predicted,
		CurrentUtilization: sample.Utilization,
	})
	if err != nil {
		return nil, err
	}
	observeRecommendation(p.config.Metrics, p.config.Tracker, p.config.Publisher, rec, predicted)

	result := &CycleResult{Sample: sample, Forecast: predictions, Recommendation: rec}

	// Step 5: Apply real scale actions to the fleet
	if rec.Applied() {
		scale, err := p.config.Scaler.ScaleTo(ctx, rec.RecommendedServers)
		if err != nil {
			if rerr := p.config.Engine.RevertScale(rec); rerr != nil {
				log.Errorf("Cost ledger diverged from fleet: ledger at %d servers, fleet at %d: %v",
					rec.RecommendedServers, rec.CurrentServers, rerr)
			}
			return result, fmt.Errorf("failed to apply %s to %d servers: %w", rec.Action, rec.RecommendedServers, err)
		}
		result.Scale = scale
		if scale.PartialSuccess {
			log.Warnf("Partial scale: fleet at %d servers, ledger at %d", scale.After, rec.RecommendedServers)
		}
		log.Infof("Scaling applied: %s %d -> %d servers", rec.Action, scale.Before, scale.After)
	}

	return result, nil
}

func (p *Pipeline) collect(ctx context.Context, now time.Time) (*models.LoadSample, []float64, error) {
	var (
		sample *models.LoadSample
		lags   []float64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		s, err := p.config.Collector.Collect(gctx, now)
		p.config.Metrics.ObserveCollectionLatency(time.Since(start))
		if err != nil {
			p.config.Metrics.IncCollectionErrors()
			return err
		}
		sample = s
		return nil
	})
	g.Go(func() error {
		l, err := p.config.History.PointsBefore(gctx, now, lagCount)
		if err != nil {
			// The forecaster falls back to its own lookup or the estimate.
			logger.WithComponent("autopilot").Warnf("Lag lookup failed: %v", err)
			return nil
		}
		lags = l
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	p.config.Metrics.IncCollections()
	p.config.Metrics.SetCurrentLoad(sample.Requests)
	p.config.Publisher.TrafficCollected(sample)
	return sample, lags, nil
}

func (p *Pipeline) forecast(ctx context.Context, now time.Time, lags []float64) ([]models.PredictionResult, error) {
	horizons := p.config.Forecaster.DefaultHorizons()
	if !containsHorizon(horizons, p.config.Horizon) {
		horizons = append(horizons, p.config.Horizon)
	}

	predictions, err := p.config.Forecaster.Forecast(ctx, now, horizons, lags)
	if err != nil {
		return nil, err
	}

	for _, pr := range predictions {
		p.config.Metrics.IncForecast(pr.Predictor)
		p.config.Metrics.SetPredictedLoad(pr.HorizonMinutes, pr.PredictedRequests)
	}
	p.config.Publisher.ForecastGenerated(&models.Forecast{
		Timestamp:   now,
		Predictions: predictions,
		Status:      "success",
	})
	return predictions, nil
}

func containsHorizon(horizons []int, h int) bool {
	for _, v := range horizons {
		if v == h {
			return true
		}
	}
	return false
}

// predictionFor returns the predicted requests at horizon, or at the
// furthest horizon when it was not forecast.
func predictionFor(predictions []models.PredictionResult, horizon int) float64 {
	for _, pr := range predictions {
		if pr.HorizonMinutes == horizon {
			return pr.PredictedRequests
		}
	}
	f := &models.Forecast{Predictions: predictions}
	if furthest := f.Furthest(); furthest != nil {
		return furthest.PredictedRequests
	}
	return 0
}
