package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/OldStager01/traffic-autoscaler/internal/logger"
	"github.com/OldStager01/traffic-autoscaler/pkg/models"
)

// HistoryLookup returns up to n observations strictly before ts, oldest first.
type HistoryLookup interface {
	PointsBefore(ctx context.Context, ts time.Time, n int) ([]float64, error)
}

// LoadEstimator supplies the instantaneous load used when no lag history exists.
type LoadEstimator interface {
	EstimateLoad(ctx context.Context, ts time.Time) (float64, error)
}

type LoadEstimatorFunc func(ctx context.Context, ts time.Time) (float64, error)

func (f LoadEstimatorFunc) EstimateLoad(ctx context.Context, ts time.Time) (float64, error) {
	return f(ctx, ts)
}

// LagSource records where the lag features of a forecast came from.
type LagSource string

const (
	LagSourceCaller   LagSource = "caller"
	LagSourceHistory  LagSource = "history"
	LagSourceEstimate LagSource = "estimate"
)

var DefaultHorizons = []int{1, 5, 15}

// Forecaster produces per-horizon traffic forecasts. It keeps no state
// between calls and is safe for concurrent use.
type Forecaster struct {
	primary    Predictor
	fallback   Predictor
	history    HistoryLookup
	estimator  LoadEstimator
	bytes      ByteSizer
	horizons   []int
	onFallback func(predictor string, err error)
}

type Option func(*Forecaster)

// WithPredictor sets the primary predictor, normally a ModelPredictor.
func WithPredictor(p Predictor) Option {
	return func(f *Forecaster) { f.primary = p }
}

// WithFallback replaces the pattern fallback. Passing nil disables fallback.
func WithFallback(p Predictor) Option {
	return func(f *Forecaster) { f.fallback = p }
}

func WithHistory(h HistoryLookup) Option {
	return func(f *Forecaster) { f.history = h }
}

func WithLoadEstimator(e LoadEstimator) Option {
	return func(f *Forecaster) { f.estimator = e }
}

func WithByteSizer(b ByteSizer) Option {
	return func(f *Forecaster) { f.bytes = b }
}

func WithDefaultHorizons(h []int) Option {
	return func(f *Forecaster) {
		if len(h) > 0 {
			f.horizons = append([]int(nil), h...)
		}
	}
}

// WithFallbackHook is called whenever the primary predictor fails and the
// fallback is used instead.
func WithFallbackHook(fn func(predictor string, err error)) Option {
	return func(f *Forecaster) { f.onFallback = fn }
}

func New(opts ...Option) *Forecaster {
	f := &Forecaster{
		fallback: PatternPredictor{},
		bytes:    FixedByteSize(DefaultBytesPerRequest),
		horizons: DefaultHorizons,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Forecast returns one prediction per horizon, in input order. Empty
// horizons use the configured defaults. lagSamples, oldest first, take
// precedence over the history lookup when at least three are given.
func (f *Forecaster) Forecast(ctx context.Context, now time.Time, horizons []int, lagSamples []float64) ([]models.PredictionResult, error) {
	if f.primary == nil && f.fallback == nil {
		return nil, ErrPredictionUnavailable
	}

	if len(horizons) == 0 {
		horizons = f.horizons
	}
	for _, h := range horizons {
		if h < 0 {
			return nil, fmt.Errorf("%w: %d", ErrInvalidHorizon, h)
		}
	}

	lags, source, err := f.resolveLags(ctx, now, lagSamples)
	if err != nil {
		return nil, err
	}

	results := make([]models.PredictionResult, 0, len(horizons))
	for _, h := range horizons {
		target := now.Add(time.Duration(h) * time.Minute)
		features := NewFeatureVector(target, lags)

		raw, predictor, err := f.predict(ctx, features)
		if err != nil {
			return nil, err
		}

		requests := bound(predictor, AdjustForHorizon(raw, h))
		results = append(results, models.PredictionResult{
			HorizonMinutes:    h,
			PredictedRequests: models.Round(requests, 2),
			PredictedBytes:    models.Round(f.bytes.BytesFor(requests), 2),
			Confidence:        Confidence(h),
			Timestamp:         target,
			Predictor:         predictor.Name(),
		})
	}

	logger.Entry(ctx).WithField("component", "forecast").Debugf(
		"Generated %d predictions for %s (lags from %s)",
		len(results), now.Format(models.TimestampLayout), source,
	)

	return results, nil
}

func (f *Forecaster) resolveLags(ctx context.Context, now time.Time, samples []float64) (Lags, LagSource, error) {
	if lags, ok := LagsFromSamples(samples); ok {
		return lags, LagSourceCaller, nil
	}

	if f.history != nil {
		points, err := f.history.PointsBefore(ctx, now, 3)
		if err != nil {
			return Lags{}, "", fmt.Errorf("%w: %v", ErrHistoryUnavailable, err)
		}
		if lags, ok := LagsFromSamples(points); ok {
			return lags, LagSourceHistory, nil
		}
	}

	var load float64
	if f.estimator != nil {
		v, err := f.estimator.EstimateLoad(ctx, now)
		if err != nil {
			return Lags{}, "", fmt.Errorf("failed to estimate current load: %w", err)
		}
		load = v
	}
	return ReplicatedLags(load), LagSourceEstimate, nil
}

func (f *Forecaster) predict(ctx context.Context, features FeatureVector) (float64, Predictor, error) {
	if f.primary != nil {
		v, err := f.primary.Predict(ctx, features)
		if err == nil {
			return v, f.primary, nil
		}
		if f.fallback == nil {
			return 0, nil, fmt.Errorf("%w: %w", ErrPredictionUnavailable, err)
		}

		logger.Entry(ctx).WithField("component", "forecast").Warnf(
			"Predictor %s failed, falling back to %s: %v", f.primary.Name(), f.fallback.Name(), err,
		)
		if f.onFallback != nil {
			f.onFallback(f.primary.Name(), err)
		}
	}

	v, err := f.fallback.Predict(ctx, features)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrPredictionUnavailable, err)
	}
	return v, f.fallback, nil
}

func bound(p Predictor, v float64) float64 {
	if b, ok := p.(Bounded); ok {
		return b.Bound(v)
	}
	return math.Max(0, v)
}

// ModelInfo describes the configured prediction paths.
type ModelInfo struct {
	LoadedModels       []string `json:"loaded_models"`
	Features           []string `json:"features"`
	IntervalsSupported []string `json:"intervals_supported"`
	DefaultHorizons    []int    `json:"default_horizons"`
	Fallback           string   `json:"fallback,omitempty"`
}

func (f *Forecaster) ModelInfo() ModelInfo {
	info := ModelInfo{
		LoadedModels:       []string{},
		Features:           FeatureNames,
		IntervalsSupported: []string{"1m", "5m", "15m"},
		DefaultHorizons:    f.horizons,
	}
	if f.primary != nil {
		if mp, ok := f.primary.(*ModelPredictor); !ok || mp.Available() {
			info.LoadedModels = append(info.LoadedModels, f.primary.Name())
		}
	}
	if f.fallback != nil {
		info.Fallback = f.fallback.Name()
	}
	return info
}

func (f *Forecaster) DefaultHorizons() []int {
	return append([]int(nil), f.horizons...)
}
