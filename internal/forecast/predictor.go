package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
)

var (
	ErrModelUnavailable      = errors.New("prediction model unavailable")
	ErrPredictionUnavailable = errors.New("no prediction path available")
	ErrInvalidHorizon        = errors.New("horizon must not be negative")
	ErrHistoryUnavailable    = errors.New("historical lookup failed")
)

// Predictor turns a feature vector into a raw requests-per-minute estimate
// for the native horizon.
type Predictor interface {
	Name() string
	Predict(ctx context.Context, features FeatureVector) (float64, error)
}

// Bounded predictors clamp their own horizon-adjusted output. Predictors
// that don't implement it are floored at zero.
type Bounded interface {
	Bound(value float64) float64
}

const (
	PatternMin = 10
	PatternMax = 500
)

// PatternPredictor extrapolates the most recent lag with a damped trend and
// a calendar multiplier. It needs no model and never fails.
type PatternPredictor struct{}

func (PatternPredictor) Name() string {
	return "pattern"
}

func (PatternPredictor) Predict(_ context.Context, f FeatureVector) (float64, error) {
	base := f.Lag1
	trend := (f.Lag1 - f.Lag3) / 2

	multiplier := 1.0
	switch {
	case f.Hour >= 9 && f.Hour <= 17:
		multiplier = 1.05
	case f.Hour < 6 || f.Hour > 22:
		multiplier = 0.95
	}
	if f.IsWeekend {
		multiplier *= 0.9
	}

	return base*multiplier + trend*0.3, nil
}

func (PatternPredictor) Bound(value float64) float64 {
	return math.Max(PatternMin, math.Min(PatternMax, value))
}

// Model is an externally trained regression over FeatureNames.
type Model interface {
	Predict(ctx context.Context, values []float64) (float64, error)
}

// ModelPredictor adapts a Model. A nil model reports ErrModelUnavailable.
type ModelPredictor struct {
	model Model
	name  string
}

func NewModelPredictor(name string, model Model) *ModelPredictor {
	if name == "" {
		name = "model"
	}
	return &ModelPredictor{model: model, name: name}
}

func (p *ModelPredictor) Name() string {
	return p.name
}

func (p *ModelPredictor) Available() bool {
	return p != nil && p.model != nil
}

func (p *ModelPredictor) Predict(ctx context.Context, f FeatureVector) (float64, error) {
	if !p.Available() {
		return 0, ErrModelUnavailable
	}

	v, err := p.model.Predict(ctx, f.Values())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: non-finite prediction", ErrModelUnavailable)
	}
	return math.Max(0, v), nil
}
