package traffic

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"
)

const (
	MinLoad       = 20
	MaxLoad       = 400
	DefaultNoise  = 0.1
	MinBytesPerRq = 15000
	MaxBytesPerRq = 25000
)

// Generator samples a Pattern with optional gaussian noise. A nil rng
// disables noise, making every sample reproducible.
type Generator struct {
	mu      sync.RWMutex
	pattern Pattern
	rng     *rand.Rand
	noise   float64
}

func NewGenerator(pattern Pattern, rng *rand.Rand) *Generator {
	if pattern == nil {
		pattern = &DailyPattern{}
	}
	return &Generator{pattern: pattern, rng: rng, noise: DefaultNoise}
}

func (g *Generator) Pattern() Pattern {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.pattern
}

func (g *Generator) SetPattern(p Pattern) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pattern = p
}

// Expected is the noise-free load at t, bounded to [MinLoad, MaxLoad].
func (g *Generator) Expected(t time.Time) float64 {
	return bound(g.Pattern().Load(t))
}

// Sample is the load at t with noise applied.
func (g *Generator) Sample(t time.Time) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	load := g.pattern.Load(t)
	if g.rng != nil && g.noise > 0 {
		load += g.rng.NormFloat64() * g.noise * load
	}
	return bound(load)
}

// Bytes estimates transferred bytes for requests.
func (g *Generator) Bytes(requests float64) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	size := float64(MinBytesPerRq+MaxBytesPerRq) / 2
	if g.rng != nil {
		size = MinBytesPerRq + g.rng.Float64()*(MaxBytesPerRq-MinBytesPerRq)
	}
	return requests * size
}

// EstimateLoad satisfies the forecaster's instantaneous load estimate.
func (g *Generator) EstimateLoad(_ context.Context, t time.Time) (float64, error) {
	return g.Expected(t), nil
}

// Series returns samples every step in [start, end).
func (g *Generator) Series(start, end time.Time, step time.Duration) []float64 {
	if step <= 0 || !end.After(start) {
		return nil
	}
	out := make([]float64, 0, int(end.Sub(start)/step)+1)
	for t := start; t.Before(end); t = t.Add(step) {
		out = append(out, g.Sample(t))
	}
	return out
}

func bound(v float64) float64 {
	return math.Max(MinLoad, math.Min(MaxLoad, v))
}
