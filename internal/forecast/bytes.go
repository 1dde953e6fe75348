package forecast

import (
	"math/rand"
	"sync"
)

// DefaultBytesPerRequest is the mean response size observed in the traffic logs.
const DefaultBytesPerRequest = 20000

type ByteSizer interface {
	BytesFor(requests float64) float64
}

// FixedByteSize multiplies requests by a constant response size.
type FixedByteSize float64

func (b FixedByteSize) BytesFor(requests float64) float64 {
	return requests * float64(b)
}

// RandomByteSize draws a per-call response size uniformly from [min, max).
type RandomByteSize struct {
	mu  sync.Mutex
	rng *rand.Rand
	min float64
	max float64
}

func NewRandomByteSize(min, max float64, rng *rand.Rand) *RandomByteSize {
	if max < min {
		min, max = max, min
	}
	return &RandomByteSize{rng: rng, min: min, max: max}
}

func (b *RandomByteSize) BytesFor(requests float64) float64 {
	b.mu.Lock()
	size := b.min + b.rng.Float64()*(b.max-b.min)
	b.mu.Unlock()
	return requests * size
}
