package collector

import (
	"context"
	"sync"
	"time"

	"github.com/OldStager01/traffic-autoscaler/internal/traffic"
	"github.com/OldStager01/traffic-autoscaler/pkg/models"
)

// PatternCollector reads load from an in-process traffic generator. It is
// the default source when no simulator endpoint is configured.
type PatternCollector struct {
	generator *traffic.Generator

	mu           sync.RWMutex
	shouldFail   bool
	failureError error
}

func NewPatternCollector(generator *traffic.Generator) *PatternCollector {
	if generator == nil {
		generator = traffic.NewGenerator(nil, nil)
	}
	return &PatternCollector{generator: generator}
}

func (c *PatternCollector) Generator() *traffic.Generator {
	return c.generator
}

// SetShouldFail makes Collect and HealthCheck fail with err, or with
// ErrCollectionFailed when err is nil.
func (c *PatternCollector) SetShouldFail(shouldFail bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shouldFail = shouldFail
	c.failureError = err
}

func (c *PatternCollector) failure() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.shouldFail {
		return nil
	}
	if c.failureError != nil {
		return c.failureError
	}
	return ErrCollectionFailed
}

func (c *PatternCollector) Collect(ctx context.Context, ts time.Time) (*models.LoadSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.failure(); err != nil {
		return nil, err
	}

	requests := models.Round(c.generator.Sample(ts), 2)
	return &models.LoadSample{
		Timestamp: ts,
		Requests:  requests,
		Bytes:     models.Round(c.generator.Bytes(requests), 2),
		Source:    "pattern:" + c.generator.Pattern().Name(),
	}, nil
}

func (c *PatternCollector) HealthCheck(ctx context.Context) error {
	return c.failure()
}

func (c *PatternCollector) Close() error {
	return nil
}
