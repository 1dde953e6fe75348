package collector

import (
	"context"
	"time"

	"github.com/OldStager01/traffic-autoscaler/internal/logger"
	"github.com/OldStager01/traffic-autoscaler/internal/resilience"
	"github.com/OldStager01/traffic-autoscaler/pkg/models"
)

type ResilientCollector struct {
	collector      Collector
	circuitBreaker *resilience.CircuitBreaker
	retryAttempts  int
	retryDelay     time.Duration
}

type ResilientCollectorConfig struct {
	Collector     Collector
	MaxFailures   int
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	OnStateChange func(name string, from, to resilience.State)
}

func NewResilientCollector(cfg ResilientCollectorConfig) *ResilientCollector {
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 1 * time.Second
	}

	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:          "collector",
		MaxFailures:   cfg.MaxFailures,
		Timeout:       cfg.Timeout,
		OnStateChange: cfg.OnStateChange,
	})

	return &ResilientCollector{
		collector:      cfg.Collector,
		circuitBreaker: cb,
		retryAttempts:  cfg.RetryAttempts,
		retryDelay:     cfg.RetryDelay,
	}
}

// Collect retries the wrapped collector inside one circuit breaker call, so
// a fully failed retry sequence counts as a single failure.
func (c *ResilientCollector) Collect(ctx context.Context, ts time.Time) (*models.LoadSample, error) {
	var sample *models.LoadSample

	err := c.circuitBreaker.ExecuteContext(ctx, func(ctx context.Context) error {
		var lastErr error
		for attempt := 1; attempt <= c.retryAttempts; attempt++ {
			if err := ctx.Err(); err != nil {
				return err
			}

			s, err := c.collector.Collect(ctx, ts)
			if err == nil {
				sample = s
				return nil
			}

			lastErr = err
			logger.WithComponent("collector").Warnf(
				"Collection attempt %d/%d failed: %v",
				attempt, c.retryAttempts, err,
			)

			if attempt < c.retryAttempts {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(c.retryDelay):
				}
			}
		}
		return lastErr
	})

	if err != nil {
		return nil, err
	}

	return sample, nil
}

// EstimateLoad lets the collector stand in as the forecaster's load estimate.
func (c *ResilientCollector) EstimateLoad(ctx context.Context, ts time.Time) (float64, error) {
	s, err := c.Collect(ctx, ts)
	if err != nil {
		return 0, err
	}
	return s.Requests, nil
}

func (c *ResilientCollector) HealthCheck(ctx context.Context) error {
	return c.collector.HealthCheck(ctx)
}

func (c *ResilientCollector) Close() error {
	return c.collector.Close()
}

func (c *ResilientCollector) CircuitState() resilience.State {
	return c.circuitBreaker.State()
}

func (c *ResilientCollector) ResetCircuit() {
	c.circuitBreaker.Reset()
}
