package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/OldStager01/traffic-autoscaler/internal/logger"
	"github.com/OldStager01/traffic-autoscaler/pkg/models"
)

type HTTPCollector struct {
	client   *http.Client
	endpoint string
}

type HTTPCollectorConfig struct {
	Endpoint string
	Timeout  time.Duration
}

func NewHTTPCollector(cfg HTTPCollectorConfig) *HTTPCollector {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	return &HTTPCollector{
		client: &http.Client{
			Timeout: timeout,
		},
		endpoint: cfg.Endpoint,
	}
}

// currentTrafficResponse matches the simulator's /traffic/current payload
type currentTrafficResponse struct {
	Timestamp       time.Time `json:"timestamp"`
	CurrentRequests *float64  `json:"current_requests"`
	Bytes           float64   `json:"bytes"`
	Utilization     *float64  `json:"utilization,omitempty"`
}

func (c *HTTPCollector) Collect(ctx context.Context, ts time.Time) (*models.LoadSample, error) {
	u := fmt.Sprintf("%s/traffic/current?at=%s", c.endpoint, url.QueryEscape(ts.UTC().Format(time.RFC3339)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrCollectionFailed, err)
	}

	req.Header.Set("Accept", "application/json")
	if traceID := logger.TraceIDFromContext(ctx); traceID != "" {
		req.Header.Set("X-Trace-ID", traceID)
	}

	logger.WithComponent("collector").Debugf("Collecting traffic from %s", u)

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrCollectionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code %d", ErrCollectionFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrCollectionFailed, err)
	}

	var out currentTrafficResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if out.CurrentRequests == nil || *out.CurrentRequests < 0 {
		return nil, fmt.Errorf("%w: missing or negative current_requests", ErrInvalidResponse)
	}

	timestamp := out.Timestamp
	if timestamp.IsZero() {
		timestamp = ts
	}

	return &models.LoadSample{
		Timestamp:   timestamp,
		Requests:    *out.CurrentRequests,
		Bytes:       out.Bytes,
		Utilization: out.Utilization,
		Source:      "http",
	}, nil
}

func (c *HTTPCollector) HealthCheck(ctx context.Context) error {
	u := fmt.Sprintf("%s/health", c.endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

func (c *HTTPCollector) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
