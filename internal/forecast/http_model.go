package forecast

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/OldStager01/traffic-autoscaler/internal/logger"
	"github.com/OldStager01/traffic-autoscaler/internal/resilience"
)

// HTTPModel calls a model-serving endpoint that accepts the feature
// columns and returns a single prediction.
type HTTPModel struct {
	client   *http.Client
	endpoint string
	breaker  *resilience.CircuitBreaker
}

type HTTPModelConfig struct {
	Endpoint      string
	Timeout       time.Duration
	MaxFailures   int
	OpenTimeout   time.Duration
	OnStateChange func(name string, from, to resilience.State)
}

type modelRequest struct {
	Columns []string  `json:"columns"`
	Values  []float64 `json:"values"`
}

type modelResponse struct {
	Prediction *float64 `json:"prediction"`
	Error      string   `json:"error,omitempty"`
}

func NewHTTPModel(cfg HTTPModelConfig) *HTTPModel {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Second
	}

	return &HTTPModel{
		client:   &http.Client{Timeout: timeout},
		endpoint: cfg.Endpoint,
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:          "model",
			MaxFailures:   cfg.MaxFailures,
			Timeout:       cfg.OpenTimeout,
			OnStateChange: cfg.OnStateChange,
		}),
	}
}

func (m *HTTPModel) Predict(ctx context.Context, values []float64) (float64, error) {
	var prediction float64
	err := m.breaker.ExecuteContext(ctx, func(ctx context.Context) error {
		v, err := m.call(ctx, values)
		prediction = v
		return err
	})
	return prediction, err
}

func (m *HTTPModel) call(ctx context.Context, values []float64) (float64, error) {
	payload, err := json.Marshal(modelRequest{Columns: FeatureNames, Values: values})
	if err != nil {
		return 0, fmt.Errorf("failed to encode features: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint+"/predict", bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if traceID := logger.TraceIDFromContext(ctx); traceID != "" {
		req.Header.Set("X-Trace-ID", traceID)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("model request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("failed to read model response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("model returned status %d", resp.StatusCode)
	}

	var out modelResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("invalid model response: %w", err)
	}
	if out.Error != "" {
		return 0, errors.New(out.Error)
	}
	if out.Prediction == nil {
		return 0, errors.New("model response missing prediction")
	}
	return *out.Prediction, nil
}

func (m *HTTPModel) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.endpoint+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

func (m *HTTPModel) CircuitState() resilience.State {
	return m.breaker.State()
}

func (m *HTTPModel) Close() error {
	m.client.CloseIdleConnections()
	return nil
}
