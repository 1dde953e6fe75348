package collector

import (
	"context"
	"errors"
	"time"

	"github.com/OldStager01/traffic-autoscaler/pkg/models"
)

var (
	ErrCollectionFailed = errors.New("traffic collection failed")
	ErrTimeout          = errors.New("collection timeout")
	ErrInvalidResponse  = errors.New("invalid response from data source")
)

// Collector defines the interface for traffic collection
type Collector interface {
	// Collect reports the load observed at ts
	Collect(ctx context.Context, ts time.Time) (*models.LoadSample, error)

	// HealthCheck verifies the collector can reach its data source
	HealthCheck(ctx context.Context) error

	// Close releases any resources held by the collector
	Close() error
}
