package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OldStager01/traffic-autoscaler/pkg/models"
)

var (
	ErrInvalidInterval = errors.New("interval must be one of 1m, 5m, 15m")
	ErrInvalidRange    = errors.New("end time must not be before start time")
)

// Store is a time-ordered record of observed traffic.
type Store interface {
	Append(ctx context.Context, points ...models.TrafficPoint) error
	// PointsBefore returns the request counts of up to n points strictly
	// before ts, oldest first.
	PointsBefore(ctx context.Context, ts time.Time, n int) ([]float64, error)
	// Range returns the points in [start, end], oldest first.
	Range(ctx context.Context, start, end time.Time) ([]models.TrafficPoint, error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

type Stats struct {
	TotalRecords int       `json:"total_records"`
	First        time.Time `json:"first"`
	Last         time.Time `json:"last"`
}

var intervals = map[string]time.Duration{
	"1m":  time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
}

// Intervals lists the supported resampling intervals.
func Intervals() []string {
	return []string{"1m", "5m", "15m"}
}

func ParseInterval(s string) (time.Duration, error) {
	if s == "" {
		s = "5m"
	}
	d, ok := intervals[s]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidInterval, s)
	}
	return d, nil
}

// Resample sums points into buckets aligned to interval. The input must be
// sorted by time.
func Resample(points []models.TrafficPoint, interval time.Duration) []models.TrafficPoint {
	if interval <= 0 || len(points) == 0 {
		return points
	}

	out := make([]models.TrafficPoint, 0, len(points))
	for _, p := range points {
		bucket := p.Timestamp.Truncate(interval)
		if n := len(out); n > 0 && out[n-1].Timestamp.Equal(bucket) {
			out[n-1].Requests += p.Requests
			out[n-1].Bytes += p.Bytes
			out[n-1].Errors += p.Errors
			continue
		}
		out = append(out, models.TrafficPoint{
			Timestamp: bucket,
			Requests:  p.Requests,
			Bytes:     p.Bytes,
			Errors:    p.Errors,
		})
	}
	return out
}

// Query is a resampled window over a store.
type Query struct {
	Start    time.Time
	End      time.Time
	Interval string
	Limit    int
}

// Load runs q against store. When more than Limit buckets match, the most
// recent ones are returned.
func Load(ctx context.Context, store Store, q Query) (*models.HistoricalData, error) {
	interval, err := ParseInterval(q.Interval)
	if err != nil {
		return nil, err
	}
	if q.End.Before(q.Start) {
		return nil, ErrInvalidRange
	}
	if q.Interval == "" {
		q.Interval = "5m"
	}

	points, err := store.Range(ctx, q.Start, q.End)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	resampled := Resample(points, interval)
	if q.Limit > 0 && len(resampled) > q.Limit {
		resampled = resampled[len(resampled)-q.Limit:]
	}
	return models.NewHistoricalData(resampled, q.Interval), nil
}

func requestsOf(points []models.TrafficPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Requests
	}
	return out
}
