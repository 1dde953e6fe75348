package history

import (
	"context"
	"fmt"
	"time"

	"github.com/OldStager01/traffic-autoscaler/pkg/database"
	"github.com/OldStager01/traffic-autoscaler/pkg/database/queries"
	"github.com/OldStager01/traffic-autoscaler/pkg/models"
)

// PostgresStore persists history in the traffic_history table.
type PostgresStore struct {
	db   *database.DB
	repo *queries.TrafficRepository
}

func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db, repo: queries.NewTrafficRepository(db.DB)}
}

func (s *PostgresStore) Append(ctx context.Context, points ...models.TrafficPoint) error {
	if err := s.repo.InsertBatch(ctx, points); err != nil {
		return fmt.Errorf("failed to insert traffic points: %w", err)
	}
	return nil
}

func (s *PostgresStore) PointsBefore(ctx context.Context, ts time.Time, n int) ([]float64, error) {
	if n <= 0 {
		return []float64{}, nil
	}
	newestFirst, err := s.repo.GetBefore(ctx, ts, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query traffic history: %w", err)
	}

	out := make([]float64, len(newestFirst))
	for i, v := range newestFirst {
		out[len(newestFirst)-1-i] = v
	}
	return out, nil
}

func (s *PostgresStore) Range(ctx context.Context, start, end time.Time) ([]models.TrafficPoint, error) {
	points, err := s.repo.GetRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query traffic history: %w", err)
	}
	for i := range points {
		points[i].Timestamp = points[i].Timestamp.UTC()
	}
	return points, nil
}

func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	raw, err := s.repo.GetStats(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to query traffic stats: %w", err)
	}
	st := Stats{TotalRecords: raw.Count}
	if raw.First.Valid {
		st.First = raw.First.Time.UTC()
	}
	if raw.Last.Valid {
		st.Last = raw.Last.Time.UTC()
	}
	return st, nil
}

// Prune removes points older than retention.
func (s *PostgresStore) Prune(ctx context.Context, now time.Time, retention time.Duration) (int64, error) {
	return s.repo.DeleteOlderThan(ctx, now.Add(-retention))
}

func (s *PostgresStore) HealthCheck(ctx context.Context) error {
	return s.db.HealthCheck(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
