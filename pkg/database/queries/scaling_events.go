package queries

import (
	"context"
	"database/sql"
	"time"

	"github.com/OldStager01/traffic-autoscaler/pkg/models"
)

type ScalingEventRepository struct {
	db *sql.DB
}

func NewScalingEventRepository(db *sql.DB) *ScalingEventRepository {
	return &ScalingEventRepository{db: db}
}

const scalingEventColumns = `id, timestamp, action, servers_before, servers_after,
			   reason, confidence, predicted_load, estimated_cost_change`

func (r *ScalingEventRepository) GetRange(ctx context.Context, from, to time.Time, limit int) ([]models.ScalingEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT ` + scalingEventColumns + `
		FROM scaling_events
		WHERE timestamp >= $1 AND timestamp <= $2
		ORDER BY timestamp DESC
		LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanScalingEvents(rows)
}

func (r *ScalingEventRepository) GetRecent(ctx context.Context, limit int) ([]models.ScalingEvent, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT ` + scalingEventColumns + `
		FROM scaling_events
		ORDER BY timestamp DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanScalingEvents(rows)
}

func (r *ScalingEventRepository) GetStats(ctx context.Context, from, to time.Time) (*ScalingStats, error) {
	query := `
		SELECT 
			COUNT(*) FILTER (WHERE action = 'scale-out') AS scale_out_count,
			COUNT(*) FILTER (WHERE action = 'scale-in') AS scale_in_count,
			COALESCE(SUM(estimated_cost_change), 0) AS cost_change
		FROM scaling_events
		WHERE timestamp >= $1 AND timestamp <= $2`

	var stats ScalingStats
	err := r.db.QueryRowContext(ctx, query, from, to).Scan(
		&stats.ScaleOutCount, &stats.ScaleInCount, &stats.EstimatedCostChange,
	)
	if err != nil {
		return nil, err
	}

	stats.From = from
	stats.To = to

	return &stats, nil
}

func (r *ScalingEventRepository) Insert(ctx context.Context, event *models.ScalingEvent) error {
	query := `
		INSERT INTO scaling_events 
			(timestamp, action, servers_before, servers_after, 
			 reason, confidence, predicted_load, estimated_cost_change)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	return r.db.QueryRowContext(ctx, query,
		event.Timestamp,
		event.Action,
		event.ServersBefore,
		event.ServersAfter,
		event.Reason,
		event.Confidence,
		event.PredictedLoad,
		event.EstimatedCostDelta,
	).Scan(&event.ID)
}

func scanScalingEvents(rows *sql.Rows) ([]models.ScalingEvent, error) {
	var events []models.ScalingEvent
	for rows.Next() {
		var e models.ScalingEvent
		err := rows.Scan(
			&e.ID, &e.Timestamp, &e.Action,
			&e.ServersBefore, &e.ServersAfter, &e.Reason,
			&e.Confidence, &e.PredictedLoad, &e.EstimatedCostDelta,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

type ScalingStats struct {
	From                time.Time `json:"from"`
	To                  time.Time `json:"to"`
	ScaleOutCount       int       `json:"scale_out_count"`
	ScaleInCount        int       `json:"scale_in_count"`
	EstimatedCostChange float64   `json:"estimated_cost_change"`
}
