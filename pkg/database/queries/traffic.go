package queries

import (
	"context"
	"database/sql"
	"time"

	"github.com/OldStager01/traffic-autoscaler/pkg/models"
)

type TrafficRepository struct {
	db *sql.DB
}

func NewTrafficRepository(db *sql.DB) *TrafficRepository {
	return &TrafficRepository{db: db}
}

// TrafficStats describes the extent of the stored history.
type TrafficStats struct {
	Count int
	First sql.NullTime
	Last  sql.NullTime
}

func (r *TrafficRepository) InsertBatch(ctx context.Context, points []models.TrafficPoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO traffic_history (time, requests, bytes, errors)
		VALUES ($1, $2, $3, $4)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, p.Timestamp, p.Requests, p.Bytes, p.Errors); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetBefore returns up to limit request counts strictly before ts, newest first.
func (r *TrafficRepository) GetBefore(ctx context.Context, ts time.Time, limit int) ([]float64, error) {
	query := `
		SELECT requests
		FROM traffic_history
		WHERE time < $1
		ORDER BY time DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, ts, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}

	return values, rows.Err()
}

func (r *TrafficRepository) GetRange(ctx context.Context, from, to time.Time) ([]models.TrafficPoint, error) {
	query := `
		SELECT time, requests, bytes, errors
		FROM traffic_history
		WHERE time >= $1 AND time <= $2
		ORDER BY time ASC`

	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := []models.TrafficPoint{}
	for rows.Next() {
		var p models.TrafficPoint
		if err := rows.Scan(&p.Timestamp, &p.Requests, &p.Bytes, &p.Errors); err != nil {
			return nil, err
		}
		points = append(points, p)
	}

	return points, rows.Err()
}

func (r *TrafficRepository) GetStats(ctx context.Context) (*TrafficStats, error) {
	query := `SELECT COUNT(*), MIN(time), MAX(time) FROM traffic_history`

	var stats TrafficStats
	if err := r.db.QueryRowContext(ctx, query).Scan(&stats.Count, &stats.First, &stats.Last); err != nil {
		return nil, err
	}
	return &stats, nil
}

// DeleteOlderThan prunes history and returns the number of removed rows.
func (r *TrafficRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM traffic_history WHERE time < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
