package history

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/OldStager01/traffic-autoscaler/pkg/models"
)

const DefaultRedisKey = "autoscaler:traffic"

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	Key       string
	MaxPoints int
}

// RedisStore keeps points in a sorted set scored by unix milliseconds.
type RedisStore struct {
	client    redis.UniversalClient
	key       string
	maxPoints int
}

func NewRedisStore(cfg RedisConfig) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisStoreWithClient(client, cfg.Key, cfg.MaxPoints)
}

func NewRedisStoreWithClient(client redis.UniversalClient, key string, maxPoints int) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	if maxPoints <= 0 {
		maxPoints = DefaultMaxPoints
	}
	return &RedisStore{client: client, key: key, maxPoints: maxPoints}
}

func (s *RedisStore) Append(ctx context.Context, points ...models.TrafficPoint) error {
	if len(points) == 0 {
		return nil
	}

	pipe := s.client.TxPipeline()
	for _, p := range points {
		member, err := encodePoint(p)
		if err != nil {
			return err
		}
		pipe.ZAdd(ctx, s.key, redis.Z{Score: score(p.Timestamp), Member: member})
	}
	pipe.ZRemRangeByRank(ctx, s.key, 0, int64(-s.maxPoints-1))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis append error: %w", err)
	}
	return nil
}

func (s *RedisStore) PointsBefore(ctx context.Context, ts time.Time, n int) ([]float64, error) {
	if n <= 0 {
		return []float64{}, nil
	}

	members, err := s.client.ZRevRangeByScore(ctx, s.key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   "(" + strconv.FormatInt(ts.UnixMilli(), 10),
		Count: int64(n),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis range error: %w", err)
	}

	out := make([]float64, len(members))
	for i, m := range members {
		p, err := decodePoint(m)
		if err != nil {
			return nil, err
		}
		out[len(members)-1-i] = p.Requests
	}
	return out, nil
}

func (s *RedisStore) Range(ctx context.Context, start, end time.Time) ([]models.TrafficPoint, error) {
	members, err := s.client.ZRangeByScore(ctx, s.key, &redis.ZRangeBy{
		Min: strconv.FormatInt(start.UnixMilli(), 10),
		Max: strconv.FormatInt(end.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis range error: %w", err)
	}
	return decodePoints(members)
}

func (s *RedisStore) Stats(ctx context.Context) (Stats, error) {
	count, err := s.client.ZCard(ctx, s.key).Result()
	if err != nil {
		return Stats{}, fmt.Errorf("redis card error: %w", err)
	}

	st := Stats{TotalRecords: int(count)}
	if count == 0 {
		return st, nil
	}

	edges, err := s.client.ZRange(ctx, s.key, 0, 0).Result()
	if err != nil {
		return Stats{}, fmt.Errorf("redis range error: %w", err)
	}
	last, err := s.client.ZRange(ctx, s.key, -1, -1).Result()
	if err != nil {
		return Stats{}, fmt.Errorf("redis range error: %w", err)
	}
	points, err := decodePoints(append(edges, last...))
	if err != nil {
		return Stats{}, err
	}
	st.First = points[0].Timestamp
	st.Last = points[len(points)-1].Timestamp
	return st, nil
}

func (s *RedisStore) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func score(ts time.Time) float64 {
	return float64(ts.UnixMilli())
}

// Members carry the timestamp so equal payloads at different times stay distinct.
func encodePoint(p models.TrafficPoint) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to marshal point: %w", err)
	}
	return string(data), nil
}

func decodePoint(member string) (models.TrafficPoint, error) {
	var p models.TrafficPoint
	if err := json.Unmarshal([]byte(member), &p); err != nil {
		return p, fmt.Errorf("failed to unmarshal point: %w", err)
	}
	return p, nil
}

func decodePoints(members []string) ([]models.TrafficPoint, error) {
	out := make([]models.TrafficPoint, 0, len(members))
	for _, m := range members {
		p, err := decodePoint(m)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
