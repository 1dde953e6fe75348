package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/OldStager01/traffic-autoscaler/pkg/models"
)

const DefaultMaxPoints = 100_000

// MemoryStore keeps the most recent points in a sorted slice.
type MemoryStore struct {
	mu        sync.RWMutex
	points    []models.TrafficPoint
	maxPoints int
}

func NewMemoryStore(maxPoints int) *MemoryStore {
	if maxPoints <= 0 {
		maxPoints = DefaultMaxPoints
	}
	return &MemoryStore{maxPoints: maxPoints}
}

func (s *MemoryStore) Append(_ context.Context, points ...models.TrafficPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range points {
		n := len(s.points)
		if n == 0 || !p.Timestamp.Before(s.points[n-1].Timestamp) {
			s.points = append(s.points, p)
			continue
		}
		i := sort.Search(n, func(i int) bool { return s.points[i].Timestamp.After(p.Timestamp) })
		s.points = append(s.points, models.TrafficPoint{})
		copy(s.points[i+1:], s.points[i:])
		s.points[i] = p
	}

	if over := len(s.points) - s.maxPoints; over > 0 {
		s.points = append([]models.TrafficPoint(nil), s.points[over:]...)
	}
	return nil
}

func (s *MemoryStore) PointsBefore(_ context.Context, ts time.Time, n int) ([]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	end := sort.Search(len(s.points), func(i int) bool { return !s.points[i].Timestamp.Before(ts) })
	start := end - n
	if start < 0 {
		start = 0
	}
	return requestsOf(s.points[start:end]), nil
}

func (s *MemoryStore) Range(_ context.Context, start, end time.Time) ([]models.TrafficPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lo := sort.Search(len(s.points), func(i int) bool { return !s.points[i].Timestamp.Before(start) })
	hi := sort.Search(len(s.points), func(i int) bool { return s.points[i].Timestamp.After(end) })
	if hi <= lo {
		return []models.TrafficPoint{}, nil
	}
	return append([]models.TrafficPoint(nil), s.points[lo:hi]...), nil
}

func (s *MemoryStore) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{TotalRecords: len(s.points)}
	if len(s.points) > 0 {
		st.First = s.points[0].Timestamp
		st.Last = s.points[len(s.points)-1].Timestamp
	}
	return st, nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points)
}

func (s *MemoryStore) Close() error {
	return nil
}
