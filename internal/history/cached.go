package history

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/OldStager01/traffic-autoscaler/pkg/models"
)

// Cached memoizes PointsBefore lookups of a slower store. Concurrent
// lookups for the same key share one backend call. Appends purge the cache
// and bump the generation, so lookups that started before an append are
// neither cached nor shared with later callers.
type Cached struct {
	Store
	lags  *expirable.LRU[string, []float64]
	group singleflight.Group

	mu         sync.Mutex
	generation uint64
}

func NewCached(store Store, size int, ttl time.Duration) *Cached {
	if size <= 0 {
		size = 1024
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cached{
		Store: store,
		lags:  expirable.NewLRU[string, []float64](size, nil, ttl),
	}
}

func (c *Cached) Append(ctx context.Context, points ...models.TrafficPoint) error {
	if err := c.Store.Append(ctx, points...); err != nil {
		return err
	}
	c.mu.Lock()
	c.generation++
	c.lags.Purge()
	c.mu.Unlock()
	return nil
}

func (c *Cached) PointsBefore(ctx context.Context, ts time.Time, n int) ([]float64, error) {
	key := fmt.Sprintf("%d:%d", ts.UnixNano(), n)
	if v, ok := c.lags.Get(key); ok {
		return append([]float64(nil), v...), nil
	}

	c.mu.Lock()
	gen := c.generation
	c.mu.Unlock()

	v, err, _ := c.group.Do(fmt.Sprintf("%s@%d", key, gen), func() (interface{}, error) {
		points, err := c.Store.PointsBefore(ctx, ts, n)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.generation == gen {
			c.lags.Add(key, points)
		}
		c.mu.Unlock()
		return points, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), v.([]float64)...), nil
}

func (c *Cached) CachedLookups() int {
	return c.lags.Len()
}
