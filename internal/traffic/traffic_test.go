package traffic

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 1995-08-23 was a Wednesday.
func weekday(hour, minute int) time.Time {
	return time.Date(1995, 8, 23, hour, minute, 0, 0, time.UTC)
}

func TestDailyPattern_Load(t *testing.T) {
	p := &DailyPattern{}

	tests := []struct {
		name     string
		at       time.Time
		expected float64
	}{
		{name: "business hours start", at: weekday(9, 0), expected: 120},
		{name: "business peak", at: weekday(13, 0), expected: 150},
		{name: "extended hours", at: weekday(18, 0), expected: 80 + 20*math.Sin(math.Pi*12/16)},
		{name: "night", at: weekday(3, 0), expected: 30 + 10*math.Sin(math.Pi*3/12)},
		{name: "minute variation", at: weekday(9, 15), expected: 120 + 5},
		{name: "weekend", at: time.Date(1995, 8, 26, 13, 0, 0, 0, time.UTC), expected: 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, p.Load(tt.at), 1e-9)
		})
	}
}

func TestGenerator_ExpectedIsBounded(t *testing.T) {
	g := NewGenerator(&SteadyPattern{Level: 5}, nil)
	assert.Equal(t, float64(MinLoad), g.Expected(weekday(1, 0)))

	g.SetPattern(&SteadyPattern{Level: 1000})
	assert.Equal(t, float64(MaxLoad), g.Expected(weekday(1, 0)))
}

func TestGenerator_SampleIsReproducibleWithSeed(t *testing.T) {
	a := NewGenerator(&DailyPattern{}, rand.New(rand.NewSource(42)))
	b := NewGenerator(&DailyPattern{}, rand.New(rand.NewSource(42)))

	start := weekday(8, 0)
	seriesA := a.Series(start, start.Add(time.Hour), time.Minute)
	seriesB := b.Series(start, start.Add(time.Hour), time.Minute)

	require.Len(t, seriesA, 60)
	assert.Equal(t, seriesA, seriesB)
	for _, v := range seriesA {
		assert.GreaterOrEqual(t, v, float64(MinLoad))
		assert.LessOrEqual(t, v, float64(MaxLoad))
	}
}

func TestGenerator_NoNoiseWithoutRand(t *testing.T) {
	g := NewGenerator(nil, nil)
	at := weekday(13, 0)

	assert.Equal(t, g.Expected(at), g.Sample(at))
	assert.Equal(t, 20000.0*10, g.Bytes(10))

	v, err := g.EstimateLoad(context.Background(), at)
	require.NoError(t, err)
	assert.InDelta(t, 150.0, v, 1e-9)
}

func TestSurgePattern(t *testing.T) {
	until := weekday(12, 0)
	p := &SurgePattern{Base: &SteadyPattern{Level: 100}, Multiplier: 2, Until: until}

	assert.Equal(t, 200.0, p.Load(until.Add(-time.Minute)))
	assert.Equal(t, 100.0, p.Load(until))
	assert.Equal(t, "steady+surge", p.Name())
}

func TestParsePattern(t *testing.T) {
	assert.Equal(t, "daily", ParsePattern("daily").Name())
	assert.Equal(t, "weekly", ParsePattern("weekly").Name())
	assert.Equal(t, "steady", ParsePattern("steady").Name())
	assert.Equal(t, "daily", ParsePattern("unknown").Name())
}
