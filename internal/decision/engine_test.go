package decision

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/traffic-autoscaler/internal/clock"
	"github.com/OldStager01/traffic-autoscaler/internal/cost"
	"github.com/OldStager01/traffic-autoscaler/pkg/models"
)

var start = time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, cfg Config) (*Engine, *cost.Tracker, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(start)
	tracker := cost.NewTracker(cfg.CostPerServerPerHour, clk)
	engine, err := NewEngine(cfg, tracker, clk)
	require.NoError(t, err)
	return engine, tracker, clk
}

// activeEngine returns an engine whose startup grace has already elapsed.
func activeEngine(t *testing.T, cfg Config) (*Engine, *cost.Tracker, *clock.Fake) {
	t.Helper()
	engine, tracker, clk := newTestEngine(t, cfg)
	clk.Advance(cfg.StartupGrace + time.Second)
	return engine, tracker, clk
}

func input(servers int, load, predicted float64) models.ScalingInput {
	return models.ScalingInput{CurrentServers: servers, CurrentLoad: load, PredictedLoad: predicted}
}

func TestEngine_Recommend_Scenarios(t *testing.T) {
	tests := []struct {
		name               string
		in                 models.ScalingInput
		expectedAction     models.ScalingAction
		expectedServers    int
		expectedConfidence float64
		reasonContains     string
	}{
		{
			name:               "predicted utilization above threshold scales out by one",
			in:                 input(5, 900, 900),
			expectedAction:     models.ActionScaleOut,
			expectedServers:    6,
			expectedConfidence: 0.9,
			reasonContains:     "exceeds threshold",
		},
		{
			name:               "predicted utilization below threshold scales in by one",
			in:                 input(10, 300, 300),
			expectedAction:     models.ActionScaleIn,
			expectedServers:    9,
			expectedConfidence: 0.8,
			reasonContains:     "below threshold",
		},
		{
			name:               "already at minimum",
			in:                 input(1, 20, 20),
			expectedAction:     models.ActionMaintain,
			expectedServers:    1,
			expectedConfidence: 0.7,
			reasonContains:     "minimum",
		},
		{
			name:               "inside the band but buffered requirement differs by two",
			in:                 input(10, 1200, 1200),
			expectedAction:     models.ActionAdjust,
			expectedServers:    8,
			expectedConfidence: 0.75,
			reasonContains:     "target utilization",
		},
		{
			name:               "inside the band and close to requirement",
			in:                 input(5, 600, 600),
			expectedAction:     models.ActionMaintain,
			expectedServers:    5,
			expectedConfidence: 0.85,
			reasonContains:     "adequate",
		},
		{
			name:               "scale out capped at max servers",
			in:                 input(50, 9500, 9500),
			expectedAction:     models.ActionScaleOut,
			expectedServers:    50,
			expectedConfidence: 0.9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, _, _ := activeEngine(t, DefaultConfig())

			rec, err := engine.Recommend(tt.in)

			require.NoError(t, err)
			assert.Equal(t, tt.expectedAction, rec.Action)
			assert.Equal(t, tt.expectedServers, rec.RecommendedServers)
			assert.Equal(t, tt.expectedConfidence, rec.Confidence)
			assert.Contains(t, rec.Reason, tt.reasonContains)
			assert.Equal(t, tt.in.CurrentServers, rec.CurrentServers)
		})
	}
}

func TestEngine_Recommend_ScaleOutDetails(t *testing.T) {
	engine, tracker, clk := activeEngine(t, DefaultConfig())

	rec, err := engine.Recommend(input(5, 900, 900))
	require.NoError(t, err)

	assert.Equal(t, 75.0, rec.EstimatedUtilization)
	assert.InDelta(t, 0.10, rec.EstimatedCostChange, 1e-9)
	assert.Equal(t, 90.0, rec.Details["current_utilization"])
	assert.Equal(t, 90.0, rec.Details["predicted_utilization"])
	assert.Equal(t, 1000.0, rec.Details["current_capacity"])
	assert.Equal(t, 0.0, rec.Details["load_increase"])
	assert.Contains(t, rec.Details, "scaling_thresholds")
	assert.Contains(t, rec.Details, "accurate_cost_tracking")

	// ledger was seeded with min servers and now carries the scale-out
	assert.Equal(t, 6, tracker.CurrentServers())
	history := tracker.History()
	require.Len(t, history, 1)
	assert.Equal(t, 1, history[0].Servers)
	assert.Equal(t, clk.Now(), history[0].EndTime)

	last, ok := engine.LastScaleTime()
	assert.True(t, ok)
	assert.Equal(t, clk.Now(), last)
}

func TestEngine_Recommend_UsesSuppliedUtilization(t *testing.T) {
	engine, _, _ := activeEngine(t, DefaultConfig())
	util := 75.5

	in := input(5, 500, 600)
	in.CurrentUtilization = &util
	rec, err := engine.Recommend(in)

	require.NoError(t, err)
	assert.Equal(t, 75.5, rec.Details["current_utilization"])
	assert.Equal(t, 20.0, rec.Details["load_increase"])
}

func TestEngine_StartupGrace(t *testing.T) {
	engine, tracker, clk := newTestEngine(t, DefaultConfig())

	for _, in := range []models.ScalingInput{input(5, 5000, 9000), input(10, 0, 0), input(3, 600, 600)} {
		rec, err := engine.Recommend(in)
		require.NoError(t, err)
		assert.Equal(t, models.ActionStartupGrace, rec.Action)
		assert.Equal(t, in.CurrentServers, rec.RecommendedServers)
		assert.Equal(t, 1.0, rec.Confidence)
		assert.Equal(t, 0.0, rec.EstimatedUtilization)
	}
	assert.True(t, engine.InStartupGrace())

	clk.Advance(29 * time.Second)
	rec, err := engine.Recommend(input(5, 5000, 9000))
	require.NoError(t, err)
	assert.Equal(t, models.ActionStartupGrace, rec.Action)

	assert.Empty(t, tracker.History())
	_, scaled := engine.LastScaleTime()
	assert.False(t, scaled)

	clk.Advance(time.Second)
	rec, err = engine.Recommend(input(5, 5000, 9000))
	require.NoError(t, err)
	assert.Equal(t, models.ActionScaleOut, rec.Action)
	assert.False(t, engine.InStartupGrace())
}

func TestEngine_Cooldown(t *testing.T) {
	engine, tracker, clk := activeEngine(t, DefaultConfig())

	rec, err := engine.Recommend(input(5, 900, 900))
	require.NoError(t, err)
	require.Equal(t, models.ActionScaleOut, rec.Action)
	scaledAt := clk.Now()

	for _, offset := range []time.Duration{0, 30 * time.Second, time.Minute, 2*time.Minute - time.Millisecond} {
		clk.Set(scaledAt.Add(offset))

		rec, err := engine.Recommend(input(6, 100, 5000))
		require.NoError(t, err)
		assert.Equal(t, models.ActionCooldown, rec.Action)
		assert.Equal(t, 6, rec.RecommendedServers)
		assert.Equal(t, 1.0, rec.Confidence)
		assert.Contains(t, rec.Reason, "remaining")
	}
	assert.Len(t, tracker.History(), 1)

	clk.Set(scaledAt.Add(2 * time.Minute))
	assert.Equal(t, time.Duration(0), engine.CooldownRemaining())

	rec, err = engine.Recommend(input(6, 100, 100))
	require.NoError(t, err)
	assert.Equal(t, models.ActionScaleIn, rec.Action)
	assert.Equal(t, 5, rec.RecommendedServers)
	assert.Len(t, tracker.History(), 2)
}

func TestEngine_CooldownReportsSuppliedUtilization(t *testing.T) {
	engine, _, _ := activeEngine(t, DefaultConfig())
	_, err := engine.Recommend(input(5, 900, 900))
	require.NoError(t, err)

	util := 64.321
	in := input(6, 900, 900)
	in.CurrentUtilization = &util
	rec, err := engine.Recommend(in)

	require.NoError(t, err)
	assert.Equal(t, models.ActionCooldown, rec.Action)
	assert.Equal(t, 64.32, rec.EstimatedUtilization)
	assert.Equal(t, 0.0, rec.EstimatedCostChange)
}

func TestEngine_AdjustAndMaintainDoNotArmCooldown(t *testing.T) {
	engine, tracker, _ := activeEngine(t, DefaultConfig())

	rec, err := engine.Recommend(input(10, 1200, 1200))
	require.NoError(t, err)
	require.Equal(t, models.ActionAdjust, rec.Action)

	rec, err = engine.Recommend(input(5, 600, 600))
	require.NoError(t, err)
	require.Equal(t, models.ActionMaintain, rec.Action)

	_, scaled := engine.LastScaleTime()
	assert.False(t, scaled)
	assert.Empty(t, tracker.History())
}

func TestEngine_RevertScale(t *testing.T) {
	engine, tracker, clk := activeEngine(t, DefaultConfig())

	rec, err := engine.Recommend(input(5, 900, 900))
	require.NoError(t, err)
	require.Equal(t, models.ActionScaleOut, rec.Action)
	require.Equal(t, 6, tracker.CurrentServers())

	clk.Advance(5 * time.Second)
	require.NoError(t, engine.RevertScale(rec))

	assert.Equal(t, 5, tracker.CurrentServers())
	assert.Equal(t, time.Duration(0), engine.CooldownRemaining())
	_, scaled := engine.LastScaleTime()
	assert.False(t, scaled)

	rec, err = engine.Recommend(input(5, 900, 900))
	require.NoError(t, err)
	assert.Equal(t, models.ActionScaleOut, rec.Action)
	assert.Equal(t, 6, rec.RecommendedServers)
}

func TestEngine_RevertScaleRestoresEarlierScale(t *testing.T) {
	engine, tracker, clk := activeEngine(t, DefaultConfig())

	_, err := engine.Recommend(input(5, 900, 900))
	require.NoError(t, err)
	first, _ := engine.LastScaleTime()

	clk.Advance(3 * time.Minute)
	rec, err := engine.Recommend(input(6, 100, 100))
	require.NoError(t, err)
	require.Equal(t, models.ActionScaleIn, rec.Action)

	require.NoError(t, engine.RevertScale(rec))
	last, scaled := engine.LastScaleTime()
	assert.True(t, scaled)
	assert.Equal(t, first, last)
	assert.Equal(t, 6, tracker.CurrentServers())
}

func TestEngine_RevertScaleIgnoresAdvisory(t *testing.T) {
	engine, tracker, _ := activeEngine(t, DefaultConfig())

	rec, err := engine.Recommend(input(5, 600, 600))
	require.NoError(t, err)
	require.Equal(t, models.ActionMaintain, rec.Action)

	require.NoError(t, engine.RevertScale(rec))
	require.NoError(t, engine.RevertScale(nil))
	assert.Empty(t, tracker.History())
}

func TestEngine_BoundedStepUnderSustainedLoad(t *testing.T) {
	cfg := DefaultConfig()
	engine, _, clk := activeEngine(t, cfg)

	servers := 3
	for i := 0; i < 10; i++ {
		predicted := float64(servers) * cfg.CapacityPerServer * 0.95

		rec, err := engine.Recommend(input(servers, predicted, predicted))
		require.NoError(t, err)
		require.Equal(t, models.ActionScaleOut, rec.Action)
		assert.Equal(t, servers+1, rec.RecommendedServers)

		servers = rec.RecommendedServers
		clk.Advance(cfg.Cooldown)
	}
	assert.Equal(t, 13, servers)
}

func TestEngine_RecommendationAlwaysWithinBounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinServers = 2
	cfg.MaxServers = 20
	cfg.Cooldown = 0
	engine, _, _ := activeEngine(t, cfg)

	loads := []float64{0, 1, 150, 399, 400, 1000, 3999, 4000, 8000, 1e6}
	for servers := 0; servers <= 30; servers++ {
		for _, current := range loads {
			for _, predicted := range loads {
				rec, err := engine.Recommend(input(servers, current, predicted))
				require.NoError(t, err)
				assert.GreaterOrEqual(t, rec.RecommendedServers, cfg.MinServers)
				assert.LessOrEqual(t, rec.RecommendedServers, cfg.MaxServers)

				if rec.Action != models.ActionAdjust && servers >= cfg.MinServers && servers <= cfg.MaxServers {
					assert.LessOrEqual(t, abs(rec.ServerDelta()), 1)
				}
			}
		}
	}
}

func TestEngine_ZeroServersGuardsDivision(t *testing.T) {
	engine, _, _ := activeEngine(t, DefaultConfig())

	rec, err := engine.Recommend(input(0, 500, 500))

	require.NoError(t, err)
	assert.Equal(t, 0.0, rec.Details["current_utilization"])
	assert.Equal(t, 0.0, rec.Details["predicted_utilization"])
	assert.Equal(t, 1, rec.RecommendedServers)
}

func TestEngine_ConcurrentRecommendScalesOnce(t *testing.T) {
	engine, tracker, _ := activeEngine(t, DefaultConfig())

	const callers = 50
	results := make([]*models.ScalingRecommendation, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec, err := engine.Recommend(input(5, 900, 900))
			assert.NoError(t, err)
			results[i] = rec
		}(i)
	}
	wg.Wait()

	var scaled, cooling int
	for _, rec := range results {
		switch rec.Action {
		case models.ActionScaleOut:
			scaled++
		case models.ActionCooldown:
			cooling++
		}
	}
	assert.Equal(t, 1, scaled)
	assert.Equal(t, callers-1, cooling)
	assert.Len(t, tracker.History(), 1)
}

func TestEngine_InvalidInput(t *testing.T) {
	engine, _, _ := activeEngine(t, DefaultConfig())
	over := 120.0

	tests := []struct {
		name string
		in   models.ScalingInput
	}{
		{name: "negative servers", in: input(-1, 10, 10)},
		{name: "negative current load", in: input(2, -5, 10)},
		{name: "negative predicted load", in: input(2, 5, -10)},
		{name: "utilization above 100", in: models.ScalingInput{CurrentServers: 2, CurrentUtilization: &over}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Recommend(tt.in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{name: "min above max", modify: func(c *Config) { c.MinServers = 10; c.MaxServers = 5 }},
		{name: "zero min", modify: func(c *Config) { c.MinServers = 0 }},
		{name: "scale in equals scale out", modify: func(c *Config) { c.ScaleInThresholdPct = 80 }},
		{name: "scale in above scale out", modify: func(c *Config) { c.ScaleInThresholdPct = 90 }},
		{name: "zero capacity", modify: func(c *Config) { c.CapacityPerServer = 0 }},
		{name: "buffer below one", modify: func(c *Config) { c.BufferFactor = 0.5 }},
		{name: "negative cooldown", modify: func(c *Config) { c.Cooldown = -time.Second }},
		{name: "negative cost", modify: func(c *Config) { c.CostPerServerPerHour = -0.1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			clk := clock.NewFake(start)

			engine, err := NewEngine(cfg, cost.NewTracker(0.1, clk), clk)

			assert.Nil(t, engine)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestNewEngine_SeedsLedgerOnce(t *testing.T) {
	clk := clock.NewFake(start)
	tracker := cost.NewTracker(0.1, clk)
	require.NoError(t, tracker.RecordEvent(4, start.Add(-time.Hour)))

	_, err := NewEngine(DefaultConfig(), tracker, clk)
	require.NoError(t, err)

	assert.Equal(t, 4, tracker.CurrentServers())
	assert.Empty(t, tracker.History())
}

func TestEngine_UpdateConfig(t *testing.T) {
	engine, tracker, _ := activeEngine(t, DefaultConfig())

	maxServers := 20
	rate := 0.25
	cfg, err := engine.UpdateConfig(ConfigUpdate{MaxServers: &maxServers, CostPerServerPerHour: &rate})
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.MaxServers)
	assert.Equal(t, 20, engine.Config().MaxServers)
	assert.Equal(t, 0.25, tracker.Rate())

	badIn := 90.0
	_, err = engine.UpdateConfig(ConfigUpdate{ScaleInThresholdPct: &badIn})
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Equal(t, 40.0, engine.Config().ScaleInThresholdPct)

	rec, err := engine.Recommend(input(20, 3900, 3900))
	require.NoError(t, err)
	assert.Equal(t, 20, rec.RecommendedServers)
	assert.InDelta(t, 0.0, rec.EstimatedCostChange, 1e-9)
}

type failingLedger struct {
	*cost.Tracker
	fail bool
}

func (f *failingLedger) RecordEvent(servers int, ts time.Time) error {
	if f.fail {
		return errors.New("ledger unavailable")
	}
	return f.Tracker.RecordEvent(servers, ts)
}

func TestEngine_LedgerFailurePropagates(t *testing.T) {
	clk := clock.NewFake(start)
	ledger := &failingLedger{Tracker: cost.NewTracker(0.1, clk)}
	cfg := DefaultConfig()
	engine, err := NewEngine(cfg, ledger, clk)
	require.NoError(t, err)
	clk.Advance(time.Minute)

	ledger.fail = true
	_, err = engine.Recommend(input(5, 900, 900))
	assert.Error(t, err)

	_, scaled := engine.LastScaleTime()
	assert.False(t, scaled)
}
