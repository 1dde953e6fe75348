package forecast

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday morning
var now = time.Date(1995, 8, 23, 10, 30, 0, 0, time.UTC)

type stubModel struct {
	value float64
	err   error
	calls int
	mu    sync.Mutex
}

func (m *stubModel) Predict(_ context.Context, values []float64) (float64, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.value, m.err
}

type recordingPredictor struct {
	mu       sync.Mutex
	features []FeatureVector
}

func (p *recordingPredictor) Name() string { return "recording" }

func (p *recordingPredictor) Predict(_ context.Context, f FeatureVector) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.features = append(p.features, f)
	return f.Lag1, nil
}

type stubHistory struct {
	points []float64
	err    error
	calls  int
}

func (h *stubHistory) PointsBefore(_ context.Context, _ time.Time, n int) ([]float64, error) {
	h.calls++
	if h.err != nil {
		return nil, h.err
	}
	if len(h.points) > n {
		return h.points[len(h.points)-n:], nil
	}
	return h.points, nil
}

func TestForecaster_PatternPath(t *testing.T) {
	f := New()

	results, err := f.Forecast(context.Background(), now, []int{1, 5, 15}, []float64{80, 90, 100})
	require.NoError(t, err)
	require.Len(t, results, 3)

	// business hours: 100*1.05 + (100-80)/2*0.3 = 108
	expected := []struct {
		horizon    int
		requests   float64
		bytes      float64
		confidence float64
	}{
		{1, 106.92, 2138400, 0.94},
		{5, 108, 2160000, 0.9},
		{15, 115.67, 2313360, 0.8},
	}
	for i, e := range expected {
		r := results[i]
		assert.Equal(t, e.horizon, r.HorizonMinutes)
		assert.InDelta(t, e.requests, r.PredictedRequests, 1e-9)
		assert.InDelta(t, e.bytes, r.PredictedBytes, 1e-6)
		assert.InDelta(t, e.confidence, r.Confidence, 1e-9)
		assert.Equal(t, now.Add(time.Duration(e.horizon)*time.Minute), r.Timestamp)
		assert.Equal(t, "pattern", r.Predictor)
	}
}

func TestForecaster_PreservesHorizonOrder(t *testing.T) {
	f := New()

	results, err := f.Forecast(context.Background(), now, []int{15, 1, 5, 1}, []float64{100, 100, 100})
	require.NoError(t, err)

	var got []int
	for _, r := range results {
		got = append(got, r.HorizonMinutes)
	}
	assert.Equal(t, []int{15, 1, 5, 1}, got)
}

func TestForecaster_DefaultHorizons(t *testing.T) {
	f := New(WithDefaultHorizons([]int{2, 30}))

	results, err := f.Forecast(context.Background(), now, nil, []float64{100, 100, 100})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 2, results[0].HorizonMinutes)
	assert.Equal(t, 30, results[1].HorizonMinutes)
	assert.Equal(t, []int{2, 30}, f.DefaultHorizons())
}

func TestForecaster_CalendarFeaturesUseTargetTime(t *testing.T) {
	rec := &recordingPredictor{}
	f := New(WithPredictor(rec))
	beforeNine := time.Date(1995, 8, 23, 8, 58, 0, 0, time.UTC)

	_, err := f.Forecast(context.Background(), beforeNine, []int{1, 5}, []float64{70, 80, 90})
	require.NoError(t, err)

	require.Len(t, rec.features, 2)
	assert.Equal(t, 8, rec.features[0].Hour)
	assert.Equal(t, 59, rec.features[0].Minute)
	assert.Equal(t, 9, rec.features[1].Hour)
	assert.Equal(t, 3, rec.features[1].Minute)

	// lag features come from the present for every horizon
	for _, fv := range rec.features {
		assert.Equal(t, 90.0, fv.Lag1)
		assert.Equal(t, 80.0, fv.Lag2)
		assert.Equal(t, 70.0, fv.Lag3)
	}
}

func TestForecaster_PatternMultiplierFollowsTarget(t *testing.T) {
	f := New()
	beforeNine := time.Date(1995, 8, 23, 8, 58, 0, 0, time.UTC)

	results, err := f.Forecast(context.Background(), beforeNine, []int{1, 5}, []float64{100, 100, 100})
	require.NoError(t, err)

	assert.InDelta(t, 99.0, results[0].PredictedRequests, 1e-9)
	assert.InDelta(t, 105.0, results[1].PredictedRequests, 1e-9)
}

func TestPatternPredictor_Predict(t *testing.T) {
	lags := Lags{Lag1: 100, Lag2: 90, Lag3: 80}
	wednesday := func(hour int) time.Time { return time.Date(1995, 8, 23, hour, 0, 0, 0, time.UTC) }
	saturday := time.Date(1995, 8, 26, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		at       time.Time
		expected float64
	}{
		{name: "business hours", at: wednesday(10), expected: 108},
		{name: "business hours end", at: wednesday(17), expected: 108},
		{name: "night", at: wednesday(3), expected: 98},
		{name: "late night", at: wednesday(23), expected: 98},
		{name: "evening", at: wednesday(22), expected: 103},
		{name: "weekend business hours", at: saturday, expected: 100*1.05*0.9 + 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := PatternPredictor{}.Predict(context.Background(), NewFeatureVector(tt.at, lags))
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, v, 1e-9)
		})
	}
}

func TestForecaster_PatternClamp(t *testing.T) {
	f := New()

	high, err := f.Forecast(context.Background(), now, []int{5}, []float64{1000, 1000, 1000})
	require.NoError(t, err)
	assert.Equal(t, float64(PatternMax), high[0].PredictedRequests)

	low, err := f.Forecast(context.Background(), now, []int{5}, []float64{0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, float64(PatternMin), low[0].PredictedRequests)
}

func TestForecaster_ModelPath(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		horizon  int
		expected float64
	}{
		{name: "native horizon", value: 200, horizon: 5, expected: 200},
		{name: "short horizon", value: 200, horizon: 1, expected: 198},
		{name: "negative output floored", value: -50, horizon: 15, expected: 0},
		{name: "above pattern range is not clamped", value: 900, horizon: 5, expected: 900},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &stubModel{value: tt.value}
			f := New(WithPredictor(NewModelPredictor("lgbm-5m", model)))

			results, err := f.Forecast(context.Background(), now, []int{tt.horizon}, []float64{1, 2, 3})
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, results[0].PredictedRequests, 1e-9)
			assert.Equal(t, "lgbm-5m", results[0].Predictor)
		})
	}
}

func TestForecaster_FallsBackWhenModelFails(t *testing.T) {
	model := &stubModel{err: errors.New("connection refused")}
	var hooked []string
	f := New(
		WithPredictor(NewModelPredictor("lgbm-5m", model)),
		WithFallbackHook(func(name string, err error) {
			assert.ErrorIs(t, err, ErrModelUnavailable)
			hooked = append(hooked, name)
		}),
	)

	results, err := f.Forecast(context.Background(), now, []int{1, 5}, []float64{80, 90, 100})
	require.NoError(t, err)

	assert.Equal(t, "pattern", results[0].Predictor)
	assert.InDelta(t, 108.0, results[1].PredictedRequests, 1e-9)
	assert.Equal(t, []string{"lgbm-5m", "lgbm-5m"}, hooked)
	assert.Equal(t, 2, model.calls)
}

func TestForecaster_FallsBackWhenModelMissing(t *testing.T) {
	f := New(WithPredictor(NewModelPredictor("lgbm-5m", nil)))

	results, err := f.Forecast(context.Background(), now, []int{5}, []float64{80, 90, 100})
	require.NoError(t, err)
	assert.Equal(t, "pattern", results[0].Predictor)
	assert.Empty(t, f.ModelInfo().LoadedModels)
}

func TestForecaster_PredictionUnavailable(t *testing.T) {
	t.Run("no predictor at all", func(t *testing.T) {
		f := New(WithFallback(nil))

		_, err := f.Forecast(context.Background(), now, []int{5}, nil)
		assert.ErrorIs(t, err, ErrPredictionUnavailable)
	})

	t.Run("model fails without fallback", func(t *testing.T) {
		f := New(WithFallback(nil), WithPredictor(NewModelPredictor("m", &stubModel{err: errors.New("boom")})))

		_, err := f.Forecast(context.Background(), now, []int{5}, []float64{1, 2, 3})
		assert.ErrorIs(t, err, ErrPredictionUnavailable)
		assert.ErrorIs(t, err, ErrModelUnavailable)
	})

	t.Run("model missing without fallback", func(t *testing.T) {
		f := New(WithFallback(nil), WithPredictor(NewModelPredictor("m", nil)))

		_, err := f.Forecast(context.Background(), now, []int{5}, []float64{1, 2, 3})
		assert.ErrorIs(t, err, ErrPredictionUnavailable)
	})
}

func TestForecaster_InvalidHorizon(t *testing.T) {
	_, err := New().Forecast(context.Background(), now, []int{5, -1}, nil)
	assert.ErrorIs(t, err, ErrInvalidHorizon)
}

func TestForecaster_LagPrecedence(t *testing.T) {
	estimator := LoadEstimatorFunc(func(context.Context, time.Time) (float64, error) { return 120, nil })

	tests := []struct {
		name         string
		history      *stubHistory
		callerLags   []float64
		expectedLags [3]float64
		expectedStd  float64
		historyCalls int
	}{
		{
			name:         "caller lags win",
			history:      &stubHistory{points: []float64{1, 2, 3}},
			callerLags:   []float64{50, 60, 70},
			expectedLags: [3]float64{70, 60, 50},
			expectedStd:  8.16496580927726,
			historyCalls: 0,
		},
		{
			name:         "history used when caller supplies too few",
			history:      &stubHistory{points: []float64{10, 40, 20, 30}},
			callerLags:   []float64{99, 99},
			expectedLags: [3]float64{30, 20, 40},
			expectedStd:  8.16496580927726,
			historyCalls: 1,
		},
		{
			name:         "estimate replicated when history is short",
			history:      &stubHistory{points: []float64{5, 6}},
			expectedLags: [3]float64{120, 120, 120},
			historyCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recordingPredictor{}
			f := New(WithPredictor(rec), WithHistory(tt.history), WithLoadEstimator(estimator))

			_, err := f.Forecast(context.Background(), now, []int{5}, tt.callerLags)
			require.NoError(t, err)

			require.Len(t, rec.features, 1)
			fv := rec.features[0]
			assert.Equal(t, tt.expectedLags, [3]float64{fv.Lag1, fv.Lag2, fv.Lag3})
			assert.InDelta(t, tt.expectedStd, fv.RollingStd, 1e-9)
			assert.Equal(t, tt.historyCalls, tt.history.calls)
		})
	}
}

func TestForecaster_EstimateWithoutHistory(t *testing.T) {
	rec := &recordingPredictor{}
	f := New(WithPredictor(rec), WithLoadEstimator(LoadEstimatorFunc(
		func(context.Context, time.Time) (float64, error) { return 75, nil },
	)))

	_, err := f.Forecast(context.Background(), now, []int{1}, nil)
	require.NoError(t, err)
	assert.Equal(t, 75.0, rec.features[0].RollingMean)
	assert.Equal(t, 0.0, rec.features[0].RollingStd)
}

func TestForecaster_CollaboratorErrorsPropagate(t *testing.T) {
	t.Run("history", func(t *testing.T) {
		f := New(WithHistory(&stubHistory{err: errors.New("redis down")}))

		_, err := f.Forecast(context.Background(), now, []int{5}, nil)
		assert.ErrorIs(t, err, ErrHistoryUnavailable)
	})

	t.Run("estimator", func(t *testing.T) {
		boom := errors.New("collector timeout")
		f := New(WithLoadEstimator(LoadEstimatorFunc(func(context.Context, time.Time) (float64, error) {
			return 0, boom
		})))

		_, err := f.Forecast(context.Background(), now, []int{5}, nil)
		assert.ErrorIs(t, err, boom)
	})
}

func TestForecaster_RandomByteSizerIsReproducible(t *testing.T) {
	run := func() []float64 {
		f := New(WithByteSizer(NewRandomByteSize(15000, 25000, rand.New(rand.NewSource(7)))))
		results, err := f.Forecast(context.Background(), now, []int{1, 5, 15}, []float64{100, 100, 100})
		require.NoError(t, err)

		out := make([]float64, len(results))
		for i, r := range results {
			out[i] = r.PredictedBytes
			perRequest := r.PredictedBytes / r.PredictedRequests
			assert.GreaterOrEqual(t, perRequest, 14999.0)
			assert.LessOrEqual(t, perRequest, 25001.0)
		}
		return out
	}

	assert.Equal(t, run(), run())
}

func TestForecaster_ConcurrentCalls(t *testing.T) {
	f := New(WithByteSizer(NewRandomByteSize(15000, 25000, rand.New(rand.NewSource(1)))))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results, err := f.Forecast(context.Background(), now.Add(time.Duration(i)*time.Minute), nil, []float64{90, 95, 100})
			assert.NoError(t, err)
			assert.Len(t, results, 3)
		}(i)
	}
	wg.Wait()
}

func TestForecaster_ModelInfo(t *testing.T) {
	f := New(WithPredictor(NewModelPredictor("lgbm-5m", &stubModel{value: 1})))

	info := f.ModelInfo()

	assert.Equal(t, []string{"lgbm-5m"}, info.LoadedModels)
	assert.Equal(t, FeatureNames, info.Features)
	assert.Equal(t, "pattern", info.Fallback)
	assert.Equal(t, []string{"1m", "5m", "15m"}, info.IntervalsSupported)
}
