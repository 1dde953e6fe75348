package forecast

import (
	"math"
	"time"
)

type PartOfDay int

const (
	Night PartOfDay = iota
	Morning
	Afternoon
	Evening
)

func (p PartOfDay) String() string {
	switch p {
	case Night:
		return "night"
	case Morning:
		return "morning"
	case Afternoon:
		return "afternoon"
	case Evening:
		return "evening"
	default:
		return "unknown"
	}
}

func PartOfDayFor(hour int) PartOfDay {
	switch {
	case hour < 6:
		return Night
	case hour < 12:
		return Morning
	case hour < 18:
		return Afternoon
	default:
		return Evening
	}
}

// FeatureNames is the column order external models are trained on.
var FeatureNames = []string{
	"hour", "dayofweek", "is_weekend", "part_of_day",
	"hour_sin", "hour_cos", "lag_1", "lag_2", "lag_3",
	"rolling_mean", "rolling_std", "rolling_max",
}

// FeatureVector is the predictor input for one horizon. Calendar fields
// describe the target time; lag fields describe the present.
type FeatureVector struct {
	Hour        int       `json:"hour"`
	Minute      int       `json:"minute"`
	DayOfWeek   int       `json:"dayofweek"`
	IsWeekend   bool      `json:"is_weekend"`
	PartOfDay   PartOfDay `json:"part_of_day"`
	HourSin     float64   `json:"hour_sin"`
	HourCos     float64   `json:"hour_cos"`
	Lag1        float64   `json:"lag_1"`
	Lag2        float64   `json:"lag_2"`
	Lag3        float64   `json:"lag_3"`
	RollingMean float64   `json:"rolling_mean"`
	RollingStd  float64   `json:"rolling_std"`
	RollingMax  float64   `json:"rolling_max"`
}

// Values returns the vector in FeatureNames order.
func (f FeatureVector) Values() []float64 {
	weekend := 0.0
	if f.IsWeekend {
		weekend = 1
	}
	return []float64{
		float64(f.Hour), float64(f.DayOfWeek), weekend, float64(f.PartOfDay),
		f.HourSin, f.HourCos, f.Lag1, f.Lag2, f.Lag3,
		f.RollingMean, f.RollingStd, f.RollingMax,
	}
}

func (f FeatureVector) Map() map[string]float64 {
	values := f.Values()
	out := make(map[string]float64, len(values))
	for i, name := range FeatureNames {
		out[name] = values[i]
	}
	return out
}

// Lags holds the three most recent observations, Lag1 being the newest.
type Lags struct {
	Lag1        float64
	Lag2        float64
	Lag3        float64
	RollingMean float64
	RollingStd  float64
	RollingMax  float64
}

// LagsFromSamples uses the last three samples (oldest first ordering).
// It reports false when fewer than three samples are available.
func LagsFromSamples(samples []float64) (Lags, bool) {
	if len(samples) < 3 {
		return Lags{}, false
	}
	recent := samples[len(samples)-3:]
	lags := Lags{Lag1: recent[2], Lag2: recent[1], Lag3: recent[0]}

	mean := (recent[0] + recent[1] + recent[2]) / 3
	var variance float64
	for _, v := range recent {
		variance += (v - mean) * (v - mean)
	}
	lags.RollingMean = mean
	lags.RollingStd = math.Sqrt(variance / 3)
	lags.RollingMax = math.Max(recent[0], math.Max(recent[1], recent[2]))
	return lags, true
}

// ReplicatedLags uses one load estimate for every lag.
func ReplicatedLags(load float64) Lags {
	return Lags{
		Lag1:        load,
		Lag2:        load,
		Lag3:        load,
		RollingMean: load,
		RollingMax:  load,
	}
}

// DayOfWeek numbers days from Monday=0 to Sunday=6.
func DayOfWeek(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func NewFeatureVector(target time.Time, lags Lags) FeatureVector {
	hour := target.Hour()
	dow := DayOfWeek(target)
	angle := 2 * math.Pi * float64(hour) / 24

	return FeatureVector{
		Hour:        hour,
		Minute:      target.Minute(),
		DayOfWeek:   dow,
		IsWeekend:   dow >= 5,
		PartOfDay:   PartOfDayFor(hour),
		HourSin:     math.Sin(angle),
		HourCos:     math.Cos(angle),
		Lag1:        lags.Lag1,
		Lag2:        lags.Lag2,
		Lag3:        lags.Lag3,
		RollingMean: lags.RollingMean,
		RollingStd:  lags.RollingStd,
		RollingMax:  lags.RollingMax,
	}
}
