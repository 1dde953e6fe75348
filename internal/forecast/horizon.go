package forecast

import (
	"math"

	"github.com/OldStager01/traffic-autoscaler/pkg/models"
)

// NativeHorizon is the horizon, in minutes, predictors are calibrated for.
const NativeHorizon = 5

// AdjustForHorizon scales a raw prediction for the requested horizon.
func AdjustForHorizon(raw float64, horizonMinutes int) float64 {
	switch {
	case horizonMinutes <= 1:
		return raw * 0.99
	case horizonMinutes <= NativeHorizon:
		return raw
	default:
		steps := horizonMinutes / NativeHorizon
		if steps < 1 {
			steps = 1
		}
		return raw * (1 + float64(steps-1)*0.01) * 1.05
	}
}

// Confidence decays by one point per minute of horizon, floored at 0.6.
func Confidence(horizonMinutes int) float64 {
	penalty := math.Min(0.3, 0.01*float64(horizonMinutes))
	return models.Round(math.Max(0.6, 0.95-penalty), 3)
}
