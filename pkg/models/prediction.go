package models

import "time"

// PredictionResult is a single forecast point for one horizon.
type PredictionResult struct {
	HorizonMinutes    int       `json:"interval_minutes"`
	PredictedRequests float64   `json:"predicted_requests"`
	PredictedBytes    float64   `json:"predicted_bytes"`
	Confidence        float64   `json:"confidence"`
	Timestamp         time.Time `json:"timestamp"`
	Predictor         string    `json:"predictor,omitempty"`
}

func (p *PredictionResult) IsHighConfidence(threshold float64) bool {
	return p.Confidence >= threshold
}

// Forecast groups the predictions generated for one reference time.
type Forecast struct {
	Timestamp   time.Time          `json:"timestamp"`
	Predictions []PredictionResult `json:"predictions"`
	Status      string             `json:"status"`
}

// Furthest returns the prediction with the largest horizon, or nil.
func (f *Forecast) Furthest() *PredictionResult {
	var best *PredictionResult
	for i := range f.Predictions {
		if best == nil || f.Predictions[i].HorizonMinutes > best.HorizonMinutes {
			best = &f.Predictions[i]
		}
	}
	return best
}
