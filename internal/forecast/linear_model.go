package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// LinearModel is a regression exported as an intercept plus one weight
// per feature name. Missing weights count as zero.
type LinearModel struct {
	Version   string             `json:"version"`
	Intercept float64            `json:"intercept"`
	Weights   map[string]float64 `json:"weights"`
}

func LoadLinearModel(path string) (*LinearModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}

	var m LinearModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse model file: %w", err)
	}
	for name := range m.Weights {
		if !isFeature(name) {
			return nil, fmt.Errorf("model file references unknown feature %q", name)
		}
	}
	return &m, nil
}

func isFeature(name string) bool {
	for _, f := range FeatureNames {
		if f == name {
			return true
		}
	}
	return false
}

func (m *LinearModel) Predict(_ context.Context, values []float64) (float64, error) {
	if len(values) != len(FeatureNames) {
		return 0, fmt.Errorf("expected %d features, got %d", len(FeatureNames), len(values))
	}
	out := m.Intercept
	for i, name := range FeatureNames {
		out += m.Weights[name] * values[i]
	}
	return out, nil
}
