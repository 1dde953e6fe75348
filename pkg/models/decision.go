package models

import "time"

type ScalingAction string

const (
	ActionStartupGrace ScalingAction = "startup-grace"
	ActionCooldown     ScalingAction = "cooldown"
	ActionScaleOut     ScalingAction = "scale-out"
	ActionScaleIn      ScalingAction = "scale-in"
	ActionAdjust       ScalingAction = "adjust"
	ActionMaintain     ScalingAction = "maintain"
)

// IsScaling reports whether the action changes the fleet by itself.
func (a ScalingAction) IsScaling() bool {
	return a == ActionScaleOut || a == ActionScaleIn
}

// ScalingInput is the observed and forecast load a recommendation is made for.
type ScalingInput struct {
	CurrentServers     int      `json:"current_servers"`
	CurrentLoad        float64  `json:"current_load"`
	PredictedLoad      float64  `json:"predicted_load"`
	CurrentUtilization *float64 `json:"current_utilization,omitempty"`
}

// ScalingRecommendation is the decision engine's answer for one input.
type ScalingRecommendation struct {
	Timestamp            time.Time              `json:"timestamp"`
	CurrentServers       int                    `json:"current_servers"`
	RecommendedServers   int                    `json:"recommended_servers"`
	Action               ScalingAction          `json:"action"`
	Reason               string                 `json:"reason"`
	Confidence           float64                `json:"confidence"`
	EstimatedUtilization float64                `json:"estimated_utilization"`
	EstimatedCostChange  float64                `json:"estimated_cost_change"`
	Details              map[string]interface{} `json:"details,omitempty"`
}

func (r *ScalingRecommendation) ServerDelta() int {
	return r.RecommendedServers - r.CurrentServers
}

// Applied reports whether the engine recorded this recommendation as a real scale action.
func (r *ScalingRecommendation) Applied() bool {
	return r.Action.IsScaling() && r.ServerDelta() != 0
}
