package models

import "time"

// CostPeriod is a closed span of time during which the fleet size was constant.
type CostPeriod struct {
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Servers       int       `json:"servers"`
	DurationHours float64   `json:"duration_hours"`
	Cost          float64   `json:"period_cost"`
	Rate          float64   `json:"rate_per_server_hour"`
}

// CostSummary is a time-weighted view of the ledger over a trailing window.
type CostSummary struct {
	TotalCost          float64 `json:"total_cost"`
	WindowHours        float64 `json:"time_period_hours"`
	AverageServers     float64 `json:"average_servers"`
	CurrentServers     int     `json:"current_servers"`
	CurrentHourlyRate  float64 `json:"current_hourly_rate"`
	ScalingEventsCount int     `json:"scaling_events_count"`
}

// ScalingEvent is the persisted audit record of a real scale action.
type ScalingEvent struct {
	ID                 int           `json:"id"`
	Timestamp          time.Time     `json:"timestamp"`
	Action             ScalingAction `json:"action"`
	ServersBefore      int           `json:"servers_before"`
	ServersAfter       int           `json:"servers_after"`
	Reason             string        `json:"reason"`
	Confidence         float64       `json:"confidence"`
	PredictedLoad      float64       `json:"predicted_load"`
	EstimatedCostDelta float64       `json:"estimated_cost_change"`
}

func NewScalingEvent(rec *ScalingRecommendation, predictedLoad float64) *ScalingEvent {
	return &ScalingEvent{
		Timestamp:          rec.Timestamp,
		Action:             rec.Action,
		ServersBefore:      rec.CurrentServers,
		ServersAfter:       rec.RecommendedServers,
		Reason:             rec.Reason,
		Confidence:         rec.Confidence,
		PredictedLoad:      predictedLoad,
		EstimatedCostDelta: rec.EstimatedCostChange,
	}
}
