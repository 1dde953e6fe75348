package config

import (
	"github.com/OldStager01/traffic-autoscaler/internal/decision"
)

func (s ScalingConfig) ToDecisionConfig() decision.Config {
	return decision.Config{
		MinServers:           s.MinServers,
		MaxServers:           s.MaxServers,
		CapacityPerServer:    s.RequestsPerServer,
		ScaleOutThresholdPct: s.ScaleOutThreshold,
		ScaleInThresholdPct:  s.ScaleInThreshold,
		BufferFactor:         s.BufferFactor,
		TargetUtilizationPct: s.TargetUtilization,
		Cooldown:             s.Cooldown,
		StartupGrace:         s.StartupGrace,
		CostPerServerPerHour: s.CostPerServerPerHour,
	}
}
