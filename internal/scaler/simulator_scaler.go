package scaler

import (
	"context"
	"sync"
	"time"

	"github.com/OldStager01/traffic-autoscaler/internal/clock"
	"github.com/OldStager01/traffic-autoscaler/internal/logger"
)

// SimulatorScaler applies recommendations to an in-memory fleet. No real
// capacity is provisioned.
type SimulatorScaler struct {
	tracker       *StateTracker
	provisionTime time.Duration
	drainTimeout  time.Duration
	maxServers    int
	mu            sync.Mutex
}

type SimulatorConfig struct {
	InitialServers int
	MaxServers     int
	ProvisionTime  time.Duration
	DrainTimeout   time.Duration
	Clock          clock.Clock
	Callbacks      StateCallbacks
}

func NewSimulatorScaler(cfg SimulatorConfig) *SimulatorScaler {
	s := &SimulatorScaler{
		tracker:       NewStateTracker(cfg.Clock, cfg.Callbacks),
		provisionTime: cfg.ProvisionTime,
		drainTimeout:  cfg.DrainTimeout,
		maxServers:    cfg.MaxServers,
	}
	for i := 0; i < cfg.InitialServers; i++ {
		s.tracker.Add(0)
	}
	if cfg.InitialServers > 0 {
		logger.WithComponent("scaler").Infof("Initialized fleet with %d active servers", cfg.InitialServers)
	}
	return s
}

func (s *SimulatorScaler) ScaleTo(ctx context.Context, target int) (*ScaleResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if target < 0 || (s.maxServers > 0 && target > s.maxServers) {
		return nil, ErrInvalidTarget
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.tracker.State().Committed()
	result := &ScaleResult{Before: before, After: target}

	switch {
	case target > before:
		for i := 0; i < target-before; i++ {
			result.ServersAdded = append(result.ServersAdded, s.tracker.Add(s.provisionTime).ID)
		}
		logger.WithComponent("scaler").Infof("Scaling out: adding %d servers", target-before)
	case target < before:
		result.ServersRemoved = s.tracker.Drain(before-target, s.drainTimeout)
		if len(result.ServersRemoved) < before-target {
			result.PartialSuccess = true
			result.After = before - len(result.ServersRemoved)
		}
		logger.WithComponent("scaler").Infof("Scaling in: removing %d servers", len(result.ServersRemoved))
	}

	return result, nil
}

func (s *SimulatorScaler) State(_ context.Context) (FleetState, error) {
	return s.tracker.State(), nil
}

func (s *SimulatorScaler) Servers() []Server {
	return s.tracker.Servers()
}

func (s *SimulatorScaler) Close() error {
	return nil
}
