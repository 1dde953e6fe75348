package decision

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/OldStager01/traffic-autoscaler/internal/clock"
	"github.com/OldStager01/traffic-autoscaler/internal/logger"
	"github.com/OldStager01/traffic-autoscaler/pkg/models"
)

// CostLedger is the subset of the cost tracker the engine drives.
type CostLedger interface {
	RecordEvent(servers int, ts time.Time) error
	Summary(hoursBack float64) models.CostSummary
	SetRate(ratePerServerHour float64) error
	IsEmpty() bool
}

type Engine struct {
	config      Config
	ledger      CostLedger
	clock       clock.Clock
	startedAt   time.Time
	lastScaleAt time.Time
	hasScaled   bool
	mu          sync.Mutex

	// cooldown state before the last applied scale, restored by RevertScale
	prevScaleAt   time.Time
	prevHasScaled bool
}

// NewEngine validates cfg and seeds an empty ledger with cfg.MinServers.
func NewEngine(cfg Config, ledger CostLedger, clk clock.Clock) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.Real()
	}

	now := clk.Now()
	if ledger.IsEmpty() {
		if err := ledger.RecordEvent(cfg.MinServers, now); err != nil {
			return nil, fmt.Errorf("failed to seed cost ledger: %w", err)
		}
	}
	if err := ledger.SetRate(cfg.CostPerServerPerHour); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	return &Engine{
		config:    cfg,
		ledger:    ledger,
		clock:     clk,
		startedAt: now,
	}, nil
}

func validateInput(in models.ScalingInput) error {
	if in.CurrentServers < 0 {
		return fmt.Errorf("%w: current_servers must not be negative", ErrInvalidInput)
	}
	if in.CurrentLoad < 0 || math.IsNaN(in.CurrentLoad) || math.IsInf(in.CurrentLoad, 0) {
		return fmt.Errorf("%w: current_load must be a non-negative number", ErrInvalidInput)
	}
	if in.PredictedLoad < 0 || math.IsNaN(in.PredictedLoad) || math.IsInf(in.PredictedLoad, 0) {
		return fmt.Errorf("%w: predicted_load must be a non-negative number", ErrInvalidInput)
	}
	if u := in.CurrentUtilization; u != nil && (*u < 0 || *u > 100 || math.IsNaN(*u)) {
		return fmt.Errorf("%w: current_utilization must be between 0 and 100", ErrInvalidInput)
	}
	return nil
}

// Recommend evaluates grace, cooldown and thresholds for in. A real
// scale-out or scale-in arms the cooldown and is recorded in the ledger.
func (e *Engine) Recommend(in models.ScalingInput) (*models.ScalingRecommendation, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	cfg := e.config
	now := e.clock.Now()
	log := logger.WithComponent("decision")

	rec := &models.ScalingRecommendation{
		Timestamp:          now,
		CurrentServers:     in.CurrentServers,
		RecommendedServers: e.clamp(in.CurrentServers),
		Confidence:         1.0,
	}

	if elapsed := now.Sub(e.startedAt); elapsed < cfg.StartupGrace {
		rec.Action = models.ActionStartupGrace
		rec.Reason = fmt.Sprintf("Startup grace period active (%.0fs)", cfg.StartupGrace.Seconds())
		rec.Details = map[string]interface{}{
			"startup_grace_remaining": (cfg.StartupGrace - elapsed).Seconds(),
			"accurate_cost_tracking":  e.costSnapshot(),
		}
		log.Debugf("Decision: startup-grace (%s remaining)", cfg.StartupGrace-elapsed)
		return rec, nil
	}

	if remaining := e.cooldownRemaining(now); remaining > 0 {
		rec.Action = models.ActionCooldown
		rec.Reason = fmt.Sprintf("Cooldown period active (remaining: %.1fm)", remaining.Minutes())
		if in.CurrentUtilization != nil {
			rec.EstimatedUtilization = models.Round(*in.CurrentUtilization, 2)
		}
		rec.Details = map[string]interface{}{
			"cooldown_remaining_minutes": remaining.Minutes(),
			"accurate_cost_tracking":     e.costSnapshot(),
		}
		log.Debugf("Decision: cooldown (%.1fm remaining)", remaining.Minutes())
		return rec, nil
	}

	currentUtil := e.utilization(in.CurrentLoad, in.CurrentServers)
	if in.CurrentUtilization != nil {
		currentUtil = *in.CurrentUtilization
	}
	predictedUtil := e.utilization(in.PredictedLoad, in.CurrentServers)
	required := e.requiredServers(in.PredictedLoad)

	action, recommended, reason, confidence := e.decide(in.CurrentServers, required, predictedUtil)
	recommended = e.clamp(recommended)

	rec.Action = action
	rec.RecommendedServers = recommended
	rec.Reason = reason
	rec.Confidence = confidence

	if rec.Applied() {
		if err := e.ledger.RecordEvent(recommended, now); err != nil {
			return nil, fmt.Errorf("failed to record scaling event: %w", err)
		}
		e.prevScaleAt, e.prevHasScaled = e.lastScaleAt, e.hasScaled
		e.lastScaleAt = now
		e.hasScaled = true
		log.Infof("Decision: %s %d -> %d servers (reason: %s)", action, in.CurrentServers, recommended, reason)
	} else {
		log.Debugf("Decision: %s %d servers (reason: %s)", action, recommended, reason)
	}

	estimatedUtil := e.utilization(in.PredictedLoad, recommended)
	rec.EstimatedUtilization = models.Round(estimatedUtil, 2)
	rec.EstimatedCostChange = models.Round(float64(recommended-in.CurrentServers)*cfg.CostPerServerPerHour, 2)

	var loadIncrease float64
	if in.CurrentLoad > 0 {
		loadIncrease = models.Round((in.PredictedLoad-in.CurrentLoad)/in.CurrentLoad*100, 2)
	}

	rec.Details = map[string]interface{}{
		"current_capacity":      float64(in.CurrentServers) * cfg.CapacityPerServer,
		"required_capacity":     float64(required) * cfg.CapacityPerServer,
		"required_servers":      required,
		"current_utilization":   models.Round(currentUtil, 2),
		"predicted_utilization": models.Round(predictedUtil, 2),
		"estimated_utilization": rec.EstimatedUtilization,
		"load_increase":         loadIncrease,
		"scaling_thresholds": map[string]float64{
			"scale_out": cfg.ScaleOutThresholdPct,
			"scale_in":  cfg.ScaleInThresholdPct,
			"target":    cfg.TargetUtilizationPct,
		},
		"accurate_cost_tracking": e.costSnapshot(),
	}

	return rec, nil
}

func (e *Engine) decide(current, required int, predictedUtil float64) (models.ScalingAction, int, string, float64) {
	cfg := e.config

	if predictedUtil > cfg.ScaleOutThresholdPct {
		target := current + 1
		if target > cfg.MaxServers {
			target = cfg.MaxServers
		}
		return models.ActionScaleOut, target,
			fmt.Sprintf("Predicted utilization (%.1f%%) exceeds threshold (%.1f%%)", predictedUtil, cfg.ScaleOutThresholdPct),
			0.9
	}

	if predictedUtil < cfg.ScaleInThresholdPct {
		candidate := current - 1
		if candidate < cfg.MinServers {
			candidate = cfg.MinServers
		}
		if candidate < current {
			return models.ActionScaleIn, candidate,
				fmt.Sprintf("Predicted utilization (%.1f%%) below threshold (%.1f%%)", predictedUtil, cfg.ScaleInThresholdPct),
				0.8
		}
		return models.ActionMaintain, current,
			fmt.Sprintf("Already at minimum servers (min=%d)", cfg.MinServers),
			0.7
	}

	if abs(required-current) > 1 {
		return models.ActionAdjust, required,
			fmt.Sprintf("Adjusting to maintain target utilization (%.1f%%)", cfg.TargetUtilizationPct),
			0.75
	}

	return models.ActionMaintain, current, "Current capacity is adequate for predicted load", 0.85
}

// requiredServers sizes the fleet for load with the buffer applied.
func (e *Engine) requiredServers(load float64) int {
	base := math.Ceil(load / e.config.CapacityPerServer)
	return e.clamp(int(math.Ceil(base * e.config.BufferFactor)))
}

func (e *Engine) utilization(load float64, servers int) float64 {
	capacity := float64(servers) * e.config.CapacityPerServer
	if capacity <= 0 {
		return 0
	}
	return load / capacity * 100
}

func (e *Engine) clamp(servers int) int {
	if servers < e.config.MinServers {
		return e.config.MinServers
	}
	if servers > e.config.MaxServers {
		return e.config.MaxServers
	}
	return servers
}

func (e *Engine) cooldownRemaining(now time.Time) time.Duration {
	if !e.hasScaled {
		return 0
	}
	remaining := e.config.Cooldown - now.Sub(e.lastScaleAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (e *Engine) costSnapshot() map[string]interface{} {
	s := e.ledger.Summary(1)
	return map[string]interface{}{
		"current_hourly_rate":       s.CurrentHourlyRate,
		"average_servers_last_hour": s.AverageServers,
		"total_cost_last_hour":      s.TotalCost,
		"scaling_events_last_hour":  s.ScalingEventsCount,
	}
}

func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.config
}

// UpdateConfig replaces the named fields and re-validates the result.
// On failure the previous configuration stays in effect.
func (e *Engine) UpdateConfig(update ConfigUpdate) (Config, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := update.Apply(e.config)
	if err := next.Validate(); err != nil {
		return e.config, err
	}
	if next.CostPerServerPerHour != e.config.CostPerServerPerHour {
		if err := e.ledger.SetRate(next.CostPerServerPerHour); err != nil {
			return e.config, fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
	}

	e.config = next
	logger.WithComponent("decision").WithFields(map[string]interface{}{
		"min_servers":         next.MinServers,
		"max_servers":         next.MaxServers,
		"requests_per_server": next.CapacityPerServer,
		"scale_out":           next.ScaleOutThresholdPct,
		"scale_in":            next.ScaleInThresholdPct,
		"cooldown":            next.Cooldown.String(),
	}).Info("Updated autoscaling config")

	return next, nil
}

func (e *Engine) CooldownRemaining() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cooldownRemaining(e.clock.Now())
}

func (e *Engine) InStartupGrace() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock.Now().Sub(e.startedAt) < e.config.StartupGrace
}

func (e *Engine) LastScaleTime() (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastScaleAt, e.hasScaled
}

func (e *Engine) StartedAt() time.Time {
	return e.startedAt
}

// RevertScale undoes an applied recommendation the fleet could not carry
// out. The ledger returns to rec.CurrentServers and, when rec was the last
// scale, the cooldown it armed is disarmed.
func (e *Engine) RevertScale(rec *models.ScalingRecommendation) error {
	if rec == nil || !rec.Applied() {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ledger.RecordEvent(rec.CurrentServers, e.clock.Now()); err != nil {
		return fmt.Errorf("failed to revert scaling event: %w", err)
	}
	if e.hasScaled && e.lastScaleAt.Equal(rec.Timestamp) {
		e.lastScaleAt, e.hasScaled = e.prevScaleAt, e.prevHasScaled
	}

	logger.WithComponent("decision").Warnf("Reverted %s %d -> %d servers", rec.Action, rec.CurrentServers, rec.RecommendedServers)
	return nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
