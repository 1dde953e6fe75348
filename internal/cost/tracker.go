package cost

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/OldStager01/traffic-autoscaler/internal/clock"
	"github.com/OldStager01/traffic-autoscaler/internal/logger"
	"github.com/OldStager01/traffic-autoscaler/pkg/models"
)

var (
	ErrOutOfOrder         = errors.New("scaling event precedes the open period")
	ErrInvalidServerCount = errors.New("server count must not be negative")
	ErrInvalidRate        = errors.New("cost per server hour must not be negative")
)

// Tracker is an append-only ledger of fleet-size periods. Closed periods
// keep the rate they were billed at; the open period is billed at the
// current rate up to "now".
type Tracker struct {
	mu          sync.RWMutex
	clock       clock.Clock
	rate        float64
	periods     []models.CostPeriod
	openServers int
	openStart   time.Time
}

func NewTracker(ratePerServerHour float64, clk clock.Clock) *Tracker {
	if clk == nil {
		clk = clock.Real()
	}
	return &Tracker{
		clock:     clk,
		rate:      ratePerServerHour,
		openStart: clk.Now(),
	}
}

// RecordEvent closes the open period at ts and opens a new one with servers.
// The first event on an empty ledger only opens a period.
func (t *Tracker) RecordEvent(servers int, ts time.Time) error {
	if servers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidServerCount, servers)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.hasOpenPeriod() {
		if ts.Before(t.openStart) {
			return fmt.Errorf("%w: %s < %s", ErrOutOfOrder,
				ts.Format(time.RFC3339), t.openStart.Format(time.RFC3339))
		}

		hours := models.Hours(ts.Sub(t.openStart))
		period := models.CostPeriod{
			StartTime:     t.openStart,
			EndTime:       ts,
			Servers:       t.openServers,
			DurationHours: hours,
			Cost:          float64(t.openServers) * t.rate * hours,
			Rate:          t.rate,
		}
		t.periods = append(t.periods, period)

		logger.WithComponent("cost").Infof("Recorded scaling period: %d servers for %.2fh = $%.4f",
			period.Servers, period.DurationHours, period.Cost)
	}

	t.openServers = servers
	t.openStart = ts
	return nil
}

func (t *Tracker) hasOpenPeriod() bool {
	return len(t.periods) > 0 || t.openServers > 0
}

// CostOverWindow returns the cost accrued inside [start, end], rounded to 4 places.
func (t *Tracker) CostOverWindow(start, end time.Time) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	total, _, _ := t.accumulate(start, end, t.clock.Now())
	return models.Round(total, 4)
}

// accumulate sums cost, server-hours and covered hours within [start, end].
// The open period ends at now.
func (t *Tracker) accumulate(start, end, now time.Time) (cost, serverHours, hours float64) {
	for _, p := range t.periods {
		h := overlapHours(p.StartTime, p.EndTime, start, end)
		if h <= 0 {
			continue
		}
		cost += h * float64(p.Servers) * p.Rate
		serverHours += h * float64(p.Servers)
		hours += h
	}

	if h := overlapHours(t.openStart, now, start, end); h > 0 {
		cost += h * float64(t.openServers) * t.rate
		serverHours += h * float64(t.openServers)
		hours += h
	}
	return cost, serverHours, hours
}

func overlapHours(pStart, pEnd, wStart, wEnd time.Time) float64 {
	from := pStart
	if wStart.After(from) {
		from = wStart
	}
	to := pEnd
	if wEnd.Before(to) {
		to = wEnd
	}
	if !to.After(from) {
		return 0
	}
	return models.Hours(to.Sub(from))
}

// Summary reports cost over the trailing hoursBack hours ending now.
func (t *Tracker) Summary(hoursBack float64) models.CostSummary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := t.clock.Now()
	start := now.Add(-time.Duration(hoursBack * float64(time.Hour)))

	total, serverHours, hours := t.accumulate(start, now, now)

	var avg float64
	if hours > 0 {
		avg = serverHours / hours
	}

	return models.CostSummary{
		TotalCost:          models.Round(total, 4),
		WindowHours:        hoursBack,
		AverageServers:     models.Round(avg, 2),
		CurrentServers:     t.openServers,
		CurrentHourlyRate:  float64(t.openServers) * t.rate,
		ScalingEventsCount: len(t.periods),
	}
}

// AccountedHours is the closed duration plus the open period's elapsed time.
func (t *Tracker) AccountedHours() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var total float64
	for _, p := range t.periods {
		total += p.DurationHours
	}
	if now := t.clock.Now(); now.After(t.openStart) {
		total += models.Hours(now.Sub(t.openStart))
	}
	return total
}

func (t *Tracker) History() []models.CostPeriod {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]models.CostPeriod, len(t.periods))
	copy(out, t.periods)
	return out
}

// Recent returns at most n of the latest closed periods, oldest first.
func (t *Tracker) Recent(n int) []models.CostPeriod {
	history := t.History()
	if n >= 0 && len(history) > n {
		history = history[len(history)-n:]
	}
	return history
}

func (t *Tracker) IsEmpty() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return !t.hasOpenPeriod()
}

func (t *Tracker) CurrentServers() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.openServers
}

func (t *Tracker) Rate() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rate
}

func (t *Tracker) HourlyRate() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return float64(t.openServers) * t.rate
}

// SetRate changes the rate for the open period and every later one.
func (t *Tracker) SetRate(ratePerServerHour float64) error {
	if ratePerServerHour < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidRate, ratePerServerHour)
	}
	t.mu.Lock()
	t.rate = ratePerServerHour
	t.mu.Unlock()
	return nil
}

func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.periods = nil
	t.openServers = 0
	t.openStart = t.clock.Now()

	logger.WithComponent("cost").Info("Cost tracker reset")
}
