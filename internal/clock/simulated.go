package clock

import "time"

// Simulated replays a single day of traffic at an accelerated rate.
// Elapsed real time is multiplied by speed and added to start; the result
// always stays on start's calendar day, wrapping modulo 24h.
type Simulated struct {
	start     time.Time
	speed     float64
	base      Clock
	startedAt time.Time
}

func NewSimulated(start time.Time, speed float64, base Clock) *Simulated {
	if speed <= 0 {
		speed = 1
	}
	if base == nil {
		base = Real()
	}
	return &Simulated{
		start:     start,
		speed:     speed,
		base:      base,
		startedAt: base.Now(),
	}
}

func (s *Simulated) Now() time.Time {
	elapsed := s.base.Now().Sub(s.startedAt)
	y, m, d := s.start.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, s.start.Location())

	offset := s.start.Sub(midnight) + time.Duration(float64(elapsed)*s.speed)
	return midnight.Add(offset % (24 * time.Hour))
}
