package traffic

import (
	"math"
	"time"
)

// Pattern is a deterministic requests-per-minute curve.
type Pattern interface {
	Load(t time.Time) float64
	Name() string
}

func ParsePattern(name string) Pattern {
	switch name {
	case "steady":
		return &SteadyPattern{Level: 100}
	case "weekly":
		return &WeeklyPattern{}
	default:
		return &DailyPattern{}
	}
}

// DailyPattern peaks around midday on business hours, keeps a smaller
// bump through the extended day and drops at night. Weekends run at 60%.
type DailyPattern struct{}

func (p *DailyPattern) Load(t time.Time) float64 {
	hour := float64(t.Hour())

	var base float64
	switch h := t.Hour(); {
	case h >= 9 && h <= 17:
		base = 120 + 30*math.Sin(math.Pi*(hour-9)/8)
	case h >= 6 && h <= 22:
		base = 80 + 20*math.Sin(math.Pi*(hour-6)/16)
	default:
		base = 30 + 10*math.Sin(math.Pi*hour/12)
	}

	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		base *= 0.6
	}

	return base + 5*math.Sin(math.Pi*float64(t.Minute())/30)
}

func (p *DailyPattern) Name() string {
	return "daily"
}

// WeeklyPattern is the daily curve with a stronger weekend trough.
type WeeklyPattern struct {
	daily DailyPattern
}

func (p *WeeklyPattern) Load(t time.Time) float64 {
	load := p.daily.Load(t)
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return load * 0.75
	}
	return load
}

func (p *WeeklyPattern) Name() string {
	return "weekly"
}

type SteadyPattern struct {
	Level float64
}

func (p *SteadyPattern) Load(time.Time) float64 {
	return p.Level
}

func (p *SteadyPattern) Name() string {
	return "steady"
}

// SurgePattern multiplies another pattern until a deadline.
type SurgePattern struct {
	Base       Pattern
	Multiplier float64
	Until      time.Time
}

func (p *SurgePattern) Load(t time.Time) float64 {
	load := p.Base.Load(t)
	if t.Before(p.Until) {
		return load * p.Multiplier
	}
	return load
}

func (p *SurgePattern) Name() string {
	return p.Base.Name() + "+surge"
}
