package decision

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrConfiguration = errors.New("invalid scaling configuration")
	ErrInvalidInput  = errors.New("invalid scaling input")
)

type Config struct {
	MinServers           int           `json:"min_servers"`
	MaxServers           int           `json:"max_servers"`
	CapacityPerServer    float64       `json:"requests_per_server"`
	ScaleOutThresholdPct float64       `json:"scale_out_threshold"`
	ScaleInThresholdPct  float64       `json:"scale_in_threshold"`
	BufferFactor         float64       `json:"buffer_factor"`
	TargetUtilizationPct float64       `json:"target_utilization"`
	Cooldown             time.Duration `json:"-"`
	StartupGrace         time.Duration `json:"-"`
	CostPerServerPerHour float64       `json:"cost_per_server_per_hour"`
}

func DefaultConfig() Config {
	return Config{
		MinServers:           1,
		MaxServers:           50,
		CapacityPerServer:    200,
		ScaleOutThresholdPct: 80,
		ScaleInThresholdPct:  40,
		BufferFactor:         1.2,
		TargetUtilizationPct: 70,
		Cooldown:             2 * time.Minute,
		StartupGrace:         30 * time.Second,
		CostPerServerPerHour: 0.10,
	}
}

func (c Config) Validate() error {
	var errs []error

	if c.MinServers < 1 {
		errs = append(errs, errors.New("min_servers must be >= 1"))
	}
	if c.MaxServers < c.MinServers {
		errs = append(errs, errors.New("max_servers must be >= min_servers"))
	}
	if c.CapacityPerServer <= 0 {
		errs = append(errs, errors.New("requests_per_server must be positive"))
	}
	if c.ScaleInThresholdPct < 0 {
		errs = append(errs, errors.New("scale_in_threshold must not be negative"))
	}
	if c.ScaleInThresholdPct >= c.ScaleOutThresholdPct {
		errs = append(errs, errors.New("scale_in_threshold must be less than scale_out_threshold"))
	}
	if c.BufferFactor < 1 {
		errs = append(errs, errors.New("buffer_factor must be >= 1"))
	}
	if c.TargetUtilizationPct < 0 || c.TargetUtilizationPct > 100 {
		errs = append(errs, errors.New("target_utilization must be between 0 and 100"))
	}
	if c.Cooldown < 0 {
		errs = append(errs, errors.New("cooldown must not be negative"))
	}
	if c.StartupGrace < 0 {
		errs = append(errs, errors.New("startup_grace must not be negative"))
	}
	if c.CostPerServerPerHour < 0 {
		errs = append(errs, errors.New("cost_per_server_per_hour must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %v", ErrConfiguration, errs)
	}
	return nil
}

// ConfigUpdate names the fields to replace; nil fields are left unchanged.
type ConfigUpdate struct {
	MinServers           *int           `json:"min_servers,omitempty"`
	MaxServers           *int           `json:"max_servers,omitempty"`
	CapacityPerServer    *float64       `json:"requests_per_server,omitempty"`
	ScaleOutThresholdPct *float64       `json:"scale_out_threshold,omitempty"`
	ScaleInThresholdPct  *float64       `json:"scale_in_threshold,omitempty"`
	BufferFactor         *float64       `json:"buffer_factor,omitempty"`
	TargetUtilizationPct *float64       `json:"target_utilization,omitempty"`
	Cooldown             *time.Duration `json:"-"`
	StartupGrace         *time.Duration `json:"-"`
	CostPerServerPerHour *float64       `json:"cost_per_server_per_hour,omitempty"`
}

func (u ConfigUpdate) IsEmpty() bool {
	return u == ConfigUpdate{}
}

// Apply returns a copy of c with the update's fields replaced.
func (u ConfigUpdate) Apply(c Config) Config {
	if u.MinServers != nil {
		c.MinServers = *u.MinServers
	}
	if u.MaxServers != nil {
		c.MaxServers = *u.MaxServers
	}
	if u.CapacityPerServer != nil {
		c.CapacityPerServer = *u.CapacityPerServer
	}
	if u.ScaleOutThresholdPct != nil {
		c.ScaleOutThresholdPct = *u.ScaleOutThresholdPct
	}
	if u.ScaleInThresholdPct != nil {
		c.ScaleInThresholdPct = *u.ScaleInThresholdPct
	}
	if u.BufferFactor != nil {
		c.BufferFactor = *u.BufferFactor
	}
	if u.TargetUtilizationPct != nil {
		c.TargetUtilizationPct = *u.TargetUtilizationPct
	}
	if u.Cooldown != nil {
		c.Cooldown = *u.Cooldown
	}
	if u.StartupGrace != nil {
		c.StartupGrace = *u.StartupGrace
	}
	if u.CostPerServerPerHour != nil {
		c.CostPerServerPerHour = *u.CostPerServerPerHour
	}
	return c
}
