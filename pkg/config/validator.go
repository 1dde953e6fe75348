package config

import (
	"errors"
	"fmt"
)

func (c *Config) Validate() error {
	var errs []error

	// App validation
	if c.App.Name == "" {
		errs = append(errs, errors.New("app.name is required"))
	}

	validModes := map[string]bool{"development": true, "production": true, "test": true}
	if !validModes[c.App.Mode] {
		errs = append(errs, fmt.Errorf("app.mode must be one of: development, production, test"))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.App.LogLevel] {
		errs = append(errs, fmt.Errorf("app.log_level must be one of: debug, info, warn, error"))
	}

	// Clock validation
	if c.Clock.Simulated && c.Clock.Speed <= 0 {
		errs = append(errs, errors.New("clock.speed must be positive"))
	}

	// Scaling validation
	if err := c.Scaling.ToDecisionConfig().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("scaling: %w", err))
	}

	// Forecast validation
	for _, h := range c.Forecast.DefaultHorizons {
		if h < 0 {
			errs = append(errs, errors.New("forecast.default_horizons must not contain negative values"))
			break
		}
	}
	if c.Forecast.BytesPerRequest < 0 {
		errs = append(errs, errors.New("forecast.bytes_per_request must not be negative"))
	}
	switch c.Forecast.Model.Type {
	case "", "none":
	case "linear":
		if c.Forecast.Model.Path == "" {
			errs = append(errs, errors.New("forecast.model.path is required for linear models"))
		}
	case "http":
		if c.Forecast.Model.Endpoint == "" {
			errs = append(errs, errors.New("forecast.model.endpoint is required for http models"))
		}
	default:
		errs = append(errs, errors.New("forecast.model.type must be one of: none, linear, http"))
	}
	if c.Forecast.Model.Type == "none" && !c.Forecast.PatternFallback {
		errs = append(errs, errors.New("forecast.pattern_fallback must be enabled when no model is configured"))
	}

	// History validation
	validHistory := map[string]bool{"memory": true, "postgres": true, "redis": true}
	if !validHistory[c.History.Type] {
		errs = append(errs, errors.New("history.type must be one of: memory, postgres, redis"))
	}
	if c.History.Type == "redis" && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required for redis history"))
	}
	if c.History.BackfillHours < 0 {
		errs = append(errs, errors.New("history.backfill_hours must not be negative"))
	}

	// Collector validation
	switch c.Collector.Type {
	case "pattern":
	case "http":
		if c.Collector.Endpoint == "" {
			errs = append(errs, errors.New("collector.endpoint is required for http collector"))
		}
		if c.Collector.Timeout <= 0 {
			errs = append(errs, errors.New("collector.timeout must be positive"))
		}
	default:
		errs = append(errs, errors.New("collector.type must be one of: pattern, http"))
	}

	// Autopilot validation
	if c.Autopilot.Enabled {
		if c.Autopilot.Interval <= 0 {
			errs = append(errs, errors.New("autopilot.interval must be positive"))
		}
		if c.Collector.Type == "http" && c.Collector.Timeout >= c.Autopilot.Interval {
			errs = append(errs, errors.New("collector.timeout must be less than autopilot.interval"))
		}
		if c.Autopilot.Horizon < 0 {
			errs = append(errs, errors.New("autopilot.horizon must not be negative"))
		}
	}

	// Database validation
	if c.NeedsDatabase() {
		if c.Database.Host == "" {
			errs = append(errs, errors.New("database.host is required"))
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, errors.New("database.port must be between 1 and 65535"))
		}
		if c.Database.Name == "" {
			errs = append(errs, errors.New("database.name is required"))
		}
		if c.Database.MaxConnections <= 0 {
			errs = append(errs, errors.New("database.max_connections must be positive"))
		}
	}

	// API validation
	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, errors.New("api.port must be between 1 and 65535"))
	}
	if c.API.MaxLimit > 0 && c.API.DefaultLimit > c.API.MaxLimit {
		errs = append(errs, errors.New("api.default_limit must not exceed api.max_limit"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}
