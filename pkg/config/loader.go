package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file settings
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/autoscaler")
	}

	// Environment variable settings
	v.SetEnvPrefix("AUTOSCALER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "traffic-autoscaler")
	v.SetDefault("app.mode", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.shutdown_timeout", "10s")

	// Clock defaults
	v.SetDefault("clock.simulated", false)
	v.SetDefault("clock.start", "1995-08-25T06:00:00")
	v.SetDefault("clock.speed", 12.0)

	// Scaling defaults
	v.SetDefault("scaling.min_servers", 1)
	v.SetDefault("scaling.max_servers", 50)
	v.SetDefault("scaling.requests_per_server", 200.0)
	v.SetDefault("scaling.scale_out_threshold", 80.0)
	v.SetDefault("scaling.scale_in_threshold", 40.0)
	v.SetDefault("scaling.buffer_factor", 1.2)
	v.SetDefault("scaling.target_utilization", 70.0)
	v.SetDefault("scaling.cooldown", "2m")
	v.SetDefault("scaling.startup_grace", "30s")
	v.SetDefault("scaling.cost_per_server_per_hour", 0.10)

	// Forecast defaults
	v.SetDefault("forecast.default_horizons", []int{1, 5, 15})
	v.SetDefault("forecast.bytes_per_request", 20000.0)
	v.SetDefault("forecast.byte_jitter", false)
	v.SetDefault("forecast.pattern_fallback", true)
	v.SetDefault("forecast.model.type", "none")
	v.SetDefault("forecast.model.timeout", "2s")
	v.SetDefault("forecast.model.circuit_breaker.max_failures", 5)
	v.SetDefault("forecast.model.circuit_breaker.timeout", "30s")

	// History defaults
	v.SetDefault("history.type", "memory")
	v.SetDefault("history.max_points", 100000)
	v.SetDefault("history.cache_size", 1024)
	v.SetDefault("history.cache_ttl", "1m")
	v.SetDefault("history.retention", "168h")
	v.SetDefault("history.backfill_hours", 0)

	// Collector defaults
	v.SetDefault("collector.type", "pattern")
	v.SetDefault("collector.endpoint", "http://localhost:9000")
	v.SetDefault("collector.pattern", "daily")
	v.SetDefault("collector.timeout", "5s")
	v.SetDefault("collector.retry_attempts", 3)
	v.SetDefault("collector.retry_delay", "1s")
	v.SetDefault("collector.circuit_breaker.max_failures", 5)
	v.SetDefault("collector.circuit_breaker.timeout", "30s")

	// Autopilot defaults
	v.SetDefault("autopilot.enabled", false)
	v.SetDefault("autopilot.interval", "1m")
	v.SetDefault("autopilot.horizon", 15)
	v.SetDefault("autopilot.initial_servers", 1)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "autoscaler")
	v.SetDefault("database.user", "admin")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.migration_timeout", "1m")

	// Redis defaults
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key", "autoscaler:traffic")

	// API defaults
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", "15s")
	v.SetDefault("api.write_timeout", "15s")
	v.SetDefault("api.idle_timeout", "60s")
	v.SetDefault("api.max_body_bytes", 1<<20)
	v.SetDefault("api.default_limit", 1000)
	v.SetDefault("api.max_limit", 10000)
	v.SetDefault("api.swagger", true)
	v.SetDefault("api.cors.allowed_origins", []string{"*"})

	// WebSocket defaults
	v.SetDefault("websocket.max_connections", 1000)
	v.SetDefault("websocket.ping_interval", "30s")

	// Prometheus defaults
	v.SetDefault("prometheus.enabled", true)
	v.SetDefault("prometheus.port", 0)

	// Events defaults
	v.SetDefault("events.buffer_size", 100)
	v.SetDefault("events.persist", false)
}
