package config

import (
	"fmt"
	"time"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Clock      ClockConfig      `mapstructure:"clock"`
	Scaling    ScalingConfig    `mapstructure:"scaling"`
	Forecast   ForecastConfig   `mapstructure:"forecast"`
	History    HistoryConfig    `mapstructure:"history"`
	Collector  CollectorConfig  `mapstructure:"collector"`
	Autopilot  AutopilotConfig  `mapstructure:"autopilot"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	API        APIConfig        `mapstructure:"api"`
	WebSocket  WebSocketConfig  `mapstructure:"websocket"`
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Events     EventsConfig     `mapstructure:"events"`
}

type AppConfig struct {
	Name            string        `mapstructure:"name"`
	Mode            string        `mapstructure:"mode"`
	LogLevel        string        `mapstructure:"log_level"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ClockConfig enables the accelerated demo clock used by the
// current-traffic endpoint.
type ClockConfig struct {
	Simulated bool    `mapstructure:"simulated"`
	Start     string  `mapstructure:"start"`
	Speed     float64 `mapstructure:"speed"`
}

type ScalingConfig struct {
	MinServers           int           `mapstructure:"min_servers"`
	MaxServers           int           `mapstructure:"max_servers"`
	RequestsPerServer    float64       `mapstructure:"requests_per_server"`
	ScaleOutThreshold    float64       `mapstructure:"scale_out_threshold"`
	ScaleInThreshold     float64       `mapstructure:"scale_in_threshold"`
	BufferFactor         float64       `mapstructure:"buffer_factor"`
	TargetUtilization    float64       `mapstructure:"target_utilization"`
	Cooldown             time.Duration `mapstructure:"cooldown"`
	StartupGrace         time.Duration `mapstructure:"startup_grace"`
	CostPerServerPerHour float64       `mapstructure:"cost_per_server_per_hour"`
}

type ForecastConfig struct {
	DefaultHorizons []int       `mapstructure:"default_horizons"`
	BytesPerRequest float64     `mapstructure:"bytes_per_request"`
	ByteJitter      bool        `mapstructure:"byte_jitter"`
	Seed            int64       `mapstructure:"seed"`
	PatternFallback bool        `mapstructure:"pattern_fallback"`
	Model           ModelConfig `mapstructure:"model"`
}

type ModelConfig struct {
	Type           string               `mapstructure:"type"` // none, linear, http
	Name           string               `mapstructure:"name"`
	Path           string               `mapstructure:"path"`
	Endpoint       string               `mapstructure:"endpoint"`
	Timeout        time.Duration        `mapstructure:"timeout"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type HistoryConfig struct {
	Type          string        `mapstructure:"type"` // memory, postgres, redis
	MaxPoints     int           `mapstructure:"max_points"`
	CacheSize     int           `mapstructure:"cache_size"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
	Retention     time.Duration `mapstructure:"retention"`
	BackfillHours int           `mapstructure:"backfill_hours"`
}

type CollectorConfig struct {
	Type           string               `mapstructure:"type"` // pattern, http
	Endpoint       string               `mapstructure:"endpoint"`
	Pattern        string               `mapstructure:"pattern"`
	Seed           int64                `mapstructure:"seed"`
	Timeout        time.Duration        `mapstructure:"timeout"`
	RetryAttempts  int                  `mapstructure:"retry_attempts"`
	RetryDelay     time.Duration        `mapstructure:"retry_delay"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	MaxFailures int           `mapstructure:"max_failures"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// AutopilotConfig drives the periodic collect, forecast and recommend cycle.
type AutopilotConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Interval       time.Duration `mapstructure:"interval"`
	Horizon        int           `mapstructure:"horizon"`
	InitialServers int           `mapstructure:"initial_servers"`
}

type DatabaseConfig struct {
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	Name             string        `mapstructure:"name"`
	User             string        `mapstructure:"user"`
	Password         string        `mapstructure:"password"`
	MaxConnections   int           `mapstructure:"max_connections"`
	SSLMode          string        `mapstructure:"ssl_mode"`
	ConnMaxLifetime  time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime  time.Duration `mapstructure:"conn_max_idle_time"`
	PingTimeout      time.Duration `mapstructure:"ping_timeout"`
	MigrationTimeout time.Duration `mapstructure:"migration_timeout"`
}

func (d DatabaseConfig) DSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, sslMode,
	)
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

type APIConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
	DefaultLimit int           `mapstructure:"default_limit"`
	MaxLimit     int           `mapstructure:"max_limit"`
	Swagger      bool          `mapstructure:"swagger"`
	CORS         CORSConfig    `mapstructure:"cors"`
}

type WebSocketConfig struct {
	MaxConnections  int           `mapstructure:"max_connections"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	PongTimeout     time.Duration `mapstructure:"pong_timeout"`
	MaxMessageSize  int64         `mapstructure:"max_message_size"`
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
	BroadcastBuffer int           `mapstructure:"broadcast_buffer"`
	ClientBuffer    int           `mapstructure:"client_buffer"`
}

type PrometheusConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type EventsConfig struct {
	BufferSize int  `mapstructure:"buffer_size"`
	Persist    bool `mapstructure:"persist"`
}

// NeedsDatabase reports whether any component persists to postgres.
func (c *Config) NeedsDatabase() bool {
	return c.History.Type == "postgres" || c.Events.Persist
}
