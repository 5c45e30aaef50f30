package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Sandbox   SandboxConfig
	Assistant AssistantConfig
	Contact   ContactConfig
	Catalog   CatalogConfig
	Logging   LogConfig
	Tracing   TracingConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// SandboxConfig holds render target and script execution limits.
type SandboxConfig struct {
	Timeout        time.Duration `envconfig:"SANDBOX_TIMEOUT" default:"5s"`
	PoolSize       int           `envconfig:"SANDBOX_POOL_SIZE" default:"4"`
	AcquireTimeout time.Duration `envconfig:"SANDBOX_ACQUIRE_TIMEOUT" default:"5s"`
	MaxTimers      int           `envconfig:"SANDBOX_MAX_TIMERS" default:"100"`
	MaxFrames      int           `envconfig:"SANDBOX_MAX_FRAMES" default:"1000"`
	MaxSourceBytes int64         `envconfig:"SANDBOX_MAX_SOURCE_BYTES" default:"1048576"`

	// Consecutive acquire timeouts before runs are shed
	BreakerThreshold int           `envconfig:"SANDBOX_BREAKER_THRESHOLD" default:"5"`
	BreakerCooldown  time.Duration `envconfig:"SANDBOX_BREAKER_COOLDOWN" default:"10s"`
}

// AssistantConfig holds canned assistant configuration.
type AssistantConfig struct {
	Delay time.Duration `envconfig:"ASSISTANT_DELAY" default:"1s"`
}

// ContactConfig holds contact form demo configuration.
type ContactConfig struct {
	Delay time.Duration `envconfig:"CONTACT_DELAY" default:"1500ms"`
}

// CatalogConfig holds catalog overlay configuration.
type CatalogConfig struct {
	// Dir holds extra YAML catalog files merged over the builtin catalog
	Dir string `envconfig:"CATALOG_DIR"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// TracingConfig holds request tracing configuration.
type TracingConfig struct {
	Enabled bool `envconfig:"TRACING_ENABLED" default:"true"`
	Buffer  int  `envconfig:"TRACING_BUFFER" default:"1000"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"20"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"40"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`

	// Service-wide cap on requests that execute scripts; zero disables it
	RunsPerSecond int `envconfig:"RATE_LIMIT_RUNS_RPS" default:"50"`
	RunBurst      int `envconfig:"RATE_LIMIT_RUNS_BURST" default:"100"`
}

// CORSConfig holds allowed browser origins.
type CORSConfig struct {
	Origins []string `envconfig:"CORS_ORIGINS" default:"*"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Sandbox: SandboxConfig{
			Timeout:        5 * time.Second,
			PoolSize:       4,
			AcquireTimeout: 5 * time.Second,
			MaxTimers:      100,
			MaxFrames:      1000,
			MaxSourceBytes: 1 << 20,

			BreakerThreshold: 5,
			BreakerCooldown:  10 * time.Second,
		},
		Assistant: AssistantConfig{
			Delay: time.Second,
		},
		Contact: ContactConfig{
			Delay: 1500 * time.Millisecond,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		Tracing: TracingConfig{
			Enabled: true,
			Buffer:  1000,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
			Enabled:           true,
			RunsPerSecond:     50,
			RunBurst:          100,
		},
		CORS: CORSConfig{
			Origins: []string{"*"},
		},
	}
}
