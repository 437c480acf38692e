// Package config provides hierarchical configuration loading for MissionForge.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the MissionForge core service.
type Config struct {
	Server     Server     `yaml:"server"`
	Logging    Logging    `yaml:"logging"`
	Store      Store      `yaml:"store"`
	Postgres   Postgres   `yaml:"postgres"`
	NATS       NATS       `yaml:"nats"`
	Generation Generation `yaml:"generation"`
	Breaker    Breaker    `yaml:"breaker"`
	Scheduler  Scheduler  `yaml:"scheduler"`
	Executor   Executor   `yaml:"executor"`
	Mission    Mission    `yaml:"mission"`
	RiskCache  RiskCache  `yaml:"risk_cache"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// Store holds job persistence configuration.
type Store struct {
	DataDir string `yaml:"data_dir"`
}

// Postgres holds the optional analytics database configuration. An empty
// DSN disables the analytics sink and risk lookup.
type Postgres struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	HealthCheck     time.Duration `yaml:"health_check"`
}

// NATS holds the optional JetStream event bus configuration. An empty URL
// disables bus publishing.
type NATS struct {
	URL string `yaml:"url"`
}

// Generation holds configuration for the LLM proxy used for all
// generation calls.
type Generation struct {
	URL         string        `yaml:"url"`
	APIKey      string        `yaml:"api_key"`
	CallTimeout time.Duration `yaml:"call_timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
	Backoff     time.Duration `yaml:"backoff"`
}

// Breaker holds circuit breaker configuration for the generation client.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Scheduler holds job scheduler configuration.
type Scheduler struct {
	MaxWorkers int `yaml:"max_workers"`
}

// Executor holds parallel sub-task executor configuration, including the
// side-operation commands fanned out during the implementation phase.
type Executor struct {
	MaxParallel    int           `yaml:"max_parallel"`
	DefaultTimeout time.Duration `yaml:"default_timeout"`
	WorkDir        string        `yaml:"work_dir"`
	FormatCommand  string        `yaml:"format_command"`
	LintCommand    string        `yaml:"lint_command"`
	TestCommand    string        `yaml:"test_command"`
	DiffCommand    string        `yaml:"diff_command"`
}

// Mission holds defaults applied to submitted mission specs.
type Mission struct {
	DefaultRoundLimit int     `yaml:"default_round_limit"`
	DefaultHardCapUSD float64 `yaml:"default_hard_cap_usd"`
	DefaultWarningUSD float64 `yaml:"default_warning_usd"`
}

// RiskCache holds the in-process cache configuration for risk lookups.
type RiskCache struct {
	MaxSizeMB int64         `yaml:"max_size_mb"`
	TTL       time.Duration `yaml:"ttl"`
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:       "8080",
			CORSOrigin: "http://localhost:3000",
		},
		Logging: Logging{
			Level:   "info",
			Service: "missionforge-core",
		},
		Store: Store{
			DataDir: "data/jobs",
		},
		Postgres: Postgres{
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 10 * time.Minute,
			HealthCheck:     time.Minute,
		},
		Generation: Generation{
			URL:         "http://localhost:4000",
			CallTimeout: 120 * time.Second,
			MaxAttempts: 3,
			Backoff:     time.Second,
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Scheduler: Scheduler{
			MaxWorkers: 8,
		},
		Executor: Executor{
			MaxParallel:    4,
			DefaultTimeout: 60 * time.Second,
			WorkDir:        ".",
			FormatCommand:  "gofmt -l .",
			LintCommand:    "golangci-lint run ./...",
			TestCommand:    "go test ./...",
			DiffCommand:    "git diff --stat",
		},
		Mission: Mission{
			DefaultRoundLimit: 3,
			DefaultHardCapUSD: 5,
			DefaultWarningUSD: 4,
		},
		RiskCache: RiskCache{
			MaxSizeMB: 16,
			TTL:       5 * time.Minute,
		},
	}
}
