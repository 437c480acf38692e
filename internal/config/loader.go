package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "missionforge.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "MISSIONFORGE_PORT")
	setString(&cfg.Server.CORSOrigin, "MISSIONFORGE_CORS_ORIGIN")
	setString(&cfg.Logging.Level, "MISSIONFORGE_LOG_LEVEL")
	setString(&cfg.Logging.Service, "MISSIONFORGE_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "MISSIONFORGE_LOG_ASYNC")
	setString(&cfg.Store.DataDir, "MISSIONFORGE_DATA_DIR")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "MISSIONFORGE_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "MISSIONFORGE_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "MISSIONFORGE_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "MISSIONFORGE_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "MISSIONFORGE_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Generation.URL, "MISSIONFORGE_GENERATION_URL")
	setString(&cfg.Generation.APIKey, "MISSIONFORGE_GENERATION_API_KEY")
	setDuration(&cfg.Generation.CallTimeout, "MISSIONFORGE_GENERATION_TIMEOUT")
	setInt(&cfg.Generation.MaxAttempts, "MISSIONFORGE_GENERATION_MAX_ATTEMPTS")
	setDuration(&cfg.Generation.Backoff, "MISSIONFORGE_GENERATION_BACKOFF")
	setInt(&cfg.Breaker.MaxFailures, "MISSIONFORGE_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "MISSIONFORGE_BREAKER_TIMEOUT")
	setInt(&cfg.Scheduler.MaxWorkers, "MISSIONFORGE_MAX_WORKERS")
	setInt(&cfg.Executor.MaxParallel, "MISSIONFORGE_EXEC_MAX_PARALLEL")
	setDuration(&cfg.Executor.DefaultTimeout, "MISSIONFORGE_EXEC_DEFAULT_TIMEOUT")
	setString(&cfg.Executor.WorkDir, "MISSIONFORGE_EXEC_WORK_DIR")
	setString(&cfg.Executor.FormatCommand, "MISSIONFORGE_FORMAT_COMMAND")
	setString(&cfg.Executor.LintCommand, "MISSIONFORGE_LINT_COMMAND")
	setString(&cfg.Executor.TestCommand, "MISSIONFORGE_TEST_COMMAND")
	setString(&cfg.Executor.DiffCommand, "MISSIONFORGE_DIFF_COMMAND")
	setInt(&cfg.Mission.DefaultRoundLimit, "MISSIONFORGE_DEFAULT_ROUND_LIMIT")
	setFloat64(&cfg.Mission.DefaultHardCapUSD, "MISSIONFORGE_DEFAULT_HARD_CAP_USD")
	setFloat64(&cfg.Mission.DefaultWarningUSD, "MISSIONFORGE_DEFAULT_WARNING_USD")
	setInt64(&cfg.RiskCache.MaxSizeMB, "MISSIONFORGE_RISK_CACHE_SIZE_MB")
	setDuration(&cfg.RiskCache.TTL, "MISSIONFORGE_RISK_CACHE_TTL")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Store.DataDir == "" {
		return errors.New("store.data_dir is required")
	}
	if cfg.Generation.URL == "" {
		return errors.New("generation.url is required")
	}
	if cfg.Generation.MaxAttempts < 1 {
		return errors.New("generation.max_attempts must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Scheduler.MaxWorkers < 1 {
		return errors.New("scheduler.max_workers must be >= 1")
	}
	if cfg.Executor.MaxParallel < 1 {
		return errors.New("executor.max_parallel must be >= 1")
	}
	if cfg.Mission.DefaultRoundLimit < 1 {
		return errors.New("mission.default_round_limit must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
