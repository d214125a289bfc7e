package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config struct to hold the configuration settings
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	NATS          NATSConfig          `yaml:"nats"`
	StartGG       StartGGConfig       `yaml:"startgg"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	Reconcile     ReconcileConfig     `yaml:"reconcile"`
	HTTP          HTTPConfig          `yaml:"http"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig holds NATS configuration.
type NATSConfig struct {
	URL            string        `yaml:"url"`
	NKeySeed       string        `yaml:"nkey_seed"`
	QueueGroup     string        `yaml:"queue_group"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// StartGGConfig holds start.gg API configuration.
type StartGGConfig struct {
	APIURL            string        `yaml:"api_url"`
	Token             string        `yaml:"token"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	Timeout           time.Duration `yaml:"timeout"`
}

// SchedulerConfig controls the tournament poll queue.
type SchedulerConfig struct {
	Concurrency   int           `yaml:"concurrency"`
	ShutdownGrace time.Duration `yaml:"shutdown_grace"`
	JobTimeout    time.Duration `yaml:"job_timeout"`
	MaxAttempts   int           `yaml:"max_attempts"`
	RetryInitial  time.Duration `yaml:"retry_initial"`
}

// ReconcileConfig controls how remote sets are pulled and applied.
type ReconcileConfig struct {
	PageSize         int           `yaml:"page_size"`
	MaxPages         int           `yaml:"max_pages"`
	EventConcurrency int           `yaml:"event_concurrency"`
	CheckInWindow    time.Duration `yaml:"check_in_window"`
}

// HTTPConfig holds the health and metrics listener settings.
type HTTPConfig struct {
	Address string `yaml:"address"`
}

// ObservabilityConfig holds configuration for observability components
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	Environment string `yaml:"environment"`
	ServiceName string `yaml:"service_name"`
	Version     string `yaml:"version"`
	// OTLPEndpoint is the gRPC collector address; empty disables tracing.
	OTLPEndpoint    string  `yaml:"otlp_endpoint"`
	OTLPInsecure    bool    `yaml:"otlp_insecure"`
	TraceSampleRate float64 `yaml:"trace_sample_rate"`
}

// LoadConfig loads the configuration from a YAML file.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		// If the file is not found, try loading from environment variables
		return loadConfigFromEnv()
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadConfigFromEnv builds the configuration from environment variables only.
func loadConfigFromEnv() (*Config, error) {
	var cfg Config
	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("NATS_NKEY_SEED"); v != "" {
		cfg.NATS.NKeySeed = v
	}
	if v := os.Getenv("STARTGG_TOKEN"); v != "" {
		cfg.StartGG.Token = v
	}
	if v := os.Getenv("STARTGG_API_URL"); v != "" {
		cfg.StartGG.APIURL = v
	}
	if v := os.Getenv("POLL_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Scheduler.Concurrency = n
		}
	}
	if v := os.Getenv("CHECK_IN_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Reconcile.CheckInWindow = d
		}
	}
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Observability.Environment = v
	}
	if v := os.Getenv("OTLP_ENDPOINT"); v != "" {
		cfg.Observability.OTLPEndpoint = v
	}
	if v := os.Getenv("OTLP_INSECURE"); v != "" {
		cfg.Observability.OTLPInsecure = v == "true"
	}
	if v := os.Getenv("TRACE_SAMPLE_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Observability.TraceSampleRate = f
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.NATS.QueueGroup == "" {
		cfg.NATS.QueueGroup = "fightrise"
	}
	if cfg.NATS.RequestTimeout <= 0 {
		cfg.NATS.RequestTimeout = 5 * time.Second
	}
	if cfg.StartGG.APIURL == "" {
		cfg.StartGG.APIURL = "https://api.start.gg/gql/alpha"
	}
	if cfg.StartGG.RequestsPerSecond <= 0 {
		// start.gg allows 80 requests per 60 seconds.
		cfg.StartGG.RequestsPerSecond = 80.0 / 60.0
	}
	if cfg.StartGG.Burst <= 0 {
		cfg.StartGG.Burst = 1
	}
	if cfg.StartGG.Timeout <= 0 {
		cfg.StartGG.Timeout = 15 * time.Second
	}
	if cfg.Scheduler.Concurrency <= 0 {
		cfg.Scheduler.Concurrency = 1
	}
	if cfg.Scheduler.ShutdownGrace <= 0 {
		cfg.Scheduler.ShutdownGrace = 30 * time.Second
	}
	if cfg.Scheduler.JobTimeout <= 0 {
		cfg.Scheduler.JobTimeout = 5 * time.Minute
	}
	if cfg.Scheduler.MaxAttempts <= 0 {
		cfg.Scheduler.MaxAttempts = 3
	}
	if cfg.Scheduler.RetryInitial <= 0 {
		cfg.Scheduler.RetryInitial = 2 * time.Second
	}
	if cfg.Reconcile.PageSize <= 0 {
		cfg.Reconcile.PageSize = 50
	}
	if cfg.Reconcile.MaxPages <= 0 {
		cfg.Reconcile.MaxPages = 100
	}
	if cfg.Reconcile.EventConcurrency <= 0 {
		cfg.Reconcile.EventConcurrency = 4
	}
	if cfg.Reconcile.CheckInWindow <= 0 {
		cfg.Reconcile.CheckInWindow = 10 * time.Minute
	}
	if cfg.HTTP.Address == "" {
		cfg.HTTP.Address = ":8080"
	}
	if cfg.Observability.LogLevel == "" {
		cfg.Observability.LogLevel = "info"
	}
	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = "fightrise-bot"
	}
	if cfg.Observability.TraceSampleRate <= 0 || cfg.Observability.TraceSampleRate > 1 {
		cfg.Observability.TraceSampleRate = 1
	}
}

// Validate reports missing required settings.
func (c *Config) Validate() error {
	if c.Postgres.DSN == "" {
		return fmt.Errorf("config: postgres dsn is required (DATABASE_URL)")
	}
	if c.NATS.URL == "" {
		return fmt.Errorf("config: nats url is required (NATS_URL)")
	}
	return nil
}
