package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/scoring"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Events   EventsConfig   `yaml:"events"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Scoring  ScoringConfig  `yaml:"scoring"`
	Jobs     JobsConfig     `yaml:"jobs"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
	AdminToken  string `yaml:"admin_token"`
	RateLimit   int    `yaml:"rate_limit"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type EventsConfig struct {
	URL string `yaml:"url"`
}

type GeminiConfig struct {
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	EmbeddingModel string `yaml:"embedding_model"`
	TimeoutMs      int    `yaml:"timeout_ms"`
}

type ScoringConfig struct {
	RuleSetPath string                 `yaml:"ruleset_path"`
	Combiner    scoring.CombinerConfig `yaml:"combiner"`
	Calibration CalibrationConfig      `yaml:"calibration"`
}

type CalibrationConfig struct {
	Points []scoring.CalibrationPoint `yaml:"points"`
	Shrink float64                    `yaml:"shrink"`
}

type JobsConfig struct {
	PollIntervalMs      int `yaml:"poll_interval_ms"`
	BatchSize           int `yaml:"batch_size"`
	DefaultMaxAttempts  int `yaml:"default_max_attempts"`
	RetryBackoffMs      int `yaml:"retry_backoff_ms"`
	JobTimeoutMs        int `yaml:"job_timeout_ms"`
	StuckAfterMs        int `yaml:"stuck_after_ms"`
	ReconcileIntervalMs int `yaml:"reconcile_interval_ms"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Config) GeminiTimeout() time.Duration {
	return time.Duration(c.Gemini.TimeoutMs) * time.Millisecond
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Jobs.PollIntervalMs) * time.Millisecond
}

func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.Jobs.RetryBackoffMs) * time.Millisecond
}

func (c *Config) JobTimeout() time.Duration {
	return time.Duration(c.Jobs.JobTimeoutMs) * time.Millisecond
}

func (c *Config) StuckAfter() time.Duration {
	return time.Duration(c.Jobs.StuckAfterMs) * time.Millisecond
}

func (c *Config) ReconcileInterval() time.Duration {
	return time.Duration(c.Jobs.ReconcileIntervalMs) * time.Millisecond
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        8700,
			MetricsPort: 8701,
			RateLimit:   60,
		},
		Events: EventsConfig{
			URL: "nats://localhost:4222",
		},
		Gemini: GeminiConfig{
			Model:          "gemini-2.0-flash",
			EmbeddingModel: "text-embedding-004",
			TimeoutMs:      10000,
		},
		Scoring: ScoringConfig{
			Combiner: scoring.DefaultCombinerConfig(),
			Calibration: CalibrationConfig{
				Shrink: 0.3,
			},
		},
		Jobs: JobsConfig{
			PollIntervalMs:      5000,
			BatchSize:           10,
			DefaultMaxAttempts:  3,
			RetryBackoffMs:      30000,
			JobTimeoutMs:        120000,
			StuckAfterMs:        600000,
			ReconcileIntervalMs: 60000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Scoring.Combiner.Base.Validate(); err != nil {
		return nil, fmt.Errorf("scoring weights: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("AURICITE_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("AURICITE_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("AURICITE_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("AURICITE_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("AURICITE_NATS_URL"); v != "" {
		cfg.Events.URL = v
	}
	if v := os.Getenv("AURICITE_GEMINI_API_KEY"); v != "" {
		cfg.Gemini.APIKey = v
	}
	if v := os.Getenv("AURICITE_GEMINI_MODEL"); v != "" {
		cfg.Gemini.Model = v
	}
	if v := os.Getenv("AURICITE_GEMINI_EMBEDDING_MODEL"); v != "" {
		cfg.Gemini.EmbeddingModel = v
	}
	if v := os.Getenv("AURICITE_RULESET_PATH"); v != "" {
		cfg.Scoring.RuleSetPath = v
	}
	if v := os.Getenv("AURICITE_POLL_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Jobs.PollIntervalMs = n
		}
	}
	if v := os.Getenv("AURICITE_JOB_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Jobs.BatchSize = n
		}
	}
	if v := os.Getenv("AURICITE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
