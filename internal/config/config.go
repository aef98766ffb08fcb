package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"
)

// Transport modes.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// ErrInvalidConfig indicates a configuration value that cannot be used.
var ErrInvalidConfig = errors.New("invalid config")

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" json:"server"`
	DB        DBConfig        `yaml:"db" json:"db"`
	Log       LogConfig       `yaml:"log" json:"log"`
	Transport TransportConfig `yaml:"transport" json:"transport"`
	Auth      AuthConfig      `yaml:"auth" json:"auth"`
	Review    ReviewConfig    `yaml:"review" json:"review"`
}

type ServerConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
}

type DBConfig struct {
	Path string `yaml:"path" json:"path"`
}

type LogConfig struct {
	Level string `yaml:"level" json:"level"`
	Path  string `yaml:"path" json:"path"`
}

type TransportConfig struct {
	Mode string `yaml:"mode" json:"mode"`
}

type AuthConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// ReviewConfig tunes scheduling and session building.
type ReviewConfig struct {
	// LearningSteps are minutes between learning-phase reviews.
	LearningSteps []int `yaml:"learning_steps" json:"learning_steps"`
	// NewCardLimit caps the unreviewed cards appended to a review session.
	NewCardLimit int `yaml:"new_card_limit" json:"new_card_limit"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "spacer.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Transport: TransportConfig{
			Mode: TransportStdio,
		},
		Review: ReviewConfig{
			LearningSteps: []int{10, 30},
			NewCardLimit:  20,
		},
	}
}

// Load reads configuration from an optional YAML or JSON file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("SPACER_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if host := os.Getenv("SPACER_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("SPACER_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid SPACER_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if dbPath := os.Getenv("SPACER_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("SPACER_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if logPath := os.Getenv("SPACER_LOG_PATH"); logPath != "" {
		cfg.Log.Path = logPath
	}
	if mode := os.Getenv("SPACER_TRANSPORT"); mode != "" {
		cfg.Transport.Mode = strings.ToLower(mode)
	}
	if enabled := os.Getenv("SPACER_AUTH_ENABLED"); enabled != "" {
		v, err := strconv.ParseBool(enabled)
		if err != nil {
			return fmt.Errorf("invalid SPACER_AUTH_ENABLED: %w", err)
		}
		cfg.Auth.Enabled = v
	}
	if steps := os.Getenv("SPACER_LEARNING_STEPS"); steps != "" {
		parsed, err := parseSteps(steps)
		if err != nil {
			return fmt.Errorf("invalid SPACER_LEARNING_STEPS: %w", err)
		}
		cfg.Review.LearningSteps = parsed
	}
	if limit := os.Getenv("SPACER_NEW_CARD_LIMIT"); limit != "" {
		v, err := strconv.Atoi(limit)
		if err != nil {
			return fmt.Errorf("invalid SPACER_NEW_CARD_LIMIT: %w", err)
		}
		cfg.Review.NewCardLimit = v
	}
	return nil
}

func parseSteps(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	steps := make([]int, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		steps = append(steps, v)
	}
	return steps, nil
}

// Validate rejects values the server cannot run with.
func (c Config) Validate() error {
	if len(c.Review.LearningSteps) == 0 {
		return fmt.Errorf("%w: learning steps must not be empty", ErrInvalidConfig)
	}
	for _, step := range c.Review.LearningSteps {
		if step <= 0 {
			return fmt.Errorf("%w: learning step %d must be positive", ErrInvalidConfig, step)
		}
	}
	if c.Review.NewCardLimit < 0 {
		return fmt.Errorf("%w: new card limit %d is negative", ErrInvalidConfig, c.Review.NewCardLimit)
	}
	switch c.Transport.Mode {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("%w: unknown transport %q", ErrInvalidConfig, c.Transport.Mode)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.Log.Level)
	}
	return nil
}

// LearningDurations converts the configured steps to durations.
func (c Config) LearningDurations() []time.Duration {
	out := make([]time.Duration, 0, len(c.Review.LearningSteps))
	for _, step := range c.Review.LearningSteps {
		out = append(out, time.Duration(step)*time.Minute)
	}
	return out
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// JSON is a subset of YAML, so the standardized document decodes with the same tags.
		data, err = hujson.Standardize(data)
		if err != nil {
			return fmt.Errorf("parse config file: %w", err)
		}
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
