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
const DefaultConfigFile = "planloop.yaml"

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
	setString(&cfg.Server.Port, "PLANLOOP_PORT")
	setString(&cfg.Server.CORSOrigin, "PLANLOOP_CORS_ORIGIN")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Logging.Level, "PLANLOOP_LOG_LEVEL")
	setString(&cfg.Logging.Service, "PLANLOOP_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "PLANLOOP_LOG_ASYNC")
	setDuration(&cfg.Rate.Window, "PLANLOOP_RATE_WINDOW")
	setInt(&cfg.Rate.MaxPerWindow, "PLANLOOP_RATE_MAX_PER_WINDOW")
	setDuration(&cfg.Agent.PollInterval, "PLANLOOP_POLL_INTERVAL")
	setInt(&cfg.Agent.MaxRetryAttempts, "PLANLOOP_MAX_RETRY_ATTEMPTS")
	setInt(&cfg.Agent.MaxIterations, "PLANLOOP_MAX_ITERATIONS")
	setInt(&cfg.Agent.IdleCycleLimit, "PLANLOOP_IDLE_CYCLE_LIMIT")
	setBool(&cfg.Agent.DebugMode, "PLANLOOP_DEBUG_MODE")
	setDuration(&cfg.Agent.ReminderScan, "PLANLOOP_REMINDER_SCAN")
	setDuration(&cfg.Agent.ReminderOffset, "PLANLOOP_REMINDER_OFFSET")
	setString(&cfg.Discord.BotToken, "DISCORD_BOT_TOKEN")
	setString(&cfg.Discord.WebhookURL, "DISCORD_WEBHOOK_URL")
	setString(&cfg.Discord.APIBase, "DISCORD_API_BASE")
	setInt64(&cfg.Cache.MaxBytes, "PLANLOOP_CACHE_MAX_BYTES")
	setDuration(&cfg.Cache.TTL, "PLANLOOP_CACHE_TTL")
	setString(&cfg.MCP.Addr, "PLANLOOP_MCP_ADDR")
	setString(&cfg.MCP.APIKey, "PLANLOOP_MCP_API_KEY")
}

// validate checks that the final configuration is usable.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server port must not be empty")
	}
	if cfg.Rate.Window <= 0 {
		return errors.New("rate window must be positive")
	}
	if cfg.Rate.MaxPerWindow <= 0 {
		return errors.New("rate max_per_window must be positive")
	}
	if cfg.Agent.MaxRetryAttempts < 0 {
		return errors.New("agent max_retry_attempts must not be negative")
	}
	if cfg.Agent.MaxIterations < 0 {
		return errors.New("agent max_iterations must not be negative")
	}
	if cfg.Agent.IdleCycleLimit < 0 {
		return errors.New("agent idle_cycle_limit must not be negative")
	}
	if cfg.Agent.PollInterval <= 0 {
		return errors.New("agent poll_interval must be positive")
	}
	return nil
}

// --- env setters ---

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
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

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
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
