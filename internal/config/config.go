// Package config provides hierarchical configuration loading for planloop.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the planloop service.
type Config struct {
	Server  Server  `yaml:"server"`
	NATS    NATS    `yaml:"nats"`
	Logging Logging `yaml:"logging"`
	Rate    Rate    `yaml:"rate"`
	Agent   Agent   `yaml:"agent"`
	Discord Discord `yaml:"discord"`
	Cache   Cache   `yaml:"cache"`
	MCP     MCP     `yaml:"mcp"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// NATS holds NATS JetStream configuration. An empty URL selects the
// in-process queue; events then flow within a single process only.
type NATS struct {
	URL string `yaml:"url"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// Rate holds outbound message scheduler configuration.
type Rate struct {
	Window       time.Duration `yaml:"window"`
	MaxPerWindow int           `yaml:"max_per_window"`
}

// Agent holds state machine configuration.
type Agent struct {
	PollInterval     time.Duration `yaml:"poll_interval"`
	MaxRetryAttempts int           `yaml:"max_retry_attempts"`
	MaxIterations    int           `yaml:"max_iterations"`   // 0 = unlimited (production)
	IdleCycleLimit   int           `yaml:"idle_cycle_limit"` // 0 = unlimited (production)
	DebugMode        bool          `yaml:"debug_mode"`
	ReminderScan     time.Duration `yaml:"reminder_scan"`
	ReminderOffset   time.Duration `yaml:"reminder_offset"`
}

// Discord holds outbound delivery configuration.
type Discord struct {
	BotToken   string `yaml:"bot_token"`
	WebhookURL string `yaml:"webhook_url"`
	APIBase    string `yaml:"api_base"`
}

// MCP holds Model Context Protocol server configuration. An empty
// Addr disables the MCP server. An empty APIKey disables auth.
type MCP struct {
	Addr   string `yaml:"addr"`
	APIKey string `yaml:"api_key"`
}

// Cache holds in-process cache configuration.
type Cache struct {
	MaxBytes int64         `yaml:"max_bytes"`
	TTL      time.Duration `yaml:"ttl"`
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:       "8080",
			CORSOrigin: "http://localhost:3000",
		},
		NATS: NATS{
			URL: "",
		},
		Logging: Logging{
			Level:   "info",
			Service: "planloop",
		},
		Rate: Rate{
			Window:       60 * time.Second,
			MaxPerWindow: 10,
		},
		Agent: Agent{
			PollInterval:     5 * time.Second,
			MaxRetryAttempts: 3,
			MaxIterations:    0,
			IdleCycleLimit:   0,
			DebugMode:        false,
			ReminderScan:     5 * time.Minute,
			ReminderOffset:   24 * time.Hour,
		},
		Discord: Discord{
			APIBase: "https://discord.com/api/v10",
		},
		Cache: Cache{
			MaxBytes: 32 << 20,
			TTL:      10 * time.Minute,
		},
		MCP: MCP{
			Addr: ":3001",
		},
	}
}
