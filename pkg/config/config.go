// Package config loads the game service's configuration: a YAML file
// layered with environment-variable overrides, continuing the teacher's
// LoadConfig/applyEnvironmentOverrides/validate shape re-keyed to the arena
// game's surface.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete game service configuration.
type Config struct {
	GameServer GameServerConfig `yaml:"game_server"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// GameServerConfig contains the WebSocket/HTTP listener settings.
type GameServerConfig struct {
	Port             int           `yaml:"port"`
	DefaultLobbyID   string        `yaml:"default_lobby_id"`
	MatchTimeLimit   time.Duration `yaml:"match_time_limit"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
}

// AuthConfig contains the identity service client settings.
type AuthConfig struct {
	ServiceURL    string        `yaml:"service_url"`
	VerifyTimeout time.Duration `yaml:"verify_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Format     string `yaml:"format"`
	Level      string `yaml:"level"`
	ShowCaller bool   `yaml:"show_caller"`
}

// Default returns the spec's defaults (SPEC_FULL.md §6 Environment):
// GAME_SERVER_PORT=3001, AUTH_SERVICE_URL=http://127.0.0.1:3002,
// AUTH_VERIFY_TIMEOUT_MS=1500, LOG_FORMAT unset (compact).
func Default() *Config {
	return &Config{
		GameServer: GameServerConfig{
			Port:             3001,
			DefaultLobbyID:   "test",
			MatchTimeLimit:   0,
			HandshakeTimeout: 5 * time.Second,
		},
		Auth: AuthConfig{
			ServiceURL:    "http://127.0.0.1:3002",
			VerifyTimeout: 1500 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Format: "",
			Level:  "info",
		},
	}
}

// Load reads filename (if it exists) over the defaults, applies environment
// overrides, and validates the result. A missing file is not an error — the
// defaults plus environment variables are a complete configuration on their
// own, matching how cmd/server is expected to run with no mounted config.
func Load(filename string) (*Config, error) {
	cfg := Default()

	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %s: %w", filename, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", filename, err)
		}
	}

	cfg.applyEnvironmentOverrides()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvironmentOverrides applies the four environment variables named in
// SPEC_FULL.md §6.
func (c *Config) applyEnvironmentOverrides() {
	if port := os.Getenv("GAME_SERVER_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil {
			c.GameServer.Port = n
		}
	}

	if url := os.Getenv("AUTH_SERVICE_URL"); url != "" {
		c.Auth.ServiceURL = url
	}

	if ms := os.Getenv("AUTH_VERIFY_TIMEOUT_MS"); ms != "" {
		if n, err := strconv.ParseUint(ms, 10, 64); err == nil {
			c.Auth.VerifyTimeout = time.Duration(n) * time.Millisecond
		}
	}

	if format := os.Getenv("LOG_FORMAT"); format != "" {
		c.Logging.Format = format
	}
}

// validate checks invariants that would otherwise surface as confusing
// runtime failures.
func (c *Config) validate() error {
	if c.GameServer.Port < 1 || c.GameServer.Port > 65535 {
		return fmt.Errorf("invalid game_server.port: %d", c.GameServer.Port)
	}
	if c.Auth.ServiceURL == "" {
		return fmt.Errorf("auth.service_url must not be empty")
	}
	if c.Auth.VerifyTimeout <= 0 {
		return fmt.Errorf("auth.verify_timeout must be positive")
	}
	return nil
}

// Addr returns the game server's listen address in :port form.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.GameServer.Port)
}
