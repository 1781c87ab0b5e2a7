package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const agentConfigFileName = "presence-agent.yaml"

// AgentConfig is the presence agent configuration, read from YAML and overridden by environment.
type AgentConfig struct {
	ServerURL string `yaml:"server_url"`
	Token     string `yaml:"token"`

	// Keepalive gates the whole heartbeat subsystem.
	Keepalive bool `yaml:"keepalive"`

	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"`
	DebounceWindow    time.Duration `yaml:"debounce_window"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`

	LogFile  string `yaml:"log_file,omitempty"`
	LogLevel string `yaml:"log_level,omitempty"`
}

// DefaultAgentConfig returns the defaults used when no file or variable overrides them.
func DefaultAgentConfig() *AgentConfig {
	return &AgentConfig{
		ServerURL:         "http://localhost:8081",
		Keepalive:         true,
		HeartbeatInterval: 5 * time.Minute,
		IdleTimeout:       2 * time.Minute,
		DebounceWindow:    2 * time.Second,
		RequestTimeout:    10 * time.Second,
		LogLevel:          "info",
	}
}

// DefaultAgentConfigPath returns ~/.config/chorus/presence-agent.yaml.
func DefaultAgentConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return agentConfigFileName
	}
	return filepath.Join(dir, "chorus", agentConfigFileName)
}

// LoadAgentConfig reads the YAML file at path (a missing file is not an error) and applies
// PRESENCE_* environment overrides on top.
func LoadAgentConfig(path string) (*AgentConfig, error) {
	cfg := DefaultAgentConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg.ServerURL = getEnv("PRESENCE_SERVER_URL", cfg.ServerURL)
	cfg.Token = getEnv("PRESENCE_TOKEN", cfg.Token)
	cfg.Keepalive = getEnvAsBool("PRESENCE_KEEPALIVE", cfg.Keepalive)
	cfg.HeartbeatInterval = getEnvAsDuration("PRESENCE_HEARTBEAT_INTERVAL", cfg.HeartbeatInterval)
	cfg.IdleTimeout = getEnvAsDuration("PRESENCE_IDLE_TIMEOUT", cfg.IdleTimeout)
	cfg.DebounceWindow = getEnvAsDuration("PRESENCE_DEBOUNCE_WINDOW", cfg.DebounceWindow)
	cfg.RequestTimeout = getEnvAsDuration("PRESENCE_REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.LogFile = getEnv("PRESENCE_LOG_FILE", cfg.LogFile)
	cfg.LogLevel = getEnv("PRESENCE_LOG_LEVEL", cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values the controller depends on.
func (c *AgentConfig) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server_url is required")
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat_interval must be positive, got %s", c.HeartbeatInterval)
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("idle_timeout must be positive, got %s", c.IdleTimeout)
	}
	if c.DebounceWindow < 0 {
		return fmt.Errorf("debounce_window must not be negative, got %s", c.DebounceWindow)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	return nil
}
