// Package config loads the usid service settings from YAML.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	usi "github.com/nanoncore/nano-usi"
	"github.com/nanoncore/nano-usi/session"
	"github.com/nanoncore/nano-usi/types"
	"gopkg.in/yaml.v3"
)

// Config is the usid configuration file
type Config struct {
	GRPCAddr string `yaml:"grpc_addr"`
	HTTPAddr string `yaml:"http_addr"`

	// StreamWorkers bounds the goroutines serving gRPC streams; 0 spawns one per stream
	StreamWorkers uint32 `yaml:"stream_workers"`

	Log      LogConfig      `yaml:"log"`
	Session  SessionConfig  `yaml:"session"`
	Registry RegistryConfig `yaml:"registry"`
	Local    LocalConfig    `yaml:"local"`
	SNMP     SNMPConfig     `yaml:"snmp"`

	// Patterns override vendor prompt markers per model
	Patterns map[types.Model]types.PromptPatterns `yaml:"patterns"`
}

// LogConfig configures the process logger
type LogConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// SessionConfig tunes CLI sessions
type SessionConfig struct {
	CommandTimeout  time.Duration `yaml:"command_timeout"`
	LoginTimeout    time.Duration `yaml:"login_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
	ConnectAttempts int           `yaml:"connect_attempts"`
	ConnectBackoff  time.Duration `yaml:"connect_backoff"`
	MaxQueueDepth   int           `yaml:"max_queue_depth"`
	DisablePager    bool          `yaml:"disable_pager"`
}

// RegistryConfig tunes session eviction
type RegistryConfig struct {
	// IdleTTL evicts sessions unused for this long; negative disables
	IdleTTL time.Duration `yaml:"idle_ttl"`
}

// LocalConfig configures the OVS backend
type LocalConfig struct {
	LinkCommand []string `yaml:"link_command"`
}

// SNMPConfig configures the GENERIC_SNMP backend
type SNMPConfig struct {
	Version  string        `yaml:"version"`
	Timeout  time.Duration `yaml:"timeout"`
	PoEGroup int           `yaml:"poe_group"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		GRPCAddr: ":5000",
		HTTPAddr: ":9102",
		Log:      LogConfig{Level: "info"},
		Session: SessionConfig{
			CommandTimeout:  session.DefaultCommandTimeout,
			LoginTimeout:    session.DefaultLoginTimeout,
			IdleTimeout:     7 * time.Second,
			DialTimeout:     session.DefaultDialTimeout,
			ConnectAttempts: 10,
			ConnectBackoff:  100 * time.Millisecond,
			MaxQueueDepth:   session.DefaultMaxQueueDepth,
		},
		Registry: RegistryConfig{IdleTTL: 30 * time.Minute},
		SNMP:     SNMPConfig{Version: "2c", Timeout: 5 * time.Second, PoEGroup: 1},
	}
}

// Load reads path over the defaults and validates the result. An empty
// path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late
func (c *Config) Validate() error {
	for name, addr := range map[string]string{"grpc_addr": c.GRPCAddr, "http_addr": c.HTTPAddr} {
		if addr == "" {
			continue
		}
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("%s %q is not host:port: %w", name, addr, err)
		}
	}

	s := c.Session
	for name, d := range map[string]time.Duration{
		"command_timeout": s.CommandTimeout,
		"login_timeout":   s.LoginTimeout,
		"idle_timeout":    s.IdleTimeout,
		"dial_timeout":    s.DialTimeout,
		"connect_backoff": s.ConnectBackoff,
	} {
		if d < 0 {
			return fmt.Errorf("session.%s must not be negative", name)
		}
	}
	if s.ConnectAttempts < 0 {
		return fmt.Errorf("session.connect_attempts must not be negative")
	}
	if s.MaxQueueDepth < 0 {
		return fmt.Errorf("session.max_queue_depth must not be negative")
	}

	switch c.SNMP.Version {
	case "", "1", "2c", "3":
	default:
		return fmt.Errorf("snmp.version %q must be 1, 2c or 3", c.SNMP.Version)
	}

	for model := range c.Patterns {
		if _, err := usi.NewProfile(model, types.PromptPatterns{}); err != nil {
			return fmt.Errorf("patterns: %w", err)
		}
	}
	return nil
}

// Options converts the configuration into controller options
func (c *Config) Options() usi.Options {
	return usi.Options{
		CommandTimeout:  c.Session.CommandTimeout,
		LoginTimeout:    c.Session.LoginTimeout,
		IdleTimeout:     c.Session.IdleTimeout,
		DialTimeout:     c.Session.DialTimeout,
		ConnectAttempts: c.Session.ConnectAttempts,
		ConnectBackoff:  c.Session.ConnectBackoff,
		MaxQueueDepth:   c.Session.MaxQueueDepth,
		DisablePager:    c.Session.DisablePager,
		Patterns:        c.Patterns,
		LinkCommand:     c.Local.LinkCommand,
		SNMPVersion:     c.SNMP.Version,
		SNMPTimeout:     c.SNMP.Timeout,
		SNMPPoEGroup:    c.SNMP.PoEGroup,
	}
}
