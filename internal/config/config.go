// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-tcp-keystore.
//
// go-tcp-keystore is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jeremyhahn/go-tcp-keystore/pkg/transport"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/types"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config represents the complete server configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Protocols ProtocolsConfig `yaml:"protocols"`
	Logging   LoggingConfig   `yaml:"logging"`
	Limits    LimitsConfig    `yaml:"limits"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Health    HealthConfig    `yaml:"health"`
	Provision ProvisionConfig `yaml:"provision"`

	// KeyTypes restricts the backend to the listed 4-character key type
	// ids. Empty allows every key type.
	KeyTypes []string `yaml:"key_types"`
}

// ServerConfig contains listener addresses
type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	GRPCPort int    `yaml:"grpc_port"`
	HTTPPort int    `yaml:"http_port"`
}

// ProtocolsConfig controls which transports are served
type ProtocolsConfig struct {
	TCP       bool `yaml:"tcp"`
	GRPC      bool `yaml:"grpc"`
	WebSocket bool `yaml:"websocket"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LimitsConfig bounds per-connection resource use
type LimitsConfig struct {
	MaxFrameSize int `yaml:"max_frame_size"`
}

// RateLimitConfig controls per-peer request throttling
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// MetricsConfig controls the metrics endpoint
type MetricsConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Path     string        `yaml:"path"`
	Interval time.Duration `yaml:"interval"`
}

// HealthConfig controls the health endpoints
type HealthConfig struct {
	Enabled bool `yaml:"enabled"`
}

// ProvisionConfig controls startup key provisioning
type ProvisionConfig struct {
	Enabled     bool `yaml:"enabled"`
	FailOnError bool `yaml:"fail_on_error"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:     "localhost",
			Port:     10710,
			GRPCPort: 10711,
			HTTPPort: 10712,
		},
		Protocols: ProtocolsConfig{TCP: true},
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		Limits:    LimitsConfig{MaxFrameSize: transport.DefaultMaxFrameSize},
		RateLimit: RateLimitConfig{RequestsPerSecond: 100, Burst: 200},
		Metrics:   MetricsConfig{Enabled: true, Path: "/metrics", Interval: 15 * time.Second},
		Health:    HealthConfig{Enabled: true},
		Provision: ProvisionConfig{Enabled: true},
	}
}

// Load reads configuration from a YAML file layered over Default and
// applies environment variable overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		// #nosec G304 - Config file path is provided by the operator
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies KEYSTORE_* environment variables
func applyEnvOverrides(cfg *Config) error {
	if host := os.Getenv("KEYSTORE_HOST"); host != "" {
		cfg.Server.Host = host
	}
	ports := []struct {
		env string
		dst *int
	}{
		{"KEYSTORE_PORT", &cfg.Server.Port},
		{"KEYSTORE_GRPC_PORT", &cfg.Server.GRPCPort},
		{"KEYSTORE_HTTP_PORT", &cfg.Server.HTTPPort},
		{"KEYSTORE_MAX_FRAME_SIZE", &cfg.Limits.MaxFrameSize},
	}
	for _, p := range ports {
		v := os.Getenv(p.env)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, p.env, v, err)
		}
		*p.dst = n
	}

	if level := os.Getenv("KEYSTORE_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("KEYSTORE_LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}
	if v := os.Getenv("KEYSTORE_PROVISION"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: KEYSTORE_PROVISION=%q: %v", ErrInvalidConfig, v, err)
		}
		cfg.Provision.Enabled = b
	}
	if v := os.Getenv("KEYSTORE_KEY_TYPES"); v != "" {
		cfg.KeyTypes = strings.Split(v, ",")
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Protocols.TCP && !validPort(c.Server.Port) {
		return fmt.Errorf("%w: tcp port %d", ErrInvalidConfig, c.Server.Port)
	}
	if c.Protocols.GRPC && !validPort(c.Server.GRPCPort) {
		return fmt.Errorf("%w: grpc port %d", ErrInvalidConfig, c.Server.GRPCPort)
	}
	if c.HTTPEnabled() && !validPort(c.Server.HTTPPort) {
		return fmt.Errorf("%w: http port %d", ErrInvalidConfig, c.Server.HTTPPort)
	}
	if !c.Protocols.TCP && !c.Protocols.GRPC && !c.Protocols.WebSocket {
		return fmt.Errorf("%w: at least one protocol must be enabled", ErrInvalidConfig)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log level %q (must be debug, info, warn or error)", ErrInvalidConfig, c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("%w: log format %q (must be json or text)", ErrInvalidConfig, c.Logging.Format)
	}

	if c.Limits.MaxFrameSize <= 0 {
		return fmt.Errorf("%w: max_frame_size must be positive", ErrInvalidConfig)
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("%w: ratelimit requests_per_second must be positive", ErrInvalidConfig)
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("%w: metrics path %q must start with /", ErrInvalidConfig, c.Metrics.Path)
	}
	if _, err := c.KeyTypeIDs(); err != nil {
		return err
	}
	return nil
}

// KeyTypeIDs parses KeyTypes.
func (c *Config) KeyTypeIDs() ([]types.KeyTypeID, error) {
	if len(c.KeyTypes) == 0 {
		return nil, nil
	}
	ids := make([]types.KeyTypeID, 0, len(c.KeyTypes))
	for _, s := range c.KeyTypes {
		id, err := types.ParseKeyTypeID(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("%w: key type %q: %v", ErrInvalidConfig, s, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// HTTPEnabled reports whether the HTTP side-port is needed.
func (c *Config) HTTPEnabled() bool {
	return c.Protocols.WebSocket || c.Metrics.Enabled || c.Health.Enabled
}

// TCPAddress returns the host:port of the tcp listener.
func (c *Config) TCPAddress() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// GRPCAddress returns the host:port of the grpc listener.
func (c *Config) GRPCAddress() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.GRPCPort))
}

// HTTPAddress returns the host:port of the HTTP side-port.
func (c *Config) HTTPAddress() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.HTTPPort))
}

// Port 0 asks the kernel for a free port.
func validPort(port int) bool {
	return port >= 0 && port <= 65535
}
