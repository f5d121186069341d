package server

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config controls the HTTP API.
type Config struct {
	// Listen address (default: ":8080")
	Addr string `yaml:"addr"`
	// Directory scanned for board catalogs
	BoardsDir string `yaml:"boards_dir"`

	// Request limits
	MaxBodyBytes      int64         `yaml:"max_body_bytes"`      // default: 1 MiB
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"` // default: 10s
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`    // default: 5s

	// Metrics endpoint, empty disables it (default: "/metrics")
	MetricsPath string `yaml:"metrics_path"`
}

// DefaultConfig returns a Config with sensible defaults for local use.
func DefaultConfig() *Config {
	return &Config{
		Addr:              ":8080",
		MaxBodyBytes:      1 << 20,
		ReadHeaderTimeout: 10 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		MetricsPath:       "/metrics",
	}
}

// LoadConfig reads a YAML config file on top of DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("server: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration and fills in zero limits.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("server: listen address is required")
	}
	if c.BoardsDir != "" {
		info, err := os.Stat(c.BoardsDir)
		if err != nil {
			return fmt.Errorf("server: boards dir: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("server: boards dir %s is not a directory", c.BoardsDir)
		}
	}

	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 1 << 20
	}
	if c.ReadHeaderTimeout <= 0 {
		c.ReadHeaderTimeout = 10 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	return nil
}
