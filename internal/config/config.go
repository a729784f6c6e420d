// Package config provides configuration loading for notesd.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (NOTESD_SERVER_PORT, NOTESD_STORAGE_ACCOUNT, ...)
//  2. YAML config file (~/.config/notesd/config.yaml)
//  3. Hardcoded defaults
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/notesd/internal/logging"
)

// Config holds the complete notesd configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Storage StorageConfig `koanf:"storage"`
	Tenant  TenantConfig  `koanf:"tenant"`
	Render  RenderConfig  `koanf:"render"`
	Logging LoggingConfig `koanf:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// StorageConfig holds durable backend (Azure Table Storage) configuration.
//
// Account empty means the durable backend is never attempted and every
// operation is served by the transient store. Key empty means only the
// ambient (managed identity) credential strategy is available.
type StorageConfig struct {
	Account  string `koanf:"account"`
	Key      string `koanf:"key"`
	Table    string `koanf:"table"`
	Endpoint string `koanf:"endpoint"` // override, e.g. Azurite; default derived from account
}

// TenantConfig holds tenant pinning configuration.
//
// ID pins the tenant for sessions that carry no explicit hint. When
// empty, a random tenant is synthesized per session and notes are not
// portable across restarts.
type TenantConfig struct {
	ID string `koanf:"id"`
}

// RenderConfig holds note card rendering configuration.
type RenderConfig struct {
	Enabled bool `koanf:"enabled"`
	Width   int  `koanf:"width"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns the configuration defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            3000,
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Table: "notes",
		},
		Render: RenderConfig{
			Enabled: true,
			Width:   640,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// TableURL returns the table service endpoint for the configured account.
func (c *StorageConfig) TableURL() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return fmt.Sprintf("https://%s.table.core.windows.net", c.Account)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.Storage.Table == "" {
		return errors.New("storage table name is required")
	}
	if c.Render.Enabled && c.Render.Width < 64 {
		return fmt.Errorf("render width too small: %d (min 64)", c.Render.Width)
	}
	if _, err := logging.LevelFromString(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging level %q: %w", c.Logging.Level, err)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging format must be 'json' or 'console', got %q", c.Logging.Format)
	}
	return nil
}
