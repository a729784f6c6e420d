package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "notes", cfg.Storage.Table)
	assert.True(t, cfg.Render.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)

	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid defaults",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
		{
			name:    "port too low",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "invalid server port",
		},
		{
			name:    "port too high",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "invalid server port",
		},
		{
			name:    "zero shutdown timeout",
			mutate:  func(c *Config) { c.Server.ShutdownTimeout = 0 },
			wantErr: "shutdown timeout",
		},
		{
			name:    "empty table name",
			mutate:  func(c *Config) { c.Storage.Table = "" },
			wantErr: "table name",
		},
		{
			name:    "render width too small",
			mutate:  func(c *Config) { c.Render.Width = 10 },
			wantErr: "render width",
		},
		{
			name:    "bad logging level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "invalid logging level",
		},
		{
			name:    "bad logging format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "logging format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestStorageConfig_TableURL(t *testing.T) {
	cfg := StorageConfig{Account: "mynotes"}
	assert.Equal(t, "https://mynotes.table.core.windows.net", cfg.TableURL())

	cfg.Endpoint = "http://127.0.0.1:10002/devstoreaccount1"
	assert.Equal(t, "http://127.0.0.1:10002/devstoreaccount1", cfg.TableURL())
}
