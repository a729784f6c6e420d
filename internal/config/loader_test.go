package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformEnvKey(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"NOTESD_SERVER_PORT", "server.port"},
		{"NOTESD_SERVER_SHUTDOWN_TIMEOUT", "server.shutdown_timeout"},
		{"NOTESD_STORAGE_ACCOUNT", "storage.account"},
		{"NOTESD_STORAGE_KEY", "storage.key"},
		{"NOTESD_TENANT_ID", "tenant.id"},
		{"NOTESD_RENDER_ENABLED", "render.enabled"},
		{"NOTESD_LOGGING_LEVEL", "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			assert.Equal(t, tt.want, transformEnvKey(tt.env))
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	// Point at a file that does not exist; defaults apply.
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "notes", cfg.Storage.Table)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 8080
  shutdown_timeout: 5s
storage:
  account: testacct
  table: scratch
tenant:
  id: pinned-tenant
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "testacct", cfg.Storage.Account)
	assert.Equal(t, "scratch", cfg.Storage.Table)
	assert.Equal(t, "pinned-tenant", cfg.Tenant.ID)
	// Untouched sections keep defaults.
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 8080\n"), 0o600))

	t.Setenv("NOTESD_SERVER_PORT", "9191")
	t.Setenv("NOTESD_LOGGING_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_InvalidConfigRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: -1\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
