package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// envPrefix namespaces all notesd environment variables.
	envPrefix = "NOTESD_"
)

// sections are the top-level config keys used by the env transformer.
var sections = []string{"server", "storage", "tenant", "render", "logging"}

// Load loads configuration from YAML file, then overrides with
// environment variables.
//
// The configPath parameter specifies the YAML file to load. If empty,
// the default path ~/.config/notesd/config.yaml is used; a missing file
// is not an error.
//
// Environment variables use underscore separators and are uppercased
// with the NOTESD_ prefix:
//
//	NOTESD_SERVER_PORT             -> server.port
//	NOTESD_SERVER_SHUTDOWN_TIMEOUT -> server.shutdown_timeout
//	NOTESD_STORAGE_ACCOUNT         -> storage.account
//	NOTESD_TENANT_ID               -> tenant.id
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".config", "notesd", "config.yaml")
	}

	if _, err := os.Stat(configPath); err == nil {
		content, err := readConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", transformEnvKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// readConfigFile opens and reads the config file with a size limit.
// The size check uses the already-opened file descriptor to avoid a
// TOCTOU race.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// transformEnvKey maps a NOTESD_* environment variable to a koanf key.
//
// The first underscore after a known section name becomes the key
// separator; remaining underscores are kept as part of the field name
// (NOTESD_SERVER_SHUTDOWN_TIMEOUT -> server.shutdown_timeout).
func transformEnvKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	for _, section := range sections {
		if strings.HasPrefix(s, section+"_") {
			return section + "." + strings.TrimPrefix(s, section+"_")
		}
	}
	return s
}
