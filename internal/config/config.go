package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kalambet/resumesync/internal/credentials"
)

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Log     LogConfig
	LLM     LLMConfig
	Jobs    JobsConfig
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

type LLMConfig struct {
	Provider       string
	Model          string
	BaseURL        string
	AttemptTimeout string
	RateLimit      float64
	FastFail       bool

	// APIKeys is the credential pool. It may be empty: calls then fail
	// with a "no credentials" error instead of the server refusing to start.
	APIKeys []string
}

type JobsConfig struct {
	Limit int
}

const defaultAttemptTimeout = 60 * time.Second

// Timeout returns the per-attempt timeout, falling back to 60s when the
// configured value is missing or unparsable.
func (c LLMConfig) Timeout() time.Duration {
	d, err := time.ParseDuration(c.AttemptTimeout)
	if err != nil || d <= 0 {
		return defaultAttemptTimeout
	}
	return d
}

func defaults() Config {
	return Config{
		Server:  ServerConfig{Port: 4100},
		Storage: StorageConfig{DataDir: defaultDataDir()},
		Log:     LogConfig{Level: "info"},
		LLM: LLMConfig{
			Provider:       "gemini",
			Model:          "gemini-2.5-flash",
			AttemptTimeout: defaultAttemptTimeout.String(),
		},
		Jobs: JobsConfig{Limit: 5},
	}
}

// Load reads configuration from the JSON file at
// $XDG_CONFIG_HOME/resumesync/config.json, then applies RESUMESYNC_*
// environment overrides. Provider credentials come from RESUMESYNC_API_KEYS
// (comma-separated), then GEMINI_API_KEY, then the secrets file.
func Load() (Config, error) {
	return loadWith(newFileBackend(configFilePath()), newSecretsFile(secretsFilePath()))
}

// secretReader abstracts the secrets file for testing.
type secretReader interface {
	Get(name string) (string, error)
}

func loadWith(b ConfigBackend, secrets secretReader) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg)

	if len(cfg.LLM.APIKeys) == 0 {
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			cfg.LLM.APIKeys = []string{key}
		}
	}
	if len(cfg.LLM.APIKeys) == 0 {
		if keys, err := secrets.Get(secretAPIKeys); err == nil && keys != "" {
			cfg.LLM.APIKeys = credentials.ParseList(keys)
		}
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return Config{}, fmt.Errorf("invalid server.port %d", cfg.Server.Port)
	}
	if cfg.Jobs.Limit <= 0 {
		cfg.Jobs.Limit = defaults().Jobs.Limit
	}
	return cfg, nil
}
