package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/kalambet/resumesync/internal/credentials"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kFloat
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "RESUMESYNC_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "storage.data_dir", typ: kString, env: "RESUMESYNC_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "RESUMESYNC_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "llm.provider", typ: kString, env: "RESUMESYNC_LLM_PROVIDER",
		apply:   func(cfg *Config, v any) { cfg.LLM.Provider = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.Provider },
	},
	{
		key: "llm.model", typ: kString, env: "RESUMESYNC_LLM_MODEL",
		apply:   func(cfg *Config, v any) { cfg.LLM.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.Model },
	},
	{
		key: "llm.base_url", typ: kString, env: "RESUMESYNC_LLM_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.LLM.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.BaseURL },
	},
	{
		key: "llm.attempt_timeout", typ: kString, env: "RESUMESYNC_LLM_ATTEMPT_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.LLM.AttemptTimeout = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.AttemptTimeout },
	},
	{
		key: "llm.rate_limit", typ: kFloat, env: "RESUMESYNC_LLM_RATE_LIMIT",
		apply:   func(cfg *Config, v any) { cfg.LLM.RateLimit = v.(float64) },
		extract: func(cfg Config) any { return cfg.LLM.RateLimit },
	},
	{
		key: "llm.fast_fail", typ: kBool, env: "RESUMESYNC_LLM_FAST_FAIL",
		apply:   func(cfg *Config, v any) { cfg.LLM.FastFail = v.(bool) },
		extract: func(cfg Config) any { return cfg.LLM.FastFail },
	},
	{
		key: "llm.api_keys", typ: kString, env: "RESUMESYNC_API_KEYS",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.LLM.APIKeys = credentials.ParseList(v.(string)) },
		extract: func(cfg Config) any { return len(cfg.LLM.APIKeys) },
	},
	{
		key: "jobs.limit", typ: kInt, env: "RESUMESYNC_JOBS_LIMIT",
		apply:   func(cfg *Config, v any) { cfg.Jobs.Limit = v.(int) },
		extract: func(cfg Config) any { return cfg.Jobs.Limit },
	},
}

// Config is loaded before logging is set up, so parse problems are
// reported straight to stderr.
func warnf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "[WARN] "+format+" Using default value.\n", args...)
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		if s.typ == kInt {
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
			continue
		}

		v, ok, err := b.GetString(s.key)
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		if !ok || v == "" {
			continue
		}
		if parsed, err := parseValue(s.typ, v); err == nil {
			s.apply(cfg, parsed)
		} else {
			warnf("could not parse config key %s=%q: %v.", s.key, v, err)
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		if parsed, err := parseValue(s.typ, raw); err == nil {
			s.apply(cfg, parsed)
		} else {
			warnf("could not parse env var %s=%q: %v.", s.env, raw, err)
		}
	}
}

func parseValue(typ keyType, raw string) (any, error) {
	switch typ {
	case kInt:
		return strconv.Atoi(raw)
	case kBool:
		return strconv.ParseBool(raw)
	case kFloat:
		return strconv.ParseFloat(raw, 64)
	default:
		return raw, nil
	}
}
