package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kFloat
)

// keySpec binds one dotted config key to its Config field. envs lists the
// environment variables that override it, highest precedence first.
type keySpec struct {
	key     string
	typ     keyType
	envs    []string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.host", typ: kString, envs: []string{"LTGATE_SERVER_HOST"},
		apply:   func(cfg *Config, v any) { cfg.Server.Host = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Host },
	},
	{
		key: "server.port", typ: kInt, envs: []string{"LTGATE_SERVER_PORT", "PORT"},
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "log.level", typ: kString, envs: []string{"LTGATE_LOG_LEVEL"},
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "storage.driver", typ: kString, envs: []string{"LTGATE_STORAGE_DRIVER"},
		apply:   func(cfg *Config, v any) { cfg.Storage.Driver = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.Driver },
	},
	{
		key: "storage.data_dir", typ: kString, envs: []string{"LTGATE_STORAGE_DATA_DIR"},
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "storage.database_url", typ: kString, envs: []string{"LTGATE_DATABASE_URL", "DATABASE_URL"},
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Storage.DatabaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DatabaseURL },
	},
	{
		key: "completion.provider", typ: kString, envs: []string{"LTGATE_COMPLETION_PROVIDER"},
		apply:   func(cfg *Config, v any) { cfg.Completion.Provider = v.(string) },
		extract: func(cfg Config) any { return cfg.Completion.Provider },
	},
	{
		key: "completion.api_key", typ: kString, envs: []string{"LTGATE_COMPLETION_API_KEY", "GEMINI_API_KEY"},
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Completion.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Completion.APIKey },
	},
	{
		key: "completion.model", typ: kString, envs: []string{"LTGATE_COMPLETION_MODEL"},
		apply:   func(cfg *Config, v any) { cfg.Completion.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Completion.Model },
	},
	{
		key: "completion.base_url", typ: kString, envs: []string{"LTGATE_COMPLETION_BASE_URL"},
		apply:   func(cfg *Config, v any) { cfg.Completion.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Completion.BaseURL },
	},
	{
		key: "completion.temperature", typ: kFloat, envs: []string{"LTGATE_COMPLETION_TEMPERATURE"},
		apply:   func(cfg *Config, v any) { cfg.Completion.Temperature = v.(float64) },
		extract: func(cfg Config) any { return cfg.Completion.Temperature },
	},
	{
		key: "completion.max_output_tokens", typ: kInt, envs: []string{"LTGATE_COMPLETION_MAX_OUTPUT_TOKENS"},
		apply:   func(cfg *Config, v any) { cfg.Completion.MaxOutputTokens = v.(int) },
		extract: func(cfg Config) any { return cfg.Completion.MaxOutputTokens },
	},
	{
		key: "intake.time_zone", typ: kString, envs: []string{"LTGATE_INTAKE_TIME_ZONE"},
		apply:   func(cfg *Config, v any) { cfg.Intake.TimeZone = v.(string) },
		extract: func(cfg Config) any { return cfg.Intake.TimeZone },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) {
	for _, s := range specs {
		if s.secret {
			continue
		}
		if raw, ok := b.Lookup(s.key); ok && raw != "" {
			s.set(cfg, raw, "config key "+s.key)
		}
	}
}

// set parses raw for the spec's type and applies it. A value that does not
// parse is reported and the previous value is kept.
func (s keySpec) set(cfg *Config, raw, source string) {
	switch s.typ {
	case kString:
		s.apply(cfg, raw)
	case kInt:
		i, err := strconv.Atoi(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from %s=%q: %v. Using default value.\n", source, raw, err)
			return
		}
		s.apply(cfg, i)
	case kFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse float from %s=%q: %v. Using default value.\n", source, raw, err)
			return
		}
		s.apply(cfg, f)
	}
}

// lookupEnv returns the first non-empty variable of envs.
func lookupEnv(envs []string) (name, value string) {
	for _, e := range envs {
		if v := os.Getenv(e); v != "" {
			return e, v
		}
	}
	return "", ""
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if env, raw := lookupEnv(s.envs); raw != "" {
			s.set(cfg, raw, "env var "+env)
		}
	}
}
