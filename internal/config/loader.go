package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config file names looked up in the working directory.
const (
	ConfigFileName    = "analyst.yaml"
	ConfigFileNameAlt = "analyst.yml"
)

// findConfigFile returns the config file to use.
// Priority: explicit path > analyst.yaml > analyst.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat(ConfigFileName); err == nil {
		return ConfigFileName
	}
	if _, err := os.Stat(ConfigFileNameAlt); err == nil {
		return ConfigFileNameAlt
	}
	return ""
}

// Load builds the configuration from defaults, an optional YAML file,
// ANALYST_ environment variables, and explicitly set flags, in that
// precedence order (lowest to highest).
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"server.port":                     DefaultPort,
		"server.workers":                  DefaultWorkers,
		"store.path":                      DefaultStorePath,
		"engine.query_timeout_seconds":    DefaultQueryTimeout,
		"engine.schema_cache_ttl_seconds": DefaultSchemaTTL,
		"verbose":                         false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(cfgFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// ANALYST_SERVER__PORT -> server.port. A double underscore separates
	// nesting levels so keys like query_timeout_seconds survive.
	if err := k.Load(env.Provider("ANALYST_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "ANALYST_"))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return flagKey(f.Name), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.ApplyDefaults()

	// Credentials may reference environment variables.
	cfg.LLM.APIKey = expandEnvVars(cfg.LLM.APIKey)
	cfg.Source.DSN = expandEnvVars(cfg.Source.DSN)
	cfg.Source.Password = expandEnvVars(cfg.Source.Password)
	cfg.Source.Username = expandEnvVars(cfg.Source.Username)
	cfg.Source.Host = expandEnvVars(cfg.Source.Host)

	return &cfg, nil
}

// flagKey maps a CLI flag name to its config key.
func flagKey(name string) string {
	switch name {
	case "port":
		return "server.port"
	case "workers":
		return "server.workers"
	case "store":
		return "store.path"
	case "dialect":
		return "source.dialect"
	case "db":
		return "source.path"
	case "dsn":
		return "source.dsn"
	case "model":
		return "llm.model"
	default:
		return strings.ReplaceAll(name, "-", "_")
	}
}

// expandEnvVars expands ${VAR} patterns with environment variable values.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})
}
