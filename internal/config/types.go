// Package config loads the analyst configuration from file, environment,
// and flags, in that precedence order (lowest to highest).
package config

import (
	"fmt"
	"time"

	"github.com/leapstack-labs/analyst/internal/connector"
	"github.com/leapstack-labs/analyst/internal/llm"
	"github.com/leapstack-labs/analyst/internal/quality"
)

// ServerConfig holds the API server settings.
type ServerConfig struct {
	Port int `koanf:"port"`
	// Workers bounds concurrent job execution.
	Workers int `koanf:"workers"`
}

// StoreConfig holds job persistence settings.
type StoreConfig struct {
	// Path is the SQLite database file; ":memory:" keeps jobs in process.
	Path string `koanf:"path"`
}

// EngineConfig holds refinement loop tunables.
type EngineConfig struct {
	// QueryTimeoutSeconds caps one statement's runtime.
	QueryTimeoutSeconds int `koanf:"query_timeout_seconds"`
	// SyntaxRetries and EmptyRetries bound the recoverable-error loops.
	SyntaxRetries int `koanf:"syntax_retries"`
	EmptyRetries  int `koanf:"empty_retries"`
	// SchemaCacheTTLSeconds controls how long introspected schemas are
	// reused across jobs. Zero disables the cache.
	SchemaCacheTTLSeconds int `koanf:"schema_cache_ttl_seconds"`
}

// QueryTimeout returns the per-statement timeout as a duration.
func (c EngineConfig) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSeconds) * time.Second
}

// SchemaCacheTTL returns the schema cache TTL as a duration.
func (c EngineConfig) SchemaCacheTTL() time.Duration {
	return time.Duration(c.SchemaCacheTTLSeconds) * time.Second
}

// Config is the full analyst configuration.
type Config struct {
	Server  ServerConfig        `koanf:"server"`
	Store   StoreConfig         `koanf:"store"`
	LLM     llm.AnthropicConfig `koanf:"llm"`
	Source  connector.Config    `koanf:"source"`
	Quality quality.Config      `koanf:"quality"`
	Engine  EngineConfig        `koanf:"engine"`

	// Verbose enables debug logging.
	Verbose bool `koanf:"verbose"`
}

// Validate rejects configurations that cannot produce a working service.
func (c *Config) Validate() error {
	if c.Source.Dialect == "" {
		return fmt.Errorf("source dialect is required (set source.dialect or --dialect)")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	return nil
}
