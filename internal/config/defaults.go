package config

import "github.com/leapstack-labs/analyst/internal/quality"

// Default configuration values.
const (
	DefaultPort         = 8080
	DefaultWorkers      = 4
	DefaultStorePath    = "analyst.db"
	DefaultQueryTimeout = 30
	DefaultSchemaTTL    = 300
)

// ApplyDefaults fills zero values on a loaded config.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.Workers <= 0 {
		c.Server.Workers = DefaultWorkers
	}
	if c.Store.Path == "" {
		c.Store.Path = DefaultStorePath
	}
	if c.Engine.QueryTimeoutSeconds <= 0 {
		c.Engine.QueryTimeoutSeconds = DefaultQueryTimeout
	}
	if c.Engine.SchemaCacheTTLSeconds == 0 {
		c.Engine.SchemaCacheTTLSeconds = DefaultSchemaTTL
	}
	defaults := quality.DefaultConfig()
	if c.Quality.ReconTolerance <= 0 {
		c.Quality.ReconTolerance = defaults.ReconTolerance
	}
	if c.Quality.PlateauEpsilon <= 0 {
		c.Quality.PlateauEpsilon = defaults.PlateauEpsilon
	}
	c.LLM.ApplyDefaults()
}
