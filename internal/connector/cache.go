package connector

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/leapstack-labs/analyst/pkg/core"
)

// schemaCacheKey is the single cache key: one cache instance serves one
// underlying connector.
const schemaCacheKey = "schema"

// cachingConnector memoizes schema introspection with a TTL so concurrent
// jobs against the same data source do not re-profile every table each run.
// Query execution passes through untouched.
type cachingConnector struct {
	Connector
	cache *ttlcache.Cache[string, *core.SchemaProfile]
}

// WithSchemaCache wraps a connector so IntrospectSchema results are reused
// for ttl. A non-positive ttl returns the connector unchanged.
func WithSchemaCache(c Connector, ttl time.Duration) Connector {
	if ttl <= 0 {
		return c
	}
	cache := ttlcache.New[string, *core.SchemaProfile](
		ttlcache.WithTTL[string, *core.SchemaProfile](ttl),
	)
	go cache.Start()
	return &cachingConnector{Connector: c, cache: cache}
}

func (c *cachingConnector) IntrospectSchema(ctx context.Context) (*core.SchemaProfile, error) {
	if item := c.cache.Get(schemaCacheKey); item != nil {
		return item.Value(), nil
	}
	profile, err := c.Connector.IntrospectSchema(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Set(schemaCacheKey, profile, ttlcache.DefaultTTL)
	return profile, nil
}

func (c *cachingConnector) Close() error {
	c.cache.Stop()
	return c.Connector.Close()
}

// quoteDotted renders schema.table with the given quote characters,
// omitting the schema part when empty.
func quoteDotted(quote, quoteEnd string) func(schema, name string) string {
	return func(schema, name string) string {
		if schema == "" {
			return quote + name + quoteEnd
		}
		return quote + schema + quoteEnd + "." + quote + name + quoteEnd
	}
}
