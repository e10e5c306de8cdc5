package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/analyst/internal/config"
	"github.com/leapstack-labs/analyst/internal/connector"
	"github.com/leapstack-labs/analyst/internal/engine"
	"github.com/leapstack-labs/analyst/internal/llm"
	"github.com/leapstack-labs/analyst/pkg/core"
)

// buildEngine wires the connector and LLM client into an engine from
// configuration. The returned connector must be closed by the caller.
func buildEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger, observer func(state *core.AnalystState, step core.ExecutionStep)) (*engine.Engine, connector.Connector, error) {
	conn, err := connector.New(ctx, cfg.Source, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to data source: %w", err)
	}
	if ttl := cfg.Engine.SchemaCacheTTL(); ttl > 0 {
		conn = connector.WithSchemaCache(conn, ttl)
	}

	client := llm.NewAnthropic(cfg.LLM, logger)

	eng, err := engine.New(engine.Config{
		LLM:           client,
		Connector:     conn,
		Quality:       cfg.Quality,
		QueryTimeout:  cfg.Engine.QueryTimeout(),
		SyntaxRetries: cfg.Engine.SyntaxRetries,
		EmptyRetries:  cfg.Engine.EmptyRetries,
		Logger:        logger,
		Observer:      observer,
	})
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	return eng, conn, nil
}
