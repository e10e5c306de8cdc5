// Package cli provides the command-line interface for the analyst.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/analyst/internal/cli/commands"
	"github.com/leapstack-labs/analyst/internal/config"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "analyst",
		Short: "Analyst - Iterative NL-to-SQL Analysis Engine",
		Long: `Analyst answers natural-language data questions against a SQL database.

It generates a candidate query with an LLM, executes it read-only, diagnoses
failures, and refines the query until quality gates pass or the budget runs
out. Every run ends with a best-effort answer and a full execution trace.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)
			ctx := commands.WithConfig(cmd.Context(), cfg)
			ctx = commands.WithLogger(ctx, logger)
			cmd.SetContext(ctx)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./analyst.yaml)")
	rootCmd.PersistentFlags().String("dialect", "", "SQL dialect of the data source")
	rootCmd.PersistentFlags().String("db", "", "Path to a file-based database (duckdb, sqlite)")
	rootCmd.PersistentFlags().String("dsn", "", "Connection string for network databases")
	rootCmd.PersistentFlags().String("store", "", "Path to the job store database")
	rootCmd.PersistentFlags().String("model", "", "LLM model override")
	rootCmd.PersistentFlags().Int("port", 0, "API server port")
	rootCmd.PersistentFlags().Int("workers", 0, "Maximum concurrent jobs")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(commands.NewVersionCommand(Version, BuildDate, GitCommit))
	rootCmd.AddCommand(commands.NewAskCommand())
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewDialectsCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	// Pick up ANTHROPIC_API_KEY and friends from a local .env.
	_ = godotenv.Load()

	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(w, &tint.Options{Level: level}))
}
