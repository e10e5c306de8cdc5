package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/analyst/pkg/core"
)

// NewAskCommand creates the ask command: run one analysis job in the
// foreground and print the answer.
func NewAskCommand() *cobra.Command {
	var (
		timeWindow string
		grain      string
		profile    string
		keyColumn  string
		maxQueries int
		maxSeconds int
		filters    []string
		showSQL    bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a natural-language data question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := ConfigFrom(ctx)
			logger := LoggerFrom(ctx)

			if err := cfg.Validate(); err != nil {
				return err
			}

			spec := core.QuerySpec{
				Question:          strings.Join(args, " "),
				Dialect:           cfg.Source.Dialect,
				TimeWindow:        timeWindow,
				Grain:             grain,
				KeyColumn:         keyColumn,
				Budget:            core.Budget{MaxQueries: maxQueries, MaxSeconds: maxSeconds},
				ValidationProfile: core.ValidationProfile(profile),
			}
			if len(filters) > 0 {
				spec.Filters = make(map[string]any, len(filters))
				for _, f := range filters {
					key, value, ok := strings.Cut(f, "=")
					if !ok {
						return fmt.Errorf("invalid filter %q (want key=value)", f)
					}
					spec.Filters[key] = value
				}
			}

			observer := func(state *core.AnalystState, step core.ExecutionStep) {
				logger.Debug("step",
					"node", step.Node,
					"status", step.Status,
					"queries_used", state.Budget.QueriesUsed,
				)
			}

			eng, conn, err := buildEngine(ctx, cfg, logger, observer)
			if err != nil {
				return err
			}
			defer conn.Close()

			start := time.Now()
			state, err := eng.Run(ctx, uuid.NewString(), spec)
			if err != nil {
				return err
			}

			renderRun(cmd.OutOrStdout(), state, showSQL)
			fmt.Fprintf(cmd.OutOrStdout(), "\nCompleted in %s (%d queries)\n",
				time.Since(start).Round(time.Millisecond), state.Budget.QueriesUsed)
			return nil
		},
	}

	cmd.Flags().StringVar(&timeWindow, "time-window", "", "Time window for the question (e.g. last_6_months)")
	cmd.Flags().StringVar(&grain, "grain", "", "Time granularity (month, day, hour)")
	cmd.Flags().StringVar(&profile, "profile", "", "Validation profile (fast|balanced|strict)")
	cmd.Flags().StringVar(&keyColumn, "key-column", "", "Column checked by the unique-keys gate")
	cmd.Flags().IntVar(&maxQueries, "max-queries", 0, "Query budget (0 uses the default)")
	cmd.Flags().IntVar(&maxSeconds, "max-seconds", 0, "Wall-clock budget in seconds (0 uses the default)")
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "Extra constraint as key=value (repeatable)")
	cmd.Flags().BoolVar(&showSQL, "show-sql", false, "Print the final SQL")

	return cmd
}

func renderRun(w io.Writer, state *core.AnalystState, showSQL bool) {
	fmt.Fprintln(w, state.Answer)

	if state.Shaped != nil && len(state.Shaped.Sample) > 0 {
		fmt.Fprintln(w)
		renderResultTable(w, state.Shaped)
	}

	if q := state.FinalQuality; q != nil {
		verdict := "failed"
		if q.Passed {
			verdict = "passed"
		}
		fmt.Fprintf(w, "\nQuality: %.2f (%s)\n", q.Score, verdict)
	}

	if showSQL && state.SQLCandidate != "" {
		fmt.Fprintf(w, "\nSQL:\n%s\n", state.SQLCandidate)
	}
}

func renderResultTable(w io.Writer, shaped *core.ResultSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(shaped.ColumnName))
	for i, col := range shaped.ColumnName {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, sample := range shaped.Sample {
		row := make(table.Row, len(sample))
		for i, v := range sample {
			row[i] = formatValue(v)
		}
		t.AppendRow(row)
	}

	t.Render()
	if shaped.Rows > len(shaped.Sample) {
		fmt.Fprintf(w, "(%d rows, showing first %d)\n", shaped.Rows, len(shaped.Sample))
	} else {
		fmt.Fprintf(w, "(%d rows)\n", shaped.Rows)
	}
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprintf("%v", v)
}
