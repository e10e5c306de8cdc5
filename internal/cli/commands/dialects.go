package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/analyst/internal/connector"
	"github.com/leapstack-labs/analyst/pkg/core"
	"github.com/leapstack-labs/analyst/pkg/dialect"
)

// NewDialectsCommand creates the dialects command: list registered
// dialects and whether a driver is bundled for each.
func NewDialectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List supported SQL dialects",
		RunE: func(cmd *cobra.Command, _ []string) error {
			drivers := make(map[core.Dialect]bool)
			for _, d := range connector.Available() {
				drivers[d] = true
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Dialect", "Driver", "Window Fns", "CTE", "ILIKE", "QUALIFY"})

			for _, name := range dialect.List() {
				caps, err := dialect.Get(name)
				if err != nil {
					continue
				}
				t.AppendRow(table.Row{
					caps.Name,
					yesNo(drivers[caps.Name]),
					yesNo(caps.WindowFunctions),
					yesNo(caps.CTE),
					yesNo(caps.Ilike),
					yesNo(caps.QualifyClause),
				})
			}
			t.Render()
			fmt.Fprintln(cmd.OutOrStdout(), "\nDialects without a bundled driver can be used via a custom connector.")
			return nil
		},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
