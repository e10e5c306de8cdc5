package commands

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/analyst/internal/api"
	"github.com/leapstack-labs/analyst/internal/notifier"
	"github.com/leapstack-labs/analyst/internal/store"
)

// NewServeCommand creates the serve command: run the job API server.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the analysis job API server",
		Long: `Starts the HTTP API server. Jobs are submitted with POST /api/jobs,
polled with GET /api/jobs/{id}, and streamed with GET /api/jobs/{id}/events.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := ConfigFrom(cmd.Context())
			logger := LoggerFrom(cmd.Context())

			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			st := store.NewSQLiteStore(logger)
			if err := st.Open(cfg.Store.Path); err != nil {
				return err
			}
			defer st.Close()

			notif := notifier.New()
			eng, conn, err := buildEngine(ctx, cfg, logger, api.ProgressObserver(notif))
			if err != nil {
				return err
			}
			defer conn.Close()

			srv := api.NewServer(api.Config{
				Engine:   eng,
				Store:    st,
				Notifier: notif,
				Port:     cfg.Server.Port,
				Workers:  cfg.Server.Workers,
				Logger:   logger,
			})
			return srv.Serve(ctx)
		},
	}
	return cmd
}
