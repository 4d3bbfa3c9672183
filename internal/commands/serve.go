package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/finsplit-dev/finsplit/internal/server"
)

func newServeCommand(g *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ledger and upload API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := g.load(cmd)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = ws.cfg.Server.Addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			h := &server.Handler{
				StorePath: ws.storePath(),
				Ingest:    ws.ingestService(),
				Log:       ws.log,
			}
			ws.log.Info().Str("addr", addr).Str("store", h.StorePath).Msg("serving")
			fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", addr)
			return server.Serve(ctx, server.NewApp(h), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides finsplit.yaml)")

	return cmd
}
