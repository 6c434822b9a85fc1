package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newServeCommand(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the cron schedule and the HTTP trigger API until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, err := open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			return rt.Serve(ctx)
		},
	}
}
