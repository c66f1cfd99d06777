package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pathprobehq/pathprobe/internal/logging"
	"github.com/pathprobehq/pathprobe/internal/responder"
)

var respondListenFlag string

var respondCmd = &cobra.Command{
	Use:   "respond",
	Short: "Run the echo responder on the remote end of the path",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.New()

		r, err := responder.Listen(respondListenFlag, responder.WithLogger(logger))
		if err != nil {
			return err
		}
		defer r.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Printf("responder listening on %s", r.Addr())
		if err := r.Serve(ctx); err != nil && err != context.Canceled {
			return err
		}
		return nil
	},
}

func init() {
	respondCmd.Flags().StringVar(&respondListenFlag, "listen", ":7640", "listen address")
	rootCmd.AddCommand(respondCmd)
}
