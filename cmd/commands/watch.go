package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"barpoints/balance"
)

// watch: stream live balance updates until interrupted.
func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the points balance update in real time",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := appCtx.Start(ctx); err != nil {
				return err
			}
			defer appCtx.Stop()

			cancel := appCtx.SubscribeBalance(func(snap balance.Snapshot) {
				fmt.Printf("balance: %d points (%s)\n", snap.Value, snap.Source)
			})
			defer cancel()

			fmt.Printf("channel: %s, press ctrl-c to stop\n", appCtx.ChannelStatus())
			<-ctx.Done()
			return nil
		},
	}
}
