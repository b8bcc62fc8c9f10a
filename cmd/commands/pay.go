package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"barpoints/balance"
	"barpoints/models"
)

// pay <barID>: create a payment transaction and wait briefly for the
// confirming balance push.
func payCmd() *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "pay <barID>",
		Short: "Pay at a bar and earn points",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			barID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid bar id %q", args[0])
			}

			ctx := cmd.Context()
			if err := appCtx.Start(ctx); err != nil {
				return err
			}
			defer appCtx.Stop()

			bar, err := findBar(ctx, barID)
			if err != nil {
				return err
			}

			// The payment response does not carry the final balance; the
			// authoritative value arrives over the realtime channel.
			pushed := make(chan int64, 1)
			cancel := appCtx.SubscribeBalance(func(snap balance.Snapshot) {
				if snap.Source == balance.SourcePushed {
					select {
					case pushed <- snap.Value:
					default:
					}
				}
			})
			defer cancel()

			tx, err := appCtx.Pay(ctx, bar)
			if err != nil {
				return err
			}
			fmt.Printf("Payment of %d RON at %s successful!\n", tx.Amount, bar.Name)
			if tx.QRCodeHash != "" {
				fmt.Printf("receipt code: %s\n", tx.QRCodeHash)
			}

			select {
			case v := <-pushed:
				fmt.Printf("new balance: %d points\n", v)
			case <-time.After(wait):
				fmt.Println("balance update still pending")
			case <-ctx.Done():
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 5*time.Second, "how long to wait for the balance push")
	return cmd
}

// findBar resolves a bar by id through the venue list.
func findBar(ctx context.Context, barID int64) (models.Bar, error) {
	bars, err := appCtx.Bars(ctx)
	if err != nil {
		return models.Bar{}, err
	}
	for _, b := range bars {
		if b.ID == barID {
			return b, nil
		}
	}
	return models.Bar{}, fmt.Errorf("bar %d not found", barID)
}
