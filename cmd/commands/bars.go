package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// bars: list venues and their rewards.
func barsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bars",
		Short: "List participating bars and their rewards",
		RunE: func(cmd *cobra.Command, args []string) error {
			bars, err := appCtx.Bars(cmd.Context())
			if err != nil {
				return err
			}
			for _, bar := range bars {
				fmt.Printf("[%d] %s", bar.ID, bar.Name)
				if bar.Location != "" {
					fmt.Printf(" - %s", bar.Location)
				}
				fmt.Println()
				for _, r := range bar.Rewards {
					fmt.Printf("    reward [%d] %s (%d points)\n", r.ID, r.Name, r.PointsCost)
				}
			}
			return nil
		},
	}
}
