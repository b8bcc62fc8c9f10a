package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"barpoints/models"
)

// redeem <barID> <rewardID>: spend points on a reward.
func redeemCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "redeem <barID> <rewardID>",
		Short: "Redeem a reward with points",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			barID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid bar id %q", args[0])
			}
			rewardID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid reward id %q", args[1])
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
			var reward *models.Reward
			for i := range bar.Rewards {
				if bar.Rewards[i].ID == rewardID {
					reward = &bar.Rewards[i]
					break
				}
			}
			if reward == nil {
				return fmt.Errorf("reward %d not found at %s", rewardID, bar.Name)
			}

			if err := appCtx.Redeem(ctx, *reward); err != nil {
				return err
			}
			fmt.Printf("redeemed %s for %d points\n", reward.Name, reward.PointsCost)
			fmt.Printf("new balance: %d points\n", appCtx.Balance().Value)
			return nil
		},
	}
}
