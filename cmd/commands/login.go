package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// login <username> -p <password>: authenticate and persist the session.
func loginCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Log in and store the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				return fmt.Errorf("password required (-p)")
			}
			user, err := appCtx.Login(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			fmt.Printf("logged in as %s (balance: %d points)\n", user.Username, user.PointsBalance)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	return cmd
}
