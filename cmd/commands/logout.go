package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// logout: tear everything down and forget the session.
func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and clear the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := appCtx.Logout(); err != nil {
				return err
			}
			fmt.Println("logged out")
			return nil
		},
	}
}
