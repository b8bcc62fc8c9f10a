package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"barpoints/models"
)

// register: create an account, then log in separately.
func registerCmd() *cobra.Command {
	var req models.RegisterRequest

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Firstname == "" || req.Lastname == "" || req.Email == "" || req.Password == "" {
				return fmt.Errorf("all of --firstname, --lastname, --email and -p are required")
			}
			if _, err := appCtx.Register(cmd.Context(), req); err != nil {
				return err
			}
			fmt.Println("account created, you can log in now")
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Firstname, "firstname", "", "first name")
	cmd.Flags().StringVar(&req.Lastname, "lastname", "", "last name")
	cmd.Flags().StringVar(&req.Email, "email", "", "email address")
	cmd.Flags().StringVarP(&req.Password, "password", "p", "", "password (min 6 characters)")
	return cmd
}
