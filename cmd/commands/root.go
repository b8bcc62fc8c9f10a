// Package commands is the barpoints command tree. Commands are thin glue
// over the client package; no balance or session logic lives here.
package commands

import (
	"github.com/spf13/cobra"

	log "github.com/sirupsen/logrus"

	"barpoints/client"
	"barpoints/config"
	"barpoints/session"
)

var (
	verbose bool
	appCtx  *client.Client
)

func Execute() error {
	root := &cobra.Command{
		Use:           "barpoints",
		Short:         "Loyalty point-of-sale client",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				log.SetLevel(log.DebugLevel)
			} else {
				log.SetLevel(log.WarnLevel)
			}

			cfg := config.Get()
			store, err := session.NewFileStore(cfg.SessionDir)
			if err != nil {
				return err
			}
			appCtx, err = client.New(cfg, store, nil)
			return err
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(loginCmd(), registerCmd(), barsCmd(), payCmd(), redeemCmd(), watchCmd(), logoutCmd())
	return root.Execute()
}
