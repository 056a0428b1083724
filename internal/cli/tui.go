package cli

import (
	"io"

	"github.com/spf13/cobra"

	"zombiefinance/internal/tui"
)

func newTUICmd(o *rootOptions) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			// Logs would draw over the UI.
			e, err := openEnv(ctx, o, io.Discard)
			if err != nil {
				return err
			}
			defer e.Close()

			if user != "" {
				if _, err := e.ledger.SwitchUser(ctx, user); err != nil {
					return err
				}
			}
			return tui.Run(ctx, tui.New(ctx, e.ledger, e.cfg.CurrencySymbol, e.logger))
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "log in as this user on start")
	return cmd
}
