package monitor

import (
	"github.com/spf13/cobra"
)

func NewMonitorCommand() *cobra.Command {
	var userID string
	var name string
	var token string
	var debug bool

	cmd := &cobra.Command{
		Use:     "monitor",
		Aliases: []string{"m"},
		Short:   "Start the admin monitoring console",
		Args:    cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return monitorCmd(userID, name, token, debug)
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "Admin user id (default $WIRECHAT_USER_ID)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Display name (default $WIRECHAT_USER_NAME)")
	cmd.Flags().StringVarP(&token, "token", "t", "", "Auth token (default $WIRECHAT_TOKEN)")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	return cmd
}
