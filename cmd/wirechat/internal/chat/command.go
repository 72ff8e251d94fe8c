package chat

import (
	"github.com/spf13/cobra"
)

func NewChatCommand() *cobra.Command {
	var userID string
	var name string
	var token string
	var debug bool

	cmd := &cobra.Command{
		Use:     "chat",
		Aliases: []string{"c"},
		Short:   "Start an interactive chat session",
		Args:    cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return chatCmd(userID, name, token, debug)
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "User id (default $WIRECHAT_USER_ID)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Display name (default $WIRECHAT_USER_NAME)")
	cmd.Flags().StringVarP(&token, "token", "t", "", "Auth token (default $WIRECHAT_TOKEN)")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	return cmd
}
