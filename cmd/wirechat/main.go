// wirechat - terminal client for the wirechat messaging service

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/wirechat/cmd/wirechat/internal"
	"github.com/tinyland-inc/wirechat/cmd/wirechat/internal/chat"
	"github.com/tinyland-inc/wirechat/cmd/wirechat/internal/login"
	"github.com/tinyland-inc/wirechat/cmd/wirechat/internal/monitor"
	"github.com/tinyland-inc/wirechat/cmd/wirechat/internal/version"
)

func NewWirechatCommand() *cobra.Command {
	short := fmt.Sprintf("%s wirechat - Terminal Messenger v%s\n\n", internal.Logo, internal.GetVersion())

	cmd := &cobra.Command{
		Use:     "wirechat",
		Short:   short,
		Example: "wirechat chat",
	}

	cmd.AddCommand(
		login.NewLoginCommand(),
		chat.NewChatCommand(),
		monitor.NewMonitorCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	cmd := NewWirechatCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
