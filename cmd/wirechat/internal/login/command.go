package login

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/wirechat/cmd/wirechat/internal"
	"github.com/tinyland-inc/wirechat/pkg/auth"
	"github.com/tinyland-inc/wirechat/pkg/model"
)

func NewLoginCommand() *cobra.Command {
	var userID string
	var name string
	var admin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a wirechat token for future sessions",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return loginCmd(userID, name, admin)
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "User id")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Display name")
	cmd.Flags().BoolVar(&admin, "admin", false, "Store an admin credential")

	return cmd
}

func loginCmd(userID, name string, admin bool) error {
	if userID == "" {
		return fmt.Errorf("--user is required")
	}

	token, err := auth.PasteToken(os.Stdin)
	if err != nil {
		return err
	}

	role := model.RoleUser
	if admin {
		role = model.RoleAdmin
	}

	path := internal.GetCredentialsPath()
	if err := auth.Save(path, auth.Credential{
		UserID:      userID,
		DisplayName: name,
		Token:       token,
		Role:        role,
	}); err != nil {
		return fmt.Errorf("error saving credential: %w", err)
	}

	fmt.Printf("Credential saved to %s\n", path)
	return nil
}
