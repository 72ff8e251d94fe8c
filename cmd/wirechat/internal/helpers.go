package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/tinyland-inc/wirechat/pkg/auth"
	"github.com/tinyland-inc/wirechat/pkg/config"
	"github.com/tinyland-inc/wirechat/pkg/model"
	"github.com/tinyland-inc/wirechat/pkg/session"
)

const Logo = "💬"

var (
	version   = "dev"
	gitCommit string
	buildTime string
	goVersion string
)

func GetConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".wirechat", "config.json")
}

func GetCredentialsPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".wirechat", "credentials.json")
}

func LoadConfig() (*config.Config, error) {
	return config.LoadConfig(GetConfigPath())
}

// NewSession builds the session from flags, falling back first to
// WIRECHAT_* environment variables and then to the credential stored by
// "wirechat login".
func NewSession(userID, name, token string, admin bool) (*session.Session, error) {
	if userID == "" {
		userID = os.Getenv("WIRECHAT_USER_ID")
	}
	if name == "" {
		name = os.Getenv("WIRECHAT_USER_NAME")
	}
	if token == "" {
		token = os.Getenv("WIRECHAT_TOKEN")
	}
	role := model.RoleUser
	if admin {
		role = model.RoleAdmin
	}

	if token == "" {
		cred, err := auth.Load(GetCredentialsPath())
		if err == nil {
			if userID == "" {
				userID = cred.UserID
			}
			if name == "" {
				name = cred.DisplayName
			}
			token = cred.Token
			if !admin {
				role = cred.Role
			}
		}
	}

	return session.New(model.Identity{
		ID:          userID,
		DisplayName: name,
		AuthToken:   token,
		Role:        role,
	})
}

// FormatVersion returns the version string with optional git commit
func FormatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}

// FormatBuildInfo returns build time and go version info
func FormatBuildInfo() (string, string) {
	build := buildTime
	goVer := goVersion
	if goVer == "" {
		goVer = runtime.Version()
	}
	return build, goVer
}

// GetVersion returns the version string
func GetVersion() string {
	return version
}
