// Package auth persists the pasted bearer token so a session can be
// rebuilt without re-entering it. wirechat performs no authentication of
// its own; the token is issued out of band.
package auth

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tinyland-inc/wirechat/pkg/model"
)

// ErrNoCredential means no credential file exists yet.
var ErrNoCredential = errors.New("auth: no stored credential")

// Credential is the stored identity plus its bearer token.
type Credential struct {
	UserID      string     `json:"user_id"`
	DisplayName string     `json:"name"`
	Token       string     `json:"token"`
	Role        model.Role `json:"role"`
}

// PasteToken prompts for a token on r and returns the trimmed value.
func PasteToken(r io.Reader) (string, error) {
	fmt.Println("Paste your wirechat token:")
	fmt.Print("> ")

	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("reading token: %w", err)
		}
		return "", errors.New("no input received")
	}

	token := strings.TrimSpace(scanner.Text())
	if token == "" {
		return "", errors.New("token cannot be empty")
	}
	return token, nil
}

// Save writes the credential file with owner-only permissions.
func Save(path string, cred Credential) error {
	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Load reads a stored credential.
func Load(path string) (Credential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Credential{}, ErrNoCredential
		}
		return Credential{}, err
	}
	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return Credential{}, err
	}
	return cred, nil
}
