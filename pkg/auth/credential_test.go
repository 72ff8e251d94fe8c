package auth

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tinyland-inc/wirechat/pkg/model"
)

func TestPasteToken(t *testing.T) {
	token, err := PasteToken(strings.NewReader("  tok-123  \n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "tok-123" {
		t.Errorf("token: got %q", token)
	}
}

func TestPasteToken_Empty(t *testing.T) {
	if _, err := PasteToken(strings.NewReader("\n")); err == nil {
		t.Error("expected error for empty token")
	}
	if _, err := PasteToken(strings.NewReader("")); err == nil {
		t.Error("expected error for no input")
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")

	cred := Credential{UserID: "u1", DisplayName: "Uma", Token: "tok", Role: model.RoleUser}
	if err := Save(path, cred); err != nil {
		t.Fatalf("save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("file mode: got %v, want 0600", info.Mode().Perm())
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded != cred {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "credentials.json"))
	if !errors.Is(err, ErrNoCredential) {
		t.Errorf("got %v, want ErrNoCredential", err)
	}
}
