// Package session holds the active identity and its bearer token.
// Every other component takes a *Session rather than reading a process-wide
// variable, so tearing one session down cannot leak state into the next.
package session

import (
	"errors"

	"github.com/tinyland-inc/wirechat/pkg/model"
)

// ErrAuthMissing means the identity carries no bearer token. It is fatal to
// the session: no REST or realtime operation may proceed without one.
var ErrAuthMissing = errors.New("session: missing auth token")

type Session struct {
	identity model.Identity
}

// New creates a session for the given identity. The token must be present.
func New(identity model.Identity) (*Session, error) {
	if identity.AuthToken == "" {
		return nil, ErrAuthMissing
	}
	if identity.Role == "" {
		identity.Role = model.RoleUser
	}
	return &Session{identity: identity}, nil
}

func (s *Session) Identity() model.Identity { return s.identity }

func (s *Session) UserID() string { return s.identity.ID }

func (s *Session) DisplayName() string { return s.identity.DisplayName }

func (s *Session) Token() string { return s.identity.AuthToken }

func (s *Session) IsAdmin() bool { return s.identity.Role == model.RoleAdmin }
