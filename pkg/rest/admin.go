package rest

import (
	"context"

	"github.com/tinyland-inc/wirechat/pkg/model"
)

// Admin mirrors of the listing endpoints, plus user termination. The
// backend rejects these with 403 for non-admin tokens; the client does not
// gate them itself.

// AdminUsers lists every registered user.
func (c *Client) AdminUsers(ctx context.Context) ([]model.Participant, error) {
	var users []model.Participant
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&users).
		Get("/admin/users")
	if e := apiError("admin users", resp, err); e != nil {
		return nil, e
	}
	return users, nil
}

// AdminChats lists every chat in the system, not just the session's own.
func (c *Client) AdminChats(ctx context.Context) ([]model.Chat, error) {
	var chats []model.Chat
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&chats).
		Get("/admin/chats")
	if e := apiError("admin chats", resp, err); e != nil {
		return nil, e
	}
	return chats, nil
}

// TerminateUser removes a user account.
func (c *Client) TerminateUser(ctx context.Context, userID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", userID).
		Delete("/admin/users/{id}")
	return apiError("terminate user", resp, err)
}
