// Package rest is the HTTP API client for the wirechat backend. Every call
// carries the session's bearer token; a session without a token cannot
// construct a client at all.
package rest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tinyland-inc/wirechat/pkg/config"
	"github.com/tinyland-inc/wirechat/pkg/model"
	"github.com/tinyland-inc/wirechat/pkg/session"
)

// ErrNetwork wraps transport-level REST failures. These are transient: the
// operation is abandoned, the caller recovers locally, there is no retry
// inside the client.
var ErrNetwork = errors.New("rest: network failure")

type Client struct {
	http *resty.Client
	sess *session.Session
}

func NewClient(cfg config.APIConfig, sess *session.Session) (*Client, error) {
	if sess == nil || sess.Token() == "" {
		return nil, session.ErrAuthMissing
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetAuthToken(sess.Token())

	return &Client{http: http, sess: sess}, nil
}

// apiError turns a transport error or non-2xx response into the client's
// error taxonomy. 401 maps to the fatal ErrAuthMissing.
func apiError(op string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrNetwork, err)
	}
	if resp.StatusCode() == 401 {
		return fmt.Errorf("%s: %w", op, session.ErrAuthMissing)
	}
	if resp.IsError() {
		return fmt.Errorf("%s: %w: status %d", op, ErrNetwork, resp.StatusCode())
	}
	return nil
}

// ListChats returns the chats visible to the session.
func (c *Client) ListChats(ctx context.Context) ([]model.Chat, error) {
	var chats []model.Chat
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&chats).
		Get("/chats")
	if e := apiError("list chats", resp, err); e != nil {
		return nil, e
	}
	return chats, nil
}

// FetchMessages returns the full history for one chat.
func (c *Client) FetchMessages(ctx context.Context, chatID string) ([]model.Message, error) {
	var msgs []model.Message
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&msgs).
		SetPathParam("chatId", chatID).
		Get("/messages/{chatId}")
	if e := apiError("fetch messages", resp, err); e != nil {
		return nil, e
	}
	return msgs, nil
}

// SendMessageRequest is the POST /messages body.
type SendMessageRequest struct {
	Content  string               `json:"content"`
	ChatID   string               `json:"chatId"`
	ReplyTo  *model.ReplySnapshot `json:"replyTo,omitempty"`
	FileURL  string               `json:"fileUrl,omitempty"`
	FileType string               `json:"fileType,omitempty"`
	FileName string               `json:"fileName,omitempty"`
}

// SendMessage creates a message and returns the server's canonical copy,
// including its assigned id.
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (model.Message, error) {
	var msg model.Message
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&msg).
		Post("/messages")
	if e := apiError("send message", resp, err); e != nil {
		return model.Message{}, e
	}
	return msg, nil
}

// AccessChat fetches the direct chat with userID, creating it if absent.
func (c *Client) AccessChat(ctx context.Context, userID string) (model.Chat, error) {
	var chat model.Chat
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"userId": userID}).
		SetResult(&chat).
		Post("/chat")
	if e := apiError("access chat", resp, err); e != nil {
		return model.Chat{}, e
	}
	return chat, nil
}

// CreateGroupChat creates a group chat with the given members.
func (c *Client) CreateGroupChat(ctx context.Context, name string, userIDs []string) (model.Chat, error) {
	var chat model.Chat
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{"name": name, "users": userIDs}).
		SetResult(&chat).
		Post("/chat/group")
	if e := apiError("create group chat", resp, err); e != nil {
		return model.Chat{}, e
	}
	return chat, nil
}

// DeleteMessage flags a message as deleted. With forEveryone the deletion
// applies to all participants, otherwise only to the caller's view.
func (c *Client) DeleteMessage(ctx context.Context, messageID string, forEveryone bool) error {
	scope := "me"
	if forEveryone {
		scope = "everyone"
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", messageID).
		SetQueryParam("scope", scope).
		Delete("/messages/{id}")
	return apiError("delete message", resp, err)
}

// UploadResult is the POST /upload response.
type UploadResult struct {
	FileURL  string `json:"fileUrl"`
	FileType string `json:"fileType"`
	FileName string `json:"fileName"`
}

// Upload streams a file as multipart form data. The reader is consumed as
// the request body is written, so wrapping it lets callers observe progress.
func (c *Client) Upload(ctx context.Context, fileName, mimeType string, r io.Reader) (model.Attachment, error) {
	var result UploadResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetMultipartField("file", fileName, mimeType, r).
		SetResult(&result).
		Post("/upload")
	if e := apiError("upload", resp, err); e != nil {
		return model.Attachment{}, e
	}
	return model.Attachment{
		URL:      result.FileURL,
		MimeType: result.FileType,
		FileName: result.FileName,
	}, nil
}
