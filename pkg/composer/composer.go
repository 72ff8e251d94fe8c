// Package composer builds and sends outgoing messages with optimistic
// local echo.
//
// Send lifecycle: Composing -> Sending (pending entry in the log, draft
// already cleared) -> Sent (REST ack, server id supersedes the local id)
// -> Echoed (own broadcast observed and deduped). A REST failure moves the
// attempt to Failed but preserves the composed content for Retry, so a
// failed send never loses what the user typed.
package composer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tinyland-inc/wirechat/pkg/logger"
	"github.com/tinyland-inc/wirechat/pkg/model"
	"github.com/tinyland-inc/wirechat/pkg/realtime"
	"github.com/tinyland-inc/wirechat/pkg/rest"
	"github.com/tinyland-inc/wirechat/pkg/session"
	"github.com/tinyland-inc/wirechat/pkg/store"
)

// ErrEmptyMessage means there was neither content nor an attachment.
var ErrEmptyMessage = errors.New("composer: empty message")

// ErrNoActiveChat means Send was called with nothing selected.
var ErrNoActiveChat = errors.New("composer: no active chat")

// ErrNothingToRetry means Retry was called without a preserved failure.
var ErrNothingToRetry = errors.New("composer: nothing to retry")

// API is the REST surface the composer needs.
type API interface {
	SendMessage(ctx context.Context, req rest.SendMessageRequest) (model.Message, error)
}

// Publisher is the realtime surface the composer needs.
type Publisher interface {
	Publish(event string, payload any) error
}

// TypingNotifier lets the composer feed keystrokes into typing presence
// and cut it off on send.
type TypingNotifier interface {
	LocalTyping(chatID string)
	StopLocal(chatID string)
}

// failedSend preserves a failed attempt for resubmission.
type failedSend struct {
	localID    string
	content    string
	attachment *model.Attachment
	replyTo    *model.ReplySnapshot
	chatID     string
}

type Composer struct {
	sess     *session.Session
	api      API
	pub      Publisher
	registry *store.ChatRegistry
	msgs     *store.MessageStore
	typing   TypingNotifier // may be nil

	mu         sync.Mutex
	draft      string
	attachment *model.Attachment
	replyTo    *model.ReplySnapshot
	lastFailed *failedSend
}

func New(sess *session.Session, api API, pub Publisher, registry *store.ChatRegistry, msgs *store.MessageStore, typing TypingNotifier) *Composer {
	return &Composer{
		sess:     sess,
		api:      api,
		pub:      pub,
		registry: registry,
		msgs:     msgs,
		typing:   typing,
	}
}

// SetDraft replaces the compose buffer and registers the keystroke with
// typing presence for the active chat.
func (c *Composer) SetDraft(text string) {
	c.mu.Lock()
	c.draft = text
	c.mu.Unlock()

	if c.typing != nil && text != "" {
		if active := c.registry.ActiveID(); active != "" {
			c.typing.LocalTyping(active)
		}
	}
}

func (c *Composer) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// SetReplyTo records a denormalized snapshot of the message being replied
// to. The snapshot survives later deletion of the original.
func (c *Composer) SetReplyTo(msg model.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replyTo = &model.ReplySnapshot{
		SenderName: msg.SenderName,
		Content:    msg.Content,
	}
}

func (c *Composer) ClearReplyTo() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replyTo = nil
}

// Attach stages an uploaded attachment descriptor for the next send.
func (c *Composer) Attach(att model.Attachment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attachment = &att
}

func (c *Composer) ClearAttachment() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attachment = nil
}

// Send posts the staged draft to the active chat. The draft, attachment
// and reply staging are cleared synchronously before the server responds;
// on failure the content is preserved and Retry becomes available.
func (c *Composer) Send(ctx context.Context) (model.Message, error) {
	active := c.registry.ActiveID()
	if active == "" {
		return model.Message{}, ErrNoActiveChat
	}

	c.mu.Lock()
	content := c.draft
	att := c.attachment
	reply := c.replyTo
	if content == "" && att == nil {
		c.mu.Unlock()
		return model.Message{}, ErrEmptyMessage
	}
	// An attachment-only send uses the file name as content.
	if content == "" {
		content = att.FileName
	}
	c.draft = ""
	c.attachment = nil
	c.replyTo = nil
	c.mu.Unlock()

	return c.send(ctx, active, content, att, reply)
}

func (c *Composer) send(ctx context.Context, chatID, content string, att *model.Attachment, reply *model.ReplySnapshot) (model.Message, error) {
	if c.typing != nil {
		c.typing.StopLocal(chatID)
	}

	local := model.Message{
		ID:         "local-" + uuid.New().String(),
		ChatID:     chatID,
		SenderID:   c.sess.UserID(),
		SenderName: c.sess.DisplayName(),
		Content:    content,
		Attachment: att,
		ReplyTo:    reply,
		CreatedAt:  time.Now(),
		Delivery:   model.DeliveryPending,
	}
	c.msgs.Append(local)

	req := rest.SendMessageRequest{
		Content: content,
		ChatID:  chatID,
		ReplyTo: reply,
	}
	if att != nil {
		req.FileURL = att.URL
		req.FileType = att.MimeType
		req.FileName = att.FileName
	}

	serverMsg, err := c.api.SendMessage(ctx, req)
	if err != nil {
		c.msgs.MarkDelivery(chatID, local.ID, model.DeliveryFailed)
		c.mu.Lock()
		c.lastFailed = &failedSend{
			localID:    local.ID,
			content:    content,
			attachment: att,
			replyTo:    reply,
			chatID:     chatID,
		}
		c.mu.Unlock()
		logger.WarnCF("composer", "Send failed", map[string]any{
			"chat_id": chatID, "error": err.Error(),
		})
		return model.Message{}, err
	}

	serverMsg.Delivery = model.DeliverySent
	c.msgs.Replace(chatID, local.ID, serverMsg)
	c.registry.TouchLatest(serverMsg)
	c.pub.Publish(realtime.EventNewMessage, serverMsg)

	c.mu.Lock()
	c.lastFailed = nil
	c.mu.Unlock()

	return serverMsg, nil
}

// CanRetry reports whether a failed send is preserved for resubmission.
func (c *Composer) CanRetry() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastFailed != nil
}

// FailedContent returns the preserved content of the last failed send.
func (c *Composer) FailedContent() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastFailed == nil {
		return "", false
	}
	return c.lastFailed.content, true
}

// Retry resubmits the last failed send. The failed placeholder entry is
// dropped from the log and a fresh pending entry takes its place.
func (c *Composer) Retry(ctx context.Context) (model.Message, error) {
	c.mu.Lock()
	failed := c.lastFailed
	c.lastFailed = nil
	c.mu.Unlock()

	if failed == nil {
		return model.Message{}, ErrNothingToRetry
	}

	c.msgs.Drop(failed.chatID, failed.localID)
	return c.send(ctx, failed.chatID, failed.content, failed.attachment, failed.replyTo)
}
