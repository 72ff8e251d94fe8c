// Package model defines the canonical wire types shared by the REST client,
// the realtime connection and the in-memory stores. The backend historically
// served several divergent message shapes; this is the single schema the
// client speaks.
package model

import "time"

// Role identifies the kind of session an identity belongs to.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Identity is the logged-in principal. The token is a pre-issued bearer
// token; wirechat performs no authentication beyond attaching it.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"name"`
	AvatarRef   string `json:"pic,omitempty"`
	AuthToken   string `json:"token"`
	Role        Role   `json:"role"`
}

// ChatKind distinguishes direct and group chats.
type ChatKind string

const (
	ChatDirect ChatKind = "direct"
	ChatGroup  ChatKind = "group"
)

// Participant is the slice of another user's identity carried inside a chat.
type Participant struct {
	ID          string `json:"id"`
	DisplayName string `json:"name"`
	Email       string `json:"email,omitempty"`
	AvatarRef   string `json:"pic,omitempty"`
}

// Chat is one conversation visible to the session.
type Chat struct {
	ID            string        `json:"id"`
	Kind          ChatKind      `json:"kind"`
	DisplayName   string        `json:"name,omitempty"` // group chats only
	Participants  []Participant `json:"participants"`
	LatestMessage *Message      `json:"latest_message,omitempty"`
	AdminID       string        `json:"admin_id,omitempty"` // group chats only
}

// IsGroup reports whether the chat is a group conversation.
func (c *Chat) IsGroup() bool { return c.Kind == ChatGroup }

// Title resolves the name shown for the chat: the group name, or for a
// direct chat the other participant's name.
func (c *Chat) Title(viewerID string) string {
	if c.IsGroup() {
		return c.DisplayName
	}
	for _, p := range c.Participants {
		if p.ID != viewerID {
			return p.DisplayName
		}
	}
	if len(c.Participants) > 0 {
		return c.Participants[0].DisplayName
	}
	return c.ID
}

// DeliveryState tracks a message through the optimistic-send lifecycle.
type DeliveryState string

const (
	// DeliveryPending is a locally appended message awaiting the REST ack.
	DeliveryPending DeliveryState = "pending"
	// DeliverySent has the REST ack but not yet the realtime self-echo.
	DeliverySent DeliveryState = "sent"
	// DeliveryEchoed is terminal: the sender observed its own broadcast.
	DeliveryEchoed DeliveryState = "echoed"
	// DeliveryFailed is terminal for the attempt; the content is preserved
	// on the composer for retry.
	DeliveryFailed DeliveryState = "failed"
)

// Attachment describes an uploaded file linked to a message.
type Attachment struct {
	URL      string `json:"file_url"`
	MimeType string `json:"file_type"`
	FileName string `json:"file_name"`
}

// ReplySnapshot is a denormalized copy of the replied-to message. Storing
// the snapshot inline means a reply stays resolvable after the original
// message is deleted.
type ReplySnapshot struct {
	SenderName string `json:"sender_name"`
	Content    string `json:"content"`
}

// Message is one entry in a chat log. ID is unique within the chat; a
// locally generated pending id is superseded by the server-assigned id
// once the REST ack arrives.
type Message struct {
	ID         string         `json:"id"`
	ChatID     string         `json:"chat_id"`
	SenderID   string         `json:"sender_id"`
	SenderName string         `json:"sender_name,omitempty"`
	Content    string         `json:"content"`
	Attachment *Attachment    `json:"attachment,omitempty"`
	ReplyTo    *ReplySnapshot `json:"reply_to,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	Delivery   DeliveryState  `json:"-"`
}
