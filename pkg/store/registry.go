// Package store holds the session's in-memory chat and message state.
// All mutation goes through these methods; no other component writes to
// the logs directly.
package store

import (
	"sort"
	"sync"

	"github.com/tinyland-inc/wirechat/pkg/model"
)

// ChatRegistry is the fetched list of chats plus the single active-chat
// pointer. Selections are stamped with an epoch so an in-flight history
// fetch can detect that the user has moved on before it resolved.
type ChatRegistry struct {
	mu       sync.Mutex
	chats    map[string]model.Chat
	activeID string
	epoch    uint64
}

func NewChatRegistry() *ChatRegistry {
	return &ChatRegistry{chats: make(map[string]model.Chat)}
}

// SetChats replaces the registry contents with a freshly listed set.
func (r *ChatRegistry) SetChats(chats []model.Chat) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chats = make(map[string]model.Chat, len(chats))
	for _, c := range chats {
		r.chats[c.ID] = c
	}
}

// Upsert adds or replaces one chat.
func (r *ChatRegistry) Upsert(chat model.Chat) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chats[chat.ID] = chat
}

// Get returns a chat by id.
func (r *ChatRegistry) Get(chatID string) (model.Chat, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chats[chatID]
	return c, ok
}

// TouchLatest updates a chat's latest-message reference when a new message
// lands in it. Unknown chats are ignored; the next full listing picks them up.
func (r *ChatRegistry) TouchLatest(msg model.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chats[msg.ChatID]
	if !ok {
		return
	}
	if c.LatestMessage == nil || !msg.CreatedAt.Before(c.LatestMessage.CreatedAt) {
		m := msg
		c.LatestMessage = &m
		r.chats[msg.ChatID] = c
	}
}

// List returns chats ordered by recency of their latest message, newest
// first. Chats without messages sort last. Ties break on id so the order
// is deterministic.
func (r *ChatRegistry) List() []model.Chat {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.Chat, 0, len(r.chats))
	for _, c := range r.chats {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		li, lj := out[i].LatestMessage, out[j].LatestMessage
		switch {
		case li == nil && lj == nil:
			return out[i].ID < out[j].ID
		case li == nil:
			return false
		case lj == nil:
			return true
		case !li.CreatedAt.Equal(lj.CreatedAt):
			return li.CreatedAt.After(lj.CreatedAt)
		default:
			return out[i].ID < out[j].ID
		}
	})
	return out
}

// Select moves the active pointer and bumps the selection epoch. An empty
// chatID deselects. Returns the previously active chat and the new epoch.
func (r *ChatRegistry) Select(chatID string) (prev string, epoch uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev = r.activeID
	r.activeID = chatID
	r.epoch++
	return prev, r.epoch
}

// ActiveID returns the currently selected chat, or "" when none.
func (r *ChatRegistry) ActiveID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeID
}

// Epoch returns the current selection epoch.
func (r *ChatRegistry) Epoch() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.epoch
}

// StillActive reports whether a selection captured as (chatID, epoch) is
// still the live one. History fetch responses are discarded when it is not.
func (r *ChatRegistry) StillActive(chatID string, epoch uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeID == chatID && r.epoch == epoch
}
