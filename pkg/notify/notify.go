// Package notify aggregates unseen messages for chats other than the
// active one. The queue feeds the badge count and the notification list.
package notify

import (
	"sync"

	"github.com/tinyland-inc/wirechat/pkg/model"
)

// Entry pairs a message with the chat it belongs to, so the list can show
// a resolved chat title without another registry lookup.
type Entry struct {
	Message model.Message
	Chat    model.Chat
}

// Aggregator holds notification entries, most recent first. It never holds
// an entry for the active chat: the engine routes active-chat messages to
// the message log instead, and selecting a chat clears its entries.
type Aggregator struct {
	mu      sync.Mutex
	entries []Entry
}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Add prepends an entry unless one with the same message id exists.
// Returns whether the entry was added.
func (a *Aggregator) Add(msg model.Message, chat model.Chat) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range a.entries {
		if e.Message.ID == msg.ID {
			return false
		}
	}
	a.entries = append([]Entry{{Message: msg, Chat: chat}}, a.entries...)
	return true
}

// Clear removes all entries for one chat. Invoked on chat selection.
func (a *Aggregator) Clear(chatID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	kept := a.entries[:0]
	for _, e := range a.entries {
		if e.Message.ChatID != chatID {
			kept = append(kept, e)
		}
	}
	a.entries = kept
}

// ClearAll empties the queue. Explicit user action only.
func (a *Aggregator) ClearAll() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = nil
}

// Len is the badge count.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// Entries returns a copy of the queue, most recent first.
func (a *Aggregator) Entries() []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Entry, len(a.entries))
	copy(out, a.entries)
	return out
}
