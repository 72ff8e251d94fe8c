package store

import (
	"sort"
	"sync"

	"github.com/tinyland-inc/wirechat/pkg/model"
)

// MessageStore keeps the per-chat ordered message log. History fetches
// replace a chat's log wholesale; realtime deltas arriving while a fetch
// is in flight are buffered and merged by id-union when it completes, so
// no delivery is lost to the fetch race.
type MessageStore struct {
	mu       sync.Mutex
	logs     map[string][]model.Message
	fetching map[string]bool
	buffered map[string][]model.Message
}

func NewMessageStore() *MessageStore {
	return &MessageStore{
		logs:     make(map[string][]model.Message),
		fetching: make(map[string]bool),
		buffered: make(map[string][]model.Message),
	}
}

// Append adds a message to its chat's log, deduplicating by id. Returns
// false when the id is already present (self-echo, reconnect replay).
// During an in-flight fetch the message is buffered instead.
func (s *MessageStore) Append(msg model.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if containsID(s.logs[msg.ChatID], msg.ID) {
		return false
	}
	if s.fetching[msg.ChatID] {
		if containsID(s.buffered[msg.ChatID], msg.ID) {
			return false
		}
		s.buffered[msg.ChatID] = append(s.buffered[msg.ChatID], msg)
		return true
	}
	s.logs[msg.ChatID] = append(s.logs[msg.ChatID], msg)
	return true
}

// BeginFetch marks a history fetch in flight for the chat; realtime
// appends are buffered until CompleteFetch or AbortFetch.
func (s *MessageStore) BeginFetch(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetching[chatID] = true
}

// CompleteFetch replaces the chat's log with the fetched history, merged
// by id-union with any deltas buffered during the fetch and with
// optimistic pending messages from the prior log that the server does not
// know yet. The result is re-sorted by creation time.
func (s *MessageStore) CompleteFetch(chatID string, history []model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := make([]model.Message, 0, len(history)+len(s.buffered[chatID]))
	seen := make(map[string]struct{}, len(history))
	for _, m := range history {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		merged = append(merged, m)
	}
	for _, m := range s.buffered[chatID] {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		merged = append(merged, m)
	}
	// Optimistic sends are matched by id, never by position.
	for _, m := range s.logs[chatID] {
		if m.Delivery != model.DeliveryPending {
			continue
		}
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		merged = append(merged, m)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.Before(merged[j].CreatedAt)
	})

	s.logs[chatID] = merged
	delete(s.fetching, chatID)
	delete(s.buffered, chatID)
}

// AbortFetch clears the in-flight flag without touching the existing log,
// flushing buffered deltas into it. Used when the fetch failed or its
// response went stale.
func (s *MessageStore) AbortFetch(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.buffered[chatID] {
		if !containsID(s.logs[chatID], m.ID) {
			s.logs[chatID] = append(s.logs[chatID], m)
		}
	}
	delete(s.fetching, chatID)
	delete(s.buffered, chatID)
}

// Fetching reports whether a history fetch is in flight for the chat.
func (s *MessageStore) Fetching(chatID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetching[chatID]
}

// Messages returns a copy of the chat's log.
func (s *MessageStore) Messages(chatID string) []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Message, len(s.logs[chatID]))
	copy(out, s.logs[chatID])
	return out
}

// Replace supersedes a locally assigned pending id with the server's
// canonical message. During an in-flight fetch the optimistic entry lives
// in the buffer, so the supersede happens there and the merge resolves to
// one entry. If the local id is gone (history replace raced it), the
// server message is appended instead, still deduped by id.
func (s *MessageStore) Replace(chatID, localID string, msg model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.logs[chatID]
	for i := range log {
		if log[i].ID == localID {
			log[i] = msg
			return
		}
	}
	if s.fetching[chatID] {
		buf := s.buffered[chatID]
		for i := range buf {
			if buf[i].ID == localID {
				buf[i] = msg
				return
			}
		}
		if !containsID(buf, msg.ID) {
			s.buffered[chatID] = append(buf, msg)
		}
		return
	}
	if !containsID(log, msg.ID) {
		s.logs[chatID] = append(log, msg)
	}
}

// MarkDelivery transitions a message's delivery state. Returns false if
// the message is not in the log.
func (s *MessageStore) MarkDelivery(chatID, msgID string, state model.DeliveryState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.logs[chatID]
	for i := range log {
		if log[i].ID == msgID {
			log[i].Delivery = state
			return true
		}
	}
	return false
}

// Drop removes one message from a chat's log (delete-for-me view update).
func (s *MessageStore) Drop(chatID, msgID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.logs[chatID]
	for i := range log {
		if log[i].ID == msgID {
			s.logs[chatID] = append(log[:i], log[i+1:]...)
			return
		}
	}
}

// Clear forgets a chat's log entirely.
func (s *MessageStore) Clear(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.logs, chatID)
	delete(s.fetching, chatID)
	delete(s.buffered, chatID)
}

func containsID(log []model.Message, id string) bool {
	for i := range log {
		if log[i].ID == id {
			return true
		}
	}
	return false
}
