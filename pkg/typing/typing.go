// Package typing manages typing presence: debounced emission of the local
// user's typing state and tracking of remote peers' state per chat.
package typing

import (
	"sort"
	"sync"
	"time"

	"github.com/tinyland-inc/wirechat/pkg/realtime"
)

// Publisher is the slice of the realtime connection the coordinator needs.
type Publisher interface {
	Publish(event string, payload any) error
}

// Coordinator owns one cancellable debounce timer per chat. A keystroke
// replaces the pending timer, it never stacks a second one. Timers must be
// cleared on chat deselect so a stray "stop typing" cannot fire for the
// wrong chat.
type Coordinator struct {
	pub    Publisher
	userID string
	idle   time.Duration

	mu      sync.Mutex
	timers  map[string]*time.Timer
	lastKey map[string]time.Time
	remote  map[string]map[string]struct{}
}

func NewCoordinator(pub Publisher, userID string, idle time.Duration) *Coordinator {
	if idle <= 0 {
		idle = 3 * time.Second
	}
	return &Coordinator{
		pub:     pub,
		userID:  userID,
		idle:    idle,
		timers:  make(map[string]*time.Timer),
		lastKey: make(map[string]time.Time),
		remote:  make(map[string]map[string]struct{}),
	}
}

// LocalTyping records a content-changing keystroke in a chat. The first
// keystroke of a burst emits "typing"; subsequent ones only reset the idle
// timer. Once the idle threshold passes with no keystroke, "stop typing"
// is emitted exactly once.
func (c *Coordinator) LocalTyping(chatID string) {
	if chatID == "" {
		return
	}

	c.mu.Lock()
	c.lastKey[chatID] = time.Now()
	t, wasTyping := c.timers[chatID]
	if wasTyping {
		t.Stop()
	}
	c.timers[chatID] = time.AfterFunc(c.idle, func() { c.idleFired(chatID) })
	c.mu.Unlock()

	if !wasTyping {
		c.pub.Publish(realtime.EventTyping, realtime.TypingPayload{
			ChatID: chatID, UserID: c.userID,
		})
	}
}

func (c *Coordinator) idleFired(chatID string) {
	c.mu.Lock()
	last, ok := c.lastKey[chatID]
	if !ok {
		c.mu.Unlock()
		return
	}
	if remaining := c.idle - time.Since(last); remaining > 0 {
		// A keystroke raced the timer; push the deadline out.
		c.timers[chatID] = time.AfterFunc(remaining, func() { c.idleFired(chatID) })
		c.mu.Unlock()
		return
	}
	delete(c.timers, chatID)
	delete(c.lastKey, chatID)
	c.mu.Unlock()

	c.pub.Publish(realtime.EventStopTyping, realtime.TypingPayload{
		ChatID: chatID, UserID: c.userID,
	})
}

// StopLocal ends the local typing state immediately, emitting "stop typing"
// if a burst was in progress. Called when a message is sent.
func (c *Coordinator) StopLocal(chatID string) {
	c.mu.Lock()
	t, wasTyping := c.timers[chatID]
	if wasTyping {
		t.Stop()
		delete(c.timers, chatID)
		delete(c.lastKey, chatID)
	}
	c.mu.Unlock()

	if wasTyping {
		c.pub.Publish(realtime.EventStopTyping, realtime.TypingPayload{
			ChatID: chatID, UserID: c.userID,
		})
	}
}

// ClearChat cancels any pending debounce for a chat without emitting
// anything. Called on deselect.
func (c *Coordinator) ClearChat(chatID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.timers[chatID]; ok {
		t.Stop()
		delete(c.timers, chatID)
		delete(c.lastKey, chatID)
	}
}

// ClearAll cancels every pending timer and forgets all remote state.
func (c *Coordinator) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
	c.lastKey = make(map[string]time.Time)
	c.remote = make(map[string]map[string]struct{})
}

// RemoteTyping adds a peer to a chat's typing set.
func (c *Coordinator) RemoteTyping(chatID, peerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.remote[chatID] == nil {
		c.remote[chatID] = make(map[string]struct{})
	}
	c.remote[chatID][peerID] = struct{}{}
}

// RemoteStopTyping removes a peer from a chat's typing set.
func (c *Coordinator) RemoteStopTyping(chatID, peerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.remote[chatID], peerID)
}

// PeersTyping returns the peers currently typing in a chat, sorted for
// deterministic display. The caller surfaces this only for the active chat.
func (c *Coordinator) PeersTyping(chatID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	peers := make([]string, 0, len(c.remote[chatID]))
	for id := range c.remote[chatID] {
		peers = append(peers, id)
	}
	sort.Strings(peers)
	return peers
}
