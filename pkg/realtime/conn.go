// Package realtime owns the websocket connection to the wirechat backend.
//
// One Conn exists per session and is injected into everything that needs
// it; there is deliberately no package-level connection handle. Frames are
// a small JSON envelope {"event": ..., "payload": ...}. The server does not
// suppress self-echo: a sender is a member of the rooms it publishes to and
// receives its own "message received" broadcast, so every message handler
// downstream must dedupe by message id.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tinyland-inc/wirechat/pkg/config"
	"github.com/tinyland-inc/wirechat/pkg/logger"
	"github.com/tinyland-inc/wirechat/pkg/model"
	"github.com/tinyland-inc/wirechat/pkg/session"
)

// Events published by the client.
const (
	EventSetup      = "setup"
	EventJoinChat   = "join chat"
	EventLeaveChat  = "leave chat"
	EventNewMessage = "new message"
	EventTyping     = "typing"
	EventStopTyping = "stop typing"
)

// Events consumed from the server.
const (
	EventConnected       = "connected"
	EventMessageReceived = "message received"
)

// ErrConnClosed is returned when publishing on a closed connection.
var ErrConnClosed = errors.New("realtime: connection closed")

// Frame is the wire envelope for every realtime event.
type Frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// RoomPayload keys join/leave events by chat id.
type RoomPayload struct {
	ChatID string `json:"chat_id"`
}

// TypingPayload carries typing presence events.
type TypingPayload struct {
	ChatID string `json:"chat_id"`
	UserID string `json:"user_id"`
}

// SetupPayload is the identity handshake sent right after dialing.
type SetupPayload struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// Handler receives the raw payload of a subscribed event. Handlers run on
// the connection's read goroutine, in delivery order.
type Handler func(payload json.RawMessage)

type Conn struct {
	url            string
	sess           *session.Session
	reconnectEvery time.Duration

	mu     sync.Mutex
	ws     *websocket.Conn
	opened bool
	closed bool

	subMu  sync.Mutex
	nextID int
	subs   map[string]map[int]Handler

	roomMu sync.Mutex
	joined map[string]struct{}
}

// NewConn creates an unopened connection scoped to the session.
func NewConn(cfg config.RealtimeConfig, sess *session.Session) *Conn {
	every := time.Duration(cfg.ReconnectSeconds) * time.Second
	if every <= 0 {
		every = 5 * time.Second
	}
	return &Conn{
		url:            cfg.SocketURL,
		sess:           sess,
		reconnectEvery: every,
		subs:           make(map[string]map[int]Handler),
		joined:         make(map[string]struct{}),
	}
}

// Open dials the server and performs the setup handshake. Calling Open on
// an already-open connection reuses it.
func (c *Conn) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrConnClosed
	}
	if c.opened {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.ws = ws
	c.opened = true
	c.mu.Unlock()

	c.sendSetup()
	go c.readPump(ws)

	logger.InfoCF("realtime", "Connection opened", map[string]any{"url": c.url})
	return nil
}

// Publish is fire-and-forget: marshal failures and write failures are
// logged, not returned, except when the connection is already closed.
func (c *Conn) Publish(event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		logger.ErrorCF("realtime", "Publish marshal failed", map[string]any{
			"event": event, "error": err.Error(),
		})
		return nil
	}
	return c.writeFrame(Frame{Event: event, Payload: raw})
}

// Subscribe registers a handler for an event. Multiple handlers per event
// are supported. The returned func removes the handler; teardown must call
// it or the handler keeps firing against a destroyed view.
func (c *Conn) Subscribe(event string, h Handler) func() {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	c.nextID++
	id := c.nextID
	if c.subs[event] == nil {
		c.subs[event] = make(map[int]Handler)
	}
	c.subs[event][id] = h

	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		delete(c.subs[event], id)
	}
}

// JoinRoom enters the realtime room for a chat. Idempotent; the joined set
// is tracked so rooms can be replayed after a reconnect.
func (c *Conn) JoinRoom(chatID string) {
	if chatID == "" {
		return
	}
	c.roomMu.Lock()
	c.joined[chatID] = struct{}{}
	c.roomMu.Unlock()
	c.Publish(EventJoinChat, RoomPayload{ChatID: chatID})
}

// LeaveRoom exits a chat's room. Idempotent; unknown rooms are a no-op on
// the tracked set but the leave is still published.
func (c *Conn) LeaveRoom(chatID string) {
	if chatID == "" {
		return
	}
	c.roomMu.Lock()
	delete(c.joined, chatID)
	c.roomMu.Unlock()
	c.Publish(EventLeaveChat, RoomPayload{ChatID: chatID})
}

// JoinedRooms returns a snapshot of the tracked room set.
func (c *Conn) JoinedRooms() []string {
	c.roomMu.Lock()
	defer c.roomMu.Unlock()
	rooms := make([]string, 0, len(c.joined))
	for id := range c.joined {
		rooms = append(rooms, id)
	}
	return rooms
}

// Close tears the connection down and drops all subscriptions. The Conn
// cannot be reopened; sessions get a fresh Conn.
func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	ws := c.ws
	c.ws = nil
	c.mu.Unlock()

	if ws != nil {
		ws.Close()
	}

	c.subMu.Lock()
	c.subs = make(map[string]map[int]Handler)
	c.subMu.Unlock()

	logger.InfoC("realtime", "Connection closed")
}

// IsOpen reports whether Open has succeeded and Close has not been called.
func (c *Conn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opened && !c.closed
}

func (c *Conn) sendSetup() {
	c.Publish(EventSetup, SetupPayload{
		UserID: c.sess.UserID(),
		Name:   c.sess.DisplayName(),
	})
}

func (c *Conn) writeFrame(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.ws == nil {
		return ErrConnClosed
	}
	if err := c.ws.WriteJSON(f); err != nil {
		logger.WarnCF("realtime", "Write failed", map[string]any{
			"event": f.Event, "error": err.Error(),
		})
	}
	return nil
}

// readPump reads frames until the socket errors, then hands off to the
// reconnect loop. Separating read from write follows the usual two-pump
// websocket layout.
func (c *Conn) readPump(ws *websocket.Conn) {
	for {
		var f Frame
		if err := ws.ReadJSON(&f); err != nil {
			c.mu.Lock()
			closed := c.closed
			stale := c.ws != ws // a reconnect already replaced this socket
			c.mu.Unlock()
			if closed || stale {
				return
			}
			logger.WarnCF("realtime", "Read failed, reconnecting", map[string]any{
				"error": err.Error(),
			})
			c.reconnect()
			return
		}
		c.dispatch(f)
	}
}

func (c *Conn) dispatch(f Frame) {
	c.subMu.Lock()
	handlers := make([]Handler, 0, len(c.subs[f.Event]))
	for _, h := range c.subs[f.Event] {
		handlers = append(handlers, h)
	}
	c.subMu.Unlock()

	for _, h := range handlers {
		h(f.Payload)
	}
}

// reconnect redials until it succeeds or the connection is closed, then
// replays the setup handshake and every tracked room join.
func (c *Conn) reconnect() {
	for {
		time.Sleep(c.reconnectEvery)

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		ws, _, err := websocket.DefaultDialer.Dial(c.url, nil)
		if err != nil {
			logger.WarnCF("realtime", "Reconnect failed", map[string]any{
				"error": err.Error(),
			})
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			ws.Close()
			return
		}
		c.ws = ws
		c.mu.Unlock()

		c.sendSetup()
		for _, room := range c.JoinedRooms() {
			c.Publish(EventJoinChat, RoomPayload{ChatID: room})
		}

		go c.readPump(ws)
		logger.InfoCF("realtime", "Reconnected", map[string]any{
			"rooms": len(c.JoinedRooms()),
		})
		return
	}
}

// DecodeMessage unmarshals a "message received" or "new message" payload.
func DecodeMessage(payload json.RawMessage) (model.Message, error) {
	var msg model.Message
	err := json.Unmarshal(payload, &msg)
	return msg, err
}

// DecodeTyping unmarshals a typing / stop typing payload.
func DecodeTyping(payload json.RawMessage) (TypingPayload, error) {
	var tp TypingPayload
	err := json.Unmarshal(payload, &tp)
	return tp, err
}
