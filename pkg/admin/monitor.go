// Package admin is the read-only monitoring console. It reuses the chat
// registry and message store with a live realtime subscription, so a
// monitored chat updates exactly like a normal one, but it exposes no
// composer and no typing.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/tinyland-inc/wirechat/pkg/config"
	"github.com/tinyland-inc/wirechat/pkg/logger"
	"github.com/tinyland-inc/wirechat/pkg/model"
	"github.com/tinyland-inc/wirechat/pkg/realtime"
	"github.com/tinyland-inc/wirechat/pkg/rest"
	"github.com/tinyland-inc/wirechat/pkg/session"
	"github.com/tinyland-inc/wirechat/pkg/store"
)

// ErrNotAdmin rejects monitor construction for a non-admin session.
var ErrNotAdmin = errors.New("admin: session is not an admin")

// Stats summarizes the dashboard counters.
type Stats struct {
	Users         int
	Chats         int
	MessagesToday int
}

type Monitor struct {
	sess     *session.Session
	api      *rest.Client
	conn     *realtime.Conn
	registry *store.ChatRegistry
	msgs     *store.MessageStore

	mu      sync.Mutex
	users   []model.Participant
	unsubs  []func()
	started bool
}

func NewMonitor(cfg *config.Config, sess *session.Session) (*Monitor, error) {
	if !sess.IsAdmin() {
		return nil, ErrNotAdmin
	}
	api, err := rest.NewClient(cfg.API, sess)
	if err != nil {
		return nil, err
	}
	return &Monitor{
		sess:     sess,
		api:      api,
		conn:     realtime.NewConn(cfg.Realtime, sess),
		registry: store.NewChatRegistry(),
		msgs:     store.NewMessageStore(),
	}, nil
}

// Start opens the realtime connection and seeds users and chats from the
// admin listing endpoints.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.mu.Unlock()

	if err := m.conn.Open(ctx); err != nil {
		return err
	}

	unsub := m.conn.Subscribe(realtime.EventMessageReceived, m.onMessageReceived)
	m.mu.Lock()
	m.unsubs = append(m.unsubs, unsub)
	m.mu.Unlock()

	return m.Refresh(ctx)
}

func (m *Monitor) onMessageReceived(payload json.RawMessage) {
	msg, err := realtime.DecodeMessage(payload)
	if err != nil {
		logger.WarnCF("admin", "Undecodable message payload", map[string]any{"error": err.Error()})
		return
	}
	if msg.ChatID == m.registry.ActiveID() {
		m.msgs.Append(msg)
	}
	m.registry.TouchLatest(msg)
}

// Refresh re-seeds users and the full chat listing.
func (m *Monitor) Refresh(ctx context.Context) error {
	users, err := m.api.AdminUsers(ctx)
	if err != nil {
		return err
	}
	chats, err := m.api.AdminChats(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.users = users
	m.mu.Unlock()
	m.registry.SetChats(chats)
	return nil
}

// SelectChat works exactly as it does for a normal session: room swap,
// history fetch, staleness check. Viewing only; there is nothing to compose.
func (m *Monitor) SelectChat(ctx context.Context, chatID string) {
	prev, epoch := m.registry.Select(chatID)

	if prev != "" {
		if m.msgs.Fetching(prev) {
			m.msgs.AbortFetch(prev)
		}
		m.conn.LeaveRoom(prev)
	}
	if chatID == "" {
		return
	}
	m.conn.JoinRoom(chatID)

	m.msgs.BeginFetch(chatID)
	go func() {
		history, err := m.api.FetchMessages(ctx, chatID)
		if err != nil {
			if m.registry.StillActive(chatID, epoch) {
				m.msgs.AbortFetch(chatID)
			}
			logger.WarnCF("admin", "History fetch failed", map[string]any{
				"chat_id": chatID, "error": err.Error(),
			})
			return
		}
		if !m.registry.StillActive(chatID, epoch) {
			return
		}
		m.msgs.CompleteFetch(chatID, history)
	}()
}

// Users returns the last fetched user listing.
func (m *Monitor) Users() []model.Participant {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Participant, len(m.users))
	copy(out, m.users)
	return out
}

// Stats computes the dashboard counters from the seeded data.
func (m *Monitor) Stats() Stats {
	chats := m.registry.List()
	now := time.Now()
	y, mo, d := now.Date()
	today := time.Date(y, mo, d, 0, 0, 0, 0, now.Location())
	active := 0
	for _, c := range chats {
		if c.LatestMessage != nil && !c.LatestMessage.CreatedAt.Before(today) {
			active++
		}
	}
	m.mu.Lock()
	users := len(m.users)
	m.mu.Unlock()
	return Stats{Users: users, Chats: len(chats), MessagesToday: active}
}

// TerminateUser removes a user account and refreshes the listings.
func (m *Monitor) TerminateUser(ctx context.Context, userID string) error {
	if err := m.api.TerminateUser(ctx, userID); err != nil {
		return err
	}
	return m.Refresh(ctx)
}

func (m *Monitor) Registry() *store.ChatRegistry { return m.registry }

func (m *Monitor) Messages() *store.MessageStore { return m.msgs }

// Close releases the monitor's realtime resources.
func (m *Monitor) Close() {
	m.mu.Lock()
	unsubs := m.unsubs
	m.unsubs = nil
	m.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	m.conn.Close()
}
