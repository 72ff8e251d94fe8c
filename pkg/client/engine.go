// Package client wires a user session together: REST seeding, realtime
// routing, chat selection, typing, notifications and the composer.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/tinyland-inc/wirechat/pkg/composer"
	"github.com/tinyland-inc/wirechat/pkg/config"
	"github.com/tinyland-inc/wirechat/pkg/logger"
	"github.com/tinyland-inc/wirechat/pkg/model"
	"github.com/tinyland-inc/wirechat/pkg/notify"
	"github.com/tinyland-inc/wirechat/pkg/realtime"
	"github.com/tinyland-inc/wirechat/pkg/rest"
	"github.com/tinyland-inc/wirechat/pkg/session"
	"github.com/tinyland-inc/wirechat/pkg/store"
	"github.com/tinyland-inc/wirechat/pkg/typing"
	"github.com/tinyland-inc/wirechat/pkg/upload"
)

// ErrUploadInFlight enforces at most one upload task per compose session.
var ErrUploadInFlight = errors.New("client: an upload is already in flight")

// ErrFileTooLarge rejects a selected file over the configured limit.
var ErrFileTooLarge = errors.New("client: file exceeds upload limit")

// Engine is the session-scoped realtime synchronization engine. Everything
// it owns is acquired in Start and released in Close; nothing outlives the
// session.
type Engine struct {
	sess      *session.Session
	api       *rest.Client
	conn      *realtime.Conn
	registry  *store.ChatRegistry
	msgs      *store.MessageStore
	typing    *typing.Coordinator
	notifier  *notify.Aggregator
	comp      *composer.Composer
	uploader  *upload.Uploader
	maxUpload int64

	mu         sync.Mutex
	unsubs     []func()
	uploadTask *upload.Task
	started    bool
}

func New(cfg *config.Config, sess *session.Session) (*Engine, error) {
	api, err := rest.NewClient(cfg.API, sess)
	if err != nil {
		return nil, err
	}

	conn := realtime.NewConn(cfg.Realtime, sess)
	registry := store.NewChatRegistry()
	msgs := store.NewMessageStore()
	idle := time.Duration(cfg.Typing.IdleMillis) * time.Millisecond
	coord := typing.NewCoordinator(conn, sess.UserID(), idle)

	return &Engine{
		sess:      sess,
		api:       api,
		conn:      conn,
		registry:  registry,
		msgs:      msgs,
		typing:    coord,
		notifier:  notify.NewAggregator(),
		comp:      composer.New(sess, api, conn, registry, msgs, coord),
		uploader:  upload.NewUploader(api),
		maxUpload: cfg.Upload.MaxBytes,
	}, nil
}

// Start opens the realtime connection, registers event routing and seeds
// the chat registry. Safe to call once per engine.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return nil
	}
	e.started = true
	e.mu.Unlock()

	if err := e.conn.Open(ctx); err != nil {
		return err
	}

	e.subscribe(realtime.EventConnected, func(json.RawMessage) {
		logger.InfoC("client", "Realtime handshake acknowledged")
	})
	e.subscribe(realtime.EventMessageReceived, e.onMessageReceived)
	e.subscribe(realtime.EventTyping, e.onTyping)
	e.subscribe(realtime.EventStopTyping, e.onStopTyping)

	return e.RefreshChats(ctx)
}

func (e *Engine) subscribe(event string, h realtime.Handler) {
	unsub := e.conn.Subscribe(event, h)
	e.mu.Lock()
	e.unsubs = append(e.unsubs, unsub)
	e.mu.Unlock()
}

// onMessageReceived routes a realtime message: into the active chat's log
// (idempotent by id, tolerating the sender's own echo) or into the
// notification queue for any other chat.
func (e *Engine) onMessageReceived(payload json.RawMessage) {
	msg, err := realtime.DecodeMessage(payload)
	if err != nil {
		logger.WarnCF("client", "Undecodable message payload", map[string]any{"error": err.Error()})
		return
	}

	if msg.ChatID == e.registry.ActiveID() {
		if added := e.msgs.Append(msg); !added && msg.SenderID == e.sess.UserID() {
			// Own broadcast came back; the entry is already Sent.
			e.msgs.MarkDelivery(msg.ChatID, msg.ID, model.DeliveryEchoed)
		}
	} else {
		chat, _ := e.registry.Get(msg.ChatID)
		e.notifier.Add(msg, chat)
	}
	e.registry.TouchLatest(msg)
}

func (e *Engine) onTyping(payload json.RawMessage) {
	tp, err := realtime.DecodeTyping(payload)
	if err != nil || tp.UserID == e.sess.UserID() {
		return
	}
	e.typing.RemoteTyping(tp.ChatID, tp.UserID)
}

func (e *Engine) onStopTyping(payload json.RawMessage) {
	tp, err := realtime.DecodeTyping(payload)
	if err != nil {
		return
	}
	e.typing.RemoteStopTyping(tp.ChatID, tp.UserID)
}

// RefreshChats re-seeds the registry from REST.
func (e *Engine) RefreshChats(ctx context.Context) error {
	chats, err := e.api.ListChats(ctx)
	if err != nil {
		return err
	}
	e.registry.SetChats(chats)
	return nil
}

// SelectChat moves the active pointer. It cancels the previous chat's
// typing debounce, swaps realtime rooms, clears the new chat's
// notifications and kicks off an async history fetch whose response is
// discarded if the selection changes again before it resolves. An empty
// chatID deselects.
func (e *Engine) SelectChat(ctx context.Context, chatID string) {
	prev, epoch := e.registry.Select(chatID)

	if prev != "" {
		e.typing.ClearChat(prev)
		if e.msgs.Fetching(prev) {
			e.msgs.AbortFetch(prev)
		}
		e.conn.LeaveRoom(prev)
	}

	if chatID == "" {
		return
	}

	e.notifier.Clear(chatID)
	e.conn.JoinRoom(chatID)

	e.msgs.BeginFetch(chatID)
	go e.fetchHistory(ctx, chatID, epoch)
}

func (e *Engine) fetchHistory(ctx context.Context, chatID string, epoch uint64) {
	history, err := e.api.FetchMessages(ctx, chatID)
	if err != nil {
		// A stale fetch was already aborted by the selection change; its
		// error must not clear the flag a newer fetch has set.
		if e.registry.StillActive(chatID, epoch) {
			e.msgs.AbortFetch(chatID)
		}
		logger.WarnCF("client", "History fetch failed", map[string]any{
			"chat_id": chatID, "error": err.Error(),
		})
		return
	}

	if !e.registry.StillActive(chatID, epoch) {
		// Selection moved on while the fetch was in flight.
		logger.DebugCF("client", "Discarding stale history response", map[string]any{
			"chat_id": chatID,
		})
		return
	}

	e.msgs.CompleteFetch(chatID, history)
}

// AccessChat fetches or creates the direct chat with a user, registers it
// and selects it.
func (e *Engine) AccessChat(ctx context.Context, userID string) (model.Chat, error) {
	chat, err := e.api.AccessChat(ctx, userID)
	if err != nil {
		return model.Chat{}, err
	}
	e.registry.Upsert(chat)
	e.SelectChat(ctx, chat.ID)
	return chat, nil
}

// CreateGroupChat creates a group chat and registers it.
func (e *Engine) CreateGroupChat(ctx context.Context, name string, userIDs []string) (model.Chat, error) {
	chat, err := e.api.CreateGroupChat(ctx, name, userIDs)
	if err != nil {
		return model.Chat{}, err
	}
	e.registry.Upsert(chat)
	return chat, nil
}

// DeleteMessage flags a message deleted on the server and, for the
// caller's own view, drops it from the local log.
func (e *Engine) DeleteMessage(ctx context.Context, chatID, msgID string, forEveryone bool) error {
	if err := e.api.DeleteMessage(ctx, msgID, forEveryone); err != nil {
		return err
	}
	e.msgs.Drop(chatID, msgID)
	return nil
}

// StartUpload begins uploading a selected file. At most one task may be in
// flight per compose session; the resulting descriptor is staged on the
// composer for the next send.
func (e *Engine) StartUpload(ctx context.Context, task *upload.Task) (model.Attachment, error) {
	if e.maxUpload > 0 && task.Size() > e.maxUpload {
		return model.Attachment{}, ErrFileTooLarge
	}

	e.mu.Lock()
	if e.uploadTask != nil && e.uploadTask.Status() == upload.StatusUploading {
		e.mu.Unlock()
		return model.Attachment{}, ErrUploadInFlight
	}
	e.uploadTask = task
	e.mu.Unlock()

	att, err := e.uploader.Run(ctx, task)
	if err != nil {
		return model.Attachment{}, err
	}
	e.comp.Attach(att)
	return att, nil
}

// TypingPeers returns who is typing in the active chat. Typing state for
// other chats exists but is not surfaced.
func (e *Engine) TypingPeers() []string {
	active := e.registry.ActiveID()
	if active == "" {
		return nil
	}
	return e.typing.PeersTyping(active)
}

func (e *Engine) Session() *session.Session { return e.sess }

func (e *Engine) Registry() *store.ChatRegistry { return e.registry }

func (e *Engine) Messages() *store.MessageStore { return e.msgs }

func (e *Engine) Notifications() *notify.Aggregator { return e.notifier }

func (e *Engine) Composer() *composer.Composer { return e.comp }

func (e *Engine) API() *rest.Client { return e.api }

// Close releases the session's realtime resources: every subscription is
// unregistered, typing timers are cancelled and the connection torn down.
func (e *Engine) Close() {
	e.mu.Lock()
	unsubs := e.unsubs
	e.unsubs = nil
	e.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	e.typing.ClearAll()
	e.conn.Close()
	logger.InfoC("client", "Engine closed")
}
