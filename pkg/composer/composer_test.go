package composer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tinyland-inc/wirechat/pkg/model"
	"github.com/tinyland-inc/wirechat/pkg/realtime"
	"github.com/tinyland-inc/wirechat/pkg/rest"
	"github.com/tinyland-inc/wirechat/pkg/session"
	"github.com/tinyland-inc/wirechat/pkg/store"
)

type fakeAPI struct {
	mu   sync.Mutex
	reqs []rest.SendMessageRequest
	err  error
}

func (f *fakeAPI) SendMessage(_ context.Context, req rest.SendMessageRequest) (model.Message, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.err != nil {
		return model.Message{}, f.err
	}
	return model.Message{
		ID:        "srv-1",
		ChatID:    req.ChatID,
		SenderID:  "u1",
		Content:   req.Content,
		CreatedAt: time.Now(),
	}, nil
}

type fakePub struct {
	mu     sync.Mutex
	events []string
}

func (f *fakePub) Publish(event string, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

type fakeTyping struct {
	local []string
	stops []string
}

func (f *fakeTyping) LocalTyping(chatID string) { f.local = append(f.local, chatID) }

func (f *fakeTyping) StopLocal(chatID string) { f.stops = append(f.stops, chatID) }

func newTestComposer(t *testing.T, api API) (*Composer, *store.ChatRegistry, *store.MessageStore, *fakePub, *fakeTyping) {
	t.Helper()
	sess, err := session.New(model.Identity{ID: "u1", DisplayName: "Uma", AuthToken: "tok"})
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	registry := store.NewChatRegistry()
	registry.SetChats([]model.Chat{{ID: "c1"}})
	registry.Select("c1")
	msgs := store.NewMessageStore()
	pub := &fakePub{}
	typ := &fakeTyping{}
	return New(sess, api, pub, registry, msgs, typ), registry, msgs, pub, typ
}

func TestSend_PostsDraftToActiveChat(t *testing.T) {
	api := &fakeAPI{}
	c, registry, msgs, pub, typ := newTestComposer(t, api)

	c.SetDraft("hello")
	sent, err := c.Send(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(api.reqs) != 1 {
		t.Fatalf("expected one request, got %d", len(api.reqs))
	}
	req := api.reqs[0]
	if req.Content != "hello" || req.ChatID != "c1" {
		t.Errorf("wrong request: %+v", req)
	}
	if sent.ID != "srv-1" || sent.Delivery != model.DeliverySent {
		t.Errorf("wrong returned message: %+v", sent)
	}

	log := msgs.Messages("c1")
	if len(log) != 1 || log[0].ID != "srv-1" {
		t.Errorf("local entry not superseded by server message: %+v", log)
	}

	if chat, _ := registry.Get("c1"); chat.LatestMessage == nil || chat.LatestMessage.ID != "srv-1" {
		t.Error("chat's latest message not updated")
	}
	if len(pub.events) != 1 || pub.events[0] != realtime.EventNewMessage {
		t.Errorf("wrong published events: %v", pub.events)
	}
	if len(typ.stops) != 1 || typ.stops[0] != "c1" {
		t.Errorf("typing not cut off on send: %v", typ.stops)
	}
}

func TestSend_ClearsDraftBeforeServerResponds(t *testing.T) {
	api := &fakeAPI{}
	c, _, _, _, _ := newTestComposer(t, api)

	c.SetDraft("hello")
	if _, err := c.Send(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Draft() != "" {
		t.Errorf("draft not cleared: %q", c.Draft())
	}
}

func TestSend_EmptyDraftRejected(t *testing.T) {
	c, _, _, _, _ := newTestComposer(t, &fakeAPI{})
	if _, err := c.Send(context.Background()); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("got %v, want ErrEmptyMessage", err)
	}
}

func TestSend_NoActiveChat(t *testing.T) {
	c, registry, _, _, _ := newTestComposer(t, &fakeAPI{})
	registry.Select("")
	c.SetDraft("hello")
	if _, err := c.Send(context.Background()); !errors.Is(err, ErrNoActiveChat) {
		t.Errorf("got %v, want ErrNoActiveChat", err)
	}
}

func TestSend_AttachmentOnlyUsesFileNameAsContent(t *testing.T) {
	api := &fakeAPI{}
	c, _, _, _, _ := newTestComposer(t, api)

	c.Attach(model.Attachment{
		URL:      "https://files.example/photo.png",
		MimeType: "image/png",
		FileName: "photo.png",
	})
	if _, err := c.Send(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := api.reqs[0]
	if req.Content != "photo.png" {
		t.Errorf("content: got %q, want file name", req.Content)
	}
	if req.FileURL != "https://files.example/photo.png" || req.FileType != "image/png" {
		t.Errorf("attachment fields not forwarded: %+v", req)
	}
}

func TestSend_ReplySnapshotSurvivesSourceDeletion(t *testing.T) {
	api := &fakeAPI{}
	c, _, msgs, _, _ := newTestComposer(t, api)

	original := model.Message{ID: "m1", ChatID: "c1", SenderName: "Bob", Content: "first"}
	msgs.Append(original)

	c.SetReplyTo(original)
	msgs.Drop("c1", "m1")

	c.SetDraft("replying")
	if _, err := c.Send(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := api.reqs[0]
	if req.ReplyTo == nil || req.ReplyTo.SenderName != "Bob" || req.ReplyTo.Content != "first" {
		t.Errorf("reply snapshot lost: %+v", req.ReplyTo)
	}
}

func TestSend_FailurePreservesContentForRetry(t *testing.T) {
	api := &fakeAPI{err: errors.New("network down")}
	c, _, msgs, pub, _ := newTestComposer(t, api)

	c.SetDraft("precious words")
	if _, err := c.Send(context.Background()); err == nil {
		t.Fatal("expected send to fail")
	}

	log := msgs.Messages("c1")
	if len(log) != 1 || log[0].Delivery != model.DeliveryFailed {
		t.Fatalf("failed placeholder missing: %+v", log)
	}
	if len(pub.events) != 0 {
		t.Errorf("failed send published an event: %v", pub.events)
	}

	if !c.CanRetry() {
		t.Fatal("retry not available after failure")
	}
	if content, ok := c.FailedContent(); !ok || content != "precious words" {
		t.Errorf("failed content lost: %q %v", content, ok)
	}
}

func TestRetry_ResendsPreservedContent(t *testing.T) {
	api := &fakeAPI{err: errors.New("network down")}
	c, _, msgs, _, _ := newTestComposer(t, api)

	c.SetDraft("try again")
	c.Send(context.Background())

	api.err = nil
	sent, err := c.Retry(context.Background())
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if sent.Content != "try again" {
		t.Errorf("retried content: got %q", sent.Content)
	}

	log := msgs.Messages("c1")
	if len(log) != 1 || log[0].ID != "srv-1" {
		t.Errorf("failed placeholder not replaced: %+v", log)
	}
	if c.CanRetry() {
		t.Error("retry still offered after success")
	}
}

func TestRetry_NothingPreserved(t *testing.T) {
	c, _, _, _, _ := newTestComposer(t, &fakeAPI{})
	if _, err := c.Retry(context.Background()); !errors.Is(err, ErrNothingToRetry) {
		t.Errorf("got %v, want ErrNothingToRetry", err)
	}
}

func TestSetDraft_FeedsTypingPresence(t *testing.T) {
	c, _, _, _, typ := newTestComposer(t, &fakeAPI{})

	c.SetDraft("h")
	c.SetDraft("he")
	c.SetDraft("")

	if len(typ.local) != 2 {
		t.Errorf("expected 2 typing keystrokes, got %v", typ.local)
	}
}

func TestSend_LocalEntryIsPendingBeforeAck(t *testing.T) {
	// The slow API observes the log mid-send.
	var observed []model.Message
	c, _, msgs, _, _ := newTestComposer(t, nil)
	c.api = apiFunc(func(_ context.Context, req rest.SendMessageRequest) (model.Message, error) {
		observed = msgs.Messages(req.ChatID)
		return model.Message{ID: "srv-1", ChatID: req.ChatID, Content: req.Content, CreatedAt: time.Now()}, nil
	})

	c.SetDraft("hello")
	if _, err := c.Send(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(observed) != 1 {
		t.Fatalf("no optimistic entry during send: %+v", observed)
	}
	if observed[0].Delivery != model.DeliveryPending || !strings.HasPrefix(observed[0].ID, "local-") {
		t.Errorf("optimistic entry wrong: %+v", observed[0])
	}
}

type apiFunc func(ctx context.Context, req rest.SendMessageRequest) (model.Message, error)

func (f apiFunc) SendMessage(ctx context.Context, req rest.SendMessageRequest) (model.Message, error) {
	return f(ctx, req)
}
