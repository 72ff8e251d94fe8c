package store

import (
	"testing"
	"time"

	"github.com/tinyland-inc/wirechat/pkg/model"
)

func chatWithLatest(id string, at time.Time) model.Chat {
	return model.Chat{
		ID:   id,
		Kind: model.ChatDirect,
		LatestMessage: &model.Message{
			ID:        "m-" + id,
			ChatID:    id,
			CreatedAt: at,
		},
	}
}

func TestList_OrdersByLatestMessage(t *testing.T) {
	r := NewChatRegistry()
	now := time.Now()
	r.SetChats([]model.Chat{
		chatWithLatest("old", now.Add(-time.Hour)),
		chatWithLatest("new", now),
		{ID: "empty", Kind: model.ChatGroup},
	})

	list := r.List()
	if len(list) != 3 {
		t.Fatalf("expected 3 chats, got %d", len(list))
	}
	if list[0].ID != "new" || list[1].ID != "old" || list[2].ID != "empty" {
		t.Errorf("wrong order: %s, %s, %s", list[0].ID, list[1].ID, list[2].ID)
	}
}

func TestTouchLatest_ReordersList(t *testing.T) {
	r := NewChatRegistry()
	now := time.Now()
	r.SetChats([]model.Chat{
		chatWithLatest("a", now.Add(-time.Hour)),
		chatWithLatest("b", now),
	})

	r.TouchLatest(model.Message{ID: "m9", ChatID: "a", CreatedAt: now.Add(time.Minute)})

	list := r.List()
	if list[0].ID != "a" {
		t.Errorf("expected chat a first after new message, got %s", list[0].ID)
	}
}

func TestTouchLatest_IgnoresOlderMessage(t *testing.T) {
	r := NewChatRegistry()
	now := time.Now()
	r.SetChats([]model.Chat{chatWithLatest("a", now)})

	r.TouchLatest(model.Message{ID: "m0", ChatID: "a", CreatedAt: now.Add(-time.Hour)})

	chat, _ := r.Get("a")
	if chat.LatestMessage.ID != "m-a" {
		t.Errorf("latest message replaced by an older one: %s", chat.LatestMessage.ID)
	}
}

func TestTouchLatest_UnknownChat(t *testing.T) {
	r := NewChatRegistry()
	r.TouchLatest(model.Message{ID: "m1", ChatID: "ghost", CreatedAt: time.Now()})
	if len(r.List()) != 0 {
		t.Error("unknown chat should not be created by TouchLatest")
	}
}

func TestSelect_BumpsEpoch(t *testing.T) {
	r := NewChatRegistry()
	r.SetChats([]model.Chat{{ID: "a"}, {ID: "b"}})

	prev, e1 := r.Select("a")
	if prev != "" {
		t.Errorf("expected no previous selection, got %q", prev)
	}
	prev, e2 := r.Select("b")
	if prev != "a" {
		t.Errorf("expected previous selection a, got %q", prev)
	}
	if e2 <= e1 {
		t.Errorf("epoch did not advance: %d then %d", e1, e2)
	}
	if r.ActiveID() != "b" {
		t.Errorf("active chat: got %q, want b", r.ActiveID())
	}
}

func TestStillActive_FalseAfterReselect(t *testing.T) {
	r := NewChatRegistry()
	r.SetChats([]model.Chat{{ID: "a"}, {ID: "b"}})

	_, epoch := r.Select("a")
	if !r.StillActive("a", epoch) {
		t.Fatal("fresh selection should be active")
	}

	r.Select("b")
	if r.StillActive("a", epoch) {
		t.Error("stale selection still reported active")
	}
}

func TestStillActive_FalseAfterDeselect(t *testing.T) {
	r := NewChatRegistry()
	r.SetChats([]model.Chat{{ID: "a"}})

	_, epoch := r.Select("a")
	r.Select("")
	if r.StillActive("a", epoch) {
		t.Error("deselected chat still reported active")
	}
}

func TestStillActive_FalseAfterReselectSameChat(t *testing.T) {
	r := NewChatRegistry()
	r.SetChats([]model.Chat{{ID: "a"}})

	_, epoch := r.Select("a")
	r.Select("")
	r.Select("a")

	// Same chat, new selection: the old fetch must still be discarded.
	if r.StillActive("a", epoch) {
		t.Error("old epoch accepted after reselecting the same chat")
	}
}
