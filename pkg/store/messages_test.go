package store

import (
	"testing"
	"time"

	"github.com/tinyland-inc/wirechat/pkg/model"
)

func msg(id, chatID string, at time.Time) model.Message {
	return model.Message{ID: id, ChatID: chatID, Content: "msg " + id, CreatedAt: at}
}

func TestAppend_DedupesByID(t *testing.T) {
	s := NewMessageStore()
	m := msg("m1", "c1", time.Now())

	if !s.Append(m) {
		t.Fatal("first append rejected")
	}
	if s.Append(m) {
		t.Error("duplicate id appended")
	}
	if got := len(s.Messages("c1")); got != 1 {
		t.Errorf("log length: got %d, want 1", got)
	}
}

func TestAppend_BuffersDuringFetch(t *testing.T) {
	s := NewMessageStore()
	s.BeginFetch("c1")

	if !s.Append(msg("delta", "c1", time.Now())) {
		t.Fatal("delta rejected during fetch")
	}
	if got := len(s.Messages("c1")); got != 0 {
		t.Errorf("delta landed in log before fetch completed: %d entries", got)
	}
}

func TestCompleteFetch_MergesBufferedDeltas(t *testing.T) {
	s := NewMessageStore()
	now := time.Now()

	s.BeginFetch("c1")
	s.Append(msg("delta", "c1", now.Add(2*time.Second)))
	s.CompleteFetch("c1", []model.Message{
		msg("h1", "c1", now),
		msg("h2", "c1", now.Add(time.Second)),
	})

	log := s.Messages("c1")
	if len(log) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(log))
	}
	if log[2].ID != "delta" {
		t.Errorf("buffered delta not sorted last: %s", log[2].ID)
	}
	if s.Fetching("c1") {
		t.Error("fetch flag not cleared")
	}
}

func TestCompleteFetch_DeltaAlreadyInHistory(t *testing.T) {
	s := NewMessageStore()
	now := time.Now()

	s.BeginFetch("c1")
	s.Append(msg("m2", "c1", now.Add(time.Second)))
	s.CompleteFetch("c1", []model.Message{
		msg("m1", "c1", now),
		msg("m2", "c1", now.Add(time.Second)),
	})

	if got := len(s.Messages("c1")); got != 2 {
		t.Errorf("delta duplicated against history: %d entries", got)
	}
}

func TestCompleteFetch_KeepsOptimisticPending(t *testing.T) {
	s := NewMessageStore()
	now := time.Now()

	pending := msg("local-1", "c1", now.Add(time.Second))
	pending.Delivery = model.DeliveryPending
	s.Append(pending)

	s.BeginFetch("c1")
	s.CompleteFetch("c1", []model.Message{msg("h1", "c1", now)})

	log := s.Messages("c1")
	if len(log) != 2 {
		t.Fatalf("expected history plus pending, got %d", len(log))
	}
	if log[1].ID != "local-1" {
		t.Errorf("pending message lost in fetch replace: %v", log)
	}
}

func TestCompleteFetch_DropsSettledLocalEntries(t *testing.T) {
	s := NewMessageStore()
	now := time.Now()

	sent := msg("m1", "c1", now)
	sent.Delivery = model.DeliverySent
	s.Append(sent)

	s.BeginFetch("c1")
	s.CompleteFetch("c1", []model.Message{msg("m1", "c1", now)})

	if got := len(s.Messages("c1")); got != 1 {
		t.Errorf("settled entry duplicated against history: %d entries", got)
	}
}

func TestAbortFetch_FlushesBuffer(t *testing.T) {
	s := NewMessageStore()
	now := time.Now()

	s.Append(msg("m1", "c1", now))
	s.BeginFetch("c1")
	s.Append(msg("delta", "c1", now.Add(time.Second)))
	s.AbortFetch("c1")

	log := s.Messages("c1")
	if len(log) != 2 {
		t.Fatalf("expected old log plus flushed delta, got %d", len(log))
	}
	if s.Fetching("c1") {
		t.Error("fetch flag not cleared after abort")
	}
}

func TestReplace_SupersedesLocalID(t *testing.T) {
	s := NewMessageStore()
	now := time.Now()

	local := msg("local-1", "c1", now)
	local.Delivery = model.DeliveryPending
	s.Append(local)

	server := msg("srv-1", "c1", now)
	server.Delivery = model.DeliverySent
	s.Replace("c1", "local-1", server)

	log := s.Messages("c1")
	if len(log) != 1 {
		t.Fatalf("expected 1 message, got %d", len(log))
	}
	if log[0].ID != "srv-1" || log[0].Delivery != model.DeliverySent {
		t.Errorf("local entry not superseded: %+v", log[0])
	}
}

func TestReplace_SupersedesInsideFetchBuffer(t *testing.T) {
	s := NewMessageStore()
	now := time.Now()

	s.BeginFetch("c1")

	local := msg("local-1", "c1", now)
	local.Delivery = model.DeliveryPending
	s.Append(local)

	server := msg("srv-1", "c1", now)
	server.Delivery = model.DeliverySent
	s.Replace("c1", "local-1", server)

	s.CompleteFetch("c1", nil)

	log := s.Messages("c1")
	if len(log) != 1 {
		t.Fatalf("expected 1 entry after supersede, got %d: %+v", len(log), log)
	}
	if log[0].ID != "srv-1" || log[0].Delivery != model.DeliverySent {
		t.Errorf("buffered entry not superseded: %+v", log[0])
	}

	// The self-echo dedupes against the merged log instead of duplicating.
	if s.Append(msg("srv-1", "c1", now)) {
		t.Error("echo of the superseded message appended a second entry")
	}
}

func TestReplace_DuringFetchDedupesAgainstBuffer(t *testing.T) {
	s := NewMessageStore()
	now := time.Now()

	s.BeginFetch("c1")
	s.Append(msg("srv-1", "c1", now))

	server := msg("srv-1", "c1", now)
	s.Replace("c1", "local-gone", server)

	s.CompleteFetch("c1", nil)
	if got := len(s.Messages("c1")); got != 1 {
		t.Errorf("server message duplicated in buffer: %d entries", got)
	}
}

func TestReplace_AppendsWhenLocalGone(t *testing.T) {
	s := NewMessageStore()
	server := msg("srv-1", "c1", time.Now())
	s.Replace("c1", "local-gone", server)

	if got := len(s.Messages("c1")); got != 1 {
		t.Errorf("server message dropped: %d entries", got)
	}
}

func TestMarkDelivery(t *testing.T) {
	s := NewMessageStore()
	s.Append(msg("m1", "c1", time.Now()))

	if !s.MarkDelivery("c1", "m1", model.DeliveryEchoed) {
		t.Fatal("known message not marked")
	}
	if s.MarkDelivery("c1", "ghost", model.DeliveryEchoed) {
		t.Error("unknown message marked")
	}
	if s.Messages("c1")[0].Delivery != model.DeliveryEchoed {
		t.Error("delivery state not updated")
	}
}

func TestDrop(t *testing.T) {
	s := NewMessageStore()
	now := time.Now()
	s.Append(msg("m1", "c1", now))
	s.Append(msg("m2", "c1", now.Add(time.Second)))

	s.Drop("c1", "m1")

	log := s.Messages("c1")
	if len(log) != 1 || log[0].ID != "m2" {
		t.Errorf("wrong log after drop: %+v", log)
	}
}
