package model

import "testing"

func TestChat_Title(t *testing.T) {
	direct := Chat{
		ID:   "c1",
		Kind: ChatDirect,
		Participants: []Participant{
			{ID: "u1", DisplayName: "Uma"},
			{ID: "u2", DisplayName: "Bob"},
		},
	}
	if got := direct.Title("u1"); got != "Bob" {
		t.Errorf("direct title for u1: got %q, want Bob", got)
	}
	if got := direct.Title("u2"); got != "Uma" {
		t.Errorf("direct title for u2: got %q, want Uma", got)
	}

	group := Chat{ID: "g1", Kind: ChatGroup, DisplayName: "Weekend Plans"}
	if got := group.Title("u1"); got != "Weekend Plans" {
		t.Errorf("group title: got %q", got)
	}

	selfOnly := Chat{
		ID:           "c2",
		Kind:         ChatDirect,
		Participants: []Participant{{ID: "u1", DisplayName: "Uma"}},
	}
	if got := selfOnly.Title("u1"); got != "Uma" {
		t.Errorf("self-only chat title: got %q", got)
	}

	empty := Chat{ID: "c3", Kind: ChatDirect}
	if got := empty.Title("u1"); got != "c3" {
		t.Errorf("empty chat falls back to id: got %q", got)
	}
}

func TestChat_IsGroup(t *testing.T) {
	if (&Chat{Kind: ChatDirect}).IsGroup() {
		t.Error("direct chat reported as group")
	}
	if !(&Chat{Kind: ChatGroup}).IsGroup() {
		t.Error("group chat not reported as group")
	}
}
