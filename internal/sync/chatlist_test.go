package sync

import (
	"testing"
	"time"

	"github.com/pairchat/pairchat/internal/proto"
)

func TestChatListLoadResetsPresence(t *testing.T) {
	l := NewChatList()
	l.Load([]ConversationSummary{
		{ID: "bob", Name: "Bob", LastMsg: "hey", LastMessageTime: 1000, Online: true},
		{ID: "carol", Name: "Carol", LastMsg: "yo", LastMessageTime: 2000},
	})

	if l.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", l.Len())
	}
	for _, entry := range l.Entries() {
		if entry.Online {
			t.Fatalf("entry %s should start offline until the broadcast", entry.ID)
		}
	}
}

func TestChatListPresenceNeverTouchesPreview(t *testing.T) {
	l := NewChatList()
	l.Load([]ConversationSummary{
		{ID: "bob", Name: "Bob", LastMsg: "see you tomorrow", LastMessageTime: 1000},
	})

	l.ApplyPresence([]string{"bob"})

	entry, ok := l.Get("bob")
	if !ok {
		t.Fatal("bob entry missing")
	}
	if !entry.Online {
		t.Fatal("bob should be online")
	}
	if entry.LastMsg != "see you tomorrow" {
		t.Fatalf("presence clobbered the preview: %q", entry.LastMsg)
	}

	l.ApplyPresence(nil)
	entry, _ = l.Get("bob")
	if entry.Online {
		t.Fatal("bob should be offline after empty broadcast")
	}
	if entry.LastMsg != "see you tomorrow" {
		t.Fatalf("going offline clobbered the preview: %q", entry.LastMsg)
	}
}

func TestChatListApplyMessageUpdatesInPlace(t *testing.T) {
	l := NewChatList()
	l.Load([]ConversationSummary{
		{ID: "bob", Name: "Bob", LastMsg: "old", LastMessageTime: 1000},
		{ID: "carol", Name: "Carol", LastMsg: "other", LastMessageTime: 2000},
	})
	l.ApplyPresence([]string{"bob"})

	l.ApplyMessage(proto.MessagePayload{
		SenderID:   "bob",
		SenderName: "Bob",
		ReceiverID: "me",
		Text:       "new message",
		SentAt:     time.Now().UnixMilli(),
	})

	if l.Len() != 2 {
		t.Fatalf("message for known sender must not add an entry, got %d", l.Len())
	}
	entry, _ := l.Get("bob")
	if entry.LastMsg != "new message" {
		t.Fatalf("preview not updated: %q", entry.LastMsg)
	}
	if !entry.Online {
		t.Fatal("message update must not reset the online flag")
	}
}

func TestChatListApplyMessagePrependsUnknownSender(t *testing.T) {
	l := NewChatList()
	l.Load([]ConversationSummary{
		{ID: "bob", Name: "Bob", LastMsg: "old", LastMessageTime: 1000},
	})

	l.ApplyMessage(proto.MessagePayload{
		SenderID:   "dave",
		SenderName: "Dave",
		ReceiverID: "me",
		Text:       "first contact",
		SentAt:     time.Now().UnixMilli(),
	})

	entries := l.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID != "dave" {
		t.Fatalf("new chat should be prepended, got %q first", entries[0].ID)
	}
	if !entries[0].Online {
		t.Fatal("a sender delivering live is online")
	}
}

func TestChatListMediaMessagePreview(t *testing.T) {
	l := NewChatList()

	l.ApplyMessage(proto.MessagePayload{
		SenderID:  "bob",
		MediaURL:  "/uploads/pic.png",
		MediaType: "image/png",
		SentAt:    time.Now().UnixMilli(),
	})

	entry, _ := l.Get("bob")
	if entry.LastMsg != mediaPreview {
		t.Fatalf("media preview = %q, want %q", entry.LastMsg, mediaPreview)
	}
}

func TestChatListApplyChatStartedUpserts(t *testing.T) {
	l := NewChatList()

	l.ApplyChatStarted(proto.ChatStartedPayload{
		ID: "bob", Name: "Bob", LastMsg: "hello", Online: true, LastMessageTime: 5000,
	})
	if l.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", l.Len())
	}

	// Second hint for the same counterparty updates, never duplicates.
	l.ApplyChatStarted(proto.ChatStartedPayload{
		ID: "bob", Name: "Bob", LastMsg: "hello again", Online: true, LastMessageTime: 6000,
	})
	if l.Len() != 1 {
		t.Fatalf("duplicate hint created a second entry, got %d", l.Len())
	}
	entry, _ := l.Get("bob")
	if entry.LastMsg != "hello again" {
		t.Fatalf("hint not applied: %q", entry.LastMsg)
	}
}

func TestChatListUpsertContact(t *testing.T) {
	l := NewChatList()
	l.Load([]ConversationSummary{
		{ID: "bob", Name: "Bob", LastMsg: "existing chat", LastMessageTime: 1000},
	})

	// Looking up an existing counterparty keeps their conversation intact.
	l.UpsertContact("bob", "Bobby")
	entry, _ := l.Get("bob")
	if entry.LastMsg != "existing chat" {
		t.Fatalf("lookup clobbered existing preview: %q", entry.LastMsg)
	}
	if entry.Name != "Bobby" {
		t.Fatalf("name not refreshed: %q", entry.Name)
	}

	// A brand-new contact appears on top with the empty-state preview.
	l.UpsertContact("dave", "Dave")
	entries := l.Entries()
	if entries[0].ID != "dave" || entries[0].LastMsg != noMessagesPreview {
		t.Fatalf("unexpected new contact entry: %+v", entries[0])
	}
}

func TestChatListOutgoingMessage(t *testing.T) {
	l := NewChatList()
	l.Load([]ConversationSummary{
		{ID: "bob", Name: "Bob", LastMsg: "old", LastMessageTime: 1000},
	})
	l.ApplyPresence([]string{"bob"})

	at := time.Now()
	l.ApplyOutgoing("bob", "Bob", "my reply", at)

	entry, _ := l.Get("bob")
	if entry.LastMsg != "my reply" {
		t.Fatalf("outgoing preview not applied: %q", entry.LastMsg)
	}
	if !entry.Online {
		t.Fatal("outgoing message must not reset presence")
	}
}
