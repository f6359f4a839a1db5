package sync

import (
	"time"

	"github.com/pairchat/pairchat/internal/proto"
)

// mediaPreview matches the placeholder the server persists for attachments.
const mediaPreview = "📷 Media"

// noMessagesPreview is shown for a chat opened via lookup before any message
// has been exchanged.
const noMessagesPreview = "No messages yet"

// ChatEntry is one chat-list row, keyed by the counterparty's user id.
type ChatEntry struct {
	ID              string
	Name            string
	LastMsg         string
	LastMessageTime time.Time
	Online          bool
}

// ChatList reconciles the persisted conversation list with live events. It
// holds at most one entry per counterparty; updates merge field by field so a
// presence change never clobbers a preview and a message never resets the
// online flag. ChatList is not safe for concurrent use; Session serializes
// access to it.
type ChatList struct {
	entries []*ChatEntry
	index   map[string]*ChatEntry
}

// NewChatList returns an empty chat list.
func NewChatList() *ChatList {
	return &ChatList{index: make(map[string]*ChatEntry)}
}

// Load replaces the list with the persisted summaries. Presence is reset to
// offline; the next online-users broadcast is the authority.
func (l *ChatList) Load(summaries []ConversationSummary) {
	l.entries = l.entries[:0]
	l.index = make(map[string]*ChatEntry, len(summaries))
	for _, s := range summaries {
		entry := &ChatEntry{
			ID:              s.ID,
			Name:            s.Name,
			LastMsg:         s.LastMsg,
			LastMessageTime: time.UnixMilli(s.LastMessageTime),
		}
		l.entries = append(l.entries, entry)
		l.index[s.ID] = entry
	}
}

// ApplyPresence marks the listed users online and everyone else offline. Only
// the Online field is touched.
func (l *ChatList) ApplyPresence(onlineIDs []string) {
	online := make(map[string]struct{}, len(onlineIDs))
	for _, id := range onlineIDs {
		online[id] = struct{}{}
	}
	for _, entry := range l.entries {
		_, entry.Online = online[entry.ID]
	}
}

// ApplyMessage folds an incoming message into the sender's entry, creating
// one at the top of the list on first contact. A sender delivering a message
// is necessarily connected, so a created entry starts online.
func (l *ChatList) ApplyMessage(msg proto.MessagePayload) {
	preview := msg.Text
	if msg.MediaURL != "" {
		preview = mediaPreview
	}
	at := time.UnixMilli(msg.SentAt)

	if entry, ok := l.index[msg.SenderID]; ok {
		entry.LastMsg = preview
		entry.LastMessageTime = at
		if msg.SenderName != "" {
			entry.Name = msg.SenderName
		}
		return
	}
	l.prepend(&ChatEntry{
		ID:              msg.SenderID,
		Name:            msg.SenderName,
		LastMsg:         preview,
		LastMessageTime: at,
		Online:          true,
	})
}

// ApplyChatStarted folds a new-chat hint into the list. The hint carries the
// counterparty's live presence, so unlike ApplyPresence it may set Online.
func (l *ChatList) ApplyChatStarted(hint proto.ChatStartedPayload) {
	if entry, ok := l.index[hint.ID]; ok {
		entry.Name = hint.Name
		entry.LastMsg = hint.LastMsg
		entry.LastMessageTime = time.UnixMilli(hint.LastMessageTime)
		entry.Online = hint.Online
		return
	}
	l.prepend(&ChatEntry{
		ID:              hint.ID,
		Name:            hint.Name,
		LastMsg:         hint.LastMsg,
		LastMessageTime: time.UnixMilli(hint.LastMessageTime),
		Online:          hint.Online,
	})
}

// ApplyOutgoing updates the receiver's entry after the local user sends a
// message, creating one on first contact.
func (l *ChatList) ApplyOutgoing(receiverID, receiverName, preview string, at time.Time) {
	if entry, ok := l.index[receiverID]; ok {
		entry.LastMsg = preview
		entry.LastMessageTime = at
		return
	}
	l.prepend(&ChatEntry{
		ID:              receiverID,
		Name:            receiverName,
		LastMsg:         preview,
		LastMessageTime: at,
	})
}

// UpsertContact ensures an entry exists for a counterparty found via lookup,
// without disturbing an existing conversation's preview.
func (l *ChatList) UpsertContact(id, name string) {
	if entry, ok := l.index[id]; ok {
		if name != "" {
			entry.Name = name
		}
		return
	}
	l.prepend(&ChatEntry{
		ID:      id,
		Name:    name,
		LastMsg: noMessagesPreview,
	})
}

// Get returns a copy of the entry for the given counterparty.
func (l *ChatList) Get(id string) (ChatEntry, bool) {
	entry, ok := l.index[id]
	if !ok {
		return ChatEntry{}, false
	}
	return *entry, true
}

// Entries returns a snapshot of the list in display order.
func (l *ChatList) Entries() []ChatEntry {
	out := make([]ChatEntry, len(l.entries))
	for i, entry := range l.entries {
		out[i] = *entry
	}
	return out
}

// Len reports the number of entries.
func (l *ChatList) Len() int {
	return len(l.entries)
}

func (l *ChatList) prepend(entry *ChatEntry) {
	l.entries = append([]*ChatEntry{entry}, l.entries...)
	l.index[entry.ID] = entry
}
