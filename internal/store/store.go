package store

import (
	"context"
	"errors"
	"time"
)

// MediaPreview is the fixed chat-list placeholder shown instead of a URL for
// messages that carry an attachment.
const MediaPreview = "📷 Media"

// ErrDuplicate is returned by CreateUser when a unique field (email, phone)
// is already taken. Implementations wrap it so callers can errors.Is it.
var ErrDuplicate = errors.New("duplicate record")

// User represents a registered user.
type User struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	PasswordHash string
	CreatedAt    time.Time
}

// Message is a persisted chat message. Immutable once created; at least one
// of Body or MediaURL must be set.
type Message struct {
	ID          int64
	SenderID    string
	ReceiverID  string
	Body        string
	MediaURL    string
	MediaType   string
	DisplayTime string // client-formatted, non-authoritative
	SentAt      time.Time
}

// HasMedia reports whether the message carries an attachment.
func (m *Message) HasMedia() bool {
	return m.MediaURL != ""
}

// Preview returns the chat-list preview text for the message.
func (m *Message) Preview() string {
	if m.HasMedia() {
		return MediaPreview
	}
	return m.Body
}

// Conversation is the canonical record for a two-party chat. Exactly one
// record exists per unordered pair of users.
type Conversation struct {
	PairKey       string
	UserA         string // lexicographically smaller participant id
	UserB         string
	LastMessage   string
	LastMessageAt time.Time
	CreatedAt     time.Time
}

// Counterparty returns the participant that is not userID.
func (c *Conversation) Counterparty(userID string) string {
	if c.UserA == userID {
		return c.UserB
	}
	return c.UserA
}

// PairKey builds the canonical conversation key for two user ids: the ids in
// lexicographic order joined with a colon, so PairKey(a, b) == PairKey(b, a).
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

// SortPair returns the two ids in canonical (lexicographic) order.
func SortPair(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser inserts a new user record.
	CreateUser(ctx context.Context, user *User) error

	// GetUserByID retrieves a user by id.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByEmail retrieves a user by email.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// GetUserByPhone retrieves a user by phone number.
	GetUserByPhone(ctx context.Context, phone string) (*User, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage persists a message and sets its ID.
	SaveMessage(ctx context.Context, msg *Message) error

	// ListMessagesBetween returns the full history between two users in
	// ascending SentAt order, regardless of direction.
	ListMessagesBetween(ctx context.Context, userA, userB string) ([]*Message, error)
}

// ConversationStore handles canonical conversation records.
type ConversationStore interface {
	// UpsertConversation atomically creates or updates the conversation for
	// the unordered pair, setting its preview and timestamp. Must be safe
	// under concurrent invocation with the same pair.
	UpsertConversation(ctx context.Context, userA, userB, preview string, at time.Time) error

	// ListConversations returns all conversations userID participates in,
	// most recent first.
	ListConversations(ctx context.Context, userID string) ([]*Conversation, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	MessageStore
	ConversationStore

	// Close closes the underlying database connection.
	Close() error
}
