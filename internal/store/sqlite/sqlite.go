package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pairchat/pairchat/internal/store"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL UNIQUE,
	phone         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	sender_id    TEXT NOT NULL,
	receiver_id  TEXT NOT NULL,
	body         TEXT NOT NULL DEFAULT '',
	media_url    TEXT NOT NULL DEFAULT '',
	media_type   TEXT NOT NULL DEFAULT '',
	display_time TEXT NOT NULL DEFAULT '',
	sent_at      DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_pair
	ON messages(sender_id, receiver_id, sent_at);

CREATE TABLE IF NOT EXISTS conversations (
	pair_key        TEXT PRIMARY KEY,
	user_a          TEXT NOT NULL,
	user_b          TEXT NOT NULL,
	last_message    TEXT NOT NULL DEFAULT '',
	last_message_at DATETIME NOT NULL,
	created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_conversations_user_a ON conversations(user_a, last_message_at DESC);
CREATE INDEX IF NOT EXISTS idx_conversations_user_b ON conversations(user_b, last_message_at DESC);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens (and if necessary creates) the SQLite database at dbPath and
// applies the schema.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(schema)
		return err
	})
}

// NewWithSetup opens the database and runs a setup function before use.
// Useful for tests to apply an alternative schema or seed data.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single writer connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser inserts a new user record.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *store.User) error {
	query := `
		INSERT INTO users (id, name, email, phone, password_hash)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, user.ID, user.Name, user.Email, user.Phone, user.PasswordHash); err != nil {
		var sqlErr sqlite3.Error
		if errors.As(err, &sqlErr) && sqlErr.Code == sqlite3.ErrConstraint {
			return fmt.Errorf("insert user: %w", store.ErrDuplicate)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by id.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	return s.getUser(ctx, "id = ?", id)
}

// GetUserByEmail retrieves a user by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	return s.getUser(ctx, "email = ?", email)
}

// GetUserByPhone retrieves a user by phone number.
func (s *SQLiteStore) GetUserByPhone(ctx context.Context, phone string) (*store.User, error) {
	return s.getUser(ctx, "phone = ?", phone)
}

func (s *SQLiteStore) getUser(ctx context.Context, where string, arg any) (*store.User, error) {
	query := `
		SELECT id, name, email, phone, password_hash, created_at
		FROM users
		WHERE ` + where
	var user store.User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Phone,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

// ==== MessageStore implementation ====

// SaveMessage persists a message and sets its ID.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	query := `
		INSERT INTO messages (sender_id, receiver_id, body, media_url, media_type, display_time, sent_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		msg.SenderID,
		msg.ReceiverID,
		msg.Body,
		msg.MediaURL,
		msg.MediaType,
		msg.DisplayTime,
		msg.SentAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	msg.ID = id
	return nil
}

// ListMessagesBetween returns the history between two users, ascending by
// sent_at (id breaks ties so ordering is stable for same-instant messages).
func (s *SQLiteStore) ListMessagesBetween(ctx context.Context, userA, userB string) ([]*store.Message, error) {
	query := `
		SELECT id, sender_id, receiver_id, body, media_url, media_type, display_time, sent_at
		FROM messages
		WHERE (sender_id = ? AND receiver_id = ?)
		   OR (sender_id = ? AND receiver_id = ?)
		ORDER BY sent_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, userA, userB, userB, userA)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		var msg store.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.SenderID,
			&msg.ReceiverID,
			&msg.Body,
			&msg.MediaURL,
			&msg.MediaType,
			&msg.DisplayTime,
			&msg.SentAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, &msg)
	}

	return messages, rows.Err()
}

// ==== ConversationStore implementation ====

// UpsertConversation creates or updates the conversation for the unordered
// pair in a single statement. The ON CONFLICT clause makes the find-or-create
// atomic, so concurrent first-contact sends cannot produce two records.
func (s *SQLiteStore) UpsertConversation(ctx context.Context, userA, userB, preview string, at time.Time) error {
	a, b := store.SortPair(userA, userB)
	query := `
		INSERT INTO conversations (pair_key, user_a, user_b, last_message, last_message_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(pair_key) DO UPDATE SET
			last_message    = excluded.last_message,
			last_message_at = excluded.last_message_at
	`
	if _, err := s.db.ExecContext(ctx, query, store.PairKey(a, b), a, b, preview, at); err != nil {
		return fmt.Errorf("upsert conversation: %w", err)
	}
	return nil
}

// ListConversations returns all conversations userID participates in, most
// recently active first.
func (s *SQLiteStore) ListConversations(ctx context.Context, userID string) ([]*store.Conversation, error) {
	query := `
		SELECT pair_key, user_a, user_b, last_message, last_message_at, created_at
		FROM conversations
		WHERE user_a = ? OR user_b = ?
		ORDER BY last_message_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var conversations []*store.Conversation
	for rows.Next() {
		var conv store.Conversation
		if err := rows.Scan(
			&conv.PairKey,
			&conv.UserA,
			&conv.UserB,
			&conv.LastMessage,
			&conv.LastMessageAt,
			&conv.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		conversations = append(conversations, &conv)
	}

	return conversations, rows.Err()
}

// Ensure SQLiteStore implements store.Store
var _ store.Store = (*SQLiteStore)(nil)
