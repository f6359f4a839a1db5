package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pairchat/pairchat/internal/store"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// mustNoEvent asserts that no event of the given kind arrives within the
// window. Used for silent-drop behaviors.
func mustNoEvent(t *testing.T, ch <-chan *Event, kind EventKind) {
	t.Helper()

	deadline := time.Now().Add(300 * time.Millisecond)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event kind %v: %+v", kind, ev)
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func newTestHub(t *testing.T) (*Hub, *memStore) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)

	st := newMemStore()
	logger := zerolog.Nop()
	hub := NewHub(st, &logger)
	go hub.Run(ctx)
	return hub, st
}

// memStore is a goroutine-safe in-memory store.Store used to test the hub
// and pipeline without a database.
type memStore struct {
	mu            sync.Mutex
	messages      []*store.Message
	conversations map[string]*store.Conversation
	nextID        int64
	failSave      bool
}

func newMemStore() *memStore {
	return &memStore{conversations: make(map[string]*store.Conversation), nextID: 1}
}

func (m *memStore) CreateUser(ctx context.Context, user *store.User) error { return nil }

func (m *memStore) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	return nil, errors.New("not found")
}

func (m *memStore) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	return nil, errors.New("not found")
}

func (m *memStore) GetUserByPhone(ctx context.Context, phone string) (*store.User, error) {
	return nil, errors.New("not found")
}

func (m *memStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errors.New("disk full")
	}
	msg.ID = m.nextID
	m.nextID++
	saved := *msg
	m.messages = append(m.messages, &saved)
	return nil
}

func (m *memStore) ListMessagesBetween(ctx context.Context, userA, userB string) ([]*store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := store.PairKey(userA, userB)
	var out []*store.Message
	for _, msg := range m.messages {
		if store.PairKey(msg.SenderID, msg.ReceiverID) == key {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memStore) UpsertConversation(ctx context.Context, userA, userB, preview string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := store.PairKey(userA, userB)
	a, b := store.SortPair(userA, userB)
	conv, ok := m.conversations[key]
	if !ok {
		conv = &store.Conversation{PairKey: key, UserA: a, UserB: b, CreatedAt: at}
		m.conversations[key] = conv
	}
	conv.LastMessage = preview
	conv.LastMessageAt = at
	return nil
}

func (m *memStore) ListConversations(ctx context.Context, userID string) ([]*store.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.Conversation
	for _, conv := range m.conversations {
		if conv.UserA == userID || conv.UserB == userID {
			out = append(out, conv)
		}
	}
	return out, nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) messageCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

func (m *memStore) conversation(key string) *store.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[key]
	if !ok {
		return nil
	}
	copied := *conv
	return &copied
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}
