package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/pairchat/pairchat/internal/proto"
)

// displayTimeLayout renders the wall-clock label shown next to a message.
const displayTimeLayout = "3:04 PM"

// Session drives a logged-in client: it verifies the identity, loads the
// persisted conversation list, keeps it reconciled against live events, and
// sends messages on behalf of the user.
type Session struct {
	api    *APIClient
	wsURL  string
	token  string
	userID string
	log    *zerolog.Logger

	// onUpdate, when set, is invoked after every state change so a UI can
	// repaint. It runs on the event-loop goroutine.
	onUpdate func()

	writeMu sync.Mutex
	conn    *websocket.Conn

	mu         sync.Mutex
	self       Profile
	chats      *ChatList
	active     string
	loadedWith string
	messages   []proto.MessagePayload
	// fetching marks a history load in flight; live messages from the opened
	// counterparty are parked in pending until the history installs, so a
	// message racing the fetch is never dropped.
	fetching bool
	pending  []proto.MessagePayload
	closed   chan struct{}
}

// NewSession builds a session for an authenticated user. apiBase is the REST
// root ("http://host:port"), wsURL the realtime endpoint ("ws://host:port/ws").
func NewSession(apiBase, wsURL, token, userID string, logger *zerolog.Logger) *Session {
	return &Session{
		api:    NewAPIClient(apiBase, token),
		wsURL:  wsURL,
		token:  token,
		userID: userID,
		log:    logger,
		chats:  NewChatList(),
		closed: make(chan struct{}),
	}
}

// OnUpdate registers a callback fired after each applied event. Must be set
// before Start.
func (s *Session) OnUpdate(fn func()) {
	s.onUpdate = fn
}

// Start verifies the identity, loads conversations, connects the realtime
// channel, and announces presence. It returns ErrUnauthorized when the token
// is rejected; callers should drop credentials and re-login.
func (s *Session) Start(ctx context.Context) error {
	profile, err := s.api.Verify(ctx, s.userID)
	if err != nil {
		return fmt.Errorf("verify session: %w", err)
	}

	summaries, err := s.api.Conversations(ctx, profile.ID)
	if err != nil {
		return fmt.Errorf("load conversations: %w", err)
	}

	s.mu.Lock()
	s.self = *profile
	// Everyone starts offline; the broadcast that follows join_room is the
	// presence authority.
	s.chats.Load(summaries)
	s.mu.Unlock()

	if err := s.connect(ctx); err != nil {
		return err
	}

	join := proto.JoinRoomData{UserID: profile.ID}
	if err := s.writeInbound(proto.InboundTypeJoinRoom, join); err != nil {
		s.conn.Close()
		return fmt.Errorf("announce presence: %w", err)
	}

	go s.readLoop()
	return nil
}

func (s *Session) connect(ctx context.Context) error {
	u, err := url.Parse(s.wsURL)
	if err != nil {
		return fmt.Errorf("parse ws url: %w", err)
	}
	q := u.Query()
	q.Set("token", s.token)
	u.RawQuery = q.Encode()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil && resp.StatusCode == 401 {
			return ErrUnauthorized
		}
		return fmt.Errorf("dial realtime endpoint: %w", err)
	}
	s.conn = conn
	return nil
}

// Open selects a conversation and loads its history. The history fetch is
// memoized: reopening the same counterparty reuses messages already folded in
// by live delivery instead of refetching.
func (s *Session) Open(ctx context.Context, counterpartyID string) error {
	s.mu.Lock()
	selfID := s.self.ID
	if s.loadedWith == counterpartyID {
		s.active = counterpartyID
		s.mu.Unlock()
		return nil
	}
	s.active = counterpartyID
	s.loadedWith = counterpartyID
	s.messages = nil
	s.fetching = true
	s.pending = nil
	s.mu.Unlock()

	history, err := s.api.History(ctx, selfID, counterpartyID)
	if err != nil {
		s.mu.Lock()
		s.fetching = false
		s.pending = nil
		s.loadedWith = ""
		s.mu.Unlock()
		return fmt.Errorf("load history: %w", err)
	}

	s.installHistory(counterpartyID, history)
	return nil
}

// installHistory replaces the open conversation with the fetched history and
// folds in live messages that arrived while the fetch was in flight,
// skipping ones the fetch already captured.
func (s *Session) installHistory(counterpartyID string, history []proto.MessagePayload) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fetching = false
	if s.loadedWith != counterpartyID {
		s.pending = nil
		return
	}

	s.messages = history
	for _, msg := range s.pending {
		if !hasMessageID(history, msg.ID) {
			s.messages = append(s.messages, msg)
		}
	}
	s.pending = nil
}

func hasMessageID(msgs []proto.MessagePayload, id int64) bool {
	if id == 0 {
		return false
	}
	for _, msg := range msgs {
		if msg.ID == id {
			return true
		}
	}
	return false
}

// StartChatWith looks up a user by phone, puts them at the top of the chat
// list, and opens the (possibly empty) conversation.
func (s *Session) StartChatWith(ctx context.Context, phone string) (*Profile, error) {
	profile, err := s.api.FindUser(ctx, phone)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.chats.UpsertContact(profile.ID, profile.Name)
	s.mu.Unlock()

	if err := s.Open(ctx, profile.ID); err != nil {
		return nil, err
	}
	return profile, nil
}

// SendText sends a text message to the active counterparty.
func (s *Session) SendText(text string) error {
	return s.send(text, "", "")
}

// SendMedia uploads nothing itself; callers upload via the API client first
// and pass the returned URL and mime type here.
func (s *Session) SendMedia(mediaURL, mediaType string) error {
	return s.send("", mediaURL, mediaType)
}

// send submits a message and applies it optimistically: the message appears
// in the open conversation and the chat list immediately, without waiting for
// a server acknowledgment.
func (s *Session) send(text, mediaURL, mediaType string) error {
	s.mu.Lock()
	receiverID := s.active
	self := s.self
	s.mu.Unlock()

	if receiverID == "" {
		return errors.New("no conversation selected")
	}
	if text == "" && mediaURL == "" {
		return errors.New("message needs text or media")
	}

	now := time.Now()
	payload := proto.SendMessageData{
		SenderID:   self.ID,
		SenderName: self.Name,
		ReceiverID: receiverID,
		Text:       text,
		MediaURL:   mediaURL,
		MediaType:  mediaType,
		Time:       now.Format(displayTimeLayout),
	}
	if err := s.writeInbound(proto.InboundTypeSendMessage, payload); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	preview := text
	if mediaURL != "" {
		preview = mediaPreview
	}

	s.mu.Lock()
	s.messages = append(s.messages, proto.MessagePayload{
		SenderID:   payload.SenderID,
		SenderName: payload.SenderName,
		ReceiverID: payload.ReceiverID,
		Text:       payload.Text,
		MediaURL:   payload.MediaURL,
		MediaType:  payload.MediaType,
		Time:       payload.Time,
		SentAt:     now.UnixMilli(),
	})
	receiverName := receiverID
	if entry, ok := s.chats.Get(receiverID); ok {
		receiverName = entry.Name
	}
	s.chats.ApplyOutgoing(receiverID, receiverName, preview, now)
	s.mu.Unlock()

	s.notify()
	return nil
}

// readLoop folds server events into the session state until the connection
// drops or Close is called.
func (s *Session) readLoop() {
	defer close(s.closed)
	for {
		var envelope proto.Outbound
		if err := s.conn.ReadJSON(&envelope); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			s.log.Debug().Err(err).Msg("realtime connection closed")
			return
		}
		s.handleEnvelope(envelope)
	}
}

func (s *Session) handleEnvelope(envelope proto.Outbound) {
	if envelope.Type == proto.OutboundTypeError {
		if envelope.Error != nil {
			s.log.Warn().Str("code", envelope.Error.Code).Str("msg", envelope.Error.Msg).Msg("server rejected message")
		}
		return
	}

	switch envelope.Event {
	case proto.EventOnlineUsers:
		var online []string
		if err := json.Unmarshal(envelope.Data, &online); err != nil {
			s.log.Warn().Err(err).Msg("bad online-users payload")
			return
		}
		s.mu.Lock()
		s.chats.ApplyPresence(online)
		s.mu.Unlock()

	case proto.EventReceiveMessage:
		var msg proto.MessagePayload
		if err := json.Unmarshal(envelope.Data, &msg); err != nil {
			s.log.Warn().Err(err).Msg("bad message payload")
			return
		}
		s.mu.Lock()
		if msg.ReceiverID != s.self.ID {
			s.mu.Unlock()
			return
		}
		if s.loadedWith == msg.SenderID {
			if s.fetching {
				s.pending = append(s.pending, msg)
			} else {
				s.messages = append(s.messages, msg)
			}
		}
		s.chats.ApplyMessage(msg)
		s.mu.Unlock()

	case proto.EventNewChatStarted:
		var hint proto.ChatStartedPayload
		if err := json.Unmarshal(envelope.Data, &hint); err != nil {
			s.log.Warn().Err(err).Msg("bad chat-started payload")
			return
		}
		s.mu.Lock()
		s.chats.ApplyChatStarted(hint)
		s.mu.Unlock()

	default:
		s.log.Debug().Str("event", envelope.Event).Msg("ignoring unknown event")
		return
	}

	s.notify()
}

func (s *Session) writeInbound(typ string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(proto.Inbound{Type: typ, Data: data})
}

func (s *Session) notify() {
	if s.onUpdate != nil {
		s.onUpdate()
	}
}

// Self returns the verified profile.
func (s *Session) Self() Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.self
}

// Chats returns a snapshot of the reconciled chat list.
func (s *Session) Chats() []ChatEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chats.Entries()
}

// Active returns the id of the open conversation, if any.
func (s *Session) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Messages returns a snapshot of the open conversation.
func (s *Session) Messages() []proto.MessagePayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]proto.MessagePayload, len(s.messages))
	copy(out, s.messages)
	return out
}

// API exposes the underlying REST client, e.g. for media uploads.
func (s *Session) API() *APIClient {
	return s.api
}

// Close shuts the realtime connection down and waits for the event loop to
// drain.
func (s *Session) Close() error {
	if s.conn == nil {
		return nil
	}
	s.writeMu.Lock()
	err := s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
		time.Now().Add(time.Second))
	s.writeMu.Unlock()
	if closeErr := s.conn.Close(); err == nil {
		err = closeErr
	}
	select {
	case <-s.closed:
	case <-time.After(2 * time.Second):
	}
	return err
}
