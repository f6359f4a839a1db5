package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeJoinRoom    = "join_room"
	InboundTypeSendMessage = "send_message"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventOnlineUsers    = "get_online_users"
	EventReceiveMessage = "receive_message"
	EventNewChatStarted = "new_chat_started"
)

// JoinRoomData registers the connection's user as online. UserID must match
// the identity authenticated at the handshake.
type JoinRoomData struct {
	UserID string `json:"user_id"`
}

// SendMessageData is a direct message submitted by the client. Either Text
// or MediaURL/MediaType must be present.
type SendMessageData struct {
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name"`
	ReceiverID string `json:"receiver_id"`
	Text       string `json:"text,omitempty"`
	MediaURL   string `json:"media_url,omitempty"`
	MediaType  string `json:"media_type,omitempty"`
	Time       string `json:"time,omitempty"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *Error          `json:"error,omitempty"`
}

// MessagePayload is the live-delivery shape of a message; field names match
// the REST history representation so clients fold both the same way.
type MessagePayload struct {
	ID         int64  `json:"id,omitempty"`
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name,omitempty"`
	ReceiverID string `json:"receiver_id"`
	Text       string `json:"text,omitempty"`
	MediaURL   string `json:"media_url,omitempty"`
	MediaType  string `json:"media_type,omitempty"`
	Time       string `json:"time,omitempty"`
	SentAt     int64  `json:"sent_at"`
}

// ChatStartedPayload hints the recipient to upsert a chat-list entry. ID is
// the counterparty's user id.
type ChatStartedPayload struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	LastMsg         string `json:"last_msg"`
	Online          bool   `json:"online"`
	LastMessageTime int64  `json:"last_message_time"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// NewEvent wraps a payload into an event envelope.
func NewEvent(event string, payload any) (Outbound, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Outbound{}, err
	}
	return Outbound{Type: OutboundTypeEvent, Event: event, Data: data}, nil
}

// NewError wraps a code and message into an error envelope.
func NewError(code, msg string) Outbound {
	return Outbound{Type: OutboundTypeError, Error: &Error{Code: code, Msg: msg}}
}
