package core

import "time"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventOnlineUsers carries the complete current list of online user ids.
	// Broadcast to every connection after each presence change.
	EventOnlineUsers EventKind = iota
	// EventMessageReceived delivers a live message to the recipient.
	EventMessageReceived
	// EventNewChat hints the recipient to upsert a chat-list entry without a
	// full re-fetch.
	EventNewChat
	// EventError notifies the sender about a domain error.
	EventError
)

// ChatSummary is the lightweight chat-list upsert hint relayed alongside a
// message. ID is the counterparty's user id.
type ChatSummary struct {
	ID              string
	Name            string
	LastMsg         string
	Online          bool
	LastMessageTime time.Time
}

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind        EventKind
	OnlineUsers []string
	Message     Message
	Chat        ChatSummary
	Error       *CoreError
}
