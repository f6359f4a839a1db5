package core

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/pairchat/pairchat/internal/store"
)

// Pipeline validates, persists, and relays direct messages.
//
// Persistence is unconditional: messages for offline recipients are stored
// and become visible on the next history fetch. Relay is best-effort and
// only happens for recipients with a live connection.
type Pipeline struct {
	store    store.Store
	presence *Presence
	log      *zerolog.Logger
}

// NewPipeline builds a messaging pipeline over the given store and registry.
func NewPipeline(st store.Store, presence *Presence, logger *zerolog.Logger) *Pipeline {
	return &Pipeline{store: st, presence: presence, log: logger}
}

// Send runs the full pipeline for a message submitted by sender and reports
// failures back to that sender only. Recipient-offline is not a failure.
func (p *Pipeline) Send(ctx context.Context, sender *Client, msg Message) {
	if err := p.Deliver(ctx, &msg); err != nil {
		code := ErrCodePersistence
		if err == ErrEmptyMessage {
			code = ErrCodeBadRequest
		}
		p.log.Warn().Err(err).Str("sender", msg.SenderID).Str("receiver", msg.ReceiverID).Msg("send failed")
		sender.trySend(&Event{Kind: EventError, Error: coreError(code, err.Error())})
	}
}

// Deliver persists the message, upserts its conversation, and relays it to
// the recipient's live connections if any. Both writes must succeed; either
// failure aborts the send. Sets msg.ID and msg.SentAt on success.
func (p *Pipeline) Deliver(ctx context.Context, msg *Message) error {
	if !msg.HasContent() {
		return ErrEmptyMessage
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now()
	}

	rec := &store.Message{
		SenderID:    msg.SenderID,
		ReceiverID:  msg.ReceiverID,
		Body:        msg.Text,
		MediaURL:    msg.MediaURL,
		MediaType:   msg.MediaType,
		DisplayTime: msg.DisplayTime,
		SentAt:      msg.SentAt,
	}
	if err := p.store.SaveMessage(ctx, rec); err != nil {
		return fmt.Errorf("persist message: %w", err)
	}
	msg.ID = rec.ID

	preview := rec.Preview()
	if err := p.store.UpsertConversation(ctx, msg.SenderID, msg.ReceiverID, preview, msg.SentAt); err != nil {
		return fmt.Errorf("upsert conversation: %w", err)
	}

	p.relay(msg, preview)
	return nil
}

// relay forwards the message and a chat-list hint to every live connection
// of the recipient. A disconnected recipient only learns of the message via
// history fetch on reconnect; no queuing happens here.
func (p *Pipeline) relay(msg *Message, preview string) {
	conns := p.presence.Connections(msg.ReceiverID)
	if len(conns) == 0 {
		return
	}

	hint := ChatSummary{
		ID:              msg.SenderID,
		Name:            msg.SenderName,
		LastMsg:         preview,
		Online:          true, // the sender just sent over a live connection
		LastMessageTime: msg.SentAt,
	}
	for _, c := range conns {
		c.trySend(&Event{Kind: EventMessageReceived, Message: *msg})
		c.trySend(&Event{Kind: EventNewChat, Chat: hint})
	}
}
