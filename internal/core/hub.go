package core

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/pairchat/pairchat/internal/store"
)

// Hub coordinates all live connections. Presence mutations and their
// follow-up broadcasts run on a single goroutine (Run), so every join or
// disconnect is atomic with the broadcast that announces it. Message sends
// execute on the connection's own pump goroutine so storage writes never
// stall the presence loop; per-sender ordering is preserved because each
// pump handles its commands sequentially.
type Hub struct {
	pipeline *Pipeline
	presence *Presence
	clients  map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	joins      chan join

	log *zerolog.Logger
}

type join struct {
	client *Client
	userID string
}

// NewHub creates a hub over the given store.
func NewHub(st store.Store, logger *zerolog.Logger) *Hub {
	presence := NewPresence()
	return &Hub{
		pipeline:   NewPipeline(st, presence, logger),
		presence:   presence,
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		joins:      make(chan join),
		log:        logger,
	}
}

// Presence exposes the registry for read-only queries (REST online flags).
func (h *Hub) Presence() *Presence {
	return h.presence
}

// RegisterClient attaches an authenticated connection to the hub.
func (h *Hub) RegisterClient(c *Client) {
	h.register <- c
}

// UnregisterClient detaches a connection, removing its presence entry and
// re-broadcasting the online list if the entry existed.
func (h *Hub) UnregisterClient(c *Client) {
	h.unregister <- c
}

// Run processes registrations, joins, and disconnects until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			go h.pump(ctx, c)

		case c := <-h.unregister:
			delete(h.clients, c)
			if userID, removed := h.presence.Leave(c.ConnID); removed {
				h.log.Debug().Str("user_id", userID).Str("conn_id", c.ConnID).Msg("presence left")
				h.broadcastOnline()
			}

		case j := <-h.joins:
			// A join racing a disconnect for the same connection must not
			// resurrect the presence entry.
			if _, ok := h.clients[j.client]; !ok {
				continue
			}
			h.presence.Join(j.userID, j.client)
			h.log.Debug().Str("user_id", j.userID).Str("conn_id", j.client.ConnID).Msg("presence joined")
			h.broadcastOnline()
		}
	}
}

// pump consumes one connection's commands. Joins are forwarded to the hub
// loop; sends run here so they cannot block presence handling.
func (h *Hub) pump(ctx context.Context, c *Client) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-c.Commands:
			if !ok {
				return
			}
			switch cmd.Kind {
			case CommandJoin:
				// Anti-spoofing: a connection may only mark itself online.
				// Mismatches are dropped without any response.
				if cmd.UserID == "" || cmd.UserID != c.UserID {
					h.log.Debug().Str("claimed", cmd.UserID).Str("authenticated", c.UserID).Msg("join identity mismatch ignored")
					continue
				}
				select {
				case h.joins <- join{client: c, userID: cmd.UserID}:
				case <-ctx.Done():
					return
				}
			case CommandSendMessage:
				h.pipeline.Send(ctx, c, cmd.Message)
			}
		}
	}
}

// broadcastOnline sends the complete current online-id list to every
// connected client, joined or not.
func (h *Hub) broadcastOnline() {
	ids := h.presence.Online()
	for c := range h.clients {
		c.trySend(&Event{Kind: EventOnlineUsers, OnlineUsers: ids})
	}
}
