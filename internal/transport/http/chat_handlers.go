package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pairchat/pairchat/internal/core"
	"github.com/pairchat/pairchat/internal/proto"
	"github.com/pairchat/pairchat/internal/store"
)

// ChatHandlers serves persisted conversation summaries and message history.
type ChatHandlers struct {
	store    store.Store
	presence *core.Presence
	log      *zerolog.Logger
}

// NewChatHandlers creates a new chat handlers instance.
func NewChatHandlers(st store.Store, presence *core.Presence, logger *zerolog.Logger) *ChatHandlers {
	return &ChatHandlers{
		store:    st,
		presence: presence,
		log:      logger,
	}
}

// ConversationResponse is one chat-list entry: the conversation seen from
// the requesting user's side, keyed by the counterparty.
type ConversationResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	LastMsg         string `json:"last_msg"`
	LastMessageTime int64  `json:"last_message_time"`
	Online          bool   `json:"online"`
}

// ListConversations returns the persisted conversation summaries for a user,
// with the online flag taken live from the presence registry.
// GET /api/conversations/:userId
func (h *ChatHandlers) ListConversations(c *gin.Context) {
	userID := c.Param("userId")

	conversations, err := h.store.ListConversations(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("failed to list conversations")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]ConversationResponse, 0, len(conversations))
	for _, conv := range conversations {
		otherID := conv.Counterparty(userID)

		name := "Unknown User"
		if other, err := h.store.GetUserByID(c.Request.Context(), otherID); err == nil {
			name = other.Name
		}

		response = append(response, ConversationResponse{
			ID:              otherID,
			Name:            name,
			LastMsg:         conv.LastMessage,
			LastMessageTime: conv.LastMessageAt.UnixMilli(),
			Online:          h.presence.IsOnline(otherID),
		})
	}

	c.JSON(http.StatusOK, response)
}

// History returns the full ordered message history between two users.
// GET /api/conversation-history/:userA/:userB
func (h *ChatHandlers) History(c *gin.Context) {
	userA := c.Param("userA")
	userB := c.Param("userB")

	messages, err := h.store.ListMessagesBetween(c.Request.Context(), userA, userB)
	if err != nil {
		h.log.Error().Err(err).Str("user_a", userA).Str("user_b", userB).Msg("failed to fetch history")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]proto.MessagePayload, 0, len(messages))
	for _, msg := range messages {
		response = append(response, storedMessagePayload(msg))
	}

	c.JSON(http.StatusOK, response)
}

// storedMessagePayload maps a persisted message onto the shared wire shape,
// so history items and live receive_message events fold identically.
func storedMessagePayload(msg *store.Message) proto.MessagePayload {
	return proto.MessagePayload{
		ID:         msg.ID,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		Text:       msg.Body,
		MediaURL:   msg.MediaURL,
		MediaType:  msg.MediaType,
		Time:       msg.DisplayTime,
		SentAt:     msg.SentAt.UnixMilli(),
	}
}
