package http

import (
	"encoding/json"
	"time"

	"github.com/pairchat/pairchat/internal/core"
	"github.com/pairchat/pairchat/internal/proto"
)

func inboundToCommand(client *core.Client, inbound proto.Inbound) (*core.Command, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeJoinRoom:
		var join proto.JoinRoomData
		if err := json.Unmarshal(inbound.Data, &join); err != nil {
			return nil, nil, err
		}
		// Identity mismatches are dropped silently by the hub; only a
		// structurally empty join is answered.
		if join.UserID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "user_id is required"}, nil
		}
		return &core.Command{
			Kind:   core.CommandJoin,
			UserID: join.UserID,
		}, nil, nil

	case proto.InboundTypeSendMessage:
		var msg proto.SendMessageData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return nil, nil, err
		}
		if msg.SenderID != client.UserID {
			return nil, &proto.Error{Code: core.ErrCodeUnauthorized, Msg: "sender_id does not match connection identity"}, nil
		}
		if msg.ReceiverID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "receiver_id is required"}, nil
		}
		if msg.Text == "" && msg.MediaURL == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "message needs text or media"}, nil
		}
		senderName := msg.SenderName
		if senderName == "" {
			senderName = client.Name
		}
		return &core.Command{
			Kind: core.CommandSendMessage,
			Message: core.Message{
				SenderID:    msg.SenderID,
				SenderName:  senderName,
				ReceiverID:  msg.ReceiverID,
				Text:        msg.Text,
				MediaURL:    msg.MediaURL,
				MediaType:   msg.MediaType,
				DisplayTime: msg.Time,
				SentAt:      time.Now(),
			},
		}, nil, nil

	default:
		return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "unknown message type"}, nil
	}
}

func outboundFromEvent(event *core.Event) (proto.Outbound, error) {
	switch event.Kind {
	case core.EventOnlineUsers:
		return proto.NewEvent(proto.EventOnlineUsers, event.OnlineUsers)

	case core.EventMessageReceived:
		msg := event.Message
		return proto.NewEvent(proto.EventReceiveMessage, proto.MessagePayload{
			ID:         msg.ID,
			SenderID:   msg.SenderID,
			SenderName: msg.SenderName,
			ReceiverID: msg.ReceiverID,
			Text:       msg.Text,
			MediaURL:   msg.MediaURL,
			MediaType:  msg.MediaType,
			Time:       msg.DisplayTime,
			SentAt:     msg.SentAt.UnixMilli(),
		})

	case core.EventNewChat:
		chat := event.Chat
		return proto.NewEvent(proto.EventNewChatStarted, proto.ChatStartedPayload{
			ID:              chat.ID,
			Name:            chat.Name,
			LastMsg:         chat.LastMsg,
			Online:          chat.Online,
			LastMessageTime: chat.LastMessageTime.UnixMilli(),
		})

	case core.EventError:
		if event.Error == nil {
			return proto.NewError("unknown", "unknown error"), nil
		}
		return proto.NewError(event.Error.Code, event.Error.Message), nil

	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}, nil
	}
}
