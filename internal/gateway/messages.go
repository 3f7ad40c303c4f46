package gateway

import (
	"errors"
	"net/http"
	"time"

	"github.com/commhub/chatserver/internal/chat"
	"github.com/commhub/chatserver/internal/types"
)

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientMessage is the inbound frame; exactly one action field is set.
type ClientMessage struct {
	BaseMessage
	JoinConversation    *JoinConversation    `json:"join_conversation,omitempty"`
	HubMessage          *HubMessageSend      `json:"hub_message,omitempty"`
	HubMessageUpdate    *MessageUpdate       `json:"hub_message_update,omitempty"`
	HubMessageDelete    *MessageDelete       `json:"hub_message_delete,omitempty"`
	DirectMessage       *DirectMessageSend   `json:"direct_message,omitempty"`
	DirectMessageUpdate *MessageUpdate       `json:"direct_message_update,omitempty"`
	DirectMessageDelete *MessageDelete       `json:"direct_message_delete,omitempty"`
	NotificationRead    *NotificationRead    `json:"notification_read,omitempty"`

	client *Client
}

type JoinConversation struct {
	UserId string `json:"user_id"`
}

type HubMessageSend struct {
	Content string `json:"content"`
}

type DirectMessageSend struct {
	ReceiverId string `json:"receiver_id"`
	Content    string `json:"content"`
}

type MessageUpdate struct {
	MessageId string `json:"message_id"`
	Content   string `json:"content"`
}

type MessageDelete struct {
	MessageId string `json:"message_id"`
}

type NotificationRead struct {
	NotificationId string `json:"notification_id"`
}

// ServerMessage is the outbound frame: either a response to a client
// request or a pushed event.
type ServerMessage struct {
	BaseMessage
	Response *Response    `json:"response,omitempty"`
	Event    *types.Event `json:"event,omitempty"`
}

type Response struct {
	ResponseCode int            `json:"response_code"`
	Error        string         `json:"error,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
}

func NoErrOK(id int, data map[string]any) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: chat.Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusOK,
			Data:         data,
		},
	}
}

func NoErrAccepted(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: chat.Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusAccepted,
		},
	}
}

func errResponse(id, code int, msg string) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: chat.Now(),
		},
		Response: &Response{
			ResponseCode: code,
			Error:        msg,
		},
	}
}

func ErrInvalidMessage(id int) *ServerMessage {
	return errResponse(id, http.StatusBadRequest, "invalid message format")
}

func ErrInternalError(id int) *ServerMessage {
	return errResponse(id, http.StatusInternalServerError, "internal server error")
}

func ErrServiceUnavailable(id int) *ServerMessage {
	return errResponse(id, http.StatusServiceUnavailable, "service unavailable")
}

// errFromService maps the chat error taxonomy onto coded socket
// responses so the socket path rejects exactly what the HTTP path
// rejects.
func errFromService(id int, err error) *ServerMessage {
	switch {
	case errors.Is(err, chat.ErrNotFound):
		return errResponse(id, http.StatusNotFound, "not found")
	case errors.Is(err, chat.ErrForbidden):
		return errResponse(id, http.StatusForbidden, "forbidden")
	case errors.Is(err, chat.ErrValidation):
		return errResponse(id, http.StatusBadRequest, "validation failed")
	case errors.Is(err, chat.ErrNoAdminAvailable):
		return ErrServiceUnavailable(id)
	default:
		return ErrInternalError(id)
	}
}
