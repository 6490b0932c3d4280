// ABOUTME: Wire-level event names and payload types for the chat WebSocket protocol
// ABOUTME: Events travel as JSON envelopes {"event": name, "data": payload}

package chat

import (
	"encoding/json"
	"fmt"

	"github.com/atendeai/chat-gateway/internal/store"
)

// Client -> server events
const (
	EventJoinConversation  = "join_conversation"
	EventLeaveConversation = "leave_conversation"
	EventSendMessage       = "send_message"
	EventTypingStart       = "typing_start"
	EventTypingStop        = "typing_stop"
)

// Server -> client events
const (
	EventJoinedConversation = "joined_conversation"
	EventLeftConversation   = "left_conversation"
	EventNewMessage         = "new_message"
	EventUserTyping         = "user_typing"
	EventNewConversation    = "new_conversation"
	EventAdminMessage       = "admin_message"
	EventError              = "error"
)

// Client-facing error messages, in the product's client locale
const (
	errMsgAccessDenied  = "Acesso negado à conversa"
	errMsgSendFailed    = "Erro ao enviar mensagem"
	errMsgJoinFailed    = "Erro ao juntar conversa"
	errMsgEventFailed   = "Erro ao processar evento"
	errMsgUnknownEvent  = "Evento desconhecido"
	errMsgBadPayload    = "Dados do evento inválidos"
)

// Envelope is the wire framing for every event in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ConversationRef is the payload of join/leave/typing requests and of
// joined/left/new-conversation notifications.
type ConversationRef struct {
	ConversationID int64 `json:"conversationId"`
}

// SendMessagePayload is the payload of a send_message request.
type SendMessagePayload struct {
	ConversationID int64  `json:"conversationId"`
	Content        string `json:"content"`
}

// MessagePayload is the payload of new_message and admin_message events.
type MessagePayload struct {
	Message        *store.Message `json:"message"`
	ConversationID int64          `json:"conversationId"`
}

// UserTypingPayload is the payload of user_typing events.
type UserTypingPayload struct {
	UserID         int64 `json:"userId"`
	ConversationID int64 `json:"conversationId"`
	IsTyping       bool  `json:"isTyping"`
}

// ErrorPayload is the payload of error events.
type ErrorPayload struct {
	Message string `json:"message"`
}

// RoomID derives the broadcast room key for a conversation.
func RoomID(conversationID int64) string {
	return fmt.Sprintf("conversation_%d", conversationID)
}

// encodeEvent marshals an event envelope ready for the wire.
func encodeEvent(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s payload: %w", event, err)
	}
	return json.Marshal(&Envelope{Event: event, Data: raw})
}
