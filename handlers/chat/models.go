package chat

import (
	"encoding/json"
	"time"

	"linkinpurry/backend/apperr"
	"linkinpurry/backend/handlers/user"
)

// Inbound socket events
const (
	EventJoin           = "join"
	EventPrivateMessage = "private_message"
	EventGetChatHistory = "get_chat_history"
	EventTypingStart    = "typing_start"
	EventTypingStop     = "typing_stop"
)

// Outbound socket events
const (
	EventJoined            = "joined"
	EventReceiveMessage    = "receive_message"
	EventMessageSent       = "message_sent"
	EventChatHistory       = "chat_history"
	EventUserTyping        = "user_typing"
	EventUserStoppedTyping = "user_stopped_typing"
	EventUserOffline       = "user_offline"
	EventError             = "error"
)

// Message is a persisted direct message. Timestamp is assigned by the server.
type Message struct {
	ID        int64     `json:"id"`
	FromID    int64     `json:"from_id"`
	ToID      int64     `json:"to_id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is one entry of the caller's chat list.
type Conversation struct {
	User        user.Summary `json:"user"`
	LastMessage Message      `json:"last_message"`
}

// Frame is the envelope of every socket message in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type joinPayload struct {
	UserID int64 `json:"user_id"`
}

type privateMessagePayload struct {
	ToID    int64  `json:"to_id"`
	Message string `json:"message"`
}

type historyRequestPayload struct {
	ConversationID int64 `json:"conversation_id"`
}

type typingPayload struct {
	FromID int64 `json:"from_id,omitempty"`
	ToID   int64 `json:"to_id"`
}

// HistoryPayload is the data of a chat_history event.
type HistoryPayload struct {
	ConversationID int64     `json:"conversation_id"`
	Messages       []Message `json:"messages"`
}

// TypingPayload is the data of user_typing and user_stopped_typing.
type TypingPayload struct {
	FromID int64 `json:"from_id"`
	ToID   int64 `json:"to_id"`
}

// OfflinePayload is the data of user_offline.
type OfflinePayload struct {
	UserID int64 `json:"user_id"`
}

// ErrorPayload names the failure and echoes the payload that caused it.
type ErrorPayload struct {
	Reason  apperr.Code     `json:"reason"`
	Message string          `json:"message"`
	Event   string          `json:"event,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
