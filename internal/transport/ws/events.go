package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lynkr/lynkr/internal/domain"
)

// Event types - Client → Server
const (
	EventTypeConversationSubscribe   = "conversation.subscribe"
	EventTypeConversationUnsubscribe = "conversation.unsubscribe"
	EventTypePing                    = "ping"
)

// Event types - Server → Client
const (
	EventTypeMessageNew          = "message.new"
	EventTypeMessageUpdated      = "message.updated"
	EventTypeConversationNew     = "conversation.new"
	EventTypeConversationUpdated = "conversation.updated"
	EventTypePresence            = "presence"
	EventTypePong                = "pong"
	EventTypeError               = "error"
)

// Event is the base envelope for all WebSocket messages.
type Event struct {
	Type           string          `json:"type"`
	ConversationID *uuid.UUID      `json:"conversation_id,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	Timestamp      int64           `json:"ts,omitempty"`
}

// --- Client → Server payloads ---

type ConversationPayload struct {
	ConversationID uuid.UUID `json:"conversation_id"`
}

// --- Server → Client payloads ---

type MessagePayload struct {
	domain.Message
}

type ConversationChangedPayload struct {
	ID            uuid.UUID `json:"id"`
	LastMessageAt time.Time `json:"last_message_at"`
}

type PresencePayload struct {
	UserID uuid.UUID `json:"user_id"`
	Status string    `json:"status"` // "online" | "offline"
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewEvent creates a server→client event with the current timestamp.
func NewEvent(eventType string, conversationID *uuid.UUID, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:           eventType,
		ConversationID: conversationID,
		Payload:        data,
		Timestamp:      time.Now().Unix(),
	}, nil
}
