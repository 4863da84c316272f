package domain

import (
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeFile  MessageType = "file"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeFile:
		return true
	}
	return false
}

type Message struct {
	ID               uuid.UUID   `json:"id"`
	ConversationID   uuid.UUID   `json:"conversation_id"`
	SenderID         uuid.UUID   `json:"sender_id"`
	Content          *string     `json:"content,omitempty"`
	MessageType      MessageType `json:"message_type"`
	ImageURL         *string     `json:"image_url,omitempty"`
	FileURL          *string     `json:"file_url,omitempty"`
	FileName         *string     `json:"file_name,omitempty"`
	FileSize         *int64      `json:"file_size,omitempty"`
	ReplyToMessageID *uuid.UUID  `json:"reply_to_message_id,omitempty"`
	ClientKey        *string     `json:"-"`
	IsDeleted        bool        `json:"is_deleted"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`

	// Joined fields
	Sender         *Profile        `json:"sender,omitempty"`
	ReplyToMessage *MessagePreview `json:"reply_to_message,omitempty"`
}

// MessagePreview is the shallow form of a referenced message, enough to
// render a quoted reply without recursing.
type MessagePreview struct {
	ID          uuid.UUID   `json:"id"`
	Content     *string     `json:"content,omitempty"`
	MessageType MessageType `json:"message_type"`
	SenderName  string      `json:"sender_name,omitempty"`
}
