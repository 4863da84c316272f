package view

import (
	"context"

	"github.com/google/uuid"
	"github.com/lynkr/lynkr/internal/domain"
	"github.com/lynkr/lynkr/internal/service"
)

// ConversationAPI is the slice of the conversation service the view
// models consume. Satisfied by *service.ConversationService.
type ConversationAPI interface {
	GetOrCreate(ctx context.Context, userID, otherUserID uuid.UUID) (*domain.Conversation, error)
	List(ctx context.Context, userID uuid.UUID) ([]domain.ConversationSummary, error)
	MarkRead(ctx context.Context, userID, conversationID uuid.UUID) error
}

// MessageAPI is the slice of the message service the view models consume.
// Satisfied by *service.MessageService.
type MessageAPI interface {
	List(ctx context.Context, userID, conversationID uuid.UUID, limit, offset int) ([]domain.Message, error)
	Send(ctx context.Context, userID uuid.UUID, input service.SendMessageInput) (*domain.Message, error)
	Delete(ctx context.Context, userID, messageID uuid.UUID) error
}
