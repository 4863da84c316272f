package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lynkr/lynkr/internal/domain"
)

// ErrDuplicateClientKey is returned by MessageRepository.Create when the
// message carries a client key that was already accepted. Callers treat it
// as "already sent" and look the existing row up by key.
var ErrDuplicateClientKey = errors.New("duplicate client key")

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetProfiles(ctx context.Context, ids []uuid.UUID) ([]domain.Profile, error)
}

type ConversationRepository interface {
	// CreatePair inserts the conversation and both participant rows.
	// Idempotent under the pair key: a concurrent or repeated create
	// converges on the first committed row, which is returned.
	CreatePair(ctx context.Context, conv *domain.Conversation, userA, userB uuid.UUID) (*domain.Conversation, error)
	GetByPairKey(ctx context.Context, pairKey string) (*domain.Conversation, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error)
	// MarkRead advances the user's read watermark. It never moves it
	// backwards.
	MarkRead(ctx context.Context, conversationID, userID uuid.UUID, readAt time.Time) error
}

type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	GetByClientKey(ctx context.Context, conversationID uuid.UUID, clientKey string) (*domain.Message, error)
	ListByConversation(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]domain.Message, error)
	GetLastMessage(ctx context.Context, conversationID uuid.UUID) (*domain.Message, error)
	// GetLastSenderProfile returns the sender profile of the most recent
	// non-deleted message in the conversation not authored by excludeSender.
	GetLastSenderProfile(ctx context.Context, conversationID, excludeSender uuid.UUID) (*domain.Profile, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	CountUnread(ctx context.Context, conversationID, userID uuid.UUID) (int, error)
}
