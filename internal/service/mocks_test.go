package service

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lynkr/lynkr/internal/domain"
)

// Hand-rolled repository fakes: each method delegates to an optional
// func field and returns zero values when the field is unset.

type mockUserRepo struct {
	create      func(ctx context.Context, user *domain.User) error
	getByID     func(ctx context.Context, id uuid.UUID) (*domain.User, error)
	getProfiles func(ctx context.Context, ids []uuid.UUID) ([]domain.Profile, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) error {
	if m.create == nil {
		return nil
	}
	return m.create(ctx, user)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if m.getByID == nil {
		return nil, nil
	}
	return m.getByID(ctx, id)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return nil, nil
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return nil, nil
}

func (m *mockUserRepo) GetProfiles(ctx context.Context, ids []uuid.UUID) ([]domain.Profile, error) {
	if m.getProfiles == nil {
		return nil, nil
	}
	return m.getProfiles(ctx, ids)
}

type mockConvRepo struct {
	createPair   func(ctx context.Context, conv *domain.Conversation, userA, userB uuid.UUID) (*domain.Conversation, error)
	getByPairKey func(ctx context.Context, pairKey string) (*domain.Conversation, error)
	getByID      func(ctx context.Context, id uuid.UUID) (*domain.Conversation, error)
	listByUser   func(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error)
	markRead     func(ctx context.Context, conversationID, userID uuid.UUID, readAt time.Time) error
}

func (m *mockConvRepo) CreatePair(ctx context.Context, conv *domain.Conversation, userA, userB uuid.UUID) (*domain.Conversation, error) {
	if m.createPair == nil {
		return conv, nil
	}
	return m.createPair(ctx, conv, userA, userB)
}

func (m *mockConvRepo) GetByPairKey(ctx context.Context, pairKey string) (*domain.Conversation, error) {
	if m.getByPairKey == nil {
		return nil, nil
	}
	return m.getByPairKey(ctx, pairKey)
}

func (m *mockConvRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	if m.getByID == nil {
		return nil, nil
	}
	return m.getByID(ctx, id)
}

func (m *mockConvRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	if m.listByUser == nil {
		return nil, nil
	}
	return m.listByUser(ctx, userID)
}

func (m *mockConvRepo) MarkRead(ctx context.Context, conversationID, userID uuid.UUID, readAt time.Time) error {
	if m.markRead == nil {
		return nil
	}
	return m.markRead(ctx, conversationID, userID, readAt)
}

type mockMessageRepo struct {
	create               func(ctx context.Context, msg *domain.Message) error
	getByID              func(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	getByClientKey       func(ctx context.Context, conversationID uuid.UUID, clientKey string) (*domain.Message, error)
	listByConversation   func(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]domain.Message, error)
	getLastMessage       func(ctx context.Context, conversationID uuid.UUID) (*domain.Message, error)
	getLastSenderProfile func(ctx context.Context, conversationID, excludeSender uuid.UUID) (*domain.Profile, error)
	softDelete           func(ctx context.Context, id uuid.UUID) error
	countUnread          func(ctx context.Context, conversationID, userID uuid.UUID) (int, error)
}

func (m *mockMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	if m.create == nil {
		return nil
	}
	return m.create(ctx, msg)
}

func (m *mockMessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	if m.getByID == nil {
		return nil, nil
	}
	return m.getByID(ctx, id)
}

func (m *mockMessageRepo) GetByClientKey(ctx context.Context, conversationID uuid.UUID, clientKey string) (*domain.Message, error) {
	if m.getByClientKey == nil {
		return nil, nil
	}
	return m.getByClientKey(ctx, conversationID, clientKey)
}

func (m *mockMessageRepo) ListByConversation(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]domain.Message, error) {
	if m.listByConversation == nil {
		return nil, nil
	}
	return m.listByConversation(ctx, conversationID, limit, offset)
}

func (m *mockMessageRepo) GetLastMessage(ctx context.Context, conversationID uuid.UUID) (*domain.Message, error) {
	if m.getLastMessage == nil {
		return nil, nil
	}
	return m.getLastMessage(ctx, conversationID)
}

func (m *mockMessageRepo) GetLastSenderProfile(ctx context.Context, conversationID, excludeSender uuid.UUID) (*domain.Profile, error) {
	if m.getLastSenderProfile == nil {
		return nil, nil
	}
	return m.getLastSenderProfile(ctx, conversationID, excludeSender)
}

func (m *mockMessageRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	if m.softDelete == nil {
		return nil
	}
	return m.softDelete(ctx, id)
}

func (m *mockMessageRepo) CountUnread(ctx context.Context, conversationID, userID uuid.UUID) (int, error) {
	if m.countUnread == nil {
		return 0, nil
	}
	return m.countUnread(ctx, conversationID, userID)
}

// mockNotifier records every broadcast.
type mockNotifier struct {
	mu           sync.Mutex
	newMessages  []*domain.Message
	updates      []*domain.Message
	newConvs     []*domain.Conversation
	updatedConvs []*domain.Conversation
}

func (m *mockNotifier) NotifyNewMessage(msg *domain.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.newMessages = append(m.newMessages, msg)
}

func (m *mockNotifier) NotifyMessageUpdated(msg *domain.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, msg)
}

func (m *mockNotifier) NotifyNewConversation(conv *domain.Conversation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.newConvs = append(m.newConvs, conv)
}

func (m *mockNotifier) NotifyConversationUpdated(conv *domain.Conversation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updatedConvs = append(m.updatedConvs, conv)
}

// mockStore records upload paths; PublicURL is deterministic.
type mockStore struct {
	uploads   []string
	uploadErr error
}

func (m *mockStore) Upload(ctx context.Context, objectPath, contentType string, data io.Reader) error {
	m.uploads = append(m.uploads, objectPath)
	return m.uploadErr
}

func (m *mockStore) PublicURL(objectPath string) string {
	return "https://cdn.test/" + objectPath
}

// pairConversation builds a conversation between two users with both
// participant rows present.
func pairConversation(userA, userB uuid.UUID) *domain.Conversation {
	now := time.Now().UTC()
	return &domain.Conversation{
		ID:            uuid.New(),
		PairKey:       domain.PairKey(userA, userB),
		CreatedAt:     now,
		UpdatedAt:     now,
		LastMessageAt: now,
		Participants: []domain.ConversationParticipant{
			{UserID: userA, JoinedAt: now},
			{UserID: userB, JoinedAt: now},
		},
	}
}
