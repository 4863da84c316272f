package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lynkr/lynkr/internal/domain"
	"github.com/lynkr/lynkr/internal/repository"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotParticipant       = errors.New("you are not a participant of this conversation")
	ErrSelfConversation     = errors.New("cannot start a conversation with yourself")
	ErrUserNotFound         = errors.New("user not found")
)

type ConversationService struct {
	convRepo    repository.ConversationRepository
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	notifier    Notifier
	now         func() time.Time
}

func NewConversationService(
	convRepo repository.ConversationRepository,
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
) *ConversationService {
	return &ConversationService{
		convRepo:    convRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		now:         time.Now,
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *ConversationService) SetNotifier(n Notifier) {
	s.notifier = n
}

// GetOrCreate finds or creates the single conversation between two users.
// Repeated and concurrent calls for the same pair return the same row.
func (s *ConversationService) GetOrCreate(ctx context.Context, userID, otherUserID uuid.UUID) (*domain.Conversation, error) {
	if userID == otherUserID {
		return nil, ErrSelfConversation
	}

	other, err := s.userRepo.GetByID(ctx, otherUserID)
	if err != nil {
		return nil, err
	}
	if other == nil {
		return nil, ErrUserNotFound
	}

	pairKey := domain.PairKey(userID, otherUserID)

	conv, err := s.convRepo.GetByPairKey(ctx, pairKey)
	if err != nil {
		return nil, err
	}
	if conv != nil {
		return conv, nil
	}

	now := s.now().UTC()
	conv, err = s.convRepo.CreatePair(ctx, &domain.Conversation{
		ID:            uuid.New(),
		PairKey:       pairKey,
		CreatedAt:     now,
		UpdatedAt:     now,
		LastMessageAt: now,
	}, userID, otherUserID)
	if err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyNewConversation(conv)
	}

	return conv, nil
}

// List returns every conversation the user participates in, most recent
// activity first, enriched with the other participant's profile, a last
// message preview and the unread count.
func (s *ConversationService) List(ctx context.Context, userID uuid.UUID) ([]domain.ConversationSummary, error) {
	convs, err := s.convRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if len(convs) == 0 {
		return []domain.ConversationSummary{}, nil
	}

	// Bulk-fetch the counterpart profiles first.
	otherIDs := make([]uuid.UUID, 0, len(convs))
	for i := range convs {
		if id, ok := convs[i].OtherParticipantID(userID); ok {
			otherIDs = append(otherIDs, id)
		}
	}
	profileByID := make(map[uuid.UUID]domain.Profile)
	profiles, err := s.userRepo.GetProfiles(ctx, otherIDs)
	if err != nil {
		// Partial hydration: the listing survives profile lookup failures.
		log.Printf("conversations: bulk profile lookup failed: %v", err)
	}
	for _, p := range profiles {
		profileByID[p.ID] = p
	}

	summaries := make([]domain.ConversationSummary, 0, len(convs))
	for i := range convs {
		conv := convs[i]
		summary := domain.ConversationSummary{Conversation: conv}

		otherID, hasOther := conv.OtherParticipantID(userID)
		if hasOther {
			summary.OtherParticipant = s.resolveProfile(ctx, conv.ID, userID, otherID, profileByID)
		}

		last, err := s.messageRepo.GetLastMessage(ctx, conv.ID)
		if err != nil {
			return nil, fmt.Errorf("loading last message for %s: %w", conv.ID, err)
		}
		summary.LastMessage = last

		unread, err := s.messageRepo.CountUnread(ctx, conv.ID, userID)
		if err != nil {
			log.Printf("conversations: unread count for %s: %v", conv.ID, err)
		}
		summary.UnreadCount = unread

		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// resolveProfile resolves the counterpart's profile through a fallback
// chain: the bulk map, then the sender info on their most recent message
// (visible even when the profile row itself is not), then one direct
// re-query. It degrades to an id-only stub rather than failing.
func (s *ConversationService) resolveProfile(ctx context.Context, conversationID uuid.UUID, userID, otherID uuid.UUID, profileByID map[uuid.UUID]domain.Profile) *domain.Profile {
	if p, ok := profileByID[otherID]; ok {
		return &p
	}

	if p, err := s.messageRepo.GetLastSenderProfile(ctx, conversationID, userID); err == nil && p != nil {
		return p
	} else if err != nil {
		log.Printf("conversations: sender profile fallback for %s: %v", conversationID, err)
	}

	if profiles, err := s.userRepo.GetProfiles(ctx, []uuid.UUID{otherID}); err == nil && len(profiles) == 1 {
		return &profiles[0]
	}

	return &domain.Profile{ID: otherID}
}

// MarkRead advances the caller's read watermark for the conversation to
// now. Best-effort callers log failures instead of surfacing them.
func (s *ConversationService) MarkRead(ctx context.Context, userID, conversationID uuid.UUID) error {
	return s.convRepo.MarkRead(ctx, conversationID, userID, s.now().UTC())
}
