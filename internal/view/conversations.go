package view

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/lynkr/lynkr/internal/domain"
	"github.com/lynkr/lynkr/internal/realtime"
)

// ConversationList maintains the reactive conversation list for one user:
// initial load on Open, then a full re-fetch on every conversation-table
// change (coarse invalidation, no diffing). A failed refresh keeps the
// last good state and reports through the error sink.
type ConversationList struct {
	api    ConversationAPI
	broker *realtime.Broker
	userID uuid.UUID

	mu            sync.Mutex
	conversations []domain.ConversationSummary
	loading       bool
	sub           *realtime.Subscription

	onChange func()
	onError  func(error)
}

func NewConversationList(api ConversationAPI, broker *realtime.Broker, userID uuid.UUID) *ConversationList {
	return &ConversationList{
		api:      api,
		broker:   broker,
		userID:   userID,
		onChange: func() {},
		onError:  func(err error) { log.Printf("conversation list: %v", err) },
	}
}

// OnChange registers a callback fired after every state change. Set it
// before Open.
func (l *ConversationList) OnChange(fn func()) {
	l.onChange = fn
}

// OnError registers the error sink. Set it before Open.
func (l *ConversationList) OnError(fn func(error)) {
	l.onError = fn
}

func (l *ConversationList) Open(ctx context.Context) {
	l.sub = l.broker.SubscribeConversations(func(realtime.ConversationEvent) {
		// The event is only an invalidation signal; re-fetch the list.
		go l.Refresh(context.Background())
	})
	l.Refresh(ctx)
}

func (l *ConversationList) Refresh(ctx context.Context) {
	l.setLoading(true)
	defer l.setLoading(false)

	convs, err := l.api.List(ctx, l.userID)
	if err != nil {
		// Stale-while-revalidate: prior data stays visible.
		l.onError(err)
		return
	}

	l.mu.Lock()
	l.conversations = convs
	l.mu.Unlock()
	l.onChange()
}

// Create resolves or creates the conversation with another user and
// refreshes the list.
func (l *ConversationList) Create(ctx context.Context, otherUserID uuid.UUID) (uuid.UUID, error) {
	conv, err := l.api.GetOrCreate(ctx, l.userID, otherUserID)
	if err != nil {
		l.onError(err)
		return uuid.Nil, err
	}
	l.Refresh(ctx)
	return conv.ID, nil
}

func (l *ConversationList) Conversations() []domain.ConversationSummary {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.ConversationSummary, len(l.conversations))
	copy(out, l.conversations)
	return out
}

func (l *ConversationList) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loading
}

// Close releases the subscription. Safe to call more than once.
func (l *ConversationList) Close() {
	if l.sub != nil {
		l.sub.Unsubscribe()
	}
}

func (l *ConversationList) setLoading(v bool) {
	l.mu.Lock()
	l.loading = v
	l.mu.Unlock()
	l.onChange()
}
