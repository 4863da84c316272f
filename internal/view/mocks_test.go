package view

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/lynkr/lynkr/internal/domain"
	"github.com/lynkr/lynkr/internal/service"
)

// fakeConversationAPI serves a mutable summary list and counts fetches.
type fakeConversationAPI struct {
	mu        sync.Mutex
	summaries []domain.ConversationSummary
	listErr   error
	listCalls int
	markReads []uuid.UUID
}

func (f *fakeConversationAPI) GetOrCreate(ctx context.Context, userID, otherUserID uuid.UUID) (*domain.Conversation, error) {
	conv := &domain.Conversation{ID: uuid.New(), PairKey: domain.PairKey(userID, otherUserID)}
	f.mu.Lock()
	f.summaries = append(f.summaries, domain.ConversationSummary{Conversation: *conv})
	f.mu.Unlock()
	return conv, nil
}

func (f *fakeConversationAPI) List(ctx context.Context, userID uuid.UUID) ([]domain.ConversationSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.ConversationSummary, len(f.summaries))
	copy(out, f.summaries)
	return out, nil
}

func (f *fakeConversationAPI) MarkRead(ctx context.Context, userID, conversationID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markReads = append(f.markReads, conversationID)
	return nil
}

func (f *fakeConversationAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func (f *fakeConversationAPI) setSummaries(s []domain.ConversationSummary) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaries = s
}

func (f *fakeConversationAPI) setListErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
}

// fakeMessageAPI serves a fixed page and lets tests block Send.
type fakeMessageAPI struct {
	mu       sync.Mutex
	page     []domain.Message
	sendGate chan struct{} // when set, Send blocks until the gate closes
	sent     []service.SendMessageInput
	deleted  []uuid.UUID
}

func (f *fakeMessageAPI) List(ctx context.Context, userID, conversationID uuid.UUID, limit, offset int) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Message, len(f.page))
	copy(out, f.page)
	return out, nil
}

func (f *fakeMessageAPI) Send(ctx context.Context, userID uuid.UUID, input service.SendMessageInput) (*domain.Message, error) {
	f.mu.Lock()
	gate := f.sendGate
	f.sent = append(f.sent, input)
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return &domain.Message{ID: uuid.New(), ConversationID: input.ConversationID, SenderID: userID}, nil
}

func (f *fakeMessageAPI) Delete(ctx context.Context, userID, messageID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}
