package view

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/lynkr/lynkr/internal/domain"
	"github.com/lynkr/lynkr/internal/realtime"
	"github.com/lynkr/lynkr/internal/service"
)

// ErrSendInFlight rejects a second send while one is outstanding.
var ErrSendInFlight = errors.New("a send is already in progress")

// MessageThread maintains the live message sequence of one open
// conversation. One instance per conversation id: switching conversations
// means Close on the old thread and Open on a new one. The sender's own
// messages are not inserted optimistically; they arrive through the same
// subscription as everyone else's.
type MessageThread struct {
	messages MessageAPI
	convs    ConversationAPI
	broker   *realtime.Broker

	userID         uuid.UUID
	conversationID uuid.UUID

	mu      sync.Mutex
	items   []domain.Message
	loading bool
	sending bool
	sub     *realtime.Subscription

	onChange func()
	onError  func(error)
}

func NewMessageThread(messages MessageAPI, convs ConversationAPI, broker *realtime.Broker, userID, conversationID uuid.UUID) *MessageThread {
	return &MessageThread{
		messages:       messages,
		convs:          convs,
		broker:         broker,
		userID:         userID,
		conversationID: conversationID,
		onChange:       func() {},
		onError:        func(err error) { log.Printf("message thread: %v", err) },
	}
}

func (t *MessageThread) OnChange(fn func()) {
	t.onChange = fn
}

func (t *MessageThread) OnError(fn func(error)) {
	t.onError = fn
}

// Open subscribes, loads the newest page and marks the conversation read.
func (t *MessageThread) Open(ctx context.Context) {
	t.sub = t.broker.SubscribeMessages(t.conversationID, t.handleEvent)
	t.load(ctx)
	t.MarkRead(ctx)
}

func (t *MessageThread) load(ctx context.Context) {
	t.setLoading(true)
	defer t.setLoading(false)

	msgs, err := t.messages.List(ctx, t.userID, t.conversationID, 50, 0)
	if err != nil {
		t.onError(err)
		return
	}

	t.mu.Lock()
	t.items = msgs
	t.mu.Unlock()
	t.onChange()
}

// Send submits a message. The thread does not append it locally; the
// INSERT event from the subscription is the single rendering path.
func (t *MessageThread) Send(ctx context.Context, input service.SendMessageInput) (*domain.Message, error) {
	t.mu.Lock()
	if t.sending {
		t.mu.Unlock()
		return nil, ErrSendInFlight
	}
	t.sending = true
	t.mu.Unlock()
	t.onChange()

	defer func() {
		t.mu.Lock()
		t.sending = false
		t.mu.Unlock()
		t.onChange()
	}()

	input.ConversationID = t.conversationID
	msg, err := t.messages.Send(ctx, t.userID, input)
	if err != nil {
		t.onError(err)
		return nil, err
	}
	return msg, nil
}

// Delete tombstones a message and removes it from the local sequence
// immediately; the matching update event is a no-op by then.
func (t *MessageThread) Delete(ctx context.Context, messageID uuid.UUID) error {
	if err := t.messages.Delete(ctx, t.userID, messageID); err != nil {
		t.onError(err)
		return err
	}

	t.mu.Lock()
	t.removeLocked(messageID)
	t.mu.Unlock()
	t.onChange()
	return nil
}

// MarkRead is best-effort: read state is non-critical, failures are only
// logged.
func (t *MessageThread) MarkRead(ctx context.Context) {
	if err := t.convs.MarkRead(ctx, t.userID, t.conversationID); err != nil {
		log.Printf("message thread: mark read %s: %v", t.conversationID, err)
	}
}

func (t *MessageThread) Messages() []domain.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.Message, len(t.items))
	copy(out, t.items)
	return out
}

func (t *MessageThread) Loading() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loading
}

func (t *MessageThread) Sending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sending
}

// Close releases the subscription. Safe to call more than once.
func (t *MessageThread) Close() {
	if t.sub != nil {
		t.sub.Unsubscribe()
	}
}

func (t *MessageThread) handleEvent(ev realtime.MessageEvent) {
	if ev.Message == nil || ev.Message.ConversationID != t.conversationID {
		return
	}

	t.mu.Lock()
	switch ev.Type {
	case realtime.EventInsert:
		if ev.Message.IsDeleted || t.containsLocked(ev.Message.ID) {
			break
		}
		// Delivery follows insertion order; append to the end.
		t.items = append(t.items, *ev.Message)
	case realtime.EventUpdate:
		if ev.Message.IsDeleted {
			// Tombstones arrive as updates; drop them from the rendered
			// sequence.
			t.removeLocked(ev.Message.ID)
			break
		}
		for i := range t.items {
			if t.items[i].ID == ev.Message.ID {
				t.items[i] = *ev.Message
				break
			}
		}
	case realtime.EventDelete:
		t.removeLocked(ev.Message.ID)
	}
	t.mu.Unlock()
	t.onChange()
}

func (t *MessageThread) containsLocked(id uuid.UUID) bool {
	for i := range t.items {
		if t.items[i].ID == id {
			return true
		}
	}
	return false
}

func (t *MessageThread) removeLocked(id uuid.UUID) {
	for i := range t.items {
		if t.items[i].ID == id {
			t.items = append(t.items[:i], t.items[i+1:]...)
			return
		}
	}
}

func (t *MessageThread) setLoading(v bool) {
	t.mu.Lock()
	t.loading = v
	t.mu.Unlock()
	t.onChange()
}
