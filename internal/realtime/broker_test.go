package realtime

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lynkr/lynkr/internal/domain"
)

func newMessage(conversationID uuid.UUID) *domain.Message {
	return &domain.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       uuid.New(),
		MessageType:    domain.MessageTypeText,
	}
}

func TestBroker_SubscribeMessages(t *testing.T) {
	t.Run("delivers only to the event's conversation", func(t *testing.T) {
		b := NewBroker()
		convA := uuid.New()
		convB := uuid.New()

		var gotA, gotB []MessageEvent
		b.SubscribeMessages(convA, func(ev MessageEvent) { gotA = append(gotA, ev) })
		b.SubscribeMessages(convB, func(ev MessageEvent) { gotB = append(gotB, ev) })

		msg := newMessage(convA)
		b.NotifyNewMessage(msg)

		require.Len(t, gotA, 1)
		assert.Equal(t, EventInsert, gotA[0].Type)
		assert.Equal(t, msg.ID, gotA[0].Message.ID)
		assert.Empty(t, gotB)
	})

	t.Run("every subscriber of a conversation is reached", func(t *testing.T) {
		b := NewBroker()
		conv := uuid.New()

		count := 0
		b.SubscribeMessages(conv, func(MessageEvent) { count++ })
		b.SubscribeMessages(conv, func(MessageEvent) { count++ })

		b.NotifyNewMessage(newMessage(conv))
		assert.Equal(t, 2, count)
	})

	t.Run("unsubscribe stops delivery and is idempotent", func(t *testing.T) {
		b := NewBroker()
		conv := uuid.New()

		count := 0
		sub := b.SubscribeMessages(conv, func(MessageEvent) { count++ })

		b.NotifyNewMessage(newMessage(conv))
		sub.Unsubscribe()
		sub.Unsubscribe()
		b.NotifyNewMessage(newMessage(conv))

		assert.Equal(t, 1, count)
	})

	t.Run("tap sees all conversations", func(t *testing.T) {
		b := NewBroker()

		var got []MessageEvent
		b.TapMessages(func(ev MessageEvent) { got = append(got, ev) })

		b.NotifyNewMessage(newMessage(uuid.New()))
		b.NotifyMessageUpdated(newMessage(uuid.New()))

		require.Len(t, got, 2)
		assert.Equal(t, EventInsert, got[0].Type)
		assert.Equal(t, EventUpdate, got[1].Type)
	})

	t.Run("nil message is dropped", func(t *testing.T) {
		b := NewBroker()
		called := false
		b.TapMessages(func(MessageEvent) { called = true })

		b.InjectMessage(MessageEvent{Type: EventInsert})
		assert.False(t, called)
	})
}

type mapHydrator map[uuid.UUID]*domain.Message

func (h mapHydrator) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	return h[id], nil
}

func TestBroker_Hydration(t *testing.T) {
	b := NewBroker()
	conv := uuid.New()

	raw := newMessage(conv)
	full := *raw
	full.Sender = &domain.Profile{ID: raw.SenderID, FullName: "Jane Doe"}
	b.SetHydrator(mapHydrator{raw.ID: &full})

	var got []MessageEvent
	b.SubscribeMessages(conv, func(ev MessageEvent) { got = append(got, ev) })

	// Local events are re-fetched so subscribers see the joined row.
	b.NotifyNewMessage(raw)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].Message.Sender)
	assert.Equal(t, "Jane Doe", got[0].Message.Sender.FullName)

	// Remote events arrive already hydrated and are passed through.
	injected := newMessage(conv)
	b.InjectMessage(MessageEvent{Type: EventInsert, Message: injected})
	require.Len(t, got, 2)
	assert.Equal(t, injected.ID, got[1].Message.ID)
}

type recordingPublisher struct {
	messages      []MessageEvent
	conversations []ConversationEvent
}

func (p *recordingPublisher) PublishMessage(ev MessageEvent) {
	p.messages = append(p.messages, ev)
}

func (p *recordingPublisher) PublishConversation(ev ConversationEvent) {
	p.conversations = append(p.conversations, ev)
}

func TestBroker_Publisher(t *testing.T) {
	b := NewBroker()
	pub := &recordingPublisher{}
	b.SetPublisher(pub)

	conv := &domain.Conversation{ID: uuid.New()}

	// Local events fan out to peers.
	b.NotifyNewMessage(newMessage(conv.ID))
	b.NotifyNewConversation(conv)
	assert.Len(t, pub.messages, 1)
	assert.Len(t, pub.conversations, 1)

	// Injected events never echo back out.
	b.InjectMessage(MessageEvent{Type: EventInsert, Message: newMessage(conv.ID)})
	b.InjectConversation(ConversationEvent{Type: EventUpdate, Conversation: conv})
	assert.Len(t, pub.messages, 1)
	assert.Len(t, pub.conversations, 1)
}

func TestBroker_SubscribeConversations(t *testing.T) {
	b := NewBroker()

	var got []ConversationEvent
	sub := b.SubscribeConversations(func(ev ConversationEvent) { got = append(got, ev) })

	conv := &domain.Conversation{ID: uuid.New()}
	b.NotifyNewConversation(conv)
	b.NotifyConversationUpdated(conv)

	require.Len(t, got, 2)
	assert.Equal(t, EventInsert, got[0].Type)
	assert.Equal(t, EventUpdate, got[1].Type)

	sub.Unsubscribe()
	b.NotifyConversationUpdated(conv)
	assert.Len(t, got, 2)
}

func TestRedisBridge_Handle(t *testing.T) {
	broker := NewBroker()
	bridge := NewRedisBridge(nil, broker)

	conv := uuid.New()
	var got []MessageEvent
	broker.SubscribeMessages(conv, func(ev MessageEvent) { got = append(got, ev) })

	remote, err := json.Marshal(envelope{
		Origin:  "peer-instance",
		Kind:    "message",
		Type:    EventInsert,
		Message: newMessage(conv),
	})
	require.NoError(t, err)

	bridge.handle(string(remote))
	require.Len(t, got, 1)

	// Payloads stamped with our own origin are echoes and must be skipped.
	own, err := json.Marshal(envelope{
		Origin:  bridge.origin,
		Kind:    "message",
		Type:    EventInsert,
		Message: newMessage(conv),
	})
	require.NoError(t, err)

	bridge.handle(string(own))
	assert.Len(t, got, 1)

	// Garbage payloads are logged and dropped.
	bridge.handle("{not json")
	assert.Len(t, got, 1)
}
