package realtime

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lynkr/lynkr/internal/domain"
)

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

type MessageEvent struct {
	Type    EventType       `json:"type"`
	Message *domain.Message `json:"message"`
}

type ConversationEvent struct {
	Type         EventType            `json:"type"`
	Conversation *domain.Conversation `json:"conversation"`
}

type MessageHandler func(MessageEvent)

type ConversationHandler func(ConversationEvent)

// MessageHydrator re-fetches a message by id so delivered events carry the
// fully joined row (sender profile, reply preview) rather than the raw
// insert payload.
type MessageHydrator interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
}

// Publisher forwards locally produced events to peer instances.
type Publisher interface {
	PublishMessage(ev MessageEvent)
	PublishConversation(ev ConversationEvent)
}

// Subscription is a scoped handle on a broker registration. Unsubscribe is
// idempotent and must be called on teardown, on every exit path.
type Subscription struct {
	once   sync.Once
	cancel func()
}

func (s *Subscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

// Broker is the live update channel: per-conversation message topics plus
// one coarse conversation topic. Delivery is synchronous in publish order,
// at-least-once; no ordering is promised across distinct conversations.
type Broker struct {
	mu        sync.RWMutex
	nextID    uint64
	msgSubs   map[uuid.UUID]map[uint64]MessageHandler
	msgTaps   map[uint64]MessageHandler
	convSubs  map[uint64]ConversationHandler
	hydrator  MessageHydrator
	publisher Publisher
}

func NewBroker() *Broker {
	return &Broker{
		msgSubs:  make(map[uuid.UUID]map[uint64]MessageHandler),
		msgTaps:  make(map[uint64]MessageHandler),
		convSubs: make(map[uint64]ConversationHandler),
	}
}

// SetHydrator sets the re-fetch source for message events (optional
// dependency).
func (b *Broker) SetHydrator(h MessageHydrator) {
	b.hydrator = h
}

// SetPublisher sets the cross-instance fan-out (optional dependency).
func (b *Broker) SetPublisher(p Publisher) {
	b.publisher = p
}

// SubscribeMessages delivers every message event scoped to one
// conversation.
func (b *Broker) SubscribeMessages(conversationID uuid.UUID, handler MessageHandler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	if b.msgSubs[conversationID] == nil {
		b.msgSubs[conversationID] = make(map[uint64]MessageHandler)
	}
	b.msgSubs[conversationID][id] = handler

	return &Subscription{cancel: func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.msgSubs[conversationID], id)
		if len(b.msgSubs[conversationID]) == 0 {
			delete(b.msgSubs, conversationID)
		}
	}}
}

// TapMessages delivers message events for all conversations. Used by the
// WebSocket hub, which filters per client.
func (b *Broker) TapMessages(handler MessageHandler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.msgTaps[id] = handler

	return &Subscription{cancel: func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.msgTaps, id)
	}}
}

// SubscribeConversations delivers every conversation-table change,
// unfiltered. Consumers treat it as an invalidation signal and re-fetch.
func (b *Broker) SubscribeConversations(handler ConversationHandler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.convSubs[id] = handler

	return &Subscription{cancel: func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.convSubs, id)
	}}
}

// --- service.Notifier ---

func (b *Broker) NotifyNewMessage(msg *domain.Message) {
	b.publishMessage(MessageEvent{Type: EventInsert, Message: msg}, true)
}

func (b *Broker) NotifyMessageUpdated(msg *domain.Message) {
	b.publishMessage(MessageEvent{Type: EventUpdate, Message: msg}, true)
}

func (b *Broker) NotifyNewConversation(conv *domain.Conversation) {
	b.publishConversation(ConversationEvent{Type: EventInsert, Conversation: conv}, true)
}

func (b *Broker) NotifyConversationUpdated(conv *domain.Conversation) {
	b.publishConversation(ConversationEvent{Type: EventUpdate, Conversation: conv}, true)
}

// InjectMessage dispatches an event produced on a peer instance. It is
// never re-published.
func (b *Broker) InjectMessage(ev MessageEvent) {
	b.publishMessage(ev, false)
}

func (b *Broker) InjectConversation(ev ConversationEvent) {
	b.publishConversation(ev, false)
}

func (b *Broker) publishMessage(ev MessageEvent, local bool) {
	if ev.Message == nil {
		return
	}

	if local && b.hydrator != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		full, err := b.hydrator.GetByID(ctx, ev.Message.ID)
		cancel()
		if err != nil {
			log.Printf("broker: hydrating message %s: %v", ev.Message.ID, err)
		} else if full != nil {
			ev.Message = full
		}
	}

	b.mu.RLock()
	handlers := make([]MessageHandler, 0, len(b.msgSubs[ev.Message.ConversationID])+len(b.msgTaps))
	for _, h := range b.msgSubs[ev.Message.ConversationID] {
		handlers = append(handlers, h)
	}
	for _, h := range b.msgTaps {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}

	if local && b.publisher != nil {
		b.publisher.PublishMessage(ev)
	}
}

func (b *Broker) publishConversation(ev ConversationEvent, local bool) {
	if ev.Conversation == nil {
		return
	}

	b.mu.RLock()
	handlers := make([]ConversationHandler, 0, len(b.convSubs))
	for _, h := range b.convSubs {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}

	if local && b.publisher != nil {
		b.publisher.PublishConversation(ev)
	}
}
