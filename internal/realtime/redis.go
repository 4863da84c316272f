package realtime

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"github.com/lynkr/lynkr/internal/domain"
	"github.com/redis/go-redis/v9"
)

const eventsChannel = "lynkr:events"

// RedisBridge fans broker events out across server instances over Redis
// Pub/Sub. Remote payloads are re-injected into the local broker; events
// tagged with this instance's origin id are skipped to avoid echo loops.
type RedisBridge struct {
	rdb    *redis.Client
	broker *Broker
	origin string
}

type envelope struct {
	Origin       string               `json:"origin"`
	Kind         string               `json:"kind"` // "message" | "conversation"
	Type         EventType            `json:"type"`
	Message      *domain.Message      `json:"message,omitempty"`
	Conversation *domain.Conversation `json:"conversation,omitempty"`
}

func NewRedisBridge(rdb *redis.Client, broker *Broker) *RedisBridge {
	return &RedisBridge{
		rdb:    rdb,
		broker: broker,
		origin: uuid.NewString(),
	}
}

// Run blocks consuming the events channel until ctx is cancelled. Call it
// in a goroutine.
func (b *RedisBridge) Run(ctx context.Context) {
	pubsub := b.rdb.Subscribe(ctx, eventsChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.handle(msg.Payload)
		}
	}
}

func (b *RedisBridge) handle(payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		log.Printf("redis bridge: unmarshal: %v", err)
		return
	}
	if env.Origin == b.origin {
		return
	}

	switch env.Kind {
	case "message":
		if env.Message != nil {
			b.broker.InjectMessage(MessageEvent{Type: env.Type, Message: env.Message})
		}
	case "conversation":
		if env.Conversation != nil {
			b.broker.InjectConversation(ConversationEvent{Type: env.Type, Conversation: env.Conversation})
		}
	}
}

// --- Publisher ---

func (b *RedisBridge) PublishMessage(ev MessageEvent) {
	b.publish(envelope{Origin: b.origin, Kind: "message", Type: ev.Type, Message: ev.Message})
}

func (b *RedisBridge) PublishConversation(ev ConversationEvent) {
	b.publish(envelope{Origin: b.origin, Kind: "conversation", Type: ev.Type, Conversation: ev.Conversation})
}

func (b *RedisBridge) publish(env envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("redis bridge: marshal: %v", err)
		return
	}
	if err := b.rdb.Publish(context.Background(), eventsChannel, data).Err(); err != nil {
		log.Printf("redis bridge: publish: %v", err)
	}
}
