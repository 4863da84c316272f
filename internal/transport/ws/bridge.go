package ws

import (
	"log"

	"github.com/lynkr/lynkr/internal/realtime"
)

// AttachBroker forwards broker events to connected WebSocket clients:
// message events to the conversation's subscribers, conversation events to
// everyone as an invalidation signal. The returned release function
// detaches both taps.
func AttachBroker(h *Hub, b *realtime.Broker) func() {
	msgSub := b.TapMessages(func(ev realtime.MessageEvent) {
		eventType := EventTypeMessageNew
		if ev.Type != realtime.EventInsert {
			eventType = EventTypeMessageUpdated
		}

		evt, err := NewEvent(eventType, &ev.Message.ConversationID, MessagePayload{Message: *ev.Message})
		if err != nil {
			log.Printf("ws bridge: marshal error: %v", err)
			return
		}
		h.BroadcastToConversation(ev.Message.ConversationID, evt)
	})

	convSub := b.SubscribeConversations(func(ev realtime.ConversationEvent) {
		eventType := EventTypeConversationUpdated
		if ev.Type == realtime.EventInsert {
			eventType = EventTypeConversationNew
		}

		evt, err := NewEvent(eventType, &ev.Conversation.ID, ConversationChangedPayload{
			ID:            ev.Conversation.ID,
			LastMessageAt: ev.Conversation.LastMessageAt,
		})
		if err != nil {
			log.Printf("ws bridge: marshal error: %v", err)
			return
		}
		h.BroadcastToAll(evt)
	})

	return func() {
		msgSub.Unsubscribe()
		convSub.Unsubscribe()
	}
}
