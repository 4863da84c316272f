package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Conversation struct {
	ID            uuid.UUID `json:"id"`
	PairKey       string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	LastMessageAt time.Time `json:"last_message_at"`

	Participants []ConversationParticipant `json:"participants,omitempty"`
}

type ConversationParticipant struct {
	ConversationID uuid.UUID  `json:"conversation_id"`
	UserID         uuid.UUID  `json:"user_id"`
	JoinedAt       time.Time  `json:"joined_at"`
	LastReadAt     *time.Time `json:"last_read_at,omitempty"`
}

// ConversationSummary is a conversation enriched for the list view: the
// other participant's profile snapshot, a preview of the most recent
// non-deleted message, and the caller's unread count.
type ConversationSummary struct {
	Conversation
	OtherParticipant *Profile `json:"other_participant"`
	LastMessage      *Message `json:"last_message,omitempty"`
	UnreadCount      int      `json:"unread_count"`
}

// OtherParticipantID returns the participant that is not the given user.
func (c *Conversation) OtherParticipantID(userID uuid.UUID) (uuid.UUID, bool) {
	for _, p := range c.Participants {
		if p.UserID != userID {
			return p.UserID, true
		}
	}
	return uuid.Nil, false
}

func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	for _, p := range c.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// PairKey returns the canonical identity of a dyadic conversation:
// both user ids sorted and joined, so (A,B) and (B,A) map to one key.
func PairKey(a, b uuid.UUID) string {
	u1, u2 := a.String(), b.String()
	if u1 > u2 {
		u1, u2 = u2, u1
	}
	return strings.Join([]string{u1, u2}, ":")
}
