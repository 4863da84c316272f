package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	AvatarURL    *string   `json:"avatar_url,omitempty"`
	Headline     *string   `json:"headline,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Profile is the public snapshot of a user attached to conversations
// and messages.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name,omitempty"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	Headline  *string   `json:"headline,omitempty"`
}

func (u *User) Profile() *Profile {
	return &Profile{
		ID:        u.ID,
		FullName:  u.DisplayName,
		AvatarURL: u.AvatarURL,
		Headline:  u.Headline,
	}
}
