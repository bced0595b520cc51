package chat

import "time"

// User is a chat participant. Persona is nil until it has been derived from
// the user's message history.
type User struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"displayName"`
	Persona     *string   `json:"persona,omitempty"`
	IsBot       bool      `json:"isBot,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// HasPersona reports whether a persona has already been cached for the user.
func (u User) HasPersona() bool {
	return u.Persona != nil && *u.Persona != ""
}
