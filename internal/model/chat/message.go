package chat

import "time"

// Message is one entry in a channel's append-only log. Ids grow monotonically
// so that id order is display order.
type Message struct {
	ID        int64     `json:"id"`
	ChannelID int64     `json:"channelId"`
	UserID    int64     `json:"userId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Reaction is unique per (UserID, MessageID, Emoji).
type Reaction struct {
	ID        int64     `json:"id"`
	MessageID int64     `json:"messageId"`
	UserID    int64     `json:"userId"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"createdAt"`
}

// Attachment references an uploaded object. MessageID is nil while the
// upload has not been associated with a message yet.
type Attachment struct {
	ID        int64     `json:"id"`
	MessageID *int64    `json:"messageId,omitempty"`
	UserID    int64     `json:"userId"`
	Filename  string    `json:"filename"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
}
