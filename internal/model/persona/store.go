package persona

import (
	"context"

	"github.com/kevingma/slack-clone-v6/internal/model/chat"
)

// Store exposes the user state the persona lifecycle reads and writes.
type Store interface {
	GetUser(ctx context.Context, id int64) (chat.User, error)
	SetPersona(ctx context.Context, userID int64, descriptor string) error
	// ListUserMessages returns every message authored by the user across all
	// channels, oldest first.
	ListUserMessages(ctx context.Context, userID int64) ([]chat.Message, error)
}
