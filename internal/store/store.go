package store

import (
	"context"
	"errors"

	"github.com/kevingma/slack-clone-v6/internal/model/chat"
)

var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict is returned when a uniqueness constraint would be violated.
	ErrConflict = errors.New("store: conflict")
)

// DataStore defines persistent storage for users, workspaces, channels,
// messages, reactions and attachments.
// MemoryStore, SQLiteStore and PostgresStore implement this interface.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// User operations
	CreateUser(ctx context.Context, email, displayName string, isBot bool) (chat.User, error)
	GetUser(ctx context.Context, id int64) (chat.User, error)
	ListUsers(ctx context.Context, ids []int64) (map[int64]chat.User, error)
	FindUserByEmail(ctx context.Context, email string) (chat.User, error)
	FindUsersByDisplayName(ctx context.Context, displayName string) ([]chat.User, error)
	UpdateDisplayName(ctx context.Context, id int64, displayName string) (chat.User, error)
	SetPersona(ctx context.Context, userID int64, descriptor string) error
	ListUserMessages(ctx context.Context, userID int64) ([]chat.Message, error)

	// Workspace operations
	CreateWorkspace(ctx context.Context, name string, ownerID int64) (chat.Workspace, error)
	GetWorkspace(ctx context.Context, id int64) (chat.Workspace, error)
	ListWorkspacesForUser(ctx context.Context, userID int64) ([]chat.Workspace, error)
	AddWorkspaceMember(ctx context.Context, workspaceID, userID int64, role chat.Role) error
	GetWorkspaceMember(ctx context.Context, workspaceID, userID int64) (chat.WorkspaceMember, error)

	// Channel operations
	CreateChannel(ctx context.Context, ch chat.Channel) (chat.Channel, error)
	// EnsureChannel creates ch unless a channel with the same workspace and
	// name exists, in which case the existing row is returned.
	EnsureChannel(ctx context.Context, ch chat.Channel) (chat.Channel, bool, error)
	GetChannel(ctx context.Context, id int64) (chat.Channel, error)
	ListWorkspaceChannels(ctx context.Context, workspaceID int64) ([]chat.Channel, error)
	DeleteChannel(ctx context.Context, id int64) error
	EnsureDMChannel(ctx context.Context, userA, userB int64) (chat.Channel, bool, error)
	ListDMChannels(ctx context.Context, userID int64) ([]chat.Channel, error)
	IsChannelParticipant(ctx context.Context, channelID, userID int64) (bool, error)

	// Message operations
	CreateMessage(ctx context.Context, channelID, userID int64, content string) (chat.Message, error)
	GetMessage(ctx context.Context, id int64) (chat.Message, error)
	ListChannelMessages(ctx context.Context, channelID, afterID int64) ([]chat.Message, error)
	SearchMessages(ctx context.Context, userID int64, query string, limit int) ([]chat.Message, error)

	// Reaction operations
	AddReaction(ctx context.Context, messageID, userID int64, emoji string) (chat.Reaction, bool, error)
	RemoveReaction(ctx context.Context, messageID, userID int64, emoji string) error
	ListReactions(ctx context.Context, messageIDs []int64) ([]chat.Reaction, error)

	// Attachment operations
	CreateAttachment(ctx context.Context, a chat.Attachment) (chat.Attachment, error)
	ListAttachments(ctx context.Context, messageIDs []int64) ([]chat.Attachment, error)
}
