package chat

import (
	"strconv"
	"time"
)

// GeneralChannelName is the default channel of every workspace. It cannot be deleted.
const GeneralChannelName = "general"

// Role of a workspace member.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
)

// Workspace groups channels and members.
type Workspace struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// WorkspaceMember links a user to a workspace.
type WorkspaceMember struct {
	WorkspaceID int64 `json:"workspaceId"`
	UserID      int64 `json:"userId"`
	Role        Role  `json:"role"`
}

// ChannelKind distinguishes the three mutually exclusive channel shapes.
type ChannelKind string

const (
	KindWorkspace ChannelKind = "workspace"
	KindDM        ChannelKind = "dm"
	KindThread    ChannelKind = "thread"
)

// Channel belongs to a workspace, or is a DM channel with two fixed
// participants, or is a thread channel owned by a single parent message.
type Channel struct {
	ID              int64     `json:"id"`
	WorkspaceID     *int64    `json:"workspaceId,omitempty"`
	Name            string    `json:"name"`
	IsDM            bool      `json:"isDm"`
	IsThread        bool      `json:"isThread"`
	ParentMessageID *int64    `json:"parentMessageId,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Kind returns the channel shape.
func (c Channel) Kind() ChannelKind {
	switch {
	case c.IsDM:
		return KindDM
	case c.IsThread:
		return KindThread
	default:
		return KindWorkspace
	}
}

// IsGeneral reports whether c is a workspace's protected #general channel.
func (c Channel) IsGeneral() bool {
	return c.Kind() == KindWorkspace && c.Name == GeneralChannelName
}

// ThreadChannelName derives the thread channel name from its parent message.
func ThreadChannelName(parentMessageID int64) string {
	return "thread-" + strconv.FormatInt(parentMessageID, 10)
}

// DMChannelName is the stable name of the DM channel between two users.
func DMChannelName(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return "dm-" + strconv.FormatInt(a, 10) + "-" + strconv.FormatInt(b, 10)
}
