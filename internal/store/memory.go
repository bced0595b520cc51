package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kevingma/slack-clone-v6/internal/model/chat"
)

type reactionKey struct {
	userID    int64
	messageID int64
	emoji     string
}

type memberKey struct {
	workspaceID int64
	userID      int64
}

type channelKey struct {
	workspaceID int64
	name        string
}

// MemoryStore keeps everything in process memory. It is used for local
// development and tests.
type MemoryStore struct {
	mu sync.RWMutex

	seq map[string]int64

	users        map[int64]chat.User
	workspaces   map[int64]chat.Workspace
	members      map[memberKey]chat.WorkspaceMember
	channels     map[int64]chat.Channel
	channelNames map[channelKey]int64
	dmNames      map[string]int64
	participants map[int64][]int64
	messages     []chat.Message
	reactions    map[reactionKey]chat.Reaction
	attachments  []chat.Attachment
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		seq:          make(map[string]int64),
		users:        make(map[int64]chat.User),
		workspaces:   make(map[int64]chat.Workspace),
		members:      make(map[memberKey]chat.WorkspaceMember),
		channels:     make(map[int64]chat.Channel),
		channelNames: make(map[channelKey]int64),
		dmNames:      make(map[string]int64),
		participants: make(map[int64][]int64),
		messages:     make([]chat.Message, 0, 64),
		reactions:    make(map[reactionKey]chat.Reaction),
	}
}

// next must be called with mu held.
func (s *MemoryStore) next(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

// Close is a no-op.
func (s *MemoryStore) Close() {}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// CreateUser creates a new user.
func (s *MemoryStore) CreateUser(_ context.Context, email, displayName string, isBot bool) (chat.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := chat.User{
		ID:          s.next("users"),
		Email:       email,
		DisplayName: displayName,
		IsBot:       isBot,
		CreatedAt:   time.Now().UTC(),
	}
	s.users[user.ID] = user
	return user, nil
}

// GetUser retrieves a user by ID.
func (s *MemoryStore) GetUser(_ context.Context, id int64) (chat.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return chat.User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return copyUser(user), nil
}

// ListUsers returns the users with the given ids, keyed by id. Unknown ids are skipped.
func (s *MemoryStore) ListUsers(_ context.Context, ids []int64) (map[int64]chat.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]chat.User, len(ids))
	for _, id := range ids {
		if user, ok := s.users[id]; ok {
			out[id] = copyUser(user)
		}
	}
	return out, nil
}

// FindUserByEmail retrieves a user by email, ignoring case.
func (s *MemoryStore) FindUserByEmail(_ context.Context, email string) (chat.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		match chat.User
		found bool
	)
	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) && (!found || user.ID < match.ID) {
			match, found = user, true
		}
	}
	if !found {
		return chat.User{}, fmt.Errorf("user %q: %w", email, ErrNotFound)
	}
	return copyUser(match), nil
}

// FindUsersByDisplayName returns every user whose display name matches exactly.
func (s *MemoryStore) FindUsersByDisplayName(_ context.Context, displayName string) ([]chat.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []chat.User
	for _, user := range s.users {
		if user.DisplayName == displayName {
			out = append(out, copyUser(user))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpdateDisplayName changes a user's display name.
func (s *MemoryStore) UpdateDisplayName(_ context.Context, id int64, displayName string) (chat.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return chat.User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	user.DisplayName = displayName
	s.users[id] = user
	return copyUser(user), nil
}

// SetPersona stores the persona descriptor on the user record.
func (s *MemoryStore) SetPersona(_ context.Context, userID int64, descriptor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	user.Persona = &descriptor
	s.users[userID] = user
	return nil
}

// ListUserMessages returns all messages authored by the user, oldest first.
func (s *MemoryStore) ListUserMessages(_ context.Context, userID int64) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []chat.Message
	for _, msg := range s.messages {
		if msg.UserID == userID {
			out = append(out, msg)
		}
	}
	return out, nil
}

// CreateWorkspace creates a workspace and makes ownerID its owner.
func (s *MemoryStore) CreateWorkspace(_ context.Context, name string, ownerID int64) (chat.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[ownerID]; !ok {
		return chat.Workspace{}, fmt.Errorf("user %d: %w", ownerID, ErrNotFound)
	}

	ws := chat.Workspace{
		ID:        s.next("workspaces"),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	s.workspaces[ws.ID] = ws
	s.members[memberKey{ws.ID, ownerID}] = chat.WorkspaceMember{WorkspaceID: ws.ID, UserID: ownerID, Role: chat.RoleOwner}
	return ws, nil
}

// GetWorkspace retrieves a workspace by ID.
func (s *MemoryStore) GetWorkspace(_ context.Context, id int64) (chat.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ws, ok := s.workspaces[id]
	if !ok {
		return chat.Workspace{}, fmt.Errorf("workspace %d: %w", id, ErrNotFound)
	}
	return ws, nil
}

// ListWorkspacesForUser returns the workspaces the user is a member of.
func (s *MemoryStore) ListWorkspacesForUser(_ context.Context, userID int64) ([]chat.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []chat.Workspace
	for key := range s.members {
		if key.userID == userID {
			out = append(out, s.workspaces[key.workspaceID])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// AddWorkspaceMember adds a member. Existing memberships are left untouched.
func (s *MemoryStore) AddWorkspaceMember(_ context.Context, workspaceID, userID int64, role chat.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.workspaces[workspaceID]; !ok {
		return fmt.Errorf("workspace %d: %w", workspaceID, ErrNotFound)
	}
	if _, ok := s.users[userID]; !ok {
		return fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	key := memberKey{workspaceID, userID}
	if _, ok := s.members[key]; ok {
		return nil
	}
	s.members[key] = chat.WorkspaceMember{WorkspaceID: workspaceID, UserID: userID, Role: role}
	return nil
}

// GetWorkspaceMember returns the membership row for the user in the workspace.
func (s *MemoryStore) GetWorkspaceMember(_ context.Context, workspaceID, userID int64) (chat.WorkspaceMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.members[memberKey{workspaceID, userID}]
	if !ok {
		return chat.WorkspaceMember{}, fmt.Errorf("member %d/%d: %w", workspaceID, userID, ErrNotFound)
	}
	return m, nil
}

// CreateChannel creates a workspace or thread channel.
func (s *MemoryStore) CreateChannel(_ context.Context, ch chat.Channel) (chat.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lookupChannelLocked(ch); ok {
		return chat.Channel{}, fmt.Errorf("channel %q: %w", ch.Name, ErrConflict)
	}
	return s.insertChannelLocked(ch), nil
}

// EnsureChannel returns the channel with the same workspace and name, creating it if absent.
func (s *MemoryStore) EnsureChannel(_ context.Context, ch chat.Channel) (chat.Channel, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.lookupChannelLocked(ch); ok {
		return existing, false, nil
	}
	return s.insertChannelLocked(ch), true, nil
}

func (s *MemoryStore) lookupChannelLocked(ch chat.Channel) (chat.Channel, bool) {
	if ch.WorkspaceID == nil {
		return chat.Channel{}, false
	}
	id, ok := s.channelNames[channelKey{*ch.WorkspaceID, ch.Name}]
	if !ok {
		return chat.Channel{}, false
	}
	return copyChannel(s.channels[id]), true
}

func (s *MemoryStore) insertChannelLocked(ch chat.Channel) chat.Channel {
	ch.ID = s.next("channels")
	ch.CreatedAt = time.Now().UTC()
	s.channels[ch.ID] = ch
	if ch.WorkspaceID != nil {
		s.channelNames[channelKey{*ch.WorkspaceID, ch.Name}] = ch.ID
	}
	return copyChannel(ch)
}

// GetChannel retrieves a channel by ID.
func (s *MemoryStore) GetChannel(_ context.Context, id int64) (chat.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch, ok := s.channels[id]
	if !ok {
		return chat.Channel{}, fmt.Errorf("channel %d: %w", id, ErrNotFound)
	}
	return copyChannel(ch), nil
}

// ListWorkspaceChannels returns the workspace's regular (non-thread) channels.
func (s *MemoryStore) ListWorkspaceChannels(_ context.Context, workspaceID int64) ([]chat.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []chat.Channel
	for _, ch := range s.channels {
		if ch.WorkspaceID != nil && *ch.WorkspaceID == workspaceID && !ch.IsThread {
			out = append(out, copyChannel(ch))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteChannel removes a channel together with its messages, reactions,
// attachments and any thread channels opened on its messages.
func (s *MemoryStore) DeleteChannel(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.channels[id]; !ok {
		return fmt.Errorf("channel %d: %w", id, ErrNotFound)
	}
	s.deleteChannelLocked(id)
	return nil
}

func (s *MemoryStore) deleteChannelLocked(id int64) {
	ch := s.channels[id]
	delete(s.channels, id)
	if ch.WorkspaceID != nil {
		delete(s.channelNames, channelKey{*ch.WorkspaceID, ch.Name})
	}
	if ch.IsDM {
		delete(s.dmNames, ch.Name)
	}
	delete(s.participants, id)

	removed := make(map[int64]bool)
	kept := s.messages[:0]
	for _, msg := range s.messages {
		if msg.ChannelID == id {
			removed[msg.ID] = true
			continue
		}
		kept = append(kept, msg)
	}
	s.messages = kept

	for key := range s.reactions {
		if removed[key.messageID] {
			delete(s.reactions, key)
		}
	}
	keptAtt := s.attachments[:0]
	for _, a := range s.attachments {
		if a.MessageID != nil && removed[*a.MessageID] {
			continue
		}
		keptAtt = append(keptAtt, a)
	}
	s.attachments = keptAtt

	for threadID, thread := range s.channels {
		if thread.ParentMessageID != nil && removed[*thread.ParentMessageID] {
			s.deleteChannelLocked(threadID)
		}
	}
}

// EnsureDMChannel returns the DM channel between two users, creating it if absent.
func (s *MemoryStore) EnsureDMChannel(_ context.Context, userA, userB int64) (chat.Channel, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range []int64{userA, userB} {
		if _, ok := s.users[id]; !ok {
			return chat.Channel{}, false, fmt.Errorf("user %d: %w", id, ErrNotFound)
		}
	}

	name := chat.DMChannelName(userA, userB)
	if id, ok := s.dmNames[name]; ok {
		return copyChannel(s.channels[id]), false, nil
	}

	ch := s.insertChannelLocked(chat.Channel{Name: name, IsDM: true})
	s.dmNames[name] = ch.ID
	s.participants[ch.ID] = []int64{userA, userB}
	return ch, true, nil
}

// ListDMChannels returns DM channels the user participates in.
func (s *MemoryStore) ListDMChannels(_ context.Context, userID int64) ([]chat.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []chat.Channel
	for channelID, users := range s.participants {
		for _, id := range users {
			if id == userID {
				out = append(out, copyChannel(s.channels[channelID]))
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// IsChannelParticipant reports whether the user is a fixed participant of the channel.
func (s *MemoryStore) IsChannelParticipant(_ context.Context, channelID, userID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.participants[channelID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

// CreateMessage appends a message to the channel log.
func (s *MemoryStore) CreateMessage(_ context.Context, channelID, userID int64, content string) (chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.channels[channelID]; !ok {
		return chat.Message{}, fmt.Errorf("channel %d: %w", channelID, ErrNotFound)
	}

	msg := chat.Message{
		ID:        s.next("messages"),
		ChannelID: channelID,
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	s.messages = append(s.messages, msg)
	return msg, nil
}

// GetMessage retrieves a message by ID.
func (s *MemoryStore) GetMessage(_ context.Context, id int64) (chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := sort.Search(len(s.messages), func(i int) bool { return s.messages[i].ID >= id })
	if idx < len(s.messages) && s.messages[idx].ID == id {
		return s.messages[idx], nil
	}
	return chat.Message{}, fmt.Errorf("message %d: %w", id, ErrNotFound)
}

// ListChannelMessages returns the channel's messages with id > afterID in id order.
func (s *MemoryStore) ListChannelMessages(_ context.Context, channelID, afterID int64) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]chat.Message, 0, 16)
	for _, msg := range s.messages {
		if msg.ChannelID == channelID && msg.ID > afterID {
			out = append(out, msg)
		}
	}
	return out, nil
}

// SearchMessages performs a case-insensitive substring match over messages in
// channels the user can access, newest first.
func (s *MemoryStore) SearchMessages(_ context.Context, userID int64, query string, limit int) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(query)
	access := make(map[int64]bool)
	out := make([]chat.Message, 0, limit)
	for i := len(s.messages) - 1; i >= 0 && len(out) < limit; i-- {
		msg := s.messages[i]
		allowed, seen := access[msg.ChannelID]
		if !seen {
			allowed = s.canAccessLocked(msg.ChannelID, userID)
			access[msg.ChannelID] = allowed
		}
		if allowed && strings.Contains(strings.ToLower(msg.Content), needle) {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (s *MemoryStore) canAccessLocked(channelID, userID int64) bool {
	ch, ok := s.channels[channelID]
	if !ok {
		return false
	}
	if ch.IsDM {
		for _, id := range s.participants[channelID] {
			if id == userID {
				return true
			}
		}
		return false
	}
	if ch.WorkspaceID == nil {
		return false
	}
	_, ok = s.members[memberKey{*ch.WorkspaceID, userID}]
	return ok
}

// AddReaction upserts a reaction. The bool result is false when it already existed.
func (s *MemoryStore) AddReaction(_ context.Context, messageID, userID int64, emoji string) (chat.Reaction, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := reactionKey{userID: userID, messageID: messageID, emoji: emoji}
	if existing, ok := s.reactions[key]; ok {
		return existing, false, nil
	}

	r := chat.Reaction{
		ID:        s.next("reactions"),
		MessageID: messageID,
		UserID:    userID,
		Emoji:     emoji,
		CreatedAt: time.Now().UTC(),
	}
	s.reactions[key] = r
	return r, true, nil
}

// RemoveReaction deletes the exact matching reaction.
func (s *MemoryStore) RemoveReaction(_ context.Context, messageID, userID int64, emoji string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := reactionKey{userID: userID, messageID: messageID, emoji: emoji}
	if _, ok := s.reactions[key]; !ok {
		return fmt.Errorf("reaction %q on message %d: %w", emoji, messageID, ErrNotFound)
	}
	delete(s.reactions, key)
	return nil
}

// ListReactions returns reactions on the given messages ordered by id.
func (s *MemoryStore) ListReactions(_ context.Context, messageIDs []int64) ([]chat.Reaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := idSet(messageIDs)
	var out []chat.Reaction
	for _, r := range s.reactions {
		if wanted[r.MessageID] {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateAttachment records an uploaded attachment.
func (s *MemoryStore) CreateAttachment(_ context.Context, a chat.Attachment) (chat.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a.ID = s.next("attachments")
	a.CreatedAt = time.Now().UTC()
	s.attachments = append(s.attachments, a)
	return a, nil
}

// ListAttachments returns attachments of the given messages ordered by id.
func (s *MemoryStore) ListAttachments(_ context.Context, messageIDs []int64) ([]chat.Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := idSet(messageIDs)
	var out []chat.Attachment
	for _, a := range s.attachments {
		if a.MessageID != nil && wanted[*a.MessageID] {
			out = append(out, a)
		}
	}
	return out, nil
}

func idSet(ids []int64) map[int64]bool {
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func copyUser(u chat.User) chat.User {
	if u.Persona != nil {
		p := *u.Persona
		u.Persona = &p
	}
	return u
}

func copyChannel(c chat.Channel) chat.Channel {
	if c.WorkspaceID != nil {
		id := *c.WorkspaceID
		c.WorkspaceID = &id
	}
	if c.ParentMessageID != nil {
		id := *c.ParentMessageID
		c.ParentMessageID = &id
	}
	return c
}
