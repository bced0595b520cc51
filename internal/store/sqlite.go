package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/kevingma/slack-clone-v6/internal/model/chat"
)

// SQLiteStore handles SQLite database operations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/chat.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/chat.db"
	}

	dsn := dbPath + "?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000"
	if dbPath == ":memory:" {
		dsn = "file::memory:?_foreign_keys=on"
	} else if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer; serialize through one connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL DEFAULT '',
		display_name TEXT NOT NULL,
		persona TEXT,
		is_bot INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS workspaces (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS workspace_members (
		workspace_id INTEGER NOT NULL REFERENCES workspaces(id) ON DELETE CASCADE,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		role TEXT NOT NULL DEFAULT 'member',
		PRIMARY KEY (workspace_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS channels (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		workspace_id INTEGER REFERENCES workspaces(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		is_dm INTEGER NOT NULL DEFAULT 0,
		is_thread INTEGER NOT NULL DEFAULT 0,
		parent_message_id INTEGER REFERENCES messages(id) ON DELETE CASCADE,
		created_at DATETIME NOT NULL,
		UNIQUE (workspace_id, name)
	);

	CREATE UNIQUE INDEX IF NOT EXISTS ux_channels_dm_name ON channels(name) WHERE is_dm = 1;

	CREATE TABLE IF NOT EXISTS channel_participants (
		channel_id INTEGER NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		PRIMARY KEY (channel_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		channel_id INTEGER NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
		user_id INTEGER NOT NULL REFERENCES users(id),
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS reactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		message_id INTEGER NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
		user_id INTEGER NOT NULL REFERENCES users(id),
		emoji TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE (user_id, message_id, emoji)
	);

	CREATE TABLE IF NOT EXISTS attachments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		message_id INTEGER REFERENCES messages(id) ON DELETE CASCADE,
		user_id INTEGER NOT NULL REFERENCES users(id),
		filename TEXT NOT NULL,
		url TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_users_display_name ON users(display_name);
	CREATE INDEX IF NOT EXISTS idx_messages_channel ON messages(channel_id, id);
	CREATE INDEX IF NOT EXISTS idx_messages_user ON messages(user_id, id);
	CREATE INDEX IF NOT EXISTS idx_reactions_message ON reactions(message_id);
	CREATE INDEX IF NOT EXISTS idx_attachments_message ON attachments(message_id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func notFound(err error, what string, id any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
	}
	return err
}

// placeholders returns "?, ?, ..." with n entries and the ids as args.
func placeholders(ids []int64) (string, []any) {
	marks := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args[i] = id
	}
	return strings.Join(marks, ", "), args
}

// CreateUser creates a new user record.
func (s *SQLiteStore) CreateUser(ctx context.Context, email, displayName string, isBot bool) (chat.User, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (email, display_name, is_bot, created_at)
		VALUES (?, ?, ?, ?)
	`, email, displayName, isBot, now)
	if err != nil {
		return chat.User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return chat.User{}, err
	}
	return s.GetUser(ctx, id)
}

// GetUser retrieves a user by ID.
func (s *SQLiteStore) GetUser(ctx context.Context, id int64) (chat.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return chat.User{}, notFound(err, "user", id)
	}
	return u, nil
}

// ListUsers returns the users with the given ids, keyed by id.
func (s *SQLiteStore) ListUsers(ctx context.Context, ids []int64) (map[int64]chat.User, error) {
	out := make(map[int64]chat.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	marks, args := placeholders(ids)
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE id IN (`+marks+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users, err := collect(rows, scanUser)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// FindUserByEmail retrieves a user by email, ignoring case.
func (s *SQLiteStore) FindUserByEmail(ctx context.Context, email string) (chat.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE lower(email) = lower(?) ORDER BY id LIMIT 1
	`, email))
	if err != nil {
		return chat.User{}, notFound(err, "user", email)
	}
	return u, nil
}

// FindUsersByDisplayName returns every user whose display name matches exactly.
func (s *SQLiteStore) FindUsersByDisplayName(ctx context.Context, displayName string) ([]chat.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE display_name = ? ORDER BY id
	`, displayName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows, scanUser)
}

// UpdateDisplayName changes a user's display name.
func (s *SQLiteStore) UpdateDisplayName(ctx context.Context, id int64, displayName string) (chat.User, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET display_name = ? WHERE id = ?`, displayName, id)
	if err != nil {
		return chat.User{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return chat.User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return s.GetUser(ctx, id)
}

// SetPersona stores the persona descriptor on the user record.
func (s *SQLiteStore) SetPersona(ctx context.Context, userID int64, descriptor string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET persona = ? WHERE id = ?`, descriptor, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	return nil
}

// ListUserMessages returns all messages authored by the user, oldest first.
func (s *SQLiteStore) ListUserMessages(ctx context.Context, userID int64) ([]chat.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+messageColumns+` FROM messages WHERE user_id = ? ORDER BY id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows, scanMessage)
}

// CreateWorkspace creates a workspace and makes ownerID its owner.
func (s *SQLiteStore) CreateWorkspace(ctx context.Context, name string, ownerID int64) (chat.Workspace, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return chat.Workspace{}, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `INSERT INTO workspaces (name, created_at) VALUES (?, ?)`, name, now)
	if err != nil {
		return chat.Workspace{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return chat.Workspace{}, err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO workspace_members (workspace_id, user_id, role) VALUES (?, ?, ?)
	`, id, ownerID, chat.RoleOwner); err != nil {
		return chat.Workspace{}, err
	}
	if err := tx.Commit(); err != nil {
		return chat.Workspace{}, err
	}
	return chat.Workspace{ID: id, Name: name, CreatedAt: now}, nil
}

// GetWorkspace retrieves a workspace by ID.
func (s *SQLiteStore) GetWorkspace(ctx context.Context, id int64) (chat.Workspace, error) {
	w, err := scanWorkspace(s.db.QueryRowContext(ctx, `SELECT `+workspaceColumns+` FROM workspaces WHERE id = ?`, id))
	if err != nil {
		return chat.Workspace{}, notFound(err, "workspace", id)
	}
	return w, nil
}

// ListWorkspacesForUser returns the workspaces the user is a member of.
func (s *SQLiteStore) ListWorkspacesForUser(ctx context.Context, userID int64) ([]chat.Workspace, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT w.id, w.name, w.created_at
		FROM workspaces w
		JOIN workspace_members m ON m.workspace_id = w.id
		WHERE m.user_id = ?
		ORDER BY w.id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows, scanWorkspace)
}

// AddWorkspaceMember adds a member. Existing memberships are left untouched.
func (s *SQLiteStore) AddWorkspaceMember(ctx context.Context, workspaceID, userID int64, role chat.Role) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workspace_members (workspace_id, user_id, role) VALUES (?, ?, ?)
		ON CONFLICT (workspace_id, user_id) DO NOTHING
	`, workspaceID, userID, role)
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey {
		return fmt.Errorf("member %d/%d: %w", workspaceID, userID, ErrNotFound)
	}
	return err
}

// GetWorkspaceMember returns the membership row for the user in the workspace.
func (s *SQLiteStore) GetWorkspaceMember(ctx context.Context, workspaceID, userID int64) (chat.WorkspaceMember, error) {
	m := chat.WorkspaceMember{WorkspaceID: workspaceID, UserID: userID}
	err := s.db.QueryRowContext(ctx, `
		SELECT role FROM workspace_members WHERE workspace_id = ? AND user_id = ?
	`, workspaceID, userID).Scan(&m.Role)
	if err != nil {
		return chat.WorkspaceMember{}, notFound(err, "member", fmt.Sprintf("%d/%d", workspaceID, userID))
	}
	return m, nil
}

// CreateChannel creates a workspace or thread channel.
func (s *SQLiteStore) CreateChannel(ctx context.Context, ch chat.Channel) (chat.Channel, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO channels (workspace_id, name, is_dm, is_thread, parent_message_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, ch.WorkspaceID, ch.Name, ch.IsDM, ch.IsThread, ch.ParentMessageID, now)
	if err != nil {
		if isUniqueViolation(err) {
			return chat.Channel{}, fmt.Errorf("channel %q: %w", ch.Name, ErrConflict)
		}
		return chat.Channel{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return chat.Channel{}, err
	}
	ch.ID = id
	ch.CreatedAt = now
	return ch, nil
}

// EnsureChannel returns the channel with the same workspace and name, creating it if absent.
func (s *SQLiteStore) EnsureChannel(ctx context.Context, ch chat.Channel) (chat.Channel, bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO channels (workspace_id, name, is_dm, is_thread, parent_message_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, ch.WorkspaceID, ch.Name, ch.IsDM, ch.IsThread, ch.ParentMessageID, time.Now().UTC())
	if err != nil {
		return chat.Channel{}, false, err
	}
	n, _ := res.RowsAffected()

	existing, err := scanChannel(s.db.QueryRowContext(ctx, `
		SELECT `+channelColumns+` FROM channels WHERE workspace_id = ? AND name = ?
	`, ch.WorkspaceID, ch.Name))
	if err != nil {
		return chat.Channel{}, false, notFound(err, "channel", ch.Name)
	}
	return existing, n == 1, nil
}

// GetChannel retrieves a channel by ID.
func (s *SQLiteStore) GetChannel(ctx context.Context, id int64) (chat.Channel, error) {
	c, err := scanChannel(s.db.QueryRowContext(ctx, `SELECT `+channelColumns+` FROM channels WHERE id = ?`, id))
	if err != nil {
		return chat.Channel{}, notFound(err, "channel", id)
	}
	return c, nil
}

// ListWorkspaceChannels returns the workspace's regular (non-thread) channels.
func (s *SQLiteStore) ListWorkspaceChannels(ctx context.Context, workspaceID int64) ([]chat.Channel, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+channelColumns+` FROM channels
		WHERE workspace_id = ? AND is_thread = 0
		ORDER BY id
	`, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows, scanChannel)
}

// DeleteChannel removes a channel. Messages, reactions, attachments and
// threads hanging off its messages are removed by cascade.
func (s *SQLiteStore) DeleteChannel(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM channels WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("channel %d: %w", id, ErrNotFound)
	}
	return nil
}

// EnsureDMChannel returns the DM channel between two users, creating it if absent.
func (s *SQLiteStore) EnsureDMChannel(ctx context.Context, userA, userB int64) (chat.Channel, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return chat.Channel{}, false, err
	}
	defer tx.Rollback()

	name := chat.DMChannelName(userA, userB)
	res, err := tx.ExecContext(ctx, `
		INSERT INTO channels (name, is_dm, is_thread, created_at)
		VALUES (?, 1, 0, ?)
		ON CONFLICT DO NOTHING
	`, name, time.Now().UTC())
	if err != nil {
		return chat.Channel{}, false, err
	}
	created := false
	if n, _ := res.RowsAffected(); n == 1 {
		created = true
		id, err := res.LastInsertId()
		if err != nil {
			return chat.Channel{}, false, err
		}
		for _, uid := range []int64{userA, userB} {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO channel_participants (channel_id, user_id) VALUES (?, ?)
			`, id, uid); err != nil {
				var sqliteErr sqlite3.Error
				if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey {
					return chat.Channel{}, false, fmt.Errorf("user %d: %w", uid, ErrNotFound)
				}
				return chat.Channel{}, false, err
			}
		}
	}

	ch, err := scanChannel(tx.QueryRowContext(ctx, `
		SELECT `+channelColumns+` FROM channels WHERE name = ? AND is_dm = 1
	`, name))
	if err != nil {
		return chat.Channel{}, false, err
	}
	if err := tx.Commit(); err != nil {
		return chat.Channel{}, false, err
	}
	return ch, created, nil
}

// ListDMChannels returns DM channels the user participates in.
func (s *SQLiteStore) ListDMChannels(ctx context.Context, userID int64) ([]chat.Channel, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.workspace_id, c.name, c.is_dm, c.is_thread, c.parent_message_id, c.created_at
		FROM channels c
		JOIN channel_participants p ON p.channel_id = c.id
		WHERE p.user_id = ? AND c.is_dm = 1
		ORDER BY c.id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows, scanChannel)
}

// IsChannelParticipant reports whether the user is a fixed participant of the channel.
func (s *SQLiteStore) IsChannelParticipant(ctx context.Context, channelID, userID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM channel_participants WHERE channel_id = ? AND user_id = ?)
	`, channelID, userID).Scan(&exists)
	return exists, err
}

// CreateMessage appends a message to the channel log.
func (s *SQLiteStore) CreateMessage(ctx context.Context, channelID, userID int64, content string) (chat.Message, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (channel_id, user_id, content, created_at) VALUES (?, ?, ?, ?)
	`, channelID, userID, content, now)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey {
			return chat.Message{}, fmt.Errorf("channel %d: %w", channelID, ErrNotFound)
		}
		return chat.Message{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return chat.Message{}, err
	}
	return chat.Message{ID: id, ChannelID: channelID, UserID: userID, Content: content, CreatedAt: now}, nil
}

// GetMessage retrieves a message by ID.
func (s *SQLiteStore) GetMessage(ctx context.Context, id int64) (chat.Message, error) {
	m, err := scanMessage(s.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id))
	if err != nil {
		return chat.Message{}, notFound(err, "message", id)
	}
	return m, nil
}

// ListChannelMessages returns the channel's messages with id > afterID in id order.
func (s *SQLiteStore) ListChannelMessages(ctx context.Context, channelID, afterID int64) ([]chat.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE channel_id = ? AND id > ?
		ORDER BY id
	`, channelID, afterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows, scanMessage)
}

// SearchMessages performs a case-insensitive substring match over messages in
// channels the user can access, newest first.
func (s *SQLiteStore) SearchMessages(ctx context.Context, userID int64, query string, limit int) ([]chat.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.channel_id, m.user_id, m.content, m.created_at
		FROM messages m
		JOIN channels c ON c.id = m.channel_id
		WHERE instr(lower(m.content), lower(?)) > 0
		  AND (
			(c.is_dm = 1 AND EXISTS (
				SELECT 1 FROM channel_participants p WHERE p.channel_id = c.id AND p.user_id = ?))
			OR (c.is_dm = 0 AND EXISTS (
				SELECT 1 FROM workspace_members w WHERE w.workspace_id = c.workspace_id AND w.user_id = ?))
		  )
		ORDER BY m.id DESC
		LIMIT ?
	`, query, userID, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows, scanMessage)
}

// AddReaction upserts a reaction. The bool result is false when it already existed.
func (s *SQLiteStore) AddReaction(ctx context.Context, messageID, userID int64, emoji string) (chat.Reaction, bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO reactions (message_id, user_id, emoji, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, message_id, emoji) DO NOTHING
	`, messageID, userID, emoji, time.Now().UTC())
	if err != nil {
		return chat.Reaction{}, false, err
	}
	n, _ := res.RowsAffected()

	r, err := scanReaction(s.db.QueryRowContext(ctx, `
		SELECT `+reactionColumns+` FROM reactions WHERE user_id = ? AND message_id = ? AND emoji = ?
	`, userID, messageID, emoji))
	if err != nil {
		return chat.Reaction{}, false, err
	}
	return r, n == 1, nil
}

// RemoveReaction deletes the exact matching reaction.
func (s *SQLiteStore) RemoveReaction(ctx context.Context, messageID, userID int64, emoji string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM reactions WHERE user_id = ? AND message_id = ? AND emoji = ?
	`, userID, messageID, emoji)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("reaction %q on message %d: %w", emoji, messageID, ErrNotFound)
	}
	return nil
}

// ListReactions returns reactions on the given messages ordered by id.
func (s *SQLiteStore) ListReactions(ctx context.Context, messageIDs []int64) ([]chat.Reaction, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}
	marks, args := placeholders(messageIDs)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+reactionColumns+` FROM reactions WHERE message_id IN (`+marks+`) ORDER BY id
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows, scanReaction)
}

// CreateAttachment records an uploaded attachment.
func (s *SQLiteStore) CreateAttachment(ctx context.Context, a chat.Attachment) (chat.Attachment, error) {
	a.CreatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO attachments (message_id, user_id, filename, url, created_at) VALUES (?, ?, ?, ?, ?)
	`, a.MessageID, a.UserID, a.Filename, a.URL, a.CreatedAt)
	if err != nil {
		return chat.Attachment{}, err
	}
	if a.ID, err = res.LastInsertId(); err != nil {
		return chat.Attachment{}, err
	}
	return a, nil
}

// ListAttachments returns attachments of the given messages ordered by id.
func (s *SQLiteStore) ListAttachments(ctx context.Context, messageIDs []int64) ([]chat.Attachment, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}
	marks, args := placeholders(messageIDs)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+attachmentColumns+` FROM attachments WHERE message_id IN (`+marks+`) ORDER BY id
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows, scanAttachment)
}
