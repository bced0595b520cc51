package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kevingma/slack-clone-v6/internal/model/chat"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	store := &PostgresStore{pool: pool}
	if err := store.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *PostgresStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		email TEXT NOT NULL DEFAULT '',
		display_name TEXT NOT NULL,
		persona TEXT,
		is_bot BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS workspaces (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS workspace_members (
		workspace_id BIGINT NOT NULL REFERENCES workspaces(id) ON DELETE CASCADE,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		role TEXT NOT NULL DEFAULT 'member',
		PRIMARY KEY (workspace_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS channels (
		id BIGSERIAL PRIMARY KEY,
		workspace_id BIGINT REFERENCES workspaces(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		is_dm BOOLEAN NOT NULL DEFAULT FALSE,
		is_thread BOOLEAN NOT NULL DEFAULT FALSE,
		parent_message_id BIGINT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (workspace_id, name)
	);

	CREATE UNIQUE INDEX IF NOT EXISTS ux_channels_dm_name ON channels(name) WHERE is_dm;

	CREATE TABLE IF NOT EXISTS channel_participants (
		channel_id BIGINT NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		PRIMARY KEY (channel_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id BIGSERIAL PRIMARY KEY,
		channel_id BIGINT NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
		user_id BIGINT NOT NULL REFERENCES users(id),
		content TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'channels_parent_message_fk') THEN
			ALTER TABLE channels ADD CONSTRAINT channels_parent_message_fk
				FOREIGN KEY (parent_message_id) REFERENCES messages(id) ON DELETE CASCADE;
		END IF;
	END $$;

	CREATE TABLE IF NOT EXISTS reactions (
		id BIGSERIAL PRIMARY KEY,
		message_id BIGINT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
		user_id BIGINT NOT NULL REFERENCES users(id),
		emoji TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (user_id, message_id, emoji)
	);

	CREATE TABLE IF NOT EXISTS attachments (
		id BIGSERIAL PRIMARY KEY,
		message_id BIGINT REFERENCES messages(id) ON DELETE CASCADE,
		user_id BIGINT NOT NULL REFERENCES users(id),
		filename TEXT NOT NULL,
		url TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_users_display_name ON users(display_name);
	CREATE INDEX IF NOT EXISTS idx_messages_channel ON messages(channel_id, id);
	CREATE INDEX IF NOT EXISTS idx_messages_user ON messages(user_id, id);
	CREATE INDEX IF NOT EXISTS idx_reactions_message ON reactions(message_id);
	CREATE INDEX IF NOT EXISTS idx_attachments_message ON attachments(message_id);
	`

	_, err := s.pool.Exec(ctx, schema)
	return err
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func pgNotFound(err error, what string, id any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
	}
	return err
}

// CreateUser creates a new user record.
func (s *PostgresStore) CreateUser(ctx context.Context, email, displayName string, isBot bool) (chat.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `
		INSERT INTO users (email, display_name, is_bot)
		VALUES ($1, $2, $3)
		RETURNING `+userColumns, email, displayName, isBot))
}

// GetUser retrieves a user by ID.
func (s *PostgresStore) GetUser(ctx context.Context, id int64) (chat.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return chat.User{}, pgNotFound(err, "user", id)
	}
	return u, nil
}

// ListUsers returns the users with the given ids, keyed by id.
func (s *PostgresStore) ListUsers(ctx context.Context, ids []int64) (map[int64]chat.User, error) {
	out := make(map[int64]chat.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, ids)
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
func (s *PostgresStore) FindUserByEmail(ctx context.Context, email string) (chat.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1) ORDER BY id LIMIT 1
	`, email))
	if err != nil {
		return chat.User{}, pgNotFound(err, "user", email)
	}
	return u, nil
}

// FindUsersByDisplayName returns every user whose display name matches exactly.
func (s *PostgresStore) FindUsersByDisplayName(ctx context.Context, displayName string) ([]chat.User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+userColumns+` FROM users WHERE display_name = $1 ORDER BY id
	`, displayName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows, scanUser)
}

// UpdateDisplayName changes a user's display name.
func (s *PostgresStore) UpdateDisplayName(ctx context.Context, id int64, displayName string) (chat.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `
		UPDATE users SET display_name = $1 WHERE id = $2
		RETURNING `+userColumns, displayName, id))
	if err != nil {
		return chat.User{}, pgNotFound(err, "user", id)
	}
	return u, nil
}

// SetPersona stores the persona descriptor on the user record.
func (s *PostgresStore) SetPersona(ctx context.Context, userID int64, descriptor string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET persona = $1 WHERE id = $2`, descriptor, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	return nil
}

// ListUserMessages returns all messages authored by the user, oldest first.
func (s *PostgresStore) ListUserMessages(ctx context.Context, userID int64) ([]chat.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+messageColumns+` FROM messages WHERE user_id = $1 ORDER BY id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows, scanMessage)
}

// CreateWorkspace creates a workspace and makes ownerID its owner.
func (s *PostgresStore) CreateWorkspace(ctx context.Context, name string, ownerID int64) (chat.Workspace, error) {
	var ws chat.Workspace
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		ws, err = scanWorkspace(tx.QueryRow(ctx, `
			INSERT INTO workspaces (name) VALUES ($1) RETURNING `+workspaceColumns, name))
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO workspace_members (workspace_id, user_id, role) VALUES ($1, $2, $3)
		`, ws.ID, ownerID, string(chat.RoleOwner))
		if pgCode(err) == pgForeignKeyViolation {
			return fmt.Errorf("user %d: %w", ownerID, ErrNotFound)
		}
		return err
	})
	if err != nil {
		return chat.Workspace{}, err
	}
	return ws, nil
}

// GetWorkspace retrieves a workspace by ID.
func (s *PostgresStore) GetWorkspace(ctx context.Context, id int64) (chat.Workspace, error) {
	w, err := scanWorkspace(s.pool.QueryRow(ctx, `SELECT `+workspaceColumns+` FROM workspaces WHERE id = $1`, id))
	if err != nil {
		return chat.Workspace{}, pgNotFound(err, "workspace", id)
	}
	return w, nil
}

// ListWorkspacesForUser returns the workspaces the user is a member of.
func (s *PostgresStore) ListWorkspacesForUser(ctx context.Context, userID int64) ([]chat.Workspace, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT w.id, w.name, w.created_at
		FROM workspaces w
		JOIN workspace_members m ON m.workspace_id = w.id
		WHERE m.user_id = $1
		ORDER BY w.id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows, scanWorkspace)
}

// AddWorkspaceMember adds a member. Existing memberships are left untouched.
func (s *PostgresStore) AddWorkspaceMember(ctx context.Context, workspaceID, userID int64, role chat.Role) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO workspace_members (workspace_id, user_id, role) VALUES ($1, $2, $3)
		ON CONFLICT (workspace_id, user_id) DO NOTHING
	`, workspaceID, userID, string(role))
	if pgCode(err) == pgForeignKeyViolation {
		return fmt.Errorf("member %d/%d: %w", workspaceID, userID, ErrNotFound)
	}
	return err
}

// GetWorkspaceMember returns the membership row for the user in the workspace.
func (s *PostgresStore) GetWorkspaceMember(ctx context.Context, workspaceID, userID int64) (chat.WorkspaceMember, error) {
	m := chat.WorkspaceMember{WorkspaceID: workspaceID, UserID: userID}
	var role string
	err := s.pool.QueryRow(ctx, `
		SELECT role FROM workspace_members WHERE workspace_id = $1 AND user_id = $2
	`, workspaceID, userID).Scan(&role)
	if err != nil {
		return chat.WorkspaceMember{}, pgNotFound(err, "member", fmt.Sprintf("%d/%d", workspaceID, userID))
	}
	m.Role = chat.Role(role)
	return m, nil
}

// CreateChannel creates a workspace or thread channel.
func (s *PostgresStore) CreateChannel(ctx context.Context, ch chat.Channel) (chat.Channel, error) {
	created, err := scanChannel(s.pool.QueryRow(ctx, `
		INSERT INTO channels (workspace_id, name, is_dm, is_thread, parent_message_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+channelColumns, ch.WorkspaceID, ch.Name, ch.IsDM, ch.IsThread, ch.ParentMessageID))
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return chat.Channel{}, fmt.Errorf("channel %q: %w", ch.Name, ErrConflict)
		}
		return chat.Channel{}, err
	}
	return created, nil
}

// EnsureChannel returns the channel with the same workspace and name, creating it if absent.
func (s *PostgresStore) EnsureChannel(ctx context.Context, ch chat.Channel) (chat.Channel, bool, error) {
	created, err := scanChannel(s.pool.QueryRow(ctx, `
		INSERT INTO channels (workspace_id, name, is_dm, is_thread, parent_message_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (workspace_id, name) DO NOTHING
		RETURNING `+channelColumns, ch.WorkspaceID, ch.Name, ch.IsDM, ch.IsThread, ch.ParentMessageID))
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return chat.Channel{}, false, err
	}

	existing, err := scanChannel(s.pool.QueryRow(ctx, `
		SELECT `+channelColumns+` FROM channels WHERE workspace_id = $1 AND name = $2
	`, ch.WorkspaceID, ch.Name))
	if err != nil {
		return chat.Channel{}, false, pgNotFound(err, "channel", ch.Name)
	}
	return existing, false, nil
}

// GetChannel retrieves a channel by ID.
func (s *PostgresStore) GetChannel(ctx context.Context, id int64) (chat.Channel, error) {
	c, err := scanChannel(s.pool.QueryRow(ctx, `SELECT `+channelColumns+` FROM channels WHERE id = $1`, id))
	if err != nil {
		return chat.Channel{}, pgNotFound(err, "channel", id)
	}
	return c, nil
}

// ListWorkspaceChannels returns the workspace's regular (non-thread) channels.
func (s *PostgresStore) ListWorkspaceChannels(ctx context.Context, workspaceID int64) ([]chat.Channel, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+channelColumns+` FROM channels
		WHERE workspace_id = $1 AND NOT is_thread
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
func (s *PostgresStore) DeleteChannel(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM channels WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("channel %d: %w", id, ErrNotFound)
	}
	return nil
}

// EnsureDMChannel returns the DM channel between two users, creating it if absent.
func (s *PostgresStore) EnsureDMChannel(ctx context.Context, userA, userB int64) (chat.Channel, bool, error) {
	name := chat.DMChannelName(userA, userB)
	var (
		ch      chat.Channel
		created bool
	)
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		ch, err = scanChannel(tx.QueryRow(ctx, `
			INSERT INTO channels (name, is_dm, is_thread) VALUES ($1, TRUE, FALSE)
			ON CONFLICT (name) WHERE is_dm DO NOTHING
			RETURNING `+channelColumns, name))
		switch {
		case err == nil:
			created = true
			for _, uid := range []int64{userA, userB} {
				_, err := tx.Exec(ctx, `
					INSERT INTO channel_participants (channel_id, user_id) VALUES ($1, $2)
				`, ch.ID, uid)
				if pgCode(err) == pgForeignKeyViolation {
					return fmt.Errorf("user %d: %w", uid, ErrNotFound)
				}
				if err != nil {
					return err
				}
			}
			return nil
		case errors.Is(err, pgx.ErrNoRows):
			ch, err = scanChannel(tx.QueryRow(ctx, `
				SELECT `+channelColumns+` FROM channels WHERE name = $1 AND is_dm
			`, name))
			return err
		default:
			return err
		}
	})
	if err != nil {
		return chat.Channel{}, false, err
	}
	return ch, created, nil
}

// ListDMChannels returns DM channels the user participates in.
func (s *PostgresStore) ListDMChannels(ctx context.Context, userID int64) ([]chat.Channel, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.workspace_id, c.name, c.is_dm, c.is_thread, c.parent_message_id, c.created_at
		FROM channels c
		JOIN channel_participants p ON p.channel_id = c.id
		WHERE p.user_id = $1 AND c.is_dm
		ORDER BY c.id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows, scanChannel)
}

// IsChannelParticipant reports whether the user is a fixed participant of the channel.
func (s *PostgresStore) IsChannelParticipant(ctx context.Context, channelID, userID int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM channel_participants WHERE channel_id = $1 AND user_id = $2)
	`, channelID, userID).Scan(&exists)
	return exists, err
}

// CreateMessage appends a message to the channel log. Inserts into one
// channel are serialized with a transaction-scoped advisory lock so ids
// become visible in commit order and ?after polling never skips a row.
func (s *PostgresStore) CreateMessage(ctx context.Context, channelID, userID int64, content string) (chat.Message, error) {
	var m chat.Message
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, channelID); err != nil {
			return err
		}
		var err error
		m, err = scanMessage(tx.QueryRow(ctx, `
			INSERT INTO messages (channel_id, user_id, content) VALUES ($1, $2, $3)
			RETURNING `+messageColumns, channelID, userID, content))
		return err
	})
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return chat.Message{}, fmt.Errorf("channel %d: %w", channelID, ErrNotFound)
		}
		return chat.Message{}, err
	}
	return m, nil
}

// GetMessage retrieves a message by ID.
func (s *PostgresStore) GetMessage(ctx context.Context, id int64) (chat.Message, error) {
	m, err := scanMessage(s.pool.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id))
	if err != nil {
		return chat.Message{}, pgNotFound(err, "message", id)
	}
	return m, nil
}

// ListChannelMessages returns the channel's messages with id > afterID in id order.
func (s *PostgresStore) ListChannelMessages(ctx context.Context, channelID, afterID int64) ([]chat.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE channel_id = $1 AND id > $2
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
func (s *PostgresStore) SearchMessages(ctx context.Context, userID int64, query string, limit int) ([]chat.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT m.id, m.channel_id, m.user_id, m.content, m.created_at
		FROM messages m
		JOIN channels c ON c.id = m.channel_id
		WHERE strpos(lower(m.content), lower($1)) > 0
		  AND (
			(c.is_dm AND EXISTS (
				SELECT 1 FROM channel_participants p WHERE p.channel_id = c.id AND p.user_id = $2))
			OR (NOT c.is_dm AND EXISTS (
				SELECT 1 FROM workspace_members w WHERE w.workspace_id = c.workspace_id AND w.user_id = $2))
		  )
		ORDER BY m.id DESC
		LIMIT $3
	`, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows, scanMessage)
}

// AddReaction upserts a reaction. The bool result is false when it already existed.
func (s *PostgresStore) AddReaction(ctx context.Context, messageID, userID int64, emoji string) (chat.Reaction, bool, error) {
	r, err := scanReaction(s.pool.QueryRow(ctx, `
		INSERT INTO reactions (message_id, user_id, emoji) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, message_id, emoji) DO NOTHING
		RETURNING `+reactionColumns, messageID, userID, emoji))
	if err == nil {
		return r, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return chat.Reaction{}, false, err
	}

	r, err = scanReaction(s.pool.QueryRow(ctx, `
		SELECT `+reactionColumns+` FROM reactions WHERE user_id = $1 AND message_id = $2 AND emoji = $3
	`, userID, messageID, emoji))
	if err != nil {
		return chat.Reaction{}, false, err
	}
	return r, false, nil
}

// RemoveReaction deletes the exact matching reaction.
func (s *PostgresStore) RemoveReaction(ctx context.Context, messageID, userID int64, emoji string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM reactions WHERE user_id = $1 AND message_id = $2 AND emoji = $3
	`, userID, messageID, emoji)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reaction %q on message %d: %w", emoji, messageID, ErrNotFound)
	}
	return nil
}

// ListReactions returns reactions on the given messages ordered by id.
func (s *PostgresStore) ListReactions(ctx context.Context, messageIDs []int64) ([]chat.Reaction, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+reactionColumns+` FROM reactions WHERE message_id = ANY($1) ORDER BY id
	`, messageIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows, scanReaction)
}

// CreateAttachment records an uploaded attachment.
func (s *PostgresStore) CreateAttachment(ctx context.Context, a chat.Attachment) (chat.Attachment, error) {
	return scanAttachment(s.pool.QueryRow(ctx, `
		INSERT INTO attachments (message_id, user_id, filename, url) VALUES ($1, $2, $3, $4)
		RETURNING `+attachmentColumns, a.MessageID, a.UserID, a.Filename, a.URL))
}

// ListAttachments returns attachments of the given messages ordered by id.
func (s *PostgresStore) ListAttachments(ctx context.Context, messageIDs []int64) ([]chat.Attachment, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+attachmentColumns+` FROM attachments WHERE message_id = ANY($1) ORDER BY id
	`, messageIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows, scanAttachment)
}
