package store

import (
	"github.com/kevingma/slack-clone-v6/internal/model/chat"
)

const (
	userColumns       = `id, email, display_name, persona, is_bot, created_at`
	workspaceColumns  = `id, name, created_at`
	channelColumns    = `id, workspace_id, name, is_dm, is_thread, parent_message_id, created_at`
	messageColumns    = `id, channel_id, user_id, content, created_at`
	reactionColumns   = `id, message_id, user_id, emoji, created_at`
	attachmentColumns = `id, message_id, user_id, filename, url, created_at`
)

// scanner is satisfied by *sql.Row, *sql.Rows, pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (chat.User, error) {
	var u chat.User
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.Persona, &u.IsBot, &u.CreatedAt)
	return u, err
}

func scanWorkspace(row scanner) (chat.Workspace, error) {
	var w chat.Workspace
	err := row.Scan(&w.ID, &w.Name, &w.CreatedAt)
	return w, err
}

func scanChannel(row scanner) (chat.Channel, error) {
	var c chat.Channel
	err := row.Scan(&c.ID, &c.WorkspaceID, &c.Name, &c.IsDM, &c.IsThread, &c.ParentMessageID, &c.CreatedAt)
	return c, err
}

func scanMessage(row scanner) (chat.Message, error) {
	var m chat.Message
	err := row.Scan(&m.ID, &m.ChannelID, &m.UserID, &m.Content, &m.CreatedAt)
	return m, err
}

func scanReaction(row scanner) (chat.Reaction, error) {
	var r chat.Reaction
	err := row.Scan(&r.ID, &r.MessageID, &r.UserID, &r.Emoji, &r.CreatedAt)
	return r, err
}

func scanAttachment(row scanner) (chat.Attachment, error) {
	var a chat.Attachment
	err := row.Scan(&a.ID, &a.MessageID, &a.UserID, &a.Filename, &a.URL, &a.CreatedAt)
	return a, err
}

// rowIterator is the common subset of *sql.Rows and pgx.Rows.
type rowIterator interface {
	scanner
	Next() bool
	Err() error
}

func collect[T any](rows rowIterator, scan func(scanner) (T, error)) ([]T, error) {
	out := make([]T, 0, 16)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
