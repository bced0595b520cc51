package chat

import (
	"context"
	"fmt"

	"github.com/kevingma/slack-clone-v6/internal/model/chat"
)

// Author is the display identity attached to messages and reactions.
type Author struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"displayName"`
	IsBot       bool   `json:"isBot,omitempty"`
}

// ReactionView is a reaction together with the user who added it.
type ReactionView struct {
	chat.Reaction
	User Author `json:"user"`
}

// MessageView is the client-facing shape of a message.
type MessageView struct {
	chat.Message
	Author      Author            `json:"author"`
	Reactions   []ReactionView    `json:"reactions"`
	Attachments []chat.Attachment `json:"attachments"`
}

// SearchResult is a matching message with the channel it was posted in.
type SearchResult struct {
	MessageView
	Channel chat.Channel `json:"channel"`
}

func authorOf(u chat.User) Author {
	return Author{ID: u.ID, DisplayName: u.DisplayName, IsBot: u.IsBot}
}

// buildViews decorates messages with authors, reactions and attachments,
// preserving the input order.
func (s *Service) buildViews(ctx context.Context, msgs []chat.Message) ([]MessageView, error) {
	if len(msgs) == 0 {
		return []MessageView{}, nil
	}

	ids := make([]int64, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}

	reactions, err := s.store.ListReactions(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list reactions: %w", err)
	}
	attachments, err := s.store.ListAttachments(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}

	userIDs := make([]int64, 0, len(msgs)+len(reactions))
	for _, m := range msgs {
		userIDs = append(userIDs, m.UserID)
	}
	for _, r := range reactions {
		userIDs = append(userIDs, r.UserID)
	}
	users, err := s.store.ListUsers(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	byMessage := make(map[int64][]ReactionView, len(msgs))
	for _, r := range reactions {
		byMessage[r.MessageID] = append(byMessage[r.MessageID], ReactionView{
			Reaction: r,
			User:     authorOf(users[r.UserID]),
		})
	}
	filesByMessage := make(map[int64][]chat.Attachment, len(attachments))
	for _, a := range attachments {
		if a.MessageID != nil {
			filesByMessage[*a.MessageID] = append(filesByMessage[*a.MessageID], a)
		}
	}

	views := make([]MessageView, len(msgs))
	for i, m := range msgs {
		author := authorOf(users[m.UserID])
		author.ID = m.UserID
		v := MessageView{
			Message:     m,
			Author:      author,
			Reactions:   byMessage[m.ID],
			Attachments: filesByMessage[m.ID],
		}
		if v.Reactions == nil {
			v.Reactions = []ReactionView{}
		}
		if v.Attachments == nil {
			v.Attachments = []chat.Attachment{}
		}
		views[i] = v
	}
	return views, nil
}
