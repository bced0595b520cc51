package chat

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/kevingma/slack-clone-v6/internal/metrics"
	"github.com/kevingma/slack-clone-v6/internal/model/chat"
)

const maxEmojiLength = 32

// AddReaction records the caller's emoji on a message. Adding the same
// reaction twice returns the existing row.
func (s *Service) AddReaction(ctx context.Context, userID, messageID int64, emoji string) (chat.Reaction, bool, error) {
	emoji, err := s.checkReaction(ctx, userID, messageID, emoji)
	if err != nil {
		return chat.Reaction{}, false, err
	}

	r, created, err := s.store.AddReaction(ctx, messageID, userID, emoji)
	if err != nil {
		return chat.Reaction{}, false, translate(err)
	}
	if created {
		metrics.ReactionsAdded.Inc()
	}
	return r, created, nil
}

// RemoveReaction deletes the caller's emoji from a message. It fails with
// ErrNotFound when the reaction does not exist.
func (s *Service) RemoveReaction(ctx context.Context, userID, messageID int64, emoji string) error {
	emoji, err := s.checkReaction(ctx, userID, messageID, emoji)
	if err != nil {
		return err
	}
	return translate(s.store.RemoveReaction(ctx, messageID, userID, emoji))
}

func (s *Service) checkReaction(ctx context.Context, userID, messageID int64, emoji string) (string, error) {
	if err := requireCaller(userID); err != nil {
		return "", err
	}
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return "", invalid("emoji is required")
	}
	if utf8.RuneCountInString(emoji) > maxEmojiLength {
		return "", invalid("emoji is longer than %d characters", maxEmojiLength)
	}

	msg, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		return "", translate(err)
	}
	ch, err := s.store.GetChannel(ctx, msg.ChannelID)
	if err != nil {
		return "", translate(err)
	}
	if err := s.checkChannelAccess(ctx, userID, ch); err != nil {
		return "", err
	}
	return emoji, nil
}
