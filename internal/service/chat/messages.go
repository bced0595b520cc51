package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kevingma/slack-clone-v6/internal/metrics"
	"github.com/kevingma/slack-clone-v6/internal/model/chat"
	"github.com/kevingma/slack-clone-v6/internal/model/persona"
	"github.com/kevingma/slack-clone-v6/internal/service/ai"
	"github.com/kevingma/slack-clone-v6/internal/service/mention"
)

const maxContentLength = 4000

// PostMessageInput describes a message post. When ChannelID is nil the
// message goes to the workspace's #general channel.
type PostMessageInput struct {
	AuthorID      int64
	WorkspaceID   int64
	ChannelID     *int64
	Content       string
	HasAttachment bool
}

// PostMessage persists a human message and then answers every resolvable
// @mention in it with a bot reply in the same channel. Only the persistence
// of the human message can fail the call.
func (s *Service) PostMessage(ctx context.Context, in PostMessageInput) (chat.Message, error) {
	if err := requireCaller(in.AuthorID); err != nil {
		return chat.Message{}, err
	}
	if strings.TrimSpace(in.Content) == "" && !in.HasAttachment {
		return chat.Message{}, invalid("message content is required")
	}
	if len(in.Content) > maxContentLength {
		return chat.Message{}, invalid("message is longer than %d characters", maxContentLength)
	}

	ch, err := s.ResolveOrDefaultChannel(ctx, in.AuthorID, in.WorkspaceID, in.ChannelID)
	if err != nil {
		return chat.Message{}, err
	}

	msg, err := s.store.CreateMessage(ctx, ch.ID, in.AuthorID, in.Content)
	if err != nil {
		return chat.Message{}, fmt.Errorf("create message: %w", translate(err))
	}
	metrics.MessagesPosted.WithLabelValues("human").Inc()

	botID, err := s.EnsureBotUser(ctx)
	if err != nil {
		s.logger.Error().Err(err).Int64("message_id", msg.ID).Msg("bot user unavailable, skipping mentions")
		return msg, nil
	}
	if in.AuthorID == botID {
		return msg, nil
	}

	// Bot replies must be persisted even if the client goes away.
	s.processMentions(context.WithoutCancel(ctx), ch, msg, botID)
	return msg, nil
}

func (s *Service) processMentions(ctx context.Context, ch chat.Channel, msg chat.Message, botID int64) {
	for _, name := range mention.Parse(msg.Content) {
		s.handleMention(ctx, ch, msg, name, botID)
	}
}

func (s *Service) handleMention(ctx context.Context, ch chat.Channel, msg chat.Message, name string, botID int64) {
	log := s.logger.With().
		Int64("channel_id", ch.ID).
		Int64("message_id", msg.ID).
		Str("mention", name).
		Logger()

	defer func() {
		if r := recover(); r != nil {
			metrics.Mentions.WithLabelValues("failed").Inc()
			log.Error().Interface("panic", r).Msg("mention handling panicked")
		}
	}()

	target, ok, err := s.resolver.Resolve(ctx, name)
	if err != nil {
		metrics.Mentions.WithLabelValues("failed").Inc()
		log.Warn().Err(err).Msg("resolve mention")
		return
	}
	if !ok {
		metrics.Mentions.WithLabelValues("skipped").Inc()
		log.Debug().Msg("mention did not resolve to a single user")
		return
	}

	descriptor, err := s.personas.Ensure(ctx, target.ID)
	if err != nil || descriptor == "" {
		log.Warn().Err(err).Int64("user_id", target.ID).Msg("persona unavailable, using default")
		descriptor = persona.DefaultDescriptor
	}

	transcript, err := s.transcript(ctx, ch.ID)
	if err != nil {
		metrics.Mentions.WithLabelValues("failed").Inc()
		log.Warn().Err(err).Msg("build transcript")
		return
	}

	start := time.Now()
	reply := s.replies.SynthesizeReply(ctx, ai.ReplyRequest{
		Persona:           descriptor,
		Transcript:        transcript,
		TargetDisplayName: target.DisplayName,
		TriggeringContent: msg.Content,
	})

	botMsg, err := s.store.CreateMessage(ctx, ch.ID, botID, reply)
	if err != nil {
		metrics.Mentions.WithLabelValues("failed").Inc()
		log.Warn().Err(err).Msg("persist bot reply")
		return
	}
	metrics.MessagesPosted.WithLabelValues("bot").Inc()
	metrics.Mentions.WithLabelValues("resolved").Inc()
	log.Info().
		Int64("user_id", target.ID).
		Int64("reply_id", botMsg.ID).
		Dur("took", time.Since(start)).
		Msg("bot reply posted")
}

// transcript renders the channel as "name: content" lines, oldest first.
func (s *Service) transcript(ctx context.Context, channelID int64) (string, error) {
	msgs, err := s.store.ListChannelMessages(ctx, channelID, 0)
	if err != nil {
		return "", err
	}
	ids := make([]int64, len(msgs))
	for i, m := range msgs {
		ids[i] = m.UserID
	}
	users, err := s.store.ListUsers(ctx, ids)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteByte('\n')
		}
		name := users[m.UserID].DisplayName
		if name == "" {
			name = "unknown"
		}
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String(), nil
}

// ListMessages returns a channel's messages after afterID in display order.
func (s *Service) ListMessages(ctx context.Context, userID, channelID, afterID int64) ([]MessageView, error) {
	if err := requireCaller(userID); err != nil {
		return nil, err
	}
	ch, err := s.store.GetChannel(ctx, channelID)
	if err != nil {
		return nil, translate(err)
	}
	if err := s.checkChannelAccess(ctx, userID, ch); err != nil {
		return nil, err
	}

	msgs, err := s.store.ListChannelMessages(ctx, channelID, afterID)
	if err != nil {
		return nil, err
	}
	return s.buildViews(ctx, msgs)
}
