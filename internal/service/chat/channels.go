package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kevingma/slack-clone-v6/internal/model/chat"
	"github.com/kevingma/slack-clone-v6/internal/store"
)

const maxChannelNameLength = 80

// ResolveOrDefaultChannel returns the channel a message should be posted to.
// Without a channelID the workspace's #general channel is found or created.
func (s *Service) ResolveOrDefaultChannel(ctx context.Context, userID, workspaceID int64, channelID *int64) (chat.Channel, error) {
	if err := requireCaller(userID); err != nil {
		return chat.Channel{}, err
	}

	if channelID != nil {
		ch, err := s.store.GetChannel(ctx, *channelID)
		if err != nil {
			return chat.Channel{}, translate(err)
		}
		if err := s.checkChannelAccess(ctx, userID, ch); err != nil {
			return chat.Channel{}, err
		}
		if workspaceID > 0 && (ch.WorkspaceID == nil || *ch.WorkspaceID != workspaceID) {
			return chat.Channel{}, invalid("channel %d is not in workspace %d", ch.ID, workspaceID)
		}
		return ch, nil
	}

	if workspaceID <= 0 {
		return chat.Channel{}, invalid("workspace id or channel id is required")
	}
	if _, err := s.store.GetWorkspace(ctx, workspaceID); err != nil {
		return chat.Channel{}, translate(err)
	}
	if err := s.checkMember(ctx, userID, workspaceID); err != nil {
		return chat.Channel{}, err
	}
	return s.ensureGeneral(ctx, workspaceID)
}

func (s *Service) ensureGeneral(ctx context.Context, workspaceID int64) (chat.Channel, error) {
	ch, created, err := s.store.EnsureChannel(ctx, chat.Channel{
		WorkspaceID: &workspaceID,
		Name:        chat.GeneralChannelName,
	})
	if err != nil {
		return chat.Channel{}, fmt.Errorf("ensure general channel: %w", err)
	}
	if created {
		s.logger.Debug().Int64("workspace_id", workspaceID).Int64("channel_id", ch.ID).Msg("general channel created")
	}
	return ch, nil
}

// CreateChannel adds a named channel to a workspace the caller belongs to.
func (s *Service) CreateChannel(ctx context.Context, userID, workspaceID int64, name string) (chat.Channel, error) {
	if err := requireCaller(userID); err != nil {
		return chat.Channel{}, err
	}
	name, err := normalizeChannelName(name)
	if err != nil {
		return chat.Channel{}, err
	}
	if _, err := s.store.GetWorkspace(ctx, workspaceID); err != nil {
		return chat.Channel{}, translate(err)
	}
	if err := s.checkMember(ctx, userID, workspaceID); err != nil {
		return chat.Channel{}, err
	}

	ch, err := s.store.CreateChannel(ctx, chat.Channel{WorkspaceID: &workspaceID, Name: name})
	if err != nil {
		return chat.Channel{}, translate(err)
	}
	return ch, nil
}

func normalizeChannelName(name string) (string, error) {
	name = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "#"))
	switch {
	case name == "":
		return "", invalid("channel name is required")
	case len(name) > maxChannelNameLength:
		return "", invalid("channel name is longer than %d characters", maxChannelNameLength)
	case strings.HasPrefix(name, "thread-"), strings.HasPrefix(name, "dm-"):
		return "", invalid("channel name %q uses a reserved prefix", name)
	}
	return name, nil
}

// ListChannels returns a workspace's regular channels, making sure #general exists.
func (s *Service) ListChannels(ctx context.Context, userID, workspaceID int64) ([]chat.Channel, error) {
	if err := requireCaller(userID); err != nil {
		return nil, err
	}
	if _, err := s.store.GetWorkspace(ctx, workspaceID); err != nil {
		return nil, translate(err)
	}
	if err := s.checkMember(ctx, userID, workspaceID); err != nil {
		return nil, err
	}
	if _, err := s.ensureGeneral(ctx, workspaceID); err != nil {
		return nil, err
	}
	return s.store.ListWorkspaceChannels(ctx, workspaceID)
}

// DeleteChannel removes a workspace or thread channel and everything in it.
// #general and DM channels cannot be deleted.
func (s *Service) DeleteChannel(ctx context.Context, userID, channelID int64) error {
	if err := requireCaller(userID); err != nil {
		return err
	}
	ch, err := s.store.GetChannel(ctx, channelID)
	if err != nil {
		return translate(err)
	}
	if err := s.checkChannelAccess(ctx, userID, ch); err != nil {
		return err
	}
	if ch.IsGeneral() {
		return fmt.Errorf("%w: #%s", ErrProtectedChannel, ch.Name)
	}
	if ch.IsDM {
		return fmt.Errorf("%w: direct message channels cannot be deleted", ErrForbidden)
	}

	if err := s.store.DeleteChannel(ctx, channelID); err != nil {
		return translate(err)
	}
	s.logger.Info().Int64("channel_id", channelID).Int64("user_id", userID).Msg("channel deleted")
	return nil
}

// OpenThread returns the thread channel for a parent message, creating it on
// first use. Re-opening the same parent returns the same channel.
func (s *Service) OpenThread(ctx context.Context, userID, parentMessageID, workspaceID int64) (chat.Channel, bool, error) {
	if err := requireCaller(userID); err != nil {
		return chat.Channel{}, false, err
	}
	if err := s.checkMember(ctx, userID, workspaceID); err != nil {
		return chat.Channel{}, false, err
	}

	parent, err := s.store.GetMessage(ctx, parentMessageID)
	if err != nil {
		return chat.Channel{}, false, translate(err)
	}
	parentChannel, err := s.store.GetChannel(ctx, parent.ChannelID)
	if err != nil {
		return chat.Channel{}, false, translate(err)
	}
	switch {
	case parentChannel.IsThread:
		return chat.Channel{}, false, invalid("threads cannot be nested")
	case parentChannel.IsDM:
		return chat.Channel{}, false, invalid("direct messages do not support threads")
	case parentChannel.WorkspaceID == nil || *parentChannel.WorkspaceID != workspaceID:
		return chat.Channel{}, false, invalid("message %d is not in workspace %d", parentMessageID, workspaceID)
	}

	thread, created, err := s.store.EnsureChannel(ctx, chat.Channel{
		WorkspaceID:     &workspaceID,
		Name:            chat.ThreadChannelName(parent.ID),
		IsThread:        true,
		ParentMessageID: &parent.ID,
	})
	if err != nil {
		return chat.Channel{}, false, translate(err)
	}
	if !thread.IsThread {
		return chat.Channel{}, false, fmt.Errorf("%w: channel %q is not a thread", ErrConflict, thread.Name)
	}
	return thread, created, nil
}

// OpenDMInput names the other participant by id or email.
type OpenDMInput struct {
	OtherUserID    int64
	OtherUserEmail string
}

// OpenDM finds or creates the direct-message channel between the caller and
// another user.
func (s *Service) OpenDM(ctx context.Context, userID int64, in OpenDMInput) (chat.Channel, bool, error) {
	if err := requireCaller(userID); err != nil {
		return chat.Channel{}, false, err
	}

	var (
		other chat.User
		err   error
	)
	switch {
	case in.OtherUserID > 0:
		other, err = s.store.GetUser(ctx, in.OtherUserID)
	case strings.TrimSpace(in.OtherUserEmail) != "":
		other, err = s.store.FindUserByEmail(ctx, strings.TrimSpace(in.OtherUserEmail))
	default:
		return chat.Channel{}, false, invalid("other user id or email is required")
	}
	if err != nil {
		return chat.Channel{}, false, translate(err)
	}
	if other.ID == userID {
		return chat.Channel{}, false, invalid("cannot open a direct message with yourself")
	}
	if other.IsBot {
		return chat.Channel{}, false, invalid("cannot open a direct message with the bot")
	}

	ch, created, err := s.store.EnsureDMChannel(ctx, userID, other.ID)
	if err != nil {
		return chat.Channel{}, false, translate(err)
	}
	return ch, created, nil
}

// ListDMs returns the caller's direct-message channels.
func (s *Service) ListDMs(ctx context.Context, userID int64) ([]chat.Channel, error) {
	if err := requireCaller(userID); err != nil {
		return nil, err
	}
	return s.store.ListDMChannels(ctx, userID)
}

// checkMember fails with ErrForbidden unless the user belongs to the workspace.
func (s *Service) checkMember(ctx context.Context, userID, workspaceID int64) error {
	_, err := s.store.GetWorkspaceMember(ctx, workspaceID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: user %d is not a member of workspace %d", ErrForbidden, userID, workspaceID)
	}
	return err
}

// checkChannelAccess applies the read/write predicate: DM participant, or
// member of the channel's workspace.
func (s *Service) checkChannelAccess(ctx context.Context, userID int64, ch chat.Channel) error {
	if ch.IsDM {
		ok, err := s.store.IsChannelParticipant(ctx, ch.ID, userID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: user %d is not a participant of channel %d", ErrForbidden, userID, ch.ID)
		}
		return nil
	}
	if ch.WorkspaceID == nil {
		return fmt.Errorf("%w: channel %d has no workspace", ErrForbidden, ch.ID)
	}
	return s.checkMember(ctx, userID, *ch.WorkspaceID)
}
