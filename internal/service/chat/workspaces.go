package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kevingma/slack-clone-v6/internal/model/chat"
	"github.com/kevingma/slack-clone-v6/internal/store"
)

const maxWorkspaceNameLength = 100

// CreateWorkspace creates a workspace owned by the caller together with its
// #general channel.
func (s *Service) CreateWorkspace(ctx context.Context, userID int64, name string) (chat.Workspace, error) {
	if err := requireCaller(userID); err != nil {
		return chat.Workspace{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return chat.Workspace{}, invalid("workspace name is required")
	}
	if len(name) > maxWorkspaceNameLength {
		return chat.Workspace{}, invalid("workspace name is longer than %d characters", maxWorkspaceNameLength)
	}

	ws, err := s.store.CreateWorkspace(ctx, name, userID)
	if err != nil {
		return chat.Workspace{}, translate(err)
	}
	if _, err := s.ensureGeneral(ctx, ws.ID); err != nil {
		return chat.Workspace{}, err
	}
	s.logger.Info().Int64("workspace_id", ws.ID).Int64("owner_id", userID).Msg("workspace created")
	return ws, nil
}

// ListWorkspaces returns the workspaces the caller belongs to.
func (s *Service) ListWorkspaces(ctx context.Context, userID int64) ([]chat.Workspace, error) {
	if err := requireCaller(userID); err != nil {
		return nil, err
	}
	return s.store.ListWorkspacesForUser(ctx, userID)
}

// AddMemberInput names the user to add by id or email.
type AddMemberInput struct {
	UserID int64
	Email  string
}

// AddMember lets a workspace owner add another user as a member. Adding an
// existing member is a no-op.
func (s *Service) AddMember(ctx context.Context, callerID, workspaceID int64, in AddMemberInput) (chat.WorkspaceMember, error) {
	if err := requireCaller(callerID); err != nil {
		return chat.WorkspaceMember{}, err
	}
	if _, err := s.store.GetWorkspace(ctx, workspaceID); err != nil {
		return chat.WorkspaceMember{}, translate(err)
	}
	caller, err := s.store.GetWorkspaceMember(ctx, workspaceID, callerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return chat.WorkspaceMember{}, fmt.Errorf("%w: user %d is not a member of workspace %d", ErrForbidden, callerID, workspaceID)
		}
		return chat.WorkspaceMember{}, err
	}
	if caller.Role != chat.RoleOwner {
		return chat.WorkspaceMember{}, fmt.Errorf("%w: only owners can add members", ErrForbidden)
	}

	var target chat.User
	switch {
	case in.UserID > 0:
		target, err = s.store.GetUser(ctx, in.UserID)
	case strings.TrimSpace(in.Email) != "":
		target, err = s.store.FindUserByEmail(ctx, strings.TrimSpace(in.Email))
	default:
		return chat.WorkspaceMember{}, invalid("user id or email is required")
	}
	if err != nil {
		return chat.WorkspaceMember{}, translate(err)
	}
	if target.IsBot {
		return chat.WorkspaceMember{}, invalid("the bot cannot join workspaces")
	}

	if err := s.store.AddWorkspaceMember(ctx, workspaceID, target.ID, chat.RoleMember); err != nil {
		return chat.WorkspaceMember{}, translate(err)
	}
	member, err := s.store.GetWorkspaceMember(ctx, workspaceID, target.ID)
	if err != nil {
		return chat.WorkspaceMember{}, translate(err)
	}
	return member, nil
}
