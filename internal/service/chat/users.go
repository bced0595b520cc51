package chat

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/kevingma/slack-clone-v6/internal/model/chat"
	"github.com/kevingma/slack-clone-v6/internal/store"
)

// Display names double as mention targets, so they are limited to the
// characters a mention token can carry.
var displayNamePattern = regexp.MustCompile(`^\w{1,64}$`)

// RegisterUser creates a human user. Email and display name must be unused.
func (s *Service) RegisterUser(ctx context.Context, email, displayName string) (chat.User, error) {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return chat.User{}, invalid("email %q is not valid", email)
	}
	displayName = strings.TrimSpace(displayName)
	if !displayNamePattern.MatchString(displayName) {
		return chat.User{}, invalid("display name must be 1-64 letters, digits or underscores")
	}

	if _, err := s.store.FindUserByEmail(ctx, email); err == nil {
		return chat.User{}, fmt.Errorf("%w: email %q is registered", ErrConflict, email)
	} else if !errors.Is(err, store.ErrNotFound) {
		return chat.User{}, err
	}
	if err := s.checkDisplayNameFree(ctx, 0, displayName); err != nil {
		return chat.User{}, err
	}

	user, err := s.store.CreateUser(ctx, email, displayName, false)
	if err != nil {
		return chat.User{}, translate(err)
	}
	s.logger.Info().Int64("user_id", user.ID).Str("display_name", displayName).Msg("user registered")
	return user, nil
}

// GetUser returns a user by id.
func (s *Service) GetUser(ctx context.Context, userID int64) (chat.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return chat.User{}, translate(err)
	}
	return user, nil
}

// UpdateDisplayName renames the caller. The persona is kept.
func (s *Service) UpdateDisplayName(ctx context.Context, userID int64, displayName string) (chat.User, error) {
	if err := requireCaller(userID); err != nil {
		return chat.User{}, err
	}
	displayName = strings.TrimSpace(displayName)
	if !displayNamePattern.MatchString(displayName) {
		return chat.User{}, invalid("display name must be 1-64 letters, digits or underscores")
	}
	if err := s.checkDisplayNameFree(ctx, userID, displayName); err != nil {
		return chat.User{}, err
	}

	user, err := s.store.UpdateDisplayName(ctx, userID, displayName)
	if err != nil {
		return chat.User{}, translate(err)
	}
	return user, nil
}

func (s *Service) checkDisplayNameFree(ctx context.Context, userID int64, displayName string) error {
	if displayName == s.cfg.BotDisplayName {
		return fmt.Errorf("%w: display name %q is reserved", ErrConflict, displayName)
	}
	taken, err := s.store.FindUsersByDisplayName(ctx, displayName)
	if err != nil {
		return err
	}
	for _, u := range taken {
		if u.ID != userID {
			return fmt.Errorf("%w: display name %q is taken", ErrConflict, displayName)
		}
	}
	return nil
}
