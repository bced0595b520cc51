package chat

import (
	"errors"
	"fmt"

	"github.com/kevingma/slack-clone-v6/internal/store"
)

var (
	ErrUnauthenticated  = errors.New("caller identity is required")
	ErrForbidden        = errors.New("access denied")
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrConflict         = errors.New("already exists")
	ErrProtectedChannel = errors.New("channel is protected")
	// ErrAttachmentUpload is returned after the message was persisted but
	// its attachment could not be stored.
	ErrAttachmentUpload = errors.New("attachment upload failed")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// translate maps storage errors onto the service taxonomy.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, store.ErrConflict):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return err
	}
}
