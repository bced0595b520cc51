package chat

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/kevingma/slack-clone-v6/internal/metrics"
	"github.com/kevingma/slack-clone-v6/internal/model/chat"
)

// UploadAttachment stores a file and links it to an existing message the
// caller can access. On failure the message is left as it was.
func (s *Service) UploadAttachment(ctx context.Context, userID, messageID int64, filename string, r io.Reader) (chat.Attachment, error) {
	if err := requireCaller(userID); err != nil {
		return chat.Attachment{}, err
	}
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." || filename == "/" {
		return chat.Attachment{}, invalid("filename is required")
	}

	msg, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		return chat.Attachment{}, translate(err)
	}
	ch, err := s.store.GetChannel(ctx, msg.ChannelID)
	if err != nil {
		return chat.Attachment{}, translate(err)
	}
	if err := s.checkChannelAccess(ctx, userID, ch); err != nil {
		return chat.Attachment{}, err
	}

	if s.uploader == nil {
		metrics.AttachmentUploads.WithLabelValues("failed").Inc()
		return chat.Attachment{}, fmt.Errorf("%w: attachments are not configured", ErrAttachmentUpload)
	}
	url, err := s.uploader.Put(ctx, filename, r)
	if err != nil {
		metrics.AttachmentUploads.WithLabelValues("failed").Inc()
		s.logger.Warn().Err(err).Int64("message_id", messageID).Str("filename", filename).Msg("attachment upload failed")
		return chat.Attachment{}, fmt.Errorf("%w: %v", ErrAttachmentUpload, err)
	}

	a, err := s.store.CreateAttachment(ctx, chat.Attachment{
		MessageID: &msg.ID,
		UserID:    userID,
		Filename:  filename,
		URL:       url,
	})
	if err != nil {
		metrics.AttachmentUploads.WithLabelValues("failed").Inc()
		return chat.Attachment{}, fmt.Errorf("%w: %v", ErrAttachmentUpload, err)
	}
	metrics.AttachmentUploads.WithLabelValues("ok").Inc()
	return a, nil
}

// PostMessageWithAttachment posts a message and then attaches a file to it.
// When only the upload fails the persisted message is returned together with
// an ErrAttachmentUpload error.
func (s *Service) PostMessageWithAttachment(ctx context.Context, in PostMessageInput, filename string, r io.Reader) (chat.Message, chat.Attachment, error) {
	in.HasAttachment = true
	msg, err := s.PostMessage(ctx, in)
	if err != nil {
		return chat.Message{}, chat.Attachment{}, err
	}
	a, err := s.UploadAttachment(ctx, in.AuthorID, msg.ID, filename, r)
	if err != nil {
		return msg, chat.Attachment{}, err
	}
	return msg, a, nil
}
