package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrEmptyFile is returned when an upload carries no bytes.
var ErrEmptyFile = errors.New("storage: empty file")

// Uploader stores attachment bytes and returns a publicly resolvable URL.
type Uploader interface {
	Put(ctx context.Context, filename string, r io.Reader) (string, error)
}

// LocalUploader writes objects under a directory that the HTTP router serves
// at /files/.
type LocalUploader struct {
	dir     string
	baseURL string
	maxSize int64
}

// NewLocalUploader creates dir if needed.
func NewLocalUploader(dir, baseURL string, maxSize int64) (*LocalUploader, error) {
	if dir == "" {
		dir = "./data/attachments"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create attachment dir: %w", err)
	}
	return &LocalUploader{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		maxSize: maxSize,
	}, nil
}

// Dir is the directory objects are written to.
func (u *LocalUploader) Dir() string {
	return u.dir
}

// Put stores the object under a random key that keeps the original extension.
func (u *LocalUploader) Put(ctx context.Context, filename string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := uuid.NewString() + sanitizeExt(filepath.Ext(filename))
	path := filepath.Join(u.dir, key)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("create object: %w", err)
	}

	src := r
	if u.maxSize > 0 {
		src = io.LimitReader(r, u.maxSize+1)
	}
	n, err := io.Copy(f, src)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	switch {
	case err != nil:
		os.Remove(path)
		return "", fmt.Errorf("write object: %w", err)
	case n == 0:
		os.Remove(path)
		return "", ErrEmptyFile
	case u.maxSize > 0 && n > u.maxSize:
		os.Remove(path)
		return "", fmt.Errorf("object exceeds %d bytes", u.maxSize)
	}

	return u.baseURL + "/files/" + key, nil
}

func sanitizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if len(ext) > 10 {
		return ""
	}
	for _, r := range ext[min(1, len(ext)):] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
