package chat

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	chatservice "github.com/kevingma/slack-clone-v6/internal/service/chat"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{chatservice.ErrUnauthenticated, http.StatusUnauthorized},
		{fmt.Errorf("%w: not a member", chatservice.ErrForbidden), http.StatusForbidden},
		{fmt.Errorf("%w: #general", chatservice.ErrProtectedChannel), http.StatusForbidden},
		{fmt.Errorf("%w: message 4", chatservice.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: emoji is required", chatservice.ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("%w: channel exists", chatservice.ErrConflict), http.StatusConflict},
		{fmt.Errorf("%w: disk full", chatservice.ErrAttachmentUpload), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Fatalf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestEmojiParamDecodes(t *testing.T) {
	var got string
	r := chi.NewRouter()
	r.Delete("/messages/{messageID}/reactions/{emoji}", func(w http.ResponseWriter, r *http.Request) {
		got = emojiParam(r)
	})

	req := httptest.NewRequest(http.MethodDelete, "/messages/1/reactions/%F0%9F%8E%89", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	if got != "🎉" {
		t.Fatalf("expected decoded emoji, got %q", got)
	}
}

func TestIsMultipart(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Content-Type", "multipart/form-data; boundary=xyz")
	if !isMultipart(req) {
		t.Fatal("expected multipart request")
	}
	req.Header.Set("Content-Type", "application/json")
	if isMultipart(req) {
		t.Fatal("json request detected as multipart")
	}
}
