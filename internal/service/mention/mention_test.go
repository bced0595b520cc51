package mention

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevingma/slack-clone-v6/internal/store"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{name: "no mentions", content: "hello team", want: nil},
		{name: "single", content: "@bob check this out", want: []string{"bob"}},
		{name: "several in order", content: "hey @carol and @bob_2", want: []string{"carol", "bob_2"}},
		{name: "duplicates collapse", content: "@bob @bob @alice @bob", want: []string{"bob", "alice"}},
		{name: "punctuation ends token", content: "thanks @bob! (@alice)", want: []string{"bob", "alice"}},
		{name: "bare at sign", content: "meet @ 5pm", want: nil},
		{name: "email address", content: "mail bob@example.com", want: []string{"example"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.content))
		})
	}
}

func TestResolver(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	bob, err := s.CreateUser(ctx, "bob@example.com", "bob", false)
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, "", "persona-bot", true)
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, "sam1@example.com", "sam", false)
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, "sam2@example.com", "sam", false)
	require.NoError(t, err)

	r := NewResolver(s)

	t.Run("exact match", func(t *testing.T) {
		u, ok, err := r.Resolve(ctx, "bob")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, bob.ID, u.ID)
	})

	t.Run("case sensitive", func(t *testing.T) {
		_, ok, err := r.Resolve(ctx, "Bob")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unknown", func(t *testing.T) {
		_, ok, err := r.Resolve(ctx, "nobody")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("ambiguous", func(t *testing.T) {
		_, ok, err := r.Resolve(ctx, "sam")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("bot is never a target", func(t *testing.T) {
		_, ok, err := r.Resolve(ctx, "persona-bot")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
