package persona

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevingma/slack-clone-v6/internal/model/chat"
	"github.com/kevingma/slack-clone-v6/internal/model/persona"
	"github.com/kevingma/slack-clone-v6/internal/store"
)

type countingSynth struct {
	calls   atomic.Int32
	delay   time.Duration
	reply   string
	history [][]string
	mu      sync.Mutex
}

func (c *countingSynth) SynthesizePersona(_ context.Context, history []string) string {
	c.calls.Add(1)
	c.mu.Lock()
	c.history = append(c.history, history)
	c.mu.Unlock()
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	return c.reply
}

type fakeLocker struct {
	acquired atomic.Int32
	released atomic.Int32
	err      error
}

func (f *fakeLocker) Acquire(context.Context, string, time.Duration) (func(), error) {
	if f.err != nil {
		return nil, f.err
	}
	f.acquired.Add(1)
	return func() { f.released.Add(1) }, nil
}

func seedUser(t *testing.T, s *store.MemoryStore, name string, messages ...string) chat.User {
	t.Helper()
	ctx := context.Background()

	u, err := s.CreateUser(ctx, name+"@example.com", name, false)
	require.NoError(t, err)
	if len(messages) == 0 {
		return u
	}

	ws, err := s.CreateWorkspace(ctx, "ws-"+name, u.ID)
	require.NoError(t, err)
	ch, err := s.CreateChannel(ctx, chat.Channel{WorkspaceID: &ws.ID, Name: "general"})
	require.NoError(t, err)
	for _, m := range messages {
		_, err := s.CreateMessage(ctx, ch.ID, u.ID, m)
		require.NoError(t, err)
	}
	return u
}

func TestEnsureGeneratesAndStores(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	bob := seedUser(t, s, "bob", "ship it", "lgtm", "on it")

	synth := &countingSynth{reply: "Terse and positive."}
	svc := NewService(s, synth, zerolog.Nop())

	got, err := svc.Ensure(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "Terse and positive.", got)
	assert.Equal(t, int32(1), synth.calls.Load())
	assert.Equal(t, [][]string{{"ship it", "lgtm", "on it"}}, synth.history)

	stored, err := s.GetUser(ctx, bob.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Persona)
	assert.Equal(t, "Terse and positive.", *stored.Persona)
}

func TestEnsureReusesCachedPersona(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	bob := seedUser(t, s, "bob", "hello")
	require.NoError(t, s.SetPersona(ctx, bob.ID, "Already known."))

	synth := &countingSynth{reply: "should not be used"}
	svc := NewService(s, synth, zerolog.Nop())

	for i := 0; i < 3; i++ {
		got, err := svc.Ensure(ctx, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, "Already known.", got)
	}
	assert.Zero(t, synth.calls.Load())
}

func TestEnsureSingleFlight(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	bob := seedUser(t, s, "bob", "hey")

	synth := &countingSynth{reply: "Casual.", delay: 50 * time.Millisecond}
	svc := NewService(s, synth, zerolog.Nop())

	const callers = 8
	var wg sync.WaitGroup
	results := make([]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := svc.Ensure(ctx, bob.ID)
			assert.NoError(t, err)
			results[i] = got
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), synth.calls.Load())
	for _, r := range results {
		assert.Equal(t, "Casual.", r)
	}
}

func TestEnsureEmptyResultStoresDefault(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	carol := seedUser(t, s, "carol")

	svc := NewService(s, &countingSynth{reply: ""}, zerolog.Nop())

	got, err := svc.Ensure(ctx, carol.ID)
	require.NoError(t, err)
	assert.Equal(t, persona.DefaultDescriptor, got)

	p, err := svc.Get(ctx, carol.ID)
	require.NoError(t, err)
	assert.True(t, p.Generated)
	assert.Equal(t, persona.DefaultDescriptor, p.Descriptor)
}

func TestEnsureUnknownUser(t *testing.T) {
	svc := NewService(store.NewMemoryStore(), &countingSynth{}, zerolog.Nop())

	_, err := svc.Ensure(context.Background(), 404)
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestEnsureUsesLocker(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	bob := seedUser(t, s, "bob", "hi")

	t.Run("lock held around generation", func(t *testing.T) {
		locker := &fakeLocker{}
		svc := NewService(s, &countingSynth{reply: "Brief."}, zerolog.Nop(), WithLocker(locker, time.Second))

		_, err := svc.Ensure(ctx, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, int32(1), locker.acquired.Load())
		assert.Equal(t, int32(1), locker.released.Load())
	})

	t.Run("lock failure still generates", func(t *testing.T) {
		dave := seedUser(t, s, "dave", "yo")
		synth := &countingSynth{reply: "Chill."}
		svc := NewService(s, synth, zerolog.Nop(), WithLocker(&fakeLocker{err: store.ErrLockHeld}, time.Second))

		got, err := svc.Ensure(ctx, dave.ID)
		require.NoError(t, err)
		assert.Equal(t, "Chill.", got)
		assert.Equal(t, int32(1), synth.calls.Load())
	})
}

func TestGetWithoutPersona(t *testing.T) {
	s := store.NewMemoryStore()
	erin := seedUser(t, s, "erin")
	svc := NewService(s, &countingSynth{}, zerolog.Nop())

	p, err := svc.Get(context.Background(), erin.ID)
	require.NoError(t, err)
	assert.False(t, p.Generated)
	assert.Empty(t, p.Descriptor)
	assert.Equal(t, "erin", p.DisplayName)
}
