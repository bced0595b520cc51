package persona

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/kevingma/slack-clone-v6/internal/model/persona"
)

// Synthesizer turns message history into a persona descriptor.
type Synthesizer interface {
	SynthesizePersona(ctx context.Context, history []string) string
}

// Locker serialises persona generation across processes.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// Service lazily derives and caches user personas. Concurrent callers for
// the same user share one generation call.
type Service struct {
	store   persona.Store
	synth   Synthesizer
	locker  Locker
	lockTTL time.Duration
	group   singleflight.Group
	logger  zerolog.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithLocker enables cross-process locking around generation.
func WithLocker(l Locker, ttl time.Duration) Option {
	return func(s *Service) {
		s.locker = l
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

// NewService creates a persona service.
func NewService(store persona.Store, synth Synthesizer, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		store:   store,
		synth:   synth,
		lockTTL: 45 * time.Second,
		logger:  logger.With().Str("component", "persona").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ensure returns the user's persona, generating and storing it first if the
// user has none. A cached persona is returned verbatim.
func (s *Service) Ensure(ctx context.Context, userID int64) (string, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.HasPersona() {
		return *user.Persona, nil
	}

	v, err, shared := s.group.Do(strconv.FormatInt(userID, 10), func() (any, error) {
		return s.generate(ctx, userID)
	})
	if err != nil {
		return "", err
	}
	if shared {
		s.logger.Debug().Int64("user_id", userID).Msg("joined in-flight persona generation")
	}
	return v.(string), nil
}

func (s *Service) generate(ctx context.Context, userID int64) (string, error) {
	if s.locker != nil {
		lockCtx, cancel := context.WithTimeout(ctx, s.lockTTL)
		release, err := s.locker.Acquire(lockCtx, "persona:"+strconv.FormatInt(userID, 10), s.lockTTL)
		cancel()
		if err != nil {
			s.logger.Warn().Err(err).Int64("user_id", userID).Msg("persona lock unavailable, generating without it")
		} else {
			defer release()
		}
	}

	// Another process may have finished while we waited for the lock.
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.HasPersona() {
		return *user.Persona, nil
	}

	messages, err := s.store.ListUserMessages(ctx, userID)
	if err != nil {
		return "", err
	}
	history := make([]string, 0, len(messages))
	for _, m := range messages {
		history = append(history, m.Content)
	}

	descriptor := s.synth.SynthesizePersona(ctx, history)
	if descriptor == "" {
		descriptor = persona.DefaultDescriptor
	}
	if err := s.store.SetPersona(ctx, userID, descriptor); err != nil {
		return "", err
	}

	s.logger.Info().Int64("user_id", userID).Int("history_len", len(history)).Msg("persona generated")
	return descriptor, nil
}

// Get returns the persona view of a user without generating anything.
func (s *Service) Get(ctx context.Context, userID int64) (persona.Persona, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return persona.Persona{}, err
	}

	p := persona.Persona{UserID: user.ID, DisplayName: user.DisplayName}
	if user.HasPersona() {
		p.Descriptor = *user.Persona
		p.Generated = true
	}
	return p, nil
}
