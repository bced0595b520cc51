package chat

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/kevingma/slack-clone-v6/internal/service/ai"
	"github.com/kevingma/slack-clone-v6/internal/service/mention"
	"github.com/kevingma/slack-clone-v6/internal/storage"
	"github.com/kevingma/slack-clone-v6/internal/store"
)

const (
	defaultBotName     = "persona-bot"
	defaultSearchLimit = 50
)

// PersonaEnsurer returns a user's persona, generating it on first use.
type PersonaEnsurer interface {
	Ensure(ctx context.Context, userID int64) (string, error)
}

// ReplySynthesizer writes a reply in a user's voice. It never fails.
type ReplySynthesizer interface {
	SynthesizeReply(ctx context.Context, req ai.ReplyRequest) string
}

// Config tunes the chat service.
type Config struct {
	BotDisplayName string
	SearchLimit    int
}

// Service implements the channel graph, the message log with its mention
// pipeline, reactions, search and attachments on top of a DataStore.
type Service struct {
	store    store.DataStore
	personas PersonaEnsurer
	replies  ReplySynthesizer
	resolver *mention.Resolver
	uploader storage.Uploader
	cfg      Config
	logger   zerolog.Logger

	botMu sync.Mutex
	botID int64
}

// NewService wires the chat service. uploader may be nil when attachments
// are not configured.
func NewService(st store.DataStore, personas PersonaEnsurer, replies ReplySynthesizer, uploader storage.Uploader, cfg Config, logger zerolog.Logger) *Service {
	if cfg.BotDisplayName == "" {
		cfg.BotDisplayName = defaultBotName
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = defaultSearchLimit
	}
	return &Service{
		store:    st,
		personas: personas,
		replies:  replies,
		resolver: mention.NewResolver(st),
		uploader: uploader,
		cfg:      cfg,
		logger:   logger.With().Str("component", "chat").Logger(),
	}
}

// EnsureBotUser finds or creates the reserved identity that authors
// generated replies, and returns its id.
func (s *Service) EnsureBotUser(ctx context.Context) (int64, error) {
	s.botMu.Lock()
	defer s.botMu.Unlock()

	if s.botID != 0 {
		return s.botID, nil
	}

	candidates, err := s.store.FindUsersByDisplayName(ctx, s.cfg.BotDisplayName)
	if err != nil {
		return 0, fmt.Errorf("lookup bot user: %w", err)
	}
	for _, u := range candidates {
		if u.IsBot {
			s.botID = u.ID
			return s.botID, nil
		}
	}

	bot, err := s.store.CreateUser(ctx, "", s.cfg.BotDisplayName, true)
	if err != nil {
		return 0, fmt.Errorf("create bot user: %w", err)
	}
	s.logger.Info().Int64("bot_id", bot.ID).Str("display_name", bot.DisplayName).Msg("bot user created")
	s.botID = bot.ID
	return s.botID, nil
}

func requireCaller(userID int64) error {
	if userID <= 0 {
		return ErrUnauthenticated
	}
	return nil
}
