package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kevingma/slack-clone-v6/internal/config"
	"github.com/kevingma/slack-clone-v6/internal/handler"
	"github.com/kevingma/slack-clone-v6/internal/middleware"
	"github.com/kevingma/slack-clone-v6/internal/service/ai"
	"github.com/kevingma/slack-clone-v6/internal/service/chat"
	"github.com/kevingma/slack-clone-v6/internal/service/persona"
	"github.com/kevingma/slack-clone-v6/internal/storage"
	"github.com/kevingma/slack-clone-v6/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := newLogger(cfg.Server)
	log.Logger = logger
	if envErr != nil {
		logger.Debug().Err(envErr).Msg("no .env file, using system environment variables only")
	}

	dataStore, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("store initialization failed")
	}
	defer dataStore.Close()

	// Initialize AI service; without credentials every generation falls back to fixed text
	var chatModel model.ChatModel
	if cfg.AI.Enabled() {
		chatModel, err = cfg.AI.NewChatModel(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to initialize chat model, continuing with fallback replies")
			chatModel = nil
		}
	} else {
		logger.Info().Msg("Ark 凭证未配置，persona 与回复将使用默认文本")
	}
	aiService, err := ai.NewService(ctx, chatModel, ai.Config{
		Timeout:          cfg.AI.GenerationTimeout,
		PersonaMaxTokens: cfg.AI.PersonaMaxTokens,
		ReplyMaxTokens:   cfg.AI.ReplyMaxTokens,
		Stream:           cfg.AI.StreamResponse,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize AI service")
	}
	logger.Info().Bool("enabled", aiService.Enabled()).Bool("stream", aiService.StreamingEnabled()).Msg("AI service ready")

	var (
		personaOpts []persona.Option
		redisHealth handler.Pinger
	)
	if cfg.Store.RedisURL != "" {
		locker, err := store.NewRedisLocker(ctx, cfg.Store.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer locker.Close()
		personaOpts = append(personaOpts, persona.WithLocker(locker, 2*cfg.AI.GenerationTimeout))
		redisHealth = locker
		logger.Info().Msg("connected to Redis, persona generation lock enabled")
	}
	personaService := persona.NewService(dataStore, aiService, logger, personaOpts...)

	uploader, err := storage.NewLocalUploader(cfg.Attachment.Dir, cfg.Attachment.BaseURL, cfg.Attachment.MaxBytes)
	if err != nil {
		logger.Fatal().Err(err).Msg("attachment storage initialization failed")
	}

	chatService := chat.NewService(dataStore, personaService, aiService, uploader, chat.Config{
		BotDisplayName: cfg.Bot.DisplayName,
	}, logger)
	botID, err := chatService.EnsureBotUser(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to provision bot user")
	}
	logger.Info().Int64("bot_id", botID).Str("display_name", cfg.Bot.DisplayName).Msg("bot user ready")

	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		PerMinute: cfg.RateLimit.PerMinute,
		Burst:     cfg.RateLimit.Burst,
	}, logger)
	go sweepLimiter(ctx, limiter)

	router := handler.NewRouter(handler.Deps{
		Chat:        chatService,
		Personas:    personaService,
		Health:      dataStore,
		Redis:       redisHealth,
		RateLimiter: limiter,
		FilesDir:    uploader.Dir(),
		MaxUpload:   cfg.Attachment.MaxBytes,
		Logger:      logger,
	})

	startServer(ctx, cfg.Server, router, logger)
}

func newLogger(cfg config.ServerConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.IsProduction() {
		logger = zerolog.New(os.Stdout)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	return logger.Level(level).With().Timestamp().Logger()
}

func openStore(ctx context.Context, cfg config.StoreConfig, logger zerolog.Logger) (store.DataStore, error) {
	switch cfg.Driver {
	case "postgres":
		pg, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		logger.Info().Msg("connected to PostgreSQL")
		return pg, nil
	case "sqlite":
		sq, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("path", cfg.SQLitePath).Msg("opened SQLite database")
		return sq, nil
	default:
		logger.Warn().Msg("using in-memory store, data is lost on restart")
		return store.NewMemoryStore(), nil
	}
}

func sweepLimiter(ctx context.Context, limiter *middleware.RateLimiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Sweep()
		}
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger zerolog.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info().Str("addr", addr).Str("env", serverCfg.Env).Msg("chat backend listening")
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
	logger.Info().Msg("server stopped")
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
