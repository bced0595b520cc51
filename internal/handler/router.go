package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/kevingma/slack-clone-v6/internal/handler/chat"
	"github.com/kevingma/slack-clone-v6/internal/handler/persona"
	"github.com/kevingma/slack-clone-v6/internal/middleware"
	chatService "github.com/kevingma/slack-clone-v6/internal/service/chat"
	"github.com/kevingma/slack-clone-v6/pkg/utils"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps groups what the router needs.
type Deps struct {
	Chat        *chatService.Service
	Personas    persona.Service
	Health      Pinger
	Redis       Pinger // checked by /health when the persona lock is enabled
	RateLimiter *middleware.RateLimiter
	// FilesDir is served at /files/ when set.
	FilesDir  string
	MaxUpload int64
	Logger    zerolog.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Metrics)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.UserIDHeader},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	chatHandler := chat.New(deps.Chat, deps.MaxUpload, deps.Logger)
	personaHandler := persona.New(deps.Personas, deps.Logger)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", healthHandler(deps.Health, deps.Redis))
	if deps.FilesDir != "" {
		r.Handle("/files/*", http.StripPrefix("/files/", http.FileServer(http.Dir(deps.FilesDir))))
	}

	r.Route("/api", func(api chi.Router) {
		api.Group(func(public chi.Router) {
			if deps.RateLimiter != nil {
				public.Use(deps.RateLimiter.Middleware)
			}
			chatHandler.RegisterPublicRoutes(public)
		})

		api.Group(func(authed chi.Router) {
			authed.Use(middleware.Identity(deps.Chat, middleware.ErrIs(chatService.ErrNotFound), deps.Logger))
			if deps.RateLimiter != nil {
				authed.Use(deps.RateLimiter.Middleware)
			}
			chatHandler.RegisterRoutes(authed)
			personaHandler.RegisterRoutes(authed)
		})
	})

	return r
}

func healthHandler(st, redis Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		for name, p := range map[string]Pinger{"store": st, "redis": redis} {
			if p == nil {
				continue
			}
			if err := p.Ping(ctx); err != nil {
				status[name] = err.Error()
				status["status"] = "degraded"
				code = http.StatusServiceUnavailable
			}
		}
		utils.RespondJSON(w, code, status)
	}
}
