package persona

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/kevingma/slack-clone-v6/internal/model/persona"
	"github.com/kevingma/slack-clone-v6/internal/store"
	"github.com/kevingma/slack-clone-v6/pkg/utils"
)

// Service persona生命周期接口
type Service interface {
	Get(ctx context.Context, userID int64) (persona.Persona, error)
	Ensure(ctx context.Context, userID int64) (string, error)
}

// Handler persona服务的HTTP处理器
type Handler struct {
	personas Service
	logger   zerolog.Logger
}

// New 创建persona处理器
func New(personas Service, logger zerolog.Logger) *Handler {
	return &Handler{
		personas: personas,
		logger:   logger.With().Str("component", "persona_handler").Logger(),
	}
}

// RegisterRoutes 注册persona相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/users/{userID}/persona", h.handleGetPersona)
	r.Post("/users/{userID}/persona", h.handleGeneratePersona)
}

// handleGetPersona 查询用户persona，不触发生成；尚未生成时返回404
func (h *Handler) handleGetPersona(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	p, err := h.personas.Get(r.Context(), userID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if !p.Generated {
		utils.RespondError(w, http.StatusNotFound, "persona not generated yet")
		return
	}
	utils.RespondJSON(w, http.StatusOK, p)
}

// handleGeneratePersona 确保用户persona存在，已有时直接返回
func (h *Handler) handleGeneratePersona(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	// Generation outlives a disconnecting client; the result is cached.
	ctx := context.WithoutCancel(r.Context())
	if _, err := h.personas.Ensure(ctx, userID); err != nil {
		h.respondError(w, err)
		return
	}
	p, err := h.personas.Get(ctx, userID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, p)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		utils.RespondError(w, http.StatusNotFound, "user not found")
		return
	}
	h.logger.Error().Err(err).Msg("persona request failed")
	utils.RespondError(w, http.StatusInternalServerError, "internal error")
}

func userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || id <= 0 {
		utils.RespondError(w, http.StatusBadRequest, "invalid userID")
		return 0, false
	}
	return id, true
}
