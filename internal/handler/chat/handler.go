package chat

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/kevingma/slack-clone-v6/internal/middleware"
	chatService "github.com/kevingma/slack-clone-v6/internal/service/chat"
	"github.com/kevingma/slack-clone-v6/pkg/utils"
)

const defaultMaxUpload = 10 << 20

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc   *chatService.Service
	maxUpload int64
	logger    zerolog.Logger
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service, maxUpload int64, logger zerolog.Logger) *Handler {
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}
	return &Handler{
		chatSvc:   chatSvc,
		maxUpload: maxUpload,
		logger:    logger.With().Str("component", "chat_handler").Logger(),
	}
}

// RegisterPublicRoutes 注册无需身份的路由
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/users", h.handleRegister)
}

// RegisterRoutes 注册需要身份的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/users/me", h.handleMe)
	r.Put("/users/me/display-name", h.handleUpdateDisplayName)

	r.Post("/workspaces", h.handleCreateWorkspace)
	r.Get("/workspaces", h.handleListWorkspaces)
	r.Post("/workspaces/{workspaceID}/members", h.handleAddMember)
	r.Get("/workspaces/{workspaceID}/channels", h.handleListChannels)
	r.Post("/workspaces/{workspaceID}/channels", h.handleCreateChannel)
	r.Post("/workspaces/{workspaceID}/messages", h.handlePostWorkspaceMessage)

	r.Delete("/channels/{channelID}", h.handleDeleteChannel)
	r.Get("/channels/{channelID}/messages", h.handleListMessages)
	r.Post("/channels/{channelID}/messages", h.handlePostChannelMessage)

	r.Post("/messages/{messageID}/thread", h.handleOpenThread)
	r.Post("/messages/{messageID}/reactions", h.handleAddReaction)
	r.Delete("/messages/{messageID}/reactions/{emoji}", h.handleRemoveReaction)
	r.Post("/messages/{messageID}/attachments", h.handleUploadAttachment)

	r.Post("/dms", h.handleOpenDM)
	r.Get("/dms", h.handleListDMs)

	r.Get("/search", h.handleSearch)
}

// respondServiceError 将服务层错误映射为HTTP状态码
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		if status == http.StatusInternalServerError {
			utils.RespondError(w, status, "internal error")
			return
		}
	}
	utils.RespondError(w, status, err.Error())
}

// StatusFor maps a chat service error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, chatService.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, chatService.ErrForbidden), errors.Is(err, chatService.ErrProtectedChannel):
		return http.StatusForbidden
	case errors.Is(err, chatService.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, chatService.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, chatService.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, chatService.ErrAttachmentUpload):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// idParam 解析路径中的数字ID
func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		utils.RespondError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// emojiParam 返回解码后的表情参数
func emojiParam(r *http.Request) string {
	raw := chi.URLParam(r, "emoji")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

func callerID(r *http.Request) int64 {
	return middleware.UserID(r.Context())
}
