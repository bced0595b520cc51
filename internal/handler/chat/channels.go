package chat

import (
	"net/http"

	chatService "github.com/kevingma/slack-clone-v6/internal/service/chat"
	"github.com/kevingma/slack-clone-v6/pkg/utils"
)

// handleListChannels 列出工作区频道
func (h *Handler) handleListChannels(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := idParam(w, r, "workspaceID")
	if !ok {
		return
	}
	channels, err := h.chatSvc.ListChannels(r.Context(), callerID(r), workspaceID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, channels)
}

// handleCreateChannel 创建频道
func (h *Handler) handleCreateChannel(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := idParam(w, r, "workspaceID")
	if !ok {
		return
	}
	var payload struct {
		Name string `json:"name"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ch, err := h.chatSvc.CreateChannel(r.Context(), callerID(r), workspaceID, payload.Name)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, ch)
}

// handleDeleteChannel 删除频道，#general 受保护
func (h *Handler) handleDeleteChannel(w http.ResponseWriter, r *http.Request) {
	channelID, ok := idParam(w, r, "channelID")
	if !ok {
		return
	}
	if err := h.chatSvc.DeleteChannel(r.Context(), callerID(r), channelID); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleOpenThread 打开（或创建）消息的讨论串
func (h *Handler) handleOpenThread(w http.ResponseWriter, r *http.Request) {
	messageID, ok := idParam(w, r, "messageID")
	if !ok {
		return
	}
	var payload struct {
		WorkspaceID int64 `json:"workspaceId"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.WorkspaceID <= 0 {
		utils.RespondError(w, http.StatusBadRequest, "workspaceId is required")
		return
	}

	thread, created, err := h.chatSvc.OpenThread(r.Context(), callerID(r), messageID, payload.WorkspaceID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, createdStatus(created), thread)
}

// handleOpenDM 打开（或创建）私信频道
func (h *Handler) handleOpenDM(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UserID int64  `json:"userId"`
		Email  string `json:"email"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ch, created, err := h.chatSvc.OpenDM(r.Context(), callerID(r), chatService.OpenDMInput{
		OtherUserID:    payload.UserID,
		OtherUserEmail: payload.Email,
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, createdStatus(created), ch)
}

// handleListDMs 列出私信频道
func (h *Handler) handleListDMs(w http.ResponseWriter, r *http.Request) {
	channels, err := h.chatSvc.ListDMs(r.Context(), callerID(r))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, channels)
}

func createdStatus(created bool) int {
	if created {
		return http.StatusCreated
	}
	return http.StatusOK
}
