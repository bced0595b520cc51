package chat

import (
	"net/http"

	chatService "github.com/kevingma/slack-clone-v6/internal/service/chat"
	"github.com/kevingma/slack-clone-v6/pkg/utils"
)

// handleRegister 注册用户
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email       string `json:"email"`
		DisplayName string `json:"displayName"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.chatSvc.RegisterUser(r.Context(), payload.Email, payload.DisplayName)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, user)
}

// handleMe 返回当前用户
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.chatSvc.GetUser(r.Context(), callerID(r))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, user)
}

// handleUpdateDisplayName 修改显示名
func (h *Handler) handleUpdateDisplayName(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		DisplayName string `json:"displayName"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.chatSvc.UpdateDisplayName(r.Context(), callerID(r), payload.DisplayName)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, user)
}

// handleCreateWorkspace 创建工作区
func (h *Handler) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name string `json:"name"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ws, err := h.chatSvc.CreateWorkspace(r.Context(), callerID(r), payload.Name)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, ws)
}

// handleListWorkspaces 列出当前用户的工作区
func (h *Handler) handleListWorkspaces(w http.ResponseWriter, r *http.Request) {
	workspaces, err := h.chatSvc.ListWorkspaces(r.Context(), callerID(r))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, workspaces)
}

// handleAddMember 添加成员（仅限所有者）
func (h *Handler) handleAddMember(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := idParam(w, r, "workspaceID")
	if !ok {
		return
	}
	var payload struct {
		UserID int64  `json:"userId"`
		Email  string `json:"email"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	member, err := h.chatSvc.AddMember(r.Context(), callerID(r), workspaceID, chatService.AddMemberInput{
		UserID: payload.UserID,
		Email:  payload.Email,
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, member)
}
