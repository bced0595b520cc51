package chat

import (
	"errors"
	"mime"
	"net/http"
	"strconv"

	chatService "github.com/kevingma/slack-clone-v6/internal/service/chat"
	"github.com/kevingma/slack-clone-v6/pkg/utils"
)

// handlePostWorkspaceMessage 向工作区发送消息，未指定频道时进入 #general
func (h *Handler) handlePostWorkspaceMessage(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := idParam(w, r, "workspaceID")
	if !ok {
		return
	}
	var payload struct {
		Content   string `json:"content"`
		ChannelID *int64 `json:"channelId"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.chatSvc.PostMessage(r.Context(), chatService.PostMessageInput{
		AuthorID:    callerID(r),
		WorkspaceID: workspaceID,
		ChannelID:   payload.ChannelID,
		Content:     payload.Content,
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, msg)
}

// handlePostChannelMessage 向频道发送消息，支持JSON或带文件的multipart
func (h *Handler) handlePostChannelMessage(w http.ResponseWriter, r *http.Request) {
	channelID, ok := idParam(w, r, "channelID")
	if !ok {
		return
	}
	in := chatService.PostMessageInput{AuthorID: callerID(r), ChannelID: &channelID}

	if !isMultipart(r) {
		var payload struct {
			Content string `json:"content"`
		}
		if err := utils.DecodeJSON(w, r, &payload); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		in.Content = payload.Content

		msg, err := h.chatSvc.PostMessage(r.Context(), in)
		if err != nil {
			h.respondServiceError(w, r, err)
			return
		}
		utils.RespondJSON(w, http.StatusCreated, msg)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+1<<20)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()
	in.Content = r.FormValue("content")

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		msg, err := h.chatSvc.PostMessage(r.Context(), in)
		if err != nil {
			h.respondServiceError(w, r, err)
			return
		}
		utils.RespondJSON(w, http.StatusCreated, msg)
		return
	}
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid file part")
		return
	}
	defer file.Close()

	msg, attachment, err := h.chatSvc.PostMessageWithAttachment(r.Context(), in, header.Filename, file)
	if err != nil {
		if msg.ID != 0 {
			// The message exists; only the attachment is missing.
			h.logger.Warn().Err(err).Int64("message_id", msg.ID).Msg("message posted without its attachment")
			utils.RespondJSON(w, StatusFor(err), map[string]any{
				"error":     err.Error(),
				"messageId": msg.ID,
			})
			return
		}
		h.respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, map[string]any{
		"message":    msg,
		"attachment": attachment,
	})
}

// handleListMessages 拉取频道消息，after 参数用于轮询增量
func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	channelID, ok := idParam(w, r, "channelID")
	if !ok {
		return
	}
	var afterID int64
	if raw := r.URL.Query().Get("after"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			utils.RespondError(w, http.StatusBadRequest, "invalid after")
			return
		}
		afterID = v
	}

	views, err := h.chatSvc.ListMessages(r.Context(), callerID(r), channelID, afterID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, views)
}

// handleAddReaction 添加表情回应
func (h *Handler) handleAddReaction(w http.ResponseWriter, r *http.Request) {
	messageID, ok := idParam(w, r, "messageID")
	if !ok {
		return
	}
	var payload struct {
		Emoji string `json:"emoji"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	reaction, created, err := h.chatSvc.AddReaction(r.Context(), callerID(r), messageID, payload.Emoji)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, createdStatus(created), reaction)
}

// handleRemoveReaction 移除表情回应
func (h *Handler) handleRemoveReaction(w http.ResponseWriter, r *http.Request) {
	messageID, ok := idParam(w, r, "messageID")
	if !ok {
		return
	}
	emoji := emojiParam(r)
	if err := h.chatSvc.RemoveReaction(r.Context(), callerID(r), messageID, emoji); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUploadAttachment 为已有消息上传附件
func (h *Handler) handleUploadAttachment(w http.ResponseWriter, r *http.Request) {
	messageID, ok := idParam(w, r, "messageID")
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+1<<20)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	attachment, err := h.chatSvc.UploadAttachment(r.Context(), callerID(r), messageID, header.Filename, file)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, attachment)
}

// handleSearch 搜索可访问频道中的消息
func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	results, err := h.chatSvc.Search(r.Context(), callerID(r), r.URL.Query().Get("q"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, results)
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}
