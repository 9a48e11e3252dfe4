package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/service"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/storage"
)

func (h *Handler) MessagesList(c *gin.Context) {
	items, err := h.Service.ListMessages(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to list messages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// @Summary Send message
// @Description Chat opens once work on the ticket is authorized.
// @Tags messages
// @Accept json
// @Produce json
// @Param id path string true "Ticket ID"
// @Param payload body service.SendMessageInput true "Message"
// @Success 201 {object} models.TicketMessage
// @Failure 403 {object} map[string]any
// @Router /api/tickets/{id}/messages [post]
func (h *Handler) MessageSend(c *gin.Context) {
	var req service.SendMessageInput
	if !bindJSON(c, &req) {
		return
	}
	m, err := h.Service.SendMessage(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		h.fail(c, err, "Failed to send message")
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *Handler) MessagesRead(c *gin.Context) {
	n, err := h.Service.MarkMessagesRead(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to mark messages read")
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

// @Summary Upload attachment
// @Description Stores the file in the ticket-attachments bucket and posts it as a chat message.
// @Tags messages
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Ticket ID"
// @Param file formData file true "Image, video, audio or PDF"
// @Param message formData string false "Caption"
// @Success 201 {object} models.TicketMessage
// @Failure 413 {object} map[string]any
// @Failure 415 {object} map[string]any
// @Router /api/tickets/{id}/attachments [post]
func (h *Handler) MessageAttachment(c *gin.Context) {
	ctx, who, id := c.Request.Context(), actor(c), c.Param("id")
	t, err := h.Service.GetTicket(ctx, who, id)
	if err != nil {
		h.fail(c, err, "Failed to get ticket")
		return
	}
	if !service.CanChat(t, who) {
		h.fail(c, service.ErrWorkNotAuthorized, "Chat is not open on this ticket")
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Missing file", err.Error())
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Unreadable file", err.Error())
		return
	}
	defer f.Close()

	obj, ok := h.upload(c, storage.BucketAttachments, t.ID, f)
	if !ok {
		return
	}
	m, err := h.Service.SendMessage(ctx, who, id, service.SendMessageInput{
		MessageType: storage.MessageType(obj.MIME),
		Message:     c.PostForm("message"),
		MediaURL:    obj.PublicURL,
	})
	if err != nil {
		h.fail(c, err, "Failed to send attachment")
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *Handler) upload(c *gin.Context, bucket, owner string, r io.Reader) (storage.Object, bool) {
	obj, err := h.Storage.Upload(bucket, owner, r)
	switch {
	case err == nil:
		return obj, true
	case errors.Is(err, storage.ErrTooLarge):
		writeError(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "File exceeds the bucket limit", err.Error())
	case errors.Is(err, storage.ErrBadType):
		writeError(c, http.StatusUnsupportedMediaType, "UNSUPPORTED_TYPE", "File type not allowed", err.Error())
	default:
		h.Logger.Error().Err(err).Str("bucket", bucket).Msg("upload failed")
		writeError(c, http.StatusInternalServerError, "STORAGE_ERROR", "Failed to store file", err.Error())
	}
	return storage.Object{}, false
}
