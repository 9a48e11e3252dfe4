package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/service"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/storage"
)

func (h *Handler) PreferencesGet(c *gin.Context) {
	p, err := h.Service.GetPreferences(c.Request.Context(), actor(c))
	if err != nil {
		h.fail(c, err, "Failed to load preferences")
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Update preferences
// @Tags account
// @Accept json
// @Produce json
// @Param payload body service.PreferencesInput true "Preferences"
// @Success 200 {object} models.CustomerPreferences
// @Router /api/preferences [put]
func (h *Handler) PreferencesUpdate(c *gin.Context) {
	var req service.PreferencesInput
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.Service.UpdatePreferences(c.Request.Context(), actor(c), req)
	if err != nil {
		h.fail(c, err, "Failed to save preferences")
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Upload background
// @Description Stores an image in the customer-backgrounds bucket and makes it the dashboard background.
// @Tags account
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image"
// @Success 200 {object} models.CustomerPreferences
// @Router /api/preferences/background [post]
func (h *Handler) BackgroundUpload(c *gin.Context) {
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

	who := actor(c)
	obj, ok := h.upload(c, storage.BucketBackgrounds, who.ID, f)
	if !ok {
		return
	}
	p, err := h.Service.UpdatePreferences(c.Request.Context(), who, service.PreferencesInput{BackgroundURL: &obj.PublicURL})
	if err != nil {
		h.fail(c, err, "Failed to save preferences")
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) NotificationsList(c *gin.Context) {
	unread, _ := strconv.ParseBool(c.DefaultQuery("unread", "false"))
	items, err := h.Service.ListNotifications(c.Request.Context(), actor(c), unread)
	if err != nil {
		h.fail(c, err, "Failed to list notifications")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) NotificationRead(c *gin.Context) {
	if err := h.Service.MarkNotificationRead(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		h.fail(c, err, "Failed to mark notification read")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) NotificationsReadAll(c *gin.Context) {
	n, err := h.Service.MarkAllNotificationsRead(c.Request.Context(), actor(c))
	if err != nil {
		h.fail(c, err, "Failed to mark notifications read")
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

// @Summary Request notification permission
// @Description Asks the active notification backend for permission to notify the current user.
// @Tags account
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/notifications/permission [post]
func (h *Handler) NotificationPermission(c *gin.Context) {
	granted := false
	backend := "none"
	if h.Permissions != nil {
		granted = h.Permissions.RequestPermission(c.Request.Context(), actor(c).ID)
		backend = h.Permissions.Backend()
	}
	c.JSON(http.StatusOK, gin.H{"granted": granted, "backend": backend})
}
