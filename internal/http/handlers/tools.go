package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/sound"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/vin"
)

// @Summary Notification sound
// @Tags sounds
// @Produce audio/wav
// @Param cue path string true "message, payment, status or alert"
// @Success 200 {file} binary
// @Router /api/sounds/{cue} [get]
func (h *Handler) Sound(c *gin.Context) {
	data, err := h.Synth.Cue(c.Param("cue"))
	if errors.Is(err, sound.ErrUnknownCue) {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Unknown sound cue", sound.Cues())
		return
	}
	if err != nil {
		h.fail(c, err, "Failed to render sound")
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "audio/wav", data)
}

type VINRequest struct {
	VIN string `json:"vin"`
}

// @Summary Validate VIN
// @Tags tickets
// @Accept json
// @Produce json
// @Param payload body VINRequest true "VIN"
// @Success 200 {object} map[string]any
// @Router /api/vin/validate [post]
func (h *Handler) VINValidate(c *gin.Context) {
	var req VINRequest
	if !bindJSON(c, &req) {
		return
	}
	msg := vin.Validate(req.VIN)
	resp := gin.H{"valid": msg == "", "normalized": vin.Normalize(req.VIN)}
	if msg != "" {
		resp["message"] = msg
	}
	c.JSON(http.StatusOK, resp)
}
