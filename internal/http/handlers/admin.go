package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) UsersList(c *gin.Context) {
	items, err := h.Service.ListUsers(c.Request.Context(), actor(c), c.Query("role"))
	if err != nil {
		h.fail(c, err, "Failed to list users")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type ReviewRequest struct {
	Approve *bool `json:"approve" binding:"required"`
}

// @Summary Review technician
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body ReviewRequest true "Decision"
// @Success 200 {object} models.Profile
// @Router /api/admin/users/{id}/review [post]
func (h *Handler) TechnicianReview(c *gin.Context) {
	var req ReviewRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.Service.ReviewTechnician(c.Request.Context(), actor(c), c.Param("id"), *req.Approve)
	if err != nil {
		h.fail(c, err, "Failed to review technician")
		return
	}
	c.JSON(http.StatusOK, p)
}

type BlockRequest struct {
	Blocked *bool `json:"blocked" binding:"required"`
}

func (h *Handler) UserBlock(c *gin.Context) {
	var req BlockRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.Service.SetBlocked(c.Request.Context(), actor(c), c.Param("id"), *req.Blocked)
	if err != nil {
		h.fail(c, err, "Failed to update user")
		return
	}
	c.JSON(http.StatusOK, p)
}

type VIPRequest struct {
	Tier string `json:"tier"`
}

// @Summary Set VIP tier
// @Description An empty tier clears VIP status.
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body VIPRequest true "Tier"
// @Success 200 {object} models.Profile
// @Router /api/admin/users/{id}/vip [put]
func (h *Handler) UserVIP(c *gin.Context) {
	var req VIPRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.Service.SetVIPTier(c.Request.Context(), actor(c), c.Param("id"), req.Tier)
	if err != nil {
		h.fail(c, err, "Failed to set VIP tier")
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Delete user
// @Description Removes the user and everything they own in one database call. Not retried on failure.
// @Tags admin
// @Param id path string true "User ID"
// @Success 204
// @Router /api/admin/users/{id} [delete]
func (h *Handler) UserDelete(c *gin.Context) {
	if err := h.Service.DeleteUser(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		h.fail(c, err, "Failed to delete user")
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary Pending payments
// @Tags payments
// @Produce json
// @Success 200 {object} service.PendingPayments
// @Router /api/admin/payments/pending [get]
func (h *Handler) PaymentsPending(c *gin.Context) {
	p, err := h.Service.PendingPayments(c.Request.Context(), actor(c))
	if err != nil {
		h.fail(c, err, "Failed to load pending payments")
		return
	}
	c.JSON(http.StatusOK, p)
}
