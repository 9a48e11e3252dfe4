package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Summary Customer dashboard
// @Tags dashboard
// @Produce json
// @Success 200 {object} service.CustomerDashboard
// @Router /api/dashboard/customer [get]
func (h *Handler) DashboardCustomer(c *gin.Context) {
	d, err := h.Service.CustomerDashboard(c.Request.Context(), actor(c))
	if err != nil {
		h.fail(c, err, "Failed to load dashboard")
		return
	}
	c.JSON(http.StatusOK, d)
}

// @Summary Technician dashboard
// @Tags dashboard
// @Produce json
// @Success 200 {object} service.TechnicianDashboard
// @Router /api/dashboard/technician [get]
func (h *Handler) DashboardTechnician(c *gin.Context) {
	d, err := h.Service.TechnicianDashboard(c.Request.Context(), actor(c))
	if err != nil {
		h.fail(c, err, "Failed to load dashboard")
		return
	}
	c.JSON(http.StatusOK, d)
}

// @Summary Admin dashboard
// @Tags dashboard
// @Produce json
// @Success 200 {object} service.AdminDashboard
// @Router /api/dashboard/admin [get]
func (h *Handler) DashboardAdmin(c *gin.Context) {
	d, err := h.Service.AdminDashboard(c.Request.Context(), actor(c))
	if err != nil {
		h.fail(c, err, "Failed to load dashboard")
		return
	}
	c.JSON(http.StatusOK, d)
}
