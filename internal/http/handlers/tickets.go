package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/models"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/service"
)

// @Summary Create ticket
// @Description Customers open a support ticket for a vehicle. The VIN is optional but must be valid when present.
// @Tags tickets
// @Accept json
// @Produce json
// @Param payload body service.NewTicketInput true "Ticket"
// @Success 201 {object} models.Ticket
// @Failure 400 {object} map[string]any
// @Router /api/tickets [post]
func (h *Handler) TicketCreate(c *gin.Context) {
	var req service.NewTicketInput
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.Service.CreateTicket(c.Request.Context(), actor(c), req)
	if err != nil {
		h.fail(c, err, "Failed to create ticket")
		return
	}
	c.JSON(http.StatusCreated, t)
}

// @Summary List tickets
// @Tags tickets
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Success 200 {object} map[string]any
// @Router /api/tickets [get]
func (h *Handler) TicketsList(c *gin.Context) {
	var statuses []string
	for _, s := range strings.Split(c.Query("status"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			statuses = append(statuses, s)
		}
	}
	items, err := h.Service.ListTickets(c.Request.Context(), actor(c), statuses)
	if err != nil {
		h.fail(c, err, "Failed to list tickets")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) TicketDetails(c *gin.Context) {
	t, err := h.Service.GetTicket(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to get ticket")
		return
	}
	c.JSON(http.StatusOK, t)
}

type AssignRequest struct {
	TechnicianID string `json:"technician_id" binding:"required"`
}

// @Summary Assign technician
// @Description Assigning a resolved or closed ticket reopens it.
// @Tags tickets
// @Accept json
// @Produce json
// @Param id path string true "Ticket ID"
// @Param payload body AssignRequest true "Technician"
// @Success 200 {object} models.Ticket
// @Failure 409 {object} map[string]any
// @Router /api/tickets/{id}/assign [post]
func (h *Handler) TicketAssign(c *gin.Context) {
	var req AssignRequest
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.Service.AssignTicket(c.Request.Context(), actor(c), c.Param("id"), req.TechnicianID)
	if err != nil {
		h.fail(c, err, "Failed to assign ticket")
		return
	}
	c.JSON(http.StatusOK, t)
}

// @Summary Suggest technicians
// @Tags tickets
// @Produce json
// @Param id path string true "Ticket ID"
// @Success 200 {object} service.Suggestion
// @Router /api/tickets/{id}/suggestions [get]
func (h *Handler) TicketSuggestions(c *gin.Context) {
	s, err := h.Service.SuggestTechnicians(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to suggest technicians")
		return
	}
	c.JSON(http.StatusOK, s)
}

// @Summary Submit estimate
// @Tags tickets
// @Accept json
// @Produce json
// @Param id path string true "Ticket ID"
// @Param payload body service.EstimateInput true "Estimate"
// @Success 200 {object} models.Ticket
// @Router /api/tickets/{id}/estimate [post]
func (h *Handler) TicketEstimate(c *gin.Context) {
	var req service.EstimateInput
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.Service.EstimateTicket(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		h.fail(c, err, "Failed to submit estimate")
		return
	}
	c.JSON(http.StatusOK, t)
}

// @Summary Submit payment
// @Description Records the customer's bank transfer for the initial or final stage. An admin confirms it later.
// @Tags payments
// @Accept json
// @Produce json
// @Param id path string true "Ticket ID"
// @Param stage path string true "initial or final"
// @Param payload body service.PaymentInput true "Transfer"
// @Success 200 {object} models.Ticket
// @Failure 422 {object} map[string]any
// @Router /api/tickets/{id}/payments/{stage} [post]
func (h *Handler) TicketPay(c *gin.Context) {
	var req service.PaymentInput
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.Service.PayTicket(c.Request.Context(), actor(c), c.Param("id"), c.Param("stage"), req)
	if err != nil {
		h.fail(c, err, "Failed to record payment")
		return
	}
	c.JSON(http.StatusOK, t)
}

// @Summary Complete ticket
// @Tags tickets
// @Produce json
// @Param id path string true "Ticket ID"
// @Success 200 {object} models.Ticket
// @Failure 409 {object} map[string]any
// @Router /api/tickets/{id}/complete [post]
func (h *Handler) TicketComplete(c *gin.Context) {
	t, err := h.Service.CompleteTicket(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to complete ticket")
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) TicketClose(c *gin.Context) {
	t, err := h.Service.CloseTicket(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to close ticket")
		return
	}
	c.JSON(http.StatusOK, t)
}

// @Summary Confirm ticket payment
// @Description Runs the confirmation steps for the initial or final payment. Retrying finishes steps a previous run left pending.
// @Tags payments
// @Produce json
// @Param id path string true "Ticket ID"
// @Param stage path string true "initial or final"
// @Success 200 {object} models.PaymentConfirmation
// @Router /api/tickets/{id}/confirm/{stage} [post]
func (h *Handler) TicketConfirmPayment(c *gin.Context) {
	var (
		conf models.PaymentConfirmation
		err  error
	)
	ctx, admin, id := c.Request.Context(), actor(c), c.Param("id")
	switch c.Param("stage") {
	case models.PaymentInitial:
		conf, err = h.Service.ConfirmInitialPayment(ctx, admin, id)
	case models.PaymentFinal:
		conf, err = h.Service.ConfirmFinalPayment(ctx, admin, id)
	default:
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Unknown payment stage", c.Param("stage"))
		return
	}
	if err != nil {
		h.fail(c, err, "Failed to confirm payment")
		return
	}
	c.JSON(http.StatusOK, conf)
}
