package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/service"
)

func (h *Handler) PlansList(c *gin.Context) {
	items, err := h.Service.ListPlans(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to list plans")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// @Summary Subscribe
// @Description Creates a subscription waiting for the customer's transfer.
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param payload body service.SubscribeInput true "Plan"
// @Success 201 {object} models.CustomerSubscription
// @Router /api/subscriptions [post]
func (h *Handler) SubscriptionCreate(c *gin.Context) {
	var req service.SubscribeInput
	if !bindJSON(c, &req) {
		return
	}
	sub, err := h.Service.Subscribe(c.Request.Context(), actor(c), req)
	if err != nil {
		h.fail(c, err, "Failed to subscribe")
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (h *Handler) SubscriptionsList(c *gin.Context) {
	items, err := h.Service.ListSubscriptions(c.Request.Context(), actor(c), c.Query("status"))
	if err != nil {
		h.fail(c, err, "Failed to list subscriptions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// @Summary Submit subscription payment
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param id path string true "Subscription ID"
// @Param payload body service.SubscriptionPaymentInput true "Transfer"
// @Success 200 {object} models.CustomerSubscription
// @Router /api/subscriptions/{id}/payment [post]
func (h *Handler) SubscriptionPay(c *gin.Context) {
	var req service.SubscriptionPaymentInput
	if !bindJSON(c, &req) {
		return
	}
	sub, err := h.Service.PaySubscription(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		h.fail(c, err, "Failed to record payment")
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (h *Handler) SubscriptionCancel(c *gin.Context) {
	sub, err := h.Service.CancelSubscription(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to cancel subscription")
		return
	}
	c.JSON(http.StatusOK, sub)
}

// @Summary Confirm subscription payment
// @Tags payments
// @Produce json
// @Param id path string true "Subscription ID"
// @Success 200 {object} models.PaymentConfirmation
// @Router /api/subscriptions/{id}/confirm [post]
func (h *Handler) SubscriptionConfirm(c *gin.Context) {
	conf, err := h.Service.ConfirmSubscriptionPayment(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to confirm payment")
		return
	}
	c.JSON(http.StatusOK, conf)
}
