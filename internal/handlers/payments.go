package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"yoyaku/internal/logger"
	"yoyaku/internal/models"
)

// Payments handlers

// NotifyPaymentCompleted - GET /api/payments/success
// Gateway redirect target after a successful payment
func (h *Handlers) NotifyPaymentCompleted(c *gin.Context) {
	orderID := c.Query("orderId")
	if orderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "orderId is required"})
		return
	}

	logger.WithContext(c.Request.Context()).Info("Payment completed for order", "order_id", orderID)
	c.Status(http.StatusOK)
}

// NotifyPaymentFailed - GET /api/payments/fail
func (h *Handlers) NotifyPaymentFailed(c *gin.Context) {
	orderID := c.Query("orderId")
	if orderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "orderId is required"})
		return
	}

	logger.WithContext(c.Request.Context()).Warn("Payment failed for order", "order_id", orderID)
	c.Status(http.StatusOK)
}

// OnPaymentUpdates - POST /api/payments/notifications
// Webhook from the payment gateway
func (h *Handlers) OnPaymentUpdates(c *gin.Context) {
	var notification models.PaymentNotificationPayload
	if err := c.ShouldBindJSON(&notification); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.services.Reservations.HandlePaymentNotification(c.Request.Context(), &notification)
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("Failed to handle payment notification", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to handle notification"})
		return
	}

	c.Status(http.StatusOK)
}
