package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"yoyaku/internal/middleware"
	"yoyaku/internal/models"
)

// Reservations handlers

// Checkout - POST /api/reservations/checkout
// Run one paid reservation attempt end to end
func (h *Handlers) Checkout(c *gin.Context) {
	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.services.Reservations.Checkout(c.Request.Context(), &req)
	if err != nil {
		middleware.RecordPaymentProcessed("failed")
		h.respondError(c, err, "Checkout failed")
		return
	}

	middleware.RecordPaymentProcessed("captured")
	middleware.RecordReservationCreated(response.PaymentStatus)
	c.JSON(http.StatusCreated, response)
}

// Fallback - POST /api/reservations/fallback
// Record a reservation with payment arranged offline
func (h *Handlers) Fallback(c *gin.Context) {
	var req models.FallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.services.Reservations.Fallback(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err, "Failed to create reservation")
		return
	}

	middleware.RecordReservationCreated(response.PaymentStatus)
	c.JSON(http.StatusCreated, response)
}

// AbortCheckout - POST /api/reservations/checkout/abort
// Void a user-cancelled attempt. Always 200: cancellation is silent.
func (h *Handlers) AbortCheckout(c *gin.Context) {
	var req struct {
		RequestID string `json:"request_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.services.Reservations.Abort(c.Request.Context(), req.RequestID)
	c.Status(http.StatusOK)
}

// GetReservation - GET /api/reservations/:id
// Confirmation view for the guest
func (h *Handlers) GetReservation(c *gin.Context) {
	reservation, restaurantName, err := h.services.Reservations.GetConfirmation(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Failed to get reservation")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reservation": reservation,
		"restaurant":  restaurantName,
	})
}

// GetReservationQR - GET /api/reservations/:id/qr
// PNG QR code rendered from the stored reservation
func (h *Handlers) GetReservationQR(c *gin.Context) {
	size, _ := strconv.Atoi(c.DefaultQuery("size", "256"))

	png, err := h.services.Reservations.QRCode(c.Request.Context(), c.Param("id"), size)
	if err != nil {
		h.respondError(c, err, "Failed to render QR code")
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

// ResendConfirmation - POST /api/reservations/:id/resend
func (h *Handlers) ResendConfirmation(c *gin.Context) {
	response, err := h.services.Reservations.Resend(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Failed to resend confirmation")
		return
	}

	c.JSON(http.StatusOK, response)
}
