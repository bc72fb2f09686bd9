package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"yoyaku/internal/apperrors"
	"yoyaku/internal/database"
	"yoyaku/internal/logger"
	"yoyaku/internal/models"
	"yoyaku/internal/payment"
	"yoyaku/internal/service"
)

type Handlers struct {
	services     *service.Services
	db           *database.DB
	supportEmail string
	supportPhone string
}

func NewHandlers(services *service.Services, db *database.DB, supportEmail, supportPhone string) *Handlers {
	return &Handlers{
		services:     services,
		db:           db,
		supportEmail: supportEmail,
		supportPhone: supportPhone,
	}
}

// localeFromRequest resolves the display locale: explicit query parameter
// first, then Accept-Language, then English.
func localeFromRequest(c *gin.Context) string {
	if locale := c.Query("locale"); locale != "" {
		return models.NormalizeLocale(locale)
	}
	accept := c.GetHeader("Accept-Language")
	if len(accept) >= 2 {
		return models.NormalizeLocale(accept[:2])
	}
	return models.LocaleEn
}

// respondError maps workflow errors onto HTTP statuses. Each failure class
// the guest can act on gets its own shape.
func (h *Handlers) respondError(c *gin.Context, err error, fallbackMsg string) {
	var vErr *apperrors.ValidationError
	if errors.As(err, &vErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "validation failed",
			"fields": vErr.Fields,
		})
		return
	}

	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	if errors.Is(err, apperrors.ErrAttemptCompleted) {
		c.JSON(http.StatusConflict, gin.H{"error": "This checkout already completed"})
		return
	}

	if errors.Is(err, payment.ErrAttemptThrottled) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Please wait a moment before retrying"})
		return
	}

	if errors.Is(err, apperrors.ErrGatewayBlocked) || errors.Is(err, apperrors.ErrGatewayUnavailable) {
		c.JSON(http.StatusServiceUnavailable, h.fallbackOffer())
		return
	}

	var capErr *apperrors.CaptureError
	if errors.As(err, &capErr) {
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error":     "Payment was declined",
			"reason":    capErr.Reason,
			"retryable": apperrors.Retryable(err),
		})
		return
	}

	var storeErr *apperrors.StoreError
	if errors.As(err, &storeErr) && storeErr.TransactionID != "" {
		// The charge went through; the guest needs the reference even
		// though the reservation does not exist yet.
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":          "Your payment was received but the reservation could not be saved. Please contact support with the transaction reference.",
			"transaction_id": storeErr.TransactionID,
			"contact_email":  h.supportEmail,
		})
		return
	}

	logger.WithContext(c.Request.Context()).Error(fallbackMsg, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": fallbackMsg})
}

func (h *Handlers) fallbackOffer() models.FallbackOffer {
	return models.FallbackOffer{
		Blocked:      true,
		Message:      "Online payment is currently unavailable. You can still request a reservation and arrange payment with the restaurant.",
		ContactEmail: h.supportEmail,
		ContactPhone: h.supportPhone,
	}
}

// Health - GET /health
func (h *Handlers) Health(c *gin.Context) {
	if h.db != nil {
		check := h.db.HealthCheck(c.Request.Context())
		if check.Status != "healthy" {
			c.JSON(http.StatusServiceUnavailable, check)
			return
		}
		c.JSON(http.StatusOK, check)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
