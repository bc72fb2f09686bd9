package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"yoyaku/internal/middleware"
	"yoyaku/internal/models"
)

// Admin handlers. All routes here sit behind BasicAuth.

// AdminListReservations - GET /api/admin/reservations
func (h *Handlers) AdminListReservations(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "50"))
	restaurantID, _ := strconv.ParseInt(c.Query("restaurantId"), 10, 64)

	query := models.AdminReservationsQuery{
		Status:       c.Query("status"),
		RestaurantID: restaurantID,
		Page:         page,
		PageSize:     pageSize,
	}

	reservations, err := h.services.Reservations.List(c.Request.Context(), query)
	if err != nil {
		h.respondError(c, err, "Failed to list reservations")
		return
	}

	c.JSON(http.StatusOK, reservations)
}

// AdminGetReservation - GET /api/admin/reservations/:id
func (h *Handlers) AdminGetReservation(c *gin.Context) {
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

// AdminReservationAudit - GET /api/admin/reservations/:id/audit
// Staff action history for one reservation, oldest first
func (h *Handlers) AdminReservationAudit(c *gin.Context) {
	entries, err := h.services.Reservations.AuditTrail(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Failed to list audit entries")
		return
	}

	c.JSON(http.StatusOK, entries)
}

// AdminUpdateReservationStatus - PATCH /api/admin/reservations/:id/status
// Apply a staff transition; the audit row commits with the update
func (h *Handlers) AdminUpdateReservationStatus(c *gin.Context) {
	var req models.UpdateReservationStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := "staff"
	if email, ok := middleware.StaffEmailFromContext(c.Request.Context()); ok {
		actor = email
	}

	reservation, err := h.services.Reservations.UpdateStatus(c.Request.Context(), c.Param("id"), &req, actor)
	if err != nil {
		h.respondError(c, err, "Failed to update reservation status")
		return
	}

	c.JSON(http.StatusOK, reservation)
}
