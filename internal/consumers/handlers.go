package consumers

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/stan.go"

	"yoyaku/internal/models"
	"yoyaku/internal/repository"
	"yoyaku/internal/service"
)

type Handlers struct {
	repos         *repository.Repositories
	notifications *service.NotificationService
}

func NewHandlers(repos *repository.Repositories, notifications *service.NotificationService) *Handlers {
	return &Handlers{
		repos:         repos,
		notifications: notifications,
	}
}

func (h *Handlers) HandleReservationCreated(m *stan.Msg) {
	var event models.ReservationCreatedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal reservation created event", "error", err)
		return
	}

	slog.Info("Reservation created",
		"reservation_id", event.ReservationID,
		"restaurant_id", event.RestaurantID,
		"payment_status", event.PaymentStatus)

	m.Ack()
}

func (h *Handlers) HandleReservationCancelled(m *stan.Msg) {
	var event models.ReservationCancelledEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal reservation cancelled event", "error", err)
		return
	}

	slog.Info("Reservation cancelled",
		"reservation_id", event.ReservationID,
		"reason", event.Reason)

	m.Ack()
}

func (h *Handlers) HandleStatusChanged(m *stan.Msg) {
	var event models.ReservationStatusChangedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal status changed event", "error", err)
		return
	}

	slog.Info("Reservation status changed",
		"reservation_id", event.ReservationID,
		"status", event.Status,
		"actor", event.Actor)

	m.Ack()
}

// HandlePaymentCaptured double-checks that the payment row reflects the
// capture. The synchronous path normally did this already; a stale
// initiated row here means the API crashed mid-checkout.
func (h *Handlers) HandlePaymentCaptured(m *stan.Msg) {
	var event models.PaymentCapturedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal payment captured event", "error", err)
		return
	}

	ctx := context.Background()
	payment, err := h.repos.Payments.GetByOrderID(ctx, event.OrderID)
	if err != nil {
		slog.Error("Failed to get payment", "order_id", event.OrderID, "error", err)
		return
	}

	if payment != nil && payment.Status == models.PaymentInitiated {
		slog.Warn("Captured payment still marked initiated, repairing",
			"order_id", event.OrderID, "transaction_id", event.TransactionID)
		paymentID := ""
		if payment.PaymentID != nil {
			paymentID = *payment.PaymentID
		}
		if err := h.repos.Payments.MarkCaptured(ctx, event.OrderID, paymentID, event.Amount); err != nil {
			slog.Error("Failed to repair payment row", "order_id", event.OrderID, "error", err)
			return
		}
	}

	m.Ack()
}

func (h *Handlers) HandlePaymentFailed(m *stan.Msg) {
	var event models.PaymentFailedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal payment failed event", "error", err)
		return
	}

	slog.Warn("Payment failed",
		"order_id", event.OrderID,
		"reason", event.Reason)

	m.Ack()
}

// HandleNotificationFailed retries the confirmation email once, out of the
// request path. A second failure stays logged for the manual resend endpoint.
func (h *Handlers) HandleNotificationFailed(m *stan.Msg) {
	var event models.NotificationFailedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal notification failed event", "error", err)
		return
	}

	ctx := context.Background()
	reservation, err := h.repos.Reservations.GetByID(ctx, event.ReservationID)
	if err != nil || reservation == nil {
		slog.Error("Failed to load reservation for email retry",
			"reservation_id", event.ReservationID, "error", err)
		m.Ack()
		return
	}

	restaurantName := ""
	if restaurant, err := h.repos.Restaurants.GetByID(ctx, reservation.RestaurantID); err == nil && restaurant != nil {
		restaurantName = restaurant.Name
	}

	if _, err := h.notifications.SendConfirmation(ctx, reservation, restaurantName); err != nil {
		slog.Error("Email retry failed, manual resend required",
			"reservation_id", event.ReservationID,
			"recipient", event.Recipient,
			"error", err)
	} else {
		slog.Info("Email retry succeeded", "reservation_id", event.ReservationID)
	}

	m.Ack()
}
