package models

import "time"

// NATS Event Types
const (
	EventReservationCreated   = "reservation.created"
	EventReservationCancelled = "reservation.cancelled"
	EventReservationUpdated   = "reservation.status_changed"
	EventPaymentCaptured      = "payment.captured"
	EventPaymentFailed        = "payment.failed"
	EventNotificationFailed   = "notification.failed"
)

// ReservationCreatedEvent is published after the store confirms creation
type ReservationCreatedEvent struct {
	ReservationID string    `json:"reservation_id"`
	RestaurantID  int64     `json:"restaurant_id"`
	PartySize     int       `json:"party_size"`
	PaymentStatus string    `json:"payment_status"`
	Timestamp     time.Time `json:"timestamp"`
}

// PaymentCapturedEvent is published after a successful capture
type PaymentCapturedEvent struct {
	OrderID       string    `json:"order_id"`
	TransactionID string    `json:"transaction_id"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	Timestamp     time.Time `json:"timestamp"`
}

// PaymentFailedEvent is published on a declined or failed capture
type PaymentFailedEvent struct {
	OrderID   string    `json:"order_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// ReservationCancelledEvent is published on staff cancellation
type ReservationCancelledEvent struct {
	ReservationID string    `json:"reservation_id"`
	Reason        string    `json:"reason"`
	Timestamp     time.Time `json:"timestamp"`
}

// ReservationStatusChangedEvent is published on every staff status change
type ReservationStatusChangedEvent struct {
	ReservationID string    `json:"reservation_id"`
	Status        string    `json:"status"`
	Actor         string    `json:"actor"`
	Timestamp     time.Time `json:"timestamp"`
}

// NotificationFailedEvent flags a confirmation email that needs a manual resend
type NotificationFailedEvent struct {
	ReservationID string    `json:"reservation_id"`
	Recipient     string    `json:"recipient"`
	Reason        string    `json:"reason"`
	Timestamp     time.Time `json:"timestamp"`
}
