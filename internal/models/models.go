package models

// Supported locales. The three are first-class; anything else falls back to en.
const (
	LocaleEn = "en"
	LocaleJa = "ja"
	LocaleKo = "ko"
)

// NormalizeLocale maps an arbitrary locale string onto a supported one
func NormalizeLocale(locale string) string {
	switch locale {
	case LocaleJa, LocaleKo, LocaleEn:
		return locale
	default:
		return LocaleEn
	}
}

// CheckoutRequest carries one reservation attempt through the whole workflow.
// RequestID is the client-generated idempotency token: replays of an attempt
// that already completed are rejected instead of re-charged.
type CheckoutRequest struct {
	RequestID       string `json:"request_id" binding:"required"`
	RestaurantID    int64  `json:"restaurant_id"`
	RestaurantName  string `json:"restaurant_name,omitempty"`
	ReservationDate string `json:"reservation_date" binding:"required"`
	ReservationTime string `json:"reservation_time" binding:"required"`
	PartySize       int    `json:"party_size" binding:"required"`
	Name            string `json:"name" binding:"required"`
	Email           string `json:"email" binding:"required"`
	Phone           string `json:"phone" binding:"required"`
	SpecialRequests string `json:"special_requests,omitempty"`
	Locale          string `json:"locale,omitempty"`
	PlanID          int64  `json:"plan_id,omitempty"`
}

// CheckoutResponse is returned once the reservation is persisted. EmailSent
// reports the courtesy notification separately from the completed checkout.
type CheckoutResponse struct {
	ReservationID string    `json:"reservation_id"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	PlanName      string    `json:"plan_name"`
	TransactionID string    `json:"transaction_id"`
	EmailSent     bool      `json:"email_sent"`
	EmailError    string    `json:"email_error,omitempty"`
	QR            QRPayload `json:"qr"`
}

// FallbackRequest is the manual-contact path offered when the payment
// gateway is unreachable. No card payment is collected.
type FallbackRequest struct {
	RestaurantID    int64  `json:"restaurant_id" binding:"required"`
	ReservationDate string `json:"reservation_date" binding:"required"`
	ReservationTime string `json:"reservation_time" binding:"required"`
	PartySize       int    `json:"party_size" binding:"required"`
	Name            string `json:"name" binding:"required"`
	Email           string `json:"email" binding:"required"`
	Phone           string `json:"phone" binding:"required"`
	SpecialRequests string `json:"special_requests,omitempty"`
	Locale          string `json:"locale,omitempty"`
}

// FallbackResponse - the reservation exists but payment is collected by staff
type FallbackResponse struct {
	ReservationID string `json:"reservation_id"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	EmailSent     bool   `json:"email_sent"`
}

// FallbackOffer is returned instead of CheckoutResponse when the gateway
// self-test reports the payment backend unreachable
type FallbackOffer struct {
	Blocked      bool   `json:"blocked"`
	Message      string `json:"message"`
	ContactEmail string `json:"contact_email"`
	ContactPhone string `json:"contact_phone"`
}

// QRPayload is the JSON document embedded in the confirmation QR code.
// It is rendered purely from the persisted reservation.
type QRPayload struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Restaurant string `json:"restaurant"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	PartySize  int    `json:"partySize"`
	Status     string `json:"status"`
}

// UpdateReservationStatusRequest - staff-only transition
type UpdateReservationStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason,omitempty"`
}

// ResendResponse reports a manual notification resend
type ResendResponse struct {
	Sent  bool   `json:"sent"`
	Error string `json:"error,omitempty"`
}

// ListRestaurantsResponseItem - element of the browse list
type ListRestaurantsResponseItem struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Cuisine string `json:"cuisine,omitempty"`
	Address string `json:"address,omitempty"`
}

// ListRestaurantsResponse - browse/search result
type ListRestaurantsResponse []ListRestaurantsResponseItem

// PricePlanResponseItem - element of the active plan list
type PricePlanResponseItem struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	MinPartySize int    `json:"min_party_size"`
	MaxPartySize int    `json:"max_party_size"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Description  string `json:"description,omitempty"`
}

// PaymentNotificationPayload - webhook body from the payment gateway. The
// webhook and the synchronous capture are two independent confirmations of
// the same transaction.
type PaymentNotificationPayload struct {
	PaymentID string                 `json:"paymentId"`
	OrderID   string                 `json:"orderId"`
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// AdminReservationsQuery - filter for the staff dashboard listing
type AdminReservationsQuery struct {
	Status       string
	RestaurantID int64
	Page         int
	PageSize     int
}
