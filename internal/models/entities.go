package models

import (
	"time"
)

// Reservation status values. A reservation starts as pending and only moves
// via explicit staff action.
const (
	ReservationPending   = "pending"
	ReservationConfirmed = "confirmed"
	ReservationCancelled = "cancelled"
	ReservationCompleted = "completed"
)

// Payment status values on a reservation. pending_manual marks the fallback
// path where staff collects payment later; it is never reported as completed
// without a captured transaction.
const (
	PaymentStatusPending       = "pending"
	PaymentStatusCompleted     = "completed"
	PaymentStatusPendingManual = "pending_manual"
)

// Payment row status values (the gateway-side view of one payment attempt).
const (
	PaymentInitiated = "initiated"
	PaymentCaptured  = "captured"
	PaymentFailed    = "failed"
	PaymentCancelled = "cancelled"
)

// User represents a staff member who can operate the admin dashboard
type User struct {
	UserID       int64     `json:"user_id" db:"user_id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	DisplayName  string    `json:"display_name" db:"display_name"`
	Role         string    `json:"role" db:"role"`
	RegisteredAt time.Time `json:"registered_at" db:"registered_at"`
	IsActive     bool      `json:"is_active" db:"is_active"`
}

// Restaurant is a read-mostly reference entity shown in confirmations
type Restaurant struct {
	ID            int64     `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	NameJa        *string   `json:"name_ja" db:"name_ja"`
	NameKo        *string   `json:"name_ko" db:"name_ko"`
	Address       *string   `json:"address" db:"address"`
	Phone         *string   `json:"phone" db:"phone"`
	Cuisine       *string   `json:"cuisine" db:"cuisine"`
	DescriptionEn *string   `json:"description_en" db:"description_en"`
	DescriptionJa *string   `json:"description_ja" db:"description_ja"`
	DescriptionKo *string   `json:"description_ko" db:"description_ko"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// PricePlan is a party-size-keyed fee tier. Seeded out of band and read-only
// to the checkout workflow.
type PricePlan struct {
	ID            int64     `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	MinPartySize  int       `json:"min_party_size" db:"min_party_size"`
	MaxPartySize  int       `json:"max_party_size" db:"max_party_size"`
	Amount        int64     `json:"amount" db:"amount"`
	Currency      string    `json:"currency" db:"currency"`
	IsActive      bool      `json:"is_active" db:"is_active"`
	DescriptionEn *string   `json:"description_en" db:"description_en"`
	DescriptionJa *string   `json:"description_ja" db:"description_ja"`
	DescriptionKo *string   `json:"description_ko" db:"description_ko"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Reservation is the persisted outcome of a successful checkout (or of the
// manual-contact fallback). payment_amount holds the captured amount, copied
// at creation time; later price plan edits never alter it.
type Reservation struct {
	ID                 string    `json:"id" db:"id"`
	RestaurantID       int64     `json:"restaurant_id" db:"restaurant_id"`
	ReservationDate    string    `json:"reservation_date" db:"reservation_date"`
	ReservationTime    string    `json:"reservation_time" db:"reservation_time"`
	PartySize          int       `json:"party_size" db:"party_size"`
	Name               string    `json:"name" db:"name"`
	Email              string    `json:"email" db:"email"`
	Phone              string    `json:"phone" db:"phone"`
	SpecialRequests    *string   `json:"special_requests" db:"special_requests"`
	Locale             string    `json:"locale" db:"locale"`
	Status             string    `json:"status" db:"status"`
	PaymentStatus      string    `json:"payment_status" db:"payment_status"`
	PaymentAmount      int64     `json:"payment_amount" db:"payment_amount"`
	TransactionID      *string   `json:"transaction_id" db:"transaction_id"`
	CancellationReason *string   `json:"cancellation_reason" db:"cancellation_reason"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// Payment is one gateway payment attempt. Rows are written at init and
// updated on capture; an old initiated row with no reservation id is the
// manual reconciliation queue.
type Payment struct {
	ID            int64     `json:"id" db:"id"`
	OrderID       string    `json:"order_id" db:"order_id"`
	PaymentID     *string   `json:"payment_id" db:"payment_id"`
	ReservationID *string   `json:"reservation_id" db:"reservation_id"`
	Amount        int64     `json:"amount" db:"amount"`
	Currency      string    `json:"currency" db:"currency"`
	Status        string    `json:"status" db:"status"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// AuditLog records every staff-side status change, one row per action
type AuditLog struct {
	ID        int64     `json:"id" db:"id"`
	Actor     string    `json:"actor" db:"actor"`
	Action    string    `json:"action" db:"action"`
	TargetID  string    `json:"target_id" db:"target_id"`
	Detail    *string   `json:"detail" db:"detail"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
