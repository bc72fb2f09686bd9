package validation

import (
	"regexp"
	"strings"
	"time"

	"yoyaku/internal/apperrors"
	"yoyaku/internal/models"
)

const (
	MinPartySize = 1
	MaxPartySize = 12
)

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Validator checks checkout submissions before anything is sent to the
// gateway. now is injectable for tests.
type Validator struct {
	BookingWindowDays int
	now               func() time.Time
}

func NewValidator(bookingWindowDays int) *Validator {
	if bookingWindowDays <= 0 {
		bookingWindowDays = 90
	}
	return &Validator{
		BookingWindowDays: bookingWindowDays,
		now:               time.Now,
	}
}

// CheckoutRequest validates every field and collects all problems at once,
// so the caller can report them together instead of one per round trip.
func (v *Validator) CheckoutRequest(req *models.CheckoutRequest) error {
	fields := map[string]string{}

	// Either an existing restaurant id or a typed restaurant name works;
	// the latter creates the restaurant on the fly.
	if req.RestaurantID <= 0 && strings.TrimSpace(req.RestaurantName) == "" {
		fields["restaurant_id"] = "restaurant is required"
	}
	if strings.TrimSpace(req.Name) == "" {
		fields["name"] = "name is required"
	}
	if strings.TrimSpace(req.Phone) == "" {
		fields["phone"] = "phone is required"
	}

	if strings.TrimSpace(req.Email) == "" {
		fields["email"] = "email is required"
	} else if !emailRegex.MatchString(req.Email) {
		fields["email"] = "email is not valid"
	}

	if req.PartySize < MinPartySize || req.PartySize > MaxPartySize {
		fields["party_size"] = "party size must be between 1 and 12"
	}

	if msg := v.checkDate(req.ReservationDate); msg != "" {
		fields["reservation_date"] = msg
	}
	if msg := checkTime(req.ReservationTime); msg != "" {
		fields["reservation_time"] = msg
	}

	if len(fields) > 0 {
		return &apperrors.ValidationError{Fields: fields}
	}
	return nil
}

// FallbackRequest runs the same field checks on the manual-contact path.
// The gateway is skipped there but bad data still must not reach the store.
func (v *Validator) FallbackRequest(req *models.FallbackRequest) error {
	return v.CheckoutRequest(&models.CheckoutRequest{
		RequestID:       "fallback",
		RestaurantID:    req.RestaurantID,
		ReservationDate: req.ReservationDate,
		ReservationTime: req.ReservationTime,
		PartySize:       req.PartySize,
		Name:            req.Name,
		Email:           req.Email,
		Phone:           req.Phone,
	})
}

// checkDate requires YYYY-MM-DD, not in the past, and inside the booking
// window.
func (v *Validator) checkDate(date string) string {
	if date == "" {
		return "date is required"
	}

	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "date must be YYYY-MM-DD"
	}

	today := v.now().Truncate(24 * time.Hour)
	if parsed.Before(today) {
		return "date is in the past"
	}
	if parsed.After(today.AddDate(0, 0, v.BookingWindowDays)) {
		return "date is beyond the booking window"
	}
	return ""
}

// checkTime requires HH:MM on a 30-minute slot
func checkTime(t string) string {
	if t == "" {
		return "time is required"
	}

	parsed, err := time.Parse("15:04", t)
	if err != nil {
		return "time must be HH:MM"
	}

	if m := parsed.Minute(); m != 0 && m != 30 {
		return "time must be on a 30-minute slot"
	}
	return ""
}
