package integration

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"yoyaku/internal/models"
)

const (
	APIBaseURL = "http://localhost:8080"
)

// NewCheckoutRequest builds a valid checkout for the first seeded restaurant.
// Each call gets a fresh request id so attempts never collide.
func NewCheckoutRequest(restaurantID int64) *models.CheckoutRequest {
	return &models.CheckoutRequest{
		RequestID:       uuid.New().String(),
		RestaurantID:    restaurantID,
		ReservationDate: time.Now().AddDate(0, 0, 7).Format("2006-01-02"),
		ReservationTime: "18:30",
		PartySize:       4,
		Name:            "Tanaka Yuki",
		Email:           fmt.Sprintf("guest-%s@example.com", uuid.New().String()[:8]),
		Phone:           "+81-90-1234-5678",
		Locale:          "ja",
	}
}

// AssertPlanTier checks the fee tier covering a party size
func AssertPlanTier(t *testing.T, plans []models.PricePlanResponseItem, partySize int, wantAmount int64) {
	t.Helper()
	for _, plan := range plans {
		if partySize >= plan.MinPartySize && partySize <= plan.MaxPartySize {
			if plan.Amount != wantAmount {
				t.Fatalf("Plan for party of %d has amount %d, expected %d", partySize, plan.Amount, wantAmount)
			}
			return
		}
	}
	t.Fatalf("No plan covers party of %d", partySize)
}
