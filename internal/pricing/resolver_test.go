package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"yoyaku/internal/models"
)

type stubPlanSource struct {
	plans []models.PricePlan
	err   error
}

func (s *stubPlanSource) ActivePlans(ctx context.Context) ([]models.PricePlan, error) {
	return s.plans, s.err
}

func testPlans() []models.PricePlan {
	return []models.PricePlan{
		{ID: 1, Name: "small", MinPartySize: 1, MaxPartySize: 4, Amount: 1500, Currency: "JPY", IsActive: true},
		{ID: 2, Name: "medium", MinPartySize: 5, MaxPartySize: 8, Amount: 2500, Currency: "JPY", IsActive: true},
		{ID: 3, Name: "large", MinPartySize: 9, MaxPartySize: 12, Amount: 3500, Currency: "JPY", IsActive: true},
	}
}

func TestResolveFee_OfflineTiers(t *testing.T) {
	r := NewResolver(nil)

	cases := []struct {
		partySize int
		amount    int64
		plan      string
	}{
		{1, 1000, "small"},
		{4, 1000, "small"},
		{5, 2000, "medium"},
		{8, 2000, "medium"},
		{9, 3000, "large"},
		{12, 3000, "large"},
	}

	for _, tc := range cases {
		fee := r.ResolveFee(context.Background(), tc.partySize)
		assert.Equal(t, tc.amount, fee.Amount, "party size %d", tc.partySize)
		assert.Equal(t, tc.plan, fee.PlanName, "party size %d", tc.partySize)
		assert.True(t, fee.Offline)
	}
}

func TestResolveFee_OutsideTiersDefaultsToLowest(t *testing.T) {
	r := NewResolver(nil)

	for _, partySize := range []int{0, -1, 13, 50} {
		fee := r.ResolveFee(context.Background(), partySize)
		assert.Equal(t, int64(1000), fee.Amount, "party size %d", partySize)
		assert.Equal(t, "small", fee.PlanName)
	}
}

func TestResolveFee_UsesStoredPlans(t *testing.T) {
	r := NewResolver(&stubPlanSource{plans: testPlans()})

	fee := r.ResolveFee(context.Background(), 6)
	assert.Equal(t, int64(2500), fee.Amount)
	assert.Equal(t, "medium", fee.PlanName)
	assert.Equal(t, int64(2), fee.PlanID)
	assert.False(t, fee.Offline)
}

func TestResolveFee_SourceErrorFallsBack(t *testing.T) {
	r := NewResolver(&stubPlanSource{err: errors.New("store unreachable")})

	fee := r.ResolveFee(context.Background(), 3)
	assert.Equal(t, int64(1000), fee.Amount)
	assert.True(t, fee.Offline)
}

func TestResolveFee_EmptyPlanListFallsBack(t *testing.T) {
	r := NewResolver(&stubPlanSource{})

	fee := r.ResolveFee(context.Background(), 10)
	assert.Equal(t, int64(3000), fee.Amount)
	assert.True(t, fee.Offline)
}

func TestResolveFee_InactivePlansIgnored(t *testing.T) {
	plans := testPlans()
	plans[1].IsActive = false
	r := NewResolver(&stubPlanSource{plans: plans})

	fee := r.ResolveFee(context.Background(), 6)
	assert.Equal(t, int64(2000), fee.Amount)
	assert.True(t, fee.Offline)
}

func TestResolveWithSelection_SelectionWinsInsideRange(t *testing.T) {
	r := NewResolver(&stubPlanSource{plans: testPlans()})

	// Party of 3 with plan 1 explicitly chosen: selection holds.
	fee := r.ResolveWithSelection(context.Background(), 3, 1)
	assert.Equal(t, int64(1), fee.PlanID)
	assert.Equal(t, int64(1500), fee.Amount)
}

func TestResolveWithSelection_SizeChangeOverridesStaleSelection(t *testing.T) {
	r := NewResolver(&stubPlanSource{plans: testPlans()})

	// Plan 1 was chosen for a party of 3, then the size changed to 6. The
	// stale selection is out of range and the size-derived tier wins.
	fee := r.ResolveWithSelection(context.Background(), 6, 1)
	assert.Equal(t, int64(2), fee.PlanID)
	assert.Equal(t, int64(2500), fee.Amount)
	assert.Equal(t, "medium", fee.PlanName)
}

func TestResolveWithSelection_NoSelectionResolvesBySize(t *testing.T) {
	r := NewResolver(&stubPlanSource{plans: testPlans()})

	fee := r.ResolveWithSelection(context.Background(), 9, 0)
	assert.Equal(t, int64(3), fee.PlanID)
	assert.Equal(t, int64(3500), fee.Amount)
}
