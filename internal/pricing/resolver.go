package pricing

import (
	"context"
	"log/slog"

	"yoyaku/internal/models"
)

// Offline fallback tiers, used when no plan data is reachable. The UI
// constrains party size to 1-12, so a value outside every tier resolves to
// the lowest tier instead of erroring.
const (
	offlineSmallAmount  = 1000
	offlineMediumAmount = 2000
	offlineLargeAmount  = 3000
)

// Fee is the resolved service fee for one reservation attempt
type Fee struct {
	PlanID   int64
	PlanName string
	Amount   int64
	Currency string
	// Offline is set when the fee came from the built-in tier table rather
	// than a stored plan.
	Offline bool
}

// PlanSource yields the active price plans. Implemented by the price plan
// repository and by its cache front.
type PlanSource interface {
	ActivePlans(ctx context.Context) ([]models.PricePlan, error)
}

// Resolver maps a party size to a fee tier. It never fails: an unreachable
// or empty plan list degrades to the offline tier table.
type Resolver struct {
	plans PlanSource
}

func NewResolver(plans PlanSource) *Resolver {
	return &Resolver{plans: plans}
}

// ResolveFee looks up the active plan whose party-size range contains
// partySize. Ranges of active plans are contiguous and non-overlapping, so
// at most one plan matches.
func (r *Resolver) ResolveFee(ctx context.Context, partySize int) Fee {
	if r.plans != nil {
		plans, err := r.plans.ActivePlans(ctx)
		if err != nil {
			slog.Warn("Price plan lookup failed, using offline tiers", "error", err)
			return offlineFee(partySize)
		}
		if fee, ok := matchPlan(plans, partySize); ok {
			return fee
		}
		if len(plans) > 0 {
			slog.Warn("Party size outside all active plans, using offline tiers", "party_size", partySize)
		}
	}
	return offlineFee(partySize)
}

// ResolveWithSelection applies the precedence rule for an explicitly chosen
// plan: the selection wins only while the party size still falls inside the
// selected plan's range. Once the size moves out of range the size-derived
// fee overrides the stale selection.
func (r *Resolver) ResolveWithSelection(ctx context.Context, partySize int, planID int64) Fee {
	if planID != 0 && r.plans != nil {
		plans, err := r.plans.ActivePlans(ctx)
		if err == nil {
			for _, p := range plans {
				if p.ID == planID && p.MinPartySize <= partySize && partySize <= p.MaxPartySize {
					return feeFromPlan(p)
				}
			}
		}
	}
	return r.ResolveFee(ctx, partySize)
}

func matchPlan(plans []models.PricePlan, partySize int) (Fee, bool) {
	for _, p := range plans {
		if !p.IsActive {
			continue
		}
		if p.MinPartySize <= partySize && partySize <= p.MaxPartySize {
			return feeFromPlan(p), true
		}
	}
	return Fee{}, false
}

func feeFromPlan(p models.PricePlan) Fee {
	return Fee{
		PlanID:   p.ID,
		PlanName: p.Name,
		Amount:   p.Amount,
		Currency: p.Currency,
	}
}

// offlineFee is the pure tiering function: 1-4 -> 1000, 5-8 -> 2000,
// 9-12 -> 3000, anything else -> 1000 (documented default).
func offlineFee(partySize int) Fee {
	fee := Fee{Currency: "JPY", Offline: true}
	switch {
	case partySize >= 1 && partySize <= 4:
		fee.PlanName = "small"
		fee.Amount = offlineSmallAmount
	case partySize >= 5 && partySize <= 8:
		fee.PlanName = "medium"
		fee.Amount = offlineMediumAmount
	case partySize >= 9 && partySize <= 12:
		fee.PlanName = "large"
		fee.Amount = offlineLargeAmount
	default:
		fee.PlanName = "small"
		fee.Amount = offlineSmallAmount
	}
	return fee
}
