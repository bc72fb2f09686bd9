package service

import (
	"context"
	"fmt"

	"yoyaku/internal/models"
	"yoyaku/internal/pricing"
)

// PlanService exposes the active fee tiers for the checkout page
type PlanService struct {
	source pricing.PlanSource
}

func NewPlanService(source pricing.PlanSource) *PlanService {
	return &PlanService{source: source}
}

func (s *PlanService) ListActive(ctx context.Context, locale string) ([]models.PricePlanResponseItem, error) {
	plans, err := s.source.ActivePlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load price plans: %w", err)
	}

	items := make([]models.PricePlanResponseItem, 0, len(plans))
	for _, plan := range plans {
		if !plan.IsActive {
			continue
		}
		items = append(items, models.PricePlanResponseItem{
			ID:           plan.ID,
			Name:         plan.Name,
			MinPartySize: plan.MinPartySize,
			MaxPartySize: plan.MaxPartySize,
			Amount:       plan.Amount,
			Currency:     plan.Currency,
			Description:  localizedPlanDescription(plan, locale),
		})
	}

	return items, nil
}

func localizedPlanDescription(plan models.PricePlan, locale string) string {
	var ptr *string
	switch models.NormalizeLocale(locale) {
	case models.LocaleJa:
		ptr = plan.DescriptionJa
	case models.LocaleKo:
		ptr = plan.DescriptionKo
	default:
		ptr = plan.DescriptionEn
	}
	if ptr != nil {
		return *ptr
	}
	if plan.DescriptionEn != nil {
		return *plan.DescriptionEn
	}
	return ""
}
