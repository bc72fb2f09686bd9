package cache

import (
	"context"
	"log/slog"

	"yoyaku/internal/models"
)

type planSource interface {
	ActivePlans(ctx context.Context) ([]models.PricePlan, error)
}

// CachedPlanSource fronts the price plan repository with the Valkey cache.
// Cache problems are invisible to callers; the repository stays the source
// of truth.
type CachedPlanSource struct {
	valkey *ValkeyClient
	source planSource
}

func NewCachedPlanSource(valkey *ValkeyClient, source planSource) *CachedPlanSource {
	return &CachedPlanSource{valkey: valkey, source: source}
}

func (c *CachedPlanSource) ActivePlans(ctx context.Context) ([]models.PricePlan, error) {
	if c.valkey != nil {
		if plans, err := c.valkey.GetActivePlans(ctx); err == nil {
			return plans, nil
		}
	}

	plans, err := c.source.ActivePlans(ctx)
	if err != nil {
		return nil, err
	}

	if c.valkey != nil && len(plans) > 0 {
		c.valkey.SetActivePlans(ctx, plans)
		slog.Debug("Cached active price plans", "count", len(plans))
	}

	return plans, nil
}
