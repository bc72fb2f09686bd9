package repository

import (
	"context"
	"database/sql"

	"yoyaku/internal/database"
	"yoyaku/internal/models"
)

type PricePlanRepository struct {
	db *database.DB
}

func NewPricePlanRepository(db *database.DB) *PricePlanRepository {
	return &PricePlanRepository{db: db}
}

const pricePlanColumns = `id, name, min_party_size, max_party_size, amount, currency,
       is_active, description_en, description_ja, description_ko, created_at`

// ActivePlans returns the active fee tiers ordered by party-size range
func (r *PricePlanRepository) ActivePlans(ctx context.Context) ([]models.PricePlan, error) {
	query := `SELECT ` + pricePlanColumns + `
		FROM price_plans
		WHERE is_active = TRUE
		ORDER BY min_party_size`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []models.PricePlan
	for rows.Next() {
		var plan models.PricePlan
		err := rows.Scan(
			&plan.ID,
			&plan.Name,
			&plan.MinPartySize,
			&plan.MaxPartySize,
			&plan.Amount,
			&plan.Currency,
			&plan.IsActive,
			&plan.DescriptionEn,
			&plan.DescriptionJa,
			&plan.DescriptionKo,
			&plan.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}

	return plans, rows.Err()
}

func (r *PricePlanRepository) GetByID(ctx context.Context, id int64) (*models.PricePlan, error) {
	plan := &models.PricePlan{}
	query := `SELECT ` + pricePlanColumns + ` FROM price_plans WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&plan.ID,
		&plan.Name,
		&plan.MinPartySize,
		&plan.MaxPartySize,
		&plan.Amount,
		&plan.Currency,
		&plan.IsActive,
		&plan.DescriptionEn,
		&plan.DescriptionJa,
		&plan.DescriptionKo,
		&plan.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return plan, err
}

func (r *PricePlanRepository) Create(ctx context.Context, plan *models.PricePlan) error {
	query := `
		INSERT INTO price_plans (name, min_party_size, max_party_size, amount,
			currency, is_active, description_en, description_ja, description_ko)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	return r.db.QueryRowContext(ctx, query,
		plan.Name,
		plan.MinPartySize,
		plan.MaxPartySize,
		plan.Amount,
		plan.Currency,
		plan.IsActive,
		plan.DescriptionEn,
		plan.DescriptionJa,
		plan.DescriptionKo,
	).Scan(&plan.ID, &plan.CreatedAt)
}
