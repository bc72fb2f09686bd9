package repository

import (
	"context"
	"database/sql"

	"yoyaku/internal/database"
	"yoyaku/internal/models"
)

type RestaurantRepository struct {
	db *database.DB
}

func NewRestaurantRepository(db *database.DB) *RestaurantRepository {
	return &RestaurantRepository{db: db}
}

const restaurantColumns = `id, name, name_ja, name_ko, address, phone, cuisine,
       description_en, description_ja, description_ko, created_at, updated_at`

func (r *RestaurantRepository) Create(ctx context.Context, restaurant *models.Restaurant) error {
	query := `
		INSERT INTO restaurants (name, name_ja, name_ko, address, phone, cuisine,
			description_en, description_ja, description_ko)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		restaurant.Name,
		restaurant.NameJa,
		restaurant.NameKo,
		restaurant.Address,
		restaurant.Phone,
		restaurant.Cuisine,
		restaurant.DescriptionEn,
		restaurant.DescriptionJa,
		restaurant.DescriptionKo,
	).Scan(&restaurant.ID, &restaurant.CreatedAt, &restaurant.UpdatedAt)

	return err
}

func (r *RestaurantRepository) GetByID(ctx context.Context, id int64) (*models.Restaurant, error) {
	restaurant := &models.Restaurant{}
	query := `SELECT ` + restaurantColumns + ` FROM restaurants WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&restaurant.ID,
		&restaurant.Name,
		&restaurant.NameJa,
		&restaurant.NameKo,
		&restaurant.Address,
		&restaurant.Phone,
		&restaurant.Cuisine,
		&restaurant.DescriptionEn,
		&restaurant.DescriptionJa,
		&restaurant.DescriptionKo,
		&restaurant.CreatedAt,
		&restaurant.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return restaurant, err
}

func (r *RestaurantRepository) List(ctx context.Context, page, pageSize int) ([]models.Restaurant, error) {
	query := `SELECT ` + restaurantColumns + `
		FROM restaurants
		ORDER BY id
		LIMIT $1 OFFSET $2`

	return r.queryRestaurants(ctx, query, pageSize, (page-1)*pageSize)
}

// SearchByName is the Postgres fallback used when the search index is
// unavailable. Matches any of the localized names.
func (r *RestaurantRepository) SearchByName(ctx context.Context, term string, page, pageSize int) ([]models.Restaurant, error) {
	query := `SELECT ` + restaurantColumns + `
		FROM restaurants
		WHERE name ILIKE '%' || $1 || '%'
		   OR name_ja ILIKE '%' || $1 || '%'
		   OR name_ko ILIKE '%' || $1 || '%'
		ORDER BY id
		LIMIT $2 OFFSET $3`

	return r.queryRestaurants(ctx, query, term, pageSize, (page-1)*pageSize)
}

func (r *RestaurantRepository) queryRestaurants(ctx context.Context, query string, args ...interface{}) ([]models.Restaurant, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var restaurants []models.Restaurant
	for rows.Next() {
		var restaurant models.Restaurant
		err := rows.Scan(
			&restaurant.ID,
			&restaurant.Name,
			&restaurant.NameJa,
			&restaurant.NameKo,
			&restaurant.Address,
			&restaurant.Phone,
			&restaurant.Cuisine,
			&restaurant.DescriptionEn,
			&restaurant.DescriptionJa,
			&restaurant.DescriptionKo,
			&restaurant.CreatedAt,
			&restaurant.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		restaurants = append(restaurants, restaurant)
	}

	return restaurants, rows.Err()
}
