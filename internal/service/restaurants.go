package service

import (
	"context"
	"encoding/json"
	"fmt"

	"yoyaku/internal/apperrors"
	"yoyaku/internal/cache"
	"yoyaku/internal/logger"
	"yoyaku/internal/models"
	"yoyaku/internal/repository"
	"yoyaku/internal/search"
)

type RestaurantService struct {
	restaurantRepo *repository.RestaurantRepository
	esClient       *search.ElasticsearchClient
	valkey         *cache.ValkeyClient
}

func NewRestaurantService(restaurantRepo *repository.RestaurantRepository, esClient *search.ElasticsearchClient, valkey *cache.ValkeyClient) *RestaurantService {
	return &RestaurantService{
		restaurantRepo: restaurantRepo,
		esClient:       esClient,
		valkey:         valkey,
	}
}

// List serves the browse page. Hits go through Valkey; the database is only
// touched on a miss.
func (s *RestaurantService) List(ctx context.Context, locale string, page, pageSize int) ([]models.ListRestaurantsResponseItem, error) {
	if s.valkey != nil {
		if raw, err := s.valkey.GetRestaurantsListRaw(ctx, page, pageSize); err == nil {
			var items []models.ListRestaurantsResponseItem
			if err := json.Unmarshal(raw, &items); err == nil {
				return items, nil
			}
		}
	}

	restaurants, err := s.restaurantRepo.List(ctx, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list restaurants: %w", err)
	}

	items := make([]models.ListRestaurantsResponseItem, len(restaurants))
	for i := range restaurants {
		items[i] = toListItem(&restaurants[i], locale)
	}

	if s.valkey != nil && len(items) > 0 {
		s.valkey.SetRestaurantsList(ctx, page, pageSize, items)
	}

	return items, nil
}

// Search prefers Elasticsearch for language-aware matching and degrades to a
// plain ILIKE scan when the cluster is down. Search never hard-fails just
// because the index does.
func (s *RestaurantService) Search(ctx context.Context, query, locale string, page, pageSize int) ([]models.ListRestaurantsResponseItem, error) {
	if s.esClient != nil {
		docs, err := s.esClient.Search(ctx, query, locale, page, pageSize)
		if err == nil {
			items := make([]models.ListRestaurantsResponseItem, len(docs))
			for i, doc := range docs {
				items[i] = docToListItem(doc, locale)
			}
			return items, nil
		}
		logger.WithContext(ctx).Warn("Elasticsearch search failed, falling back to database",
			"error", err,
			"query", query)
	}

	restaurants, err := s.restaurantRepo.SearchByName(ctx, query, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to search restaurants: %w", err)
	}

	items := make([]models.ListRestaurantsResponseItem, len(restaurants))
	for i := range restaurants {
		items[i] = toListItem(&restaurants[i], locale)
	}

	return items, nil
}

func (s *RestaurantService) Get(ctx context.Context, id int64) (*models.Restaurant, error) {
	restaurant, err := s.restaurantRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get restaurant: %w", err)
	}
	if restaurant == nil {
		return nil, apperrors.ErrNotFound
	}
	return restaurant, nil
}

// LocalizedName returns the restaurant name in the requested locale, falling
// back to the default name when no translation exists.
func LocalizedName(r *models.Restaurant, locale string) string {
	switch models.NormalizeLocale(locale) {
	case models.LocaleJa:
		if r.NameJa != nil && *r.NameJa != "" {
			return *r.NameJa
		}
	case models.LocaleKo:
		if r.NameKo != nil && *r.NameKo != "" {
			return *r.NameKo
		}
	}
	return r.Name
}

func toListItem(r *models.Restaurant, locale string) models.ListRestaurantsResponseItem {
	item := models.ListRestaurantsResponseItem{
		ID:   r.ID,
		Name: LocalizedName(r, locale),
	}
	if r.Cuisine != nil {
		item.Cuisine = *r.Cuisine
	}
	if r.Address != nil {
		item.Address = *r.Address
	}
	return item
}

func docToListItem(doc search.RestaurantDocument, locale string) models.ListRestaurantsResponseItem {
	name := doc.Name
	switch models.NormalizeLocale(locale) {
	case models.LocaleJa:
		if doc.NameJa != "" {
			name = doc.NameJa
		}
	case models.LocaleKo:
		if doc.NameKo != "" {
			name = doc.NameKo
		}
	}

	return models.ListRestaurantsResponseItem{
		ID:      doc.ID,
		Name:    name,
		Cuisine: doc.Cuisine,
		Address: doc.Address,
	}
}
