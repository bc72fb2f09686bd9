package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Restaurants handlers

// ListRestaurants - GET /api/restaurants
// Browse or search the restaurant catalog
func (h *Handlers) ListRestaurants(c *gin.Context) {
	locale := localeFromRequest(c)
	query := c.Query("query")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	var err error
	var items interface{}
	if query != "" {
		items, err = h.services.Restaurants.Search(c.Request.Context(), query, locale, page, pageSize)
	} else {
		items, err = h.services.Restaurants.List(c.Request.Context(), locale, page, pageSize)
	}
	if err != nil {
		h.respondError(c, err, "Failed to list restaurants")
		return
	}

	c.JSON(http.StatusOK, items)
}

// GetRestaurant - GET /api/restaurants/:id
func (h *Handlers) GetRestaurant(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid restaurant id"})
		return
	}

	restaurant, err := h.services.Restaurants.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "Failed to get restaurant")
		return
	}

	c.JSON(http.StatusOK, restaurant)
}

// ListPricePlans - GET /api/price-plans
func (h *Handlers) ListPricePlans(c *gin.Context) {
	locale := localeFromRequest(c)

	plans, err := h.services.Plans.ListActive(c.Request.Context(), locale)
	if err != nil {
		h.respondError(c, err, "Failed to list price plans")
		return
	}

	c.JSON(http.StatusOK, plans)
}
