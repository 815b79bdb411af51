package handlers

import (
	"context"
	"net/http"
	"time"

	"suitehub/internal/platform/cache"
	"suitehub/internal/platform/models"
	"suitehub/internal/platform/repositories"
)

const (
	appsCacheKey    = "catalog:apps"
	pricingCacheKey = "catalog:pricing"
)

// CatalogHandler serves the app catalog through the read-through cache.
type CatalogHandler struct {
	repo  *repositories.CatalogRepository
	cache cache.Cache
	ttl   time.Duration
}

func NewCatalogHandler(repo *repositories.CatalogRepository, c cache.Cache, ttl time.Duration) *CatalogHandler {
	if c == nil {
		c = cache.Noop{}
	}
	return &CatalogHandler{repo: repo, cache: c, ttl: ttl}
}

func (h *CatalogHandler) Apps(w http.ResponseWriter, r *http.Request) {
	apps, err := cache.Remember(r.Context(), h.cache, appsCacheKey, h.ttl, func(ctx context.Context) ([]*models.App, error) {
		return h.repo.ListApps(ctx)
	})
	if err != nil {
		internalError(w, r, "Failed to list apps", err)
		return
	}
	writeJSON(w, http.StatusOK, apps)
}

func (h *CatalogHandler) Pricing(w http.ResponseWriter, r *http.Request) {
	prices, err := cache.Remember(r.Context(), h.cache, pricingCacheKey, h.ttl, func(ctx context.Context) ([]*models.AppPricing, error) {
		return h.repo.ListPricing(ctx)
	})
	if err != nil {
		internalError(w, r, "Failed to list pricing", err)
		return
	}
	writeJSON(w, http.StatusOK, prices)
}
