package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/recipefinder/backend/internal/domain"
	"github.com/recipefinder/backend/internal/infrastructure/cache"
	"github.com/recipefinder/backend/internal/logging"
	"github.com/recipefinder/backend/internal/usecase"
)

// CacheStatsProvider reports per-tier cache statistics.
type CacheStatsProvider interface {
	Stats() (map[string]cache.NamespaceStats, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	service *usecase.RecipeService
	stats   CacheStatsProvider
}

// NewHandler creates a new HTTP handler
func NewHandler(service *usecase.RecipeService, stats CacheStatsProvider) *Handler {
	return &Handler{
		service: service,
		stats:   stats,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "recipe-finder-backend",
		"version": "1.0.0",
	})
}

// SearchIngredients handles GET /api/v1/ingredients/search?q=
func (h *Handler) SearchIngredients(c *gin.Context) {
	query := c.Query("q")

	ingredients, err := h.service.SearchIngredients(c.Request.Context(), query)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if ingredients == nil {
		ingredients = []domain.Ingredient{}
	}

	c.JSON(http.StatusOK, gin.H{
		"ingredients": ingredients,
		"query":       query,
		"total":       len(ingredients),
	})
}

// GetRecipesByIngredients handles GET and POST /api/recipes. POST takes
// a JSON ingredient list; GET takes ?ingredients=a,b. An empty list
// means browse all recipes.
func (h *Handler) GetRecipesByIngredients(c *gin.Context) {
	var ingredients []string

	if c.Request.Method == http.MethodPost {
		var req domain.RecipeSearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		ingredients = req.Ingredients
	} else if param := c.Query("ingredients"); param != "" {
		for _, ingredient := range strings.Split(param, ",") {
			ingredients = append(ingredients, strings.TrimSpace(ingredient))
		}
	}

	recipes, err := h.service.FindRecipesByIngredients(c.Request.Context(), ingredients)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if recipes == nil {
		recipes = []domain.RecipeSummary{}
	}

	c.JSON(http.StatusOK, gin.H{
		"recipes":     recipes,
		"total":       len(recipes),
		"ingredients": ingredients,
	})
}

// ListRecipes handles GET /api/v1/recipes (browse mode).
func (h *Handler) ListRecipes(c *gin.Context) {
	recipes, err := h.service.ListRecipes(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	if recipes == nil {
		recipes = []domain.RecipeSummary{}
	}

	c.JSON(http.StatusOK, gin.H{
		"recipes": recipes,
		"total":   len(recipes),
	})
}

// SearchRecipes handles GET /api/v1/search/recipes?q= (title autocomplete).
func (h *Handler) SearchRecipes(c *gin.Context) {
	query := c.Query("q")

	recipes, err := h.service.SearchRecipesByTitle(c.Request.Context(), query)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if recipes == nil {
		recipes = []domain.RecipeSummary{}
	}

	c.JSON(http.StatusOK, gin.H{
		"recipes": recipes,
		"query":   query,
		"total":   len(recipes),
	})
}

// GetRecipeDetail handles GET /api/v1/recipes/:id. The detail is served
// as a flat object, not wrapped.
func (h *Handler) GetRecipeDetail(c *gin.Context) {
	detail, err := h.service.GetRecipeDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// GetCacheStats handles GET /api/v1/cache/stats.
func (h *Handler) GetCacheStats(c *gin.Context) {
	stats, err := h.stats.Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read cache stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"namespaces": stats})
}

// respondError maps the domain error taxonomy onto HTTP statuses. The
// front-end distinguishes "no results" (200, empty array) from "service
// degraded" (non-2xx with an error body).
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrRecipeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "recipe not found"})
	case errors.Is(err, domain.ErrRateLimited):
		c.Header("Retry-After", strconv.Itoa(secondsUntilQuotaReset()))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "upstream rate limit exceeded"})
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request parameters"})
	case errors.Is(err, context.Canceled):
		// Client is gone; nothing useful to write
		c.Abort()
	default:
		logging.L().Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream request failed"})
	}
}

// secondsUntilQuotaReset advises clients how long to back off: the
// upstream quota resets at midnight UTC.
func secondsUntilQuotaReset() int {
	now := time.Now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	seconds := int(time.Until(midnight).Seconds())
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}
