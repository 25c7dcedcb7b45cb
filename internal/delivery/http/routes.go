package http

import (
	"github.com/gin-gonic/gin"

	"github.com/recipefinder/backend/config"
	"github.com/recipefinder/backend/internal/metrics"
)

// SetupRouter creates and configures the Gin router. The metrics handle
// may be nil (tests), which disables the /metrics route.
func SetupRouter(cfg *config.Config, handler *Handler, m *metrics.Metrics) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))
	if m != nil {
		router.Use(MetricsMiddleware(m))
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	// Health check endpoints
	router.GET("/health", handler.HealthCheck)

	// Legacy recipe search path kept for front-end compatibility
	router.GET("/api/recipes", handler.GetRecipesByIngredients)
	router.POST("/api/recipes", handler.GetRecipesByIngredients)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handler.HealthCheck)
		v1.GET("/ingredients/search", handler.SearchIngredients)
		v1.GET("/search/recipes", handler.SearchRecipes)
		v1.GET("/recipes", handler.ListRecipes)
		v1.GET("/recipes/:id", handler.GetRecipeDetail)
		v1.GET("/cache/stats", handler.GetCacheStats)
	}

	return router
}
