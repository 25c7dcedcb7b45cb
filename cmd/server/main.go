package main

import (
	"fmt"
	"os"

	"github.com/recipefinder/backend/config"
	httpDelivery "github.com/recipefinder/backend/internal/delivery/http"
	"github.com/recipefinder/backend/internal/infrastructure/cache"
	"github.com/recipefinder/backend/internal/infrastructure/spoonacular"
	"github.com/recipefinder/backend/internal/logging"
	"github.com/recipefinder/backend/internal/metrics"
	"github.com/recipefinder/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logging.SetLevelFromString(cfg.Log.Level)
	log := logging.L()

	log.Info("starting recipe finder backend",
		"version", "1.0.0",
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port,
	)

	// Initialize infrastructure dependencies
	store, err := cache.NewBoltStore(cfg.Cache.Path, cfg.Cache.SweepInterval)
	if err != nil {
		log.Error("failed to open cache store", "path", cfg.Cache.Path, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	log.Info("cache store ready",
		"path", cfg.Cache.Path,
		"ingredient_ttl", cfg.Cache.IngredientTTL,
		"search_ttl", cfg.Cache.SearchTTL,
		"detail_ttl", cfg.Cache.DetailTTL,
	)

	client := spoonacular.NewClient(
		cfg.Spoonacular.APIKey,
		cfg.Spoonacular.BaseURL,
		cfg.Spoonacular.DailyQuota,
		cfg.Spoonacular.Timeout,
	)
	log.Info("upstream client configured",
		"base_url", cfg.Spoonacular.BaseURL,
		"daily_quota", cfg.Spoonacular.DailyQuota,
	)

	m := metrics.New("recipefinder")

	// Initialize usecase layer
	service := usecase.NewRecipeService(store, client, m, usecase.RecipeServiceConfig{
		IngredientTTL:   cfg.Cache.IngredientTTL,
		SearchTTL:       cfg.Cache.SearchTTL,
		DetailTTL:       cfg.Cache.DetailTTL,
		UpstreamTimeout: cfg.Spoonacular.Timeout,
	})

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(service, store)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler, m)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info("server listening", "addr", addr)

	if err := router.Run(addr); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}
