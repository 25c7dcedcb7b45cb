package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RECIPEFINDER_SPOONACULAR_API_KEY", "test-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %s, want 8080", cfg.Server.Port)
	}
	if cfg.Server.Environment != "development" {
		t.Errorf("Server.Environment = %s, want development", cfg.Server.Environment)
	}
	if cfg.Spoonacular.BaseURL != "https://api.spoonacular.com" {
		t.Errorf("Spoonacular.BaseURL = %s", cfg.Spoonacular.BaseURL)
	}
	if cfg.Spoonacular.DailyQuota != 150 {
		t.Errorf("Spoonacular.DailyQuota = %d, want 150", cfg.Spoonacular.DailyQuota)
	}
	if cfg.Spoonacular.Timeout != 30*time.Second {
		t.Errorf("Spoonacular.Timeout = %s, want 30s", cfg.Spoonacular.Timeout)
	}
	if cfg.Cache.Path != "data/recipes.db" {
		t.Errorf("Cache.Path = %s, want data/recipes.db", cfg.Cache.Path)
	}
	if cfg.Cache.IngredientTTL != 24*time.Hour {
		t.Errorf("Cache.IngredientTTL = %s, want 24h", cfg.Cache.IngredientTTL)
	}
	if cfg.Cache.SearchTTL != time.Hour {
		t.Errorf("Cache.SearchTTL = %s, want 1h", cfg.Cache.SearchTTL)
	}
	if cfg.Cache.DetailTTL != 168*time.Hour {
		t.Errorf("Cache.DetailTTL = %s, want 168h", cfg.Cache.DetailTTL)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %s, want info", cfg.Log.Level)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("RECIPEFINDER_SPOONACULAR_API_KEY", "test-key")
	t.Setenv("RECIPEFINDER_SERVER_PORT", "9090")
	t.Setenv("RECIPEFINDER_SERVER_ENVIRONMENT", "production")
	t.Setenv("RECIPEFINDER_SPOONACULAR_DAILY_QUOTA", "500")
	t.Setenv("RECIPEFINDER_CACHE_SEARCH_TTL", "30m")
	t.Setenv("RECIPEFINDER_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %s, want 9090", cfg.Server.Port)
	}
	if cfg.Server.Environment != "production" {
		t.Errorf("Server.Environment = %s, want production", cfg.Server.Environment)
	}
	if cfg.Spoonacular.APIKey != "test-key" {
		t.Errorf("Spoonacular.APIKey = %s, want test-key", cfg.Spoonacular.APIKey)
	}
	if cfg.Spoonacular.DailyQuota != 500 {
		t.Errorf("Spoonacular.DailyQuota = %d, want 500", cfg.Spoonacular.DailyQuota)
	}
	if cfg.Cache.SearchTTL != 30*time.Minute {
		t.Errorf("Cache.SearchTTL = %s, want 30m", cfg.Cache.SearchTTL)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %s, want debug", cfg.Log.Level)
	}
}

func TestLoadMissingAPIKey(t *testing.T) {
	t.Setenv("RECIPEFINDER_SPOONACULAR_API_KEY", "")

	if _, err := Load(); err == nil {
		t.Error("Load() without an API key must fail validation")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.Spoonacular.APIKey = "key"
		cfg.Spoonacular.DailyQuota = 150
		cfg.Cache.Path = "data/recipes.db"
		cfg.Cache.IngredientTTL = 24 * time.Hour
		cfg.Cache.SearchTTL = time.Hour
		cfg.Cache.DetailTTL = 168 * time.Hour
		return cfg
	}

	if err := validate(valid()); err != nil {
		t.Fatalf("validate() on complete config error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing api key", func(c *Config) { c.Spoonacular.APIKey = "" }},
		{"missing cache path", func(c *Config) { c.Cache.Path = "" }},
		{"zero quota", func(c *Config) { c.Spoonacular.DailyQuota = 0 }},
		{"negative quota", func(c *Config) { c.Spoonacular.DailyQuota = -1 }},
		{"zero ingredient ttl", func(c *Config) { c.Cache.IngredientTTL = 0 }},
		{"negative search ttl", func(c *Config) { c.Cache.SearchTTL = -time.Hour }},
		{"zero detail ttl", func(c *Config) { c.Cache.DetailTTL = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := validate(cfg); err == nil {
				t.Error("validate() = nil, want error")
			}
		})
	}
}
