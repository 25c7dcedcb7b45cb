package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig
	Spoonacular SpoonacularConfig
	Cache       CacheConfig
	Log         LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// SpoonacularConfig holds upstream API configuration
type SpoonacularConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	DailyQuota int           `mapstructure:"daily_quota"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// CacheConfig holds the durable-cache configuration. Each tier carries
// its own TTL; the sweep interval bounds storage growth.
type CacheConfig struct {
	Path          string        `mapstructure:"path"`
	IngredientTTL time.Duration `mapstructure:"ingredient_ttl"`
	SearchTTL     time.Duration `mapstructure:"search_ttl"`
	DetailTTL     time.Duration `mapstructure:"detail_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/recipefinder/")

	// Environment variable settings
	v.SetEnvPrefix("RECIPEFINDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://localhost:3001"})

	// Spoonacular defaults. The empty api_key default registers the key
	// so the environment override is visible to Unmarshal.
	v.SetDefault("spoonacular.api_key", "")
	v.SetDefault("spoonacular.base_url", "https://api.spoonacular.com")
	v.SetDefault("spoonacular.daily_quota", 150)
	v.SetDefault("spoonacular.timeout", "30s")

	// Cache defaults: the ingredient taxonomy is near-static, search result
	// sets shift, recipe content rarely changes.
	v.SetDefault("cache.path", "data/recipes.db")
	v.SetDefault("cache.ingredient_ttl", "24h")
	v.SetDefault("cache.search_ttl", "1h")
	v.SetDefault("cache.detail_ttl", "168h")
	v.SetDefault("cache.sweep_interval", "10m")

	// Log defaults
	v.SetDefault("log.level", "info")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Spoonacular.APIKey == "" {
		return fmt.Errorf("Spoonacular API key is required (set RECIPEFINDER_SPOONACULAR_API_KEY)")
	}

	if config.Cache.Path == "" {
		return fmt.Errorf("cache path is required")
	}

	if config.Spoonacular.DailyQuota <= 0 {
		return fmt.Errorf("daily quota must be positive, got: %d", config.Spoonacular.DailyQuota)
	}

	for _, ttl := range []struct {
		name string
		d    time.Duration
	}{
		{"ingredient_ttl", config.Cache.IngredientTTL},
		{"search_ttl", config.Cache.SearchTTL},
		{"detail_ttl", config.Cache.DetailTTL},
	} {
		if ttl.d <= 0 {
			return fmt.Errorf("cache %s must be positive, got: %s", ttl.name, ttl.d)
		}
	}

	return nil
}
