package domain

import (
	"context"
	"time"
)

// Cache namespaces. Each tier is keyed independently and carries its own TTL.
const (
	NamespaceIngredientSearch = "ingredient-search"
	NamespaceRecipeSearch     = "recipe-search"
	NamespaceRecipeDetail     = "recipe-detail"
)

// CacheStore defines the interface for the durable cache tiers.
// Values are opaque encoded bytes; writes are whole-value replacements.
// Get returns ErrCacheMiss for absent or expired entries.
type CacheStore interface {
	Get(ctx context.Context, namespace, key string) ([]byte, error)
	Put(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, namespace, key string) error
}

// RecipeProvider defines the interface for the upstream recipe API.
// Implementations translate provider payloads into the domain model and
// report failures through the domain error taxonomy.
type RecipeProvider interface {
	SearchIngredients(ctx context.Context, query string, limit int) ([]Ingredient, error)
	SearchRecipesByIngredients(ctx context.Context, ingredients []string, limit int) ([]RecipeSummary, error)
	ListRecipes(ctx context.Context, limit, offset int) ([]RecipeSummary, error)
	GetRecipeDetail(ctx context.Context, id string) (*RecipeDetail, error)
}
