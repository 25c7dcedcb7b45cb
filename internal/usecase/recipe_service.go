package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/recipefinder/backend/internal/domain"
	"github.com/recipefinder/backend/internal/logging"
	"github.com/recipefinder/backend/internal/metrics"
)

// Key prefixes for the recipe-search namespace. Browse mode and
// ingredient queries share the tier, so each key form carries its own
// prefix; ingredient names pass through normalization unrestricted and
// could otherwise spell any bare key.
const (
	allRecipesKey       = "browse:all"
	ingredientKeyPrefix = "set:"
)

// minQueryLength is the shortest query worth an upstream call; single
// keystrokes would waste quota on noise.
const minQueryLength = 2

// RecipeServiceConfig holds configuration for the recipe service.
type RecipeServiceConfig struct {
	IngredientTTL time.Duration
	SearchTTL     time.Duration
	DetailTTL     time.Duration

	// UpstreamTimeout bounds the shared fetch that outlives individual
	// waiters.
	UpstreamTimeout time.Duration

	SearchLimit      int
	ListLimit        int
	IngredientLimit  int
	TitleSearchLimit int
}

// RecipeService orchestrates the cache tiers, the upstream client and
// the matcher: cache-first on every operation, one upstream call per
// missing key regardless of concurrent demand, match ranking applied
// per request after the raw result set is cached.
type RecipeService struct {
	cache    domain.CacheStore
	upstream domain.RecipeProvider
	matcher  *Matcher
	metrics  *metrics.Metrics
	flight   singleflight.Group
	config   RecipeServiceConfig
}

// NewRecipeService creates a new recipe service with dependencies.
// The metrics handle may be nil (tests).
func NewRecipeService(
	cache domain.CacheStore,
	upstream domain.RecipeProvider,
	m *metrics.Metrics,
	config RecipeServiceConfig,
) *RecipeService {
	if config.IngredientTTL == 0 {
		config.IngredientTTL = 24 * time.Hour
	}
	if config.SearchTTL == 0 {
		config.SearchTTL = time.Hour
	}
	if config.DetailTTL == 0 {
		config.DetailTTL = 7 * 24 * time.Hour
	}
	if config.UpstreamTimeout == 0 {
		config.UpstreamTimeout = 30 * time.Second
	}
	if config.SearchLimit == 0 {
		config.SearchLimit = 12
	}
	if config.ListLimit == 0 {
		config.ListLimit = 12
	}
	if config.IngredientLimit == 0 {
		config.IngredientLimit = 10
	}
	if config.TitleSearchLimit == 0 {
		config.TitleSearchLimit = 8
	}

	return &RecipeService{
		cache:    cache,
		upstream: upstream,
		matcher:  NewMatcher(),
		metrics:  m,
		config:   config,
	}
}

// FindRecipesByIngredients answers the ingredient-based recipe search.
// An empty ingredient list delegates to ListRecipes (browse mode). The
// cached result set is raw and unranked; ranking runs per request so
// match counts always reflect the querying user's list.
func (s *RecipeService) FindRecipesByIngredients(ctx context.Context, ingredients []string) ([]domain.RecipeSummary, error) {
	cleaned := cleanIngredients(ingredients)
	if len(cleaned) == 0 {
		return s.ListRecipes(ctx)
	}

	key := ingredientSetKey(cleaned)
	candidates, err := fetchThrough(ctx, s, domain.NamespaceRecipeSearch, key, s.config.SearchTTL,
		func(fctx context.Context) ([]domain.RecipeSummary, error) {
			return s.upstream.SearchRecipesByIngredients(fctx, cleaned, s.config.SearchLimit)
		})
	if err != nil {
		return nil, err
	}

	return s.matcher.Rank(cleaned, candidates), nil
}

// ListRecipes serves the "All Recipes" browse mode from a fixed cache key.
func (s *RecipeService) ListRecipes(ctx context.Context) ([]domain.RecipeSummary, error) {
	recipes, err := fetchThrough(ctx, s, domain.NamespaceRecipeSearch, allRecipesKey, s.config.SearchTTL,
		func(fctx context.Context) ([]domain.RecipeSummary, error) {
			return s.upstream.ListRecipes(fctx, s.config.ListLimit, 0)
		})
	if err != nil {
		return nil, err
	}

	// Upstream order, no ranking
	return s.matcher.Rank(nil, recipes), nil
}

// SearchIngredients answers ingredient autocomplete. Queries shorter
// than two characters return empty without touching cache or upstream.
func (s *RecipeService) SearchIngredients(ctx context.Context, query string) ([]domain.Ingredient, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < minQueryLength {
		return []domain.Ingredient{}, nil
	}

	key := normalizeQueryKey(query)
	return fetchThrough(ctx, s, domain.NamespaceIngredientSearch, key, s.config.IngredientTTL,
		func(fctx context.Context) ([]domain.Ingredient, error) {
			return s.upstream.SearchIngredients(fctx, query, s.config.IngredientLimit)
		})
}

// SearchRecipesByTitle answers recipe-title autocomplete: an ingredient
// search seeded with the query, filtered to titles containing it.
func (s *RecipeService) SearchRecipesByTitle(ctx context.Context, query string) ([]domain.RecipeSummary, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < minQueryLength {
		return []domain.RecipeSummary{}, nil
	}

	candidates, err := s.FindRecipesByIngredients(ctx, []string{query})
	if err != nil {
		return nil, err
	}

	queryLower := strings.ToLower(query)
	matched := make([]domain.RecipeSummary, 0, s.config.TitleSearchLimit)
	for _, recipe := range candidates {
		if len(matched) >= s.config.TitleSearchLimit {
			break
		}
		if strings.Contains(strings.ToLower(recipe.Title), queryLower) {
			matched = append(matched, recipe)
		}
	}

	return matched, nil
}

// GetRecipeDetail serves the full recipe record, cache-first by id.
// ErrRecipeNotFound propagates unchanged.
func (s *RecipeService) GetRecipeDetail(ctx context.Context, id string) (*domain.RecipeDetail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrInvalidRequest
	}

	return fetchThrough(ctx, s, domain.NamespaceRecipeDetail, id, s.config.DetailTTL,
		func(fctx context.Context) (*domain.RecipeDetail, error) {
			return s.upstream.GetRecipeDetail(fctx, id)
		})
}

// fetchThrough is the shared cache-or-fetch path: check the tier, and on
// a miss collapse concurrent fetches of the same key into one upstream
// call via singleflight. The fetch runs on a context detached from the
// caller with its own timeout, so one waiter timing out does not cancel
// the result other waiters are blocked on. Cache I/O failures degrade
// the request to a direct upstream call instead of failing it.
func fetchThrough[T any](
	ctx context.Context,
	s *RecipeService,
	namespace, key string,
	ttl time.Duration,
	fetch func(context.Context) (T, error),
) (T, error) {
	var zero T

	raw, err := s.cache.Get(ctx, namespace, key)
	switch {
	case err == nil:
		var value T
		if err := json.Unmarshal(raw, &value); err == nil {
			s.observeCacheHit(namespace)
			return value, nil
		}
		// Undecodable entry: treat as a miss and refetch
		s.observeCacheMiss(namespace)
	case errors.Is(err, domain.ErrCacheMiss):
		s.observeCacheMiss(namespace)
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return zero, err
	default:
		logging.L().Warn("cache read failed, serving request direct from upstream",
			"namespace", namespace, "key", key, "error", err)
	}

	ch := s.flight.DoChan(namespace+"/"+key, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.UpstreamTimeout)
		defer cancel()

		value, err := fetch(fctx)
		s.observeUpstreamCall(namespace, err)
		if err != nil {
			return nil, err
		}

		if data, err := json.Marshal(value); err == nil {
			if err := s.cache.Put(fctx, namespace, key, data, ttl); err != nil {
				logging.L().Warn("cache write failed, result served uncached",
					"namespace", namespace, "key", key, "error", err)
			}
		}

		return value, nil
	})

	select {
	case <-ctx.Done():
		// The shared fetch keeps running for the remaining waiters
		return zero, ctx.Err()
	case result := <-ch:
		if result.Err != nil {
			return zero, fmt.Errorf("recipe lookup failed: %w", result.Err)
		}
		return result.Val.(T), nil
	}
}

func (s *RecipeService) observeCacheHit(namespace string) {
	if s.metrics != nil {
		s.metrics.CacheHit(namespace)
	}
}

func (s *RecipeService) observeCacheMiss(namespace string) {
	if s.metrics != nil {
		s.metrics.CacheMiss(namespace)
	}
}

func (s *RecipeService) observeUpstreamCall(namespace string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrRateLimited):
		outcome = "rate_limited"
	case errors.Is(err, domain.ErrRecipeNotFound):
		outcome = "not_found"
	case errors.Is(err, domain.ErrInvalidResponse):
		outcome = "invalid_response"
	default:
		outcome = "error"
	}
	s.metrics.UpstreamCall(namespace, outcome)
}

// cleanIngredients trims entries and drops empties, preserving order.
func cleanIngredients(ingredients []string) []string {
	cleaned := make([]string, 0, len(ingredients))
	for _, ingredient := range ingredients {
		if trimmed := strings.TrimSpace(ingredient); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}

// ingredientSetKey builds the recipe-search cache key: normalized
// ingredient names, sorted and joined, so ingredient order never splits
// the cache.
func ingredientSetKey(ingredients []string) string {
	normalized := make([]string, 0, len(ingredients))
	seen := make(map[string]bool, len(ingredients))
	for _, ingredient := range ingredients {
		name := NormalizeIngredient(ingredient)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		normalized = append(normalized, name)
	}
	sort.Strings(normalized)
	return ingredientKeyPrefix + strings.Join(normalized, ",")
}

// normalizeQueryKey builds a search-tier cache key: lowercased with
// whitespace collapsed.
func normalizeQueryKey(query string) string {
	return multipleSpacesRegex.ReplaceAllString(strings.ToLower(strings.TrimSpace(query)), " ")
}
