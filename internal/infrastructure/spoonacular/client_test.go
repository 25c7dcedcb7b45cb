package spoonacular

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recipefinder/backend/internal/domain"
)

func newTestClient(serverURL string) *Client {
	return NewClient("test-api-key", serverURL, 150, 5*time.Second)
}

func TestSearchIngredients(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/food/ingredients/search", r.URL.Path)
		assert.Equal(t, "test-api-key", r.URL.Query().Get("apiKey"))
		assert.Equal(t, "chick", r.URL.Query().Get("query"))
		assert.Equal(t, "10", r.URL.Query().Get("number"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[{"id":5006,"name":"chicken breast","image":"chicken-breast.png"}]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	ingredients, err := client.SearchIngredients(context.Background(), "chick", 10)
	require.NoError(t, err)
	require.Len(t, ingredients, 1)
	assert.Equal(t, 5006, ingredients[0].ID)
	assert.Equal(t, "chicken breast", ingredients[0].Name)
	assert.Equal(t, "https://spoonacular.com/cdn/ingredients_100x100/chicken-breast.png", ingredients[0].Image)
}

func TestSearchRecipesByIngredients(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/recipes/findByIngredients", r.URL.Path)
		assert.Equal(t, "chicken,rice", r.URL.Query().Get("ingredients"))
		assert.Equal(t, "1", r.URL.Query().Get("ranking"))
		assert.Equal(t, "true", r.URL.Query().Get("ignorePantry"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{
			"id": 716429,
			"title": "Chicken Fried Rice",
			"image": "https://img.spoonacular.com/recipes/716429-312x231.jpg",
			"usedIngredientCount": 2,
			"missedIngredientCount": 1,
			"usedIngredients": [{"id":5006,"name":"chicken"},{"id":20444,"name":"rice"}],
			"missedIngredients": [{"id":11215,"name":"garlic"}]
		}]`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	recipes, err := client.SearchRecipesByIngredients(context.Background(), []string{"chicken", "rice"}, 12)
	require.NoError(t, err)
	require.Len(t, recipes, 1)
	assert.Equal(t, "716429", recipes[0].ID)
	assert.Equal(t, "Chicken Fried Rice", recipes[0].Title)
	assert.Equal(t, []string{"chicken", "rice", "garlic"}, recipes[0].Ingredients)
	assert.Equal(t, 0, recipes[0].MatchCount)
}

func TestGetRecipeDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/recipes/716429/information", r.URL.Path)
		assert.Equal(t, "false", r.URL.Query().Get("includeNutrition"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": 716429,
			"title": "Pasta with Garlic",
			"servings": 2,
			"readyInMinutes": 45,
			"vegetarian": true,
			"extendedIngredients": [{"id":11215,"name":"garlic","amount":2,"unit":"cloves","original":"2 cloves garlic"}],
			"analyzedInstructions": [{"name":"","steps":[{"number":1,"step":"Boil the pasta."},{"number":2,"step":"Add garlic."}]}]
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	detail, err := client.GetRecipeDetail(context.Background(), "716429")
	require.NoError(t, err)
	assert.Equal(t, "716429", detail.ID)
	assert.Equal(t, "Pasta with Garlic", detail.Title)
	assert.True(t, detail.IsVegetarian)
	assert.Equal(t, "45 min", detail.TotalTime)
	require.Len(t, detail.Instructions, 2)
	assert.Equal(t, "Boil the pasta.", detail.Instructions[0].Step)
}

func TestGetRecipeDetail_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.GetRecipeDetail(context.Background(), "99999")
	assert.ErrorIs(t, err, domain.ErrRecipeNotFound)
}

func TestQuotaExhaustedFailsFast(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		// 402 is the provider's daily-points-exhausted response
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.SearchIngredients(context.Background(), "chicken", 10)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Equal(t, int32(1), calls.Load(), "rate-limit responses must not be retried")

	// Subsequent calls fail locally without an HTTP round trip
	_, err = client.SearchIngredients(context.Background(), "beef", 10)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetriesServerErrorThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	ingredients, err := client.SearchIngredients(context.Background(), "chicken", 10)
	require.NoError(t, err)
	assert.Empty(t, ingredients)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.SearchIngredients(context.Background(), "chicken", 10)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.Equal(t, int32(3), calls.Load(), "initial call plus two retries")
}

func TestBadRequestNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.SearchIngredients(context.Background(), "chicken", 10)
	assert.ErrorIs(t, err, domain.ErrInvalidResponse)
	assert.Equal(t, int32(1), calls.Load())
}

func TestMalformedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": not json`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.SearchIngredients(context.Background(), "chicken", 10)
	assert.ErrorIs(t, err, domain.ErrInvalidResponse)
}

func TestContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.SearchIngredients(ctx, "chicken", 10)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExponentialBackoff(t *testing.T) {
	assert.Equal(t, 200*time.Millisecond, exponentialBackoff(1))
	assert.Equal(t, 800*time.Millisecond, exponentialBackoff(2))
}

func TestQuotaTrackerObserve(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-API-Quota-Left", "41.5")
		w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.SearchIngredients(context.Background(), "chicken", 10)
	require.NoError(t, err)
	assert.Equal(t, 41, client.QuotaRemaining())
}

func TestQuotaTrackerDailyReset(t *testing.T) {
	q := newQuotaTracker(2)

	base := time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC)
	current := base
	q.now = func() time.Time { return current }
	q.resetAt = nextQuotaReset(base)

	require.NoError(t, q.acquire())
	require.NoError(t, q.acquire())
	assert.ErrorIs(t, q.acquire(), domain.ErrRateLimited)

	// Allowance is restored after midnight UTC
	current = base.Add(2 * time.Hour)
	assert.NoError(t, q.acquire())
	assert.Equal(t, 1, q.remainingNow())
}

func TestNextQuotaReset(t *testing.T) {
	now := time.Date(2025, 6, 1, 15, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), nextQuotaReset(now))
}
