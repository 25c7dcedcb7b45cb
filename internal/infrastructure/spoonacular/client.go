package spoonacular

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/recipefinder/backend/internal/domain"
	"github.com/recipefinder/backend/internal/logging"
)

const (
	// maxRetries is the number of re-attempts after the initial call for
	// transient failures. Rate-limit and 4xx responses are never retried.
	maxRetries = 2

	// quotaLeftHeader carries the provider's remaining daily points.
	quotaLeftHeader = "X-API-Quota-Left"
)

// Client handles communication with the Spoonacular API. It paces
// requests, tracks the remaining daily quota and fails fast once the
// quota is exhausted so cache misses cannot burn through the allowance.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	limiter    *rate.Limiter
	quota      *quotaTracker
}

// NewClient creates a new Spoonacular API client. dailyQuota is the
// provider plan's request allowance per day.
func NewClient(apiKey, baseURL string, dailyQuota int, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	// Smooth bursts to roughly one call per second with headroom for a
	// handful of concurrent cold-cache requests.
	limiter := rate.NewLimiter(rate.Limit(1), 5)

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		limiter: limiter,
		quota:   newQuotaTracker(dailyQuota),
	}
}

// SearchIngredients searches the ingredient catalog by name.
func (c *Client) SearchIngredients(ctx context.Context, query string, limit int) ([]domain.Ingredient, error) {
	params := url.Values{}
	params.Add("apiKey", c.apiKey)
	params.Add("query", query)
	params.Add("number", strconv.Itoa(limit))
	params.Add("metaInformation", "false")

	body, err := c.get(ctx, "ingredients.search", c.baseURL+"/food/ingredients/search", params)
	if err != nil {
		return nil, err
	}

	var resp ingredientSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, c.invalidResponse("ingredients.search", body, err)
	}

	return mapIngredients(resp.Results), nil
}

// SearchRecipesByIngredients searches for recipes using the provided
// ingredient names. The provider's own overlap count is discarded;
// match counts are recomputed downstream so ranking stays consistent.
func (c *Client) SearchRecipesByIngredients(ctx context.Context, ingredients []string, limit int) ([]domain.RecipeSummary, error) {
	params := url.Values{}
	params.Add("apiKey", c.apiKey)
	params.Add("ingredients", strings.Join(ingredients, ","))
	params.Add("number", strconv.Itoa(limit))
	params.Add("ranking", "1")
	params.Add("ignorePantry", "true")

	body, err := c.get(ctx, "recipes.byIngredients", c.baseURL+"/recipes/findByIngredients", params)
	if err != nil {
		return nil, err
	}

	var recipes []ingredientSearchRecipe
	if err := json.Unmarshal(body, &recipes); err != nil {
		return nil, c.invalidResponse("recipes.byIngredients", body, err)
	}

	summaries := make([]domain.RecipeSummary, 0, len(recipes))
	for _, r := range recipes {
		summary, err := mapIngredientSearchRecipe(r)
		if err != nil {
			return nil, c.invalidResponse("recipes.byIngredients", body, err)
		}
		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// ListRecipes returns a page of recipes for browse mode.
func (c *Client) ListRecipes(ctx context.Context, limit, offset int) ([]domain.RecipeSummary, error) {
	params := url.Values{}
	params.Add("apiKey", c.apiKey)
	params.Add("number", strconv.Itoa(limit))
	params.Add("offset", strconv.Itoa(offset))
	params.Add("addRecipeInformation", "true")
	params.Add("fillIngredients", "true")

	body, err := c.get(ctx, "recipes.list", c.baseURL+"/recipes/complexSearch", params)
	if err != nil {
		return nil, err
	}

	var resp complexSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, c.invalidResponse("recipes.list", body, err)
	}

	summaries := make([]domain.RecipeSummary, 0, len(resp.Results))
	for _, info := range resp.Results {
		summary, err := mapRecipeInformationSummary(info)
		if err != nil {
			return nil, c.invalidResponse("recipes.list", body, err)
		}
		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// GetRecipeDetail fetches the full recipe record for an upstream id.
func (c *Client) GetRecipeDetail(ctx context.Context, id string) (*domain.RecipeDetail, error) {
	params := url.Values{}
	params.Add("apiKey", c.apiKey)
	params.Add("includeNutrition", "false")

	body, err := c.get(ctx, "recipes.detail", fmt.Sprintf("%s/recipes/%s/information", c.baseURL, url.PathEscape(id)), params)
	if err != nil {
		return nil, err
	}

	var info recipeInformation
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, c.invalidResponse("recipes.detail", body, err)
	}

	detail, err := mapRecipeInformationDetail(info)
	if err != nil {
		return nil, c.invalidResponse("recipes.detail", body, err)
	}

	return detail, nil
}

// QuotaRemaining reports the tracked remaining daily quota.
func (c *Client) QuotaRemaining() int {
	return c.quota.remainingNow()
}

// get executes a GET with quota accounting, pacing and the retry policy:
// timeouts and 5xx are retried with backoff, everything else fails
// immediately with its mapped domain error.
func (c *Client) get(ctx context.Context, op, endpoint string, params url.Values) ([]byte, error) {
	if err := c.quota.acquire(); err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s?%s", endpoint, params.Encode())

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, exponentialBackoff(attempt)); err != nil {
				return nil, err
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, retryable, err := c.doRequest(ctx, op, reqURL)
		if err == nil {
			return body, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}

// doRequest performs one HTTP round trip and maps the status code to the
// domain error taxonomy. The second return reports retryability.
func (c *Client) doRequest(ctx context.Context, op, reqURL string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "RecipeFinder/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	c.quota.observe(resp.Header.Get(quotaLeftHeader))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, false, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, domain.ErrRecipeNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusPaymentRequired:
		// 402 is Spoonacular's daily-points-exhausted response
		c.quota.exhaust()
		return nil, false, domain.ErrRateLimited
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("%w: status %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	default:
		logging.L().Error("upstream rejected request",
			"operation", op, "status", resp.StatusCode, "body", truncateForLog(body))
		return nil, false, fmt.Errorf("%w: status %d", domain.ErrInvalidResponse, resp.StatusCode)
	}
}

// invalidResponse logs the offending payload for diagnosis and wraps the
// decode error in the schema-violation kind.
func (c *Client) invalidResponse(op string, body []byte, err error) error {
	logging.L().Error("upstream payload violates expected schema",
		"operation", op, "error", err, "body", truncateForLog(body))
	if errors.Is(err, domain.ErrInvalidResponse) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrInvalidResponse, err)
}

// exponentialBackoff returns the delay before the given retry attempt:
// 200ms for the first, 800ms for the second.
func exponentialBackoff(attempt int) time.Duration {
	return 200 * time.Millisecond << (2 * (attempt - 1))
}

// sleepContext sleeps for d or until the context is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// truncateForLog bounds a raw payload for log output.
func truncateForLog(body []byte) string {
	const limit = 512
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}

// quotaTracker tracks the provider's daily point allowance. The local
// counter is a pessimistic estimate that is corrected from the quota
// header on every response; once it hits zero, calls fail fast with
// ErrRateLimited until the next daily reset.
type quotaTracker struct {
	mu        sync.Mutex
	daily     int
	remaining int
	resetAt   time.Time

	now func() time.Time
}

func newQuotaTracker(daily int) *quotaTracker {
	now := time.Now
	return &quotaTracker{
		daily:     daily,
		remaining: daily,
		resetAt:   nextQuotaReset(now()),
		now:       now,
	}
}

// acquire consumes one unit of quota or fails fast when exhausted.
func (q *quotaTracker) acquire() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.maybeReset()

	if q.remaining <= 0 {
		return domain.ErrRateLimited
	}
	q.remaining--
	return nil
}

// observe corrects the local counter from the provider's quota header.
func (q *quotaTracker) observe(left string) {
	if left == "" {
		return
	}
	// The header value is points with a decimal fraction
	value, err := strconv.ParseFloat(left, 64)
	if err != nil {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.remaining = int(value)
}

// exhaust zeroes the counter after a provider rate-limit response.
func (q *quotaTracker) exhaust() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.remaining = 0
}

func (q *quotaTracker) remainingNow() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.maybeReset()
	return q.remaining
}

// maybeReset restores the allowance once the daily window rolls over.
// Callers must hold the mutex.
func (q *quotaTracker) maybeReset() {
	now := q.now()
	if now.Before(q.resetAt) {
		return
	}
	q.remaining = q.daily
	q.resetAt = nextQuotaReset(now)
}

// nextQuotaReset returns the next midnight UTC, Spoonacular's quota
// reset boundary.
func nextQuotaReset(now time.Time) time.Time {
	utc := now.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}
