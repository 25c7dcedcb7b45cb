package domain

import "errors"

var (
	// ErrRecipeNotFound is returned when the upstream has no recipe for an id
	ErrRecipeNotFound = errors.New("recipe not found")

	// ErrRateLimited is returned when the upstream quota is exhausted
	ErrRateLimited = errors.New("upstream rate limit exceeded")

	// ErrUpstreamUnavailable is returned on network failures and upstream 5xx
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrInvalidResponse is returned when the upstream payload violates the
	// expected schema; retrying cannot fix malformed data
	ErrInvalidResponse = errors.New("invalid upstream response")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache or has expired
	ErrCacheMiss = errors.New("cache miss")
)
