package domain

import "errors"

var (
	// ErrInvalidShelfLifeEstimate is returned when a per-location day count is negative or missing
	ErrInvalidShelfLifeEstimate = errors.New("invalid shelf life estimate")

	// ErrInvalidStorageLocation is returned for a location other than fridge, freezer or shelf
	ErrInvalidStorageLocation = errors.New("invalid storage location")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrRecipeSourceFailure is returned when the recipe search API request fails
	ErrRecipeSourceFailure = errors.New("recipe source request failed")

	// ErrRecipeSourceNotConfigured is returned when suggestions are requested without a recipe source
	ErrRecipeSourceNotConfigured = errors.New("recipe source not configured")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable is returned when cache service is unavailable
	ErrCacheUnavailable = errors.New("cache service unavailable")
)
