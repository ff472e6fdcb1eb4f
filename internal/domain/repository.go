package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations.
// Values are opaque encoded bytes so memory and Redis backends behave alike.
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RecipeSource defines the interface for the external recipe search API
type RecipeSource interface {
	SearchRecipes(ctx context.Context, query string) (*RecipeSearchResult, error)
}
