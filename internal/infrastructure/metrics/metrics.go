package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecipeSourceRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freshkeep_recipe_source_requests_total",
			Help: "Recipe search API attempts by outcome",
		},
		[]string{"outcome"},
	)

	RecipeSourceDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "freshkeep_recipe_source_request_duration_seconds",
			Help:    "Duration of recipe search API attempts in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	RecipeCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freshkeep_recipe_cache_lookups_total",
			Help: "Recipe candidate cache lookups by result",
		},
		[]string{"result"},
	)

	RecipesRanked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freshkeep_recipes_ranked_total",
			Help: "Recipes returned by the matcher, by request kind",
		},
		[]string{"kind"},
	)

	Relocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freshkeep_relocations_total",
			Help: "Expiration recalculations by storage transition",
		},
		[]string{"from", "to"},
	)
)

// Outcome labels for RecipeSourceRequests
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Result labels for RecipeCacheLookups
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)
