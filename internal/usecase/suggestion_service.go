package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/freshkeep/backend/internal/domain"
	"github.com/freshkeep/backend/internal/infrastructure/metrics"
)

// Package-level compiled regex patterns for performance
var (
	nonAlphanumericRegex = regexp.MustCompile(`[^a-z0-9\s]`)
	multipleSpacesRegex  = regexp.MustCompile(`\s+`)
)

// SuggestionServiceConfig holds configuration for the suggestion service
type SuggestionServiceConfig struct {
	CacheTTL              time.Duration
	ExpiringThresholdDays int
	ResultLimit           int
	MaxSearchTerms        int
	MaxConcurrency        int
	EnableDebugLogging    bool
}

// SuggestRequest asks for recipes that use up what is about to spoil
type SuggestRequest struct {
	Inventory      []domain.InventoryItem
	Now            time.Time
	Limit          *int // nil uses the configured limit, <= 0 disables truncation
	ExcludeExpired bool
}

// SuggestResult carries the ranked recipes and the searches that found them
type SuggestResult struct {
	Recipes     []domain.ScoredRecipe
	SearchTerms []string
}

// SuggestionService finds recipe candidates for expiring items and ranks them
type SuggestionService struct {
	cache          domain.CacheRepository
	source         domain.RecipeSource
	matcher        *MatchingService
	preprocessor   *QueryPreprocessor
	cacheTTL       time.Duration
	threshold      int
	resultLimit    int
	maxConcurrency int
	logger         *zap.Logger
}

// NewSuggestionService creates a new suggestion service with dependencies.
// A nil source makes Suggest return ErrRecipeSourceNotConfigured.
func NewSuggestionService(
	cache domain.CacheRepository,
	source domain.RecipeSource,
	matcher *MatchingService,
	config SuggestionServiceConfig,
	logger *zap.Logger,
) *SuggestionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if matcher == nil {
		matcher = NewMatchingService(MatchConfig{Logger: logger})
	}

	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 6 * time.Hour
	}

	threshold := config.ExpiringThresholdDays
	if threshold < 0 {
		threshold = DefaultExpiringThresholdDays
	}

	limit := config.ResultLimit
	if limit <= 0 {
		limit = DefaultResultLimit
	}

	concurrency := config.MaxConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	return &SuggestionService{
		cache:          cache,
		source:         source,
		matcher:        matcher,
		preprocessor:   NewQueryPreprocessor(config.MaxSearchTerms, logger, config.EnableDebugLogging),
		cacheTTL:       cacheTTL,
		threshold:      threshold,
		resultLimit:    limit,
		maxConcurrency: concurrency,
		logger:         logger.With(zap.String("component", "suggest")),
	}
}

// Suggest runs the full browsing flow: expiring items -> search terms ->
// candidates (cache, then recipe source) -> ranked recipes.
// No expiring items is not an error; the result is simply empty.
func (s *SuggestionService) Suggest(ctx context.Context, req *SuggestRequest) (*SuggestResult, error) {
	if req == nil {
		return nil, domain.ErrInvalidRequest
	}
	if s.source == nil {
		return nil, domain.ErrRecipeSourceNotConfigured
	}

	inventory := req.Inventory
	if req.ExcludeExpired {
		inventory = WithoutExpired(inventory, req.Now)
	}

	expiring := ExpiringItems(inventory, s.threshold, req.Now)
	terms := s.preprocessor.BuildSearchTerms(expiring)

	result := &SuggestResult{
		Recipes:     []domain.ScoredRecipe{},
		SearchTerms: terms,
	}
	if len(terms) == 0 {
		return result, nil
	}

	candidates, err := s.collectCandidates(ctx, terms)
	if err != nil {
		return nil, err
	}

	limit := s.resultLimit
	if req.Limit != nil {
		limit = *req.Limit
	}

	result.Recipes = s.matcher.Match(MatchRequest{
		Inventory:             inventory,
		Candidates:            candidates,
		ExpiringThresholdDays: s.threshold,
		Limit:                 limit,
		Now:                   req.Now,
	})
	metrics.RecipesRanked.WithLabelValues("suggest").Add(float64(len(result.Recipes)))

	s.logger.Info("suggested recipes",
		zap.Int("expiring", len(expiring)),
		zap.Strings("terms", terms),
		zap.Int("candidates", len(candidates)),
		zap.Int("returned", len(result.Recipes)))

	return result, nil
}

// collectCandidates searches every term concurrently and merges the results
// in term order, first occurrence of a recipe wins. Individual failures are
// tolerated as long as one search succeeds.
func (s *SuggestionService) collectCandidates(ctx context.Context, terms []string) ([]domain.RecipeCandidate, error) {
	perTerm := make([][]domain.RecipeCandidate, len(terms))
	errs := make([]error, len(terms))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrency)
	for i, term := range terms {
		g.Go(func() error {
			perTerm[i], errs[i] = s.fetchCandidates(gctx, term)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var firstErr error
	failed := 0
	for i, err := range errs {
		if err == nil {
			continue
		}
		failed++
		if firstErr == nil {
			firstErr = err
		}
		s.logger.Warn("recipe search failed", zap.String("term", terms[i]), zap.Error(err))
	}
	if failed == len(terms) {
		if errors.Is(firstErr, domain.ErrRecipeSourceFailure) {
			return nil, firstErr
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrRecipeSourceFailure, firstErr)
	}

	var merged []domain.RecipeCandidate
	seen := make(map[string]bool)
	for _, candidates := range perTerm {
		for _, c := range candidates {
			key := candidateKey(c)
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, c)
		}
	}
	return merged, nil
}

// fetchCandidates returns the candidates for one term, from cache when possible
func (s *SuggestionService) fetchCandidates(ctx context.Context, term string) ([]domain.RecipeCandidate, error) {
	cacheKey := generateCacheKey(term)

	if cached, ok := s.getFromCache(ctx, cacheKey); ok {
		return cached, nil
	}

	searchResult, err := s.source.SearchRecipes(ctx, term)
	if err != nil {
		return nil, err
	}
	if searchResult == nil || len(searchResult.Candidates) == 0 {
		return nil, nil
	}

	if err := s.setInCache(ctx, cacheKey, searchResult.Candidates); err != nil {
		s.logger.Warn("failed to cache recipe candidates", zap.String("key", cacheKey), zap.Error(err))
	}
	return searchResult.Candidates, nil
}

// getFromCache treats every cache failure as a miss
func (s *SuggestionService) getFromCache(ctx context.Context, key string) ([]domain.RecipeCandidate, bool) {
	if s.cache == nil {
		return nil, false
	}

	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrCacheMiss) {
			metrics.RecipeCacheLookups.WithLabelValues(metrics.CacheMiss).Inc()
		} else {
			metrics.RecipeCacheLookups.WithLabelValues(metrics.CacheError).Inc()
			s.logger.Warn("cache lookup failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	var candidates []domain.RecipeCandidate
	if err := json.Unmarshal(raw, &candidates); err != nil {
		metrics.RecipeCacheLookups.WithLabelValues(metrics.CacheError).Inc()
		s.logger.Warn("discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	metrics.RecipeCacheLookups.WithLabelValues(metrics.CacheHit).Inc()
	return candidates, true
}

func (s *SuggestionService) setInCache(ctx context.Context, key string, candidates []domain.RecipeCandidate) error {
	if s.cache == nil {
		return nil
	}
	raw, err := json.Marshal(candidates)
	if err != nil {
		return fmt.Errorf("encode candidates: %w", err)
	}
	return s.cache.Set(ctx, key, raw, s.cacheTTL)
}

// generateCacheKey creates a normalized cache key for a search term.
// Format: "recipes:{normalized_term}"
func generateCacheKey(term string) string {
	return "recipes:" + normalizeForCacheKey(term)
}

// normalizeForCacheKey converts to lowercase, removes special characters and
// collapses whitespace
func normalizeForCacheKey(s string) string {
	if s == "" {
		return ""
	}
	result := strings.ToLower(s)
	result = nonAlphanumericRegex.ReplaceAllString(result, "")
	result = multipleSpacesRegex.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

func candidateKey(c domain.RecipeCandidate) string {
	if c.ID != "" {
		return "id:" + c.ID
	}
	return "title:" + strings.ToLower(c.Title)
}
