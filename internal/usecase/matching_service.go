package usecase

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/freshkeep/backend/internal/domain"
)

// Scoring weights
const (
	fractionWeight        = 100.0 // matchFraction is scaled to 0-100
	expiringItemBonus     = 25.0  // per expiring inventory item the recipe uses
	missingIngredientCost = 5.0   // per ingredient not on hand
)

// Defaults used when MatchConfig leaves a value unset
const (
	DefaultExpiringThresholdDays = 3
	DefaultMaxMissingIngredients = 3
	DefaultResultLimit           = 20
)

// MatchConfig holds configuration for the matching service
type MatchConfig struct {
	// nil uses DefaultMaxMissingIngredients; zero keeps only complete recipes
	MaxMissingIngredients *int
	Checker               AvailabilityChecker
	Logger                *zap.Logger
	EnableDebugLogging    bool
}

// MatchRequest is a single scoring request. Now anchors the expiring
// classification; Limit <= 0 returns every surviving recipe.
type MatchRequest struct {
	Inventory             []domain.InventoryItem
	Candidates            []domain.RecipeCandidate
	ExpiringThresholdDays int
	Limit                 int
	Now                   time.Time
}

// MatchingService ranks recipe candidates against an inventory snapshot.
// It holds no mutable state and is safe for concurrent use.
type MatchingService struct {
	maxMissing         int
	checker            AvailabilityChecker
	logger             *zap.Logger
	enableDebugLogging bool
}

// NewMatchingService creates a new matching service with the given configuration
func NewMatchingService(config MatchConfig) *MatchingService {
	maxMissing := DefaultMaxMissingIngredients
	if config.MaxMissingIngredients != nil && *config.MaxMissingIngredients >= 0 {
		maxMissing = *config.MaxMissingIngredients
	}

	checker := config.Checker
	if checker == nil {
		checker = SubstringChecker{}
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &MatchingService{
		maxMissing:         maxMissing,
		checker:            checker,
		logger:             logger.With(zap.String("component", "matcher")),
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// Match scores every candidate, drops the ones that are not actionable and
// returns the rest best first. It never fails; an empty candidate set yields
// an empty list.
func (s *MatchingService) Match(req MatchRequest) []domain.ScoredRecipe {
	inventoryNames := make([]string, len(req.Inventory))
	for i, item := range req.Inventory {
		inventoryNames[i] = normalizeName(item.Name)
	}
	expiring := ExpiringItems(req.Inventory, req.ExpiringThresholdDays, req.Now)

	results := make([]domain.ScoredRecipe, 0, len(req.Candidates))
	for _, candidate := range req.Candidates {
		scored := s.scoreCandidate(candidate, inventoryNames, expiring)

		if s.enableDebugLogging {
			s.logger.Debug("scored recipe",
				zap.String("recipe", candidate.Title),
				zap.Int("available", scored.AvailableCount),
				zap.Int("missing", scored.MissingCount),
				zap.Float64("score", scored.Score))
		}

		if scored.TotalCount == 0 || scored.MissingCount > s.maxMissing {
			continue
		}
		results = append(results, scored)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].MatchFraction > results[j].MatchFraction
	})

	if req.Limit > 0 && len(results) > req.Limit {
		results = results[:req.Limit]
	}
	return results
}

// scoreCandidate compares one recipe against the inventory
func (s *MatchingService) scoreCandidate(
	candidate domain.RecipeCandidate,
	inventoryNames []string,
	expiring []domain.InventoryItem,
) domain.ScoredRecipe {
	scored := domain.ScoredRecipe{
		Recipe:             candidate,
		MissingIngredients: []string{},
		ExpiringItemIDs:    []string{},
	}

	for _, ing := range candidate.Ingredients {
		if s.checker.IsAvailable(ing.Name, inventoryNames) {
			scored.AvailableCount++
		} else {
			scored.MissingCount++
			scored.MissingIngredients = append(scored.MissingIngredients, ing.Name)
		}
	}
	scored.TotalCount = scored.AvailableCount + scored.MissingCount

	// an expiring item counts when the checker would supply some ingredient from it
	for _, item := range expiring {
		name := []string{normalizeName(item.Name)}
		for _, ing := range candidate.Ingredients {
			if s.checker.IsAvailable(ing.Name, name) {
				scored.ExpiringItemIDs = append(scored.ExpiringItemIDs, item.ID)
				break
			}
		}
	}

	if scored.TotalCount > 0 {
		scored.MatchFraction = float64(scored.AvailableCount) / float64(scored.TotalCount)
	}
	scored.Score = scored.MatchFraction*fractionWeight +
		expiringItemBonus*float64(len(scored.ExpiringItemIDs)) -
		missingIngredientCost*float64(scored.MissingCount)

	return scored
}

// ExpiringItems returns the items due within thresholdDays of now, in
// inventory order. Already expired items are included.
func ExpiringItems(items []domain.InventoryItem, thresholdDays int, now time.Time) []domain.InventoryItem {
	var expiring []domain.InventoryItem
	for _, item := range items {
		if item.DaysUntilExpiry(now) <= thresholdDays {
			expiring = append(expiring, item)
		}
	}
	return expiring
}

// WithoutExpired drops items whose current expiry is already behind now.
// Callers that do not want spoiled food suggested apply it before matching.
func WithoutExpired(items []domain.InventoryItem, now time.Time) []domain.InventoryItem {
	kept := make([]domain.InventoryItem, 0, len(items))
	for _, item := range items {
		if !item.IsExpired(now) {
			kept = append(kept, item)
		}
	}
	return kept
}
