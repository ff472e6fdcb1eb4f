package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/freshkeep/backend/internal/domain"
	"github.com/freshkeep/backend/internal/infrastructure/metrics"
	"github.com/freshkeep/backend/internal/usecase"
)

const (
	serviceName    = "freshkeep-backend"
	serviceVersion = "1.0.0"
)

// Clock supplies the reference time when a request does not carry one
type Clock func() time.Time

// HandlerConfig holds request defaults for the matching endpoints
type HandlerConfig struct {
	ExpiringThresholdDays int
	ResultLimit           int
	Clock                 Clock
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	matcher     *usecase.MatchingService
	suggestions *usecase.SuggestionService
	threshold   int
	limit       int
	clock       Clock
	logger      *zap.Logger
}

// NewHandler creates a new HTTP handler. A nil suggestions service makes the
// suggest endpoint answer 501.
func NewHandler(
	matcher *usecase.MatchingService,
	suggestions *usecase.SuggestionService,
	config HandlerConfig,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if matcher == nil {
		matcher = usecase.NewMatchingService(usecase.MatchConfig{Logger: logger})
	}

	threshold := config.ExpiringThresholdDays
	if threshold < 0 {
		threshold = usecase.DefaultExpiringThresholdDays
	}
	limit := config.ResultLimit
	if limit <= 0 {
		limit = usecase.DefaultResultLimit
	}
	clock := config.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Handler{
		matcher:     matcher,
		suggestions: suggestions,
		threshold:   threshold,
		limit:       limit,
		clock:       clock,
		logger:      logger.With(zap.String("component", "http")),
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	})
}

// RecalculateExpiration moves a single item and returns its new expiry
func (h *Handler) RecalculateExpiration(c *gin.Context) {
	var req RecalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err))
		return
	}

	now := h.resolveNow(req.Now)
	resp, err := h.relocate(*req.Item, req.TargetLocation, now)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RecalculateBatch moves several items against the same reference time.
// A single invalid move rejects the whole batch.
func (h *Handler) RecalculateBatch(c *gin.Context) {
	var req BatchRecalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err))
		return
	}

	now := h.resolveNow(req.Now)
	moves := make([]usecase.Move, 0, len(req.Moves))
	for i, m := range req.Moves {
		item, err := m.Item.toDomain()
		if err != nil {
			h.respondError(c, fmt.Errorf("move %d: %w", i, err))
			return
		}
		moves = append(moves, usecase.Move{Item: item, Target: domain.StorageLocation(m.TargetLocation)})
	}

	moved, err := usecase.RelocateBatch(moves, now)
	if err != nil {
		h.respondError(c, err)
		return
	}

	items := make([]RecalculateResponse, len(moved))
	for i, item := range moved {
		before := moves[i].Item
		metrics.Relocations.WithLabelValues(string(before.StorageLocation), string(item.StorageLocation)).Inc()
		items[i] = RecalculateResponse{
			ItemID:          item.ID,
			StorageLocation: item.StorageLocation,
			ExpiresAt:       item.CurrentExpiresAt,
			WasExpired:      before.IsExpired(now),
		}
	}

	c.JSON(http.StatusOK, BatchRecalculateResponse{Items: items})
}

// MatchRecipes ranks the supplied candidates against the supplied inventory
func (h *Handler) MatchRecipes(c *gin.Context) {
	var req MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err))
		return
	}

	threshold := h.threshold
	if req.ExpiringThresholdDays != nil {
		if *req.ExpiringThresholdDays < 0 {
			h.respondError(c, fmt.Errorf("%w: expiringThresholdDays must not be negative", domain.ErrInvalidRequest))
			return
		}
		threshold = *req.ExpiringThresholdDays
	}

	inventory, err := toInventory(req.Inventory)
	if err != nil {
		h.respondError(c, err)
		return
	}

	now := h.resolveNow(req.Now)
	if req.ExcludeExpired {
		inventory = usecase.WithoutExpired(inventory, now)
	}

	recipes := h.matcher.Match(usecase.MatchRequest{
		Inventory:             inventory,
		Candidates:            req.Candidates,
		ExpiringThresholdDays: threshold,
		Limit:                 h.resolveLimit(req.Limit),
		Now:                   now,
	})
	metrics.RecipesRanked.WithLabelValues("match").Add(float64(len(recipes)))

	c.JSON(http.StatusOK, MatchResponse{Recipes: recipes, Count: len(recipes)})
}

// SuggestRecipes searches the recipe source for the inventory's expiring items
func (h *Handler) SuggestRecipes(c *gin.Context) {
	if h.suggestions == nil {
		h.respondError(c, domain.ErrRecipeSourceNotConfigured)
		return
	}

	var req SuggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err))
		return
	}

	inventory, err := toInventory(req.Inventory)
	if err != nil {
		h.respondError(c, err)
		return
	}

	limit := h.resolveLimit(req.Limit)
	result, err := h.suggestions.Suggest(c.Request.Context(), &usecase.SuggestRequest{
		Inventory:      inventory,
		Now:            h.resolveNow(req.Now),
		Limit:          &limit,
		ExcludeExpired: req.ExcludeExpired,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuggestResponse{
		Recipes:     result.Recipes,
		Count:       len(result.Recipes),
		SearchTerms: result.SearchTerms,
	})
}

func (h *Handler) relocate(dto inventoryItemDTO, target string, now time.Time) (RecalculateResponse, error) {
	item, err := dto.toDomain()
	if err != nil {
		return RecalculateResponse{}, err
	}

	moved, err := usecase.Relocate(item, domain.StorageLocation(target), now)
	if err != nil {
		return RecalculateResponse{}, err
	}
	metrics.Relocations.WithLabelValues(string(item.StorageLocation), string(moved.StorageLocation)).Inc()

	return RecalculateResponse{
		ItemID:          moved.ID,
		StorageLocation: moved.StorageLocation,
		ExpiresAt:       moved.CurrentExpiresAt,
		WasExpired:      item.IsExpired(now),
	}, nil
}

func (h *Handler) resolveNow(now *time.Time) time.Time {
	if now != nil {
		return *now
	}
	return h.clock()
}

// resolveLimit falls back to the configured limit when none is sent.
// An explicit non-positive limit disables truncation.
func (h *Handler) resolveLimit(limit *int) int {
	if limit == nil {
		return h.limit
	}
	return *limit
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Error(err))
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

// statusForError maps domain errors onto HTTP status codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidShelfLifeEstimate),
		errors.Is(err, domain.ErrInvalidStorageLocation),
		errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRecipeSourceNotConfigured):
		return http.StatusNotImplemented
	case errors.Is(err, domain.ErrRecipeSourceFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
