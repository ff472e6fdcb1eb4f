package http

import (
	"fmt"
	"time"

	"github.com/freshkeep/backend/internal/domain"
)

// shelfLifeDTO uses pointers so an omitted location can be told apart from zero days
type shelfLifeDTO struct {
	Fridge  *int `json:"fridge"`
	Freezer *int `json:"freezer"`
	Shelf   *int `json:"shelf"`
}

func (s *shelfLifeDTO) toDomain() (domain.ShelfLifeEstimate, error) {
	if s == nil || s.Fridge == nil || s.Freezer == nil || s.Shelf == nil {
		return domain.ShelfLifeEstimate{}, fmt.Errorf("%w: fridge, freezer and shelf are all required", domain.ErrInvalidShelfLifeEstimate)
	}
	estimate := domain.ShelfLifeEstimate{
		FridgeDays:  *s.Fridge,
		FreezerDays: *s.Freezer,
		ShelfDays:   *s.Shelf,
	}
	return estimate, estimate.Validate()
}

type inventoryItemDTO struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	StorageLocation  string        `json:"storageLocation"`
	AcquiredAt       time.Time     `json:"acquiredAt"`
	ShelfLife        *shelfLifeDTO `json:"shelfLife"`
	CurrentExpiresAt time.Time     `json:"currentExpiresAt"`
}

func (d inventoryItemDTO) toDomain() (domain.InventoryItem, error) {
	loc, err := domain.ParseStorageLocation(d.StorageLocation)
	if err != nil {
		return domain.InventoryItem{}, fmt.Errorf("item %s: %w", d.ID, err)
	}
	estimate, err := d.ShelfLife.toDomain()
	if err != nil {
		return domain.InventoryItem{}, fmt.Errorf("item %s: %w", d.ID, err)
	}
	return domain.InventoryItem{
		ID:               d.ID,
		Name:             d.Name,
		StorageLocation:  loc,
		AcquiredAt:       d.AcquiredAt,
		ShelfLife:        estimate,
		CurrentExpiresAt: d.CurrentExpiresAt,
	}, nil
}

func toInventory(items []inventoryItemDTO) ([]domain.InventoryItem, error) {
	inventory := make([]domain.InventoryItem, 0, len(items))
	for _, dto := range items {
		item, err := dto.toDomain()
		if err != nil {
			return nil, err
		}
		inventory = append(inventory, item)
	}
	return inventory, nil
}

// RecalculateRequest moves one item to a new storage location
type RecalculateRequest struct {
	Item           *inventoryItemDTO `json:"item" binding:"required"`
	TargetLocation string            `json:"targetLocation" binding:"required"`
	Now            *time.Time        `json:"now"`
}

// RecalculateResponse is the item's state after the move
type RecalculateResponse struct {
	ItemID          string                 `json:"itemId"`
	StorageLocation domain.StorageLocation `json:"storageLocation"`
	ExpiresAt       time.Time              `json:"expiresAt"`
	WasExpired      bool                   `json:"wasExpired"`
}

type moveDTO struct {
	Item           *inventoryItemDTO `json:"item" binding:"required"`
	TargetLocation string            `json:"targetLocation" binding:"required"`
}

// BatchRecalculateRequest moves several items against one reference time
type BatchRecalculateRequest struct {
	Moves []moveDTO  `json:"moves" binding:"required,dive"`
	Now   *time.Time `json:"now"`
}

// BatchRecalculateResponse lists the moved items in request order
type BatchRecalculateResponse struct {
	Items []RecalculateResponse `json:"items"`
}

// MatchRequest ranks caller-supplied candidates against an inventory
type MatchRequest struct {
	Inventory             []inventoryItemDTO       `json:"inventory"`
	Candidates            []domain.RecipeCandidate `json:"candidates"`
	ExpiringThresholdDays *int                     `json:"expiringThresholdDays"`
	Limit                 *int                     `json:"limit"`
	ExcludeExpired        bool                     `json:"excludeExpired"`
	Now                   *time.Time               `json:"now"`
}

// MatchResponse holds ranked recipes, best first
type MatchResponse struct {
	Recipes []domain.ScoredRecipe `json:"recipes"`
	Count   int                   `json:"count"`
}

// SuggestRequest asks the service to find recipes for expiring items
type SuggestRequest struct {
	Inventory      []inventoryItemDTO `json:"inventory"`
	Limit          *int               `json:"limit"`
	ExcludeExpired bool               `json:"excludeExpired"`
	Now            *time.Time         `json:"now"`
}

// SuggestResponse holds ranked recipes and the search terms that found them
type SuggestResponse struct {
	Recipes     []domain.ScoredRecipe `json:"recipes"`
	Count       int                   `json:"count"`
	SearchTerms []string              `json:"searchTerms"`
}

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Error string `json:"error"`
}
