package usecase

import (
	"fmt"
	"time"

	"github.com/freshkeep/backend/internal/domain"
)

// minRemainingDays is the floor applied when re-basing fridge/shelf moves
const minRemainingDays = 1

// Recalculate derives a new expiry date for item when it is moved to target.
//
// Rules, first match wins:
//   - moving into the freezer always grants the full freezer estimate
//   - thawing (leaving the freezer) grants the full estimate of the target
//   - anything else re-bases from AcquiredAt, never below one day from now
//
// The result depends only on the arguments. The item is not modified.
func Recalculate(item domain.InventoryItem, target domain.StorageLocation, now time.Time) time.Time {
	if target == domain.LocationFreezer {
		return addDays(now, item.ShelfLife.FreezerDays)
	}

	if item.StorageLocation == domain.LocationFreezer {
		return addDays(now, item.ShelfLife.Days(target))
	}

	remaining := item.ShelfLife.Days(target) - elapsedDays(item.AcquiredAt, now)
	if remaining < minRemainingDays {
		remaining = minRemainingDays
	}
	return addDays(now, remaining)
}

// Relocate validates a move and returns a copy of item with the new location
// and expiry applied. Validation happens here so Recalculate never has to guess.
func Relocate(item domain.InventoryItem, target domain.StorageLocation, now time.Time) (domain.InventoryItem, error) {
	if !target.Valid() {
		return domain.InventoryItem{}, fmt.Errorf("%w: %q", domain.ErrInvalidStorageLocation, target)
	}
	if err := item.ShelfLife.Validate(); err != nil {
		return domain.InventoryItem{}, fmt.Errorf("item %s: %w", item.ID, err)
	}

	moved := item
	moved.CurrentExpiresAt = Recalculate(item, target, now)
	moved.StorageLocation = target
	return moved, nil
}

// Move is a single requested storage transition
type Move struct {
	Item   domain.InventoryItem
	Target domain.StorageLocation
}

// RelocateBatch applies every move against the same now. If any move is
// invalid nothing is returned.
func RelocateBatch(moves []Move, now time.Time) ([]domain.InventoryItem, error) {
	result := make([]domain.InventoryItem, 0, len(moves))
	for i, m := range moves {
		moved, err := Relocate(m.Item, m.Target, now)
		if err != nil {
			return nil, fmt.Errorf("move %d: %w", i, err)
		}
		result = append(result, moved)
	}
	return result, nil
}

// elapsedDays counts whole days between acquiredAt and now.
// An acquiredAt after now counts as zero days.
func elapsedDays(acquiredAt, now time.Time) int {
	elapsed := now.Sub(acquiredAt)
	if elapsed <= 0 {
		return 0
	}
	return int(elapsed / domain.Day)
}

// addDays clamps days to domain.MaxShelfLifeDays so the multiplication
// cannot overflow time.Duration.
func addDays(t time.Time, days int) time.Time {
	if days > domain.MaxShelfLifeDays {
		days = domain.MaxShelfLifeDays
	}
	return t.Add(time.Duration(days) * domain.Day)
}
