package domain

import (
	"fmt"
	"math"
	"time"
)

// Day is the unit every shelf-life estimate is expressed in
const Day = 24 * time.Hour

// MaxShelfLifeDays bounds every per-location estimate (100 years)
const MaxShelfLifeDays = 36500

// StorageLocation is where an inventory item is physically kept
type StorageLocation string

const (
	LocationFridge  StorageLocation = "fridge"
	LocationFreezer StorageLocation = "freezer"
	LocationShelf   StorageLocation = "shelf"
)

// ParseStorageLocation converts a raw string into a StorageLocation
func ParseStorageLocation(s string) (StorageLocation, error) {
	loc := StorageLocation(s)
	if !loc.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStorageLocation, s)
	}
	return loc, nil
}

// Valid reports whether l is one of the known storage locations
func (l StorageLocation) Valid() bool {
	switch l {
	case LocationFridge, LocationFreezer, LocationShelf:
		return true
	}
	return false
}

// ShelfLifeEstimate holds days-to-expiry for each storage location
type ShelfLifeEstimate struct {
	FridgeDays  int `json:"fridge"`
	FreezerDays int `json:"freezer"`
	ShelfDays   int `json:"shelf"`
}

// Days returns the estimate for the given location. Unknown locations yield 0.
func (e ShelfLifeEstimate) Days(loc StorageLocation) int {
	switch loc {
	case LocationFridge:
		return e.FridgeDays
	case LocationFreezer:
		return e.FreezerDays
	case LocationShelf:
		return e.ShelfDays
	}
	return 0
}

// Validate rejects negative day counts and counts above MaxShelfLifeDays
func (e ShelfLifeEstimate) Validate() error {
	for _, loc := range []StorageLocation{LocationFridge, LocationFreezer, LocationShelf} {
		d := e.Days(loc)
		if d < 0 {
			return fmt.Errorf("%w: %s days is %d", ErrInvalidShelfLifeEstimate, loc, d)
		}
		if d > MaxShelfLifeDays {
			return fmt.Errorf("%w: %s days is %d, max %d", ErrInvalidShelfLifeEstimate, loc, d, MaxShelfLifeDays)
		}
	}
	return nil
}

// InventoryItem is a single perishable item on hand.
// CurrentExpiresAt is derived from AcquiredAt, ShelfLife and the storage
// location; only the expiration engine or an explicit override changes it.
type InventoryItem struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	StorageLocation  StorageLocation   `json:"storageLocation"`
	AcquiredAt       time.Time         `json:"acquiredAt"`
	ShelfLife        ShelfLifeEstimate `json:"shelfLife"`
	CurrentExpiresAt time.Time         `json:"currentExpiresAt"`
}

// IsExpired reports whether the item's current expiry is already behind now
func (i InventoryItem) IsExpired(now time.Time) bool {
	return i.CurrentExpiresAt.Before(now)
}

// DaysUntilExpiry returns the whole days left before CurrentExpiresAt,
// rounding partial days up. Expired items yield zero or a negative count.
func (i InventoryItem) DaysUntilExpiry(now time.Time) int {
	remaining := i.CurrentExpiresAt.Sub(now)
	return int(math.Ceil(float64(remaining) / float64(Day)))
}
