package usecase

import "strings"

// AvailabilityChecker decides whether a recipe ingredient is on hand.
// inventoryNames are already lower-cased and trimmed.
type AvailabilityChecker interface {
	IsAvailable(ingredientName string, inventoryNames []string) bool
}

// SubstringChecker treats an ingredient as available when its name and some
// inventory name contain one another, ignoring case. No tokenization or
// stemming, so "chicken" matches "Organic Chicken Breast" and "tomatoes"
// matches "tomato", but "tomatoes" does not match "cherry tomato".
type SubstringChecker struct{}

// IsAvailable implements AvailabilityChecker
func (SubstringChecker) IsAvailable(ingredientName string, inventoryNames []string) bool {
	ingredient := normalizeName(ingredientName)
	if ingredient == "" {
		return false
	}
	for _, name := range inventoryNames {
		if namesOverlap(ingredient, name) {
			return true
		}
	}
	return false
}

// namesOverlap expects both names normalized. Blank names never overlap.
func namesOverlap(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
