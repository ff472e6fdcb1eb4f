package usecase

import (
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/freshkeep/backend/internal/domain"
)

// DefaultMaxSearchTerms caps how many recipe searches one suggestion triggers
const DefaultMaxSearchTerms = 5

// Compiled regex patterns for item name cleaning. Names are lower-cased first.
var (
	// Matches size/quantity patterns like "128 fl oz", "12 oz", "1.5 liter", "2 lb"
	sizeQuantityPattern = regexp.MustCompile(`\b\d+\.?\d*\s*(fl\s*)?oz\b|\b\d+\.?\d*\s*(fl\s*)?ounces?\b|\b\d+\.?\d*\s*lbs?\b|\b\d+\.?\d*\s*pounds?\b|\b\d+\.?\d*\s*ml\b|\b\d+\.?\d*\s*liters?\b|\b\d+\.?\d*\s*gallons?\b|\b\d+\.?\d*\s*quarts?\b|\b\d+\.?\d*\s*pints?\b|\b\d+\.?\d*\s*kg\b|\b\d+\.?\d*\s*grams?\b|\b\d+\.?\d*\s*g\b`)

	// Matches pack/count patterns like "12 pack", "pack of 6", "6-pack", "24 count", "6 ct"
	packCountPattern = regexp.MustCompile(`\b\d+[-\s]*(pack|pk|count|ct)\b|\bpack\s*of\s*\d+\b|\b\d+\s*cans?\b|\b\d+\s*bottles?\b|\b\d+\s*pouches?\b|\b\d+\s*pieces?\b`)

	// Anything that is not a letter, whitespace or hyphen
	nonWordPattern = regexp.MustCompile(`[^a-z\s-]+`)
)

// itemNoiseWords are dropped from item names before they become search terms
var itemNoiseWords = map[string]bool{
	// Marketing terms
	"value": true, "family": true, "bonus": true, "new": true, "improved": true,
	"premium": true, "select": true, "choice": true, "quality": true, "best": true,
	"great": true, "delicious": true, "tasty": true, "favorite": true, "special": true,
	"organic": true, "natural": true, "fresh": true, "homestyle": true,

	// Size descriptors
	"size": true, "large": true, "medium": true, "small": true, "mini": true,
	"jumbo": true, "giant": true, "big": true, "single": true, "double": true,

	// Packaging terms
	"package": true, "box": true, "bag": true, "bottle": true, "can": true,
	"jar": true, "tub": true, "carton": true, "sleeve": true, "pouch": true,
	"roll": true, "tube": true, "gallon": true, "dozen": true, "pack": true,
	"packs": true,

	// Generic terms that don't help a recipe search
	"food": true, "item": true, "product": true, "brand": true, "leftover": true,
	"leftovers": true,
}

// storeBrands are house brands that would only pollute a recipe search
var storeBrands = []string{
	"great value", "marketside", "sam's choice", "kirkland signature",
	"trader joe's", "365", "good & gather", "market pantry", "kroger",
}

// QueryPreprocessor turns expiring inventory into recipe search terms
type QueryPreprocessor struct {
	maxTerms           int
	logger             *zap.Logger
	enableDebugLogging bool
}

// NewQueryPreprocessor creates a new query preprocessor. maxTerms <= 0 uses
// DefaultMaxSearchTerms.
func NewQueryPreprocessor(maxTerms int, logger *zap.Logger, enableDebugLogging bool) *QueryPreprocessor {
	if maxTerms <= 0 {
		maxTerms = DefaultMaxSearchTerms
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryPreprocessor{
		maxTerms:           maxTerms,
		logger:             logger.With(zap.String("component", "preprocess")),
		enableDebugLogging: enableDebugLogging,
	}
}

// BuildSearchTerms returns one cleaned term per distinct item, soonest expiry
// first, capped at the configured maximum.
func (p *QueryPreprocessor) BuildSearchTerms(expiring []domain.InventoryItem) []string {
	ordered := make([]domain.InventoryItem, len(expiring))
	copy(ordered, expiring)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CurrentExpiresAt.Before(ordered[j].CurrentExpiresAt)
	})

	terms := make([]string, 0, p.maxTerms)
	seen := make(map[string]bool)
	for _, item := range ordered {
		if len(terms) == p.maxTerms {
			break
		}
		term := p.CleanItemName(item.Name)
		if term == "" || seen[term] {
			continue
		}
		seen[term] = true
		terms = append(terms, term)
	}

	if p.enableDebugLogging {
		p.logger.Debug("built search terms", zap.Int("items", len(expiring)), zap.Strings("terms", terms))
	}
	return terms
}

// CleanItemName strips sizes, pack counts, store brands and marketing noise
// from an inventory display name, leaving the food words
func (p *QueryPreprocessor) CleanItemName(name string) string {
	// Packaging details usually follow the first comma
	if idx := strings.Index(name, ","); idx > 0 {
		name = name[:idx]
	}

	cleaned := strings.ToLower(strings.TrimSpace(name))
	for _, brand := range storeBrands {
		if strings.HasPrefix(cleaned, brand+" ") {
			cleaned = cleaned[len(brand):]
			break
		}
	}

	cleaned = sizeQuantityPattern.ReplaceAllString(cleaned, " ")
	cleaned = packCountPattern.ReplaceAllString(cleaned, " ")
	cleaned = nonWordPattern.ReplaceAllString(cleaned, " ")

	var kept []string
	for _, word := range strings.Fields(cleaned) {
		word = strings.Trim(word, "-")
		if word == "" || itemNoiseWords[word] {
			continue
		}
		kept = append(kept, word)
	}

	return strings.Join(kept, " ")
}
