package domain

// Ingredient is a single line of a recipe. Only Name takes part in matching.
type Ingredient struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount,omitempty"`
	Unit   string  `json:"unit,omitempty"`
}

// RecipeCandidate is a raw recipe returned by the recipe source
type RecipeCandidate struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Ingredients []Ingredient `json:"ingredients"`
	ImageURL    string       `json:"imageUrl,omitempty"`
	SourceURL   string       `json:"sourceUrl,omitempty"`
}

// ScoredRecipe is a candidate annotated with how well it fits the inventory
type ScoredRecipe struct {
	Recipe             RecipeCandidate `json:"recipe"`
	AvailableCount     int             `json:"availableCount"`
	MissingCount       int             `json:"missingCount"`
	TotalCount         int             `json:"totalCount"`
	MissingIngredients []string        `json:"missingIngredients"`
	ExpiringItemIDs    []string        `json:"expiringItemIds"`
	MatchFraction      float64         `json:"matchFraction"` // 0-1
	Score              float64         `json:"score"`
}

// RecipeSearchResult is one page of candidates returned for a search term
type RecipeSearchResult struct {
	Query        string            `json:"query"`
	Candidates   []RecipeCandidate `json:"candidates"`
	TotalResults int               `json:"totalResults"`
}
