package recipesource

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/freshkeep/backend/internal/domain"
)

// searchResponse is the wire format of GET /v1/recipes/search
type searchResponse struct {
	Results      []apiRecipe `json:"results"`
	TotalResults int         `json:"totalResults"`
}

type apiRecipe struct {
	ID          flexibleID      `json:"id"`
	Title       string          `json:"title"`
	Image       string          `json:"image"`
	SourceURL   string          `json:"sourceUrl"`
	Ingredients []apiIngredient `json:"ingredients"`
}

type apiIngredient struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

// flexibleID accepts both numeric and string identifiers
type flexibleID string

func (id *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = flexibleID(n.String())
	return nil
}

// MapToSearchResult converts the API payload to domain candidates
func MapToSearchResult(query string, resp *searchResponse) *domain.RecipeSearchResult {
	result := &domain.RecipeSearchResult{
		Query:        query,
		Candidates:   make([]domain.RecipeCandidate, 0, len(resp.Results)),
		TotalResults: resp.TotalResults,
	}
	for _, r := range resp.Results {
		result.Candidates = append(result.Candidates, mapRecipe(r))
	}
	return result
}

// mapRecipe keeps ingredient order and drops ingredients without a name
func mapRecipe(r apiRecipe) domain.RecipeCandidate {
	candidate := domain.RecipeCandidate{
		ID:          string(r.ID),
		Title:       strings.TrimSpace(r.Title),
		ImageURL:    r.Image,
		SourceURL:   r.SourceURL,
		Ingredients: make([]domain.Ingredient, 0, len(r.Ingredients)),
	}
	for _, ing := range r.Ingredients {
		name := strings.TrimSpace(ing.Name)
		if name == "" {
			continue
		}
		candidate.Ingredients = append(candidate.Ingredients, domain.Ingredient{
			Name:   name,
			Amount: ing.Amount,
			Unit:   ing.Unit,
		})
	}
	return candidate
}
