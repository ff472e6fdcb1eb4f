package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freshkeep/backend/config"
	"github.com/freshkeep/backend/internal/domain"
	"github.com/freshkeep/backend/internal/infrastructure/cache"
	"github.com/freshkeep/backend/internal/usecase"
)

var testNow = time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// fakeRecipeSource returns canned results keyed by query
type fakeRecipeSource struct {
	mu      sync.Mutex
	results map[string][]domain.RecipeCandidate
	err     error
	queries []string
}

func (f *fakeRecipeSource) SearchRecipes(ctx context.Context, query string) (*domain.RecipeSearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.RecipeSearchResult{Query: query, Candidates: f.results[query]}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"http://localhost:*", "https://app.freshkeep.example"},
		},
		Cache:     config.CacheConfig{Type: "memory", TTL: time.Hour},
		RateLimit: config.RateLimitConfig{PerIP: 1000},
		Matching: config.MatchingConfig{
			ExpiringThresholdDays: 3,
			MaxMissingIngredients: 3,
			ResultLimit:           20,
			MaxSearchTerms:        5,
		},
	}
}

// setupTestRouter builds the full router. A nil source leaves suggestions unconfigured.
func setupTestRouter(t *testing.T, source domain.RecipeSource) *gin.Engine {
	t.Helper()

	cfg := testConfig()
	matcher := usecase.NewMatchingService(usecase.MatchConfig{MaxMissingIngredients: &cfg.Matching.MaxMissingIngredients})

	var suggestions *usecase.SuggestionService
	if source != nil {
		memCache := cache.NewMemoryCache(time.Minute)
		t.Cleanup(func() { memCache.Close() })
		suggestions = usecase.NewSuggestionService(memCache, source, matcher, usecase.SuggestionServiceConfig{
			CacheTTL:              cfg.Cache.TTL,
			ExpiringThresholdDays: cfg.Matching.ExpiringThresholdDays,
			ResultLimit:           cfg.Matching.ResultLimit,
			MaxSearchTerms:        cfg.Matching.MaxSearchTerms,
		}, nil)
	}

	handler := NewHandler(matcher, suggestions, HandlerConfig{
		ExpiringThresholdDays: cfg.Matching.ExpiringThresholdDays,
		ResultLimit:           cfg.Matching.ResultLimit,
		Clock:                 func() time.Time { return testNow },
	}, nil)

	router := SetupRouter(cfg, handler, nil)
	require.NotNil(t, router)
	return router
}

func item(id, name, location string, acquiredDaysAgo int, expiresIn time.Duration) map[string]any {
	return map[string]any{
		"id":               id,
		"name":             name,
		"storageLocation":  location,
		"acquiredAt":       testNow.Add(-time.Duration(acquiredDaysAgo) * domain.Day),
		"shelfLife":        map[string]any{"fridge": 7, "freezer": 90, "shelf": 2},
		"currentExpiresAt": testNow.Add(expiresIn),
	}
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthCheckEndpoint(t *testing.T) {
	t.Run("returns healthy status", func(t *testing.T) {
		w := doJSON(t, setupTestRouter(t, nil), http.MethodGet, "/health", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		response := decode[map[string]any](t, w)
		assert.Equal(t, "healthy", response["status"])
		assert.Equal(t, "freshkeep-backend", response["service"])
		assert.NotEmpty(t, response["version"])
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		router := setupTestRouter(t, nil)
		for _, method := range []string{"POST", "PUT", "DELETE", "PATCH"} {
			w := doJSON(t, router, method, "/health", nil)
			assert.Equal(t, http.StatusNotFound, w.Code, "method %s", method)
		}
	})
}

func TestMetricsEndpoint(t *testing.T) {
	router := setupTestRouter(t, nil)

	// touch a counter so it shows up in the exposition
	doJSON(t, router, http.MethodPost, "/api/v1/expiration/recalculate", map[string]any{
		"item":           item("m1", "Milk", "fridge", 0, 7*domain.Day),
		"targetLocation": "freezer",
	})

	w := doJSON(t, router, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "freshkeep_relocations_total")
}

func TestRecalculateEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		item       map[string]any
		target     string
		wantExpiry time.Time
		wasExpired bool
	}{
		{
			name:       "fridge to freezer grants full freezer estimate",
			item:       item("a", "Chicken Thighs", "fridge", 2, 5*domain.Day),
			target:     "freezer",
			wantExpiry: testNow.Add(90 * domain.Day),
		},
		{
			name:       "thaw to fridge grants full fridge estimate",
			item:       item("b", "Ground Beef", "freezer", 30, 60*domain.Day),
			target:     "fridge",
			wantExpiry: testNow.Add(7 * domain.Day),
		},
		{
			name:       "fridge to shelf never drops below one day",
			item:       item("c", "Butter", "fridge", 2, 5*domain.Day),
			target:     "shelf",
			wantExpiry: testNow.Add(domain.Day),
		},
		{
			name:       "reports expired items",
			item:       item("d", "Yogurt", "fridge", 10, -time.Hour),
			target:     "freezer",
			wantExpiry: testNow.Add(90 * domain.Day),
			wasExpired: true,
		},
	}

	router := setupTestRouter(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, "/api/v1/expiration/recalculate", map[string]any{
				"item":           tt.item,
				"targetLocation": tt.target,
			})

			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			resp := decode[RecalculateResponse](t, w)
			assert.Equal(t, tt.item["id"], resp.ItemID)
			assert.Equal(t, domain.StorageLocation(tt.target), resp.StorageLocation)
			assert.True(t, tt.wantExpiry.Equal(resp.ExpiresAt), "expiresAt = %v, want %v", resp.ExpiresAt, tt.wantExpiry)
			assert.Equal(t, tt.wasExpired, resp.WasExpired)
		})
	}

	t.Run("explicit now overrides the clock", func(t *testing.T) {
		now := testNow.Add(48 * time.Hour)
		w := doJSON(t, router, http.MethodPost, "/api/v1/expiration/recalculate", map[string]any{
			"item":           item("e", "Peas", "fridge", 0, 7*domain.Day),
			"targetLocation": "freezer",
			"now":            now,
		})

		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[RecalculateResponse](t, w)
		assert.True(t, now.Add(90*domain.Day).Equal(resp.ExpiresAt))
	})
}

func TestRecalculateEndpoint_Errors(t *testing.T) {
	missingFreezer := item("x", "Fish", "fridge", 0, domain.Day)
	missingFreezer["shelfLife"] = map[string]any{"fridge": 2, "shelf": 0}

	negative := item("y", "Fish", "fridge", 0, domain.Day)
	negative["shelfLife"] = map[string]any{"fridge": 2, "freezer": -1, "shelf": 0}

	tests := []struct {
		name      string
		body      any
		wantError string
	}{
		{"malformed body", "not an object", "invalid request"},
		{"missing item", map[string]any{"targetLocation": "fridge"}, "invalid request"},
		{"missing target", map[string]any{"item": item("z", "Fish", "fridge", 0, domain.Day)}, "invalid request"},
		{"unknown target", map[string]any{"item": item("z", "Fish", "fridge", 0, domain.Day), "targetLocation": "garage"}, "invalid storage location"},
		{"unknown current location", map[string]any{"item": item("z", "Fish", "cellar", 0, domain.Day), "targetLocation": "fridge"}, "invalid storage location"},
		{"missing estimate field", map[string]any{"item": missingFreezer, "targetLocation": "freezer"}, "invalid shelf life estimate"},
		{"negative estimate", map[string]any{"item": negative, "targetLocation": "freezer"}, "invalid shelf life estimate"},
	}

	router := setupTestRouter(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, "/api/v1/expiration/recalculate", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := decode[ErrorResponse](t, w)
			assert.Contains(t, resp.Error, tt.wantError)
		})
	}
}

func TestRecalculateBatchEndpoint(t *testing.T) {
	router := setupTestRouter(t, nil)

	t.Run("moves every item against one reference time", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/v1/expiration/recalculate/batch", map[string]any{
			"moves": []map[string]any{
				{"item": item("a", "Chicken", "fridge", 1, 6*domain.Day), "targetLocation": "freezer"},
				{"item": item("b", "Bread", "freezer", 20, 70*domain.Day), "targetLocation": "shelf"},
			},
		})

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decode[BatchRecalculateResponse](t, w)
		require.Len(t, resp.Items, 2)
		assert.Equal(t, "a", resp.Items[0].ItemID)
		assert.True(t, testNow.Add(90*domain.Day).Equal(resp.Items[0].ExpiresAt))
		assert.Equal(t, "b", resp.Items[1].ItemID)
		assert.Equal(t, domain.LocationShelf, resp.Items[1].StorageLocation)
		assert.True(t, testNow.Add(2*domain.Day).Equal(resp.Items[1].ExpiresAt))
	})

	t.Run("one invalid move rejects the batch", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/v1/expiration/recalculate/batch", map[string]any{
			"moves": []map[string]any{
				{"item": item("a", "Chicken", "fridge", 1, 6*domain.Day), "targetLocation": "freezer"},
				{"item": item("b", "Bread", "freezer", 20, 70*domain.Day), "targetLocation": "oven"},
			},
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decode[ErrorResponse](t, w)
		assert.Contains(t, resp.Error, "move 1")
	})

	t.Run("empty batch", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/v1/expiration/recalculate/batch", map[string]any{
			"moves": []map[string]any{},
		})

		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, decode[BatchRecalculateResponse](t, w).Items)
	})
}

func matchBody() map[string]any {
	return map[string]any{
		"inventory": []map[string]any{
			item("1", "Chicken Breast", "fridge", 3, 1*domain.Day),
			item("2", "Jasmine Rice", "shelf", 10, 200*domain.Day),
		},
		"candidates": []domain.RecipeCandidate{
			{
				ID:    "r1",
				Title: "Chicken Fried Rice",
				Ingredients: []domain.Ingredient{
					{Name: "chicken"}, {Name: "rice"}, {Name: "soy sauce"},
				},
			},
			{
				ID:    "r2",
				Title: "Beef Wellington",
				Ingredients: []domain.Ingredient{
					{Name: "beef"}, {Name: "puff pastry"}, {Name: "mushrooms"}, {Name: "shallots"}, {Name: "egg"},
				},
			},
		},
	}
}

func TestMatchEndpoint(t *testing.T) {
	router := setupTestRouter(t, nil)

	t.Run("ranks candidates and drops unactionable ones", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/v1/recipes/match", matchBody())

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decode[MatchResponse](t, w)
		require.Equal(t, 1, resp.Count)
		require.Len(t, resp.Recipes, 1)

		got := resp.Recipes[0]
		assert.Equal(t, "r1", got.Recipe.ID)
		assert.Equal(t, 2, got.AvailableCount)
		assert.Equal(t, 1, got.MissingCount)
		assert.Equal(t, []string{"soy sauce"}, got.MissingIngredients)
		assert.Equal(t, []string{"1"}, got.ExpiringItemIDs)
		assert.InDelta(t, 86.67, got.Score, 0.01)
	})

	t.Run("threshold override removes the expiring bonus", func(t *testing.T) {
		body := matchBody()
		body["expiringThresholdDays"] = 0

		w := doJSON(t, router, http.MethodPost, "/api/v1/recipes/match", body)

		require.Equal(t, http.StatusOK, w.Code)
		got := decode[MatchResponse](t, w).Recipes[0]
		assert.Empty(t, got.ExpiringItemIDs)
		assert.InDelta(t, 61.67, got.Score, 0.01)
	})

	t.Run("excludeExpired drops spoiled items before matching", func(t *testing.T) {
		body := matchBody()
		body["inventory"] = []map[string]any{
			item("1", "Chicken Breast", "fridge", 9, -time.Hour),
			item("2", "Jasmine Rice", "shelf", 10, 200*domain.Day),
		}
		body["excludeExpired"] = true

		w := doJSON(t, router, http.MethodPost, "/api/v1/recipes/match", body)

		require.Equal(t, http.StatusOK, w.Code)
		got := decode[MatchResponse](t, w).Recipes[0]
		assert.Equal(t, 1, got.AvailableCount)
		assert.ElementsMatch(t, []string{"chicken", "soy sauce"}, got.MissingIngredients)
	})

	t.Run("empty candidates", func(t *testing.T) {
		body := matchBody()
		body["candidates"] = []domain.RecipeCandidate{}

		w := doJSON(t, router, http.MethodPost, "/api/v1/recipes/match", body)

		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[MatchResponse](t, w)
		assert.Equal(t, 0, resp.Count)
		assert.NotNil(t, resp.Recipes)
	})

	t.Run("negative threshold is rejected", func(t *testing.T) {
		body := matchBody()
		body["expiringThresholdDays"] = -1

		w := doJSON(t, router, http.MethodPost, "/api/v1/recipes/match", body)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSuggestEndpoint(t *testing.T) {
	suggestBody := map[string]any{
		"inventory": []map[string]any{
			item("1", "Organic Chicken Breast", "fridge", 3, 1*domain.Day),
			item("2", "Rice", "shelf", 10, 100*domain.Day),
		},
	}

	t.Run("returns not implemented without a recipe source", func(t *testing.T) {
		w := doJSON(t, setupTestRouter(t, nil), http.MethodPost, "/api/v1/recipes/suggest", suggestBody)

		assert.Equal(t, http.StatusNotImplemented, w.Code)
		assert.Contains(t, decode[ErrorResponse](t, w).Error, "not configured")
	})

	t.Run("searches expiring items and ranks the results", func(t *testing.T) {
		source := &fakeRecipeSource{results: map[string][]domain.RecipeCandidate{
			"chicken breast": {{
				ID:    "r1",
				Title: "Chicken Rice Bowl",
				Ingredients: []domain.Ingredient{
					{Name: "chicken breast"}, {Name: "rice"}, {Name: "scallions"},
				},
			}},
		}}

		w := doJSON(t, setupTestRouter(t, source), http.MethodPost, "/api/v1/recipes/suggest", suggestBody)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decode[SuggestResponse](t, w)
		assert.Equal(t, []string{"chicken breast"}, resp.SearchTerms)
		require.Equal(t, 1, resp.Count)
		assert.Equal(t, "r1", resp.Recipes[0].Recipe.ID)
		assert.InDelta(t, 86.67, resp.Recipes[0].Score, 0.01)
		assert.Equal(t, []string{"chicken breast"}, source.queries)
	})

	t.Run("limit zero disables truncation like match", func(t *testing.T) {
		source := &fakeRecipeSource{results: map[string][]domain.RecipeCandidate{
			"chicken breast": {
				{ID: "r1", Ingredients: []domain.Ingredient{{Name: "chicken breast"}}},
				{ID: "r2", Ingredients: []domain.Ingredient{{Name: "chicken breast"}, {Name: "rice"}}},
			},
		}}
		router := setupTestRouter(t, source)

		body := map[string]any{"inventory": suggestBody["inventory"], "limit": 1}
		w := doJSON(t, router, http.MethodPost, "/api/v1/recipes/suggest", body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, 1, decode[SuggestResponse](t, w).Count)

		body["limit"] = 0
		w = doJSON(t, router, http.MethodPost, "/api/v1/recipes/suggest", body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, 2, decode[SuggestResponse](t, w).Count)
	})

	t.Run("source failure maps to bad gateway", func(t *testing.T) {
		source := &fakeRecipeSource{err: domain.ErrRecipeSourceFailure}

		w := doJSON(t, setupTestRouter(t, source), http.MethodPost, "/api/v1/recipes/suggest", suggestBody)

		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("nothing expiring yields an empty result", func(t *testing.T) {
		source := &fakeRecipeSource{}
		body := map[string]any{
			"inventory": []map[string]any{item("2", "Rice", "shelf", 10, 100*domain.Day)},
		}

		w := doJSON(t, setupTestRouter(t, source), http.MethodPost, "/api/v1/recipes/suggest", body)

		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[SuggestResponse](t, w)
		assert.Equal(t, 0, resp.Count)
		assert.Empty(t, source.queries)
	})
}

func TestCORSIntegration(t *testing.T) {
	router := setupTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestRecoveryIntegration(t *testing.T) {
	router := setupTestRouter(t, nil)
	router.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	w := doJSON(t, router, http.MethodGet, "/panic", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "internal server error"))
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrInvalidShelfLifeEstimate, http.StatusBadRequest},
		{domain.ErrInvalidStorageLocation, http.StatusBadRequest},
		{domain.ErrInvalidRequest, http.StatusBadRequest},
		{domain.ErrRecipeSourceNotConfigured, http.StatusNotImplemented},
		{domain.ErrRecipeSourceFailure, http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusForError(tt.err))
		})
	}
}
