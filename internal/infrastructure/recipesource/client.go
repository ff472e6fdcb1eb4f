package recipesource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/freshkeep/backend/internal/domain"
	"github.com/freshkeep/backend/internal/infrastructure/metrics"
)

const (
	maxAttempts     = 3
	maxBodyBytes    = 2 << 20 // 2 MiB
	maxErrBodyBytes = 512
	defaultPageSize = 10
)

// ClientConfig holds settings for the recipe search API client
type ClientConfig struct {
	APIKey          string
	BaseURL         string
	Timeout         time.Duration
	RequestsPerHour int
	Burst           int
	PageSize        int
	Debug           bool
}

// Client handles communication with the recipe search API
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	pageSize    int
	rateLimiter *rate.Limiter
	backoff     func(attempt int) time.Duration
	debug       bool
	logger      *zap.Logger
}

// NewClient creates a new recipe search API client
func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	perHour := cfg.RequestsPerHour
	if perHour <= 0 {
		perHour = 1500
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 10
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		apiKey:      cfg.APIKey,
		baseURL:     cfg.BaseURL,
		pageSize:    pageSize,
		rateLimiter: rate.NewLimiter(rate.Limit(float64(perHour)/3600.0), burst),
		backoff:     exponentialBackoff,
		debug:       cfg.Debug,
		logger:      logger.With(zap.String("component", "recipesource")),
	}
}

// SetDebug toggles per-attempt debug logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// exponentialBackoff returns 500ms, 1s, 2s, ... for attempts 1, 2, 3, ...
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// SearchRecipes searches the recipe API for candidates matching query.
// 404 and empty result sets are not errors; they yield no candidates.
func (c *Client) SearchRecipes(ctx context.Context, query string) (*domain.RecipeSearchResult, error) {
	reqURL, err := c.searchURL(query)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepContext(ctx, c.backoff(attempt-1)); err != nil {
				return nil, err
			}
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		result, retry, err := c.attempt(ctx, reqURL, query)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retry {
			return nil, err
		}
		c.debugLog("search attempt failed", zap.Int("attempt", attempt), zap.String("query", query), zap.Error(err))
	}

	c.logger.Warn("all retries failed", zap.String("query", query), zap.Error(lastErr))
	return nil, lastErr
}

// attempt performs one request. retry reports whether a failure is transient.
func (c *Client) attempt(ctx context.Context, reqURL, query string) (result *domain.RecipeSearchResult, retry bool, err error) {
	start := time.Now()
	defer func() {
		metrics.RecipeSourceDuration.Observe(time.Since(start).Seconds())
	}()

	resp, err := c.doRequest(ctx, reqURL)
	if err != nil {
		metrics.RecipeSourceRequests.WithLabelValues(metrics.OutcomeError).Inc()
		// no retry once ctx is done
		return nil, ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		metrics.RecipeSourceRequests.WithLabelValues(metrics.OutcomeNotFound).Inc()
		return &domain.RecipeSearchResult{Query: query, Candidates: []domain.RecipeCandidate{}}, false, nil
	case resp.StatusCode != http.StatusOK:
		metrics.RecipeSourceRequests.WithLabelValues(metrics.OutcomeError).Inc()
		body, _ := readLimitedBody(resp.Body, maxErrBodyBytes)
		err := fmt.Errorf("%w: status %d, body: %s", domain.ErrRecipeSourceFailure, resp.StatusCode, string(body))
		return nil, isRetryableStatus(resp.StatusCode), err
	}

	body, err := readLimitedBody(resp.Body, maxBodyBytes)
	if err != nil {
		metrics.RecipeSourceRequests.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, true, fmt.Errorf("%w: reading body: %v", domain.ErrRecipeSourceFailure, err)
	}

	var searchResp searchResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		metrics.RecipeSourceRequests.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, false, fmt.Errorf("%w: failed to decode response: %v", domain.ErrRecipeSourceFailure, err)
	}

	metrics.RecipeSourceRequests.WithLabelValues(metrics.OutcomeOK).Inc()
	mapped := MapToSearchResult(query, &searchResp)
	c.debugLog("search succeeded", zap.String("query", query), zap.Int("candidates", len(mapped.Candidates)))
	return mapped, false, nil
}

// doRequest executes an HTTP GET request with proper headers and error handling
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "FreshKeep/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRecipeSourceFailure, err)
	}
	return resp, nil
}

func (c *Client) searchURL(query string) (string, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid recipe source base url: %w", err)
	}
	endpoint := base.JoinPath("v1", "recipes", "search")

	params := url.Values{}
	params.Set("query", query)
	params.Set("number", strconv.Itoa(c.pageSize))
	params.Set("apiKey", c.apiKey)
	endpoint.RawQuery = params.Encode()

	return endpoint.String(), nil
}

func (c *Client) debugLog(msg string, fields ...zap.Field) {
	if c.debug {
		c.logger.Debug(msg, fields...)
	}
}

// isRetryableStatus reports whether a non-200 status is worth another attempt
func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// readLimitedBody reads at most limit bytes from r
func readLimitedBody(r io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, limit))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
