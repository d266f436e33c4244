package research

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/rickgao/baserate-arb/internal/model"
)

// HTTPResearcher asks a research service for a base rate. The service
// receives the market as JSON on POST and answers with a BaseRate document.
type HTTPResearcher struct {
	url        string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// HTTPOption configures an HTTPResearcher.
type HTTPOption func(*HTTPResearcher)

// NewHTTPResearcher creates a researcher posting to url.
func NewHTTPResearcher(url string, opts ...HTTPOption) *HTTPResearcher {
	h := &HTTPResearcher{
		url:        url,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// WithAPIKey sends the key as a bearer token.
func WithAPIKey(key string) HTTPOption {
	return func(h *HTTPResearcher) { h.apiKey = key }
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(h *HTTPResearcher) {
		if d > 0 {
			h.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) HTTPOption {
	return func(h *HTTPResearcher) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(h *HTTPResearcher) { h.httpClient = hc }
}

// request is the body sent to the research service.
type request struct {
	MarketID           string         `json:"market_id"`
	Platform           model.Platform `json:"platform"`
	Title              string         `json:"title"`
	Category           string         `json:"category,omitempty"`
	ResolutionCriteria string         `json:"resolution_criteria,omitempty"`
	ResolvesAt         time.Time      `json:"resolves_at"`
}

// StatusError is a non-2xx answer from the research service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("research service returned %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors and rate limiting.
func (e *StatusError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Research posts the market and decodes the returned base rate.
func (h *HTTPResearcher) Research(ctx context.Context, m model.Market) (model.BaseRate, error) {
	body, err := json.Marshal(request{
		MarketID:           m.ID,
		Platform:           m.Platform,
		Title:              m.Title,
		Category:           m.Category,
		ResolutionCriteria: m.ResolutionCriteria,
		ResolvesAt:         m.ResolvesAt,
	})
	if err != nil {
		return model.BaseRate{}, fmt.Errorf("%w: encode request: %w", ErrResearchFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return model.BaseRate{}, fmt.Errorf("%w: create request: %w", ErrResearchFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	start := time.Now()
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return model.BaseRate{}, fmt.Errorf("%w: %w", ErrResearchFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return model.BaseRate{}, fmt.Errorf("%w: read response: %w", ErrResearchFailed, err)
	}
	if resp.StatusCode >= 300 {
		return model.BaseRate{}, fmt.Errorf("%w: %w", ErrResearchFailed, &StatusError{StatusCode: resp.StatusCode, Body: string(data)})
	}

	var rate model.BaseRate
	if err := json.Unmarshal(data, &rate); err != nil {
		return model.BaseRate{}, fmt.Errorf("%w: decode response: %w", ErrResearchFailed, err)
	}

	h.logger.Debug("research complete",
		"market", m.ID,
		"rate", rate.Rate,
		"unit", rate.Unit,
		"confidence", rate.Confidence,
		"duration", time.Since(start),
	)
	return Finalize(m, rate, h.now())
}
