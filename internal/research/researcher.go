// Package research produces base rates for markets. The pipeline consumes a
// Researcher; this package ships an HTTP client for a research service and a
// static YAML catalog, plus the amenability classifier used to decide which
// markets are worth spending research budget on.
package research

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/rickgao/baserate-arb/internal/config"
	"github.com/rickgao/baserate-arb/internal/model"
	"github.com/rickgao/baserate-arb/internal/probability"
)

// ErrResearchFailed wraps every failure to obtain a usable base rate.
var ErrResearchFailed = errors.New("research failed")

// Transient reports whether a research failure came from the transport or an
// overloaded service rather than from the market itself.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.IsRetryable()
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF)
}

// Researcher turns a market into a base rate.
type Researcher interface {
	Research(ctx context.Context, m model.Market) (model.BaseRate, error)
}

// ResearcherFunc is a function adapter for Researcher.
type ResearcherFunc func(ctx context.Context, m model.Market) (model.BaseRate, error)

func (f ResearcherFunc) Research(ctx context.Context, m model.Market) (model.BaseRate, error) {
	return f(ctx, m)
}

// Finalize stamps the market ID, fills the research time, and validates the
// rate. Invalid rates are returned wrapped in both ErrResearchFailed and
// probability.ErrInvalidBaseRate.
func Finalize(m model.Market, r model.BaseRate, now time.Time) (model.BaseRate, error) {
	r.MarketID = m.ID
	if r.ResearchedAt.IsZero() {
		r.ResearchedAt = now
	}
	if err := probability.Validate(r); err != nil {
		return model.BaseRate{}, fmt.Errorf("%w: market %s: %w", ErrResearchFailed, m.ID, err)
	}
	return r, nil
}

// FromConfig builds the configured researcher.
func FromConfig(cfg config.ResearchConfig, logger *slog.Logger) (Researcher, error) {
	switch strings.ToLower(cfg.Source) {
	case "http":
		return NewHTTPResearcher(cfg.URL,
			WithAPIKey(cfg.APIKey),
			WithTimeout(cfg.Timeout),
			WithLogger(logger),
		), nil
	case "catalog", "":
		c, err := LoadCatalog(cfg.CatalogPath)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown research source %q", cfg.Source)
	}
}
