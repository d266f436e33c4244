// Package venue adapts exchange clients to the single capability the
// pipeline needs from a trading venue: list markets, and report how a market
// resolved.
package venue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickgao/baserate-arb/internal/api"
	"github.com/rickgao/baserate-arb/internal/auth"
	"github.com/rickgao/baserate-arb/internal/config"
	"github.com/rickgao/baserate-arb/internal/model"
	"github.com/rickgao/baserate-arb/internal/polymarket"
)

// Venue is a source of markets on one platform.
type Venue interface {
	Platform() model.Platform
	// FetchMarkets lists open markets with displayed prices and, when
	// configured, order books.
	FetchMarkets(ctx context.Context) ([]model.Market, error)
	// ResolveMarket returns the settled outcome, or OutcomeUnresolved when
	// the venue has not settled the market yet.
	ResolveMarket(ctx context.Context, id string) (model.Outcome, error)
}

// Pinger is implemented by venues that expose a cheap health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options are shared adapter settings.
type Options struct {
	MaxMarkets      int
	FetchBooks      bool
	BookDepth       int
	BookConcurrency int
	BookTimeout     time.Duration
}

// FromConfig builds the enabled venues. Kalshi requests are signed when both
// an API key and a private key path are configured.
func FromConfig(cfg *config.Config, logger *slog.Logger) ([]Venue, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var venues []Venue

	if k := cfg.Kalshi; k.Enabled {
		opts := []api.ClientOption{
			api.WithTimeout(k.Timeout),
			api.WithRetries(k.MaxRetries, time.Second),
			api.WithLogger(logger),
		}
		if k.APIKey != "" && k.PrivateKeyPath != "" {
			creds, err := auth.LoadCredentials(k.APIKey, k.PrivateKeyPath)
			if err != nil {
				return nil, fmt.Errorf("kalshi credentials: %w", err)
			}
			opts = append(opts, api.WithSigner(creds))
		}
		venues = append(venues, NewKalshi(api.NewClient(k.RestURL, opts...), Options{
			MaxMarkets:      k.MaxMarkets,
			FetchBooks:      k.FetchBooks,
			BookDepth:       k.BookDepth,
			BookConcurrency: cfg.Scheduler.Concurrency,
			BookTimeout:     k.Timeout,
		}, logger))
	}

	if p := cfg.Polymarket; p.Enabled {
		client := polymarket.NewClient(p.GammaURL, p.ClobURL,
			polymarket.WithTimeout(p.Timeout),
			polymarket.WithRetries(p.MaxRetries, time.Second),
			polymarket.WithLogger(logger),
		)
		venues = append(venues, NewPolymarket(client, Options{
			MaxMarkets:      p.MaxMarkets,
			FetchBooks:      p.FetchBooks,
			BookConcurrency: cfg.Scheduler.Concurrency,
			BookTimeout:     p.Timeout,
		}, logger))
	}

	return venues, nil
}
