package venue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickgao/baserate-arb/internal/api"
	"github.com/rickgao/baserate-arb/internal/model"
	"github.com/rickgao/baserate-arb/internal/poller"
)

// Kalshi lists markets from the Kalshi REST API.
type Kalshi struct {
	client *api.Client
	opts   Options
	books  *poller.Poller
	logger *slog.Logger
	now    func() time.Time
}

// NewKalshi wraps a Kalshi client.
func NewKalshi(client *api.Client, opts Options, logger *slog.Logger) *Kalshi {
	if logger == nil {
		logger = slog.Default()
	}
	k := &Kalshi{client: client, opts: opts, logger: logger.With("venue", model.PlatformKalshi), now: time.Now}
	k.books = poller.New(poller.Config{Concurrency: opts.BookConcurrency, Timeout: opts.BookTimeout},
		poller.BookFetcherFunc(k.fetchBook), k.logger)
	return k
}

func (k *Kalshi) Platform() model.Platform { return model.PlatformKalshi }

// Ping checks the exchange status endpoint.
func (k *Kalshi) Ping(ctx context.Context) error { return k.client.Ping(ctx) }

// FetchMarkets lists open markets. Categories come from the events listing;
// if that fails the markets are returned with their own category field.
func (k *Kalshi) FetchMarkets(ctx context.Context) ([]model.Market, error) {
	categories := map[string]string{}
	if events, err := k.client.GetAllEvents(ctx, api.StatusOpen); err != nil {
		k.logger.Warn("failed to fetch event categories", "err", err)
	} else {
		categories = api.EventCategories(events)
	}

	raw, err := k.client.GetAllMarketsWithOptions(ctx, api.GetMarketsOptions{
		Status: api.StatusOpen,
		Max:    k.opts.MaxMarkets,
	})
	if err != nil {
		return nil, fmt.Errorf("kalshi markets: %w", err)
	}

	now := k.now()
	markets := make([]model.Market, 0, len(raw))
	for i := range raw {
		markets = append(markets, raw[i].ToModel(categories[raw[i].EventTicker], now))
	}

	if k.opts.FetchBooks {
		k.books.Enrich(ctx, markets)
	}
	return markets, nil
}

// ResolveMarket reads the market's settlement result.
func (k *Kalshi) ResolveMarket(ctx context.Context, id string) (model.Outcome, error) {
	m, err := k.client.GetMarket(ctx, id)
	if err != nil {
		return model.OutcomeUnresolved, err
	}
	return api.ParseResult(m.Result), nil
}

func (k *Kalshi) fetchBook(ctx context.Context, m model.Market) (*model.OrderBook, error) {
	resp, err := k.client.GetOrderbook(ctx, m.ID, k.opts.BookDepth)
	if err != nil {
		return nil, err
	}
	book := resp.Orderbook.NormalizeOrderbook()
	return &book, nil
}
