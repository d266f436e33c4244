package venue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/baserate-arb/internal/model"
	"github.com/rickgao/baserate-arb/internal/poller"
	"github.com/rickgao/baserate-arb/internal/polymarket"
)

// Polymarket lists markets from Gamma and books from the CLOB.
type Polymarket struct {
	client *polymarket.Client
	opts   Options
	books  *poller.Poller
	logger *slog.Logger
	now    func() time.Time

	mu     sync.RWMutex
	tokens map[string][2]string // market ID -> YES, NO token IDs
}

// NewPolymarket wraps a Polymarket client.
func NewPolymarket(client *polymarket.Client, opts Options, logger *slog.Logger) *Polymarket {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Polymarket{
		client: client,
		opts:   opts,
		logger: logger.With("venue", model.PlatformPolymarket),
		now:    time.Now,
		tokens: make(map[string][2]string),
	}
	p.books = poller.New(poller.Config{Concurrency: opts.BookConcurrency, Timeout: opts.BookTimeout},
		poller.BookFetcherFunc(p.fetchBook), p.logger)
	return p
}

func (p *Polymarket) Platform() model.Platform { return model.PlatformPolymarket }

// FetchMarkets lists active markets, highest volume first.
func (p *Polymarket) FetchMarkets(ctx context.Context) ([]model.Market, error) {
	raw, err := p.client.GetActiveMarkets(ctx, p.opts.MaxMarkets)
	if err != nil {
		return nil, fmt.Errorf("polymarket markets: %w", err)
	}

	now := p.now()
	markets := make([]model.Market, 0, len(raw))
	tokens := make(map[string][2]string, len(raw))
	for i := range raw {
		m := raw[i].ToModel(now)
		if m.ID == "" {
			continue
		}
		if yes, no, ok := raw[i].TokenIDs(); ok {
			tokens[m.ID] = [2]string{yes, no}
		}
		markets = append(markets, m)
	}

	p.mu.Lock()
	p.tokens = tokens
	p.mu.Unlock()

	if p.opts.FetchBooks {
		p.books.Enrich(ctx, markets)
	}
	return markets, nil
}

// ResolveMarket looks the market up by condition ID and reads its settled
// prices.
func (p *Polymarket) ResolveMarket(ctx context.Context, id string) (model.Outcome, error) {
	m, err := p.client.GetMarketByCondition(ctx, id)
	if err != nil {
		return model.OutcomeUnresolved, err
	}
	return m.Outcome(), nil
}

var errNoTokens = errors.New("no clob token ids")

func (p *Polymarket) fetchBook(ctx context.Context, m model.Market) (*model.OrderBook, error) {
	p.mu.RLock()
	ids, ok := p.tokens[m.ID]
	p.mu.RUnlock()
	if !ok {
		return nil, errNoTokens
	}

	yes, err := p.client.GetBook(ctx, ids[0])
	if err != nil {
		return nil, err
	}
	no, err := p.client.GetBook(ctx, ids[1])
	if err != nil {
		return nil, err
	}
	return &model.OrderBook{YesAsks: yes.AskLevels(), NoAsks: no.AskLevels()}, nil
}
