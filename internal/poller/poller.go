package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/baserate-arb/internal/model"
)

// BookFetcher fetches the normalized order book for one market.
type BookFetcher interface {
	FetchBook(ctx context.Context, m model.Market) (*model.OrderBook, error)
}

// BookFetcherFunc is a function adapter for BookFetcher.
type BookFetcherFunc func(ctx context.Context, m model.Market) (*model.OrderBook, error)

func (f BookFetcherFunc) FetchBook(ctx context.Context, m model.Market) (*model.OrderBook, error) {
	return f(ctx, m)
}

// Config holds poller configuration.
type Config struct {
	Concurrency int           // Max concurrent requests (default: 8)
	Timeout     time.Duration // Per-request timeout (default: 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency: 8,
		Timeout:     10 * time.Second,
	}
}

// Result summarizes one Enrich call.
type Result struct {
	Markets  int
	Fetched  int64
	Errors   int64
	Duration time.Duration
}

// Poller fetches order books concurrently.
type Poller struct {
	cfg     Config
	fetcher BookFetcher
	logger  *slog.Logger
}

// New creates a new Poller.
func New(cfg Config, fetcher BookFetcher, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Poller{cfg: cfg, fetcher: fetcher, logger: logger}
}

// Enrich fetches books for markets in place. Markets whose fetch fails keep
// a nil OrderBook. Cancelling ctx stops scheduling new fetches.
func (p *Poller) Enrich(ctx context.Context, markets []model.Market) Result {
	start := time.Now()
	res := Result{Markets: len(markets)}
	if len(markets) == 0 {
		return res
	}

	// Semaphore for bounded concurrency.
	sem := make(chan struct{}, p.cfg.Concurrency)
	var wg sync.WaitGroup
	var fetched, errs atomic.Int64

	for i := range markets {
		wg.Add(1)
		go func(m *model.Market) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			book, err := p.fetchOne(ctx, *m)
			if err != nil {
				p.logger.Warn("failed to fetch order book",
					"market", m.ID,
					"platform", m.Platform,
					"err", err,
				)
				errs.Add(1)
				return
			}

			// Each goroutine owns a distinct element.
			m.OrderBook = book
			fetched.Add(1)
		}(&markets[i])
	}

	wg.Wait()

	res.Fetched = fetched.Load()
	res.Errors = errs.Load()
	res.Duration = time.Since(start)

	p.logger.Debug("order book fetch complete",
		"markets", res.Markets,
		"fetched", res.Fetched,
		"errors", res.Errors,
		"duration", res.Duration,
	)
	return res
}

func (p *Poller) fetchOne(ctx context.Context, m model.Market) (*model.OrderBook, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()
	return p.fetcher.FetchBook(ctx, m)
}
