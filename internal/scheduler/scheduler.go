// Package scheduler sequences the pipeline: fetch markets, research base
// rates, evaluate and rank opportunities, paper trade, settle and report.
// Only one cycle runs at a time. Every collaborator call goes through a Guard.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rickgao/baserate-arb/internal/analysis"
	"github.com/rickgao/baserate-arb/internal/config"
	"github.com/rickgao/baserate-arb/internal/dedup"
	"github.com/rickgao/baserate-arb/internal/ledger"
	"github.com/rickgao/baserate-arb/internal/market"
	"github.com/rickgao/baserate-arb/internal/metrics"
	"github.com/rickgao/baserate-arb/internal/model"
	"github.com/rickgao/baserate-arb/internal/rank"
	"github.com/rickgao/baserate-arb/internal/research"
	"github.com/rickgao/baserate-arb/internal/retry"
	"github.com/rickgao/baserate-arb/internal/store"
	"github.com/rickgao/baserate-arb/internal/venue"
)

// Scheduler errors.
var (
	ErrCycleInProgress = errors.New("cycle already in progress")
	// ErrBudgetExhausted is reported as deferral, never returned from RunCycle.
	ErrBudgetExhausted = errors.New("research budget exhausted")
	ErrMarketNotFound  = errors.New("market not found")
	ErrNoResearcher    = errors.New("no researcher configured")

	// errResearchNotRun marks a research request the guard rejected before
	// the researcher was called.
	errResearchNotRun = errors.New("research not attempted")
)

// ResearchGuard names the research collaborator's guard.
const ResearchGuard = "research"

// Config controls cycles.
type Config struct {
	Interval    time.Duration
	Concurrency int // parallel evaluations

	ResearchBudget      int
	ResearchStaleAfter  time.Duration
	ResearchConcurrency int

	AllowStale bool
	Criteria   rank.Criteria

	AutoTrade     bool
	AutoAll       bool
	AutoMarkets   []string
	MaxOpen       int // zero means no cap
	TradeCriteria rank.Criteria

	// Guards are keyed by platform name or ResearchGuard. Missing entries
	// use DefaultGuard.
	Guards       map[string]GuardConfig
	DefaultGuard GuardConfig
}

// ConfigFrom derives scheduler settings from the application config.
func ConfigFrom(cfg *config.Config) Config {
	sc := cfg.Scheduler
	policy := retry.Policy{
		MaxAttempts: sc.Retry.MaxAttempts,
		BaseDelay:   sc.Retry.BaseDelay,
		MaxDelay:    sc.Retry.MaxDelay,
		Jitter:      sc.Retry.Jitter,
	}
	guard := func(rl config.RateLimitConfig, timeout time.Duration) GuardConfig {
		return GuardConfig{
			RPS:              rl.RPS,
			Burst:            rl.Burst,
			Timeout:          timeout,
			Retry:            policy,
			FailureThreshold: sc.Breaker.ConsecutiveFailures,
			OpenTimeout:      sc.Breaker.OpenTimeout,
		}
	}

	researchTimeout := sc.CallTimeout
	if cfg.Research.Timeout > researchTimeout {
		researchTimeout = cfg.Research.Timeout
	}

	return Config{
		Interval:            sc.Interval,
		Concurrency:         sc.Concurrency,
		ResearchBudget:      cfg.Research.BudgetPerCycle,
		ResearchStaleAfter:  cfg.Research.StaleAfter,
		ResearchConcurrency: cfg.Research.Concurrency,
		AllowStale:          cfg.Analysis.AllowStale,
		Criteria:            cfg.Criteria,
		AutoTrade:           cfg.Paper.AutoTrade,
		AutoAll:             cfg.Paper.AutoAll,
		AutoMarkets:         cfg.Paper.AutoMarkets,
		MaxOpen:             cfg.Paper.MaxOpen,
		TradeCriteria:       cfg.Paper.Criteria,
		Guards: map[string]GuardConfig{
			string(model.PlatformKalshi):     guard(cfg.Kalshi.RateLimit, sc.CallTimeout),
			string(model.PlatformPolymarket): guard(cfg.Polymarket.RateLimit, sc.CallTimeout),
			ResearchGuard:                    guard(cfg.Research.RateLimit, researchTimeout),
		},
		DefaultGuard: guard(config.RateLimitConfig{}, sc.CallTimeout),
	}
}

// Deps are the scheduler's collaborators. Registry, Evaluator, Ledger, Dedup
// and Store are required.
type Deps struct {
	Venues     []venue.Venue
	Researcher research.Researcher // nil disables research
	Registry   market.Registry
	Evaluator  *analysis.Evaluator
	Ledger     *ledger.Ledger
	Dedup      *dedup.Tracker
	Store      store.Store
	Metrics    *metrics.Metrics
	Sinks      []ReportSink
	Logger     *slog.Logger
}

// Scheduler runs pipeline cycles.
type Scheduler struct {
	cfg        Config
	venues     []venue.Venue
	researcher research.Researcher
	registry   market.Registry
	evaluator  *analysis.Evaluator
	ledger     *ledger.Ledger
	dedup      *dedup.Tracker
	store      store.Store
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time

	guards map[string]*Guard
	flight singleflight.Group

	running atomic.Bool

	mu    sync.RWMutex
	sinks []ReportSink
	last  *CycleReport

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New creates a Scheduler.
func New(cfg Config, deps Deps, opts ...Option) *Scheduler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if cfg.ResearchConcurrency <= 0 {
		cfg.ResearchConcurrency = 1
	}

	s := &Scheduler{
		cfg:        cfg,
		venues:     deps.Venues,
		researcher: deps.Researcher,
		registry:   deps.Registry,
		evaluator:  deps.Evaluator,
		ledger:     deps.Ledger,
		dedup:      deps.Dedup,
		store:      deps.Store,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        time.Now,
		guards:     make(map[string]*Guard),
		sinks:      deps.Sinks,
	}
	for _, opt := range opts {
		opt(s)
	}

	names := []string{ResearchGuard}
	for _, v := range s.venues {
		names = append(names, string(v.Platform()))
	}
	for _, name := range names {
		gc, ok := cfg.Guards[name]
		if !ok {
			gc = cfg.DefaultGuard
		}
		s.guards[name] = NewGuard(name, gc, s.metrics, logger)
	}
	return s
}

// AddSink registers a report sink.
func (s *Scheduler) AddSink(sink ReportSink) {
	s.mu.Lock()
	s.sinks = append(s.sinks, sink)
	s.mu.Unlock()
}

// Running reports whether a cycle is in progress.
func (s *Scheduler) Running() bool { return s.running.Load() }

// Guards returns the breaker state of every collaborator.
func (s *Scheduler) Guards() map[string]string {
	out := make(map[string]string, len(s.guards))
	for name, g := range s.guards {
		out[name] = g.State()
	}
	return out
}

// LastReport returns the most recent cycle report, falling back to the
// persisted one after a restart.
func (s *Scheduler) LastReport(ctx context.Context) (CycleReport, bool, error) {
	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()
	if last != nil {
		return *last, true, nil
	}

	var rep CycleReport
	found, err := s.store.Load(ctx, store.KeyLastReport, &rep)
	if err != nil {
		return CycleReport{}, false, fmt.Errorf("load last report: %w", err)
	}
	return rep, found, nil
}

// Market returns a stored market.
func (s *Scheduler) Market(id string) (model.Market, bool) {
	return s.registry.GetMarket(id)
}

// Opportunities evaluates every stored active market with a base rate and
// returns those matching criteria, ranked.
func (s *Scheduler) Opportunities(ctx context.Context, criteria rank.Criteria) ([]model.OpportunityAnalysis, error) {
	res, err := s.evaluateAll(ctx, s.registry.GetActiveMarkets(s.now()))
	if err != nil {
		return nil, err
	}
	return rank.FilterAndRank(res.analyses, criteria), nil
}

// ResearchMarket researches one stored market outside the cycle. It ignores
// the cooldown and the cycle budget but is still recorded in the dedup state.
func (s *Scheduler) ResearchMarket(ctx context.Context, id string) (model.BaseRate, error) {
	m, ok := s.registry.GetMarket(id)
	if !ok {
		return model.BaseRate{}, fmt.Errorf("%w: %s", ErrMarketNotFound, id)
	}
	rate, err := s.researchOne(ctx, m)
	if ferr := s.dedup.Flush(ctx); ferr != nil {
		s.logger.Warn("failed to flush dedup state", "error", ferr)
	}
	if err != nil {
		return model.BaseRate{}, err
	}
	return rate, nil
}

// guard returns the guard of a collaborator registered in New.
func (s *Scheduler) guard(name string) *Guard {
	return s.guards[name]
}

func (s *Scheduler) venueFor(p model.Platform) (venue.Venue, bool) {
	for _, v := range s.venues {
		if v.Platform() == p {
			return v, true
		}
	}
	return nil, false
}
