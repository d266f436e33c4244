package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/baserate-arb/internal/analysis"
	"github.com/rickgao/baserate-arb/internal/dedup"
	"github.com/rickgao/baserate-arb/internal/ledger"
	"github.com/rickgao/baserate-arb/internal/model"
	"github.com/rickgao/baserate-arb/internal/probability"
	"github.com/rickgao/baserate-arb/internal/rank"
	"github.com/rickgao/baserate-arb/internal/research"
	"github.com/rickgao/baserate-arb/internal/retry"
	"github.com/rickgao/baserate-arb/internal/sizing"
	"github.com/rickgao/baserate-arb/internal/store"
)

// RunOptions adjust a single cycle.
type RunOptions struct {
	// Platforms restricts fetching and settlement. Empty means all venues.
	Platforms []model.Platform
	// ResearchBudget overrides the configured budget when positive.
	ResearchBudget int
	SkipFetch      bool
	SkipResearch   bool
	SkipTrading    bool
	SkipSettlement bool
}

func (o RunOptions) includes(p model.Platform) bool {
	return len(o.Platforms) == 0 || slices.Contains(o.Platforms, p)
}

// RunCycle runs one full cycle. Per-item failures are collected in the
// report; the returned error is ErrCycleInProgress or the context error when
// the cycle was cancelled. A cancelled cycle still flushes its state and
// returns a partial report.
func (s *Scheduler) RunCycle(ctx context.Context, opts RunOptions) (CycleReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		return CycleReport{}, ErrCycleInProgress
	}
	defer s.running.Store(false)

	start := s.now()
	rep := &CycleReport{
		ID:        uuid.NewString(),
		StartedAt: start.UTC(),
		Fetched:   make(map[model.Platform]int),
	}
	logger := s.logger.With("cycle_id", rep.ID)
	logger.Info("cycle started")

	if !opts.SkipFetch {
		s.fetch(ctx, rep, opts, logger)
	}
	if !opts.SkipResearch && s.researcher != nil && ctx.Err() == nil {
		budget := s.cfg.ResearchBudget
		if opts.ResearchBudget > 0 {
			budget = opts.ResearchBudget
		}
		s.research(ctx, rep, budget, logger)
	}
	if ctx.Err() == nil {
		s.analyze(ctx, rep)
	}
	if !opts.SkipTrading && s.cfg.AutoTrade && ctx.Err() == nil {
		s.trade(ctx, rep, logger)
	}
	if !opts.SkipSettlement && ctx.Err() == nil {
		s.settle(ctx, rep, opts, logger)
	}

	rep.Cancelled = ctx.Err() != nil
	s.finish(ctx, rep, start, logger)

	if rep.Cancelled {
		return *rep, ctx.Err()
	}
	return *rep, nil
}

func (s *Scheduler) fetch(ctx context.Context, rep *CycleReport, opts RunOptions, logger *slog.Logger) {
	for _, v := range s.venues {
		p := v.Platform()
		if !opts.includes(p) || ctx.Err() != nil {
			continue
		}

		var markets []model.Market
		err := s.guard(string(p)).Do(ctx, func(ctx context.Context) error {
			var err error
			markets, err = v.FetchMarkets(ctx)
			return err
		})
		if err != nil {
			logger.Warn("market fetch failed", "platform", p, "error", err)
			rep.addError(StageFetch, string(p), "", err)
			continue
		}

		changes, err := s.registry.UpsertMarkets(ctx, markets)
		if err != nil {
			logger.Error("failed to store markets", "platform", p, "error", err)
			rep.addError(StagePersist, string(p), "", err)
		}
		for _, c := range changes {
			switch c.EventType {
			case "created":
				rep.Created++
			default:
				rep.Updated++
			}
		}
		rep.Fetched[p] = len(markets)
		s.metrics.SetMarketsFetched(string(p), len(markets))
		logger.Info("markets fetched", "platform", p, "count", len(markets))
	}
}

// researchCandidates returns active markets without a base rate or with one
// older than the stale window.
func (s *Scheduler) researchCandidates(now time.Time) []model.Market {
	var out []model.Market
	for _, m := range s.registry.GetActiveMarkets(now) {
		r, ok := s.registry.GetBaseRate(m.ID)
		if ok && (s.cfg.ResearchStaleAfter <= 0 || now.Sub(r.ResearchedAt) < s.cfg.ResearchStaleAfter) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func (s *Scheduler) research(ctx context.Context, rep *CycleReport, limit int, logger *slog.Logger) {
	now := s.now()
	candidates := research.Prioritize(s.researchCandidates(now))
	rep.Research.Candidates = len(candidates)

	budget := dedup.NewBudget(limit)
	overBudget := 0
	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(s.cfg.ResearchConcurrency)

	for _, m := range candidates {
		if ctx.Err() != nil {
			break
		}
		if !s.dedup.ShouldResearch(m.ID, now) {
			rep.Research.Cooldown++
			last, _ := s.dedup.LastResearched(m.ID)
			logger.Debug("research cooldown", "market_id", m.ID, "last_researched", last)
			continue
		}
		if !budget.Take() {
			mu.Lock()
			rep.Research.Deferred++
			mu.Unlock()
			overBudget++
			continue
		}
		g.Go(func() error {
			_, err := s.researchOne(ctx, m)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, errResearchNotRun):
				budget.Release()
				rep.Research.Deferred++
				logger.Warn("research deferred", "market_id", m.ID, "breaker", s.guard(ResearchGuard).State(), "error", err)
			case err != nil:
				rep.Research.Failed++
				rep.addError(StageResearch, ResearchGuard, m.ID, err)
			default:
				rep.Research.Succeeded++
			}
			return nil
		})
	}
	_ = g.Wait()
	rep.Research.Attempted = budget.Used()

	if overBudget > 0 {
		logger.Info("research deferred",
			"reason", ErrBudgetExhausted,
			"deferred", overBudget,
			"budget", limit,
		)
	}
	logger.Info("research finished",
		"candidates", rep.Research.Candidates,
		"succeeded", rep.Research.Succeeded,
		"failed", rep.Research.Failed,
		"cooldown", rep.Research.Cooldown,
		"budget_remaining", budget.Remaining(),
	)
}

// researchOne researches m, coalescing concurrent requests for the same
// market. Every call that reaches the researcher is recorded in the dedup
// state, failed or not. When the guard never let a call through, the error
// wraps errResearchNotRun and the market stays eligible.
func (s *Scheduler) researchOne(ctx context.Context, m model.Market) (model.BaseRate, error) {
	if s.researcher == nil {
		return model.BaseRate{}, ErrNoResearcher
	}

	v, err, _ := s.flight.Do(m.ID, func() (any, error) {
		var (
			rate model.BaseRate
			ran  bool
		)
		err := s.guard(ResearchGuard).Do(ctx, func(ctx context.Context) error {
			ran = true
			r, err := s.researcher.Research(ctx, m)
			if err == nil {
				rate, err = research.Finalize(m, r, s.now().UTC())
			}
			// Failures specific to this market say nothing about the
			// research service and must not trip its breaker.
			if errors.Is(err, probability.ErrInvalidBaseRate) ||
				(errors.Is(err, research.ErrResearchFailed) && !research.Transient(err)) {
				return retry.Permanent(err)
			}
			return err
		})
		if !ran {
			s.metrics.Research("deferred", 1)
			return nil, fmt.Errorf("%w: %w", errResearchNotRun, err)
		}
		s.dedup.MarkResearched(m.ID, s.now())
		if err != nil {
			s.metrics.Research("failed", 1)
			return nil, err
		}
		if err := s.registry.SaveBaseRate(ctx, rate); err != nil {
			s.metrics.Research("failed", 1)
			return nil, fmt.Errorf("save base rate %s: %w", m.ID, err)
		}
		s.metrics.Research("succeeded", 1)
		return rate, nil
	})
	if err != nil {
		return model.BaseRate{}, err
	}
	return v.(model.BaseRate), nil
}

type evaluation struct {
	analyses  []model.OpportunityAnalysis
	evaluated int
	stale     int
	errs      []CycleError
}

// evaluateAll evaluates every market that has a base rate, in parallel. It
// stops early and returns the context error when ctx is cancelled.
func (s *Scheduler) evaluateAll(ctx context.Context, markets []model.Market) (evaluation, error) {
	type slot struct {
		id  string
		a   model.OpportunityAnalysis
		err error
		ok  bool
	}
	slots := make([]slot, len(markets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, m := range markets {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rate, ok := s.registry.GetBaseRate(m.ID)
			if !ok {
				return nil
			}
			a, err := s.evaluator.Evaluate(m, rate)
			slots[i] = slot{id: m.ID, a: a, err: err, ok: true}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return evaluation{}, err
	}
	if err := ctx.Err(); err != nil {
		return evaluation{}, err
	}

	var res evaluation
	for _, sl := range slots {
		if !sl.ok {
			continue
		}
		res.evaluated++
		switch {
		case sl.err == nil:
			res.analyses = append(res.analyses, sl.a)
		case errors.Is(sl.err, analysis.ErrStaleData):
			res.stale++
			if s.cfg.AllowStale {
				res.analyses = append(res.analyses, sl.a)
			}
		default:
			res.errs = append(res.errs, CycleError{
				Stage:    StageAnalyze,
				MarketID: sl.id,
				Message:  sl.err.Error(),
			})
		}
	}
	return res, nil
}

func (s *Scheduler) analyze(ctx context.Context, rep *CycleReport) {
	res, err := s.evaluateAll(ctx, s.registry.GetActiveMarkets(s.now()))
	if err != nil {
		return
	}
	rep.Evaluated = res.evaluated
	rep.Stale = res.stale
	rep.Errors = append(rep.Errors, res.errs...)
	rep.Opportunities = rank.FilterAndRank(res.analyses, s.cfg.Criteria)
	rep.Summary = rank.Summarize(rep.Opportunities)
	s.metrics.SetOpportunities(len(rep.Opportunities))
}

// autoEligible reports whether a market may be traded automatically.
func (s *Scheduler) autoEligible(id string) bool {
	return s.cfg.AutoAll || slices.Contains(s.cfg.AutoMarkets, id)
}

func (s *Scheduler) trade(ctx context.Context, rep *CycleReport, logger *slog.Logger) {
	var selected []model.OpportunityAnalysis
	for _, a := range rank.FilterAndRank(rep.Opportunities, s.cfg.TradeCriteria) {
		if !s.autoEligible(a.MarketID) {
			continue
		}
		if s.ledger.HasOpen(a.MarketID) {
			rep.Trades = append(rep.Trades, TradeResult{
				MarketID: a.MarketID,
				Side:     a.Side,
				Price:    a.FillPrice,
				Status:   TradeDuplicate,
			})
			s.metrics.PaperTrade(TradeDuplicate)
			continue
		}
		selected = append(selected, a)
	}
	if s.cfg.MaxOpen > 0 {
		room := max(0, s.cfg.MaxOpen-len(s.ledger.Positions(model.StatusOpen)))
		if len(selected) > room {
			for _, a := range selected[room:] {
				rep.Trades = append(rep.Trades, TradeResult{
					MarketID: a.MarketID,
					Side:     a.Side,
					Price:    a.FillPrice,
					Status:   TradeCapped,
				})
				s.metrics.PaperTrade(TradeCapped)
			}
			selected = selected[:room]
		}
	}
	if len(selected) == 0 {
		return
	}

	for _, o := range sizing.Plan(s.ledger.Account().Balance, selected) {
		tr := TradeResult{
			MarketID: o.MarketID,
			Side:     o.Side,
			Price:    o.Price,
			Quantity: o.Quantity,
			Stake:    o.Stake,
		}
		pos, err := s.ledger.Open(ctx, ledger.OpenRequest{
			MarketID: o.MarketID,
			Platform: o.Platform,
			Title:    o.Title,
			Side:     o.Side,
			Price:    o.Price,
			Quantity: o.Quantity,
		})
		switch {
		case err == nil:
			tr.Status = TradeOpened
			tr.PositionID = pos.ID.String()
		case errors.Is(err, ledger.ErrDuplicatePosition):
			tr.Status = TradeDuplicate
		case errors.Is(err, ledger.ErrInsufficientBalance):
			tr.Status = TradeInsufficientBalance
		default:
			tr.Status = TradeFailed
			tr.Error = err.Error()
			rep.addError(StageTrade, "", o.MarketID, err)
		}
		rep.Trades = append(rep.Trades, tr)
		s.metrics.PaperTrade(tr.Status)
		if tr.Status == TradeOpened {
			logger.Info("paper position opened",
				"market_id", o.MarketID,
				"side", o.Side,
				"price", o.Price,
				"quantity", o.Quantity,
			)
		}
	}
}

// settle closes positions on markets past resolution. The venue is asked for
// the outcome unless the stored snapshot already carries one.
func (s *Scheduler) settle(ctx context.Context, rep *CycleReport, opts RunOptions, logger *slog.Logger) {
	now := s.now()
	platforms := make(map[string]model.Platform)
	for _, p := range s.ledger.Positions(model.StatusOpen) {
		platforms[p.MarketID] = p.Platform
	}

	ids := s.ledger.OpenMarkets()
	slices.Sort(ids)
	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		m, known := s.registry.GetMarket(id)
		platform := platforms[id]
		if known {
			platform = m.Platform
			if !m.Resolved(now) && m.Result == model.OutcomeUnresolved {
				continue
			}
		}
		if !opts.includes(platform) {
			continue
		}

		outcome := m.Result
		if outcome == model.OutcomeUnresolved {
			v, ok := s.venueFor(platform)
			if !ok {
				rep.addError(StageSettle, string(platform), id, fmt.Errorf("no venue for platform %q", platform))
				continue
			}
			err := s.guard(string(platform)).Do(ctx, func(ctx context.Context) error {
				var err error
				outcome, err = v.ResolveMarket(ctx, id)
				return err
			})
			if err != nil {
				rep.Settlements = append(rep.Settlements, SettlementResult{MarketID: id, Status: SettlementFailed})
				rep.addError(StageSettle, string(platform), id, err)
				continue
			}
		}
		if outcome == model.OutcomeUnresolved {
			rep.Settlements = append(rep.Settlements, SettlementResult{MarketID: id, Status: SettlementPending})
			continue
		}

		// A settlement is applied in full even if the cycle is cancelled.
		res, err := s.ledger.Settle(context.WithoutCancel(ctx), id, outcome)
		if err != nil {
			rep.Settlements = append(rep.Settlements, SettlementResult{MarketID: id, Outcome: outcome, Status: SettlementFailed})
			rep.addError(StageSettle, string(platform), id, err)
			continue
		}
		rep.Settlements = append(rep.Settlements, SettlementResult{
			MarketID: id,
			Outcome:  outcome,
			Status:   SettlementSettled,
			Closed:   len(res.Closed),
			PnL:      res.PnL,
		})
		s.metrics.Settlement(string(outcome), len(res.Closed))
		logger.Info("market settled", "market_id", id, "outcome", outcome, "pnl", res.PnL.StringFixed(2))
	}

	if err := s.ledger.Mark(ctx, s.registry.GetMarkets()); err != nil {
		rep.addError(StagePersist, "ledger", "", err)
	}
}

// finish persists cycle state and publishes the report. It runs even when
// ctx is cancelled.
func (s *Scheduler) finish(ctx context.Context, rep *CycleReport, start time.Time, logger *slog.Logger) {
	pctx := context.WithoutCancel(ctx)

	if n := s.dedup.Prune(s.now()); n > 0 {
		logger.Debug("pruned expired research cooldowns", "count", n)
	}
	if err := s.dedup.Flush(pctx); err != nil {
		logger.Error("failed to flush dedup state", "error", err)
		rep.addError(StagePersist, "dedup", "", err)
	}

	snap := s.ledger.Snapshot()
	rep.Ledger = LedgerSummary{
		Balance:       snap.Balance,
		Equity:        snap.Equity,
		RealizedPnL:   snap.RealizedPnL,
		UnrealizedPnL: snap.UnrealizedPnL,
		Open:          snap.Open,
	}
	s.metrics.SetLedger(snap.Balance.InexactFloat64(), snap.Equity.InexactFloat64())

	end := s.now()
	rep.FinishedAt = end.UTC()
	rep.DurationMS = end.Sub(start).Milliseconds()

	if err := s.store.Save(pctx, store.KeyLastReport, rep); err != nil {
		logger.Error("failed to save cycle report", "error", err)
		rep.addError(StagePersist, "report", "", err)
	}

	final := *rep
	s.mu.Lock()
	s.last = &final
	sinks := slices.Clone(s.sinks)
	s.mu.Unlock()
	for _, sink := range sinks {
		sink.PublishReport(final)
	}

	s.metrics.ObserveCycle(rep.result(), end.Sub(start))
	logger.Info("cycle finished",
		"result", rep.result(),
		"duration", end.Sub(start),
		"opportunities", len(rep.Opportunities),
		"trades", len(rep.Trades),
		"settlements", len(rep.Settlements),
		"errors", len(rep.Errors),
	)
}
