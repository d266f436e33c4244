package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/rickgao/baserate-arb/internal/ledger"
	"github.com/rickgao/baserate-arb/internal/model"
	"github.com/rickgao/baserate-arb/internal/rank"
	"github.com/rickgao/baserate-arb/internal/report"
	"github.com/rickgao/baserate-arb/internal/scheduler"
	"github.com/rickgao/baserate-arb/internal/sizing"
	"github.com/rickgao/baserate-arb/internal/version"
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	breakers := s.pipeline.Guards()
	status := "ok"
	for _, state := range breakers {
		if state != "closed" {
			status = "degraded"
		}
	}
	subscribers := 0
	if s.hub != nil {
		subscribers = s.hub.Len()
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":        status,
		"time":          s.now().UTC(),
		"version":       version.Get(),
		"cycle_running": s.pipeline.Running(),
		"breakers":      breakers,
		"subscribers":   subscribers,
	})
}

func (s *Server) getOpportunities(w http.ResponseWriter, r *http.Request) {
	criteria, err := criteriaFromQuery(r.URL.Query())
	if err != nil {
		respondError(w, err)
		return
	}
	opps, err := s.pipeline.Opportunities(r.Context(), criteria)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"opportunities": opps,
		"count":         len(opps),
		"summary":       rank.Summarize(opps),
	})
}

type runCycleRequest struct {
	Platforms      []string `json:"platforms"`
	ResearchBudget int      `json:"research_budget"`
	SkipFetch      bool     `json:"skip_fetch"`
	SkipResearch   bool     `json:"skip_research"`
	SkipTrading    bool     `json:"skip_trading"`
	SkipSettlement bool     `json:"skip_settlement"`
}

func (s *Server) runCycle(w http.ResponseWriter, r *http.Request) {
	var req runCycleRequest
	if err := decodeBody(r, &req, true); err != nil {
		respondError(w, err)
		return
	}
	opts := scheduler.RunOptions{
		ResearchBudget: req.ResearchBudget,
		SkipFetch:      req.SkipFetch,
		SkipResearch:   req.SkipResearch,
		SkipTrading:    req.SkipTrading,
		SkipSettlement: req.SkipSettlement,
	}
	for _, name := range req.Platforms {
		p, err := model.ParsePlatform(name)
		if err != nil {
			respondError(w, fmt.Errorf("%w: %w", errBadRequest, err))
			return
		}
		opts.Platforms = append(opts.Platforms, p)
	}

	rep, err := s.pipeline.RunCycle(context.WithoutCancel(r.Context()), opts)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rep)
}

func (s *Server) lastCycle(w http.ResponseWriter, r *http.Request) {
	rep, found, err := s.pipeline.LastReport(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	if !found {
		respondJSON(w, http.StatusNotFound, errorResponse{Error: http.StatusText(http.StatusNotFound), Details: "no cycle has run yet"})
		return
	}
	respondJSON(w, http.StatusOK, rep)
}

func (s *Server) getLedger(w http.ResponseWriter, r *http.Request) {
	snap := s.ledger.Snapshot()
	if status := r.URL.Query().Get("status"); status != "" {
		snap.Positions = s.ledger.Positions(model.Status(status))
	}
	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) openPosition(w http.ResponseWriter, r *http.Request) {
	var req ledger.OpenRequest
	if err := decodeBody(r, &req, false); err != nil {
		respondError(w, err)
		return
	}
	pos, err := s.ledger.Open(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, pos)
}

type settleRequest struct {
	MarketID string `json:"market_id"`
	Outcome  string `json:"outcome"`
}

func (s *Server) settle(w http.ResponseWriter, r *http.Request) {
	var req settleRequest
	if err := decodeBody(r, &req, false); err != nil {
		respondError(w, err)
		return
	}
	if req.MarketID == "" {
		respondError(w, fmt.Errorf("%w: market_id is required", errBadRequest))
		return
	}
	outcome, err := model.ParseOutcome(req.Outcome)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	res, err := s.ledger.Settle(context.WithoutCancel(r.Context()), req.MarketID, outcome)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

type kellyRequest struct {
	// Bankroll defaults to the ledger balance.
	Bankroll *decimal.Decimal `json:"bankroll"`
	// Opportunities default to the current ranked opportunities.
	Opportunities []model.OpportunityAnalysis `json:"opportunities"`
	Criteria      rank.Criteria               `json:"criteria"`
}

type kellyResponse struct {
	Bankroll   decimal.Decimal            `json:"bankroll"`
	Stakes     map[string]decimal.Decimal `json:"stakes"`
	TotalStake decimal.Decimal            `json:"total_stake"`
	Orders     []sizing.Order             `json:"orders"`
}

func (s *Server) kellyPortfolio(w http.ResponseWriter, r *http.Request) {
	var req kellyRequest
	if err := decodeBody(r, &req, true); err != nil {
		respondError(w, err)
		return
	}

	bankroll := s.ledger.Account().Balance
	if req.Bankroll != nil {
		bankroll = *req.Bankroll
	}
	if bankroll.IsNegative() {
		respondError(w, fmt.Errorf("%w: bankroll must not be negative", errBadRequest))
		return
	}

	for _, o := range req.Opportunities {
		if err := validateOpportunity(o); err != nil {
			respondError(w, fmt.Errorf("%w: %w", errBadRequest, err))
			return
		}
	}

	opps := req.Opportunities
	if len(opps) == 0 {
		var err error
		opps, err = s.pipeline.Opportunities(r.Context(), req.Criteria)
		if err != nil {
			respondError(w, err)
			return
		}
	}

	stakes := sizing.Portfolio(bankroll, opps)
	total := decimal.Zero
	for _, st := range stakes {
		total = total.Add(st)
	}
	respondJSON(w, http.StatusOK, kellyResponse{
		Bankroll:   bankroll,
		Stakes:     stakes,
		TotalStake: total,
		Orders:     sizing.Plan(bankroll, opps),
	})
}

// validateOpportunity checks a client-supplied analysis before sizing it.
func validateOpportunity(o model.OpportunityAnalysis) error {
	switch {
	case o.MarketID == "":
		return errors.New("opportunity market_id is required")
	case o.Side != model.SideNone && o.Side != model.SideYes && o.Side != model.SideNo:
		return fmt.Errorf("market %s: unknown side %q", o.MarketID, o.Side)
	case o.KellyFraction < 0 || o.KellyFraction > 1:
		return fmt.Errorf("market %s: kelly_fraction %v outside [0, 1]", o.MarketID, o.KellyFraction)
	case o.Actionable() && (o.FillPrice <= 0 || o.FillPrice >= 100):
		return fmt.Errorf("market %s: fill_price %v outside (0, 100)", o.MarketID, o.FillPrice)
	}
	return nil
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	period, err := report.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		respondError(w, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	perf := report.Generate(s.ledger.Snapshot(), period, s.now().UTC())
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(perf.Text()))
		return
	}
	respondJSON(w, http.StatusOK, perf)
}

func (s *Server) researchMarket(w http.ResponseWriter, r *http.Request) {
	rate, err := s.pipeline.ResearchMarket(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rate)
}
