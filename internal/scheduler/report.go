package scheduler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/baserate-arb/internal/model"
	"github.com/rickgao/baserate-arb/internal/rank"
)

// Cycle stages, used to attribute errors.
const (
	StageFetch    = "fetch"
	StageResearch = "research"
	StageAnalyze  = "analyze"
	StageTrade    = "trade"
	StageSettle   = "settle"
	StagePersist  = "persist"
)

// Trade statuses.
const (
	TradeOpened              = "opened"
	TradeDuplicate           = "duplicate"
	TradeInsufficientBalance = "insufficient_balance"
	TradeCapped              = "max_open"
	TradeFailed              = "failed"
)

// Settlement statuses.
const (
	SettlementSettled = "settled"
	SettlementPending = "pending"
	SettlementFailed  = "failed"
)

// CycleReport summarises one pipeline cycle.
type CycleReport struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMS int64     `json:"duration_ms"`
	Cancelled  bool      `json:"cancelled,omitempty"`

	Fetched map[model.Platform]int `json:"fetched"`
	Created int                    `json:"created"`
	Updated int                    `json:"updated"`

	Research ResearchSummary `json:"research"`

	Evaluated     int                         `json:"evaluated"`
	Stale         int                         `json:"stale"`
	Opportunities []model.OpportunityAnalysis `json:"opportunities"`
	Summary       rank.Summary                `json:"summary"`

	Trades      []TradeResult      `json:"trades,omitempty"`
	Settlements []SettlementResult `json:"settlements,omitempty"`
	Ledger      LedgerSummary      `json:"ledger"`

	Errors []CycleError `json:"errors,omitempty"`
}

// ResearchSummary counts research activity in a cycle.
type ResearchSummary struct {
	Candidates int `json:"candidates"`
	Attempted  int `json:"attempted"`
	Succeeded  int `json:"succeeded"`
	Failed     int `json:"failed"`
	Cooldown   int `json:"cooldown"`
	// Deferred candidates did not fit the cycle's research budget or were
	// rejected by the research guard before the researcher ran.
	Deferred int `json:"deferred"`
}

// TradeResult is the outcome of one automatic paper order.
type TradeResult struct {
	MarketID   string          `json:"market_id"`
	Side       model.Side      `json:"side"`
	Price      float64         `json:"price"`
	Quantity   int             `json:"quantity"`
	Stake      decimal.Decimal `json:"stake"`
	Status     string          `json:"status"`
	PositionID string          `json:"position_id,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// SettlementResult is the outcome of settling one market.
type SettlementResult struct {
	MarketID string          `json:"market_id"`
	Outcome  model.Outcome   `json:"outcome,omitempty"`
	Status   string          `json:"status"`
	Closed   int             `json:"closed"`
	PnL      decimal.Decimal `json:"pnl"`
}

// LedgerSummary is the ledger state at the end of a cycle.
type LedgerSummary struct {
	Balance       decimal.Decimal `json:"balance"`
	Equity        decimal.Decimal `json:"equity"`
	RealizedPnL   decimal.Decimal `json:"realized_pnl"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
	Open          int             `json:"open"`
}

// CycleError records a per-item failure. Cycles continue past them.
type CycleError struct {
	Stage    string `json:"stage"`
	Subject  string `json:"subject,omitempty"` // platform or collaborator
	MarketID string `json:"market_id,omitempty"`
	Message  string `json:"message"`
}

// ReportSink receives every finished cycle report.
type ReportSink interface {
	PublishReport(CycleReport)
}

// ReportSinkFunc is a function adapter for ReportSink.
type ReportSinkFunc func(CycleReport)

func (f ReportSinkFunc) PublishReport(r CycleReport) { f(r) }

func (r *CycleReport) addError(stage, subject, marketID string, err error) {
	r.Errors = append(r.Errors, CycleError{
		Stage:    stage,
		Subject:  subject,
		MarketID: marketID,
		Message:  err.Error(),
	})
}

func (r *CycleReport) result() string {
	switch {
	case r.Cancelled:
		return "cancelled"
	case len(r.Errors) > 0:
		return "partial"
	default:
		return "ok"
	}
}
