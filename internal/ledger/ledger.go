// Package ledger simulates a trading account. Positions move from OPEN to
// exactly one of CLOSED_WIN, CLOSED_LOSS or CLOSED_VOID and are never reopened.
//
// The ledger is the only writer of its account. Each mutation is applied to a
// copy, persisted under a single store key, and only then made visible, so a
// failed save leaves the ledger unchanged.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rickgao/baserate-arb/internal/model"
	"github.com/rickgao/baserate-arb/internal/store"
)

// Ledger errors.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrDuplicatePosition   = errors.New("duplicate position")
	ErrInvalidOrder        = errors.New("invalid order")
	ErrInvalidOutcome      = errors.New("invalid outcome")
)

var hundred = decimal.NewFromInt(100)

// Account is the persisted ledger state.
type Account struct {
	InitialBalance decimal.Decimal       `json:"initial_balance"`
	Balance        decimal.Decimal       `json:"balance"`
	RealizedPnL    decimal.Decimal       `json:"realized_pnl"`
	Positions      []model.PaperPosition `json:"positions"`
	SettledThrough time.Time             `json:"settled_through"`
}

func (a Account) clone() Account {
	a.Positions = slices.Clone(a.Positions)
	return a
}

// OpenRequest describes a paper order.
type OpenRequest struct {
	MarketID string         `json:"market_id"`
	Platform model.Platform `json:"platform,omitempty"`
	Title    string         `json:"title,omitempty"`
	Side     model.Side     `json:"side"`
	Price    float64        `json:"price"` // cents
	Quantity int            `json:"quantity"`
	// Average merges into an existing open position on the same market and
	// side instead of failing with ErrDuplicatePosition.
	Average bool `json:"average,omitempty"`
}

// SettleResult summarises one settlement.
type SettleResult struct {
	MarketID string                `json:"market_id"`
	Outcome  model.Outcome         `json:"outcome"`
	Closed   []model.PaperPosition `json:"closed"`
	Credited decimal.Decimal       `json:"credited"`
	PnL      decimal.Decimal       `json:"pnl"`
}

// Ledger is a persisted paper-trading account.
type Ledger struct {
	mu     sync.RWMutex
	acct   Account
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
	newID  func() uuid.UUID
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New loads the account from st, or starts a fresh account with
// initialBalance when none is stored.
func New(ctx context.Context, st store.Store, initialBalance decimal.Decimal, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		store:  st,
		logger: slog.Default(),
		now:    time.Now,
		newID:  uuid.New,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}

	found, err := st.Load(ctx, store.KeyLedger, &l.acct)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	if !found {
		l.acct = Account{InitialBalance: initialBalance, Balance: initialBalance}
	}
	return l, nil
}

// commit persists next and makes it current. Callers hold l.mu.
func (l *Ledger) commit(ctx context.Context, next Account) error {
	if err := l.store.Save(ctx, store.KeyLedger, next); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	l.acct = next
	return nil
}

// Open debits the stake and records an OPEN position.
func (l *Ledger) Open(ctx context.Context, req OpenRequest) (model.PaperPosition, error) {
	if req.MarketID == "" {
		return model.PaperPosition{}, fmt.Errorf("%w: market id is required", ErrInvalidOrder)
	}
	if req.Side != model.SideYes && req.Side != model.SideNo {
		return model.PaperPosition{}, fmt.Errorf("%w: side %q", ErrInvalidOrder, req.Side)
	}
	if req.Price <= 0 || req.Price >= 100 {
		return model.PaperPosition{}, fmt.Errorf("%w: price %v outside (0, 100)", ErrInvalidOrder, req.Price)
	}
	if req.Quantity <= 0 {
		return model.PaperPosition{}, fmt.Errorf("%w: quantity %d", ErrInvalidOrder, req.Quantity)
	}

	stake := decimal.NewFromFloat(req.Price).Mul(decimal.NewFromInt(int64(req.Quantity))).Div(hundred)

	l.mu.Lock()
	defer l.mu.Unlock()

	if stake.GreaterThan(l.acct.Balance) {
		return model.PaperPosition{}, fmt.Errorf("%w: stake %s exceeds balance %s", ErrInsufficientBalance, stake.StringFixed(2), l.acct.Balance.StringFixed(2))
	}

	next := l.acct.clone()
	next.Balance = next.Balance.Sub(stake)

	idx := slices.IndexFunc(next.Positions, func(p model.PaperPosition) bool {
		return p.MarketID == req.MarketID && p.Status == model.StatusOpen
	})

	var pos model.PaperPosition
	switch {
	case idx >= 0 && !req.Average:
		return model.PaperPosition{}, fmt.Errorf("%w: open position %s on %s", ErrDuplicatePosition, next.Positions[idx].ID, req.MarketID)
	case idx >= 0:
		pos = next.Positions[idx]
		if pos.Side != req.Side {
			return model.PaperPosition{}, fmt.Errorf("%w: cannot average %s into open %s position on %s", ErrDuplicatePosition, req.Side, pos.Side, req.MarketID)
		}
		pos.Quantity += req.Quantity
		pos.Stake = pos.Stake.Add(stake)
		pos.EntryPrice = pos.Stake.Mul(hundred).Div(decimal.NewFromInt(int64(pos.Quantity))).InexactFloat64()
		next.Positions[idx] = pos
	default:
		pos = model.PaperPosition{
			ID:         l.newID(),
			MarketID:   req.MarketID,
			Platform:   req.Platform,
			Title:      req.Title,
			Side:       req.Side,
			EntryPrice: req.Price,
			Quantity:   req.Quantity,
			Stake:      stake,
			OpenedAt:   l.now().UTC(),
			Status:     model.StatusOpen,
		}
		next.Positions = append(next.Positions, pos)
	}

	if err := l.commit(ctx, next); err != nil {
		return model.PaperPosition{}, err
	}
	l.logger.Info("paper position opened",
		"market_id", req.MarketID,
		"side", req.Side,
		"price", req.Price,
		"quantity", req.Quantity,
		"stake", stake.StringFixed(2),
		"averaged", idx >= 0,
	)
	return pos, nil
}

// Settle closes every OPEN position on marketID according to outcome. A
// winning position is credited its stake plus stake times payout odds, which
// equals quantity times one dollar. A void refunds the stake. Positions that
// are already closed are untouched, so settling twice is a no-op.
func (l *Ledger) Settle(ctx context.Context, marketID string, outcome model.Outcome) (SettleResult, error) {
	switch outcome {
	case model.OutcomeYes, model.OutcomeNo, model.OutcomeVoid:
	default:
		return SettleResult{}, fmt.Errorf("%w: %q", ErrInvalidOutcome, outcome)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	res := SettleResult{MarketID: marketID, Outcome: outcome, Credited: decimal.Zero, PnL: decimal.Zero}
	now := l.now().UTC()
	next := l.acct.clone()

	for i, p := range next.Positions {
		if p.MarketID != marketID || p.Status != model.StatusOpen {
			continue
		}
		switch {
		case outcome == model.OutcomeVoid:
			p.Status = model.StatusClosedVoid
			p.Payout = p.Stake
		case string(outcome) == string(p.Side):
			p.Status = model.StatusClosedWin
			p.Payout = decimal.NewFromInt(int64(p.Quantity))
		default:
			p.Status = model.StatusClosedLoss
			p.Payout = decimal.Zero
		}
		p.PnL = p.Payout.Sub(p.Stake)
		p.ClosedAt = &now
		next.Positions[i] = p

		next.Balance = next.Balance.Add(p.Payout)
		next.RealizedPnL = next.RealizedPnL.Add(p.PnL)
		res.Credited = res.Credited.Add(p.Payout)
		res.PnL = res.PnL.Add(p.PnL)
		res.Closed = append(res.Closed, p)
	}

	if len(res.Closed) == 0 {
		return res, nil
	}
	next.SettledThrough = now
	if err := l.commit(ctx, next); err != nil {
		return SettleResult{}, err
	}
	l.logger.Info("paper positions settled",
		"market_id", marketID,
		"outcome", outcome,
		"closed", len(res.Closed),
		"pnl", res.PnL.StringFixed(2),
	)
	return res, nil
}

// Mark records the current side price of every open position whose market is
// in markets.
func (l *Ledger) Mark(ctx context.Context, markets []model.Market) error {
	byID := make(map[string]model.Market, len(markets))
	for _, m := range markets {
		byID[m.ID] = m
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.acct.clone()
	changed := false
	for i, p := range next.Positions {
		m, ok := byID[p.MarketID]
		if !ok || p.Status != model.StatusOpen {
			continue
		}
		if price := m.PriceFor(p.Side); price != p.MarkPrice {
			next.Positions[i].MarkPrice = price
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return l.commit(ctx, next)
}

// Reset discards all positions and restarts the account at balance.
func (l *Ledger) Reset(ctx context.Context, balance decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.commit(ctx, Account{InitialBalance: balance, Balance: balance})
}

// Positions returns a copy of the positions, optionally restricted to statuses.
func (l *Ledger) Positions(statuses ...model.Status) []model.PaperPosition {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.PaperPosition, 0, len(l.acct.Positions))
	for _, p := range l.acct.Positions {
		if len(statuses) == 0 || slices.Contains(statuses, p.Status) {
			out = append(out, p)
		}
	}
	return out
}

// OpenMarkets returns the distinct market ids with open positions.
func (l *Ledger) OpenMarkets() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var ids []string
	for _, p := range l.acct.Positions {
		if p.Status == model.StatusOpen && !slices.Contains(ids, p.MarketID) {
			ids = append(ids, p.MarketID)
		}
	}
	return ids
}

// HasOpen reports whether marketID has an open position.
func (l *Ledger) HasOpen(marketID string) bool {
	return slices.Contains(l.OpenMarkets(), marketID)
}

// Account returns a copy of the persisted state.
func (l *Ledger) Account() Account {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.acct.clone()
}
