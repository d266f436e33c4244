// Package fill estimates the price paid to acquire a quantity of contracts by
// walking order book ask levels.
package fill

import (
	"slices"

	"github.com/rickgao/baserate-arb/internal/model"
)

// Fill is the result of walking a book for a target quantity.
type Fill struct {
	Price    float64 // cents, price of the last level consumed
	VWAP     float64 // cents, volume-weighted average over the consumed quantity
	Quantity int     // achievable quantity, capped at the target
	FromBook bool    // false when no book was available and Price is the displayed price
}

// Walk consumes levels in increasing price order until the accumulated
// quantity reaches target or the book is exhausted. The input is not modified.
// An empty book returns the zero Fill.
func Walk(levels []model.Level, target int) Fill {
	sorted := make([]model.Level, 0, len(levels))
	for _, l := range levels {
		if l.Quantity > 0 && l.Price > 0 {
			sorted = append(sorted, l)
		}
	}
	if len(sorted) == 0 {
		return Fill{}
	}
	slices.SortStableFunc(sorted, func(a, b model.Level) int {
		switch {
		case a.Price < b.Price:
			return -1
		case a.Price > b.Price:
			return 1
		default:
			return 0
		}
	})

	if target <= 0 {
		return Fill{Price: sorted[0].Price, VWAP: sorted[0].Price, FromBook: true}
	}

	var (
		filled int
		cost   float64
		last   float64
	)
	for _, l := range sorted {
		take := min(l.Quantity, target-filled)
		filled += take
		cost += float64(take) * l.Price
		last = l.Price
		if filled >= target {
			break
		}
	}
	return Fill{
		Price:    last,
		VWAP:     cost / float64(filled),
		Quantity: filled,
		FromBook: true,
	}
}

// Estimate walks the side's ask book of m. Without book levels for the side it
// falls back to the displayed price with zero quantity and FromBook unset.
func Estimate(m model.Market, side model.Side, target int) Fill {
	if f := Walk(m.OrderBook.Asks(side), target); f.FromBook {
		return f
	}
	p := m.PriceFor(side)
	return Fill{Price: p, VWAP: p}
}
