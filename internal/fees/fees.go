// Package fees approximates venue trading fees. Values are informational and
// feed the net expected value reported alongside each analysis.
package fees

import "github.com/rickgao/baserate-arb/internal/model"

// MakerMultiplier is the share of the taker fee charged to resting orders.
const MakerMultiplier = 0.5

type bracket struct {
	upTo float64 // exclusive upper bound, cents
	rate float64
}

// kalshiBrackets is the tiered taker schedule. Fees peak around 50 cents.
var kalshiBrackets = []bracket{
	{5, 0.01},
	{10, 0.015},
	{20, 0.02},
	{30, 0.025},
	{40, 0.03},
	{60, 0.035},
	{70, 0.03},
	{80, 0.025},
	{90, 0.02},
	{95, 0.015},
	{100, 0.01},
}

// Rate returns the fee as a fraction of notional for a contract bought at priceCents.
func Rate(p model.Platform, priceCents float64, maker bool) float64 {
	if p != model.PlatformKalshi {
		return 0
	}
	price := max(0, min(100, priceCents))
	rate := 0.01
	for _, b := range kalshiBrackets {
		if price < b.upTo {
			rate = b.rate
			break
		}
	}
	if maker {
		rate *= MakerMultiplier
	}
	return rate
}

// PerContract returns the fee in cents for one contract at priceCents.
func PerContract(p model.Platform, priceCents float64, maker bool) float64 {
	return priceCents * Rate(p, priceCents, maker)
}
