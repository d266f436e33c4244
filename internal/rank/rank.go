// Package rank filters and orders opportunity analyses.
package rank

import (
	"cmp"
	"slices"
	"strings"

	"github.com/rickgao/baserate-arb/internal/model"
)

// Criteria are conjunctive predicates. Zero values disable a predicate, so
// the zero Criteria keeps every actionable analysis.
type Criteria struct {
	MinEdge       float64          `json:"min_edge" yaml:"min_edge"` // percentage points
	MinEV         float64          `json:"min_ev" yaml:"min_ev"`
	MinEdgeRatio  float64          `json:"min_edge_ratio" yaml:"min_edge_ratio"`
	MinConfidence float64          `json:"min_confidence" yaml:"min_confidence"`
	MinKelly      float64          `json:"min_kelly" yaml:"min_kelly"`
	MaxKelly      float64          `json:"max_kelly" yaml:"max_kelly"`
	MinFair       float64          `json:"min_fair" yaml:"min_fair"`
	MaxFair       float64          `json:"max_fair" yaml:"max_fair"`
	MinQuantity   int              `json:"min_quantity" yaml:"min_quantity"` // only applied to book-derived fills
	Platforms     []model.Platform `json:"platforms,omitempty" yaml:"platforms"`
	Categories    []string         `json:"categories,omitempty" yaml:"categories"` // case-insensitive substrings
	Limit         int              `json:"limit,omitempty" yaml:"limit"`
}

// Match reports whether a satisfies every enabled predicate. Analyses without
// a side or a positive fill price never match.
func (c Criteria) Match(a model.OpportunityAnalysis) bool {
	if !a.Actionable() {
		return false
	}
	if a.Edge < c.MinEdge || a.ExpectedValue < c.MinEV || a.EdgeRatio < c.MinEdgeRatio {
		return false
	}
	if a.Confidence < c.MinConfidence {
		return false
	}
	if a.KellyFraction < c.MinKelly || (c.MaxKelly > 0 && a.KellyFraction > c.MaxKelly) {
		return false
	}
	if a.FairProbability < c.MinFair || (c.MaxFair > 0 && a.FairProbability > c.MaxFair) {
		return false
	}
	if c.MinQuantity > 0 && a.FillFromBook && a.FillQuantity < c.MinQuantity {
		return false
	}
	if len(c.Platforms) > 0 && !slices.Contains(c.Platforms, a.Platform) {
		return false
	}
	if len(c.Categories) > 0 && !matchesCategory(a.Category, c.Categories) {
		return false
	}
	return true
}

func matchesCategory(category string, wanted []string) bool {
	category = strings.ToLower(category)
	for _, w := range wanted {
		if strings.Contains(category, strings.ToLower(w)) {
			return true
		}
	}
	return false
}

// FilterAndRank returns the analyses matching c ordered by expected value
// descending, then edge descending, then market id ascending. The input slice
// is not modified.
func FilterAndRank(opps []model.OpportunityAnalysis, c Criteria) []model.OpportunityAnalysis {
	out := make([]model.OpportunityAnalysis, 0, len(opps))
	for _, a := range opps {
		if c.Match(a) {
			out = append(out, a)
		}
	}
	slices.SortStableFunc(out, Compare)
	if c.Limit > 0 && len(out) > c.Limit {
		out = out[:c.Limit]
	}
	return out
}

// Compare orders analyses for ranking.
func Compare(a, b model.OpportunityAnalysis) int {
	if c := cmp.Compare(b.ExpectedValue, a.ExpectedValue); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Edge, a.Edge); c != 0 {
		return c
	}
	if c := cmp.Compare(a.MarketID, b.MarketID); c != 0 {
		return c
	}
	return cmp.Compare(a.Side, b.Side)
}

// Summary aggregates a set of analyses.
type Summary struct {
	Count         int                    `json:"count"`
	AvgEdge       float64                `json:"avg_edge"`
	MaxEdge       float64                `json:"max_edge"`
	AvgEV         float64                `json:"avg_ev"`
	MaxEV         float64                `json:"max_ev"`
	AvgKelly      float64                `json:"avg_kelly"`
	ByPlatform    map[model.Platform]int `json:"by_platform"`
	YesCount      int                    `json:"yes_count"`
	NoCount       int                    `json:"no_count"`
	FromBookCount int                    `json:"from_book_count"`
}

// Summarize computes summary statistics.
func Summarize(opps []model.OpportunityAnalysis) Summary {
	s := Summary{Count: len(opps), ByPlatform: make(map[model.Platform]int)}
	if len(opps) == 0 {
		return s
	}
	var edge, ev, kelly float64
	for i, a := range opps {
		edge += a.Edge
		ev += a.ExpectedValue
		kelly += a.KellyFraction
		if i == 0 || a.Edge > s.MaxEdge {
			s.MaxEdge = a.Edge
		}
		if i == 0 || a.ExpectedValue > s.MaxEV {
			s.MaxEV = a.ExpectedValue
		}
		s.ByPlatform[a.Platform]++
		switch a.Side {
		case model.SideYes:
			s.YesCount++
		case model.SideNo:
			s.NoCount++
		}
		if a.FillFromBook {
			s.FromBookCount++
		}
	}
	n := float64(len(opps))
	s.AvgEdge = edge / n
	s.AvgEV = ev / n
	s.AvgKelly = kelly / n
	return s
}
