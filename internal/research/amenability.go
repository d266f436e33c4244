package research

import (
	"regexp"
	"slices"
	"strings"

	"github.com/rickgao/baserate-arb/internal/model"
)

// Class ranks how well a market suits base-rate analysis.
type Class string

const (
	ClassExcellent Class = "excellent"
	ClassGood      Class = "good"
	ClassMarginal  Class = "marginal"
	ClassPoor      Class = "poor"
)

// Classification is the amenability verdict for one market.
type Classification struct {
	MarketID string   `json:"market_id"`
	Class    Class    `json:"class"`
	Score    float64  `json:"score"` // 0-1, higher is more amenable
	Strategy string   `json:"strategy,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
}

// Recurring events with a clear historical frequency.
var excellentKeywords = []string{
	"temperature", "rain", "snow", "precipitation", "weather",
	"high temp", "low temp", "degrees",
	"win", "score", "points", "touchdown", "home run",
	"championship", "playoff", "super bowl", "nba finals",
	"jobs report", "unemployment", "gdp", "inflation", "cpi",
	"fed rate", "interest rate", "fomc",
	"spx", "s&p 500", "dow", "nasdaq", "close above", "close below",
	"up or down",
	"state of the union", "press conference", "briefing",
	"mention", "say the word",
}

// Events estimable from similar past events.
var goodKeywords = []string{
	"election", "win the", "electoral", "popular vote",
	"primary", "nomination",
	"earnings", "revenue", "guidance", "layoffs",
	"oscar", "grammy", "emmy", "golden globe", "best picture",
	"ruling", "verdict", "approve", "reject", "conviction",
}

// One-off, contingent, very long horizon or vague markets.
var poorKeywords = []string{
	"invade", "war with", "nuclear", "assassinate",
	"before gta", "before cyberpunk", "before starfield",
	"if trump", "if biden", "conditional on",
	"by 2030", "by 2040", "by 2050", "ever",
	"significant", "major", "substantial", "noticeable",
}

type strategyPattern struct {
	name     string
	patterns []*regexp.Regexp
}

var strategies = []strategyPattern{
	{"weather", compile(`temp.*\d+.*[°f]`, `rain\s+in`, `snow\s+in`, `precipitation`)},
	{"stock", compile(`sp.*up\s+or\s+down`, `close\s+(above|below)`, `end\s+(higher|lower)`, `(nasdaq|dow|s&p).*close`)},
	{"mention", compile(`say\s+(the\s+word|")`, `mention\s+"`, `(press conference|speech|address).*say`)},
	{"sports", compile(`(win|beat|defeat)`, `(score|points)\s+(over|under)`, `(championship|finals|super bowl)`)},
}

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

func matched(text string, keywords []string) []string {
	var out []string
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			out = append(out, kw)
		}
	}
	return out
}

// Classify scores a market's title and resolution criteria. Any poor keyword
// disqualifies the market outright.
func Classify(m model.Market) Classification {
	text := strings.ToLower(m.Title + " " + m.ResolutionCriteria)
	c := Classification{MarketID: m.ID}

	if poor := matched(text, poorKeywords); len(poor) > 0 {
		c.Class = ClassPoor
		c.Score = 0.1
		c.Keywords = poor
		return c
	}

	excellent := matched(text, excellentKeywords)
	good := matched(text, goodKeywords)

	for _, s := range strategies {
		if slices.ContainsFunc(s.patterns, func(re *regexp.Regexp) bool { return re.MatchString(text) }) {
			c.Strategy = s.name
			break
		}
	}

	score := 0.5 + float64(len(excellent))*0.15 + float64(len(good))*0.08
	if c.Strategy != "" {
		score += 0.2
	}
	switch {
	case strings.Contains(text, "tomorrow") || strings.Contains(text, "today"):
		score += 0.1
	case strings.Contains(text, "this week"):
		score += 0.05
	case strings.Contains(text, "2030") || strings.Contains(text, "2040"):
		score -= 0.2
	}
	c.Score = min(1, max(0, score))

	switch {
	case c.Score >= 0.7:
		c.Class = ClassExcellent
	case c.Score >= 0.5:
		c.Class = ClassGood
	case c.Score >= 0.3:
		c.Class = ClassMarginal
	default:
		c.Class = ClassPoor
	}
	c.Keywords = append(excellent, good...)
	return c
}

// Prioritize orders markets by descending amenability score, breaking ties
// by ID. The input is not modified.
func Prioritize(markets []model.Market) []model.Market {
	type scored struct {
		m     model.Market
		score float64
	}
	tmp := make([]scored, len(markets))
	for i, m := range markets {
		tmp[i] = scored{m, Classify(m).Score}
	}
	slices.SortStableFunc(tmp, func(a, b scored) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		default:
			return strings.Compare(a.m.ID, b.m.ID)
		}
	})
	out := make([]model.Market, len(tmp))
	for i, s := range tmp {
		out[i] = s.m
	}
	return out
}
