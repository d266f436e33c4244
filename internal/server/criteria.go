package server

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/rickgao/baserate-arb/internal/model"
	"github.com/rickgao/baserate-arb/internal/rank"
)

// criteriaFromQuery parses filter criteria from query parameters. Platforms
// and categories accept repeated or comma-separated values.
func criteriaFromQuery(q url.Values) (rank.Criteria, error) {
	var c rank.Criteria

	floats := []struct {
		key string
		dst *float64
	}{
		{"min_edge", &c.MinEdge},
		{"min_ev", &c.MinEV},
		{"min_edge_ratio", &c.MinEdgeRatio},
		{"min_confidence", &c.MinConfidence},
		{"min_kelly", &c.MinKelly},
		{"max_kelly", &c.MaxKelly},
		{"min_fair", &c.MinFair},
		{"max_fair", &c.MaxFair},
	}
	for _, f := range floats {
		v := q.Get(f.key)
		if v == "" {
			continue
		}
		x, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
			return rank.Criteria{}, fmt.Errorf("%w: %s=%q is not a number", errBadRequest, f.key, v)
		}
		*f.dst = x
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"min_quantity", &c.MinQuantity},
		{"limit", &c.Limit},
	}
	for _, f := range ints {
		v := q.Get(f.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return rank.Criteria{}, fmt.Errorf("%w: %s=%q is not a non-negative integer", errBadRequest, f.key, v)
		}
		*f.dst = n
	}

	for _, v := range splitValues(q["platform"]) {
		p, err := model.ParsePlatform(v)
		if err != nil {
			return rank.Criteria{}, fmt.Errorf("%w: %w", errBadRequest, err)
		}
		c.Platforms = append(c.Platforms, p)
	}
	c.Categories = splitValues(q["category"])
	return c, nil
}

func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
