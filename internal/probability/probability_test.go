package probability

import (
	"errors"
	"math"
	"testing"

	"github.com/rickgao/baserate-arb/internal/model"
)

func TestAtHorizon(t *testing.T) {
	tests := []struct {
		name string
		rate model.BaseRate
		days float64
		want float64
	}{
		{"per year over 200 days", model.BaseRate{Rate: 0.02, Unit: model.UnitPerYear}, 200, 0.0110},
		{"per month one month", model.BaseRate{Rate: 0.1, Unit: model.UnitPerMonth}, 30, 0.1},
		{"per week two weeks", model.BaseRate{Rate: 0.5, Unit: model.UnitPerWeek}, 14, 0.75},
		{"per day", model.BaseRate{Rate: 0.1, Unit: model.UnitPerDay}, 2, 0.19},
		{"per event", model.BaseRate{Rate: 0.5, Unit: model.UnitPerEvent, EventsPerPeriod: 2}, 365, 0.75},
		{"absolute ignores horizon", model.BaseRate{Rate: 0.37, Unit: model.UnitAbsolute}, 1000, 0.37},
		{"absolute clamps", model.BaseRate{Rate: 1.4, Unit: model.UnitAbsolute}, 10, 1},
		{"rate at one", model.BaseRate{Rate: 1, Unit: model.UnitPerYear}, 10, 1},
		{"rate above one", model.BaseRate{Rate: 3, Unit: model.UnitPerDay}, 10, 1},
		{"zero horizon", model.BaseRate{Rate: 0.5, Unit: model.UnitPerYear}, 0, 0},
		{"past resolution", model.BaseRate{Rate: 0.5, Unit: model.UnitPerYear}, -5, 0},
		{"zero rate", model.BaseRate{Rate: 0, Unit: model.UnitPerYear}, 100, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AtHorizon(tt.rate, tt.days)
			if err != nil {
				t.Fatalf("AtHorizon() error = %v", err)
			}
			if math.Abs(got-tt.want) > 1e-4 {
				t.Errorf("AtHorizon() = %.6f, want %.4f", got, tt.want)
			}
		})
	}
}

func TestFairProbabilityMonotonic(t *testing.T) {
	for _, rate := range []float64{0, 0.001, 0.05, 0.5, 0.99} {
		r := model.BaseRate{Rate: rate, Unit: model.UnitPerYear}
		prev := -1.0
		for periods := 0.0; periods <= 20; periods += 0.25 {
			p, err := FairProbability(r, periods)
			if err != nil {
				t.Fatalf("FairProbability(%v, %v) error = %v", rate, periods, err)
			}
			if p < 0 || p > 1 {
				t.Fatalf("FairProbability(%v, %v) = %v outside [0, 1]", rate, periods, p)
			}
			if p < prev {
				t.Fatalf("FairProbability(%v) decreased at %v: %v < %v", rate, periods, p, prev)
			}
			prev = p
		}
	}
}

func TestFairProbabilityMonotonicInRate(t *testing.T) {
	units := []model.BaseRate{
		{Unit: model.UnitPerYear},
		{Unit: model.UnitPerMonth},
		{Unit: model.UnitPerEvent, EventsPerPeriod: 4},
		{Unit: model.UnitAbsolute},
	}
	for _, base := range units {
		for _, periods := range []float64{0, 0.1, 0.5, 1, 3, 12, 100} {
			prev := -1.0
			for rate := 0.0; rate < 1; rate += 0.01 {
				r := base
				r.Rate = rate
				p, err := FairProbability(r, periods)
				if err != nil {
					t.Fatalf("FairProbability(%s, %v, %v) error = %v", r.Unit, rate, periods, err)
				}
				if p < 0 || p > 1 {
					t.Fatalf("FairProbability(%s, %v, %v) = %v outside [0, 1]", r.Unit, rate, periods, p)
				}
				if p < prev {
					t.Fatalf("FairProbability(%s) at periods %v decreased at rate %v: %v < %v", r.Unit, periods, rate, p, prev)
				}
				prev = p
			}
		}
	}
}

func TestFairProbabilityAbsolute(t *testing.T) {
	for _, rate := range []float64{0, 0.2, 0.73, 1} {
		r := model.BaseRate{Rate: rate, Unit: model.UnitAbsolute}
		for _, periods := range []float64{-3, 0, 0.5, 1, 10, 1e6} {
			p, err := FairProbability(r, periods)
			if err != nil {
				t.Fatalf("FairProbability(%v, %v) error = %v", rate, periods, err)
			}
			if p != rate {
				t.Errorf("FairProbability(absolute %v, %v) = %v, want the rate itself", rate, periods, p)
			}
		}
	}
}

func TestInvalidBaseRate(t *testing.T) {
	tests := []struct {
		name string
		rate model.BaseRate
	}{
		{"negative", model.BaseRate{Rate: -0.1, Unit: model.UnitPerYear}},
		{"nan", model.BaseRate{Rate: math.NaN(), Unit: model.UnitPerYear}},
		{"unknown unit", model.BaseRate{Rate: 0.1, Unit: "per_decade"}},
		{"per event without events", model.BaseRate{Rate: 0.1, Unit: model.UnitPerEvent}},
		{"per event negative events", model.BaseRate{Rate: 0.1, Unit: model.UnitPerEvent, EventsPerPeriod: -1}},
		{"confidence above one", model.BaseRate{Rate: 0.1, Unit: model.UnitPerYear, Confidence: 1.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := AtHorizon(tt.rate, 30); !errors.Is(err, ErrInvalidBaseRate) {
				t.Errorf("AtHorizon() error = %v, want ErrInvalidBaseRate", err)
			}
		})
	}
}

func TestPeriods(t *testing.T) {
	got, err := Periods(model.BaseRate{Rate: 0.1, Unit: model.UnitPerEvent, EventsPerPeriod: 4}, 73)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-0.8) > 1e-9 {
		t.Errorf("Periods() = %v, want 0.8", got)
	}
}
