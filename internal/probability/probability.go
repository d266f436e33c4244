// Package probability converts researched base rates into fair probabilities
// over a time horizon.
//
// For time-based units the probability of at least one occurrence over the
// horizon compounds as P = 1 - (1 - rate)^periods, where periods is the
// horizon expressed in the rate's unit.
package probability

import (
	"errors"
	"fmt"
	"math"

	"github.com/rickgao/baserate-arb/internal/model"
)

// ErrInvalidBaseRate is returned for rates that cannot produce a probability.
var ErrInvalidBaseRate = errors.New("invalid base rate")

// Days per unit. A year is 365 days and a month 30.
var unitDays = map[model.Unit]float64{
	model.UnitPerYear:  365,
	model.UnitPerMonth: 30,
	model.UnitPerWeek:  7,
	model.UnitPerDay:   1,
}

// Validate checks that a base rate is usable.
func Validate(r model.BaseRate) error {
	if math.IsNaN(r.Rate) || math.IsInf(r.Rate, 0) {
		return fmt.Errorf("%w: rate %v is not finite", ErrInvalidBaseRate, r.Rate)
	}
	if r.Rate < 0 {
		return fmt.Errorf("%w: rate %v is negative", ErrInvalidBaseRate, r.Rate)
	}
	switch r.Unit {
	case model.UnitAbsolute:
	case model.UnitPerEvent:
		if !(r.EventsPerPeriod > 0) || math.IsInf(r.EventsPerPeriod, 0) {
			return fmt.Errorf("%w: per_event requires events_per_period > 0, got %v", ErrInvalidBaseRate, r.EventsPerPeriod)
		}
	default:
		if _, ok := unitDays[r.Unit]; !ok {
			return fmt.Errorf("%w: unknown unit %q", ErrInvalidBaseRate, r.Unit)
		}
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v outside [0, 1]", ErrInvalidBaseRate, r.Confidence)
	}
	return nil
}

// Periods converts a horizon in days into periods of the rate's unit.
// Absolute rates have no periods and return 0.
func Periods(r model.BaseRate, daysRemaining float64) (float64, error) {
	if err := Validate(r); err != nil {
		return 0, err
	}
	switch r.Unit {
	case model.UnitAbsolute:
		return 0, nil
	case model.UnitPerEvent:
		return daysRemaining / 365 * r.EventsPerPeriod, nil
	default:
		return daysRemaining / unitDays[r.Unit], nil
	}
}

// FairProbability returns the probability of at least one occurrence within
// periodsRemaining periods of the rate's unit. The result is in [0, 1] and
// non-decreasing in periodsRemaining.
func FairProbability(r model.BaseRate, periodsRemaining float64) (float64, error) {
	if err := Validate(r); err != nil {
		return 0, err
	}
	if math.IsNaN(periodsRemaining) {
		return 0, fmt.Errorf("%w: periods is NaN", ErrInvalidBaseRate)
	}
	if r.Unit == model.UnitAbsolute {
		return clamp01(r.Rate), nil
	}
	if periodsRemaining <= 0 {
		return 0, nil
	}
	if r.Rate >= 1 {
		return 1, nil
	}
	return clamp01(1 - math.Pow(1-r.Rate, periodsRemaining)), nil
}

// AtHorizon returns the fair probability over daysRemaining days.
func AtHorizon(r model.BaseRate, daysRemaining float64) (float64, error) {
	periods, err := Periods(r, daysRemaining)
	if err != nil {
		return 0, err
	}
	return FairProbability(r, periods)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
