// Package model defines shared data types used across the base-rate pipeline.
//
// Conventions:
//   - Prices: float64 cents (0-100 = $0.00-$1.00), probability-equivalent
//   - Probabilities: float64 in [0, 1]
//   - Money: shopspring/decimal dollars
//   - Timestamps: time.Time in UTC
//   - IDs: venue-native string for markets, uuid.UUID for positions
package model
