// Package store persists pipeline state as JSON documents addressed by key.
//
// Every Save replaces the whole document under its key atomically; there are
// no cross-key transactions. Backends: in-memory, local files, PostgreSQL
// (pgx) and Redis (go-redis).
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidKey is returned for empty keys.
var ErrInvalidKey = errors.New("invalid key")

// Store is a key/value document store.
type Store interface {
	// Load decodes the document under key into dst. It reports false with a nil
	// error when the key does not exist.
	Load(ctx context.Context, key string, dst any) (bool, error)

	// Save encodes v and replaces the document under key.
	Save(ctx context.Context, key string, v any) error

	// Close releases backend resources.
	Close() error
}

// Well-known keys.
const (
	KeyMarketIndex = "market/_index"
	KeyLedger      = "ledger/account"
	KeyDedup       = "research/dedup"
	KeyLastReport  = "report/last"
)

// MarketKey returns the key of a market snapshot.
func MarketKey(id string) string { return "market/" + id }

// BaseRateKey returns the key of a market's current base rate.
func BaseRateKey(id string) string { return "baserate/" + id }

// BaseRateHistoryKey returns the key of a market's superseded base rates.
func BaseRateHistoryKey(id string) string { return "baserate/" + id + "/history" }

func encode(key string, v any) ([]byte, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", key, err)
	}
	return data, nil
}

func decode(key string, data []byte, dst any) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
