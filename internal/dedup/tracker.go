package dedup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rickgao/baserate-arb/internal/store"
)

// Tracker records when each market was last researched.
type Tracker struct {
	mu       sync.Mutex
	last     map[string]time.Time
	cooldown time.Duration
	store    store.Store
	// version counts mutations; saved is the version last persisted.
	version uint64
	saved   uint64

	// flushMu orders saves so an older snapshot never overwrites a newer one.
	flushMu sync.Mutex
}

// NewTracker creates an empty tracker. Call Load to restore persisted state.
func NewTracker(st store.Store, cooldown time.Duration) *Tracker {
	return &Tracker{
		last:     make(map[string]time.Time),
		cooldown: cooldown,
		store:    st,
	}
}

// Load replaces in-memory state with the persisted record, if any.
func (t *Tracker) Load(ctx context.Context) error {
	state := make(map[string]time.Time)
	if _, err := t.store.Load(ctx, store.KeyDedup, &state); err != nil {
		return fmt.Errorf("load dedup state: %w", err)
	}
	if state == nil {
		state = make(map[string]time.Time)
	}
	t.mu.Lock()
	t.last = state
	t.saved = t.version
	t.mu.Unlock()
	return nil
}

// ShouldResearch reports whether id is outside its cooldown at now.
func (t *Tracker) ShouldResearch(id string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	last, ok := t.last[id]
	return !ok || now.Sub(last) >= t.cooldown
}

// MarkResearched records a research attempt for id at now.
func (t *Tracker) MarkResearched(id string, now time.Time) {
	t.mu.Lock()
	t.last[id] = now.UTC()
	t.version++
	t.mu.Unlock()
}

// LastResearched returns the last research time for id.
func (t *Tracker) LastResearched(id string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	last, ok := t.last[id]
	return last, ok
}

// Prune drops entries whose cooldown has expired at now and returns how many
// were removed.
func (t *Tracker) Prune(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for id, last := range t.last {
		if now.Sub(last) >= t.cooldown {
			delete(t.last, id)
			removed++
		}
	}
	if removed > 0 {
		t.version++
	}
	return removed
}

// Len returns the number of tracked markets.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.last)
}

// Flush persists state when it changed since the last Load or Flush.
// Concurrent flushes are serialized. State marked while a save is in flight
// stays dirty and is written by the next Flush.
func (t *Tracker) Flush(ctx context.Context) error {
	t.flushMu.Lock()
	defer t.flushMu.Unlock()

	t.mu.Lock()
	if t.version == t.saved {
		t.mu.Unlock()
		return nil
	}
	version := t.version
	state := make(map[string]time.Time, len(t.last))
	for id, ts := range t.last {
		state[id] = ts
	}
	t.mu.Unlock()

	if err := t.store.Save(ctx, store.KeyDedup, state); err != nil {
		return fmt.Errorf("save dedup state: %w", err)
	}

	t.mu.Lock()
	t.saved = version
	t.mu.Unlock()
	return nil
}
