package dedup

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rickgao/baserate-arb/internal/store"
)

var t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func TestTrackerCooldown(t *testing.T) {
	tr := NewTracker(store.NewMemory(), 24*time.Hour)

	if !tr.ShouldResearch("M1", t0) {
		t.Fatal("unseen market should be researchable")
	}
	tr.MarkResearched("M1", t0)

	tests := []struct {
		at   time.Time
		want bool
	}{
		{t0.Add(time.Hour), false},
		{t0.Add(24*time.Hour - time.Second), false},
		{t0.Add(24 * time.Hour), true},
		{t0.Add(48 * time.Hour), true},
	}
	for _, tt := range tests {
		if got := tr.ShouldResearch("M1", tt.at); got != tt.want {
			t.Errorf("ShouldResearch at %v = %v, want %v", tt.at, got, tt.want)
		}
	}
}

func TestTrackerFlushAndLoad(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()

	tr := NewTracker(st, time.Hour)
	tr.MarkResearched("M1", t0)
	tr.MarkResearched("M2", t0.Add(time.Minute))
	if err := tr.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	restored := NewTracker(st, time.Hour)
	if err := restored.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if restored.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", restored.Len())
	}
	if last, ok := restored.LastResearched("M2"); !ok || !last.Equal(t0.Add(time.Minute)) {
		t.Errorf("LastResearched(M2) = %v, %v", last, ok)
	}
	if restored.ShouldResearch("M1", t0.Add(30*time.Minute)) {
		t.Error("restored tracker lost the cooldown")
	}
}

func TestTrackerLoadEmpty(t *testing.T) {
	tr := NewTracker(store.NewMemory(), time.Hour)
	if err := tr.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if tr.Len() != 0 {
		t.Errorf("Len() = %d, want 0", tr.Len())
	}
}

func TestTrackerLoadNull(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	if err := st.Save(ctx, store.KeyDedup, nil); err != nil {
		t.Fatal(err)
	}

	tr := NewTracker(st, time.Hour)
	if err := tr.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	tr.MarkResearched("M1", t0)
	if tr.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tr.Len())
	}
}

// blockingStore holds the first Save until release is closed.
type blockingStore struct {
	*store.Memory
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (s *blockingStore) Save(ctx context.Context, key string, v any) error {
	first := false
	s.once.Do(func() { first = true })
	if first {
		close(s.entered)
		<-s.release
	}
	return s.Memory.Save(ctx, key, v)
}

func TestTrackerConcurrentFlush(t *testing.T) {
	ctx := context.Background()
	st := &blockingStore{
		Memory:  store.NewMemory(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	tr := NewTracker(st, time.Hour)
	tr.MarkResearched("A", t0)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs <- tr.Flush(ctx)
	}()
	<-st.entered

	// Marked while the first save holds an older snapshot.
	tr.MarkResearched("X", t0)
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs <- tr.Flush(ctx)
	}()
	close(st.release)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Flush() error = %v", err)
		}
	}

	restored := NewTracker(st, time.Hour)
	if err := restored.Load(ctx); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"A", "X"} {
		if _, ok := restored.LastResearched(id); !ok {
			t.Errorf("%s missing after reload", id)
		}
	}
}

func TestTrackerFlushUnchanged(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	tr := NewTracker(st, time.Hour)
	if err := tr.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	if st.Len() != 0 {
		t.Errorf("clean tracker wrote %d documents", st.Len())
	}

	tr.MarkResearched("M1", t0)
	if err := tr.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	if st.Len() != 1 {
		t.Errorf("documents = %d, want 1", st.Len())
	}
}

func TestTrackerPrune(t *testing.T) {
	tr := NewTracker(store.NewMemory(), time.Hour)
	tr.MarkResearched("old", t0)
	tr.MarkResearched("new", t0.Add(50*time.Minute))

	if n := tr.Prune(t0.Add(time.Hour)); n != 1 {
		t.Errorf("Prune() = %d, want 1", n)
	}
	if _, ok := tr.LastResearched("old"); ok {
		t.Error("expired entry survived Prune")
	}
}

func TestBudget(t *testing.T) {
	b := NewBudget(3)
	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.Take() {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if granted != 3 || b.Used() != 3 || b.Remaining() != 0 {
		t.Errorf("granted %d used %d remaining %d, want 3/3/0", granted, b.Used(), b.Remaining())
	}
	b.Release()
	if b.Used() != 2 || !b.Take() || b.Take() {
		t.Errorf("after Release: used %d, want one more unit", b.Used())
	}
	if NewBudget(0).Take() {
		t.Error("zero budget granted a call")
	}
}
