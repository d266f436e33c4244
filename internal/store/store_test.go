package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rickgao/baserate-arb/internal/config"
)

type doc struct {
	Name  string    `json:"name"`
	Count int       `json:"count"`
	At    time.Time `json:"at"`
}

// exerciseStore runs the shared contract against a backend.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	var got doc
	found, err := s.Load(ctx, "missing", &got)
	if err != nil || found {
		t.Fatalf("Load(missing) = %v, %v; want false, nil", found, err)
	}

	want := doc{Name: "a/b", Count: 3, At: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
	if err := s.Save(ctx, "market/KX-1", want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	found, err = s.Load(ctx, "market/KX-1", &got)
	if err != nil || !found {
		t.Fatalf("Load() = %v, %v; want true, nil", found, err)
	}
	if got.Name != want.Name || got.Count != want.Count || !got.At.Equal(want.At) {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}

	want.Count = 4
	if err := s.Save(ctx, "market/KX-1", want); err != nil {
		t.Fatalf("overwrite Save() error = %v", err)
	}
	if _, err := s.Load(ctx, "market/KX-1", &got); err != nil || got.Count != 4 {
		t.Errorf("after overwrite Count = %d, err = %v", got.Count, err)
	}

	if err := s.Save(ctx, "", want); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Save(\"\") error = %v, want ErrInvalidKey", err)
	}
	if _, err := s.Load(ctx, "", &got); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Load(\"\") error = %v, want ErrInvalidKey", err)
	}
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestMemoryIsolation(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	values := []int{1, 2}
	if err := m.Save(ctx, "k", values); err != nil {
		t.Fatal(err)
	}
	values[0] = 99

	var got []int
	if _, err := m.Load(ctx, "k", &got); err != nil {
		t.Fatal(err)
	}
	if got[0] != 1 {
		t.Errorf("stored value aliased caller memory: %v", got)
	}
}

func TestFile(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile(dir)
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}
	exerciseStore(t, f)

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".json" {
			t.Errorf("leftover file %q", e.Name())
		}
	}
}

func TestFileCorruptDocument(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(f.path("bad"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	var got doc
	if _, err := f.Load(context.Background(), "bad", &got); err == nil {
		t.Error("Load() of corrupt document should fail")
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.StoreConfig{Backend: "memory"})
	if err != nil {
		t.Fatalf("Open(memory) error = %v", err)
	}
	if _, ok := s.(*Memory); !ok {
		t.Errorf("Open(memory) = %T", s)
	}

	s, err = Open(ctx, config.StoreConfig{Backend: "file", Path: t.TempDir()})
	if err != nil {
		t.Fatalf("Open(file) error = %v", err)
	}
	if _, ok := s.(*File); !ok {
		t.Errorf("Open(file) = %T", s)
	}

	if _, err := Open(ctx, config.StoreConfig{Backend: "etcd"}); err == nil {
		t.Error("Open(etcd) should fail")
	}
}

func TestKeys(t *testing.T) {
	if MarketKey("X") != "market/X" || BaseRateKey("X") != "baserate/X" || BaseRateHistoryKey("X") != "baserate/X/history" {
		t.Error("unexpected key layout")
	}
}
