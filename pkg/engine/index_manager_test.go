package engine

import (
	"testing"

	vecstream "github.com/mira-labs/vecstream"
)

func newTestStore(t *testing.T) *vecstream.BinaryStore {
	t.Helper()
	store, err := vecstream.NewBinaryStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestIndexManagerFlatSearch(t *testing.T) {
	store := newTestStore(t)
	store.Add("a", []float32{1, 0, 0}, nil)
	store.Add("b", []float32{0, 1, 0}, nil)
	store.Add("c", []float32{0.9, 0.1, 0}, nil)

	mgr := NewIndexManager(store, false, vecstream.DefaultHNSWParams(), 1)

	results, err := mgr.Search([]float32{1, 0, 0}, 2, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "a" {
		t.Errorf("expected closest result a, got %s", results[0].ID)
	}
}

func TestIndexManagerHNSWSearchAndSync(t *testing.T) {
	store := newTestStore(t)
	store.Add("a", []float32{1, 0, 0}, nil)
	store.Add("b", []float32{0, 1, 0}, nil)
	store.Add("c", []float32{0.9, 0.1, 0}, nil)

	mgr := NewIndexManager(store, true, vecstream.HNSWParams{M: 8, EfConstruction: 50, Ml: 4}, 1)

	results, err := mgr.Search([]float32{1, 0, 0}, 2, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if mgr.Len() != 3 {
		t.Fatalf("expected hnsw to hold 3 vectors after sync, got %d", mgr.Len())
	}

	store.Remove("a")
	mgr.NotifyRemoved("a")
	if err := mgr.Update(); err != nil {
		t.Fatalf("update: %v", err)
	}
	if mgr.Len() != 2 {
		t.Errorf("expected hnsw to drop to 2 vectors after removal, got %d", mgr.Len())
	}

	results, err = mgr.Search([]float32{1, 0, 0}, 5, 0)
	if err != nil {
		t.Fatalf("search after removal: %v", err)
	}
	for _, r := range results {
		if r.ID == "a" {
			t.Errorf("removed id %q still returned by search", "a")
		}
	}
}

func TestIndexManagerThreshold(t *testing.T) {
	store := newTestStore(t)
	store.Add("a", []float32{1, 0, 0}, nil)
	store.Add("b", []float32{-1, 0, 0}, nil)

	mgr := NewIndexManager(store, false, vecstream.DefaultHNSWParams(), 1)

	results, err := mgr.Search([]float32{1, 0, 0}, 5, 0.5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "a" {
		t.Errorf("expected only a above threshold 0.5, got %v", results)
	}
}
