package engine

import (
	"testing"

	vecstream "github.com/mira-labs/vecstream"
)

func TestQueryEngineFilterMatchesNestedKey(t *testing.T) {
	store := newTestStore(t)
	store.Add("a", []float32{1, 0, 0}, map[string]any{"details": map[string]any{"brand": "acme"}})
	store.Add("b", []float32{0.9, 0.1, 0}, map[string]any{"details": map[string]any{"brand": "other"}})

	mgr := NewIndexManager(store, false, vecstream.DefaultHNSWParams(), 1)
	qe := NewQueryEngine(mgr, func(id string) (map[string]any, bool) {
		_, md, err := store.GetWithMetadata(id)
		if err != nil {
			return nil, false
		}
		return md, true
	})

	results, err := qe.Search([]float32{1, 0, 0}, 5, 0, map[string]any{"details.brand": "acme"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "a" {
		t.Errorf("expected only a to match filter, got %v", results)
	}
}

func TestQueryEngineFilterMissingKeyFails(t *testing.T) {
	store := newTestStore(t)
	store.Add("a", []float32{1, 0, 0}, map[string]any{"category": "electronics"})

	mgr := NewIndexManager(store, false, vecstream.DefaultHNSWParams(), 1)
	qe := NewQueryEngine(mgr, func(id string) (map[string]any, bool) {
		_, md, err := store.GetWithMetadata(id)
		if err != nil {
			return nil, false
		}
		return md, true
	})

	results, err := qe.Search([]float32{1, 0, 0}, 5, 0, map[string]any{"details.brand": "acme"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no matches when filter key is absent, got %v", results)
	}
}

func TestQueryEngineEmptyFilterMatchesEverything(t *testing.T) {
	store := newTestStore(t)
	store.Add("a", []float32{1, 0, 0}, nil)
	store.Add("b", []float32{0.9, 0.1, 0}, nil)

	mgr := NewIndexManager(store, false, vecstream.DefaultHNSWParams(), 1)
	qe := NewQueryEngine(mgr, func(id string) (map[string]any, bool) { return nil, true })

	results, err := qe.Search([]float32{1, 0, 0}, 5, 0, nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected both vectors with no filter, got %d", len(results))
	}
}

func TestMatchesFilterNoCoercion(t *testing.T) {
	metadata := map[string]any{"count": 5}
	if matchesFilter(metadata, map[string]any{"count": "5"}) {
		t.Error("expected no implicit coercion between int and string")
	}
	if !matchesFilter(metadata, map[string]any{"count": 5}) {
		t.Error("expected exact match to succeed")
	}
}

func TestMatchesFilterArrayLeafNeverMatches(t *testing.T) {
	metadata := map[string]any{"tags": []any{"a", "b"}}
	if matchesFilter(metadata, map[string]any{"tags": []any{"a", "b"}}) {
		t.Error("expected array-valued leaf to never match, per no-descent-into-arrays semantics")
	}
}
