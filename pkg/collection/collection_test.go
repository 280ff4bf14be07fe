package collection

import (
	"testing"

	vecstream "github.com/mira-labs/vecstream"
)

func TestCollectionSearchSimilarWithFilter(t *testing.T) {
	mgr := newTestManager(t)
	col, err := mgr.CreateCollection("products", Options{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	col.AddVector("p1", []float32{1, 0, 0}, map[string]any{"category": "electronics"})
	col.AddVector("p2", []float32{0.9, 0.1, 0}, map[string]any{"category": "books"})

	results, err := col.SearchSimilar([]float32{1, 0, 0}, 5, 0, map[string]any{"category": "electronics"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "p1" {
		t.Errorf("expected only p1 to match filter, got %v", results)
	}
}

func TestCollectionRemoveVector(t *testing.T) {
	mgr := newTestManager(t)
	col, _ := mgr.CreateCollection("products", Options{})

	col.AddVector("p1", []float32{1, 0, 0}, nil)
	col.AddVector("p2", []float32{0, 1, 0}, nil)

	if err := col.RemoveVector("p1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if col.VectorCount() != 1 {
		t.Errorf("expected 1 vector after remove, got %d", col.VectorCount())
	}

	_, _, err := col.GetVectorWithMetadata("p1")
	if err == nil {
		t.Error("expected error getting removed vector")
	}
}

func TestCollectionHNSWRoundTrip(t *testing.T) {
	mgr := newTestManager(t)
	useHNSW := true
	params := vecstream.HNSWParams{M: 8, EfConstruction: 50, Ml: 4}
	col, err := mgr.CreateCollection("products", Options{UseHNSW: &useHNSW, HNSWParams: &params})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for i := 0; i < 20; i++ {
		v := []float32{float32(i), float32(i % 3), 0}
		col.AddVector(string(rune('a'+i)), v, nil)
	}

	results, err := col.SearchSimilar([]float32{0, 0, 0}, 3, 0, nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
}
