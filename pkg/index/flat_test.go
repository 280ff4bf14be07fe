package index

import "testing"

func TestFlatIndexInsertAndSearch(t *testing.T) {
	f := NewFlatIndex()

	vectors := []struct {
		id  string
		vec []float32
	}{
		{"vec1", []float32{1.0, 0.0, 0.0, 0.0}},
		{"vec2", []float32{0.0, 1.0, 0.0, 0.0}},
		{"vec3", []float32{0.0, 0.0, 1.0, 0.0}},
		{"vec4", []float32{0.9, 0.1, 0.0, 0.0}},
	}
	for _, v := range vectors {
		if err := f.Insert(v.id, v.vec); err != nil {
			t.Fatalf("insert %s: %v", v.id, err)
		}
	}

	if f.Len() != 4 {
		t.Fatalf("expected len 4, got %d", f.Len())
	}

	results, err := f.Search([]float32{1.0, 0.0, 0.0, 0.0}, 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "vec1" {
		t.Errorf("expected closest result vec1, got %s", results[0].ID)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Similarity > results[i-1].Similarity {
			t.Error("results not sorted descending by similarity")
		}
	}
}

func TestFlatIndexDimensionMismatch(t *testing.T) {
	f := NewFlatIndex()
	if err := f.Insert("a", []float32{1, 2, 3}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := f.Insert("b", []float32{1, 2}); err != ErrDimensionMismatch {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestFlatIndexReinsertOverwrites(t *testing.T) {
	f := NewFlatIndex()
	if err := f.Insert("a", []float32{1, 0, 0}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := f.Insert("a", []float32{0, 1, 0}); err != nil {
		t.Fatalf("reinsert: %v", err)
	}
	if f.Len() != 1 {
		t.Fatalf("expected len 1 after reinsert, got %d", f.Len())
	}
	v, ok := f.GetVector("a")
	if !ok || v[1] != 1 {
		t.Errorf("expected overwritten vector [0 1 0], got %v", v)
	}
}

func TestFlatIndexDelete(t *testing.T) {
	f := NewFlatIndex()
	f.Insert("a", []float32{1, 0})
	if err := f.Delete("a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := f.Delete("a"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound on double delete, got %v", err)
	}
	if f.Len() != 0 {
		t.Errorf("expected empty index after delete, got len %d", f.Len())
	}
}

func TestFlatIndexEmptySearch(t *testing.T) {
	f := NewFlatIndex()
	results, err := f.Search([]float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results from empty index, got %d", len(results))
	}
}
