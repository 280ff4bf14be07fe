package vecstream

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBinaryStoreSaveAndReloadWithMetadata(t *testing.T) {
	dir := t.TempDir()

	s1, err := NewBinaryStore(dir, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := s1.Add("a", []float32{1, 2, 3}, map[string]any{"category": "books"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	s2, err := NewBinaryStore(dir, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	v, md, err := s2.GetWithMetadata("a")
	if err != nil {
		t.Fatalf("get after reload: %v", err)
	}
	if v[0] != 1 || v[1] != 2 || v[2] != 3 {
		t.Errorf("unexpected reloaded vector: %v", v)
	}
	if md["category"] != "books" {
		t.Errorf("expected metadata to survive reload, got %v", md)
	}
}

func TestBinaryStoreRemoveClearsMetadata(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewBinaryStore(dir, nil)
	s.Add("a", []float32{1, 2, 3}, map[string]any{"x": 1})

	if err := s.Remove("a"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	s2, _ := NewBinaryStore(dir, nil)
	if s2.Len() != 0 {
		t.Errorf("expected 0 vectors after removal reload, got %d", s2.Len())
	}
	if _, _, err := s2.GetWithMetadata("a"); err == nil {
		t.Error("expected error getting removed vector's metadata")
	}
}

func TestBinaryStoreCorruptMetadataDegradesToEmpty(t *testing.T) {
	dir := t.TempDir()
	s1, _ := NewBinaryStore(dir, nil)
	s1.Add("a", []float32{1, 2, 3}, nil)

	if err := os.WriteFile(filepath.Join(dir, metadataFileName), []byte("not json"), 0o644); err != nil {
		t.Fatalf("write corrupt metadata: %v", err)
	}

	s2, err := NewBinaryStore(dir, NopLogger())
	if err != nil {
		t.Fatalf("expected construction to succeed despite corrupt metadata, got %v", err)
	}
	if s2.Len() != 0 {
		t.Errorf("expected empty store after corrupt metadata load, got %d entries", s2.Len())
	}
}

func TestBinaryStoreSizesReflectFiles(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewBinaryStore(dir, nil)

	vecSize, metaSize := s.Sizes()
	if vecSize != 0 || metaSize != 0 {
		t.Errorf("expected zero sizes before any write, got vec=%d meta=%d", vecSize, metaSize)
	}

	s.Add("a", []float32{1, 2, 3}, map[string]any{"k": "v"})

	vecSize, metaSize = s.Sizes()
	if vecSize == 0 || metaSize == 0 {
		t.Errorf("expected nonzero sizes after write, got vec=%d meta=%d", vecSize, metaSize)
	}
}

func TestBinaryStoreNilMetadataOmitted(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewBinaryStore(dir, nil)
	s.Add("a", []float32{1, 2, 3}, nil)

	_, md, err := s.GetWithMetadata("a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if md != nil {
		t.Errorf("expected nil metadata, got %v", md)
	}
}
