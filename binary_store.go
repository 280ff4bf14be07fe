package vecstream

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mira-labs/vecstream/internal/encoding"
)

const (
	vectorsFileName  = "vectors.bin"
	metadataFileName = "metadata.json"
)

// BinaryStore is a VectorStore plus a binary vectors blob and a separate
// metadata.json sidecar, both rooted in a directory. Every mutation
// rewrites both files. A corrupt sidecar or vectors blob on load resets
// the store to empty and logs a warning rather than failing construction.
type BinaryStore struct {
	*VectorStore
	dir      string
	metadata map[string]map[string]any
	logger   Logger
}

// NewBinaryStore opens (or creates) a BinaryStore rooted at dir.
func NewBinaryStore(dir string, logger Logger) (*BinaryStore, error) {
	if logger == nil {
		logger = NopLogger()
	}

	s := &BinaryStore{
		VectorStore: NewVectorStore(),
		dir:         dir,
		metadata:    make(map[string]map[string]any),
		logger:      logger,
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, wrapError("open", fmt.Errorf("%w: %v", ErrIOFailure, err))
	}

	if err := s.load(); err != nil {
		logger.Warn("binary store load failed, starting empty", "dir", dir, "err", err)
		s.VectorStore = NewVectorStore()
		s.metadata = make(map[string]map[string]any)
	}

	return s, nil
}

func (s *BinaryStore) vectorsPath() string  { return filepath.Join(s.dir, vectorsFileName) }
func (s *BinaryStore) metadataPath() string { return filepath.Join(s.dir, metadataFileName) }

func (s *BinaryStore) load() error {
	if _, err := os.Stat(s.vectorsPath()); err != nil {
		return nil // nothing persisted yet; not an error
	}

	vecData, err := os.ReadFile(s.vectorsPath())
	if err != nil {
		return fmt.Errorf("read vectors: %w", err)
	}
	_, vectors, err := encoding.DecodeVectorBlob(vecData)
	if err != nil {
		return fmt.Errorf("decode vectors: %w", err)
	}

	metadata := make(map[string]map[string]any)
	if metaData, err := os.ReadFile(s.metadataPath()); err == nil {
		if err := json.Unmarshal(metaData, &metadata); err != nil {
			return fmt.Errorf("decode metadata: %w", err)
		}
	}

	store := NewVectorStore()
	for id, v := range vectors {
		if err := store.addLocked(id, v); err != nil {
			return fmt.Errorf("load vector %q: %w", id, err)
		}
	}

	s.VectorStore = store
	s.metadata = metadata
	return nil
}

func (s *BinaryStore) save() error {
	s.VectorStore.mu.RLock()
	dim := s.VectorStore.dimension
	vectors := make(map[string][]float32, len(s.VectorStore.vectors))
	for id, v := range s.VectorStore.vectors {
		vectors[id] = v
	}
	s.VectorStore.mu.RUnlock()

	vecBytes, err := encoding.EncodeVectorBlob(dim, vectors)
	if err != nil {
		return wrapError("save", fmt.Errorf("%w: %v", ErrIOFailure, err))
	}

	metaBytes, err := json.Marshal(s.metadata)
	if err != nil {
		return wrapError("save", fmt.Errorf("marshal metadata: %w", err))
	}

	if err := writeFileAtomic(s.vectorsPath(), vecBytes); err != nil {
		return wrapError("save", fmt.Errorf("%w: %v", ErrIOFailure, err))
	}
	if err := writeFileAtomic(s.metadataPath(), metaBytes); err != nil {
		return wrapError("save", fmt.Errorf("%w: %v", ErrIOFailure, err))
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Add records vector under id with optional metadata and rewrites both
// backing files.
func (s *BinaryStore) Add(id string, vector []float32, metadata map[string]any) error {
	if err := s.VectorStore.Add(id, vector); err != nil {
		return err
	}

	s.VectorStore.mu.Lock()
	if metadata != nil {
		s.metadata[id] = metadata
	} else {
		delete(s.metadata, id)
	}
	s.VectorStore.mu.Unlock()

	return s.save()
}

// Remove deletes the vector and metadata stored under id and rewrites
// both backing files.
func (s *BinaryStore) Remove(id string) error {
	if err := s.VectorStore.Remove(id); err != nil {
		return err
	}

	s.VectorStore.mu.Lock()
	delete(s.metadata, id)
	s.VectorStore.mu.Unlock()

	return s.save()
}

// GetWithMetadata returns the vector and optional metadata stored under id.
func (s *BinaryStore) GetWithMetadata(id string) ([]float32, map[string]any, error) {
	v, err := s.VectorStore.Get(id)
	if err != nil {
		return nil, nil, err
	}

	s.VectorStore.mu.RLock()
	md := s.metadata[id]
	s.VectorStore.mu.RUnlock()

	return v, md, nil
}

// Clear empties the store and rewrites both backing files.
func (s *BinaryStore) Clear() error {
	s.VectorStore.Clear()
	s.VectorStore.mu.Lock()
	s.metadata = make(map[string]map[string]any)
	s.VectorStore.mu.Unlock()
	return s.save()
}

// Sizes returns (vectorsBytes, metadataBytes) from filesystem stats, or
// zero for a file that hasn't been written yet.
func (s *BinaryStore) Sizes() (int64, int64) {
	var vecSize, metaSize int64
	if fi, err := os.Stat(s.vectorsPath()); err == nil {
		vecSize = fi.Size()
	}
	if fi, err := os.Stat(s.metadataPath()); err == nil {
		metaSize = fi.Size()
	}
	return vecSize, metaSize
}
