package vecstream

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// persistentFile is the on-disk shape of a PersistentStore:
// {"dimension": D, "vectors": {id: [f, ...]}}.
type persistentFile struct {
	Dimension int                  `json:"dimension"`
	Vectors   map[string][]float32 `json:"vectors"`
}

// PersistentStore is a VectorStore that synchronously rewrites a single
// JSON file on every mutation. It is the simpler sibling of BinaryStore,
// used where metadata is not needed.
type PersistentStore struct {
	*VectorStore
	path   string
	logger Logger
}

// NewPersistentStore opens (or creates) a PersistentStore backed by the
// file at path. If the file exists and is well-formed, its contents are
// loaded; if it exists but is corrupt, the store starts empty and a
// warning is logged rather than failing construction.
func NewPersistentStore(path string, logger Logger) (*PersistentStore, error) {
	if logger == nil {
		logger = NopLogger()
	}

	s := &PersistentStore{
		VectorStore: NewVectorStore(),
		path:        path,
		logger:      logger,
	}

	if _, err := os.Stat(path); err == nil {
		if err := s.load(); err != nil {
			logger.Warn("persistent store load failed, starting empty", "path", path, "err", err)
			s.VectorStore = NewVectorStore()
		}
	}

	return s, nil
}

func (s *PersistentStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read %s: %w", s.path, err)
	}

	var pf persistentFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return fmt.Errorf("unmarshal %s: %w", s.path, err)
	}

	store := NewVectorStore()
	for id, v := range pf.Vectors {
		if err := store.addLocked(id, v); err != nil {
			return fmt.Errorf("load vector %q: %w", id, err)
		}
	}
	s.VectorStore = store
	return nil
}

func (s *PersistentStore) save() error {
	s.VectorStore.mu.RLock()
	pf := persistentFile{
		Dimension: s.VectorStore.dimension,
		Vectors:   make(map[string][]float32, len(s.VectorStore.vectors)),
	}
	for id, v := range s.VectorStore.vectors {
		pf.Vectors[id] = v
	}
	s.VectorStore.mu.RUnlock()

	data, err := json.Marshal(pf)
	if err != nil {
		return wrapError("save", fmt.Errorf("marshal: %w", err))
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return wrapError("save", fmt.Errorf("%w: %v", ErrIOFailure, err))
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return wrapError("save", fmt.Errorf("%w: %v", ErrIOFailure, err))
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return wrapError("save", fmt.Errorf("%w: %v", ErrIOFailure, err))
	}
	return nil
}

// Add records vector under id and rewrites the backing file.
func (s *PersistentStore) Add(id string, vector []float32) error {
	if err := s.VectorStore.Add(id, vector); err != nil {
		return err
	}
	return s.save()
}

// Remove deletes the vector stored under id and rewrites the backing file.
func (s *PersistentStore) Remove(id string) error {
	if err := s.VectorStore.Remove(id); err != nil {
		return err
	}
	return s.save()
}

// Clear empties the store and rewrites the backing file.
func (s *PersistentStore) Clear() error {
	s.VectorStore.Clear()
	return s.save()
}
