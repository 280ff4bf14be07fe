package collection

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	vecstream "github.com/mira-labs/vecstream"
)

const manifestFileName = "collections_metadata.json"

// manifestEntry is one collection's record in collections_metadata.json.
type manifestEntry struct {
	Name       string               `json:"name"`
	CreatedAt  string               `json:"created_at"`
	UseHNSW    bool                 `json:"use_hnsw"`
	HNSWParams vecstream.HNSWParams `json:"hnsw_params"`
}

// Manager tracks named collections under base/collections/<name>/, with
// a manifest at base/collections_metadata.json. Collections are loaded
// lazily: GetCollection constructs and caches a handle the first time a
// known name is requested.
type Manager struct {
	mu sync.RWMutex

	baseDir        string
	collectionsDir string
	manifestPath   string

	defaultUseHNSW    bool
	defaultHNSWParams vecstream.HNSWParams
	logger            vecstream.Logger

	collections map[string]*Collection
	manifest    map[string]manifestEntry

	nextSeed int64
}

// NewManager opens (or creates) a CollectionManager rooted at cfg.BaseDir.
// A corrupt manifest is tolerated: the manager starts with no known
// collections and a warning is logged, rather than failing construction.
func NewManager(cfg vecstream.Config) (*Manager, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = vecstream.NopLogger()
	}

	m := &Manager{
		baseDir:           cfg.BaseDir,
		collectionsDir:    filepath.Join(cfg.BaseDir, "collections"),
		manifestPath:      filepath.Join(cfg.BaseDir, manifestFileName),
		defaultUseHNSW:    cfg.UseHNSW,
		defaultHNSWParams: cfg.HNSWParams,
		logger:            logger,
		collections:       make(map[string]*Collection),
		manifest:          make(map[string]manifestEntry),
	}

	if err := os.MkdirAll(m.collectionsDir, 0o755); err != nil {
		return nil, &vecstream.StoreError{Op: "new_manager", Err: err}
	}

	if err := m.loadManifest(); err != nil {
		logger.Warn("collections manifest load failed, starting empty", "path", m.manifestPath, "err", err)
		m.manifest = make(map[string]manifestEntry)
	}

	return m, nil
}

func (m *Manager) loadManifest() error {
	data, err := os.ReadFile(m.manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, &m.manifest)
}

func (m *Manager) saveManifest() error {
	data, err := json.MarshalIndent(m.manifest, "", "  ")
	if err != nil {
		return &vecstream.StoreError{Op: "save_manifest", Err: err}
	}

	tmp := m.manifestPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return &vecstream.StoreError{Op: "save_manifest", Err: vecstream.ErrIOFailure}
	}
	if err := os.Rename(tmp, m.manifestPath); err != nil {
		return &vecstream.StoreError{Op: "save_manifest", Err: vecstream.ErrIOFailure}
	}
	return nil
}

func (m *Manager) collectionDir(name string) string {
	return filepath.Join(m.collectionsDir, name)
}

// CreateCollection creates a new, empty collection named name. It fails
// with ErrAlreadyExists if a collection with that name is already known,
// whether loaded or just present in the manifest.
func (m *Manager) CreateCollection(name string, opts Options) (*Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.collections[name]; ok {
		return nil, &vecstream.StoreError{Op: "create_collection", Err: vecstream.ErrAlreadyExists}
	}
	if _, ok := m.manifest[name]; ok {
		return nil, &vecstream.StoreError{Op: "create_collection", Err: vecstream.ErrAlreadyExists}
	}

	useHNSW, hnswParams := m.resolveOptions(opts)

	col, err := newCollection(name, m.collectionDir(name), useHNSW, hnswParams, m.nextSeed, m.logger)
	if err != nil {
		return nil, err
	}
	m.nextSeed++

	m.collections[name] = col
	m.manifest[name] = manifestEntry{
		Name:       name,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
		UseHNSW:    useHNSW,
		HNSWParams: hnswParams,
	}

	if err := m.saveManifest(); err != nil {
		return nil, err
	}
	return col, nil
}

// resolveOptions fills in manager defaults for any nil field of opts.
func (m *Manager) resolveOptions(opts Options) (bool, vecstream.HNSWParams) {
	useHNSW := m.defaultUseHNSW
	if opts.UseHNSW != nil {
		useHNSW = *opts.UseHNSW
	}
	hnswParams := m.defaultHNSWParams
	if opts.HNSWParams != nil {
		hnswParams = *opts.HNSWParams
	}
	return useHNSW, hnswParams
}

// GetCollection returns the collection named name, loading it lazily
// from the manifest if it isn't already cached. It fails with
// ErrNotFound if no such collection exists.
func (m *Manager) GetCollection(name string) (*Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if col, ok := m.collections[name]; ok {
		return col, nil
	}

	entry, ok := m.manifest[name]
	if !ok {
		return nil, &vecstream.StoreError{Op: "get_collection", Err: vecstream.ErrNotFound}
	}

	col, err := newCollection(name, m.collectionDir(name), entry.UseHNSW, entry.HNSWParams, m.nextSeed, m.logger)
	if err != nil {
		return nil, err
	}
	m.nextSeed++

	m.collections[name] = col
	return col, nil
}

// ListCollections returns every known collection name.
func (m *Manager) ListCollections() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.manifest))
	for name := range m.manifest {
		names = append(names, name)
	}
	return names
}

// DeleteCollection removes name from the manifest, drops any in-memory
// handle, and recursively deletes its directory. It fails with
// ErrNotFound if no such collection exists.
func (m *Manager) DeleteCollection(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.manifest[name]; !ok {
		return &vecstream.StoreError{Op: "delete_collection", Err: vecstream.ErrNotFound}
	}

	delete(m.collections, name)
	delete(m.manifest, name)

	if err := m.saveManifest(); err != nil {
		return err
	}

	if err := os.RemoveAll(m.collectionDir(name)); err != nil {
		return &vecstream.StoreError{Op: "delete_collection", Err: vecstream.ErrIOFailure}
	}
	return nil
}

// Stats is the merged statistics + manifest view returned by
// CollectionStats.
type Stats struct {
	Name              string               `json:"name"`
	VectorCount       int                  `json:"vector_count"`
	Dimension         int                  `json:"dimension"`
	VectorsSizeBytes  int64                `json:"vectors_size_bytes"`
	MetadataSizeBytes int64                `json:"metadata_size_bytes"`
	UseHNSW           bool                 `json:"use_hnsw"`
	HNSWParams        vecstream.HNSWParams `json:"hnsw_params"`
	CreatedAt         string               `json:"created_at"`
}

// CollectionStats returns vector count, dimension, on-disk sizes, the
// HNSW flag, and the persisted manifest fields for name.
func (m *Manager) CollectionStats(name string) (Stats, error) {
	col, err := m.GetCollection(name)
	if err != nil {
		return Stats{}, err
	}

	m.mu.RLock()
	entry := m.manifest[name]
	m.mu.RUnlock()

	vecSize, metaSize := col.Sizes()
	return Stats{
		Name:              name,
		VectorCount:       col.VectorCount(),
		Dimension:         col.Dimension(),
		VectorsSizeBytes:  vecSize,
		MetadataSizeBytes: metaSize,
		UseHNSW:           entry.UseHNSW,
		HNSWParams:        entry.HNSWParams,
		CreatedAt:         entry.CreatedAt,
	}, nil
}
