// Package collection organizes vectors into named, directory-rooted
// units, each binding a BinaryStore, an optional HNSWIndex, and a
// QueryEngine, and a CollectionManager that tracks them under a
// directory convention with a JSON manifest.
package collection

import (
	"github.com/google/uuid"

	vecstream "github.com/mira-labs/vecstream"
	"github.com/mira-labs/vecstream/pkg/engine"
	"github.com/mira-labs/vecstream/pkg/index"
)

// Options configures a new collection. A nil field means "use the
// manager's configured default" for that field.
type Options struct {
	UseHNSW    *bool
	HNSWParams *vecstream.HNSWParams
}

// Collection binds a BinaryStore, an optional HNSWIndex (via
// IndexManager), and a QueryEngine, all rooted in one directory. Every
// mutation is a synchronous pass-through that keeps the store and the
// index in sync; there is no internal locking beyond what BinaryStore
// itself provides, matching the single-threaded cooperative concurrency
// model: one mutating operation at a time, serialized by the caller.
type Collection struct {
	Name string

	// handleID identifies this in-process Collection handle in log lines;
	// it has no on-disk meaning and is regenerated each time a handle is
	// constructed, including across GetCollection reloads of the same
	// named collection.
	handleID string

	store   *vecstream.BinaryStore
	manager *engine.IndexManager
	query   *engine.QueryEngine
	logger  vecstream.Logger

	useHNSW    bool
	hnswParams vecstream.HNSWParams
}

func newCollection(name, dir string, useHNSW bool, hnswParams vecstream.HNSWParams, seed int64, logger vecstream.Logger) (*Collection, error) {
	store, err := vecstream.NewBinaryStore(dir, logger)
	if err != nil {
		return nil, err
	}

	defaults := vecstream.DefaultHNSWParams()
	if hnswParams.M == 0 {
		hnswParams.M = defaults.M
	}
	if hnswParams.EfConstruction == 0 {
		hnswParams.EfConstruction = defaults.EfConstruction
	}
	if hnswParams.Ml == 0 {
		hnswParams.Ml = defaults.Ml
	}

	mgr := engine.NewIndexManager(store, useHNSW, hnswParams, seed)
	qe := engine.NewQueryEngine(mgr, func(id string) (map[string]any, bool) {
		_, md, err := store.GetWithMetadata(id)
		if err != nil {
			return nil, false
		}
		return md, true
	})

	handleID := uuid.New().String()
	scopedLogger := logger.With("collection", name, "collection_id", handleID)
	scopedLogger.Debug("collection handle opened")

	return &Collection{
		Name:       name,
		handleID:   handleID,
		store:      store,
		manager:    mgr,
		query:      qe,
		logger:     scopedLogger,
		useHNSW:    useHNSW,
		hnswParams: hnswParams,
	}, nil
}

// AddVector records vector under id with optional metadata, keeping the
// store and (if enabled) the HNSW graph in sync.
func (c *Collection) AddVector(id string, vector []float32, metadata map[string]any) error {
	if err := c.store.Add(id, vector, metadata); err != nil {
		return err
	}
	return c.manager.Update()
}

// RemoveVector deletes the vector stored under id from both the store
// and the HNSW graph.
func (c *Collection) RemoveVector(id string) error {
	if err := c.store.Remove(id); err != nil {
		return err
	}
	c.manager.NotifyRemoved(id)
	return nil
}

// GetVectorWithMetadata returns the vector and optional metadata stored
// under id.
func (c *Collection) GetVectorWithMetadata(id string) ([]float32, map[string]any, error) {
	return c.store.GetWithMetadata(id)
}

// SearchSimilar returns up to k results with similarity >= threshold,
// optionally restricted to entries whose metadata matches filter
// (logical AND over dot-path keys, no type coercion).
func (c *Collection) SearchSimilar(query []float32, k int, threshold float64, filter map[string]any) ([]index.Neighbor, error) {
	return c.query.Search(query, k, threshold, filter)
}

// VectorCount returns the number of vectors currently in the collection.
func (c *Collection) VectorCount() int {
	return c.store.Len()
}

// Dimension returns the collection's fixed vector dimension, or 0 if no
// vector has been added yet.
func (c *Collection) Dimension() int {
	return c.store.Dimension()
}

// Sizes returns the on-disk byte sizes of the vectors blob and the
// metadata sidecar.
func (c *Collection) Sizes() (int64, int64) {
	return c.store.Sizes()
}
