// Package engine holds IndexManager, which keeps a BinaryStore and an
// optional HNSWIndex synchronized and chooses between the flat and HNSW
// search paths, and QueryEngine, which layers metadata filtering and
// similarity thresholds on top.
package engine

import (
	"math"
	"math/rand"
	"sort"

	vecstream "github.com/mira-labs/vecstream"
	"github.com/mira-labs/vecstream/pkg/index"
)

// IndexManager owns a BinaryStore and, optionally, an HNSWIndex over the
// same data. Update is idempotent: it links or unlinks only the ids that
// have entered or left the store since the index was last synchronized,
// and refreshes the stored vectors of the rest without relinking. The
// flat path exists both to serve collections explicitly configured
// without HNSW and to act as an oracle other searches can be checked
// against.
type IndexManager struct {
	store *vecstream.BinaryStore

	useHNSW    bool
	hnswParams vecstream.HNSWParams
	rng        *rand.Rand
	hnsw       *index.HNSWIndex

	indexedIDs map[string]bool
}

// NewIndexManager returns an IndexManager over store. If useHNSW is true,
// an HNSWIndex is constructed lazily, once the store's dimension becomes
// known from its first vector.
func NewIndexManager(store *vecstream.BinaryStore, useHNSW bool, hnswParams vecstream.HNSWParams, seed int64) *IndexManager {
	return &IndexManager{
		store:      store,
		useHNSW:    useHNSW,
		hnswParams: hnswParams,
		rng:        rand.New(rand.NewSource(seed)),
		indexedIDs: make(map[string]bool),
	}
}

// Update brings the HNSW graph (if enabled) in line with the current
// contents of the store: ids present in the store but not yet indexed
// are inserted, ids indexed but no longer in the store are removed, and
// ids already indexed have their stored vector refreshed from the store.
// It is a no-op when HNSW is disabled or the store is still empty.
func (m *IndexManager) Update() error {
	if !m.useHNSW {
		return nil
	}

	items := m.store.Items()
	if len(items) == 0 {
		return nil
	}

	if m.hnsw == nil {
		m.hnsw = index.NewHNSWIndex(m.hnswParams.M, m.hnswParams.EfConstruction, m.hnswParams.Ml, m.rng)
	}

	for id := range m.indexedIDs {
		if _, ok := items[id]; !ok {
			if err := m.hnsw.Delete(id); err != nil && err != index.ErrNotFound {
				return err
			}
			delete(m.indexedIDs, id)
		}
	}

	for id, v := range items {
		// For an id already in the graph, Insert overwrites the stored
		// vector in place without touching edges, so a replaced vector
		// reaches the graph too.
		if err := m.hnsw.Insert(id, v); err != nil {
			return err
		}
		m.indexedIDs[id] = true
	}

	return nil
}

// NotifyRemoved tells the manager that id has left the store: it is
// deleted from the HNSW graph (if built) at once and dropped from the
// set of indexed ids.
func (m *IndexManager) NotifyRemoved(id string) {
	delete(m.indexedIDs, id)
	if m.hnsw != nil {
		_ = m.hnsw.Delete(id) // already absent is fine
	}
}

// Search dispatches to HNSW when it is enabled and built, otherwise
// computes an exact flat search directly against the store. Results are
// filtered to similarity >= threshold and sorted descending.
func (m *IndexManager) Search(query []float32, k int, threshold float64) ([]index.Neighbor, error) {
	if err := m.Update(); err != nil {
		return nil, err
	}

	if m.useHNSW && m.hnsw != nil && m.hnsw.Len() > 0 {
		results, err := m.hnsw.Search(query, k)
		if err != nil {
			return nil, err
		}
		return filterByThreshold(results, threshold), nil
	}

	return m.flatSearch(query, k, threshold), nil
}

// SearchPool behaves like Search but returns up to poolSize candidates
// instead of k, for QueryEngine to walk while applying a metadata filter.
func (m *IndexManager) SearchPool(query []float32, poolSize int, threshold float64) ([]index.Neighbor, error) {
	if err := m.Update(); err != nil {
		return nil, err
	}

	if m.useHNSW && m.hnsw != nil && m.hnsw.Len() > 0 {
		results, err := m.hnsw.Search(query, poolSize)
		if err != nil {
			return nil, err
		}
		return filterByThreshold(results, threshold), nil
	}

	return m.flatSearch(query, poolSize, threshold), nil
}

func (m *IndexManager) flatSearch(query []float32, k int, threshold float64) []index.Neighbor {
	items := m.store.Items()
	if len(items) == 0 || k <= 0 {
		return []index.Neighbor{}
	}

	all := make([]index.Neighbor, 0, len(items))
	for id, v := range items {
		sim := cosineSimilarity(query, v)
		if sim < threshold {
			continue
		}
		all = append(all, index.Neighbor{ID: id, Similarity: sim})
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Similarity != all[j].Similarity {
			return all[i].Similarity > all[j].Similarity
		}
		return all[i].ID < all[j].ID
	})

	if len(all) > k {
		all = all[:k]
	}
	return all
}

func filterByThreshold(results []index.Neighbor, threshold float64) []index.Neighbor {
	out := make([]index.Neighbor, 0, len(results))
	for _, r := range results {
		if r.Similarity >= threshold {
			out = append(out, r)
		}
	}
	return out
}

// Len reports how many vectors the manager's HNSW graph currently holds,
// or 0 if HNSW is disabled.
func (m *IndexManager) Len() int {
	if m.hnsw == nil {
		return 0
	}
	return m.hnsw.Len()
}

// NumVectors reports the total number of vectors in the backing store,
// regardless of whether HNSW is enabled. QueryEngine uses this as the N
// cap on its candidate pool size.
func (m *IndexManager) NumVectors() int {
	return m.store.Len()
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
