package engine

import (
	"strings"

	"github.com/mira-labs/vecstream/pkg/index"
)

// QueryEngine layers metadata filtering and a similarity threshold on
// top of an IndexManager. Without a filter it delegates straight
// through; with a filter it requests an inflated candidate pool and
// walks it in similarity order, admitting entries whose metadata
// satisfies the filter until k are admitted.
type QueryEngine struct {
	indexManager *IndexManager
	metadataOf   func(id string) (map[string]any, bool)
}

// NewQueryEngine returns a QueryEngine over manager. metadataOf looks up
// a vector's metadata by id (ok is false if the id does not exist; an id
// stored without metadata may be reported as nil metadata with ok true,
// which fails any non-empty filter); it is typically backed by a
// BinaryStore.
func NewQueryEngine(manager *IndexManager, metadataOf func(id string) (map[string]any, bool)) *QueryEngine {
	return &QueryEngine{indexManager: manager, metadataOf: metadataOf}
}

// Search returns up to k results with similarity >= threshold. When
// filter is non-empty, only entries whose metadata matches every key in
// filter (logical AND, dot-path descent, no type coercion) are admitted.
func (q *QueryEngine) Search(query []float32, k int, threshold float64, filter map[string]any) ([]index.Neighbor, error) {
	if len(filter) == 0 {
		return q.indexManager.Search(query, k, threshold)
	}

	n := q.indexManager.NumVectors()
	poolSize := k * 4
	if poolSize < 100 {
		poolSize = 100
	}
	if n > 0 && poolSize > n {
		poolSize = n
	}

	candidates, err := q.indexManager.SearchPool(query, poolSize, threshold)
	if err != nil {
		return nil, err
	}

	results := make([]index.Neighbor, 0, k)
	for _, c := range candidates {
		metadata, ok := q.metadataOf(c.ID)
		if !ok || !matchesFilter(metadata, filter) {
			continue
		}
		results = append(results, c)
		if len(results) >= k {
			break
		}
	}
	return results, nil
}

// matchesFilter reports whether every key in filter matches metadata. A
// dot-joined key ("a.b.c") descends nested map[string]any objects; a
// missing intermediate object, a non-object intermediate, or an absent
// final key all fail that key. Values compare with standard equality;
// there is no implicit type coercion. An empty filter matches anything.
func matchesFilter(metadata map[string]any, filter map[string]any) bool {
	for key, want := range filter {
		parts := strings.Split(key, ".")

		var current any = metadata
		ok := true
		for _, part := range parts {
			m, isMap := current.(map[string]any)
			if !isMap {
				ok = false
				break
			}
			v, present := m[part]
			if !present {
				ok = false
				break
			}
			current = v
		}
		if !ok || !scalarEqual(current, want) {
			return false
		}
	}
	return true
}

// scalarEqual compares two filter values with standard equality. Slices
// and maps are not comparable with ==; a leaf holding either can never
// satisfy a filter, matching the spec's "arrays are not descended".
func scalarEqual(a, b any) bool {
	switch a.(type) {
	case []any, map[string]any:
		return false
	}
	switch b.(type) {
	case []any, map[string]any:
		return false
	}
	return a == b
}
