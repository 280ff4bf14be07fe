package index

import (
	"container/heap"
)

// FlatIndex implements brute-force exact search: every Search scores
// every stored vector by cosine similarity. It guarantees finding the
// true nearest neighbors at O(n) per query, and is what HNSWIndex's
// approximate results are checked against.
type FlatIndex struct {
	vectors   map[string][]float32
	dimension int
}

// NewFlatIndex returns an empty FlatIndex. Its dimension is fixed by the
// first successful Insert.
func NewFlatIndex() *FlatIndex {
	return &FlatIndex{vectors: make(map[string][]float32)}
}

// Insert adds or overwrites the vector stored under id. The first Insert
// on an empty index fixes the dimension; any later Insert whose vector
// length disagrees fails with ErrDimensionMismatch.
func (f *FlatIndex) Insert(id string, vector []float32) error {
	if f.dimension == 0 && len(f.vectors) == 0 {
		f.dimension = len(vector)
	}
	if len(vector) != f.dimension {
		return ErrDimensionMismatch
	}

	v := make([]float32, len(vector))
	copy(v, vector)
	f.vectors[id] = v
	return nil
}

// Delete removes id from the index, or fails with ErrNotFound if absent.
func (f *FlatIndex) Delete(id string) error {
	if _, exists := f.vectors[id]; !exists {
		return ErrNotFound
	}
	delete(f.vectors, id)
	return nil
}

// Search scores every stored vector against query by cosine similarity
// and returns the k highest, descending, ties broken by ID.
func (f *FlatIndex) Search(query []float32, k int) ([]Neighbor, error) {
	if len(f.vectors) == 0 || k <= 0 {
		return []Neighbor{}, nil
	}

	h := &flatMinHeap{}
	heap.Init(h)

	for id, vector := range f.vectors {
		sim := cosineSimilarity(query, vector)
		if h.Len() < k {
			heap.Push(h, Neighbor{ID: id, Similarity: sim})
		} else if sim > (*h)[0].Similarity {
			heap.Pop(h)
			heap.Push(h, Neighbor{ID: id, Similarity: sim})
		}
	}

	results := make([]Neighbor, h.Len())
	for i := len(results) - 1; i >= 0; i-- {
		results[i] = heap.Pop(h).(Neighbor)
	}
	sortNeighborsDescending(results)
	return results, nil
}

// Len returns the number of vectors currently indexed.
func (f *FlatIndex) Len() int {
	return len(f.vectors)
}

// GetVector returns a copy of the vector stored under id.
func (f *FlatIndex) GetVector(id string) ([]float32, bool) {
	v, ok := f.vectors[id]
	if !ok {
		return nil, false
	}
	cp := make([]float32, len(v))
	copy(cp, v)
	return cp, true
}

// Clear removes every vector from the index and resets its dimension.
func (f *FlatIndex) Clear() {
	f.vectors = make(map[string][]float32)
	f.dimension = 0
}

// flatMinHeap is a min-heap on Similarity, used to keep the k
// highest-similarity results seen so far by popping the current worst.
type flatMinHeap []Neighbor

func (h flatMinHeap) Len() int            { return len(h) }
func (h flatMinHeap) Less(i, j int) bool  { return h[i].Similarity < h[j].Similarity }
func (h flatMinHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *flatMinHeap) Push(x interface{}) { *h = append(*h, x.(Neighbor)) }
func (h *flatMinHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
