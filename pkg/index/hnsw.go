package index

import (
	"container/heap"
	"math"
	"math/rand"
	"sync"
)

// hnswNode is one point in the graph: its vector, the highest level it
// participates in, and its neighbor set at every level from 0 up to
// that level.
type hnswNode struct {
	ID        string
	Vector    []float32
	Level     int
	Neighbors [][]string // Neighbors[l] holds this node's neighbor ids at level l
}

// HNSWIndex is an approximate nearest-neighbor index built as a
// hierarchical navigable small world graph. Insert and Search are
// greedy and probabilistic: results are usually, not always, the true
// nearest neighbors, traded for sub-linear search time.
type HNSWIndex struct {
	mu sync.RWMutex

	m              int // neighbors added per insertion above level 0
	mMax0          int // neighbor cap at level 0 (conventionally 2*m)
	efConstruction int
	ml             int // hard cap on assigned level

	nodes      map[string]*hnswNode
	entryPoint string
	dimension  int

	rng *rand.Rand
}

// NewHNSWIndex returns an empty HNSWIndex. m is the number of neighbors
// added per node above level 0 (the level-0 cap is 2*m); efConstruction
// is the candidate list size used while inserting; ml caps the highest
// level a node may be assigned. rng drives level assignment and must not
// be nil; pass a seeded rand.New(rand.NewSource(seed)) for reproducible
// graphs in tests.
func NewHNSWIndex(m, efConstruction, ml int, rng *rand.Rand) *HNSWIndex {
	return &HNSWIndex{
		m:              m,
		mMax0:          2 * m,
		efConstruction: efConstruction,
		ml:             ml,
		nodes:          make(map[string]*hnswNode),
		rng:            rng,
	}
}

// Len returns the number of nodes currently in the graph.
func (h *HNSWIndex) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.nodes)
}

// selectLevel draws this node's level from the exponential distribution
// conventional for HNSW: l = floor(-ln(U) * m / mMax0), capped at ml. U
// is drawn from (0, 1] rather than [0, 1) so ln(U) never sees 0.
func (h *HNSWIndex) selectLevel() int {
	u := 1 - h.rng.Float64()
	l := int(math.Floor(-math.Log(u) * float64(h.m) / float64(h.mMax0)))
	if l > h.ml {
		l = h.ml
	}
	return l
}

// Insert adds vector under id, or, if id is already present, overwrites
// its stored vector in place without touching the graph's edges. The
// first Insert on an empty index fixes the dimension; any later Insert
// whose vector length disagrees fails with ErrDimensionMismatch.
func (h *HNSWIndex) Insert(id string, vector []float32) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.dimension == 0 && len(h.nodes) == 0 {
		h.dimension = len(vector)
	}
	if len(vector) != h.dimension {
		return ErrDimensionMismatch
	}

	v := make([]float32, len(vector))
	copy(v, vector)

	if existing, ok := h.nodes[id]; ok {
		existing.Vector = v
		return nil
	}

	level := h.selectLevel()
	node := &hnswNode{
		ID:        id,
		Vector:    v,
		Level:     level,
		Neighbors: make([][]string, level+1),
	}
	for l := range node.Neighbors {
		node.Neighbors[l] = []string{}
	}

	if h.entryPoint == "" {
		h.nodes[id] = node
		h.entryPoint = id
		return nil
	}

	entry := h.entryPoint
	entryLevel := h.nodes[entry].Level

	// Descend greedily from the current top level down to level+1,
	// refining the entry point with ef=1 at each level.
	for l := entryLevel; l > level; l-- {
		entry = h.greedyClosest(entry, v, l)
	}

	// The node is registered before linking so that a neighbor pruned
	// back to its degree cap can score it alongside its other neighbors.
	h.nodes[id] = node

	// From min(entryLevel, level) down to 0, search with efConstruction
	// and connect to the closest m (or mMax0 at level 0) neighbors found.
	for l := minInt(entryLevel, level); l >= 0; l-- {
		candidates := h.searchLayer(v, entry, h.efConstruction, l)
		degreeCap := h.m
		if l == 0 {
			degreeCap = h.mMax0
		}
		selected := selectClosest(candidates, degreeCap)

		node.Neighbors[l] = make([]string, 0, len(selected))
		for _, c := range selected {
			node.Neighbors[l] = append(node.Neighbors[l], c.ID)
		}

		for _, c := range selected {
			h.addConnection(c.ID, id, l)
		}

		if len(candidates) > 0 {
			entry = candidates[0].ID
		}
	}

	if level > entryLevel {
		h.entryPoint = id
	}

	return nil
}

// addConnection adds to to neighborID's neighbor list at level l, then
// prunes neighborID's list back down to its degree cap by re-selecting
// the closest neighbors if it now exceeds the cap.
func (h *HNSWIndex) addConnection(neighborID, to string, l int) {
	neighbor, ok := h.nodes[neighborID]
	if !ok || l > neighbor.Level {
		return
	}

	for _, existing := range neighbor.Neighbors[l] {
		if existing == to {
			return
		}
	}
	neighbor.Neighbors[l] = append(neighbor.Neighbors[l], to)

	degreeCap := h.m
	if l == 0 {
		degreeCap = h.mMax0
	}
	if len(neighbor.Neighbors[l]) <= degreeCap {
		return
	}

	candidates := make([]Neighbor, 0, len(neighbor.Neighbors[l]))
	for _, nid := range neighbor.Neighbors[l] {
		if n, ok := h.nodes[nid]; ok {
			candidates = append(candidates, Neighbor{ID: nid, Similarity: cosineSimilarity(neighbor.Vector, n.Vector)})
		}
	}
	selected := selectClosest(candidates, degreeCap)
	pruned := make([]string, 0, len(selected))
	for _, c := range selected {
		pruned = append(pruned, c.ID)
	}
	neighbor.Neighbors[l] = pruned
}

// greedyClosest returns the neighbor of from (at level l, including
// from itself) closest to target; used for ef=1 descent between levels.
func (h *HNSWIndex) greedyClosest(from string, target []float32, l int) string {
	best := from
	bestSim := cosineSimilarity(target, h.nodes[from].Vector)

	improved := true
	for improved {
		improved = false
		node := h.nodes[best]
		if l > node.Level {
			break
		}
		for _, nid := range node.Neighbors[l] {
			n, ok := h.nodes[nid]
			if !ok {
				continue
			}
			sim := cosineSimilarity(target, n.Vector)
			if sim > bestSim {
				bestSim = sim
				best = nid
				improved = true
			}
		}
	}
	return best
}

// searchLayer performs a best-first search at level l, starting from
// entry, expanding candidates closest-first, and keeping a bounded set
// of the ef best results seen. It returns those results sorted
// descending by similarity to target.
func (h *HNSWIndex) searchLayer(target []float32, entry string, ef int, l int) []Neighbor {
	visited := map[string]bool{entry: true}

	entrySim := cosineSimilarity(target, h.nodes[entry].Vector)

	candidates := &maxSimHeap{{ID: entry, Similarity: entrySim}}
	heap.Init(candidates)
	best := &minSimHeap{{ID: entry, Similarity: entrySim}}
	heap.Init(best)

	for candidates.Len() > 0 {
		current := (*candidates)[0]
		if best.Len() >= ef && current.Similarity < (*best)[0].Similarity {
			break
		}
		heap.Pop(candidates)

		node, ok := h.nodes[current.ID]
		if !ok || l > node.Level {
			continue
		}
		for _, nid := range node.Neighbors[l] {
			if visited[nid] {
				continue
			}
			visited[nid] = true

			n, ok := h.nodes[nid]
			if !ok {
				continue
			}
			sim := cosineSimilarity(target, n.Vector)

			if best.Len() < ef || sim > (*best)[0].Similarity {
				heap.Push(candidates, Neighbor{ID: nid, Similarity: sim})
				heap.Push(best, Neighbor{ID: nid, Similarity: sim})
				if best.Len() > ef {
					heap.Pop(best)
				}
			}
		}
	}

	results := make([]Neighbor, len(*best))
	copy(results, *best)
	sortNeighborsDescending(results)
	return results
}

// selectClosest picks the cap closest candidates by similarity, with no
// diversification heuristic beyond proximity.
func selectClosest(candidates []Neighbor, cap int) []Neighbor {
	sorted := make([]Neighbor, len(candidates))
	copy(sorted, candidates)
	sortNeighborsDescending(sorted)
	if len(sorted) > cap {
		sorted = sorted[:cap]
	}
	return sorted
}

// Search returns the k approximate nearest neighbors of query, searching
// with a candidate list at least as large as k. Results are sorted by
// similarity descending.
func (h *HNSWIndex) Search(query []float32, k int) ([]Neighbor, error) {
	return h.SearchWithEf(query, k, h.efConstruction)
}

// SearchWithEf is Search with an explicit candidate list size, letting
// callers trade recall for latency.
func (h *HNSWIndex) SearchWithEf(query []float32, k int, ef int) ([]Neighbor, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.nodes) == 0 || k <= 0 {
		return []Neighbor{}, nil
	}
	if ef < k {
		ef = k
	}

	entry := h.entryPoint
	entryLevel := h.nodes[entry].Level

	for l := entryLevel; l > 0; l-- {
		entry = h.greedyClosest(entry, query, l)
	}

	results := h.searchLayer(query, entry, ef, 0)
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Delete removes id from the graph: it is erased from every neighbor's
// adjacency list at every level it participated in, then its own record
// is erased. If id was the entry point, the entry point is reassigned to
// any remaining node at the highest level present, or cleared if the
// graph is now empty.
func (h *HNSWIndex) Delete(id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	node, ok := h.nodes[id]
	if !ok {
		return ErrNotFound
	}

	for l := 0; l <= node.Level; l++ {
		for _, nid := range node.Neighbors[l] {
			neighbor, ok := h.nodes[nid]
			if !ok || l > neighbor.Level {
				continue
			}
			neighbor.Neighbors[l] = removeID(neighbor.Neighbors[l], id)
		}
	}

	delete(h.nodes, id)

	if h.entryPoint == id {
		h.entryPoint = h.findNewEntryPoint()
	}

	return nil
}

func (h *HNSWIndex) findNewEntryPoint() string {
	best := ""
	bestLevel := -1
	for nid, n := range h.nodes {
		if n.Level > bestLevel {
			bestLevel = n.Level
			best = nid
		}
	}
	return best
}

func removeID(ids []string, target string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// maxSimHeap is a max-heap on Similarity: Pop always returns the
// unexpanded candidate closest to the query, the node searchLayer
// expands next.
type maxSimHeap []Neighbor

func (h maxSimHeap) Len() int            { return len(h) }
func (h maxSimHeap) Less(i, j int) bool  { return h[i].Similarity > h[j].Similarity }
func (h maxSimHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *maxSimHeap) Push(x interface{}) { *h = append(*h, x.(Neighbor)) }
func (h *maxSimHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// minSimHeap is a min-heap on Similarity: its root is the current worst
// of the ef best results retained so far, popped when a better
// candidate displaces it.
type minSimHeap []Neighbor

func (h minSimHeap) Len() int            { return len(h) }
func (h minSimHeap) Less(i, j int) bool  { return h[i].Similarity < h[j].Similarity }
func (h minSimHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minSimHeap) Push(x interface{}) { *h = append(*h, x.(Neighbor)) }
func (h *minSimHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
