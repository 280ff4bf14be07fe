// Package vecstream is an embedded vector database: a flat exact-search
// store, a file-backed store with binary vectors and JSON metadata, and
// (in the index, engine and collection subpackages) an HNSW approximate
// nearest-neighbor graph, a metadata filter evaluator, and a multi-
// collection directory layout with a JSON manifest.
//
// A typical embedder creates a CollectionManager rooted at a directory,
// creates or opens named collections within it, and adds vectors with
// optional JSON-like metadata:
//
//	mgr, err := collection.NewManager(vecstream.DefaultConfig("./data"))
//	col, err := mgr.CreateCollection("products", collection.Options{})
//	err = col.AddVector("p1", []float32{0.1, 0.2, 0.3}, map[string]any{"category": "electronics"})
//	results, err := col.SearchSimilar([]float32{0.1, 0.2, 0.3}, 5, 0, nil)
//
// The core is single-threaded cooperative: callers that need multi-writer
// safety must serialize their own access to a collection.
package vecstream
