package store

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/heronlancellot/bee2bee/internal/core"
	"github.com/heronlancellot/bee2bee/internal/embedder"
)

// FakeBackend is an in-memory Backend for tests. It performs real cosine
// ranking over stored NLP vectors so ranking behavior can be asserted
// without a running Qdrant.
type FakeBackend struct {
	mu          sync.RWMutex
	collections map[string]map[string]fakePoint // collection → id → point
}

type fakePoint struct {
	chunk core.CodeChunk
	pair  embedder.Pair
}

// NewFakeBackend creates an empty in-memory backend.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{collections: make(map[string]map[string]fakePoint)}
}

func (f *FakeBackend) EnsureCollection(ctx context.Context, name string, nlpDim, codeDim int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.collections[name]; !ok {
		f.collections[name] = make(map[string]fakePoint)
	}
	return nil
}

func (f *FakeBackend) CollectionExists(ctx context.Context, name string) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.collections[name]
	return ok, nil
}

func (f *FakeBackend) Upsert(ctx context.Context, collection string, chunks []core.CodeChunk, vectors []embedder.Pair) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	points, ok := f.collections[collection]
	if !ok {
		points = make(map[string]fakePoint)
		f.collections[collection] = points
	}
	for i, c := range chunks {
		points[c.ID] = fakePoint{chunk: c, pair: vectors[i]}
	}
	return nil
}

func (f *FakeBackend) Search(ctx context.Context, collection string, vector []float32, limit int) ([]core.SearchResult, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var results []core.SearchResult
	for _, pt := range f.collections[collection] {
		distance := 1 - cosine(vector, pt.pair.NLP)
		results = append(results, core.SearchResult{
			Chunk:    pt.chunk,
			Distance: distance,
			Score:    1.0 / (1.0 + distance),
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// PointCount returns the number of stored points in a collection.
func (f *FakeBackend) PointCount(collection string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.collections[collection])
}

func (f *FakeBackend) Count(ctx context.Context, collection string) (int, error) {
	return f.PointCount(collection), nil
}

func (f *FakeBackend) Close() error { return nil }

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

var _ Backend = (*FakeBackend)(nil)
