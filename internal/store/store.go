// Package store persists chunk vectors in per-(repo, branch) collections
// and serves ranked nearest-neighbor search across them. Vectors live in
// Qdrant; collection metadata (tenant set, counts, timestamps) lives in a
// Badger key-value store.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/heronlancellot/bee2bee/internal/core"
	"github.com/heronlancellot/bee2bee/internal/embedder"
)

// DefaultBranch is assumed when a caller addresses a repo without naming a
// branch, mirroring the collection naming scheme.
const DefaultBranch = "main"

// VectorStore owns the vector collections and their metadata records.
type VectorStore struct {
	backend   Backend
	meta      *MetaStore
	dual      *embedder.Dual
	batchSize int
	logger    *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per-collection writer locks
}

// New creates a VectorStore. batchSize bounds how many chunks are embedded
// and upserted per round trip.
func New(backend Backend, meta *MetaStore, dual *embedder.Dual, batchSize int, logger *slog.Logger) *VectorStore {
	if batchSize <= 0 {
		batchSize = 50
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &VectorStore{
		backend:   backend,
		meta:      meta,
		dual:      dual,
		batchSize: batchSize,
		logger:    logger,
		locks:     make(map[string]*sync.Mutex),
	}
}

// collectionLock returns the single-writer lock for a collection, so
// concurrent jobs against different collections never serialize each other.
func (s *VectorStore) collectionLock(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[name]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[name] = lock
	}
	return lock
}

// ProgressFunc reports how many chunks out of total have been committed.
type ProgressFunc func(done, total int)

// StoreChunks embeds and upserts chunks into the (repo, branch) collection
// in bounded batches, advancing the collection's chunk count and timestamp
// after each batch commits. Embedding failures are attributed per chunk and
// do not abort sibling batches. onBatch, when non-nil, is called after each
// committed batch. Returns the number of chunks stored.
func (s *VectorStore) StoreChunks(ctx context.Context, chunks []core.CodeChunk, repo, userID, branch string, onBatch ProgressFunc) (int, []*core.EmbeddingError, error) {
	if len(chunks) == 0 {
		return 0, nil, nil
	}
	name := core.CollectionName(repo, branch)

	lock := s.collectionLock(name)
	lock.Lock()
	defer lock.Unlock()

	nlpDim, codeDim, err := s.dual.Dimensions(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: embedding dimensions: %v", core.ErrStore, err)
	}
	if err := s.backend.EnsureCollection(ctx, name, nlpDim, codeDim); err != nil {
		return 0, nil, err
	}

	if err := s.meta.Update(name, func(meta *core.RepoMetadata) {
		meta.RepoFullName = repo
		meta.Branch = branch
		if meta.IndexedAt.IsZero() {
			meta.IndexedAt = time.Now().UTC()
		}
		if !meta.HasUser(userID) {
			meta.IndexedByUsers = append(meta.IndexedByUsers, userID)
		}
	}); err != nil {
		return 0, nil, err
	}

	stored := 0
	var failures []*core.EmbeddingError

	for start := 0; start < len(chunks); start += s.batchSize {
		end := min(start+s.batchSize, len(chunks))
		batch := chunks[start:end]

		pairs, batchFails := s.dual.EmbedChunks(ctx, batch)
		failures = append(failures, batchFails...)

		// Only chunks with both vectors present are stored.
		var okChunks []core.CodeChunk
		var okPairs []embedder.Pair
		for i := range batch {
			if pairs[i].NLP == nil || pairs[i].Code == nil {
				continue
			}
			okChunks = append(okChunks, batch[i])
			okPairs = append(okPairs, pairs[i])
		}
		if len(okChunks) == 0 {
			if onBatch != nil {
				onBatch(end, len(chunks))
			}
			continue
		}

		if err := s.backend.Upsert(ctx, name, okChunks, okPairs); err != nil {
			return stored, failures, err
		}
		stored += len(okChunks)

		if err := s.meta.Update(name, func(meta *core.RepoMetadata) {
			meta.TotalChunks = stored
		}); err != nil {
			return stored, failures, err
		}

		s.logger.Debug("stored chunk batch",
			"collection", name, "batch_end", end, "total", len(chunks))

		if onBatch != nil {
			onBatch(end, len(chunks))
		}
	}

	// A re-index that loses some chunks to embedding failures still leaves
	// the earlier points in place, so the authoritative chunk count is the
	// collection's, not this run's.
	total, err := s.backend.Count(ctx, name)
	if err != nil {
		return stored, failures, err
	}
	if err := s.meta.Update(name, func(meta *core.RepoMetadata) {
		meta.TotalChunks = total
	}); err != nil {
		return stored, failures, err
	}

	return stored, failures, nil
}

// FinalizeIndex records run-level facts on the collection metadata.
func (s *VectorStore) FinalizeIndex(repo, branch, commitSHA string, totalFiles int, languages []string) error {
	name := core.CollectionName(repo, branch)
	return s.meta.Update(name, func(meta *core.RepoMetadata) {
		meta.CommitSHA = commitSHA
		meta.TotalFiles = totalFiles
		meta.Languages = languages
	})
}

// Search embeds the query once, asks every authorized collection for its
// local top-k in the NLP vector space, and merges candidates into the
// global top-k by similarity. Collections where the user is not in the
// tenant set are silently excluded; so are repos never indexed.
func (s *VectorStore) Search(ctx context.Context, query string, repos []string, userID string, k int) ([]core.SearchResult, error) {
	if k <= 0 {
		k = 10
	}
	if len(repos) == 0 {
		return []core.SearchResult{}, nil
	}

	pair, err := s.dual.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var all []core.SearchResult
	for _, repo := range repos {
		name := core.CollectionName(repo, DefaultBranch)

		meta, err := s.meta.Get(name)
		if err != nil {
			return nil, err
		}
		if meta == nil || !meta.HasUser(userID) {
			// Authorization failure is a silent exclusion, not an error.
			continue
		}

		results, err := s.backend.Search(ctx, name, pair.NLP, k)
		if err != nil {
			return nil, err
		}
		for i := range results {
			results[i].FileURL = sourceURL(results[i].Chunk, meta.Branch)
		}
		all = append(all, results...)
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Score > all[j].Score })
	if len(all) > k {
		all = all[:k]
	}
	return all, nil
}

// CollectionExists reports whether the (repo, branch) pair has been indexed.
func (s *VectorStore) CollectionExists(ctx context.Context, repo, branch string) (bool, error) {
	return s.backend.CollectionExists(ctx, core.CollectionName(repo, branch))
}

// ChunkCount returns the indexed chunk count for a (repo, branch).
func (s *VectorStore) ChunkCount(repo, branch string) (int, error) {
	meta, err := s.meta.Get(core.CollectionName(repo, branch))
	if err != nil {
		return 0, err
	}
	if meta == nil {
		return 0, nil
	}
	return meta.TotalChunks, nil
}

// AddUserToRepo grants a user read access to an indexed (repo, branch).
// Idempotent.
func (s *VectorStore) AddUserToRepo(repo, userID, branch string) error {
	return s.meta.AddUser(core.CollectionName(repo, branch), userID)
}

// Metadata returns the collection record for a (repo, branch), or nil.
func (s *VectorStore) Metadata(repo, branch string) (*core.RepoMetadata, error) {
	return s.meta.Get(core.CollectionName(repo, branch))
}

// Close releases the backend connection and the metadata database.
func (s *VectorStore) Close() error {
	backendErr := s.backend.Close()
	metaErr := s.meta.Close()
	if backendErr != nil {
		return backendErr
	}
	return metaErr
}

func sourceURL(c core.CodeChunk, branch string) string {
	return fmt.Sprintf("https://github.com/%s/blob/%s/%s#L%d-L%d",
		c.Repo, branch, c.FilePath, c.StartLine, c.EndLine)
}
