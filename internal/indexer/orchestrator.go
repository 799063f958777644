// Package indexer runs the indexing pipeline: fetch a repository snapshot,
// enumerate its source files, parse and chunk them concurrently, then embed
// and store the chunks. Each run is tracked as a background job that callers
// poll for status.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"

	"github.com/heronlancellot/bee2bee/internal/chunker"
	"github.com/heronlancellot/bee2bee/internal/core"
	"github.com/heronlancellot/bee2bee/internal/fetcher"
	"github.com/heronlancellot/bee2bee/internal/parser"
	"github.com/heronlancellot/bee2bee/internal/store"
)

// Progress splits per phase: file processing fills [0, storePhaseStart),
// embedding and storage fill [storePhaseStart, 1.0]. A running job never
// reports 1.0; that value is reserved for the completion update, so a
// failure after the last batch cannot leave a failed job at full progress.
const (
	storePhaseStart    = 0.7
	maxRunningProgress = 0.99
)

// SourceFetcher produces a local snapshot of a remote repository.
type SourceFetcher interface {
	Fetch(ctx context.Context, owner, name, branch string) (*fetcher.Workspace, error)
	LatestCommit(ctx context.Context, owner, name, branch string) (string, error)
}

// ChunkStore is the persistence surface the pipeline writes to.
type ChunkStore interface {
	StoreChunks(ctx context.Context, chunks []core.CodeChunk, repo, userID, branch string, onBatch store.ProgressFunc) (int, []*core.EmbeddingError, error)
	CollectionExists(ctx context.Context, repo, branch string) (bool, error)
	ChunkCount(repo, branch string) (int, error)
	AddUserToRepo(repo, userID, branch string) error
	FinalizeIndex(repo, branch, commitSHA string, totalFiles int, languages []string) error
}

// Options tunes the pipeline's concurrency and file limits.
type Options struct {
	Workers      int           // parallel parse workers per job
	JobPoolSize  int           // concurrent background jobs
	MaxFileSize  int64         // bytes; larger files are skipped
	FetchTimeout time.Duration // deadline for the fetch stage
}

func (o *Options) defaults() {
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.JobPoolSize <= 0 {
		o.JobPoolSize = 2
	}
	if o.MaxFileSize <= 0 {
		o.MaxFileSize = 1 << 20
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 120 * time.Second
	}
}

// Orchestrator starts indexing jobs and answers status queries.
type Orchestrator struct {
	fetcher   SourceFetcher
	parser    *parser.Parser
	extractor *chunker.Extractor
	store     ChunkStore
	jobs      *JobTable
	pool      *ants.Pool
	opts      Options
	logger    *slog.Logger
}

// New creates an Orchestrator backed by a bounded goroutine pool for
// background jobs.
func New(sf SourceFetcher, p *parser.Parser, cs ChunkStore, opts Options, logger *slog.Logger) (*Orchestrator, error) {
	opts.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := ants.NewPool(opts.JobPoolSize, ants.WithNonblocking(false))
	if err != nil {
		return nil, fmt.Errorf("job pool: %w", err)
	}
	return &Orchestrator{
		fetcher:   sf,
		parser:    p,
		extractor: chunker.New(),
		store:     cs,
		jobs:      NewJobTable(),
		pool:      pool,
		opts:      opts,
		logger:    logger,
	}, nil
}

// Close stops accepting jobs and releases the pool. Running jobs finish.
func (o *Orchestrator) Close() {
	o.pool.Release()
}

// IndexRepository starts indexing repoURL's branch for userID and returns
// the tracking job. When the (repo, branch) is already indexed and the
// request is not incremental, no pipeline runs: the user is added to the
// tenant set and an already-completed job is returned.
func (o *Orchestrator) IndexRepository(ctx context.Context, repoURL, userID, branch string, incremental bool) (*core.IndexingJob, error) {
	owner, name, err := ParseRepoURL(repoURL)
	if err != nil {
		return nil, err
	}
	repo := owner + "/" + name
	if branch == "" {
		branch = store.DefaultBranch
	}

	if !incremental {
		exists, err := o.store.CollectionExists(ctx, repo, branch)
		if err != nil {
			return nil, err
		}
		if exists {
			if err := o.store.AddUserToRepo(repo, userID, branch); err != nil {
				return nil, err
			}
			count, err := o.store.ChunkCount(repo, branch)
			if err != nil {
				return nil, err
			}
			job := &core.IndexingJob{
				JobID:         uuid.NewString(),
				Repo:          repo,
				Status:        core.JobCompleted,
				Progress:      1.0,
				ChunksIndexed: count,
				StartedAt:     time.Now().UTC(),
				CompletedAt:   time.Now().UTC(),
				TriggeredBy:   userID,
			}
			o.jobs.Create(job)
			o.logger.Info("repo already indexed, granted access",
				"repo", repo, "branch", branch, "user", userID)
			return o.jobs.Get(job.JobID), nil
		}
	}

	job := &core.IndexingJob{
		JobID:       uuid.NewString(),
		Repo:        repo,
		Status:      core.JobPending,
		TriggeredBy: userID,
		Incremental: incremental,
	}
	o.jobs.Create(job)

	// Submission happens off the caller's goroutine: when the pool is full
	// the job waits as pending instead of blocking the request.
	jobID := job.JobID
	go func() {
		if err := o.pool.Submit(func() {
			o.run(context.Background(), jobID, owner, name, branch, userID)
		}); err != nil {
			o.fail(jobID, fmt.Errorf("submit job: %w", err))
		}
	}()

	return o.jobs.Get(jobID), nil
}

// JobStatus returns the current snapshot of a job, or nil when the id is
// unknown.
func (o *Orchestrator) JobStatus(jobID string) *core.IndexingJob {
	return o.jobs.Get(jobID)
}

// run executes the pipeline for one job. Any unhandled stage error marks
// the job failed; per-file errors are recorded and skipped.
func (o *Orchestrator) run(ctx context.Context, jobID, owner, name, branch, userID string) {
	repo := owner + "/" + name
	log := o.logger.With("job", jobID, "repo", repo, "branch", branch)

	o.jobs.Update(jobID, func(j *core.IndexingJob) {
		j.Status = core.JobRunning
		j.StartedAt = time.Now().UTC()
	})

	fetchCtx, cancel := context.WithTimeout(ctx, o.opts.FetchTimeout)
	ws, err := o.fetcher.Fetch(fetchCtx, owner, name, branch)
	cancel()
	if err != nil {
		o.fail(jobID, fmt.Errorf("fetch: %w", err))
		return
	}
	defer ws.Release()

	// Best effort; an unknown commit leaves the metadata field empty.
	commit, err := o.fetcher.LatestCommit(ctx, owner, name, branch)
	if err != nil {
		log.Warn("commit lookup failed", "error", err)
	}

	files, err := walkRepo(ws.Path, o.parser.Registry().Extensions(), o.opts.MaxFileSize)
	if err != nil {
		o.fail(jobID, fmt.Errorf("walk: %w", err))
		return
	}
	log.Info("enumerated source files", "count", len(files))

	chunks, languages := o.processFiles(ctx, jobID, repo, files)

	stored := 0
	if len(chunks) > 0 {
		var failures []*core.EmbeddingError
		stored, failures, err = o.store.StoreChunks(ctx, chunks, repo, userID, branch, func(done, total int) {
			p := storePhaseStart + (1.0-storePhaseStart)*float64(done)/float64(total)
			if p > maxRunningProgress {
				p = maxRunningProgress
			}
			o.jobs.Update(jobID, func(j *core.IndexingJob) {
				j.Progress = p
			})
		})
		for _, f := range failures {
			fe := f
			o.jobs.Update(jobID, func(j *core.IndexingJob) {
				j.Errors = append(j.Errors, fe.Error())
			})
		}
		if err != nil {
			o.fail(jobID, fmt.Errorf("store: %w", err))
			return
		}
	}

	if err := o.store.FinalizeIndex(repo, branch, commit, len(files), languages); err != nil {
		o.fail(jobID, fmt.Errorf("finalize: %w", err))
		return
	}

	o.jobs.Update(jobID, func(j *core.IndexingJob) {
		j.Status = core.JobCompleted
		j.Progress = 1.0
		j.ChunksIndexed = stored
		j.CompletedAt = time.Now().UTC()
	})
	log.Info("indexing completed", "files", len(files), "chunks", stored)
}

// processFiles parses and chunks the files with bounded concurrency,
// advancing job progress as each file finishes. Per-file failures are
// recorded on the job and do not abort the run.
func (o *Orchestrator) processFiles(ctx context.Context, jobID, repo string, files []FileInfo) ([]core.CodeChunk, []string) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Workers)

	var (
		mu        sync.Mutex
		allChunks []core.CodeChunk
		langs     = map[string]bool{}
		processed int
	)

	for _, file := range files {
		f := file
		g.Go(func() error {
			chunks, lang, err := o.processFile(gctx, repo, f)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				perr := &core.ParseError{Path: f.RelPath, Err: err}
				o.jobs.Update(jobID, func(j *core.IndexingJob) {
					j.Errors = append(j.Errors, perr.Error())
				})
			} else {
				allChunks = append(allChunks, chunks...)
				if lang != "" {
					langs[lang] = true
				}
			}
			processed++
			done := processed
			o.jobs.Update(jobID, func(j *core.IndexingJob) {
				j.FilesProcessed = done
				j.Progress = storePhaseStart * float64(done) / float64(len(files))
			})
			return nil
		})
	}
	g.Wait()

	var languages []string
	for l := range langs {
		languages = append(languages, l)
	}
	sort.Strings(languages)
	return allChunks, languages
}

func (o *Orchestrator) processFile(ctx context.Context, repo string, f FileInfo) ([]core.CodeChunk, string, error) {
	src, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, "", err
	}
	tree, spec, err := o.parser.Parse(ctx, f.Path, src)
	if err != nil {
		return nil, "", err
	}
	if tree == nil {
		return nil, "", nil // unsupported extension slipped past the walker
	}
	defer tree.Close()
	return o.extractor.Extract(tree, src, repo, f.RelPath, spec), spec.Name, nil
}

func (o *Orchestrator) fail(jobID string, err error) {
	o.logger.Error("indexing failed", "job", jobID, "error", err)
	o.jobs.Update(jobID, func(j *core.IndexingJob) {
		j.Status = core.JobFailed
		j.Errors = append(j.Errors, err.Error())
		j.CompletedAt = time.Now().UTC()
	})
}

// ParseRepoURL accepts a GitHub https URL or a bare owner/name and returns
// the owner and repository name.
func ParseRepoURL(repoURL string) (owner, name string, err error) {
	s := strings.TrimSpace(repoURL)
	s = strings.TrimSuffix(s, ".git")
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "github.com/")
	s = strings.Trim(s, "/")

	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository %q: want owner/name or a github.com URL", repoURL)
	}
	return parts[0], parts[1], nil
}
