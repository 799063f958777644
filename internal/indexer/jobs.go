package indexer

import (
	"sync"

	"github.com/heronlancellot/bee2bee/internal/core"
)

// JobTable is the concurrency-safe registry of indexing jobs: many readers,
// one writer per entry (the orchestrator goroutine running that job).
// Updates can never move a job backwards: status transitions are
// forward-only and progress is clamped to non-decreasing.
type JobTable struct {
	mu   sync.RWMutex
	jobs map[string]*core.IndexingJob
}

// NewJobTable creates an empty job table.
func NewJobTable() *JobTable {
	return &JobTable{jobs: make(map[string]*core.IndexingJob)}
}

// Create registers a job under its id.
func (t *JobTable) Create(job *core.IndexingJob) {
	t.mu.Lock()
	defer t.mu.Unlock()
	clone := *job
	t.jobs[job.JobID] = &clone
}

// Get returns a snapshot of the job's current state, or nil when unknown.
func (t *JobTable) Get(jobID string) *core.IndexingJob {
	t.mu.RLock()
	defer t.mu.RUnlock()
	job, ok := t.jobs[jobID]
	if !ok {
		return nil
	}
	clone := *job
	clone.Errors = append([]string(nil), job.Errors...)
	return &clone
}

// Update applies fn to the job's state, then enforces the forward-only
// invariants: a reverse status transition is discarded and progress never
// decreases.
func (t *JobTable) Update(jobID string, fn func(*core.IndexingJob)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[jobID]
	if !ok {
		return
	}

	prevStatus := job.Status
	prevProgress := job.Progress

	fn(job)

	if job.Status != prevStatus && !prevStatus.CanTransition(job.Status) {
		job.Status = prevStatus
	}
	if job.Progress < prevProgress {
		job.Progress = prevProgress
	}
}
