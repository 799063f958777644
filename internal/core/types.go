package core

import "time"

// ChunkType classifies the kind of definition a chunk was extracted from.
type ChunkType string

const (
	ChunkFunction  ChunkType = "function"
	ChunkMethod    ChunkType = "method"
	ChunkClass     ChunkType = "class"
	ChunkStruct    ChunkType = "struct"
	ChunkInterface ChunkType = "interface"
)

// CodeChunk is the indexable unit of code: one function, method, or class
// definition plus its metadata. Immutable once stored; re-indexing the same
// content upserts under the same deterministic ID.
type CodeChunk struct {
	ID   string `json:"id"`
	Code string `json:"code"`

	Repo     string    `json:"repo"`      // owner/name
	FilePath string    `json:"file_path"` // relative to repo root
	Language string    `json:"language"`
	Type     ChunkType `json:"chunk_type"`

	Name      string `json:"name"`
	Signature string `json:"signature,omitempty"`
	Docstring string `json:"docstring,omitempty"`

	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`
	StartByte int `json:"start_byte"`
	EndByte   int `json:"end_byte"`

	ParentClass string   `json:"parent_class,omitempty"`
	Module      string   `json:"module,omitempty"`
	Imports     []string `json:"imports,omitempty"`

	Complexity  int `json:"complexity,omitempty"`
	LinesOfCode int `json:"lines_of_code"`
}

// RepoMetadata is the collection-level record for one indexed (repo, branch).
type RepoMetadata struct {
	RepoFullName string `json:"repo_full_name"` // owner/name
	Branch       string `json:"branch"`
	CommitSHA    string `json:"commit_sha,omitempty"`

	TotalFiles  int      `json:"total_files"`
	TotalChunks int      `json:"total_chunks"`
	Languages   []string `json:"languages,omitempty"`

	IndexedAt   time.Time `json:"indexed_at"`
	LastUpdated time.Time `json:"last_updated"`

	// IndexedByUsers is the tenant set: user ids with read access.
	IndexedByUsers []string `json:"indexed_by_users"`
}

// HasUser reports whether the tenant set contains the given user id.
func (m *RepoMetadata) HasUser(userID string) bool {
	for _, u := range m.IndexedByUsers {
		if u == userID {
			return true
		}
	}
	return false
}

// JobStatus is the lifecycle state of an indexing job. Transitions are
// forward-only: pending → running → completed | failed.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// rank orders statuses so that updates can never move a job backwards.
func (s JobStatus) rank() int {
	switch s {
	case JobPending:
		return 0
	case JobRunning:
		return 1
	case JobCompleted, JobFailed:
		return 2
	}
	return -1
}

// CanTransition reports whether moving to next is a forward transition.
func (s JobStatus) CanTransition(next JobStatus) bool {
	return next.rank() > s.rank()
}

// IndexingJob is the single current-state record for one indexing run.
// It is mutated only through the orchestrator's job table.
type IndexingJob struct {
	JobID  string    `json:"job_id"`
	Repo   string    `json:"repo"` // owner/name
	Status JobStatus `json:"status"`

	// Progress is in [0,1], monotonically non-decreasing, and equals 1.0
	// exactly when the job completed.
	Progress       float64  `json:"progress"`
	FilesProcessed int      `json:"files_processed"`
	ChunksIndexed  int      `json:"chunks_indexed"`
	Errors         []string `json:"errors,omitempty"`

	StartedAt   time.Time `json:"started_at,omitempty"`
	CompletedAt time.Time `json:"completed_at,omitempty"`

	TriggeredBy string `json:"triggered_by"`
	Incremental bool   `json:"incremental"`
}

// SearchResult is one ranked hit from semantic search. Produced fresh per
// query, never persisted.
type SearchResult struct {
	Chunk    CodeChunk `json:"chunk"`
	Score    float64   `json:"score"`    // 1 / (1 + distance)
	Distance float64   `json:"distance"` // raw vector distance

	SurroundingCode string `json:"surrounding_code,omitempty"`
	FileURL         string `json:"file_url,omitempty"`
}
