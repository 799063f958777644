package core

import (
	"errors"
	"fmt"
)

// Fetch failures. All are fatal to the job unless the tarball fallback
// succeeds.
var (
	ErrNetwork        = errors.New("network error")
	ErrAuth           = errors.New("authentication failed")
	ErrBranchNotFound = errors.New("branch not found")
)

// Store failures abort the current job but never sibling jobs.
var ErrStore = errors.New("vector store error")

// ParseError is a per-file failure. It is recorded on the job and never
// aborts the run. Files with no registered grammar are a skip, not a
// ParseError.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// EmbeddingError attributes a batch-scoped embedding failure to a single
// chunk. Sibling chunks in the batch still complete.
type EmbeddingError struct {
	ChunkID string
	Err     error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embed chunk %s: %v", e.ChunkID, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }
