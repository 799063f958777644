package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heronlancellot/bee2bee/internal/core"
	"github.com/heronlancellot/bee2bee/internal/embedder"
	"github.com/heronlancellot/bee2bee/internal/fetcher"
	"github.com/heronlancellot/bee2bee/internal/parser"
	"github.com/heronlancellot/bee2bee/internal/store"
)

const pyFixture = `def fetch_data(url):
    """Performs an HTTP request and returns the body."""
    if url:
        return url
    return None


class Client:
    def close(self):
        self.open = False
`

const goFixture = `package util

func Add(a, b int) int {
	return a + b
}

func Sub(a, b int) int {
	return a - b
}
`

const jsFixture = `// Loads a user record by id.
function loadUser(id) {
  return id;
}
`

// stubFetcher serves a pre-built directory instead of cloning.
type stubFetcher struct {
	src    string
	commit string
	err    error
	calls  atomic.Int32
}

func (s *stubFetcher) Fetch(ctx context.Context, owner, name, branch string) (*fetcher.Workspace, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return &fetcher.Workspace{Path: s.src}, nil
}

func (s *stubFetcher) LatestCommit(ctx context.Context, owner, name, branch string) (string, error) {
	return s.commit, nil
}

func writeFixtureRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.py"), []byte(pyFixture), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pkg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pkg", "util.go"), []byte(goFixture), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte(jsFixture), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# readme\n"), 0o644))
	return dir
}

func newTestVectorStore(t *testing.T) *store.VectorStore {
	t.Helper()
	meta, err := store.OpenMetaInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { meta.Close() })

	dual := embedder.NewDual(&embedder.MockEncoder{Dim: 8}, &embedder.MockEncoder{Dim: 8})
	return store.New(store.NewFakeBackend(), meta, dual, 2, nil)
}

func newTestOrchestratorWith(t *testing.T, sf SourceFetcher, cs ChunkStore) *Orchestrator {
	t.Helper()
	p := parser.New(parser.DefaultRegistry())
	o, err := New(sf, p, cs, Options{Workers: 2, JobPoolSize: 1}, nil)
	require.NoError(t, err)
	t.Cleanup(o.Close)
	return o
}

func newTestOrchestrator(t *testing.T, sf SourceFetcher) (*Orchestrator, *store.VectorStore) {
	t.Helper()
	vs := newTestVectorStore(t)
	return newTestOrchestratorWith(t, sf, vs), vs
}

func waitForJob(t *testing.T, o *Orchestrator, jobID string) *core.IndexingJob {
	t.Helper()
	require.Eventually(t, func() bool {
		j := o.JobStatus(jobID)
		return j != nil && (j.Status == core.JobCompleted || j.Status == core.JobFailed)
	}, 10*time.Second, 10*time.Millisecond)
	return o.JobStatus(jobID)
}

func TestIndexRepositoryEndToEnd(t *testing.T) {
	sf := &stubFetcher{src: writeFixtureRepo(t), commit: "abc1234"}
	o, vs := newTestOrchestrator(t, sf)

	job, err := o.IndexRepository(context.Background(), "https://github.com/octo/widgets", "alice", "main", false)
	require.NoError(t, err)
	require.Equal(t, "octo/widgets", job.Repo)

	done := waitForJob(t, o, job.JobID)
	require.Equal(t, core.JobCompleted, done.Status, "errors: %v", done.Errors)
	assert.Equal(t, 1.0, done.Progress)
	assert.Equal(t, 3, done.FilesProcessed) // README.md is not a source file
	assert.Equal(t, 6, done.ChunksIndexed)  // 3 python defs + 2 go funcs + 1 js func
	assert.Empty(t, done.Errors)

	count, err := vs.ChunkCount("octo/widgets", "main")
	require.NoError(t, err)
	assert.Equal(t, 6, count)

	meta, err := vs.Metadata("octo/widgets", "main")
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "abc1234", meta.CommitSHA)
	assert.Equal(t, 3, meta.TotalFiles)
	assert.Equal(t, []string{"go", "javascript", "python"}, meta.Languages)
	assert.True(t, meta.HasUser("alice"))
}

func TestIndexRepositoryAlreadyIndexedGrantsAccess(t *testing.T) {
	sf := &stubFetcher{src: writeFixtureRepo(t), commit: "abc1234"}
	o, vs := newTestOrchestrator(t, sf)

	job, err := o.IndexRepository(context.Background(), "octo/widgets", "alice", "main", false)
	require.NoError(t, err)
	waitForJob(t, o, job.JobID)

	// Second request for the same repo runs no pipeline.
	job2, err := o.IndexRepository(context.Background(), "octo/widgets", "bob", "main", false)
	require.NoError(t, err)
	assert.Equal(t, core.JobCompleted, job2.Status)
	assert.Equal(t, 1.0, job2.Progress)
	assert.Equal(t, 6, job2.ChunksIndexed)
	assert.Equal(t, int32(1), sf.calls.Load())

	meta, err := vs.Metadata("octo/widgets", "main")
	require.NoError(t, err)
	assert.True(t, meta.HasUser("alice"))
	assert.True(t, meta.HasUser("bob"))
}

func TestIndexRepositoryIncrementalReruns(t *testing.T) {
	sf := &stubFetcher{src: writeFixtureRepo(t), commit: "abc1234"}
	o, vs := newTestOrchestrator(t, sf)

	job, err := o.IndexRepository(context.Background(), "octo/widgets", "alice", "main", false)
	require.NoError(t, err)
	waitForJob(t, o, job.JobID)

	job2, err := o.IndexRepository(context.Background(), "octo/widgets", "alice", "main", true)
	require.NoError(t, err)
	done := waitForJob(t, o, job2.JobID)
	require.Equal(t, core.JobCompleted, done.Status)
	assert.Equal(t, int32(2), sf.calls.Load())

	// Deterministic chunk ids make the rerun an upsert, not a duplication.
	count, err := vs.ChunkCount("octo/widgets", "main")
	require.NoError(t, err)
	assert.Equal(t, 6, count)
}

func TestIndexRepositoryFetchFailure(t *testing.T) {
	sf := &stubFetcher{err: core.ErrNetwork}
	o, _ := newTestOrchestrator(t, sf)

	job, err := o.IndexRepository(context.Background(), "octo/widgets", "alice", "main", false)
	require.NoError(t, err)

	done := waitForJob(t, o, job.JobID)
	assert.Equal(t, core.JobFailed, done.Status)
	require.NotEmpty(t, done.Errors)
	assert.Contains(t, done.Errors[0], "fetch")
	assert.Less(t, done.Progress, 1.0)
}

func TestIndexRepositoryInvalidURL(t *testing.T) {
	o, _ := newTestOrchestrator(t, &stubFetcher{})
	_, err := o.IndexRepository(context.Background(), "not-a-repo", "alice", "main", false)
	require.Error(t, err)
}

func TestJobStatusUnknownID(t *testing.T) {
	o, _ := newTestOrchestrator(t, &stubFetcher{})
	assert.Nil(t, o.JobStatus("missing"))
}

func TestParseRepoURL(t *testing.T) {
	cases := []struct {
		in          string
		owner, name string
		wantErr     bool
	}{
		{in: "https://github.com/octo/widgets", owner: "octo", name: "widgets"},
		{in: "https://github.com/octo/widgets.git", owner: "octo", name: "widgets"},
		{in: "github.com/octo/widgets/", owner: "octo", name: "widgets"},
		{in: "octo/widgets", owner: "octo", name: "widgets"},
		{in: "widgets", wantErr: true},
		{in: "", wantErr: true},
		{in: "a/b/c", wantErr: true},
	}
	for _, tc := range cases {
		owner, name, err := ParseRepoURL(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.owner, owner, tc.in)
		assert.Equal(t, tc.name, name, tc.in)
	}
}

func TestJobTableForwardOnly(t *testing.T) {
	table := NewJobTable()
	table.Create(&core.IndexingJob{JobID: "j1", Status: core.JobRunning, Progress: 0.5})

	// Progress never decreases.
	table.Update("j1", func(j *core.IndexingJob) { j.Progress = 0.2 })
	assert.Equal(t, 0.5, table.Get("j1").Progress)

	// Backward status transitions are discarded.
	table.Update("j1", func(j *core.IndexingJob) { j.Status = core.JobPending })
	assert.Equal(t, core.JobRunning, table.Get("j1").Status)

	table.Update("j1", func(j *core.IndexingJob) {
		j.Status = core.JobCompleted
		j.Progress = 1.0
	})
	got := table.Get("j1")
	assert.Equal(t, core.JobCompleted, got.Status)
	assert.Equal(t, 1.0, got.Progress)

	// Terminal states are sticky.
	table.Update("j1", func(j *core.IndexingJob) { j.Status = core.JobFailed })
	assert.Equal(t, core.JobCompleted, table.Get("j1").Status)
}

// failingFinalizeStore commits batches normally but errors on the final
// metadata write.
type failingFinalizeStore struct {
	*store.VectorStore
}

func (f *failingFinalizeStore) FinalizeIndex(repo, branch, commitSHA string, totalFiles int, languages []string) error {
	return errors.New("meta write failed")
}

func TestFailureAfterStoreKeepsProgressBelowOne(t *testing.T) {
	sf := &stubFetcher{src: writeFixtureRepo(t), commit: "abc1234"}
	o := newTestOrchestratorWith(t, sf, &failingFinalizeStore{newTestVectorStore(t)})

	job, err := o.IndexRepository(context.Background(), "octo/widgets", "alice", "main", false)
	require.NoError(t, err)

	done := waitForJob(t, o, job.JobID)
	require.Equal(t, core.JobFailed, done.Status)
	// Full progress is reserved for completed jobs, even when every store
	// batch committed before the failure.
	assert.Less(t, done.Progress, 1.0)
	require.NotEmpty(t, done.Errors)
	assert.Contains(t, done.Errors[len(done.Errors)-1], "finalize")
}

// parkedFetcher holds every Fetch call until proceed is closed.
type parkedFetcher struct {
	proceed chan struct{}
}

func (p *parkedFetcher) Fetch(ctx context.Context, owner, name, branch string) (*fetcher.Workspace, error) {
	<-p.proceed
	return nil, core.ErrNetwork
}

func (p *parkedFetcher) LatestCommit(ctx context.Context, owner, name, branch string) (string, error) {
	return "", nil
}

func TestIndexRepositoryReturnsWhilePoolFull(t *testing.T) {
	pf := &parkedFetcher{proceed: make(chan struct{})}
	o, _ := newTestOrchestrator(t, pf) // pool size 1

	first, err := o.IndexRepository(context.Background(), "octo/widgets", "alice", "main", false)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return o.JobStatus(first.JobID).Status == core.JobRunning
	}, 5*time.Second, 10*time.Millisecond)

	// The only worker is parked inside Fetch; the next request must still
	// return a pending job instead of blocking on submission.
	type reply struct {
		job *core.IndexingJob
		err error
	}
	got := make(chan reply, 1)
	go func() {
		j, err := o.IndexRepository(context.Background(), "octo/gadgets", "alice", "main", false)
		got <- reply{j, err}
	}()

	var second *core.IndexingJob
	select {
	case r := <-got:
		require.NoError(t, r.err)
		second = r.job
		assert.Equal(t, core.JobPending, second.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("IndexRepository blocked while the pool was full")
	}

	close(pf.proceed)
	assert.Equal(t, core.JobFailed, waitForJob(t, o, first.JobID).Status)
	assert.Equal(t, core.JobFailed, waitForJob(t, o, second.JobID).Status)
}
