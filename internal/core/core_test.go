package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkIDDeterministic(t *testing.T) {
	a := ChunkID("octo/widgets", "src/api.py", "fetch_data", 41)
	b := ChunkID("octo/widgets", "src/api.py", "fetch_data", 41)
	assert.Equal(t, a, b, "same identity tuple must yield the same id")

	// Any component change yields a different id.
	assert.NotEqual(t, a, ChunkID("octo/widgets", "src/api.py", "fetch_data", 42))
	assert.NotEqual(t, a, ChunkID("octo/widgets", "src/api.py", "fetch_all", 41))
	assert.NotEqual(t, a, ChunkID("octo/widgets", "src/impl.py", "fetch_data", 41))
	assert.NotEqual(t, a, ChunkID("octo/gadgets", "src/api.py", "fetch_data", 41))
}

func TestChunkKeySafe(t *testing.T) {
	key := ChunkKey("octo/widgets", "src/a b.py", "<anonymous_lambda>", 7)
	assert.Regexp(t, `^[a-zA-Z0-9_]+$`, key)
}

func TestCollectionName(t *testing.T) {
	assert.Equal(t, "github_octo_widgets_main", CollectionName("octo/widgets", "main"))
	assert.Equal(t, "github_octo_widgets_feat_x", CollectionName("octo/widgets", "feat/x"))
}

func TestJobStatusTransitions(t *testing.T) {
	assert.True(t, JobPending.CanTransition(JobRunning))
	assert.True(t, JobRunning.CanTransition(JobCompleted))
	assert.True(t, JobRunning.CanTransition(JobFailed))

	// No reverse edges.
	assert.False(t, JobCompleted.CanTransition(JobRunning))
	assert.False(t, JobFailed.CanTransition(JobPending))
	assert.False(t, JobRunning.CanTransition(JobPending))
	assert.False(t, JobCompleted.CanTransition(JobFailed))
}

func TestRepoMetadataHasUser(t *testing.T) {
	meta := &RepoMetadata{IndexedByUsers: []string{"alice", "bob"}}
	require.True(t, meta.HasUser("alice"))
	require.False(t, meta.HasUser("mallory"))
}
