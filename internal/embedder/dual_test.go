package embedder

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heronlancellot/bee2bee/internal/core"
)

func sampleChunks(n int) []core.CodeChunk {
	chunks := make([]core.CodeChunk, n)
	for i := range chunks {
		name := fmt.Sprintf("func_%d", i)
		chunks[i] = core.CodeChunk{
			ID:       core.ChunkID("octo/widgets", "a.py", name, i+1),
			Name:     name,
			Type:     core.ChunkFunction,
			Code:     fmt.Sprintf("def %s():\n    pass", name),
			FilePath: "a.py",
		}
	}
	return chunks
}

func TestEmbedChunksOrderAndCount(t *testing.T) {
	d := NewDual(&MockEncoder{Dim: 4}, &MockEncoder{Dim: 6})
	chunks := sampleChunks(5)

	pairs, failures := d.EmbedChunks(context.Background(), chunks)
	require.Empty(t, failures)
	require.Len(t, pairs, len(chunks), "N chunks in, N pairs out")

	for i, p := range pairs {
		assert.Len(t, p.NLP, 4)
		assert.Len(t, p.Code, 6)
		// Order preserved: pair i derives from chunk i's code text.
		want := (&MockEncoder{Dim: 6}).vector(chunks[i].Code)
		assert.Equal(t, want, p.Code)
	}
}

func TestEmbedChunksPartialFailure(t *testing.T) {
	chunks := sampleChunks(3)
	bad := chunks[1].Code
	code := &MockEncoder{Dim: 4, FailOn: map[string]error{bad: errors.New("model overloaded")}}
	d := NewDual(&MockEncoder{Dim: 4}, code)

	pairs, failures := d.EmbedChunks(context.Background(), chunks)
	require.Len(t, pairs, 3, "failures never shrink the output")

	require.Len(t, failures, 1)
	assert.Equal(t, chunks[1].ID, failures[0].ChunkID, "failure is attributed to the affected chunk")

	// Siblings in the batch still completed.
	assert.NotNil(t, pairs[0].Code)
	assert.Nil(t, pairs[1].Code)
	assert.NotNil(t, pairs[2].Code)
	for _, p := range pairs {
		assert.NotNil(t, p.NLP)
	}
}

func TestEmbedQueryUsesBothEncoders(t *testing.T) {
	nlp := &MockEncoder{Dim: 4}
	code := &MockEncoder{Dim: 6}
	d := NewDual(nlp, code)

	pair, err := d.EmbedQuery(context.Background(), "http request function")
	require.NoError(t, err)
	assert.Len(t, pair.NLP, 4)
	assert.Len(t, pair.Code, 6)

	// The same query embedded twice lands on identical vectors.
	again, err := d.EmbedQuery(context.Background(), "http request function")
	require.NoError(t, err)
	assert.Equal(t, pair, again)
}

func TestDimensions(t *testing.T) {
	d := NewDual(&MockEncoder{Dim: 384}, &MockEncoder{Dim: 768})
	nlpDim, codeDim, err := d.Dimensions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 384, nlpDim)
	assert.Equal(t, 768, codeDim)
}
