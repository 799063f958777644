package embedder

import (
	"context"
	"fmt"

	"github.com/heronlancellot/bee2bee/internal/core"
)

// Pair holds the two complementary vectors computed for one chunk or query.
type Pair struct {
	NLP  []float32
	Code []float32
}

// Dual computes both representations: the textified chunk through a general
// text encoder and the verbatim code through a code-specialized encoder.
// Queries go through the identical encoders so query and corpus vectors live
// in the same spaces.
type Dual struct {
	nlp  Encoder
	code Encoder
}

// NewDual creates a dual embedder from two encoders.
func NewDual(nlp, code Encoder) *Dual {
	return &Dual{nlp: nlp, code: code}
}

// Dimensions returns the (nlp, code) vector widths.
func (d *Dual) Dimensions(ctx context.Context) (int, int, error) {
	nlpDim, err := d.nlp.Dimension(ctx)
	if err != nil {
		return 0, 0, err
	}
	codeDim, err := d.code.Dimension(ctx)
	if err != nil {
		return 0, 0, err
	}
	return nlpDim, codeDim, nil
}

// EmbedChunks returns exactly one Pair per input chunk, in input order.
// A failure never silently drops items: when a batch call fails, each chunk
// is retried individually and failures are reported against that chunk's id
// while the rest of the batch completes. A failed chunk's Pair has nil
// vectors and appears in the returned error list.
func (d *Dual) EmbedChunks(ctx context.Context, chunks []core.CodeChunk) ([]Pair, []*core.EmbeddingError) {
	if len(chunks) == 0 {
		return nil, nil
	}

	textified := make([]string, len(chunks))
	codes := make([]string, len(chunks))
	for i, c := range chunks {
		textified[i] = Textify(c)
		codes[i] = c.Code
	}

	pairs := make([]Pair, len(chunks))
	var failures []*core.EmbeddingError

	nlpVecs, nlpFails := d.embedWithFallback(ctx, d.nlp, textified, chunks)
	codeVecs, codeFails := d.embedWithFallback(ctx, d.code, codes, chunks)
	failures = append(failures, nlpFails...)
	failures = append(failures, codeFails...)

	for i := range chunks {
		pairs[i] = Pair{NLP: nlpVecs[i], Code: codeVecs[i]}
	}
	return pairs, failures
}

// embedWithFallback embeds the whole batch in one call; on failure it falls
// back to per-item calls so one bad chunk cannot take down its siblings.
func (d *Dual) embedWithFallback(ctx context.Context, enc Encoder, texts []string, chunks []core.CodeChunk) ([][]float32, []*core.EmbeddingError) {
	vecs, err := enc.Embed(ctx, texts)
	if err == nil && len(vecs) == len(texts) {
		return vecs, nil
	}

	out := make([][]float32, len(texts))
	var failures []*core.EmbeddingError
	for i, text := range texts {
		single, err := enc.Embed(ctx, []string{text})
		if err != nil {
			failures = append(failures, &core.EmbeddingError{ChunkID: chunks[i].ID, Err: err})
			continue
		}
		out[i] = single[0]
	}
	return out, failures
}

// EmbedQuery embeds a literal query string with both encoders.
func (d *Dual) EmbedQuery(ctx context.Context, query string) (Pair, error) {
	nlpVecs, err := d.nlp.Embed(ctx, []string{query})
	if err != nil {
		return Pair{}, fmt.Errorf("embed query (nlp): %w", err)
	}
	codeVecs, err := d.code.Embed(ctx, []string{query})
	if err != nil {
		return Pair{}, fmt.Errorf("embed query (code): %w", err)
	}
	return Pair{NLP: nlpVecs[0], Code: codeVecs[0]}, nil
}
