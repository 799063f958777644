package embedder

import (
	"context"
	"crypto/sha256"
	"strings"
)

// MockEncoder is a deterministic in-process encoder for tests: each text
// maps to a fixed-width vector derived from its content hash. FailOn marks
// exact texts whose embedding calls fail.
type MockEncoder struct {
	Dim    int
	Name   string
	FailOn map[string]error
	Calls  int
}

func (m *MockEncoder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.Calls++
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		if err, ok := m.FailOn[text]; ok {
			return nil, err
		}
		vecs[i] = m.vector(text)
	}
	return vecs, nil
}

func (m *MockEncoder) vector(text string) []float32 {
	dim := m.Dim
	if dim <= 0 {
		dim = 8
	}
	sum := sha256.Sum256([]byte(strings.ToLower(text)))
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = float32(sum[i%len(sum)]) / 255.0
	}
	return vec
}

func (m *MockEncoder) Dimension(ctx context.Context) (int, error) {
	if m.Dim <= 0 {
		return 8, nil
	}
	return m.Dim, nil
}

func (m *MockEncoder) Model() string {
	if m.Name == "" {
		return "mock"
	}
	return m.Name
}
