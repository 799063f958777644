package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLookup(t *testing.T) {
	r := DefaultRegistry()

	assert.Equal(t, "python", r.Lookup("pkg/models.py").Name)
	assert.Equal(t, "go", r.Lookup("main.go").Name)
	assert.Equal(t, "typescript", r.Lookup("src/app.ts").Name)
	assert.Equal(t, "python", r.Lookup("legacy/UTIL.PY").Name, "extension match is case-insensitive")
	assert.Nil(t, r.Lookup("README.md"))
	assert.Nil(t, r.Lookup("Makefile"))
}

func TestRegistryExtensions(t *testing.T) {
	exts := DefaultRegistry().Extensions()
	for _, e := range []string{"py", "js", "ts", "go", "rs", "java", "c", "cpp"} {
		assert.True(t, exts[e], e)
	}
	assert.False(t, exts["md"])
}

func TestParseUnsupportedExtension(t *testing.T) {
	p := New(DefaultRegistry())
	tree, spec, err := p.Parse(context.Background(), "notes.txt", []byte("hello"))
	require.NoError(t, err)
	assert.Nil(t, tree)
	assert.Nil(t, spec)
}

func TestParseProducesTree(t *testing.T) {
	p := New(DefaultRegistry())
	tree, spec, err := p.Parse(context.Background(), "main.py", []byte("def f():\n    pass\n"))
	require.NoError(t, err)
	require.NotNil(t, tree)
	defer tree.Close()
	assert.Equal(t, "python", spec.Name)
	assert.False(t, tree.RootNode().HasError())
}
