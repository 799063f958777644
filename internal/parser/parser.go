package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/heronlancellot/bee2bee/internal/core"
)

// LanguageSpec binds a tree-sitter grammar to the data the extractor needs.
// Adding a language is a registry entry, never new branching logic.
type LanguageSpec struct {
	Name     string
	Language *sitter.Language
	// Definitions maps definition-like node type names to the chunk type
	// they produce. Nodes outside this set are never chunked.
	Definitions map[string]core.ChunkType
	// ClassTypes are the node types that establish a parent class scope;
	// definitions nested under one become methods.
	ClassTypes map[string]bool
	// ImportTypes are node types collected as file-level imports.
	ImportTypes map[string]bool
	// BranchTypes feed the naive complexity metric.
	BranchTypes map[string]bool
	Extensions  []string
}

// Registry maps file extensions to language specs.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]*LanguageSpec // extension (without dot) → spec
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]*LanguageSpec)}
}

// Register adds a language spec for all of its extensions.
func (r *Registry) Register(spec *LanguageSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range spec.Extensions {
		r.specs[ext] = spec
	}
}

// Lookup returns the language spec for a file path based on its extension, or nil
// when the extension has no registered grammar. Matching is case-insensitive.
func (r *Registry) Lookup(path string) *LanguageSpec {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.specs[ext]
}

// Extensions returns the set of all registered file extensions (without dot).
func (r *Registry) Extensions() map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make(map[string]bool, len(r.specs))
	for ext := range r.specs {
		exts[ext] = true
	}
	return exts
}

// Parser builds concrete syntax trees for files with a registered grammar.
type Parser struct {
	registry *Registry
}

// New creates a parser backed by the given registry.
func New(r *Registry) *Parser {
	return &Parser{registry: r}
}

// Registry exposes the underlying registry for extension checks.
func (p *Parser) Registry() *Registry { return p.registry }

// Parse builds a syntax tree for the source. An unsupported extension is an
// explicit non-error: both tree and spec come back nil and the caller records
// the file as skipped. The caller owns the returned tree and must Close it.
func (p *Parser) Parse(ctx context.Context, path string, src []byte) (*sitter.Tree, *LanguageSpec, error) {
	spec := p.registry.Lookup(path)
	if spec == nil {
		return nil, nil, nil
	}

	sp := sitter.NewParser()
	sp.SetLanguage(spec.Language)
	tree, err := sp.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return tree, spec, nil
}
