// Package chunker slices syntax trees into function, method, and class level
// chunks. Which node types count as a definition is data on the language
// spec, so the walk itself is language-agnostic.
package chunker

import (
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/heronlancellot/bee2bee/internal/core"
	"github.com/heronlancellot/bee2bee/internal/parser"
)

// Extractor converts syntax trees into CodeChunks.
type Extractor struct{}

// New creates an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract walks the tree and returns one chunk per definition-like node.
// Identical input bytes always produce identical chunk id and span sets.
func (e *Extractor) Extract(tree *sitter.Tree, src []byte, repo, filePath string, spec *parser.LanguageSpec) []core.CodeChunk {
	root := tree.RootNode()
	imports := collectImports(root, src, spec)

	var chunks []core.CodeChunk
	e.walk(root, src, repo, filePath, spec, "", imports, &chunks)
	return chunks
}

// walk recurses through the tree, carrying the name of the nearest enclosing
// class so nested definitions become methods.
func (e *Extractor) walk(node *sitter.Node, src []byte, repo, filePath string, spec *parser.LanguageSpec, parentClass string, imports []string, out *[]core.CodeChunk) {
	nodeType := node.Type()

	if chunkType, ok := spec.Definitions[nodeType]; ok {
		*out = append(*out, e.nodeToChunk(node, src, repo, filePath, spec, chunkType, parentClass, imports))
	}

	nextParent := parentClass
	if spec.ClassTypes[nodeType] {
		if name := nodeName(node, src); name != "" {
			nextParent = name
		}
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		e.walk(node.NamedChild(i), src, repo, filePath, spec, nextParent, imports, out)
	}
}

func (e *Extractor) nodeToChunk(node *sitter.Node, src []byte, repo, filePath string, spec *parser.LanguageSpec, chunkType core.ChunkType, parentClass string, imports []string) core.CodeChunk {
	name := nodeName(node, src)
	if name == "" {
		name = "<anonymous_" + node.Type() + ">"
	}

	code := node.Content(src)
	signature := code
	if idx := strings.IndexByte(code, '\n'); idx >= 0 {
		signature = code[:idx]
	}
	signature = strings.TrimSpace(signature)

	// Lines are 1-based; tree-sitter rows are 0-based.
	startLine := int(node.StartPoint().Row) + 1
	endLine := int(node.EndPoint().Row) + 1

	// A function nested in a class scope is a method.
	if chunkType == core.ChunkFunction && parentClass != "" {
		chunkType = core.ChunkMethod
	}

	return core.CodeChunk{
		ID:          core.ChunkID(repo, filePath, name, startLine),
		Code:        code,
		Repo:        repo,
		FilePath:    filePath,
		Language:    spec.Name,
		Type:        chunkType,
		Name:        name,
		Signature:   signature,
		Docstring:   docstring(node, src, spec),
		StartLine:   startLine,
		EndLine:     endLine,
		StartByte:   int(node.StartByte()),
		EndByte:     int(node.EndByte()),
		ParentClass: parentClass,
		Module:      moduleName(filePath),
		Imports:     imports,
		Complexity:  complexity(node, spec),
		LinesOfCode: endLine - startLine + 1,
	}
}

// nameFallbackTypes are identifier-like node types searched when a grammar
// has no "name" field on the definition node.
var nameFallbackTypes = map[string]bool{
	"identifier":          true,
	"field_identifier":    true,
	"type_identifier":     true,
	"property_identifier": true,
}

// nodeName extracts the definition's name. The name field covers most
// grammars; C-family function definitions hide the identifier inside nested
// declarators, so those are descended explicitly before the generic scan.
func nodeName(node *sitter.Node, src []byte) string {
	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		return nameNode.Content(src)
	}

	if decl := node.ChildByFieldName("declarator"); decl != nil {
		for decl != nil {
			if nameFallbackTypes[decl.Type()] {
				return decl.Content(src)
			}
			if inner := decl.ChildByFieldName("declarator"); inner != nil {
				decl = inner
				continue
			}
			break
		}
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if nameFallbackTypes[child.Type()] {
			return child.Content(src)
		}
	}
	return ""
}

// collectImports gathers file-level import statements.
func collectImports(root *sitter.Node, src []byte, spec *parser.LanguageSpec) []string {
	if len(spec.ImportTypes) == 0 {
		return nil
	}
	var imports []string
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if spec.ImportTypes[n.Type()] {
			imports = append(imports, strings.TrimSpace(n.Content(src)))
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			visit(n.NamedChild(i))
		}
	}
	visit(root)
	return imports
}

// complexity is a naive cyclomatic estimate: one plus the number of branch
// points inside the definition.
func complexity(node *sitter.Node, spec *parser.LanguageSpec) int {
	if len(spec.BranchTypes) == 0 {
		return 0
	}
	count := 1
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if spec.BranchTypes[n.Type()] {
			count++
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			visit(n.NamedChild(i))
		}
	}
	visit(node)
	return count
}

// moduleName derives a dotted module path from the file path,
// e.g. "src/api/client.py" → "src.api.client".
func moduleName(filePath string) string {
	p := strings.TrimSuffix(filePath, filepath.Ext(filePath))
	return strings.ReplaceAll(filepath.ToSlash(p), "/", ".")
}
