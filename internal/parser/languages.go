package parser

import (
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/heronlancellot/bee2bee/internal/core"
)

// DefaultRegistry registers every supported grammar. The per-language node
// type sets are the only thing that differs between languages; the extractor
// itself is language-agnostic.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(&LanguageSpec{
		Name:     "python",
		Language: python.GetLanguage(),
		Definitions: map[string]core.ChunkType{
			"function_definition": core.ChunkFunction,
			"class_definition":    core.ChunkClass,
		},
		ClassTypes:  map[string]bool{"class_definition": true},
		ImportTypes: map[string]bool{"import_statement": true, "import_from_statement": true},
		BranchTypes: map[string]bool{
			"if_statement": true, "for_statement": true, "while_statement": true,
			"except_clause": true, "boolean_operator": true, "conditional_expression": true,
		},
		Extensions: []string{"py", "pyi"},
	})

	r.Register(&LanguageSpec{
		Name:     "javascript",
		Language: javascript.GetLanguage(),
		Definitions: map[string]core.ChunkType{
			"function_declaration":           core.ChunkFunction,
			"generator_function_declaration": core.ChunkFunction,
			"class_declaration":              core.ChunkClass,
			"method_definition":              core.ChunkMethod,
		},
		ClassTypes:  map[string]bool{"class_declaration": true, "class": true},
		ImportTypes: map[string]bool{"import_statement": true},
		BranchTypes: map[string]bool{
			"if_statement": true, "for_statement": true, "while_statement": true,
			"switch_case": true, "catch_clause": true, "ternary_expression": true,
		},
		Extensions: []string{"js", "jsx", "mjs", "cjs"},
	})

	r.Register(&LanguageSpec{
		Name:     "typescript",
		Language: typescript.GetLanguage(),
		Definitions: map[string]core.ChunkType{
			"function_declaration":  core.ChunkFunction,
			"class_declaration":     core.ChunkClass,
			"method_definition":     core.ChunkMethod,
			"interface_declaration": core.ChunkInterface,
		},
		ClassTypes:  map[string]bool{"class_declaration": true},
		ImportTypes: map[string]bool{"import_statement": true},
		BranchTypes: map[string]bool{
			"if_statement": true, "for_statement": true, "while_statement": true,
			"switch_case": true, "catch_clause": true, "ternary_expression": true,
		},
		Extensions: []string{"ts", "tsx"},
	})

	r.Register(&LanguageSpec{
		Name:     "go",
		Language: golang.GetLanguage(),
		Definitions: map[string]core.ChunkType{
			"function_declaration": core.ChunkFunction,
			"method_declaration":   core.ChunkMethod,
			"type_declaration":     core.ChunkStruct,
		},
		ImportTypes: map[string]bool{"import_declaration": true},
		BranchTypes: map[string]bool{
			"if_statement": true, "for_statement": true,
			"expression_case": true, "type_case": true, "select_statement": true,
		},
		Extensions: []string{"go"},
	})

	r.Register(&LanguageSpec{
		Name:     "rust",
		Language: rust.GetLanguage(),
		Definitions: map[string]core.ChunkType{
			"function_item": core.ChunkFunction,
			"struct_item":   core.ChunkStruct,
			"enum_item":     core.ChunkStruct,
			"trait_item":    core.ChunkInterface,
			"impl_item":     core.ChunkClass,
		},
		ClassTypes:  map[string]bool{"impl_item": true},
		ImportTypes: map[string]bool{"use_declaration": true},
		BranchTypes: map[string]bool{
			"if_expression": true, "match_arm": true, "while_expression": true,
			"for_expression": true, "loop_expression": true,
		},
		Extensions: []string{"rs"},
	})

	r.Register(&LanguageSpec{
		Name:     "java",
		Language: java.GetLanguage(),
		Definitions: map[string]core.ChunkType{
			"method_declaration":      core.ChunkMethod,
			"constructor_declaration": core.ChunkMethod,
			"class_declaration":       core.ChunkClass,
			"interface_declaration":   core.ChunkInterface,
		},
		ClassTypes:  map[string]bool{"class_declaration": true},
		ImportTypes: map[string]bool{"import_declaration": true},
		BranchTypes: map[string]bool{
			"if_statement": true, "for_statement": true, "while_statement": true,
			"switch_block_statement_group": true, "catch_clause": true, "ternary_expression": true,
		},
		Extensions: []string{"java"},
	})

	r.Register(&LanguageSpec{
		Name:     "c",
		Language: c.GetLanguage(),
		Definitions: map[string]core.ChunkType{
			"function_definition": core.ChunkFunction,
			"struct_specifier":    core.ChunkStruct,
		},
		ImportTypes: map[string]bool{"preproc_include": true},
		BranchTypes: map[string]bool{
			"if_statement": true, "for_statement": true, "while_statement": true,
			"case_statement": true, "conditional_expression": true,
		},
		Extensions: []string{"c", "h"},
	})

	r.Register(&LanguageSpec{
		Name:     "cpp",
		Language: cpp.GetLanguage(),
		Definitions: map[string]core.ChunkType{
			"function_definition": core.ChunkFunction,
			"class_specifier":     core.ChunkClass,
			"struct_specifier":    core.ChunkStruct,
		},
		ClassTypes:  map[string]bool{"class_specifier": true},
		ImportTypes: map[string]bool{"preproc_include": true},
		BranchTypes: map[string]bool{
			"if_statement": true, "for_statement": true, "while_statement": true,
			"case_statement": true, "catch_clause": true, "conditional_expression": true,
		},
		Extensions: []string{"cpp", "cc", "cxx", "hpp"},
	})

	return r
}
