package chunker

import (
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Registry holds the five AST-capable languages from spec.md §4.3, each
// with the tree-sitter grammar and the set of declaration node kinds that
// count as a chunk boundary.
type Registry struct {
	mu          sync.RWMutex
	configs     map[string]*LanguageConfig
	extToLang   map[string]string
	tsLanguages map[string]*sitter.Language
}

func NewRegistry() *Registry {
	r := &Registry{
		configs:     make(map[string]*LanguageConfig),
		extToLang:   make(map[string]string),
		tsLanguages: make(map[string]*sitter.Language),
	}
	r.register(&LanguageConfig{
		Name:             "go",
		Extensions:       []string{".go"},
		DeclarationKinds: []string{"function_declaration", "method_declaration", "type_declaration", "const_declaration", "var_declaration"},
		NameField:        "name",
	}, golang.GetLanguage())

	r.register(&LanguageConfig{
		Name:             "python",
		Extensions:       []string{".py"},
		DeclarationKinds: []string{"function_definition", "class_definition"},
		NameField:        "name",
	}, python.GetLanguage())

	r.register(&LanguageConfig{
		Name:             "rust",
		Extensions:       []string{".rs"},
		DeclarationKinds: []string{"function_item", "struct_item", "enum_item", "impl_item", "trait_item", "mod_item", "type_item"},
		NameField:        "name",
	}, rust.GetLanguage())

	r.register(&LanguageConfig{
		Name:             "javascript",
		Extensions:       []string{".js", ".mjs", ".jsx"},
		DeclarationKinds: []string{"function_declaration", "class_declaration", "lexical_declaration", "variable_declaration"},
		NameField:        "name",
	}, javascript.GetLanguage())

	r.register(&LanguageConfig{
		Name:             "typescript",
		Extensions:       []string{".ts"},
		DeclarationKinds: []string{"function_declaration", "class_declaration", "interface_declaration", "type_alias_declaration", "lexical_declaration"},
		NameField:        "name",
	}, typescript.GetLanguage())

	r.register(&LanguageConfig{
		Name:             "tsx",
		Extensions:       []string{".tsx"},
		DeclarationKinds: []string{"function_declaration", "class_declaration", "interface_declaration", "type_alias_declaration", "lexical_declaration"},
		NameField:        "name",
	}, tsx.GetLanguage())

	return r
}

func (r *Registry) register(cfg *LanguageConfig, lang *sitter.Language) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[cfg.Name] = cfg
	r.tsLanguages[cfg.Name] = lang
	for _, ext := range cfg.Extensions {
		r.extToLang[ext] = cfg.Name
	}
}

// LanguageForExtension maps a file extension (with leading dot) to a
// language name, or "" if unrecognized.
func (r *Registry) LanguageForExtension(ext string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ext = strings.ToLower(ext)
	return r.extToLang[ext]
}

func (r *Registry) Config(lang string) (*LanguageConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.configs[lang]
	return c, ok
}

func (r *Registry) TreeSitterLanguage(lang string) (*sitter.Language, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.tsLanguages[lang]
	return l, ok
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide language registry.
func DefaultRegistry() *Registry { return defaultRegistry }
