// Package lang provides a language registry mapping file extensions to
// tree-sitter languages and the per-language hooks the structural analyzer
// uses to read declarations, imports, calls and branches.
package lang

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/tosin2013/docdrift/internal/model"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Decl is one declaration found at module or class level.
type Decl struct {
	Kind       model.SymbolKind
	Name       string
	Signature  string
	Params     []model.Param
	ReturnType string
	Methods    []string
	Bases      []string
	Exported   bool
	HasDocs    bool
	Line       int

	// Body is the subtree scanned for call targets.
	Body *sitter.Node
}

// Language holds tree-sitter configuration for a supported language.
type Language struct {
	Name       string
	Extensions []string
	lang       *sitter.Language

	// Declarations returns the declarations introduced by a top-level node.
	Declarations func(node *sitter.Node, source []byte) []Decl

	// Imports returns the import statements introduced by a top-level node.
	Imports func(node *sitter.Node, source []byte) []model.ImportInfo

	// ExportList returns names exported by a top-level node that is not itself
	// a declaration (export clauses, __all__ assignments).
	ExportList func(node *sitter.Node, source []byte) []string

	// CallTarget returns the callee or instantiated type of a call-like node,
	// or "" if the node is not a call.
	CallTarget func(node *sitter.Node, source []byte) string

	// IsBranch reports whether node adds a decision point.
	IsBranch func(node *sitter.Node, source []byte) bool
}

// GetLanguage returns the tree-sitter Language pointer.
func (l *Language) GetLanguage() *sitter.Language {
	return l.lang
}

// NewParser creates a fresh tree-sitter parser for this language.
// Each goroutine must use its own parser (not thread-safe).
func (l *Language) NewParser() *sitter.Parser {
	p := sitter.NewParser()
	p.SetLanguage(l.lang)
	return p
}

// Languages maps language names to their configuration.
// Populated by init() functions in per-language files.
var Languages = map[string]*Language{}

// extensionMap is built lazily after all init() functions have run.
var extensionMap map[string]string
var extensionOnce sync.Once

func getExtensionMap() map[string]string {
	extensionOnce.Do(func() {
		extensionMap = make(map[string]string)
		for _, l := range Languages {
			for _, ext := range l.Extensions {
				extensionMap[ext] = l.Name
			}
		}
	})
	return extensionMap
}

// ForExtension returns the language name for a file extension, or "" if unsupported.
func ForExtension(ext string) string {
	return getExtensionMap()[strings.ToLower(ext)]
}

// Names returns the registered language names in sorted order.
func Names() []string {
	names := make([]string, 0, len(Languages))
	for name := range Languages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NodeText returns the source text of a tree-sitter node.
func NodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

// CollapseWhitespace replaces runs of whitespace with a single space and trims.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// FieldText returns the text of the named field child, or "".
func FieldText(node *sitter.Node, field string, source []byte) string {
	return NodeText(node.ChildByFieldName(field), source)
}

// Line returns the 1-based start line of node.
func Line(node *sitter.Node) int {
	return int(node.StartPoint().Row) + 1
}

// IsUpper reports whether name starts with an upper-case letter.
func IsUpper(name string) bool {
	for _, r := range name {
		return unicode.IsUpper(r)
	}
	return false
}

// precededByComment reports whether the sibling right before node is a
// comment ending on the line above it. If prefix is non-empty the comment
// must start with it.
func precededByComment(node *sitter.Node, source []byte, prefix string) bool {
	prev := node.PrevSibling()
	if prev == nil || prev.Type() != "comment" {
		return false
	}
	if node.StartPoint().Row-prev.EndPoint().Row > 1 {
		return false
	}
	if prefix == "" {
		return true
	}
	return strings.HasPrefix(NodeText(prev, source), prefix)
}

// namedChildren returns the named children of node.
func namedChildren(node *sitter.Node) []*sitter.Node {
	if node == nil {
		return nil
	}
	n := int(node.NamedChildCount())
	out := make([]*sitter.Node, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, node.NamedChild(i))
	}
	return out
}

// operatorIn reports whether the operator field (or any anonymous child) of
// node is one of ops.
func operatorIn(node *sitter.Node, source []byte, ops ...string) bool {
	if op := node.ChildByFieldName("operator"); op != nil {
		text := NodeText(op, source)
		for _, o := range ops {
			if text == o {
				return true
			}
		}
		return false
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.IsNamed() {
			continue
		}
		text := child.Type()
		for _, o := range ops {
			if text == o {
				return true
			}
		}
	}
	return false
}

func unquote(s string) string {
	return strings.Trim(s, "\"'`")
}
