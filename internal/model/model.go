// Package model defines core data structures for docdrift.
package model

import "time"

// SymbolKind indicates the syntactic kind of a symbol.
type SymbolKind string

const (
	Function SymbolKind = "function"
	Class    SymbolKind = "class"
	Type     SymbolKind = "type"
)

// Param is a single declared parameter of a function or method.
type Param struct {
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	Optional bool   `json:"optional,omitempty"`
}

// SymbolInfo describes a function, class or type declaration extracted from
// one source file.
type SymbolInfo struct {
	Name         string     `json:"name"`
	Kind         SymbolKind `json:"kind"`
	File         string     `json:"file"`
	Line         int        `json:"line"`
	Signature    string     `json:"signature"`
	Params       []Param    `json:"params,omitempty"`
	ReturnType   string     `json:"return_type,omitempty"`
	Dependencies []string   `json:"dependencies,omitempty"`
	Methods      []string   `json:"methods,omitempty"`
	Exported     bool       `json:"exported"`
	HasDocs      bool       `json:"has_docs"`
}

// ImportInfo is one import statement.
// Aliases maps a local name to the name it was imported as.
type ImportInfo struct {
	Source   string            `json:"source"`
	Names    []string          `json:"names,omitempty"`
	Aliases  map[string]string `json:"aliases,omitempty"`
	Relative bool              `json:"relative,omitempty"`
}

// LocalNames returns every name the import binds in the importing file.
func (imp ImportInfo) LocalNames() []string {
	names := make([]string, 0, len(imp.Names)+len(imp.Aliases))
	names = append(names, imp.Names...)
	for local := range imp.Aliases {
		names = append(names, local)
	}
	return names
}

// Resolve returns the exported name a local identifier refers to, if the
// import binds it.
func (imp ImportInfo) Resolve(local string) (string, bool) {
	if orig, ok := imp.Aliases[local]; ok {
		return orig, true
	}
	for _, n := range imp.Names {
		if n == local {
			return n, true
		}
	}
	return "", false
}

// FileModel is the structural model of one source file.
type FileModel struct {
	Path       string       `json:"path"`
	Language   string       `json:"language"`
	Hash       string       `json:"hash"`
	Functions  []SymbolInfo `json:"functions"`
	Classes    []SymbolInfo `json:"classes"`
	Types      []SymbolInfo `json:"types"`
	Exports    []string     `json:"exports"`
	Imports    []ImportInfo `json:"imports"`
	Complexity int          `json:"complexity"`
}

// Symbols returns all symbols of the file in declaration-kind order.
func (fm *FileModel) Symbols() []SymbolInfo {
	out := make([]SymbolInfo, 0, len(fm.Functions)+len(fm.Classes)+len(fm.Types))
	out = append(out, fm.Functions...)
	out = append(out, fm.Classes...)
	out = append(out, fm.Types...)
	return out
}

// Lookup returns the symbol with the given name.
func (fm *FileModel) Lookup(name string) (SymbolInfo, bool) {
	for _, group := range [][]SymbolInfo{fm.Functions, fm.Classes, fm.Types} {
		for _, s := range group {
			if s.Name == name {
				return s, true
			}
		}
	}
	return SymbolInfo{}, false
}

// IsExported reports whether name is in the file's export list.
func (fm *FileModel) IsExported(name string) bool {
	for _, e := range fm.Exports {
		if e == name {
			return true
		}
	}
	return false
}

// Diataxis is a documentation-purpose category.
type Diataxis string

const (
	Tutorial    Diataxis = "tutorial"
	HowTo       Diataxis = "how-to"
	Reference   Diataxis = "reference"
	Explanation Diataxis = "explanation"
)

// ValidationHints describes what a code example is expected to do.
type ValidationHints struct {
	ExpectedBehavior string   `json:"expected_behavior,omitempty"`
	Dependencies     []string `json:"dependencies,omitempty"`
	ContextRequired  bool     `json:"context_required,omitempty"`
}

// CodeExample is a fenced code block inside a documentation section.
type CodeExample struct {
	Language    string           `json:"language"`
	Code        string           `json:"code"`
	Description string           `json:"description"`
	Symbols     []string         `json:"symbols,omitempty"`
	Diataxis    Diataxis         `json:"diataxis,omitempty"`
	Hints       *ValidationHints `json:"hints,omitempty"`
}

// DocumentationSection is the content between two headings.
type DocumentationSection struct {
	Title     string        `json:"title"`
	Level     int           `json:"level"`
	Content   string        `json:"content"`
	StartLine int           `json:"start_line"`
	EndLine   int           `json:"end_line"`
	Functions []string      `json:"functions,omitempty"`
	Classes   []string      `json:"classes,omitempty"`
	Types     []string      `json:"types,omitempty"`
	Examples  []CodeExample `json:"examples,omitempty"`
}

// References reports whether the section mentions name as a function, class
// or type.
func (s *DocumentationSection) References(name string) bool {
	for _, set := range [][]string{s.Functions, s.Classes, s.Types} {
		for _, n := range set {
			if n == name {
				return true
			}
		}
	}
	return false
}

// DocumentationModel is the parsed form of one documentation file.
type DocumentationModel struct {
	Path         string                 `json:"path"`
	Hash         string                 `json:"hash"`
	References   []string               `json:"references,omitempty"`
	LastModified time.Time              `json:"last_modified"`
	Diataxis     Diataxis               `json:"diataxis,omitempty"`
	Sections     []DocumentationSection `json:"sections"`
}

// Mentions reports whether any section references name.
func (d *DocumentationModel) Mentions(name string) bool {
	for i := range d.Sections {
		if d.Sections[i].References(name) {
			return true
		}
	}
	return false
}

// Snapshot is an immutable point-in-time model of code and documentation.
type Snapshot struct {
	ID            string                        `json:"id"`
	ProjectRoot   string                        `json:"project_root"`
	DocsRoot      string                        `json:"docs_root"`
	Timestamp     time.Time                     `json:"timestamp"`
	Files         map[string]FileModel          `json:"files"`
	Documentation map[string]DocumentationModel `json:"documentation"`
}
