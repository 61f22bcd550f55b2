// Package parse extracts structural file models from source files using tree-sitter.
package parse

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/tosin2013/docdrift/internal/lang"
	"github.com/tosin2013/docdrift/internal/model"
)

const (
	// DefaultMaxFileSize is the largest source file the analyzer reads.
	DefaultMaxFileSize = 1_000_000 // 1 MB

	defaultCacheSize = 4096
)

var (
	// ErrParse is returned when a file cannot be read or parsed.
	ErrParse = errors.New("parse failed")

	// ErrUnsupportedLanguage is returned for files with no registered language.
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrFileTooLarge is returned when a file exceeds the size limit.
	ErrFileTooLarge = errors.New("file exceeds maximum size")
)

// Analyzer turns source files into model.FileModel values. It is safe for
// concurrent use; every call creates its own tree-sitter parser.
type Analyzer struct {
	maxFileSize int64
	cache       *lru.Cache[string, *model.FileModel]
	logger      *slog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithMaxFileSize sets the maximum file size in bytes. Non-positive values are ignored.
func WithMaxFileSize(n int64) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.maxFileSize = n
		}
	}
}

// WithCacheSize sets the number of parsed models kept in memory.
func WithCacheSize(n int) Option {
	return func(a *Analyzer) {
		if n <= 0 {
			return
		}
		if c, err := lru.New[string, *model.FileModel](n); err == nil {
			a.cache = c
		}
	}
}

// WithLogger sets the logger used for parse warnings.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAnalyzer creates an Analyzer with a content-addressed parse cache.
func NewAnalyzer(opts ...Option) *Analyzer {
	cache, _ := lru.New[string, *model.FileModel](defaultCacheSize)
	a := &Analyzer{
		maxFileSize: DefaultMaxFileSize,
		cache:       cache,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnalyzeFile reads root/relPath and returns its structural model.
// The language is chosen by file extension.
func (a *Analyzer) AnalyzeFile(ctx context.Context, root, relPath string) (*model.FileModel, error) {
	langName := lang.ForExtension(filepath.Ext(relPath))
	if langName == "" {
		return nil, fmt.Errorf("%s: %w", relPath, ErrUnsupportedLanguage)
	}

	absPath := filepath.Join(root, relPath)
	fi, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, relPath, err)
	}
	if fi.Size() > a.maxFileSize {
		return nil, fmt.Errorf("%s: %w (%d > %d bytes)", relPath, ErrFileTooLarge, fi.Size(), a.maxFileSize)
	}

	source, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, relPath, err)
	}
	return a.AnalyzeSource(ctx, filepath.ToSlash(relPath), langName, source)
}

// AnalyzeSource parses source as langName. Identical bytes at the same path
// always produce the same model.
func (a *Analyzer) AnalyzeSource(ctx context.Context, relPath, langName string, source []byte) (fm *model.FileModel, err error) {
	l, ok := lang.Languages[langName]
	if !ok {
		return nil, fmt.Errorf("%s: %w %q", relPath, ErrUnsupportedLanguage, langName)
	}

	sum := sha256.Sum256(source)
	hash := hex.EncodeToString(sum[:])
	key := langName + "\x00" + relPath + "\x00" + hash
	if a.cache != nil {
		if cached, ok := a.cache.Get(key); ok {
			return cached, nil
		}
	}

	defer func() {
		if r := recover(); r != nil {
			fm = nil
			err = fmt.Errorf("%w: %s: %v", ErrParse, relPath, r)
		}
	}()

	parser := l.NewParser()
	defer parser.Close()

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, relPath, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("%w: %s: empty syntax tree", ErrParse, relPath)
	}
	if root.HasError() {
		a.logger.Debug("source contains syntax errors", "file", relPath)
	}

	fm = Extract(l, root, source, relPath)
	fm.Hash = hash
	if a.cache != nil {
		a.cache.Add(key, fm)
	}
	return fm, nil
}

// Extract builds a FileModel from an already parsed tree.
func Extract(l *lang.Language, root *sitter.Node, source []byte, filePath string) *model.FileModel {
	fm := &model.FileModel{
		Path:       filePath,
		Language:   l.Name,
		Complexity: Complexity(l, root, source),
	}

	var listed []string
	for i := 0; i < int(root.NamedChildCount()); i++ {
		node := root.NamedChild(i)

		fm.Imports = append(fm.Imports, l.Imports(node, source)...)
		listed = append(listed, l.ExportList(node, source)...)

		for _, d := range l.Declarations(node, source) {
			if d.Name == "" {
				continue
			}
			sym := model.SymbolInfo{
				Name:         d.Name,
				Kind:         d.Kind,
				File:         filePath,
				Line:         d.Line,
				Signature:    d.Signature,
				Params:       d.Params,
				ReturnType:   d.ReturnType,
				Dependencies: dependencies(l, d, source),
				Methods:      d.Methods,
				Exported:     d.Exported,
				HasDocs:      d.HasDocs,
			}
			switch d.Kind {
			case model.Function:
				fm.Functions = append(fm.Functions, sym)
			case model.Class:
				fm.Classes = append(fm.Classes, sym)
			case model.Type:
				fm.Types = append(fm.Types, sym)
			}
		}
	}

	attachMethods(fm)
	applyExportList(l, fm, listed)
	return fm
}

// dependencies returns the sorted, de-duplicated call targets found in the
// declaration body plus its base types.
func dependencies(l *lang.Language, d lang.Decl, source []byte) []string {
	seen := make(map[string]struct{})
	for _, b := range d.Bases {
		seen[b] = struct{}{}
	}
	if d.Body != nil {
		walk(d.Body, func(n *sitter.Node) {
			if target := l.CallTarget(n, source); target != "" && target != d.Name {
				seen[target] = struct{}{}
			}
		})
	}
	if len(seen) == 0 {
		return nil
	}
	deps := make([]string, 0, len(seen))
	for dep := range seen {
		deps = append(deps, dep)
	}
	sort.Strings(deps)
	return deps
}

// attachMethods adds Recv.Method functions (Go style) to the Methods list of
// a class declared in the same file.
func attachMethods(fm *model.FileModel) {
	index := make(map[string]int, len(fm.Classes))
	for i := range fm.Classes {
		index[fm.Classes[i].Name] = i
	}
	for _, fn := range fm.Functions {
		dot := strings.Index(fn.Name, ".")
		if dot < 0 {
			continue
		}
		ci, ok := index[fn.Name[:dot]]
		if !ok || !lang.IsUpper(fn.Name[dot+1:]) {
			continue
		}
		fm.Classes[ci].Methods = append(fm.Classes[ci].Methods, fn.Signature)
	}
}

// applyExportList merges module-level export lists into the symbol flags and
// builds the sorted export name list. Python's __all__ replaces the
// underscore convention instead of extending it.
func applyExportList(l *lang.Language, fm *model.FileModel, listed []string) {
	set := make(map[string]struct{}, len(listed))
	for _, name := range listed {
		set[name] = struct{}{}
	}
	exclusive := l.Name == "python" && len(listed) > 0

	mark := func(syms []model.SymbolInfo) {
		for i := range syms {
			_, inList := set[syms[i].Name]
			if exclusive {
				syms[i].Exported = inList
			} else if inList {
				syms[i].Exported = true
			}
		}
	}
	mark(fm.Functions)
	mark(fm.Classes)
	mark(fm.Types)

	var exports []string
	for _, s := range fm.Symbols() {
		if s.Exported {
			exports = append(exports, s.Name)
		}
	}
	sort.Strings(exports)
	fm.Exports = exports
}

// Complexity returns 1 plus the number of decision points in the tree.
// More branching never lowers the score.
func Complexity(l *lang.Language, root *sitter.Node, source []byte) int {
	score := 1
	walk(root, func(n *sitter.Node) {
		if l.IsBranch(n, source) {
			score++
		}
	})
	return score
}

func walk(node *sitter.Node, fn func(*sitter.Node)) {
	fn(node)
	for i := 0; i < int(node.NamedChildCount()); i++ {
		walk(node.NamedChild(i), fn)
	}
}
