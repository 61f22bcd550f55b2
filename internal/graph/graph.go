// Package graph builds bounded-depth call graphs over a snapshot's file models.
package graph

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/tosin2013/docdrift/internal/model"
)

var (
	// ErrSymbolNotFound is returned when the root symbol is not declared in its file.
	ErrSymbolNotFound = errors.New("symbol not found")

	// ErrFileNotFound is returned when the root file is not in the snapshot.
	ErrFileNotFound = errors.New("file not found")
)

// throwRe matches callee names that raise, throw or abort.
var throwRe = regexp.MustCompile(`^(?i:panic|throw\w*|raise\w*|fatal\w*|abort|reject|exit)$|(Error|Exception)$`)

// Options controls graph expansion.
type Options struct {
	MaxDepth            int
	ResolveImports      bool
	ExtractConditionals bool
	TrackExceptions     bool
	IncludeCallers      bool
}

// DefaultOptions expands two levels and follows imports.
func DefaultOptions() Options {
	return Options{MaxDepth: 2, ResolveImports: true}
}

// Builder resolves call edges between symbols of one set of files.
// It is safe for concurrent use once constructed.
type Builder struct {
	files   map[string]model.FileModel
	defs    map[string][]string // symbol name → defining files
	members map[string][]string // last segment of Recv.Name → full names
	dirs    map[string][]string // directory → files
	logger  *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the builder logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBuilder indexes files for call resolution.
func NewBuilder(files map[string]model.FileModel, opts ...Option) *Builder {
	b := &Builder{
		files:   files,
		defs:    make(map[string][]string),
		members: make(map[string][]string),
		dirs:    make(map[string][]string),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}

	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		fm := files[p]
		dir := dirOf(p)
		b.dirs[dir] = append(b.dirs[dir], p)
		for _, s := range fm.Symbols() {
			b.defs[s.Name] = appendUnique(b.defs[s.Name], p)
			if i := strings.LastIndexByte(s.Name, '.'); i >= 0 {
				b.members[s.Name[i+1:]] = appendUnique(b.members[s.Name[i+1:]], s.Name)
			}
		}
	}
	return b
}

type visitKey struct {
	symbol string
	file   string
}

// Build expands the call graph rooted at symbol in file. A symbol already on
// the current expansion path is recorded once more as a recursive leaf and not
// expanded again, so cycles terminate.
func (b *Builder) Build(symbol, file string, opts Options) (g *model.CallGraph, err error) {
	defer func() {
		if r := recover(); r != nil {
			g = nil
			err = fmt.Errorf("build call graph for %s in %s: %v", symbol, file, r)
		}
	}()

	fm, ok := b.files[file]
	if !ok {
		return nil, fmt.Errorf("%s: %w", file, ErrFileNotFound)
	}
	sym, ok := fm.Lookup(symbol)
	if !ok {
		return nil, fmt.Errorf("%s in %s: %w", symbol, file, ErrSymbolNotFound)
	}

	g = &model.CallGraph{}
	unresolved := make(map[string]struct{})
	g.Root = b.addNode(g, sym, file, 0, opts)

	path := map[visitKey]bool{{sym.Name, file}: true}
	b.expand(g, g.Root, path, unresolved, opts)

	if opts.IncludeCallers {
		g.Callers = b.callers(g, sym, file, opts)
	}

	for name := range unresolved {
		g.Unresolved = append(g.Unresolved, name)
	}
	sort.Strings(g.Unresolved)
	return g, nil
}

func (b *Builder) addNode(g *model.CallGraph, sym model.SymbolInfo, file string, depth int, opts Options) int {
	node := model.CallNode{Symbol: sym, File: file, Depth: depth}
	if opts.ExtractConditionals {
		node.Complexity = b.files[file].Complexity
	}
	if opts.TrackExceptions {
		for _, dep := range sym.Dependencies {
			if throwRe.MatchString(lastSegment(dep)) {
				node.MayThrow = true
				break
			}
		}
	}
	g.Nodes = append(g.Nodes, node)
	if depth > g.MaxDepth {
		g.MaxDepth = depth
	}
	return len(g.Nodes) - 1
}

func (b *Builder) expand(g *model.CallGraph, idx int, path map[visitKey]bool, unresolved map[string]struct{}, opts Options) {
	node := g.Nodes[idx]
	if node.Depth >= opts.MaxDepth {
		if len(node.Symbol.Dependencies) > 0 {
			g.Nodes[idx].Truncated = true
		}
		return
	}

	for _, dep := range node.Symbol.Dependencies {
		target, file, ok := b.resolve(dep, node.File, opts)
		if !ok {
			unresolved[dep] = struct{}{}
			continue
		}
		child := b.addNode(g, target, file, node.Depth+1, opts)
		g.Nodes[idx].Calls = append(g.Nodes[idx].Calls, child)

		key := visitKey{target.Name, file}
		if path[key] {
			g.Nodes[child].Recursive = true
			continue
		}
		path[key] = true
		b.expand(g, child, path, unresolved, opts)
		delete(path, key)
	}
}

// callers adds one node per symbol that directly calls the root.
func (b *Builder) callers(g *model.CallGraph, root model.SymbolInfo, rootFile string, opts Options) []int {
	var out []int
	for _, p := range b.sortedFiles() {
		fm := b.files[p]
		for _, s := range fm.Symbols() {
			if s.Name == root.Name && p == rootFile {
				continue
			}
			for _, dep := range s.Dependencies {
				target, file, ok := b.resolve(dep, p, opts)
				if ok && target.Name == root.Name && file == rootFile {
					out = append(out, b.addNode(g, s, p, 1, opts))
					break
				}
			}
		}
	}
	return out
}

func (b *Builder) sortedFiles() []string {
	paths := make([]string, 0, len(b.files))
	for p := range b.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
