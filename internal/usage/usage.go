// Package usage estimates how often each exported symbol of a snapshot is
// used, from call graphs, imports and documentation cross-references.
package usage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/tosin2013/docdrift/internal/graph"
	"github.com/tosin2013/docdrift/internal/model"
)

// Strategy names.
const (
	StrategyGraph     = "graph"
	StrategyHeuristic = "heuristic"
)

// DefaultMaxSymbols caps how many exported functions get a call graph.
const DefaultMaxSymbols = 50

// Collector builds usage tables. The zero value is not usable; call New.
type Collector struct {
	strategy   string
	graphOpts  graph.Options
	maxSymbols int
	workers    int
	logger     *slog.Logger
}

// Option configures a Collector.
type Option func(*Collector)

// WithHeuristic disables call graphs; only imports and documentation
// cross-references are counted.
func WithHeuristic() Option {
	return func(c *Collector) { c.strategy = StrategyHeuristic }
}

// WithGraphOptions sets the options for per-symbol call graphs.
func WithGraphOptions(opts graph.Options) Option {
	return func(c *Collector) { c.graphOpts = opts }
}

// WithMaxSymbols caps the number of call graphs built.
func WithMaxSymbols(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.maxSymbols = n
		}
	}
}

// WithWorkers bounds call graph concurrency.
func WithWorkers(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithLogger sets the collector logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Collector) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Collector using the graph strategy by default.
func New(opts ...Option) *Collector {
	c := &Collector{
		strategy:   StrategyGraph,
		graphOpts:  graph.DefaultOptions(),
		maxSymbols: DefaultMaxSymbols,
		workers:    runtime.GOMAXPROCS(0),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Strategy returns the configured strategy name.
func (c *Collector) Strategy() string { return c.strategy }

// Collect computes the usage table of snap. Counts depend only on the
// snapshot, so repeated calls return equal tables. The only error is context
// cancellation.
func (c *Collector) Collect(ctx context.Context, snap *model.Snapshot) (model.UsageMetadata, error) {
	u := model.NewUsageMetadata(c.strategy)
	if snap == nil {
		return u, nil
	}

	imports := importCounts(snap)
	docRefs := docReferences(snap)
	known := exportedKinds(snap)

	counted := make(map[string]bool)
	if c.strategy == StrategyGraph {
		graphs, err := c.graphs(ctx, snap, imports, docRefs)
		if err != nil {
			return model.NewUsageMetadata(c.strategy), err
		}
		for _, g := range graphs {
			g.Walk(func(idx int) {
				if idx == g.Root {
					return
				}
				sym := g.Nodes[idx].Symbol
				counted[sym.Name] = true
				if sym.Kind == model.Class {
					u.ClassInstantiations[sym.Name]++
				} else {
					u.FunctionCalls[sym.Name]++
				}
			})
		}
	}

	for name, n := range imports {
		u.Imports[name] += n
		if c.strategy != StrategyGraph || counted[name] {
			continue
		}
		switch known[name] {
		case model.Function:
			u.FunctionCalls[name] += n
		case model.Class:
			u.ClassInstantiations[name] += n
		}
	}

	for name, ref := range docRefs {
		if ref.kind == model.Function {
			u.FunctionCalls[name] += ref.count
		} else {
			u.ClassInstantiations[name] += ref.count
		}
	}

	c.logger.Debug("usage collected",
		"strategy", c.strategy,
		"functions", len(u.FunctionCalls),
		"classes", len(u.ClassInstantiations),
		"imports", len(u.Imports))
	return u, nil
}

type rootSymbol struct {
	name  string
	file  string
	score int
}

// graphs builds one call graph per top-ranked exported function. A symbol
// whose graph fails contributes nothing.
func (c *Collector) graphs(ctx context.Context, snap *model.Snapshot, imports map[string]int, docRefs map[string]docRef) ([]*model.CallGraph, error) {
	roots := rankRoots(snap, imports, docRefs)
	if len(roots) > c.maxSymbols {
		roots = roots[:c.maxSymbols]
	}

	builder := graph.NewBuilder(snap.Files, graph.WithLogger(c.logger))
	results := make([]*model.CallGraph, len(roots))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, r := range roots {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cg, err := builder.Build(r.name, r.file, c.graphOpts)
			if err != nil {
				c.logger.Debug("call graph failed", "symbol", r.name, "file", r.file, "error", err)
				return nil
			}
			results[i] = cg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("building call graphs: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("building call graphs: %w", err)
	}

	out := results[:0]
	for _, cg := range results {
		if cg != nil {
			out = append(out, cg)
		}
	}
	return out, nil
}

// rankRoots orders exported functions by import count plus documentation
// references, highest first, then by name and file.
func rankRoots(snap *model.Snapshot, imports map[string]int, docRefs map[string]docRef) []rootSymbol {
	var roots []rootSymbol
	for path, fm := range snap.Files {
		for _, fn := range fm.Functions {
			if !fn.Exported && !fm.IsExported(fn.Name) {
				continue
			}
			roots = append(roots, rootSymbol{
				name:  fn.Name,
				file:  path,
				score: imports[fn.Name] + docRefs[fn.Name].count,
			})
		}
	}
	sort.Slice(roots, func(i, j int) bool {
		a, b := roots[i], roots[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.name != b.name {
			return a.name < b.name
		}
		return a.file < b.file
	})
	return roots
}

// importCounts counts how many import statements bind each name. Namespace
// and default bindings are not attributed to a symbol.
func importCounts(snap *model.Snapshot) map[string]int {
	counts := make(map[string]int)
	for _, fm := range snap.Files {
		for _, imp := range fm.Imports {
			for _, local := range imp.LocalNames() {
				orig, ok := imp.Resolve(local)
				if !ok || orig == "*" || orig == "default" {
					continue
				}
				counts[orig]++
			}
		}
	}
	return counts
}

type docRef struct {
	kind  model.SymbolKind
	count int
}

// docReferences counts, per symbol name, the documentation sections that
// reference it.
func docReferences(snap *model.Snapshot) map[string]docRef {
	refs := make(map[string]docRef)
	add := func(names []string, kind model.SymbolKind) {
		for _, n := range names {
			r := refs[n]
			if r.count == 0 || kindRank[kind] > kindRank[r.kind] {
				r.kind = kind
			}
			r.count++
			refs[n] = r
		}
	}
	for _, doc := range snap.Documentation {
		for _, sec := range doc.Sections {
			add(sec.Classes, model.Class)
			add(sec.Types, model.Type)
			add(sec.Functions, model.Function)
		}
	}
	return refs
}

// kindRank breaks ties between symbols sharing a name.
var kindRank = map[model.SymbolKind]int{
	model.Type:     1,
	model.Class:    2,
	model.Function: 3,
}

// exportedKinds maps every exported symbol name to its kind.
func exportedKinds(snap *model.Snapshot) map[string]model.SymbolKind {
	kinds := make(map[string]model.SymbolKind)
	for _, fm := range snap.Files {
		for _, s := range fm.Symbols() {
			if !s.Exported && !fm.IsExported(s.Name) {
				continue
			}
			if prev, ok := kinds[s.Name]; ok && kindRank[prev] >= kindRank[s.Kind] {
				continue
			}
			kinds[s.Name] = s.Kind
		}
	}
	return kinds
}
