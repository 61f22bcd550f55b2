package graph

import (
	"path"
	"sort"
	"strings"

	"github.com/tosin2013/docdrift/internal/model"
)

var probeExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs", ".py", ".rb", ".go"}

// resolve maps a callee name used in fromFile to its declaration: same file
// first, then imports, then a unique definition anywhere in the snapshot.
func (b *Builder) resolve(name, fromFile string, opts Options) (model.SymbolInfo, string, bool) {
	fm := b.files[fromFile]
	if sym, ok := fm.Lookup(name); ok {
		return sym, fromFile, true
	}

	if opts.ResolveImports {
		if sym, file, ok := b.resolveImport(name, &fm, fromFile); ok {
			return sym, file, true
		}
	}

	candidates := []string{name}
	if last := lastSegment(name); last != name {
		candidates = append(candidates, last)
		if full := b.members[last]; len(full) == 1 {
			candidates = append(candidates, full[0])
		}
	}
	for _, c := range candidates {
		if files := b.defs[c]; len(files) == 1 {
			def := b.files[files[0]]
			sym, _ := def.Lookup(c)
			return sym, files[0], true
		}
	}
	return model.SymbolInfo{}, "", false
}

// resolveImport follows an import binding of the first name segment to the
// imported file. `pkg.Func` resolves Func inside the package or namespace
// bound to pkg; a plain name resolves through named and aliased imports.
func (b *Builder) resolveImport(name string, fm *model.FileModel, fromFile string) (model.SymbolInfo, string, bool) {
	local, member := name, ""
	if i := strings.IndexByte(name, '.'); i >= 0 {
		local, member = name[:i], lastSegment(name)
	}

	for _, imp := range fm.Imports {
		orig, ok := imp.Resolve(local)
		if !ok {
			continue
		}
		target := orig
		switch {
		case member != "":
			target = member
		case orig == "default" || orig == "*":
			target = local
		}
		for _, file := range b.importTargets(fromFile, imp) {
			def := b.files[file]
			if sym, ok := def.Lookup(target); ok {
				return sym, file, true
			}
		}
	}
	return model.SymbolInfo{}, "", false
}

// importTargets returns the snapshot files an import may refer to.
func (b *Builder) importTargets(fromFile string, imp model.ImportInfo) []string {
	src := imp.Source
	var bases []string

	switch {
	case strings.HasPrefix(src, "./") || strings.HasPrefix(src, "../"):
		bases = append(bases, path.Join(dirOf(fromFile), src))
	case strings.HasPrefix(src, "."):
		// Python relative module: one dot per package level.
		dots := len(src) - len(strings.TrimLeft(src, "."))
		dir := dirOf(fromFile)
		for i := 1; i < dots; i++ {
			dir = dirOf(dir)
		}
		rest := strings.ReplaceAll(strings.TrimLeft(src, "."), ".", "/")
		bases = append(bases, path.Join(dir, rest))
	case imp.Relative:
		bases = append(bases, path.Join(dirOf(fromFile), src))
	default:
		bases = append(bases, strings.ReplaceAll(src, ".", "/"), src)
	}

	var out []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := b.files[p]; !ok {
			return
		}
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}

	for _, base := range bases {
		add(base)
		for _, ext := range probeExtensions {
			add(base + ext)
			add(base + "/index" + ext)
		}
		add(base + "/__init__.py")
	}

	// Go-style import paths name a package directory by suffix.
	if !imp.Relative && strings.Contains(src, "/") {
		var dirs []string
		for dir := range b.dirs {
			if dir != "." && (src == dir || strings.HasSuffix(src, "/"+dir)) {
				dirs = append(dirs, dir)
			}
		}
		sort.Strings(dirs)
		for _, dir := range dirs {
			for _, f := range b.dirs[dir] {
				add(f)
			}
		}
	}
	return out
}

func dirOf(p string) string {
	return path.Dir(p)
}

func lastSegment(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
