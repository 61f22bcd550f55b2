package docparse

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/tosin2013/docdrift/internal/model"
)

var (
	inlineCodeRe = regexp.MustCompile("`([^`\n]+)`")
	identSpanRe  = regexp.MustCompile(`^(new\s+)?([A-Za-z_$][\w$]*(?:\.[A-Za-z_$][\w$]*)*)\s*(\(.*\))?;?$`)
	callRe       = regexp.MustCompile(`(?:\b(new)\s+)?\b([A-Za-z_$][\w$]*(?:\.[A-Za-z_$][\w$]*)*)\s*\(`)
	expectRe     = regexp.MustCompile(`^\s*(?://|#)\s*expect(?:ed)?:\s*(.+)$`)
	importRe     = regexp.MustCompile(`^\s*(?:import\s+(?:.*\s+from\s+)?["']([^"']+)["']|import\s+([\w.]+)|from\s+([\w.]+)\s+import\b|.*\brequire(?:_relative)?\(?\s*["']([^"']+)["'])`)
)

// keywords are call-like tokens that never name a symbol.
var keywords = map[string]struct{}{
	"if": {}, "for": {}, "while": {}, "switch": {}, "catch": {}, "function": {},
	"return": {}, "typeof": {}, "def": {}, "class": {}, "elif": {}, "with": {},
	"super": {}, "await": {}, "async": {}, "import": {}, "require": {}, "func": {},
	"true": {}, "false": {}, "null": {}, "nil": {}, "None": {}, "True": {}, "False": {},
	"undefined": {}, "this": {}, "self": {},
}

// SymbolResolver classifies a name referenced from documentation.
type SymbolResolver interface {
	Resolve(name string) (model.SymbolKind, bool)
}

// KnownSymbols resolves names against a fixed symbol table.
type KnownSymbols map[string]model.SymbolKind

// Resolve implements SymbolResolver.
func (k KnownSymbols) Resolve(name string) (model.SymbolKind, bool) {
	kind, ok := k[name]
	return kind, ok
}

var kindRank = map[model.SymbolKind]int{model.Function: 0, model.Type: 1, model.Class: 2}

// SymbolsOf builds a symbol table from parsed source files. When a name is
// declared with several kinds, class beats type beats function.
func SymbolsOf(files map[string]model.FileModel) KnownSymbols {
	known := make(KnownSymbols)
	for _, fm := range files {
		for _, s := range fm.Symbols() {
			if prev, ok := known[s.Name]; ok && kindRank[prev] >= kindRank[s.Kind] {
				continue
			}
			known[s.Name] = s.Kind
		}
	}
	return known
}

type refSet map[model.SymbolKind]map[string]struct{}

func newRefSet() refSet {
	return refSet{
		model.Function: {},
		model.Class:    {},
		model.Type:     {},
	}
}

func (r refSet) add(name string, kind model.SymbolKind) {
	if name == "" {
		return
	}
	if _, skip := keywords[name]; skip {
		return
	}
	r[kind][name] = struct{}{}
}

func (r refSet) merge(other refSet) {
	for kind, names := range other {
		for n := range names {
			r[kind][n] = struct{}{}
		}
	}
}

func (r refSet) sorted() (functions, classes, types []string) {
	return sortedKeys(r[model.Function]), sortedKeys(r[model.Class]), sortedKeys(r[model.Type])
}

func (r refSet) names() []string {
	all := make(map[string]struct{})
	for _, names := range r {
		for n := range names {
			all[n] = struct{}{}
		}
	}
	return sortedKeys(all)
}

func sortedKeys(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// kindOf classifies name with the resolver, falling back to casing:
// upper-case initial is a class, anything else a function.
func (p *Parser) kindOf(name string, fallback model.SymbolKind) model.SymbolKind {
	if p.resolver != nil {
		if kind, ok := p.resolver.Resolve(name); ok {
			return kind
		}
	}
	if fallback != "" {
		return fallback
	}
	for _, r := range name {
		if unicode.IsUpper(r) {
			return model.Class
		}
		break
	}
	return model.Function
}

// reference records a possibly dotted name. Dotted names are recorded whole
// and by their upper-case receiver; call-like dotted names also record the
// member name.
func (p *Parser) reference(name string, call, instantiation bool, refs refSet) {
	if instantiation {
		refs.add(name, p.kindOf(name, model.Class))
		return
	}
	parts := strings.Split(name, ".")
	if len(parts) == 1 {
		refs.add(name, p.kindOf(name, ""))
		return
	}
	refs.add(name, p.kindOf(name, model.Function))
	if first := parts[0]; first != "" && unicode.IsUpper(rune(first[0])) {
		refs.add(first, p.kindOf(first, ""))
	}
	if call {
		last := parts[len(parts)-1]
		refs.add(last, p.kindOf(last, ""))
	}
}

// inlineRefs records identifiers written as inline code spans.
func (p *Parser) inlineRefs(line string, refs refSet) {
	for _, m := range inlineCodeRe.FindAllStringSubmatch(line, -1) {
		span := strings.TrimSpace(m[1])
		sm := identSpanRe.FindStringSubmatch(span)
		if sm == nil {
			continue
		}
		p.reference(sm[2], sm[3] != "", sm[1] != "", refs)
	}
}

// headingRefs records call-like tokens in a heading, e.g. "## calculate(x)".
func (p *Parser) headingRefs(title string, refs refSet) {
	for _, m := range callRe.FindAllStringSubmatch(title, -1) {
		p.reference(m[2], true, m[1] != "", refs)
	}
	p.inlineRefs(title, refs)
}

// codeRefs records call and instantiation sites inside a code example.
func (p *Parser) codeRefs(code string, refs refSet) {
	for _, line := range strings.Split(code, "\n") {
		if importRe.MatchString(line) {
			continue
		}
		for _, m := range callRe.FindAllStringSubmatch(line, -1) {
			p.reference(m[2], true, m[1] != "", refs)
		}
	}
}

// validationHints extracts expectations, dependencies and whether the
// example needs surrounding context to run. It returns nil when the example
// carries no hints.
func validationHints(code string) *model.ValidationHints {
	var (
		hints    model.ValidationHints
		expected []string
		deps     = make(map[string]struct{})
	)
	for _, line := range strings.Split(code, "\n") {
		if m := expectRe.FindStringSubmatch(line); m != nil {
			expected = append(expected, strings.TrimSpace(m[1]))
			continue
		}
		if m := importRe.FindStringSubmatch(line); m != nil {
			for _, dep := range m[1:] {
				if dep != "" {
					deps[dep] = struct{}{}
				}
			}
		}
	}
	hints.ExpectedBehavior = strings.Join(expected, "; ")
	hints.Dependencies = sortedKeys(deps)
	for _, dep := range hints.Dependencies {
		if strings.HasPrefix(dep, ".") {
			hints.ContextRequired = true
		}
	}
	if strings.Contains(code, "...") || strings.Contains(code, "…") {
		hints.ContextRequired = true
	}

	if hints.ExpectedBehavior == "" && len(hints.Dependencies) == 0 && !hints.ContextRequired {
		return nil
	}
	return &hints
}
