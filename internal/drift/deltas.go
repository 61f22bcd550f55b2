package drift

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/tosin2013/docdrift/internal/model"
)

// exportedSymbols indexes the exported symbols of fm by name. A nil model has
// none.
func exportedSymbols(fm *model.FileModel) map[string]model.SymbolInfo {
	out := make(map[string]model.SymbolInfo)
	if fm == nil {
		return out
	}
	for _, s := range fm.Symbols() {
		if s.Exported || fm.IsExported(s.Name) {
			out[s.Name] = s
		}
	}
	return out
}

// compareFiles returns the exported-symbol deltas between two versions of one
// source file, ordered by symbol name. Either side may be nil for a file that
// was created or deleted.
func compareFiles(path string, old, cur *model.FileModel) []model.CodeDelta {
	before := exportedSymbols(old)
	after := exportedSymbols(cur)

	names := make([]string, 0, len(before)+len(after))
	for name := range before {
		names = append(names, name)
	}
	for name := range after {
		if _, ok := before[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var deltas []model.CodeDelta
	for _, name := range names {
		o, hadOld := before[name]
		n, hasNew := after[name]
		switch {
		case hadOld && !hasNew:
			deltas = append(deltas, removedDelta(path, o, cur))
		case !hadOld && hasNew:
			deltas = append(deltas, addedDelta(path, n, old))
		default:
			if d, changed := modifiedDelta(path, o, n); changed {
				deltas = append(deltas, d)
			}
		}
	}
	return deltas
}

func removedDelta(path string, o model.SymbolInfo, cur *model.FileModel) model.CodeDelta {
	details := fmt.Sprintf("exported %s %s was removed", o.Kind, o.Name)
	if cur == nil {
		details = fmt.Sprintf("exported %s %s was removed with %s", o.Kind, o.Name, path)
	} else if _, ok := cur.Lookup(o.Name); ok {
		details = fmt.Sprintf("%s %s is no longer exported", o.Kind, o.Name)
	}
	return model.CodeDelta{
		Type:         model.Removed,
		Category:     o.Kind,
		Name:         o.Name,
		File:         path,
		OldSignature: o.Signature,
		Details:      details,
		Impact:       model.Breaking,
	}
}

func addedDelta(path string, n model.SymbolInfo, old *model.FileModel) model.CodeDelta {
	details := fmt.Sprintf("new exported %s %s", n.Kind, n.Name)
	if old != nil {
		if _, ok := old.Lookup(n.Name); ok {
			details = fmt.Sprintf("%s %s is now exported", n.Kind, n.Name)
		}
	}
	return model.CodeDelta{
		Type:         model.Added,
		Category:     n.Kind,
		Name:         n.Name,
		File:         path,
		NewSignature: n.Signature,
		Details:      details,
		Impact:       model.Patch,
	}
}

func modifiedDelta(path string, o, n model.SymbolInfo) (model.CodeDelta, bool) {
	if sameShape(o, n) {
		return model.CodeDelta{}, false
	}
	impact, details := classify(o, n)
	return model.CodeDelta{
		Type:         model.Modified,
		Category:     n.Kind,
		Name:         n.Name,
		File:         path,
		OldSignature: o.Signature,
		NewSignature: n.Signature,
		Details:      details,
		Impact:       impact,
	}, true
}

// sameShape reports whether two versions of a symbol are structurally equal.
// Line numbers and doc comments are ignored.
func sameShape(o, n model.SymbolInfo) bool {
	return o.Kind == n.Kind &&
		o.Signature == n.Signature &&
		o.ReturnType == n.ReturnType &&
		slices.Equal(o.Params, n.Params) &&
		slices.Equal(o.Dependencies, n.Dependencies) &&
		slices.Equal(o.Methods, n.Methods)
}

// classify assigns an impact level to a modified symbol.
func classify(o, n model.SymbolInfo) (model.ImpactLevel, string) {
	if o.Kind != n.Kind {
		return model.Major, fmt.Sprintf("changed from %s to %s", o.Kind, n.Kind)
	}
	switch n.Kind {
	case model.Class:
		return classImpact(o, n)
	case model.Type:
		if o.Signature != n.Signature {
			return model.Minor, "type declaration changed"
		}
		return model.Patch, "referenced types changed"
	default:
		return functionImpact(o, n)
	}
}

func functionImpact(o, n model.SymbolInfo) (model.ImpactLevel, string) {
	oldReq, newReq := required(o.Params), required(n.Params)
	switch {
	case oldReq != newReq:
		return model.Major, fmt.Sprintf("required parameters changed from %d to %d", oldReq, newReq)
	case o.ReturnType != n.ReturnType:
		return model.Major, fmt.Sprintf("return type changed from %q to %q", o.ReturnType, n.ReturnType)
	case len(n.Params) > len(o.Params) && sameTypes(o.Params, n.Params[:len(o.Params)]):
		return model.Patch, "added optional parameter " + paramNames(n.Params[len(o.Params):])
	case len(n.Params) != len(o.Params):
		return model.Major, fmt.Sprintf("parameter count changed from %d to %d", len(o.Params), len(n.Params))
	}
	for i := range o.Params {
		if o.Params[i].Type != n.Params[i].Type {
			return model.Minor, fmt.Sprintf("parameter %s type changed from %q to %q",
				n.Params[i].Name, o.Params[i].Type, n.Params[i].Type)
		}
	}
	if o.Signature != n.Signature {
		return model.Patch, "signature changed"
	}
	return model.Patch, "implementation dependencies changed"
}

func classImpact(o, n model.SymbolInfo) (model.ImpactLevel, string) {
	before, after := methodIndex(o.Methods), methodIndex(n.Methods)

	var removed, changed, added []string
	for name, sig := range before {
		newSig, ok := after[name]
		switch {
		case !ok:
			removed = append(removed, name)
		case newSig != sig:
			changed = append(changed, name)
		}
	}
	for name := range after {
		if _, ok := before[name]; !ok {
			added = append(added, name)
		}
	}
	sort.Strings(removed)
	sort.Strings(changed)
	sort.Strings(added)

	switch {
	case len(removed) > 0:
		return model.Major, "removed method " + strings.Join(removed, ", ")
	case len(changed) > 0:
		return model.Major, "changed method " + strings.Join(changed, ", ")
	case len(added) > 0:
		return model.Minor, "added method " + strings.Join(added, ", ")
	case o.Signature != n.Signature:
		return model.Patch, "class declaration changed"
	}
	return model.Patch, "implementation dependencies changed"
}

// methodIndex maps method names to their signatures.
func methodIndex(sigs []string) map[string]string {
	out := make(map[string]string, len(sigs))
	for _, sig := range sigs {
		out[methodName(sig)] = sig
	}
	return out
}

// methodName returns the identifier before the parameter list, dropping
// modifiers such as "static" or "async".
func methodName(sig string) string {
	head := sig
	if i := strings.Index(sig, "("); i >= 0 {
		head = sig[:i]
	}
	fields := strings.Fields(head)
	if len(fields) == 0 {
		return sig
	}
	return fields[len(fields)-1]
}

func required(params []model.Param) int {
	n := 0
	for _, p := range params {
		if !p.Optional {
			n++
		}
	}
	return n
}

func sameTypes(a, b []model.Param) bool {
	for i := range a {
		if a[i].Type != b[i].Type {
			return false
		}
	}
	return true
}

func paramNames(params []model.Param) string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name
	}
	return strings.Join(names, ", ")
}
