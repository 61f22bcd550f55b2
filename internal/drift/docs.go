package drift

import (
	"sort"

	"github.com/tosin2013/docdrift/internal/model"
)

// sectionRef locates one documentation section.
type sectionRef struct {
	Doc     string
	Section model.DocumentationSection
}

// docIndex walks documentation models in path order.
type docIndex struct {
	paths []string
	docs  map[string]model.DocumentationModel
}

func newDocIndex(docs map[string]model.DocumentationModel) *docIndex {
	paths := make([]string, 0, len(docs))
	for p := range docs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return &docIndex{paths: paths, docs: docs}
}

// referencing returns every section whose referenced symbol sets contain name.
func (x *docIndex) referencing(name string) []sectionRef {
	var out []sectionRef
	for _, p := range x.paths {
		doc := x.docs[p]
		for _, sec := range doc.Sections {
			if sec.References(name) {
				out = append(out, sectionRef{Doc: p, Section: sec})
			}
		}
	}
	return out
}

// placement picks where an undocumented new symbol should be described: the
// first section documenting another exported symbol of the same source file,
// else the last section of the first documentation file.
func (x *docIndex) placement(name string, fm *model.FileModel) (sectionRef, bool) {
	var siblings []string
	for sib := range exportedSymbols(fm) {
		if sib != name {
			siblings = append(siblings, sib)
		}
	}
	sort.Strings(siblings)

	for _, p := range x.paths {
		doc := x.docs[p]
		for _, sec := range doc.Sections {
			for _, sib := range siblings {
				if sec.References(sib) {
					return sectionRef{Doc: p, Section: sec}, true
				}
			}
		}
	}
	for _, p := range x.paths {
		if secs := x.docs[p].Sections; len(secs) > 0 {
			return sectionRef{Doc: p, Section: secs[len(secs)-1]}, true
		}
	}
	return sectionRef{}, false
}

// docPaths returns the distinct documentation files of refs in order.
func docPaths(refs []sectionRef) []string {
	var out []string
	for _, r := range refs {
		if len(out) == 0 || out[len(out)-1] != r.Doc {
			out = append(out, r.Doc)
		}
	}
	return out
}
