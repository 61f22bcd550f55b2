package drift

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/tosin2013/docdrift/internal/model"
)

// ErrNotApplicable is returned by Apply when the suggestion's current content
// cannot be located in the document.
var ErrNotApplicable = errors.New("suggestion does not apply")

const diffContext = 3

// UnifiedDiff renders the suggestion as a unified diff of its section.
// firstLine is the document line of the first content line, used for hunk
// positions; pass 1 when unknown.
func UnifiedDiff(s model.DriftSuggestion, firstLine int) (string, error) {
	if firstLine < 1 {
		firstLine = 1
	}
	before := splitLines(s.CurrentContent)
	after := splitLines(s.SuggestedContent)

	prefix := 0
	for prefix < len(before) && prefix < len(after) && before[prefix] == after[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(before)-prefix && suffix < len(after)-prefix &&
		before[len(before)-1-suffix] == after[len(after)-1-suffix] {
		suffix++
	}
	if prefix == len(before) && prefix == len(after) {
		return "", nil
	}

	lead := min(prefix, diffContext)
	trail := min(suffix, diffContext)
	start := prefix - lead

	var body strings.Builder
	for _, l := range before[start:prefix] {
		body.WriteString(" " + l + "\n")
	}
	for _, l := range before[prefix : len(before)-suffix] {
		body.WriteString("-" + l + "\n")
	}
	for _, l := range after[prefix : len(after)-suffix] {
		body.WriteString("+" + l + "\n")
	}
	for _, l := range before[len(before)-suffix : len(before)-suffix+trail] {
		body.WriteString(" " + l + "\n")
	}

	origLines := len(before) - prefix - suffix + lead + trail
	newLines := len(after) - prefix - suffix + lead + trail
	hunk := &diff.Hunk{
		OrigStartLine: int32(firstLine + start),
		OrigLines:     int32(origLines),
		NewStartLine:  int32(firstLine + start),
		NewLines:      int32(newLines),
		Section:       s.Section,
		Body:          []byte(body.String()),
	}
	fd := &diff.FileDiff{
		OrigName: "a/" + s.DocFile,
		NewName:  "b/" + s.DocFile,
		Hunks:    []*diff.Hunk{hunk},
	}
	out, err := diff.PrintFileDiff(fd)
	if err != nil {
		return "", fmt.Errorf("rendering diff for %s: %w", s.DocFile, err)
	}
	return string(out), nil
}

// Locate returns the byte offset in doc where the suggestion's current
// content starts. The search begins after a heading titled with the
// suggestion's section; only an untitled section is searched from the top.
// Sections with empty content start right after their heading.
func Locate(doc string, s model.DriftSuggestion) (int, error) {
	headings := headingEnds(doc, s.Section)
	if s.CurrentContent == "" {
		if len(headings) == 0 {
			return 0, fmt.Errorf("%w: %s has no section %q", ErrNotApplicable, s.DocFile, s.Section)
		}
		return headings[0], nil
	}
	if len(headings) == 0 && s.Section == "" {
		headings = []int{0}
	}
	for _, from := range headings {
		if i := strings.Index(doc[from:], s.CurrentContent); i >= 0 {
			return from + i, nil
		}
	}
	return 0, fmt.Errorf("%w: %s section %q changed since detection", ErrNotApplicable, s.DocFile, s.Section)
}

// headingEnds returns the offset just past each heading line titled title.
func headingEnds(doc, title string) []int {
	if title == "" {
		return nil
	}
	var ends []int
	off := 0
	for _, line := range strings.SplitAfter(doc, "\n") {
		off += len(line)
		text := strings.TrimSpace(line)
		if strings.HasPrefix(text, "#") && strings.TrimSpace(strings.TrimRight(strings.TrimLeft(text, "#"), " \t#")) == title {
			ends = append(ends, off)
		}
	}
	return ends
}

// Apply replaces the suggestion's current content, found by Locate, with the
// suggested content.
func Apply(doc string, s model.DriftSuggestion) (string, error) {
	i, err := Locate(doc, s)
	if err != nil {
		return "", err
	}
	head := doc[:i]
	if s.CurrentContent == "" && !strings.HasSuffix(head, "\n") {
		head += "\n"
	}
	return head + s.SuggestedContent + doc[i+len(s.CurrentContent):], nil
}
