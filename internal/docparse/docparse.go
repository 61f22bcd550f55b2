// Package docparse reads markdown documentation into model.DocumentationModel
// values: heading-delimited sections, fenced code examples, referenced code
// symbols, relative links and a Diataxis category.
package docparse

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tosin2013/docdrift/internal/model"
)

var (
	headingRe = regexp.MustCompile(`^(#{1,6})[ \t]+(.*?)[ \t#]*$`)
	fenceRe   = regexp.MustCompile("^[ \t]{0,3}(`{3,}|~{3,})[ \t]*([^`\\s]*)")
	linkRe    = regexp.MustCompile(`\[[^\]]*\]\(([^)\s]+)(?:[ \t]+"[^"]*")?\)`)
)

// Parser turns markdown files into documentation models.
type Parser struct {
	resolver SymbolResolver
	logger   *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithResolver classifies referenced names using known code symbols instead
// of the casing heuristic.
func WithResolver(r SymbolResolver) Option {
	return func(p *Parser) { p.resolver = r }
}

// WithLogger sets the parser logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewParser creates a Parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseFile reads root/relPath and parses it. LastModified comes from the
// file's modification time.
func (p *Parser) ParseFile(root, relPath string) (*model.DocumentationModel, error) {
	absPath := filepath.Join(root, relPath)
	fi, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat doc %s: %w", relPath, err)
	}
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read doc %s: %w", relPath, err)
	}
	return p.Parse(filepath.ToSlash(relPath), content, fi.ModTime()), nil
}

// Parse builds a documentation model from markdown content.
func (p *Parser) Parse(path string, content []byte, modTime time.Time) *model.DocumentationModel {
	sum := sha256.Sum256(content)
	text := strings.ReplaceAll(string(content), "\r\n", "\n")
	lines := strings.Split(text, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	fm, start := p.frontMatter(path, lines)

	doc := &model.DocumentationModel{
		Path:         path,
		Hash:         hex.EncodeToString(sum[:]),
		LastModified: modTime.UTC(),
		References:   relativeLinks(lines[start:]),
	}
	declared := Declared(path, fm.category())
	doc.Sections = p.sections(lines, start, declared)
	doc.Diataxis = declared
	if doc.Diataxis == "" {
		doc.Diataxis = FromContent(strings.Join(lines[start:], "\n"))
	}
	return doc
}

type frontMatter struct {
	Title        string `yaml:"title"`
	Diataxis     string `yaml:"diataxis"`
	DiataxisType string `yaml:"diataxis_type"`
	Category     string `yaml:"category"`
}

func (f frontMatter) category() model.Diataxis {
	for _, v := range []string{f.Diataxis, f.DiataxisType, f.Category} {
		if d := Normalize(v); d != "" {
			return d
		}
	}
	return ""
}

// frontMatter parses a leading YAML block delimited by --- lines and returns
// the index of the first body line.
func (p *Parser) frontMatter(path string, lines []string) (frontMatter, int) {
	var fm frontMatter
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return fm, 0
	}
	for i := 1; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed != "---" && trimmed != "..." {
			continue
		}
		if err := yaml.Unmarshal([]byte(strings.Join(lines[1:i], "\n")), &fm); err != nil {
			p.logger.Debug("ignoring malformed front matter", "file", path, "error", err)
			fm = frontMatter{}
		}
		return fm, i + 1
	}
	return fm, 0
}

type sectionBuilder struct {
	section model.DocumentationSection
	content []string
	refs    refSet
}

type fence struct {
	marker      string
	language    string
	description string
	code        []string
}

// sections splits the body into heading-delimited sections. category is the
// declared document category; when empty each example is classified from its
// own description and code, then from its section.
func (p *Parser) sections(lines []string, start int, category model.Diataxis) []model.DocumentationSection {
	var (
		sections []model.DocumentationSection
		open     *fence
		lastText string
	)
	cur := &sectionBuilder{section: model.DocumentationSection{StartLine: start + 1}, refs: newRefSet()}

	flush := func() {
		s := cur.section
		s.Content = strings.Join(cur.content, "\n")
		if s.Level == 0 {
			if strings.TrimSpace(s.Content) == "" {
				return
			}
			s.EndLine = s.StartLine + len(cur.content) - 1
		} else {
			s.EndLine = s.StartLine + len(cur.content)
		}
		s.Functions, s.Classes, s.Types = cur.refs.sorted()
		sections = append(sections, s)
	}

	closeFence := func() {
		code := strings.Join(open.code, "\n")
		ex := model.CodeExample{
			Language:    strings.ToLower(open.language),
			Code:        code,
			Description: open.description,
			Hints:       validationHints(code),
		}
		ex.Diataxis = category
		if ex.Diataxis == "" {
			ex.Diataxis = FromContent(open.description + "\n" + code)
		}
		if ex.Diataxis == "" {
			ex.Diataxis = FromContent(cur.section.Title + "\n" + strings.Join(cur.content, "\n"))
		}
		exRefs := newRefSet()
		p.codeRefs(code, exRefs)
		ex.Symbols = exRefs.names()
		cur.refs.merge(exRefs)
		cur.section.Examples = append(cur.section.Examples, ex)
		open = nil
		lastText = ""
	}

	for i := start; i < len(lines); i++ {
		line := lines[i]

		if open != nil {
			cur.content = append(cur.content, line)
			if closesFence(line, open.marker) {
				closeFence()
			} else {
				open.code = append(open.code, line)
			}
			continue
		}

		if m := fenceRe.FindStringSubmatch(line); m != nil {
			cur.content = append(cur.content, line)
			open = &fence{marker: m[1], language: m[2], description: lastText}
			continue
		}

		if m := headingRe.FindStringSubmatch(line); m != nil {
			flush()
			cur = &sectionBuilder{
				section: model.DocumentationSection{
					Title:     m[2],
					Level:     len(m[1]),
					StartLine: i + 1,
				},
				refs: newRefSet(),
			}
			p.headingRefs(m[2], cur.refs)
			lastText = ""
			continue
		}

		cur.content = append(cur.content, line)
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lastText = trimmed
			p.inlineRefs(line, cur.refs)
		}
	}
	if open != nil {
		closeFence()
	}
	flush()
	return sections
}

func closesFence(line, marker string) bool {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) < len(marker) {
		return false
	}
	return strings.Trim(trimmed, marker[:1]) == ""
}

// relativeLinks returns the sorted set of link targets that point at local files.
func relativeLinks(lines []string) []string {
	seen := make(map[string]struct{})
	for _, line := range lines {
		for _, m := range linkRe.FindAllStringSubmatch(line, -1) {
			target := m[1]
			if strings.HasPrefix(target, "#") || strings.Contains(target, "://") ||
				strings.HasPrefix(target, "mailto:") {
				continue
			}
			if i := strings.IndexByte(target, '#'); i >= 0 {
				target = target[:i]
			}
			if target != "" {
				seen[target] = struct{}{}
			}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
