// Package report renders drift reports for people and machines.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/tosin2013/docdrift/internal/model"
	"github.com/tosin2013/docdrift/internal/toon"
)

// Format is an output format name.
type Format string

const (
	Human Format = "human"
	JSON  Format = "json"
	YAML  Format = "yaml"
	TOON  Format = "toon"
)

// Formats lists the accepted format names.
var Formats = []Format{Human, JSON, YAML, TOON}

// ParseFormat validates a format name. Empty means human.
func ParseFormat(name string) (Format, error) {
	if name == "" {
		return Human, nil
	}
	f := Format(strings.ToLower(name))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q (want one of human, json, yaml, toon)", name)
}

// Options tunes human output.
type Options struct {
	// NoColor disables ANSI colors.
	NoColor bool

	// Suggestions includes suggestion reasoning under each result.
	Suggestions bool
}

// Write renders rep to w in format f.
func Write(w io.Writer, rep *model.Report, f Format, opts Options) error {
	switch f {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case YAML:
		return writeYAML(w, rep)
	case TOON:
		_, err := fmt.Fprintln(w, toon.Encode(rep))
		return err
	case Human, "":
		return writeHuman(w, rep, opts)
	default:
		return fmt.Errorf("unknown format %q", f)
	}
}

// writeYAML goes through JSON so keys follow the snake_case JSON names and
// embedded results are flattened the same way.
func writeYAML(w io.Writer, rep *model.Report) error {
	data, err := json.Marshal(rep)
	if err != nil {
		return err
	}
	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(normalize(doc)); err != nil {
		return err
	}
	return enc.Close()
}

// normalize turns json.Number values into ints or floats so YAML emits
// plain scalars.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = normalize(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = normalize(e)
		}
		return t
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		return v
	}
}

type palette struct {
	title, dim, ok *color.Color
	tiers          map[string]*color.Color
}

func newPalette(noColor bool) palette {
	p := palette{
		title: color.New(color.FgWhite, color.Bold),
		dim:   color.New(color.FgHiBlack),
		ok:    color.New(color.FgGreen, color.Bold),
		tiers: map[string]*color.Color{
			"critical": color.New(color.FgRed, color.Bold),
			"high":     color.New(color.FgRed),
			"medium":   color.New(color.FgYellow),
			"low":      color.New(color.FgGreen),
		},
	}
	if noColor {
		p.title.DisableColor()
		p.dim.DisableColor()
		p.ok.DisableColor()
		for _, c := range p.tiers {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) tier(name string) *color.Color {
	if c, ok := p.tiers[strings.ToLower(name)]; ok {
		return c
	}
	return p.dim
}

func writeHuman(w io.Writer, rep *model.Report, opts Options) error {
	p := newPalette(opts.NoColor)
	var b strings.Builder

	p.title.Fprintf(&b, "docdrift report for %s\n", rep.Project)
	if rep.OldSnapshot == "" {
		fmt.Fprintf(&b, "Baseline snapshot %s recorded; nothing to compare yet.\n", shortID(rep.NewSnapshot))
		_, err := io.WriteString(w, b.String())
		return err
	}
	p.dim.Fprintf(&b, "snapshots %s -> %s\n\n", shortID(rep.OldSnapshot), shortID(rep.NewSnapshot))

	if len(rep.Results) == 0 {
		p.ok.Fprintln(&b, "No documentation drift detected.")
		_, err := io.WriteString(w, b.String())
		return err
	}

	counts := make(map[model.Recommendation]int)
	for i := range rep.Results {
		r := &rep.Results[i]
		counts[r.Priority.Recommendation]++

		rec := string(r.Priority.Recommendation)
		p.tier(rec).Fprintf(&b, "[%s %d]", strings.ToUpper(rec), r.Priority.Overall)
		fmt.Fprintf(&b, " %s  ", r.File)
		p.dim.Fprintf(&b, "severity %s, effort %s", r.Severity, r.Impact.Effort)
		if r.Impact.RequiresManualReview {
			p.dim.Fprint(&b, ", manual review")
		}
		b.WriteString("\n")
		if r.Priority.SuggestedAction != "" {
			fmt.Fprintf(&b, "   %s\n", r.Priority.SuggestedAction)
		}

		for j := range r.Records {
			record := &r.Records[j]
			p.tier(string(record.Severity)).Fprintf(&b, "   %-9s", record.Type)
			fmt.Fprintf(&b, " %s\n", record.Description)
			if len(record.AffectedDocs) > 0 {
				p.dim.Fprintf(&b, "             docs: %s\n", strings.Join(record.AffectedDocs, ", "))
			}
		}

		if opts.Suggestions {
			for j := range r.Suggestions {
				s := &r.Suggestions[j]
				mode := "manual"
				if s.AutoApplicable {
					mode = "auto"
				}
				fmt.Fprintf(&b, "   suggestion %s > %s ", s.DocFile, s.Section)
				p.dim.Fprintf(&b, "(%.2f, %s)\n", s.Confidence, mode)
				fmt.Fprintln(&b, wrapText(s.Reasoning, 80, "     "))
			}
		}
		b.WriteString("\n")
	}

	b.WriteString(strings.Repeat("─", 80))
	b.WriteString("\n")
	var parts []string
	for _, t := range []model.Recommendation{model.RecommendCritical, model.RecommendHigh, model.RecommendMedium, model.RecommendLow} {
		if counts[t] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[t], t))
		}
	}
	fmt.Fprintf(&b, "%d files with drift: %s\n", len(rep.Results), strings.Join(parts, ", "))
	p.dim.Fprintln(&b, "Run with --format json, yaml or toon for machine-readable output")

	_, err := io.WriteString(w, b.String())
	return err
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func wrapText(text string, width int, indent string) string {
	var result strings.Builder
	for _, line := range strings.Split(text, "\n") {
		words := strings.Fields(line)
		if len(words) == 0 {
			result.WriteString("\n")
			continue
		}

		current := indent
		for _, word := range words {
			switch {
			case len(current)+len(word)+1 > width && current != indent:
				result.WriteString(current + "\n")
				current = indent + word
			case current == indent:
				current += word
			default:
				current += " " + word
			}
		}
		result.WriteString(current + "\n")
	}
	return strings.TrimSuffix(result.String(), "\n")
}
