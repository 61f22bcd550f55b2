// Package toon implements TOON (Token-Oriented Object Notation) encoding of
// drift reports.
package toon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tosin2013/docdrift/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Encode converts a Report into TOON format. Results keep their priority
// order; records, deltas and suggestions follow the result they belong to.
func Encode(rep *model.Report) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("project: %s", encodeValue(rep.Project)))
	if rep.OldSnapshot != "" {
		parts = append(parts, fmt.Sprintf("old: %s", encodeValue(rep.OldSnapshot)))
	}
	parts = append(parts, fmt.Sprintf("new: %s", encodeValue(rep.NewSnapshot)))
	parts = append(parts, fmt.Sprintf("generated: %s", encodeValue(rep.GeneratedAt.UTC().Format(time.RFC3339))))

	var resultRows, recordRows, deltaRows, suggestionRows [][]string
	for i := range rep.Results {
		r := &rep.Results[i]
		resultRows = append(resultRows, []string{
			r.File,
			string(r.Severity),
			strconv.Itoa(r.Priority.Overall),
			string(r.Priority.Recommendation),
			string(r.Impact.Effort),
			strings.Join(r.Impact.AffectedDocs, " "),
		})
		for j := range r.Records {
			rec := &r.Records[j]
			recordRows = append(recordRows, []string{
				r.File,
				rec.ID,
				string(rec.Type),
				string(rec.Severity),
				strings.Join(rec.AffectedDocs, " "),
			})
			for k := range rec.Deltas {
				d := &rec.Deltas[k]
				deltaRows = append(deltaRows, []string{
					d.File,
					string(d.Type),
					string(d.Category),
					d.Name,
					string(d.Impact),
					d.Details,
				})
			}
		}
		for j := range r.Suggestions {
			s := &r.Suggestions[j]
			apply := "manual"
			if s.AutoApplicable {
				apply = "auto"
			}
			suggestionRows = append(suggestionRows, []string{
				s.DocFile,
				s.Section,
				strconv.FormatFloat(s.Confidence, 'f', 2, 64),
				apply,
				s.Reasoning,
			})
		}
	}

	parts = append(parts, formatTabular("results",
		[]string{"file", "severity", "priority", "recommendation", "effort", "docs"}, resultRows))
	parts = append(parts, formatTabular("records",
		[]string{"file", "id", "type", "severity", "docs"}, recordRows))
	parts = append(parts, formatTabular("deltas",
		[]string{"file", "type", "category", "name", "impact", "details"}, deltaRows))
	if len(suggestionRows) > 0 {
		parts = append(parts, formatTabular("suggestions",
			[]string{"doc", "section", "confidence", "apply", "reasoning"}, suggestionRows))
	}

	return strings.Join(parts, "\n")
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
