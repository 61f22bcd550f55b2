// Package ranking narrows a prioritized drift report for display.
package ranking

import (
	"strings"

	"github.com/tosin2013/docdrift/internal/model"
)

var tierRank = map[model.Recommendation]int{
	model.RecommendLow:      1,
	model.RecommendMedium:   2,
	model.RecommendHigh:     3,
	model.RecommendCritical: 4,
}

// SelectResults returns a new Report with only the top maxResults results.
// Results are expected in priority order. If maxResults is <= 0 or >=
// len(results), the report is returned unchanged.
func SelectResults(rep *model.Report, maxResults int) *model.Report {
	if maxResults <= 0 || maxResults >= len(rep.Results) {
		return rep
	}
	out := *rep
	out.Results = rep.Results[:maxResults]
	return &out
}

// FilterByRecommendation keeps results whose recommendation is at least min.
// An unknown min keeps everything.
func FilterByRecommendation(rep *model.Report, min model.Recommendation) *model.Report {
	floor := tierRank[min]
	out := *rep
	out.Results = make([]model.PrioritizedResult, 0, len(rep.Results))
	for i := range rep.Results {
		if tierRank[rep.Results[i].Priority.Recommendation] >= floor {
			out.Results = append(out.Results, rep.Results[i])
		}
	}
	return &out
}

// FilterByFile returns a new Report containing only results whose source
// path or one of whose affected documents contains substr
// (case-insensitive).
func FilterByFile(rep *model.Report, substr string) *model.Report {
	lower := strings.ToLower(substr)
	contains := func(path string) bool {
		return strings.Contains(strings.ToLower(path), lower)
	}

	out := *rep
	out.Results = make([]model.PrioritizedResult, 0, len(rep.Results))
	for i := range rep.Results {
		r := &rep.Results[i]
		matched := contains(r.File)
		for _, doc := range r.Impact.AffectedDocs {
			matched = matched || contains(doc)
		}
		if matched {
			out.Results = append(out.Results, *r)
		}
	}
	return &out
}

// FilterBySymbol returns a new Report containing only records with a delta
// whose symbol name contains substr (case-insensitive), and the suggestions
// for those symbols. Results left without records are dropped. Impact and
// priority still describe the whole file.
func FilterBySymbol(rep *model.Report, substr string) *model.Report {
	lower := strings.ToLower(substr)

	out := *rep
	out.Results = make([]model.PrioritizedResult, 0, len(rep.Results))
	for i := range rep.Results {
		r := rep.Results[i]

		matched := make(map[string]struct{})
		var records []model.DriftRecord
		for j := range r.Records {
			rec := &r.Records[j]
			var deltas []model.CodeDelta
			for k := range rec.Deltas {
				d := &rec.Deltas[k]
				if strings.Contains(strings.ToLower(d.Name), lower) {
					matched[d.Name] = struct{}{}
					deltas = append(deltas, *d)
				}
			}
			if len(deltas) > 0 {
				kept := *rec
				kept.Deltas = deltas
				records = append(records, kept)
			}
		}
		if len(records) == 0 {
			continue
		}

		var suggestions []model.DriftSuggestion
		for j := range r.Suggestions {
			if _, ok := matched[r.Suggestions[j].Symbol]; ok {
				suggestions = append(suggestions, r.Suggestions[j])
			}
		}
		r.Records = records
		r.Suggestions = suggestions
		out.Results = append(out.Results, r)
	}
	return &out
}
