package ranking

import (
	"testing"

	"github.com/tosin2013/docdrift/internal/model"
)

func result(file string, rec model.Recommendation, docs []string, symbols ...string) model.PrioritizedResult {
	r := model.PrioritizedResult{
		DriftDetectionResult: model.DriftDetectionResult{
			File:     file,
			HasDrift: true,
			Impact:   model.ImpactSummary{AffectedDocs: docs},
		},
		Priority: model.PriorityScore{Recommendation: rec},
	}
	for _, name := range symbols {
		r.Records = append(r.Records, model.DriftRecord{
			ID:     "rec-" + name,
			Deltas: []model.CodeDelta{{Name: name, File: file}},
		})
		r.Suggestions = append(r.Suggestions, model.DriftSuggestion{DocFile: "api.md", Symbol: name})
	}
	return r
}

func makeReport() *model.Report {
	return &model.Report{
		Project: "test",
		Results: []model.PrioritizedResult{
			result("src/a.ts", model.RecommendCritical, []string{"docs/api.md"}, "calculate", "Calculator"),
			result("src/b.ts", model.RecommendMedium, []string{"docs/guide.md"}, "parse"),
			result("lib/c.py", model.RecommendLow, nil, "helper"),
		},
	}
}

func TestSelectResultsAll(t *testing.T) {
	t.Parallel()

	rep := makeReport()
	for _, n := range []int{0, 3, 5} {
		if got := SelectResults(rep, n); got != rep {
			t.Errorf("maxResults=%d should return original", n)
		}
	}
}

func TestSelectResultsSubset(t *testing.T) {
	t.Parallel()

	rep := makeReport()
	got := SelectResults(rep, 2)
	if len(got.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got.Results))
	}
	if got.Results[0].File != "src/a.ts" || got.Results[1].File != "src/b.ts" {
		t.Errorf("expected src/a.ts, src/b.ts; got %s, %s", got.Results[0].File, got.Results[1].File)
	}
	if got.Project != "test" {
		t.Errorf("project not carried over: %q", got.Project)
	}
	if len(rep.Results) != 3 {
		t.Error("original report was modified")
	}
}

func TestFilterByRecommendation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		min  model.Recommendation
		want int
	}{
		{model.RecommendCritical, 1},
		{model.RecommendHigh, 1},
		{model.RecommendMedium, 2},
		{model.RecommendLow, 3},
		{"", 3},
	}
	for _, tt := range tests {
		got := FilterByRecommendation(makeReport(), tt.min)
		if len(got.Results) != tt.want {
			t.Errorf("min %q: got %d results, want %d", tt.min, len(got.Results), tt.want)
		}
	}
}

func TestFilterByFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		substr string
		want   []string
	}{
		{"SRC/", []string{"src/a.ts", "src/b.ts"}},
		{"guide", []string{"src/b.ts"}},
		{".py", []string{"lib/c.py"}},
		{"nothing", nil},
	}
	for _, tt := range tests {
		got := FilterByFile(makeReport(), tt.substr)
		var files []string
		for i := range got.Results {
			files = append(files, got.Results[i].File)
		}
		if len(files) != len(tt.want) {
			t.Errorf("%q: got %v, want %v", tt.substr, files, tt.want)
			continue
		}
		for i := range files {
			if files[i] != tt.want[i] {
				t.Errorf("%q: got %v, want %v", tt.substr, files, tt.want)
			}
		}
	}
}

func TestFilterBySymbol(t *testing.T) {
	t.Parallel()

	rep := makeReport()
	got := FilterBySymbol(rep, "calc")

	if len(got.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(got.Results))
	}
	r := got.Results[0]
	if r.File != "src/a.ts" {
		t.Errorf("unexpected file %s", r.File)
	}
	// Both calculate and Calculator match case-insensitively.
	if len(r.Records) != 2 || len(r.Suggestions) != 2 {
		t.Errorf("expected 2 records and 2 suggestions, got %d and %d", len(r.Records), len(r.Suggestions))
	}

	got = FilterBySymbol(rep, "Calculator")
	r = got.Results[0]
	if len(r.Records) != 1 || r.Records[0].Deltas[0].Name != "Calculator" {
		t.Errorf("expected only Calculator record, got %+v", r.Records)
	}
	if len(r.Suggestions) != 1 || r.Suggestions[0].Symbol != "Calculator" {
		t.Errorf("expected only Calculator suggestion, got %+v", r.Suggestions)
	}
	if len(rep.Results[0].Records) != 2 {
		t.Error("original report was modified")
	}

	if got := FilterBySymbol(rep, "missing"); len(got.Results) != 0 {
		t.Errorf("expected no results, got %d", len(got.Results))
	}
}
