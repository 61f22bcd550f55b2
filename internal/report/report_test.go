package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/tosin2013/docdrift/internal/model"
)

func sampleReport() *model.Report {
	return &model.Report{
		Project:     "/repo/app",
		OldSnapshot: "11111111-aaaa",
		NewSnapshot: "22222222-bbbb",
		GeneratedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Results: []model.PrioritizedResult{
			{
				DriftDetectionResult: model.DriftDetectionResult{
					File:     "src/math.ts",
					HasDrift: true,
					Severity: model.SeverityCritical,
					Records: []model.DriftRecord{{
						ID:           "rec-1",
						Type:         model.DriftBreaking,
						AffectedDocs: []string{"api.md"},
						Description:  "removed function calculate in src/math.ts (breaking impact)",
						Severity:     model.SeverityCritical,
						Deltas: []model.CodeDelta{{
							Type: model.Removed, Category: model.Function, Name: "calculate",
							File: "src/math.ts", Impact: model.Breaking,
						}},
					}},
					Suggestions: []model.DriftSuggestion{{
						DocFile:    "api.md",
						Section:    "calculate(x)",
						Symbol:     "calculate",
						Reasoning:  "function calculate was removed from src/math.ts; this section still references it.",
						Confidence: 0.8,
					}},
					Impact: model.ImpactSummary{
						Breaking:             1,
						AffectedDocs:         []string{"api.md"},
						Effort:               model.EffortHigh,
						RequiresManualReview: true,
					},
				},
				Priority: model.PriorityScore{
					Overall:         84,
					Recommendation:  model.RecommendCritical,
					SuggestedAction: "Update the documentation immediately.",
				},
			},
		},
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", Human, false},
		{"JSON", JSON, false},
		{"yaml", YAML, false},
		{"toon", TOON, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleReport(), JSON, Options{}))

	var got model.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, *sampleReport(), got)
	assert.Contains(t, buf.String(), `"has_drift": true`)
}

func TestWriteYAML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleReport(), YAML, Options{}))

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "/repo/app", doc["project"])

	results, ok := doc["results"].([]any)
	require.True(t, ok)
	require.Len(t, results, 1)
	first, ok := results[0].(map[string]any)
	require.True(t, ok)
	// Embedded result fields sit next to priority, not under a nested key.
	assert.Equal(t, "src/math.ts", first["file"])
	priority, ok := first["priority"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 84, priority["overall"])
	assert.NotContains(t, buf.String(), "driftdetectionresult")
}

func TestWriteTOON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleReport(), TOON, Options{}))
	assert.True(t, strings.HasPrefix(buf.String(), "project: /repo/app\n"))
	assert.Contains(t, buf.String(), "  src/math.ts,critical,84,critical,high,api.md")
}

func TestWriteHuman(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleReport(), Human, Options{NoColor: true, Suggestions: true}))
	out := buf.String()

	for _, want := range []string{
		"docdrift report for /repo/app",
		"snapshots 11111111 -> 22222222",
		"[CRITICAL 84] src/math.ts  severity critical, effort high, manual review",
		"Update the documentation immediately.",
		"breaking  removed function calculate",
		"docs: api.md",
		"suggestion api.md > calculate(x) (0.80, manual)",
		"1 files with drift: 1 critical",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "\x1b[", "colors must be disabled")
}

func TestWriteHumanBaselineAndClean(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	rep := &model.Report{Project: "/repo", NewSnapshot: "abcdef0123456789"}
	require.NoError(t, Write(&buf, rep, Human, Options{NoColor: true}))
	assert.Contains(t, buf.String(), "Baseline snapshot abcdef01 recorded")

	buf.Reset()
	rep.OldSnapshot = "0123"
	require.NoError(t, Write(&buf, rep, Human, Options{NoColor: true}))
	assert.Contains(t, buf.String(), "No documentation drift detected.")
}

func TestWrapText(t *testing.T) {
	t.Parallel()

	got := wrapText("one two three four", 10, "  ")
	assert.Equal(t, "  one two\n  three\n  four", got)
}
