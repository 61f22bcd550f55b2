package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tosin2013/docdrift/internal/model"
)

func writeTestFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

const mathSource = `export function calculate(x: number): number {
  return x * 2;
}

export function add(a: number, b: number): number {
  return a + b;
}
`

const apiDoc = "# Math\n\n## calculate(x)\n\nUse `calculate(x)` to double a number.\n\n## add\n\nCall `add(a, b)` to sum two numbers.\n"

func createSampleRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTestFile(t, dir, "src/math.ts", mathSource)
	writeTestFile(t, dir, "docs/api.md", apiDoc)
	return dir
}

// removeCalculate drops calculate from the sample repo.
func removeCalculate(t *testing.T, dir string) {
	t.Helper()
	writeTestFile(t, dir, "src/math.ts", "export function add(a: number, b: number): number {\n  return a + b;\n}\n")
}

func runOK(t *testing.T, args ...string) (string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), args, &stdout, &stderr); err != nil {
		t.Fatalf("run %v: %v\nstderr: %s", args, err, stderr.String())
	}
	return stdout.String(), stderr.String()
}

func decodeReport(t *testing.T, out string) model.Report {
	t.Helper()
	var rep model.Report
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("decoding report: %v\n%s", err, out)
	}
	return rep
}

func TestRunVersion(t *testing.T) {
	t.Parallel()

	out, _ := runOK(t, "version")
	if out != "docdrift dev\n" {
		t.Errorf("version output: %q", out)
	}

	out, _ = runOK(t, "--version")
	if !strings.Contains(out, "dev") {
		t.Errorf("--version output: %q", out)
	}
}

func TestSnapshotCommand(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	out, _ := runOK(t, "snapshot", "-q", dir)
	if !strings.Contains(out, "1 source files, 1 documents") {
		t.Errorf("unexpected output: %q", out)
	}
	entries, err := os.ReadDir(filepath.Join(dir, ".docdrift", "snapshots"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected 1 stored snapshot, got %d", len(entries))
	}
}

func TestDetectFirstRunRecordsBaseline(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	out, _ := runOK(t, "detect", "-q", "--no-color", dir)
	if !strings.Contains(out, "Baseline snapshot") {
		t.Errorf("expected baseline message, got:\n%s", out)
	}

	out, _ = runOK(t, "detect", "-q", "--no-color", dir)
	if !strings.Contains(out, "No documentation drift detected.") {
		t.Errorf("expected clean report, got:\n%s", out)
	}
}

func TestDetectRemovedFunction(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	runOK(t, "snapshot", "-q", dir)
	removeCalculate(t, dir)

	out, _ := runOK(t, "detect", "-q", "--format", "json", dir)
	rep := decodeReport(t, out)
	if rep.OldSnapshot == "" || rep.NewSnapshot == "" {
		t.Errorf("missing snapshot ids: %+v", rep)
	}
	if len(rep.Results) != 1 {
		t.Fatalf("expected 1 result, got %d:\n%s", len(rep.Results), out)
	}
	r := rep.Results[0]
	if r.File != "src/math.ts" || r.Severity != model.SeverityCritical {
		t.Errorf("unexpected result %s %s", r.File, r.Severity)
	}
	if len(r.Records) != 1 || r.Records[0].Type != model.DriftBreaking {
		t.Errorf("expected one breaking record, got %+v", r.Records)
	}

	// Detect does not advance the baseline.
	out, _ = runOK(t, "detect", "-q", "--format", "json", dir)
	if got := len(decodeReport(t, out).Results); got != 1 {
		t.Errorf("second detect: expected 1 result, got %d", got)
	}

	// --save does.
	runOK(t, "detect", "-q", "--save", "--format", "json", dir)
	out, _ = runOK(t, "detect", "-q", "--format", "json", dir)
	if got := len(decodeReport(t, out).Results); got != 0 {
		t.Errorf("after --save: expected 0 results, got %d", got)
	}
}

func TestDetectFilters(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	runOK(t, "snapshot", "-q", dir)
	removeCalculate(t, dir)

	tests := []struct {
		args []string
		want int
	}{
		{[]string{"--symbol", "calc"}, 1},
		{[]string{"--symbol", "nothing"}, 0},
		{[]string{"--file", "math"}, 1},
		{[]string{"--file", "api.md"}, 1},
		{[]string{"--file", "other.ts"}, 0},
		{[]string{"--min", "critical"}, 1},
		{[]string{"-n", "1"}, 1},
	}
	for _, tt := range tests {
		args := append([]string{"detect", "-q", "-f", "json", dir}, tt.args...)
		out, _ := runOK(t, args...)
		if got := len(decodeReport(t, out).Results); got != tt.want {
			t.Errorf("%v: expected %d results, got %d", tt.args, tt.want, got)
		}
	}
}

func TestDetectFormats(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	runOK(t, "snapshot", "-q", dir)
	removeCalculate(t, dir)

	out, _ := runOK(t, "detect", "-q", "-f", "toon", dir)
	if !strings.Contains(out, "results[1]{file,severity,priority,recommendation,effort,docs}:") {
		t.Errorf("unexpected toon output:\n%s", out)
	}

	out, _ = runOK(t, "detect", "-q", "-f", "yaml", dir)
	if !strings.Contains(out, "file: src/math.ts") {
		t.Errorf("unexpected yaml output:\n%s", out)
	}

	out, _ = runOK(t, "detect", "-q", "--no-color", "--suggestions", dir)
	if !strings.Contains(out, "src/math.ts") || !strings.Contains(out, "suggestion api.md > calculate(x)") {
		t.Errorf("unexpected human output:\n%s", out)
	}
}

func TestDetectFailOn(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	runOK(t, "snapshot", "-q", dir)
	removeCalculate(t, dir)

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"detect", "-q", "-f", "json", "--fail-on", "medium", dir}, &stdout, &stderr)
	if !errors.Is(err, errDrift) {
		t.Fatalf("expected errDrift, got %v", err)
	}
	if len(decodeReport(t, stdout.String()).Results) != 1 {
		t.Error("report should still be written before failing")
	}
}

func TestDetectInvalidArguments(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"format", []string{"detect", "-f", "xml", dir}, "unknown format"},
		{"fail-on", []string{"detect", "--fail-on", "urgent", dir}, "unknown priority"},
		{"min", []string{"detect", "-q", "--min", "urgent", dir}, "unknown priority"},
		{"language", []string{"detect", "-l", "cobol", dir}, "unsupported language"},
		{"store", []string{"detect", "--store", "s3", dir}, "store must be"},
		{"log level", []string{"detect", "--log-level", "loud", dir}, "unknown log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var stdout, stderr bytes.Buffer
			err := run(context.Background(), tt.args, &stdout, &stderr)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestRunNotADirectory(t *testing.T) {
	t.Parallel()
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"detect", f}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "not a directory") {
		t.Fatalf("expected not a directory error, got %v", err)
	}
}

func TestConfigFileAndDocsFlag(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "src/math.ts", mathSource)
	writeTestFile(t, dir, "documentation/api.md", apiDoc)
	writeTestFile(t, dir, ".docdrift.toml", "docs_dir = \"documentation\"\nstore = \"badger\"\nsnapshot_dir = \".docdrift/db\"\n")

	out, _ := runOK(t, "snapshot", "-q", dir)
	if !strings.Contains(out, "1 documents") {
		t.Errorf("config docs_dir not used: %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, ".docdrift", "db")); err != nil {
		t.Errorf("badger store not created: %v", err)
	}

	out, _ = runOK(t, "snapshot", "-q", "--docs", "missing", dir)
	if !strings.Contains(out, "0 documents") {
		t.Errorf("--docs flag not applied: %q", out)
	}
}
