package docparse

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tosin2013/docdrift/internal/model"
)

const mathDoc = "---\n" +
	"title: Math\n" +
	"diataxis: reference\n" +
	"---\n" +
	"Intro line with `helper`.\n" +
	"\n" +
	"# Math API\n" +
	"\n" +
	"Use `calculate(x)` to compute. See [guide](../guides/setup.md#top) and [site](https://example.com).\n" +
	"\n" +
	"Example usage:\n" +
	"\n" +
	"```ts\n" +
	"// expect: returns 4\n" +
	"import { calculate } from './math';\n" +
	"const r = calculate(2);\n" +
	"const c = new Calculator();\n" +
	"```\n" +
	"\n" +
	"## `Calculator`\n" +
	"\n" +
	"Class docs.\n"

func TestParseSections(t *testing.T) {
	t.Parallel()

	mod := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	doc := NewParser().Parse("docs/math.md", []byte(mathDoc), mod)

	assert.Equal(t, "docs/math.md", doc.Path)
	assert.Len(t, doc.Hash, 64)
	assert.Equal(t, time.UTC, doc.LastModified.Location())
	assert.True(t, doc.LastModified.Equal(mod))
	assert.Equal(t, model.Reference, doc.Diataxis)
	assert.Equal(t, []string{"../guides/setup.md"}, doc.References)

	require.Len(t, doc.Sections, 3)

	pre := doc.Sections[0]
	assert.Equal(t, "", pre.Title)
	assert.Equal(t, 0, pre.Level)
	assert.Equal(t, 5, pre.StartLine)
	assert.Equal(t, 6, pre.EndLine)
	assert.Equal(t, []string{"helper"}, pre.Functions)

	api := doc.Sections[1]
	assert.Equal(t, "Math API", api.Title)
	assert.Equal(t, 1, api.Level)
	assert.Equal(t, 7, api.StartLine)
	assert.Equal(t, 19, api.EndLine)
	assert.Equal(t, []string{"calculate"}, api.Functions)
	assert.Equal(t, []string{"Calculator"}, api.Classes)
	assert.True(t, api.References("calculate"))

	require.Len(t, api.Examples, 1)
	ex := api.Examples[0]
	assert.Equal(t, "ts", ex.Language)
	assert.Equal(t, "Example usage:", ex.Description)
	assert.Equal(t, model.Reference, ex.Diataxis)
	assert.Equal(t, []string{"Calculator", "calculate"}, ex.Symbols)
	require.NotNil(t, ex.Hints)
	assert.Equal(t, "returns 4", ex.Hints.ExpectedBehavior)
	assert.Equal(t, []string{"./math"}, ex.Hints.Dependencies)
	assert.True(t, ex.Hints.ContextRequired)

	cls := doc.Sections[2]
	assert.Equal(t, "`Calculator`", cls.Title)
	assert.Equal(t, 2, cls.Level)
	assert.Equal(t, 20, cls.StartLine)
	assert.Equal(t, 22, cls.EndLine)
	assert.Equal(t, []string{"Calculator"}, cls.Classes)
	assert.Equal(t, "\nClass docs.", cls.Content)

	assert.True(t, doc.Mentions("Calculator"))
	assert.False(t, doc.Mentions("missing"))
}

func TestParseFenceHidesHeadings(t *testing.T) {
	t.Parallel()

	src := "# Install\n\n```bash\n# not a heading\nnpm install\n```\n"
	doc := NewParser().Parse("README.md", []byte(src), time.Now())

	require.Len(t, doc.Sections, 1)
	assert.Equal(t, "Install", doc.Sections[0].Title)
	require.Len(t, doc.Sections[0].Examples, 1)
	assert.Equal(t, "# not a heading\nnpm install", doc.Sections[0].Examples[0].Code)
	assert.Nil(t, doc.Sections[0].Examples[0].Hints)
}

func TestParseUnclosedFence(t *testing.T) {
	t.Parallel()

	src := "## Usage\n\n```python\nrun(1)\n"
	doc := NewParser().Parse("a.md", []byte(src), time.Now())

	require.Len(t, doc.Sections, 1)
	require.Len(t, doc.Sections[0].Examples, 1)
	assert.Equal(t, "python", doc.Sections[0].Examples[0].Language)
	assert.Equal(t, []string{"run"}, doc.Sections[0].Functions)
}

func TestHeadingCallTokens(t *testing.T) {
	t.Parallel()

	doc := NewParser().Parse("a.md", []byte("## add(a, b)\n\nAdds.\n"), time.Now())
	require.Len(t, doc.Sections, 1)
	assert.Equal(t, []string{"add"}, doc.Sections[0].Functions)
}

func TestInlineCodeHeuristic(t *testing.T) {
	t.Parallel()

	src := "# Refs\n\nSee `UserService.getUser()`, `Options`, `npm install`, `--verbose` and `null`.\n"
	doc := NewParser().Parse("a.md", []byte(src), time.Now())

	require.Len(t, doc.Sections, 1)
	s := doc.Sections[0]
	assert.Equal(t, []string{"UserService.getUser", "getUser"}, s.Functions)
	assert.Equal(t, []string{"Options", "UserService"}, s.Classes)
	assert.Empty(t, s.Types)
}

func TestResolverOverridesHeuristic(t *testing.T) {
	t.Parallel()

	p := NewParser(WithResolver(KnownSymbols{"Options": model.Type, "Build": model.Function}))
	doc := p.Parse("a.md", []byte("# Refs\n\nUse `Options` with `Build()` and `Other`.\n"), time.Now())

	require.Len(t, doc.Sections, 1)
	s := doc.Sections[0]
	assert.Equal(t, []string{"Options"}, s.Types)
	assert.Equal(t, []string{"Build"}, s.Functions)
	assert.Equal(t, []string{"Other"}, s.Classes)
}

func TestSymbolsOf(t *testing.T) {
	t.Parallel()

	files := map[string]model.FileModel{
		"a.go": {Functions: []model.SymbolInfo{{Name: "Run", Kind: model.Function}}},
		"b.go": {
			Classes: []model.SymbolInfo{{Name: "Run", Kind: model.Class}},
			Types:   []model.SymbolInfo{{Name: "Mode", Kind: model.Type}},
		},
	}
	known := SymbolsOf(files)

	kind, ok := known.Resolve("Run")
	require.True(t, ok)
	assert.Equal(t, model.Class, kind)
	kind, ok = known.Resolve("Mode")
	require.True(t, ok)
	assert.Equal(t, model.Type, kind)
	_, ok = known.Resolve("missing")
	assert.False(t, ok)
}

func TestMalformedFrontMatterIgnored(t *testing.T) {
	t.Parallel()

	src := "---\ndiataxis: [unclosed\n---\n# Title\n\nbody\n"
	doc := NewParser().Parse("tutorials/intro.md", []byte(src), time.Now())

	assert.Equal(t, model.Tutorial, doc.Diataxis)
	require.Len(t, doc.Sections, 1)
	assert.Equal(t, 4, doc.Sections[0].StartLine)
}

func TestExampleCategoryFromOwnContent(t *testing.T) {
	t.Parallel()

	src := "# Architecture\n\n" +
		"This overview explains the architecture and design background. Why it matters: the design trade-off.\n\n" +
		"## First steps\n\n" +
		"In this tutorial you will learn, step 1:\n\n" +
		"```sh\nmake run\n```\n\n" +
		"Then:\n\n" +
		"```sh\nmake check\n```\n"
	doc := NewParser().Parse("notes/design.md", []byte(src), time.Now())

	assert.Equal(t, model.Explanation, doc.Diataxis)
	require.Len(t, doc.Sections, 2)
	examples := doc.Sections[1].Examples
	require.Len(t, examples, 2)
	assert.Equal(t, "In this tutorial you will learn, step 1:", examples[0].Description)
	assert.Equal(t, model.Tutorial, examples[0].Diataxis)
	// Nothing in the description or code: the section decides.
	assert.Equal(t, model.Tutorial, examples[1].Diataxis)
}

func TestDeclaredCategoryCoversExamples(t *testing.T) {
	t.Parallel()

	src := "# Start\n\nIn this tutorial you will learn, step 1:\n\n```sh\nmake run\n```\n"
	doc := NewParser().Parse("reference/cli.md", []byte(src), time.Now())

	assert.Equal(t, model.Reference, doc.Diataxis)
	require.Len(t, doc.Sections, 1)
	require.Len(t, doc.Sections[0].Examples, 1)
	assert.Equal(t, model.Reference, doc.Sections[0].Examples[0].Diataxis)
}

func TestValidationHints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		code string
		want *model.ValidationHints
	}{
		{"empty", "x = 1", nil},
		{"python expect", "from pkg.mod import thing\n# expected: prints 3", &model.ValidationHints{
			ExpectedBehavior: "prints 3",
			Dependencies:     []string{"pkg.mod"},
		}},
		{"require", "const fs = require('fs');", &model.ValidationHints{Dependencies: []string{"fs"}}},
		{"ellipsis", "client.call(...)", &model.ValidationHints{ContextRequired: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, validationHints(tt.code))
		})
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		path        string
		frontMatter model.Diataxis
		text        string
		want        model.Diataxis
	}{
		{"front matter wins", "tutorials/a.md", model.Explanation, "how to", model.Explanation},
		{"path segment", "docs/how-to/deploy.md", "", "why the architecture", model.HowTo},
		{"api dir", "api/client.md", "", "", model.Reference},
		{"content", "notes.md", "", "In this tutorial you will learn", model.Tutorial},
		{"nothing", "notes.md", "", "plain words", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Classify(tt.path, tt.frontMatter, tt.text))
		})
	}
}

func TestParseFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "guides", "setup.md")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("# Setup\n\nRun `start()`.\n"), 0o644))

	doc, err := NewParser().ParseFile(dir, filepath.Join("guides", "setup.md"))
	require.NoError(t, err)
	assert.Equal(t, "guides/setup.md", doc.Path)
	assert.Equal(t, model.HowTo, doc.Diataxis)
	assert.False(t, doc.LastModified.IsZero())

	_, err = NewParser().ParseFile(dir, "missing.md")
	assert.Error(t, err)
}
