package parse

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/tosin2013/docdrift/internal/model"
)

func analyze(t *testing.T, langName, path, source string) *model.FileModel {
	t.Helper()
	fm, err := NewAnalyzer().AnalyzeSource(context.Background(), path, langName, []byte(source))
	if err != nil {
		t.Fatalf("AnalyzeSource: %v", err)
	}
	return fm
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// --- TypeScript tests ---

func TestTypeScriptExportedFunction(t *testing.T) {
	t.Parallel()

	fm := analyze(t, "typescript", "src/math.ts", `export function calculate(x: number): number {
  return helper(x) * 2;
}

function helper(x: number) {
  return x;
}
`)
	if len(fm.Functions) != 2 {
		t.Fatalf("expected 2 functions, got %d", len(fm.Functions))
	}
	calc := fm.Functions[0]
	if calc.Name != "calculate" {
		t.Errorf("name = %q, want calculate", calc.Name)
	}
	if calc.Signature != "calculate(x: number): number" {
		t.Errorf("sig = %q", calc.Signature)
	}
	if calc.ReturnType != "number" {
		t.Errorf("return type = %q, want number", calc.ReturnType)
	}
	if !calc.Exported {
		t.Error("calculate should be exported")
	}
	if calc.Line != 1 {
		t.Errorf("line = %d, want 1", calc.Line)
	}
	if len(calc.Params) != 1 || calc.Params[0].Name != "x" || calc.Params[0].Type != "number" || calc.Params[0].Optional {
		t.Errorf("params = %+v", calc.Params)
	}
	if !reflect.DeepEqual(calc.Dependencies, []string{"helper"}) {
		t.Errorf("deps = %v, want [helper]", calc.Dependencies)
	}
	if fm.Functions[1].Exported {
		t.Error("helper should not be exported")
	}
	if !reflect.DeepEqual(fm.Exports, []string{"calculate"}) {
		t.Errorf("exports = %v", fm.Exports)
	}
	if fm.Language != "typescript" || fm.Path != "src/math.ts" {
		t.Errorf("language/path = %q/%q", fm.Language, fm.Path)
	}
	if len(fm.Hash) != 64 {
		t.Errorf("hash = %q, want sha256 hex", fm.Hash)
	}
}

func TestTypeScriptOptionalParams(t *testing.T) {
	t.Parallel()

	fm := analyze(t, "typescript", "a.ts", "export function f(a: string, b?: number, c = 3, ...rest: string[]) {}\n")
	if len(fm.Functions) != 1 {
		t.Fatalf("expected 1 function, got %d", len(fm.Functions))
	}
	params := fm.Functions[0].Params
	if len(params) != 4 {
		t.Fatalf("expected 4 params, got %+v", params)
	}
	wantOptional := []bool{false, true, true, true}
	for i, p := range params {
		if p.Optional != wantOptional[i] {
			t.Errorf("param %d (%s) optional = %v, want %v", i, p.Name, p.Optional, wantOptional[i])
		}
	}
}

func TestTypeScriptClass(t *testing.T) {
	t.Parallel()

	fm := analyze(t, "typescript", "svc.ts", `export class UserService extends BaseService {
  getUser(id: string): User {
    return new User(id);
  }
  private secret() {}
}
`)
	if len(fm.Classes) != 1 {
		t.Fatalf("expected 1 class, got %d", len(fm.Classes))
	}
	c := fm.Classes[0]
	if c.Name != "UserService" || c.Kind != model.Class {
		t.Errorf("class = %q kind %q", c.Name, c.Kind)
	}
	if c.Signature != "class UserService extends BaseService" {
		t.Errorf("sig = %q", c.Signature)
	}
	if !reflect.DeepEqual(c.Methods, []string{"getUser(id: string): User"}) {
		t.Errorf("methods = %v", c.Methods)
	}
	if !reflect.DeepEqual(c.Dependencies, []string{"BaseService", "User"}) {
		t.Errorf("deps = %v", c.Dependencies)
	}
}

func TestTypeScriptInterfaceAndAlias(t *testing.T) {
	t.Parallel()

	fm := analyze(t, "typescript", "types.ts", `export interface Options { depth: number }
type Internal = string;
`)
	if len(fm.Types) != 2 {
		t.Fatalf("expected 2 types, got %d", len(fm.Types))
	}
	if fm.Types[0].Name != "Options" || !fm.Types[0].Exported {
		t.Errorf("first type = %+v", fm.Types[0])
	}
	if fm.Types[1].Name != "Internal" || fm.Types[1].Exported {
		t.Errorf("second type = %+v", fm.Types[1])
	}
}

func TestTypeScriptArrowFunction(t *testing.T) {
	t.Parallel()

	fm := analyze(t, "typescript", "a.ts", "export const double = (x: number) => x * 2;\n")
	if len(fm.Functions) != 1 {
		t.Fatalf("expected 1 function, got %d", len(fm.Functions))
	}
	if fm.Functions[0].Name != "double" || !fm.Functions[0].Exported {
		t.Errorf("function = %+v", fm.Functions[0])
	}
}

func TestTypeScriptImports(t *testing.T) {
	t.Parallel()

	fm := analyze(t, "typescript", "a.ts", `import Default, { a, b as c } from './util';
import * as path from 'path';
`)
	if len(fm.Imports) != 2 {
		t.Fatalf("expected 2 imports, got %d", len(fm.Imports))
	}
	rel := fm.Imports[0]
	if rel.Source != "./util" || !rel.Relative {
		t.Errorf("import = %+v", rel)
	}
	if !reflect.DeepEqual(rel.Names, []string{"a"}) {
		t.Errorf("names = %v", rel.Names)
	}
	if rel.Aliases["c"] != "b" || rel.Aliases["Default"] != "default" {
		t.Errorf("aliases = %v", rel.Aliases)
	}
	if fm.Imports[1].Relative || fm.Imports[1].Aliases["path"] != "*" {
		t.Errorf("namespace import = %+v", fm.Imports[1])
	}
}

func TestTypeScriptExportClause(t *testing.T) {
	t.Parallel()

	fm := analyze(t, "typescript", "a.ts", `function local() {}
export { local };
`)
	if len(fm.Functions) != 1 || !fm.Functions[0].Exported {
		t.Fatalf("functions = %+v", fm.Functions)
	}
	if !reflect.DeepEqual(fm.Exports, []string{"local"}) {
		t.Errorf("exports = %v", fm.Exports)
	}
}

// --- Python tests ---

func TestPythonFunction(t *testing.T) {
	t.Parallel()

	fm := analyze(t, "python", "mod.py", `def hello(name: str, greeting="hi") -> str:
    """Say hello."""
    return fmt(greeting, name)
`)
	if len(fm.Functions) != 1 {
		t.Fatalf("expected 1 function, got %d", len(fm.Functions))
	}
	f := fm.Functions[0]
	if f.Signature != `hello(name: str, greeting="hi") -> str` {
		t.Errorf("sig = %q", f.Signature)
	}
	if !f.HasDocs {
		t.Error("expected docstring to be detected")
	}
	if len(f.Params) != 2 || f.Params[0].Type != "str" || !f.Params[1].Optional {
		t.Errorf("params = %+v", f.Params)
	}
	if !reflect.DeepEqual(f.Dependencies, []string{"fmt"}) {
		t.Errorf("deps = %v", f.Dependencies)
	}
}

func TestPythonClassMethods(t *testing.T) {
	t.Parallel()

	fm := analyze(t, "python", "mod.py", `class Repo(Base):
    def __init__(self, path):
        self.path = path

    def load(self, key: str) -> bytes:
        return self._read(key)

    def _read(self, key):
        pass
`)
	if len(fm.Classes) != 1 {
		t.Fatalf("expected 1 class, got %d", len(fm.Classes))
	}
	c := fm.Classes[0]
	if c.Signature != "class Repo(Base)" {
		t.Errorf("sig = %q", c.Signature)
	}
	want := []string{"__init__(self, path)", "load(self, key: str) -> bytes"}
	if !reflect.DeepEqual(c.Methods, want) {
		t.Errorf("methods = %v, want %v", c.Methods, want)
	}
}

func TestPythonAllRestrictsExports(t *testing.T) {
	t.Parallel()

	fm := analyze(t, "python", "mod.py", `__all__ = ["public"]

def public():
    pass

def other():
    pass

def _private():
    pass
`)
	if !reflect.DeepEqual(fm.Exports, []string{"public"}) {
		t.Errorf("exports = %v, want [public]", fm.Exports)
	}
	if fm.IsExported("other") {
		t.Error("other should not be exported when __all__ is set")
	}
}

func TestPythonImports(t *testing.T) {
	t.Parallel()

	fm := analyze(t, "python", "pkg/mod.py", `import os
from .util import helper, thing as other
`)
	if len(fm.Imports) != 2 {
		t.Fatalf("expected 2 imports, got %d", len(fm.Imports))
	}
	from := fm.Imports[1]
	if from.Source != ".util" || !from.Relative {
		t.Errorf("import = %+v", from)
	}
	if !reflect.DeepEqual(from.Names, []string{"helper"}) || from.Aliases["other"] != "thing" {
		t.Errorf("names = %v aliases = %v", from.Names, from.Aliases)
	}
}

// --- Go tests ---

func TestGoFunctionsAndMethods(t *testing.T) {
	t.Parallel()

	fm := analyze(t, "go", "server/server.go", `package server

import (
	"fmt"
	str "strings"
)

// Server serves.
type Server struct {
	addr string
}

// Start runs the server.
func (s *Server) Start(addr string) error {
	return fmt.Errorf("no %s", str.TrimSpace(addr))
}

func New(a, b string) *Server {
	return &Server{addr: a + b}
}

func helper() {}
`)
	if len(fm.Classes) != 1 || fm.Classes[0].Name != "Server" {
		t.Fatalf("classes = %+v", fm.Classes)
	}
	if !fm.Classes[0].HasDocs {
		t.Error("Server doc comment not detected")
	}
	if !reflect.DeepEqual(fm.Classes[0].Methods, []string{"Start(addr string) error"}) {
		t.Errorf("methods = %v", fm.Classes[0].Methods)
	}

	byName := make(map[string]model.SymbolInfo)
	for _, f := range fm.Functions {
		byName[f.Name] = f
	}
	start, ok := byName["Server.Start"]
	if !ok {
		t.Fatalf("Server.Start missing: %v", fm.Functions)
	}
	if !reflect.DeepEqual(start.Dependencies, []string{"fmt.Errorf", "str.TrimSpace"}) {
		t.Errorf("deps = %v", start.Dependencies)
	}
	newFn := byName["New"]
	if len(newFn.Params) != 2 || newFn.Params[1].Name != "b" || newFn.Params[1].Type != "string" {
		t.Errorf("params = %+v", newFn.Params)
	}
	if !reflect.DeepEqual(newFn.Dependencies, []string{"Server"}) {
		t.Errorf("New deps = %v", newFn.Dependencies)
	}
	if byName["helper"].Exported {
		t.Error("helper should not be exported")
	}
	if !reflect.DeepEqual(fm.Exports, []string{"New", "Server", "Server.Start"}) {
		t.Errorf("exports = %v", fm.Exports)
	}

	if len(fm.Imports) != 2 {
		t.Fatalf("expected 2 imports, got %d", len(fm.Imports))
	}
	if fm.Imports[1].Aliases["str"] != "strings" {
		t.Errorf("alias import = %+v", fm.Imports[1])
	}
}

// --- Ruby tests ---

func TestRubyClass(t *testing.T) {
	t.Parallel()

	fm := analyze(t, "ruby", "lib/cache.rb", `require_relative "store"

class Cache < Store
  def fetch(key, default = nil)
    Entry.new(key)
  end
end
`)
	if len(fm.Classes) != 1 {
		t.Fatalf("expected 1 class, got %d", len(fm.Classes))
	}
	c := fm.Classes[0]
	if c.Signature != "class Cache < Store" {
		t.Errorf("sig = %q", c.Signature)
	}
	if len(c.Methods) != 1 || !strings.HasPrefix(c.Methods[0], "fetch(") {
		t.Errorf("methods = %v", c.Methods)
	}
	if len(fm.Imports) != 1 || fm.Imports[0].Source != "store" || !fm.Imports[0].Relative {
		t.Errorf("imports = %+v", fm.Imports)
	}
}

// --- Analyzer behaviour ---

func TestComplexityMonotonic(t *testing.T) {
	t.Parallel()

	plain := analyze(t, "typescript", "a.ts", "function f(x: number) { return x; }\n")
	branchy := analyze(t, "typescript", "a.ts", `function f(x: number) {
  if (x > 0 && x < 10) { return 1; }
  for (let i = 0; i < x; i++) { x = x > 5 ? 1 : 2; }
  return x;
}
`)
	if plain.Complexity != 1 {
		t.Errorf("plain complexity = %d, want 1", plain.Complexity)
	}
	// if, &&, for, ternary
	if branchy.Complexity != 5 {
		t.Errorf("branchy complexity = %d, want 5", branchy.Complexity)
	}
}

func TestAnalyzeSourceDeterministic(t *testing.T) {
	t.Parallel()

	src := []byte("export function a(x: number) { return b(x); }\nexport class C {}\n")
	first, err := NewAnalyzer().AnalyzeSource(context.Background(), "a.ts", "typescript", src)
	if err != nil {
		t.Fatal(err)
	}
	second, err := NewAnalyzer(WithCacheSize(1)).AnalyzeSource(context.Background(), "a.ts", "typescript", src)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("models differ:\n%+v\n%+v", first, second)
	}
}

func TestAnalyzeSourceSyntaxErrorStillReturnsModel(t *testing.T) {
	t.Parallel()

	fm := analyze(t, "typescript", "broken.ts", "export function ok() {}\nfunction (((\n")
	if _, ok := fm.Lookup("ok"); !ok {
		t.Errorf("expected ok to survive a later syntax error, got %+v", fm.Functions)
	}
}

func TestAnalyzeFileErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "notes.txt", "hello")
	writeFile(t, dir, "big.ts", strings.Repeat("// x\n", 100))

	a := NewAnalyzer(WithMaxFileSize(64))
	ctx := context.Background()

	if _, err := a.AnalyzeFile(ctx, dir, "notes.txt"); !errors.Is(err, ErrUnsupportedLanguage) {
		t.Errorf("unsupported: err = %v", err)
	}
	if _, err := a.AnalyzeFile(ctx, dir, "big.ts"); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("too large: err = %v", err)
	}
	if _, err := a.AnalyzeFile(ctx, dir, "missing.ts"); !errors.Is(err, ErrParse) {
		t.Errorf("missing: err = %v", err)
	}
	if _, err := a.AnalyzeSource(ctx, "x.cob", "cobol", nil); !errors.Is(err, ErrUnsupportedLanguage) {
		t.Errorf("unknown language: err = %v", err)
	}
}

func TestAnalyzeFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "src/index.ts", "export function main() {}\n")

	fm, err := NewAnalyzer().AnalyzeFile(context.Background(), dir, filepath.Join("src", "index.ts"))
	if err != nil {
		t.Fatalf("AnalyzeFile: %v", err)
	}
	if fm.Path != "src/index.ts" {
		t.Errorf("path = %q, want slash-separated", fm.Path)
	}
	if _, ok := fm.Lookup("main"); !ok {
		t.Error("main not found")
	}
}
