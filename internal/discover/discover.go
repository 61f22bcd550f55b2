// Package discover finds source and documentation files in a project tree.
package discover

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/tosin2013/docdrift/internal/lang"
)

// FileEntry represents a discovered source file.
type FileEntry struct {
	Path     string // Relative to root, slash-separated
	Language string
}

// ErrorFunc is called for paths the walk could not read. The subtree is skipped.
type ErrorFunc func(path string, err error)

// Options controls source discovery.
type Options struct {
	// Languages restricts results to the listed language names when non-empty.
	Languages []string

	// SkipTests drops files that IsTestFile recognises.
	SkipTests bool

	// OnError receives walk errors. Nil ignores them.
	OnError ErrorFunc
}

var skipDirs = map[string]struct{}{
	"__pycache__":   {},
	"node_modules":  {},
	".git":          {},
	".hg":           {},
	".svn":          {},
	"venv":          {},
	".venv":         {},
	"env":           {},
	"build":         {},
	"dist":          {},
	"vendor":        {},
	"coverage":      {},
	"target":        {},
	".tox":          {},
	".mypy_cache":   {},
	".pytest_cache": {},
	"egg-info":      {},
}

var docExtensions = map[string]struct{}{
	".md":       {},
	".mdx":      {},
	".markdown": {},
}

// SourceFiles discovers parseable source files under root.
func SourceFiles(root string, opts Options) ([]FileEntry, error) {
	langSet := make(map[string]struct{}, len(opts.Languages))
	for _, l := range opts.Languages {
		langSet[l] = struct{}{}
	}

	var results []FileEntry
	err := walk(root, opts.OnError, func(rel, name string) {
		langName := lang.ForExtension(filepath.Ext(name))
		if langName == "" {
			return
		}
		if opts.SkipTests && IsTestFile(rel) {
			return
		}
		if len(langSet) > 0 {
			if _, ok := langSet[langName]; !ok {
				return
			}
		}
		results = append(results, FileEntry{Path: rel, Language: langName})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})
	return results, nil
}

// DocFiles discovers markdown documents under root, sorted by path.
func DocFiles(root string, onError ErrorFunc) ([]string, error) {
	var results []string
	err := walk(root, onError, func(rel, name string) {
		if _, ok := docExtensions[strings.ToLower(filepath.Ext(name))]; ok {
			results = append(results, rel)
		}
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(results)
	return results, nil
}

var testDirs = map[string]struct{}{
	"test":      {},
	"tests":     {},
	"spec":      {},
	"__tests__": {},
}

// IsTestFile reports whether a slash-separated relative path looks like a
// test file, either by a test directory component or by file name.
func IsTestFile(path string) bool {
	parts := strings.Split(filepath.ToSlash(path), "/")
	for _, dir := range parts[:len(parts)-1] {
		if _, ok := testDirs[dir]; ok {
			return true
		}
	}
	name := parts[len(parts)-1]
	switch {
	case strings.HasSuffix(name, "_test.go"),
		strings.HasPrefix(name, "test_") && strings.HasSuffix(name, ".py"),
		strings.HasSuffix(name, "_spec.rb"),
		strings.Contains(name, ".test."),
		strings.Contains(name, ".spec."):
		return true
	}
	return false
}

// IsDoc reports whether path has a documentation extension.
func IsDoc(path string) bool {
	_, ok := docExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// SkipDir reports whether a directory name is never descended into.
func SkipDir(name string) bool {
	_, skip := skipDirs[name]
	return skip || (strings.HasPrefix(name, ".") && name != "." && name != "..")
}

func walk(root string, onError ErrorFunc, visit func(rel, name string)) error {
	gitFiles := gitLsFiles(root)
	var gi *ignore.GitIgnore
	if gitFiles == nil {
		gi = loadGitignore(root)
	}

	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			if onError != nil {
				onError(path, err)
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()

		if d.IsDir() {
			if path == root {
				return nil
			}
			if SkipDir(name) {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}

		// Skip symlinks
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}

		if gitFiles != nil {
			if _, ok := gitFiles[filepath.ToSlash(rel)]; !ok {
				return nil
			}
		} else if gi != nil && gi.MatchesPath(rel) {
			return nil
		}

		visit(filepath.ToSlash(rel), name)
		return nil
	})
}

func gitLsFiles(root string) map[string]struct{} {
	gitDir := filepath.Join(root, ".git")
	info, err := os.Stat(gitDir)
	if err != nil || !info.IsDir() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	files := make(map[string]struct{})
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line != "" {
			files[line] = struct{}{}
		}
	}
	return files
}

func loadGitignore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}
