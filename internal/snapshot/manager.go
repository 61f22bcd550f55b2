// Package snapshot captures point-in-time models of a project's code and
// documentation and persists them.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/tosin2013/docdrift/internal/discover"
	"github.com/tosin2013/docdrift/internal/docparse"
	"github.com/tosin2013/docdrift/internal/model"
	"github.com/tosin2013/docdrift/internal/parse"
)

// ErrProjectRoot is returned when the project root is missing or not a directory.
var ErrProjectRoot = errors.New("invalid project root")

// Manager builds snapshots from the file system.
type Manager struct {
	analyzer  *parse.Analyzer
	logger    *slog.Logger
	workers   int
	languages []string
	skipTests bool
	now       func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithAnalyzer sets the structural analyzer used for source files.
func WithAnalyzer(a *parse.Analyzer) Option {
	return func(m *Manager) {
		if a != nil {
			m.analyzer = a
		}
	}
}

// WithLogger sets the logger for skipped files and missing docs.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithWorkers bounds parse concurrency. Zero means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(m *Manager) { m.workers = n }
}

// WithLanguages restricts source discovery to the named languages.
func WithLanguages(names ...string) Option {
	return func(m *Manager) { m.languages = names }
}

// WithSkipTests excludes test files from the code model.
func WithSkipTests(skip bool) Option {
	return func(m *Manager) { m.skipTests = skip }
}

// WithClock overrides the snapshot timestamp source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a Manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.analyzer == nil {
		m.analyzer = parse.NewAnalyzer(parse.WithLogger(m.logger))
	}
	return m
}

// Create scans projectRoot for source files and docsRoot for markdown and
// returns the combined snapshot. A relative docsRoot is resolved against
// projectRoot. Files that fail to parse are logged and left out; a missing
// docs root yields an empty documentation map.
func (m *Manager) Create(ctx context.Context, projectRoot, docsRoot string) (*model.Snapshot, error) {
	root, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProjectRoot, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProjectRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrProjectRoot, root)
	}

	if docsRoot == "" {
		docsRoot = root
	} else if !filepath.IsAbs(docsRoot) {
		docsRoot = filepath.Join(root, docsRoot)
	}

	start := time.Now()
	files, err := m.sourceModels(ctx, root)
	if err != nil {
		return nil, err
	}
	docs, err := m.docModels(ctx, docsRoot, docparse.SymbolsOf(files))
	if err != nil {
		return nil, err
	}

	snap := &model.Snapshot{
		ID:            uuid.NewString(),
		ProjectRoot:   root,
		DocsRoot:      docsRoot,
		Timestamp:     m.now().UTC().Round(0),
		Files:         files,
		Documentation: docs,
	}
	m.logger.Info("snapshot created",
		"id", snap.ID,
		"files", len(files),
		"docs", len(docs),
		"duration", time.Since(start))
	return snap, nil
}

func (m *Manager) onWalkError(path string, err error) {
	m.logger.Warn("skipping unreadable path", "path", path, "error", err)
}

func (m *Manager) sourceModels(ctx context.Context, root string) (map[string]model.FileModel, error) {
	entries, err := discover.SourceFiles(root, discover.Options{
		Languages: m.languages,
		SkipTests: m.skipTests,
		OnError:   m.onWalkError,
	})
	if err != nil {
		return nil, fmt.Errorf("discovering source files: %w", err)
	}

	parsed := runPool(ctx, m.workers, len(entries), func(i int) (*model.FileModel, bool) {
		fm, err := m.analyzer.AnalyzeFile(ctx, root, entries[i].Path)
		if err != nil {
			m.logger.Warn("skipping source file", "file", entries[i].Path, "error", err)
			return nil, false
		}
		return fm, true
	})
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parsing source files: %w", err)
	}

	files := make(map[string]model.FileModel, len(parsed))
	for _, fm := range parsed {
		files[fm.Path] = *fm
	}
	return files, nil
}

func (m *Manager) docModels(ctx context.Context, docsRoot string, known docparse.KnownSymbols) (map[string]model.DocumentationModel, error) {
	docs := make(map[string]model.DocumentationModel)

	info, err := os.Stat(docsRoot)
	if err != nil || !info.IsDir() {
		m.logger.Warn("documentation root not found", "path", docsRoot)
		return docs, nil
	}

	paths, err := discover.DocFiles(docsRoot, m.onWalkError)
	if err != nil {
		m.logger.Warn("discovering documentation failed", "path", docsRoot, "error", err)
		return docs, nil
	}

	parser := docparse.NewParser(docparse.WithResolver(known), docparse.WithLogger(m.logger))
	parsed := runPool(ctx, m.workers, len(paths), func(i int) (*model.DocumentationModel, bool) {
		doc, err := parser.ParseFile(docsRoot, paths[i])
		if err != nil {
			m.logger.Warn("skipping documentation file", "file", paths[i], "error", err)
			return nil, false
		}
		return doc, true
	})
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parsing documentation: %w", err)
	}

	for _, doc := range parsed {
		docs[doc.Path] = *doc
	}
	return docs, nil
}
