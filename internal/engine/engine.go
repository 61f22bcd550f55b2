// Package engine wires snapshotting, drift detection, usage collection and
// priority scoring into the operations callers use.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/tosin2013/docdrift/internal/config"
	"github.com/tosin2013/docdrift/internal/drift"
	"github.com/tosin2013/docdrift/internal/graph"
	"github.com/tosin2013/docdrift/internal/model"
	"github.com/tosin2013/docdrift/internal/parse"
	"github.com/tosin2013/docdrift/internal/priority"
	"github.com/tosin2013/docdrift/internal/snapshot"
	"github.com/tosin2013/docdrift/internal/usage"
)

// RepoContext is advisory information about the analyzed repository. It is
// only logged.
type RepoContext struct {
	Ecosystem string
	Languages []string
}

// Engine is the caller-facing drift engine. It is safe for sequential use by
// one caller; the underlying components are stateless between calls.
type Engine struct {
	cfg       config.Config
	store     snapshot.Store
	manager   *snapshot.Manager
	detector  *drift.Detector
	collector *usage.Collector
	scorer    *priority.Scorer
	logger    *slog.Logger
	now       func() time.Time
	repo      *RepoContext
	feedback  priority.Feedback
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger passed to every component.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithFeedback installs an external user-feedback signal for scoring.
func WithFeedback(f priority.Feedback) Option {
	return func(e *Engine) { e.feedback = f }
}

// WithClock overrides the time source for snapshots, records and scoring.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithRepoContext attaches advisory repository information.
func WithRepoContext(rc RepoContext) Option {
	return func(e *Engine) { e.repo = &rc }
}

// New creates an Engine from cfg that persists snapshots in store.
func New(cfg config.Config, store snapshot.Store, opts ...Option) *Engine {
	e := &Engine{
		cfg:    cfg,
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	analyzer := parse.NewAnalyzer(
		parse.WithMaxFileSize(cfg.MaxFileSize),
		parse.WithLogger(e.logger),
	)
	e.manager = snapshot.NewManager(
		snapshot.WithAnalyzer(analyzer),
		snapshot.WithLogger(e.logger),
		snapshot.WithWorkers(cfg.Workers),
		snapshot.WithLanguages(cfg.Languages...),
		snapshot.WithSkipTests(cfg.SkipTests),
		snapshot.WithClock(e.now),
	)
	e.detector = drift.NewDetector(
		drift.WithLogger(e.logger),
		drift.WithClock(e.now),
	)

	usageOpts := []usage.Option{
		usage.WithGraphOptions(graphOptions(cfg.Graph)),
		usage.WithMaxSymbols(cfg.Usage.MaxSymbols),
		usage.WithWorkers(cfg.Workers),
		usage.WithLogger(e.logger),
	}
	if cfg.Usage.Strategy == usage.StrategyHeuristic {
		usageOpts = append(usageOpts, usage.WithHeuristic())
	}
	e.collector = usage.New(usageOpts...)

	e.scorer = priority.New(
		priority.WithWeights(cfg.Weights),
		priority.WithFeedback(e.feedback),
		priority.WithNow(e.now),
		priority.WithLogger(e.logger),
	)
	return e
}

func graphOptions(g config.GraphConfig) graph.Options {
	opts := graph.DefaultOptions()
	opts.MaxDepth = g.Depth
	opts.ResolveImports = g.ResolveImports
	opts.ExtractConditionals = g.ExtractConditionals
	opts.TrackExceptions = g.TrackExceptions
	return opts
}

// Close releases the snapshot store when it holds resources.
func (e *Engine) Close() error {
	if c, ok := e.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// CreateSnapshot models projectRoot and docsRoot without persisting the result.
func (e *Engine) CreateSnapshot(ctx context.Context, projectRoot, docsRoot string) (*model.Snapshot, error) {
	return e.manager.Create(ctx, projectRoot, docsRoot)
}

// SaveSnapshot persists snap and returns its storage key.
func (e *Engine) SaveSnapshot(ctx context.Context, snap *model.Snapshot) (string, error) {
	key, err := e.store.Save(ctx, snap)
	if err != nil {
		return "", fmt.Errorf("saving snapshot: %w", err)
	}
	e.logger.Debug("snapshot saved", "id", snap.ID, "key", key)
	return key, nil
}

// LoadLatestSnapshot returns the newest stored snapshot, or nil with no
// error when none has been saved yet.
func (e *Engine) LoadLatestSnapshot(ctx context.Context) (*model.Snapshot, error) {
	snap, err := e.store.LoadLatest(ctx)
	if errors.Is(err, snapshot.ErrNoSnapshot) {
		e.logger.Debug("no previous snapshot", "error", err)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading latest snapshot: %w", err)
	}
	return snap, nil
}

// DetectDrift compares two snapshots.
func (e *Engine) DetectDrift(old, cur *model.Snapshot) []model.DriftDetectionResult {
	return e.detector.Detect(old, cur)
}

// CollectUsageMetadata computes usage counts for snap.
func (e *Engine) CollectUsageMetadata(ctx context.Context, snap *model.Snapshot) (model.UsageMetadata, error) {
	return e.collector.Collect(ctx, snap)
}

// ScorePriority scores one result with synchronous feedback only.
func (e *Engine) ScorePriority(result *model.DriftDetectionResult, snap *model.Snapshot, u *model.UsageMetadata) model.PriorityScore {
	return e.scorer.ScoreSync(result, snap, u)
}

// ScorePriorityAsync scores one result, awaiting asynchronous feedback.
func (e *Engine) ScorePriorityAsync(ctx context.Context, result *model.DriftDetectionResult, snap *model.Snapshot, u *model.UsageMetadata) model.PriorityScore {
	return e.scorer.ScoreAsync(ctx, result, snap, u)
}

// GetPrioritizedDriftResults detects drift between old and cur and orders the
// results by priority. When u is nil, usage is collected from cur.
func (e *Engine) GetPrioritizedDriftResults(ctx context.Context, old, cur *model.Snapshot, u *model.UsageMetadata) ([]model.PrioritizedResult, error) {
	results := e.DetectDrift(old, cur)
	if len(results) == 0 {
		return nil, nil
	}
	if u == nil {
		collected, err := e.CollectUsageMetadata(ctx, cur)
		if err != nil {
			return nil, fmt.Errorf("collecting usage: %w", err)
		}
		u = &collected
	}
	return e.scorer.PrioritizeAsync(ctx, results, cur, u), nil
}

// RunResult is the outcome of Run or Compare.
type RunResult struct {
	// Old is nil on a baseline run.
	Old *model.Snapshot
	New *model.Snapshot

	// Key is the storage key of New, empty when it was not saved.
	Key string

	Results []model.PrioritizedResult
}

// Report converts the run into the output document.
func (r *RunResult) Report(generatedAt time.Time) model.Report {
	rep := model.Report{
		GeneratedAt: generatedAt.UTC().Round(0),
		Results:     r.Results,
	}
	if rep.Results == nil {
		rep.Results = []model.PrioritizedResult{}
	}
	if r.New != nil {
		rep.Project = r.New.ProjectRoot
		rep.NewSnapshot = r.New.ID
	}
	if r.Old != nil {
		rep.OldSnapshot = r.Old.ID
	}
	return rep
}

// Run loads the latest snapshot, creates and saves a new one, and returns
// the prioritized drift between them. The first run only records a baseline.
func (e *Engine) Run(ctx context.Context, projectRoot, docsRoot string) (*RunResult, error) {
	return e.run(ctx, projectRoot, docsRoot, true)
}

// Compare is Run without saving the new snapshot, so the stored baseline
// stays in place.
func (e *Engine) Compare(ctx context.Context, projectRoot, docsRoot string) (*RunResult, error) {
	return e.run(ctx, projectRoot, docsRoot, false)
}

func (e *Engine) run(ctx context.Context, projectRoot, docsRoot string, save bool) (*RunResult, error) {
	if e.repo != nil {
		e.logger.Info("repository context",
			"ecosystem", e.repo.Ecosystem,
			"languages", e.repo.Languages)
	}

	old, err := e.LoadLatestSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	cur, err := e.CreateSnapshot(ctx, projectRoot, docsRoot)
	if err != nil {
		return nil, err
	}

	res := &RunResult{Old: old, New: cur}
	if save {
		if res.Key, err = e.SaveSnapshot(ctx, cur); err != nil {
			return nil, err
		}
	}
	if old == nil {
		e.logger.Info("no previous snapshot to compare", "id", cur.ID, "saved", save)
		return res, nil
	}

	res.Results, err = e.GetPrioritizedDriftResults(ctx, old, cur, nil)
	if err != nil {
		return nil, err
	}
	e.logger.Info("drift run complete",
		"old", old.ID,
		"new", cur.ID,
		"results", len(res.Results))
	return res, nil
}
