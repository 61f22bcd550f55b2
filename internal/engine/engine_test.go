package engine

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tosin2013/docdrift/internal/config"
	"github.com/tosin2013/docdrift/internal/model"
	"github.com/tosin2013/docdrift/internal/priority"
	"github.com/tosin2013/docdrift/internal/snapshot"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

const mathV1 = `export function calculate(x: number): number {
  return helper(x);
}

export function helper(x: number): number {
  return x * 2;
}
`

const mathV2 = `export function helper(x: number): number {
  return x * 2;
}
`

func project(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "src/math.ts", mathV1)
	writeFile(t, root, "src/app.ts", "import { calculate } from './math';\n\nexport function main(): number {\n  return calculate(2);\n}\n")
	writeFile(t, root, "docs/api.md", "# Math\n\n## calculate(x)\n\nUse `calculate(x)` to double a number.\n")
	return root
}

// tick returns a clock that advances one second per call.
func tick() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func newEngine(t *testing.T, root string, opts ...Option) (*Engine, snapshot.Store) {
	t.Helper()
	cfg := config.Default()
	store := snapshot.NewDirStore(cfg.SnapshotPath(root))
	opts = append([]Option{WithClock(tick())}, opts...)
	return New(cfg, store, opts...), store
}

func TestRunBaselineThenDrift(t *testing.T) {
	t.Parallel()

	root := project(t)
	e, store := newEngine(t, root, WithRepoContext(RepoContext{Ecosystem: "node", Languages: []string{"typescript"}}))
	ctx := context.Background()

	first, err := e.Run(ctx, root, "docs")
	require.NoError(t, err)
	assert.Nil(t, first.Old)
	assert.Empty(t, first.Results)
	assert.NotEmpty(t, first.Key)

	writeFile(t, root, "src/math.ts", mathV2)
	second, err := e.Run(ctx, root, "docs")
	require.NoError(t, err)
	require.NotNil(t, second.Old)
	assert.Equal(t, first.New.ID, second.Old.ID)

	require.Len(t, second.Results, 1)
	res := second.Results[0]
	assert.Equal(t, "src/math.ts", res.File)
	assert.Equal(t, model.SeverityCritical, res.Severity)
	require.Len(t, res.Records, 1)
	assert.Equal(t, model.DriftBreaking, res.Records[0].Type)
	assert.Equal(t, []string{"api.md"}, res.Records[0].AffectedDocs)
	assert.Equal(t, 100, res.Priority.Factors.ChangeMagnitude)
	assert.NotEmpty(t, res.Priority.Recommendation)

	third, err := e.Run(ctx, root, "docs")
	require.NoError(t, err)
	assert.Empty(t, third.Results)

	keys, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 3)
}

func TestCompareKeepsBaseline(t *testing.T) {
	t.Parallel()

	root := project(t)
	e, store := newEngine(t, root)
	ctx := context.Background()

	_, err := e.Run(ctx, root, "docs")
	require.NoError(t, err)
	writeFile(t, root, "src/math.ts", mathV2)

	for range 2 {
		res, err := e.Compare(ctx, root, "docs")
		require.NoError(t, err)
		assert.Empty(t, res.Key)
		assert.Len(t, res.Results, 1)
	}

	keys, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestCompareWithoutBaseline(t *testing.T) {
	t.Parallel()

	root := project(t)
	e, _ := newEngine(t, root)
	res, err := e.Compare(context.Background(), root, "docs")
	require.NoError(t, err)
	assert.Nil(t, res.Old)
	assert.Empty(t, res.Results)

	rep := res.Report(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, res.New.ID, rep.NewSnapshot)
	assert.Empty(t, rep.OldSnapshot)
	assert.NotNil(t, rep.Results)
}

func TestRunBadProjectRoot(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	e, _ := newEngine(t, root)
	_, err := e.Run(context.Background(), filepath.Join(root, "missing"), "docs")
	assert.ErrorIs(t, err, snapshot.ErrProjectRoot)
}

func TestLoadLatestSnapshotEmpty(t *testing.T) {
	t.Parallel()

	e, _ := newEngine(t, t.TempDir())
	snap, err := e.LoadLatestSnapshot(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestGetPrioritizedDriftResultsUsesGivenUsage(t *testing.T) {
	t.Parallel()

	root := project(t)
	e, _ := newEngine(t, root)
	ctx := context.Background()

	old, err := e.CreateSnapshot(ctx, root, "docs")
	require.NoError(t, err)
	writeFile(t, root, "src/math.ts", mathV2)
	cur, err := e.CreateSnapshot(ctx, root, "docs")
	require.NoError(t, err)

	u := model.NewUsageMetadata("graph")
	u.FunctionCalls["calculate"] = 30
	u.Imports["calculate"] = 12

	results, err := e.GetPrioritizedDriftResults(ctx, old, cur, &u)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 42, results[0].Priority.Factors.UsageFrequency)

	score := e.ScorePriority(&results[0].DriftDetectionResult, cur, &u)
	assert.Equal(t, results[0].Priority, score)

	none, err := e.GetPrioritizedDriftResults(ctx, cur, cur, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCollectUsageMetadata(t *testing.T) {
	t.Parallel()

	root := project(t)
	e, _ := newEngine(t, root)
	ctx := context.Background()
	snap, err := e.CreateSnapshot(ctx, root, "docs")
	require.NoError(t, err)

	u, err := e.CollectUsageMetadata(ctx, snap)
	require.NoError(t, err)
	assert.Equal(t, "graph", u.Strategy)
	assert.Positive(t, u.FunctionCalls["calculate"])
	assert.Positive(t, u.FunctionCalls["helper"])
	assert.Equal(t, 1, u.Imports["calculate"])
}

func TestAsyncFeedback(t *testing.T) {
	t.Parallel()

	fb := priority.Feedback{
		Async: true,
		Fn: func(context.Context, *model.DriftDetectionResult) (float64, error) {
			return 100, nil
		},
	}
	root := project(t)
	e, _ := newEngine(t, root, WithFeedback(fb))
	ctx := context.Background()
	snap, err := e.CreateSnapshot(ctx, root, "docs")
	require.NoError(t, err)

	res := &model.DriftDetectionResult{File: "src/math.ts", Severity: model.SeverityLow}
	assert.Equal(t, 0, e.ScorePriority(res, snap, nil).Factors.UserFeedback)
	assert.Equal(t, 100, e.ScorePriorityAsync(ctx, res, snap, nil).Factors.UserFeedback)
}

func TestOpenStore(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	cfg := config.Default()

	store, err := OpenStore(cfg, root, nil)
	require.NoError(t, err)
	dir, ok := store.(*snapshot.DirStore)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, ".docdrift", "snapshots"), dir.Dir())

	cfg.Store = config.StoreBadger
	store, err = OpenStore(cfg, root, nil)
	require.NoError(t, err)
	_, ok = store.(*snapshot.BadgerStore)
	assert.True(t, ok)

	e := New(cfg, store, WithClock(tick()))
	ctx := context.Background()
	snap, err := e.CreateSnapshot(ctx, project(t), "docs")
	require.NoError(t, err)
	_, err = e.SaveSnapshot(ctx, snap)
	require.NoError(t, err)
	latest, err := e.LoadLatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, latest.ID)
	require.NoError(t, e.Close())

	cfg.Store = "s3"
	_, err = OpenStore(cfg, root, nil)
	assert.Error(t, err)
}
