// Package priority scores drift results by how urgently their documentation
// needs attention.
package priority

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/tosin2013/docdrift/internal/model"
)

// Weights scales each factor in the overall score. They are applied as a raw
// weighted sum and need not add up to 1.
type Weights struct {
	Complexity float64 `toml:"complexity" json:"complexity"`
	Usage      float64 `toml:"usage" json:"usage"`
	Magnitude  float64 `toml:"magnitude" json:"magnitude"`
	Coverage   float64 `toml:"coverage" json:"coverage"`
	Staleness  float64 `toml:"staleness" json:"staleness"`
	Feedback   float64 `toml:"feedback" json:"feedback"`
}

// DefaultWeights returns the standard factor weights.
func DefaultWeights() Weights {
	return Weights{
		Complexity: 0.20,
		Usage:      0.25,
		Magnitude:  0.25,
		Coverage:   0.15,
		Staleness:  0.10,
		Feedback:   0.05,
	}
}

// FeedbackFunc returns an external 0-100 urgency signal for a result.
type FeedbackFunc func(ctx context.Context, result *model.DriftDetectionResult) (float64, error)

// Feedback is an optional external integration. Async integrations are only
// consulted by ScoreAsync.
type Feedback struct {
	Fn    FeedbackFunc
	Async bool
}

// Suggested actions per tier.
const (
	ActionCritical = "Update the documentation immediately; the affected code is heavily used or changed incompatibly."
	ActionHigh     = "Schedule a documentation update in the current cycle."
	ActionMedium   = "Plan a review of the affected documentation sections."
	ActionLow      = "Monitor; update the documentation when convenient."
)

// Scorer computes priority scores. It is safe for concurrent use.
type Scorer struct {
	weights  Weights
	feedback Feedback
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithWeights overrides the factor weights.
func WithWeights(w Weights) Option {
	return func(s *Scorer) { s.weights = w }
}

// WithFeedback installs an external feedback integration.
func WithFeedback(f Feedback) Option {
	return func(s *Scorer) { s.feedback = f }
}

// WithNow sets the clock staleness is measured against.
func WithNow(now func() time.Time) Option {
	return func(s *Scorer) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the scorer logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scorer) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Scorer with default weights and no feedback integration.
func New(opts ...Option) *Scorer {
	s := &Scorer{
		weights: DefaultWeights(),
		now:     time.Now,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScoreSync scores result using only a synchronous feedback integration.
// usage may be nil, in which case usage is estimated from exports and
// documentation references.
func (s *Scorer) ScoreSync(result *model.DriftDetectionResult, snap *model.Snapshot, usage *model.UsageMetadata) model.PriorityScore {
	fb := 0
	if s.feedback.Fn != nil && !s.feedback.Async {
		fb = s.callFeedback(context.Background(), result)
	}
	return s.score(result, snap, usage, fb)
}

// ScoreAsync scores result, awaiting the feedback integration whether it is
// synchronous or not.
func (s *Scorer) ScoreAsync(ctx context.Context, result *model.DriftDetectionResult, snap *model.Snapshot, usage *model.UsageMetadata) model.PriorityScore {
	fb := 0
	if s.feedback.Fn != nil {
		fb = s.callFeedback(ctx, result)
	}
	return s.score(result, snap, usage, fb)
}

// Prioritize scores every result synchronously and stable-sorts them by
// overall score, highest first.
func (s *Scorer) Prioritize(results []model.DriftDetectionResult, snap *model.Snapshot, usage *model.UsageMetadata) []model.PrioritizedResult {
	out := make([]model.PrioritizedResult, len(results))
	for i := range results {
		out[i] = model.PrioritizedResult{
			DriftDetectionResult: results[i],
			Priority:             s.ScoreSync(&results[i], snap, usage),
		}
	}
	sortByPriority(out)
	return out
}

// PrioritizeAsync is Prioritize using ScoreAsync.
func (s *Scorer) PrioritizeAsync(ctx context.Context, results []model.DriftDetectionResult, snap *model.Snapshot, usage *model.UsageMetadata) []model.PrioritizedResult {
	out := make([]model.PrioritizedResult, len(results))
	for i := range results {
		out[i] = model.PrioritizedResult{
			DriftDetectionResult: results[i],
			Priority:             s.ScoreAsync(ctx, &results[i], snap, usage),
		}
	}
	sortByPriority(out)
	return out
}

func sortByPriority(rs []model.PrioritizedResult) {
	sort.SliceStable(rs, func(i, j int) bool {
		return rs[i].Priority.Overall > rs[j].Priority.Overall
	})
}

// callFeedback invokes the integration. Errors and panics yield 0.
func (s *Scorer) callFeedback(ctx context.Context, result *model.DriftDetectionResult) (score int) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("feedback integration panicked", "file", result.File, "panic", fmt.Sprint(r))
			score = 0
		}
	}()
	v, err := s.feedback.Fn(ctx, result)
	if err != nil {
		s.logger.Warn("feedback integration failed", "file", result.File, "error", err)
		return 0
	}
	return clampScore(v)
}

func (s *Scorer) score(result *model.DriftDetectionResult, snap *model.Snapshot, usage *model.UsageMetadata, feedback int) model.PriorityScore {
	if snap == nil {
		snap = &model.Snapshot{}
	}
	f := model.PriorityFactors{
		CodeComplexity:        complexityFactor(result, snap),
		UsageFrequency:        usageFactor(result, snap, usage),
		ChangeMagnitude:       magnitudeFactor(result),
		DocumentationCoverage: coverageFactor(result, snap),
		Staleness:             stalenessFactor(result, snap, s.now()),
		UserFeedback:          feedback,
	}
	w := s.weights
	sum := w.Complexity*float64(f.CodeComplexity) +
		w.Usage*float64(f.UsageFrequency) +
		w.Magnitude*float64(f.ChangeMagnitude) +
		w.Coverage*float64(f.DocumentationCoverage) +
		w.Staleness*float64(f.Staleness) +
		w.Feedback*float64(f.UserFeedback)
	overall := clampScore(sum)

	tier, action := Tier(overall)
	return model.PriorityScore{
		Overall:         overall,
		Factors:         f,
		Recommendation:  tier,
		SuggestedAction: action,
	}
}

// Tier maps an overall score to its recommendation and action text.
func Tier(overall int) (model.Recommendation, string) {
	switch {
	case overall >= 80:
		return model.RecommendCritical, ActionCritical
	case overall >= 60:
		return model.RecommendHigh, ActionHigh
	case overall >= 40:
		return model.RecommendMedium, ActionMedium
	default:
		return model.RecommendLow, ActionLow
	}
}

// clampScore rounds v onto the 0-100 scale. NaN maps to 0.
func clampScore(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(math.Round(math.Max(0, math.Min(v, 100))))
}
