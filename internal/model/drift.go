package model

import "time"

// ChangeType is the kind of a code delta.
type ChangeType string

const (
	Added    ChangeType = "added"
	Removed  ChangeType = "removed"
	Modified ChangeType = "modified"
)

// ImpactLevel classifies how disruptive a change is to consumers.
type ImpactLevel string

const (
	Breaking ImpactLevel = "breaking"
	Major    ImpactLevel = "major"
	Minor    ImpactLevel = "minor"
	Patch    ImpactLevel = "patch"
)

// Severity of a drift record or result.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityNone:     0,
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Rank orders severities from none (0) to critical (4).
func (s Severity) Rank() int {
	return severityRank[s]
}

// SeverityFor maps an impact level 1:1 onto a severity.
func SeverityFor(level ImpactLevel) Severity {
	switch level {
	case Breaking:
		return SeverityCritical
	case Major:
		return SeverityHigh
	case Minor:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// DriftType describes how documentation diverged from code.
type DriftType string

const (
	DriftOutdated  DriftType = "outdated"
	DriftIncorrect DriftType = "incorrect"
	DriftMissing   DriftType = "missing"
	DriftBreaking  DriftType = "breaking"
)

// CodeDelta is one symbol-level change between two snapshots.
type CodeDelta struct {
	Type         ChangeType  `json:"type"`
	Category     SymbolKind  `json:"category"`
	Name         string      `json:"name"`
	File         string      `json:"file"`
	OldSignature string      `json:"old_signature,omitempty"`
	NewSignature string      `json:"new_signature,omitempty"`
	Details      string      `json:"details"`
	Impact       ImpactLevel `json:"impact"`
}

// DriftRecord ties code deltas to the documentation they invalidate.
type DriftRecord struct {
	ID           string      `json:"id"`
	Type         DriftType   `json:"type"`
	AffectedDocs []string    `json:"affected_docs"`
	Deltas       []CodeDelta `json:"deltas"`
	Description  string      `json:"description"`
	DetectedAt   time.Time   `json:"detected_at"`
	Severity     Severity    `json:"severity"`
}

// DriftSuggestion is an advisory textual repair for one documentation section.
type DriftSuggestion struct {
	DocFile          string  `json:"doc_file"`
	Section          string  `json:"section"`
	Symbol           string  `json:"symbol"`
	CurrentContent   string  `json:"current_content"`
	SuggestedContent string  `json:"suggested_content"`
	Reasoning        string  `json:"reasoning"`
	Confidence       float64 `json:"confidence"`
	AutoApplicable   bool    `json:"auto_applicable"`
}

// Effort is a coarse estimate of remediation work.
type Effort string

const (
	EffortLow    Effort = "low"
	EffortMedium Effort = "medium"
	EffortHigh   Effort = "high"
)

// ImpactSummary aggregates the deltas of one result.
type ImpactSummary struct {
	Breaking             int      `json:"breaking"`
	Major                int      `json:"major"`
	Minor                int      `json:"minor"`
	Patch                int      `json:"patch"`
	AffectedDocs         []string `json:"affected_docs"`
	Effort               Effort   `json:"effort"`
	RequiresManualReview bool     `json:"requires_manual_review"`
}

// DriftDetectionResult is the drift report for one source file.
type DriftDetectionResult struct {
	File        string            `json:"file"`
	HasDrift    bool              `json:"has_drift"`
	Severity    Severity          `json:"severity"`
	Records     []DriftRecord     `json:"records"`
	Suggestions []DriftSuggestion `json:"suggestions"`
	Impact      ImpactSummary     `json:"impact"`
}

// Deltas returns every delta across the result's records.
func (r *DriftDetectionResult) Deltas() []CodeDelta {
	var out []CodeDelta
	for i := range r.Records {
		out = append(out, r.Records[i].Deltas...)
	}
	return out
}

// CallNode is one arena entry of a call graph.
type CallNode struct {
	Symbol     SymbolInfo `json:"symbol"`
	File       string     `json:"file"`
	Depth      int        `json:"depth"`
	Calls      []int      `json:"calls,omitempty"`
	Recursive  bool       `json:"recursive,omitempty"`
	Complexity int        `json:"complexity,omitempty"`
	MayThrow   bool       `json:"may_throw,omitempty"`
	Truncated  bool       `json:"truncated,omitempty"`
}

// CallGraph is a bounded-depth call tree stored as arena-indexed nodes.
type CallGraph struct {
	Root       int        `json:"root"`
	Nodes      []CallNode `json:"nodes"`
	Callers    []int      `json:"callers,omitempty"`
	Unresolved []string   `json:"unresolved,omitempty"`
	MaxDepth   int        `json:"max_depth"`
}

// Walk visits every node reachable from the root exactly once per edge path,
// calling fn with the node index. The root itself is included.
func (g *CallGraph) Walk(fn func(idx int)) {
	var visit func(idx int)
	visit = func(idx int) {
		fn(idx)
		for _, c := range g.Nodes[idx].Calls {
			visit(c)
		}
	}
	if len(g.Nodes) > 0 {
		visit(g.Root)
	}
}

// UsageMetadata is an approximate usage-frequency table per symbol.
type UsageMetadata struct {
	Strategy            string         `json:"strategy"`
	FunctionCalls       map[string]int `json:"function_calls"`
	ClassInstantiations map[string]int `json:"class_instantiations"`
	Imports             map[string]int `json:"imports"`
}

// NewUsageMetadata returns an empty table for the named strategy.
func NewUsageMetadata(strategy string) UsageMetadata {
	return UsageMetadata{
		Strategy:            strategy,
		FunctionCalls:       make(map[string]int),
		ClassInstantiations: make(map[string]int),
		Imports:             make(map[string]int),
	}
}

// Total returns the combined count for name across all three tables.
func (u *UsageMetadata) Total(name string) int {
	return u.FunctionCalls[name] + u.ClassInstantiations[name] + u.Imports[name]
}

// Recommendation is the discrete priority tier.
type Recommendation string

const (
	RecommendCritical Recommendation = "critical"
	RecommendHigh     Recommendation = "high"
	RecommendMedium   Recommendation = "medium"
	RecommendLow      Recommendation = "low"
)

// PriorityFactors holds the six 0-100 factor scores.
type PriorityFactors struct {
	CodeComplexity        int `json:"code_complexity"`
	UsageFrequency        int `json:"usage_frequency"`
	ChangeMagnitude       int `json:"change_magnitude"`
	DocumentationCoverage int `json:"documentation_coverage"`
	Staleness             int `json:"staleness"`
	UserFeedback          int `json:"user_feedback"`
}

// PriorityScore is the combined urgency of a drift result.
type PriorityScore struct {
	Overall         int             `json:"overall"`
	Factors         PriorityFactors `json:"factors"`
	Recommendation  Recommendation  `json:"recommendation"`
	SuggestedAction string          `json:"suggested_action"`
}

// PrioritizedResult pairs a drift result with its priority.
type PrioritizedResult struct {
	DriftDetectionResult
	Priority PriorityScore `json:"priority"`
}

// Report is the output of one detection run.
type Report struct {
	Project     string              `json:"project"`
	OldSnapshot string              `json:"old_snapshot,omitempty"`
	NewSnapshot string              `json:"new_snapshot"`
	GeneratedAt time.Time           `json:"generated_at"`
	Results     []PrioritizedResult `json:"results"`
}
