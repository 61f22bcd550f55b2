// Package drift compares two snapshots and reports where documentation no
// longer matches the code.
package drift

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/tosin2013/docdrift/internal/model"
)

// Detector turns snapshot pairs into drift results.
type Detector struct {
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// Option configures a Detector.
type Option func(*Detector)

// WithLogger sets the detector logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Detector) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithClock overrides the detection timestamp source.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) {
		if now != nil {
			d.now = now
		}
	}
}

// WithIDs overrides the record ID generator.
func WithIDs(newID func() string) Option {
	return func(d *Detector) {
		if newID != nil {
			d.newID = newID
		}
	}
}

// NewDetector creates a Detector.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect compares every source file present in either snapshot and returns
// one result per file with at least one exported-symbol delta, sorted by path.
// Files whose content hash is unchanged are skipped without comparison.
func (d *Detector) Detect(old, cur *model.Snapshot) []model.DriftDetectionResult {
	if old == nil || cur == nil {
		return nil
	}

	paths := make([]string, 0, len(cur.Files))
	for p := range old.Files {
		paths = append(paths, p)
	}
	for p := range cur.Files {
		if _, ok := old.Files[p]; !ok {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	idx := newDocIndex(docsFor(old, cur))
	detectedAt := d.now().UTC().Round(0)

	var results []model.DriftDetectionResult
	for _, path := range paths {
		before, hadOld := old.Files[path]
		after, hasNew := cur.Files[path]
		if hadOld && hasNew && before.Hash != "" && before.Hash == after.Hash {
			continue
		}

		var oldFM, newFM *model.FileModel
		if hadOld {
			oldFM = &before
		}
		if hasNew {
			newFM = &after
		}
		deltas := compareFiles(path, oldFM, newFM)
		if len(deltas) == 0 {
			continue
		}

		res := d.result(path, deltas, newFM, idx, detectedAt)
		d.logger.Debug("drift detected",
			"file", path,
			"deltas", len(deltas),
			"severity", res.Severity)
		results = append(results, res)
	}

	d.logger.Info("drift detection finished",
		"old", old.ID,
		"new", cur.ID,
		"files", len(paths),
		"results", len(results))
	return results
}

// docsFor picks the documentation model deltas are mapped against. The new
// snapshot wins; the old one is used only when the new snapshot captured no
// documentation at all.
func docsFor(old, cur *model.Snapshot) map[string]model.DocumentationModel {
	if len(cur.Documentation) > 0 {
		return cur.Documentation
	}
	return old.Documentation
}

func (d *Detector) result(path string, deltas []model.CodeDelta, fm *model.FileModel, idx *docIndex, at time.Time) model.DriftDetectionResult {
	res := model.DriftDetectionResult{
		File:     path,
		Severity: model.SeverityNone,
	}

	for _, delta := range deltas {
		refs := idx.referencing(delta.Name)
		rec := model.DriftRecord{
			ID:           d.newID(),
			Type:         driftType(delta, len(refs) > 0),
			AffectedDocs: docPaths(refs),
			Deltas:       []model.CodeDelta{delta},
			Description:  describe(delta, len(refs)),
			DetectedAt:   at,
			Severity:     model.SeverityFor(delta.Impact),
		}
		if rec.Severity.Rank() > res.Severity.Rank() {
			res.Severity = rec.Severity
		}
		res.Records = append(res.Records, rec)

		targets := refs
		if len(targets) == 0 && delta.Type == model.Added {
			if t, ok := idx.placement(delta.Name, fm); ok {
				targets = []sectionRef{t}
			}
		}
		for _, t := range targets {
			res.Suggestions = append(res.Suggestions, suggest(delta, t, fm))
		}
	}

	res.HasDrift = len(res.Records) > 0
	res.Impact = summarize(deltas, res.Records)
	return res
}

// driftType derives the record type from its delta.
func driftType(delta model.CodeDelta, documented bool) model.DriftType {
	switch {
	case delta.Impact == model.Breaking:
		return model.DriftBreaking
	case delta.Type == model.Removed:
		return model.DriftIncorrect
	case delta.Type == model.Modified:
		return model.DriftOutdated
	case documented:
		return model.DriftOutdated
	default:
		return model.DriftMissing
	}
}

func describe(delta model.CodeDelta, sections int) string {
	where := "no documentation references it"
	if sections == 1 {
		where = "referenced by 1 documentation section"
	} else if sections > 1 {
		where = fmt.Sprintf("referenced by %d documentation sections", sections)
	}
	return fmt.Sprintf("%s %s %s in %s (%s impact): %s; %s",
		delta.Category, delta.Name, delta.Type, delta.File, delta.Impact, delta.Details, where)
}

// summarize counts deltas by impact and estimates remediation effort.
func summarize(deltas []model.CodeDelta, records []model.DriftRecord) model.ImpactSummary {
	var s model.ImpactSummary
	for _, d := range deltas {
		switch d.Impact {
		case model.Breaking:
			s.Breaking++
		case model.Major:
			s.Major++
		case model.Minor:
			s.Minor++
		default:
			s.Patch++
		}
	}

	seen := make(map[string]struct{})
	for _, r := range records {
		for _, doc := range r.AffectedDocs {
			if _, ok := seen[doc]; !ok {
				seen[doc] = struct{}{}
				s.AffectedDocs = append(s.AffectedDocs, doc)
			}
		}
	}
	sort.Strings(s.AffectedDocs)

	total := len(deltas)
	switch {
	case s.Breaking > 0 || total > 10:
		s.Effort = model.EffortHigh
	case s.Major > 0 || total > 3:
		s.Effort = model.EffortMedium
	default:
		s.Effort = model.EffortLow
	}
	s.RequiresManualReview = s.Breaking > 0 || s.Major > 3
	return s
}
