package priority

import (
	"math"
	"sort"
	"time"

	"github.com/tosin2013/docdrift/internal/model"
)

var severityMultiplier = map[model.Severity]float64{
	model.SeverityCritical: 1.2,
	model.SeverityHigh:     1.1,
	model.SeverityMedium:   1.0,
	model.SeverityLow:      0.9,
}

// complexityFactor scales the file complexity by two and weights it by the
// result severity.
func complexityFactor(result *model.DriftDetectionResult, snap *model.Snapshot) int {
	fm, ok := snap.Files[result.File]
	if !ok {
		return 0
	}
	base := float64(min(fm.Complexity*2, 100))
	mult, ok := severityMultiplier[result.Severity]
	if !ok {
		mult = 1.0
	}
	return clampScore(base * mult)
}

// usageFactor sums the usage counts of every symbol the result touches. With
// no usage table it estimates from exports and documentation references.
func usageFactor(result *model.DriftDetectionResult, snap *model.Snapshot, usage *model.UsageMetadata) int {
	names := deltaSymbols(result, true)
	if usage != nil {
		total := 0
		for _, n := range names {
			total += usage.Total(n)
			if total >= 100 {
				return 100
			}
		}
		return total
	}

	exports := 0
	if fm, ok := snap.Files[result.File]; ok {
		for _, s := range fm.Symbols() {
			if s.Exported || fm.IsExported(s.Name) {
				exports++
			}
		}
	}
	refs := 0
	for _, doc := range snap.Documentation {
		for i := range doc.Sections {
			for _, n := range names {
				if doc.Sections[i].References(n) {
					refs++
					break
				}
			}
		}
	}

	score := min(exports*15, 60) + min(refs*25, 40)
	if exports > 0 {
		score += 30
	}
	return min(score, 100)
}

// magnitudeFactor is 100 for any breaking change, else 20 per major and 8
// per minor change.
func magnitudeFactor(result *model.DriftDetectionResult) int {
	if result.Impact.Breaking > 0 {
		return 100
	}
	return min(20*result.Impact.Major+8*result.Impact.Minor, 100)
}

// coverageFactor is inverted: the fewer changed symbols the affected docs
// describe, the higher the score. Removed symbols are left out of both counts,
// so a removal whose docs still mention it scores 40, not 0. Docs naming a
// deleted symbol are stale rather than covering it.
func coverageFactor(result *model.DriftDetectionResult, snap *model.Snapshot) int {
	affected := result.Impact.AffectedDocs
	if len(affected) == 0 {
		return 90
	}
	names := deltaSymbols(result, false)
	documented := 0
	for _, n := range names {
		for _, path := range affected {
			doc, ok := snap.Documentation[path]
			if ok && doc.Mentions(n) {
				documented++
				break
			}
		}
	}
	if documented == 0 {
		return 40
	}
	return int(math.Round((1 - float64(documented)/float64(len(names))) * 80))
}

// stalenessFactor grades the age of the oldest affected document.
func stalenessFactor(result *model.DriftDetectionResult, snap *model.Snapshot, now time.Time) int {
	var oldest time.Time
	for _, path := range result.Impact.AffectedDocs {
		doc, ok := snap.Documentation[path]
		if !ok || doc.LastModified.IsZero() {
			continue
		}
		if oldest.IsZero() || doc.LastModified.Before(oldest) {
			oldest = doc.LastModified
		}
	}
	if oldest.IsZero() {
		return 50
	}

	days := now.Sub(oldest).Hours() / 24
	switch {
	case days > 90:
		return 100
	case days > 30:
		return 80
	case days > 14:
		return 60
	case days > 7:
		return 40
	default:
		return 20
	}
}

// deltaSymbols returns the distinct symbol names touched by the result,
// sorted. Removed symbols are left out unless withRemoved is set.
func deltaSymbols(result *model.DriftDetectionResult, withRemoved bool) []string {
	seen := make(map[string]struct{})
	for _, d := range result.Deltas() {
		if d.Type == model.Removed && !withRemoved {
			continue
		}
		seen[d.Name] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
