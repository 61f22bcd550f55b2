package docparse

import (
	"strings"

	"github.com/tosin2013/docdrift/internal/model"
)

var categoryAliases = map[string]model.Diataxis{
	"tutorial":    model.Tutorial,
	"tutorials":   model.Tutorial,
	"how-to":      model.HowTo,
	"howto":       model.HowTo,
	"how_to":      model.HowTo,
	"how-tos":     model.HowTo,
	"guide":       model.HowTo,
	"guides":      model.HowTo,
	"reference":   model.Reference,
	"api":         model.Reference,
	"explanation": model.Explanation,
	"concept":     model.Explanation,
	"concepts":    model.Explanation,
}

// Normalize maps a category label or directory name to a Diataxis category.
// Unknown labels yield "".
func Normalize(label string) model.Diataxis {
	return categoryAliases[strings.ToLower(strings.TrimSpace(label))]
}

// FromPath infers the category from a directory segment such as
// "tutorials/" or "reference/".
func FromPath(path string) model.Diataxis {
	segments := strings.Split(strings.ReplaceAll(path, "\\", "/"), "/")
	for _, seg := range segments[:len(segments)-1] {
		if d := Normalize(seg); d != "" {
			return d
		}
	}
	return ""
}

var contentSignals = []struct {
	category model.Diataxis
	phrases  []string
}{
	{model.Tutorial, []string{"in this tutorial", "you will learn", "step 1", "let's", "getting started", "next step"}},
	{model.HowTo, []string{"how to", "how do i", "to do this", "prerequisites", "follow these steps", "troubleshoot"}},
	{model.Reference, []string{"parameters", "returns", "arguments", "signature", "options", "type:"}},
	{model.Explanation, []string{"why ", "architecture", "design", "background", "overview", "trade-off"}},
}

// FromContent infers the category from phrasing. The category with the most
// signal hits wins; ties go to the earlier category. No hits yields "".
func FromContent(text string) model.Diataxis {
	lower := strings.ToLower(text)
	var (
		best      model.Diataxis
		bestScore int
	)
	for _, sig := range contentSignals {
		score := 0
		for _, phrase := range sig.phrases {
			score += strings.Count(lower, phrase)
		}
		if score > bestScore {
			best, bestScore = sig.category, score
		}
	}
	return best
}

// Declared returns the category a document states through front matter or,
// failing that, its path. Content is not consulted.
func Declared(path string, frontMatter model.Diataxis) model.Diataxis {
	if frontMatter != "" {
		return frontMatter
	}
	return FromPath(path)
}

// Classify picks a document category: front matter first, then path, then content.
func Classify(path string, frontMatter model.Diataxis, text string) model.Diataxis {
	if d := Declared(path, frontMatter); d != "" {
		return d
	}
	return FromContent(text)
}
