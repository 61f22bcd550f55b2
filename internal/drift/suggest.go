package drift

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tosin2013/docdrift/internal/model"
)

// Suggestion confidence per change type.
const (
	RemovedConfidence  = 0.8
	ModifiedConfidence = 0.7
	AddedConfidence    = 0.6
)

var codeSpanRe = regexp.MustCompile("`[^`\n]+`")

// suggest builds the repair proposal for one delta in one section.
func suggest(delta model.CodeDelta, at sectionRef, fm *model.FileModel) model.DriftSuggestion {
	s := model.DriftSuggestion{
		DocFile:        at.Doc,
		Section:        at.Section.Title,
		Symbol:         delta.Name,
		CurrentContent: at.Section.Content,
	}
	current := at.Section.Content

	switch delta.Type {
	case model.Removed:
		notice := fmt.Sprintf("> **Removed:** ~~`%s`~~ no longer exists in `%s`. Rewrite or delete the references below.",
			delta.Name, delta.File)
		s.SuggestedContent = prepend(notice, strike(current, delta.Name))
		s.Reasoning = fmt.Sprintf("%s %s was removed from %s; this section still references it.",
			delta.Category, delta.Name, delta.File)
		s.Confidence = RemovedConfidence
	case model.Added:
		s.SuggestedContent = appendSubsection(current, delta, language(fm))
		s.Reasoning = fmt.Sprintf("%s %s is new in %s and has no documentation.",
			delta.Category, delta.Name, delta.File)
		s.Confidence = AddedConfidence
	case model.Modified:
		body := current
		if delta.OldSignature != "" && delta.NewSignature != "" {
			body = strings.ReplaceAll(current, delta.OldSignature, delta.NewSignature)
		}
		notice := fmt.Sprintf("> **Updated:** `%s` changed (%s): %s.", delta.Name, delta.Impact, delta.Details)
		s.SuggestedContent = prepend(notice, body)
		s.Reasoning = fmt.Sprintf("%s %s changed from `%s` to `%s`.",
			delta.Category, delta.Name, delta.OldSignature, delta.NewSignature)
		s.Confidence = ModifiedConfidence
		s.AutoApplicable = delta.Impact == model.Patch
	default:
		panic(fmt.Sprintf("drift: unknown change type %q", delta.Type))
	}
	return s
}

func language(fm *model.FileModel) string {
	if fm == nil {
		return ""
	}
	return fm.Language
}

// prepend places notice before content, keeping the blank line that usually
// follows a heading. Content that already carries the notice is returned
// unchanged.
func prepend(notice, content string) string {
	if strings.Contains(content, notice) {
		return content
	}
	lead, rest := "", content
	if strings.HasPrefix(content, "\n") {
		lead, rest = "\n", content[1:]
	}
	if strings.TrimSpace(rest) == "" {
		return lead + notice
	}
	return lead + notice + "\n\n" + rest
}

func appendSubsection(content string, delta model.CodeDelta, lang string) string {
	var b strings.Builder
	if trimmed := strings.TrimRight(content, "\n"); trimmed != "" {
		b.WriteString(trimmed)
		b.WriteString("\n\n")
	} else {
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "### %s\n\n", delta.Name)
	if delta.NewSignature != "" {
		fmt.Fprintf(&b, "```%s\n%s\n```\n", lang, delta.NewSignature)
	} else {
		fmt.Fprintf(&b, "_Documentation needed: describe `%s`._\n", delta.Name)
	}
	return b.String()
}

// strike wraps every mention of name outside fenced code in ~~ markers. An
// inline code span mentioning name is struck as a whole.
func strike(content, name string) string {
	lines := strings.Split(content, "\n")
	inFence := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		lines[i] = strikeLine(line, name)
	}
	return strings.Join(lines, "\n")
}

func strikeLine(line, name string) string {
	var b strings.Builder
	last := 0
	for _, loc := range codeSpanRe.FindAllStringIndex(line, -1) {
		b.WriteString(strikeWords(line[last:loc[0]], name))
		span := line[loc[0]:loc[1]]
		if wordIndex(span, name, 0) >= 0 && !struckAt(line, loc[0], loc[1]) {
			b.WriteString("~~" + span + "~~")
		} else {
			b.WriteString(span)
		}
		last = loc[1]
	}
	b.WriteString(strikeWords(line[last:], name))
	return b.String()
}

func strikeWords(text, name string) string {
	var b strings.Builder
	last := 0
	for {
		i := wordIndex(text, name, last)
		if i < 0 {
			break
		}
		end := i + len(name)
		b.WriteString(text[last:i])
		if struckAt(text, i, end) {
			b.WriteString(name)
		} else {
			b.WriteString("~~" + name + "~~")
		}
		last = end
	}
	b.WriteString(text[last:])
	return b.String()
}

// wordIndex returns the first index at or after from where name occurs as a
// whole identifier, or -1.
func wordIndex(text, name string, from int) int {
	if name == "" {
		return -1
	}
	for from <= len(text)-len(name) {
		i := strings.Index(text[from:], name)
		if i < 0 {
			return -1
		}
		i += from
		end := i + len(name)
		before := i == 0 || !(isIdent(text[i-1]) || text[i-1] == '.')
		after := end == len(text) || !isIdent(text[end])
		if before && after {
			return i
		}
		from = i + 1
	}
	return -1
}

func struckAt(text string, start, end int) bool {
	return start >= 2 && text[start-2:start] == "~~" && end+2 <= len(text) && text[end:end+2] == "~~"
}

func isIdent(c byte) bool {
	return c == '_' || c == '$' ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}
