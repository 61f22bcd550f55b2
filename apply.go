package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tosin2013/docdrift/internal/drift"
	"github.com/tosin2013/docdrift/internal/model"
	"github.com/tosin2013/docdrift/internal/ranking"
)

func newApplyCmd(opts *globalOptions) *cobra.Command {
	var (
		write  bool
		all    bool
		file   string
		symbol string
	)
	cmd := &cobra.Command{
		Use:   "apply [path]",
		Short: "Preview or write suggested documentation repairs",
		Long: `Compare the project at path (default: current directory) with the baseline
snapshot and print the suggested documentation edits as unified diffs.
Nothing is modified unless --write is given.

Only suggestions marked auto-applicable (patch-level signature updates) are
considered unless --all is given. Review the result before committing it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd, args)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := s.engine.Compare(cmd.Context(), s.root, s.cfg.DocsDir)
			if err != nil {
				return err
			}
			if res.Old == nil {
				return errors.New("no baseline snapshot; run docdrift snapshot first")
			}

			full := res.Report(time.Now())
			rep := &full
			if file != "" {
				rep = ranking.FilterByFile(rep, file)
			}
			if symbol != "" {
				rep = ranking.FilterBySymbol(rep, symbol)
			}

			plan := planEdits(rep, all)
			stats := applyPlan(plan, res.New.DocsRoot, write, cmd.OutOrStdout(), s.logger)
			return stats.summarize(cmd.ErrOrStderr(), write)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&write, "write", false, "modify the documentation files in place")
	f.BoolVar(&all, "all", false, "include suggestions that need manual review")
	f.StringVar(&file, "file", "", "only consider results whose source or affected document path contains this substring")
	f.StringVar(&symbol, "symbol", "", "only consider suggestions for symbols whose name contains this substring")
	return cmd
}

// docEdits is the ordered list of suggestions for one document.
type docEdits struct {
	doc         string
	suggestions []model.DriftSuggestion
}

// planEdits groups the report's suggestions by document, sorted by document
// path and keeping report order within each document.
func planEdits(rep *model.Report, all bool) []docEdits {
	byDoc := make(map[string][]model.DriftSuggestion)
	for i := range rep.Results {
		for _, sg := range rep.Results[i].Suggestions {
			if sg.AutoApplicable || all {
				byDoc[sg.DocFile] = append(byDoc[sg.DocFile], sg)
			}
		}
	}
	plan := make([]docEdits, 0, len(byDoc))
	for doc, sgs := range byDoc {
		plan = append(plan, docEdits{doc: doc, suggestions: sgs})
	}
	sort.Slice(plan, func(i, j int) bool { return plan[i].doc < plan[j].doc })
	return plan
}

type applyStats struct {
	applied, skipped, files int
	errs                    []error
}

func (st applyStats) summarize(w io.Writer, write bool) error {
	switch {
	case st.applied == 0 && st.skipped == 0:
		_, _ = fmt.Fprintln(w, "no applicable suggestions")
	case write:
		_, _ = fmt.Fprintf(w, "applied %d suggestions to %d files, skipped %d; run docdrift snapshot to accept the new baseline\n",
			st.applied, st.files, st.skipped)
	default:
		_, _ = fmt.Fprintf(w, "%d suggestions would apply to %d files, %d skipped; rerun with --write to apply\n",
			st.applied, st.files, st.skipped)
	}
	return errors.Join(st.errs...)
}

// applyPlan prints each edit as a unified diff and, when write is set, saves
// every changed document. A suggestion whose section changed since detection,
// including through an earlier suggestion, is skipped.
func applyPlan(plan []docEdits, docsRoot string, write bool, out io.Writer, logger *slog.Logger) applyStats {
	var st applyStats
	for _, edits := range plan {
		path := filepath.Join(docsRoot, filepath.FromSlash(edits.doc))
		data, err := os.ReadFile(path)
		if err != nil {
			st.errs = append(st.errs, fmt.Errorf("reading %s: %w", path, err))
			continue
		}
		content := string(data)
		changed := false
		for _, sg := range edits.suggestions {
			if sg.SuggestedContent == sg.CurrentContent {
				logger.Debug("suggestion already applied", "doc", sg.DocFile, "section", sg.Section)
				st.skipped++
				continue
			}
			updated, err := drift.Apply(content, sg)
			if errors.Is(err, drift.ErrNotApplicable) {
				logger.Warn("skipping suggestion", "doc", sg.DocFile, "section", sg.Section, "error", err)
				st.skipped++
				continue
			}
			if err != nil {
				st.errs = append(st.errs, err)
				continue
			}
			diff, err := drift.UnifiedDiff(sg, contentLine(content, sg))
			if err != nil {
				st.errs = append(st.errs, err)
				continue
			}
			_, _ = io.WriteString(out, diff)
			content = updated
			changed = true
			st.applied++
		}
		if !changed {
			continue
		}
		st.files++
		if write {
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				st.errs = append(st.errs, fmt.Errorf("writing %s: %w", path, err))
			}
		}
	}
	return st
}

// contentLine returns the 1-based line of doc where the suggestion's current
// content starts, or the line after its heading when the section is empty.
func contentLine(doc string, sg model.DriftSuggestion) int {
	off, err := drift.Locate(doc, sg)
	if err != nil {
		return 1
	}
	line := strings.Count(doc[:off], "\n") + 1
	if sg.CurrentContent == "" && !strings.HasSuffix(doc[:off], "\n") {
		line++
	}
	return line
}
