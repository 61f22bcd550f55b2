package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tosin2013/docdrift/internal/engine"
	"github.com/tosin2013/docdrift/internal/model"
	"github.com/tosin2013/docdrift/internal/ranking"
	"github.com/tosin2013/docdrift/internal/report"
)

// viewOptions narrows and renders a report. Shared by detect and watch.
type viewOptions struct {
	format      string
	maxResults  int
	file        string
	symbol      string
	min         string
	suggestions bool
}

func (v *viewOptions) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&v.format, "format", "f", "human", "output format: human, json, yaml or toon")
	f.IntVarP(&v.maxResults, "max-results", "n", 0, "maximum number of results to show")
	f.StringVar(&v.file, "file", "", "only show results whose source or affected document path contains this substring")
	f.StringVar(&v.symbol, "symbol", "", "only show drift for symbols whose name contains this substring")
	f.StringVar(&v.min, "min", "", "only show results at or above this priority: critical, high, medium or low")
	f.BoolVar(&v.suggestions, "suggestions", false, "include suggestion reasoning in human output")
}

// narrow applies the filters in a fixed order: file, symbol, priority, count.
func (v *viewOptions) narrow(rep *model.Report) (*model.Report, error) {
	if v.file != "" {
		rep = ranking.FilterByFile(rep, v.file)
	}
	if v.symbol != "" {
		rep = ranking.FilterBySymbol(rep, v.symbol)
	}
	if v.min != "" {
		tier, err := parseTier(v.min)
		if err != nil {
			return nil, err
		}
		rep = ranking.FilterByRecommendation(rep, tier)
	}
	if v.maxResults > 0 {
		rep = ranking.SelectResults(rep, v.maxResults)
	}
	return rep, nil
}

// compare runs one detection. With advance the new snapshot becomes the
// baseline; otherwise only a project's first run stores one.
func compare(ctx context.Context, s *session, advance bool) (*engine.RunResult, error) {
	if advance {
		return s.engine.Run(ctx, s.root, s.cfg.DocsDir)
	}
	res, err := s.engine.Compare(ctx, s.root, s.cfg.DocsDir)
	if err != nil {
		return nil, err
	}
	if res.Old == nil {
		if res.Key, err = s.engine.SaveSnapshot(ctx, res.New); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func newDetectCmd(opts *globalOptions) *cobra.Command {
	var (
		view   viewOptions
		save   bool
		failOn string
	)
	cmd := &cobra.Command{
		Use:   "detect [path]",
		Short: "Report documentation drift since the baseline snapshot",
		Long: `Model the project at path (default: current directory), compare it with the
most recent snapshot and print the drift, most urgent first.

Without a previous snapshot the current state is stored as the baseline and
nothing is reported. The baseline only advances with --save or
"docdrift snapshot".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := report.ParseFormat(view.format)
			if err != nil {
				return err
			}
			var threshold model.Recommendation
			if failOn != "" {
				if threshold, err = parseTier(failOn); err != nil {
					return err
				}
			}

			s, err := opts.open(cmd, args)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := compare(cmd.Context(), s, save)
			if err != nil {
				return err
			}
			full := res.Report(time.Now())
			rep, err := view.narrow(&full)
			if err != nil {
				return err
			}
			err = report.Write(cmd.OutOrStdout(), rep, format, report.Options{
				NoColor:     opts.noColor,
				Suggestions: view.suggestions,
			})
			if err != nil {
				return err
			}

			if threshold != "" {
				if n := len(ranking.FilterByRecommendation(rep, threshold).Results); n > 0 {
					return fmt.Errorf("%w: %d files at or above %s priority", errDrift, n, threshold)
				}
			}
			return nil
		},
	}
	view.register(cmd)
	cmd.Flags().BoolVar(&save, "save", false, "store the current state as the new baseline after comparing")
	cmd.Flags().StringVar(&failOn, "fail-on", "", "exit with status 2 when drift at or above this priority is found")
	return cmd
}
