package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tosin2013/docdrift/internal/report"
	"github.com/tosin2013/docdrift/internal/watch"
)

func newWatchCmd(opts *globalOptions) *cobra.Command {
	var (
		view     viewOptions
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Re-run detection whenever source or documentation files change",
		Long: `Watch the project at path (default: current directory) and print a fresh
drift report after each burst of changes. The baseline is never advanced;
run "docdrift snapshot" to accept the current state.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := report.ParseFormat(view.format)
			if err != nil {
				return err
			}
			s, err := opts.open(cmd, args)
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			detect := func(ctx context.Context, changed []string) error {
				if len(changed) > 0 {
					s.logger.Info("re-running detection", "changed", changed)
				}
				res, err := compare(ctx, s, false)
				if err != nil {
					return err
				}
				full := res.Report(time.Now())
				rep, err := view.narrow(&full)
				if err != nil {
					return err
				}
				return report.Write(out, rep, format, report.Options{
					NoColor:     opts.noColor,
					Suggestions: view.suggestions,
				})
			}

			ctx := cmd.Context()
			if err := detect(ctx, nil); err != nil {
				return err
			}
			w, err := watch.New(s.root, detect,
				watch.WithDebounce(debounce),
				watch.WithIgnore(s.cfg.SnapshotPath(s.root)),
				watch.WithLogger(s.logger))
			if err != nil {
				return fmt.Errorf("starting watcher: %w", err)
			}
			return w.Run(ctx)
		},
	}
	view.register(cmd)
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period before re-running detection")
	return cmd
}
