package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSnapshotCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot [path]",
		Short: "Record the current code and documentation as the new baseline",
		Long: `Model the project at path (default: current directory) and store the
result. Later detect runs compare against the most recent snapshot.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd, args)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			snap, err := s.engine.CreateSnapshot(ctx, s.root, s.cfg.DocsDir)
			if err != nil {
				return err
			}
			key, err := s.engine.SaveSnapshot(ctx, snap)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "snapshot %s: %d source files, %d documents\nstored as %s\n",
				snap.ID, len(snap.Files), len(snap.Documentation), key)
			return nil
		},
	}
}
