package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/studygroups/core/study"
	"github.com/trezcool/studygroups/storage/snapshotfile"
)

// stdio is the file name standing for the command output.
const stdio = "-"

func (cli *commandLine) seedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed -f FILE",
		Short: "Replace the whole state with a YAML snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := snapshotfile.Read(file)
			if err != nil {
				return err
			}
			svc, err := cli.service()
			if err != nil {
				return errors.Wrap(err, "setting up study service")
			}
			if err := svc.Import(context.Background(), snap); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "seeded %d subjects, %d students\n", len(snap.Subjects), countStudents(snap))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML snapshot to load")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (cli *commandLine) exportCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "export [-f FILE]",
		Short: "Write the whole state as a YAML snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := cli.service()
			if err != nil {
				return errors.Wrap(err, "setting up study service")
			}
			snap := svc.Export(context.Background())
			if file == stdio {
				return snapshotfile.Encode(cmd.OutOrStdout(), snap)
			}
			return snapshotfile.Write(file, snap)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", stdio, `destination file, "-" for stdout`)
	return cmd
}

func countStudents(snap study.Snapshot) int {
	var n int
	for _, s := range snap.Subjects {
		for _, p := range s.Languages {
			n += len(p.Waiting)
			for _, g := range p.Groups {
				n += len(g.Members)
			}
		}
	}
	return n
}
