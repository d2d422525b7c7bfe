package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func (cli *commandLine) sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Apply the rating rules to every pool once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := cli.service()
			if err != nil {
				return errors.Wrap(err, "setting up study service")
			}
			reports, err := svc.SweepAll(context.Background())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, r := range reports {
				if !r.Changed() {
					_, _ = fmt.Fprintf(out, "%s/%s: unchanged\n", r.Subject, r.Language)
					continue
				}
				_, _ = fmt.Fprintf(out, "%s/%s: disbanded %v, reshuffled %v, formed %v, merged %v\n",
					r.Subject, r.Language, r.Disbanded, r.Reshuffled, r.Formed, r.Merged)
			}
			return nil
		},
	}
}
