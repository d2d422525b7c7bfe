package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/studygroups/storage/database"
)

var gooseRunFunc = database.Run // mockable

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run a goose command (up, down, status, version, redo, reset, up-to N, down-to N...)",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return errHelp
			}
			if cli.db == nil {
				return errors.Errorf("engine %q has no migrations", cli.conf.Database.Engine)
			}
			return gooseRunFunc(args[0], cli.db, cli.conf.Database.Engine, args[1:]...)
		},
	}
}
