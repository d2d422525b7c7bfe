package main

import (
	"io"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/studygroups/core"
	"github.com/trezcool/studygroups/core/study"
	"github.com/trezcool/studygroups/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf   *core.Config
	logger core.Logger
	db     *sqlx.DB // nil for the memory engine
	out    io.Writer

	// studySvc builds the study service on first use; migrations must not need it.
	studySvc func() (*study.Service, error)
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Study groups administration",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Usage()
			return errHelp
		},
	}
	root.SetOut(cli.out)
	root.SetErr(cli.out)

	root.AddCommand(
		cli.migrateCmd(),
		cli.seedCmd(),
		cli.exportCmd(),
		cli.sweepCmd(),
		cli.tokenCmd(),
	)
	return root
}

// run executes the command line; args include the program name.
func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	if len(args) > 0 {
		args = args[1:]
	}
	root.SetArgs(args)
	return root.Execute()
}

func (cli *commandLine) service() (*study.Service, error) {
	if cli.conf.Database.Engine == database.EngineMemory {
		cli.logger.Warn("memory engine: changes are lost when the command exits")
	}
	return cli.studySvc()
}
