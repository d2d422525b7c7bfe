package main

import (
	"crypto/subtle"
	"fmt"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	echoapi "github.com/trezcool/studygroups/apps/api/echo"
)

var errWrongSecret = errors.New("wrong secret key")

func (cli *commandLine) tokenCmd() *cobra.Command {
	var (
		subject string
		isAdmin bool
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token -s SUBJECT [--admin] [--ttl DURATION]",
		Short: "Issue an API token. The secret key is prompted next.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprint(out, "Enter secret key:")
			secret, err := readPasswordFunc(int(syscall.Stdin))
			_, _ = fmt.Fprintln(out)
			if err != nil {
				return err
			}
			if len(secret) == 0 {
				_ = cmd.Usage()
				return errHelp
			}
			if subtle.ConstantTimeCompare(secret, []byte(cli.conf.SecretKey)) != 1 {
				return errWrongSecret
			}

			token, err := echoapi.GenerateToken(cli.conf.SecretKey, echoapi.NewClaims(cli.conf.AppName, subject, isAdmin, ttl))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(out, token)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&subject, "subject", "s", "", "who the token is issued to")
	f.BoolVar(&isAdmin, "admin", false, "grant write access")
	f.DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
