package main

import (
	"fmt"
	"log"
	"os"

	dig_container "github.com/trezcool/studygroups/apps/api/di/dig"
	"github.com/trezcool/studygroups/core"
	"github.com/trezcool/studygroups/core/study"
)

func main() {
	os.Exit(start())
}

func start() int {
	c := dig_container.New(core.NewConfig)

	var cli *commandLine
	var db dig_container.DB
	err := c.Invoke(func(conf *core.Config, logger core.Logger, d dig_container.DB) {
		db = d
		cli = &commandLine{
			conf:   conf,
			logger: logger,
			db:     d.DB,
			out:    os.Stdout,
			studySvc: func() (svc *study.Service, err error) {
				err = c.Invoke(func(s *study.Service) { svc = s })
				return svc, err
			},
		}
	})
	if err != nil {
		log.Print(err)
		return 1
	}
	defer func() { _ = db.Close() }()

	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			_, _ = fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		return 1
	}
	return 0
}
