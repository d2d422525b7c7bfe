package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	dig_container "github.com/trezcool/studygroups/apps/api/di/dig"
	echoapi "github.com/trezcool/studygroups/apps/api/echo"
	"github.com/trezcool/studygroups/core"
	logsvc "github.com/trezcool/studygroups/services/logger"
	"github.com/trezcool/studygroups/services/sweeper"
)

func main() {
	c := dig_container.New(core.NewConfig)
	if err := c.Invoke(run); err != nil {
		log.Fatal(err)
	}
}

func run(
	conf *core.Config,
	logger *logsvc.Logger,
	db dig_container.DB,
	server *echoapi.Server,
	runner *sweeper.Runner,
) error {
	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer func() { _ = logger.Sync() }()
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddr, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service & Sweeper

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info(fmt.Sprintf("API listening on %s", conf.Server.Addr))
		return server.Start()
	})
	g.Go(func() error {
		return runner.Run(gctx)
	})

	// =========================================================================
	// Shutdown

	g.Go(func() error {
		select {
		case <-gctx.Done():
			logger.Info("Start shutdown...")
		case <-server.ShutdownRequested():
			logger.Warn("Integrity error: start shutdown...")
		}
		defer stop()

		// give outstanding requests a deadline for completion
		sctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Stop(sctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
			return err
		}
		return nil
	})

	return g.Wait()
}
