// Package sweeper periodically applies the rating rules to every pool.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/studygroups/core"
	"github.com/trezcool/studygroups/core/study"
)

type Sweeper interface {
	SweepAll(ctx context.Context) ([]study.SweepReport, error)
}

type Runner struct {
	svc      Sweeper
	interval time.Duration
	logger   core.Logger
}

func New(svc Sweeper, interval time.Duration, logger core.Logger) *Runner {
	return &Runner{svc: svc, interval: interval, logger: logger}
}

// Run sweeps every interval until ctx is done. A zero interval disables sweeping.
// Only shutdown errors stop the loop.
func (r *Runner) Run(ctx context.Context) error {
	if r.interval <= 0 {
		r.logger.Info("sweeper disabled")
		<-ctx.Done()
		return nil
	}

	r.logger.Info(fmt.Sprintf("sweeper started, every %s", r.interval))
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("sweeper stopped")
			return nil
		case <-ticker.C:
			if err := r.sweep(ctx); err != nil {
				return err
			}
		}
	}
}

func (r *Runner) sweep(ctx context.Context) error {
	reports, err := r.svc.SweepAll(ctx)
	if err != nil {
		if core.IsShutdown(err) {
			return errors.Wrap(err, "sweeping")
		}
		r.logger.Error("sweeping", err)
		return nil
	}
	var changed int
	for _, rep := range reports {
		if rep.Changed() {
			changed++
		}
	}
	r.logger.Debug(fmt.Sprintf("swept %d pools, %d changed", len(reports), changed))
	return nil
}
