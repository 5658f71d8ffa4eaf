package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Runner drives the sweeper on its cron schedule.
type Runner struct {
	cron    *cron.Cron
	sweeper *Sweeper
}

func NewRunner(s *Sweeper) (*Runner, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	r := &Runner{cron: c, sweeper: s}
	if _, err := c.AddFunc(s.cfg.Schedule, r.tick); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Runner) tick() {
	if _, err := r.sweeper.RunOnce(context.Background()); err != nil {
		r.sweeper.log.Warn("sweeper run failed", zap.Error(err))
	}
}

func (r *Runner) Start() { r.cron.Start() }

// Stop waits for a running sweep to finish or ctx to expire.
func (r *Runner) Stop(ctx context.Context) error {
	done := r.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func RegisterRunner(lc fx.Lifecycle, cfg Config, s *Sweeper, log *zap.Logger) error {
	if !cfg.Enabled {
		log.Info("settlement sweeper disabled")
		return nil
	}
	runner, err := NewRunner(s)
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runner.Start()
			return nil
		},
		OnStop: runner.Stop,
	})
	return nil
}
