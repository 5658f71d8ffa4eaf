package scheduler

import (
	"context"
	"time"

	obscontext "github.com/smallbiznis/popstore/internal/observability/context"
	obslogger "github.com/smallbiznis/popstore/internal/observability/logger"
	"go.uber.org/zap"
)

type jobRun struct {
	job       string
	runID     string
	batchSize int
	startedAt time.Time
	report    Report
}

func (s *Sweeper) newJobRun(ctx context.Context, job string) (context.Context, *jobRun) {
	run := &jobRun{
		job:       job,
		runID:     s.genID.Generate().String(),
		batchSize: s.cfg.BatchSize,
		startedAt: time.Now(),
	}
	ctx = obscontext.WithActor(ctx, "system", "sweeper")
	ctx = obscontext.WithRequestID(ctx, run.runID)
	return ctx, run
}

func (s *Sweeper) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}

func (s *Sweeper) logJobStart(ctx context.Context, run *jobRun) {
	s.logger(ctx).Debug("sweeper.job.start",
		zap.String("job", run.job),
		zap.String("run_id", run.runID),
		zap.Int("batch_size", run.batchSize),
	)
}

func (s *Sweeper) logJobFinish(ctx context.Context, run *jobRun) {
	fields := []zap.Field{
		zap.String("job", run.job),
		zap.String("run_id", run.runID),
		zap.Int64("duration_ms", time.Since(run.startedAt).Milliseconds()),
		zap.Int("scanned", run.report.Scanned),
		zap.Int("settled", run.report.Settled),
		zap.Int("already_processed", run.report.AlreadyProcessed),
		zap.Int("failed", run.report.Failed),
	}
	log := s.logger(ctx)
	switch {
	case run.report.Failed > 0:
		log.Warn("sweeper.job.finish", fields...)
	case run.report.Settled > 0:
		log.Info("sweeper.job.finish", fields...)
	default:
		log.Debug("sweeper.job.finish", fields...)
	}
}
