package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/popstore/internal/clock"
	commissiondomain "github.com/smallbiznis/popstore/internal/commission/domain"
	obsmetrics "github.com/smallbiznis/popstore/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/popstore/internal/order/domain"
	"github.com/smallbiznis/popstore/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	JobSettlementRecovery = "settlement_recovery"

	lockKeySettlement = "sweeper:settlement_recovery"
)

var ErrInvalidConfig = errors.New("invalid_sweeper_config")

// Locker is satisfied by ratelimit.Locker.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, key, token string) error
}

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Config      Config
	Orders      orderdomain.Repository
	Commissions commissiondomain.Service
	Locker      *ratelimit.Locker          `optional:"true"`
	Metrics     *obsmetrics.SweeperMetrics `optional:"true"`
	Clock       clock.Clock                `optional:"true"`
}

// Report summarizes one sweep.
type Report struct {
	Skipped          bool
	Scanned          int
	Settled          int
	AlreadyProcessed int
	Failed           int
}

// Sweeper settles paid orders that the webhook path left behind.
type Sweeper struct {
	db          *gorm.DB
	log         *zap.Logger
	cfg         Config
	genID       *snowflake.Node
	clock       clock.Clock
	orders      orderdomain.Repository
	commissions commissiondomain.Service
	locker      Locker
	metrics     *obsmetrics.SweeperMetrics
}

func New(p Params) (*Sweeper, error) {
	if p.DB == nil || p.Log == nil || p.GenID == nil || p.Orders == nil || p.Commissions == nil {
		return nil, ErrInvalidConfig
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}
	metrics := p.Metrics
	if metrics == nil {
		metrics = obsmetrics.Sweeper()
	}
	s := &Sweeper{
		db:          p.DB,
		log:         p.Log.Named("scheduler").With(zap.String("component", "sweeper")),
		cfg:         p.Config.withDefaults(),
		genID:       p.GenID,
		clock:       clk,
		orders:      p.Orders,
		commissions: p.Commissions,
		metrics:     metrics,
	}
	if p.Locker != nil {
		s.locker = p.Locker
	}
	return s, nil
}

// RunOnce performs one bounded sweep. A run that hits its deadline returns the
// partial report without an error.
func (s *Sweeper) RunOnce(parent context.Context) (Report, error) {
	ctx, cancel := context.WithTimeout(parent, s.cfg.RunTimeout)
	defer cancel()

	ctx, run := s.newJobRun(ctx, JobSettlementRecovery)
	log := s.logger(ctx).With(zap.String("job", run.job), zap.String("run_id", run.runID))

	release, ok := s.acquire(ctx, log)
	if !ok {
		s.metrics.IncJobSkipped(run.job, obsmetrics.SweeperSkipLockHeld)
		return Report{Skipped: true}, nil
	}
	defer release()

	s.metrics.IncJobRun(run.job)
	s.logJobStart(ctx, run)

	err := s.sweep(ctx, run)
	s.metrics.ObserveJobDuration(run.job, time.Since(run.startedAt))
	s.logJobFinish(ctx, run)
	if err == nil {
		return run.report, nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.metrics.IncJobTimeout(run.job)
		log.Warn("sweep timed out", zap.Duration("timeout", s.cfg.RunTimeout), zap.Error(err))
		return run.report, nil
	}
	s.metrics.IncJobError(run.job, err)
	return run.report, fmt.Errorf("%s: %w", run.job, err)
}

func (s *Sweeper) sweep(ctx context.Context, run *jobRun) error {
	now := s.clock.Now().UTC()
	orders, err := s.orders.ListUnsettled(ctx, s.db, now.Add(-s.cfg.GracePeriod), s.cfg.BatchSize)
	if err != nil {
		return err
	}
	run.report.Scanned = len(orders)
	if len(orders) == 0 {
		s.metrics.SetOldestUnsettled(0)
		s.metrics.IncJobSkipped(run.job, obsmetrics.SweeperSkipEmpty)
		return nil
	}
	s.metrics.SetOldestUnsettled(now.Sub(orders[0].UpdatedAt))

	for _, order := range orders {
		if err := ctx.Err(); err != nil {
			return err
		}
		result, err := s.commissions.Settle(ctx, order.ID)
		switch {
		case err != nil:
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return err
			}
			run.report.Failed++
			s.metrics.IncJobError(run.job, err)
			s.logger(ctx).Warn("sweeper settle failed",
				zap.String("order_id", order.ID.String()),
				zap.Error(err),
			)
		case result.AlreadyProcessed:
			run.report.AlreadyProcessed++
		default:
			run.report.Settled++
			s.logger(ctx).Info("sweeper settled order",
				zap.String("order_id", order.ID.String()),
				zap.Int64("commission_amount", result.Commission.CommissionAmount),
			)
		}
	}

	s.metrics.AddOrders("settled", run.report.Settled)
	s.metrics.AddOrders("already_processed", run.report.AlreadyProcessed)
	s.metrics.AddOrders("failed", run.report.Failed)
	return nil
}

// acquire takes the cluster lock when a locker is configured. A redis error
// does not block the sweep since settlement itself is idempotent.
func (s *Sweeper) acquire(ctx context.Context, log *zap.Logger) (func(), bool) {
	if s.locker == nil {
		return func() {}, true
	}
	token, ok, err := s.locker.TryLock(ctx, lockKeySettlement, s.cfg.LockTTL)
	if err != nil {
		log.Warn("sweeper lock unavailable, sweeping without it", zap.Error(err))
		return func() {}, true
	}
	if !ok {
		log.Debug("sweeper lock held elsewhere")
		return nil, false
	}
	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.locker.Release(releaseCtx, lockKeySettlement, token); err != nil {
			log.Warn("sweeper lock release failed", zap.Error(err))
		}
	}, true
}
