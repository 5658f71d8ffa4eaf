package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/popstore/internal/audit/domain"
	"github.com/smallbiznis/popstore/internal/clock"
	commissiondomain "github.com/smallbiznis/popstore/internal/commission/domain"
	ledgerdomain "github.com/smallbiznis/popstore/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/popstore/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/popstore/internal/order/domain"
	plandomain "github.com/smallbiznis/popstore/internal/plan/domain"
	storedomain "github.com/smallbiznis/popstore/internal/store/domain"
	pkgdb "github.com/smallbiznis/popstore/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const settleTimeout = 10 * time.Second

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       commissiondomain.Repository
	Orders     orderdomain.Repository
	Stores     storedomain.Repository
	Plans      plandomain.Service
	Ledger     ledgerdomain.Service
	AuditSvc   auditdomain.Service `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
	Clock      clock.Clock         `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       commissiondomain.Repository
	orders     orderdomain.Repository
	stores     storedomain.Repository
	plans      plandomain.Service
	ledger     ledgerdomain.Service
	auditSvc   auditdomain.Service
	obsMetrics *obsmetrics.Metrics
	clock      clock.Clock
}

func NewService(p Params) commissiondomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("commission.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		orders:     p.Orders,
		stores:     p.Stores,
		plans:      p.Plans,
		ledger:     p.Ledger,
		auditSvc:   p.AuditSvc,
		obsMetrics: p.ObsMetrics,
		clock:      clk,
	}
}

// Settle books the commission for a paid order. Repeated calls for the same
// order return the existing commission with AlreadyProcessed set.
func (s *Service) Settle(ctx context.Context, orderID snowflake.ID) (*commissiondomain.SettleResult, error) {
	ctx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()

	log := s.log.With(zap.String("order_id", orderID.String()))

	order, err := s.orders.FindByID(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, commissiondomain.ErrOrderNotFound
	}
	if order.CommissionProcessed {
		log.Info("commission already processed")
		return s.alreadyProcessed(ctx, s.db, order)
	}
	if order.Status == orderdomain.StatusRefunded {
		return nil, commissiondomain.ErrOrderRefunded
	}

	store, err := s.stores.FindStore(ctx, s.db, order.StoreID)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, commissiondomain.ErrStoreNotFound
	}

	plan, err := s.plans.Get(ctx, store.PlanID)
	if err != nil {
		if errors.Is(err, plandomain.ErrNotFound) {
			return nil, commissiondomain.ErrPlanNotFound
		}
		return nil, err
	}

	split, divergent, err := resolveSplit(order, plan)
	if err != nil {
		return nil, err
	}
	if divergent {
		log.Warn("commission snapshot diverges from plan",
			zap.String("plan_id", plan.ID.String()),
			zap.String("plan_percentage", plan.CommissionPercentage.String()),
			zap.String("settled_percentage", split.Percentage.String()),
			zap.Int64("commission_amount", split.Commission),
		)
	}

	now := s.clock.Now().UTC()
	commission := &commissiondomain.Commission{
		ID:                   s.genID.Generate(),
		OrderID:              order.ID,
		StoreID:              store.ID,
		StoreOwnerID:         store.OwnerID,
		PlanID:               plan.ID,
		GrossAmount:          split.Gross,
		CommissionPercentage: split.Percentage,
		CommissionAmount:     split.Commission,
		NetAmount:            split.Net,
		Currency:             order.Currency,
		Status:               commissiondomain.StatusCompleted,
		ProcessedAt:          &now,
		CreatedAt:            now,
	}

	var result *commissiondomain.SettleResult
	ledgerPosted := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inserted, err := s.repo.InsertIgnore(ctx, tx, commission)
		if err != nil {
			return err
		}
		if !inserted {
			existing, err := s.repo.FindByOrder(ctx, tx, order.ID)
			if err != nil {
				return err
			}
			if existing == nil {
				return fmt.Errorf("commission for order %s not found after conflict", order.ID)
			}
			if _, err := s.orders.MarkSettled(ctx, tx, order.ID, existing.ID, now); err != nil {
				return err
			}
			result = &commissiondomain.SettleResult{Commission: existing, AlreadyProcessed: true}
			return nil
		}

		_, posted, err := s.ledger.PostTx(ctx, tx, ledgerdomain.Posting{
			OrgID:      store.ID,
			SourceType: ledgerdomain.SourceTypeCommission,
			SourceID:   order.ID,
			Currency:   order.Currency,
			OccurredAt: now,
			Lines:      ledgerdomain.CommissionLines(split.Gross, split.Commission, split.Net),
		})
		if err != nil {
			return err
		}
		ledgerPosted = posted

		rows, err := s.orders.MarkSettled(ctx, tx, order.ID, commission.ID, now)
		if err != nil {
			return err
		}
		if rows == 0 {
			return commissiondomain.ErrCommissionExists
		}
		result = &commissiondomain.SettleResult{Commission: commission, Divergent: divergent}
		return nil
	})
	if err != nil {
		if errors.Is(err, commissiondomain.ErrCommissionExists) || pkgdb.IsDuplicateKeyErr(err) {
			log.Info("concurrent settlement detected", zap.Error(err))
			return s.alreadyProcessed(ctx, s.db, order)
		}
		s.obsMetrics.RecordSettlement(ctx, "error", order.Currency, 0)
		log.Error("settlement failed", zap.Error(err))
		return nil, err
	}

	if result.AlreadyProcessed {
		log.Info("commission already recorded, order flag repaired")
		s.obsMetrics.RecordSettlement(ctx, "already_processed", order.Currency, 0)
		return result, nil
	}

	s.obsMetrics.RecordSettlement(ctx, "settled", order.Currency, split.Commission)
	if ledgerPosted {
		s.obsMetrics.RecordLedgerEntry(ctx, string(ledgerdomain.SourceTypeCommission))
	}
	if divergent {
		s.obsMetrics.RecordCommissionDivergence(ctx)
	}
	log.Info("commission settled",
		zap.String("commission_id", commission.ID.String()),
		zap.String("store_id", store.ID.String()),
		zap.Int64("gross_amount", split.Gross),
		zap.Int64("commission_amount", split.Commission),
		zap.Int64("net_amount", split.Net),
	)
	s.audit(ctx, store.ID, commission, divergent)

	return result, nil
}

func (s *Service) alreadyProcessed(ctx context.Context, db *gorm.DB, order *orderdomain.Order) (*commissiondomain.SettleResult, error) {
	existing, err := s.repo.FindByOrder(ctx, db, order.ID)
	if err != nil {
		return nil, err
	}
	s.obsMetrics.RecordSettlement(ctx, "already_processed", order.Currency, 0)
	return &commissiondomain.SettleResult{Commission: existing, AlreadyProcessed: true}, nil
}

func (s *Service) audit(ctx context.Context, storeID snowflake.ID, commission *commissiondomain.Commission, divergent bool) {
	if s.auditSvc == nil {
		return
	}
	targetID := commission.ID.String()
	metadata := map[string]any{
		"order_id":              commission.OrderID.String(),
		"plan_id":               commission.PlanID.String(),
		"gross_amount":          commission.GrossAmount,
		"commission_amount":     commission.CommissionAmount,
		"net_amount":            commission.NetAmount,
		"commission_percentage": commission.CommissionPercentage.String(),
		"divergent":             divergent,
	}
	if err := s.auditSvc.AuditLog(ctx, &storeID, string(auditdomain.ActorTypeSystem), nil, "commission.settled", "commission", &targetID, metadata); err != nil {
		s.log.Warn("failed to write commission audit log", zap.Error(err))
	}
}

// resolveSplit prefers what the order recorded at checkout. The plan is only
// consulted for orders created without a snapshot.
func resolveSplit(order *orderdomain.Order, plan *plandomain.Plan) (commissiondomain.Split, bool, error) {
	pct := plan.CommissionPercentage
	divergent := false
	if order.CommissionPercentage.Valid {
		pct = order.CommissionPercentage.Decimal
		divergent = !pct.Equal(plan.CommissionPercentage)
	}

	split, err := commissiondomain.Calculate(order.TotalPrice, pct)
	if err != nil {
		return commissiondomain.Split{}, false, err
	}
	if order.ApplicationFeeAmount != nil && *order.ApplicationFeeAmount != split.Commission {
		split, err = split.WithFee(*order.ApplicationFeeAmount)
		if err != nil {
			return commissiondomain.Split{}, false, err
		}
		divergent = true
	}
	return split, divergent, nil
}
