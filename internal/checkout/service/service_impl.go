package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/popstore/internal/audit/domain"
	checkoutdomain "github.com/smallbiznis/popstore/internal/checkout/domain"
	"github.com/smallbiznis/popstore/internal/clock"
	commissiondomain "github.com/smallbiznis/popstore/internal/commission/domain"
	"github.com/smallbiznis/popstore/internal/config"
	obsmetrics "github.com/smallbiznis/popstore/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/popstore/internal/order/domain"
	paymentdomain "github.com/smallbiznis/popstore/internal/payment/domain"
	payoutdomain "github.com/smallbiznis/popstore/internal/payout/domain"
	plandomain "github.com/smallbiznis/popstore/internal/plan/domain"
	storedomain "github.com/smallbiznis/popstore/internal/store/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultDBTimeout = 5 * time.Second

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Cfg        config.Config
	Checkout   *config.CheckoutConfigHolder
	Stores     storedomain.Repository
	Orders     orderdomain.Repository
	Plans      plandomain.Service
	Payouts    payoutdomain.Service
	Sessions   paymentdomain.SessionFactory
	AuditSvc   auditdomain.Service `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
	Clock      clock.Clock         `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	baseURL    string
	dbTimeout  time.Duration
	checkout   *config.CheckoutConfigHolder
	stores     storedomain.Repository
	orders     orderdomain.Repository
	plans      plandomain.Service
	payouts    payoutdomain.Service
	sessions   paymentdomain.SessionFactory
	auditSvc   auditdomain.Service
	obsMetrics *obsmetrics.Metrics
	clock      clock.Clock
}

func NewService(p Params) checkoutdomain.Service {
	timeout := p.Cfg.Checkout.DBTimeout
	if timeout <= 0 {
		timeout = defaultDBTimeout
	}
	holder := p.Checkout
	if holder == nil {
		holder = config.NewStaticCheckoutConfigHolder(config.DefaultCheckoutConfig())
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("checkout.service"),
		genID:      p.GenID,
		baseURL:    strings.TrimRight(p.Cfg.BaseURL, "/"),
		dbTimeout:  timeout,
		checkout:   holder,
		stores:     p.Stores,
		orders:     p.Orders,
		plans:      p.Plans,
		payouts:    p.Payouts,
		sessions:   p.Sessions,
		auditSvc:   p.AuditSvc,
		obsMetrics: p.ObsMetrics,
		clock:      clk,
	}
}

// Initiate creates a pending order and the hosted payment page for it. No
// order is written unless the product, store, payout account and plan all
// check out.
func (s *Service) Initiate(ctx context.Context, req checkoutdomain.Request) (*checkoutdomain.Result, error) {
	result, err := s.initiate(ctx, req)
	s.obsMetrics.RecordCheckoutSession(ctx, outcomeFor(err))
	return result, err
}

func (s *Service) initiate(ctx context.Context, req checkoutdomain.Request) (*checkoutdomain.Result, error) {
	cfg := s.checkout.Get()

	productID, email, quantity, err := validate(req, cfg.MaxQuantity)
	if err != nil {
		return nil, err
	}

	product, err := withTimeout(ctx, s.dbTimeout, func(ctx context.Context) (*storedomain.Product, error) {
		return s.stores.FindProduct(ctx, s.db, productID)
	})
	if err != nil {
		return nil, err
	}
	if product == nil || !product.IsActive {
		return nil, checkoutdomain.ErrProductNotFound
	}

	store, err := withTimeout(ctx, s.dbTimeout, func(ctx context.Context) (*storedomain.Store, error) {
		return s.stores.FindStore(ctx, s.db, product.StoreID)
	})
	if err != nil {
		return nil, err
	}
	if store == nil || !store.IsActive {
		return nil, checkoutdomain.ErrStoreInactive
	}
	now := s.clock.Now().UTC()
	if store.Expired(now) {
		return nil, checkoutdomain.ErrStoreExpired
	}

	log := s.log.With(
		zap.String("store_id", store.ID.String()),
		zap.String("product_id", product.ID.String()),
	)

	ready, err := withTimeout(ctx, s.dbTimeout, func(ctx context.Context) (bool, error) {
		return s.payouts.IsPayoutReady(ctx, store.OwnerID)
	})
	if err != nil {
		return nil, err
	}
	if !ready {
		log.Info("checkout blocked, payout account not ready", zap.String("owner_id", store.OwnerID.String()))
		return nil, checkoutdomain.ErrPayoutNotConfigured
	}
	destination, err := withTimeout(ctx, s.dbTimeout, func(ctx context.Context) (string, error) {
		return s.payouts.DestinationAccount(ctx, store.OwnerID)
	})
	if err != nil {
		if errors.Is(err, payoutdomain.ErrNotConfigured) {
			return nil, checkoutdomain.ErrPayoutNotConfigured
		}
		return nil, err
	}

	plan, err := withTimeout(ctx, s.dbTimeout, func(ctx context.Context) (*plandomain.Plan, error) {
		return s.plans.Get(ctx, store.PlanID)
	})
	if err != nil {
		if errors.Is(err, plandomain.ErrNotFound) {
			return nil, checkoutdomain.ErrPlanNotFound
		}
		return nil, err
	}

	total := product.Price * int64(quantity)
	split, err := commissiondomain.Calculate(total, plan.CommissionPercentage)
	if err != nil {
		return nil, err
	}

	currency := strings.ToLower(strings.TrimSpace(product.Currency))
	if currency == "" {
		currency = cfg.Currency
	}
	fee := split.Commission
	order := &orderdomain.Order{
		ID:                   s.genID.Generate(),
		StoreID:              store.ID,
		ProductID:            product.ID,
		BuyerEmail:           email,
		BuyerName:            trimmedPointer(req.BuyerName),
		Quantity:             quantity,
		UnitPrice:            product.Price,
		TotalPrice:           total,
		Currency:             currency,
		CommissionPercentage: decimal.NewNullDecimal(plan.CommissionPercentage),
		ApplicationFeeAmount: &fee,
		Status:               orderdomain.StatusPending,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if _, err := withTimeout(ctx, s.dbTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.orders.Insert(ctx, s.db, order)
	}); err != nil {
		return nil, err
	}
	log = log.With(zap.String("order_id", order.ID.String()))

	session, err := s.sessions.CreateSession(ctx, paymentdomain.SessionRequest{
		OrderID:              order.ID,
		ProductName:          product.Name,
		UnitAmount:           product.Price,
		Quantity:             quantity,
		Currency:             currency,
		ApplicationFeeAmount: split.Commission,
		DestinationAccount:   destination,
		CustomerEmail:        email,
		SuccessURL:           s.baseURL + cfg.SuccessPath,
		CancelURL:            s.baseURL + cfg.CancelPath,
		Metadata: map[string]string{
			paymentdomain.MetadataOrderID:          order.ID.String(),
			paymentdomain.MetadataStoreID:          store.ID.String(),
			paymentdomain.MetadataProductID:        product.ID.String(),
			paymentdomain.MetadataCommissionAmount: strconv.FormatInt(split.Commission, 10),
		},
	})
	if err != nil {
		log.Error("checkout session creation failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", checkoutdomain.ErrSessionFailed, err)
	}

	if _, err := withTimeout(ctx, s.dbTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.orders.SetSessionID(ctx, s.db, order.ID, session.ID, s.clock.Now().UTC())
	}); err != nil {
		return nil, err
	}

	log.Info("checkout session created",
		zap.String("session_id", session.ID),
		zap.Int64("total_amount", total),
		zap.Int64("commission_amount", split.Commission),
	)
	s.audit(ctx, order, session.ID)

	return &checkoutdomain.Result{
		OrderID:          order.ID.String(),
		SessionID:        session.ID,
		SessionURL:       session.URL,
		TotalAmount:      total,
		CommissionAmount: split.Commission,
		NetAmount:        split.Net,
	}, nil
}

func (s *Service) audit(ctx context.Context, order *orderdomain.Order, sessionID string) {
	if s.auditSvc == nil {
		return
	}
	storeID := order.StoreID
	targetID := order.ID.String()
	metadata := map[string]any{
		"buyer_email":  order.BuyerEmail,
		"product_id":   order.ProductID.String(),
		"quantity":     order.Quantity,
		"total_amount": order.TotalPrice,
		"session_id":   sessionID,
	}
	if err := s.auditSvc.AuditLog(ctx, &storeID, string(auditdomain.ActorTypeBuyer), nil, "order.created", "order", &targetID, metadata); err != nil {
		s.log.Warn("failed to write checkout audit log", zap.Error(err))
	}
}

func validate(req checkoutdomain.Request, maxQuantity int) (snowflake.ID, string, int, error) {
	productID, err := snowflake.ParseString(strings.TrimSpace(req.ProductID))
	if err != nil || productID <= 0 {
		return 0, "", 0, checkoutdomain.ErrInvalidProductID
	}

	email := strings.TrimSpace(req.BuyerEmail)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return 0, "", 0, checkoutdomain.ErrInvalidBuyerEmail
	}

	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if maxQuantity <= 0 {
		maxQuantity = config.DefaultCheckoutConfig().MaxQuantity
	}
	if quantity < 1 || quantity > maxQuantity {
		return 0, "", 0, checkoutdomain.ErrInvalidQuantity
	}
	return productID, strings.ToLower(email), quantity, nil
}

func withTimeout[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}

func trimmedPointer(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func outcomeFor(err error) string {
	switch {
	case err == nil:
		return "created"
	case checkoutdomain.IsValidation(err):
		return "invalid"
	case errors.Is(err, checkoutdomain.ErrSessionFailed):
		return "upstream_error"
	case errors.Is(err, checkoutdomain.ErrProductNotFound),
		errors.Is(err, checkoutdomain.ErrStoreInactive),
		errors.Is(err, checkoutdomain.ErrStoreExpired),
		errors.Is(err, checkoutdomain.ErrPayoutNotConfigured),
		errors.Is(err, checkoutdomain.ErrPlanNotFound):
		return "rejected"
	default:
		return "error"
	}
}
