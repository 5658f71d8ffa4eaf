package webhook

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/popstore/internal/audit/domain"
	"github.com/smallbiznis/popstore/internal/clock"
	commissiondomain "github.com/smallbiznis/popstore/internal/commission/domain"
	"github.com/smallbiznis/popstore/internal/config"
	obsmetrics "github.com/smallbiznis/popstore/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/popstore/internal/order/domain"
	paymentdomain "github.com/smallbiznis/popstore/internal/payment/domain"
	payoutdomain "github.com/smallbiznis/popstore/internal/payout/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultProcessTimeout = 10 * time.Second

// Outcome is how a delivery was acknowledged.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeNotFound  Outcome = "not_found"
)

// errTargetMissing marks events whose order or account is unknown here.
var errTargetMissing = errors.New("webhook_target_missing")

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Cfg         config.Config
	Repo        paymentdomain.Repository
	Verifier    paymentdomain.SignatureVerifier
	Decoder     paymentdomain.EventDecoder
	Orders      orderdomain.Repository
	Commissions commissiondomain.Service
	Payouts     payoutdomain.Service
	AuditSvc    auditdomain.Service `optional:"true"`
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
	Clock       clock.Clock         `optional:"true"`
}

type Reconciler struct {
	db             *gorm.DB
	log            *zap.Logger
	genID          *snowflake.Node
	secret         string
	processTimeout time.Duration
	repo           paymentdomain.Repository
	verifier       paymentdomain.SignatureVerifier
	decoder        paymentdomain.EventDecoder
	orders         orderdomain.Repository
	commissions    commissiondomain.Service
	payouts        payoutdomain.Service
	auditSvc       auditdomain.Service
	obsMetrics     *obsmetrics.Metrics
	clock          clock.Clock
}

func NewReconciler(p Params) *Reconciler {
	timeout := p.Cfg.Webhook.ProcessTimeout
	if timeout <= 0 {
		timeout = defaultProcessTimeout
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Reconciler{
		db:             p.DB,
		log:            p.Log.Named("payment.webhook"),
		genID:          p.GenID,
		secret:         strings.TrimSpace(p.Cfg.Stripe.WebhookSecret),
		processTimeout: timeout,
		repo:           p.Repo,
		verifier:       p.Verifier,
		decoder:        p.Decoder,
		orders:         p.Orders,
		commissions:    p.Commissions,
		payouts:        p.Payouts,
		auditSvc:       p.AuditSvc,
		obsMetrics:     p.ObsMetrics,
		clock:          clk,
	}
}

// Reconcile verifies, records and applies one webhook delivery. Nothing is
// decoded or written before the signature checks out. Returned errors other
// than ErrInvalidSignature and ErrInvalidPayload should be retried.
func (r *Reconciler) Reconcile(ctx context.Context, rawBody []byte, signatureHeader string) (Outcome, error) {
	if !r.verifier.Verify(rawBody, signatureHeader, r.secret) {
		r.log.Warn("webhook signature rejected")
		r.obsMetrics.RecordPaymentEvent(ctx, paymentdomain.ProviderStripe, "", "invalid_signature")
		return "", paymentdomain.ErrInvalidSignature
	}

	event, err := r.decoder.Decode(rawBody)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			r.obsMetrics.RecordPaymentEvent(ctx, paymentdomain.ProviderStripe, "", string(OutcomeIgnored))
			return OutcomeIgnored, nil
		}
		r.obsMetrics.RecordPaymentEvent(ctx, paymentdomain.ProviderStripe, "", "invalid_payload")
		return "", err
	}

	meta := event.Meta()
	log := r.log.With(zap.String("event_id", meta.ID), zap.String("event_type", meta.Type))

	ctx, cancel := context.WithTimeout(ctx, r.processTimeout)
	defer cancel()

	now := r.clock.Now().UTC()
	record := &paymentdomain.EventRecord{
		ID:              r.genID.Generate(),
		Provider:        paymentdomain.ProviderStripe,
		ProviderEventID: meta.ID,
		EventType:       meta.Type,
		Payload:         datatypes.JSON(rawBody),
		ReceivedAt:      now,
	}
	inserted, err := r.repo.InsertEvent(ctx, r.db, record)
	if err != nil {
		return "", err
	}
	if !inserted {
		stored, err := r.repo.FindEvent(ctx, r.db, paymentdomain.ProviderStripe, meta.ID)
		if err != nil {
			return "", err
		}
		if stored == nil {
			return "", paymentdomain.ErrInvalidEvent
		}
		if stored.ProcessedAt != nil {
			log.Info("webhook event already processed")
			r.obsMetrics.RecordPaymentEvent(ctx, paymentdomain.ProviderStripe, meta.Type, string(OutcomeDuplicate))
			return OutcomeDuplicate, nil
		}
		record = stored
	}

	if err := event.Accept(ctx, &dispatcher{r: r, log: log}); err != nil {
		if errors.Is(err, errTargetMissing) {
			r.obsMetrics.RecordPaymentEvent(ctx, paymentdomain.ProviderStripe, meta.Type, string(OutcomeNotFound))
			return OutcomeNotFound, nil
		}
		log.Error("webhook processing failed", zap.Error(err))
		r.obsMetrics.RecordPaymentEvent(ctx, paymentdomain.ProviderStripe, meta.Type, "error")
		return "", err
	}

	if err := r.repo.MarkProcessed(ctx, r.db, record.ID, r.clock.Now().UTC()); err != nil {
		return "", err
	}
	r.obsMetrics.RecordPaymentEvent(ctx, paymentdomain.ProviderStripe, meta.Type, string(OutcomeProcessed))
	return OutcomeProcessed, nil
}

// dispatcher applies each event type. It is the only Handler implementation.
type dispatcher struct {
	r   *Reconciler
	log *zap.Logger
}

var _ paymentdomain.Handler = (*dispatcher)(nil)

func (d *dispatcher) HandleCheckoutSessionCompleted(ctx context.Context, ev paymentdomain.CheckoutSessionCompleted) error {
	order, err := d.r.orders.FindBySessionID(ctx, d.r.db, ev.SessionID)
	if err != nil {
		return err
	}
	if order == nil {
		order, err = d.r.findByMetadata(ctx, ev.Metadata)
		if err != nil {
			return err
		}
	}
	if order == nil {
		d.log.Warn("order not found for checkout session", zap.String("session_id", ev.SessionID))
		return errTargetMissing
	}

	log := d.log.With(zap.String("order_id", order.ID.String()))
	now := d.r.clock.Now().UTC()
	if !ev.Paid() {
		if ev.PaymentRef != "" {
			if err := d.r.orders.SetPaymentRef(ctx, d.r.db, order.ID, ev.PaymentRef, now); err != nil {
				return err
			}
		}
		log.Info("checkout session completed without payment", zap.String("payment_status", ev.PaymentStatus))
		return nil
	}

	rows, err := d.r.orders.MarkPaid(ctx, d.r.db, order.ID, ev.PaymentRef, now)
	if err != nil {
		return err
	}
	if rows == 0 {
		log.Info("order not marked paid", zap.String("status", string(order.Status)))
		return nil
	}
	log.Info("order marked paid", zap.String("payment_ref", ev.PaymentRef))
	d.r.audit(ctx, order, "order.paid", map[string]any{"payment_ref": ev.PaymentRef, "event_id": ev.EventMeta.ID})
	return nil
}

func (d *dispatcher) HandlePaymentSucceeded(ctx context.Context, ev paymentdomain.PaymentSucceeded) error {
	order, err := d.r.findByPaymentRef(ctx, ev.PaymentRef, ev.Metadata)
	if err != nil {
		return err
	}
	if order == nil {
		d.log.Warn("order not found for payment", zap.String("payment_ref", ev.PaymentRef))
		return errTargetMissing
	}

	log := d.log.With(zap.String("order_id", order.ID.String()))
	if order.CommissionProcessed {
		log.Info("commission already processed for payment", zap.String("payment_ref", ev.PaymentRef))
		return nil
	}
	if ev.Amount > 0 && ev.Amount != order.TotalPrice {
		log.Warn("payment amount differs from order total",
			zap.Int64("payment_amount", ev.Amount),
			zap.Int64("order_total", order.TotalPrice),
		)
	}

	result, err := d.r.commissions.Settle(ctx, order.ID)
	if err != nil {
		if errors.Is(err, commissiondomain.ErrOrderRefunded) {
			log.Warn("payment succeeded for refunded order")
			return nil
		}
		return err
	}
	if result.AlreadyProcessed {
		log.Info("commission already processed for payment", zap.String("payment_ref", ev.PaymentRef))
	}
	return nil
}

func (d *dispatcher) HandlePaymentFailed(ctx context.Context, ev paymentdomain.PaymentFailed) error {
	order, err := d.r.findByPaymentRef(ctx, ev.PaymentRef, ev.Metadata)
	if err != nil {
		return err
	}
	if order == nil {
		d.log.Warn("order not found for failed payment", zap.String("payment_ref", ev.PaymentRef))
		return errTargetMissing
	}

	log := d.log.With(zap.String("order_id", order.ID.String()))
	if order.CommissionProcessed {
		log.Warn("payment failure after settlement ignored", zap.String("payment_ref", ev.PaymentRef))
		return nil
	}

	rows, err := d.r.orders.MarkCancelled(ctx, d.r.db, order.ID, d.r.clock.Now().UTC())
	if err != nil {
		return err
	}
	if rows == 0 {
		log.Info("order not cancelled", zap.String("status", string(order.Status)))
		return nil
	}
	log.Info("order cancelled after payment failure", zap.String("reason", ev.FailureMessage))
	d.r.audit(ctx, order, "order.cancelled", map[string]any{"payment_ref": ev.PaymentRef, "reason": ev.FailureMessage})
	return nil
}

func (d *dispatcher) HandleAccountUpdated(ctx context.Context, ev paymentdomain.AccountUpdated) error {
	_, err := d.r.payouts.ApplyAccountUpdate(ctx, payoutdomain.AccountUpdate{
		ProcessorAccountID: ev.AccountID,
		ChargesEnabled:     ev.ChargesEnabled,
		PayoutsEnabled:     ev.PayoutsEnabled,
		DisabledReason:     ev.DisabledReason,
	})
	if err != nil {
		if errors.Is(err, payoutdomain.ErrNotFound) {
			d.log.Warn("payout account not found", zap.String("processor_account_id", ev.AccountID))
			return errTargetMissing
		}
		return err
	}
	return nil
}

// findByPaymentRef falls back to the order_id metadata for intents that
// succeed before the checkout session reports its payment reference.
func (r *Reconciler) findByPaymentRef(ctx context.Context, paymentRef string, metadata paymentdomain.OrderMetadata) (*orderdomain.Order, error) {
	order, err := r.orders.FindByPaymentRef(ctx, r.db, paymentRef)
	if err != nil || order != nil {
		return order, err
	}
	order, err = r.findByMetadata(ctx, metadata)
	if err != nil || order == nil {
		return nil, err
	}
	if order.ExternalPaymentRef == nil && strings.TrimSpace(paymentRef) != "" {
		if err := r.orders.SetPaymentRef(ctx, r.db, order.ID, paymentRef, r.clock.Now().UTC()); err != nil {
			return nil, err
		}
		ref := paymentRef
		order.ExternalPaymentRef = &ref
	}
	return order, nil
}

func (r *Reconciler) findByMetadata(ctx context.Context, metadata paymentdomain.OrderMetadata) (*orderdomain.Order, error) {
	raw := strings.TrimSpace(metadata.OrderID)
	if raw == "" {
		return nil, nil
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id == 0 {
		return nil, nil
	}
	return r.orders.FindByID(ctx, r.db, id)
}

func (r *Reconciler) audit(ctx context.Context, order *orderdomain.Order, action string, metadata map[string]any) {
	if r.auditSvc == nil {
		return
	}
	storeID := order.StoreID
	targetID := order.ID.String()
	if err := r.auditSvc.AuditLog(ctx, &storeID, string(auditdomain.ActorTypeProcessor), nil, action, "order", &targetID, metadata); err != nil {
		r.log.Warn("failed to write webhook audit log", zap.String("action", action), zap.Error(err))
	}
}
