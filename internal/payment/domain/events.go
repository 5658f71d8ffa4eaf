package domain

import (
	"context"
	"time"
)

const (
	EventTypeCheckoutSessionCompleted = "checkout.session.completed"
	EventTypePaymentIntentSucceeded   = "payment_intent.succeeded"
	EventTypePaymentIntentFailed      = "payment_intent.payment_failed"
	EventTypeAccountUpdated           = "account.updated"
)

// Event is implemented only by the event types in this file. Dispatch goes
// through Accept so adding a type breaks every Handler until it is handled.
type Event interface {
	Meta() EventMeta
	Accept(ctx context.Context, h Handler) error
	sealed()
}

type Handler interface {
	HandleCheckoutSessionCompleted(ctx context.Context, ev CheckoutSessionCompleted) error
	HandlePaymentSucceeded(ctx context.Context, ev PaymentSucceeded) error
	HandlePaymentFailed(ctx context.Context, ev PaymentFailed) error
	HandleAccountUpdated(ctx context.Context, ev AccountUpdated) error
}

type EventMeta struct {
	ID      string
	Type    string
	Created time.Time
}

// Metadata keys set on the checkout session and its payment intent.
const (
	MetadataOrderID          = "order_id"
	MetadataStoreID          = "store_id"
	MetadataProductID        = "product_id"
	MetadataCommissionAmount = "commission_amount"
)

// OrderMetadata is what checkout attaches to the session and payment intent.
type OrderMetadata struct {
	OrderID          string
	StoreID          string
	ProductID        string
	CommissionAmount string
}

type CheckoutSessionCompleted struct {
	EventMeta     EventMeta
	SessionID     string
	PaymentRef    string
	PaymentStatus string
	Metadata      OrderMetadata
}

func (e CheckoutSessionCompleted) Meta() EventMeta { return e.EventMeta }
func (e CheckoutSessionCompleted) Accept(ctx context.Context, h Handler) error {
	return h.HandleCheckoutSessionCompleted(ctx, e)
}
func (CheckoutSessionCompleted) sealed() {}

// Paid reports whether funds were captured when the session completed.
// Delayed payment methods complete the session before they settle.
func (e CheckoutSessionCompleted) Paid() bool {
	return e.PaymentStatus == "" || e.PaymentStatus == "paid" || e.PaymentStatus == "no_payment_required"
}

type PaymentSucceeded struct {
	EventMeta  EventMeta
	PaymentRef string
	Amount     int64
	Currency   string
	Metadata   OrderMetadata
}

func (e PaymentSucceeded) Meta() EventMeta { return e.EventMeta }
func (e PaymentSucceeded) Accept(ctx context.Context, h Handler) error {
	return h.HandlePaymentSucceeded(ctx, e)
}
func (PaymentSucceeded) sealed() {}

type PaymentFailed struct {
	EventMeta      EventMeta
	PaymentRef     string
	FailureMessage string
	Metadata       OrderMetadata
}

func (e PaymentFailed) Meta() EventMeta { return e.EventMeta }
func (e PaymentFailed) Accept(ctx context.Context, h Handler) error {
	return h.HandlePaymentFailed(ctx, e)
}
func (PaymentFailed) sealed() {}

type AccountUpdated struct {
	EventMeta      EventMeta
	AccountID      string
	ChargesEnabled bool
	PayoutsEnabled bool
	DisabledReason string
}

func (e AccountUpdated) Meta() EventMeta { return e.EventMeta }
func (e AccountUpdated) Accept(ctx context.Context, h Handler) error {
	return h.HandleAccountUpdated(ctx, e)
}
func (AccountUpdated) sealed() {}
