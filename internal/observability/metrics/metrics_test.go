package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("order_id", "123"),
		attribute.String("buyer_email", "a@b.c"),
		attribute.String("event_type", "payment_intent.succeeded"),
		attribute.String("outcome", "settled"),
	)
	require.Len(t, attrs, 2)
	keys := []attribute.Key{attrs[0].Key, attrs[1].Key}
	require.Contains(t, keys, attribute.Key("event_type"))
	require.Contains(t, keys, attribute.Key("outcome"))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordCheckoutSession(ctx, "created")
	m.RecordPaymentEvent(ctx, "stripe", "account.updated", "handled")
	m.RecordSettlement(ctx, "settled", "usd", 500)
	m.RecordCommissionDivergence(ctx)
	m.RecordLedgerEntry(ctx, "commission")
	m.RecordRateLimitDenied(ctx, "checkout", "limit")
}

func TestNoopInstruments(t *testing.T) {
	m := Noop()
	require.NotNil(t, m)
	m.RecordSettlement(context.Background(), "settled", "usd", 1500)
}
