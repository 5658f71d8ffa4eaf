package repository

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/popstore/internal/payment/domain"
	"github.com/smallbiznis/popstore/internal/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestEventLogDeduplicates(t *testing.T) {
	db := testutil.OpenDB(t)
	node := testutil.Node(t)
	r := Provide()
	ctx := context.Background()

	record := &domain.EventRecord{
		ID:              node.Generate(),
		Provider:        domain.ProviderStripe,
		ProviderEventID: "evt_1",
		EventType:       domain.EventTypePaymentIntentSucceeded,
		Payload:         datatypes.JSON(`{"id":"evt_1"}`),
		ReceivedAt:      time.Now().UTC(),
	}
	inserted, err := r.InsertEvent(ctx, db, record)
	require.NoError(t, err)
	require.True(t, inserted)

	dup := *record
	dup.ID = node.Generate()
	inserted, err = r.InsertEvent(ctx, db, &dup)
	require.NoError(t, err)
	require.False(t, inserted)

	stored, err := r.FindEvent(ctx, db, domain.ProviderStripe, "evt_1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, record.ID, stored.ID)
	require.Nil(t, stored.ProcessedAt)
	require.JSONEq(t, `{"id":"evt_1"}`, string(stored.Payload))

	require.NoError(t, r.MarkProcessed(ctx, db, stored.ID, time.Now().UTC()))
	stored, err = r.FindEvent(ctx, db, domain.ProviderStripe, "evt_1")
	require.NoError(t, err)
	require.NotNil(t, stored.ProcessedAt)

	missing, err := r.FindEvent(ctx, db, domain.ProviderStripe, "evt_missing")
	require.NoError(t, err)
	require.Nil(t, missing)
}
