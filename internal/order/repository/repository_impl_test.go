package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/popstore/internal/order/domain"
	"github.com/smallbiznis/popstore/internal/testutil"
	"github.com/stretchr/testify/require"
)

func TestInsertAndFind(t *testing.T) {
	db := testutil.OpenDB(t)
	node := testutil.Node(t)
	fx := testutil.Seed(t, db, node, testutil.DefaultFixtureOptions())
	r := Provide()
	ctx := context.Background()

	fee := int64(1000)
	now := time.Now().UTC()
	order := &domain.Order{
		ID:                   node.Generate(),
		StoreID:              fx.StoreID,
		ProductID:            fx.ProductID,
		BuyerEmail:           "buyer@example.com",
		Quantity:             2,
		UnitPrice:            5000,
		TotalPrice:           10000,
		Currency:             "usd",
		CommissionPercentage: decimal.NewNullDecimal(decimal.RequireFromString("10")),
		ApplicationFeeAmount: &fee,
		Status:               domain.StatusPending,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	require.NoError(t, r.Insert(ctx, db, order))
	require.NoError(t, r.SetSessionID(ctx, db, order.ID, "cs_test_1", now))

	got, err := r.FindBySessionID(ctx, db, "cs_test_1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, order.ID, got.ID)
	require.Equal(t, int64(10000), got.TotalPrice)
	require.True(t, got.CommissionPercentage.Valid)
	require.True(t, got.CommissionPercentage.Decimal.Equal(decimal.NewFromInt(10)))
	require.NotNil(t, got.ApplicationFeeAmount)
	require.Equal(t, int64(1000), *got.ApplicationFeeAmount)
	require.Nil(t, got.ExternalPaymentRef)
	require.Nil(t, got.CommissionID)

	missing, err := r.FindBySessionID(ctx, db, "cs_missing")
	require.NoError(t, err)
	require.Nil(t, missing)

	empty, err := r.FindByPaymentRef(ctx, db, "  ")
	require.NoError(t, err)
	require.Nil(t, empty)
}

func TestMarkPaidKeepsExistingPaymentRef(t *testing.T) {
	db := testutil.OpenDB(t)
	node := testutil.Node(t)
	fx := testutil.Seed(t, db, node, testutil.DefaultFixtureOptions())
	r := Provide()
	ctx := context.Background()

	id := testutil.InsertOrder(t, db, node, fx, 5000, "pending", "pi_first")

	rows, err := r.MarkPaid(ctx, db, id, "pi_second", time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, int64(1), rows)

	got, err := r.FindByPaymentRef(ctx, db, "pi_first")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, domain.StatusPaid, got.Status)
}

func TestMarkSettledOnlyOnce(t *testing.T) {
	db := testutil.OpenDB(t)
	node := testutil.Node(t)
	fx := testutil.Seed(t, db, node, testutil.DefaultFixtureOptions())
	r := Provide()
	ctx := context.Background()

	id := testutil.InsertOrder(t, db, node, fx, 5000, "paid", "pi_1")
	first := node.Generate()

	rows, err := r.MarkSettled(ctx, db, id, first, time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, int64(1), rows)

	rows, err = r.MarkSettled(ctx, db, id, node.Generate(), time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, int64(0), rows)

	got, err := r.FindByID(ctx, db, id)
	require.NoError(t, err)
	require.True(t, got.Settled())
	require.Equal(t, first, *got.CommissionID)
}

func TestMarkCancelledSkipsSettledOrders(t *testing.T) {
	db := testutil.OpenDB(t)
	node := testutil.Node(t)
	fx := testutil.Seed(t, db, node, testutil.DefaultFixtureOptions())
	r := Provide()
	ctx := context.Background()

	settled := testutil.InsertOrder(t, db, node, fx, 5000, "paid", "pi_settled")
	_, err := r.MarkSettled(ctx, db, settled, node.Generate(), time.Now().UTC())
	require.NoError(t, err)

	rows, err := r.MarkCancelled(ctx, db, settled, time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, int64(0), rows)

	pending := testutil.InsertOrder(t, db, node, fx, 5000, "pending", "")
	rows, err = r.MarkCancelled(ctx, db, pending, time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, int64(1), rows)

	got, err := r.FindByID(ctx, db, pending)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCancelled, got.Status)
}

func TestListUnsettled(t *testing.T) {
	db := testutil.OpenDB(t)
	node := testutil.Node(t)
	fx := testutil.Seed(t, db, node, testutil.DefaultFixtureOptions())
	r := Provide()
	ctx := context.Background()

	paid := testutil.InsertOrder(t, db, node, fx, 5000, "paid", "pi_a")
	testutil.InsertOrder(t, db, node, fx, 5000, "pending", "")
	settled := testutil.InsertOrder(t, db, node, fx, 5000, "paid", "pi_b")
	_, err := r.MarkSettled(ctx, db, settled, node.Generate(), time.Now().UTC())
	require.NoError(t, err)

	items, err := r.ListUnsettled(ctx, db, time.Now().UTC().Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, paid, items[0].ID)

	items, err = r.ListUnsettled(ctx, db, time.Now().UTC().Add(-time.Hour), 10)
	require.NoError(t, err)
	require.Empty(t, items)
}
