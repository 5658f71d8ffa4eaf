package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/popstore/internal/commission/commissiontest"
	commissiondomain "github.com/smallbiznis/popstore/internal/commission/domain"
	orderdomain "github.com/smallbiznis/popstore/internal/order/domain"
	"github.com/smallbiznis/popstore/internal/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func loadOrder(t *testing.T, db *gorm.DB, id any) *orderdomain.Order {
	t.Helper()
	var order orderdomain.Order
	require.NoError(t, db.Raw(`SELECT * FROM orders WHERE id = ?`, id).Scan(&order).Error)
	return &order
}

func TestSettleBooksCommissionOnce(t *testing.T) {
	db := testutil.OpenDB(t)
	node := testutil.Node(t)
	fx := testutil.Seed(t, db, node, testutil.DefaultFixtureOptions())
	orderID := testutil.InsertOrder(t, db, node, fx, 5000, "paid", "pi_o1")
	svc := commissiontest.NewService(db, node)

	result, err := svc.Settle(context.Background(), orderID)
	require.NoError(t, err)
	require.False(t, result.AlreadyProcessed)
	require.False(t, result.Divergent)
	require.Equal(t, int64(500), result.Commission.CommissionAmount)
	require.Equal(t, int64(4500), result.Commission.NetAmount)
	require.Equal(t, commissiondomain.StatusCompleted, result.Commission.Status)
	require.Equal(t, fx.PlanID, result.Commission.PlanID)
	require.Equal(t, fx.OwnerID, result.Commission.StoreOwnerID)

	order := loadOrder(t, db, orderID)
	require.True(t, order.CommissionProcessed)
	require.NotNil(t, order.CommissionID)
	require.Equal(t, result.Commission.ID, *order.CommissionID)
	require.Equal(t, orderdomain.StatusPaid, order.Status)

	again, err := svc.Settle(context.Background(), orderID)
	require.NoError(t, err)
	require.True(t, again.AlreadyProcessed)
	require.Equal(t, result.Commission.ID, again.Commission.ID)

	require.Equal(t, int64(1), testutil.CountRows(t, db, "commissions"))
	require.Equal(t, int64(1), testutil.CountRows(t, db, "ledger_entries"))
	require.Equal(t, int64(3), testutil.CountRows(t, db, "ledger_entry_lines"))
	require.Equal(t, int64(1), testutil.CountRows(t, db, "audit_logs"))
}

func TestSettleConcurrentDeliveries(t *testing.T) {
	db := testutil.OpenDB(t)
	node := testutil.Node(t)
	fx := testutil.Seed(t, db, node, testutil.DefaultFixtureOptions())
	orderID := testutil.InsertOrder(t, db, node, fx, 10000, "paid", "pi_race")
	svc := commissiontest.NewService(db, node)

	const workers = 6
	var wg sync.WaitGroup
	results := make(chan *commissiondomain.SettleResult, workers)
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Settle(context.Background(), orderID)
			if err != nil {
				errs <- err
				return
			}
			results <- res
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	fresh := 0
	for res := range results {
		if !res.AlreadyProcessed {
			fresh++
		}
	}
	require.Equal(t, 1, fresh)
	require.Equal(t, int64(1), testutil.CountRows(t, db, "commissions"))
	require.Equal(t, int64(1), testutil.CountRows(t, db, "ledger_entries"))
}

func TestSettlePrefersOrderSnapshot(t *testing.T) {
	db := testutil.OpenDB(t)
	node := testutil.Node(t)
	fx := testutil.Seed(t, db, node, testutil.DefaultFixtureOptions())
	orderID := testutil.InsertOrder(t, db, node, fx, 10000, "paid", "pi_snap")
	testutil.MustExec(t, db, `UPDATE orders SET commission_percentage = ?, application_fee_amount = ? WHERE id = ?`, "15", 1500, orderID)
	svc := commissiontest.NewService(db, node)

	result, err := svc.Settle(context.Background(), orderID)
	require.NoError(t, err)
	require.True(t, result.Divergent)
	require.Equal(t, int64(1500), result.Commission.CommissionAmount)
	require.Equal(t, int64(8500), result.Commission.NetAmount)
	require.True(t, result.Commission.CommissionPercentage.Equal(decimal.NewFromInt(15)))
}

func TestSettleUsesChargedFee(t *testing.T) {
	db := testutil.OpenDB(t)
	node := testutil.Node(t)
	fx := testutil.Seed(t, db, node, testutil.DefaultFixtureOptions())
	orderID := testutil.InsertOrder(t, db, node, fx, 5000, "paid", "pi_fee")
	testutil.MustExec(t, db, `UPDATE orders SET commission_percentage = ?, application_fee_amount = ? WHERE id = ?`, "10", 400, orderID)
	svc := commissiontest.NewService(db, node)

	result, err := svc.Settle(context.Background(), orderID)
	require.NoError(t, err)
	require.True(t, result.Divergent)
	require.Equal(t, int64(400), result.Commission.CommissionAmount)
	require.Equal(t, int64(4600), result.Commission.NetAmount)
}

func TestSettleRepairsOrderFlag(t *testing.T) {
	db := testutil.OpenDB(t)
	node := testutil.Node(t)
	fx := testutil.Seed(t, db, node, testutil.DefaultFixtureOptions())
	orderID := testutil.InsertOrder(t, db, node, fx, 5000, "paid", "pi_repair")
	existingID := node.Generate()
	testutil.MustExec(t, db, `INSERT INTO commissions (id, order_id, store_id, store_owner_id, plan_id, gross_amount, commission_percentage, commission_amount, net_amount, currency, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		existingID, orderID, fx.StoreID, fx.OwnerID, fx.PlanID, 5000, "10", 500, 4500, "usd", "completed", time.Now().UTC())
	svc := commissiontest.NewService(db, node)

	result, err := svc.Settle(context.Background(), orderID)
	require.NoError(t, err)
	require.True(t, result.AlreadyProcessed)
	require.Equal(t, existingID, result.Commission.ID)

	order := loadOrder(t, db, orderID)
	require.True(t, order.CommissionProcessed)
	require.Equal(t, existingID, *order.CommissionID)
	require.Equal(t, int64(0), testutil.CountRows(t, db, "ledger_entries"))
}

func TestSettleErrors(t *testing.T) {
	db := testutil.OpenDB(t)
	node := testutil.Node(t)
	fx := testutil.Seed(t, db, node, testutil.DefaultFixtureOptions())
	svc := commissiontest.NewService(db, node)

	_, err := svc.Settle(context.Background(), node.Generate())
	require.ErrorIs(t, err, commissiondomain.ErrOrderNotFound)

	refunded := testutil.InsertOrder(t, db, node, fx, 5000, "refunded", "pi_refunded")
	_, err = svc.Settle(context.Background(), refunded)
	require.ErrorIs(t, err, commissiondomain.ErrOrderRefunded)

	orphan := testutil.InsertOrder(t, db, node, fx, 5000, "paid", "pi_orphan")
	testutil.MustExec(t, db, `UPDATE orders SET store_id = ? WHERE id = ?`, node.Generate(), orphan)
	_, err = svc.Settle(context.Background(), orphan)
	require.ErrorIs(t, err, commissiondomain.ErrStoreNotFound)

	require.Equal(t, int64(0), testutil.CountRows(t, db, "commissions"))
}

func TestAnalyticsScopesToOwner(t *testing.T) {
	db := testutil.OpenDB(t)
	node := testutil.Node(t)
	mine := testutil.Seed(t, db, node, testutil.DefaultFixtureOptions())
	opts := testutil.DefaultFixtureOptions()
	opts.CommissionPercentage = "20"
	theirs := testutil.Seed(t, db, node, opts)
	svc := commissiontest.NewService(db, node)
	ctx := context.Background()

	for _, total := range []int64{5000, 3000} {
		id := testutil.InsertOrder(t, db, node, mine, total, "paid", "")
		_, err := svc.Settle(ctx, id)
		require.NoError(t, err)
	}
	other := testutil.InsertOrder(t, db, node, theirs, 10000, "paid", "")
	_, err := svc.Settle(ctx, other)
	require.NoError(t, err)

	owner := mine.OwnerID
	report, err := svc.Analytics(ctx, commissiondomain.AnalyticsQuery{OwnerID: &owner})
	require.NoError(t, err)
	require.Equal(t, 30, report.Period)
	require.Equal(t, int64(2), report.Total.Count)
	require.Equal(t, int64(800), report.Total.TotalCommissions)
	require.Equal(t, int64(8000), report.Total.TotalGross)
	require.Equal(t, int64(7200), report.Total.TotalNet)
	require.True(t, report.Total.AvgCommissionRate.Equal(decimal.NewFromInt(10)))
	require.Len(t, report.Daily, 1)
	require.Len(t, report.Recent, 2)
	require.Equal(t, []commissiondomain.StatusTotal{{Status: commissiondomain.StatusCompleted, Count: 2, Amount: 800}}, report.Status)

	all, err := svc.Analytics(ctx, commissiondomain.AnalyticsQuery{PeriodDays: 7})
	require.NoError(t, err)
	require.Equal(t, int64(3), all.Total.Count)
	require.Equal(t, int64(2800), all.Total.TotalCommissions)

	_, err = svc.Analytics(ctx, commissiondomain.AnalyticsQuery{PeriodDays: -1})
	require.ErrorIs(t, err, commissiondomain.ErrInvalidPeriod)
}
