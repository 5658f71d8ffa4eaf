package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditrepo "github.com/smallbiznis/popstore/internal/audit/repository"
	auditservice "github.com/smallbiznis/popstore/internal/audit/service"
	checkoutdomain "github.com/smallbiznis/popstore/internal/checkout/domain"
	"github.com/smallbiznis/popstore/internal/config"
	orderdomain "github.com/smallbiznis/popstore/internal/order/domain"
	orderrepo "github.com/smallbiznis/popstore/internal/order/repository"
	paymentdomain "github.com/smallbiznis/popstore/internal/payment/domain"
	payoutrepo "github.com/smallbiznis/popstore/internal/payout/repository"
	payoutservice "github.com/smallbiznis/popstore/internal/payout/service"
	planrepo "github.com/smallbiznis/popstore/internal/plan/repository"
	planservice "github.com/smallbiznis/popstore/internal/plan/service"
	storerepo "github.com/smallbiznis/popstore/internal/store/repository"
	"github.com/smallbiznis/popstore/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeSessions struct {
	mu       sync.Mutex
	requests []paymentdomain.SessionRequest
	err      error
}

func (f *fakeSessions) CreateSession(_ context.Context, req paymentdomain.SessionRequest) (paymentdomain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return paymentdomain.Session{}, f.err
	}
	return paymentdomain.Session{
		ID:  "cs_test_" + req.OrderID.String(),
		URL: "https://checkout.example.com/pay/" + req.OrderID.String(),
	}, nil
}

type harness struct {
	db       *gorm.DB
	node     *snowflake.Node
	fx       testutil.Fixture
	sessions *fakeSessions
	svc      checkoutdomain.Service
}

func newHarness(t *testing.T, opts testutil.FixtureOptions) *harness {
	t.Helper()
	db := testutil.OpenDB(t)
	node := testutil.Node(t)
	fixture := testutil.Seed(t, db, node, opts)
	sessions := &fakeSessions{}

	svc := NewService(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Cfg:      config.Config{BaseURL: "https://popstore.example.com/", Checkout: config.CheckoutLimits{DBTimeout: 2 * time.Second}},
		Checkout: config.NewStaticCheckoutConfigHolder(config.DefaultCheckoutConfig()),
		Stores:   storerepo.Provide(),
		Orders:   orderrepo.Provide(),
		Plans:    planservice.NewService(planservice.Params{DB: db, Log: zap.NewNop(), GenID: node, Repo: planrepo.Provide()}),
		Payouts:  payoutservice.NewService(payoutservice.Params{DB: db, Log: zap.NewNop(), Repo: payoutrepo.Provide()}),
		Sessions: sessions,
		AuditSvc: auditservice.NewService(auditservice.Params{DB: db, Log: zap.NewNop(), GenID: node, Repo: auditrepo.Provide()}),
	})
	return &harness{db: db, node: node, fx: fixture, sessions: sessions, svc: svc}
}

func (h *harness) request() checkoutdomain.Request {
	return checkoutdomain.Request{
		ProductID:  h.fx.ProductID.String(),
		Quantity:   2,
		BuyerEmail: "Buyer@Example.com",
	}
}

func TestInitiateCreatesPendingOrderAndSession(t *testing.T) {
	h := newHarness(t, testutil.DefaultFixtureOptions())

	result, err := h.svc.Initiate(context.Background(), h.request())
	require.NoError(t, err)
	require.Equal(t, int64(10000), result.TotalAmount)
	require.Equal(t, int64(1000), result.CommissionAmount)
	require.Equal(t, int64(9000), result.NetAmount)
	require.Equal(t, "cs_test_"+result.OrderID, result.SessionID)
	require.NotEmpty(t, result.SessionURL)

	require.Len(t, h.sessions.requests, 1)
	req := h.sessions.requests[0]
	require.Equal(t, int64(1000), req.ApplicationFeeAmount)
	require.Equal(t, h.fx.AccountID, req.DestinationAccount)
	require.Equal(t, int64(5000), req.UnitAmount)
	require.Equal(t, 2, req.Quantity)
	require.Equal(t, "https://popstore.example.com/checkout/cancel", req.CancelURL)
	require.Equal(t, result.OrderID, req.Metadata[paymentdomain.MetadataOrderID])
	require.Equal(t, h.fx.StoreID.String(), req.Metadata[paymentdomain.MetadataStoreID])
	require.Equal(t, "1000", req.Metadata[paymentdomain.MetadataCommissionAmount])

	orderID, err := snowflake.ParseString(result.OrderID)
	require.NoError(t, err)
	order, err := orderrepo.Provide().FindByID(context.Background(), h.db, orderID)
	require.NoError(t, err)
	require.NotNil(t, order)
	require.Equal(t, orderdomain.StatusPending, order.Status)
	require.Equal(t, "buyer@example.com", order.BuyerEmail)
	require.Equal(t, int64(10000), order.TotalPrice)
	require.NotNil(t, order.ExternalSessionID)
	require.Equal(t, result.SessionID, *order.ExternalSessionID)
	require.NotNil(t, order.ApplicationFeeAmount)
	require.Equal(t, int64(1000), *order.ApplicationFeeAmount)
	require.True(t, order.CommissionPercentage.Valid)
	require.Equal(t, "10", order.CommissionPercentage.Decimal.String())
	require.False(t, order.CommissionProcessed)

	require.Equal(t, int64(1), testutil.CountRows(t, h.db, "audit_logs"))
}

func TestInitiateDefaultsQuantity(t *testing.T) {
	h := newHarness(t, testutil.DefaultFixtureOptions())
	req := h.request()
	req.Quantity = 0

	result, err := h.svc.Initiate(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, int64(5000), result.TotalAmount)
	require.Equal(t, int64(500), result.CommissionAmount)
}

func TestInitiateValidation(t *testing.T) {
	h := newHarness(t, testutil.DefaultFixtureOptions())

	cases := []struct {
		name   string
		mutate func(*checkoutdomain.Request)
		want   error
	}{
		{"empty product", func(r *checkoutdomain.Request) { r.ProductID = "" }, checkoutdomain.ErrInvalidProductID},
		{"non numeric product", func(r *checkoutdomain.Request) { r.ProductID = "abc" }, checkoutdomain.ErrInvalidProductID},
		{"missing email", func(r *checkoutdomain.Request) { r.BuyerEmail = "" }, checkoutdomain.ErrInvalidBuyerEmail},
		{"email without domain", func(r *checkoutdomain.Request) { r.BuyerEmail = "buyer@" }, checkoutdomain.ErrInvalidBuyerEmail},
		{"email with display name", func(r *checkoutdomain.Request) { r.BuyerEmail = "Bob <bob@example.com>" }, checkoutdomain.ErrInvalidBuyerEmail},
		{"negative quantity", func(r *checkoutdomain.Request) { r.Quantity = -1 }, checkoutdomain.ErrInvalidQuantity},
		{"quantity above max", func(r *checkoutdomain.Request) { r.Quantity = 11 }, checkoutdomain.ErrInvalidQuantity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := h.request()
			tc.mutate(&req)
			_, err := h.svc.Initiate(context.Background(), req)
			require.ErrorIs(t, err, tc.want)
			require.True(t, checkoutdomain.IsValidation(err))
		})
	}
	require.Equal(t, int64(0), testutil.CountRows(t, h.db, "orders"))
	require.Empty(t, h.sessions.requests)
}

func TestInitiateRejectsUnknownProduct(t *testing.T) {
	h := newHarness(t, testutil.DefaultFixtureOptions())
	req := h.request()
	req.ProductID = h.node.Generate().String()

	_, err := h.svc.Initiate(context.Background(), req)
	require.ErrorIs(t, err, checkoutdomain.ErrProductNotFound)
	require.Equal(t, int64(0), testutil.CountRows(t, h.db, "orders"))
}

func TestInitiateRejectsInactiveStore(t *testing.T) {
	opts := testutil.DefaultFixtureOptions()
	opts.StoreActive = false
	h := newHarness(t, opts)

	_, err := h.svc.Initiate(context.Background(), h.request())
	require.ErrorIs(t, err, checkoutdomain.ErrStoreInactive)
	require.Equal(t, int64(0), testutil.CountRows(t, h.db, "orders"))
	require.Empty(t, h.sessions.requests)
}

func TestInitiateRejectsExpiredStore(t *testing.T) {
	opts := testutil.DefaultFixtureOptions()
	opts.StoreExpiresAt = time.Now().UTC().Add(-time.Minute)
	h := newHarness(t, opts)

	_, err := h.svc.Initiate(context.Background(), h.request())
	require.ErrorIs(t, err, checkoutdomain.ErrStoreExpired)
	require.Equal(t, int64(0), testutil.CountRows(t, h.db, "orders"))
}

func TestInitiateRequiresPayoutAccount(t *testing.T) {
	for _, status := range []string{"", "pending", "restricted"} {
		t.Run("status="+status, func(t *testing.T) {
			opts := testutil.DefaultFixtureOptions()
			opts.PayoutStatus = status
			h := newHarness(t, opts)

			_, err := h.svc.Initiate(context.Background(), h.request())
			require.ErrorIs(t, err, checkoutdomain.ErrPayoutNotConfigured)
			require.Equal(t, int64(0), testutil.CountRows(t, h.db, "orders"))
			require.Empty(t, h.sessions.requests)
		})
	}
}

func TestInitiateSessionFailureLeavesPendingOrder(t *testing.T) {
	h := newHarness(t, testutil.DefaultFixtureOptions())
	h.sessions.err = errors.New("connection reset")

	_, err := h.svc.Initiate(context.Background(), h.request())
	require.ErrorIs(t, err, checkoutdomain.ErrSessionFailed)

	var orders []orderdomain.Order
	require.NoError(t, h.db.Raw(`SELECT * FROM orders`).Scan(&orders).Error)
	require.Len(t, orders, 1)
	require.Equal(t, orderdomain.StatusPending, orders[0].Status)
	require.Nil(t, orders[0].ExternalSessionID)
	require.Equal(t, int64(0), testutil.CountRows(t, h.db, "audit_logs"))
}

func TestInitiateRoundsCommissionHalfUp(t *testing.T) {
	opts := testutil.DefaultFixtureOptions()
	opts.CommissionPercentage = "12.5"
	opts.ProductPrice = 1004
	h := newHarness(t, opts)
	req := h.request()
	req.Quantity = 1

	// 1004 * 12.5% = 125.5
	result, err := h.svc.Initiate(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, int64(126), result.CommissionAmount)
	require.Equal(t, int64(878), result.NetAmount)
}
