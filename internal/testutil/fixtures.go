package testutil

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Fixture describes one seller with a plan, a store, a product and a payout account.
type Fixture struct {
	PlanID    snowflake.ID
	OwnerID   snowflake.ID
	StoreID   snowflake.ID
	ProductID snowflake.ID
	AccountID string
}

type FixtureOptions struct {
	CommissionPercentage string
	ProductPrice         int64
	StoreActive          bool
	StoreExpiresAt       time.Time
	PayoutStatus         string
}

func DefaultFixtureOptions() FixtureOptions {
	return FixtureOptions{
		CommissionPercentage: "10",
		ProductPrice:         5000,
		StoreActive:          true,
		StoreExpiresAt:       time.Now().UTC().Add(48 * time.Hour),
		PayoutStatus:         "active",
	}
}

// Seed inserts a complete seller fixture.
func Seed(t testing.TB, db *gorm.DB, node *snowflake.Node, opts FixtureOptions) Fixture {
	t.Helper()

	fx := Fixture{
		PlanID:    node.Generate(),
		OwnerID:   node.Generate(),
		StoreID:   node.Generate(),
		ProductID: node.Generate(),
	}
	fx.AccountID = "acct_" + fx.OwnerID.String()
	now := time.Now().UTC()

	mustExec(t, db, `INSERT INTO pricing_plans (id, code, title, duration_hours, base_price, discount_percentage, final_price, commission_percentage, currency, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fx.PlanID, "plan-"+fx.PlanID.String(), "Fixture plan", 48, 2000, "0", 2000, opts.CommissionPercentage, "usd", true, now)
	mustExec(t, db, `INSERT INTO stores (id, owner_id, plan_id, name, is_active, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		fx.StoreID, fx.OwnerID, fx.PlanID, "Fixture store", opts.StoreActive, opts.StoreExpiresAt.UTC(), now)
	mustExec(t, db, `INSERT INTO products (id, store_id, name, price, currency, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		fx.ProductID, fx.StoreID, "Fixture product", opts.ProductPrice, "usd", true, now)
	if opts.PayoutStatus != "" {
		active := opts.PayoutStatus == "active"
		mustExec(t, db, `INSERT INTO payout_accounts (owner_id, processor_account_id, status, charges_enabled, payouts_enabled, onboarding_complete, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			fx.OwnerID, fx.AccountID, opts.PayoutStatus, active, active, active, now)
	}
	return fx
}

// InsertOrder writes an order row directly, bypassing checkout.
func InsertOrder(t testing.TB, db *gorm.DB, node *snowflake.Node, fx Fixture, total int64, status string, paymentRef string) snowflake.ID {
	t.Helper()
	id := node.Generate()
	now := time.Now().UTC()
	var ref any
	if paymentRef != "" {
		ref = paymentRef
	}
	mustExec(t, db, `INSERT INTO orders (id, store_id, product_id, buyer_email, quantity, unit_price, total_price, currency, external_session_id, external_payment_ref, status, commission_processed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, fx.StoreID, fx.ProductID, "buyer@example.com", 1, total, total, "usd", "cs_"+id.String(), ref, status, false, now, now)
	return id
}

func MustExec(t testing.TB, db *gorm.DB, sql string, args ...any) {
	t.Helper()
	mustExec(t, db, sql, args...)
}

func CountRows(t testing.TB, db *gorm.DB, table string) int64 {
	t.Helper()
	var count int64
	if err := db.Table(table).Count(&count).Error; err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return count
}

func mustExec(t testing.TB, db *gorm.DB, sql string, args ...any) {
	t.Helper()
	if err := db.Exec(sql, args...).Error; err != nil {
		t.Fatalf("exec fixture: %v", err)
	}
}
