package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/popstore/internal/order/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const orderColumns = `id, store_id, product_id, buyer_email, buyer_name, quantity, unit_price,
	total_price, currency, commission_percentage, application_fee_amount, external_session_id,
	external_payment_ref, status, commission_processed, commission_id, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO orders (`+orderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID,
		order.StoreID,
		order.ProductID,
		order.BuyerEmail,
		order.BuyerName,
		order.Quantity,
		order.UnitPrice,
		order.TotalPrice,
		order.Currency,
		order.CommissionPercentage,
		order.ApplicationFeeAmount,
		order.ExternalSessionID,
		order.ExternalPaymentRef,
		order.Status,
		order.CommissionProcessed,
		order.CommissionID,
		order.CreatedAt,
		order.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	return r.findOne(ctx, db, `id = ?`, id)
}

func (r *repo) FindBySessionID(ctx context.Context, db *gorm.DB, sessionID string) (*domain.Order, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, nil
	}
	return r.findOne(ctx, db, `external_session_id = ?`, sessionID)
}

func (r *repo) FindByPaymentRef(ctx context.Context, db *gorm.DB, paymentRef string) (*domain.Order, error) {
	paymentRef = strings.TrimSpace(paymentRef)
	if paymentRef == "" {
		return nil, nil
	}
	return r.findOne(ctx, db, `external_payment_ref = ?`, paymentRef)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, where string, arg any) (*domain.Order, error) {
	var item domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT `+orderColumns+`
		 FROM orders
		 WHERE `+where+`
		 LIMIT 1`,
		arg,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) SetSessionID(ctx context.Context, db *gorm.DB, id snowflake.ID, sessionID string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET external_session_id = ?, updated_at = ?
		 WHERE id = ?`,
		sessionID,
		now,
		id,
	).Error
}

func (r *repo) SetPaymentRef(ctx context.Context, db *gorm.DB, id snowflake.ID, paymentRef string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET external_payment_ref = ?, updated_at = ?
		 WHERE id = ? AND external_payment_ref IS NULL`,
		paymentRef,
		now,
		id,
	).Error
}

// MarkPaid never touches refunded orders and keeps an existing payment reference.
func (r *repo) MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, paymentRef string, now time.Time) (int64, error) {
	var ref any
	if strings.TrimSpace(paymentRef) != "" {
		ref = paymentRef
	}
	res := db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET status = ?, external_payment_ref = COALESCE(external_payment_ref, ?), updated_at = ?
		 WHERE id = ? AND status <> ?`,
		domain.StatusPaid,
		ref,
		now,
		id,
		domain.StatusRefunded,
	)
	return res.RowsAffected, res.Error
}

// MarkCancelled is a no-op for settled or refunded orders.
func (r *repo) MarkCancelled(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET status = ?, updated_at = ?
		 WHERE id = ? AND commission_processed = ? AND status <> ?`,
		domain.StatusCancelled,
		now,
		id,
		false,
		domain.StatusRefunded,
	)
	return res.RowsAffected, res.Error
}

// MarkSettled writes commission_id exactly once.
func (r *repo) MarkSettled(ctx context.Context, db *gorm.DB, id snowflake.ID, commissionID snowflake.ID, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET commission_processed = ?, commission_id = ?, status = ?, updated_at = ?
		 WHERE id = ? AND commission_id IS NULL`,
		true,
		commissionID,
		domain.StatusPaid,
		now,
		id,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) ListUnsettled(ctx context.Context, db *gorm.DB, paidBefore time.Time, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var items []domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT `+orderColumns+`
		 FROM orders
		 WHERE status = ? AND commission_processed = ? AND updated_at < ?
		 ORDER BY updated_at ASC, id ASC
		 LIMIT ?`,
		domain.StatusPaid,
		false,
		paidBefore.UTC(),
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
