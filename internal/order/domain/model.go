package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
	StatusRefunded  Status = "refunded"
)

// Order is one checkout attempt. CommissionPercentage and ApplicationFeeAmount
// record what was sent to the processor when the session was created.
type Order struct {
	ID                   snowflake.ID        `json:"id" gorm:"primaryKey"`
	StoreID              snowflake.ID        `json:"store_id" gorm:"not null;index"`
	ProductID            snowflake.ID        `json:"product_id" gorm:"not null"`
	BuyerEmail           string              `json:"buyer_email" gorm:"type:varchar(320);not null"`
	BuyerName            *string             `json:"buyer_name,omitempty"`
	Quantity             int                 `json:"quantity" gorm:"not null"`
	UnitPrice            int64               `json:"unit_price" gorm:"not null"`
	TotalPrice           int64               `json:"total_price" gorm:"not null"`
	Currency             string              `json:"currency" gorm:"type:varchar(8);not null"`
	CommissionPercentage decimal.NullDecimal `json:"commission_percentage" gorm:"type:numeric(5,2)"`
	ApplicationFeeAmount *int64              `json:"application_fee_amount,omitempty"`
	ExternalSessionID    *string             `json:"external_session_id,omitempty" gorm:"index"`
	ExternalPaymentRef   *string             `json:"external_payment_ref,omitempty" gorm:"index"`
	Status               Status              `json:"status" gorm:"type:varchar(32);not null"`
	CommissionProcessed  bool                `json:"commission_processed" gorm:"not null"`
	CommissionID         *snowflake.ID       `json:"commission_id,omitempty"`
	CreatedAt            time.Time           `json:"created_at" gorm:"not null"`
	UpdatedAt            time.Time           `json:"updated_at" gorm:"not null"`
}

func (Order) TableName() string { return "orders" }

// Settled reports whether a commission has been booked for the order.
func (o Order) Settled() bool {
	return o.CommissionProcessed && o.CommissionID != nil
}

var (
	ErrNotFound         = errors.New("order_not_found")
	ErrInvalidSessionID = errors.New("invalid_session_id")
)

// Repository returns nil, nil from Find* when no row matches. Update methods
// return the affected row count so callers can tell a guarded no-op apart.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)
	FindBySessionID(ctx context.Context, db *gorm.DB, sessionID string) (*Order, error)
	FindByPaymentRef(ctx context.Context, db *gorm.DB, paymentRef string) (*Order, error)
	SetSessionID(ctx context.Context, db *gorm.DB, id snowflake.ID, sessionID string, now time.Time) error
	SetPaymentRef(ctx context.Context, db *gorm.DB, id snowflake.ID, paymentRef string, now time.Time) error
	MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, paymentRef string, now time.Time) (int64, error)
	MarkCancelled(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (int64, error)
	MarkSettled(ctx context.Context, db *gorm.DB, id snowflake.ID, commissionID snowflake.ID, now time.Time) (int64, error)
	ListUnsettled(ctx context.Context, db *gorm.DB, paidBefore time.Time, limit int) ([]Order, error)
}

type Service interface {
	GetBySessionID(ctx context.Context, sessionID string) (*Order, error)
}
