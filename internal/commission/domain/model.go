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
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

// Commission is the immutable record of one order's split. There is at most
// one per order.
type Commission struct {
	ID                   snowflake.ID    `json:"id" gorm:"primaryKey"`
	OrderID              snowflake.ID    `json:"order_id" gorm:"not null;uniqueIndex:ux_commissions_order_id"`
	StoreID              snowflake.ID    `json:"store_id" gorm:"not null"`
	StoreOwnerID         snowflake.ID    `json:"store_owner_id" gorm:"not null"`
	PlanID               snowflake.ID    `json:"plan_id" gorm:"not null"`
	GrossAmount          int64           `json:"gross_amount" gorm:"not null"`
	CommissionPercentage decimal.Decimal `json:"commission_percentage" gorm:"type:numeric(5,2);not null"`
	CommissionAmount     int64           `json:"commission_amount" gorm:"not null"`
	NetAmount            int64           `json:"net_amount" gorm:"not null"`
	Currency             string          `json:"currency" gorm:"type:varchar(8);not null"`
	Status               Status          `json:"status" gorm:"type:varchar(32);not null"`
	ProcessedAt          *time.Time      `json:"processed_at,omitempty"`
	FailureReason        *string         `json:"failure_reason,omitempty"`
	CreatedAt            time.Time       `json:"created_at" gorm:"not null"`
}

func (Commission) TableName() string { return "commissions" }

type SettleResult struct {
	Commission       *Commission
	AlreadyProcessed bool
	// Divergent is set when the plan percentage no longer matches the
	// order snapshot, or the snapshot fee differs from the recomputed one.
	Divergent bool
}

type AnalyticsQuery struct {
	PeriodDays int
	StoreID    *snowflake.ID
	OwnerID    *snowflake.ID
}

type AnalyticsFilter struct {
	Since   time.Time
	Until   time.Time
	StoreID *snowflake.ID
	OwnerID *snowflake.ID
}

type Totals struct {
	TotalCommissions  int64           `json:"total_commissions"`
	TotalGross        int64           `json:"total_gross"`
	TotalNet          int64           `json:"total_net"`
	Count             int64           `json:"count"`
	AvgCommissionRate decimal.Decimal `json:"avg_commission_rate"`
}

type DailyTotal struct {
	Date        string `json:"date"`
	Commissions int64  `json:"commissions"`
	Gross       int64  `json:"gross"`
	Count       int64  `json:"count"`
}

type StatusTotal struct {
	Status Status `json:"status"`
	Count  int64  `json:"count"`
	Amount int64  `json:"amount"`
}

type Analytics struct {
	Period int           `json:"period"`
	Total  Totals        `json:"total"`
	Daily  []DailyTotal  `json:"daily"`
	Status []StatusTotal `json:"status"`
	Recent []Commission  `json:"recent"`
}

type Repository interface {
	// InsertIgnore reports false when a commission already exists for the order.
	InsertIgnore(ctx context.Context, db *gorm.DB, commission *Commission) (bool, error)
	FindByOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (*Commission, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Commission, error)
	ListForAnalytics(ctx context.Context, db *gorm.DB, filter AnalyticsFilter) ([]Commission, error)
}

type Service interface {
	Settle(ctx context.Context, orderID snowflake.ID) (*SettleResult, error)
	Analytics(ctx context.Context, query AnalyticsQuery) (*Analytics, error)
}

var (
	ErrOrderNotFound    = errors.New("order_not_found")
	ErrStoreNotFound    = errors.New("store_not_found")
	ErrPlanNotFound     = errors.New("plan_not_found")
	ErrOrderRefunded    = errors.New("order_refunded")
	ErrInvalidPeriod    = errors.New("invalid_period")
	ErrCommissionExists = errors.New("commission_exists")
)
