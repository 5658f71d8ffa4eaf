package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Plan is a pricing tier a seller picks when opening a store. Plans are never
// edited after creation; a price change is a new plan.
type Plan struct {
	ID                   snowflake.ID    `json:"id" gorm:"primaryKey"`
	Code                 string          `json:"code" gorm:"type:varchar(64);not null;uniqueIndex"`
	Title                string          `json:"title" gorm:"type:varchar(255);not null"`
	DurationHours        int             `json:"duration_hours" gorm:"not null"`
	BasePrice            int64           `json:"base_price" gorm:"not null"`
	DiscountPercentage   decimal.Decimal `json:"discount_percentage" gorm:"type:numeric(5,2);not null"`
	FinalPrice           int64           `json:"final_price" gorm:"not null"`
	CommissionPercentage decimal.Decimal `json:"commission_percentage" gorm:"type:numeric(5,2);not null"`
	Currency             string          `json:"currency" gorm:"type:varchar(8);not null"`
	IsActive             bool            `json:"is_active" gorm:"not null"`
	CreatedAt            time.Time       `json:"created_at" gorm:"not null"`
}

func (Plan) TableName() string { return "pricing_plans" }

type CreateRequest struct {
	Code                 string          `json:"code"`
	Title                string          `json:"title"`
	DurationHours        int             `json:"duration_hours"`
	BasePrice            int64           `json:"base_price"`
	DiscountPercentage   decimal.Decimal `json:"discount_percentage"`
	CommissionPercentage decimal.Decimal `json:"commission_percentage"`
	Currency             string          `json:"currency"`
	IsActive             *bool           `json:"is_active"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, plan *Plan) (bool, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Plan, error)
	List(ctx context.Context, db *gorm.DB, activeOnly bool) ([]Plan, error)
}

type Service interface {
	Get(ctx context.Context, id snowflake.ID) (*Plan, error)
	List(ctx context.Context, activeOnly bool) ([]Plan, error)
	Create(ctx context.Context, req CreateRequest) (*Plan, error)
}

var hundred = decimal.NewFromInt(100)

// ValidPercentage reports whether pct is within [0, 100].
func ValidPercentage(pct decimal.Decimal) bool {
	return !pct.IsNegative() && pct.LessThanOrEqual(hundred)
}

// FinalPrice applies the plan discount, rounding the discount half up.
func FinalPrice(base int64, discount decimal.Decimal) int64 {
	off := decimal.NewFromInt(base).Mul(discount).Div(hundred).Round(0).IntPart()
	return base - off
}
