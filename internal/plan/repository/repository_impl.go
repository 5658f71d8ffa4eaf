package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/popstore/internal/plan/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const planColumns = `id, code, title, duration_hours, base_price, discount_percentage,
	final_price, commission_percentage, currency, is_active, created_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, plan *domain.Plan) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO pricing_plans (`+planColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (code) DO NOTHING`,
		plan.ID,
		plan.Code,
		plan.Title,
		plan.DurationHours,
		plan.BasePrice,
		plan.DiscountPercentage,
		plan.FinalPrice,
		plan.CommissionPercentage,
		plan.Currency,
		plan.IsActive,
		plan.CreatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Plan, error) {
	var item domain.Plan
	err := db.WithContext(ctx).Raw(
		`SELECT `+planColumns+`
		 FROM pricing_plans
		 WHERE id = ?
		 LIMIT 1`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, activeOnly bool) ([]domain.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM pricing_plans`
	args := []any{}
	if activeOnly {
		query += ` WHERE is_active = ?`
		args = append(args, true)
	}
	query += ` ORDER BY final_price ASC, id ASC`

	var items []domain.Plan
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
