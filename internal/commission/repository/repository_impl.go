package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/popstore/internal/commission/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const commissionColumns = `id, order_id, store_id, store_owner_id, plan_id, gross_amount,
	commission_percentage, commission_amount, net_amount, currency, status,
	processed_at, failure_reason, created_at`

func (r *repo) InsertIgnore(ctx context.Context, db *gorm.DB, c *domain.Commission) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO commissions (`+commissionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (order_id) DO NOTHING`,
		c.ID,
		c.OrderID,
		c.StoreID,
		c.StoreOwnerID,
		c.PlanID,
		c.GrossAmount,
		c.CommissionPercentage,
		c.CommissionAmount,
		c.NetAmount,
		c.Currency,
		c.Status,
		c.ProcessedAt,
		c.FailureReason,
		c.CreatedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) FindByOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (*domain.Commission, error) {
	return r.findOne(ctx, db, `order_id = ?`, orderID)
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Commission, error) {
	return r.findOne(ctx, db, `id = ?`, id)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, where string, arg any) (*domain.Commission, error) {
	var item domain.Commission
	err := db.WithContext(ctx).Raw(
		`SELECT `+commissionColumns+`
		 FROM commissions
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

// ListForAnalytics returns the matching commissions newest first.
func (r *repo) ListForAnalytics(ctx context.Context, db *gorm.DB, filter domain.AnalyticsFilter) ([]domain.Commission, error) {
	query := `SELECT ` + commissionColumns + `
		 FROM commissions
		 WHERE created_at >= ? AND created_at <= ?`
	args := []any{filter.Since.UTC(), filter.Until.UTC()}
	if filter.StoreID != nil {
		query += ` AND store_id = ?`
		args = append(args, *filter.StoreID)
	}
	if filter.OwnerID != nil {
		query += ` AND store_owner_id = ?`
		args = append(args, *filter.OwnerID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	var items []domain.Commission
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
