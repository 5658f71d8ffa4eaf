package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/popstore/internal/store/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindStore(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Store, error) {
	var item domain.Store
	err := db.WithContext(ctx).Raw(
		`SELECT id, owner_id, plan_id, name, is_active, expires_at, created_at
		 FROM stores
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

func (r *repo) FindProduct(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Product, error) {
	var item domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT id, store_id, name, price, currency, is_active, created_at
		 FROM products
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

func (r *repo) ListStoreIDsByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).Raw(
		`SELECT id FROM stores WHERE owner_id = ? ORDER BY id`,
		ownerID,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
