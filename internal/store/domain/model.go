package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Store is a time-limited seller storefront. This service only reads stores.
type Store struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	OwnerID   snowflake.ID `json:"owner_id" gorm:"not null;index"`
	PlanID    snowflake.ID `json:"plan_id" gorm:"not null"`
	Name      string       `json:"name" gorm:"type:varchar(255);not null"`
	IsActive  bool         `json:"is_active" gorm:"not null"`
	ExpiresAt time.Time    `json:"expires_at" gorm:"not null"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
}

func (Store) TableName() string { return "stores" }

// Expired reports whether the store window has closed at now.
func (s Store) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

type Product struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	StoreID   snowflake.ID `json:"store_id" gorm:"not null;index"`
	Name      string       `json:"name" gorm:"type:varchar(255);not null"`
	Price     int64        `json:"price" gorm:"not null"`
	Currency  string       `json:"currency" gorm:"type:varchar(8);not null"`
	IsActive  bool         `json:"is_active" gorm:"not null"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
}

func (Product) TableName() string { return "products" }

// Repository returns nil, nil when the row does not exist.
type Repository interface {
	FindStore(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Store, error)
	FindProduct(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Product, error)
	ListStoreIDsByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]snowflake.ID, error)
}
