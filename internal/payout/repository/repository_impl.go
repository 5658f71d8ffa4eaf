package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/popstore/internal/payout/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) (*domain.Account, error) {
	var item domain.Account
	err := db.WithContext(ctx).Raw(
		`SELECT owner_id, processor_account_id, status, charges_enabled, payouts_enabled,
			onboarding_complete, updated_at
		 FROM payout_accounts
		 WHERE owner_id = ?
		 LIMIT 1`,
		ownerID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.OwnerID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindByProcessorAccount(ctx context.Context, db *gorm.DB, processorAccountID string) (*domain.Account, error) {
	var item domain.Account
	err := db.WithContext(ctx).Raw(
		`SELECT owner_id, processor_account_id, status, charges_enabled, payouts_enabled,
			onboarding_complete, updated_at
		 FROM payout_accounts
		 WHERE processor_account_id = ?
		 LIMIT 1`,
		processorAccountID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.OwnerID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, account *domain.Account) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payout_accounts
		 SET status = ?, charges_enabled = ?, payouts_enabled = ?, onboarding_complete = ?, updated_at = ?
		 WHERE owner_id = ?`,
		account.Status,
		account.ChargesEnabled,
		account.PayoutsEnabled,
		account.OnboardingComplete,
		account.UpdatedAt,
		account.OwnerID,
	).Error
}
