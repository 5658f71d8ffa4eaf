package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusActive     Status = "active"
	StatusRestricted Status = "restricted"
	StatusRejected   Status = "rejected"
)

// Account links a store owner to their connected account at the processor.
type Account struct {
	OwnerID            snowflake.ID `json:"owner_id" gorm:"primaryKey"`
	ProcessorAccountID string       `json:"processor_account_id" gorm:"type:varchar(255);not null;uniqueIndex"`
	Status             Status       `json:"status" gorm:"type:varchar(32);not null"`
	ChargesEnabled     bool         `json:"charges_enabled" gorm:"not null"`
	PayoutsEnabled     bool         `json:"payouts_enabled" gorm:"not null"`
	OnboardingComplete bool         `json:"onboarding_complete" gorm:"not null"`
	UpdatedAt          time.Time    `json:"updated_at" gorm:"not null"`
}

func (Account) TableName() string { return "payout_accounts" }

// Ready reports whether checkout may route funds to this account.
func (a Account) Ready() bool {
	return strings.TrimSpace(a.ProcessorAccountID) != "" && a.OnboardingComplete
}

// AccountUpdate is the processor's view of a connected account.
type AccountUpdate struct {
	ProcessorAccountID string
	ChargesEnabled     bool
	PayoutsEnabled     bool
	DisabledReason     string
}

// DeriveStatus maps processor capabilities onto a payout status.
func DeriveStatus(update AccountUpdate) (Status, bool) {
	if update.ChargesEnabled && update.PayoutsEnabled {
		return StatusActive, true
	}
	if strings.TrimSpace(update.DisabledReason) != "" {
		return StatusRestricted, false
	}
	return StatusPending, false
}

var (
	ErrNotFound      = errors.New("payout_account_not_found")
	ErrNotConfigured = errors.New("payout_account_not_configured")
	ErrInvalidOwner  = errors.New("invalid_payout_owner")
)

type Repository interface {
	FindByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) (*Account, error)
	FindByProcessorAccount(ctx context.Context, db *gorm.DB, processorAccountID string) (*Account, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, account *Account) error
}

type Service interface {
	IsPayoutReady(ctx context.Context, ownerID snowflake.ID) (bool, error)
	DestinationAccount(ctx context.Context, ownerID snowflake.ID) (string, error)
	ApplyAccountUpdate(ctx context.Context, update AccountUpdate) (*Account, error)
}
