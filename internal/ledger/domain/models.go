package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// LedgerEntryDirection represents debit or credit postings.
type LedgerEntryDirection string

const (
	LedgerEntryDirectionDebit  LedgerEntryDirection = "debit"
	LedgerEntryDirectionCredit LedgerEntryDirection = "credit"
)

type LedgerSourceType string

const (
	SourceTypeCommission LedgerSourceType = "commission" // settled order split
	SourceTypeRefund     LedgerSourceType = "refund"
)

type LedgerAccountCode string

const (
	// Assets
	AccountCodeCash LedgerAccountCode = "cash"

	// Revenue
	AccountCodePlatformCommission LedgerAccountCode = "platform_commission"

	// Liabilities
	AccountCodeSellerPayable LedgerAccountCode = "seller_payable"
)

type LedgerAccountType string

const (
	AccountTypeAsset     LedgerAccountType = "asset"
	AccountTypeRevenue   LedgerAccountType = "revenue"
	AccountTypeLiability LedgerAccountType = "liability"
)

// DefaultAccounts is the chart every store ledger starts with.
var DefaultAccounts = []LedgerAccount{
	{Code: AccountCodeCash, Name: "Cash", Type: AccountTypeAsset},
	{Code: AccountCodePlatformCommission, Name: "Platform commission", Type: AccountTypeRevenue},
	{Code: AccountCodeSellerPayable, Name: "Seller payable", Type: AccountTypeLiability},
}

// LedgerAccount defines a chart-of-accounts entry. OrgID is the store id.
type LedgerAccount struct {
	ID        snowflake.ID      `gorm:"primaryKey"`
	OrgID     snowflake.ID      `gorm:"not null;index;uniqueIndex:ux_ledger_accounts_org_code,priority:1"`
	Code      LedgerAccountCode `gorm:"type:varchar(64);not null;uniqueIndex:ux_ledger_accounts_org_code,priority:2"`
	Name      string            `gorm:"type:varchar(255);not null"`
	Type      LedgerAccountType `gorm:"type:varchar(32);not null"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (LedgerAccount) TableName() string { return "ledger_accounts" }

// LedgerEntry captures the immutable header for a financial event.
type LedgerEntry struct {
	ID         snowflake.ID     `gorm:"primaryKey"`
	OrgID      snowflake.ID     `gorm:"not null;index"`
	SourceType LedgerSourceType `gorm:"type:varchar(64);not null;index"`
	SourceID   snowflake.ID     `gorm:"not null;index"`
	Currency   string           `gorm:"type:varchar(8);not null"`
	OccurredAt time.Time        `gorm:"not null"`
	CreatedAt  time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (LedgerEntry) TableName() string { return "ledger_entries" }

// LedgerEntryLine is a double-entry posting line.
type LedgerEntryLine struct {
	ID            snowflake.ID         `gorm:"primaryKey"`
	LedgerEntryID snowflake.ID         `gorm:"not null;index"`
	AccountID     snowflake.ID         `gorm:"not null;index"`
	Direction     LedgerEntryDirection `gorm:"type:varchar(8);not null"`
	Amount        int64                `gorm:"not null"`
	CreatedAt     time.Time            `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (LedgerEntryLine) TableName() string { return "ledger_entry_lines" }

// PostingLine addresses an account by code; the service resolves it per org.
type PostingLine struct {
	Account   LedgerAccountCode
	Direction LedgerEntryDirection
	Amount    int64
}

// Posting is the input of a single balanced entry.
type Posting struct {
	OrgID      snowflake.ID
	SourceType LedgerSourceType
	SourceID   snowflake.ID
	Currency   string
	OccurredAt time.Time
	Lines      []PostingLine
}

// AccountBalance is the debit-minus-credit total of one account.
type AccountBalance struct {
	Code    LedgerAccountCode `json:"code"`
	Debits  int64             `json:"debits"`
	Credits int64             `json:"credits"`
}

// Net returns the balance in the account's normal direction.
func (b AccountBalance) Net(accountType LedgerAccountType) int64 {
	if accountType == AccountTypeAsset {
		return b.Debits - b.Credits
	}
	return b.Credits - b.Debits
}

type Service interface {
	// PostTx writes the entry inside tx. It reports false when an entry for
	// the same source already exists.
	PostTx(ctx context.Context, tx *gorm.DB, posting Posting) (snowflake.ID, bool, error)
	Balances(ctx context.Context, orgID snowflake.ID) ([]AccountBalance, error)
}

var (
	ErrInvalidOrganization  = errors.New("invalid_organization")
	ErrInvalidSourceType    = errors.New("invalid_source_type")
	ErrInvalidSourceID      = errors.New("invalid_source_id")
	ErrInvalidCurrency      = errors.New("invalid_currency")
	ErrInvalidOccurredAt    = errors.New("invalid_occurred_at")
	ErrInvalidEntryLines    = errors.New("invalid_entry_lines")
	ErrInvalidAccount       = errors.New("invalid_account")
	ErrInvalidLineDirection = errors.New("invalid_line_direction")
	ErrInvalidLineAmount    = errors.New("invalid_line_amount")
	ErrUnbalancedEntry      = errors.New("unbalanced_entry")
)

// ValidateBalanced checks that debits equal credits.
func ValidateBalanced(lines []PostingLine) error {
	var debits, credits int64
	for _, line := range lines {
		switch line.Direction {
		case LedgerEntryDirectionDebit:
			debits += line.Amount
		case LedgerEntryDirectionCredit:
			credits += line.Amount
		default:
			return ErrInvalidLineDirection
		}
	}
	if debits != credits {
		return ErrUnbalancedEntry
	}
	return nil
}

// CommissionLines books a settled order: cash in, split between the
// platform's commission and what the store owner is owed.
func CommissionLines(gross, commission, net int64) []PostingLine {
	return []PostingLine{
		{Account: AccountCodeCash, Direction: LedgerEntryDirectionDebit, Amount: gross},
		{Account: AccountCodePlatformCommission, Direction: LedgerEntryDirectionCredit, Amount: commission},
		{Account: AccountCodeSellerPayable, Direction: LedgerEntryDirectionCredit, Amount: net},
	}
}
