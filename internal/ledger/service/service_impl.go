package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/smallbiznis/popstore/internal/ledger/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("ledger.service"),
		genID: p.GenID,
	}
}

func (s *Service) PostTx(ctx context.Context, tx *gorm.DB, posting ledgerdomain.Posting) (snowflake.ID, bool, error) {
	if posting.OrgID == 0 {
		return 0, false, ledgerdomain.ErrInvalidOrganization
	}
	sourceType := ledgerdomain.LedgerSourceType(strings.TrimSpace(string(posting.SourceType)))
	if sourceType == "" {
		return 0, false, ledgerdomain.ErrInvalidSourceType
	}
	if posting.SourceID == 0 {
		return 0, false, ledgerdomain.ErrInvalidSourceID
	}
	currency := strings.ToLower(strings.TrimSpace(posting.Currency))
	if currency == "" {
		return 0, false, ledgerdomain.ErrInvalidCurrency
	}
	if posting.OccurredAt.IsZero() {
		return 0, false, ledgerdomain.ErrInvalidOccurredAt
	}
	if len(posting.Lines) < 2 {
		return 0, false, ledgerdomain.ErrInvalidEntryLines
	}

	normalized := make([]ledgerdomain.PostingLine, 0, len(posting.Lines))
	for _, line := range posting.Lines {
		if strings.TrimSpace(string(line.Account)) == "" {
			return 0, false, ledgerdomain.ErrInvalidAccount
		}
		direction, err := normalizeDirection(line.Direction)
		if err != nil {
			return 0, false, err
		}
		if line.Amount < 0 {
			return 0, false, ledgerdomain.ErrInvalidLineAmount
		}
		normalized = append(normalized, ledgerdomain.PostingLine{
			Account:   line.Account,
			Direction: direction,
			Amount:    line.Amount,
		})
	}
	if err := ledgerdomain.ValidateBalanced(normalized); err != nil {
		return 0, false, err
	}

	now := time.Now().UTC()
	accounts, err := s.ensureAccounts(ctx, tx, posting.OrgID, now)
	if err != nil {
		return 0, false, err
	}

	entryID := s.genID.Generate()
	result := tx.WithContext(ctx).Exec(
		`INSERT INTO ledger_entries (
			id, org_id, source_type, source_id, currency, occurred_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (org_id, source_type, source_id) DO NOTHING`,
		entryID,
		posting.OrgID,
		string(sourceType),
		posting.SourceID,
		currency,
		posting.OccurredAt.UTC(),
		now,
	)
	if result.Error != nil {
		return 0, false, result.Error
	}
	if result.RowsAffected == 0 {
		s.log.Debug("ledger entry already posted",
			zap.String("source_type", string(sourceType)),
			zap.String("source_id", posting.SourceID.String()),
		)
		return 0, false, nil
	}

	for _, line := range normalized {
		accountID, ok := accounts[line.Account]
		if !ok {
			return 0, false, fmt.Errorf("%w: %s", ledgerdomain.ErrInvalidAccount, line.Account)
		}
		if err := tx.WithContext(ctx).Exec(
			`INSERT INTO ledger_entry_lines (
				id, ledger_entry_id, account_id, direction, amount, created_at
			) VALUES (?, ?, ?, ?, ?, ?)`,
			s.genID.Generate(),
			entryID,
			accountID,
			string(line.Direction),
			line.Amount,
			now,
		).Error; err != nil {
			return 0, false, err
		}
	}

	return entryID, true, nil
}

func (s *Service) ensureAccounts(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, now time.Time) (map[ledgerdomain.LedgerAccountCode]snowflake.ID, error) {
	for _, account := range ledgerdomain.DefaultAccounts {
		if err := tx.WithContext(ctx).Exec(
			`INSERT INTO ledger_accounts (id, org_id, code, name, type, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (org_id, code) DO NOTHING`,
			s.genID.Generate(),
			orgID,
			string(account.Code),
			account.Name,
			string(account.Type),
			now,
		).Error; err != nil {
			return nil, err
		}
	}

	var rows []ledgerdomain.LedgerAccount
	if err := tx.WithContext(ctx).Raw(
		`SELECT id, org_id, code, name, type, created_at
		 FROM ledger_accounts
		 WHERE org_id = ?`,
		orgID,
	).Scan(&rows).Error; err != nil {
		return nil, err
	}

	accounts := make(map[ledgerdomain.LedgerAccountCode]snowflake.ID, len(rows))
	for _, row := range rows {
		accounts[row.Code] = row.ID
	}
	return accounts, nil
}

func (s *Service) Balances(ctx context.Context, orgID snowflake.ID) ([]ledgerdomain.AccountBalance, error) {
	if orgID == 0 {
		return nil, ledgerdomain.ErrInvalidOrganization
	}

	var rows []struct {
		Code      string
		Direction string
		Total     int64
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT a.code AS code, l.direction AS direction, COALESCE(SUM(l.amount), 0) AS total
		 FROM ledger_entry_lines l
		 JOIN ledger_accounts a ON a.id = l.account_id
		 WHERE a.org_id = ?
		 GROUP BY a.code, l.direction
		 ORDER BY a.code`,
		orgID,
	).Scan(&rows).Error; err != nil {
		return nil, err
	}

	byCode := map[ledgerdomain.LedgerAccountCode]*ledgerdomain.AccountBalance{}
	order := make([]ledgerdomain.LedgerAccountCode, 0)
	for _, row := range rows {
		code := ledgerdomain.LedgerAccountCode(row.Code)
		balance, ok := byCode[code]
		if !ok {
			balance = &ledgerdomain.AccountBalance{Code: code}
			byCode[code] = balance
			order = append(order, code)
		}
		switch ledgerdomain.LedgerEntryDirection(row.Direction) {
		case ledgerdomain.LedgerEntryDirectionDebit:
			balance.Debits += row.Total
		case ledgerdomain.LedgerEntryDirectionCredit:
			balance.Credits += row.Total
		}
	}

	out := make([]ledgerdomain.AccountBalance, 0, len(order))
	for _, code := range order {
		out = append(out, *byCode[code])
	}
	return out, nil
}

func normalizeDirection(direction ledgerdomain.LedgerEntryDirection) (ledgerdomain.LedgerEntryDirection, error) {
	normalized := strings.ToLower(strings.TrimSpace(string(direction)))
	switch normalized {
	case string(ledgerdomain.LedgerEntryDirectionDebit):
		return ledgerdomain.LedgerEntryDirectionDebit, nil
	case string(ledgerdomain.LedgerEntryDirectionCredit):
		return ledgerdomain.LedgerEntryDirectionCredit, nil
	default:
		return "", ledgerdomain.ErrInvalidLineDirection
	}
}
