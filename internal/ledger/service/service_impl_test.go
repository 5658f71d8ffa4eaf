package service

import (
	"context"
	"testing"
	"time"

	ledgerdomain "github.com/smallbiznis/popstore/internal/ledger/domain"
	"github.com/smallbiznis/popstore/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestPostTxIsIdempotentPerSource(t *testing.T) {
	db := testutil.OpenDB(t)
	node := testutil.Node(t)
	svc := NewService(Params{DB: db, Log: zap.NewNop(), GenID: node})
	ctx := context.Background()

	storeID := node.Generate()
	posting := ledgerdomain.Posting{
		OrgID:      storeID,
		SourceType: ledgerdomain.SourceTypeCommission,
		SourceID:   node.Generate(),
		Currency:   "USD",
		OccurredAt: time.Now().UTC(),
		Lines:      ledgerdomain.CommissionLines(10000, 1500, 8500),
	}

	for i := 0; i < 2; i++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			_, inserted, err := svc.PostTx(ctx, tx, posting)
			require.Equal(t, i == 0, inserted)
			return err
		})
		require.NoError(t, err)
	}

	require.Equal(t, int64(1), testutil.CountRows(t, db, "ledger_entries"))
	require.Equal(t, int64(3), testutil.CountRows(t, db, "ledger_entry_lines"))
	require.Equal(t, int64(3), testutil.CountRows(t, db, "ledger_accounts"))

	balances, err := svc.Balances(ctx, storeID)
	require.NoError(t, err)
	got := map[ledgerdomain.LedgerAccountCode]ledgerdomain.AccountBalance{}
	for _, b := range balances {
		got[b.Code] = b
	}
	require.Equal(t, int64(10000), got[ledgerdomain.AccountCodeCash].Net(ledgerdomain.AccountTypeAsset))
	require.Equal(t, int64(1500), got[ledgerdomain.AccountCodePlatformCommission].Net(ledgerdomain.AccountTypeRevenue))
	require.Equal(t, int64(8500), got[ledgerdomain.AccountCodeSellerPayable].Net(ledgerdomain.AccountTypeLiability))
}

func TestPostTxRejectsUnbalanced(t *testing.T) {
	db := testutil.OpenDB(t)
	node := testutil.Node(t)
	svc := NewService(Params{DB: db, Log: zap.NewNop(), GenID: node})

	_, _, err := svc.PostTx(context.Background(), db, ledgerdomain.Posting{
		OrgID:      node.Generate(),
		SourceType: ledgerdomain.SourceTypeCommission,
		SourceID:   node.Generate(),
		Currency:   "usd",
		OccurredAt: time.Now().UTC(),
		Lines:      ledgerdomain.CommissionLines(10000, 1500, 8000),
	})
	require.ErrorIs(t, err, ledgerdomain.ErrUnbalancedEntry)
	require.Equal(t, int64(0), testutil.CountRows(t, db, "ledger_entries"))
}
