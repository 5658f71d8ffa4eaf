package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateBalanced(t *testing.T) {
	require.NoError(t, ValidateBalanced(CommissionLines(10000, 1500, 8500)))

	err := ValidateBalanced([]PostingLine{
		{Account: AccountCodeCash, Direction: LedgerEntryDirectionDebit, Amount: 100},
		{Account: AccountCodeSellerPayable, Direction: LedgerEntryDirectionCredit, Amount: 99},
	})
	require.ErrorIs(t, err, ErrUnbalancedEntry)

	err = ValidateBalanced([]PostingLine{{Account: AccountCodeCash, Direction: "sideways", Amount: 1}})
	require.ErrorIs(t, err, ErrInvalidLineDirection)
}

func TestAccountBalanceNet(t *testing.T) {
	b := AccountBalance{Code: AccountCodeCash, Debits: 700, Credits: 200}
	require.Equal(t, int64(500), b.Net(AccountTypeAsset))
	require.Equal(t, int64(-500), b.Net(AccountTypeLiability))
}
