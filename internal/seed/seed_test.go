package seed_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/popstore/internal/seed"
	"github.com/smallbiznis/popstore/internal/testutil"
	"github.com/stretchr/testify/require"
)

func TestDefaultPlans(t *testing.T) {
	plans, err := seed.DefaultPlans()
	require.NoError(t, err)
	require.Len(t, plans, 3)

	weekend := plans[1]
	require.Equal(t, "weekend", weekend.Code)
	require.Equal(t, int64(1080), weekend.FinalPrice)
	require.True(t, weekend.CommissionPercentage.Equal(decimal.NewFromInt(12)))
}

func TestEnsureDefaultPlansIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	node := testutil.Node(t)

	created, err := seed.EnsureDefaultPlans(ctx, db, node)
	require.NoError(t, err)
	require.Equal(t, 3, created)

	created, err = seed.EnsureDefaultPlans(ctx, db, node)
	require.NoError(t, err)
	require.Equal(t, 0, created)
	require.Equal(t, int64(3), testutil.CountRows(t, db, "pricing_plans"))
}
