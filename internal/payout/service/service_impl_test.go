package service_test

import (
	"context"
	"testing"

	"github.com/smallbiznis/popstore/internal/payout/domain"
	"github.com/smallbiznis/popstore/internal/payout/repository"
	"github.com/smallbiznis/popstore/internal/payout/service"
	"github.com/smallbiznis/popstore/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPayoutReadiness(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	node := testutil.Node(t)
	svc := service.NewService(service.Params{DB: db, Log: zap.NewNop(), Repo: repository.Provide()})

	active := testutil.Seed(t, db, node, testutil.DefaultFixtureOptions())
	ready, err := svc.IsPayoutReady(ctx, active.OwnerID)
	require.NoError(t, err)
	require.True(t, ready)

	dest, err := svc.DestinationAccount(ctx, active.OwnerID)
	require.NoError(t, err)
	require.Equal(t, active.AccountID, dest)

	opts := testutil.DefaultFixtureOptions()
	opts.PayoutStatus = ""
	missing := testutil.Seed(t, db, node, opts)
	ready, err = svc.IsPayoutReady(ctx, missing.OwnerID)
	require.NoError(t, err)
	require.False(t, ready)

	_, err = svc.DestinationAccount(ctx, missing.OwnerID)
	require.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestApplyAccountUpdate(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	node := testutil.Node(t)
	svc := service.NewService(service.Params{DB: db, Log: zap.NewNop(), Repo: repository.Provide()})

	opts := testutil.DefaultFixtureOptions()
	opts.PayoutStatus = "pending"
	fx := testutil.Seed(t, db, node, opts)

	ready, err := svc.IsPayoutReady(ctx, fx.OwnerID)
	require.NoError(t, err)
	require.False(t, ready)

	account, err := svc.ApplyAccountUpdate(ctx, domain.AccountUpdate{
		ProcessorAccountID: fx.AccountID,
		ChargesEnabled:     true,
		PayoutsEnabled:     true,
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusActive, account.Status)

	ready, err = svc.IsPayoutReady(ctx, fx.OwnerID)
	require.NoError(t, err)
	require.True(t, ready)

	account, err = svc.ApplyAccountUpdate(ctx, domain.AccountUpdate{
		ProcessorAccountID: fx.AccountID,
		DisabledReason:     "rejected.fraud",
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusRestricted, account.Status)

	_, err = svc.ApplyAccountUpdate(ctx, domain.AccountUpdate{ProcessorAccountID: "acct_unknown"})
	require.ErrorIs(t, err, domain.ErrNotFound)
}
