package service_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/popstore/internal/plan/domain"
	"github.com/smallbiznis/popstore/internal/plan/repository"
	"github.com/smallbiznis/popstore/internal/plan/service"
	"github.com/smallbiznis/popstore/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(t *testing.T) domain.Service {
	t.Helper()
	return service.NewService(service.Params{
		DB:    testutil.OpenDB(t),
		Log:   zap.NewNop(),
		GenID: testutil.Node(t),
		Repo:  repository.Provide(),
	})
}

func TestCreateAndGetPlan(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	created, err := svc.Create(ctx, domain.CreateRequest{
		Code:                 " Weekend ",
		Title:                "Weekend pop-up",
		DurationHours:        48,
		BasePrice:            2000,
		DiscountPercentage:   decimal.NewFromInt(10),
		CommissionPercentage: decimal.NewFromInt(15),
	})
	require.NoError(t, err)
	require.Equal(t, "weekend", created.Code)
	require.Equal(t, int64(1800), created.FinalPrice)
	require.Equal(t, "usd", created.Currency)
	require.True(t, created.IsActive)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
	require.True(t, got.CommissionPercentage.Equal(decimal.NewFromInt(15)))

	plans, err := svc.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	require.True(t, plans[0].CommissionPercentage.Equal(decimal.NewFromInt(15)))
}

func TestCreateRejectsDuplicateCode(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	req := domain.CreateRequest{
		Code:                 "daily",
		Title:                "Daily",
		DurationHours:        24,
		BasePrice:            500,
		CommissionPercentage: decimal.NewFromInt(12),
	}
	_, err := svc.Create(ctx, req)
	require.NoError(t, err)

	_, err = svc.Create(ctx, req)
	require.ErrorIs(t, err, domain.ErrCodeAlreadyExists)
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	base := domain.CreateRequest{
		Code:                 "x",
		Title:                "X",
		DurationHours:        1,
		BasePrice:            100,
		CommissionPercentage: decimal.NewFromInt(10),
	}

	cases := []struct {
		name   string
		mutate func(*domain.CreateRequest)
		want   error
	}{
		{"code not a slug", func(r *domain.CreateRequest) { r.Code = "two words!" }, domain.ErrInvalidCode},
		{"empty title", func(r *domain.CreateRequest) { r.Title = "" }, domain.ErrInvalidTitle},
		{"zero duration", func(r *domain.CreateRequest) { r.DurationHours = 0 }, domain.ErrInvalidDuration},
		{"negative price", func(r *domain.CreateRequest) { r.BasePrice = -1 }, domain.ErrInvalidPrice},
		{"commission over 100", func(r *domain.CreateRequest) { r.CommissionPercentage = decimal.NewFromInt(101) }, domain.ErrInvalidPercentage},
		{"bad currency", func(r *domain.CreateRequest) { r.Currency = "dollars" }, domain.ErrInvalidCurrency},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := base
			tc.mutate(&req)
			_, err := svc.Create(ctx, req)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCreateDerivesCodeFromTitle(t *testing.T) {
	svc := newService(t)

	created, err := svc.Create(context.Background(), domain.CreateRequest{
		Title:                "Flash Sale 6h",
		DurationHours:        6,
		BasePrice:            500,
		CommissionPercentage: decimal.NewFromInt(20),
	})
	require.NoError(t, err)
	require.Equal(t, "flash-sale-6h", created.Code)
}

func TestGetMissingPlan(t *testing.T) {
	svc := newService(t)
	_, err := svc.Get(context.Background(), 12345)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
