package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	commissiondomain "github.com/smallbiznis/popstore/internal/commission/domain"
	"github.com/stretchr/testify/require"
)

func TestSummarizeGroupsByDay(t *testing.T) {
	day1 := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
	day2 := day1.Add(2 * time.Hour)
	items := []commissiondomain.Commission{
		{GrossAmount: 2000, CommissionAmount: 300, NetAmount: 1700, CommissionPercentage: decimal.NewFromInt(15), Status: commissiondomain.StatusCompleted, CreatedAt: day2},
		{GrossAmount: 1000, CommissionAmount: 100, NetAmount: 900, CommissionPercentage: decimal.NewFromInt(10), Status: commissiondomain.StatusCompleted, CreatedAt: day1},
		{GrossAmount: 1000, CommissionAmount: 125, NetAmount: 875, CommissionPercentage: decimal.RequireFromString("12.5"), Status: commissiondomain.StatusFailed, CreatedAt: day1},
	}

	out := summarize(items)
	require.Equal(t, int64(3), out.Total.Count)
	require.Equal(t, int64(525), out.Total.TotalCommissions)
	require.True(t, out.Total.AvgCommissionRate.Equal(decimal.RequireFromString("12.5")))
	require.Equal(t, []commissiondomain.DailyTotal{
		{Date: "2026-03-01", Commissions: 225, Gross: 2000, Count: 2},
		{Date: "2026-03-02", Commissions: 300, Gross: 2000, Count: 1},
	}, out.Daily)
	require.Len(t, out.Status, 2)
	require.Equal(t, commissiondomain.StatusCompleted, out.Status[0].Status)
	require.Equal(t, int64(400), out.Status[0].Amount)
}

func TestSummarizeEmpty(t *testing.T) {
	out := summarize(nil)
	require.Zero(t, out.Total.Count)
	require.True(t, out.Total.AvgCommissionRate.IsZero())
	require.Empty(t, out.Daily)
	require.NotNil(t, out.Recent)
}
