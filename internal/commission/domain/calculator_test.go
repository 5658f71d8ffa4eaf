package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestCalculate(t *testing.T) {
	cases := []struct {
		name       string
		gross      int64
		pct        string
		commission int64
		net        int64
	}{
		{name: "fifteen percent", gross: 10000, pct: "15", commission: 1500, net: 8500},
		{name: "ten percent", gross: 5000, pct: "10", commission: 500, net: 4500},
		{name: "zero rate", gross: 5000, pct: "0", commission: 0, net: 5000},
		{name: "full rate", gross: 5000, pct: "100", commission: 5000, net: 0},
		{name: "zero gross", gross: 0, pct: "12", commission: 0, net: 0},
		{name: "rounds half up", gross: 150, pct: "1", commission: 2, net: 148},
		{name: "rounds down below half", gross: 149, pct: "1", commission: 1, net: 148},
		{name: "fractional rate", gross: 999, pct: "12.5", commission: 125, net: 874},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			split, err := Calculate(tc.gross, decimal.RequireFromString(tc.pct))
			require.NoError(t, err)
			require.Equal(t, tc.commission, split.Commission)
			require.Equal(t, tc.net, split.Net)
			require.Equal(t, tc.gross, split.Commission+split.Net)
		})
	}
}

func TestCalculateRejectsInvalidInput(t *testing.T) {
	_, err := Calculate(-1, decimal.NewFromInt(10))
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = Calculate(100, decimal.NewFromInt(-1))
	require.ErrorIs(t, err, ErrInvalidPercentage)

	_, err = Calculate(100, decimal.RequireFromString("100.01"))
	require.ErrorIs(t, err, ErrInvalidPercentage)
}

func TestSplitWithFee(t *testing.T) {
	split, err := Calculate(10000, decimal.NewFromInt(15))
	require.NoError(t, err)

	adjusted, err := split.WithFee(1200)
	require.NoError(t, err)
	require.Equal(t, int64(1200), adjusted.Commission)
	require.Equal(t, int64(8800), adjusted.Net)

	_, err = split.WithFee(10001)
	require.ErrorIs(t, err, ErrInvalidAmount)
}
