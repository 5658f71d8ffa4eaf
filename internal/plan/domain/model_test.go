package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFinalPrice(t *testing.T) {
	assert.Equal(t, int64(2000), FinalPrice(2000, decimal.Zero))
	assert.Equal(t, int64(1500), FinalPrice(2000, decimal.NewFromInt(25)))
	// 999 * 12.5% = 124.875 -> 125 off
	assert.Equal(t, int64(874), FinalPrice(999, decimal.RequireFromString("12.5")))
	assert.Equal(t, int64(0), FinalPrice(2000, decimal.NewFromInt(100)))
}

func TestValidPercentage(t *testing.T) {
	assert.True(t, ValidPercentage(decimal.Zero))
	assert.True(t, ValidPercentage(decimal.NewFromInt(100)))
	assert.False(t, ValidPercentage(decimal.RequireFromString("100.01")))
	assert.False(t, ValidPercentage(decimal.NewFromInt(-1)))
}
