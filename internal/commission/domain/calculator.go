package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInvalidPercentage = errors.New("invalid_commission_percentage")
)

var hundred = decimal.NewFromInt(100)

// Split divides a gross amount between the platform and the store owner.
type Split struct {
	Gross      int64           `json:"gross_amount"`
	Percentage decimal.Decimal `json:"commission_percentage"`
	Commission int64           `json:"commission_amount"`
	Net        int64           `json:"net_amount"`
}

// Calculate rounds the commission half up to the nearest minor unit. The
// owner's share is whatever remains, so Commission+Net always equals Gross.
func Calculate(gross int64, pct decimal.Decimal) (Split, error) {
	if gross < 0 {
		return Split{}, ErrInvalidAmount
	}
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return Split{}, ErrInvalidPercentage
	}

	commission := decimal.NewFromInt(gross).Mul(pct).Div(hundred).Round(0).IntPart()
	return Split{
		Gross:      gross,
		Percentage: pct,
		Commission: commission,
		Net:        gross - commission,
	}, nil
}

// WithFee replaces the computed commission with a fee already charged by the
// processor. Fees outside [0, gross] are rejected.
func (s Split) WithFee(fee int64) (Split, error) {
	if fee < 0 || fee > s.Gross {
		return Split{}, ErrInvalidAmount
	}
	s.Commission = fee
	s.Net = s.Gross - fee
	return s, nil
}
