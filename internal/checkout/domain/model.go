package domain

import (
	"context"
	"errors"
)

// Request is the buyer's checkout input. Quantity 0 means one item.
type Request struct {
	ProductID  string  `json:"productId"`
	Quantity   int     `json:"quantity"`
	BuyerEmail string  `json:"buyerEmail"`
	BuyerName  *string `json:"buyerName,omitempty"`
}

type Result struct {
	OrderID          string `json:"orderId"`
	SessionID        string `json:"sessionId"`
	SessionURL       string `json:"sessionUrl"`
	TotalAmount      int64  `json:"totalAmount"`
	CommissionAmount int64  `json:"commissionAmount"`
	NetAmount        int64  `json:"netAmount"`
}

type Service interface {
	Initiate(ctx context.Context, req Request) (*Result, error)
}

var (
	ErrInvalidProductID    = errors.New("invalid_product_id")
	ErrInvalidBuyerEmail   = errors.New("invalid_buyer_email")
	ErrInvalidQuantity     = errors.New("invalid_quantity")
	ErrProductNotFound     = errors.New("product_not_found")
	ErrStoreInactive       = errors.New("store_inactive")
	ErrStoreExpired        = errors.New("store_expired")
	ErrPayoutNotConfigured = errors.New("payout_not_configured")
	ErrPlanNotFound        = errors.New("plan_not_found")
	ErrSessionFailed       = errors.New("checkout_session_failed")
)

// IsValidation reports whether err came from request validation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidProductID) ||
		errors.Is(err, ErrInvalidBuyerEmail) ||
		errors.Is(err, ErrInvalidQuantity)
}
