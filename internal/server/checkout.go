package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	checkoutdomain "github.com/smallbiznis/popstore/internal/checkout/domain"
	obslogger "github.com/smallbiznis/popstore/internal/observability/logger"
	orderdomain "github.com/smallbiznis/popstore/internal/order/domain"
	"go.uber.org/zap"
)

type checkoutFailure struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type checkoutResponse struct {
	Success bool `json:"success"`
	*checkoutdomain.Result
}

type checkoutSessionResponse struct {
	Success     bool   `json:"success"`
	OrderID     string `json:"orderId"`
	Status      string `json:"status"`
	Quantity    int    `json:"quantity"`
	TotalAmount int64  `json:"totalAmount"`
	Currency    string `json:"currency"`
}

func (s *Server) CreateCheckoutSession(c *gin.Context) {
	var req checkoutdomain.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		s.checkoutError(c, checkoutdomain.ErrInvalidProductID)
		return
	}

	res, err := s.checkoutSvc.Initiate(c.Request.Context(), req)
	if err != nil {
		s.checkoutError(c, err)
		return
	}

	c.Set("order_id", res.OrderID)
	c.JSON(http.StatusCreated, checkoutResponse{Success: true, Result: res})
}

func (s *Server) GetCheckoutSession(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Param("sessionId"))
	order, err := s.orderSvc.GetBySessionID(c.Request.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, orderdomain.ErrInvalidSessionID):
			c.JSON(http.StatusBadRequest, checkoutFailure{Message: "Session ID is required"})
		case errors.Is(err, orderdomain.ErrNotFound):
			c.JSON(http.StatusNotFound, checkoutFailure{Message: "Order not found"})
		default:
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, checkoutFailure{Message: "Internal server error"})
		}
		return
	}

	c.Set("order_id", order.ID.String())
	c.JSON(http.StatusOK, checkoutSessionResponse{
		Success:     true,
		OrderID:     order.ID.String(),
		Status:      string(order.Status),
		Quantity:    order.Quantity,
		TotalAmount: order.TotalPrice,
		Currency:    order.Currency,
	})
}

// checkoutError writes the checkout failure envelope. The error is still
// attached to the context so the request log carries its classification.
func (s *Server) checkoutError(c *gin.Context, err error) {
	status, message := checkoutStatus(err)
	_ = c.Error(err)
	if status >= http.StatusInternalServerError {
		obslogger.WithContext(c.Request.Context(), s.log).Error("checkout failed", zap.Error(err))
	}
	c.JSON(status, checkoutFailure{Success: false, Message: message})
}

func checkoutStatus(err error) (int, string) {
	switch {
	case errors.Is(err, checkoutdomain.ErrInvalidQuantity):
		return http.StatusBadRequest, "Quantity is out of range"
	case errors.Is(err, checkoutdomain.ErrInvalidBuyerEmail):
		return http.StatusBadRequest, "Buyer email is invalid"
	case checkoutdomain.IsValidation(err):
		return http.StatusBadRequest, "Product ID and buyer email are required"
	case errors.Is(err, checkoutdomain.ErrProductNotFound):
		return http.StatusNotFound, "Product not found"
	case errors.Is(err, checkoutdomain.ErrStoreInactive):
		return http.StatusNotFound, "Store not found or inactive"
	case errors.Is(err, checkoutdomain.ErrStoreExpired):
		return http.StatusBadRequest, "Store has expired"
	case errors.Is(err, checkoutdomain.ErrPayoutNotConfigured):
		return http.StatusBadRequest, "Store owner Stripe account not set up"
	case errors.Is(err, checkoutdomain.ErrPlanNotFound):
		return http.StatusNotFound, "Store plan not found"
	case errors.Is(err, checkoutdomain.ErrSessionFailed):
		return http.StatusBadGateway, "Failed to create checkout session"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
