package server

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/popstore/internal/authorization"
	obscontext "github.com/smallbiznis/popstore/internal/observability/context"
	"go.uber.org/zap"
)

const contextPrincipalKey = "principal"

// AuthRequired resolves the bearer token into a principal on the request
// context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := authorization.BearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		principal, err := s.tokens.Parse(raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := authorization.WithPrincipal(c.Request.Context(), principal)
		ctx = obscontext.WithActor(ctx, principal.Role, principal.Subject)
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextPrincipalKey, principal)
		c.Next()
	}
}

func (s *Server) authorize(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := authorization.PrincipalFromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), principal, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// CheckoutRateLimit throttles checkout initiation per client IP.
func (s *Server) CheckoutRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.checkoutLimiter == nil {
			c.Next()
			return
		}

		res := s.checkoutLimiter.Allow(c.Request.Context(), c.ClientIP())
		if res.Limit > 0 {
			c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(max(res.Remaining, 0)))
		}
		if res.Allowed {
			c.Next()
			return
		}

		retryAfter := int(math.Ceil(res.RetryAfter.Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		s.obsMetrics.RecordRateLimitDenied(c.Request.Context(), "checkout", "ip")
		s.log.Warn("checkout rate limited",
			zap.String("client_ip", c.ClientIP()),
			zap.Int("retry_after_seconds", retryAfter),
		)
		_ = c.Error(ErrRateLimited)
		c.AbortWithStatusJSON(http.StatusTooManyRequests, checkoutFailure{
			Success: false,
			Message: "Too many checkout attempts, please try again later",
		})
	}
}
