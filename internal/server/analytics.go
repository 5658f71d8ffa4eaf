package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/popstore/internal/authorization"
	commissiondomain "github.com/smallbiznis/popstore/internal/commission/domain"
)

const defaultAnalyticsPeriodDays = 30

// GetCommissionAnalytics reports commission totals. Callers without the
// view_all grant only see stores they own.
func (s *Server) GetCommissionAnalytics(c *gin.Context) {
	period := defaultAnalyticsPeriodDays
	if raw := strings.TrimSpace(c.Query("period")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			AbortWithError(c, newValidationError("period", "invalid_period", "invalid period"))
			return
		}
		period = parsed
	}

	storeID, err := parseOptionalSnowflakeID(c.Query("store_id"))
	if err != nil {
		AbortWithError(c, newValidationError("store_id", "invalid_store_id", "invalid store_id"))
		return
	}

	query := commissiondomain.AnalyticsQuery{
		PeriodDays: period,
		StoreID:    storeID,
	}

	principal, _ := authorization.PrincipalFromContext(c.Request.Context())
	viewAll, err := s.authzSvc.Can(c.Request.Context(), principal, authorization.ObjectCommission, authorization.ActionAnalyticsViewAll)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !viewAll {
		ownerID, err := snowflake.ParseString(principal.Subject)
		if err != nil || ownerID == 0 {
			AbortWithError(c, ErrForbidden)
			return
		}
		query.OwnerID = &ownerID
	}

	analytics, err := s.commissionSvc.Analytics(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": analytics})
}
