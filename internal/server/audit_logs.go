package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/popstore/internal/audit/domain"
)

const maxAuditLogPageSize = 200

type listAuditLogsQuery struct {
	StoreID    string `form:"store_id"`
	Action     string `form:"action"`
	TargetType string `form:"target_type"`
	TargetID   string `form:"target_id"`
	Limit      int    `form:"limit"`
}

func (s *Server) ListAuditLogs(c *gin.Context) {
	var query listAuditLogsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	storeID, err := parseOptionalSnowflakeID(query.StoreID)
	if err != nil {
		AbortWithError(c, newValidationError("store_id", "invalid_store_id", "invalid store_id"))
		return
	}
	if query.Limit < 0 || query.Limit > maxAuditLogPageSize {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
		return
	}

	logs, err := s.auditSvc.List(c.Request.Context(), auditdomain.ListFilter{
		OrgID:      storeID,
		Action:     strings.TrimSpace(query.Action),
		TargetType: strings.TrimSpace(query.TargetType),
		TargetID:   strings.TrimSpace(query.TargetID),
		Limit:      query.Limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if logs == nil {
		logs = []auditdomain.AuditLog{}
	}

	c.JSON(http.StatusOK, gin.H{"data": logs})
}
