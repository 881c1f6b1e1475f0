package admin

import (
	"time"

	"github.com/hortafresh/backoffice/internal/http/response"
	"github.com/hortafresh/backoffice/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListAuthzAuditLogs returns the permission change trail.
func (h *Handler) ListAuthzAuditLogs(c *gin.Context) {
	page, pageSize := normalizePagination(queryInt(c, "page", 1), queryInt(c, "page_size", 20))
	filter := repository.AuthzAuditLogListFilter{
		Page:            page,
		PageSize:        pageSize,
		OperatorAdminID: queryUint(c, "operator_admin_id"),
		TargetAdminID:   queryUint(c, "target_admin_id"),
		Action:          c.Query("action"),
		Role:            c.Query("role"),
	}
	if raw := c.Query("created_from"); raw != "" {
		from, err := time.Parse("2006-01-02", raw)
		if err != nil {
			respondError(c, response.CodeBadRequest, "invalid created_from date", nil)
			return
		}
		filter.CreatedFrom = &from
	}
	if raw := c.Query("created_to"); raw != "" {
		to, err := time.Parse("2006-01-02", raw)
		if err != nil {
			respondError(c, response.CodeBadRequest, "invalid created_to date", nil)
			return
		}
		end := to.AddDate(0, 0, 1)
		filter.CreatedTo = &end
	}

	logs, total, err := h.AuthzAuditService.ListAuditLogs(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "audit log fetch failed", err)
		return
	}
	response.SuccessWithPage(c, logs, buildPagination(page, pageSize, total))
}
