package admin

import (
	"errors"
	"time"

	"github.com/hortafresh/backoffice/internal/http/response"
	"github.com/hortafresh/backoffice/internal/service"

	"github.com/gin-gonic/gin"
)

func dashboardQueryInput(c *gin.Context) (service.DashboardQueryInput, bool) {
	input := service.DashboardQueryInput{
		Range:        c.DefaultQuery("range", "7d"),
		Timezone:     c.Query("timezone"),
		ForceRefresh: c.Query("force_refresh") == "true",
	}
	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse("2006-01-02", raw)
		if err != nil {
			respondError(c, response.CodeBadRequest, "invalid from date", nil)
			return input, false
		}
		input.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse("2006-01-02", raw)
		if err != nil {
			respondError(c, response.CodeBadRequest, "invalid to date", nil)
			return input, false
		}
		input.To = &to
	}
	return input, true
}

// GetDashboardOverview returns the KPI cards for the selected window.
func (h *Handler) GetDashboardOverview(c *gin.Context) {
	input, ok := dashboardQueryInput(c)
	if !ok {
		return
	}
	overview, err := h.DashboardService.GetOverview(c.Request.Context(), input)
	if err != nil {
		if errors.Is(err, service.ErrDashboardRangeInvalid) {
			respondError(c, response.CodeBadRequest, "invalid dashboard range", nil)
			return
		}
		respondError(c, response.CodeInternal, "dashboard fetch failed", err)
		return
	}
	response.Success(c, overview)
}

// GetDashboardTrends returns the per-day order and revenue series.
func (h *Handler) GetDashboardTrends(c *gin.Context) {
	input, ok := dashboardQueryInput(c)
	if !ok {
		return
	}
	trends, err := h.DashboardService.GetTrends(c.Request.Context(), input)
	if err != nil {
		if errors.Is(err, service.ErrDashboardRangeInvalid) {
			respondError(c, response.CodeBadRequest, "invalid dashboard range", nil)
			return
		}
		respondError(c, response.CodeInternal, "dashboard fetch failed", err)
		return
	}
	response.Success(c, trends)
}

// GetDashboardSchedule returns the upcoming delivery load per date and slot.
func (h *Handler) GetDashboardSchedule(c *gin.Context) {
	days := queryInt(c, "days", 0)
	schedule, err := h.DashboardService.GetDeliverySchedule(c.Request.Context(), days)
	if err != nil {
		respondError(c, response.CodeInternal, "dashboard fetch failed", err)
		return
	}
	response.Success(c, schedule)
}

// GetDashboardRankings returns the best selling products for the window.
func (h *Handler) GetDashboardRankings(c *gin.Context) {
	input, ok := dashboardQueryInput(c)
	if !ok {
		return
	}
	rankings, err := h.DashboardService.GetRankings(c.Request.Context(), input)
	if err != nil {
		if errors.Is(err, service.ErrDashboardRangeInvalid) {
			respondError(c, response.CodeBadRequest, "invalid dashboard range", nil)
			return
		}
		respondError(c, response.CodeInternal, "dashboard fetch failed", err)
		return
	}
	response.Success(c, rankings)
}
