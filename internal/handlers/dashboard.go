package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/raterly/backend/internal/services"
	"github.com/raterly/backend/pkg/response"
	"gorm.io/gorm"
)

type DashboardHandler struct {
	db               *gorm.DB
	dashboardService *services.DashboardService
}

func NewDashboardHandler(db *gorm.DB) *DashboardHandler {
	return &DashboardHandler{
		db:               db,
		dashboardService: services.NewDashboardService(db),
	}
}

// GetStats returns the owner dashboard
// GET /api/dashboard/stats
func (h *DashboardHandler) GetStats(c *gin.Context) {
	businessID, ok := resolveBusinessID(c, h.db)
	if !ok {
		response.Forbidden(c, "no access to this business")
		return
	}
	if businessID == 0 {
		response.BadRequest(c, "business_id is required")
		return
	}

	rankLimit, _ := strconv.Atoi(c.Query("limit"))
	resp, err := h.dashboardService.GetStats(&services.DashboardStatsRequest{
		BusinessID:  businessID,
		StartDate:   c.Query("start_date"),
		EndDate:     c.Query("end_date"),
		Granularity: c.DefaultQuery("granularity", "day"),
		RankLimit:   rankLimit,
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, resp)
}
