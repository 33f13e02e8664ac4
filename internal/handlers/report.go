package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/raterly/backend/internal/models"
	"github.com/raterly/backend/internal/services"
	"github.com/raterly/backend/pkg/response"
	"gorm.io/gorm"
)

type ReportHandler struct {
	db  *gorm.DB
	agg *services.AggregationService
}

func NewReportHandler(db *gorm.DB) *ReportHandler {
	return &ReportHandler{db: db, agg: services.NewAggregationService(db)}
}

func (h *ReportHandler) scope(c *gin.Context) (services.ReviewScope, bool) {
	businessID, ok := resolveBusinessID(c, h.db)
	if !ok {
		response.Forbidden(c, "no access to this business")
		return services.ReviewScope{}, false
	}
	scope, err := scopeFromQuery(c, businessID)
	if err != nil {
		serviceError(c, err)
		return services.ReviewScope{}, false
	}
	return scope, true
}

// Summary returns count, average and period-over-period change
// GET /api/reports/summary
func (h *ReportHandler) Summary(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}

	count, err := h.agg.CountInRange(scope)
	if err != nil {
		serviceError(c, err)
		return
	}
	avg, err := h.agg.AverageRating(scope)
	if err != nil {
		serviceError(c, err)
		return
	}

	result := gin.H{
		"count":          count,
		"average_rating": avg,
	}
	if !scope.Start.IsZero() && !scope.End.IsZero() {
		change, err := h.agg.CountChange(scope)
		if err != nil {
			serviceError(c, err)
			return
		}
		result["change"] = change
	}
	response.Success(c, result)
}

// Trend returns per-bucket counts and averages
// GET /api/reports/trend
func (h *ReportHandler) Trend(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	if scope.Start.IsZero() || scope.End.IsZero() {
		response.BadRequest(c, "start_date and end_date are required")
		return
	}

	buckets := services.BucketsFor(c.DefaultQuery("granularity", "day"), scope.Start, scope.End.AddDate(0, 0, -1))
	stats, err := h.agg.BreakdownByBucket(scope, buckets)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, stats)
}

// Top ranks staff, branches or tags
// GET /api/reports/top/:dimension
func (h *ReportHandler) Top(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}

	dimension := services.RankDimension(c.Param("dimension"))
	n, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))
	minSample, _ := strconv.Atoi(c.Query("min_sample"))

	entries, err := h.agg.TopN(dimension, scope, n, minSample)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, entries)
}

// Sentiment returns the positive/neutral/negative split
// GET /api/reports/sentiment
func (h *ReportHandler) Sentiment(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}

	stats, err := h.agg.SentimentBreakdown(scope)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, stats)
}

// CompareBranches names the best and worst branch of a business
// GET /api/reports/compare/branches
func (h *ReportHandler) CompareBranches(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}

	var branches []models.Branch
	if err := h.db.Where("business_id = ?", scope.BusinessID).Find(&branches).Error; err != nil {
		response.ServerError(c, err.Error())
		return
	}
	if len(branches) == 0 {
		response.Success(c, services.Insight{})
		return
	}

	entries := make([]services.NamedScope, 0, len(branches))
	for i := range branches {
		branchScope := scope
		branchScope.BranchID = &branches[i].ID
		entries = append(entries, services.NamedScope{
			ID:    branches[i].ID,
			Label: branches[i].Name,
			Scope: branchScope,
		})
	}

	insight, err := h.agg.ComparativeInsight(entries)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, insight)
}
