package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/raterly/backend/internal/models"
	"github.com/raterly/backend/internal/services"
	"github.com/raterly/backend/pkg/response"
	"gorm.io/gorm"
)

type DigestHandler struct {
	db         *gorm.DB
	digests    *services.DigestService
	businesses *services.BusinessService
	holidays   *services.HolidayService
}

func NewDigestHandler(db *gorm.DB, digests *services.DigestService, businesses *services.BusinessService) *DigestHandler {
	return &DigestHandler{
		db:         db,
		digests:    digests,
		businesses: businesses,
		holidays:   services.NewHolidayService(),
	}
}

// List returns stored digests for a business, newest first
// GET /api/digests
func (h *DigestHandler) List(c *gin.Context) {
	businessID, ok := resolveBusinessID(c, h.db)
	if !ok || businessID == 0 {
		response.Forbidden(c, "no access to this business")
		return
	}

	var digests []models.DailyDigest
	err := h.db.Where("business_id = ?", businessID).
		Order("report_date DESC").
		Limit(30).
		Find(&digests).Error
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, digests)
}

// Generate rebuilds a digest on demand
// POST /api/digests/generate
func (h *DigestHandler) Generate(c *gin.Context) {
	businessID, ok := resolveBusinessID(c, h.db)
	if !ok || businessID == 0 {
		response.Forbidden(c, "no access to this business")
		return
	}

	day := services.YesterdayFor(time.Now())
	if v := c.Query("date"); v != "" {
		parsed, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			response.BadRequest(c, "invalid date, expected YYYY-MM-DD")
			return
		}
		day = parsed
	}

	biz, err := h.businesses.Get(businessID)
	if err != nil {
		serviceError(c, err)
		return
	}
	digest, err := h.digests.GenerateForBusiness(biz, day)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, digest)
}

// Countries lists the supported holiday calendars
// GET /api/digests/countries
func (h *DigestHandler) Countries(c *gin.Context) {
	response.Success(c, h.holidays.GetSupportedCountries())
}
