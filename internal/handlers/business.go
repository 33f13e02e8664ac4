package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/raterly/backend/internal/middleware"
	"github.com/raterly/backend/internal/models"
	"github.com/raterly/backend/internal/services"
	"github.com/raterly/backend/pkg/response"
	"gorm.io/gorm"
)

// BusinessHandler manages tenant records and their policy settings.
type BusinessHandler struct {
	db         *gorm.DB
	businesses *services.BusinessService
}

func NewBusinessHandler(db *gorm.DB, businesses *services.BusinessService) *BusinessHandler {
	return &BusinessHandler{db: db, businesses: businesses}
}

type businessBody struct {
	Name             string   `json:"name" binding:"required"`
	PublishThreshold *float64 `json:"publish_threshold"`
	IPCheckEnabled   *bool    `json:"ip_check_enabled"`
	GeoCheckEnabled  *bool    `json:"geo_check_enabled"`
	Latitude         *float64 `json:"latitude"`
	Longitude        *float64 `json:"longitude"`
	GeoRadiusM       *float64 `json:"geo_radius_m"`
	Country          string   `json:"country"`
	DigestEnabled    *bool    `json:"digest_enabled"`
	WebhookURL       *string  `json:"webhook_url"`
}

// Create registers a new business
// POST /api/businesses (superadmin)
func (h *BusinessHandler) Create(c *gin.Context) {
	var body businessBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	biz := models.Business{Name: body.Name, Country: "NONE", GeoRadiusM: 500}
	applyBusinessBody(&biz, &body)
	if err := h.db.Create(&biz).Error; err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Created(c, biz)
}

// Get returns one business
// GET /api/businesses/:id
func (h *BusinessHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid business id")
		return
	}

	biz, err := h.businesses.Get(uint(id))
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, biz)
}

// Update changes policy settings
// PUT /api/businesses/:id (owner of that business or superadmin)
func (h *BusinessHandler) Update(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid business id")
		return
	}
	if !middleware.IsSuperadmin(c) {
		var user models.User
		if err := h.db.First(&user, middleware.GetUserID(c)).Error; err != nil ||
			user.BusinessID == nil || *user.BusinessID != uint(id) || user.Role != "owner" {
			response.Forbidden(c, "no access to this business")
			return
		}
	}

	var body businessBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	biz, err := h.businesses.Get(uint(id))
	if err != nil {
		serviceError(c, err)
		return
	}
	biz.Name = body.Name
	applyBusinessBody(biz, &body)
	if err := h.businesses.Update(biz); err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, biz)
}

func applyBusinessBody(biz *models.Business, body *businessBody) {
	if body.PublishThreshold != nil {
		biz.PublishThreshold = *body.PublishThreshold
	}
	if body.IPCheckEnabled != nil {
		biz.IPCheckEnabled = *body.IPCheckEnabled
	}
	if body.GeoCheckEnabled != nil {
		biz.GeoCheckEnabled = *body.GeoCheckEnabled
	}
	if body.Latitude != nil {
		biz.Latitude = *body.Latitude
	}
	if body.Longitude != nil {
		biz.Longitude = *body.Longitude
	}
	if body.GeoRadiusM != nil {
		biz.GeoRadiusM = *body.GeoRadiusM
	}
	if body.Country != "" {
		biz.Country = body.Country
	}
	if body.DigestEnabled != nil {
		biz.DigestEnabled = *body.DigestEnabled
	}
	if body.WebhookURL != nil {
		biz.WebhookURL = *body.WebhookURL
	}
}
