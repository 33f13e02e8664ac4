package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/raterly/backend/internal/middleware"
	"github.com/raterly/backend/internal/models"
	"github.com/raterly/backend/internal/services"
	"gorm.io/gorm"
)

// resolveBusinessID decides which tenant a protected request operates on.
// Superadmins may name any business; owners and staff are pinned to their
// own, and the query parameter defaults to it when omitted.
func resolveBusinessID(c *gin.Context, db *gorm.DB) (uint, bool) {
	requested, _ := strconv.ParseUint(c.Query("business_id"), 10, 32)

	if middleware.IsSuperadmin(c) {
		return uint(requested), true
	}

	var user models.User
	if err := db.First(&user, middleware.GetUserID(c)).Error; err != nil || user.BusinessID == nil {
		return 0, false
	}
	if requested != 0 && uint(requested) != *user.BusinessID {
		return 0, false
	}
	return *user.BusinessID, true
}

// scopeFromQuery builds an admin-tier scope from the common report query
// parameters. Dates are inclusive YYYY-MM-DD and become half-open bounds.
func scopeFromQuery(c *gin.Context, businessID uint) (services.ReviewScope, error) {
	scope := services.ReviewScope{
		BusinessID:         businessID,
		IncludeUnpublished: true,
		IncludePrivate:     true,
	}
	if businessID == 0 && middleware.IsSuperadmin(c) {
		scope.BypassTenant = true
	}

	if v := c.Query("branch_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return scope, &services.ValidationError{Msg: "invalid branch_id"}
		}
		branchID := uint(id)
		scope.BranchID = &branchID
	}
	if v := c.Query("staff_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return scope, &services.ValidationError{Msg: "invalid staff_id"}
		}
		staffID := uint(id)
		scope.StaffID = &staffID
	}
	if v := c.Query("survey_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return scope, &services.ValidationError{Msg: "invalid survey_id"}
		}
		surveyID := uint(id)
		scope.SurveyID = &surveyID
	}
	if v := c.Query("is_overall"); v != "" {
		overall := v == "true" || v == "1"
		scope.IsOverall = &overall
	}
	switch c.Query("partition") {
	case "guest":
		scope.Partition = services.PartitionGuest
	case "registered":
		scope.Partition = services.PartitionRegistered
	}

	if v := c.Query("start_date"); v != "" {
		parsed, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			return scope, &services.ValidationError{Msg: "invalid start_date, expected YYYY-MM-DD"}
		}
		scope.Start = parsed
	}
	if v := c.Query("end_date"); v != "" {
		parsed, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			return scope, &services.ValidationError{Msg: "invalid end_date, expected YYYY-MM-DD"}
		}
		scope.End = parsed.AddDate(0, 0, 1)
	}
	return scope, nil
}
