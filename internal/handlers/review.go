package handlers

import (
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/raterly/backend/internal/services"
	"github.com/raterly/backend/internal/utils"
	"github.com/raterly/backend/pkg/response"
	"gorm.io/gorm"
)

type ReviewHandler struct {
	db      *gorm.DB
	intake  *services.IntakeService
	reviews *services.ReviewService
}

func NewReviewHandler(db *gorm.DB, intake *services.IntakeService) *ReviewHandler {
	return &ReviewHandler{
		db:      db,
		intake:  intake,
		reviews: services.NewReviewService(db),
	}
}

type createReviewBody struct {
	services.SubmitReviewRequest
	AudioBase64   string `json:"audio_base64"`
	AudioFilename string `json:"audio_filename"`
}

// Create accepts a review submission
// POST /api/reviews
func (h *ReviewHandler) Create(c *gin.Context) {
	var body createReviewBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	req := body.SubmitReviewRequest
	req.IPAddress = c.ClientIP()

	// Submission is open to guests; an attached valid token makes it a
	// registered review.
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		if claims, err := utils.ParseToken(strings.TrimPrefix(auth, "Bearer ")); err == nil {
			req.UserID = &claims.UserID
		}
	}

	if body.AudioBase64 != "" {
		audio, err := base64.StdEncoding.DecodeString(body.AudioBase64)
		if err != nil {
			response.BadRequest(c, "audio_base64 is not valid base64")
			return
		}
		req.Audio = audio
		req.AudioFilename = body.AudioFilename
		if req.AudioFilename == "" {
			req.AudioFilename = "review.mp3"
		}
	}

	review, err := h.intake.SubmitReview(c.Request.Context(), &req)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Created(c, review)
}

// ListPublic returns the published reviews of a business
// GET /api/businesses/:id/reviews
func (h *ReviewHandler) ListPublic(c *gin.Context) {
	businessID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid business id")
		return
	}

	scope := services.ReviewScope{BusinessID: uint(businessID)}
	switch c.Query("partition") {
	case "guest":
		scope.Partition = services.PartitionGuest
	case "registered":
		scope.Partition = services.PartitionRegistered
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	result, err := h.reviews.List(&services.ReviewListRequest{
		Scope:    scope,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, result)
}

// List returns the full review listing for business administration
// GET /api/reviews
func (h *ReviewHandler) List(c *gin.Context) {
	businessID, ok := resolveBusinessID(c, h.db)
	if !ok {
		response.Forbidden(c, "no access to this business")
		return
	}
	scope, err := scopeFromQuery(c, businessID)
	if err != nil {
		serviceError(c, err)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	result, err := h.reviews.List(&services.ReviewListRequest{
		Scope:    scope,
		Status:   c.Query("status"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *ReviewHandler) reviewID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid review id")
		return 0, false
	}
	return uint(id), true
}

// UpdateStatus records a moderation decision
// PUT /api/reviews/:id/status
func (h *ReviewHandler) UpdateStatus(c *gin.Context) {
	id, ok := h.reviewID(c)
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	review, err := h.reviews.UpdateStatus(id, body.Status)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, review)
}

// SetPrivacy toggles public visibility
// PUT /api/reviews/:id/privacy
func (h *ReviewHandler) SetPrivacy(c *gin.Context) {
	id, ok := h.reviewID(c)
	if !ok {
		return
	}
	var body struct {
		IsPrivate *bool `json:"is_private" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	review, err := h.reviews.SetPrivacy(id, *body.IsPrivate)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, review)
}

// SetOrder pins a review's display position
// PUT /api/reviews/:id/order
func (h *ReviewHandler) SetOrder(c *gin.Context) {
	id, ok := h.reviewID(c)
	if !ok {
		return
	}
	var body struct {
		OrderNo int `json:"order_no"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	review, err := h.reviews.SetOrder(id, body.OrderNo)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, review)
}

// Reply stores the owner's response
// POST /api/reviews/:id/reply
func (h *ReviewHandler) Reply(c *gin.Context) {
	id, ok := h.reviewID(c)
	if !ok {
		return
	}
	var body struct {
		Comment string `json:"comment" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	review, err := h.reviews.Reply(id, body.Comment)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, review)
}

// Delete soft-deletes a review
// DELETE /api/reviews/:id
func (h *ReviewHandler) Delete(c *gin.Context) {
	id, ok := h.reviewID(c)
	if !ok {
		return
	}
	if err := h.reviews.Delete(id); err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": id})
}
