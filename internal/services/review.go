package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/raterly/backend/internal/models"
	"gorm.io/gorm"
)

// ReviewListRequest filters and paginates a review listing.
type ReviewListRequest struct {
	Scope    ReviewScope
	Status   string // Optional exact-status filter, admin views only
	Page     int
	PageSize int
}

// ReviewListResult is one page of reviews with the total match count.
type ReviewListResult struct {
	Reviews  []models.Review `json:"reviews"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// ReviewService handles review administration: listing, moderation
// decisions, owner replies and display ordering. Statuses set here are
// human decisions and are never rewritten by the intake threshold.
type ReviewService struct {
	db     *gorm.DB
	scopes *ScopeFilter
	rating *RatingService
}

func NewReviewService(db *gorm.DB) *ReviewService {
	return &ReviewService{
		db:     db,
		scopes: NewScopeFilter(db),
		rating: NewRatingService(db),
	}
}

// List returns one page of reviews in the scope, newest first, with
// display ratings recomputed from answers.
func (s *ReviewService) List(req *ReviewListRequest) (*ReviewListResult, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 || req.PageSize > 100 {
		req.PageSize = 20
	}

	q := s.scopes.Query(req.Scope)
	if req.Status != "" {
		q = q.Where("reviews.status = ?", req.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}

	var reviews []models.Review
	err := q.Order("reviews.order_no DESC, reviews.created_at DESC").
		Offset((req.Page - 1) * req.PageSize).
		Limit(req.PageSize).
		Find(&reviews).Error
	if err != nil {
		return nil, err
	}

	ids := make([]uint, len(reviews))
	for i, r := range reviews {
		ids[i] = r.ID
	}
	ratings, err := s.rating.ComputeRatings(ids)
	if err != nil {
		return nil, err
	}
	for i := range reviews {
		if rating, ok := ratings[reviews[i].ID]; ok {
			reviews[i].Rate = rating
		}
	}

	return &ReviewListResult{
		Reviews:  reviews,
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
	}, nil
}

// GetByPublicID loads one review by its public identifier.
func (s *ReviewService) GetByPublicID(publicID string) (*models.Review, error) {
	var review models.Review
	err := s.db.Where("public_id = ?", publicID).First(&review).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Entity: "review"}
	}
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (s *ReviewService) get(id uint) (*models.Review, error) {
	var review models.Review
	err := s.db.First(&review, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Entity: "review", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// UpdateStatus records a moderation decision.
func (s *ReviewService) UpdateStatus(id uint, status string) (*models.Review, error) {
	switch status {
	case models.ReviewStatusPending, models.ReviewStatusPublished, models.ReviewStatusFlagged:
	default:
		return nil, newValidationError("unknown status %q", status)
	}

	review, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(review).Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("failed to update review %d: %w", id, err)
	}
	review.Status = status
	return review, nil
}

// SetPrivacy toggles whether a review is withheld from public listings.
func (s *ReviewService) SetPrivacy(id uint, private bool) (*models.Review, error) {
	review, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(review).Update("is_private", private).Error; err != nil {
		return nil, err
	}
	review.IsPrivate = private
	return review, nil
}

// SetOrder pins a review's display position. Higher values sort first.
func (s *ReviewService) SetOrder(id uint, orderNo int) (*models.Review, error) {
	review, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(review).Update("order_no", orderNo).Error; err != nil {
		return nil, err
	}
	review.OrderNo = orderNo
	return review, nil
}

// Reply stores the owner's response to a review.
func (s *ReviewService) Reply(id uint, comment string) (*models.Review, error) {
	if comment == "" {
		return nil, newValidationError("reply comment must not be empty")
	}
	review, err := s.get(id)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	updates := map[string]interface{}{
		"reply_comment": comment,
		"responded_at":  now,
	}
	if err := s.db.Model(review).Updates(updates).Error; err != nil {
		return nil, err
	}
	review.ReplyComment = comment
	review.RespondedAt = &now
	return review, nil
}

// Delete soft-deletes a review; it disappears from every scope.
func (s *ReviewService) Delete(id uint) error {
	review, err := s.get(id)
	if err != nil {
		return err
	}
	return s.db.Delete(review).Error
}
