package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/raterly/backend/internal/models"
	"github.com/raterly/backend/pkg/logger"
	"gorm.io/gorm"
)

// AnswerInput is one submitted (question, star, tag) tuple.
type AnswerInput struct {
	QuestionID uint  `json:"question_id" binding:"required"`
	StarID     uint  `json:"star_id" binding:"required"`
	TagID      *uint `json:"tag_id"`
}

// SubmitReviewRequest carries everything a submission needs. A request with
// UserID set is a registered review; otherwise a guest record is attached
// when guest details are present, and the review is anonymous when neither
// is given.
type SubmitReviewRequest struct {
	BusinessID uint   `json:"business_id" binding:"required"`
	BranchID   *uint  `json:"branch_id"`
	SurveyID   *uint  `json:"survey_id"`
	StaffID    *uint  `json:"staff_id"`
	UserID     *uint  `json:"-"` // From auth context, never from the body
	GuestID    *uint  `json:"guest_id"`
	GuestName  string `json:"guest_name"`
	GuestPhone string `json:"guest_phone"`

	Comment   string        `json:"comment"`
	Answers   []AnswerInput `json:"answers"`
	IsOverall bool          `json:"is_overall"`
	IsPrivate bool          `json:"is_private"`

	Audio         []byte `json:"-"` // Decoded by the handler from multipart/base64
	AudioFilename string `json:"-"`

	IPAddress string   `json:"-"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// IntakeService runs the review submission pipeline: abuse gates, content
// moderation, enrichment, then transactional persistence with threshold
// evaluation. Threshold evaluation is serialized per business so concurrent
// submissions observe each other.
type IntakeService struct {
	db         *gorm.DB
	businesses *BusinessService
	moderation *ModerationService
	enricher   *SafeEnricher
	queue      TaskQueue

	mu            sync.Mutex
	businessLocks map[uint]*sync.Mutex
}

func NewIntakeService(db *gorm.DB, businesses *BusinessService, enricher *SafeEnricher, queue TaskQueue) *IntakeService {
	return &IntakeService{
		db:            db,
		businesses:    businesses,
		moderation:    NewModerationService(),
		enricher:      enricher,
		queue:         queue,
		businessLocks: make(map[uint]*sync.Mutex),
	}
}

func (s *IntakeService) businessLock(businessID uint) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.businessLocks[businessID]
	if !ok {
		lock = &sync.Mutex{}
		s.businessLocks[businessID] = lock
	}
	return lock
}

// SubmitReview validates, gates, enriches and persists one submission.
// On success the returned review carries its final status: published when
// the business-wide average (including this review) clears the publish
// threshold, pending otherwise, flagged when moderation held it.
func (s *IntakeService) SubmitReview(ctx context.Context, req *SubmitReviewRequest) (*models.Review, error) {
	biz, err := s.businesses.Get(req.BusinessID)
	if err != nil {
		return nil, err
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}

	isGuest := req.UserID == nil

	// Abuse gates apply to unauthenticated submissions only.
	if isGuest && biz.IPCheckEnabled {
		if err := s.checkIPGate(req); err != nil {
			return nil, err
		}
	}
	if isGuest && biz.GeoCheckEnabled {
		if err := checkGeoGate(biz, req); err != nil {
			return nil, err
		}
	}

	mod := s.moderation.Moderate(req.Comment)
	if mod.Blocked() {
		return nil, &BlockedContentError{Categories: mod.Categories}
	}

	sentiment := s.enricher.ScoreSentiment(ctx, req.Comment)
	topics := s.enricher.ExtractTopics(ctx, req.Comment)

	starValues, err := s.loadStarValues(req.Answers)
	if err != nil {
		return nil, err
	}

	review := &models.Review{
		PublicID:       uuid.NewString(),
		BusinessID:     req.BusinessID,
		BranchID:       req.BranchID,
		SurveyID:       req.SurveyID,
		StaffID:        req.StaffID,
		UserID:         req.UserID,
		GuestID:        req.GuestID,
		Comment:        req.Comment,
		Rate:           rateFromAnswers(req.Answers, starValues),
		SentimentScore: sentiment,
		Topics:         strings.Join(topics, ","),
		ModerationNote: mod.Note(),
		Status:         models.ReviewStatusPending,
		IsOverall:      req.IsOverall,
		IsPrivate:      req.IsPrivate,
		IPAddress:      req.IPAddress,
	}

	lock := s.businessLock(req.BusinessID)
	lock.Lock()
	defer lock.Unlock()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if isGuest && req.GuestID == nil && (req.GuestName != "" || req.GuestPhone != "") {
			guest := models.GuestUser{Name: req.GuestName, Phone: req.GuestPhone}
			if err := tx.Create(&guest).Error; err != nil {
				return err
			}
			review.GuestID = &guest.ID
		}

		if err := tx.Create(review).Error; err != nil {
			return err
		}
		for _, a := range req.Answers {
			answer := models.Answer{
				ReviewID:   review.ID,
				QuestionID: a.QuestionID,
				StarID:     a.StarID,
				TagID:      a.TagID,
			}
			if err := tx.Create(&answer).Error; err != nil {
				return err
			}
		}

		// Flagged reviews skip threshold evaluation and wait for a human.
		if mod.Flagged() {
			review.Status = models.ReviewStatusFlagged
		} else {
			status, err := s.evaluateThreshold(tx, biz, review.ID)
			if err != nil {
				return err
			}
			review.Status = status
		}
		return tx.Model(review).Update("status", review.Status).Error
	})
	if err != nil {
		return nil, &InconsistentStateError{Err: err}
	}

	if len(req.Audio) > 0 {
		task := &TranscriptionTask{
			ReviewID: review.ID,
			Audio:    req.Audio,
			Filename: req.AudioFilename,
		}
		if err := s.queue.EnqueueTranscription(task); err != nil {
			// The review stands; transcription is best-effort.
			logger.Errorf("failed to enqueue transcription for review %d: %v", review.ID, err)
		}
	}

	logger.Infof("review %s accepted for business %d with status %s", review.PublicID, review.BusinessID, review.Status)
	return review, nil
}

// evaluateThreshold recomputes the business-wide published-tier average
// including the new review and decides its status. A business with no
// publish threshold publishes everything.
func (s *IntakeService) evaluateThreshold(tx *gorm.DB, biz *models.Business, newReviewID uint) (string, error) {
	if biz.PublishThreshold <= 0 {
		return models.ReviewStatusPublished, nil
	}

	var ids []uint
	err := tx.Model(&models.Review{}).
		Where("business_id = ? AND (status = ? OR id = ?)", biz.ID, models.ReviewStatusPublished, newReviewID).
		Pluck("id", &ids).Error
	if err != nil {
		return "", err
	}

	ratings, err := NewRatingService(tx).ComputeRatings(ids)
	if err != nil {
		return "", err
	}
	if len(ratings) == 0 {
		// Comment-only submission with no rated history: nothing to
		// measure against, so it publishes.
		return models.ReviewStatusPublished, nil
	}

	var sum float64
	for _, r := range ratings {
		sum += r
	}
	if sum/float64(len(ratings)) >= biz.PublishThreshold {
		return models.ReviewStatusPublished, nil
	}
	return models.ReviewStatusPending, nil
}

func (s *IntakeService) validate(req *SubmitReviewRequest) error {
	if len(req.Answers) == 0 && strings.TrimSpace(req.Comment) == "" && len(req.Audio) == 0 {
		return newValidationError("a review needs answers, a comment or audio")
	}
	if req.BranchID != nil {
		var branch models.Branch
		err := s.db.First(&branch, *req.BranchID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && branch.BusinessID != req.BusinessID) {
			return newValidationError("branch %d does not belong to business %d", *req.BranchID, req.BusinessID)
		}
		if err != nil {
			return err
		}
	}
	if req.SurveyID != nil {
		var survey models.Survey
		err := s.db.First(&survey, *req.SurveyID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && survey.BusinessID != req.BusinessID) {
			return newValidationError("survey %d does not belong to business %d", *req.SurveyID, req.BusinessID)
		}
		if err != nil {
			return err
		}
	}
	if req.StaffID != nil {
		var staff models.User
		err := s.db.First(&staff, *req.StaffID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newValidationError("staff %d not found", *req.StaffID)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// checkIPGate rejects a second guest submission from one IP to the same
// business within the current calendar day.
func (s *IntakeService) checkIPGate(req *SubmitReviewRequest) error {
	if req.IPAddress == "" {
		return nil
	}
	dayStart := startOfDay(time.Now())
	var count int64
	err := s.db.Model(&models.Review{}).
		Where("business_id = ? AND ip_address = ? AND user_id IS NULL AND created_at >= ?",
			req.BusinessID, req.IPAddress, dayStart).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("ip gate lookup failed: %w", err)
	}
	if count > 0 {
		return &AbuseGateError{Reason: "a review from this address was already submitted today"}
	}
	return nil
}

// checkGeoGate rejects guest submissions outside the business geofence.
func checkGeoGate(biz *models.Business, req *SubmitReviewRequest) error {
	if req.Latitude == nil || req.Longitude == nil {
		return &AbuseGateError{Reason: "location is required for this business"}
	}
	here := orb.Point{*req.Longitude, *req.Latitude}
	site := orb.Point{biz.Longitude, biz.Latitude}
	if geo.DistanceHaversine(here, site) > biz.GeoRadiusM {
		return &AbuseGateError{Reason: fmt.Sprintf("submission must come from within %.0f m of the business", biz.GeoRadiusM)}
	}
	return nil
}

// loadStarValues resolves the star ids referenced by a submission.
func (s *IntakeService) loadStarValues(answers []AnswerInput) (map[uint]int, error) {
	values := make(map[uint]int)
	if len(answers) == 0 {
		return values, nil
	}

	ids := make([]uint, 0, len(answers))
	for _, a := range answers {
		ids = append(ids, a.StarID)
	}
	var stars []models.Star
	if err := s.db.Where("id IN ?", ids).Find(&stars).Error; err != nil {
		return nil, fmt.Errorf("failed to load stars: %w", err)
	}
	for _, star := range stars {
		values[star.ID] = star.Value
	}
	for _, a := range answers {
		if _, ok := values[a.StarID]; !ok {
			return nil, newValidationError("star %d not found", a.StarID)
		}
	}
	return values, nil
}

// rateFromAnswers mirrors ComputeRatings for an in-memory answer set: mean
// over distinct questions, first answer per question, one decimal place.
func rateFromAnswers(answers []AnswerInput, starValues map[uint]int) float64 {
	seen := make(map[uint]bool)
	var sum float64
	count := 0
	for _, a := range answers {
		if seen[a.QuestionID] {
			continue
		}
		seen[a.QuestionID] = true
		sum += float64(starValues[a.StarID])
		count++
	}
	if count == 0 {
		return 0
	}
	return roundRating(sum / float64(count))
}
