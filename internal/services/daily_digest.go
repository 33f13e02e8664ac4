package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/raterly/backend/internal/config"
	"github.com/raterly/backend/internal/models"
	"github.com/raterly/backend/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// DigestService builds and delivers the per-business daily digest: counts,
// averages, sentiment split and rankings for the previous calendar day.
// Digests skip holidays according to each business's country calendar.
type DigestService struct {
	db             *gorm.DB
	cfg            *config.DigestConfig
	agg            *AggregationService
	businesses     *BusinessService
	holidays       *HolidayService
	notifications  *NotificationService
	cronScheduler  *cron.Cron
	currentEntryID cron.EntryID
}

func NewDigestService(db *gorm.DB, cfg *config.DigestConfig, businesses *BusinessService) *DigestService {
	return &DigestService{
		db:            db,
		cfg:           cfg,
		agg:           NewAggregationService(db),
		businesses:    businesses,
		holidays:      NewHolidayService(),
		notifications: NewNotificationService(),
	}
}

func (s *DigestService) StartScheduler() {
	if !s.cfg.Enabled {
		logger.Info().Msg("[Digest] Scheduler disabled")
		return
	}

	s.cronScheduler = cron.New()
	s.updateSchedule()
	s.cronScheduler.Start()
	logger.Info().Msg("[Digest] Scheduler started")
}

func (s *DigestService) StopScheduler() {
	if s.cronScheduler != nil {
		s.cronScheduler.Stop()
	}
}

func (s *DigestService) updateSchedule() {
	if s.currentEntryID != 0 {
		s.cronScheduler.Remove(s.currentEntryID)
	}

	parts := strings.Split(s.cfg.Time, ":")
	hour := "18"
	minute := "0"
	if len(parts) == 2 {
		hour = parts[0]
		minute = parts[1]
	}

	cronExpr := fmt.Sprintf("%s %s * * *", minute, hour)

	entryID, err := s.cronScheduler.AddFunc(cronExpr, func() {
		s.GenerateAll(time.Now())
	})
	if err != nil {
		logger.Errorf("[Digest] Failed to add cron job: %v", err)
		return
	}

	s.currentEntryID = entryID
	logger.Infof("[Digest] Scheduled at %s (cron: %s)", s.cfg.Time, cronExpr)
}

// GenerateAll builds yesterday's digest for every opted-in business whose
// calendar says now is a workday.
func (s *DigestService) GenerateAll(now time.Time) {
	businesses, err := s.businesses.ListDigestEnabled()
	if err != nil {
		logger.Errorf("[Digest] %v", err)
		return
	}

	day := startOfDay(now).AddDate(0, 0, -1)
	for i := range businesses {
		biz := &businesses[i]
		if !s.holidays.IsWorkday(now, biz.Country) {
			logger.Infof("[Digest] Skipping business %d: holiday in %s", biz.ID, biz.Country)
			continue
		}
		if _, err := s.GenerateForBusiness(biz, day); err != nil {
			logger.Errorf("[Digest] business %d: %v", biz.ID, err)
		}
	}
}

// GenerateForBusiness builds (or rebuilds) one business's digest for the
// given day and pushes it to the webhook. Owner-tier visibility: pending and
// flagged reviews count.
func (s *DigestService) GenerateForBusiness(biz *models.Business, day time.Time) (*models.DailyDigest, error) {
	dayStart := startOfDay(day)
	scope := ReviewScope{
		BusinessID:         biz.ID,
		Start:              dayStart,
		End:                dayStart.AddDate(0, 0, 1),
		IncludeUnpublished: true,
		IncludePrivate:     true,
	}

	count, err := s.agg.CountInRange(scope)
	if err != nil {
		return nil, err
	}
	avg, err := s.agg.AverageRating(scope)
	if err != nil {
		return nil, err
	}
	sentiment, err := s.agg.SentimentBreakdown(scope)
	if err != nil {
		return nil, err
	}

	topStaff, err := s.rankingJSON(RankByStaff, scope)
	if err != nil {
		return nil, err
	}
	topBranches, err := s.rankingJSON(RankByBranch, scope)
	if err != nil {
		return nil, err
	}

	pending, flagged, err := s.statusCounts(biz.ID, scope.Start, scope.End)
	if err != nil {
		return nil, err
	}

	digest := &models.DailyDigest{
		BusinessID:    biz.ID,
		ReportDate:    dayStart,
		TotalReviews:  int(count),
		AverageRating: roundRating(avg),
		PositivePct:   sentiment.Positive,
		NeutralPct:    sentiment.Neutral,
		NegativePct:   sentiment.Negative,
		PendingCount:  pending,
		FlaggedCount:  flagged,
		TopStaff:      topStaff,
		TopBranches:   topBranches,
	}

	// Rebuilding the same day replaces the previous snapshot.
	var existing models.DailyDigest
	err = s.db.Where("business_id = ? AND report_date = ?", biz.ID, dayStart).First(&existing).Error
	if err == nil {
		digest.ID = existing.ID
	}
	if err := s.db.Save(digest).Error; err != nil {
		return nil, fmt.Errorf("failed to store digest: %w", err)
	}

	if err := s.notifications.SendDigest(biz, digest); err != nil {
		logger.Errorf("[Digest] webhook for business %d failed: %v", biz.ID, err)
		s.db.Model(digest).Update("notify_error", err.Error())
	} else if biz.WebhookURL != "" {
		now := time.Now()
		s.db.Model(digest).Update("notified_at", now)
	}
	return digest, nil
}

func (s *DigestService) rankingJSON(dimension RankDimension, scope ReviewScope) (string, error) {
	entries, err := s.agg.TopN(dimension, scope, 3, 1)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *DigestService) statusCounts(businessID uint, start, end time.Time) (pending, flagged int, err error) {
	type row struct {
		Status string
		N      int
	}
	var rows []row
	err = s.db.Model(&models.Review{}).
		Select("status, COUNT(*) AS n").
		Where("business_id = ? AND created_at >= ? AND created_at < ?", businessID, start, end).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return 0, 0, err
	}
	for _, r := range rows {
		switch r.Status {
		case models.ReviewStatusPending:
			pending = r.N
		case models.ReviewStatusFlagged:
			flagged = r.N
		}
	}
	return pending, flagged, nil
}
