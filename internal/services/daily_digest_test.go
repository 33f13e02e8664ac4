package services

import (
	"testing"
	"time"

	"github.com/raterly/backend/internal/config"
	"github.com/raterly/backend/internal/models"
)

func TestGenerateForBusiness(t *testing.T) {
	db := newTestDB(t)
	stars := seedStars(t, db)
	biz := seedBusiness(t, db, "Cafe One")
	questions := seedQuestions(t, db, biz.ID, 1)

	yesterday := startOfDay(time.Now()).AddDate(0, 0, -1)
	within := yesterday.Add(10 * time.Hour)

	r1 := seedReview(t, db, &models.Review{BusinessID: biz.ID}, questions, stars, 5)
	r2 := seedReview(t, db, &models.Review{BusinessID: biz.ID, Status: models.ReviewStatusPending}, questions, stars, 3)
	r3 := seedReview(t, db, &models.Review{BusinessID: biz.ID, Status: models.ReviewStatusFlagged}, questions, stars, 1)
	for _, r := range []*models.Review{r1, r2, r3} {
		db.Model(r).Update("created_at", within)
	}
	// Outside the report day: ignored.
	seedReview(t, db, &models.Review{BusinessID: biz.ID}, questions, stars, 1)

	svc := NewDigestService(db, &config.DigestConfig{Enabled: true, Time: "18:00"}, NewBusinessService(db))
	digest, err := svc.GenerateForBusiness(biz, yesterday)
	if err != nil {
		t.Fatalf("GenerateForBusiness failed: %v", err)
	}

	if digest.TotalReviews != 3 {
		t.Errorf("total = %d, expected 3", digest.TotalReviews)
	}
	if digest.AverageRating != 3.0 {
		t.Errorf("average = %v, expected 3.0", digest.AverageRating)
	}
	if digest.PendingCount != 1 || digest.FlaggedCount != 1 {
		t.Errorf("pending/flagged = %d/%d, expected 1/1", digest.PendingCount, digest.FlaggedCount)
	}
	if digest.NotifiedAt != nil {
		t.Error("no webhook configured, digest should not be marked notified")
	}

	// Regenerating the same day replaces, not duplicates.
	if _, err := svc.GenerateForBusiness(biz, yesterday); err != nil {
		t.Fatalf("second GenerateForBusiness failed: %v", err)
	}
	var count int64
	db.Model(&models.DailyDigest{}).Where("business_id = ?", biz.ID).Count(&count)
	if count != 1 {
		t.Errorf("expected 1 stored digest, got %d", count)
	}
}

func TestHolidayService_Weekends(t *testing.T) {
	svc := NewHolidayService()

	saturday := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)
	monday := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)

	if svc.IsWorkday(saturday, "NONE") {
		t.Error("Saturday should not be a workday")
	}
	if !svc.IsWorkday(monday, "NONE") {
		t.Error("Monday should be a workday")
	}
	// Unknown country falls back to weekday logic.
	if !svc.IsWorkday(monday, "ZZ") {
		t.Error("unknown country should fall back to weekday logic")
	}
}

func TestHolidayService_USIndependenceDay(t *testing.T) {
	svc := NewHolidayService()

	// 2026-07-03 is the observed Independence Day (July 4 falls on Saturday).
	observed := time.Date(2026, 7, 3, 12, 0, 0, 0, time.UTC)
	if svc.IsWorkday(observed, "US") {
		t.Error("observed Independence Day should not be a US workday")
	}
}
