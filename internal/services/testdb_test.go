package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/raterly/backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory database and migrates the full schema.
// The DSN is named per test so pooled connections share one database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.GuestUser{},
		&models.Business{},
		&models.Branch{},
		&models.Survey{},
		&models.Question{},
		&models.Star{},
		&models.Tag{},
		&models.Review{},
		&models.Answer{},
		&models.DailyDigest{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// seedStars creates stars 1..5 and returns their ids indexed by value.
func seedStars(t *testing.T, db *gorm.DB) map[int]uint {
	t.Helper()

	ids := make(map[int]uint, 5)
	for v := 1; v <= 5; v++ {
		star := models.Star{Value: v, IsDefault: true}
		if err := db.Create(&star).Error; err != nil {
			t.Fatalf("failed to seed star %d: %v", v, err)
		}
		ids[v] = star.ID
	}
	return ids
}

// seedQuestions creates n active overall questions for a business.
func seedQuestions(t *testing.T, db *gorm.DB, businessID uint, n int) []uint {
	t.Helper()

	ids := make([]uint, 0, n)
	for i := 0; i < n; i++ {
		q := models.Question{
			Text:       "How was it?",
			BusinessID: &businessID,
			IsOverall:  true,
			IsActive:   true,
		}
		if err := db.Create(&q).Error; err != nil {
			t.Fatalf("failed to seed question: %v", err)
		}
		ids = append(ids, q.ID)
	}
	return ids
}

func seedBusiness(t *testing.T, db *gorm.DB, name string) *models.Business {
	t.Helper()

	biz := models.Business{Name: name, PublishThreshold: 0}
	if err := db.Create(&biz).Error; err != nil {
		t.Fatalf("failed to seed business: %v", err)
	}
	return &biz
}

// seedReview creates a review plus one answer per star value given.
func seedReview(t *testing.T, db *gorm.DB, review *models.Review, questionIDs []uint, stars map[int]uint, values ...int) *models.Review {
	t.Helper()

	if review.Status == "" {
		review.Status = models.ReviewStatusPublished
	}
	if review.PublicID == "" {
		review.PublicID = uuid.NewString()
	}
	if err := db.Create(review).Error; err != nil {
		t.Fatalf("failed to seed review: %v", err)
	}
	for i, v := range values {
		answer := models.Answer{
			ReviewID:   review.ID,
			QuestionID: questionIDs[i%len(questionIDs)],
			StarID:     stars[v],
		}
		if err := db.Create(&answer).Error; err != nil {
			t.Fatalf("failed to seed answer: %v", err)
		}
	}
	return review
}
