package services

import (
	"testing"

	"github.com/raterly/backend/internal/models"
)

func TestComputeRatings_AveragesDistinctQuestions(t *testing.T) {
	db := newTestDB(t)
	stars := seedStars(t, db)
	biz := seedBusiness(t, db, "Cafe One")
	questions := seedQuestions(t, db, biz.ID, 3)

	review := seedReview(t, db, &models.Review{BusinessID: biz.ID}, questions, stars, 5, 4, 4)

	svc := NewRatingService(db)
	ratings, err := svc.ComputeRatings([]uint{review.ID})
	if err != nil {
		t.Fatalf("ComputeRatings failed: %v", err)
	}

	got, ok := ratings[review.ID]
	if !ok {
		t.Fatal("review should have a rating")
	}
	if got != 4.3 {
		t.Errorf("rating = %v, expected 4.3", got)
	}
}

func TestComputeRatings_DuplicateQuestionCountsOnce(t *testing.T) {
	db := newTestDB(t)
	stars := seedStars(t, db)
	biz := seedBusiness(t, db, "Cafe One")
	questions := seedQuestions(t, db, biz.ID, 1)

	// Two answers on the same question (tag fan-out): the first recorded
	// value wins and the denominator stays 1.
	review := seedReview(t, db, &models.Review{BusinessID: biz.ID}, questions, stars, 5, 2)

	svc := NewRatingService(db)
	ratings, err := svc.ComputeRatings([]uint{review.ID})
	if err != nil {
		t.Fatalf("ComputeRatings failed: %v", err)
	}

	if got := ratings[review.ID]; got != 5.0 {
		t.Errorf("rating = %v, expected 5.0 (first answer per question)", got)
	}
}

func TestComputeRatings_Deterministic(t *testing.T) {
	db := newTestDB(t)
	stars := seedStars(t, db)
	biz := seedBusiness(t, db, "Cafe One")
	questions := seedQuestions(t, db, biz.ID, 3)

	var ids []uint
	for i := 0; i < 10; i++ {
		r := seedReview(t, db, &models.Review{BusinessID: biz.ID}, questions, stars, 5, 3, i%5+1)
		ids = append(ids, r.ID)
	}

	svc := NewRatingService(db)
	first, err := svc.ComputeRatings(ids)
	if err != nil {
		t.Fatalf("ComputeRatings failed: %v", err)
	}
	second, err := svc.ComputeRatings(ids)
	if err != nil {
		t.Fatalf("second ComputeRatings failed: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("result sizes differ: %d vs %d", len(first), len(second))
	}
	for id, v := range first {
		if second[id] != v {
			t.Errorf("review %d: %v then %v", id, v, second[id])
		}
	}
}

func TestComputeRatings_NoAnswersAbsent(t *testing.T) {
	db := newTestDB(t)
	seedStars(t, db)
	biz := seedBusiness(t, db, "Cafe One")

	review := models.Review{BusinessID: biz.ID, Status: models.ReviewStatusPublished}
	if err := db.Create(&review).Error; err != nil {
		t.Fatalf("failed to create review: %v", err)
	}

	svc := NewRatingService(db)
	ratings, err := svc.ComputeRatings([]uint{review.ID})
	if err != nil {
		t.Fatalf("ComputeRatings failed: %v", err)
	}

	if _, ok := ratings[review.ID]; ok {
		t.Error("review without answers should be absent from results, not zero")
	}
}

func TestComputeRatings_ManyReviews(t *testing.T) {
	db := newTestDB(t)
	stars := seedStars(t, db)
	biz := seedBusiness(t, db, "Cafe One")
	questions := seedQuestions(t, db, biz.ID, 2)

	ids := make([]uint, 0, 600)
	for i := 0; i < 600; i++ {
		r := seedReview(t, db, &models.Review{BusinessID: biz.ID}, questions, stars, 4, 2)
		ids = append(ids, r.ID)
	}

	svc := NewRatingService(db)
	ratings, err := svc.ComputeRatings(ids)
	if err != nil {
		t.Fatalf("ComputeRatings failed: %v", err)
	}

	if len(ratings) != 600 {
		t.Fatalf("expected 600 ratings, got %d", len(ratings))
	}
	for id, got := range ratings {
		if got != 3.0 {
			t.Errorf("review %d: rating = %v, expected 3.0", id, got)
		}
	}
}

func TestComputeRating_Single(t *testing.T) {
	db := newTestDB(t)
	stars := seedStars(t, db)
	biz := seedBusiness(t, db, "Cafe One")
	questions := seedQuestions(t, db, biz.ID, 3)

	review := seedReview(t, db, &models.Review{BusinessID: biz.ID}, questions, stars, 2, 3, 3)

	svc := NewRatingService(db)
	rating, ok, err := svc.ComputeRating(review.ID)
	if err != nil {
		t.Fatalf("ComputeRating failed: %v", err)
	}
	if !ok {
		t.Fatal("expected a rating")
	}
	if rating != 2.7 {
		t.Errorf("rating = %v, expected 2.7", rating)
	}
}

func TestRoundRating(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{4.333333, 4.3},
		{4.36, 4.4},
		{2.666666, 2.7},
		{5.0, 5.0},
	}
	for _, tc := range cases {
		if got := roundRating(tc.in); got != tc.want {
			t.Errorf("roundRating(%v) = %v, expected %v", tc.in, got, tc.want)
		}
	}
}
