package services

import (
	"errors"
	"testing"

	"github.com/raterly/backend/internal/models"
)

func TestReviewList_RecomputesDisplayRating(t *testing.T) {
	db := newTestDB(t)
	stars := seedStars(t, db)
	biz := seedBusiness(t, db, "Cafe One")
	questions := seedQuestions(t, db, biz.ID, 2)

	// Stale denormalized rate: the listing must recompute from answers.
	review := seedReview(t, db, &models.Review{BusinessID: biz.ID, Rate: 1.0}, questions, stars, 5, 4)

	svc := NewReviewService(db)
	result, err := svc.List(&ReviewListRequest{Scope: ReviewScope{BusinessID: biz.ID}})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if result.Total != 1 || len(result.Reviews) != 1 {
		t.Fatalf("expected 1 review, got total=%d len=%d", result.Total, len(result.Reviews))
	}
	if result.Reviews[0].ID != review.ID {
		t.Fatalf("unexpected review %d", result.Reviews[0].ID)
	}
	if result.Reviews[0].Rate != 4.5 {
		t.Errorf("display rate = %v, expected recomputed 4.5", result.Reviews[0].Rate)
	}
}

func TestReviewUpdateStatus(t *testing.T) {
	db := newTestDB(t)
	stars := seedStars(t, db)
	biz := seedBusiness(t, db, "Cafe One")
	questions := seedQuestions(t, db, biz.ID, 1)
	review := seedReview(t, db, &models.Review{BusinessID: biz.ID, Status: models.ReviewStatusFlagged}, questions, stars, 2)

	svc := NewReviewService(db)
	updated, err := svc.UpdateStatus(review.ID, models.ReviewStatusPublished)
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if updated.Status != models.ReviewStatusPublished {
		t.Errorf("status = %q, expected published", updated.Status)
	}

	if _, err := svc.UpdateStatus(review.ID, "bogus"); err == nil {
		t.Error("unknown status should be rejected")
	}

	_, err = svc.UpdateStatus(9999, models.ReviewStatusPublished)
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("expected NotFoundError for missing review, got %v", err)
	}
}

func TestReviewDelete_RemovesFromScopes(t *testing.T) {
	db := newTestDB(t)
	stars := seedStars(t, db)
	biz := seedBusiness(t, db, "Cafe One")
	questions := seedQuestions(t, db, biz.ID, 1)
	review := seedReview(t, db, &models.Review{BusinessID: biz.ID}, questions, stars, 5)

	svc := NewReviewService(db)
	if err := svc.Delete(review.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	count, err := NewScopeFilter(db).Count(ReviewScope{BusinessID: biz.ID, IncludeUnpublished: true, IncludePrivate: true})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("soft-deleted review still visible, count = %d", count)
	}
}

func TestReviewReply(t *testing.T) {
	db := newTestDB(t)
	stars := seedStars(t, db)
	biz := seedBusiness(t, db, "Cafe One")
	questions := seedQuestions(t, db, biz.ID, 1)
	review := seedReview(t, db, &models.Review{BusinessID: biz.ID}, questions, stars, 4)

	svc := NewReviewService(db)
	updated, err := svc.Reply(review.ID, "Thanks for visiting!")
	if err != nil {
		t.Fatalf("Reply failed: %v", err)
	}
	if updated.ReplyComment != "Thanks for visiting!" || updated.RespondedAt == nil {
		t.Errorf("reply not recorded: %+v", updated)
	}

	if _, err := svc.Reply(review.ID, ""); err == nil {
		t.Error("empty reply should be rejected")
	}
}
