package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/raterly/backend/internal/models"
)

type noopEnricher struct {
	sentiment float64
}

func (e noopEnricher) ScoreSentiment(context.Context, string) (float64, error) {
	return e.sentiment, nil
}

func (e noopEnricher) ExtractTopics(context.Context, string) ([]string, error) {
	return []string{"service"}, nil
}

func (e noopEnricher) Transcribe(context.Context, []byte, string) (string, error) {
	return "", errors.New("not supported in tests")
}

type recordingQueue struct {
	mu    sync.Mutex
	tasks []*TranscriptionTask
}

func (q *recordingQueue) EnqueueTranscription(task *TranscriptionTask) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *recordingQueue) IsAsync() bool { return false }
func (q *recordingQueue) Close() error  { return nil }

func intakeFixture(t *testing.T) (*IntakeService, *recordingQueue, map[int]uint, []uint, *models.Business) {
	t.Helper()
	db := newTestDB(t)
	stars := seedStars(t, db)
	biz := seedBusiness(t, db, "Cafe One")
	questions := seedQuestions(t, db, biz.ID, 2)

	queue := &recordingQueue{}
	svc := NewIntakeService(db, NewBusinessService(db), NewSafeEnricher(noopEnricher{sentiment: 0.9}), queue)
	return svc, queue, stars, questions, biz
}

func TestSubmitReview_PublishesAboveThreshold(t *testing.T) {
	svc, _, stars, questions, biz := intakeFixture(t)
	biz.PublishThreshold = 4.0
	if err := svc.db.Save(biz).Error; err != nil {
		t.Fatalf("failed to set threshold: %v", err)
	}
	svc.businesses.Invalidate(biz.ID)

	review, err := svc.SubmitReview(context.Background(), &SubmitReviewRequest{
		BusinessID: biz.ID,
		Comment:    "wonderful",
		Answers: []AnswerInput{
			{QuestionID: questions[0], StarID: stars[5]},
		},
	})
	if err != nil {
		t.Fatalf("SubmitReview failed: %v", err)
	}
	if review.Status != models.ReviewStatusPublished {
		t.Errorf("status = %q, expected published (5.0 >= 4.0)", review.Status)
	}
	if review.PublicID == "" {
		t.Error("review should get a public id")
	}
	if review.Rate != 5.0 {
		t.Errorf("rate = %v, expected 5.0", review.Rate)
	}
	if review.SentimentScore != 0.9 {
		t.Errorf("sentiment = %v, expected 0.9", review.SentimentScore)
	}
}

func TestSubmitReview_ThresholdDoesNotDemoteEarlierReviews(t *testing.T) {
	svc, _, stars, questions, biz := intakeFixture(t)
	biz.PublishThreshold = 4.0
	if err := svc.db.Save(biz).Error; err != nil {
		t.Fatalf("failed to set threshold: %v", err)
	}
	svc.businesses.Invalidate(biz.ID)

	first, err := svc.SubmitReview(context.Background(), &SubmitReviewRequest{
		BusinessID: biz.ID,
		Answers:    []AnswerInput{{QuestionID: questions[0], StarID: stars[5]}},
	})
	if err != nil {
		t.Fatalf("first SubmitReview failed: %v", err)
	}
	if first.Status != models.ReviewStatusPublished {
		t.Fatalf("first status = %q, expected published", first.Status)
	}

	// (5 + 1) / 2 = 3.0 < 4.0: the new review stays pending.
	second, err := svc.SubmitReview(context.Background(), &SubmitReviewRequest{
		BusinessID: biz.ID,
		Answers:    []AnswerInput{{QuestionID: questions[0], StarID: stars[1]}},
	})
	if err != nil {
		t.Fatalf("second SubmitReview failed: %v", err)
	}
	if second.Status != models.ReviewStatusPending {
		t.Errorf("second status = %q, expected pending", second.Status)
	}

	// The earlier decision stands.
	var reloaded models.Review
	if err := svc.db.First(&reloaded, first.ID).Error; err != nil {
		t.Fatalf("failed to reload first review: %v", err)
	}
	if reloaded.Status != models.ReviewStatusPublished {
		t.Errorf("first review was demoted to %q", reloaded.Status)
	}
}

func TestSubmitReview_BlockedContent(t *testing.T) {
	svc, _, stars, questions, biz := intakeFixture(t)

	_, err := svc.SubmitReview(context.Background(), &SubmitReviewRequest{
		BusinessID: biz.ID,
		Comment:    "the nazi idiot who runs this, click here",
		Answers:    []AnswerInput{{QuestionID: questions[0], StarID: stars[1]}},
	})
	var blocked *BlockedContentError
	if !errors.As(err, &blocked) {
		t.Fatalf("expected BlockedContentError, got %v", err)
	}

	var count int64
	svc.db.Model(&models.Review{}).Count(&count)
	if count != 0 {
		t.Errorf("blocked submission must not create a review, found %d", count)
	}
}

func TestSubmitReview_FlaggedSkipsThreshold(t *testing.T) {
	svc, _, stars, questions, biz := intakeFixture(t)

	review, err := svc.SubmitReview(context.Background(), &SubmitReviewRequest{
		BusinessID: biz.ID,
		Comment:    "the owner is a nazi",
		Answers:    []AnswerInput{{QuestionID: questions[0], StarID: stars[5]}},
	})
	if err != nil {
		t.Fatalf("SubmitReview failed: %v", err)
	}
	if review.Status != models.ReviewStatusFlagged {
		t.Errorf("status = %q, expected flagged", review.Status)
	}
	if review.ModerationNote == "" {
		t.Error("flagged review should carry a moderation note")
	}
}

func TestSubmitReview_IPGate(t *testing.T) {
	svc, _, stars, questions, biz := intakeFixture(t)
	biz.IPCheckEnabled = true
	if err := svc.db.Save(biz).Error; err != nil {
		t.Fatalf("failed to enable ip check: %v", err)
	}
	svc.businesses.Invalidate(biz.ID)

	req := func() *SubmitReviewRequest {
		return &SubmitReviewRequest{
			BusinessID: biz.ID,
			Answers:    []AnswerInput{{QuestionID: questions[0], StarID: stars[4]}},
			IPAddress:  "203.0.113.9",
		}
	}

	if _, err := svc.SubmitReview(context.Background(), req()); err != nil {
		t.Fatalf("first guest submission failed: %v", err)
	}

	_, err := svc.SubmitReview(context.Background(), req())
	var gate *AbuseGateError
	if !errors.As(err, &gate) {
		t.Fatalf("expected AbuseGateError on second submission, got %v", err)
	}

	// Registered users are exempt from the gate.
	userID := uint(1)
	regReq := req()
	regReq.UserID = &userID
	if _, err := svc.SubmitReview(context.Background(), regReq); err != nil {
		t.Errorf("registered submission should bypass the ip gate, got %v", err)
	}

	// The gate resets at midnight: backdate today's submissions and retry.
	yesterday := time.Now().AddDate(0, 0, -1)
	if err := svc.db.Model(&models.Review{}).
		Where("ip_address = ?", "203.0.113.9").
		Update("created_at", yesterday).Error; err != nil {
		t.Fatalf("failed to backdate reviews: %v", err)
	}
	if _, err := svc.SubmitReview(context.Background(), req()); err != nil {
		t.Errorf("submission on a new calendar day should pass the gate, got %v", err)
	}
}

func TestSubmitReview_GeoGate(t *testing.T) {
	svc, _, stars, questions, biz := intakeFixture(t)
	biz.GeoCheckEnabled = true
	biz.Latitude = 52.52
	biz.Longitude = 13.405
	biz.GeoRadiusM = 500
	if err := svc.db.Save(biz).Error; err != nil {
		t.Fatalf("failed to enable geo check: %v", err)
	}
	svc.businesses.Invalidate(biz.ID)

	submit := func(lat, lng *float64) error {
		_, err := svc.SubmitReview(context.Background(), &SubmitReviewRequest{
			BusinessID: biz.ID,
			Answers:    []AnswerInput{{QuestionID: questions[0], StarID: stars[4]}},
			Latitude:   lat,
			Longitude:  lng,
		})
		return err
	}

	var gate *AbuseGateError
	if err := submit(nil, nil); !errors.As(err, &gate) {
		t.Errorf("missing coordinates should fail the geo gate, got %v", err)
	}

	farLat, farLng := 48.8566, 2.3522 // Paris, ~880 km away
	if err := submit(&farLat, &farLng); !errors.As(err, &gate) {
		t.Errorf("far-away submission should fail the geo gate, got %v", err)
	}

	nearLat, nearLng := 52.5201, 13.4051
	if err := submit(&nearLat, &nearLng); err != nil {
		t.Errorf("nearby submission should pass the geo gate, got %v", err)
	}
}

func TestSubmitReview_CreatesGuestAndAnswers(t *testing.T) {
	svc, _, stars, questions, biz := intakeFixture(t)

	tagID := uint(0)
	tag := models.Tag{Name: "friendly", QuestionID: questions[0], StarID: stars[5]}
	if err := svc.db.Create(&tag).Error; err != nil {
		t.Fatalf("failed to create tag: %v", err)
	}
	tagID = tag.ID

	review, err := svc.SubmitReview(context.Background(), &SubmitReviewRequest{
		BusinessID: biz.ID,
		GuestName:  "Ada",
		GuestPhone: "555-0100",
		Answers: []AnswerInput{
			{QuestionID: questions[0], StarID: stars[5], TagID: &tagID},
			{QuestionID: questions[1], StarID: stars[4]},
		},
	})
	if err != nil {
		t.Fatalf("SubmitReview failed: %v", err)
	}

	if review.GuestID == nil {
		t.Fatal("guest submission should create a guest record")
	}
	if !review.IsGuestAuthored() {
		t.Error("review should classify as guest-authored")
	}
	if review.Rate != 4.5 {
		t.Errorf("rate = %v, expected 4.5", review.Rate)
	}

	var answers []models.Answer
	if err := svc.db.Where("review_id = ?", review.ID).Find(&answers).Error; err != nil {
		t.Fatalf("failed to load answers: %v", err)
	}
	if len(answers) != 2 {
		t.Errorf("expected 2 persisted answers, got %d", len(answers))
	}
}

func TestSubmitReview_EmptySubmissionRejected(t *testing.T) {
	svc, _, _, _, biz := intakeFixture(t)

	_, err := svc.SubmitReview(context.Background(), &SubmitReviewRequest{BusinessID: biz.ID})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("expected ValidationError for empty submission, got %v", err)
	}
}

func TestSubmitReview_UnknownBusiness(t *testing.T) {
	svc, _, _, _, _ := intakeFixture(t)

	_, err := svc.SubmitReview(context.Background(), &SubmitReviewRequest{BusinessID: 999, Comment: "hi"})
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestSubmitReview_QueuesAudio(t *testing.T) {
	svc, queue, stars, questions, biz := intakeFixture(t)

	review, err := svc.SubmitReview(context.Background(), &SubmitReviewRequest{
		BusinessID:    biz.ID,
		Answers:       []AnswerInput{{QuestionID: questions[0], StarID: stars[3]}},
		Audio:         []byte("fake-audio"),
		AudioFilename: "review.mp3",
	})
	if err != nil {
		t.Fatalf("SubmitReview failed: %v", err)
	}

	queue.mu.Lock()
	defer queue.mu.Unlock()
	if len(queue.tasks) != 1 {
		t.Fatalf("expected 1 queued task, got %d", len(queue.tasks))
	}
	if queue.tasks[0].ReviewID != review.ID {
		t.Errorf("queued task review id = %d, expected %d", queue.tasks[0].ReviewID, review.ID)
	}
}
