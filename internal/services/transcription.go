package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/raterly/backend/internal/models"
	"github.com/raterly/backend/pkg/logger"
	"gorm.io/gorm"
)

// TranscriptionService turns audio reviews into text and re-enriches them.
// Transcription errors propagate so the queue can retry; the follow-up
// sentiment/topic pass degrades silently like intake does.
type TranscriptionService struct {
	db       *gorm.DB
	enricher Enricher
	safe     *SafeEnricher
}

func NewTranscriptionService(db *gorm.DB, enricher Enricher) *TranscriptionService {
	return &TranscriptionService{
		db:       db,
		enricher: enricher,
		safe:     NewSafeEnricher(enricher),
	}
}

// Process handles one queued transcription task.
func (s *TranscriptionService) Process(ctx context.Context, task *TranscriptionTask) error {
	var review models.Review
	if err := s.db.First(&review, task.ReviewID).Error; err != nil {
		// The review is gone (deleted before the worker ran); nothing to retry.
		logger.Warnf("transcription task for missing review %d dropped: %v", task.ReviewID, err)
		return nil
	}

	transcript, err := s.enricher.Transcribe(ctx, task.Audio, task.Filename)
	if err != nil {
		return fmt.Errorf("transcription of review %d failed: %w", task.ReviewID, err)
	}

	updates := map[string]interface{}{"transcript": transcript}

	// With a transcript in hand, score the full text of the review.
	fullText := strings.TrimSpace(review.Comment + "\n" + transcript)
	if fullText != "" {
		updates["sentiment_score"] = s.safe.ScoreSentiment(ctx, fullText)
		if topics := s.safe.ExtractTopics(ctx, fullText); len(topics) > 0 {
			updates["topics"] = strings.Join(topics, ",")
		}
	}

	if err := s.db.Model(&review).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to store transcript for review %d: %w", task.ReviewID, err)
	}
	logger.Infof("review %d transcribed (%d chars)", task.ReviewID, len(transcript))
	return nil
}
