package services

import (
	"fmt"
	"math"

	"gorm.io/gorm"
)

// ratingBatchSize caps the number of review ids per answer-lookup query so
// large aggregation windows stay within SQL parameter limits.
const ratingBatchSize = 500

// RatingService derives per-review ratings from answer tuples. Ratings are
// always computed from answers at read time; the denormalized Review.Rate
// column is a display convenience, never an input to aggregation.
type RatingService struct {
	db *gorm.DB
}

func NewRatingService(db *gorm.DB) *RatingService {
	return &RatingService{db: db}
}

type answerValueRow struct {
	ReviewID   uint
	QuestionID uint
	Value      int
}

// ComputeRatings computes one rating per review id: the mean of star values
// over distinct questions, rounded to one decimal place. When a review holds
// several answers for the same question, the earliest recorded answer wins.
// Reviews with no answers are absent from the result map rather than zero.
func (s *RatingService) ComputeRatings(reviewIDs []uint) (map[uint]float64, error) {
	ratings := make(map[uint]float64, len(reviewIDs))
	if len(reviewIDs) == 0 {
		return ratings, nil
	}

	sums := make(map[uint]float64)
	counts := make(map[uint]int)
	seen := make(map[uint]map[uint]bool)

	for start := 0; start < len(reviewIDs); start += ratingBatchSize {
		end := start + ratingBatchSize
		if end > len(reviewIDs) {
			end = len(reviewIDs)
		}

		var rows []answerValueRow
		err := s.db.Table("answers").
			Select("answers.review_id, answers.question_id, stars.value").
			Joins("JOIN stars ON stars.id = answers.star_id").
			Where("answers.review_id IN ?", reviewIDs[start:end]).
			Order("answers.review_id, answers.id").
			Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("failed to load answers: %w", err)
		}

		for _, row := range rows {
			questions := seen[row.ReviewID]
			if questions == nil {
				questions = make(map[uint]bool)
				seen[row.ReviewID] = questions
			}
			if questions[row.QuestionID] {
				continue
			}
			questions[row.QuestionID] = true
			sums[row.ReviewID] += float64(row.Value)
			counts[row.ReviewID]++
		}
	}

	for id, n := range counts {
		ratings[id] = roundRating(sums[id] / float64(n))
	}
	return ratings, nil
}

// ComputeRating computes a single review's rating. The second return value
// is false when the review has no answers.
func (s *RatingService) ComputeRating(reviewID uint) (float64, bool, error) {
	ratings, err := s.ComputeRatings([]uint{reviewID})
	if err != nil {
		return 0, false, err
	}
	rating, ok := ratings[reviewID]
	return rating, ok, nil
}

func roundRating(v float64) float64 {
	return math.Round(v*10) / 10
}
