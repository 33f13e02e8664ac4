package services

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/raterly/backend/internal/models"
	"gorm.io/gorm"
)

// DefaultMinSampleSize is the minimum number of rated reviews an entity
// needs before it can appear in a ranking.
const DefaultMinSampleSize = 3

// Change labels for period-over-period comparisons where a plain
// percentage would be misleading.
const (
	ChangeNoPreviousData = "no previous data"
	ChangeFromNoReviews  = "from no reviews"
)

// ChangeResult is a period-over-period delta. Label is non-empty when the
// previous period had no data and the percentage is a convention, not math.
type ChangeResult struct {
	Percent float64 `json:"percent"`
	Label   string  `json:"label,omitempty"`
}

// BucketStat is one time bucket's review count and average rating.
type BucketStat struct {
	Label   string  `json:"label"`
	Count   int64   `json:"count"`
	Average float64 `json:"average"`
}

// RankDimension selects what TopN ranks.
type RankDimension string

const (
	RankByStaff  RankDimension = "staff"
	RankByBranch RankDimension = "branch"
	RankByTag    RankDimension = "tag"
)

// RankedEntry is one row of a TopN ranking.
type RankedEntry struct {
	ID      uint    `json:"id"`
	Name    string  `json:"name"`
	Count   int64   `json:"count"`
	Average float64 `json:"average"`
}

// SentimentStats holds whole-number percentages that always sum to 100,
// unless the scope is empty (then all three are zero).
type SentimentStats struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// NamedScope pairs a scope with the entity it stands for, for comparisons.
type NamedScope struct {
	ID    uint
	Label string
	Scope ReviewScope
}

// InsightResult is one side of a comparative insight.
type InsightResult struct {
	ID      uint    `json:"id"`
	Label   string  `json:"label"`
	Count   int64   `json:"count"`
	Average float64 `json:"average"`
}

// Insight names the best and worst performing entities among compared
// scopes. Both are nil when no compared scope has any rated reviews.
type Insight struct {
	Best  *InsightResult `json:"best"`
	Worst *InsightResult `json:"worst"`
}

// AggregationService answers every statistical question about reviews.
// All reads go through the scope filter and the rating calculator; it never
// trusts the denormalized Rate column.
type AggregationService struct {
	db     *gorm.DB
	rating *RatingService
	scopes *ScopeFilter
}

func NewAggregationService(db *gorm.DB) *AggregationService {
	return &AggregationService{
		db:     db,
		rating: NewRatingService(db),
		scopes: NewScopeFilter(db),
	}
}

// CountInRange counts qualifying reviews, answered or not.
func (s *AggregationService) CountInRange(scope ReviewScope) (int64, error) {
	if err := s.validateScope(scope); err != nil {
		return 0, err
	}
	return s.scopes.Count(scope)
}

// AverageRating computes the mean rating over qualifying rated reviews.
// Reviews without answers do not dilute the average. An empty scope
// yields 0; callers that need to distinguish should check CountInRange.
func (s *AggregationService) AverageRating(scope ReviewScope) (float64, error) {
	if err := s.validateScope(scope); err != nil {
		return 0, err
	}
	_, avg, err := s.ratedStats(scope)
	return avg, err
}

// ratedStats returns (rated review count, mean rating) for a scope without
// entity validation.
func (s *AggregationService) ratedStats(scope ReviewScope) (int64, float64, error) {
	ids, err := s.scopes.QualifyingIDs(scope)
	if err != nil {
		return 0, 0, err
	}
	ratings, err := s.rating.ComputeRatings(ids)
	if err != nil {
		return 0, 0, err
	}
	if len(ratings) == 0 {
		return 0, 0, nil
	}
	var sum float64
	for _, r := range ratings {
		sum += r
	}
	return int64(len(ratings)), sum / float64(len(ratings)), nil
}

// PercentageChange compares two period values. Both periods empty reads as
// flat; growth from an empty previous period is pegged at +100%.
func PercentageChange(current, previous float64) ChangeResult {
	if previous == 0 {
		if current == 0 {
			return ChangeResult{Percent: 0, Label: ChangeNoPreviousData}
		}
		return ChangeResult{Percent: 100, Label: ChangeFromNoReviews}
	}
	pct := (current - previous) / previous * 100
	return ChangeResult{Percent: math.Round(pct*10) / 10}
}

// CountChange compares review volume between a scope's window and the
// window immediately before it of equal length.
func (s *AggregationService) CountChange(scope ReviewScope) (ChangeResult, error) {
	if err := s.validateScope(scope); err != nil {
		return ChangeResult{}, err
	}
	if scope.Start.IsZero() || scope.End.IsZero() {
		return ChangeResult{}, newValidationError("count change requires a bounded time range")
	}

	current, err := s.scopes.Count(scope)
	if err != nil {
		return ChangeResult{}, err
	}

	previous := scope
	previous.End = scope.Start
	previous.Start = scope.Start.Add(-scope.End.Sub(scope.Start))
	prev, err := s.scopes.Count(previous)
	if err != nil {
		return ChangeResult{}, err
	}
	return PercentageChange(float64(current), float64(prev)), nil
}

// BreakdownByBucket computes count and average per bucket. Buckets are
// independent reads, so they run concurrently; results keep bucket order.
func (s *AggregationService) BreakdownByBucket(scope ReviewScope, buckets []Bucket) ([]BucketStat, error) {
	if err := s.validateScope(scope); err != nil {
		return nil, err
	}

	stats := make([]BucketStat, len(buckets))
	errs := make([]error, len(buckets))
	var wg sync.WaitGroup
	for i, b := range buckets {
		wg.Add(1)
		go func(i int, b Bucket) {
			defer wg.Done()
			sub := scope
			sub.Start = b.Start
			sub.End = b.End

			count, err := s.scopes.Count(sub)
			if err != nil {
				errs[i] = err
				return
			}
			_, avg, err := s.ratedStats(sub)
			if err != nil {
				errs[i] = err
				return
			}
			stats[i] = BucketStat{Label: b.Label, Count: count, Average: roundRating(avg)}
		}(i, b)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return stats, nil
}

// TopN ranks staff, branches or tags by average rating over the scope.
// Entities with fewer than minSampleSize rated reviews are excluded; pass
// minSampleSize <= 0 for the default. Ties break by count, then by id.
func (s *AggregationService) TopN(dimension RankDimension, scope ReviewScope, n, minSampleSize int) ([]RankedEntry, error) {
	if err := s.validateScope(scope); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, newValidationError("ranking size must be positive, got %d", n)
	}
	if minSampleSize <= 0 {
		minSampleSize = DefaultMinSampleSize
	}

	groups, err := s.groupRatings(dimension, scope)
	if err != nil {
		return nil, err
	}

	entries := make([]RankedEntry, 0, len(groups))
	for id, g := range groups {
		if int(g.count) < minSampleSize {
			continue
		}
		entries = append(entries, RankedEntry{
			ID:      id,
			Count:   g.count,
			Average: roundRating(g.sum / float64(g.count)),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Average != entries[j].Average {
			return entries[i].Average > entries[j].Average
		}
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].ID < entries[j].ID
	})
	if len(entries) > n {
		entries = entries[:n]
	}

	if err := s.fillNames(dimension, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

type ratingGroup struct {
	sum   float64
	count int64
}

// groupRatings folds per-review ratings into per-entity sums. For staff and
// branch the grouping key lives on the review row; for tags it comes from
// the answers a review was submitted with.
func (s *AggregationService) groupRatings(dimension RankDimension, scope ReviewScope) (map[uint]ratingGroup, error) {
	ids, err := s.scopes.QualifyingIDs(scope)
	if err != nil {
		return nil, err
	}
	ratings, err := s.rating.ComputeRatings(ids)
	if err != nil {
		return nil, err
	}

	groups := make(map[uint]ratingGroup)
	add := func(key uint, rating float64) {
		g := groups[key]
		g.sum += rating
		g.count++
		groups[key] = g
	}

	switch dimension {
	case RankByStaff, RankByBranch:
		var rows []struct {
			ID       uint
			StaffID  *uint
			BranchID *uint
		}
		if err := s.scopes.Query(scope).Select("reviews.id, reviews.staff_id, reviews.branch_id").Scan(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			rating, ok := ratings[row.ID]
			if !ok {
				continue
			}
			var key *uint
			if dimension == RankByStaff {
				key = row.StaffID
			} else {
				key = row.BranchID
			}
			if key == nil {
				continue
			}
			add(*key, rating)
		}

	case RankByTag:
		if len(ids) == 0 {
			return groups, nil
		}
		var rows []struct {
			ReviewID uint
			TagID    uint
		}
		err := s.db.Table("answers").
			Select("DISTINCT answers.review_id, answers.tag_id").
			Where("answers.review_id IN ? AND answers.tag_id IS NOT NULL", ids).
			Scan(&rows).Error
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if rating, ok := ratings[row.ReviewID]; ok {
				add(row.TagID, rating)
			}
		}

	default:
		return nil, newValidationError("unknown ranking dimension %q", dimension)
	}
	return groups, nil
}

func (s *AggregationService) fillNames(dimension RankDimension, entries []RankedEntry) error {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]uint, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}

	names := make(map[uint]string, len(entries))
	var rows []struct {
		ID   uint
		Name string
	}
	var err error
	switch dimension {
	case RankByStaff:
		err = s.db.Model(&models.User{}).Select("id, username AS name").Where("id IN ?", ids).Scan(&rows).Error
	case RankByBranch:
		err = s.db.Model(&models.Branch{}).Select("id, name").Where("id IN ?", ids).Scan(&rows).Error
	case RankByTag:
		err = s.db.Model(&models.Tag{}).Select("id, name").Where("id IN ?", ids).Scan(&rows).Error
	}
	if err != nil {
		return err
	}
	for _, row := range rows {
		names[row.ID] = row.Name
	}
	for i := range entries {
		entries[i].Name = names[entries[i].ID]
	}
	return nil
}

// Sentiment score bands.
const (
	sentimentPositiveMin = 0.7
	sentimentNeutralMin  = 0.4
)

// SentimentBreakdown buckets qualifying reviews into positive/neutral/
// negative percentages. Percentages are integers summing to exactly 100
// (largest remainder apportionment); an empty scope yields all zeros.
func (s *AggregationService) SentimentBreakdown(scope ReviewScope) (SentimentStats, error) {
	if err := s.validateScope(scope); err != nil {
		return SentimentStats{}, err
	}

	var scores []float64
	if err := s.scopes.Query(scope).Pluck("reviews.sentiment_score", &scores).Error; err != nil {
		return SentimentStats{}, err
	}
	if len(scores) == 0 {
		return SentimentStats{}, nil
	}

	counts := [3]int{} // positive, neutral, negative
	for _, score := range scores {
		switch {
		case score >= sentimentPositiveMin:
			counts[0]++
		case score >= sentimentNeutralMin:
			counts[1]++
		default:
			counts[2]++
		}
	}

	pcts := apportionPercentages(counts, len(scores))
	return SentimentStats{Positive: pcts[0], Neutral: pcts[1], Negative: pcts[2]}, nil
}

// apportionPercentages converts counts to integer percentages summing to
// 100, giving leftover points to the largest fractional remainders.
func apportionPercentages(counts [3]int, total int) [3]int {
	var pcts [3]int
	var remainders [3]float64
	allocated := 0
	for i, c := range counts {
		exact := float64(c) * 100 / float64(total)
		pcts[i] = int(math.Floor(exact))
		remainders[i] = exact - math.Floor(exact)
		allocated += pcts[i]
	}
	for allocated < 100 {
		best := 0
		for i := 1; i < 3; i++ {
			if remainders[i] > remainders[best] {
				best = i
			}
		}
		pcts[best]++
		remainders[best] = -1
		allocated++
	}
	return pcts
}

// ComparativeInsight picks the best and worst entities among the given
// scopes by average rating. Scopes with no rated reviews are skipped; ties
// resolve toward the larger sample, then the lower id.
func (s *AggregationService) ComparativeInsight(entries []NamedScope) (*Insight, error) {
	if len(entries) == 0 {
		return nil, newValidationError("comparison requires at least one scope")
	}

	results := make([]InsightResult, 0, len(entries))
	for _, e := range entries {
		if err := s.validateScope(e.Scope); err != nil {
			return nil, err
		}
		count, avg, err := s.ratedStats(e.Scope)
		if err != nil {
			return nil, err
		}
		if count == 0 {
			continue
		}
		results = append(results, InsightResult{
			ID:      e.ID,
			Label:   e.Label,
			Count:   count,
			Average: roundRating(avg),
		})
	}
	if len(results) == 0 {
		return &Insight{}, nil
	}

	better := func(a, b InsightResult) bool {
		if a.Average != b.Average {
			return a.Average > b.Average
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.ID < b.ID
	}

	best, worst := results[0], results[0]
	for _, r := range results[1:] {
		if better(r, best) {
			best = r
		}
		if better(worst, r) {
			worst = r
		}
	}
	return &Insight{Best: &best, Worst: &worst}, nil
}

// validateScope distinguishes "entity does not exist" from "entity has no
// reviews" before any aggregation runs.
func (s *AggregationService) validateScope(scope ReviewScope) error {
	if !scope.BypassTenant {
		if scope.BusinessID == 0 {
			return newValidationError("business id is required")
		}
		if err := s.checkExists(&models.Business{}, "business", scope.BusinessID); err != nil {
			return err
		}
	}
	if scope.BranchID != nil {
		if err := s.checkExists(&models.Branch{}, "branch", *scope.BranchID); err != nil {
			return err
		}
	}
	if scope.StaffID != nil {
		if err := s.checkExists(&models.User{}, "staff", *scope.StaffID); err != nil {
			return err
		}
	}
	if scope.SurveyID != nil {
		if err := s.checkExists(&models.Survey{}, "survey", *scope.SurveyID); err != nil {
			return err
		}
	}
	if !scope.Start.IsZero() && !scope.End.IsZero() && scope.End.Before(scope.Start) {
		return newValidationError("time range end precedes start")
	}
	return nil
}

func (s *AggregationService) checkExists(model interface{}, entity string, id uint) error {
	err := s.db.Select("id").First(model, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{Entity: entity, ID: id}
	}
	if err != nil {
		return fmt.Errorf("failed to look up %s %d: %w", entity, id, err)
	}
	return nil
}
