package services

import (
	"time"

	"github.com/raterly/backend/internal/models"
	"gorm.io/gorm"
)

// DashboardStatsRequest filters the owner dashboard.
type DashboardStatsRequest struct {
	BusinessID  uint
	StartDate   string // YYYY-MM-DD, defaults to 30 days ago
	EndDate     string // YYYY-MM-DD inclusive, defaults to today
	Granularity string // day, week, month
	RankLimit   int
}

// DashboardStats is the headline numbers block.
type DashboardStats struct {
	TotalReviews  int64   `json:"total_reviews"`
	AverageRating float64 `json:"average_rating"`
	ResponseRate  float64 `json:"response_rate"` // Share of reviews with an owner reply
	PendingCount  int64   `json:"pending_count"`
	FlaggedCount  int64   `json:"flagged_count"`
}

// DashboardResponse is everything the owner dashboard renders.
type DashboardResponse struct {
	Stats       DashboardStats `json:"stats"`
	Change      ChangeResult   `json:"change"`
	Sentiment   SentimentStats `json:"sentiment"`
	Trend       []BucketStat   `json:"trend"`
	TopStaff    []RankedEntry  `json:"top_staff"`
	TopBranches []RankedEntry  `json:"top_branches"`
	TopTags     []RankedEntry  `json:"top_tags"`
}

// DashboardService assembles the owner dashboard from the aggregation
// engine. Owners see their full tenant: pending, flagged and private
// reviews included.
type DashboardService struct {
	db  *gorm.DB
	agg *AggregationService
}

func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db, agg: NewAggregationService(db)}
}

// GetStats builds the dashboard for one business and window.
func (s *DashboardService) GetStats(req *DashboardStatsRequest) (*DashboardResponse, error) {
	start, end, err := resolveWindow(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	if req.RankLimit <= 0 {
		req.RankLimit = 5
	}

	scope := ReviewScope{
		BusinessID:         req.BusinessID,
		Start:              start,
		End:                end,
		IncludeUnpublished: true,
		IncludePrivate:     true,
	}

	total, err := s.agg.CountInRange(scope)
	if err != nil {
		return nil, err
	}
	avg, err := s.agg.AverageRating(scope)
	if err != nil {
		return nil, err
	}
	change, err := s.agg.CountChange(scope)
	if err != nil {
		return nil, err
	}
	sentiment, err := s.agg.SentimentBreakdown(scope)
	if err != nil {
		return nil, err
	}
	trend, err := s.agg.BreakdownByBucket(scope, BucketsFor(req.Granularity, start, end.Add(-time.Nanosecond)))
	if err != nil {
		return nil, err
	}

	rankings := make(map[RankDimension][]RankedEntry, 3)
	for _, dim := range []RankDimension{RankByStaff, RankByBranch, RankByTag} {
		entries, err := s.agg.TopN(dim, scope, req.RankLimit, 0)
		if err != nil {
			return nil, err
		}
		rankings[dim] = entries
	}

	responseRate, err := s.responseRate(req.BusinessID, start, end, total)
	if err != nil {
		return nil, err
	}
	pending, flagged, err := s.statusCounts(req.BusinessID, start, end)
	if err != nil {
		return nil, err
	}

	return &DashboardResponse{
		Stats: DashboardStats{
			TotalReviews:  total,
			AverageRating: roundRating(avg),
			ResponseRate:  responseRate,
			PendingCount:  pending,
			FlaggedCount:  flagged,
		},
		Change:      change,
		Sentiment:   sentiment,
		Trend:       trend,
		TopStaff:    rankings[RankByStaff],
		TopBranches: rankings[RankByBranch],
		TopTags:     rankings[RankByTag],
	}, nil
}

func (s *DashboardService) responseRate(businessID uint, start, end time.Time, total int64) (float64, error) {
	if total == 0 {
		return 0, nil
	}
	var replied int64
	err := s.db.Model(&models.Review{}).
		Where("business_id = ? AND created_at >= ? AND created_at < ? AND responded_at IS NOT NULL",
			businessID, start, end).
		Count(&replied).Error
	if err != nil {
		return 0, err
	}
	return roundRating(float64(replied) / float64(total) * 100), nil
}

func (s *DashboardService) statusCounts(businessID uint, start, end time.Time) (pending, flagged int64, err error) {
	base := func() *gorm.DB {
		return s.db.Model(&models.Review{}).
			Where("business_id = ? AND created_at >= ? AND created_at < ?", businessID, start, end)
	}
	if err = base().Where("status = ?", models.ReviewStatusPending).Count(&pending).Error; err != nil {
		return
	}
	err = base().Where("status = ?", models.ReviewStatusFlagged).Count(&flagged).Error
	return
}

// resolveWindow parses the inclusive date strings into a half-open range,
// defaulting to the trailing 30 days.
func resolveWindow(startDate, endDate string) (time.Time, time.Time, error) {
	now := time.Now()
	end := startOfDay(now).AddDate(0, 0, 1)
	start := end.AddDate(0, 0, -30)

	if endDate != "" {
		parsed, err := time.ParseInLocation("2006-01-02", endDate, time.Local)
		if err != nil {
			return time.Time{}, time.Time{}, newValidationError("invalid end date %q", endDate)
		}
		end = parsed.AddDate(0, 0, 1)
	}
	if startDate != "" {
		parsed, err := time.ParseInLocation("2006-01-02", startDate, time.Local)
		if err != nil {
			return time.Time{}, time.Time{}, newValidationError("invalid start date %q", startDate)
		}
		start = parsed
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, newValidationError("end date precedes start date")
	}
	return start, end, nil
}
