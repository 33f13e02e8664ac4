package services

import (
	"time"

	"github.com/raterly/backend/internal/models"
	"gorm.io/gorm"
)

// GuestPartition selects which author class a scope covers.
type GuestPartition string

const (
	PartitionAll        GuestPartition = "all"
	PartitionGuest      GuestPartition = "guest"
	PartitionRegistered GuestPartition = "registered"
)

// ReviewScope describes one filtered slice of reviews. Time bounds are
// half-open [Start, End); zero values mean unbounded. The zero Partition
// behaves as PartitionAll. Anonymous reviews (no user and no guest record)
// appear only under PartitionAll.
type ReviewScope struct {
	BusinessID uint
	BranchID   *uint
	StaffID    *uint
	SurveyID   *uint
	IsOverall  *bool
	Start      time.Time
	End        time.Time
	Partition  GuestPartition

	// BypassTenant lifts the business restriction (superadmin views).
	BypassTenant bool
	// IncludeUnpublished adds pending and flagged reviews (owner/admin views).
	IncludeUnpublished bool
	// IncludePrivate adds reviews the author marked private (owner/admin views).
	IncludePrivate bool
}

// ScopeFilter turns a ReviewScope into review queries. All aggregation
// reads flow through here so tenancy and visibility rules live in one place.
type ScopeFilter struct {
	db *gorm.DB
}

func NewScopeFilter(db *gorm.DB) *ScopeFilter {
	return &ScopeFilter{db: db}
}

// Query builds the base review query for a scope. Soft-deleted rows are
// excluded by gorm's DeletedAt handling.
func (f *ScopeFilter) Query(scope ReviewScope) *gorm.DB {
	q := f.db.Model(&models.Review{})

	if !scope.BypassTenant {
		q = q.Where("reviews.business_id = ?", scope.BusinessID)
	}
	if scope.BranchID != nil {
		q = q.Where("reviews.branch_id = ?", *scope.BranchID)
	}
	if scope.StaffID != nil {
		q = q.Where("reviews.staff_id = ?", *scope.StaffID)
	}
	if scope.SurveyID != nil {
		q = q.Where("reviews.survey_id = ?", *scope.SurveyID)
	}
	if scope.IsOverall != nil {
		q = q.Where("reviews.is_overall = ?", *scope.IsOverall)
	}
	if !scope.Start.IsZero() {
		q = q.Where("reviews.created_at >= ?", scope.Start)
	}
	if !scope.End.IsZero() {
		q = q.Where("reviews.created_at < ?", scope.End)
	}

	switch scope.Partition {
	case PartitionGuest:
		q = q.Where("reviews.guest_id IS NOT NULL AND reviews.user_id IS NULL")
	case PartitionRegistered:
		q = q.Where("reviews.user_id IS NOT NULL")
	}

	if !scope.IncludeUnpublished {
		q = q.Where("reviews.status = ?", models.ReviewStatusPublished)
	}
	if !scope.IncludePrivate {
		q = q.Where("reviews.is_private = ?", false)
	}
	return q
}

// QualifyingIDs returns the ids of all reviews matching the scope.
func (f *ScopeFilter) QualifyingIDs(scope ReviewScope) ([]uint, error) {
	var ids []uint
	if err := f.Query(scope).Order("reviews.id").Pluck("reviews.id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Count returns the number of reviews matching the scope.
func (f *ScopeFilter) Count(scope ReviewScope) (int64, error) {
	var count int64
	if err := f.Query(scope).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
