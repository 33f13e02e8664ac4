package models

import (
	"time"

	"gorm.io/gorm"
)

// Review status values
const (
	ReviewStatusPending   = "pending"
	ReviewStatusPublished = "published"
	ReviewStatusFlagged   = "flagged"
)

// User represents a platform account. Staff members are users attached to a
// business with the "staff" role.
type User struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Username   string         `gorm:"uniqueIndex;size:100;not null" json:"username"`
	Password   string         `gorm:"size:255" json:"-"` // Hashed password
	Email      string         `gorm:"size:255" json:"email"`
	Nickname   string         `gorm:"size:100" json:"nickname"`
	Role       string         `gorm:"size:50;default:user" json:"role"` // superadmin, owner, staff, user
	BusinessID *uint          `gorm:"index" json:"business_id"`         // Set for owner/staff accounts
	IsActive   bool           `gorm:"default:true" json:"is_active"`
	LastLogin  *time.Time     `json:"last_login"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// GuestUser identifies an unauthenticated reviewer by name/phone only.
type GuestUser struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:200" json:"name"`
	Phone     string    `gorm:"size:50;index" json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// Business is a tenant collecting reviews. Anti-abuse and publish-threshold
// policy is configured per business, not globally.
type Business struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	Name             string         `gorm:"size:200;not null" json:"name"`
	OwnerID          uint           `json:"owner_id"`
	PublishThreshold float64        `gorm:"default:0" json:"publish_threshold"` // Min business-wide average for auto-publish
	IPCheckEnabled   bool           `gorm:"default:false" json:"ip_check_enabled"`
	GeoCheckEnabled  bool           `gorm:"default:false" json:"geo_check_enabled"`
	Latitude         float64        `json:"latitude"`
	Longitude        float64        `json:"longitude"`
	GeoRadiusM       float64        `gorm:"default:500" json:"geo_radius_m"` // Geofence radius in meters
	Country          string         `gorm:"size:10;default:NONE" json:"country"`
	DigestEnabled    bool           `gorm:"default:false" json:"digest_enabled"`
	WebhookURL       string         `gorm:"size:500" json:"webhook_url"` // Daily digest push target
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

// Branch is a physical location of a business.
type Branch struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	BusinessID uint           `gorm:"index;not null" json:"business_id"`
	Name       string         `gorm:"size:200;not null" json:"name"`
	Address    string         `gorm:"size:500" json:"address"`
	IsActive   bool           `gorm:"default:true" json:"is_active"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// Survey is a named structured question set, as opposed to the overall flow.
type Survey struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	BusinessID uint           `gorm:"index;not null" json:"business_id"`
	Name       string         `gorm:"size:200;not null" json:"name"`
	IsActive   bool           `gorm:"default:true" json:"is_active"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// Question is a prompt a business asks. BusinessID nil means a default
// superadmin-owned question available to every tenant.
type Question struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	BusinessID  *uint          `gorm:"index" json:"business_id"`
	SurveyID    *uint          `gorm:"index" json:"survey_id"`
	Text        string         `gorm:"size:500;not null" json:"text"`
	IsOverall   bool           `gorm:"default:true" json:"is_overall"`
	IsDefault   bool           `gorm:"default:false" json:"is_default"`
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	ShowToGuest bool           `gorm:"default:true" json:"show_to_guest"`
	ShowToUser  bool           `gorm:"default:true" json:"show_to_user"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// Star is a rating level definition (value 1..5 on the default scale).
type Star struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Value      int       `gorm:"not null" json:"value"`
	BusinessID *uint     `gorm:"index" json:"business_id"`
	IsDefault  bool      `gorm:"default:false" json:"is_default"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Tag is a qualitative label attachable to a star+question combination.
type Tag struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Name       string         `gorm:"size:200;not null" json:"name"`
	QuestionID uint           `gorm:"index" json:"question_id"`
	StarID     uint           `gorm:"index" json:"star_id"`
	BusinessID *uint          `gorm:"index" json:"business_id"`
	IsDefault  bool           `gorm:"default:false" json:"is_default"`
	IsActive   bool           `gorm:"default:true" json:"is_active"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// Review is one customer/guest submission. The Rate column is a display cache
// written once at intake; aggregation always recomputes from Answers.
type Review struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	PublicID       string         `gorm:"uniqueIndex;size:36" json:"public_id"`
	BusinessID     uint           `gorm:"index;not null" json:"business_id"`
	BranchID       *uint          `gorm:"index" json:"branch_id"`
	SurveyID       *uint          `gorm:"index" json:"survey_id"`
	StaffID        *uint          `gorm:"index" json:"staff_id"` // Employee being rated
	UserID         *uint          `gorm:"index" json:"user_id"`  // Registered author
	GuestID        *uint          `gorm:"index" json:"guest_id"` // Guest author
	Comment        string         `gorm:"type:text" json:"comment"`
	AudioURL       string         `gorm:"size:500" json:"audio_url"`
	Transcript     string         `gorm:"type:text" json:"transcript"`
	Rate           float64        `json:"rate"` // Denormalized, see ComputeRatings
	SentimentScore float64        `gorm:"default:0.5" json:"sentiment_score"`
	Topics         string         `gorm:"size:1000" json:"topics"` // Comma-separated labels
	ModerationNote string         `gorm:"size:500" json:"moderation_note"`
	Status         string         `gorm:"size:20;default:pending;index" json:"status"`
	IsOverall      bool           `gorm:"default:true;index" json:"is_overall"`
	IsPrivate      bool           `gorm:"default:false" json:"is_private"`
	OrderNo        int            `gorm:"default:0" json:"order_no"`
	IPAddress      string         `gorm:"size:50;index" json:"-"`
	ReplyComment   string         `gorm:"type:text" json:"reply_comment"`
	RespondedAt    *time.Time     `json:"responded_at"`
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// Answer is one (question, star, tag) response tuple belonging to a review.
// A review may carry several answers for one question (one per selected tag);
// only distinct question ids count toward the rating denominator.
type Answer struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ReviewID   uint      `gorm:"index;not null" json:"review_id"`
	QuestionID uint      `gorm:"index;not null" json:"question_id"`
	StarID     uint      `gorm:"index;not null" json:"star_id"`
	TagID      *uint     `gorm:"index" json:"tag_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// DailyDigest is a stored per-business daily report snapshot.
type DailyDigest struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	BusinessID    uint       `gorm:"index;not null" json:"business_id"`
	ReportDate    time.Time  `gorm:"index" json:"report_date"`
	TotalReviews  int        `json:"total_reviews"`
	AverageRating float64    `json:"average_rating"`
	PositivePct   int        `json:"positive_pct"`
	NeutralPct    int        `json:"neutral_pct"`
	NegativePct   int        `json:"negative_pct"`
	PendingCount  int        `json:"pending_count"`
	FlaggedCount  int        `json:"flagged_count"`
	TopStaff      string     `gorm:"type:text" json:"top_staff"`    // JSON array
	TopBranches   string     `gorm:"type:text" json:"top_branches"` // JSON array
	NotifiedAt    *time.Time `json:"notified_at"`
	NotifyError   string     `gorm:"type:text" json:"notify_error"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TableName overrides
func (User) TableName() string        { return "users" }
func (GuestUser) TableName() string   { return "guest_users" }
func (Business) TableName() string    { return "businesses" }
func (Branch) TableName() string      { return "branches" }
func (Survey) TableName() string      { return "surveys" }
func (Question) TableName() string    { return "questions" }
func (Star) TableName() string        { return "stars" }
func (Tag) TableName() string         { return "tags" }
func (Review) TableName() string      { return "reviews" }
func (Answer) TableName() string      { return "answers" }
func (DailyDigest) TableName() string { return "daily_digests" }

// IsGuestAuthored reports whether the review falls in the guest partition.
// Canonical rule: guest reference present and no registered-user reference.
func (r *Review) IsGuestAuthored() bool {
	return r.GuestID != nil && r.UserID == nil
}

// IsRegisteredAuthored reports whether the review falls in the registered
// (customer) partition: a registered-user reference is present.
func (r *Review) IsRegisteredAuthored() bool {
	return r.UserID != nil
}
