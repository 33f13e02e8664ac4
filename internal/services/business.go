package services

import (
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/raterly/backend/internal/models"
	"gorm.io/gorm"
)

// BusinessService reads business policy rows. Intake consults the business
// on every submission, so rows are cached with a short TTL; writes must call
// Invalidate.
type BusinessService struct {
	db    *gorm.DB
	cache *gocache.Cache
}

func NewBusinessService(db *gorm.DB) *BusinessService {
	return &BusinessService{
		db:    db,
		cache: gocache.New(5*time.Minute, 10*time.Minute),
	}
}

func businessCacheKey(id uint) string {
	return fmt.Sprintf("business:%d", id)
}

// Get returns a business by id, from cache when fresh.
func (s *BusinessService) Get(id uint) (*models.Business, error) {
	if cached, ok := s.cache.Get(businessCacheKey(id)); ok {
		return cached.(*models.Business), nil
	}

	var biz models.Business
	err := s.db.First(&biz, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Entity: "business", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load business %d: %w", id, err)
	}

	s.cache.Set(businessCacheKey(id), &biz, gocache.DefaultExpiration)
	return &biz, nil
}

// Update persists policy changes and drops the cached row.
func (s *BusinessService) Update(biz *models.Business) error {
	if err := s.db.Save(biz).Error; err != nil {
		return fmt.Errorf("failed to update business %d: %w", biz.ID, err)
	}
	s.Invalidate(biz.ID)
	return nil
}

// Invalidate drops a business from the cache.
func (s *BusinessService) Invalidate(id uint) {
	s.cache.Delete(businessCacheKey(id))
}

// ListDigestEnabled returns all businesses that want a daily digest.
func (s *BusinessService) ListDigestEnabled() ([]models.Business, error) {
	var businesses []models.Business
	if err := s.db.Where("digest_enabled = ?", true).Find(&businesses).Error; err != nil {
		return nil, fmt.Errorf("failed to list digest-enabled businesses: %w", err)
	}
	return businesses, nil
}
