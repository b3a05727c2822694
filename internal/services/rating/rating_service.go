package rating

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/automate-app/automate_be/internal/models"
)

type RatingService struct {
	DB *gorm.DB
}

func NewRatingService(db *gorm.DB) *RatingService {
	return &RatingService{DB: db}
}

// Recompute rebuilds the mechanic's stored average rating and review
// count from scratch. Always a full aggregate over every review whose
// request is assigned to the mechanic; review volume per mechanic is
// small enough that incremental bookkeeping isn't worth the states it
// can get wrong. Silent no-op when the mechanic has no profile yet.
//
// Must be called after review create, rating change, and delete. The
// review write and this recompute are separate writes; concurrent
// reviews for one mechanic race last-write-wins.
func (s *RatingService) Recompute(mechanicID uuid.UUID) error {
	var profile models.MechanicProfile
	if err := s.DB.Where("user_id = ?", mechanicID).First(&profile).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		return err
	}

	var stats struct {
		AvgRating   float64
		ReviewCount int64
	}
	err := s.DB.Model(&models.Review{}).
		Where("service_request_id IN (SELECT id FROM service_requests WHERE mechanic_id = ?)", mechanicID).
		Select("COALESCE(AVG(rating), 0) as avg_rating, COUNT(*) as review_count").
		Scan(&stats).Error
	if err != nil {
		return err
	}

	profile.AverageRating = stats.AvgRating
	profile.TotalReviews = int(stats.ReviewCount)
	return s.DB.Save(&profile).Error
}
