package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/gigmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/models"
)

func (s *Service) SaveGig(ctx context.Context, userID uuid.UUID, gigID uint) (*models.SavedGig, error) {
	db := s.DB.WithContext(ctx)
	if err := db.Where("id = ? AND status = ?", gigID, models.GigActive).First(&models.Gig{}).Error; err != nil {
		return nil, apperr.FromDB(err, "gig", nil)
	}
	sg := &models.SavedGig{UserID: userID, GigID: gigID}
	if err := db.Create(sg).Error; err != nil {
		return nil, apperr.FromDB(err, "saved gig", apperr.Conflict(apperr.CodeDuplicate, "gig_id", "Gig is already saved"))
	}
	return sg, nil
}

func (s *Service) UnsaveGig(ctx context.Context, userID uuid.UUID, gigID uint) error {
	res := s.DB.WithContext(ctx).Where("user_id = ? AND gig_id = ?", userID, gigID).Delete(&models.SavedGig{})
	if res.Error != nil {
		return apperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("saved gig")
	}
	return nil
}

func (s *Service) SavedGigs(ctx context.Context, userID uuid.UUID) ([]models.SavedGig, error) {
	out := []models.SavedGig{}
	err := s.DB.WithContext(ctx).
		Preload("Gig").
		Preload("Gig.Packages", func(db *gorm.DB) *gorm.DB { return db.Order("price") }).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}
