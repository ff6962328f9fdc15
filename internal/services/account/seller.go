package account

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/gigmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/models"
)

// BecomeSeller marks a verified user as seller and gives them a profile.
func (s *Service) BecomeSeller(ctx context.Context, userID uuid.UUID) (*models.User, *models.SellerProfile, error) {
	var (
		u *models.User
		p *models.SellerProfile
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if u, err = lockUser(tx, userID); err != nil {
			return err
		}
		if err := u.BecomeSeller(); err != nil {
			return err
		}
		if err := tx.Model(u).Select("is_seller", "current_role").Updates(u).Error; err != nil {
			return err
		}
		p, err = findOrCreateProfile(tx, userID)
		return err
	})
	if err != nil {
		return nil, nil, apperr.FromDB(err, "user", nil)
	}
	return u, p, nil
}

// SwitchRole returns changed=false when the user is already in role.
func (s *Service) SwitchRole(ctx context.Context, userID uuid.UUID, role string) (*models.User, bool, error) {
	r, ok := models.ParseRole(role)
	if !ok {
		return nil, false, apperr.Field("role", "Invalid role. Must be 'buyer' or 'seller'")
	}

	var (
		u       *models.User
		changed bool
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if u, err = lockUser(tx, userID); err != nil {
			return err
		}
		if changed, err = u.SwitchRole(r); err != nil || !changed {
			return err
		}
		return tx.Model(u).Update("current_role", u.CurrentRole).Error
	})
	if err != nil {
		return nil, false, apperr.FromDB(err, "user", nil)
	}
	return u, changed, nil
}

// DeleteSellerProfile revokes seller status and removes the profile with
// its gigs and children. Orders survive with their gig and package links
// cleared.
func (s *Service) DeleteSellerProfile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var u *models.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if u, err = lockUser(tx, userID); err != nil {
			return err
		}
		var p models.SellerProfile
		if err := tx.Where("user_id = ?", userID).First(&p).Error; err != nil {
			return apperr.FromDB(err, "seller profile", nil)
		}

		u.RevokeSeller()
		if err := tx.Model(u).Select("is_seller", "current_role").Updates(u).Error; err != nil {
			return err
		}
		return tx.Delete(&p).Error
	})
	if err != nil {
		return nil, apperr.FromDB(err, "user", nil)
	}
	return u, nil
}

// findOrCreateProfile is the get-or-create used by become-seller and setup.
func findOrCreateProfile(tx *gorm.DB, userID uuid.UUID) (*models.SellerProfile, error) {
	var p models.SellerProfile
	err := tx.Where("user_id = ?", userID).First(&p).Error
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	p = models.SellerProfile{UserID: userID}
	if err := tx.Create(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}
