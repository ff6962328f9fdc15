package orders

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/gigmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/models"
)

// Rate lets the buyer score a completed order once; the second attempt is
// rejected by the (order_id, buyer_id) unique index.
func (s *Service) Rate(ctx context.Context, userID, orderID uuid.UUID, rating int, review string) (*models.OrderRating, error) {
	if err := models.ValidateRating(rating, review); err != nil {
		return nil, err
	}
	o, err := s.party(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if o.ActorFor(userID) != models.ActorBuyer {
		return nil, apperr.Permission(apperr.CodeNotParty, "Only the buyer can rate this order")
	}
	if o.Status != models.OrderCompleted {
		return nil, apperr.Field("status", "Only completed orders can be rated")
	}

	r := &models.OrderRating{
		OrderID:  o.ID,
		BuyerID:  userID,
		SellerID: o.SellerID,
		Rating:   rating,
		Review:   strings.TrimSpace(review),
	}
	if err := s.DB.WithContext(ctx).Create(r).Error; err != nil {
		return nil, apperr.FromDB(err, "rating", apperr.ErrDuplicateRating)
	}
	return r, nil
}

// SellerRatings lists the public reviews a seller received, newest first.
func (s *Service) SellerRatings(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.OrderRating, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	out := []models.OrderRating{}
	err := s.DB.WithContext(ctx).
		Preload("Buyer", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "username", "first_name", "last_name", "profile_picture")
		}).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}
