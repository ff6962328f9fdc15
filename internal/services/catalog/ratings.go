package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/gigmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/models"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/pagination"
)

// RateGig stores one rating per (gig, buyer). Owners cannot rate their own gig.
func (s *Service) RateGig(ctx context.Context, userID uuid.UUID, gigID uint, rating int, review string) (*models.GigRating, error) {
	if err := models.ValidateRating(rating, review); err != nil {
		return nil, err
	}
	var g models.Gig
	db := s.DB.WithContext(ctx)
	if err := db.Preload("Seller").First(&g, gigID).Error; err != nil {
		return nil, apperr.FromDB(err, "gig", nil)
	}
	if g.Seller != nil && g.Seller.UserID == userID {
		return nil, apperr.Permission(apperr.CodeNotOwner, "You cannot rate your own gig")
	}

	r := &models.GigRating{
		GigID:   g.ID,
		BuyerID: userID,
		Rating:  rating,
		Review:  strings.TrimSpace(review),
	}
	if err := db.Create(r).Error; err != nil {
		return nil, apperr.FromDB(err, "rating", apperr.ErrDuplicateRating)
	}
	return r, nil
}

type RatingPage struct {
	Items []models.GigRating `json:"items"`
	Stats RatingStats        `json:"stats"`
	Meta  pagination.Meta    `json:"meta"`
}

func (s *Service) GigRatings(ctx context.Context, gigID uint, p pagination.Params) (*RatingPage, error) {
	p = p.Normalize()
	db := s.DB.WithContext(ctx)
	if err := db.First(&models.Gig{}, gigID).Error; err != nil {
		return nil, apperr.FromDB(err, "gig", nil)
	}

	stats, err := s.ratingStats(ctx, []uint{gigID})
	if err != nil {
		return nil, err
	}
	st := stats[gigID]

	out := &RatingPage{Items: []models.GigRating{}, Stats: st, Meta: pagination.NewMeta(p, st.Count)}
	err = db.Preload("Buyer", func(db *gorm.DB) *gorm.DB {
		return db.Select("id", "username", "first_name", "last_name", "profile_picture")
	}).
		Where("gig_id = ?", gigID).
		Order("created_at DESC").
		Offset(p.Offset()).Limit(p.Limit).
		Find(&out.Items).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}
