package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/gigmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/models"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/pagination"
)

type RatingStats struct {
	Average float64 `json:"average"`
	Count   int64   `json:"count"`
}

// GigCard is the list shape of a gig.
type GigCard struct {
	models.Gig
	MinPrice decimal.Decimal `json:"min_price"`
	Rating   RatingStats     `json:"rating"`
}

type SellerSummary struct {
	UserID         uuid.UUID `json:"user_id"`
	Username       string    `json:"username"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	ProfilePicture string    `json:"profile_picture"`
	ProfileTitle   string    `json:"profile_title"`
}

type GigDetail struct {
	GigCard
	Seller SellerSummary `json:"seller"`
}

type PublicFilter struct {
	Category    string
	SubCategory string
	Seller      string
	IsFeatured  *bool
	Search      string
	Ordering    string
	pagination.Params
}

type GigPage struct {
	Items []GigCard       `json:"items"`
	Meta  pagination.Meta `json:"meta"`
}

var orderings = map[string]string{
	"price":       "mp.min_price ASC NULLS LAST, gigs.id",
	"-price":      "mp.min_price DESC NULLS LAST, gigs.id",
	"created_at":  "gigs.created_at ASC, gigs.id",
	"-created_at": "gigs.created_at DESC, gigs.id DESC",
}

// PublicGigs lists active gigs only. Price ordering uses the cheapest package.
func (s *Service) PublicGigs(ctx context.Context, f PublicFilter) (*GigPage, error) {
	pg := f.Params.Normalize()
	db := s.DB.WithContext(ctx)

	ordering := f.Ordering
	if ordering == "" {
		ordering = "-created_at"
	}
	orderBy, ok := orderings[ordering]
	if !ok {
		return nil, apperr.Field("ordering", "Ordering must be one of price, -price, created_at, -created_at")
	}

	q := db.Model(&models.Gig{}).
		Joins("LEFT JOIN (SELECT gig_id, MIN(price) AS min_price FROM gig_packages GROUP BY gig_id) mp ON mp.gig_id = gigs.id").
		Where("gigs.status = ?", models.GigActive)

	if f.Category != "" {
		q = q.Where("gigs.category_id IN (?)", db.Model(&models.Category{}).Select("id").Where("slug = ?", f.Category))
	}
	if f.SubCategory != "" {
		q = q.Where("gigs.sub_category_id IN (?)", db.Model(&models.SubCategory{}).Select("id").Where("slug = ?", f.SubCategory))
	}
	if f.Seller != "" {
		sellerID, err := uuid.Parse(f.Seller)
		if err != nil {
			return nil, apperr.Field("seller", "Seller must be a user id")
		}
		q = q.Where("gigs.seller_id IN (?)", db.Model(&models.SellerProfile{}).Select("id").Where("user_id = ?", sellerID))
	}
	if f.IsFeatured != nil {
		q = q.Where("gigs.is_featured = ?", *f.IsFeatured)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		like := "%" + escapeLike(term) + "%"
		q = q.Where("gigs.title ILIKE ? OR gigs.description ILIKE ?", like, like)
	}

	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, apperr.Internal(err)
	}

	var gigs []models.Gig
	err := q.Select("gigs.*").
		Preload("Packages", orderPackages).
		Preload("Category").
		Order(orderBy).
		Offset(pg.Offset()).Limit(pg.Limit).
		Find(&gigs).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}

	cards, err := s.cards(ctx, gigs)
	if err != nil {
		return nil, err
	}
	return &GigPage{Items: cards, Meta: pagination.NewMeta(pg, total)}, nil
}

// GigDetail shows a gig with its children, seller summary and rating stats.
// Gigs that are not active are visible to their owner only.
func (s *Service) GigDetail(ctx context.Context, viewerID uuid.UUID, gigID uint) (*GigDetail, error) {
	db := s.DB.WithContext(ctx)
	var g models.Gig
	err := db.
		Preload("Seller").
		Preload("Packages", orderPackages).
		Preload("FAQs", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Gallery", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Category").
		Preload("SubCategory").
		First(&g, gigID).Error
	if err != nil {
		return nil, apperr.FromDB(err, "gig", nil)
	}
	if g.Seller == nil {
		return nil, apperr.NotFound("gig")
	}
	if g.Status != models.GigActive && g.Seller.UserID != viewerID {
		return nil, apperr.NotFound("gig")
	}

	var u models.User
	if err := db.First(&u, "id = ?", g.Seller.UserID).Error; err != nil {
		return nil, apperr.FromDB(err, "seller", nil)
	}

	cards, err := s.cards(ctx, []models.Gig{g})
	if err != nil {
		return nil, err
	}
	return &GigDetail{
		GigCard: cards[0],
		Seller: SellerSummary{
			UserID:         u.ID,
			Username:       u.Username,
			FirstName:      u.FirstName,
			LastName:       u.LastName,
			ProfilePicture: u.ProfilePicture,
			ProfileTitle:   g.Seller.ProfileTitle,
		},
	}, nil
}

func (s *Service) cards(ctx context.Context, gigs []models.Gig) ([]GigCard, error) {
	ids := make([]uint, 0, len(gigs))
	for _, g := range gigs {
		ids = append(ids, g.ID)
	}
	stats, err := s.ratingStats(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]GigCard, 0, len(gigs))
	for _, g := range gigs {
		out = append(out, GigCard{Gig: g, MinPrice: g.MinPrice(), Rating: stats[g.ID]})
	}
	return out, nil
}

func (s *Service) ratingStats(ctx context.Context, gigIDs []uint) (map[uint]RatingStats, error) {
	out := map[uint]RatingStats{}
	if len(gigIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		GigID   uint
		Average float64
		Count   int64
	}
	err := s.DB.WithContext(ctx).Model(&models.GigRating{}).
		Select("gig_id, AVG(rating) AS average, COUNT(*) AS count").
		Where("gig_id IN ?", gigIDs).
		Group("gig_id").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	for _, r := range rows {
		out[r.GigID] = RatingStats{Average: r.Average, Count: r.Count}
	}
	return out, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
