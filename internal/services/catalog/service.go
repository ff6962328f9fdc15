// Package catalog owns categories, gigs with their packages, FAQs and
// gallery, saved gigs and gig ratings.
package catalog

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/gigmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/models"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/storage"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/utils"
)

type Service struct {
	DB      *gorm.DB
	Storage storage.Storage
}

func NewService(db *gorm.DB, store storage.Storage) *Service {
	return &Service{DB: db, Storage: store}
}

// Categories returns active categories with their active subcategories.
func (s *Service) Categories(ctx context.Context) ([]models.Category, error) {
	out := []models.Category{}
	err := s.DB.WithContext(ctx).
		Preload("SubCategories", "is_active = ?", true, func(db *gorm.DB) *gorm.DB { return db.Order("name") }).
		Where("is_active = ?", true).
		Order("name").
		Find(&out).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

func (s *Service) SubCategories(ctx context.Context, categorySlug string) ([]models.SubCategory, error) {
	var cat models.Category
	db := s.DB.WithContext(ctx)
	if err := db.Where("slug = ? AND is_active = ?", categorySlug, true).First(&cat).Error; err != nil {
		return nil, apperr.FromDB(err, "category", nil)
	}
	out := []models.SubCategory{}
	if err := db.Where("category_id = ? AND is_active = ?", cat.ID, true).Order("name").Find(&out).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

type CategoryInput struct {
	Name          string
	Description   string
	SubCategories []string
}

// CreateCategory inserts a category and its subcategories in one go.
// Subcategory slugs are prefixed with the category slug.
func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || len(name) > 100 {
		return nil, apperr.Field("name", "Name is required and must be at most 100 characters")
	}
	slug := utils.Slugify(name)
	if slug == "" {
		return nil, apperr.Field("name", "Name must contain letters or digits")
	}

	cat := &models.Category{Name: name, Slug: slug, Description: strings.TrimSpace(in.Description), IsActive: true}
	seen := map[string]bool{}
	for _, sub := range in.SubCategories {
		sub = strings.TrimSpace(sub)
		subSlug := utils.Slugify(sub)
		if subSlug == "" || seen[subSlug] {
			return nil, apperr.Field("subcategories", "Subcategory names must be non-empty and unique")
		}
		seen[subSlug] = true
		cat.SubCategories = append(cat.SubCategories, models.SubCategory{
			Name:     sub,
			Slug:     slug + "-" + subSlug,
			IsActive: true,
		})
	}

	if err := s.DB.WithContext(ctx).Create(cat).Error; err != nil {
		return nil, apperr.FromDB(err, "category", apperr.Conflict(apperr.CodeDuplicate, "name", "A category with that name already exists"))
	}
	return cat, nil
}

// EnsureCategory is the idempotent insert used by the seeder.
func (s *Service) EnsureCategory(ctx context.Context, in CategoryInput) (*models.Category, bool, error) {
	var existing models.Category
	err := s.DB.WithContext(ctx).Where("slug = ?", utils.Slugify(in.Name)).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, apperr.Internal(err)
	}
	cat, err := s.CreateCategory(ctx, in)
	return cat, err == nil, err
}
