package catalog

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Windi-Fikriyansyah/gigmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/models"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/storage"
)

const maxPackages = 3

type PackageInput struct {
	ID                *uint           `json:"id"`
	PackageName       string          `json:"package_name"`
	Description       string          `json:"description"`
	Price             decimal.Decimal `json:"price"`
	NumberOfRevisions int             `json:"number_of_revisions"`
	DeliveryDays      int             `json:"delivery_days"`
}

type FAQInput struct {
	ID       *uint  `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Upload is one gallery file with its declared media type.
type Upload struct {
	MediaType models.MediaType
	File      *multipart.FileHeader
}

type Media struct {
	Thumbnail *multipart.FileHeader
	Gallery   []Upload
}

type GigInput struct {
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	CategoryID    uint           `json:"category_id"`
	SubCategoryID *uint          `json:"subcategory_id"`
	DeliveryTime  int            `json:"delivery_time"`
	Tags          []string       `json:"tags"`
	Status        string         `json:"status"`
	Packages      []PackageInput `json:"packages"`
	FAQs          []FAQInput     `json:"faqs"`
}

// GigPatch leaves nil fields untouched. Packages and FAQs are synced:
// items with an id are updated, items without are created, the rest deleted.
// ClearSubCategory detaches the gig from its subcategory.
type GigPatch struct {
	Title            *string         `json:"title"`
	Description      *string         `json:"description"`
	CategoryID       *uint           `json:"category_id"`
	SubCategoryID    *uint           `json:"subcategory_id"`
	ClearSubCategory bool            `json:"clear_subcategory"`
	DeliveryTime  *int            `json:"delivery_time"`
	Tags          *[]string       `json:"tags"`
	Status        *string         `json:"status"`
	Packages      *[]PackageInput `json:"packages"`
	FAQs          *[]FAQInput     `json:"faqs"`
}

func (in GigInput) validate(errs apperr.FieldErrors) {
	validateTitle(in.Title, errs)
	validateDescription(in.Description, errs)
	validateDeliveryTime(in.DeliveryTime, errs)
	validateTags(in.Tags, errs)
	validateStatus(in.Status, errs)
	if in.CategoryID == 0 {
		errs.Add("category_id", "Category is required")
	}
	validatePackages(in.Packages, errs)
	validateFAQs(in.FAQs, errs)
}

func (p GigPatch) validate(errs apperr.FieldErrors) {
	if p.Title != nil {
		validateTitle(*p.Title, errs)
	}
	if p.Description != nil {
		validateDescription(*p.Description, errs)
	}
	if p.DeliveryTime != nil {
		validateDeliveryTime(*p.DeliveryTime, errs)
	}
	if p.Tags != nil {
		validateTags(*p.Tags, errs)
	}
	if p.Status != nil {
		validateStatus(*p.Status, errs)
	}
	if p.Packages != nil {
		validatePackages(*p.Packages, errs)
	}
	if p.FAQs != nil {
		validateFAQs(*p.FAQs, errs)
	}
	if p.ClearSubCategory && p.SubCategoryID != nil {
		errs.Add("subcategory_id", "Cannot set and clear the subcategory at once")
	}
}

func validateTitle(s string, errs apperr.FieldErrors) {
	if n := runeLen(s); n < 5 || n > 255 {
		errs.Add("title", "Title must be between 5 and 255 characters")
	}
}

func validateDescription(s string, errs apperr.FieldErrors) {
	if runeLen(s) == 0 {
		errs.Add("description", "Description is required")
	}
}

func validateDeliveryTime(days int, errs apperr.FieldErrors) {
	if days < 1 {
		errs.Add("delivery_time", "Delivery time must be at least 1 day")
	}
}

func validateTags(tags []string, errs apperr.FieldErrors) {
	if len(tags) > 10 {
		errs.Add("tags", "At most 10 tags are allowed")
	}
	for i, t := range tags {
		if n := runeLen(t); n == 0 || n > 50 {
			errs.Add(fmt.Sprintf("tags[%d]", i), "Tag must be between 1 and 50 characters")
		}
	}
}

func validateStatus(s string, errs apperr.FieldErrors) {
	if _, ok := models.NormalizeGigStatus(models.GigStatus(s)); !ok {
		errs.Add("status", "Status must be one of draft, active, paused")
	}
}

func validatePackages(items []PackageInput, errs apperr.FieldErrors) {
	if len(items) == 0 || len(items) > maxPackages {
		errs.Add("packages", fmt.Sprintf("Provide between 1 and %d packages", maxPackages))
	}
	seen := map[models.PackageName]bool{}
	for i, p := range items {
		key := fmt.Sprintf("packages[%d]", i)
		name := models.PackageName(strings.TrimSpace(p.PackageName))
		switch {
		case !name.Valid():
			errs.Add(key+".package_name", "Package name must be Basic, Standard or Premium")
		case seen[name]:
			errs.Add(key+".package_name", "Package names must be unique per gig")
		}
		seen[name] = true
		if !p.Price.IsPositive() {
			errs.Add(key+".price", "Price must be greater than zero")
		} else if p.Price.Exponent() < -2 {
			errs.Add(key+".price", "Price must have at most 2 decimal places")
		}
		if p.NumberOfRevisions < 0 {
			errs.Add(key+".number_of_revisions", "Revisions cannot be negative")
		}
		if p.DeliveryDays < 1 {
			errs.Add(key+".delivery_days", "Delivery days must be at least 1")
		}
	}
}

func validateFAQs(items []FAQInput, errs apperr.FieldErrors) {
	for i, f := range items {
		key := fmt.Sprintf("faqs[%d]", i)
		if n := runeLen(f.Question); n == 0 || n > 255 {
			errs.Add(key+".question", "Question is required and must be at most 255 characters")
		}
		if runeLen(f.Answer) == 0 {
			errs.Add(key+".answer", "Answer is required")
		}
	}
}

func validateMedia(m Media, errs apperr.FieldErrors) {
	if m.Thumbnail != nil {
		if err := storage.GalleryImageRule.Check("thumbnail_image", m.Thumbnail); err != nil {
			errs.Merge("", apperr.As(err).Fields)
		}
	}
	for i, up := range m.Gallery {
		key := fmt.Sprintf("gallery_files[%d]", i)
		rule := storage.GalleryImageRule
		switch up.MediaType {
		case models.MediaImage:
		case models.MediaVideo:
			rule = storage.GalleryVideoRule
		default:
			errs.Add(fmt.Sprintf("gallery_meta[%d].media_type", i), "Media type must be image or video")
			continue
		}
		if err := rule.Check(key, up.File); err != nil {
			errs.Merge("", apperr.As(err).Fields)
		}
	}
}

// CreateGig validates everything up front, stores uploads, then writes the
// gig and its children in one transaction.
func (s *Service) CreateGig(ctx context.Context, userID uuid.UUID, in GigInput, media Media) (*GigDetail, error) {
	errs := apperr.FieldErrors{}
	in.validate(errs)
	validateMedia(media, errs)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	profile, err := s.sellerProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.checkCategory(s.DB.WithContext(ctx), in.CategoryID, in.SubCategoryID); err != nil {
		return nil, apperr.FromDB(err, "category", nil)
	}

	status, _ := models.NormalizeGigStatus(models.GigStatus(in.Status))
	gig := &models.Gig{
		SellerID:      profile.ID,
		CategoryID:    in.CategoryID,
		SubCategoryID: in.SubCategoryID,
		Title:         strings.TrimSpace(in.Title),
		Description:   strings.TrimSpace(in.Description),
		DeliveryTime:  in.DeliveryTime,
		Status:        status,
	}
	gig.SetTags(trimAll(in.Tags))
	for _, p := range in.Packages {
		gig.Packages = append(gig.Packages, packageRow(0, p))
	}
	for _, f := range in.FAQs {
		gig.FAQs = append(gig.FAQs, models.GigFAQ{Question: strings.TrimSpace(f.Question), Answer: strings.TrimSpace(f.Answer)})
	}
	stored, err := s.storeMedia(ctx, gig, media)
	if err != nil {
		return nil, err
	}

	if err := s.DB.WithContext(ctx).Create(gig).Error; err != nil {
		storage.Discard(ctx, s.Storage, stored...)
		return nil, apperr.FromDB(err, "gig", nil)
	}
	return s.GigDetail(ctx, userID, gig.ID)
}

func (s *Service) UpdateGig(ctx context.Context, userID uuid.UUID, gigID uint, p GigPatch, media Media) (*GigDetail, error) {
	errs := apperr.FieldErrors{}
	p.validate(errs)
	validateMedia(media, errs)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	profile, err := s.sellerProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	var stored []string
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var gig models.Gig
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&gig, gigID).Error; err != nil {
			return err
		}
		if gig.SellerID != profile.ID {
			return apperr.Permission(apperr.CodeNotOwner, "You do not own this gig")
		}

		if p.Title != nil {
			gig.Title = strings.TrimSpace(*p.Title)
		}
		if p.Description != nil {
			gig.Description = strings.TrimSpace(*p.Description)
		}
		if p.DeliveryTime != nil {
			gig.DeliveryTime = *p.DeliveryTime
		}
		if p.Tags != nil {
			gig.SetTags(trimAll(*p.Tags))
		}
		if p.Status != nil {
			gig.Status, _ = models.NormalizeGigStatus(models.GigStatus(*p.Status))
		}
		if p.CategoryID != nil || p.SubCategoryID != nil || p.ClearSubCategory {
			if p.ClearSubCategory {
				gig.SubCategoryID = nil
			}
			if p.CategoryID != nil {
				if *p.CategoryID != gig.CategoryID {
					gig.SubCategoryID = nil
				}
				gig.CategoryID = *p.CategoryID
			}
			if p.SubCategoryID != nil {
				gig.SubCategoryID = p.SubCategoryID
			}
			if err := s.checkCategory(tx, gig.CategoryID, gig.SubCategoryID); err != nil {
				return err
			}
		}

		if p.Packages != nil {
			if err := syncPackages(tx, gig.ID, *p.Packages); err != nil {
				return err
			}
		}
		if p.FAQs != nil {
			if err := syncFAQs(tx, gig.ID, *p.FAQs); err != nil {
				return err
			}
		}

		// Gallery only grows on update.
		var gallery models.Gig
		var err error
		if stored, err = s.storeMedia(ctx, &gallery, media); err != nil {
			return err
		}
		if gallery.Thumbnail != "" {
			gig.Thumbnail = gallery.Thumbnail
		}
		for i := range gallery.Gallery {
			gallery.Gallery[i].GigID = gig.ID
		}
		if len(gallery.Gallery) > 0 {
			if err := tx.Create(&gallery.Gallery).Error; err != nil {
				return err
			}
		}

		return tx.Model(&gig).
			Select("title", "description", "category_id", "sub_category_id", "delivery_time", "tags", "status", "thumbnail", "updated_at").
			Updates(&gig).Error
	})
	if err != nil {
		storage.Discard(ctx, s.Storage, stored...)
		return nil, apperr.FromDB(err, "gig", apperr.Conflict(apperr.CodeDuplicate, "packages", "Package names must be unique per gig"))
	}
	return s.GigDetail(ctx, userID, gigID)
}

func (s *Service) DeleteGig(ctx context.Context, userID uuid.UUID, gigID uint) error {
	profile, err := s.sellerProfile(ctx, userID)
	if err != nil {
		return err
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var gig models.Gig
		if err := tx.First(&gig, gigID).Error; err != nil {
			return err
		}
		if gig.SellerID != profile.ID {
			return apperr.Permission(apperr.CodeNotOwner, "You do not own this gig")
		}
		return tx.Delete(&gig).Error
	})
	return apperr.FromDB(err, "gig", nil)
}

// MyGigs lists every gig of the caller regardless of status.
func (s *Service) MyGigs(ctx context.Context, userID uuid.UUID) ([]GigCard, error) {
	profile, err := s.sellerProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	var gigs []models.Gig
	err = s.DB.WithContext(ctx).
		Preload("Packages", orderPackages).
		Preload("Category").
		Where("seller_id = ?", profile.ID).
		Order("created_at DESC").
		Find(&gigs).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return s.cards(ctx, gigs)
}

func syncPackages(tx *gorm.DB, gigID uint, items []PackageInput) error {
	var existing []models.GigPackage
	if err := tx.Where("gig_id = ?", gigID).Find(&existing).Error; err != nil {
		return err
	}
	keep := map[uint]bool{}
	for i, it := range items {
		if it.ID == nil {
			continue
		}
		if !containsID(existing, *it.ID, func(p models.GigPackage) uint { return p.ID }) {
			return apperr.Field(fmt.Sprintf("packages[%d].id", i), "Package does not belong to this gig")
		}
		keep[*it.ID] = true
	}

	// Deletes first so a renamed package can take a freed name.
	for _, p := range existing {
		if keep[p.ID] {
			continue
		}
		if err := tx.Delete(&p).Error; err != nil {
			return err
		}
	}

	// Kept rows park on a placeholder name first, so names can swap between
	// them without tripping the (gig_id, package_name) index.
	ids := make([]uint, 0, len(keep))
	for id := range keep {
		ids = append(ids, id)
	}
	if len(ids) > 0 {
		if err := tx.Model(&models.GigPackage{}).
			Where("id IN ?", ids).
			Update("package_name", gorm.Expr("'~' || id::text")).Error; err != nil {
			return err
		}
	}
	for _, it := range items {
		if it.ID == nil {
			continue
		}
		row := packageRow(gigID, it)
		row.ID = *it.ID
		if err := tx.Model(&row).
			Select("package_name", "description", "price", "number_of_revisions", "delivery_days", "updated_at").
			Updates(&row).Error; err != nil {
			return err
		}
	}
	for _, it := range items {
		if it.ID != nil {
			continue
		}
		row := packageRow(gigID, it)
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

func syncFAQs(tx *gorm.DB, gigID uint, items []FAQInput) error {
	var existing []models.GigFAQ
	if err := tx.Where("gig_id = ?", gigID).Find(&existing).Error; err != nil {
		return err
	}
	keep := map[uint]bool{}
	for i, it := range items {
		if it.ID == nil {
			continue
		}
		if !containsID(existing, *it.ID, func(f models.GigFAQ) uint { return f.ID }) {
			return apperr.Field(fmt.Sprintf("faqs[%d].id", i), "FAQ does not belong to this gig")
		}
		keep[*it.ID] = true
	}
	for _, f := range existing {
		if !keep[f.ID] {
			if err := tx.Delete(&f).Error; err != nil {
				return err
			}
		}
	}
	for _, it := range items {
		row := models.GigFAQ{GigID: gigID, Question: strings.TrimSpace(it.Question), Answer: strings.TrimSpace(it.Answer)}
		if it.ID == nil {
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			continue
		}
		row.ID = *it.ID
		if err := tx.Model(&row).Select("question", "answer", "updated_at").Updates(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

func packageRow(gigID uint, p PackageInput) models.GigPackage {
	return models.GigPackage{
		GigID:             gigID,
		PackageName:       models.PackageName(strings.TrimSpace(p.PackageName)),
		Description:       strings.TrimSpace(p.Description),
		Price:             p.Price,
		NumberOfRevisions: p.NumberOfRevisions,
		DeliveryDays:      p.DeliveryDays,
	}
}

// storeMedia uploads the thumbnail and gallery files onto g and returns
// what it stored. On failure nothing stays behind.
func (s *Service) storeMedia(ctx context.Context, g *models.Gig, m Media) ([]string, error) {
	var stored []string
	save := func(dir string, fh *multipart.FileHeader) (string, error) {
		url, err := s.Storage.Save(ctx, dir, fh)
		if err != nil {
			storage.Discard(ctx, s.Storage, stored...)
			return "", apperr.Internal(err)
		}
		stored = append(stored, url)
		return url, nil
	}

	if m.Thumbnail != nil {
		url, err := save("gigs/thumbnails", m.Thumbnail)
		if err != nil {
			return nil, err
		}
		g.Thumbnail = url
	}
	for _, up := range m.Gallery {
		url, err := save("gigs/gallery", up.File)
		if err != nil {
			return nil, err
		}
		g.Gallery = append(g.Gallery, models.GigGallery{MediaType: up.MediaType, File: url})
	}
	return stored, nil
}

func (s *Service) checkCategory(db *gorm.DB, categoryID uint, subID *uint) error {
	var cat models.Category
	err := db.Where("id = ? AND is_active = ?", categoryID, true).First(&cat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Field("category_id", "Category does not exist")
	}
	if err != nil {
		return err
	}
	if subID == nil {
		return nil
	}
	var n int64
	if err := db.Model(&models.SubCategory{}).Where("id = ? AND category_id = ?", *subID, categoryID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return apperr.Field("subcategory_id", "Subcategory does not belong to the selected category")
	}
	return nil
}

func (s *Service) sellerProfile(ctx context.Context, userID uuid.UUID) (*models.SellerProfile, error) {
	var p models.SellerProfile
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNotASeller
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &p, nil
}

func orderPackages(db *gorm.DB) *gorm.DB { return db.Order("price") }

func containsID[T any](rows []T, id uint, key func(T) uint) bool {
	for _, r := range rows {
		if key(r) == id {
			return true
		}
	}
	return false
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.TrimSpace(s))
	}
	return out
}

func runeLen(s string) int { return len([]rune(strings.TrimSpace(s))) }
