package account

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/gigmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/models"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/storage"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/utils"
)

type EducationInput struct {
	Institution  string `json:"institution"`
	Degree       string `json:"degree"`
	FieldOfStudy string `json:"field_of_study"`
	StartYear    int    `json:"start_year"`
	EndYear      *int   `json:"end_year"`
}

// LeveledInput is the shared {name, level} request shape of skills and languages.
type LeveledInput struct {
	Name  string `json:"name"`
	Level string `json:"level"`
}

// PortfolioItemInput carries new media as an upload. MediaFile may only
// name media already stored on the profile, so kept items survive a
// wholesale replace without re-uploading.
type PortfolioItemInput struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	URL         string                `json:"url"`
	MediaFile   string                `json:"media_file"`
	Media       *multipart.FileHeader `json:"-"`
}

// ProfileInput is a partial update: nil fields are left alone, a non-nil
// collection replaces the stored one wholesale.
type ProfileInput struct {
	ProfileTitle   *string               `json:"profile_title"`
	Bio            *string               `json:"bio"`
	PortfolioLink  *string               `json:"portfolio_link"`
	Educations     *[]EducationInput     `json:"educations"`
	Skills         *[]LeveledInput       `json:"skills"`
	Languages      *[]LeveledInput       `json:"languages"`
	PortfolioItems *[]PortfolioItemInput `json:"portfolio_items"`
}

type Completion struct {
	IsComplete    bool                  `json:"is_complete"`
	MissingFields []string              `json:"missing_fields"`
	Profile       *models.SellerProfile `json:"profile"`
}

// SellerProfile loads the profile of userID with every child collection.
func (s *Service) SellerProfile(ctx context.Context, userID uuid.UUID) (*models.SellerProfile, error) {
	var p models.SellerProfile
	err := preloadProfile(s.DB.WithContext(ctx)).Where("user_id = ?", userID).First(&p).Error
	if err != nil {
		return nil, apperr.FromDB(err, "seller profile", nil)
	}
	return &p, nil
}

// Completion is for sellers only; buyers get ErrNotASeller, not a missing profile.
func (s *Service) Completion(ctx context.Context, userID uuid.UUID) (*Completion, error) {
	u, err := s.User(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.IsSeller {
		return nil, apperr.ErrNotASeller
	}
	p, err := s.SellerProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	missing := s.Rules.MissingFields(p.ProfileTitle, p.Bio, models.CountsOf(p))
	return &Completion{IsComplete: len(missing) == 0, MissingFields: missing, Profile: p}, nil
}

// SetupProfile applies in to the caller's profile in one transaction and
// persists the recomputed completeness flag.
func (s *Service) SetupProfile(ctx context.Context, userID uuid.UUID, in ProfileInput) (*models.SellerProfile, error) {
	if err := ValidateProfile(in, time.Now().Year()); err != nil {
		return nil, err
	}

	var items []PortfolioItemInput
	if in.PortfolioItems != nil {
		items = append(items, *in.PortfolioItems...)
		in.PortfolioItems = &items
	}
	stored, err := s.storePortfolioMedia(ctx, items)
	if err != nil {
		return nil, err
	}

	var (
		profileID uuid.UUID
		dropped   []string
	)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := lockUser(tx, userID)
		if err != nil {
			return err
		}
		if !u.IsSeller {
			return apperr.ErrNotASeller
		}
		p, err := findOrCreateProfile(tx, userID)
		if err != nil {
			return err
		}
		profileID = p.ID

		if in.PortfolioItems != nil {
			if dropped, err = checkKeptMedia(tx, p.ID, items); err != nil {
				return err
			}
		}

		if in.ProfileTitle != nil {
			p.ProfileTitle = strings.TrimSpace(*in.ProfileTitle)
		}
		if in.Bio != nil {
			p.Bio = strings.TrimSpace(*in.Bio)
		}
		if in.PortfolioLink != nil {
			p.PortfolioLink = strings.TrimSpace(*in.PortfolioLink)
		}
		if err := replaceChildren(tx, p.ID, in); err != nil {
			return err
		}

		counts, err := countChildren(tx, p.ID)
		if err != nil {
			return err
		}
		p.IsProfileComplete = s.Rules.IsComplete(p.ProfileTitle, p.Bio, counts)
		return tx.Model(p).
			Select("profile_title", "bio", "portfolio_link", "is_profile_complete", "updated_at").
			Updates(p).Error
	})
	if err != nil {
		storage.Discard(ctx, s.Storage, stored...)
		return nil, apperr.FromDB(err, "seller profile", apperr.Conflict(apperr.CodeDuplicate, "skills", "Skill or language names must be unique per profile"))
	}
	storage.Discard(ctx, s.Storage, dropped...)

	var p models.SellerProfile
	if err := preloadProfile(s.DB.WithContext(ctx)).First(&p, "id = ?", profileID).Error; err != nil {
		return nil, apperr.FromDB(err, "seller profile", nil)
	}
	return &p, nil
}

// storePortfolioMedia uploads each item's new media and points MediaFile at
// the stored object.
func (s *Service) storePortfolioMedia(ctx context.Context, items []PortfolioItemInput) ([]string, error) {
	var stored []string
	for i := range items {
		if items[i].Media == nil {
			continue
		}
		if s.Storage == nil {
			return nil, apperr.Internal(errors.New("no storage configured for portfolio media"))
		}
		url, err := s.Storage.Save(ctx, "portfolio", items[i].Media)
		if err != nil {
			storage.Discard(ctx, s.Storage, stored...)
			return nil, apperr.Internal(err)
		}
		stored = append(stored, url)
		items[i].MediaFile = url
	}
	return stored, nil
}

// checkKeptMedia rejects media_file values the profile never stored and
// returns the stored media the new item list no longer references.
func checkKeptMedia(tx *gorm.DB, profileID uuid.UUID, items []PortfolioItemInput) ([]string, error) {
	var current []string
	if err := tx.Model(&models.PortfolioItem{}).
		Where("profile_id = ? AND media_file <> ''", profileID).
		Pluck("media_file", &current).Error; err != nil {
		return nil, err
	}
	owned := make(map[string]bool, len(current))
	for _, m := range current {
		owned[m] = true
	}

	errs := apperr.FieldErrors{}
	referenced := map[string]bool{}
	for i, it := range items {
		m := strings.TrimSpace(it.MediaFile)
		if m == "" {
			continue
		}
		if it.Media == nil && !owned[m] {
			errs.Add(fmt.Sprintf("portfolio_items[%d].media_file", i), "Upload the media file instead of naming it")
		}
		referenced[m] = true
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	var dropped []string
	for _, m := range current {
		if !referenced[m] {
			dropped = append(dropped, m)
		}
	}
	return dropped, nil
}

func replaceChildren(tx *gorm.DB, profileID uuid.UUID, in ProfileInput) error {
	if in.Educations != nil {
		rows := make([]models.Education, 0, len(*in.Educations))
		for _, e := range *in.Educations {
			rows = append(rows, models.Education{
				ProfileID:    profileID,
				Institution:  strings.TrimSpace(e.Institution),
				Degree:       strings.TrimSpace(e.Degree),
				FieldOfStudy: strings.TrimSpace(e.FieldOfStudy),
				StartYear:    e.StartYear,
				EndYear:      e.EndYear,
			})
		}
		if err := replace(tx, &models.Education{}, profileID, rows); err != nil {
			return err
		}
	}
	if in.Skills != nil {
		rows := make([]models.Skill, 0, len(*in.Skills))
		for _, sk := range *in.Skills {
			rows = append(rows, models.Skill{ProfileID: profileID, Name: strings.TrimSpace(sk.Name), Level: models.SkillLevel(sk.Level)})
		}
		if err := replace(tx, &models.Skill{}, profileID, rows); err != nil {
			return err
		}
	}
	if in.Languages != nil {
		rows := make([]models.Language, 0, len(*in.Languages))
		for _, l := range *in.Languages {
			rows = append(rows, models.Language{ProfileID: profileID, Name: strings.TrimSpace(l.Name), Level: models.LanguageLevel(l.Level)})
		}
		if err := replace(tx, &models.Language{}, profileID, rows); err != nil {
			return err
		}
	}
	if in.PortfolioItems != nil {
		rows := make([]models.PortfolioItem, 0, len(*in.PortfolioItems))
		for _, it := range *in.PortfolioItems {
			rows = append(rows, models.PortfolioItem{
				ProfileID:   profileID,
				Title:       strings.TrimSpace(it.Title),
				Description: strings.TrimSpace(it.Description),
				URL:         strings.TrimSpace(it.URL),
				MediaFile:   strings.TrimSpace(it.MediaFile),
			})
		}
		if err := replace(tx, &models.PortfolioItem{}, profileID, rows); err != nil {
			return err
		}
	}
	return nil
}

// replace deletes every row of model owned by the profile, then inserts rows.
func replace[T any](tx *gorm.DB, model interface{}, profileID uuid.UUID, rows []T) error {
	if err := tx.Where("profile_id = ?", profileID).Delete(model).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return tx.Create(&rows).Error
}

func countChildren(tx *gorm.DB, profileID uuid.UUID) (models.ProfileCounts, error) {
	var c models.ProfileCounts
	counts := []struct {
		model interface{}
		dst   *int
	}{
		{&models.Education{}, &c.Educations},
		{&models.Skill{}, &c.Skills},
		{&models.Language{}, &c.Languages},
		{&models.PortfolioItem{}, &c.PortfolioItems},
	}
	for _, q := range counts {
		var n int64
		if err := tx.Model(q.model).Where("profile_id = ?", profileID).Count(&n).Error; err != nil {
			return c, err
		}
		*q.dst = int(n)
	}
	return c, nil
}

func preloadProfile(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Educations", func(db *gorm.DB) *gorm.DB { return db.Order("start_year DESC") }).
		Preload("Skills", func(db *gorm.DB) *gorm.DB { return db.Order("name") }).
		Preload("Languages", func(db *gorm.DB) *gorm.DB { return db.Order("name") }).
		Preload("PortfolioItems", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") })
}

// ValidateProfile checks field rules and child items; keys look like
// "skills[1].level" so clients can point at the bad row. Minimum lengths are
// a completeness concern, not a validation one.
func ValidateProfile(in ProfileInput, currentYear int) error {
	errs := apperr.FieldErrors{}

	if in.ProfileTitle != nil {
		if runeLen(*in.ProfileTitle) > 100 {
			errs.Add("profile_title", "Profile title must be at most 100 characters")
		}
	}
	if in.Bio != nil {
		if runeLen(*in.Bio) > 1000 {
			errs.Add("bio", "Bio must be at most 1000 characters")
		}
	}
	if in.PortfolioLink != nil {
		if l := strings.TrimSpace(*in.PortfolioLink); l != "" && !utils.IsHTTPURL(l) {
			errs.Add("portfolio_link", "Enter a valid URL")
		}
	}

	if in.Educations != nil {
		for i, e := range *in.Educations {
			errs.Merge(fmt.Sprintf("educations[%d]", i), validateEducation(e, currentYear))
		}
	}
	if in.Skills != nil {
		validateLeveled[models.SkillLevel]("skills", *in.Skills, errs)
	}
	if in.Languages != nil {
		validateLeveled[models.LanguageLevel]("languages", *in.Languages, errs)
	}
	if in.PortfolioItems != nil {
		for i, it := range *in.PortfolioItems {
			key := fmt.Sprintf("portfolio_items[%d]", i)
			errs.Merge(key, validatePortfolioItem(it))
			if it.Media != nil {
				if err := storage.PortfolioMediaRule.Check(key+".media", it.Media); err != nil {
					errs.Merge("", apperr.As(err).Fields)
				}
			}
		}
	}
	return errs.Err()
}

func validateEducation(e EducationInput, currentYear int) apperr.FieldErrors {
	errs := apperr.FieldErrors{}
	maxYear := currentYear + 5
	if n := runeLen(e.Institution); n == 0 || n > 100 {
		errs.Add("institution", "Institution is required and must be at most 100 characters")
	}
	if n := runeLen(e.Degree); n == 0 || n > 100 {
		errs.Add("degree", "Degree is required and must be at most 100 characters")
	}
	if e.StartYear < 1900 || e.StartYear > maxYear {
		errs.Add("start_year", fmt.Sprintf("Year must be between 1900 and %d", maxYear))
	}
	if e.EndYear != nil {
		if *e.EndYear < 1900 || *e.EndYear > maxYear {
			errs.Add("end_year", fmt.Sprintf("Year must be between 1900 and %d", maxYear))
		} else if *e.EndYear < e.StartYear {
			errs.Add("end_year", "End year must be after start year")
		}
	}
	return errs
}

// validateLeveled checks one {name, level} collection; L closes the level set.
func validateLeveled[L interface {
	~string
	Valid() bool
}](field string, items []LeveledInput, errs apperr.FieldErrors) {
	seen := map[string]bool{}
	for i, it := range items {
		key := fmt.Sprintf("%s[%d]", field, i)
		name := strings.TrimSpace(it.Name)
		switch {
		case name == "":
			errs.Add(key+".name", "Name is required")
		case runeLen(name) > 50:
			errs.Add(key+".name", "Name must be at most 50 characters")
		case seen[strings.ToLower(name)]:
			errs.Add(key+".name", "Duplicate name")
		}
		seen[strings.ToLower(name)] = true
		if !L(it.Level).Valid() {
			errs.Add(key+".level", "Invalid level")
		}
	}
}

func validatePortfolioItem(it PortfolioItemInput) apperr.FieldErrors {
	errs := apperr.FieldErrors{}
	if n := runeLen(it.Title); n == 0 || n > 100 {
		errs.Add("title", "Title is required and must be at most 100 characters")
	}
	if n := runeLen(it.Description); n < 10 || n > 500 {
		errs.Add("description", "Description must be between 10 and 500 characters")
	}
	url, media := strings.TrimSpace(it.URL), strings.TrimSpace(it.MediaFile)
	switch {
	case url == "" && media == "" && it.Media == nil:
		errs.Add("url", "Either a URL or a media file is required")
	case url != "" && !utils.IsHTTPURL(url):
		errs.Add("url", "Enter a valid URL")
	}
	if media != "" && it.Media == nil && (strings.Contains(media, "..") || !storage.PortfolioMediaRule.AllowsName(media)) {
		errs.Add("media_file", "Unsupported media file")
	}
	return errs
}

func runeLen(s string) int { return len([]rune(strings.TrimSpace(s))) }
