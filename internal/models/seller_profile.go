// internal/models/seller_profile.go
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SellerProfile struct {
	ID     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`

	ProfileTitle      string `gorm:"type:varchar(100)" json:"profile_title"`
	Bio               string `gorm:"type:text" json:"bio"`
	PortfolioLink     string `gorm:"type:varchar(200)" json:"portfolio_link"`
	IsProfileComplete bool   `gorm:"not null;default:false" json:"is_profile_complete"`

	// Earnings balance, moved only through the earnings ledger.
	Balance decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"balance"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Educations     []Education     `gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE" json:"educations"`
	Skills         []Skill         `gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE" json:"skills"`
	Languages      []Language      `gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE" json:"languages"`
	PortfolioItems []PortfolioItem `gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE" json:"portfolio_items"`
}

func (p *SellerProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

type Education struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ProfileID    uuid.UUID `gorm:"type:uuid;index;not null" json:"-"`
	Institution  string    `gorm:"type:varchar(100);not null" json:"institution"`
	Degree       string    `gorm:"type:varchar(100);not null" json:"degree"`
	FieldOfStudy string    `gorm:"type:varchar(100)" json:"field_of_study"`
	StartYear    int       `gorm:"not null" json:"start_year"`
	EndYear      *int      `json:"end_year"`
	CreatedAt    time.Time `json:"created_at"`
}

type SkillLevel string

const (
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"
	SkillExpert       SkillLevel = "expert"
)

func (l SkillLevel) Valid() bool {
	switch l {
	case SkillBeginner, SkillIntermediate, SkillAdvanced, SkillExpert:
		return true
	}
	return false
}

type LanguageLevel string

const (
	LanguageBasic          LanguageLevel = "basic"
	LanguageConversational LanguageLevel = "conversational"
	LanguageFluent         LanguageLevel = "fluent"
	LanguageNative         LanguageLevel = "native"
)

func (l LanguageLevel) Valid() bool {
	switch l {
	case LanguageBasic, LanguageConversational, LanguageFluent, LanguageNative:
		return true
	}
	return false
}

// Skill and Language share the {id, name, level, created_at} shape; the
// level type closes the enumeration for each kind.
type Skill struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	ProfileID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_skills_profile_name" json:"-"`
	Name      string     `gorm:"type:varchar(50);not null;uniqueIndex:idx_skills_profile_name" json:"name"`
	Level     SkillLevel `gorm:"type:varchar(20);not null" json:"level"`
	CreatedAt time.Time  `json:"created_at"`
}

type Language struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	ProfileID uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_languages_profile_name" json:"-"`
	Name      string        `gorm:"type:varchar(50);not null;uniqueIndex:idx_languages_profile_name" json:"name"`
	Level     LanguageLevel `gorm:"type:varchar(20);not null" json:"level"`
	CreatedAt time.Time     `json:"created_at"`
}

type PortfolioItem struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ProfileID   uuid.UUID `gorm:"type:uuid;index;not null" json:"-"`
	Title       string    `gorm:"type:varchar(100);not null" json:"title"`
	Description string    `gorm:"type:text;not null" json:"description"`
	URL         string    `gorm:"type:varchar(200)" json:"url"`
	MediaFile   string    `json:"media_file"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProfileCounts is the relation tally completeness is judged on.
type ProfileCounts struct {
	Educations     int `json:"educations"`
	Skills         int `json:"skills"`
	Languages      int `json:"languages"`
	PortfolioItems int `json:"portfolio_items"`
}

// CountsOf tallies the loaded child collections.
func CountsOf(p *SellerProfile) ProfileCounts {
	return ProfileCounts{
		Educations:     len(p.Educations),
		Skills:         len(p.Skills),
		Languages:      len(p.Languages),
		PortfolioItems: len(p.PortfolioItems),
	}
}

type CompletenessRules struct {
	MinTitle          int
	MinBio            int
	MinEducations     int
	MinSkills         int
	MinLanguages      int
	MinPortfolioItems int
}

var DefaultCompletenessRules = CompletenessRules{
	MinTitle:          5,
	MinBio:            50,
	MinEducations:     1,
	MinSkills:         2,
	MinLanguages:      1,
	MinPortfolioItems: 1,
}

// Missing field names, in display order.
const (
	FieldProfileTitle   = "profile_title"
	FieldBio            = "bio"
	FieldEducations     = "educations"
	FieldSkills         = "skills"
	FieldLanguages      = "languages"
	FieldPortfolioItems = "portfolio_items"
)

func (r CompletenessRules) MissingFields(title, bio string, c ProfileCounts) []string {
	missing := []string{}
	if runeLen(title) < r.MinTitle {
		missing = append(missing, FieldProfileTitle)
	}
	if runeLen(bio) < r.MinBio {
		missing = append(missing, FieldBio)
	}
	if c.Educations < r.MinEducations {
		missing = append(missing, FieldEducations)
	}
	if c.Skills < r.MinSkills {
		missing = append(missing, FieldSkills)
	}
	if c.Languages < r.MinLanguages {
		missing = append(missing, FieldLanguages)
	}
	if c.PortfolioItems < r.MinPortfolioItems {
		missing = append(missing, FieldPortfolioItems)
	}
	return missing
}

func (r CompletenessRules) IsComplete(title, bio string, c ProfileCounts) bool {
	return len(r.MissingFields(title, bio, c)) == 0
}

func runeLen(s string) int { return len([]rune(strings.TrimSpace(s))) }
