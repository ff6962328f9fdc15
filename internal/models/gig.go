package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type GigStatus string

const (
	GigDraft  GigStatus = "draft"
	GigActive GigStatus = "active"
	GigPaused GigStatus = "paused"
)

// NormalizeGigStatus promotes draft (and empty) to active; gigs are never stored as drafts.
func NormalizeGigStatus(s GigStatus) (GigStatus, bool) {
	switch s {
	case "", GigDraft, GigActive:
		return GigActive, true
	case GigPaused:
		return GigPaused, true
	}
	return "", false
}

type Gig struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	SellerID      uuid.UUID `gorm:"type:uuid;index;not null" json:"seller_id"`
	CategoryID    uint      `gorm:"index;not null" json:"category_id"`
	SubCategoryID *uint     `gorm:"index" json:"subcategory_id"`

	Title        string         `gorm:"type:varchar(255);not null" json:"title"`
	Description  string         `gorm:"type:text;not null" json:"description"`
	DeliveryTime int            `gorm:"not null;check:delivery_time > 0" json:"delivery_time"`
	Tags         datatypes.JSON `json:"tags"`
	Status       GigStatus      `gorm:"type:varchar(10);not null;default:'active';index" json:"status"`
	IsFeatured   bool           `gorm:"not null;default:false;index" json:"is_featured"`
	Thumbnail    string         `json:"thumbnail"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Seller      *SellerProfile `gorm:"foreignKey:SellerID;constraint:OnDelete:CASCADE" json:"-"`
	Category    *Category      `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	SubCategory *SubCategory   `gorm:"foreignKey:SubCategoryID" json:"subcategory,omitempty"`
	Packages    []GigPackage   `gorm:"foreignKey:GigID;constraint:OnDelete:CASCADE" json:"packages"`
	FAQs        []GigFAQ       `gorm:"foreignKey:GigID;constraint:OnDelete:CASCADE" json:"faqs"`
	Gallery     []GigGallery   `gorm:"foreignKey:GigID;constraint:OnDelete:CASCADE" json:"gallery"`
}

func (g *Gig) BeforeSave(tx *gorm.DB) error {
	if s, ok := NormalizeGigStatus(g.Status); ok {
		g.Status = s
	}
	return nil
}

func (g *Gig) SetTags(tags []string) {
	if tags == nil {
		tags = []string{}
	}
	b, _ := json.Marshal(tags)
	g.Tags = datatypes.JSON(b)
}

func (g *Gig) TagList() []string {
	var tags []string
	if len(g.Tags) == 0 {
		return []string{}
	}
	if err := json.Unmarshal(g.Tags, &tags); err != nil {
		return []string{}
	}
	return tags
}

// MinPrice is the cheapest package price; zero when no package is loaded.
func (g *Gig) MinPrice() decimal.Decimal {
	var min decimal.Decimal
	for i, p := range g.Packages {
		if i == 0 || p.Price.LessThan(min) {
			min = p.Price
		}
	}
	return min
}

type PackageName string

const (
	PackageBasic    PackageName = "Basic"
	PackageStandard PackageName = "Standard"
	PackagePremium  PackageName = "Premium"
)

func (n PackageName) Valid() bool {
	switch n {
	case PackageBasic, PackageStandard, PackagePremium:
		return true
	}
	return false
}

type GigPackage struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	GigID             uint            `gorm:"not null;uniqueIndex:idx_gig_packages_gig_name" json:"gig_id"`
	PackageName       PackageName     `gorm:"type:varchar(20);not null;uniqueIndex:idx_gig_packages_gig_name" json:"package_name"`
	Description       string          `gorm:"type:text" json:"description"`
	Price             decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	NumberOfRevisions int             `gorm:"not null;default:0;check:number_of_revisions >= 0" json:"number_of_revisions"`
	DeliveryDays      int             `gorm:"not null;check:delivery_days > 0" json:"delivery_days"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

type GigFAQ struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	GigID     uint      `gorm:"index;not null" json:"gig_id"`
	Question  string    `gorm:"type:varchar(255);not null" json:"question"`
	Answer    string    `gorm:"type:text;not null" json:"answer"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

func (m MediaType) Valid() bool { return m == MediaImage || m == MediaVideo }

type GigGallery struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	GigID     uint      `gorm:"index;not null" json:"gig_id"`
	MediaType MediaType `gorm:"type:varchar(10);not null" json:"media_type"`
	File      string    `gorm:"not null" json:"file"`
	CreatedAt time.Time `json:"created_at"`
}

type SavedGig struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_saved_gigs_user_gig" json:"user_id"`
	GigID     uint      `gorm:"not null;uniqueIndex:idx_saved_gigs_user_gig" json:"gig_id"`
	CreatedAt time.Time `json:"created_at"`

	Gig *Gig `gorm:"foreignKey:GigID;constraint:OnDelete:CASCADE" json:"gig,omitempty"`
}
