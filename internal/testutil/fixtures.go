package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/gigmarket/internal/models"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/utils"
)

// NewUser inserts a verified buyer; mutate adjusts it before insert.
func NewUser(t *testing.T, gdb *gorm.DB, mutate ...func(*models.User)) *models.User {
	t.Helper()
	short := uuid.NewString()[:8]
	u := &models.User{
		Username:        "user_" + short,
		Email:           fmt.Sprintf("user_%s@example.com", short),
		Password:        "x",
		IsEmailVerified: true,
		IsActive:        true,
		CurrentRole:     models.RoleBuyer,
	}
	for _, m := range mutate {
		m(u)
	}
	if err := gdb.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// NewSeller inserts a seller with an empty profile.
func NewSeller(t *testing.T, gdb *gorm.DB) (*models.User, *models.SellerProfile) {
	t.Helper()
	u := NewUser(t, gdb, func(u *models.User) {
		u.IsSeller = true
		u.CurrentRole = models.RoleSeller
	})
	p := &models.SellerProfile{UserID: u.ID}
	if err := gdb.Create(p).Error; err != nil {
		t.Fatalf("create profile: %v", err)
	}
	return u, p
}

func NewCategory(t *testing.T, gdb *gorm.DB, name string) (*models.Category, *models.SubCategory) {
	t.Helper()
	cat := &models.Category{Name: name, Slug: utils.Slugify(name), IsActive: true}
	if err := gdb.Create(cat).Error; err != nil {
		t.Fatalf("create category: %v", err)
	}
	sub := &models.SubCategory{CategoryID: cat.ID, Name: "General", Slug: cat.Slug + "-general", IsActive: true}
	if err := gdb.Create(sub).Error; err != nil {
		t.Fatalf("create subcategory: %v", err)
	}
	return cat, sub
}

// NewGig inserts an active gig with Basic/Standard/Premium priced 15/40/90.
func NewGig(t *testing.T, gdb *gorm.DB, profile *models.SellerProfile, cat *models.Category) *models.Gig {
	t.Helper()
	g := &models.Gig{
		SellerID:     profile.ID,
		CategoryID:   cat.ID,
		Title:        "I will design a modern logo",
		Description:  "Clean vector logo with source files.",
		DeliveryTime: 3,
		Status:       models.GigActive,
		Packages: []models.GigPackage{
			{PackageName: models.PackageBasic, Price: decimal.RequireFromString("15.00"), DeliveryDays: 3},
			{PackageName: models.PackageStandard, Price: decimal.RequireFromString("40.00"), NumberOfRevisions: 2, DeliveryDays: 5},
			{PackageName: models.PackagePremium, Price: decimal.RequireFromString("90.00"), NumberOfRevisions: 5, DeliveryDays: 7},
		},
	}
	g.SetTags([]string{"logo"})
	if err := gdb.Create(g).Error; err != nil {
		t.Fatalf("create gig: %v", err)
	}
	return g
}

func Package(g *models.Gig, name models.PackageName) *models.GigPackage {
	for i := range g.Packages {
		if g.Packages[i].PackageName == name {
			return &g.Packages[i]
		}
	}
	return nil
}
